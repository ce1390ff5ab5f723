package summary

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/prepvoice/prepvoice/internal/interview"
)

type clientMock struct {
	calls    int
	response string
	err      error
}

func (c *clientMock) Complete(_ context.Context, _, _ string) (string, error) {
	c.calls++
	if c.err != nil {
		return "", c.err
	}
	return c.response, nil
}

type fallbackCounter struct {
	providers []string
}

func (f *fallbackCounter) RecordProviderFallback(provider string) {
	f.providers = append(f.providers, provider)
}

func testProfile() interview.Profile {
	return interview.Profile{
		Company:       "Acme",
		Role:          "Backend Engineer",
		Experience:    "3 years",
		InterviewType: "technical",
		QuestionLimit: 5,
	}
}

func testTranscript() []interview.Turn {
	return []interview.Turn{
		{Speaker: interview.SpeakerAI, Text: "Tell me about goroutines."},
		{Speaker: interview.SpeakerUser, Text: "They are lightweight threads."},
	}
}

const validResponse = `{
  "strengths": ["clear explanations"],
  "weaknesses": ["shallow on internals"],
  "improvements": ["study the scheduler"],
  "topicsToWorkOn": ["concurrency"],
  "overallFeedback": "Good fundamentals."
}`

func TestGenerate(t *testing.T) {
	client := &clientMock{response: validResponse}
	g := New(client, nil)

	got := g.Generate(context.Background(), testProfile(), testTranscript())
	if got.OverallFeedback != "Good fundamentals." {
		t.Fatalf("unexpected feedback %q", got.OverallFeedback)
	}
	if len(got.Strengths) != 1 || got.Strengths[0] != "clear explanations" {
		t.Fatalf("unexpected strengths %v", got.Strengths)
	}
	if client.calls != 1 {
		t.Fatalf("expected 1 provider call, got %d", client.calls)
	}
}

func TestGenerateEmptyTranscript(t *testing.T) {
	client := &clientMock{response: validResponse}
	g := New(client, nil)

	got := g.Generate(context.Background(), testProfile(), nil)
	if client.calls != 0 {
		t.Fatalf("empty transcript must not call the provider, got %d calls", client.calls)
	}
	if !reflect.DeepEqual(got, EarlyEnd()) {
		t.Fatalf("expected early-end summary, got %+v", got)
	}
}

func TestGenerateProviderError(t *testing.T) {
	client := &clientMock{err: errors.New("rate limited")}
	rec := &fallbackCounter{}
	g := New(client, rec)
	g.logf = func(string, ...any) {}

	got := g.Generate(context.Background(), testProfile(), testTranscript())
	if !reflect.DeepEqual(got, Fallback(testProfile())) {
		t.Fatalf("expected fallback summary, got %+v", got)
	}
	if !reflect.DeepEqual(rec.providers, []string{"summary"}) {
		t.Fatalf("expected one summary fallback recorded, got %v", rec.providers)
	}
}

func TestGenerateMalformedResponse(t *testing.T) {
	client := &clientMock{response: "Sure! Here is your feedback: it went well."}
	g := New(client, nil)
	g.logf = func(string, ...any) {}

	got := g.Generate(context.Background(), testProfile(), testTranscript())
	if !reflect.DeepEqual(got, Fallback(testProfile())) {
		t.Fatalf("expected fallback summary, got %+v", got)
	}
}

func TestGenerateNilClient(t *testing.T) {
	g := New(nil, nil)

	got := g.Generate(context.Background(), testProfile(), testTranscript())
	if got.OverallFeedback == "" {
		t.Fatal("fallback must populate overallFeedback")
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{"plain json", validResponse, false},
		{"fenced json", "```json\n" + validResponse + "\n```", false},
		{"bare fences", "```\n" + validResponse + "\n```", false},
		{"empty", "", true},
		{"not json", "the candidate did fine", true},
		{"missing strengths", `{"weaknesses":[],"improvements":[],"topicsToWorkOn":[],"overallFeedback":"ok"}`, true},
		{"empty feedback", `{"strengths":[],"weaknesses":[],"improvements":[],"topicsToWorkOn":[],"overallFeedback":""}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse failed: %v", err)
			}
			if got.OverallFeedback != "Good fundamentals." {
				t.Fatalf("unexpected feedback %q", got.OverallFeedback)
			}
		})
	}
}

func TestFallbackIncludesRole(t *testing.T) {
	got := Fallback(testProfile())
	found := false
	for _, topic := range got.TopicsToWorkOn {
		if topic == "Backend Engineer" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected role in topicsToWorkOn, got %v", got.TopicsToWorkOn)
	}
}
