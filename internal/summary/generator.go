// Package summary produces the structured end-of-interview feedback.
//
// The provider is asked for strict JSON but is not trusted to return it:
// responses are unwrapped from Markdown code fences, parsed, and
// validated, and anything unusable is replaced by a fixed fallback so
// closing a session never hard-fails on a provider or formatting fault.
package summary

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/prepvoice/prepvoice/internal/interview"
	"github.com/prepvoice/prepvoice/internal/llm"
)

const systemPrompt = `You are an interview evaluator.

Analyze the interview transcript and provide feedback.

Return ONLY valid JSON in this exact format:
{
  "strengths": ["..."],
  "weaknesses": ["..."],
  "improvements": ["..."],
  "topicsToWorkOn": ["..."],
  "overallFeedback": "..."
}`

// FallbackRecorder counts provider failures absorbed into fallbacks.
type FallbackRecorder interface {
	RecordProviderFallback(provider string)
}

// Generator turns a transcript into a Summary. It never returns an
// error: every failure path ends in a fully-populated fallback value.
type Generator struct {
	client  llm.Client
	metrics FallbackRecorder
	logf    func(format string, args ...any)
}

func New(client llm.Client, rec FallbackRecorder) *Generator {
	return &Generator{client: client, metrics: rec, logf: log.Printf}
}

// Generate evaluates the transcript. An empty transcript (session ended
// before any exchange) yields the canned early-end summary without a
// provider call.
func (g *Generator) Generate(ctx context.Context, profile interview.Profile, transcript []interview.Turn) interview.Summary {
	if len(transcript) == 0 {
		return EarlyEnd()
	}

	if g.client == nil {
		return g.fallback(profile)
	}

	user := fmt.Sprintf("Interview Transcript:\n%s", interview.RenderTranscript(transcript))

	raw, err := g.client.Complete(ctx, systemPrompt, user)
	if err != nil {
		g.logf("summary generation failed, using fallback: %v", err)
		return g.fallback(profile)
	}

	parsed, err := Parse(raw)
	if err != nil {
		g.logf("summary parse failed, using fallback: %v", err)
		return g.fallback(profile)
	}
	return parsed
}

func (g *Generator) fallback(profile interview.Profile) interview.Summary {
	if g.metrics != nil {
		g.metrics.RecordProviderFallback("summary")
	}
	return Fallback(profile)
}

// Parse extracts a Summary from raw provider text, stripping any
// Markdown code-fence markers first. All fields must be present.
func Parse(raw string) (interview.Summary, error) {
	cleaned := stripFences(raw)
	if cleaned == "" {
		return interview.Summary{}, fmt.Errorf("empty provider response")
	}

	var s interview.Summary
	if err := json.Unmarshal([]byte(cleaned), &s); err != nil {
		return interview.Summary{}, fmt.Errorf("parse summary JSON: %w", err)
	}

	if s.Strengths == nil || s.Weaknesses == nil || s.Improvements == nil ||
		s.TopicsToWorkOn == nil || s.OverallFeedback == "" {
		return interview.Summary{}, fmt.Errorf("summary response missing required fields")
	}
	return s, nil
}

func stripFences(raw string) string {
	cleaned := strings.ReplaceAll(raw, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	return strings.TrimSpace(cleaned)
}

// EarlyEnd is the summary recorded for sessions that ended before any
// question was answered.
func EarlyEnd() interview.Summary {
	return interview.Summary{
		Strengths:      []string{},
		Weaknesses:     []string{"Interview ended before sufficient answers"},
		Improvements:   []string{"Complete the interview fully for better feedback"},
		TopicsToWorkOn: []string{},
		OverallFeedback: "The interview was ended early, so a detailed evaluation " +
			"could not be generated.",
	}
}

// Fallback is the fixed substitute used when the provider fails or
// returns malformed output. Every field is populated so the Summary
// shape invariant holds unconditionally.
func Fallback(profile interview.Profile) interview.Summary {
	return interview.Summary{
		Strengths:    []string{"Answered conceptual interview questions"},
		Weaknesses:   []string{"Responses lacked depth in some areas"},
		Improvements: []string{"Practice structured verbal explanations"},
		TopicsToWorkOn: []string{
			profile.Role,
			"System design basics",
			"API communication flow",
		},
		OverallFeedback: "The interview was completed successfully. Improving clarity " +
			"and structure will enhance performance in real interviews.",
	}
}
