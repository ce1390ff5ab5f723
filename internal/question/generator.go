// Package question generates the next interview question from the
// session profile and transcript history.
package question

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/prepvoice/prepvoice/internal/interview"
	"github.com/prepvoice/prepvoice/internal/llm"
)

const systemTemplate = `You are a professional AI interviewer conducting a LIVE SPOKEN interview.

Rules you MUST follow:
- Do NOT ask coding or programming questions.
- Do NOT ask the candidate to write code.
- Ask ONLY conceptual, verbal, or explanation-based questions answerable by speaking.
- You are currently at question %d of %d.
- CRITICAL: never repeat a question already present in the history.

Ask ONE clear interview question. Return ONLY the question text.`

// FallbackRecorder counts provider failures absorbed into fallbacks.
type FallbackRecorder interface {
	RecordProviderFallback(provider string)
}

// Generator asks the language-model provider for the next question. A
// provider failure is absorbed into a deterministic fallback question so
// the turn loop never stalls on an outage.
type Generator struct {
	client  llm.Client
	metrics FallbackRecorder
	logf    func(format string, args ...any)
}

func New(client llm.Client, rec FallbackRecorder) *Generator {
	return &Generator{client: client, metrics: rec, logf: log.Printf}
}

// Next returns the question to ask given that number questions have
// already been asked. It never returns an error.
func (g *Generator) Next(ctx context.Context, profile interview.Profile, transcript []interview.Turn) string {
	asked := interview.CountQuestions(transcript)
	system := fmt.Sprintf(systemTemplate, asked+1, profile.QuestionLimit)

	history := interview.RenderTranscript(transcript)
	if history == "" {
		history = "No questions asked yet."
	}

	user := fmt.Sprintf(
		"Role: %s. Company: %s. Experience: %s. Interview type: %s. Focus area: %s.\nHistory:\n%s\nGenerate the next unique question:",
		profile.Role, profile.Company, profile.Experience, profile.InterviewType,
		focusOrDefault(profile), history,
	)

	if g.client == nil {
		return g.fallback(profile)
	}

	text, err := g.client.Complete(ctx, system, user)
	if err != nil {
		g.logf("question generation failed, using fallback: %v", err)
		return g.fallback(profile)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		g.logf("question generation returned empty text, using fallback")
		return g.fallback(profile)
	}
	return text
}

func (g *Generator) fallback(profile interview.Profile) string {
	if g.metrics != nil {
		g.metrics.RecordProviderFallback("question")
	}
	return Fallback(profile)
}

// Fallback is the deterministic templated question used when the
// provider is unavailable or returns nothing usable.
func Fallback(profile interview.Profile) string {
	return fmt.Sprintf("Can you explain a technical challenge you faced while working with %s?", focusOrDefault(profile))
}

func focusOrDefault(profile interview.Profile) string {
	if profile.FocusArea != "" {
		return profile.FocusArea
	}
	return profile.Role
}
