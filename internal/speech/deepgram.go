// Package speech wraps the Deepgram speech-to-text and text-to-speech
// REST APIs behind narrow adapters. Provider failures are absorbed at
// this boundary: transcription degrades to empty text and synthesis to
// an empty payload, never to a failed orchestration step.
package speech

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	listenapi "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/rest"
	speakapi "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/speak/v1/rest"
	interfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/interfaces"
	listenclient "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/listen"
	speakclient "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/speak"
)

// Recorder observes provider round trips and the failures absorbed at
// this boundary.
type Recorder interface {
	RecordProviderCall(provider string, duration time.Duration)
	RecordProviderFallback(provider string)
}

// Transcriber converts raw answer audio to text.
type Transcriber struct {
	client   *listenapi.Client
	model    string
	language string
	timeout  time.Duration
	metrics  Recorder
	logf     func(format string, args ...any)
}

func NewTranscriber(apiKey, model, language string, timeout time.Duration, rec Recorder) *Transcriber {
	c := listenclient.NewREST(apiKey, &interfaces.ClientOptions{})
	return &Transcriber{
		client:   listenapi.New(c),
		model:    model,
		language: language,
		timeout:  timeout,
		metrics:  rec,
		logf:     log.Printf,
	}
}

// Transcribe returns the transcript for the audio payload, or "" when
// the provider fails or hears nothing. The caller decides what an empty
// transcript means.
func (t *Transcriber) Transcribe(ctx context.Context, audio []byte) string {
	if t == nil || t.client == nil || len(audio) == 0 {
		return ""
	}

	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	options := &interfaces.PreRecordedTranscriptionOptions{
		Model:       t.model,
		Language:    t.language,
		Punctuate:   true,
		SmartFormat: true,
	}

	start := time.Now()
	res, err := t.client.FromStream(ctx, bytes.NewReader(audio), options)
	if t.metrics != nil {
		t.metrics.RecordProviderCall("stt", time.Since(start))
	}
	if err != nil {
		t.logf("speech-to-text failed: %v", err)
		if t.metrics != nil {
			t.metrics.RecordProviderFallback("stt")
		}
		return ""
	}

	if len(res.Results.Channels) == 0 || len(res.Results.Channels[0].Alternatives) == 0 {
		return ""
	}
	return strings.TrimSpace(res.Results.Channels[0].Alternatives[0].Transcript)
}

// Synthesizer converts question text to an audio payload.
type Synthesizer struct {
	client  *speakapi.Client
	model   string
	timeout time.Duration
	metrics Recorder
}

func NewSynthesizer(apiKey, model string, timeout time.Duration, rec Recorder) *Synthesizer {
	c := speakclient.NewREST(apiKey, &interfaces.ClientOptions{})
	return &Synthesizer{client: speakapi.New(c), model: model, timeout: timeout, metrics: rec}
}

// Synthesize returns the spoken rendering of text. Failure is reported
// so the caller can drop the audio from the response; the question turn
// itself is unaffected.
func (s *Synthesizer) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if s == nil || s.client == nil {
		return nil, fmt.Errorf("text-to-speech not configured")
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	options := &interfaces.SpeakOptions{Model: s.model}

	buf := &interfaces.RawResponse{}
	start := time.Now()
	_, err := s.client.ToStream(ctx, text, options, buf)
	if s.metrics != nil {
		s.metrics.RecordProviderCall("tts", time.Since(start))
	}
	if err != nil {
		return nil, fmt.Errorf("text-to-speech: %w", err)
	}
	return buf.Bytes(), nil
}
