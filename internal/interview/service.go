package interview

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// NoSpeechPlaceholder is recorded as the candidate's answer when the
// speech-to-text provider hears nothing or fails.
const NoSpeechPlaceholder = "(No speech detected)"

// Store is the persistence surface the orchestrator needs. The session
// entity is the single source of truth; every operation reloads it.
type Store interface {
	CreateSession(ctx context.Context, sess *Session) error
	LoadSession(ctx context.Context, id string) (*Session, error)
	SaveSession(ctx context.Context, sess *Session) error
	ListCompleted(ctx context.Context, ownerID string) ([]*Session, error)
}

// QuestionGenerator produces the next question. It must not fail; the
// implementation owns its fallback.
type QuestionGenerator interface {
	Next(ctx context.Context, profile Profile, transcript []Turn) string
}

// SummaryGenerator evaluates a finished transcript. It must not fail.
type SummaryGenerator interface {
	Generate(ctx context.Context, profile Profile, transcript []Turn) Summary
}

// Transcriber converts answer audio to text, absorbing provider failure
// into empty text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) string
}

// Synthesizer converts question text to audio. Failure is non-fatal to
// the turn; the orchestrator drops the audio and keeps the question.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// EventBroadcaster publishes session progress to watching clients.
type EventBroadcaster interface {
	BroadcastSessionStarted(sessionID string)
	BroadcastQuestionAsked(sessionID string, number, total int)
	BroadcastAnswerReceived(sessionID string, text string)
	BroadcastSessionEnded(sessionID string)
}

// CompletionRecorder counts finalized sessions.
type CompletionRecorder interface {
	RecordSessionCompleted()
	RecordProviderFallback(provider string)
}

// QuestionResult is the response shape of the question operations.
type QuestionResult struct {
	QuestionText   string
	Audio          []byte
	CurrentNumber  int
	TotalQuestions int
	Finished       bool
}

// AnswerResult is the response shape of answer submission.
type AnswerResult struct {
	AnswerText   string
	ReadyForNext bool
}

// Service drives the session lifecycle. It holds no per-session state:
// each call loads the session, validates the transition against the
// persisted state, performs at most one provider round trip, and saves.
type Service struct {
	store       Store
	questions   QuestionGenerator
	summaries   SummaryGenerator
	transcriber Transcriber
	synthesizer Synthesizer
	hub         EventBroadcaster
	metrics     CompletionRecorder
	logf        func(format string, args ...any)

	now     func() time.Time
	newID   func() string
	lockTTL time.Duration
}

// completingLockTTL bounds how long a persisted "completing" status is
// honored as an in-flight finalize. A lock older than this belongs to a
// finalize attempt that died mid-flight and may be taken over.
const completingLockTTL = 2 * time.Minute

func NewService(
	store Store,
	questions QuestionGenerator,
	summaries SummaryGenerator,
	transcriber Transcriber,
	synthesizer Synthesizer,
	hub EventBroadcaster,
	rec CompletionRecorder,
	logf func(format string, args ...any),
) *Service {
	if logf == nil {
		logf = func(string, ...any) {}
	}
	return &Service{
		store:       store,
		questions:   questions,
		summaries:   summaries,
		transcriber: transcriber,
		synthesizer: synthesizer,
		hub:         hub,
		metrics:     rec,
		logf:        logf,
		now:         func() time.Time { return time.Now().UTC() },
		newID:       func() string { return uuid.NewString() },
		lockTTL:     completingLockTTL,
	}
}

// Start creates a session in the created state and returns it.
func (s *Service) Start(ctx context.Context, ownerID string, profile Profile) (*Session, error) {
	if err := profile.Validate(); err != nil {
		return nil, err
	}

	sess := &Session{
		ID:        s.newID(),
		OwnerID:   ownerID,
		Profile:   profile,
		Status:    StatusCreated,
		CreatedAt: s.now(),
	}
	if err := s.store.CreateSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return sess, nil
}

// Begin moves a created session to in-progress and stamps startedAt.
func (s *Service) Begin(ctx context.Context, id string) (*Session, error) {
	sess, err := s.store.LoadSession(ctx, id)
	if err != nil {
		return nil, err
	}

	if sess.Status != StatusCreated {
		return nil, fmt.Errorf("%w: begin from %q", ErrInvalidTransition, sess.Status)
	}

	started := s.now()
	sess.Status = StatusInProgress
	sess.StartedAt = &started

	if err := s.store.SaveSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	if s.hub != nil {
		s.hub.BroadcastSessionStarted(sess.ID)
	}
	return sess, nil
}

// FirstQuestion asks the opening question. Allowed only while the
// transcript is still empty.
func (s *Service) FirstQuestion(ctx context.Context, id string) (*QuestionResult, error) {
	sess, err := s.store.LoadSession(ctx, id)
	if err != nil {
		return nil, err
	}

	if sess.Status != StatusInProgress {
		return nil, fmt.Errorf("%w: first question from %q", ErrInvalidTransition, sess.Status)
	}
	if len(sess.Transcript) != 0 {
		return nil, fmt.Errorf("%w: first question already asked", ErrOutOfOrder)
	}

	return s.askQuestion(ctx, sess)
}

// NextQuestion asks a follow-up question. It is the retry-safe core of
// the turn loop: the limit check is terminal, not an error, and the
// last-speaker guard rejects duplicate asks without mutating state.
func (s *Service) NextQuestion(ctx context.Context, id string) (*QuestionResult, error) {
	sess, err := s.store.LoadSession(ctx, id)
	if err != nil {
		return nil, err
	}

	if sess.Status != StatusInProgress {
		return nil, fmt.Errorf("%w: next question from %q", ErrInvalidTransition, sess.Status)
	}

	if sess.QuestionCount >= sess.Profile.QuestionLimit {
		return &QuestionResult{
			Finished:       true,
			CurrentNumber:  sess.QuestionCount,
			TotalQuestions: sess.Profile.QuestionLimit,
		}, nil
	}

	if LastSpeaker(sess.Transcript) != SpeakerUser {
		return nil, fmt.Errorf("%w: candidate has not answered the previous question", ErrOutOfOrder)
	}

	return s.askQuestion(ctx, sess)
}

// askQuestion runs the shared generate/synthesize/persist sequence. The
// session is saved only after both provider round trips resolved, so a
// failed request never leaves a half-advanced session behind.
func (s *Service) askQuestion(ctx context.Context, sess *Session) (*QuestionResult, error) {
	text := s.questions.Next(ctx, sess.Profile, sess.Transcript)

	audio, err := s.synthesizer.Synthesize(ctx, text)
	if err != nil {
		// Non-fatal: the turn proceeds without audio.
		s.logf("audio synthesis failed for session %s: %v", sess.ID, err)
		if s.metrics != nil {
			s.metrics.RecordProviderFallback("tts")
		}
		audio = nil
	}

	sess.Transcript = append(sess.Transcript, Turn{Speaker: SpeakerAI, Text: text})
	sess.QuestionCount++

	if err := s.store.SaveSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	if s.hub != nil {
		s.hub.BroadcastQuestionAsked(sess.ID, sess.QuestionCount, sess.Profile.QuestionLimit)
	}

	return &QuestionResult{
		QuestionText:   text,
		Audio:          audio,
		CurrentNumber:  sess.QuestionCount,
		TotalQuestions: sess.Profile.QuestionLimit,
	}, nil
}

// SubmitAnswer transcribes the candidate's audio and appends a user
// turn. It never triggers question generation; asking for the next
// question is a separate client call.
func (s *Service) SubmitAnswer(ctx context.Context, id string, audio []byte) (*AnswerResult, error) {
	sess, err := s.store.LoadSession(ctx, id)
	if err != nil {
		return nil, err
	}

	if sess.Status.Terminal() || sess.Status == StatusCompleting {
		return nil, fmt.Errorf("%w: answer from %q", ErrInvalidTransition, sess.Status)
	}

	text := s.transcriber.Transcribe(ctx, audio)
	if text == "" {
		text = NoSpeechPlaceholder
	}

	sess.Transcript = append(sess.Transcript, Turn{Speaker: SpeakerUser, Text: text})

	if err := s.store.SaveSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	if s.hub != nil {
		s.hub.BroadcastAnswerReceived(sess.ID, text)
	}

	return &AnswerResult{AnswerText: text, ReadyForNext: true}, nil
}

// End finalizes the session and returns its summary. It is idempotent:
// an already-completed session returns the stored summary without a
// second provider call, and a session mid-finalization reports not-ready
// instead of racing a duplicate summary generation.
func (s *Service) End(ctx context.Context, id string) (*Summary, error) {
	sess, err := s.store.LoadSession(ctx, id)
	if err != nil {
		return nil, err
	}

	switch sess.Status {
	case StatusCompleted:
		if sess.Summary != nil {
			return sess.Summary, nil
		}
	case StatusCompleting:
		if sess.CompletingAt != nil && s.now().Sub(*sess.CompletingAt) < s.lockTTL {
			return nil, ErrSummaryNotReady
		}
		// The previous finalize died between the lock write and the
		// summary write. Take the lock over and finish the job.
		s.logf("stale finalize lock on session %s, retrying", sess.ID)
	case StatusCancelled:
		return nil, fmt.Errorf("%w: end from %q", ErrInvalidTransition, sess.Status)
	}

	// Soft lock: persist "completing" before the provider call so a
	// re-polling client sees finalization in flight.
	locked := s.now()
	sess.Status = StatusCompleting
	sess.CompletingAt = &locked
	if err := s.store.SaveSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	summary := s.summaries.Generate(ctx, sess.Profile, sess.Transcript)

	ended := s.now()
	sess.Summary = &summary
	sess.Status = StatusCompleted
	sess.CompletingAt = nil
	sess.EndedAt = &ended

	if err := s.store.SaveSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordSessionCompleted()
	}
	if s.hub != nil {
		s.hub.BroadcastSessionEnded(sess.ID)
	}

	return &summary, nil
}

// Cancel abandons a session early without computing a summary.
func (s *Service) Cancel(ctx context.Context, id string) (*Session, error) {
	sess, err := s.store.LoadSession(ctx, id)
	if err != nil {
		return nil, err
	}

	if sess.Status.Terminal() || sess.Status == StatusCompleting {
		return nil, fmt.Errorf("%w: cancel from %q", ErrInvalidTransition, sess.Status)
	}

	ended := s.now()
	sess.Status = StatusCancelled
	sess.EndedAt = &ended

	if err := s.store.SaveSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	if s.hub != nil {
		s.hub.BroadcastSessionEnded(sess.ID)
	}
	return sess, nil
}

// GetSummary returns the stored summary, or ErrSummaryNotReady so
// pollers can retry.
func (s *Service) GetSummary(ctx context.Context, id string) (*Summary, error) {
	sess, err := s.store.LoadSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.Summary == nil {
		return nil, ErrSummaryNotReady
	}
	return sess.Summary, nil
}

// ListMine returns the owner's completed sessions with summaries,
// newest first.
func (s *Service) ListMine(ctx context.Context, ownerID string) ([]*Session, error) {
	sessions, err := s.store.ListCompleted(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}
