package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/prepvoice/prepvoice/internal/interview"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testSession(id, owner string) *interview.Session {
	return &interview.Session{
		ID:      id,
		OwnerID: owner,
		Profile: interview.Profile{
			Company:       "Acme",
			Role:          "Backend Engineer",
			Experience:    "3 years",
			InterviewType: "technical",
			FocusArea:     "distributed systems",
			QuestionLimit: 5,
		},
		Status:    interview.StatusCreated,
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}
}

func TestCreateAndLoadSession(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	sess := testSession("sess-1", "owner-1")
	if err := store.CreateSession(ctx, sess); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	got, err := store.LoadSession(ctx, "sess-1")
	if err != nil {
		t.Fatalf("LoadSession failed: %v", err)
	}
	if got.OwnerID != "owner-1" {
		t.Fatalf("expected owner-1, got %q", got.OwnerID)
	}
	if got.Profile != sess.Profile {
		t.Fatalf("profile mismatch: %+v", got.Profile)
	}
	if got.Status != interview.StatusCreated {
		t.Fatalf("expected created, got %q", got.Status)
	}
	if !got.CreatedAt.Equal(sess.CreatedAt) {
		t.Fatalf("createdAt mismatch: %v vs %v", got.CreatedAt, sess.CreatedAt)
	}
	if len(got.Transcript) != 0 {
		t.Fatalf("expected empty transcript, got %d turns", len(got.Transcript))
	}
}

func TestCreateSessionRequiresID(t *testing.T) {
	store := newTestStore(t)

	sess := testSession("", "owner-1")
	if err := store.CreateSession(context.Background(), sess); err == nil {
		t.Fatal("expected error for empty session id")
	}
}

func TestLoadSessionNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.LoadSession(context.Background(), "missing")
	if !errors.Is(err, interview.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSaveSessionNotFound(t *testing.T) {
	store := newTestStore(t)

	err := store.SaveSession(context.Background(), testSession("missing", "owner-1"))
	if !errors.Is(err, interview.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSaveSessionRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	sess := testSession("sess-1", "owner-1")
	if err := store.CreateSession(ctx, sess); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	started := time.Now().UTC().Truncate(time.Millisecond)
	sess.Status = interview.StatusInProgress
	sess.StartedAt = &started
	sess.QuestionCount = 1
	sess.Transcript = []interview.Turn{
		{Speaker: interview.SpeakerAI, Text: "What is a mutex?"},
	}

	if err := store.SaveSession(ctx, sess); err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}

	got, err := store.LoadSession(ctx, "sess-1")
	if err != nil {
		t.Fatalf("LoadSession failed: %v", err)
	}
	if got.Status != interview.StatusInProgress {
		t.Fatalf("expected in-progress, got %q", got.Status)
	}
	if got.StartedAt == nil || !got.StartedAt.Equal(started) {
		t.Fatalf("startedAt mismatch: %v", got.StartedAt)
	}
	if got.QuestionCount != 1 {
		t.Fatalf("expected questionCount 1, got %d", got.QuestionCount)
	}
	if len(got.Transcript) != 1 || got.Transcript[0].Text != "What is a mutex?" {
		t.Fatalf("transcript mismatch: %+v", got.Transcript)
	}
}

func TestSaveSessionAppendsTurnsOnce(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	sess := testSession("sess-1", "owner-1")
	if err := store.CreateSession(ctx, sess); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	sess.Status = interview.StatusInProgress
	sess.Transcript = []interview.Turn{
		{Speaker: interview.SpeakerAI, Text: "Question one"},
		{Speaker: interview.SpeakerUser, Text: "Answer one"},
	}

	// Saving the same transcript twice must not duplicate or rewrite
	// turn rows.
	if err := store.SaveSession(ctx, sess); err != nil {
		t.Fatalf("first SaveSession failed: %v", err)
	}
	if err := store.SaveSession(ctx, sess); err != nil {
		t.Fatalf("second SaveSession failed: %v", err)
	}

	got, err := store.LoadSession(ctx, "sess-1")
	if err != nil {
		t.Fatalf("LoadSession failed: %v", err)
	}
	if len(got.Transcript) != 2 {
		t.Fatalf("expected 2 turns after double save, got %d", len(got.Transcript))
	}
	if got.Transcript[0].Text != "Question one" || got.Transcript[1].Text != "Answer one" {
		t.Fatalf("turn order corrupted: %+v", got.Transcript)
	}
}

func TestSaveSessionCompletingLock(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	sess := testSession("sess-1", "owner-1")
	if err := store.CreateSession(ctx, sess); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	locked := time.Now().UTC().Truncate(time.Millisecond)
	sess.Status = interview.StatusCompleting
	sess.CompletingAt = &locked
	if err := store.SaveSession(ctx, sess); err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}

	got, err := store.LoadSession(ctx, "sess-1")
	if err != nil {
		t.Fatalf("LoadSession failed: %v", err)
	}
	if got.Status != interview.StatusCompleting {
		t.Fatalf("expected completing, got %q", got.Status)
	}
	if got.CompletingAt == nil || !got.CompletingAt.Equal(locked) {
		t.Fatalf("completingAt mismatch: %v", got.CompletingAt)
	}
}

func TestSaveSessionSummary(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	sess := testSession("sess-1", "owner-1")
	if err := store.CreateSession(ctx, sess); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	ended := time.Now().UTC().Truncate(time.Millisecond)
	sess.Status = interview.StatusCompleted
	sess.EndedAt = &ended
	sess.Summary = &interview.Summary{
		Strengths:       []string{"clarity"},
		Weaknesses:      []string{"depth"},
		Improvements:    []string{"practice"},
		TopicsToWorkOn:  []string{"concurrency"},
		OverallFeedback: "Good effort.",
	}

	if err := store.SaveSession(ctx, sess); err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}

	got, err := store.LoadSession(ctx, "sess-1")
	if err != nil {
		t.Fatalf("LoadSession failed: %v", err)
	}
	if got.Summary == nil {
		t.Fatal("expected summary after save")
	}
	if got.Summary.OverallFeedback != "Good effort." {
		t.Fatalf("summary mismatch: %+v", got.Summary)
	}
	if got.EndedAt == nil || !got.EndedAt.Equal(ended) {
		t.Fatalf("endedAt mismatch: %v", got.EndedAt)
	}
}

func TestListCompleted(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	summary := &interview.Summary{
		Strengths:       []string{},
		Weaknesses:      []string{},
		Improvements:    []string{},
		TopicsToWorkOn:  []string{},
		OverallFeedback: "done",
	}

	// Two completed sessions for owner-1, created a second apart so the
	// newest-first ordering is deterministic.
	older := testSession("sess-old", "owner-1")
	older.CreatedAt = time.Now().UTC().Add(-time.Hour)
	newer := testSession("sess-new", "owner-1")

	for _, sess := range []*interview.Session{older, newer} {
		if err := store.CreateSession(ctx, sess); err != nil {
			t.Fatalf("CreateSession failed: %v", err)
		}
		sess.Status = interview.StatusCompleted
		sess.Summary = summary
		if err := store.SaveSession(ctx, sess); err != nil {
			t.Fatalf("SaveSession failed: %v", err)
		}
	}

	// In-progress session and another owner's session must be excluded.
	running := testSession("sess-running", "owner-1")
	if err := store.CreateSession(ctx, running); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	foreign := testSession("sess-foreign", "owner-2")
	if err := store.CreateSession(ctx, foreign); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	foreign.Status = interview.StatusCompleted
	foreign.Summary = summary
	if err := store.SaveSession(ctx, foreign); err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}

	got, err := store.ListCompleted(ctx, "owner-1")
	if err != nil {
		t.Fatalf("ListCompleted failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(got))
	}
	if got[0].ID != "sess-new" || got[1].ID != "sess-old" {
		t.Fatalf("expected newest first, got %q then %q", got[0].ID, got[1].ID)
	}
}
