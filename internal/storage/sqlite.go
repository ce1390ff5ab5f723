package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/prepvoice/prepvoice/internal/interview"
)

// SQLiteStore persists interview sessions. The session row holds the
// immutable profile plus mutable lifecycle fields; transcript turns live
// in their own append-only table keyed by (session_id, position), so a
// retried save of the same logical step inserts nothing new.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if strings.TrimSpace(dbPath) == "" {
		dbPath = filepath.Join("data", "prepvoice.db")
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &SQLiteStore{db: db}
	if err := store.init(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) init() error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := s.db.Exec(p); err != nil {
			return fmt.Errorf("apply pragma %q: %w", p, err)
		}
	}

	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			owner_id TEXT NOT NULL,
			company TEXT NOT NULL,
			role TEXT NOT NULL,
			experience TEXT NOT NULL,
			interview_type TEXT NOT NULL,
			focus_area TEXT NOT NULL DEFAULT '',
			question_limit INTEGER NOT NULL,
			status TEXT NOT NULL,
			question_count INTEGER NOT NULL DEFAULT 0,
			summary TEXT,
			created_at TEXT NOT NULL,
			started_at TEXT,
			completing_at TEXT,
			ended_at TEXT
		);
	`); err != nil {
		return fmt.Errorf("create sessions table: %w", err)
	}

	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS turns (
			session_id TEXT NOT NULL,
			position INTEGER NOT NULL,
			speaker TEXT NOT NULL,
			text TEXT NOT NULL,
			PRIMARY KEY (session_id, position),
			FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
		);
	`); err != nil {
		return fmt.Errorf("create turns table: %w", err)
	}

	if _, err := s.db.Exec("CREATE INDEX IF NOT EXISTS idx_sessions_owner ON sessions(owner_id, status, created_at)"); err != nil {
		return fmt.Errorf("create sessions index: %w", err)
	}

	return nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB exposes the underlying handle for backups.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

func (s *SQLiteStore) CreateSession(ctx context.Context, sess *interview.Session) error {
	if strings.TrimSpace(sess.ID) == "" {
		return errors.New("session id is required")
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions(id, owner_id, company, role, experience, interview_type,
			focus_area, question_limit, status, question_count, created_at)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sess.ID,
		sess.OwnerID,
		sess.Profile.Company,
		sess.Profile.Role,
		sess.Profile.Experience,
		sess.Profile.InterviewType,
		sess.Profile.FocusArea,
		sess.Profile.QuestionLimit,
		string(sess.Status),
		sess.QuestionCount,
		sess.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("create session %s: %w", sess.ID, err)
	}
	return nil
}

func (s *SQLiteStore) LoadSession(ctx context.Context, id string) (*interview.Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, owner_id, company, role, experience, interview_type, focus_area,
			question_limit, status, question_count, summary, created_at, started_at, completing_at, ended_at
		 FROM sessions WHERE id = ?`,
		id,
	)

	sess, err := scanSession(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, interview.ErrNotFound
		}
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}

	turns, err := s.loadTurns(ctx, id)
	if err != nil {
		return nil, err
	}
	sess.Transcript = turns

	return sess, nil
}

// SaveSession writes the mutable session fields and appends any turns
// not yet stored. Existing turn rows are never rewritten.
func (s *SQLiteStore) SaveSession(ctx context.Context, sess *interview.Session) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save session %s: %w", sess.ID, err)
	}
	defer func() { _ = tx.Rollback() }()

	var summaryJSON sql.NullString
	if sess.Summary != nil {
		data, err := json.Marshal(sess.Summary)
		if err != nil {
			return fmt.Errorf("marshal summary for session %s: %w", sess.ID, err)
		}
		summaryJSON = sql.NullString{String: string(data), Valid: true}
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE sessions
		 SET status = ?, question_count = ?, summary = ?, started_at = ?, completing_at = ?, ended_at = ?
		 WHERE id = ?`,
		string(sess.Status),
		sess.QuestionCount,
		summaryJSON,
		nullTime(sess.StartedAt),
		nullTime(sess.CompletingAt),
		nullTime(sess.EndedAt),
		sess.ID,
	)
	if err != nil {
		return fmt.Errorf("save session %s: %w", sess.ID, err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("save session rows affected: %w", err)
	}
	if rows == 0 {
		return interview.ErrNotFound
	}

	for i, turn := range sess.Transcript {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO turns(session_id, position, speaker, text) VALUES(?, ?, ?, ?)`,
			sess.ID, i, string(turn.Speaker), turn.Text,
		); err != nil {
			return fmt.Errorf("append turn %d for session %s: %w", i, sess.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save session %s: %w", sess.ID, err)
	}
	return nil
}

// ListCompleted returns the owner's completed sessions that carry a
// summary, newest first.
func (s *SQLiteStore) ListCompleted(ctx context.Context, ownerID string) ([]*interview.Session, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, owner_id, company, role, experience, interview_type, focus_area,
			question_limit, status, question_count, summary, created_at, started_at, completing_at, ended_at
		 FROM sessions
		 WHERE owner_id = ? AND status = ? AND summary IS NOT NULL
		 ORDER BY created_at DESC`,
		ownerID,
		string(interview.StatusCompleted),
	)
	if err != nil {
		return nil, fmt.Errorf("list completed sessions for %s: %w", ownerID, err)
	}
	defer func() { _ = rows.Close() }()

	sessions := make([]*interview.Session, 0, 16)
	for rows.Next() {
		sess, err := scanSession(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate session rows: %w", err)
	}

	return sessions, nil
}

func (s *SQLiteStore) loadTurns(ctx context.Context, sessionID string) ([]interview.Turn, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT speaker, text FROM turns WHERE session_id = ? ORDER BY position ASC`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("query turns for session %s: %w", sessionID, err)
	}
	defer func() { _ = rows.Close() }()

	turns := make([]interview.Turn, 0, 8)
	for rows.Next() {
		var speaker, text string
		if err := rows.Scan(&speaker, &text); err != nil {
			return nil, fmt.Errorf("scan turn for session %s: %w", sessionID, err)
		}
		turns = append(turns, interview.Turn{Speaker: interview.Speaker(speaker), Text: text})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate turn rows for session %s: %w", sessionID, err)
	}

	return turns, nil
}

func scanSession(scan func(dest ...any) error) (*interview.Session, error) {
	var sess interview.Session
	var status, createdAt string
	var summaryJSON, startedAt, completingAt, endedAt sql.NullString

	if err := scan(
		&sess.ID, &sess.OwnerID,
		&sess.Profile.Company, &sess.Profile.Role, &sess.Profile.Experience,
		&sess.Profile.InterviewType, &sess.Profile.FocusArea, &sess.Profile.QuestionLimit,
		&status, &sess.QuestionCount, &summaryJSON, &createdAt, &startedAt, &completingAt, &endedAt,
	); err != nil {
		return nil, err
	}

	sess.Status = interview.Status(status)

	parsedCreated, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	sess.CreatedAt = parsedCreated

	if startedAt.Valid {
		t, err := time.Parse(time.RFC3339Nano, startedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parse started_at: %w", err)
		}
		sess.StartedAt = &t
	}
	if completingAt.Valid {
		t, err := time.Parse(time.RFC3339Nano, completingAt.String)
		if err != nil {
			return nil, fmt.Errorf("parse completing_at: %w", err)
		}
		sess.CompletingAt = &t
	}
	if endedAt.Valid {
		t, err := time.Parse(time.RFC3339Nano, endedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parse ended_at: %w", err)
		}
		sess.EndedAt = &t
	}

	if summaryJSON.Valid {
		var summary interview.Summary
		if err := json.Unmarshal([]byte(summaryJSON.String), &summary); err != nil {
			return nil, fmt.Errorf("unmarshal summary: %w", err)
		}
		sess.Summary = &summary
	}

	return &sess, nil
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}
