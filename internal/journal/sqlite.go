// Package journal keeps completed interviews in a local SQLite database.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"interviewcoach/internal/domain"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned by Get for unknown session ids.
var ErrNotFound = errors.New("session not found in journal")

// Store is a SQLite-backed ports.Journal.
type Store struct {
	db *sql.DB
}

// Summary is one row of the local history listing.
type Summary struct {
	ID           string
	CreatedAt    time.Time
	Role         string
	PersonaID    string
	OverallScore float64
	Turns        int
}

func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create journal dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.ensureSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS sessions (
  id TEXT PRIMARY KEY,
  created_at TEXT NOT NULL,
  candidate_name TEXT NOT NULL,
  role TEXT NOT NULL,
  experience TEXT NOT NULL,
  persona TEXT NOT NULL,
  language TEXT NOT NULL,
  overall_score REAL NOT NULL,
  detailed_feedback TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS turns (
  session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
  turn_no INTEGER NOT NULL,
  question TEXT NOT NULL,
  answer TEXT,
  feedback TEXT NOT NULL,
  skipped INTEGER NOT NULL,
  PRIMARY KEY (session_id, turn_no)
);
`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create journal tables: %w", err)
	}
	return nil
}

// Record stores a completed session, replacing an earlier copy.
func (s *Store) Record(ctx context.Context, record domain.SessionRecord) error {
	if record.ID == "" {
		return errors.New("journal record needs a session id")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin journal tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const upsert = `
INSERT INTO sessions (id, created_at, candidate_name, role, experience, persona, language, overall_score, detailed_feedback)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
  created_at=excluded.created_at,
  candidate_name=excluded.candidate_name,
  role=excluded.role,
  experience=excluded.experience,
  persona=excluded.persona,
  language=excluded.language,
  overall_score=excluded.overall_score,
  detailed_feedback=excluded.detailed_feedback;
`
	if _, err := tx.ExecContext(ctx, upsert,
		record.ID,
		record.CreatedAt.UTC().Format(time.RFC3339),
		record.Profile.Name,
		record.Profile.Role,
		record.Profile.Experience,
		record.PersonaID,
		record.Language,
		record.Feedback.OverallScore,
		record.Feedback.DetailedFeedback,
	); err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM turns WHERE session_id = ?`, record.ID); err != nil {
		return fmt.Errorf("reset turns: %w", err)
	}
	for i, turn := range record.Turns {
		var answer sql.NullString
		if turn.Answer != nil {
			answer = sql.NullString{String: *turn.Answer, Valid: true}
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO turns (session_id, turn_no, question, answer, feedback, skipped) VALUES (?, ?, ?, ?, ?, ?)`,
			record.ID, i+1, turn.Question, answer, turn.Feedback, turn.Skipped,
		); err != nil {
			return fmt.Errorf("insert turn %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit journal tx: %w", err)
	}
	return nil
}

// List returns local sessions, newest first.
func (s *Store) List(ctx context.Context) ([]Summary, error) {
	const query = `
SELECT s.id, s.created_at, s.role, s.persona, s.overall_score, COUNT(t.turn_no)
FROM sessions s LEFT JOIN turns t ON t.session_id = s.id
GROUP BY s.id
ORDER BY s.created_at DESC, s.id;
`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var (
			item    Summary
			created string
		)
		if err := rows.Scan(&item.ID, &created, &item.Role, &item.PersonaID, &item.OverallScore, &item.Turns); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		item.CreatedAt, _ = time.Parse(time.RFC3339, created)
		out = append(out, item)
	}
	return out, rows.Err()
}

// Get loads one session with its turns.
func (s *Store) Get(ctx context.Context, id string) (domain.SessionRecord, error) {
	var (
		record  domain.SessionRecord
		created string
	)
	err := s.db.QueryRowContext(ctx, `
SELECT id, created_at, candidate_name, role, experience, persona, language, overall_score, detailed_feedback
FROM sessions WHERE id = ?`, id).Scan(
		&record.ID, &created,
		&record.Profile.Name, &record.Profile.Role, &record.Profile.Experience,
		&record.PersonaID, &record.Language,
		&record.Feedback.OverallScore, &record.Feedback.DetailedFeedback,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.SessionRecord{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return domain.SessionRecord{}, fmt.Errorf("load session: %w", err)
	}
	record.CreatedAt, _ = time.Parse(time.RFC3339, created)

	rows, err := s.db.QueryContext(ctx,
		`SELECT question, answer, feedback, skipped FROM turns WHERE session_id = ? ORDER BY turn_no`, id)
	if err != nil {
		return domain.SessionRecord{}, fmt.Errorf("load turns: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			turn   domain.Turn
			answer sql.NullString
		)
		if err := rows.Scan(&turn.Question, &answer, &turn.Feedback, &turn.Skipped); err != nil {
			return domain.SessionRecord{}, fmt.Errorf("scan turn: %w", err)
		}
		if answer.Valid {
			text := answer.String
			turn.Answer = &text
		}
		record.Turns = append(record.Turns, turn)
	}
	return record, rows.Err()
}
