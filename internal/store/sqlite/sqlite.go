// Package sqlite persists course progress, attempts, drafts, chat history
// and revision missions in a single SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"coursecoach/internal/domain"
	"coursecoach/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS progress (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	current_unit_id TEXT NOT NULL,
	unlocked_units TEXT NOT NULL,
	attempts TEXT NOT NULL,
	best_score_by_unit TEXT NOT NULL,
	last_opened_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS attempts (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	unit_id TEXT NOT NULL,
	draft TEXT NOT NULL,
	overall_score INTEGER NOT NULL,
	feedback_json TEXT NOT NULL,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS drafts (
	unit_id TEXT PRIMARY KEY,
	draft TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS chat_turns (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	unit_id TEXT NOT NULL,
	question TEXT NOT NULL,
	answer TEXT NOT NULL,
	created_at TEXT NOT NULL,
	citations TEXT
);

CREATE TABLE IF NOT EXISTS revision_missions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	unit_id TEXT NOT NULL,
	attempt_id INTEGER NOT NULL,
	focus_dimension TEXT NOT NULL,
	title TEXT NOT NULL,
	instructions TEXT NOT NULL,
	checklist_json TEXT NOT NULL,
	status TEXT NOT NULL,
	created_at TEXT NOT NULL,
	completed_at TEXT
);

CREATE INDEX IF NOT EXISTS idx_attempts_unit ON attempts(unit_id);
CREATE INDEX IF NOT EXISTS idx_chat_turns_unit ON chat_turns(unit_id);
CREATE INDEX IF NOT EXISTS idx_missions_unit_status ON revision_missions(unit_id, status);
`

const timeLayout = time.RFC3339Nano

// Store is the SQLite implementation of domain.Store and domain.ProgressStore.
type Store struct {
	db    *sql.DB
	locks store.KeyedMutex
	now   func() time.Time
}

var (
	_ domain.Store         = (*Store)(nil)
	_ domain.ProgressStore = (*Store)(nil)
)

// Open opens (creating if needed) the database at path and applies the schema.
// ":memory:" gives a private in-memory database.
func Open(ctx context.Context, path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) exec(ctx context.Context, b sq.Sqlizer) (sql.Result, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}
	return s.db.ExecContext(ctx, query, args...)
}

func (s *Store) query(ctx context.Context, b sq.Sqlizer) (*sql.Rows, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}
	return s.db.QueryContext(ctx, query, args...)
}

func (s *Store) queryRow(ctx context.Context, b sq.Sqlizer) (*sql.Row, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}
	return s.db.QueryRowContext(ctx, query, args...), nil
}

func withLimit(b sq.SelectBuilder, limit int) sq.SelectBuilder {
	if limit > 0 {
		return b.Limit(uint64(limit))
	}
	return b
}

func parseTime(v string) time.Time {
	t, err := time.Parse(timeLayout, v)
	if err != nil {
		return time.Time{}
	}
	return t
}

// LoadProgress returns the stored progress reconciled against unitIDs,
// creating the starting record on first use. Opening it stamps LastOpenedAt.
func (s *Store) LoadProgress(ctx context.Context, unitIDs []string) (domain.Progress, error) {
	unlock := s.locks.Lock("progress")
	defer unlock()

	row, err := s.queryRow(ctx, sq.Select("current_unit_id", "unlocked_units", "attempts", "best_score_by_unit").
		From("progress").Where(sq.Eq{"id": 1}))
	if err != nil {
		return domain.Progress{}, err
	}
	var current, unlocked, attempts, best string
	err = row.Scan(&current, &unlocked, &attempts, &best)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		p := domain.NewProgress(unitIDs, s.now())
		return p, s.saveProgress(ctx, p)
	case err != nil:
		return domain.Progress{}, fmt.Errorf("load progress: %w", err)
	}

	p := domain.Progress{CurrentUnitID: current}
	for _, f := range []struct {
		raw string
		dst any
	}{{unlocked, &p.UnlockedUnits}, {attempts, &p.Attempts}, {best, &p.BestScoreByUnit}} {
		if err := json.Unmarshal([]byte(f.raw), f.dst); err != nil {
			return domain.Progress{}, fmt.Errorf("decode progress: %w", err)
		}
	}
	p.Reconcile(unitIDs)
	p.LastOpenedAt = s.now()
	return p, s.saveProgress(ctx, p)
}

// SaveProgress replaces the progress record.
func (s *Store) SaveProgress(ctx context.Context, p domain.Progress) error {
	unlock := s.locks.Lock("progress")
	defer unlock()
	return s.saveProgress(ctx, p)
}

func (s *Store) saveProgress(ctx context.Context, p domain.Progress) error {
	unlocked, err := json.Marshal(p.UnlockedUnits)
	if err != nil {
		return err
	}
	attempts, err := json.Marshal(p.Attempts)
	if err != nil {
		return err
	}
	best, err := json.Marshal(p.BestScoreByUnit)
	if err != nil {
		return err
	}
	_, err = s.exec(ctx, sq.Insert("progress").
		Columns("id", "current_unit_id", "unlocked_units", "attempts", "best_score_by_unit", "last_opened_at").
		Values(1, p.CurrentUnitID, string(unlocked), string(attempts), string(best), p.LastOpenedAt.Format(timeLayout)).
		Suffix(`ON CONFLICT(id) DO UPDATE SET
			current_unit_id = excluded.current_unit_id,
			unlocked_units = excluded.unlocked_units,
			attempts = excluded.attempts,
			best_score_by_unit = excluded.best_score_by_unit,
			last_opened_at = excluded.last_opened_at`))
	if err != nil {
		return fmt.Errorf("save progress: %w", err)
	}
	return nil
}

// SaveDraft stores the working draft for a unit.
func (s *Store) SaveDraft(ctx context.Context, unitID, draft string) error {
	unlock := s.locks.Lock("draft:" + unitID)
	defer unlock()

	_, err := s.exec(ctx, sq.Insert("drafts").
		Columns("unit_id", "draft", "updated_at").
		Values(unitID, draft, s.now().Format(timeLayout)).
		Suffix("ON CONFLICT(unit_id) DO UPDATE SET draft = excluded.draft, updated_at = excluded.updated_at"))
	if err != nil {
		return fmt.Errorf("save draft: %w", err)
	}
	return nil
}

// Draft returns the working draft for a unit, or "" if none was saved.
func (s *Store) Draft(ctx context.Context, unitID string) (string, error) {
	row, err := s.queryRow(ctx, sq.Select("draft").From("drafts").Where(sq.Eq{"unit_id": unitID}))
	if err != nil {
		return "", err
	}
	var draft string
	if err := row.Scan(&draft); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("load draft: %w", err)
	}
	return draft, nil
}
