// Package store keeps saved phrases and a synthesis audit trail in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/loqalabs/loqa-diphone/internal/config"
	_ "modernc.org/sqlite"
)

var (
	ErrNotFound     = errors.New("phrase not found")
	ErrEmptyContent = errors.New("phrase content must not be empty")
)

// Phrase is a saved piece of text that can be synthesized on demand.
type Phrase struct {
	ID        int64     `json:"id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Event records the outcome of one synthesis request.
type Event struct {
	ID         int64     `json:"id"`
	RequestID  string    `json:"request_id"`
	PhraseID   int64     `json:"phrase_id,omitempty"`
	Text       string    `json:"text"`
	Outcome    string    `json:"outcome"`
	Stage      string    `json:"stage"`
	Error      string    `json:"error,omitempty"`
	Diphones   int       `json:"diphones"`
	Missing    int       `json:"missing_units"`
	DurationMS int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

const (
	OutcomeOK     = "ok"
	OutcomeFailed = "failed"
)

// Store wraps the SQLite database. In ephemeral mode it lives in memory and
// no events are recorded.
type Store struct {
	db    *sql.DB
	cfg   config.StoreConfig
	log   *slog.Logger
	clock func() time.Time
}

// Open initializes the store according to config.
func Open(ctx context.Context, cfg config.StoreConfig, log *slog.Logger) (*Store, error) {
	var dsn string
	if cfg.RetentionMode == "ephemeral" {
		dsn = "file::memory:?_pragma=foreign_keys(ON)"
	} else {
		dir := filepath.Dir(cfg.Path)
		if dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create data dir: %w", err)
			}
		}
		dsn = fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)", cfg.Path)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if cfg.RetentionMode == "ephemeral" {
		// Every connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	s := &Store{db: db, cfg: cfg, log: log.With(slog.String("component", "store")), clock: time.Now}

	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	if cfg.RetentionMode == "session" {
		if _, err := db.ExecContext(ctx, `DELETE FROM synthesis_events`); err != nil {
			s.log.Warn("clearing previous session events failed", slog.String("error", err.Error()))
		}
	}

	if cfg.VacuumOnStart && cfg.RetentionMode != "ephemeral" {
		if _, err := db.ExecContext(ctx, "VACUUM"); err != nil {
			s.log.Warn("store vacuum failed", slog.String("error", err.Error()))
		}
	}

	if err := s.Prune(ctx); err != nil {
		s.log.Warn("store prune on start failed", slog.String("error", err.Error()))
	}

	return s, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	ddl := `
CREATE TABLE IF NOT EXISTS phrases (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    content TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS synthesis_events (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    request_id TEXT NOT NULL,
    phrase_id INTEGER REFERENCES phrases(id) ON DELETE SET NULL,
    text TEXT NOT NULL,
    outcome TEXT NOT NULL,
    stage TEXT NOT NULL,
    error TEXT,
    diphones INTEGER NOT NULL DEFAULT 0,
    missing_units INTEGER NOT NULL DEFAULT 0,
    duration_ms INTEGER NOT NULL DEFAULT 0,
    created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_events_created ON synthesis_events(created_at);
CREATE INDEX IF NOT EXISTS idx_events_phrase ON synthesis_events(phrase_id, created_at);
`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

// Close releases underlying resources.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// CreatePhrase saves content and returns the stored row.
func (s *Store) CreatePhrase(ctx context.Context, content string) (Phrase, error) {
	if strings.TrimSpace(content) == "" {
		return Phrase{}, ErrEmptyContent
	}
	now := s.clock().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO phrases(content, created_at, updated_at) VALUES(?, ?, ?)`,
		content, now.UnixNano(), now.UnixNano())
	if err != nil {
		return Phrase{}, fmt.Errorf("insert phrase: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Phrase{}, err
	}
	return Phrase{ID: id, Content: content, CreatedAt: now, UpdatedAt: now}, nil
}

// GetPhrase returns the phrase with id or ErrNotFound.
func (s *Store) GetPhrase(ctx context.Context, id int64) (Phrase, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, content, created_at, updated_at FROM phrases WHERE id = ?`, id)
	p, err := scanPhrase(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Phrase{}, ErrNotFound
	}
	return p, err
}

// ListPhrases returns up to limit phrases, newest first.
func (s *Store) ListPhrases(ctx context.Context, limit, offset int) ([]Phrase, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, content, created_at, updated_at FROM phrases
		 ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`, limit, max(offset, 0))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	phrases := []Phrase{}
	for rows.Next() {
		p, err := scanPhrase(rows)
		if err != nil {
			return nil, err
		}
		phrases = append(phrases, p)
	}
	return phrases, rows.Err()
}

// UpdatePhrase replaces the content of an existing phrase.
func (s *Store) UpdatePhrase(ctx context.Context, id int64, content string) (Phrase, error) {
	if strings.TrimSpace(content) == "" {
		return Phrase{}, ErrEmptyContent
	}
	now := s.clock().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE phrases SET content = ?, updated_at = ? WHERE id = ?`, content, now.UnixNano(), id)
	if err != nil {
		return Phrase{}, fmt.Errorf("update phrase: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return Phrase{}, ErrNotFound
	}
	return s.GetPhrase(ctx, id)
}

// DeletePhrase removes a phrase. Its events are kept with the link cleared.
func (s *Store) DeletePhrase(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM phrases WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete phrase: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// AppendEvent records a synthesis outcome.
func (s *Store) AppendEvent(ctx context.Context, evt Event) error {
	if s.cfg.RetentionMode == "ephemeral" {
		return nil
	}
	if evt.CreatedAt.IsZero() {
		evt.CreatedAt = s.clock().UTC()
	}
	var phraseID sql.NullInt64
	if evt.PhraseID > 0 {
		phraseID = sql.NullInt64{Int64: evt.PhraseID, Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO synthesis_events(request_id, phrase_id, text, outcome, stage, error, diphones, missing_units, duration_ms, created_at)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		evt.RequestID, phraseID, evt.Text, evt.Outcome, evt.Stage, evt.Error,
		evt.Diphones, evt.Missing, evt.DurationMS, evt.CreatedAt.UnixNano())
	return err
}

// ListEvents returns up to limit of the most recent events, newest first.
func (s *Store) ListEvents(ctx context.Context, limit int) ([]Event, error) {
	return s.queryEvents(ctx, `SELECT `+eventColumns+` FROM synthesis_events
		 ORDER BY created_at DESC, id DESC LIMIT ?`, normalizeLimit(limit))
}

// ListPhraseEvents returns up to limit events for a phrase ordered ascending by time.
func (s *Store) ListPhraseEvents(ctx context.Context, phraseID int64, limit int) ([]Event, error) {
	return s.queryEvents(ctx, `SELECT `+eventColumns+` FROM synthesis_events
		 WHERE phrase_id = ? ORDER BY created_at ASC, id ASC LIMIT ?`, phraseID, normalizeLimit(limit))
}

const eventColumns = `id, request_id, phrase_id, text, outcome, stage, error, diphones, missing_units, duration_ms, created_at`

func (s *Store) queryEvents(ctx context.Context, query string, args ...any) ([]Event, error) {
	if s.cfg.RetentionMode == "ephemeral" {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			e        Event
			phraseID sql.NullInt64
			errText  sql.NullString
			created  int64
		)
		if err := rows.Scan(&e.ID, &e.RequestID, &phraseID, &e.Text, &e.Outcome, &e.Stage, &errText,
			&e.Diphones, &e.Missing, &e.DurationMS, &created); err != nil {
			return nil, err
		}
		e.PhraseID = phraseID.Int64
		e.Error = errText.String
		e.CreatedAt = time.Unix(0, created).UTC()
		events = append(events, e)
	}
	return events, rows.Err()
}

// Prune applies configured event retention (called on startup and can be scheduled).
// Phrases are never pruned.
func (s *Store) Prune(ctx context.Context) (err error) {
	if s.cfg.RetentionMode == "ephemeral" {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if s.cfg.RetentionDays > 0 {
		cutoff := s.clock().Add(-time.Duration(s.cfg.RetentionDays) * 24 * time.Hour)
		if _, err = tx.ExecContext(ctx, `DELETE FROM synthesis_events WHERE created_at < ?`, cutoff.UnixNano()); err != nil {
			return err
		}
	}
	if s.cfg.MaxEvents > 0 {
		_, err = tx.ExecContext(ctx, `DELETE FROM synthesis_events WHERE id IN (
			SELECT id FROM synthesis_events ORDER BY created_at DESC, id DESC LIMIT -1 OFFSET ?
		)`, s.cfg.MaxEvents)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPhrase(row scanner) (Phrase, error) {
	var (
		p                Phrase
		created, updated int64
	)
	if err := row.Scan(&p.ID, &p.Content, &created, &updated); err != nil {
		return Phrase{}, err
	}
	p.CreatedAt = time.Unix(0, created).UTC()
	p.UpdatedAt = time.Unix(0, updated).UTC()
	return p, nil
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return 100
	}
	return limit
}
