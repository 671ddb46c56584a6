// Package store persists conversation history and extracted code snippets
// in a SQLite archive.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Message is one archived conversation turn.
type Message struct {
	ID         string
	SessionKey string
	Role       string
	Content    string
	Topic      string
	CreatedAt  time.Time
}

// Snippet is one archived code extraction.
type Snippet struct {
	ID         string
	SessionKey string
	Category   string
	Confidence float64
	Code       string
	Path       string
	CreatedAt  time.Time
}

// Store is the persistent conversation archive.
type Store struct {
	db *sql.DB
}

// Open creates/opens the archive database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create archive dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// Single-process archive. One shared connection avoids writer lock
	// contention with SQLite under concurrent goroutines.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db}
	if err := s.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) init() error {
	stmts := []string{
		`PRAGMA journal_mode=WAL;`,
		`PRAGMA synchronous=NORMAL;`,
		`PRAGMA busy_timeout=5000;`,
		`CREATE TABLE IF NOT EXISTS sessions (
			session_key TEXT PRIMARY KEY,
			channel TEXT NOT NULL DEFAULT '',
			created_at_ms INTEGER NOT NULL,
			updated_at_ms INTEGER NOT NULL,
			message_count INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS messages (
			id TEXT PRIMARY KEY,
			session_key TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			topic TEXT NOT NULL DEFAULT '',
			created_at_ms INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS messages_session_idx ON messages(session_key, created_at_ms DESC);`,
		`CREATE TABLE IF NOT EXISTS code_snippets (
			id TEXT PRIMARY KEY,
			session_key TEXT NOT NULL,
			category TEXT NOT NULL DEFAULT 'general',
			confidence REAL NOT NULL DEFAULT 0,
			code TEXT NOT NULL,
			path TEXT NOT NULL DEFAULT '',
			created_at_ms INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS snippets_session_idx ON code_snippets(session_key, created_at_ms DESC);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("init archive schema: %w", err)
		}
	}
	return nil
}

func nowMS() int64 { return time.Now().UnixMilli() }

// EnsureSession registers the session, bumping updated_at if it exists.
func (s *Store) EnsureSession(ctx context.Context, sessionKey, channel string) error {
	if strings.TrimSpace(sessionKey) == "" {
		return fmt.Errorf("ensure session: empty session_key")
	}
	now := nowMS()
	_, err := s.db.ExecContext(ctx, `
INSERT INTO sessions(session_key, channel, created_at_ms, updated_at_ms, message_count)
VALUES(?, ?, ?, ?, 0)
ON CONFLICT(session_key) DO UPDATE SET
	channel = CASE WHEN excluded.channel <> '' THEN excluded.channel ELSE sessions.channel END,
	updated_at_ms = excluded.updated_at_ms`,
		sessionKey, channel, now, now)
	if err != nil {
		return fmt.Errorf("ensure session: %w", err)
	}
	return nil
}

// AppendMessage archives one turn and bumps the session counters.
func (s *Store) AppendMessage(ctx context.Context, msg Message) error {
	if strings.TrimSpace(msg.SessionKey) == "" {
		return fmt.Errorf("append message: empty session_key")
	}
	if strings.TrimSpace(msg.Role) == "" {
		return fmt.Errorf("append message: empty role")
	}
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	created := msg.CreatedAt.UnixMilli()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("append message begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
INSERT INTO sessions(session_key, channel, created_at_ms, updated_at_ms, message_count)
VALUES(?, '', ?, ?, 0)
ON CONFLICT(session_key) DO UPDATE SET updated_at_ms = excluded.updated_at_ms`,
		msg.SessionKey, created, created); err != nil {
		return fmt.Errorf("append message ensure session: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
INSERT INTO messages(id, session_key, role, content, topic, created_at_ms)
VALUES(?, ?, ?, ?, ?, ?)`,
		msg.ID, msg.SessionKey, msg.Role, msg.Content, msg.Topic, created); err != nil {
		return fmt.Errorf("append message insert: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
UPDATE sessions
SET updated_at_ms = ?, message_count = message_count + 1
WHERE session_key = ?`, created, msg.SessionKey); err != nil {
		return fmt.Errorf("append message update session: %w", err)
	}

	return tx.Commit()
}

// ListRecentMessages returns up to limit turns in chronological order.
func (s *Store) ListRecentMessages(ctx context.Context, sessionKey string, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT id, session_key, role, content, topic, created_at_ms
FROM messages
WHERE session_key = ?
ORDER BY created_at_ms DESC, id DESC
LIMIT ?`, sessionKey, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent messages: %w", err)
	}
	defer rows.Close()

	out := make([]Message, 0, limit)
	for rows.Next() {
		var m Message
		var createdMS int64
		if err := rows.Scan(&m.ID, &m.SessionKey, &m.Role, &m.Content, &m.Topic, &createdMS); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.CreatedAt = time.UnixMilli(createdMS)
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}

	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// SaveSnippet archives an extracted code snippet.
func (s *Store) SaveSnippet(ctx context.Context, sn Snippet) error {
	if strings.TrimSpace(sn.Code) == "" {
		return fmt.Errorf("save snippet: empty code")
	}
	if sn.ID == "" {
		sn.ID = uuid.NewString()
	}
	if sn.Category == "" {
		sn.Category = "general"
	}
	if sn.CreatedAt.IsZero() {
		sn.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO code_snippets(id, session_key, category, confidence, code, path, created_at_ms)
VALUES(?, ?, ?, ?, ?, ?, ?)`,
		sn.ID, sn.SessionKey, sn.Category, sn.Confidence, sn.Code, sn.Path, sn.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("save snippet: %w", err)
	}
	return nil
}

// ListSnippets returns the most recent snippets for a session, newest first.
func (s *Store) ListSnippets(ctx context.Context, sessionKey string, limit int) ([]Snippet, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT id, session_key, category, confidence, code, path, created_at_ms
FROM code_snippets
WHERE session_key = ?
ORDER BY created_at_ms DESC, id DESC
LIMIT ?`, sessionKey, limit)
	if err != nil {
		return nil, fmt.Errorf("list snippets: %w", err)
	}
	defer rows.Close()

	out := make([]Snippet, 0, limit)
	for rows.Next() {
		var sn Snippet
		var createdMS int64
		if err := rows.Scan(&sn.ID, &sn.SessionKey, &sn.Category, &sn.Confidence, &sn.Code, &sn.Path, &createdMS); err != nil {
			return nil, fmt.Errorf("scan snippet: %w", err)
		}
		sn.CreatedAt = time.UnixMilli(createdMS)
		out = append(out, sn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snippets: %w", err)
	}
	return out, nil
}

// MessageCount reports how many turns the session holds.
func (s *Store) MessageCount(ctx context.Context, sessionKey string) (int, error) {
	row := s.db.QueryRowContext(ctx, `SELECT message_count FROM sessions WHERE session_key = ?`, sessionKey)
	var count int
	if err := row.Scan(&count); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("message count: %w", err)
	}
	return count, nil
}

// PruneMessagesBefore deletes archived turns older than cutoff, returning the
// number removed. Maintenance uses this to cap archive growth.
func (s *Store) PruneMessagesBefore(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM messages WHERE created_at_ms < ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("prune messages: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
