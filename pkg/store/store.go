// Package store persists chat sessions to a local SQLite database.
//
// All mutating operations are reducer-shaped: they take the smallest
// useful input, update the database, and are serialized by a single
// mutex so concurrent callers always observe one consistent view.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
	_ "modernc.org/sqlite"

	"github.com/davipietrooliveira04-del/Gemini-pulse/pkg/core/types"
)

var (
	// ErrSessionNotFound is returned when no session has the given ID.
	ErrSessionNotFound = errors.New("session not found")

	// ErrNoTrailingMessage is returned by delta reducers when the
	// session has no message to extend.
	ErrNoTrailingMessage = errors.New("session has no trailing message")

	// ErrNotModelMessage is returned when a delta reducer targets a
	// trailing message that is not a model message.
	ErrNotModelMessage = errors.New("trailing message is not a model message")
)

const titleMaxRunes = 48

// Session is one persisted conversation.
type Session struct {
	ID        string          `json:"id"`
	Title     string          `json:"title"`
	Model     string          `json:"model"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	Messages  []types.Message `json:"messages,omitempty"`
}

// Store is a SQLite-backed session store.
type Store struct {
	mu sync.Mutex
	db *sql.DB
}

// Open opens (or creates) the database at path and initializes the
// schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id         TEXT PRIMARY KEY,
		title      TEXT NOT NULL DEFAULT '',
		model      TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);
	CREATE TABLE IF NOT EXISTS messages (
		id          TEXT NOT NULL,
		session_id  TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		position    INTEGER NOT NULL,
		role        TEXT NOT NULL,
		content     TEXT NOT NULL,
		stop_reason TEXT NOT NULL DEFAULT '',
		failed      INTEGER NOT NULL DEFAULT 0,
		usage       TEXT,
		created_at  TIMESTAMP NOT NULL,
		PRIMARY KEY (session_id, id)
	);
	CREATE INDEX IF NOT EXISTS idx_messages_session_position
		ON messages(session_id, position);`

	if _, err := s.db.Exec(schema); err != nil {
		return err
	}
	_, err := s.db.Exec("PRAGMA foreign_keys = ON")
	return err
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Create adds a new empty session for the given model and returns it.
func (s *Store) Create(model string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	session := &Session{
		ID:        uuid.NewString(),
		Model:     model,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err := s.db.Exec(
		`INSERT INTO sessions (id, title, model, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		session.ID, session.Title, session.Model, session.CreatedAt, session.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return session, nil
}

// List returns all sessions newest-updated first, without messages.
func (s *Store) List() ([]Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(
		`SELECT id, title, model, created_at, updated_at FROM sessions ORDER BY updated_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var sess Session
		if err := rows.Scan(&sess.ID, &sess.Title, &sess.Model, &sess.CreatedAt, &sess.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

// Get returns a session with its full message history.
func (s *Store) Get(id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getLocked(id)
}

func (s *Store) getLocked(id string) (*Session, error) {
	var sess Session
	err := s.db.QueryRow(
		`SELECT id, title, model, created_at, updated_at FROM sessions WHERE id = ?`, id,
	).Scan(&sess.ID, &sess.Title, &sess.Model, &sess.CreatedAt, &sess.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	rows, err := s.db.Query(
		`SELECT id, role, content, stop_reason, failed, usage, created_at
		 FROM messages WHERE session_id = ? ORDER BY position ASC`, id,
	)
	if err != nil {
		return nil, fmt.Errorf("get messages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		sess.Messages = append(sess.Messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return &sess, nil
}

func scanMessage(rows *sql.Rows) (types.Message, error) {
	var (
		msg        types.Message
		contentRaw string
		failed     int
		usageRaw   sql.NullString
	)
	if err := rows.Scan(&msg.ID, &msg.Role, &contentRaw, &msg.StopReason, &failed, &usageRaw, &msg.CreatedAt); err != nil {
		return types.Message{}, fmt.Errorf("scan message: %w", err)
	}
	blocks, err := types.UnmarshalContentBlocks([]byte(contentRaw))
	if err != nil {
		return types.Message{}, fmt.Errorf("decode message content: %w", err)
	}
	msg.Content = blocks
	msg.Failed = failed != 0
	if usageRaw.Valid && usageRaw.String != "" {
		var usage types.Usage
		if err := json.Unmarshal([]byte(usageRaw.String), &usage); err != nil {
			return types.Message{}, fmt.Errorf("decode message usage: %w", err)
		}
		msg.Usage = &usage
	}
	return msg, nil
}

// Rename sets the session title.
func (s *Store) Rename(id, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(
		`UPDATE sessions SET title = ?, updated_at = ? WHERE id = ?`,
		truncateTitle(title), time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("rename session: %w", err)
	}
	return requireAffected(res, id)
}

// Delete removes a session and its messages.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec(`DELETE FROM messages WHERE session_id = ?`, id); err != nil {
		return fmt.Errorf("delete messages: %w", err)
	}
	res, err := s.db.Exec(`DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return requireAffected(res, id)
}

// Touch bumps the session's updated_at timestamp.
func (s *Store) Touch(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.touchLocked(id)
}

func (s *Store) touchLocked(id string) error {
	res, err := s.db.Exec(`UPDATE sessions SET updated_at = ? WHERE id = ?`, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	return requireAffected(res, id)
}

// AppendMessage appends a message to the session. A missing message ID
// and timestamp are filled in. The first user message of an untitled
// session becomes its title.
func (s *Store) AppendMessage(sessionID string, msg types.Message) (types.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var title string
	err := s.db.QueryRow(`SELECT title FROM sessions WHERE id = ?`, sessionID).Scan(&title)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Message{}, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	if err != nil {
		return types.Message{}, fmt.Errorf("look up session: %w", err)
	}

	if msg.ID == "" {
		id, err := gonanoid.New()
		if err != nil {
			return types.Message{}, fmt.Errorf("generate message id: %w", err)
		}
		msg.ID = id
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	if err := s.insertMessage(sessionID, msg); err != nil {
		return types.Message{}, err
	}

	if title == "" && msg.Role == types.RoleUser {
		if derived := truncateTitle(msg.TextContent()); derived != "" {
			if _, err := s.db.Exec(`UPDATE sessions SET title = ? WHERE id = ?`, derived, sessionID); err != nil {
				return types.Message{}, fmt.Errorf("set session title: %w", err)
			}
		}
	}
	if err := s.touchLocked(sessionID); err != nil {
		return types.Message{}, err
	}
	return msg, nil
}

func (s *Store) insertMessage(sessionID string, msg types.Message) error {
	content, err := types.MarshalContentBlocks(msg.Content)
	if err != nil {
		return fmt.Errorf("encode message content: %w", err)
	}
	usage, err := encodeUsage(msg.Usage)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		`INSERT INTO messages (id, session_id, position, role, content, stop_reason, failed, usage, created_at)
		 VALUES (?, ?, (SELECT COALESCE(MAX(position), -1) + 1 FROM messages WHERE session_id = ?), ?, ?, ?, ?, ?, ?)`,
		msg.ID, sessionID, sessionID, msg.Role, string(content), msg.StopReason, boolToInt(msg.Failed), usage, msg.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// AppendTextDelta extends the trailing text block of the session's
// newest message with an incremental text fragment. The trailing
// message must be a model message.
func (s *Store) AppendTextDelta(sessionID, delta string) error {
	if delta == "" {
		return nil
	}
	return s.mutateTrailing(sessionID, func(msg *types.Message) error {
		if n := len(msg.Content); n > 0 {
			if text, ok := msg.Content[n-1].(types.TextBlock); ok {
				text.Text += delta
				msg.Content[n-1] = text
				return nil
			}
		}
		msg.Content = append(msg.Content, types.Text(delta))
		return nil
	})
}

// AttachImage appends a generated image block to the session's newest
// message. The trailing message must be a model message.
func (s *Store) AttachImage(sessionID string, img types.ImageBlock) error {
	return s.mutateTrailing(sessionID, func(msg *types.Message) error {
		msg.Content = append(msg.Content, img)
		return nil
	})
}

// FinishTrailing records stop metadata on the session's newest message.
func (s *Store) FinishTrailing(sessionID string, stopReason types.StopReason, usage *types.Usage) error {
	return s.mutateTrailing(sessionID, func(msg *types.Message) error {
		msg.StopReason = stopReason
		if usage != nil {
			msg.Usage = usage
		}
		return nil
	})
}

// ReplaceLast overwrites the session's newest message, keeping its ID
// and position. Used to reconcile a placeholder into an error record.
func (s *Store) ReplaceLast(sessionID string, msg types.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	last, err := s.trailingLocked(sessionID)
	if err != nil {
		return err
	}
	msg.ID = last.ID
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = last.CreatedAt
	}
	if err := s.updateMessage(sessionID, msg); err != nil {
		return err
	}
	return s.touchLocked(sessionID)
}

func (s *Store) mutateTrailing(sessionID string, mutate func(*types.Message) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg, err := s.trailingLocked(sessionID)
	if err != nil {
		return err
	}
	if msg.Role != types.RoleModel {
		return ErrNotModelMessage
	}
	if err := mutate(&msg); err != nil {
		return err
	}
	if err := s.updateMessage(sessionID, msg); err != nil {
		return err
	}
	return s.touchLocked(sessionID)
}

func (s *Store) trailingLocked(sessionID string) (types.Message, error) {
	rows, err := s.db.Query(
		`SELECT id, role, content, stop_reason, failed, usage, created_at
		 FROM messages WHERE session_id = ? ORDER BY position DESC LIMIT 1`, sessionID,
	)
	if err != nil {
		return types.Message{}, fmt.Errorf("get trailing message: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return types.Message{}, fmt.Errorf("get trailing message: %w", err)
		}
		var exists int
		if err := s.db.QueryRow(`SELECT COUNT(*) FROM sessions WHERE id = ?`, sessionID).Scan(&exists); err != nil {
			return types.Message{}, fmt.Errorf("look up session: %w", err)
		}
		if exists == 0 {
			return types.Message{}, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
		}
		return types.Message{}, ErrNoTrailingMessage
	}
	return scanMessage(rows)
}

func (s *Store) updateMessage(sessionID string, msg types.Message) error {
	content, err := types.MarshalContentBlocks(msg.Content)
	if err != nil {
		return fmt.Errorf("encode message content: %w", err)
	}
	usage, err := encodeUsage(msg.Usage)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		`UPDATE messages SET role = ?, content = ?, stop_reason = ?, failed = ?, usage = ?, created_at = ?
		 WHERE session_id = ? AND id = ?`,
		msg.Role, string(content), msg.StopReason, boolToInt(msg.Failed), usage, msg.CreatedAt, sessionID, msg.ID,
	)
	if err != nil {
		return fmt.Errorf("update message: %w", err)
	}
	return nil
}

func encodeUsage(usage *types.Usage) (sql.NullString, error) {
	if usage == nil {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(usage)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("encode message usage: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func requireAffected(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// truncateTitle derives a single-line title capped at titleMaxRunes.
func truncateTitle(text string) string {
	text = strings.TrimSpace(text)
	if i := strings.IndexAny(text, "\r\n"); i >= 0 {
		text = strings.TrimSpace(text[:i])
	}
	if utf8.RuneCountInString(text) <= titleMaxRunes {
		return text
	}
	runes := []rune(text)
	return strings.TrimSpace(string(runes[:titleMaxRunes]))
}
