package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ruchitha1109/MechanicAI-2/internal/model/chat"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements ConversationStore using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a SQLite-backed conversation store at dbPath.
func NewSQLite(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS sessions (
		user_id TEXT NOT NULL,
		session_id TEXT NOT NULL,
		title TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		PRIMARY KEY (user_id, session_id)
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_recency ON sessions(user_id, updated_at DESC);

	CREATE TABLE IF NOT EXISTS turns (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL,
		session_id TEXT NOT NULL,
		sender TEXT NOT NULL,
		message TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_turns_session ON turns(user_id, session_id, seq);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// CreateSession creates an empty session with the given title.
func (s *SQLiteStore) CreateSession(ctx context.Context, userID, sessionID, title string) (*chat.Session, error) {
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (user_id, session_id, title, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		userID, sessionID, title, now.UnixNano(), now.UnixNano(),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return nil, ErrDuplicateSession
		}
		return nil, fmt.Errorf("insert session: %w", err)
	}

	return &chat.Session{
		SessionID: sessionID,
		UserID:    userID,
		Title:     title,
		Turns:     []chat.Turn{},
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// AppendTurn appends one turn inside a transaction so the insert and the
// session's last-modified touch land together or not at all.
func (s *SQLiteStore) AppendTurn(ctx context.Context, userID, sessionID, sender, message string) (chat.Turn, error) {
	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return chat.Turn{}, fmt.Errorf("begin append: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE sessions SET updated_at = ? WHERE user_id = ? AND session_id = ?`,
		now.UnixNano(), userID, sessionID,
	)
	if err != nil {
		return chat.Turn{}, fmt.Errorf("touch session: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return chat.Turn{}, fmt.Errorf("touch session: %w", err)
	}
	if affected == 0 {
		return chat.Turn{}, ErrSessionNotFound
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO turns (user_id, session_id, sender, message, created_at) VALUES (?, ?, ?, ?, ?)`,
		userID, sessionID, sender, message, now.UnixNano(),
	)
	if err != nil {
		return chat.Turn{}, fmt.Errorf("insert turn: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return chat.Turn{}, fmt.Errorf("commit append: %w", err)
	}

	return chat.Turn{Sender: sender, Message: message, Timestamp: now}, nil
}

// SetTitle replaces the session title and touches last-modified.
func (s *SQLiteStore) SetTitle(ctx context.Context, userID, sessionID, title string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET title = ?, updated_at = ? WHERE user_id = ? AND session_id = ?`,
		title, time.Now().UTC().UnixNano(), userID, sessionID,
	)
	if err != nil {
		return fmt.Errorf("update title: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update title: %w", err)
	}
	if affected == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// GetSession loads a session with its full turn sequence.
func (s *SQLiteStore) GetSession(ctx context.Context, userID, sessionID string) (*chat.Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT title, created_at, updated_at FROM sessions WHERE user_id = ? AND session_id = ?`,
		userID, sessionID,
	)

	session := chat.Session{SessionID: sessionID, UserID: userID}
	var createdAt, updatedAt int64
	err := row.Scan(&session.Title, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan session row: %w", err)
	}
	session.CreatedAt = time.Unix(0, createdAt).UTC()
	session.UpdatedAt = time.Unix(0, updatedAt).UTC()

	rows, err := s.db.QueryContext(ctx,
		`SELECT sender, message, created_at FROM turns WHERE user_id = ? AND session_id = ? ORDER BY seq`,
		userID, sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("query turns: %w", err)
	}
	defer rows.Close()

	session.Turns = []chat.Turn{}
	for rows.Next() {
		var turn chat.Turn
		var ts int64
		if err := rows.Scan(&turn.Sender, &turn.Message, &ts); err != nil {
			return nil, fmt.Errorf("scan turn row: %w", err)
		}
		turn.Timestamp = time.Unix(0, ts).UTC()
		session.Turns = append(session.Turns, turn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate turns: %w", err)
	}

	return &session, nil
}

// ListSessions returns summaries ordered by descending last-modified time.
func (s *SQLiteStore) ListSessions(ctx context.Context, userID string, offset, limit int) ([]chat.SessionSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT session_id, title FROM sessions WHERE user_id = ? ORDER BY updated_at DESC, session_id LIMIT ? OFFSET ?`,
		userID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	summaries := []chat.SessionSummary{}
	for rows.Next() {
		var sum chat.SessionSummary
		if err := rows.Scan(&sum.SessionID, &sum.Title); err != nil {
			return nil, fmt.Errorf("scan session row: %w", err)
		}
		summaries = append(summaries, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}

	return summaries, nil
}

// DeleteSession removes a session and its turns. Idempotent.
func (s *SQLiteStore) DeleteSession(ctx context.Context, userID, sessionID string) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin delete: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`DELETE FROM sessions WHERE user_id = ? AND session_id = ?`,
		userID, sessionID,
	)
	if err != nil {
		return 0, fmt.Errorf("delete session: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete session: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM turns WHERE user_id = ? AND session_id = ?`,
		userID, sessionID,
	); err != nil {
		return 0, fmt.Errorf("delete turns: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit delete: %w", err)
	}
	return deleted, nil
}

// isUniqueConstraintError checks for a SQLite primary-key violation. The
// modernc driver surfaces these as plain errors, so match on the message.
func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
