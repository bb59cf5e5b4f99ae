// Package store provides persistence for per-user chat sessions.
package store

import (
	"context"
	"errors"

	"github.com/ruchitha1109/MechanicAI-2/internal/model/chat"
)

var (
	// ErrSessionNotFound is returned when no session exists for the
	// (userID, sessionID) pair.
	ErrSessionNotFound = errors.New("session not found")

	// ErrDuplicateSession is returned when creating a session whose
	// identifier already exists in the user's partition.
	ErrDuplicateSession = errors.New("session already exists")
)

// ConversationStore persists sessions and their turn logs. All operations
// are scoped by userID first: a user's sessions form an isolated partition
// and lookups never cross it.
type ConversationStore interface {
	// CreateSession creates an empty session with the given title.
	CreateSession(ctx context.Context, userID, sessionID, title string) (*chat.Session, error)

	// AppendTurn atomically appends one turn with a store-assigned
	// timestamp and touches the session's last-modified time.
	AppendTurn(ctx context.Context, userID, sessionID, sender, message string) (chat.Turn, error)

	// SetTitle replaces the session title.
	SetTitle(ctx context.Context, userID, sessionID, title string) error

	// GetSession loads a session including its full turn sequence.
	GetSession(ctx context.Context, userID, sessionID string) (*chat.Session, error)

	// ListSessions returns summaries ordered by descending last-modified
	// time, skipping offset items and returning at most limit.
	ListSessions(ctx context.Context, userID string, offset, limit int) ([]chat.SessionSummary, error)

	// DeleteSession removes a session and its turns, returning how many
	// sessions were deleted (0 or 1). Deleting a missing session is not
	// an error.
	DeleteSession(ctx context.Context, userID, sessionID string) (int64, error)

	// Ping verifies the store is reachable.
	Ping(ctx context.Context) error

	// Close releases the underlying resources.
	Close() error
}
