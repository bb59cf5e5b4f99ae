package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ruchitha1109/MechanicAI-2/internal/model/chat"
)

// MemoryStore implements ConversationStore with in-process maps, suitable
// for tests and local development without a database file.
type MemoryStore struct {
	mu    sync.RWMutex
	users map[string]map[string]*chat.Session
	now   func() time.Time
	seq   int64
}

// NewMemory returns an empty in-memory conversation store.
func NewMemory() *MemoryStore {
	return &MemoryStore{
		users: make(map[string]map[string]*chat.Session),
		now:   time.Now,
	}
}

// partition returns the user's session map, creating it on first use.
// Callers must hold the write lock.
func (s *MemoryStore) partition(userID string) map[string]*chat.Session {
	sessions, ok := s.users[userID]
	if !ok {
		sessions = make(map[string]*chat.Session)
		s.users[userID] = sessions
	}
	return sessions
}

// CreateSession creates an empty session with the given title.
func (s *MemoryStore) CreateSession(_ context.Context, userID, sessionID, title string) (*chat.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions := s.partition(userID)
	if _, exists := sessions[sessionID]; exists {
		return nil, ErrDuplicateSession
	}

	now := s.tick()
	session := &chat.Session{
		SessionID: sessionID,
		UserID:    userID,
		Title:     title,
		Turns:     []chat.Turn{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	sessions[sessionID] = session
	return copySession(session), nil
}

// AppendTurn appends one turn with a store-assigned timestamp.
func (s *MemoryStore) AppendTurn(_ context.Context, userID, sessionID, sender, message string) (chat.Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.users[userID][sessionID]
	if !ok {
		return chat.Turn{}, ErrSessionNotFound
	}

	turn := chat.Turn{Sender: sender, Message: message, Timestamp: s.tick()}
	session.Turns = append(session.Turns, turn)
	session.UpdatedAt = turn.Timestamp
	return turn, nil
}

// SetTitle replaces the session title.
func (s *MemoryStore) SetTitle(_ context.Context, userID, sessionID, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.users[userID][sessionID]
	if !ok {
		return ErrSessionNotFound
	}
	session.Title = title
	session.UpdatedAt = s.tick()
	return nil
}

// GetSession loads a session with its full turn sequence.
func (s *MemoryStore) GetSession(_ context.Context, userID, sessionID string) (*chat.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.users[userID][sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return copySession(session), nil
}

// ListSessions returns summaries ordered by descending last-modified time.
func (s *MemoryStore) ListSessions(_ context.Context, userID string, offset, limit int) ([]chat.SessionSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := make([]*chat.Session, 0, len(s.users[userID]))
	for _, session := range s.users[userID] {
		sessions = append(sessions, session)
	}
	sort.Slice(sessions, func(i, j int) bool {
		if !sessions[i].UpdatedAt.Equal(sessions[j].UpdatedAt) {
			return sessions[i].UpdatedAt.After(sessions[j].UpdatedAt)
		}
		return sessions[i].SessionID < sessions[j].SessionID
	})

	summaries := []chat.SessionSummary{}
	for i := offset; i < len(sessions) && len(summaries) < limit; i++ {
		summaries = append(summaries, chat.SessionSummary{
			SessionID: sessions[i].SessionID,
			Title:     sessions[i].Title,
		})
	}
	return summaries, nil
}

// DeleteSession removes a session. Idempotent.
func (s *MemoryStore) DeleteSession(_ context.Context, userID, sessionID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[userID][sessionID]; !ok {
		return 0, nil
	}
	delete(s.users[userID], sessionID)
	return 1, nil
}

// Ping always succeeds for the in-memory store.
func (s *MemoryStore) Ping(context.Context) error { return nil }

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error { return nil }

// tick returns the current time, nudged forward if the clock has not
// advanced since the previous write so recency ordering stays strict.
func (s *MemoryStore) tick() time.Time {
	now := s.now().UTC()
	if n := now.UnixNano(); n <= s.seq {
		now = time.Unix(0, s.seq+1).UTC()
	}
	s.seq = now.UnixNano()
	return now
}

func copySession(session *chat.Session) *chat.Session {
	copied := *session
	copied.Turns = append([]chat.Turn(nil), session.Turns...)
	if copied.Turns == nil {
		copied.Turns = []chat.Turn{}
	}
	return &copied
}
