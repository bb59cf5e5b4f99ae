package chat

import (
	"context"
	"errors"
	"fmt"

	"github.com/ruchitha1109/MechanicAI-2/internal/model/chat"
	"github.com/ruchitha1109/MechanicAI-2/internal/store"
)

// PageSize is the fixed number of sessions per chat listing page.
const PageSize = 10

// ChatPage is one page of a user's sessions, most recently touched first.
// NextOffset feeds the next request; a short page means the end was reached.
type ChatPage struct {
	Chats      []chat.SessionSummary
	NextOffset int
}

// ListChats returns one page of the user's sessions starting at offset.
func (s *Service) ListChats(ctx context.Context, userID string, offset int) (*ChatPage, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: userId is required", ErrInvalidInput)
	}
	if offset < 0 {
		return nil, fmt.Errorf("%w: invalid offset value", ErrInvalidInput)
	}

	chats, err := s.store.ListSessions(ctx, userID, offset, PageSize)
	if err != nil {
		return nil, fmt.Errorf("%w: list sessions: %v", ErrPersistenceFailure, err)
	}

	return &ChatPage{Chats: chats, NextOffset: offset + len(chats)}, nil
}

// RenameSession sets a new title on an existing session.
func (s *Service) RenameSession(ctx context.Context, userID, sessionID, title string) error {
	if userID == "" || sessionID == "" || title == "" {
		return fmt.Errorf("%w: userId, sessionId and title are required", ErrInvalidInput)
	}

	if err := s.store.SetTitle(ctx, userID, sessionID, title); err != nil {
		if errors.Is(err, store.ErrSessionNotFound) {
			return err
		}
		return fmt.Errorf("%w: set title: %v", ErrPersistenceFailure, err)
	}
	return nil
}

// DeleteSession removes a session permanently. There is no recovery.
func (s *Service) DeleteSession(ctx context.Context, userID, sessionID string) error {
	if userID == "" || sessionID == "" {
		return fmt.Errorf("%w: userId and sessionId are required", ErrInvalidInput)
	}

	deleted, err := s.store.DeleteSession(ctx, userID, sessionID)
	if err != nil {
		return fmt.Errorf("%w: delete session: %v", ErrPersistenceFailure, err)
	}
	if deleted == 0 {
		return store.ErrSessionNotFound
	}
	return nil
}
