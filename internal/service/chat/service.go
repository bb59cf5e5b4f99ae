// Package chat coordinates conversation state: durable turn appends around
// a single external generation call per message.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/ruchitha1109/MechanicAI-2/internal/model/chat"
	"github.com/ruchitha1109/MechanicAI-2/internal/service/generation"
	"github.com/ruchitha1109/MechanicAI-2/internal/store"
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrPersistenceFailure = errors.New("persistence failure")
)

const (
	// DefaultTitle names a session until the generation service suggests one.
	DefaultTitle = "New Chat"

	// FallbackReply is persisted as the bot turn whenever generation fails,
	// so the transcript stays coherent for a retry.
	FallbackReply = "Oops! Something went wrong. Please try again"
)

// Generator produces one reply for one prompt. Satisfied by *generation.Client.
type Generator interface {
	Generate(ctx context.Context, req generation.Request) (*generation.Result, error)
}

// Service orchestrates session creation and message exchange against the
// conversation store and the generation service.
type Service struct {
	store     store.ConversationStore
	generator Generator
	newID     func() string
}

// NewService wires the orchestrator with its collaborators.
func NewService(conversations store.ConversationStore, generator Generator) *Service {
	return &Service{
		store:     conversations,
		generator: generator,
		newID:     uuid.NewString,
	}
}

// TurnResult is the outcome of CreateSession or ContinueSession. SessionID
// is set as soon as a session exists, even on failure, so the caller can
// resume the conversation instead of losing it.
type TurnResult struct {
	Success   bool
	SessionID string
	Reply     string
	Extra     map[string]any
}

// CreateSession starts a new session with the user's first message: persist
// the session and the user turn, generate a reply (with a suggested title),
// persist the bot turn.
func (s *Service) CreateSession(ctx context.Context, userID, message string) (*TurnResult, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: userId is required", ErrInvalidInput)
	}

	sessionID := s.newID()
	if _, err := s.store.CreateSession(ctx, userID, sessionID, DefaultTitle); err != nil {
		return nil, fmt.Errorf("%w: create session: %v", ErrPersistenceFailure, err)
	}

	if _, err := s.store.AppendTurn(ctx, userID, sessionID, chat.SenderUser, message); err != nil {
		// The empty session is left behind; no compensating delete.
		return &TurnResult{SessionID: sessionID, Reply: FallbackReply},
			fmt.Errorf("%w: append user turn: %v", ErrPersistenceFailure, err)
	}

	return s.generateAndPersist(ctx, userID, sessionID, message, true)
}

// ContinueSession appends the user's message to an existing session,
// generates a reply and persists it. No title is suggested or applied.
func (s *Service) ContinueSession(ctx context.Context, userID, sessionID, message string) (*TurnResult, error) {
	if userID == "" || sessionID == "" || message == "" {
		return nil, fmt.Errorf("%w: userId, sessionId and message are required", ErrInvalidInput)
	}

	if _, err := s.store.AppendTurn(ctx, userID, sessionID, chat.SenderUser, message); err != nil {
		if errors.Is(err, store.ErrSessionNotFound) {
			return nil, err
		}
		return &TurnResult{SessionID: sessionID, Reply: FallbackReply},
			fmt.Errorf("%w: append user turn: %v", ErrPersistenceFailure, err)
	}

	return s.generateAndPersist(ctx, userID, sessionID, message, false)
}

// GetHistory returns the full transcript of one session in order.
func (s *Service) GetHistory(ctx context.Context, userID, sessionID string) ([]chat.Turn, error) {
	if userID == "" || sessionID == "" {
		return nil, fmt.Errorf("%w: userId and sessionId are required", ErrInvalidInput)
	}

	session, err := s.store.GetSession(ctx, userID, sessionID)
	if err != nil {
		if errors.Is(err, store.ErrSessionNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: load session: %v", ErrPersistenceFailure, err)
	}
	return session.Turns, nil
}

// generateAndPersist is the shared tail of both entry operations: call the
// generation service once, then reconcile its outcome with the store.
func (s *Service) generateAndPersist(ctx context.Context, userID, sessionID, message string, newSession bool) (*TurnResult, error) {
	result, err := s.generator.Generate(ctx, generation.Request{
		UserID:     userID,
		SessionID:  sessionID,
		Prompt:     message,
		NewSession: newSession,
	})
	if err != nil {
		log.Printf("[chat] generation failed for session=%s: %v", sessionID, err)
		return s.persistFallback(ctx, userID, sessionID, err)
	}

	if newSession && result.Title != "" {
		if err := s.store.SetTitle(ctx, userID, sessionID, result.Title); err != nil {
			// The title is cosmetic; the reply still has to land.
			log.Printf("[chat] failed to set title for session=%s: %v", sessionID, err)
		}
	}

	if _, err := s.store.AppendTurn(ctx, userID, sessionID, chat.SenderBot, result.Reply); err != nil {
		// Generation succeeded but the reply could not be persisted: the
		// caller still sees it once, the transcript does not.
		return &TurnResult{SessionID: sessionID, Reply: result.Reply, Extra: result.Extra},
			fmt.Errorf("%w: append bot turn: %v", ErrPersistenceFailure, err)
	}

	return &TurnResult{
		Success:   true,
		SessionID: sessionID,
		Reply:     result.Reply,
		Extra:     result.Extra,
	}, nil
}

// persistFallback records the canned bot message after a failed generation
// and reports the failure with the session identifier intact.
func (s *Service) persistFallback(ctx context.Context, userID, sessionID string, genErr error) (*TurnResult, error) {
	if _, err := s.store.AppendTurn(ctx, userID, sessionID, chat.SenderBot, FallbackReply); err != nil {
		return &TurnResult{SessionID: sessionID, Reply: FallbackReply},
			fmt.Errorf("%w: append fallback turn: %v", ErrPersistenceFailure, err)
	}
	return &TurnResult{SessionID: sessionID, Reply: FallbackReply}, genErr
}
