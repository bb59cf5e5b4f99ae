package chat_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	model "github.com/ruchitha1109/MechanicAI-2/internal/model/chat"
	chat "github.com/ruchitha1109/MechanicAI-2/internal/service/chat"
	"github.com/ruchitha1109/MechanicAI-2/internal/service/generation"
	"github.com/ruchitha1109/MechanicAI-2/internal/store"
)

type stubGenerator struct {
	result *generation.Result
	err    error
	calls  []generation.Request
}

func (g *stubGenerator) Generate(_ context.Context, req generation.Request) (*generation.Result, error) {
	g.calls = append(g.calls, req)
	if g.err != nil {
		return nil, g.err
	}
	return g.result, nil
}

func okGenerator() *stubGenerator {
	return &stubGenerator{result: &generation.Result{
		Reply: "Sounds like worn brake pads.",
		Title: "Brake noise",
		Extra: map[string]any{"car_model": "Civic"},
	}}
}

func TestCreateSessionHappyPath(t *testing.T) {
	ctx := context.Background()
	memory := store.NewMemory()
	gen := okGenerator()
	svc := chat.NewService(memory, gen)

	result, err := svc.CreateSession(ctx, "user-1", "my brakes squeak")
	if err != nil {
		t.Fatalf("CreateSession err: %v", err)
	}
	if !result.Success || result.SessionID == "" {
		t.Fatalf("unexpected result: %+v", result)
	}
	if result.Reply != "Sounds like worn brake pads." {
		t.Fatalf("unexpected reply: %s", result.Reply)
	}
	if result.Extra["car_model"] != "Civic" {
		t.Fatalf("expected extra passthrough, got %+v", result.Extra)
	}

	if len(gen.calls) != 1 || !gen.calls[0].NewSession {
		t.Fatalf("expected one new-session generation call, got %+v", gen.calls)
	}

	session, err := memory.GetSession(ctx, "user-1", result.SessionID)
	if err != nil {
		t.Fatalf("GetSession err: %v", err)
	}
	if session.Title != "Brake noise" {
		t.Fatalf("suggested title not applied: %s", session.Title)
	}
	if len(session.Turns) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(session.Turns))
	}
	if session.Turns[0].Sender != model.SenderUser || session.Turns[0].Message != "my brakes squeak" {
		t.Fatalf("unexpected first turn: %+v", session.Turns[0])
	}
	if session.Turns[1].Sender != model.SenderBot {
		t.Fatalf("unexpected second turn: %+v", session.Turns[1])
	}
}

func TestCreateSessionUniqueIDs(t *testing.T) {
	ctx := context.Background()
	svc := chat.NewService(store.NewMemory(), okGenerator())

	seen := map[string]bool{}
	for i := 0; i < 5; i++ {
		result, err := svc.CreateSession(ctx, "user-1", "hi")
		if err != nil {
			t.Fatalf("CreateSession err: %v", err)
		}
		if seen[result.SessionID] {
			t.Fatalf("session id %s reused", result.SessionID)
		}
		seen[result.SessionID] = true
	}
}

func TestCreateSessionMissingUser(t *testing.T) {
	svc := chat.NewService(store.NewMemory(), okGenerator())

	if _, err := svc.CreateSession(context.Background(), "", "hi"); !errors.Is(err, chat.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestCreateSessionNoTitleSuggested(t *testing.T) {
	ctx := context.Background()
	memory := store.NewMemory()
	gen := &stubGenerator{result: &generation.Result{Reply: "hello"}}
	svc := chat.NewService(memory, gen)

	result, err := svc.CreateSession(ctx, "user-1", "hi")
	if err != nil {
		t.Fatalf("CreateSession err: %v", err)
	}

	session, err := memory.GetSession(ctx, "user-1", result.SessionID)
	if err != nil {
		t.Fatalf("GetSession err: %v", err)
	}
	if session.Title != chat.DefaultTitle {
		t.Fatalf("expected default title, got %s", session.Title)
	}
}

func TestCreateSessionGenerationFailure(t *testing.T) {
	ctx := context.Background()
	memory := store.NewMemory()
	gen := &stubGenerator{err: fmt.Errorf("%w: status 503", generation.ErrUnavailable)}
	svc := chat.NewService(memory, gen)

	result, err := svc.CreateSession(ctx, "user-1", "hi")
	if !errors.Is(err, generation.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if result == nil || result.SessionID == "" {
		t.Fatal("failure result must still carry the session id")
	}
	if result.Reply != chat.FallbackReply {
		t.Fatalf("unexpected reply: %s", result.Reply)
	}

	// The transcript stays coherent: user turn plus canned bot turn.
	session, err := memory.GetSession(ctx, "user-1", result.SessionID)
	if err != nil {
		t.Fatalf("GetSession err: %v", err)
	}
	if len(session.Turns) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(session.Turns))
	}
	if session.Turns[1].Message != chat.FallbackReply {
		t.Fatalf("expected fallback bot turn, got %+v", session.Turns[1])
	}
	if session.Title != chat.DefaultTitle {
		t.Fatalf("title must stay default on failure, got %s", session.Title)
	}
}

func TestContinueSession(t *testing.T) {
	ctx := context.Background()
	memory := store.NewMemory()
	gen := okGenerator()
	svc := chat.NewService(memory, gen)

	created, err := svc.CreateSession(ctx, "user-1", "my brakes squeak")
	if err != nil {
		t.Fatalf("CreateSession err: %v", err)
	}

	result, err := svc.ContinueSession(ctx, "user-1", created.SessionID, "how much will it cost?")
	if err != nil {
		t.Fatalf("ContinueSession err: %v", err)
	}
	if !result.Success || result.Reply == "" {
		t.Fatalf("unexpected result: %+v", result)
	}

	if gen.calls[1].NewSession {
		t.Fatal("continue must not request a new-session generation")
	}

	session, err := memory.GetSession(ctx, "user-1", created.SessionID)
	if err != nil {
		t.Fatalf("GetSession err: %v", err)
	}
	if len(session.Turns) != 4 {
		t.Fatalf("expected 4 turns, got %d", len(session.Turns))
	}
}

func TestContinueSessionNotFound(t *testing.T) {
	svc := chat.NewService(store.NewMemory(), okGenerator())

	_, err := svc.ContinueSession(context.Background(), "user-1", "missing", "hi")
	if !errors.Is(err, store.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestContinueSessionInvalidInput(t *testing.T) {
	svc := chat.NewService(store.NewMemory(), okGenerator())
	ctx := context.Background()

	for _, args := range [][3]string{
		{"", "sess", "hi"},
		{"user", "", "hi"},
		{"user", "sess", ""},
	} {
		if _, err := svc.ContinueSession(ctx, args[0], args[1], args[2]); !errors.Is(err, chat.ErrInvalidInput) {
			t.Fatalf("expected ErrInvalidInput for %v, got %v", args, err)
		}
	}
}

func TestContinueSessionGenerationFailure(t *testing.T) {
	ctx := context.Background()
	memory := store.NewMemory()
	svc := chat.NewService(memory, okGenerator())

	created, err := svc.CreateSession(ctx, "user-1", "hi")
	if err != nil {
		t.Fatalf("CreateSession err: %v", err)
	}

	failing := chat.NewService(memory, &stubGenerator{err: generation.ErrUnavailable})
	result, err := failing.ContinueSession(ctx, "user-1", created.SessionID, "still there?")
	if !errors.Is(err, generation.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if result.SessionID != created.SessionID {
		t.Fatalf("session id lost on failure: %+v", result)
	}

	session, err := memory.GetSession(ctx, "user-1", created.SessionID)
	if err != nil {
		t.Fatalf("GetSession err: %v", err)
	}
	// Two turns from creation plus user message and fallback.
	if len(session.Turns) != 4 {
		t.Fatalf("expected 4 turns, got %d", len(session.Turns))
	}
	if session.Turns[3].Message != chat.FallbackReply {
		t.Fatalf("expected fallback bot turn, got %+v", session.Turns[3])
	}
}

// botAppendFailer simulates a store that loses writes after generation.
type botAppendFailer struct {
	store.ConversationStore
}

func (s *botAppendFailer) AppendTurn(ctx context.Context, userID, sessionID, sender, message string) (model.Turn, error) {
	if sender == model.SenderBot {
		return model.Turn{}, errors.New("disk full")
	}
	return s.ConversationStore.AppendTurn(ctx, userID, sessionID, sender, message)
}

func TestBotTurnPersistenceFailure(t *testing.T) {
	ctx := context.Background()
	memory := store.NewMemory()
	svc := chat.NewService(&botAppendFailer{memory}, okGenerator())

	result, err := svc.CreateSession(ctx, "user-1", "hi")
	if !errors.Is(err, chat.ErrPersistenceFailure) {
		t.Fatalf("expected ErrPersistenceFailure, got %v", err)
	}
	if result.SessionID == "" {
		t.Fatal("failure result must carry the session id")
	}
	// The generated reply is surfaced once even though it was not persisted.
	if result.Reply != "Sounds like worn brake pads." {
		t.Fatalf("unexpected reply: %s", result.Reply)
	}

	session, err := memory.GetSession(ctx, "user-1", result.SessionID)
	if err != nil {
		t.Fatalf("GetSession err: %v", err)
	}
	if len(session.Turns) != 1 {
		t.Fatalf("expected only the user turn, got %d turns", len(session.Turns))
	}
}

func TestGetHistory(t *testing.T) {
	ctx := context.Background()
	svc := chat.NewService(store.NewMemory(), okGenerator())

	created, err := svc.CreateSession(ctx, "user-1", "hi")
	if err != nil {
		t.Fatalf("CreateSession err: %v", err)
	}

	turns, err := svc.GetHistory(ctx, "user-1", created.SessionID)
	if err != nil {
		t.Fatalf("GetHistory err: %v", err)
	}
	if len(turns) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(turns))
	}

	if _, err := svc.GetHistory(ctx, "user-1", "missing"); !errors.Is(err, store.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	if _, err := svc.GetHistory(ctx, "", ""); !errors.Is(err, chat.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
