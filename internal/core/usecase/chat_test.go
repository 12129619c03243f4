package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/lexivn/legal-rag-backend/internal/core/domain"
	"github.com/lexivn/legal-rag-backend/internal/core/ports"
)

type fakeChatStore struct {
	session   *domain.ChatSession
	titles    []string
	messages  []*domain.StoredMessage
	sources   map[int64][]domain.Source
	appendErr error
}

func newFakeChatStore() *fakeChatStore {
	return &fakeChatStore{
		session: &domain.ChatSession{ID: 7, SessionID: "sess-1", UserID: "u-1"},
		sources: map[int64][]domain.Source{},
	}
}

func (f *fakeChatStore) EnsureSession(_ context.Context, _, _ string) (*domain.ChatSession, error) {
	return f.session, nil
}

func (f *fakeChatStore) SetTitleIfEmpty(_ context.Context, _ int64, title string) error {
	f.titles = append(f.titles, title)
	return nil
}

func (f *fakeChatStore) AppendMessage(_ context.Context, msg *domain.StoredMessage) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	msg.ID = int64(len(f.messages) + 1)
	f.messages = append(f.messages, msg)
	return nil
}

func (f *fakeChatStore) SaveSources(_ context.Context, messageID int64, sources []domain.Source) error {
	f.sources[messageID] = sources
	return nil
}

func (f *fakeChatStore) ListMessages(_ context.Context, _ string) (*domain.ChatSession, []domain.StoredMessage, error) {
	out := make([]domain.StoredMessage, len(f.messages))
	for i, m := range f.messages {
		out[i] = *m
	}
	return f.session, out, nil
}

func (f *fakeChatStore) ListSessions(_ context.Context, _ string, _ int) ([]domain.ChatSession, error) {
	return []domain.ChatSession{*f.session}, nil
}

func (f *fakeChatStore) DeleteSession(_ context.Context, _ string) error { return nil }

type fakeAnswerService struct {
	result *domain.QueryResult
	err    error
}

func (f *fakeAnswerService) Answer(_ context.Context, _ ports.QueryRequest) (*domain.QueryResult, error) {
	return f.result, f.err
}

func (f *fakeAnswerService) SearchOnly(_ context.Context, _ ports.QueryRequest) (*domain.SearchResult, error) {
	return nil, errors.New("not used")
}

func TestChatPersistsBothMessagesAndSources(t *testing.T) {
	store := newFakeChatStore()
	answers := &fakeAnswerService{result: &domain.QueryResult{
		Answer:         "Theo Điều 5...",
		Sources:        []domain.Source{{Text: "nguồn", Rank: 1}},
		RerankerUsed:   true,
		SearchTimeMs:   12,
		GenerateTimeMs: 34,
		Usage:          &domain.Generation{Provider: "fpt_cloud", InputTokens: 100, OutputTokens: 50},
	}}
	uc := NewChatUseCase(answers, store)

	out, err := uc.Chat(context.Background(), ports.QueryRequest{
		Question: "mức phạt?", UserID: "u-1", SearchMode: domain.SearchModeLegal,
	}, "sess-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.messages) != 2 {
		t.Fatalf("stored %d messages, want 2", len(store.messages))
	}
	if store.messages[0].Role != "user" || store.messages[1].Role != "assistant" {
		t.Errorf("message roles = %s,%s", store.messages[0].Role, store.messages[1].Role)
	}
	if !store.messages[1].RerankerUsed {
		t.Error("assistant message missing reranker flag")
	}
	if out.SessionID != "sess-1" || out.MessageID != store.messages[1].ID {
		t.Errorf("answer envelope = %+v", out)
	}
	if !out.RerankerUsed || out.SearchTimeMs != 12 || out.GenerateTimeMs != 34 {
		t.Errorf("pipeline accounting not carried through: %+v", out)
	}
	if out.Usage == nil || out.Usage.InputTokens != 100 {
		t.Error("generation usage not carried through")
	}
	if len(store.sources[out.MessageID]) != 1 {
		t.Error("sources not linked to the assistant message")
	}
}

func TestChatTitleTruncation(t *testing.T) {
	store := newFakeChatStore()
	answers := &fakeAnswerService{result: &domain.QueryResult{Answer: "ok"}}
	uc := NewChatUseCase(answers, store)

	long := strings.Repeat("quy định ", 20)
	if _, err := uc.Chat(context.Background(), ports.QueryRequest{Question: long, UserID: "u-1"}, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.titles) != 1 {
		t.Fatalf("title updates = %d, want 1", len(store.titles))
	}
	title := store.titles[0]
	if !strings.HasSuffix(title, "...") {
		t.Errorf("long title not truncated: %q", title)
	}
	if got := len([]rune(title)); got != sessionTitleLimit+3 {
		t.Errorf("title length = %d runes, want %d", got, sessionTitleLimit+3)
	}
}

func TestChatPipelineFailureLeavesNoAssistantMessage(t *testing.T) {
	store := newFakeChatStore()
	answers := &fakeAnswerService{err: errors.New("all providers failed")}
	uc := NewChatUseCase(answers, store)

	if _, err := uc.Chat(context.Background(), ports.QueryRequest{Question: "q", UserID: "u-1"}, "sess-1"); err == nil {
		t.Fatal("expected error")
	}
	if len(store.messages) != 1 {
		t.Fatalf("stored %d messages, want only the user message", len(store.messages))
	}
	if store.messages[0].Role != "user" {
		t.Errorf("surviving message role = %s", store.messages[0].Role)
	}
}
