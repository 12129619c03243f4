package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lexivn/legal-rag-backend/internal/core/domain"
	"github.com/lexivn/legal-rag-backend/internal/core/ports"
)

const sessionTitleLimit = 50

// ChatUseCase wraps the answer pipeline with session persistence: it records
// the user question, runs retrieval-augmented generation, and records the
// assistant answer together with its sources.
type ChatUseCase struct {
	answers ports.AnswerService
	store   ports.ChatStore
}

func NewChatUseCase(answers ports.AnswerService, store ports.ChatStore) *ChatUseCase {
	return &ChatUseCase{answers: answers, store: store}
}

func (uc *ChatUseCase) Chat(ctx context.Context, req ports.QueryRequest, sessionID string) (*domain.ChatAnswer, error) {
	session, err := uc.store.EnsureSession(ctx, req.UserID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("ensure session: %w", err)
	}

	if err := uc.store.SetTitleIfEmpty(ctx, session.ID, sessionTitle(req.Question)); err != nil {
		slog.Warn("session_title_update_failed", "session_id", session.SessionID, "error", err)
	}

	userMsg := &domain.StoredMessage{
		SessionRowID: session.ID,
		Role:         "user",
		Content:      req.Question,
		SearchMode:   string(req.SearchMode),
	}
	if err := uc.store.AppendMessage(ctx, userMsg); err != nil {
		return nil, fmt.Errorf("save user message: %w", err)
	}

	result, err := uc.answers.Answer(ctx, req)
	if err != nil {
		return nil, err
	}

	assistantMsg := &domain.StoredMessage{
		SessionRowID: session.ID,
		Role:         "assistant",
		Content:      result.Answer,
		SearchMode:   string(req.SearchMode),
		RerankerUsed: result.RerankerUsed,
	}
	if err := uc.store.AppendMessage(ctx, assistantMsg); err != nil {
		return nil, fmt.Errorf("save assistant message: %w", err)
	}

	if len(result.Sources) > 0 {
		if err := uc.store.SaveSources(ctx, assistantMsg.ID, result.Sources); err != nil {
			slog.Warn("sources_persist_failed", "message_id", assistantMsg.ID, "error", err)
		}
	}

	return &domain.ChatAnswer{
		Answer:         result.Answer,
		Sources:        result.Sources,
		MessageID:      assistantMsg.ID,
		SessionID:      session.SessionID,
		SearchTimeMs:   result.SearchTimeMs,
		GenerateTimeMs: result.GenerateTimeMs,
		TotalTimeMs:    result.TotalTimeMs,
		RerankerUsed:   result.RerankerUsed,
		Usage:          result.Usage,
	}, nil
}

func (uc *ChatUseCase) History(ctx context.Context, sessionID string) (*domain.ChatSession, []domain.StoredMessage, error) {
	return uc.store.ListMessages(ctx, sessionID)
}

func (uc *ChatUseCase) Sessions(ctx context.Context, userID string, limit int) ([]domain.ChatSession, error) {
	if limit <= 0 {
		limit = 50
	}
	return uc.store.ListSessions(ctx, userID, limit)
}

func (uc *ChatUseCase) DeleteSession(ctx context.Context, sessionID string) error {
	return uc.store.DeleteSession(ctx, sessionID)
}

// sessionTitle derives a session title from the first question.
func sessionTitle(question string) string {
	runes := []rune(question)
	if len(runes) <= sessionTitleLimit {
		return question
	}
	return string(runes[:sessionTitleLimit]) + "..."
}
