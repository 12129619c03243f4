package ports

import (
	"context"
	"io"

	"github.com/lexivn/legal-rag-backend/internal/core/domain"
)

type QueryRequest struct {
	Question       string
	UserID         string
	SearchMode     domain.SearchMode
	TopK           int
	RerankerWanted bool
}

// AnswerService is the inbound contract for full retrieval-augmented
// generation and for search without generation.
type AnswerService interface {
	Answer(ctx context.Context, req QueryRequest) (*domain.QueryResult, error)
	SearchOnly(ctx context.Context, req QueryRequest) (*domain.SearchResult, error)
}

// DocumentIngestor is the inbound contract for user-document upload and
// removal.
type DocumentIngestor interface {
	Upload(ctx context.Context, userID, sessionID, filename string, size int64, body io.Reader) (*domain.UserDocument, error)
	Delete(ctx context.Context, documentID string) error
}

// DocumentProcessor is the inbound contract for asynchronous indexing.
type DocumentProcessor interface {
	ProcessByID(ctx context.Context, documentID string) error
}
