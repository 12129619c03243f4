package ports

import (
	"context"
	"io"

	"github.com/lexivn/legal-rag-backend/internal/core/domain"
)

// VectorSearcher runs ranked nearest-neighbor queries against one retrieval
// collection. Dense and sparse are separate calls; both return lists already
// ordered by the collaborator.
type VectorSearcher interface {
	SearchDense(ctx context.Context, collection domain.Collection, vector []float32, limit int, filter domain.SearchFilter) ([]domain.Hit, error)
	SearchSparse(ctx context.Context, collection domain.Collection, query string, limit int, filter domain.SearchFilter) ([]domain.Hit, error)
	IndexChunks(ctx context.Context, doc *domain.UserDocument, chunks []domain.Chunk, vectors [][]float32) error
	CheckConnection(ctx context.Context) bool
}

// VectorRemover drops every indexed point belonging to one user document.
type VectorRemover interface {
	DeleteByDocID(ctx context.Context, docID string) error
}

// Embedder builds vectors for chunks and query text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// RerankScorer scores (query, document) pairs with a cross-encoder.
// Scores are in [0,1], one per document, in input order.
type RerankScorer interface {
	Score(ctx context.Context, query string, documents []string) ([]float64, error)
}

type ChatOptions struct {
	Model       string
	Temperature float64
	MaxTokens   int
}

// ChatModel executes a chat completion against the active generation
// provider, including credential failover and cost accounting.
type ChatModel interface {
	Chat(ctx context.Context, messages []domain.ChatMessage, opts ChatOptions) (*domain.Generation, error)
}

// Segmenter splits raw document text into retrievable chunks.
type Segmenter interface {
	Segment(text string) []domain.Chunk
}

// ObjectStorage stores uploaded source files.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Remove(ctx context.Context, key string) error
}

// MessageQueue carries document-ingested events from api to worker.
type MessageQueue interface {
	PublishDocumentIngested(ctx context.Context, documentID string) error
	SubscribeDocumentIngested(ctx context.Context, handler func(context.Context, string) error) error
}

// TextExtractor extracts plain text from a stored document.
type TextExtractor interface {
	Extract(ctx context.Context, doc *domain.UserDocument) (string, error)
}

// ChatStore persists chat sessions, messages, and per-message sources.
type ChatStore interface {
	EnsureSession(ctx context.Context, userID, sessionID string) (*domain.ChatSession, error)
	SetTitleIfEmpty(ctx context.Context, sessionRowID int64, title string) error
	AppendMessage(ctx context.Context, msg *domain.StoredMessage) error
	SaveSources(ctx context.Context, messageID int64, sources []domain.Source) error
	ListMessages(ctx context.Context, sessionID string) (*domain.ChatSession, []domain.StoredMessage, error)
	ListSessions(ctx context.Context, userID string, limit int) ([]domain.ChatSession, error)
	DeleteSession(ctx context.Context, sessionID string) error
}

// UserDocumentStore persists user-document metadata.
type UserDocumentStore interface {
	Create(ctx context.Context, doc *domain.UserDocument) error
	GetByID(ctx context.Context, id string) (*domain.UserDocument, error)
	UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, errMessage string) error
	MarkReady(ctx context.Context, id string, numChunks int) error
	Delete(ctx context.Context, id string) error
}
