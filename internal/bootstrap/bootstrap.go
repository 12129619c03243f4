package bootstrap

import (
	"context"
	"fmt"

	"github.com/lexivn/legal-rag-backend/internal/config"
	"github.com/lexivn/legal-rag-backend/internal/core/ports"
	"github.com/lexivn/legal-rag-backend/internal/core/usecase"
	embedollama "github.com/lexivn/legal-rag-backend/internal/infrastructure/embed/ollama"
	"github.com/lexivn/legal-rag-backend/internal/infrastructure/extract"
	"github.com/lexivn/legal-rag-backend/internal/infrastructure/llm/provider"
	"github.com/lexivn/legal-rag-backend/internal/infrastructure/queue/nats"
	"github.com/lexivn/legal-rag-backend/internal/infrastructure/repository/postgres"
	"github.com/lexivn/legal-rag-backend/internal/infrastructure/rerank/tei"
	"github.com/lexivn/legal-rag-backend/internal/infrastructure/resilience"
	"github.com/lexivn/legal-rag-backend/internal/infrastructure/segmenter"
	"github.com/lexivn/legal-rag-backend/internal/infrastructure/storage/localfs"
	"github.com/lexivn/legal-rag-backend/internal/infrastructure/vector/qdrant"
)

type App struct {
	Config config.Config

	Queue     ports.MessageQueue
	Providers *provider.State
	LLM       ports.ChatModel
	Vector    ports.VectorSearcher
	Documents ports.UserDocumentStore
	Embedder  *embedollama.Embedder
	Reranker  *tei.Scorer

	ChatUC    *usecase.ChatUseCase
	AnswerUC  ports.AnswerService
	UploadUC  ports.DocumentIngestor
	ProcessUC ports.DocumentProcessor

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	chatRepo := postgres.NewChatRepository(db)
	if err := chatRepo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure chat schema: %w", err)
	}
	docRepo := postgres.NewUserDocumentRepository(db)
	if err := docRepo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure document schema: %w", err)
	}

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	embedder := embedollama.NewWithOptions(cfg.OllamaURL, cfg.EmbedModel, embedollama.Options{
		ResilienceExecutor: executor,
	})
	vectorDB := qdrant.NewWithOptions(cfg.QdrantURL, cfg.LegalCollection, cfg.UserDocsCollection, qdrant.Options{
		ResilienceExecutor: executor,
	})
	scorer := tei.NewWithOptions(cfg.RerankerURL, tei.Options{
		ResilienceExecutor: executor,
	})

	registry, err := provider.LoadRegistry(cfg.ProvidersFile)
	if err != nil {
		return nil, fmt.Errorf("load provider registry: %w", err)
	}
	providerState := provider.NewState(registry)
	llm := provider.NewClientWithOptions(providerState, provider.Options{
		ResilienceExecutor: executor,
	})

	answerUC := usecase.NewQueryUseCase(embedder, vectorDB, scorer, llm, usecase.QueryConfig{
		TopK:            cfg.RAGTopK,
		DenseWeight:     cfg.DenseWeight,
		SparseWeight:    cfg.SparseWeight,
		RRFK:            cfg.RRFK,
		UseReranker:     cfg.UseReranker,
		RerankBatchSize: cfg.RerankBatchSize,
	})
	chatUC := usecase.NewChatUseCase(answerUC, chatRepo)
	uploadUC := usecase.NewUploadUseCase(storage, docRepo, queue, vectorDB, cfg.MaxUploadBytes)
	processUC := usecase.NewProcessUseCase(
		docRepo,
		extract.NewExtractor(storage),
		segmenter.New(cfg.ChunkSize, cfg.ChunkOverlap),
		embedder,
		vectorDB,
	)

	return &App{
		Config: cfg,

		Queue:     queue,
		Providers: providerState,
		LLM:       llm,
		Vector:    vectorDB,
		Documents: docRepo,
		Embedder:  embedder,
		Reranker:  scorer,

		ChatUC:    chatUC,
		AnswerUC:  answerUC,
		UploadUC:  uploadUC,
		ProcessUC: processUC,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
