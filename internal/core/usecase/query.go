package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lexivn/legal-rag-backend/internal/core/domain"
	"github.com/lexivn/legal-rag-backend/internal/core/ports"
)

type QueryConfig struct {
	TopK            int
	DenseWeight     float64
	SparseWeight    float64
	RRFK            int
	UseReranker     bool
	RerankBatchSize int
}

func (c QueryConfig) normalize() QueryConfig {
	out := c
	if out.TopK <= 0 {
		out.TopK = 10
	}
	if out.DenseWeight <= 0 && out.SparseWeight <= 0 {
		out.DenseWeight = 0.7
		out.SparseWeight = 0.3
	}
	if out.RRFK <= 0 {
		out.RRFK = defaultRRFK
	}
	if out.RerankBatchSize <= 0 {
		out.RerankBatchSize = defaultRerankBatchSize
	}
	return out
}

// QueryUseCase drives one retrieval-augmented generation request through
// embed, retrieve, optional rerank, context assembly, generate, and format.
type QueryUseCase struct {
	embedder ports.Embedder
	vector   ports.VectorSearcher
	scorer   ports.RerankScorer
	llm      ports.ChatModel
	cfg      QueryConfig
}

func NewQueryUseCase(
	embedder ports.Embedder,
	vector ports.VectorSearcher,
	scorer ports.RerankScorer,
	llm ports.ChatModel,
	cfg QueryConfig,
) *QueryUseCase {
	return &QueryUseCase{
		embedder: embedder,
		vector:   vector,
		scorer:   scorer,
		llm:      llm,
		cfg:      cfg.normalize(),
	}
}

func (uc *QueryUseCase) Answer(ctx context.Context, req ports.QueryRequest) (*domain.QueryResult, error) {
	start := time.Now()
	topK := req.TopK
	if topK <= 0 {
		topK = uc.cfg.TopK
	}

	queryVector, err := uc.embedder.EmbedQuery(ctx, req.Question)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	searchStart := time.Now()
	results, err := uc.retrieve(ctx, req, queryVector, topK)
	if err != nil {
		return nil, err
	}
	searchTime := float64(time.Since(searchStart).Microseconds()) / 1000.0

	if len(results) == 0 {
		return &domain.QueryResult{
			Answer:       NoContextAnswer,
			Sources:      []domain.Source{},
			SearchTimeMs: searchTime,
			TotalTimeMs:  float64(time.Since(start).Microseconds()) / 1000.0,
		}, nil
	}

	rerankerUsed := false
	if req.RerankerWanted && uc.cfg.UseReranker {
		reranked, rerankErr := Rerank(ctx, uc.scorer, req.Question, results, minInt(topK, len(results)), uc.cfg.RerankBatchSize)
		if rerankErr != nil {
			slog.Warn("rerank_failed_using_fused_order", "error", rerankErr)
		} else {
			results = reranked
			rerankerUsed = true
		}
	}

	head := trimFused(results, topK)
	ragContext := buildContext(head)

	generateStart := time.Now()
	messages := []domain.ChatMessage{
		{Role: "system", Content: legalRAGSystemPrompt},
		{Role: "user", Content: buildRAGPrompt(req.Question, ragContext)},
	}
	generation, err := uc.llm.Chat(ctx, messages, ports.ChatOptions{Temperature: 0.1, MaxTokens: 2048})
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}
	generateTime := float64(time.Since(generateStart).Microseconds()) / 1000.0

	return &domain.QueryResult{
		Answer:         generation.Content,
		Sources:        formatSources(head),
		SearchTimeMs:   searchTime,
		GenerateTimeMs: generateTime,
		TotalTimeMs:    float64(time.Since(start).Microseconds()) / 1000.0,
		RerankerUsed:   rerankerUsed,
		Usage:          generation,
	}, nil
}

// SearchOnly performs retrieval and optional rerank without generation.
func (uc *QueryUseCase) SearchOnly(ctx context.Context, req ports.QueryRequest) (*domain.SearchResult, error) {
	start := time.Now()
	topK := req.TopK
	if topK <= 0 {
		topK = uc.cfg.TopK
	}

	queryVector, err := uc.embedder.EmbedQuery(ctx, req.Question)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	collection := domain.CollectionLegal
	filter := domain.SearchFilter{}
	mode := string(domain.SearchModeLegal)
	if req.SearchMode == domain.SearchModeUser && req.UserID != "" {
		collection = domain.CollectionUser
		filter.UserID = req.UserID
		mode = string(domain.SearchModeUser)
	}

	results, err := uc.retrieveCollection(ctx, collection, req.Question, queryVector, topK, filter)
	if err != nil {
		return nil, err
	}

	if req.RerankerWanted && uc.cfg.UseReranker && len(results) > 0 {
		reranked, rerankErr := Rerank(ctx, uc.scorer, req.Question, results, topK, uc.cfg.RerankBatchSize)
		if rerankErr != nil {
			slog.Warn("rerank_failed_using_fused_order", "error", rerankErr)
		} else {
			results = reranked
		}
	}

	sources := formatSources(results)
	return &domain.SearchResult{
		Results:      sources,
		Total:        len(sources),
		Query:        req.Question,
		SearchMode:   mode,
		SearchTimeMs: float64(time.Since(start).Microseconds()) / 1000.0,
	}, nil
}

// retrieve runs the RETRIEVE stage. Hybrid mode queries the shared legal
// corpus with the full budget and the user's private corpus with half of it;
// the two collections are independent reads and run concurrently, with legal
// results always ordered before user results.
func (uc *QueryUseCase) retrieve(ctx context.Context, req ports.QueryRequest, queryVector []float32, topK int) ([]domain.FusedResult, error) {
	switch {
	case req.SearchMode == domain.SearchModeHybrid && req.UserID != "":
		var legal, user []domain.FusedResult
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			legal, err = uc.retrieveCollection(gctx, domain.CollectionLegal, req.Question, queryVector, topK, domain.SearchFilter{})
			return err
		})
		g.Go(func() error {
			var err error
			user, err = uc.retrieveCollection(gctx, domain.CollectionUser, req.Question, queryVector, topK/2, domain.SearchFilter{UserID: req.UserID})
			return err
		})
		if err := g.Wait(); err != nil {
			return nil, err
		}
		return append(legal, user...), nil

	case req.SearchMode == domain.SearchModeUser && req.UserID != "":
		return uc.retrieveCollection(ctx, domain.CollectionUser, req.Question, queryVector, topK, domain.SearchFilter{UserID: req.UserID})

	default:
		return uc.retrieveCollection(ctx, domain.CollectionLegal, req.Question, queryVector, topK, domain.SearchFilter{})
	}
}

// retrieveCollection fetches dense and sparse hit lists for one collection
// and fuses them. A sparse failure degrades to dense-only retrieval; a dense
// failure is fatal for the request.
func (uc *QueryUseCase) retrieveCollection(
	ctx context.Context,
	collection domain.Collection,
	question string,
	queryVector []float32,
	limit int,
	filter domain.SearchFilter,
) ([]domain.FusedResult, error) {
	if limit <= 0 {
		return nil, nil
	}
	fetchLimit := limit * 2

	dense, err := uc.vector.SearchDense(ctx, collection, queryVector, fetchLimit, filter)
	if err != nil {
		return nil, domain.WrapError(domain.ErrRetrieval, fmt.Sprintf("dense search collection=%s query=%q", collection, question), err)
	}

	sparse, err := uc.vector.SearchSparse(ctx, collection, question, fetchLimit, filter)
	if err != nil {
		slog.Warn("sparse_search_failed_using_dense_only", "collection", string(collection), "error", err)
		sparse = nil
	}

	fused := FuseRRF(dense, sparse, uc.cfg.DenseWeight, uc.cfg.SparseWeight, uc.cfg.RRFK)
	return trimFused(fused, limit), nil
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
