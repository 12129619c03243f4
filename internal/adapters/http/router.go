package httpadapter

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/lexivn/legal-rag-backend/internal/core/domain"
	"github.com/lexivn/legal-rag-backend/internal/core/ports"
	"github.com/lexivn/legal-rag-backend/internal/core/usecase"
	"github.com/lexivn/legal-rag-backend/internal/infrastructure/llm/provider"
	"github.com/lexivn/legal-rag-backend/internal/observability/metrics"
)

const serviceName = "api"

type Router struct {
	chat      *usecase.ChatUseCase
	answers   ports.AnswerService
	ingestor  ports.DocumentIngestor
	docs      ports.UserDocumentStore
	providers *provider.State
	llm       ports.ChatModel
	vector    ports.VectorSearcher
	embedder  availabilityProber
	reranker  availabilityProber
	metrics   *metrics.HTTPServerMetrics

	rateRPS     float64
	rateBurst   int
	maxInFlight int
}

type RouterOptions struct {
	Chat      *usecase.ChatUseCase
	Answers   ports.AnswerService
	Ingestor  ports.DocumentIngestor
	Documents ports.UserDocumentStore
	Providers *provider.State
	LLM       ports.ChatModel
	Vector    ports.VectorSearcher
	Embedder  availabilityProber
	Reranker  availabilityProber
	Metrics   *metrics.HTTPServerMetrics

	RateLimitRPS   float64
	RateLimitBurst int
	MaxInFlight    int
}

func NewRouter(opts RouterOptions) *Router {
	maxInFlight := opts.MaxInFlight
	if maxInFlight <= 0 {
		maxInFlight = 64
	}
	return &Router{
		chat:        opts.Chat,
		answers:     opts.Answers,
		ingestor:    opts.Ingestor,
		docs:        opts.Documents,
		providers:   opts.Providers,
		llm:         opts.LLM,
		vector:      opts.Vector,
		embedder:    opts.Embedder,
		reranker:    opts.Reranker,
		metrics:     opts.Metrics,
		rateRPS:     opts.RateLimitRPS,
		rateBurst:   opts.RateLimitBurst,
		maxInFlight: maxInFlight,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", rt.healthz)
	mux.HandleFunc("GET /api/status", rt.status)

	mux.HandleFunc("POST /api/chat", rt.postChat)
	mux.HandleFunc("GET /api/chat/history/{session_id}", rt.getChatHistory)
	mux.HandleFunc("GET /api/chat/sessions", rt.listChatSessions)
	mux.HandleFunc("GET /api/chat/sessions/{user_id}", rt.listChatSessions)
	mux.HandleFunc("DELETE /api/chat/sessions/{session_id}", rt.deleteChatSession)

	mux.HandleFunc("POST /api/search", rt.postSearch)

	mux.HandleFunc("POST /api/upload", rt.postUpload)
	mux.HandleFunc("GET /api/documents/{document_id}", rt.getDocument)
	mux.HandleFunc("DELETE /api/documents/{document_id}", rt.deleteDocument)

	mux.HandleFunc("GET /api/llm/providers", rt.listProviders)
	mux.HandleFunc("GET /api/llm/active", rt.activeProvider)
	mux.HandleFunc("POST /api/llm/set-provider", rt.setProvider)
	mux.HandleFunc("POST /api/llm/add-key", rt.addProviderKey)
	mux.HandleFunc("POST /api/llm/test", rt.testProvider)

	var handler http.Handler = mux
	if rt.metrics != nil {
		mux.Handle("GET /metrics", rt.metrics.Handler())
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	handler = backpressureMiddleware(handler, rt.maxInFlight, 100*time.Millisecond)
	handler = rateLimitMiddleware(handler, rt.rateRPS, rt.rateBurst)
	handler = accessLogMiddleware(handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// availabilityProber answers a cheap liveness probe against one collaborator.
type availabilityProber interface {
	Ping(ctx context.Context) bool
}

func (rt *Router) status(w http.ResponseWriter, r *http.Request) {
	active := rt.providers.ActiveInfo()
	report := map[string]any{
		"status":           "ok",
		"qdrant_connected": rt.vector.CheckConnection(r.Context()),
		"provider":         active.Provider,
		"model":            active.Model,
	}
	if rt.embedder != nil {
		report["embedder_connected"] = rt.embedder.Ping(r.Context())
	}
	if rt.reranker != nil {
		report["reranker_connected"] = rt.reranker.Ping(r.Context())
	}
	writeJSON(w, http.StatusOK, report)
}

type chatRequest struct {
	Question    string `json:"question"`
	UserID      string `json:"user_id"`
	SessionID   string `json:"session_id"`
	SearchMode  string `json:"search_mode"`
	TopK        int    `json:"top_k"`
	UseReranker *bool  `json:"use_reranker"`
}

func (rt *Router) postChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "question is required"})
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "user_id is required"})
		return
	}
	mode, err := parseSearchMode(req.SearchMode)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	query := ports.QueryRequest{
		Question:       req.Question,
		UserID:         req.UserID,
		SearchMode:     mode,
		TopK:           req.TopK,
		RerankerWanted: req.UseReranker == nil || *req.UseReranker,
	}

	start := time.Now()
	answer, err := rt.chat.Chat(r.Context(), query, req.SessionID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if rt.metrics != nil {
		rt.metrics.RecordRAGObservation(serviceName, "/api/chat", len(answer.Sources), time.Since(start))
		rt.metrics.RecordRAGModeRequest(serviceName, "/api/chat", string(mode))
		rt.metrics.RecordStageDuration(serviceName, "search", answer.SearchTimeMs)
		rt.metrics.RecordStageDuration(serviceName, "generate", answer.GenerateTimeMs)
		if answer.RerankerUsed {
			rt.metrics.RecordRerankUsed(serviceName, "/api/chat")
		}
		if gen := answer.Usage; gen != nil {
			rt.metrics.RecordTokenUsage(serviceName, gen.Provider, gen.Model, gen.InputTokens, gen.OutputTokens)
			rt.metrics.RecordGenerationCost(serviceName, gen.Provider, gen.Model, gen.CostUSD)
		}
	}
	writeJSON(w, http.StatusOK, answer)
}

func (rt *Router) getChatHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("session_id")
	session, messages, err := rt.chat.History(r.Context(), sessionID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session":  session,
		"messages": messages,
	})
}

func (rt *Router) listChatSessions(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.PathValue("user_id"))
	if userID == "" {
		userID = strings.TrimSpace(r.URL.Query().Get("user_id"))
	}
	if userID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "user_id is required"})
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a number"})
			return
		}
		limit = n
	}

	sessions, err := rt.chat.Sessions(r.Context(), userID, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}

func (rt *Router) deleteChatSession(w http.ResponseWriter, r *http.Request) {
	if err := rt.chat.DeleteSession(r.Context(), r.PathValue("session_id")); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type searchRequest struct {
	Query       string `json:"query"`
	UserID      string `json:"user_id"`
	SearchMode  string `json:"search_mode"`
	TopK        int    `json:"top_k"`
	UseReranker *bool  `json:"use_reranker"`
}

func (rt *Router) postSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "query is required"})
		return
	}
	mode, err := parseSearchMode(req.SearchMode)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if mode == domain.SearchModeUser && strings.TrimSpace(req.UserID) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "user_id is required for user search"})
		return
	}

	result, err := rt.answers.SearchOnly(r.Context(), ports.QueryRequest{
		Question:       req.Query,
		UserID:         req.UserID,
		SearchMode:     mode,
		TopK:           req.TopK,
		RerankerWanted: req.UseReranker != nil && *req.UseReranker,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordStageDuration(serviceName, "search", result.SearchTimeMs)
	}
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) postUpload(w http.ResponseWriter, r *http.Request) {
	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	doc, err := rt.ingestor.Upload(
		r.Context(),
		r.FormValue("user_id"),
		r.FormValue("session_id"),
		fileHeader.Filename,
		fileHeader.Size,
		file,
	)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, doc)
}

func (rt *Router) getDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := rt.docs.GetByID(r.Context(), r.PathValue("document_id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (rt *Router) deleteDocument(w http.ResponseWriter, r *http.Request) {
	documentID := r.PathValue("document_id")
	if err := rt.ingestor.Delete(r.Context(), documentID); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "deleted",
		"doc_id": documentID,
	})
}

func (rt *Router) listProviders(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"providers": rt.providers.Providers()})
}

func (rt *Router) activeProvider(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, rt.providers.ActiveInfo())
}

func (rt *Router) setProvider(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Provider string `json:"provider"`
		Model    string `json:"model"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if err := rt.providers.SetActive(provider.ID(req.Provider), req.Model); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rt.providers.ActiveInfo())
}

func (rt *Router) addProviderKey(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Provider string `json:"provider"`
		APIKey   string `json:"api_key"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if err := rt.providers.AddKey(provider.ID(req.Provider), req.APIKey); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"provider": req.Provider,
	})
}

// testProvider runs a one-shot completion against the active provider so an
// operator can verify credentials before switching production traffic.
func (rt *Router) testProvider(w http.ResponseWriter, r *http.Request) {
	gen, err := rt.llm.Chat(r.Context(), []domain.ChatMessage{
		{Role: "user", Content: "Trả lời ngắn gọn: 1 + 1 bằng mấy?"},
	}, ports.ChatOptions{MaxTokens: 32})
	if err != nil {
		writeError(w, r, err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordTokenUsage(serviceName, gen.Provider, gen.Model, gen.InputTokens, gen.OutputTokens)
		rt.metrics.RecordGenerationCost(serviceName, gen.Provider, gen.Model, gen.CostUSD)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"provider": gen.Provider,
		"model":    gen.Model,
		"answer":   gen.Content,
		"cost_usd": gen.CostUSD,
	})
}

func parseSearchMode(raw string) (domain.SearchMode, error) {
	switch domain.SearchMode(strings.TrimSpace(raw)) {
	case "", domain.SearchModeHybrid:
		return domain.SearchModeHybrid, nil
	case domain.SearchModeLegal:
		return domain.SearchModeLegal, nil
	case domain.SearchModeUser:
		return domain.SearchModeUser, nil
	default:
		return "", domain.WrapError(domain.ErrInvalidInput, "parse search mode",
			errUnknownSearchMode(raw))
	}
}

type errUnknownSearchMode string

func (e errUnknownSearchMode) Error() string {
	return "unknown search_mode " + string(e) + " (expected legal, user, or hybrid)"
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := mapErrorToHTTPStatus(err)
	if status >= 500 {
		slog.Error("request_failed",
			"request_id", requestIDFromContext(r.Context()),
			"path", r.URL.Path,
			"error", err,
		)
	}
	writeJSON(w, status, map[string]string{
		"error": err.Error(),
		"kind":  domain.Kind(err),
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
