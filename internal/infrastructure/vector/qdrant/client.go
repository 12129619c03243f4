package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lexivn/legal-rag-backend/internal/core/domain"
	"github.com/lexivn/legal-rag-backend/internal/infrastructure/resilience"
)

const (
	denseVectorName  = "dense"
	sparseVectorName = "bm25"

	denseScoreThreshold = 0.3
)

// Client talks to Qdrant over its REST API. Each logical collection carries a
// named dense vector and a named bm25 sparse vector; the shared legal corpus
// is read-only here, the user corpus is created on first index.
type Client struct {
	baseURL         string
	legalCollection string
	userCollection  string
	httpClient      *http.Client
	executor        *resilience.Executor

	ensureMu          sync.Mutex
	ensuredCollection bool
	ensuredVectorSize int
}

type Options struct {
	Timeout            time.Duration
	ResilienceExecutor *resilience.Executor
}

func New(baseURL, legalCollection, userCollection string) *Client {
	return NewWithOptions(baseURL, legalCollection, userCollection, Options{})
}

func NewWithOptions(baseURL, legalCollection, userCollection string, options Options) *Client {
	timeout := options.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL:         strings.TrimRight(baseURL, "/"),
		legalCollection: legalCollection,
		userCollection:  userCollection,
		httpClient:      &http.Client{Timeout: timeout},
		executor:        options.ResilienceExecutor,
	}
}

// execute routes a call through the resilience executor when one is wired.
func (c *Client) execute(ctx context.Context, operation string, call func(context.Context) error) error {
	if c.executor == nil {
		return call(ctx)
	}
	return c.executor.Execute(ctx, operation, call, classifyQdrantError)
}

func (c *Client) collectionName(collection domain.Collection) string {
	if collection == domain.CollectionUser {
		return c.userCollection
	}
	return c.legalCollection
}

func (c *Client) SearchDense(
	ctx context.Context,
	collection domain.Collection,
	vector []float32,
	limit int,
	filter domain.SearchFilter,
) ([]domain.Hit, error) {
	reqBody := map[string]any{
		"query":           vector,
		"using":           denseVectorName,
		"limit":           limit,
		"with_payload":    true,
		"score_threshold": denseScoreThreshold,
	}
	if f := buildFilter(filter); f != nil {
		reqBody["filter"] = f
	}
	return c.queryPoints(ctx, collection, reqBody, true)
}

func (c *Client) SearchSparse(
	ctx context.Context,
	collection domain.Collection,
	query string,
	limit int,
	filter domain.SearchFilter,
) ([]domain.Hit, error) {
	sparse := encodeSparseQuery(query)
	if len(sparse.Indices) == 0 {
		return nil, nil
	}

	reqBody := map[string]any{
		"query":        sparse,
		"using":        sparseVectorName,
		"limit":        limit,
		"with_payload": true,
	}
	if f := buildFilter(filter); f != nil {
		reqBody["filter"] = f
	}
	return c.queryPoints(ctx, collection, reqBody, false)
}

type pointsQueryResponse struct {
	Result struct {
		Points []struct {
			ID      any            `json:"id"`
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"points"`
	} `json:"result"`
}

func (c *Client) queryPoints(ctx context.Context, collection domain.Collection, reqBody map[string]any, dense bool) ([]domain.Hit, error) {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal query body: %w", err)
	}

	url := fmt.Sprintf("%s/collections/%s/points/query", c.baseURL, c.collectionName(collection))
	var queryResp pointsQueryResponse
	call := func(callCtx context.Context) error {
		req, err := http.NewRequestWithContext(callCtx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create query request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("qdrant query request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 300 {
			return newHTTPStatusError("query", resp)
		}
		queryResp = pointsQueryResponse{}
		if err := json.NewDecoder(resp.Body).Decode(&queryResp); err != nil {
			return fmt.Errorf("decode query response: %w", err)
		}
		return nil
	}
	if err := c.execute(ctx, "qdrant.query", call); err != nil {
		return nil, err
	}

	out := make([]domain.Hit, 0, len(queryResp.Result.Points))
	for _, p := range queryResp.Result.Points {
		hit := domain.Hit{
			ID:          fmt.Sprintf("%v", p.ID),
			Text:        firstStringPayload(p.Payload, "text", "content"),
			DieuNumber:  firstStringPayload(p.Payload, "dieu_number", "dieu"),
			KhoanNumber: firstStringPayload(p.Payload, "khoan_number", "khoan"),
			FileName:    firstStringPayload(p.Payload, "file_name"),
			SourceType:  firstStringPayload(p.Payload, "source_type"),
		}
		if hit.SourceType == "" {
			hit.SourceType = domain.SourceTypeLegal
		}
		score := p.Score
		if dense {
			hit.DenseScore = &score
		} else {
			hit.SparseScore = &score
		}
		out = append(out, hit)
	}
	return out, nil
}

func (c *Client) IndexChunks(ctx context.Context, doc *domain.UserDocument, chunks []domain.Chunk, vectors [][]float32) error {
	if len(chunks) == 0 || len(vectors) == 0 {
		return nil
	}
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunks/vectors mismatch")
	}

	if err := c.ensureUserCollection(ctx, len(vectors[0])); err != nil {
		return err
	}

	type point struct {
		ID      string         `json:"id"`
		Vector  map[string]any `json:"vector"`
		Payload map[string]any `json:"payload"`
	}

	points := make([]point, 0, len(chunks))
	for i, chunk := range chunks {
		payload := map[string]any{
			"text":        chunk.Text,
			"doc_id":      doc.ID,
			"user_id":     doc.UserID,
			"session_id":  doc.SessionID,
			"file_name":   doc.FileName,
			"chunk_index": i,
			"source_type": domain.SourceTypeUser,
		}
		if chunk.Article != "" {
			payload["dieu_number"] = chunk.Article
		}
		points = append(points, point{
			ID: uuid.NewString(),
			Vector: map[string]any{
				denseVectorName:  vectors[i],
				sparseVectorName: encodeSparseDocument(chunk.Text, doc.FileName),
			},
			Payload: payload,
		})
	}

	body, err := json.Marshal(map[string]any{"points": points})
	if err != nil {
		return fmt.Errorf("marshal upsert body: %w", err)
	}

	url := fmt.Sprintf("%s/collections/%s/points?wait=true", c.baseURL, c.userCollection)
	return c.execute(ctx, "qdrant.upsert", func(callCtx context.Context) error {
		req, err := http.NewRequestWithContext(callCtx, http.MethodPut, url, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create upsert request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("qdrant upsert request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 300 {
			return newHTTPStatusError("upsert", resp)
		}
		return nil
	})
}

// DeleteByDocID removes all points of one user document.
func (c *Client) DeleteByDocID(ctx context.Context, docID string) error {
	body, err := json.Marshal(map[string]any{
		"filter": map[string]any{
			"must": []map[string]any{
				{"key": "doc_id", "match": map[string]any{"value": docID}},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("marshal delete body: %w", err)
	}

	url := fmt.Sprintf("%s/collections/%s/points/delete?wait=true", c.baseURL, c.userCollection)
	return c.execute(ctx, "qdrant.delete", func(callCtx context.Context) error {
		req, err := http.NewRequestWithContext(callCtx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create delete request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("qdrant delete request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 300 {
			return newHTTPStatusError("delete", resp)
		}
		return nil
	})
}

func (c *Client) CheckConnection(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/collections", nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode < 300
}

func (c *Client) ensureUserCollection(ctx context.Context, vectorSize int) error {
	c.ensureMu.Lock()
	if c.ensuredCollection && c.ensuredVectorSize == vectorSize {
		c.ensureMu.Unlock()
		return nil
	}
	c.ensureMu.Unlock()

	reqBody := map[string]any{
		"vectors": map[string]any{
			denseVectorName: map[string]any{
				"size":     vectorSize,
				"distance": "Cosine",
			},
		},
		"sparse_vectors": map[string]any{
			sparseVectorName: map[string]any{},
		},
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal create collection body: %w", err)
	}

	url := fmt.Sprintf("%s/collections/%s", c.baseURL, c.userCollection)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create collection request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant ensure collection request: %w", err)
	}
	defer resp.Body.Close()

	// 200/201 for create, 409 if it already exists.
	if resp.StatusCode == http.StatusConflict {
		c.markCollectionEnsured(vectorSize)
		return nil
	}
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		if msg := strings.TrimSpace(string(body)); msg != "" {
			return fmt.Errorf("qdrant ensure collection status: %s: %s", resp.Status, msg)
		}
		return fmt.Errorf("qdrant ensure collection status: %s", resp.Status)
	}
	c.markCollectionEnsured(vectorSize)
	return nil
}

func (c *Client) markCollectionEnsured(vectorSize int) {
	c.ensureMu.Lock()
	defer c.ensureMu.Unlock()
	c.ensuredCollection = true
	c.ensuredVectorSize = vectorSize
}

func buildFilter(filter domain.SearchFilter) map[string]any {
	if filter.UserID == "" {
		return nil
	}
	return map[string]any{
		"must": []map[string]any{
			{
				"key": "user_id",
				"match": map[string]any{
					"value": filter.UserID,
				},
			},
		},
	}
}

func firstStringPayload(payload map[string]any, keys ...string) string {
	for _, key := range keys {
		v, ok := payload[key]
		if !ok || v == nil {
			continue
		}
		if s, ok := v.(string); ok {
			if s != "" {
				return s
			}
			continue
		}
		return fmt.Sprintf("%v", v)
	}
	return ""
}
