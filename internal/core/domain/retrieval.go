package domain

import "encoding/json"

type SearchMode string

const (
	SearchModeLegal  SearchMode = "legal"
	SearchModeUser   SearchMode = "user"
	SearchModeHybrid SearchMode = "hybrid"
)

// Collection identifies one of the two retrieval corpora.
type Collection string

const (
	CollectionLegal Collection = "legal"
	CollectionUser  Collection = "user"
)

const (
	SourceTypeLegal = "legal"
	SourceTypeUser  = "user_document"
)

type SearchFilter struct {
	UserID string
}

// Hit is a single ranked result from one retrieval modality. The ID is
// stable across the dense and sparse calls that produce it, which is what
// allows score merging by identity during fusion.
type Hit struct {
	ID          string   `json:"id"`
	Text        string   `json:"text"`
	DieuNumber  string   `json:"dieu_number,omitempty"`
	KhoanNumber string   `json:"khoan_number,omitempty"`
	FileName    string   `json:"file_name,omitempty"`
	SourceType  string   `json:"source_type"`
	DenseScore  *float64 `json:"dense_score,omitempty"`
	SparseScore *float64 `json:"sparse_score,omitempty"`
}

// MaxRawScore is the highest raw sub-score present on the hit, used as the
// secondary ordering criterion after fusion.
func (h Hit) MaxRawScore() float64 {
	max := 0.0
	if h.DenseScore != nil {
		max = *h.DenseScore
	}
	if h.SparseScore != nil && *h.SparseScore > max {
		max = *h.SparseScore
	}
	return max
}

// FusedResult is a Hit with its aggregate reciprocal-rank-fusion score.
// The rerank score is attached later by the rerank pass; everything else is
// immutable once produced.
type FusedResult struct {
	Hit
	FusionScore float64  `json:"score"`
	RerankScore *float64 `json:"rerank_score,omitempty"`
}

// Chunk is one retrievable text span produced at ingestion time.
type Chunk struct {
	Text    string
	Article string // article number ("5", "3a") when structurally split
	Index   int
}

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Generation is the result of one chat-completion call, with resolved
// provider/model and cost accounting.
type Generation struct {
	Content      string          `json:"content"`
	Provider     string          `json:"provider"`
	Model        string          `json:"model"`
	InputTokens  int             `json:"input_tokens"`
	OutputTokens int             `json:"output_tokens"`
	CostUSD      float64         `json:"cost_usd"`
	Raw          json.RawMessage `json:"-"`
}

// Source is one formatted citation returned to the caller.
type Source struct {
	Text        string   `json:"text"`
	SourceType  string   `json:"source_type"`
	DieuNumber  string   `json:"dieu_number,omitempty"`
	KhoanNumber string   `json:"khoan_number,omitempty"`
	FileName    string   `json:"file_name,omitempty"`
	Score       float64  `json:"score"`
	RerankScore *float64 `json:"rerank_score,omitempty"`
	Rank        int      `json:"rank"`
}

type QueryResult struct {
	Answer         string   `json:"answer"`
	Sources        []Source `json:"sources"`
	SearchTimeMs   float64  `json:"search_time_ms"`
	GenerateTimeMs float64  `json:"generate_time_ms"`
	TotalTimeMs    float64  `json:"total_time_ms"`
	RerankerUsed   bool     `json:"reranker_used"`

	// Usage carries the generation's token and cost accounting for metrics;
	// it is nil on the no-context path and never serialized to clients.
	Usage *Generation `json:"-"`
}

type SearchResult struct {
	Results      []Source `json:"results"`
	Total        int      `json:"total"`
	Query        string   `json:"query"`
	SearchMode   string   `json:"search_mode"`
	SearchTimeMs float64  `json:"search_time_ms"`
}
