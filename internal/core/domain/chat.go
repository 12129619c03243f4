package domain

import "time"

type ChatSession struct {
	ID        int64     `json:"-"`
	SessionID string    `json:"session_id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type StoredMessage struct {
	ID           int64     `json:"id"`
	SessionRowID int64     `json:"-"`
	Role         string    `json:"role"`
	Content      string    `json:"content"`
	SearchMode   string    `json:"search_mode,omitempty"`
	RerankerUsed bool      `json:"reranker_used"`
	CreatedAt    time.Time `json:"created_at"`
}

type ChatAnswer struct {
	Answer         string   `json:"answer"`
	Sources        []Source `json:"sources"`
	MessageID      int64    `json:"message_id"`
	SessionID      string   `json:"session_id"`
	SearchTimeMs   float64  `json:"search_time_ms"`
	GenerateTimeMs float64  `json:"generate_time_ms"`
	TotalTimeMs    float64  `json:"total_time_ms"`
	RerankerUsed   bool     `json:"reranker_used"`

	// Usage is the pipeline's token and cost accounting, kept for metrics
	// and never serialized to clients.
	Usage *Generation `json:"-"`
}
