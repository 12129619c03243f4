package domain

import "time"

type DocumentStatus string

const (
	StatusUploaded   DocumentStatus = "uploaded"
	StatusProcessing DocumentStatus = "processing"
	StatusReady      DocumentStatus = "ready"
	StatusFailed     DocumentStatus = "failed"
)

// UserDocument is the metadata record for a user-uploaded file indexed into
// the private corpus.
type UserDocument struct {
	ID          string         `json:"doc_id"`
	UserID      string         `json:"user_id"`
	SessionID   string         `json:"session_id"`
	FileName    string         `json:"file_name"`
	StoragePath string         `json:"-"`
	FileSize    int64          `json:"file_size"`
	NumChunks   int            `json:"num_chunks"`
	Status      DocumentStatus `json:"status"`
	Error       string         `json:"error,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}
