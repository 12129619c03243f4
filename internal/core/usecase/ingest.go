package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lexivn/legal-rag-backend/internal/core/domain"
	"github.com/lexivn/legal-rag-backend/internal/core/ports"
)

const defaultMaxUploadBytes = 10 << 20

var supportedUploadExtensions = map[string]struct{}{
	".txt": {},
	".md":  {},
	".pdf": {},
}

// UploadUseCase accepts a user document, stores the raw file, records its
// metadata, and hands it to the worker through the queue for asynchronous
// indexing. It also owns the reverse path that removes a document from the
// index, the object store, and the metadata table.
type UploadUseCase struct {
	storage  ports.ObjectStorage
	docs     ports.UserDocumentStore
	queue    ports.MessageQueue
	vectors  ports.VectorRemover
	maxBytes int64
}

func NewUploadUseCase(storage ports.ObjectStorage, docs ports.UserDocumentStore, queue ports.MessageQueue, vectors ports.VectorRemover, maxBytes int64) *UploadUseCase {
	if maxBytes <= 0 {
		maxBytes = defaultMaxUploadBytes
	}
	return &UploadUseCase{storage: storage, docs: docs, queue: queue, vectors: vectors, maxBytes: maxBytes}
}

func (uc *UploadUseCase) Upload(ctx context.Context, userID, sessionID, filename string, size int64, body io.Reader) (*domain.UserDocument, error) {
	if userID == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload", fmt.Errorf("user_id is required"))
	}
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == ".docx" || ext == ".doc" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload", fmt.Errorf("định dạng Word chưa được hỗ trợ, vui lòng chuyển sang PDF hoặc TXT"))
	}
	if _, ok := supportedUploadExtensions[ext]; !ok {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload", fmt.Errorf("unsupported file type %q", ext))
	}
	if size > uc.maxBytes {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload", fmt.Errorf("file exceeds %d byte limit", uc.maxBytes))
	}

	docID := fmt.Sprintf("user_%s_%s", userID, uuid.NewString()[:8])
	storagePath := docID + ext

	if err := uc.storage.Save(ctx, storagePath, io.LimitReader(body, uc.maxBytes)); err != nil {
		return nil, fmt.Errorf("store upload %s: %w", docID, err)
	}

	now := time.Now().UTC()
	doc := &domain.UserDocument{
		ID:          docID,
		UserID:      userID,
		SessionID:   sessionID,
		FileName:    filename,
		StoragePath: storagePath,
		FileSize:    size,
		Status:      domain.StatusUploaded,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := uc.docs.Create(ctx, doc); err != nil {
		if rmErr := uc.storage.Remove(ctx, storagePath); rmErr != nil {
			slog.Warn("orphan_upload_cleanup_failed", "path", storagePath, "error", rmErr)
		}
		return nil, fmt.Errorf("record upload %s: %w", docID, err)
	}

	if err := uc.queue.PublishDocumentIngested(ctx, docID); err != nil {
		return nil, fmt.Errorf("enqueue upload %s: %w", docID, err)
	}

	slog.Info("document_uploaded", "doc_id", docID, "user_id", userID, "file_name", filename, "size", size)
	return doc, nil
}

// Delete removes a document's vectors, its stored file, and its metadata row.
// Vectors go first so a partial failure never leaves orphaned points behind a
// deleted metadata row.
func (uc *UploadUseCase) Delete(ctx context.Context, documentID string) error {
	doc, err := uc.docs.GetByID(ctx, documentID)
	if err != nil {
		return err
	}

	if err := uc.vectors.DeleteByDocID(ctx, documentID); err != nil {
		return fmt.Errorf("remove vectors %s: %w", documentID, err)
	}
	if err := uc.storage.Remove(ctx, doc.StoragePath); err != nil {
		slog.Warn("stored_file_removal_failed", "doc_id", documentID, "path", doc.StoragePath, "error", err)
	}
	if err := uc.docs.Delete(ctx, documentID); err != nil {
		return fmt.Errorf("delete document record %s: %w", documentID, err)
	}

	slog.Info("document_deleted", "doc_id", documentID, "user_id", doc.UserID)
	return nil
}
