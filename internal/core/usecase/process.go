package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lexivn/legal-rag-backend/internal/core/domain"
	"github.com/lexivn/legal-rag-backend/internal/core/ports"
)

// ProcessUseCase turns an uploaded file into indexed chunks: extract text,
// segment, embed, and upsert into the private corpus. It owns the document
// status transitions; any stage failure parks the document in failed state
// with the cause recorded.
type ProcessUseCase struct {
	docs      ports.UserDocumentStore
	extractor ports.TextExtractor
	segmenter ports.Segmenter
	embedder  ports.Embedder
	vector    ports.VectorSearcher
}

func NewProcessUseCase(
	docs ports.UserDocumentStore,
	extractor ports.TextExtractor,
	segmenter ports.Segmenter,
	embedder ports.Embedder,
	vector ports.VectorSearcher,
) *ProcessUseCase {
	return &ProcessUseCase{
		docs:      docs,
		extractor: extractor,
		segmenter: segmenter,
		embedder:  embedder,
		vector:    vector,
	}
}

func (uc *ProcessUseCase) ProcessByID(ctx context.Context, documentID string) error {
	doc, err := uc.docs.GetByID(ctx, documentID)
	if err != nil {
		return fmt.Errorf("load document %s: %w", documentID, err)
	}

	if err := uc.docs.UpdateStatus(ctx, doc.ID, domain.StatusProcessing, ""); err != nil {
		return fmt.Errorf("mark processing %s: %w", doc.ID, err)
	}

	if err := uc.process(ctx, doc); err != nil {
		if stErr := uc.docs.UpdateStatus(ctx, doc.ID, domain.StatusFailed, err.Error()); stErr != nil {
			slog.Error("failure_status_update_failed", "doc_id", doc.ID, "error", stErr)
		}
		return err
	}
	return nil
}

func (uc *ProcessUseCase) process(ctx context.Context, doc *domain.UserDocument) error {
	text, err := uc.extractor.Extract(ctx, doc)
	if err != nil {
		return fmt.Errorf("extract %s: %w", doc.ID, err)
	}

	chunks := uc.segmenter.Segment(text)
	if len(chunks) == 0 {
		return domain.WrapError(domain.ErrInvalidInput, "segment "+doc.ID, fmt.Errorf("document produced no chunks"))
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := uc.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed %s: %w", doc.ID, err)
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("embed %s: got %d vectors for %d chunks", doc.ID, len(vectors), len(chunks))
	}

	if err := uc.vector.IndexChunks(ctx, doc, chunks, vectors); err != nil {
		return fmt.Errorf("index %s: %w", doc.ID, err)
	}

	if err := uc.docs.MarkReady(ctx, doc.ID, len(chunks)); err != nil {
		return fmt.Errorf("mark ready %s: %w", doc.ID, err)
	}

	slog.Info("document_indexed", "doc_id", doc.ID, "chunks", len(chunks))
	return nil
}
