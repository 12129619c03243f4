package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/lexivn/legal-rag-backend/internal/core/domain"
)

type fakeExtractor struct {
	text string
	err  error
}

func (f *fakeExtractor) Extract(_ context.Context, _ *domain.UserDocument) (string, error) {
	return f.text, f.err
}

type fakeSegmenter struct {
	chunks []domain.Chunk
}

func (f *fakeSegmenter) Segment(_ string) []domain.Chunk { return f.chunks }

type indexingVector struct {
	fakeVector
	indexed  int
	indexErr error
}

func (f *indexingVector) IndexChunks(_ context.Context, _ *domain.UserDocument, chunks []domain.Chunk, vectors [][]float32) error {
	if f.indexErr != nil {
		return f.indexErr
	}
	if len(chunks) != len(vectors) {
		return errors.New("chunk/vector length mismatch")
	}
	f.indexed = len(chunks)
	return nil
}

func seedDoc(store *fakeDocStore) *domain.UserDocument {
	doc := &domain.UserDocument{
		ID: "user_u-1_abcd1234", UserID: "u-1", FileName: "a.txt",
		StoragePath: "user_u-1_abcd1234.txt", Status: domain.StatusUploaded,
	}
	store.docs[doc.ID] = doc
	return doc
}

func TestProcessByIDHappyPath(t *testing.T) {
	store := newFakeDocStore()
	doc := seedDoc(store)
	vector := &indexingVector{}
	uc := NewProcessUseCase(store, &fakeExtractor{text: "Điều 1. Nội dung"}, &fakeSegmenter{
		chunks: []domain.Chunk{{Text: "Điều 1. Nội dung", Article: "1", Index: 0}},
	}, &fakeEmbedder{}, vector)

	if err := uc.ProcessByID(context.Background(), doc.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if vector.indexed != 1 {
		t.Errorf("indexed %d chunks, want 1", vector.indexed)
	}
	if store.readyWith != 1 {
		t.Errorf("MarkReady chunks = %d, want 1", store.readyWith)
	}
	if len(store.statuses) == 0 || store.statuses[0] != domain.StatusProcessing {
		t.Errorf("processing status not set first: %v", store.statuses)
	}
}

func TestProcessByIDUnknownDocument(t *testing.T) {
	uc := NewProcessUseCase(newFakeDocStore(), &fakeExtractor{}, &fakeSegmenter{}, &fakeEmbedder{}, &indexingVector{})

	err := uc.ProcessByID(context.Background(), "missing")
	if !domain.IsKind(err, domain.ErrNotFound) {
		t.Errorf("error kind = %v, want not found", err)
	}
}

func TestProcessByIDExtractFailureMarksFailed(t *testing.T) {
	store := newFakeDocStore()
	doc := seedDoc(store)
	uc := NewProcessUseCase(store, &fakeExtractor{err: errors.New("corrupt pdf")}, &fakeSegmenter{}, &fakeEmbedder{}, &indexingVector{})

	if err := uc.ProcessByID(context.Background(), doc.ID); err == nil {
		t.Fatal("expected error")
	}
	last := store.statuses[len(store.statuses)-1]
	if last != domain.StatusFailed {
		t.Errorf("final status = %s, want failed", last)
	}
	if store.lastError == "" {
		t.Error("failure cause not recorded")
	}
}

func TestProcessByIDEmptySegmentationFails(t *testing.T) {
	store := newFakeDocStore()
	doc := seedDoc(store)
	uc := NewProcessUseCase(store, &fakeExtractor{text: "   "}, &fakeSegmenter{}, &fakeEmbedder{}, &indexingVector{})

	err := uc.ProcessByID(context.Background(), doc.ID)
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Errorf("error kind = %v, want invalid input", err)
	}
	if store.docs[doc.ID].Status != domain.StatusFailed {
		t.Errorf("document not parked in failed state: %s", store.docs[doc.ID].Status)
	}
}

func TestProcessByIDIndexFailureMarksFailed(t *testing.T) {
	store := newFakeDocStore()
	doc := seedDoc(store)
	vector := &indexingVector{indexErr: errors.New("qdrant upsert rejected")}
	uc := NewProcessUseCase(store, &fakeExtractor{text: "x"}, &fakeSegmenter{
		chunks: []domain.Chunk{{Text: "x"}},
	}, &fakeEmbedder{}, vector)

	if err := uc.ProcessByID(context.Background(), doc.ID); err == nil {
		t.Fatal("expected error")
	}
	if store.docs[doc.ID].Status != domain.StatusFailed {
		t.Errorf("status = %s, want failed", store.docs[doc.ID].Status)
	}
}
