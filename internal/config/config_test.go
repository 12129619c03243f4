package config

import "testing"

func TestLoadRetrievalDefaults(t *testing.T) {
	t.Setenv("RAG_TOP_K", "")
	t.Setenv("DENSE_WEIGHT", "")
	t.Setenv("SPARSE_WEIGHT", "")
	t.Setenv("RRF_K", "")
	t.Setenv("USE_RERANKER", "")

	cfg := Load()
	if cfg.RAGTopK != 10 {
		t.Fatalf("expected default top k 10, got %d", cfg.RAGTopK)
	}
	if cfg.DenseWeight != 0.7 || cfg.SparseWeight != 0.3 {
		t.Fatalf("expected default weights 0.7/0.3, got %v/%v", cfg.DenseWeight, cfg.SparseWeight)
	}
	if cfg.RRFK != 60 {
		t.Fatalf("expected default rrf k 60, got %d", cfg.RRFK)
	}
	if !cfg.UseReranker {
		t.Fatal("expected reranker enabled by default")
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	t.Setenv("RAG_TOP_K", "8")
	t.Setenv("DENSE_WEIGHT", "0.6")
	t.Setenv("SPARSE_WEIGHT", "0.4")
	t.Setenv("RRF_K", "75")
	t.Setenv("USE_RERANKER", "false")
	t.Setenv("CHUNK_SIZE", "1200")
	t.Setenv("QDRANT_LEGAL_COLLECTION", "legal_v2")

	cfg := Load()
	if cfg.RAGTopK != 8 {
		t.Fatalf("expected top k 8, got %d", cfg.RAGTopK)
	}
	if cfg.DenseWeight != 0.6 || cfg.SparseWeight != 0.4 {
		t.Fatalf("weights = %v/%v", cfg.DenseWeight, cfg.SparseWeight)
	}
	if cfg.RRFK != 75 {
		t.Fatalf("expected rrf k 75, got %d", cfg.RRFK)
	}
	if cfg.UseReranker {
		t.Fatal("expected reranker disabled")
	}
	if cfg.ChunkSize != 1200 {
		t.Fatalf("expected chunk size 1200, got %d", cfg.ChunkSize)
	}
	if cfg.LegalCollection != "legal_v2" {
		t.Fatalf("expected collection override, got %q", cfg.LegalCollection)
	}
}

func TestLoadIgnoresMalformedNumbers(t *testing.T) {
	t.Setenv("RAG_TOP_K", "not-a-number")
	t.Setenv("DENSE_WEIGHT", "lots")

	cfg := Load()
	if cfg.RAGTopK != 10 {
		t.Fatalf("expected fallback top k 10, got %d", cfg.RAGTopK)
	}
	if cfg.DenseWeight != 0.7 {
		t.Fatalf("expected fallback dense weight 0.7, got %v", cfg.DenseWeight)
	}
}
