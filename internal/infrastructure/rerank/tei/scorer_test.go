package tei

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestScoreMapsIndicesBackToInputOrder(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rerank" {
			http.NotFound(w, r)
			return
		}
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &captured)
		// Endpoint returns results sorted by score, not input order.
		_, _ = w.Write([]byte(`[{"index":2,"score":0.9},{"index":0,"score":0.4},{"index":1,"score":0.1}]`))
	}))
	defer server.Close()

	scorer := New(server.URL)
	scores, err := scorer.Score(context.Background(), "mức phạt", []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}
	want := []float64{0.4, 0.1, 0.9}
	for i := range want {
		if scores[i] != want[i] {
			t.Errorf("scores[%d] = %v, want %v", i, scores[i], want[i])
		}
	}
	if captured["query"] != "mức phạt" {
		t.Errorf("query = %v", captured["query"])
	}
	texts, ok := captured["texts"].([]any)
	if !ok || len(texts) != 3 {
		t.Errorf("texts = %v", captured["texts"])
	}
}

func TestScoreMissingIndexFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"index":0,"score":0.9}]`))
	}))
	defer server.Close()

	scorer := New(server.URL)
	if _, err := scorer.Score(context.Background(), "q", []string{"a", "b"}); err == nil {
		t.Fatal("expected error for missing score")
	}
}

func TestScoreOutOfRangeIndexFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"index":5,"score":0.9}]`))
	}))
	defer server.Close()

	scorer := New(server.URL)
	if _, err := scorer.Score(context.Background(), "q", []string{"a"}); err == nil {
		t.Fatal("expected error for out-of-range index")
	}
}

func TestScoreServerErrorIncludesBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	scorer := New(server.URL)
	_, err := scorer.Score(context.Background(), "q", []string{"a"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "model not loaded") {
		t.Errorf("error missing body: %v", err)
	}
}

func TestScoreEmptyDocumentsSkipsRequest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("request sent for empty documents")
	}))
	defer server.Close()

	scores, err := New(server.URL).Score(context.Background(), "q", nil)
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}
	if scores != nil {
		t.Errorf("scores = %v", scores)
	}
}
