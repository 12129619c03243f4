package httpadapter

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRequestIDMiddlewareGeneratesAndEchoes(t *testing.T) {
	var seen string
	h := requestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = requestIDFromContext(r.Context())
	}))

	res := httptest.NewRecorder()
	h.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/", nil))
	if seen == "" {
		t.Fatal("no request ID placed in context")
	}
	if res.Header().Get(requestIDHeader) != seen {
		t.Errorf("response header = %q, context = %q", res.Header().Get(requestIDHeader), seen)
	}
}

func TestRequestIDMiddlewareKeepsCallerID(t *testing.T) {
	var seen string
	h := requestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = requestIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, "req-42")
	res := httptest.NewRecorder()
	h.ServeHTTP(res, req)
	if seen != "req-42" {
		t.Errorf("context ID = %q, want req-42", seen)
	}
	if res.Header().Get(requestIDHeader) != "req-42" {
		t.Errorf("response header = %q, want req-42", res.Header().Get(requestIDHeader))
	}
}

func TestResponseRecorderCapturesStatusAndSize(t *testing.T) {
	rec := &responseRecorder{ResponseWriter: httptest.NewRecorder(), status: http.StatusOK}
	rec.WriteHeader(http.StatusNotFound)
	if _, err := rec.Write([]byte("missing")); err != nil {
		t.Fatal(err)
	}
	if rec.status != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.status)
	}
	if rec.written != int64(len("missing")) {
		t.Errorf("written = %d, want %d", rec.written, len("missing"))
	}
}

func TestLevelForStatus(t *testing.T) {
	cases := []struct {
		status int
		want   slog.Level
	}{
		{http.StatusOK, slog.LevelInfo},
		{http.StatusNoContent, slog.LevelInfo},
		{http.StatusBadRequest, slog.LevelWarn},
		{http.StatusNotFound, slog.LevelWarn},
		{http.StatusInternalServerError, slog.LevelError},
		{http.StatusServiceUnavailable, slog.LevelError},
	}
	for _, tc := range cases {
		if got := levelForStatus(tc.status); got != tc.want {
			t.Errorf("levelForStatus(%d) = %v, want %v", tc.status, got, tc.want)
		}
	}
}
