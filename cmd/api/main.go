package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/lexivn/legal-rag-backend/internal/adapters/http"
	"github.com/lexivn/legal-rag-backend/internal/bootstrap"
	"github.com/lexivn/legal-rag-backend/internal/config"
	"github.com/lexivn/legal-rag-backend/internal/observability/logging"
	"github.com/lexivn/legal-rag-backend/internal/observability/metrics"
)

func main() {
	cfg := config.Load()
	logging.Setup("api", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		slog.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	router := httpadapter.NewRouter(httpadapter.RouterOptions{
		Chat:      app.ChatUC,
		Answers:   app.AnswerUC,
		Ingestor:  app.UploadUC,
		Documents: app.Documents,
		Providers: app.Providers,
		LLM:       app.LLM,
		Vector:    app.Vector,
		Embedder:  app.Embedder,
		Reranker:  app.Reranker,
		Metrics:   metrics.NewHTTPServerMetrics("api"),

		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
	})

	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      router.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("api_listening", "port", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("api_server_failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("api_shutdown_failed", "error", err)
	}
}
