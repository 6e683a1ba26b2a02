// Package main provides the screening worker entry point.
// The worker drains the durable queue and drives candidates through the
// five-stage pipeline: text extraction, structured extraction, embedding,
// scoring, and explanation.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fairyhunter13/cv-screening-pipeline/internal/adapter/ai/aimock"
	"github.com/fairyhunter13/cv-screening-pipeline/internal/adapter/ai/openai"
	"github.com/fairyhunter13/cv-screening-pipeline/internal/adapter/observability"
	"github.com/fairyhunter13/cv-screening-pipeline/internal/adapter/queue/dbqueue"
	"github.com/fairyhunter13/cv-screening-pipeline/internal/adapter/repo/postgres"
	"github.com/fairyhunter13/cv-screening-pipeline/internal/adapter/storage/local"
	"github.com/fairyhunter13/cv-screening-pipeline/internal/adapter/textextractor/tika"
	"github.com/fairyhunter13/cv-screening-pipeline/internal/app"
	"github.com/fairyhunter13/cv-screening-pipeline/internal/config"
	"github.com/fairyhunter13/cv-screening-pipeline/internal/domain"
	"github.com/fairyhunter13/cv-screening-pipeline/internal/usecase"
)

func main() {
	if err := run(); err != nil {
		slog.Error("worker exited with error", slog.Any("error", err))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := observability.SetupLogger(cfg)
	slog.SetDefault(logger)
	slog.Info("starting worker", slog.String("env", cfg.AppEnv))

	shutdownTracer, err := observability.SetupTracing(cfg)
	if err != nil {
		slog.Error("tracing setup failed", slog.Any("error", err))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	if err := postgres.Migrate(cfg.DBURL); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	pool, err := postgres.NewPool(ctx, cfg.DBURL)
	if err != nil {
		return fmt.Errorf("database connect: %w", err)
	}
	defer pool.Close()

	scoreConfigs := postgres.NewScoreConfigRepo(pool)
	if err := app.EnsureScoreConfig(ctx, scoreConfigs); err != nil {
		return err
	}

	if cfg.StorageBackend != "local" {
		return fmt.Errorf("storage backend %q not supported: %w", cfg.StorageBackend, domain.ErrInvalidArgument)
	}
	store, err := local.New(cfg.StoragePath)
	if err != nil {
		return err
	}

	var ai domain.AIClient
	if cfg.OpenAIAPIKey == "" && !cfg.IsProd() {
		slog.Warn("OPENAI_API_KEY not set; using deterministic mock AI client")
		ai = aimock.New(cfg.EmbeddingDims)
	} else {
		ai = openai.New(cfg)
	}

	queue := postgres.NewQueueRepo(pool)
	candidates := postgres.NewCandidateRepo(pool)
	documents := postgres.NewDocumentRepo(pool)
	jobs := postgres.NewJobRepo(pool)
	extractions := postgres.NewExtractionRepo(pool)
	embeddings := postgres.NewEmbeddingRepo(pool)
	scores := postgres.NewScoreRepo(pool)
	explanations := postgres.NewExplanationRepo(pool)

	extractor := tika.New(cfg.TikaURL)
	handlers := map[domain.Stage]dbqueue.StageHandler{
		domain.StageTextExtract: usecase.NewTextExtractService(documents, store, extractor),
		domain.StageLLMExtract:  usecase.NewLLMExtractService(candidates, jobs, documents, extractions, store, ai, cfg.LLMModel),
		domain.StageEmbed:       usecase.NewEmbedService(extractions, embeddings, ai),
		domain.StageScore:       usecase.NewScoreService(extractions, embeddings, scores, scoreConfigs),
		domain.StageExplain:     usecase.NewExplainService(candidates, extractions, scores, explanations, ai),
	}

	observability.InitMetrics()
	opsSrv := startOpsServer(cfg, pool)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = opsSrv.Shutdown(shutdownCtx)
	}()

	reconciler := app.NewReconciler(queue, candidates, cfg.StuckThreshold, cfg.ReconcileInterval, cfg.MaxRetries, cfg.BatchSize)
	go reconciler.Run(ctx)

	runner := dbqueue.NewRunner(queue, candidates, handlers, cfg.PollInterval, cfg.MaxRetries, cfg.Workers)
	runner.Run(ctx)

	slog.Info("worker stopped")
	return nil
}

// startOpsServer exposes /metrics, /healthz and /readyz on the metrics port.
// Readiness reflects database connectivity.
func startOpsServer(cfg config.Config, pool *pgxpool.Pool) *http.Server {
	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/readyz", func(w http.ResponseWriter, req *http.Request) {
		ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
		defer cancel()
		if err := pool.Ping(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("database unreachable"))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.MetricsPort),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		slog.Info("ops server listening", slog.Int("port", cfg.MetricsPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("ops server error", slog.Any("error", err))
		}
	}()
	return srv
}
