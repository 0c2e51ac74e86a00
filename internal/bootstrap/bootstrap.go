package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/akorchagin/policy-rag/internal/config"
	"github.com/akorchagin/policy-rag/internal/core/domain"
	"github.com/akorchagin/policy-rag/internal/core/ports"
	"github.com/akorchagin/policy-rag/internal/core/usecase"
	"github.com/akorchagin/policy-rag/internal/infrastructure/llm/ollama"
	"github.com/akorchagin/policy-rag/internal/infrastructure/repository/postgres"
	"github.com/akorchagin/policy-rag/internal/infrastructure/resilience"
	"github.com/akorchagin/policy-rag/internal/infrastructure/vector/qdrant"
	"github.com/akorchagin/policy-rag/internal/observability/logging"
	"github.com/akorchagin/policy-rag/internal/observability/metrics"
)

type App struct {
	Config  config.Config
	Metrics *metrics.HTTPServerMetrics
	QueryUC ports.PolicyQueryService

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	logger := logging.NewJSONLogger("policy-rag-api", cfg.LogLevel)
	slog.SetDefault(logger)

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	directory := postgres.NewDocumentDirectory(db)

	guardCfg := resilience.DefaultConfig()
	guardCfg.Enabled = cfg.BreakerEnabled
	guard := resilience.NewGuard(guardCfg)

	ollamaClient := ollama.New(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel, ollama.Options{
		Temperature: cfg.LLMTemperature,
		MaxTokens:   cfg.LLMMaxTokens,
		Guard:       guard,
	})
	embedder := ollama.NewEmbedder(ollamaClient)
	generator := ollama.NewGenerator(ollamaClient)

	index := qdrant.NewWithOptions(cfg.QdrantURL, cfg.QdrantCollection, qdrant.Options{
		Guard: guard,
	})

	// Reconcile eagerly with the configured dimension so drift is caught at
	// startup rather than on the first query. A dimension mismatch on live
	// data is fatal; a merely unreachable index is not, the per-query
	// reconciler will pick it up once Qdrant is back.
	if err := usecase.NewCollectionReconciler(index).Ensure(ctx, cfg.EmbeddingDimension); err != nil {
		if domain.IsKind(err, domain.ErrDimensionMismatch) {
			_ = db.Close()
			return nil, fmt.Errorf("reconcile collection at startup: %w", err)
		}
		slog.Warn("startup_reconcile_deferred", "error", err)
	}

	queryUC := usecase.NewQueryUseCase(embedder, index, directory, generator, usecase.QueryOptions{
		TopK:                cfg.RAGTopK,
		OverfetchFactor:     cfg.RAGOverfetchFactor,
		PromptExcerptChars:  cfg.ExcerptPromptChars,
		DisplayExcerptChars: cfg.ExcerptDisplayChars,
		GroundedThreshold:   cfg.ConfidenceThreshold,
	})

	return &App{
		Config:  cfg,
		Metrics: metrics.NewHTTPServerMetrics("policy-rag-api"),
		QueryUC: queryUC,

		closeFn: func() {
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
