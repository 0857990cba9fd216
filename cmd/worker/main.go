package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/snapledger/reconcile/internal/audit"
	"github.com/snapledger/reconcile/internal/cache"
	"github.com/snapledger/reconcile/internal/config"
	"github.com/snapledger/reconcile/internal/database"
	"github.com/snapledger/reconcile/internal/embedding"
	"github.com/snapledger/reconcile/internal/extract"
	"github.com/snapledger/reconcile/internal/inbox"
	"github.com/snapledger/reconcile/internal/ledger"
	"github.com/snapledger/reconcile/internal/match"
	"github.com/snapledger/reconcile/internal/queue"
	"github.com/snapledger/reconcile/internal/queue/workers"
	"github.com/snapledger/reconcile/internal/reconcile"
	"github.com/snapledger/reconcile/internal/suggestion"
	"github.com/snapledger/reconcile/internal/vectorindex"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	if err := run(); err != nil {
		slog.Error("worker exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := database.NewPool(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	queueClient := queue.NewClient(cfg.Redis)
	defer queueClient.Close()

	inboxSvc := inbox.NewService(pool)
	ledgerSvc := ledger.NewService(pool)
	auditSvc := audit.NewService(pool)
	suggestionStore := suggestion.NewStore(pool)
	embeddingStore := embedding.NewPgStore(pool)
	provider := embedding.NewOpenAIProvider(cfg.Embedding)

	extractSvc, err := extract.NewService(cfg.Extract)
	if err != nil {
		return err
	}

	coordinator := reconcile.NewCoordinator(pool, auditSvc)
	retriever := match.NewRetriever(vectorindex.NewPgVectorIndex(pool), ledgerSvc, cfg.Matching)
	engine := match.NewEngine(inboxSvc, embeddingStore, retriever, suggestionStore, coordinator, cache.NewLock(rdb), cfg.Matching)

	registry := queue.NewHandlersRegistry()
	registry.Register(queue.TypeDocumentExtract, workers.NewExtractWorker(inboxSvc, extractSvc, queueClient))
	registry.Register(queue.TypeEmbeddingGenerate, workers.NewEmbeddingWorker(inboxSvc, ledgerSvc, provider, embeddingStore, queueClient))
	registry.Register(queue.TypeMatchScore, workers.NewScoreWorker(engine))
	registry.Register(queue.TypeSuggestionExpire, workers.NewExpireWorker(suggestionStore))

	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
		},
	)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("worker starting", "redis", cfg.Redis.Addr)
		if err := srv.Run(registry.Mux()); err != nil {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down worker")
	srv.Shutdown()
	return nil
}
