package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/snapledger/reconcile/internal/api"
	"github.com/snapledger/reconcile/internal/api/handlers"
	"github.com/snapledger/reconcile/internal/audit"
	"github.com/snapledger/reconcile/internal/auth"
	"github.com/snapledger/reconcile/internal/cache"
	"github.com/snapledger/reconcile/internal/config"
	"github.com/snapledger/reconcile/internal/database"
	"github.com/snapledger/reconcile/internal/embedding"
	"github.com/snapledger/reconcile/internal/extract"
	"github.com/snapledger/reconcile/internal/inbox"
	"github.com/snapledger/reconcile/internal/ledger"
	"github.com/snapledger/reconcile/internal/match"
	"github.com/snapledger/reconcile/internal/queue"
	"github.com/snapledger/reconcile/internal/reconcile"
	"github.com/snapledger/reconcile/internal/suggestion"
	"github.com/snapledger/reconcile/internal/tenant"
	"github.com/snapledger/reconcile/internal/vectorindex"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	if err := run(); err != nil {
		slog.Error("api server exited", "error", err)
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

	if err := database.RunMigrations(ctx, pool, cfg.Database.MigrationsPath); err != nil {
		return err
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	queueClient := queue.NewClient(cfg.Redis)
	defer queueClient.Close()

	tenantSvc := tenant.NewService(pool)
	inboxSvc := inbox.NewService(pool)
	ledgerSvc := ledger.NewService(pool)
	auditSvc := audit.NewService(pool)
	suggestionStore := suggestion.NewStore(pool)
	embeddingStore := embedding.NewPgStore(pool)

	extractSvc, err := extract.NewService(cfg.Extract)
	if err != nil {
		return err
	}

	coordinator := reconcile.NewCoordinator(pool, auditSvc)
	retriever := match.NewRetriever(vectorindex.NewPgVectorIndex(pool), ledgerSvc, cfg.Matching)
	engine := match.NewEngine(inboxSvc, embeddingStore, retriever, suggestionStore, coordinator, cache.NewLock(rdb), cfg.Matching)

	deps := api.Deps{
		Health:       handlers.NewHealthHandler(pool, rdb),
		Documents:    handlers.NewDocumentHandler(inboxSvc, extractSvc, queueClient),
		Transactions: handlers.NewTransactionHandler(ledgerSvc, queueClient),
		Suggestions:  handlers.NewSuggestionHandler(suggestionStore, coordinator),
		Admin:        handlers.NewAdminHandler(engine, queueClient, auditSvc, cfg.Matching),
		JWT:          auth.NewJWTMiddleware(cfg.Auth.JWTSecret, tenantSvc),
	}

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      api.NewRouter(cfg, deps),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("api server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
