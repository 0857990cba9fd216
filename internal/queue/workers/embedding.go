package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/snapledger/reconcile/internal/embedding"
	"github.com/snapledger/reconcile/internal/inbox"
	"github.com/snapledger/reconcile/internal/ledger"
	"github.com/snapledger/reconcile/internal/queue"
)

// EmbeddingWorker writes one vector per owner entity. A document with a
// failed embedding still gets scored: the scoring task is enqueued before
// the failure is propagated for retry, and the retriever falls back to
// the deterministic candidate path until a vector exists.
type EmbeddingWorker struct {
	inboxSvc    *inbox.Service
	ledgerSvc   *ledger.Service
	provider    embedding.Provider
	store       embedding.Store
	queueClient *queue.Client
}

func NewEmbeddingWorker(inboxSvc *inbox.Service, ledgerSvc *ledger.Service, provider embedding.Provider, store embedding.Store, qc *queue.Client) *EmbeddingWorker {
	return &EmbeddingWorker{
		inboxSvc:    inboxSvc,
		ledgerSvc:   ledgerSvc,
		provider:    provider,
		store:       store,
		queueClient: qc,
	}
}

func (w *EmbeddingWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload queue.EmbeddingGeneratePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	ownerID, err := uuid.Parse(payload.OwnerID)
	if err != nil {
		return fmt.Errorf("parse owner ID: %w", err)
	}
	tenantID, err := uuid.Parse(payload.TenantID)
	if err != nil {
		return fmt.Errorf("parse tenant ID: %w", err)
	}

	switch payload.OwnerType {
	case embedding.OwnerDocument:
		return w.embedDocument(ctx, tenantID, ownerID)
	case embedding.OwnerTransaction:
		return w.embedTransaction(ctx, tenantID, ownerID)
	default:
		return fmt.Errorf("unknown owner type %q", payload.OwnerType)
	}
}

func (w *EmbeddingWorker) embedDocument(ctx context.Context, tenantID, docID uuid.UUID) error {
	doc, err := w.inboxSvc.Get(ctx, tenantID, docID)
	if err != nil {
		return fmt.Errorf("get document: %w", err)
	}

	text := inbox.EmbeddingText(doc)
	if text == "" {
		slog.Info("document has no text to embed", "document_id", docID)
		return w.queueClient.EnqueueMatchScore(tenantID, docID)
	}

	vec, embedErr := w.provider.Embed(ctx, text)
	if embedErr == nil {
		if err := w.store.Put(ctx, embedding.Record{
			OwnerType:  embedding.OwnerDocument,
			OwnerID:    docID,
			TenantID:   tenantID,
			Vector:     vec,
			SourceText: text,
			Model:      w.provider.Model(),
		}); err != nil {
			return fmt.Errorf("store document embedding: %w", err)
		}
	} else {
		slog.Warn("embedding provider failed, document will be scored without a vector",
			"document_id", docID, "error", embedErr)
	}

	if err := w.queueClient.EnqueueMatchScore(tenantID, docID); err != nil {
		return fmt.Errorf("enqueue scoring: %w", err)
	}

	if embedErr != nil {
		// Propagate for retry; the rescore after a successful retry picks
		// the vector up.
		return fmt.Errorf("embed document: %w", embedErr)
	}
	return nil
}

func (w *EmbeddingWorker) embedTransaction(ctx context.Context, tenantID, txnID uuid.UUID) error {
	txn, err := w.ledgerSvc.Get(ctx, tenantID, txnID)
	if err != nil {
		return fmt.Errorf("get transaction: %w", err)
	}

	text := ledger.EmbeddingText(txn)
	if text == "" {
		// A transaction without descriptive text has no vector; this is a
		// valid state, not an error.
		slog.Info("transaction has no text to embed", "transaction_id", txnID)
		return nil
	}

	vec, err := w.provider.Embed(ctx, text)
	if err != nil {
		return fmt.Errorf("embed transaction: %w", err)
	}

	if err := w.store.Put(ctx, embedding.Record{
		OwnerType:  embedding.OwnerTransaction,
		OwnerID:    txnID,
		TenantID:   tenantID,
		Vector:     vec,
		SourceText: text,
		Model:      w.provider.Model(),
	}); err != nil {
		return fmt.Errorf("store transaction embedding: %w", err)
	}
	return nil
}
