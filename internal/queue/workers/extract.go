package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/snapledger/reconcile/internal/embedding"
	"github.com/snapledger/reconcile/internal/extract"
	"github.com/snapledger/reconcile/internal/models"
	"github.com/snapledger/reconcile/internal/queue"
)

type DocumentStore interface {
	Get(ctx context.Context, tenantID, documentID uuid.UUID) (*models.Document, error)
	SetStatus(ctx context.Context, documentID uuid.UUID, status string) error
	ApplyExtraction(ctx context.Context, documentID uuid.UUID, f extract.Fields) error
}

type FieldParser interface {
	ParseFields(ctx context.Context, text string) (extract.Fields, error)
}

type EmbeddingEnqueuer interface {
	EnqueueEmbeddingGenerate(tenantID uuid.UUID, ownerType string, ownerID uuid.UUID) error
}

// ExtractWorker parses structured fields out of a document's text and
// hands the document on to embedding generation. Extraction failing
// partially or entirely is not fatal: the document keeps whatever fields
// it has and scoring degrades to them. The document moves
// new → processing → pending; scoring later takes it from pending.
type ExtractWorker struct {
	docs     DocumentStore
	parser   FieldParser
	enqueuer EmbeddingEnqueuer
}

func NewExtractWorker(docs DocumentStore, parser FieldParser, enqueuer EmbeddingEnqueuer) *ExtractWorker {
	return &ExtractWorker{
		docs:     docs,
		parser:   parser,
		enqueuer: enqueuer,
	}
}

func (w *ExtractWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload queue.DocumentExtractPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	docID, err := uuid.Parse(payload.DocumentID)
	if err != nil {
		return fmt.Errorf("parse document ID: %w", err)
	}
	tenantID, err := uuid.Parse(payload.TenantID)
	if err != nil {
		return fmt.Errorf("parse tenant ID: %w", err)
	}

	slog.Info("extracting document fields", "document_id", docID)

	if err := w.docs.SetStatus(ctx, docID, models.DocStatusProcessing); err != nil {
		return fmt.Errorf("set status processing: %w", err)
	}

	doc, err := w.docs.Get(ctx, tenantID, docID)
	if err != nil {
		return fmt.Errorf("get document: %w", err)
	}

	if doc.RawText != "" {
		fields, err := w.parser.ParseFields(ctx, doc.RawText)
		if err != nil {
			// Degraded run: the document keeps its current fields and is
			// scored with them; the next rescore retries extraction.
			slog.Warn("field extraction failed", "document_id", docID, "error", err)
		} else if err := w.docs.ApplyExtraction(ctx, docID, fields); err != nil {
			return fmt.Errorf("apply extraction: %w", err)
		}
	}

	// Extraction is done; the document waits as pending until scoring
	// picks it up.
	if err := w.docs.SetStatus(ctx, docID, models.DocStatusPending); err != nil {
		return fmt.Errorf("set status pending: %w", err)
	}

	if err := w.enqueuer.EnqueueEmbeddingGenerate(tenantID, embedding.OwnerDocument, docID); err != nil {
		return fmt.Errorf("enqueue embedding: %w", err)
	}

	return nil
}
