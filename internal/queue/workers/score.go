package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/snapledger/reconcile/internal/match"
	"github.com/snapledger/reconcile/internal/queue"
)

// ScoreWorker runs one matching pass for one document. Rescoring is
// idempotent, so asynq retries are always safe.
type ScoreWorker struct {
	engine *match.Engine
}

func NewScoreWorker(engine *match.Engine) *ScoreWorker {
	return &ScoreWorker{engine: engine}
}

func (w *ScoreWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload queue.MatchScorePayload
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

	slog.Info("scoring document", "document_id", docID)

	if err := w.engine.ProcessDocument(ctx, tenantID, docID); err != nil {
		return fmt.Errorf("process document %s: %w", docID, err)
	}

	slog.Info("document scored", "document_id", docID)
	return nil
}
