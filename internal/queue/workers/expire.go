package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/snapledger/reconcile/internal/queue"
	"github.com/snapledger/reconcile/internal/suggestion"
)

// ExpireWorker bulk-transitions stale pending suggestions to expired.
type ExpireWorker struct {
	store *suggestion.Store
}

func NewExpireWorker(store *suggestion.Store) *ExpireWorker {
	return &ExpireWorker{store: store}
}

func (w *ExpireWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload queue.SuggestionExpirePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	olderThan, err := time.Parse(time.RFC3339, payload.OlderThan)
	if err != nil {
		return fmt.Errorf("parse older_than: %w", err)
	}

	n, err := w.store.Expire(ctx, olderThan)
	if err != nil {
		return fmt.Errorf("expire suggestions: %w", err)
	}

	slog.Info("expired stale suggestions", "count", n, "older_than", olderThan)
	return nil
}
