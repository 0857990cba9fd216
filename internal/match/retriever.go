package match

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/snapledger/reconcile/internal/config"
	"github.com/snapledger/reconcile/internal/models"
	"github.com/snapledger/reconcile/internal/vectorindex"
)

// TransactionSource supplies candidate transactions. Both lookups are
// tenant-scoped at the query level; a transaction of another tenant can
// never enter a candidate set.
type TransactionSource interface {
	CandidatesByWindow(ctx context.Context, tenantID uuid.UUID, date time.Time, currency *string, windowDays, limit int) ([]models.Transaction, error)
	GetByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]models.Transaction, error)
}

// Retriever builds the bounded candidate shortlist for a document: an ANN
// pass over transaction embeddings unioned with a deterministic
// date/currency window, deduplicated and capped.
type Retriever struct {
	index vectorindex.Index
	txns  TransactionSource
	cfg   config.MatchingConfig
}

func NewRetriever(index vectorindex.Index, txns TransactionSource, cfg config.MatchingConfig) *Retriever {
	return &Retriever{index: index, txns: txns, cfg: cfg}
}

// Candidates returns the shortlist for doc. docVec may be empty; the
// retriever then relies solely on the deterministic pre-filter, which is a
// designed fallback rather than an error path. An ANN failure or timeout
// degrades the same way.
func (r *Retriever) Candidates(ctx context.Context, doc *models.Document, docVec []float32) ([]models.Transaction, error) {
	seen := make(map[uuid.UUID]bool)
	var candidates []models.Transaction

	if len(docVec) > 0 {
		annCtx := ctx
		if r.cfg.ANNTimeout > 0 {
			var cancel context.CancelFunc
			annCtx, cancel = context.WithTimeout(ctx, r.cfg.ANNTimeout)
			defer cancel()
		}

		matches, err := r.index.Query(annCtx, docVec, "transaction", doc.TenantID, r.cfg.TopK)
		if err != nil {
			slog.Warn("ann query failed, falling back to deterministic filter",
				"document_id", doc.ID, "error", err)
		} else if len(matches) > 0 {
			ids := make([]uuid.UUID, 0, len(matches))
			for _, m := range matches {
				ids = append(ids, m.OwnerID)
			}
			txns, err := r.txns.GetByIDs(ctx, doc.TenantID, ids)
			if err != nil {
				return nil, err
			}
			for _, t := range txns {
				if !seen[t.ID] {
					seen[t.ID] = true
					candidates = append(candidates, t)
				}
			}
		}
	}

	if doc.DocDate != nil {
		windowed, err := r.txns.CandidatesByWindow(ctx, doc.TenantID, *doc.DocDate, doc.Currency, r.cfg.DateWindowDays, r.cfg.CandidateLimit)
		if err != nil {
			return nil, err
		}
		for _, t := range windowed {
			if !seen[t.ID] {
				seen[t.ID] = true
				candidates = append(candidates, t)
			}
		}
	}

	if len(candidates) > r.cfg.CandidateLimit {
		candidates = candidates[:r.cfg.CandidateLimit]
	}
	return candidates, nil
}
