package match

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/snapledger/reconcile/internal/config"
	"github.com/snapledger/reconcile/internal/embedding"
	"github.com/snapledger/reconcile/internal/models"
	"github.com/snapledger/reconcile/internal/reconcile"
)

// ErrScoreInProgress is returned when another scoring run holds the
// per-document lock. Safe to retry: rescoring is convergent.
var ErrScoreInProgress = errors.New("scoring already in progress for document")

type DocumentSource interface {
	Get(ctx context.Context, tenantID, documentID uuid.UUID) (*models.Document, error)
	SetStatus(ctx context.Context, documentID uuid.UUID, status string) error
	ListOpenIDs(ctx context.Context, tenantID uuid.UUID) ([]uuid.UUID, error)
}

type EmbeddingSource interface {
	Get(ctx context.Context, ownerType string, ownerID uuid.UUID) (*embedding.Record, bool, error)
}

type SuggestionSink interface {
	Upsert(ctx context.Context, s *models.MatchSuggestion) error
	DemoteMissing(ctx context.Context, documentID uuid.UUID, keep []uuid.UUID) error
}

// Confirmer applies an auto-match: link document and transaction, confirm
// the winning suggestion, supersede the rest.
type Confirmer interface {
	AutoConfirm(ctx context.Context, tenantID, documentID, transactionID uuid.UUID) error
}

// Locker serializes concurrent rescoring of one document. The upsert path
// is convergent on its own; the lock just avoids wasted provider calls.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key string)
}

type Enqueuer interface {
	EnqueueMatchScore(tenantID, documentID uuid.UUID) error
}

// Engine runs retrieval, scoring, decision and suggestion persistence for
// one document at a time. Runs for different documents share no mutable
// state and may execute concurrently.
type Engine struct {
	docs        DocumentSource
	embeddings  EmbeddingSource
	retriever   *Retriever
	suggestions SuggestionSink
	confirmer   Confirmer
	locker      Locker
	cfg         config.MatchingConfig
	weights     Weights
}

func NewEngine(docs DocumentSource, embeddings EmbeddingSource, retriever *Retriever, suggestions SuggestionSink, confirmer Confirmer, locker Locker, cfg config.MatchingConfig) *Engine {
	return &Engine{
		docs:        docs,
		embeddings:  embeddings,
		retriever:   retriever,
		suggestions: suggestions,
		confirmer:   confirmer,
		locker:      locker,
		cfg:         cfg,
		weights:     WeightsFromConfig(cfg),
	}
}

type scoredCandidate struct {
	txn        models.Transaction
	scores     SubScores
	confidence float64
	matchType  string
}

// ProcessDocument scores one document against its candidate shortlist and
// persists the outcome. Calling it twice with unchanged inputs yields the
// same confidence and match types and creates no duplicate rows.
func (e *Engine) ProcessDocument(ctx context.Context, tenantID, documentID uuid.UUID) error {
	if e.locker != nil {
		lockKey := "match:score:" + documentID.String()
		ok, err := e.locker.TryLock(ctx, lockKey, time.Minute)
		if err != nil {
			slog.Warn("scoring lock unavailable, proceeding unlocked", "document_id", documentID, "error", err)
		} else if !ok {
			return ErrScoreInProgress
		} else {
			defer e.locker.Unlock(ctx, lockKey)
		}
	}

	doc, err := e.docs.Get(ctx, tenantID, documentID)
	if err != nil {
		return fmt.Errorf("load document: %w", err)
	}

	switch doc.Status {
	case models.DocStatusDone, models.DocStatusArchived, models.DocStatusDeleted:
		slog.Info("document already resolved, skipping scoring", "document_id", documentID, "status", doc.Status)
		return nil
	}

	if err := e.docs.SetStatus(ctx, documentID, models.DocStatusAnalyzing); err != nil {
		return fmt.Errorf("set status analyzing: %w", err)
	}

	var docVec []float32
	if rec, ok, err := e.embeddings.Get(ctx, embedding.OwnerDocument, documentID); err != nil {
		return fmt.Errorf("load document embedding: %w", err)
	} else if ok {
		docVec = rec.Vector
	}

	candidates, err := e.retriever.Candidates(ctx, doc, docVec)
	if err != nil {
		return fmt.Errorf("retrieve candidates: %w", err)
	}

	qualified := e.scoreCandidates(ctx, doc, docVec, candidates)

	// Only the single highest-confidence candidate leads; the rest stay as
	// lower-rank pending suggestions a user can still pick.
	sort.SliceStable(qualified, func(i, j int) bool {
		return qualified[i].confidence > qualified[j].confidence
	})
	for i := range qualified {
		if i > 0 && qualified[i].matchType == models.MatchTypeAuto {
			qualified[i].matchType = models.MatchTypeHighConfidence
		}
	}

	keep := make([]uuid.UUID, 0, len(qualified))
	for _, q := range qualified {
		s := &models.MatchSuggestion{
			TenantID:       tenantID,
			DocumentID:     documentID,
			TransactionID:  q.txn.ID,
			EmbeddingScore: q.scores.Embedding,
			AmountScore:    q.scores.Amount,
			CurrencyScore:  q.scores.Currency,
			DateScore:      q.scores.Date,
			NameScore:      q.scores.Name,
			Confidence:     q.confidence,
			MatchType:      q.matchType,
			Status:         models.SuggestionPending,
		}
		if err := e.suggestions.Upsert(ctx, s); err != nil {
			return fmt.Errorf("upsert suggestion: %w", err)
		}
		keep = append(keep, q.txn.ID)
	}

	// Pairs that no longer qualify are superseded, not deleted.
	if err := e.suggestions.DemoteMissing(ctx, documentID, keep); err != nil {
		return fmt.Errorf("demote stale suggestions: %w", err)
	}

	if len(qualified) == 0 {
		return e.docs.SetStatus(ctx, documentID, models.DocStatusNoMatch)
	}

	if qualified[0].matchType == models.MatchTypeAuto {
		err := e.confirmer.AutoConfirm(ctx, tenantID, documentID, qualified[0].txn.ID)
		if errors.Is(err, reconcile.ErrAlreadyResolved) || errors.Is(err, reconcile.ErrNotFound) {
			// A concurrent confirm won the race; the document is resolved
			// either way. Anything else propagates so the task is retried.
			slog.Warn("auto-confirm lost to a concurrent decision", "document_id", documentID, "error", err)
			return nil
		}
		if err != nil {
			return fmt.Errorf("auto-confirm: %w", err)
		}
		slog.Info("document auto-matched",
			"document_id", documentID,
			"transaction_id", qualified[0].txn.ID,
			"confidence", qualified[0].confidence)
		return nil
	}

	return e.docs.SetStatus(ctx, documentID, models.DocStatusSuggestedMatch)
}

func (e *Engine) scoreCandidates(ctx context.Context, doc *models.Document, docVec []float32, candidates []models.Transaction) []scoredCandidate {
	var qualified []scoredCandidate
	for _, txn := range candidates {
		if txn.TenantID != doc.TenantID {
			// The retriever filters by tenant already; this is the final gate.
			slog.Error("cross-tenant candidate rejected", "document_id", doc.ID, "transaction_id", txn.ID)
			continue
		}

		var txnVec []float32
		if len(docVec) > 0 {
			if rec, ok, err := e.embeddings.Get(ctx, embedding.OwnerTransaction, txn.ID); err != nil {
				slog.Warn("transaction embedding unavailable", "transaction_id", txn.ID, "error", err)
			} else if ok {
				txnVec = rec.Vector
			}
		}

		scores := ScorePair(doc, &txn, docVec, txnVec, e.cfg.DateDecayDays)
		confidence, ok := Combine(scores, e.weights)
		if !ok {
			continue
		}

		matchType := Classify(confidence, scores, e.cfg)
		if matchType == models.MatchTypeNone {
			continue
		}

		qualified = append(qualified, scoredCandidate{
			txn:        txn,
			scores:     scores,
			confidence: confidence,
			matchType:  matchType,
		})
	}
	return qualified
}

// RescoreTenant enqueues a rescore for every open document of the tenant,
// e.g. after an embedding model upgrade. Returns the number enqueued.
func (e *Engine) RescoreTenant(ctx context.Context, tenantID uuid.UUID, enq Enqueuer) (int, error) {
	ids, err := e.docs.ListOpenIDs(ctx, tenantID)
	if err != nil {
		return 0, fmt.Errorf("list open documents: %w", err)
	}

	var n int
	for _, id := range ids {
		if err := enq.EnqueueMatchScore(tenantID, id); err != nil {
			return n, fmt.Errorf("enqueue rescore for %s: %w", id, err)
		}
		n++
	}
	return n, nil
}
