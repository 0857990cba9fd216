package suggestion

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/snapledger/reconcile/internal/models"
)

// Store persists match suggestions. The unique constraint on
// (document_id, transaction_id) plus the conditional upsert make rescoring
// idempotent: the same open pair is refined in place, decided pairs are
// left alone, and rows are never deleted.
type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// Upsert writes or refreshes the suggestion for one pair. Confirmed and
// declined rows are terminal: scores are not resurrected into a decided
// suggestion. Expired or superseded rows of a still-open document return
// to pending when a rescore requalifies the pair.
func (s *Store) Upsert(ctx context.Context, sg *models.MatchSuggestion) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO match_suggestions
		   (tenant_id, document_id, transaction_id,
		    embedding_score, amount_score, currency_score, date_score, name_score,
		    confidence, match_type, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 'pending')
		 ON CONFLICT (document_id, transaction_id) DO UPDATE SET
		   embedding_score = EXCLUDED.embedding_score,
		   amount_score    = EXCLUDED.amount_score,
		   currency_score  = EXCLUDED.currency_score,
		   date_score      = EXCLUDED.date_score,
		   name_score      = EXCLUDED.name_score,
		   confidence      = EXCLUDED.confidence,
		   match_type      = EXCLUDED.match_type,
		   status          = 'pending',
		   updated_at      = now()
		 WHERE match_suggestions.status NOT IN ('confirmed', 'declined')`,
		sg.TenantID, sg.DocumentID, sg.TransactionID,
		sg.EmbeddingScore, sg.AmountScore, sg.CurrencyScore, sg.DateScore, sg.NameScore,
		sg.Confidence, sg.MatchType,
	)
	if err != nil {
		return fmt.Errorf("upsert suggestion %s/%s: %w", sg.DocumentID, sg.TransactionID, err)
	}
	return nil
}

const suggestionColumns = `id, tenant_id, document_id, transaction_id,
	embedding_score, amount_score, currency_score, date_score, name_score,
	confidence, match_type, status, resolved_by, resolved_at, created_at, updated_at`

// ListForDocument returns every suggestion for the document, highest
// confidence first.
func (s *Store) ListForDocument(ctx context.Context, tenantID, documentID uuid.UUID) ([]models.MatchSuggestion, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+suggestionColumns+`
		 FROM match_suggestions
		 WHERE tenant_id = $1 AND document_id = $2
		 ORDER BY confidence DESC`,
		tenantID, documentID,
	)
	if err != nil {
		return nil, fmt.Errorf("list suggestions: %w", err)
	}
	defer rows.Close()

	var out []models.MatchSuggestion
	for rows.Next() {
		var sg models.MatchSuggestion
		if err := rows.Scan(
			&sg.ID, &sg.TenantID, &sg.DocumentID, &sg.TransactionID,
			&sg.EmbeddingScore, &sg.AmountScore, &sg.CurrencyScore, &sg.DateScore, &sg.NameScore,
			&sg.Confidence, &sg.MatchType, &sg.Status, &sg.ResolvedBy, &sg.ResolvedAt,
			&sg.CreatedAt, &sg.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan suggestion: %w", err)
		}
		out = append(out, sg)
	}
	return out, rows.Err()
}

// DemoteMissing marks the document's pending suggestions whose pair did
// not requalify on the latest rescore as unmatched. keep lists the
// transaction IDs that did qualify.
func (s *Store) DemoteMissing(ctx context.Context, documentID uuid.UUID, keep []uuid.UUID) error {
	_, err := s.db.Exec(ctx,
		`UPDATE match_suggestions
		 SET status = 'unmatched', updated_at = now()
		 WHERE document_id = $1 AND status = 'pending'
		   AND NOT (transaction_id = ANY($2))`,
		documentID, keep,
	)
	if err != nil {
		return fmt.Errorf("demote stale suggestions for %s: %w", documentID, err)
	}
	return nil
}

// Expire bulk-transitions pending suggestions untouched since olderThan to
// expired. Returns the number of rows transitioned.
func (s *Store) Expire(ctx context.Context, olderThan time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx,
		`UPDATE match_suggestions
		 SET status = 'expired', updated_at = now()
		 WHERE status = 'pending' AND updated_at < $1`,
		olderThan,
	)
	if err != nil {
		return 0, fmt.Errorf("expire suggestions: %w", err)
	}
	return tag.RowsAffected(), nil
}
