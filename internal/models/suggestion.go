package models

import (
	"time"

	"github.com/google/uuid"
)

// MatchSuggestion is a scored candidate pairing between a document and a
// transaction. Unique on (document_id, transaction_id): rescoring refines
// the existing row. Non-status fields are derived from current inputs and
// never hand-edited; rows are kept for audit rather than deleted.
type MatchSuggestion struct {
	ID             uuid.UUID  `json:"id" db:"id"`
	TenantID       uuid.UUID  `json:"tenant_id" db:"tenant_id"`
	DocumentID     uuid.UUID  `json:"document_id" db:"document_id"`
	TransactionID  uuid.UUID  `json:"transaction_id" db:"transaction_id"`
	EmbeddingScore *float64   `json:"embedding_score,omitempty" db:"embedding_score"`
	AmountScore    *float64   `json:"amount_score,omitempty" db:"amount_score"`
	CurrencyScore  *float64   `json:"currency_score,omitempty" db:"currency_score"`
	DateScore      *float64   `json:"date_score,omitempty" db:"date_score"`
	NameScore      *float64   `json:"name_score,omitempty" db:"name_score"`
	Confidence     float64    `json:"confidence" db:"confidence"`
	MatchType      string     `json:"match_type" db:"match_type"`
	Status         string     `json:"status" db:"status"`
	ResolvedBy     *uuid.UUID `json:"resolved_by,omitempty" db:"resolved_by"`
	ResolvedAt     *time.Time `json:"resolved_at,omitempty" db:"resolved_at"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
}

const (
	SuggestionPending   = "pending"
	SuggestionConfirmed = "confirmed"
	SuggestionDeclined  = "declined"
	SuggestionExpired   = "expired"
	SuggestionUnmatched = "unmatched"
)

const (
	MatchTypeAuto           = "auto_matched"
	MatchTypeHighConfidence = "high_confidence"
	MatchTypeSuggested      = "suggested"
	MatchTypeNone           = "no_match"
)
