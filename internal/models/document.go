package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Document is an inbox item: an ingested receipt or invoice awaiting
// reconciliation against a ledger transaction. Extracted fields are
// optional — OCR may fail partially and matching degrades gracefully.
type Document struct {
	ID            uuid.UUID        `json:"id" db:"id"`
	TenantID      uuid.UUID        `json:"tenant_id" db:"tenant_id"`
	DisplayName   string           `json:"display_name" db:"display_name"`
	Amount        *decimal.Decimal `json:"amount,omitempty" db:"amount"`
	Currency      *string          `json:"currency,omitempty" db:"currency"`
	DocDate       *time.Time       `json:"doc_date,omitempty" db:"doc_date"`
	Description   string           `json:"description" db:"description"`
	Counterparty  string           `json:"counterparty" db:"counterparty"`
	RawText       string           `json:"-" db:"raw_text"`
	Status        string           `json:"status" db:"status"`
	TransactionID *uuid.UUID       `json:"transaction_id,omitempty" db:"transaction_id"`
	CreatedBy     *uuid.UUID       `json:"created_by,omitempty" db:"created_by"`
	CreatedAt     time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at" db:"updated_at"`
}

const (
	DocStatusNew            = "new"
	DocStatusProcessing     = "processing"
	DocStatusAnalyzing      = "analyzing"
	DocStatusPending        = "pending"
	DocStatusSuggestedMatch = "suggested_match"
	DocStatusNoMatch        = "no_match"
	DocStatusDone           = "done"
	DocStatusArchived       = "archived"
	DocStatusDeleted        = "deleted"
)
