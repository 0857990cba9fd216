package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Transaction is an existing ledger entry owned by the accounting
// subsystem. The matching engine only reads it and writes a document
// link back.
type Transaction struct {
	ID           uuid.UUID       `json:"id" db:"id"`
	TenantID     uuid.UUID       `json:"tenant_id" db:"tenant_id"`
	Amount       decimal.Decimal `json:"amount" db:"amount"`
	Currency     string          `json:"currency" db:"currency"`
	BookedAt     time.Time       `json:"booked_at" db:"booked_at"`
	Counterparty string          `json:"counterparty" db:"counterparty"`
	Description  string          `json:"description" db:"description"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
}
