package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

const (
	OwnerDocument    = "document"
	OwnerTransaction = "transaction"
)

// Record is one embedding, keyed to exactly one owner entity. A new model
// version replaces the row in place; history is not kept.
type Record struct {
	OwnerType  string
	OwnerID    uuid.UUID
	TenantID   uuid.UUID
	Vector     []float32
	SourceText string
	Model      string
	UpdatedAt  time.Time
}

// Store persists one embedding per owner. Absence is a valid state, not an
// error: a transaction with no descriptive text simply has no vector and
// downstream scoring degrades to the remaining signals.
type Store interface {
	Put(ctx context.Context, rec Record) error
	Get(ctx context.Context, ownerType string, ownerID uuid.UUID) (*Record, bool, error)
}

type PgStore struct {
	db *pgxpool.Pool
}

func NewPgStore(db *pgxpool.Pool) *PgStore {
	return &PgStore{db: db}
}

func (s *PgStore) Put(ctx context.Context, rec Record) error {
	if rec.OwnerType != OwnerDocument && rec.OwnerType != OwnerTransaction {
		return fmt.Errorf("unknown owner type %q", rec.OwnerType)
	}
	if len(rec.Vector) == 0 {
		return fmt.Errorf("empty vector for %s %s", rec.OwnerType, rec.OwnerID)
	}

	_, err := s.db.Exec(ctx,
		`INSERT INTO embeddings (owner_type, owner_id, tenant_id, embedding, source_text, model, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, now())
		 ON CONFLICT (owner_type, owner_id)
		 DO UPDATE SET embedding = $4, source_text = $5, model = $6, updated_at = now()`,
		rec.OwnerType, rec.OwnerID, rec.TenantID, pgvector.NewVector(rec.Vector), rec.SourceText, rec.Model,
	)
	if err != nil {
		return fmt.Errorf("upsert embedding %s/%s: %w", rec.OwnerType, rec.OwnerID, err)
	}
	return nil
}

func (s *PgStore) Get(ctx context.Context, ownerType string, ownerID uuid.UUID) (*Record, bool, error) {
	var rec Record
	var vec pgvector.Vector
	err := s.db.QueryRow(ctx,
		`SELECT owner_type, owner_id, tenant_id, embedding, source_text, model, updated_at
		 FROM embeddings WHERE owner_type = $1 AND owner_id = $2`,
		ownerType, ownerID,
	).Scan(&rec.OwnerType, &rec.OwnerID, &rec.TenantID, &vec, &rec.SourceText, &rec.Model, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get embedding %s/%s: %w", ownerType, ownerID, err)
	}
	rec.Vector = vec.Slice()
	return &rec, true, nil
}
