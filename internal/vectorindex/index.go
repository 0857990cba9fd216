package vectorindex

import (
	"context"

	"github.com/google/uuid"
)

// Match is one nearest-neighbor hit. Similarity is cosine similarity in
// [-1, 1]; callers clamp for scoring.
type Match struct {
	OwnerID    uuid.UUID `json:"owner_id"`
	Similarity float64   `json:"similarity"`
}

// Index is the ANN capability behind candidate retrieval. Queries are
// always scoped to a tenant and an owner type; implementations must never
// return vectors belonging to another tenant.
type Index interface {
	Upsert(ctx context.Context, ownerType string, ownerID, tenantID uuid.UUID, vector []float32) error
	Query(ctx context.Context, vector []float32, ownerType string, tenantID uuid.UUID, topK int) ([]Match, error)
}
