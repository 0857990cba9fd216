package vectorindex

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// PgVectorIndex runs ANN queries against the embeddings table using the
// pgvector cosine operator. The embeddings table is shared with the
// embedding store; Upsert here only touches the vector column.
type PgVectorIndex struct {
	db *pgxpool.Pool
}

func NewPgVectorIndex(db *pgxpool.Pool) *PgVectorIndex {
	return &PgVectorIndex{db: db}
}

func (x *PgVectorIndex) Upsert(ctx context.Context, ownerType string, ownerID, tenantID uuid.UUID, vector []float32) error {
	_, err := x.db.Exec(ctx,
		`INSERT INTO embeddings (owner_type, owner_id, tenant_id, embedding, source_text, model, updated_at)
		 VALUES ($1, $2, $3, $4, '', '', now())
		 ON CONFLICT (owner_type, owner_id) DO UPDATE SET embedding = $4, updated_at = now()`,
		ownerType, ownerID, tenantID, pgvector.NewVector(vector),
	)
	if err != nil {
		return fmt.Errorf("upsert vector %s/%s: %w", ownerType, ownerID, err)
	}
	return nil
}

func (x *PgVectorIndex) Query(ctx context.Context, vector []float32, ownerType string, tenantID uuid.UUID, topK int) ([]Match, error) {
	if topK <= 0 {
		topK = 10
	}

	rows, err := x.db.Query(ctx,
		`SELECT owner_id, 1 - (embedding <=> $1) AS similarity
		 FROM embeddings
		 WHERE owner_type = $2 AND tenant_id = $3
		 ORDER BY embedding <=> $1
		 LIMIT $4`,
		pgvector.NewVector(vector), ownerType, tenantID, topK,
	)
	if err != nil {
		return nil, fmt.Errorf("ann query: %w", err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var m Match
		if err := rows.Scan(&m.OwnerID, &m.Similarity); err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}
