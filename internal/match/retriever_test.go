package match

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetrieverUnionsANNAndWindow(t *testing.T) {
	fx := newFixture()
	vec := []float32{1, 0}

	docID := fx.addDocument("100.00", "EUR", "2026-03-01", "ACME", vec)
	doc := fx.docs.docs[docID]

	// In both the index and the window.
	both := fx.addTransaction(fx.tenantID, "100.00", "EUR", "2026-03-01", "ACME", vec)
	// Only retrievable semantically: booked outside the window.
	annOnly := fx.addTransaction(fx.tenantID, "100.00", "EUR", "2026-05-01", "ACME", vec)
	// Only retrievable deterministically: no embedding.
	windowOnly := fx.addTransaction(fx.tenantID, "100.00", "EUR", "2026-03-03", "ACME", nil)

	candidates, err := fx.engine.retriever.Candidates(context.Background(), doc, vec)
	require.NoError(t, err)

	ids := make(map[uuid.UUID]int)
	for _, c := range candidates {
		ids[c.ID]++
	}
	assert.Equal(t, 1, ids[both])
	assert.Equal(t, 1, ids[annOnly])
	assert.Equal(t, 1, ids[windowOnly])
	assert.Len(t, candidates, 3)
}

func TestRetrieverWithoutVectorUsesWindowOnly(t *testing.T) {
	fx := newFixture()
	vec := []float32{1, 0}

	docID := fx.addDocument("100.00", "EUR", "2026-03-01", "ACME", nil)
	doc := fx.docs.docs[docID]

	inWindow := fx.addTransaction(fx.tenantID, "100.00", "EUR", "2026-03-02", "ACME", vec)
	fx.addTransaction(fx.tenantID, "100.00", "EUR", "2026-05-01", "ACME", vec)

	candidates, err := fx.engine.retriever.Candidates(context.Background(), doc, nil)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, inWindow, candidates[0].ID)
}

func TestRetrieverCapsCandidateSet(t *testing.T) {
	fx := newFixture()
	fx.engine.retriever.cfg.CandidateLimit = 3

	docID := fx.addDocument("100.00", "EUR", "2026-03-01", "ACME", nil)
	doc := fx.docs.docs[docID]

	for i := 0; i < 10; i++ {
		fx.addTransaction(fx.tenantID, "100.00", "EUR", "2026-03-02", "ACME", nil)
	}

	candidates, err := fx.engine.retriever.Candidates(context.Background(), doc, nil)
	require.NoError(t, err)
	assert.Len(t, candidates, 3)
}

func TestRetrieverNoDateNoVector(t *testing.T) {
	fx := newFixture()

	docID := fx.addDocument("100.00", "EUR", "", "ACME", nil)
	doc := fx.docs.docs[docID]
	fx.addTransaction(fx.tenantID, "100.00", "EUR", "2026-03-02", "ACME", nil)

	// Nothing to retrieve by: neither signal is available.
	candidates, err := fx.engine.retriever.Candidates(context.Background(), doc, nil)
	require.NoError(t, err)
	assert.Empty(t, candidates)
}
