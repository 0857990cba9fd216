package vectorindex

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/google/uuid"
)

type bruteKey struct {
	ownerType string
	ownerID   uuid.UUID
}

type bruteEntry struct {
	tenantID uuid.UUID
	vector   []float32
}

// BruteIndex is an exhaustive in-memory index. It serves small tenants
// where an ANN backend is overkill, and the engine tests.
type BruteIndex struct {
	mu      sync.RWMutex
	entries map[bruteKey]bruteEntry
}

func NewBruteIndex() *BruteIndex {
	return &BruteIndex{entries: make(map[bruteKey]bruteEntry)}
}

func (x *BruteIndex) Upsert(_ context.Context, ownerType string, ownerID, tenantID uuid.UUID, vector []float32) error {
	v := make([]float32, len(vector))
	copy(v, vector)

	x.mu.Lock()
	x.entries[bruteKey{ownerType, ownerID}] = bruteEntry{tenantID: tenantID, vector: v}
	x.mu.Unlock()
	return nil
}

func (x *BruteIndex) Query(_ context.Context, vector []float32, ownerType string, tenantID uuid.UUID, topK int) ([]Match, error) {
	if topK <= 0 {
		topK = 10
	}

	x.mu.RLock()
	var matches []Match
	for k, e := range x.entries {
		if k.ownerType != ownerType || e.tenantID != tenantID {
			continue
		}
		matches = append(matches, Match{OwnerID: k.ownerID, Similarity: Cosine(vector, e.vector)})
	}
	x.mu.RUnlock()

	sort.Slice(matches, func(i, j int) bool { return matches[i].Similarity > matches[j].Similarity })
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

// Cosine returns the cosine similarity of two vectors, or 0 when either
// has zero magnitude or the lengths differ.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
