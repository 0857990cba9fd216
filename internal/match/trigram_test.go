package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrigramSimilarityIdentical(t *testing.T) {
	assert.Equal(t, 1.0, TrigramSimilarity("ACME GmbH", "ACME GmbH"))
}

func TestTrigramSimilarityCaseInsensitive(t *testing.T) {
	assert.Equal(t, 1.0, TrigramSimilarity("acme gmbh", "ACME GMBH"))
}

func TestTrigramSimilaritySimilarNames(t *testing.T) {
	s := TrigramSimilarity("ACME GmbH", "ACME Gmbh & Co KG")
	assert.Greater(t, s, 0.4)
	assert.Less(t, s, 1.0)
}

func TestTrigramSimilarityUnrelatedNames(t *testing.T) {
	s := TrigramSimilarity("ACME GmbH", "Zeta Industries")
	assert.Less(t, s, 0.2)
}

func TestTrigramSimilarityEmpty(t *testing.T) {
	assert.Equal(t, 0.0, TrigramSimilarity("", "ACME"))
	assert.Equal(t, 0.0, TrigramSimilarity("ACME", ""))
	assert.Equal(t, 0.0, TrigramSimilarity("   ", "   "))
}
