package match

import (
	"testing"

	"github.com/snapledger/reconcile/internal/config"
	"github.com/snapledger/reconcile/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMatchingConfig() config.MatchingConfig {
	return config.MatchingConfig{
		AutoThreshold:    0.95,
		HighThreshold:    0.75,
		SuggestThreshold: 0.40,
		WeightEmbedding:  0.50,
		WeightAmount:     0.35,
		WeightCurrency:   0.05,
		WeightDate:       0.05,
		WeightName:       0.05,
		DateDecayDays:    14,
	}
}

func f(v float64) *float64 { return &v }

func TestCombineAllSignals(t *testing.T) {
	w := WeightsFromConfig(testMatchingConfig())
	conf, ok := Combine(SubScores{
		Embedding: f(0.98),
		Amount:    f(1.0),
		Currency:  f(1.0),
		Date:      f(1.0),
		Name:      f(0.9),
	}, w)
	require.True(t, ok)
	assert.InDelta(t, 0.985, conf, 1e-9)
}

func TestCombineRenormalizesOverMissingSignals(t *testing.T) {
	w := WeightsFromConfig(testMatchingConfig())

	// Embedding and name absent: remaining weights 0.35 + 0.05 + 0.05.
	conf, ok := Combine(SubScores{
		Amount:   f(1.0),
		Currency: f(1.0),
		Date:     f(0.5),
	}, w)
	require.True(t, ok)
	assert.InDelta(t, (0.35+0.05+0.025)/0.45, conf, 1e-9)

	// A single signal carries full weight.
	conf, ok = Combine(SubScores{Embedding: f(0.8)}, w)
	require.True(t, ok)
	assert.InDelta(t, 0.8, conf, 1e-9)
}

func TestCombineNoSignals(t *testing.T) {
	_, ok := Combine(SubScores{}, WeightsFromConfig(testMatchingConfig()))
	assert.False(t, ok)
}

func TestClassifyAutoRequiresExactAmount(t *testing.T) {
	cfg := testMatchingConfig()

	auto := Classify(0.97, SubScores{Amount: f(1.0), Currency: f(1.0)}, cfg)
	assert.Equal(t, models.MatchTypeAuto, auto)

	// High confidence alone is not enough when the amounts differ.
	demoted := Classify(0.97, SubScores{Amount: f(0.99), Currency: f(1.0)}, cfg)
	assert.Equal(t, models.MatchTypeHighConfidence, demoted)
}

func TestClassifyAutoCurrencyGate(t *testing.T) {
	cfg := testMatchingConfig()

	mismatch := Classify(0.97, SubScores{Amount: f(1.0), Currency: f(0.0)}, cfg)
	assert.Equal(t, models.MatchTypeHighConfidence, mismatch)

	// Unknown currency does not block an otherwise perfect match.
	unknown := Classify(0.97, SubScores{Amount: f(1.0)}, cfg)
	assert.Equal(t, models.MatchTypeAuto, unknown)
}

func TestClassifyThresholds(t *testing.T) {
	cfg := testMatchingConfig()
	s := SubScores{Amount: f(0.5)}

	assert.Equal(t, models.MatchTypeHighConfidence, Classify(0.75, s, cfg))
	assert.Equal(t, models.MatchTypeSuggested, Classify(0.74, s, cfg))
	assert.Equal(t, models.MatchTypeSuggested, Classify(0.40, s, cfg))
	assert.Equal(t, models.MatchTypeNone, Classify(0.39, s, cfg))
}
