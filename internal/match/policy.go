package match

import (
	"github.com/snapledger/reconcile/internal/config"
	"github.com/snapledger/reconcile/internal/models"
)

// Weights is the fixed weight split across the five signals. When some
// sub-scores are nil the remaining weights are renormalized so the
// available signals still sum to full weight.
type Weights struct {
	Embedding float64
	Amount    float64
	Currency  float64
	Date      float64
	Name      float64
}

func WeightsFromConfig(cfg config.MatchingConfig) Weights {
	return Weights{
		Embedding: cfg.WeightEmbedding,
		Amount:    cfg.WeightAmount,
		Currency:  cfg.WeightCurrency,
		Date:      cfg.WeightDate,
		Name:      cfg.WeightName,
	}
}

// Combine folds the available sub-scores into one confidence value in
// [0, 1]. The second return is false when no signal could be computed at
// all, in which case the pair carries no evidence either way.
func Combine(s SubScores, w Weights) (float64, bool) {
	var sum, totalWeight float64

	add := func(score *float64, weight float64) {
		if score == nil || weight <= 0 {
			return
		}
		sum += *score * weight
		totalWeight += weight
	}

	add(s.Embedding, w.Embedding)
	add(s.Amount, w.Amount)
	add(s.Currency, w.Currency)
	add(s.Date, w.Date)
	add(s.Name, w.Name)

	if totalWeight == 0 {
		return 0, false
	}

	conf := sum / totalWeight
	if conf < 0 {
		conf = 0
	}
	if conf > 1 {
		conf = 1
	}
	return conf, true
}

// Classify maps a confidence value onto a match type. Auto-match
// additionally requires an exact amount match and a currency that is
// either equal or unknown; semantic similarity alone never auto-links a
// document to money of a different size.
func Classify(confidence float64, s SubScores, cfg config.MatchingConfig) string {
	switch {
	case confidence >= cfg.AutoThreshold && amountExact(s) && currencyCompatible(s):
		return models.MatchTypeAuto
	case confidence >= cfg.HighThreshold:
		return models.MatchTypeHighConfidence
	case confidence >= cfg.SuggestThreshold:
		return models.MatchTypeSuggested
	default:
		return models.MatchTypeNone
	}
}

func amountExact(s SubScores) bool {
	return s.Amount != nil && *s.Amount == 1
}

func currencyCompatible(s SubScores) bool {
	return s.Currency == nil || *s.Currency == 1
}
