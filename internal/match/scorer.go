package match

import (
	"math"

	"github.com/snapledger/reconcile/internal/models"
	"github.com/snapledger/reconcile/internal/vectorindex"
)

// SubScores holds the independent signals for one (document, transaction)
// pair. A nil score means the input needed to compute it was missing; nil
// is excluded from weighting rather than treated as zero.
type SubScores struct {
	Embedding *float64
	Amount    *float64
	Currency  *float64
	Date      *float64
	Name      *float64
}

// ScorePair computes every sub-score independently, tolerant of missing
// inputs. decayDays is the linear decay window for the date signal.
func ScorePair(doc *models.Document, txn *models.Transaction, docVec, txnVec []float32, decayDays int) SubScores {
	var s SubScores

	if len(docVec) > 0 && len(txnVec) > 0 {
		s.Embedding = sanitize(vectorindex.Cosine(docVec, txnVec))
	}

	if doc.Amount != nil {
		// Inbox extraction reports unsigned amounts while ledger rows carry
		// sign, so compare magnitudes.
		docAmt := doc.Amount.Abs().InexactFloat64()
		txnAmt := txn.Amount.Abs().InexactFloat64()
		diff := math.Abs(docAmt - txnAmt)
		denom := math.Max(txnAmt, 1)
		s.Amount = sanitize(1 - math.Min(diff/denom, 1))
	}

	if doc.Currency != nil && *doc.Currency != "" && txn.Currency != "" {
		score := 0.0
		if *doc.Currency == txn.Currency {
			score = 1.0
		}
		s.Currency = &score
	}

	if doc.DocDate != nil && decayDays > 0 {
		days := math.Abs(doc.DocDate.Sub(txn.BookedAt).Hours() / 24)
		s.Date = sanitize(math.Max(0, 1-days/float64(decayDays)))
	}

	if doc.Counterparty != "" && txn.Counterparty != "" {
		s.Name = sanitize(TrigramSimilarity(doc.Counterparty, txn.Counterparty))
	}

	return s
}

// sanitize clamps a raw score into [0, 1] and rejects NaN/Inf before it
// can reach a persisted suggestion.
func sanitize(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	return &v
}
