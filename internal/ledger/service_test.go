package ledger

import (
	"testing"

	"github.com/snapledger/reconcile/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestEmbeddingText(t *testing.T) {
	txn := &models.Transaction{
		Counterparty: "ACME GmbH",
		Description:  "SEPA transfer invoice 2026-031",
	}
	assert.Equal(t, "ACME GmbH\nSEPA transfer invoice 2026-031", EmbeddingText(txn))
}

func TestEmbeddingTextEmptyWhenNoDescriptiveText(t *testing.T) {
	assert.Empty(t, EmbeddingText(&models.Transaction{}))
	assert.Empty(t, EmbeddingText(&models.Transaction{Counterparty: "   "}))
}
