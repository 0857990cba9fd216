package inbox

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/snapledger/reconcile/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestEmbeddingText(t *testing.T) {
	doc := &models.Document{
		DisplayName:  "Invoice 2026-031",
		Counterparty: "ACME GmbH",
		Description:  "Office chairs",
		RawText:      "INVOICE\nACME GmbH\nTotal: 249.99 EUR",
	}

	text := EmbeddingText(doc)
	assert.Equal(t, "Invoice 2026-031\nACME GmbH\nOffice chairs\nINVOICE\nACME GmbH\nTotal: 249.99 EUR", text)
}

func TestEmbeddingTextSkipsEmptyParts(t *testing.T) {
	doc := &models.Document{Counterparty: "  ACME GmbH  "}
	assert.Equal(t, "ACME GmbH", EmbeddingText(doc))

	assert.Empty(t, EmbeddingText(&models.Document{}))
}

func TestEmbeddingTextTruncatesRawText(t *testing.T) {
	doc := &models.Document{RawText: strings.Repeat("x", 5000)}

	text := EmbeddingText(doc)
	assert.Len(t, text, 2000)
}

func TestEmbeddingTextTruncatesOnRuneBoundary(t *testing.T) {
	// Multi-byte runes straddling the cut must not be split; the stored
	// source text has to remain valid UTF-8. 1000 three-byte runes put the
	// 2000-byte cut mid-rune, so the cut walks back to 1998.
	doc := &models.Document{RawText: strings.Repeat("€", 1000)}

	text := EmbeddingText(doc)
	assert.True(t, utf8.ValidString(text))
	assert.Equal(t, 1998, len(text))
}
