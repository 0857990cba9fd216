package extract

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Fields are the structured values pulled out of a document's text.
// Any of them may be missing; the matching engine scores with whatever is
// present.
type Fields struct {
	DisplayName  string
	Amount       *decimal.Decimal
	Currency     *string
	Date         *time.Time
	Description  string
	Counterparty string
}

const fieldPrompt = `Extract structured fields from the text of a financial document (receipt, invoice or similar).
Respond with only a JSON object, no prose, with these keys:
  display_name: short human-readable title for the document
  amount: total amount as a decimal string, e.g. "129.90"
  currency: ISO 4217 code, e.g. "EUR"
  date: document date as YYYY-MM-DD
  description: one-line summary of what was purchased or billed
  counterparty: the merchant/vendor/sender name
Use null for any value not present in the text.`

type fieldsJSON struct {
	DisplayName  *string `json:"display_name"`
	Amount       *string `json:"amount"`
	Currency     *string `json:"currency"`
	Date         *string `json:"date"`
	Description  *string `json:"description"`
	Counterparty *string `json:"counterparty"`
}

// decodeFields parses a model response into Fields. Individually invalid
// values are dropped rather than failing the whole extraction.
func decodeFields(raw string) (Fields, error) {
	raw = stripCodeFence(raw)

	var fj fieldsJSON
	if err := json.Unmarshal([]byte(raw), &fj); err != nil {
		return Fields{}, fmt.Errorf("decode extraction response: %w", err)
	}

	var f Fields
	if fj.DisplayName != nil {
		f.DisplayName = strings.TrimSpace(*fj.DisplayName)
	}
	if fj.Description != nil {
		f.Description = strings.TrimSpace(*fj.Description)
	}
	if fj.Counterparty != nil {
		f.Counterparty = strings.TrimSpace(*fj.Counterparty)
	}
	if fj.Amount != nil {
		if amt, err := decimal.NewFromString(strings.TrimSpace(*fj.Amount)); err == nil {
			f.Amount = &amt
		}
	}
	if fj.Currency != nil {
		cur := strings.ToUpper(strings.TrimSpace(*fj.Currency))
		if len(cur) == 3 {
			f.Currency = &cur
		}
	}
	if fj.Date != nil {
		if d, err := time.Parse("2006-01-02", strings.TrimSpace(*fj.Date)); err == nil {
			f.Date = &d
		}
	}
	return f, nil
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}
