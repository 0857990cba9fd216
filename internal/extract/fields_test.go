package extract

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeFields(t *testing.T) {
	raw := `{"display_name":"Office chairs","amount":"249.99","currency":"eur","date":"2026-02-14","description":"2x chairs","counterparty":"ACME GmbH"}`

	f, err := decodeFields(raw)
	require.NoError(t, err)
	assert.Equal(t, "Office chairs", f.DisplayName)
	require.NotNil(t, f.Amount)
	assert.True(t, f.Amount.Equal(decimal.RequireFromString("249.99")))
	require.NotNil(t, f.Currency)
	assert.Equal(t, "EUR", *f.Currency)
	require.NotNil(t, f.Date)
	assert.Equal(t, "2026-02-14", f.Date.Format("2006-01-02"))
	assert.Equal(t, "ACME GmbH", f.Counterparty)
}

func TestDecodeFieldsStripsCodeFence(t *testing.T) {
	raw := "```json\n{\"display_name\":\"Taxi\",\"amount\":\"18.50\"}\n```"

	f, err := decodeFields(raw)
	require.NoError(t, err)
	assert.Equal(t, "Taxi", f.DisplayName)
	require.NotNil(t, f.Amount)
	assert.True(t, f.Amount.Equal(decimal.RequireFromString("18.50")))
}

func TestDecodeFieldsDropsInvalidValues(t *testing.T) {
	raw := `{"display_name":"Receipt","amount":"about twenty","currency":"euros","date":"14.02.2026"}`

	f, err := decodeFields(raw)
	require.NoError(t, err)
	assert.Equal(t, "Receipt", f.DisplayName)
	assert.Nil(t, f.Amount)
	assert.Nil(t, f.Currency)
	assert.Nil(t, f.Date)
}

func TestDecodeFieldsNulls(t *testing.T) {
	f, err := decodeFields(`{"display_name":null,"amount":null,"currency":null,"date":null,"description":null,"counterparty":null}`)
	require.NoError(t, err)
	assert.Empty(t, f.DisplayName)
	assert.Nil(t, f.Amount)
	assert.Nil(t, f.Currency)
	assert.Nil(t, f.Date)
}

func TestDecodeFieldsRejectsNonJSON(t *testing.T) {
	_, err := decodeFields("The total amount was 20 euros.")
	assert.Error(t, err)
}
