package backup

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/float-ledger/ledger"
)

func sampleState() ledger.State {
	day := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	s := ledger.NewState()
	s.InvoiceCounter = 4
	s.Methods = []ledger.PaymentMethod{{ID: "cash", Name: "Cash", Active: true}}
	s.FloatAdjustments["cash"] = decimal.RequireFromString("500")
	s.Clients = []ledger.Client{{
		ID:    "c-1",
		Name:  "Ana Maria",
		Phone: "+258841234567",
		ActiveAccount: []ledger.Transaction{
			{ID: "t-3", Type: ledger.Outflow, Amount: decimal.RequireFromString("75.5"), Method: "cash", Date: day},
		},
		Archive: []ledger.ArchivedAccount{{
			InvoiceNumber: "FAT-0003",
			DateClosed:    day.Add(-time.Hour),
			Transactions: []ledger.Transaction{
				{ID: "t-2", Type: ledger.Inflow, Amount: decimal.NewFromInt(10), Method: "cash", Date: day.Add(-2 * time.Hour)},
				{ID: "t-1", Type: ledger.Outflow, Amount: decimal.NewFromInt(10), Method: "cash", Date: day.Add(-3 * time.Hour)},
			},
		}},
	}}
	return s
}

func TestExportImport_RoundTrip(t *testing.T) {
	// GIVEN: An exported ledger
	var buf bytes.Buffer
	now := time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, Export(&buf, sampleState(), now))

	// WHEN: Importing the file
	s, stats, err := Import(&buf)

	// THEN: Everything comes back and the stats count all transactions
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Clients)
	assert.Equal(t, 3, stats.Transactions)
	assert.True(t, stats.ExportedAt.Equal(now))

	assert.Equal(t, int64(4), s.InvoiceCounter)
	assert.True(t, s.FloatAdjustments["cash"].Equal(decimal.NewFromInt(500)))
	require.Len(t, s.Clients, 1)
	assert.True(t, s.Clients[0].ActiveAccount[0].Amount.Equal(decimal.RequireFromString("75.5")))
	assert.Equal(t, "FAT-0003", s.Clients[0].Archive[0].InvoiceNumber)
	assert.Equal(t, ledger.TransactionID("t-2"), s.Clients[0].Archive[0].Transactions[0].ID)
}

func TestExport_Envelope(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Export(&buf, ledger.NewState(), time.Now()))

	var raw map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &raw))
	assert.Equal(t, AppName, raw["app"])
	assert.Equal(t, Version, raw["version"])
	data := raw["data"].(map[string]any)
	assert.Equal(t, []any{}, data["clients"])
	assert.EqualValues(t, 1, data["invoice_counter"])
}

func TestImport_Rejects(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `{{{`},
		{"missing data", `{"app":"x"}`},
		{"missing clients", `{"data":{"invoice_counter":3}}`},
		{"negative counter", `{"data":{"clients":[],"invoice_counter":-2}}`},
		{"zero amount", `{"data":{"clients":[{"id":"c","active_account":[{"id":"t","type":"Inflow","amount":"0","method":"cash"}]}]}}`},
		{"unknown type", `{"data":{"clients":[{"id":"c","active_account":[{"id":"t","type":"Refund","amount":"5","method":"cash"}]}]}}`},
		{"duplicate client id", `{"data":{"clients":[{"id":"c"},{"id":"c"}]}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Import(strings.NewReader(tt.body))
			assert.ErrorIs(t, err, ErrInvalidBackup)
		})
	}
}

func TestImport_DefaultsAndNumericAmounts(t *testing.T) {
	// GIVEN: A hand-written file with numeric amounts and no counter
	body := `{"data":{"clients":[{"id":"c","name":"Ana","phone":"+258841234567",
		"active_account":[{"id":"t","type":"Outflow","amount":120.25,"method":"cash"}]}]}}`

	// WHEN: Importing it
	s, stats, err := Import(strings.NewReader(body))

	// THEN: The counter starts at 1 and the numeric amount is exact
	require.NoError(t, err)
	assert.Equal(t, int64(1), s.InvoiceCounter)
	assert.Equal(t, 1, stats.Transactions)
	assert.True(t, s.Clients[0].ActiveAccount[0].Amount.Equal(decimal.RequireFromString("120.25")))
}
