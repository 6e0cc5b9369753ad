package invoice

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/float-ledger/ledger"
)

func sampleDocument() Document {
	closed := time.Date(2025, 4, 2, 16, 0, 0, 0, time.UTC)
	return NewDocument(
		ledger.Client{ID: "c-1", Name: "Ana <Maria>", Phone: "+258841234567"},
		ledger.ArchivedAccount{
			InvoiceNumber: "FAT-0007",
			DateClosed:    closed,
			Transactions: []ledger.Transaction{
				{ID: "t-2", Type: ledger.Inflow, Amount: decimal.NewFromInt(100), Method: "m-pesa", Date: closed.Add(-time.Hour)},
				{ID: "t-1", Type: ledger.Outflow, Amount: decimal.NewFromInt(100), Method: "cash", Date: closed.Add(-48 * time.Hour), Description: "Loan"},
			},
		},
		[]ledger.PaymentMethod{{ID: "cash", Name: "Cash"}},
		"MZN",
		closed,
	)
}

func TestRender_HTML(t *testing.T) {
	// GIVEN: A settled account with one known and one unknown method
	doc := sampleDocument()

	// WHEN: Rendering
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, doc))
	html := buf.String()

	// THEN: Number, rows, totals and status are present, and input is escaped
	assert.Contains(t, html, "FAT-0007")
	assert.Contains(t, html, "Ana &lt;Maria&gt;")
	assert.Contains(t, html, "Cash")
	assert.Contains(t, html, "m-pesa")
	assert.Contains(t, html, "+100.00")
	assert.Contains(t, html, "-100.00")
	assert.Contains(t, html, "Inflow") // empty description falls back to type
	assert.Contains(t, html, StatusSettled)
}

func TestStatus(t *testing.T) {
	doc := sampleDocument()
	assert.Equal(t, StatusSettled, doc.Status())

	doc.Account.Transactions = doc.Account.Transactions[1:]
	assert.Equal(t, StatusPending, doc.Status())
}

func TestSummary(t *testing.T) {
	got := Summary(sampleDocument())

	assert.Contains(t, got, "Invoice FAT-0007 - Ana <Maria>")
	assert.Contains(t, got, "Total out: 100.00 MZN")
	assert.Contains(t, got, "Balance: 0.00 MZN")
	assert.Contains(t, got, "Status: SETTLED")
}
