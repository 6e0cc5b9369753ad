package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/float-ledger/ledger"
)

// =============================================================================
// EDITING - Active and archived transactions
// =============================================================================

// closedLoan returns a client whose 100 cash loan was repaid and archived.
func closedLoan(t *testing.T, l *ledger.Ledger) (ledger.Client, ledger.Transaction) {
	t.Helper()
	fund(t, l, "cash", "1000")
	c := newClient(t, l, "Ana Machava", "841234567")
	out := record(t, l, c.ID, ledger.Outflow, "100", "cash")
	record(t, l, c.ID, ledger.Inflow, "100", "cash")
	_, err := l.CloseAccount(context.Background(), c.ID)
	require.NoError(t, err)
	return c, out
}

func TestUpdateTransaction_ArchivedAmountShiftsFloat(t *testing.T) {
	// GIVEN: An archived 100 loan, cash back at 1000
	l, _ := newTestLedger(t)
	c, out := closedLoan(t, l)
	assertDecimal(t, "1000", l.FloatBalance("cash"))

	// WHEN: Correcting the archived loan to 120
	amount := dec("120")
	updated, err := l.UpdateTransaction(context.Background(), c.ID, out.ID, ledger.TransactionPatch{Amount: &amount})
	require.NoError(t, err)

	// THEN: Same id, new amount inside the archive, float shifted by 20
	assert.Equal(t, out.ID, updated.ID)
	found, err := l.FindTransaction(c.ID, out.ID)
	require.NoError(t, err)
	assert.True(t, found.Archived)
	assert.Equal(t, "FAT-0001", found.InvoiceNumber)
	assertDecimal(t, "120", found.Transaction.Amount)
	assertDecimal(t, "980", l.FloatBalance("cash"))

	// AND: The active account is still empty, debt untouched
	debt, _ := l.Debt(c.ID)
	assert.True(t, debt.IsZero())
}

func TestUpdateTransaction_ArchivedMethodMovesFloat(t *testing.T) {
	l, _ := newTestLedger(t)
	c, out := closedLoan(t, l)

	method := ledger.MethodID("m-pesa")
	_, err := l.UpdateTransaction(context.Background(), c.ID, out.ID, ledger.TransactionPatch{Method: &method})
	require.NoError(t, err)

	// The outflow left cash and now weighs on m-pesa
	assertDecimal(t, "1100", l.FloatBalance("cash"))
	assertDecimal(t, "-100", l.FloatBalance("m-pesa"))

	got, _ := l.Client(c.ID)
	require.Len(t, got.Archive, 1)
	for _, tx := range got.Archive[0].Transactions {
		if tx.ID == out.ID {
			assert.Equal(t, method, tx.Method)
		} else {
			assert.Equal(t, ledger.MethodID("cash"), tx.Method, "other transactions untouched")
		}
	}
}

func TestUpdateTransaction_ActiveFields(t *testing.T) {
	l, _ := newTestLedger(t)
	fund(t, l, "cash", "1000")
	c := newClient(t, l, "Ana Machava", "841234567")
	tx := record(t, l, c.ID, ledger.Outflow, "100", "cash")

	typ := ledger.Inflow
	date := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	empty := ""
	updated, err := l.UpdateTransaction(context.Background(), c.ID, tx.ID, ledger.TransactionPatch{
		Type: &typ, Date: &date, Description: &empty,
	})
	require.NoError(t, err)

	assert.Equal(t, ledger.Inflow, updated.Type)
	assert.True(t, updated.Settled)
	assert.Equal(t, date, updated.Date)
	assert.Equal(t, "Inflow", updated.Description, "empty description falls back to the type")
	debt, _ := l.Debt(c.ID)
	assertDecimal(t, "-100", debt)
	assertDecimal(t, "1100", l.FloatBalance("cash"))
}

func TestUpdateTransaction_Rejections(t *testing.T) {
	l, _ := newTestLedger(t)
	c, out := closedLoan(t, l)
	_, err := l.SetMethodActive(context.Background(), "m-pesa", false)
	require.NoError(t, err)

	zero := dec("0")
	bad := ledger.TxType("Loan")
	inactive := ledger.MethodID("m-pesa")

	_, err = l.UpdateTransaction(context.Background(), c.ID, out.ID, ledger.TransactionPatch{Amount: &zero})
	assert.ErrorIs(t, err, ledger.ErrInvalidAmount)
	_, err = l.UpdateTransaction(context.Background(), c.ID, out.ID, ledger.TransactionPatch{Type: &bad})
	assert.ErrorIs(t, err, ledger.ErrInvalidType)
	_, err = l.UpdateTransaction(context.Background(), c.ID, out.ID, ledger.TransactionPatch{Method: &inactive})
	assert.ErrorIs(t, err, ledger.ErrMethodInactive)
	_, err = l.UpdateTransaction(context.Background(), c.ID, "missing", ledger.TransactionPatch{})
	assert.ErrorIs(t, err, ledger.ErrTransactionNotFound)
	_, err = l.UpdateTransaction(context.Background(), "ghost", out.ID, ledger.TransactionPatch{})
	assert.ErrorIs(t, err, ledger.ErrClientNotFound)

	found, _ := l.FindTransaction(c.ID, out.ID)
	assertDecimal(t, "100", found.Transaction.Amount)
}

func TestUpdateTransaction_AmountCap(t *testing.T) {
	l, _ := newTestLedger(t, ledger.WithMaxAmount(dec("1000")))
	fund(t, l, "cash", "5000")
	c := newClient(t, l, "Ana Machava", "841234567")

	// Recording is not capped
	tx := record(t, l, c.ID, ledger.Outflow, "2500", "cash")

	over := dec("1000.01")
	_, err := l.UpdateTransaction(context.Background(), c.ID, tx.ID, ledger.TransactionPatch{Amount: &over})
	assert.ErrorIs(t, err, ledger.ErrInvalidAmount)

	limit := dec("1000")
	updated, err := l.UpdateTransaction(context.Background(), c.ID, tx.ID, ledger.TransactionPatch{Amount: &limit})
	require.NoError(t, err)
	assertDecimal(t, "1000", updated.Amount)
}

func TestUpdateTransaction_NotFloatChecked(t *testing.T) {
	// Edits correct history; the float guard only applies when money moves.
	l, _ := newTestLedger(t)
	fund(t, l, "cash", "100")
	c := newClient(t, l, "Ana Machava", "841234567")
	tx := record(t, l, c.ID, ledger.Outflow, "100", "cash")

	amount := dec("250")
	_, err := l.UpdateTransaction(context.Background(), c.ID, tx.ID, ledger.TransactionPatch{Amount: &amount})
	require.NoError(t, err)
	assertDecimal(t, "-150", l.FloatBalance("cash"))
}

func TestFindTransaction_Active(t *testing.T) {
	l, _ := newTestLedger(t)
	fund(t, l, "cash", "100")
	c := newClient(t, l, "Ana Machava", "841234567")
	tx := record(t, l, c.ID, ledger.Outflow, "10", "cash")

	found, err := l.FindTransaction(c.ID, tx.ID)
	require.NoError(t, err)
	assert.False(t, found.Archived)
	assert.Empty(t, found.InvoiceNumber)

	_, err = l.FindTransaction(c.ID, "nope")
	assert.ErrorIs(t, err, ledger.ErrTransactionNotFound)
}
