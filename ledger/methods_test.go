package ledger_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/float-ledger/ledger"
)

// =============================================================================
// PAYMENT METHODS
// =============================================================================

func TestRenameMethod_InPlaceKeepsHistory(t *testing.T) {
	// GIVEN: M-Pesa holding float and a client transaction
	l, _ := newTestLedger(t)
	fund(t, l, "m-pesa", "500")
	c := newClient(t, l, "Ana Machava", "841234567")
	tx := record(t, l, c.ID, ledger.Outflow, "200", "m-pesa")

	// WHEN: Renaming in place
	m, err := l.RenameMethod(context.Background(), "m-pesa", "Vodacom M-Pesa", ledger.RenameInPlace)
	require.NoError(t, err)

	// THEN: Same key, new name, float and history untouched
	assert.Equal(t, ledger.MethodID("m-pesa"), m.ID)
	assert.Equal(t, "Vodacom M-Pesa", m.Name)
	assertDecimal(t, "300", l.FloatBalance("m-pesa"))
	found, _ := l.FindTransaction(c.ID, tx.ID)
	assert.Equal(t, ledger.MethodID("m-pesa"), found.Transaction.Method)

	resolved, err := l.ResolveMethod("vodacom m-pesa")
	require.NoError(t, err)
	assert.Equal(t, m.ID, resolved.ID)
	assert.Len(t, l.Methods(), 2)
}

func TestRenameMethod_ReplaceStartsNewRail(t *testing.T) {
	l, _ := newTestLedger(t)
	fund(t, l, "m-pesa", "500")

	m, err := l.RenameMethod(context.Background(), "m-pesa", "M-Pesa Business", ledger.RenameReplace)
	require.NoError(t, err)

	// A new active rail with the old color, the old one deactivated
	assert.Equal(t, ledger.MethodID("m-pesa-business"), m.ID)
	assert.Equal(t, "#dc2626", m.Color)
	assert.True(t, m.Active)
	methods := l.Methods()
	require.Len(t, methods, 3)
	assert.False(t, methods[1].Active)

	// Float stays with the old rail
	assertDecimal(t, "500", l.FloatBalance("m-pesa"))
	assertDecimal(t, "0", l.FloatBalance(m.ID))

	active := l.ActiveMethods()
	require.Len(t, active, 2)
	assert.Equal(t, ledger.MethodID("cash"), active[0].ID)
	assert.Equal(t, m.ID, active[1].ID)
}

func TestRenameMethod_Rejections(t *testing.T) {
	l, _ := newTestLedger(t)

	_, err := l.RenameMethod(context.Background(), "m-pesa", "cash", ledger.RenameInPlace)
	assert.ErrorIs(t, err, ledger.ErrDuplicateMethod)
	_, err = l.RenameMethod(context.Background(), "m-pesa", " ", ledger.RenameInPlace)
	assert.ErrorIs(t, err, ledger.ErrInvalidMethod)
	_, err = l.RenameMethod(context.Background(), "m-pesa", "Other", "merge")
	assert.ErrorIs(t, err, ledger.ErrInvalidMethod)
	_, err = l.RenameMethod(context.Background(), "paypal", "Other", ledger.RenameInPlace)
	assert.ErrorIs(t, err, ledger.ErrMethodNotFound)

	// Renaming to its own name in another case is fine
	m, err := l.RenameMethod(context.Background(), "m-pesa", "M-PESA", ledger.RenameInPlace)
	require.NoError(t, err)
	assert.Equal(t, "M-PESA", m.Name)
}

func TestAddMethod(t *testing.T) {
	l, _ := newTestLedger(t)

	m, err := l.AddMethod(context.Background(), " E-Mola ", "#f59e0b")
	require.NoError(t, err)
	assert.Equal(t, ledger.MethodID("e-mola"), m.ID)
	assert.Equal(t, "E-Mola", m.Name)
	assert.True(t, m.Active)

	_, err = l.AddMethod(context.Background(), "e-mola", "")
	assert.ErrorIs(t, err, ledger.ErrDuplicateMethod)

	// A slug collision with an inactive rail gets a generated key
	_, err = l.SetMethodActive(context.Background(), "e-mola", false)
	require.NoError(t, err)
	again, err := l.AddMethod(context.Background(), "E-Mola", "")
	require.NoError(t, err)
	assert.NotEqual(t, m.ID, again.ID)
}

func TestSetMethodActive(t *testing.T) {
	l, _ := newTestLedger(t)
	fund(t, l, "m-pesa", "100")

	m, err := l.SetMethodActive(context.Background(), "m-pesa", false)
	require.NoError(t, err)
	assert.False(t, m.Active)

	// Inactive rails keep their float visible
	assertDecimal(t, "100", l.FloatBalance("m-pesa"))
	assert.Len(t, l.ActiveMethods(), 1)

	// Reactivation is refused while another active rail uses the name
	_, err = l.AddMethod(context.Background(), "M-Pesa", "")
	require.NoError(t, err)
	_, err = l.SetMethodActive(context.Background(), "m-pesa", true)
	assert.ErrorIs(t, err, ledger.ErrDuplicateMethod)

	_, err = l.SetMethodActive(context.Background(), "paypal", true)
	assert.ErrorIs(t, err, ledger.ErrMethodNotFound)
}

func TestSeedMethods_KeepsRuntimeChanges(t *testing.T) {
	l, _ := newTestLedger(t)
	_, err := l.RenameMethod(context.Background(), "cash", "Dinheiro", ledger.RenameInPlace)
	require.NoError(t, err)

	// Restart with the configured list plus a new rail
	require.NoError(t, l.SeedMethods(context.Background(), []ledger.PaymentMethod{
		{ID: "cash", Name: "Cash", Active: true},
		{ID: "m-pesa", Name: "M-Pesa", Active: true},
		{Name: "E-Mola", Active: true},
	}))

	methods := l.Methods()
	require.Len(t, methods, 3)
	assert.Equal(t, "Dinheiro", methods[0].Name)
	assert.Equal(t, ledger.MethodID("e-mola"), methods[2].ID)
}

func TestResolveMethod(t *testing.T) {
	l, _ := newTestLedger(t)

	m, err := l.ResolveMethod("cash")
	require.NoError(t, err)
	assert.Equal(t, "Cash", m.Name)

	m, err = l.ResolveMethod(" M-PESA ")
	require.NoError(t, err)
	assert.Equal(t, ledger.MethodID("m-pesa"), m.ID)

	_, err = l.ResolveMethod("PayPal")
	assert.ErrorIs(t, err, ledger.ErrMethodNotFound)
}
