package ledger_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/warp/float-ledger/ledger"
	"github.com/warp/float-ledger/ledger/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var testNow = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func newTestLedger(t *testing.T, opts ...ledger.Option) (*ledger.Ledger, *store.Memory) {
	t.Helper()
	ctx := context.Background()

	seq := 0
	base := []ledger.Option{
		ledger.WithClock(func() time.Time { return testNow }),
		ledger.WithIDGenerator(func() string {
			seq++
			return fmt.Sprintf("id-%03d", seq)
		}),
	}
	mem := store.NewMemory()
	l, err := ledger.Open(ctx, mem, append(base, opts...)...)
	require.NoError(t, err)
	require.NoError(t, l.SeedMethods(ctx, []ledger.PaymentMethod{
		{ID: "cash", Name: "Cash", Color: "#16a34a", Active: true},
		{ID: "m-pesa", Name: "M-Pesa", Color: "#dc2626", Active: true},
	}))
	return l, mem
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func fund(t *testing.T, l *ledger.Ledger, method ledger.MethodID, amount string) {
	t.Helper()
	_, err := l.AdjustFloat(context.Background(), method, dec(amount))
	require.NoError(t, err)
}

func newClient(t *testing.T, l *ledger.Ledger, name, phone string) ledger.Client {
	t.Helper()
	c, err := l.CreateClient(context.Background(), name, phone)
	require.NoError(t, err)
	return c
}

func record(t *testing.T, l *ledger.Ledger, id ledger.ClientID, typ ledger.TxType, amount string, method ledger.MethodID) ledger.Transaction {
	t.Helper()
	tx, err := l.RecordTransaction(context.Background(), id, ledger.NewTransaction{
		Type: typ, Amount: dec(amount), Method: method,
	})
	require.NoError(t, err)
	return tx
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.True(t, dec(want).Equal(got), "want %s, got %s", want, got)
}
