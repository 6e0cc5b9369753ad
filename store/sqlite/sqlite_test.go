package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/float-ledger/ledger"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleState() ledger.State {
	day := time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)
	st := ledger.NewState()
	st.InvoiceCounter = 3
	st.Methods = []ledger.PaymentMethod{
		{ID: "cash", Name: "Cash", Color: "#2e7d32", Active: true},
		{ID: "m-pesa", Name: "M-Pesa", Color: "#c62828", Active: false},
	}
	st.FloatAdjustments["cash"] = decimal.RequireFromString("150.25")
	st.Clients = []ledger.Client{
		{
			ID:        "c-1",
			Name:      "Ana Maria",
			Phone:     "+258841234567",
			CreatedAt: day,
			ActiveAccount: []ledger.Transaction{
				{ID: "t-2", Type: ledger.Inflow, Amount: decimal.RequireFromString("40.50"), Method: "cash", Date: day.Add(2 * time.Hour), Description: "Repayment"},
				{ID: "t-1", Type: ledger.Outflow, Amount: decimal.NewFromInt(100), Method: "m-pesa", Date: day, Description: "Loan"},
			},
			Archive: []ledger.ArchivedAccount{
				{
					InvoiceNumber: "FAT-0002",
					DateClosed:    day.Add(-24 * time.Hour),
					Transactions: []ledger.Transaction{
						{ID: "t-0", Type: ledger.Inflow, Amount: decimal.NewFromInt(10), Method: "cash", Date: day.Add(-48 * time.Hour), Description: "Inflow", Settled: true},
					},
				},
				{InvoiceNumber: "FAT-0001", DateClosed: day.Add(-72 * time.Hour)},
			},
		},
		{ID: "c-2", Name: "Joao", Phone: "+258861112223", CreatedAt: day},
	}
	return st
}

func TestStore_LoadEmptyDatabase(t *testing.T) {
	// GIVEN: A fresh database
	store := newTestStore(t)

	// WHEN: Loading
	st, err := store.Load(context.Background())

	// THEN: The state is empty and the first invoice is FAT-0001
	require.NoError(t, err)
	assert.Empty(t, st.Clients)
	assert.Empty(t, st.Methods)
	assert.NotNil(t, st.FloatAdjustments)
	assert.Equal(t, int64(1), st.InvoiceCounter)
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	// GIVEN: A populated state
	store := newTestStore(t)
	ctx := context.Background()
	want := sampleState()

	// WHEN: Saving and loading it back
	require.NoError(t, store.Save(ctx, want))
	got, err := store.Load(ctx)
	require.NoError(t, err)

	// THEN: Order, amounts and archive membership survive
	assert.Equal(t, want.InvoiceCounter, got.InvoiceCounter)
	assert.Equal(t, want.Methods, got.Methods)
	assert.True(t, got.FloatAdjustments["cash"].Equal(decimal.RequireFromString("150.25")))

	require.Len(t, got.Clients, 2)
	ana := got.Clients[0]
	assert.Equal(t, ledger.ClientID("c-1"), ana.ID)
	assert.Equal(t, "+258841234567", ana.Phone)
	require.Len(t, ana.ActiveAccount, 2)
	assert.Equal(t, ledger.TransactionID("t-2"), ana.ActiveAccount[0].ID)
	assert.Equal(t, "40.5", ana.ActiveAccount[0].Amount.String())
	assert.True(t, ana.ActiveAccount[1].Date.Equal(want.Clients[0].ActiveAccount[1].Date))

	require.Len(t, ana.Archive, 2)
	assert.Equal(t, "FAT-0002", ana.Archive[0].InvoiceNumber)
	require.Len(t, ana.Archive[0].Transactions, 1)
	assert.True(t, ana.Archive[0].Transactions[0].Settled)
	assert.Empty(t, ana.Archive[1].Transactions)

	assert.Empty(t, got.Clients[1].ActiveAccount)
}

func TestStore_SaveReplacesPreviousState(t *testing.T) {
	// GIVEN: A saved state with two clients
	store := newTestStore(t)
	ctx := context.Background()
	st := sampleState()
	require.NoError(t, store.Save(ctx, st))

	// WHEN: Saving a state where one client was deleted
	st.Clients = st.Clients[1:]
	require.NoError(t, store.Save(ctx, st))

	// THEN: Only the remaining client and none of the deleted client's rows are loaded
	got, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, got.Clients, 1)
	assert.Equal(t, ledger.ClientID("c-2"), got.Clients[0].ID)
	assert.Empty(t, got.Clients[0].Archive)
}

func TestStore_FailedSaveKeepsPreviousState(t *testing.T) {
	// GIVEN: A saved state
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, sampleState()))

	// WHEN: Saving a state that violates the schema (duplicate invoice number)
	bad := sampleState()
	bad.Clients[1].Archive = []ledger.ArchivedAccount{{InvoiceNumber: "FAT-0002"}}
	err := store.Save(ctx, bad)

	// THEN: The save fails and the previous state is intact
	require.Error(t, err)
	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, got.Clients[0].Archive, 2)
	assert.Empty(t, got.Clients[1].Archive)
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	// GIVEN: A ledger backed by a file database
	path := filepath.Join(t.TempDir(), "ledger.db")
	ctx := context.Background()

	store, err := New(path)
	require.NoError(t, err)
	l, err := ledger.Open(ctx, store)
	require.NoError(t, err)
	require.NoError(t, l.SeedMethods(ctx, []ledger.PaymentMethod{{ID: "cash", Name: "Cash", Active: true}}))
	c, err := l.CreateClient(ctx, "Ana Maria", "841234567")
	require.NoError(t, err)
	_, err = l.CloseAccount(ctx, c.ID)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	// WHEN: Reopening the file
	store, err = New(path)
	require.NoError(t, err)
	defer store.Close()
	l, err = ledger.Open(ctx, store)
	require.NoError(t, err)

	// THEN: Clients, archives and the invoice counter are restored
	assert.Len(t, l.Clients(), 1)
	assert.Equal(t, "FAT-0002", l.NextInvoiceNumber())
}

func TestStore_ImportedArchivesKeepInvoicesUnique(t *testing.T) {
	// GIVEN: An imported state whose counter lags behind its archive
	ctx := context.Background()
	l, err := ledger.Open(ctx, newTestStore(t))
	require.NoError(t, err)

	imported := ledger.NewState()
	imported.Clients = []ledger.Client{
		{ID: "a", Name: "Ana Maria", Phone: "+258841234567",
			Archive: []ledger.ArchivedAccount{{InvoiceNumber: "FAT-0001", DateClosed: time.Now().UTC()}}},
		{ID: "b", Name: "Joao", Phone: "+258861112223"},
	}
	require.NoError(t, l.Replace(ctx, imported))

	// WHEN: Closing the other client's account twice
	first, err := l.CloseAccount(ctx, "b")
	require.NoError(t, err)
	second, err := l.CloseAccount(ctx, "b")
	require.NoError(t, err)

	// THEN: Neither collides with the archived invoice
	assert.Equal(t, "FAT-0002", first.InvoiceNumber)
	assert.Equal(t, "FAT-0003", second.InvoiceNumber)
}

func TestStore_LoadRejectsCorruptTimestamps(t *testing.T) {
	tests := []struct {
		name    string
		update  string
		wantErr string
	}{
		{"client", "UPDATE clients SET created_at = 'yesterday'", "created_at"},
		{"archive", "UPDATE archives SET date_closed = '2025-13-40'", "date_closed"},
		{"transaction", "UPDATE transactions SET occurred_at = ''", "occurred_at"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			store := newTestStore(t)
			require.NoError(t, store.Save(ctx, sampleState()))

			_, err := store.db.ExecContext(ctx, tt.update)
			require.NoError(t, err)

			_, err = store.Load(ctx)
			assert.ErrorContains(t, err, tt.wantErr)
			assert.ErrorContains(t, err, "invalid timestamp")
		})
	}
}
