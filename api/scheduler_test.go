package api

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/float-ledger/ledger"
	"github.com/warp/float-ledger/ledger/store"
	"github.com/warp/float-ledger/notify"
)

type schedulerFixture struct {
	ledger    *ledger.Ledger
	sms       *notify.URISender
	scheduler *ReminderScheduler
	now       time.Time
}

func newSchedulerFixture(t *testing.T) *schedulerFixture {
	t.Helper()
	ctx := context.Background()

	l, err := ledger.Open(ctx, store.NewMemory())
	require.NoError(t, err)
	require.NoError(t, l.SeedMethods(ctx, []ledger.PaymentMethod{{ID: "cash", Name: "Cash", Active: true}}))
	_, err = l.AdjustFloat(ctx, "cash", amount("10000"))
	require.NoError(t, err)

	sms := &notify.URISender{}
	f := &schedulerFixture{
		ledger:    l,
		sms:       sms,
		scheduler: NewReminderScheduler(l, notify.NewService(notify.DefaultTemplates(), "MZN", sms, nil), nil),
		now:       time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC),
	}
	f.scheduler.now = func() time.Time { return f.now }
	return f
}

func (f *schedulerFixture) lend(t *testing.T, name, phone, value string, at time.Time) ledger.Client {
	t.Helper()
	ctx := context.Background()
	c, err := f.ledger.CreateClient(ctx, name, phone)
	require.NoError(t, err)
	_, err = f.ledger.RecordTransaction(ctx, c.ID, ledger.NewTransaction{
		Type: ledger.Outflow, Amount: amount(value), Method: "cash", Date: at,
	})
	require.NoError(t, err)
	return c
}

func TestReminderScheduler_RemindsQuietDebtors(t *testing.T) {
	// GIVEN: One debtor quiet for a month, one who borrowed yesterday
	f := newSchedulerFixture(t)
	f.lend(t, "Ana Machava", "841234567", "500", f.now.AddDate(0, -1, 0))
	f.lend(t, "Joao Sitoe", "861112223", "300", f.now.Add(-24*time.Hour))

	// WHEN: Running a check
	n := f.scheduler.RunNow(context.Background())

	// THEN: Only the quiet debtor gets a reminder
	assert.Equal(t, 1, n)
	links := f.sms.Links()
	require.Len(t, links, 1)
	assert.Contains(t, links[0], "sms:+258841234567")
	assert.Contains(t, links[0], "500")
}

func TestReminderScheduler_OneReminderPerWindow(t *testing.T) {
	f := newSchedulerFixture(t)
	f.lend(t, "Ana Machava", "841234567", "500", f.now.AddDate(0, -1, 0))

	assert.Equal(t, 1, f.scheduler.RunNow(context.Background()))

	// Same day: already reminded
	f.now = f.now.Add(6 * time.Hour)
	assert.Equal(t, 0, f.scheduler.RunNow(context.Background()))

	// A week later the window is over
	f.now = f.now.AddDate(0, 0, 7)
	assert.Equal(t, 1, f.scheduler.RunNow(context.Background()))
	assert.Len(t, f.sms.Links(), 2)
}

func TestReminderScheduler_SkipsSettledClients(t *testing.T) {
	f := newSchedulerFixture(t)
	c := f.lend(t, "Rosa Cossa", "871239876", "800", f.now.AddDate(0, -1, 0))
	_, err := f.ledger.RecordTransaction(context.Background(), c.ID, ledger.NewTransaction{
		Type: ledger.Inflow, Amount: amount("800"), Method: "cash", Date: f.now.AddDate(0, 0, -20),
	})
	require.NoError(t, err)

	assert.Equal(t, 0, f.scheduler.RunNow(context.Background()))
	assert.Empty(t, f.sms.Links())
}

func TestReminderScheduler_StartStop(t *testing.T) {
	f := newSchedulerFixture(t)

	// Disabled: Start and Stop are no-ops
	f.scheduler.CheckInterval = 0
	f.scheduler.Start()
	assert.Nil(t, f.scheduler.ticker)
	f.scheduler.Stop()

	// Enabled: Stop waits for the loop and can be called twice
	f.scheduler.CheckInterval = time.Hour
	f.scheduler.Start()
	assert.NotNil(t, f.scheduler.ticker)
	f.scheduler.Stop()
	f.scheduler.Stop()
	assert.Nil(t, f.scheduler.ticker)
}
