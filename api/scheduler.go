/*
scheduler.go - Automated debt reminder scheduler

PURPOSE:
  Periodically looks for clients who still owe money and have been quiet
  for a while, and sends them the debt reminder SMS. The manual
  POST /api/clients/{id}/remind endpoint covers the on-demand case.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - A client is due when debt > 0 and its latest active transaction is
    older than MinAge
  - A client reminded less than MinAge ago is skipped, so one quiet
    debtor gets at most one reminder per MinAge window
  - Reminder history is in memory only; a restart may remind once more

CONFIGURATION:
  - CheckInterval: How often to check (REMINDER_INTERVAL, 0 disables)
  - MinAge:        Quiet period before reminding (REMINDER_MIN_AGE)

USAGE:
  scheduler := NewReminderScheduler(ledger, notifier, logger)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: RemindDebt endpoint (manual reminder)
  - notify/notify.go: reminder template
*/
package api

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/warp/float-ledger/ledger"
	"github.com/warp/float-ledger/notify"
)

// ReminderScheduler sends debt reminders on a timer.
type ReminderScheduler struct {
	Ledger        *ledger.Ledger
	Notifier      *notify.Service
	CheckInterval time.Duration
	MinAge        time.Duration
	Enabled       bool

	log    *zap.Logger
	now    func() time.Time
	sentMu sync.Mutex
	sent   map[ledger.ClientID]time.Time

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewReminderScheduler creates a new scheduler.
func NewReminderScheduler(l *ledger.Ledger, n *notify.Service, log *zap.Logger) *ReminderScheduler {
	if log == nil {
		log = zap.NewNop()
	}
	return &ReminderScheduler{
		Ledger:        l,
		Notifier:      n,
		CheckInterval: 24 * time.Hour,
		MinAge:        7 * 24 * time.Hour,
		Enabled:       true,
		log:           log,
		now:           time.Now,
		sent:          make(map[ledger.ClientID]time.Time),
		stop:          make(chan struct{}),
	}
}

// Start begins the scheduler.
func (rs *ReminderScheduler) Start() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if !rs.Enabled || rs.CheckInterval <= 0 {
		rs.log.Info("reminder scheduler disabled")
		return
	}

	rs.ticker = time.NewTicker(rs.CheckInterval)
	rs.wg.Add(1)

	go rs.run()

	rs.log.Info("reminder scheduler started",
		zap.Duration("interval", rs.CheckInterval),
		zap.Duration("min_age", rs.MinAge))
}

// Stop stops the scheduler.
func (rs *ReminderScheduler) Stop() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.ticker != nil {
		rs.ticker.Stop()
		close(rs.stop)
		rs.wg.Wait()
		rs.ticker = nil
		rs.log.Info("reminder scheduler stopped")
	}
}

func (rs *ReminderScheduler) run() {
	defer rs.wg.Done()

	for {
		select {
		case <-rs.ticker.C:
			rs.RunNow(context.Background())
		case <-rs.stop:
			return
		}
	}
}

// RunNow checks every client once and returns how many were reminded.
func (rs *ReminderScheduler) RunNow(ctx context.Context) int {
	now := rs.now()
	reminded, skipped := 0, 0

	for _, c := range rs.Ledger.Clients() {
		debt := ledger.ClientDebt(c)
		if !debt.IsPositive() {
			continue
		}
		if now.Sub(lastActivity(c)) < rs.MinAge {
			skipped++
			continue
		}
		if last, ok := rs.lastSent(c.ID); ok && now.Sub(last) < rs.MinAge {
			skipped++
			continue
		}

		if _, err := rs.Notifier.RemindDebt(ctx, c, debt); err != nil {
			rs.log.Warn("reminder failed", zap.String("client_id", string(c.ID)), zap.Error(err))
			continue
		}
		rs.markSent(c.ID, now)
		reminded++
	}

	if reminded > 0 || skipped > 0 {
		rs.log.Info("reminder check completed",
			zap.Int("reminded", reminded),
			zap.Int("skipped", skipped))
	}
	return reminded
}

func (rs *ReminderScheduler) lastSent(id ledger.ClientID) (time.Time, bool) {
	rs.sentMu.Lock()
	defer rs.sentMu.Unlock()
	t, ok := rs.sent[id]
	return t, ok
}

func (rs *ReminderScheduler) markSent(id ledger.ClientID, at time.Time) {
	rs.sentMu.Lock()
	defer rs.sentMu.Unlock()
	rs.sent[id] = at
}

// lastActivity is the newest transaction date of the active account.
func lastActivity(c ledger.Client) time.Time {
	var latest time.Time
	for _, tx := range c.ActiveAccount {
		if tx.Date.After(latest) {
			latest = tx.Date
		}
	}
	return latest
}
