/*
store.go - Ledger Store: the single-writer state machine

PURPOSE:
  The Ledger owns the authoritative State and is the only thing that
  mutates it. Every mutating operation (record/edit transaction, close
  account, add/edit/delete client, adjust float, method changes) is an
  atomic read-modify-write over the WHOLE state.

MUTATION PROTOCOL (mutate):
  1. Take the write lock
  2. Deep-clone the current state
  3. Apply the operation to the clone (may fail -> nothing changed)
  4. Persister.Save(clone) (may fail -> nothing changed, retryable)
  5. Swap the clone in

  No reader ever observes a partially-applied update, and a failed save
  never corrupts in-memory state or consumes an invoice number.

PERSISTENCE:
  The Persister contract is whole-state: Load() and Save(state). The core
  is agnostic to the medium.
  - ledger/store/memory.go: in-memory, for tests and dev
  - store/sqlite/sqlite.go: SQLite, for production

CONCURRENCY:
  One logical writer. Multi-device deployments must serialize writes
  outside this package (single-writer lock or last-write-wins merge in the
  sync collaborator).

SEE ALSO:
  - balance.go: figures derived from State on every read
*/
package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// =============================================================================
// PERSISTER - Whole-state load/save collaborator
// =============================================================================

type Persister interface {
	// Load returns the last saved state. A fresh store returns NewState().
	Load(ctx context.Context) (State, error)

	// Save replaces the stored state. Either everything is written or nothing.
	Save(ctx context.Context, s State) error
}

// ConfirmationHook is called after a persisted Outflow. It is the
// "confirmation-needed" signal for the notification collaborator.
type ConfirmationHook func(ctx context.Context, c Client, tx Transaction)

// =============================================================================
// LEDGER
// =============================================================================

type Ledger struct {
	mu    sync.RWMutex
	state State

	persister Persister
	log       *zap.Logger
	now       func() time.Time
	newID     func() string
	onOutflow ConfirmationHook

	maxAmount   decimal.Decimal // edit cap, zero disables it
	countryCode string
}

type Option func(*Ledger)

func WithLogger(l *zap.Logger) Option {
	return func(led *Ledger) { led.log = l }
}

// WithClock overrides time.Now (tests).
func WithClock(now func() time.Time) Option {
	return func(led *Ledger) { led.now = now }
}

// WithIDGenerator overrides uuid generation (tests).
func WithIDGenerator(gen func() string) Option {
	return func(led *Ledger) { led.newID = gen }
}

func WithConfirmationHook(h ConfirmationHook) Option {
	return func(led *Ledger) { led.onOutflow = h }
}

// WithMaxAmount caps the amount an edit may set. Zero disables the cap.
// Recording is bounded by the float guard only.
func WithMaxAmount(max decimal.Decimal) Option {
	return func(led *Ledger) { led.maxAmount = max }
}

// WithPhoneCountryCode sets the dialing code used to normalize phones.
func WithPhoneCountryCode(code string) Option {
	return func(led *Ledger) { led.countryCode = code }
}

// Open loads the state from p and returns a ready ledger.
func Open(ctx context.Context, p Persister, opts ...Option) (*Ledger, error) {
	l := &Ledger{
		persister:   p,
		log:         zap.NewNop(),
		now:         time.Now,
		newID:       uuid.NewString,
		maxAmount:   DefaultMaxAmount,
		countryCode: DefaultCountryCode,
	}
	for _, opt := range opts {
		opt(l)
	}

	s, err := p.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}
	if s.FloatAdjustments == nil {
		s.FloatAdjustments = make(map[MethodID]decimal.Decimal)
	}
	if next := nextFreeInvoice(s); s.InvoiceCounter < next {
		s.InvoiceCounter = next
	}
	l.state = s

	l.log.Info("ledger opened",
		zap.Int("clients", len(s.Clients)),
		zap.Int("methods", len(s.Methods)),
		zap.Int64("next_invoice", s.InvoiceCounter))
	return l, nil
}

// Snapshot returns a deep copy of the current state.
func (l *Ledger) Snapshot() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.Clone()
}

// read runs fn against the current state under the read lock. fn must not
// retain references into the state.
func (l *Ledger) read(fn func(s *State)) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	fn(&l.state)
}

// mutate applies fn to a clone of the state, persists it and swaps it in.
func (l *Ledger) mutate(ctx context.Context, fn func(s *State) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	next := l.state.Clone()
	if err := fn(&next); err != nil {
		return err
	}
	if err := l.persister.Save(ctx, next); err != nil {
		l.log.Error("ledger save failed, state unchanged", zap.Error(err))
		return fmt.Errorf("save ledger: %w", err)
	}
	l.state = next
	return nil
}

// Replace installs a whole new state (backup import). The invoice counter
// never moves backwards and always lands past every archived invoice.
func (l *Ledger) Replace(ctx context.Context, s State) error {
	if err := ValidateState(s); err != nil {
		return err
	}
	err := l.mutate(ctx, func(cur *State) error {
		next := s.Clone()
		if next.InvoiceCounter < cur.InvoiceCounter {
			next.InvoiceCounter = cur.InvoiceCounter
		}
		if free := nextFreeInvoice(next); next.InvoiceCounter < free {
			next.InvoiceCounter = free
		}
		*cur = next
		return nil
	})
	if err != nil {
		return err
	}
	l.log.Info("ledger state replaced", zap.Int("clients", len(s.Clients)))
	return nil
}
