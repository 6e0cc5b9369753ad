package ledger

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// =============================================================================
// FLOAT - Manual adjustments and reads
// =============================================================================

// AdjustFloat adds a signed correction to a method's float (money put into
// or taken out of a rail outside any client account).
func (l *Ledger) AdjustFloat(ctx context.Context, method MethodID, delta decimal.Decimal) (decimal.Decimal, error) {
	if delta.IsZero() {
		return decimal.Zero, fmt.Errorf("%w: adjustment cannot be zero", ErrInvalidAmount)
	}

	var balance decimal.Decimal
	err := l.mutate(ctx, func(s *State) error {
		if _, ok := s.method(method); !ok {
			return fmt.Errorf("%w: %q", ErrMethodNotFound, method)
		}
		s.FloatAdjustments[method] = s.FloatAdjustments[method].Add(delta)
		balance = FloatBalance(*s, method)
		return nil
	})
	if err != nil {
		return decimal.Zero, err
	}

	l.log.Info("float adjusted",
		zap.String("method", string(method)),
		zap.String("delta", delta.String()),
		zap.String("balance", balance.String()))
	return balance, nil
}

// ReconcileFloat sets the adjustment so the method's float equals a
// physically counted amount. It returns the delta that was applied.
func (l *Ledger) ReconcileFloat(ctx context.Context, method MethodID, counted decimal.Decimal) (decimal.Decimal, error) {
	var delta decimal.Decimal
	err := l.mutate(ctx, func(s *State) error {
		if _, ok := s.method(method); !ok {
			return fmt.Errorf("%w: %q", ErrMethodNotFound, method)
		}
		delta = counted.Sub(FloatBalance(*s, method))
		s.FloatAdjustments[method] = s.FloatAdjustments[method].Add(delta)
		return nil
	})
	if err != nil {
		return decimal.Zero, err
	}

	l.log.Info("float reconciled",
		zap.String("method", string(method)),
		zap.String("counted", counted.String()),
		zap.String("delta", delta.String()))
	return delta, nil
}

// FloatBalances returns the current float per method.
func (l *Ledger) FloatBalances() map[MethodID]decimal.Decimal {
	var out map[MethodID]decimal.Decimal
	l.read(func(s *State) { out = FloatBalances(*s) })
	return out
}

// FloatBalance returns the current float of one method.
func (l *Ledger) FloatBalance(method MethodID) decimal.Decimal {
	var out decimal.Decimal
	l.read(func(s *State) { out = FloatBalance(*s, method) })
	return out
}

// MethodBalances returns dashboard rows in configured method order.
func (l *Ledger) MethodBalances() []MethodBalance {
	var out []MethodBalance
	l.read(func(s *State) { out = MethodBalances(*s) })
	return out
}
