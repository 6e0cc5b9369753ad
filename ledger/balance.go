/*
balance.go - Balance Engine

PURPOSE:
  Pure functions deriving every figure the agent sees from the current
  State. Nothing here mutates, caches or reads a clock.

TWO VIEWS OF THE SAME STREAM:
  Client debt (active account only):
    Outflow -> +amount, Inflow -> -amount
    Positive means the client owes the agent.

  Agent float per method (all clients, active AND archived):
    adjustments[m] + sum(Inflow -> +amount, Outflow -> -amount)

CRITICAL INVARIANT:
  Closing an account moves transactions from active to archive. Debt
  ignores the archive, float includes it, so closing changes debt (already
  zero) and never changes any float balance.

EXAMPLE:
  Client borrows 100 in Cash, repays 100 in Cash:
    debt  = +100 - 100 = 0
    float = adj + (-100 + 100) = adj
*/
package ledger

import (
	"sort"

	"github.com/shopspring/decimal"
)

// ClientDebt returns what the client currently owes the agent.
func ClientDebt(c Client) decimal.Decimal {
	total := decimal.Zero
	for _, tx := range c.ActiveAccount {
		total = total.Add(tx.debtDelta())
	}
	return total
}

// FloatBalances returns the float held in every payment method. Registered
// methods are always present; ids only found in history or adjustments are
// included too so nothing silently drops out of the totals.
func FloatBalances(s State) map[MethodID]decimal.Decimal {
	out := make(map[MethodID]decimal.Decimal, len(s.Methods))
	for _, m := range s.Methods {
		out[m.ID] = decimal.Zero
	}
	for m, adj := range s.FloatAdjustments {
		out[m] = out[m].Add(adj)
	}
	add := func(tx Transaction) {
		out[tx.Method] = out[tx.Method].Add(tx.floatDelta())
	}
	for _, c := range s.Clients {
		for _, tx := range c.ActiveAccount {
			add(tx)
		}
		for _, a := range c.Archive {
			for _, tx := range a.Transactions {
				add(tx)
			}
		}
	}
	return out
}

// FloatBalance returns the float held in a single payment method.
func FloatBalance(s State, method MethodID) decimal.Decimal {
	total := s.FloatAdjustments[method]
	for _, c := range s.Clients {
		for _, tx := range c.ActiveAccount {
			if tx.Method == method {
				total = total.Add(tx.floatDelta())
			}
		}
		for _, a := range c.Archive {
			for _, tx := range a.Transactions {
				if tx.Method == method {
					total = total.Add(tx.floatDelta())
				}
			}
		}
	}
	return total
}

// TotalFloat sums the float across every method.
func TotalFloat(s State) decimal.Decimal {
	total := decimal.Zero
	for _, v := range FloatBalances(s) {
		total = total.Add(v)
	}
	return total
}

// =============================================================================
// ACCOUNT TOTALS - Used by invoices and summaries
// =============================================================================

type Totals struct {
	Inflow  decimal.Decimal
	Outflow decimal.Decimal
}

// Balance is Outflow - Inflow, the debt the transactions represent.
func (t Totals) Balance() decimal.Decimal {
	return t.Outflow.Sub(t.Inflow)
}

func AccountTotals(txs []Transaction) Totals {
	t := Totals{Inflow: decimal.Zero, Outflow: decimal.Zero}
	for _, tx := range txs {
		switch tx.Type {
		case Inflow:
			t.Inflow = t.Inflow.Add(tx.Amount)
		case Outflow:
			t.Outflow = t.Outflow.Add(tx.Amount)
		}
	}
	return t
}

// =============================================================================
// BALANCE DISPLAY
// =============================================================================

// MethodBalance is one row of the agent dashboard.
type MethodBalance struct {
	Method  PaymentMethod
	Balance decimal.Decimal
}

// MethodBalances returns registered methods in configured order followed by
// unregistered ids (sorted) with their float.
func MethodBalances(s State) []MethodBalance {
	balances := FloatBalances(s)
	out := make([]MethodBalance, 0, len(balances))
	seen := make(map[MethodID]bool, len(s.Methods))
	for _, m := range s.Methods {
		seen[m.ID] = true
		out = append(out, MethodBalance{Method: m, Balance: balances[m.ID]})
	}
	var orphans []MethodID
	for id := range balances {
		if !seen[id] {
			orphans = append(orphans, id)
		}
	}
	sort.Slice(orphans, func(i, j int) bool { return orphans[i] < orphans[j] })
	for _, id := range orphans {
		out = append(out, MethodBalance{
			Method:  PaymentMethod{ID: id, Name: string(id)},
			Balance: balances[id],
		})
	}
	return out
}
