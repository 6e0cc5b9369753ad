/*
Package ledger provides the agent ledger reconciliation core.

PURPOSE:
  A mobile-money agent lends money to clients and collects repayments
  through several payment rails (cash, mobile-money brands). This package
  turns the per-client transaction stream into two derived views:
    - client debt (what a client owes the agent)
    - agent float per payment method (what each rail currently holds)
  and freezes settled client history into invoiced archive entries.

KEY CONCEPTS IN THIS FILE (types.go):
  - Transaction: a single Inflow or Outflow on a client account
  - Client: a debtor with an active account and an archive
  - ArchivedAccount: an invoiced, frozen copy of a settled account
  - PaymentMethod: a payment rail with a stable key and a display name
  - State: the whole ledger (clients, methods, adjustments, invoice counter)

DESIGN PRINCIPLES:
  1. Derived on read: balances are never stored, always recomputed
  2. Precision: amounts use decimal.Decimal, never float64
  3. Stable keys: transactions reference methods by MethodID, so renaming
     a rail never rewrites history
  4. Whole-state mutations: every operation is an atomic read-modify-write

SEE ALSO:
  - balance.go: Balance Engine
  - store.go: Ledger (single-writer state machine) and Persister
  - archive.go: Account closing and invoice numbering
*/
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type ClientID string
type TransactionID string

// MethodID is the stable internal key of a payment rail. Display names live
// on PaymentMethod and may change; the key never does.
type MethodID string

// =============================================================================
// TRANSACTION
// =============================================================================

type TxType string

const (
	Inflow  TxType = "Inflow"  // money toward the agent (repayment, deposit)
	Outflow TxType = "Outflow" // money away from the agent (disbursement)
)

func (t TxType) Valid() bool {
	return t == Inflow || t == Outflow
}

type Transaction struct {
	ID          TransactionID
	Type        TxType
	Amount      decimal.Decimal
	Method      MethodID
	Date        time.Time
	Description string
	Settled     bool
}

// debtDelta is the transaction's contribution to the client's debt.
func (tx Transaction) debtDelta() decimal.Decimal {
	if tx.Type == Outflow {
		return tx.Amount
	}
	return tx.Amount.Neg()
}

// floatDelta is the transaction's contribution to the agent's float.
func (tx Transaction) floatDelta() decimal.Decimal {
	return tx.debtDelta().Neg()
}

// =============================================================================
// CLIENT & ARCHIVE
// =============================================================================

type ArchivedAccount struct {
	InvoiceNumber string
	DateClosed    time.Time
	Transactions  []Transaction
}

type Client struct {
	ID            ClientID
	Name          string
	Phone         string
	ActiveAccount []Transaction     // newest first
	Archive       []ArchivedAccount // newest first
	CreatedAt     time.Time
}

// =============================================================================
// PAYMENT METHOD
// =============================================================================

type PaymentMethod struct {
	ID     MethodID
	Name   string
	Color  string
	Active bool
}

// =============================================================================
// STATE - Everything the ledger owns
// =============================================================================

// State is the whole ledger. It is passed by value to the Balance Engine and
// to persisters; the Ledger owns the only mutable copy.
type State struct {
	Clients          []Client
	Methods          []PaymentMethod
	FloatAdjustments map[MethodID]decimal.Decimal

	// InvoiceCounter is the number the next closed account receives.
	InvoiceCounter int64
}

// NewState returns an empty ledger whose first invoice will be FAT-0001.
func NewState() State {
	return State{
		FloatAdjustments: make(map[MethodID]decimal.Decimal),
		InvoiceCounter:   1,
	}
}

// Clone returns a deep copy. Mutations on the copy never reach the original.
func (s State) Clone() State {
	out := State{
		Clients:          make([]Client, len(s.Clients)),
		Methods:          append([]PaymentMethod(nil), s.Methods...),
		FloatAdjustments: make(map[MethodID]decimal.Decimal, len(s.FloatAdjustments)),
		InvoiceCounter:   s.InvoiceCounter,
	}
	for i, c := range s.Clients {
		out.Clients[i] = c.clone()
	}
	for k, v := range s.FloatAdjustments {
		out.FloatAdjustments[k] = v
	}
	return out
}

func (c Client) clone() Client {
	out := c
	out.ActiveAccount = append([]Transaction(nil), c.ActiveAccount...)
	out.Archive = make([]ArchivedAccount, len(c.Archive))
	for i, a := range c.Archive {
		a.Transactions = append([]Transaction(nil), a.Transactions...)
		out.Archive[i] = a
	}
	return out
}

func (s *State) clientIndex(id ClientID) int {
	for i := range s.Clients {
		if s.Clients[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *State) method(id MethodID) (PaymentMethod, bool) {
	for _, m := range s.Methods {
		if m.ID == id {
			return m, true
		}
	}
	return PaymentMethod{}, false
}
