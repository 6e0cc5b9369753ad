/*
transaction.go - Transaction Service

PURPOSE:
  Validates and records new transactions on a client's active account,
  and edits existing ones in place.

RECORDING RULES:
  1. Amount must be strictly positive
  2. The payment method must exist and be active
  3. An Outflow may not exceed the agent's CURRENT float for that method
     (not the client's balance): the agent cannot disburse more through a
     rail than the rail holds
  4. New transactions are prepended (newest first); Settled = Inflow

EDITING RULES:
  Transactions are located by id across the active account AND every
  archive entry of the owning client, so a typo in a closed invoice can
  still be corrected. The id never changes. Edited amounts are capped
  (WithMaxAmount, default 1,000,000). Edits are not re-checked
  against float; the float guard applies when money moves, at recording.

SIDE EFFECT:
  After a persisted Outflow the confirmation hook fires so the
  notification collaborator can send the client an SMS.
*/
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// NewTransaction is the input to RecordTransaction.
type NewTransaction struct {
	Type        TxType
	Amount      decimal.Decimal
	Method      MethodID
	Date        time.Time // zero means now
	Description string
}

// TransactionPatch lists the fields to change. Nil fields are left alone.
type TransactionPatch struct {
	Type        *TxType
	Amount      *decimal.Decimal
	Method      *MethodID
	Date        *time.Time
	Description *string
}

// =============================================================================
// RECORD
// =============================================================================

// RecordTransaction appends a transaction to the client's active account.
func (l *Ledger) RecordTransaction(ctx context.Context, clientID ClientID, in NewTransaction) (Transaction, error) {
	if !in.Type.Valid() {
		return Transaction{}, fmt.Errorf("%w: %q", ErrInvalidType, in.Type)
	}
	if err := validateAmount(in.Amount); err != nil {
		return Transaction{}, err
	}

	var (
		tx     Transaction
		client Client
	)
	err := l.mutate(ctx, func(s *State) error {
		i := s.clientIndex(clientID)
		if i < 0 {
			return ErrClientNotFound
		}
		if err := requireActiveMethod(s, in.Method); err != nil {
			return err
		}
		if in.Type == Outflow {
			available := FloatBalance(*s, in.Method)
			if in.Amount.GreaterThan(available) {
				return &InsufficientFloatError{
					Method:    in.Method,
					Available: available,
					Requested: in.Amount,
				}
			}
		}

		date := in.Date
		if date.IsZero() {
			date = l.now()
		}
		tx = Transaction{
			ID:          TransactionID(l.newID()),
			Type:        in.Type,
			Amount:      in.Amount,
			Method:      in.Method,
			Date:        date,
			Description: in.Description,
			Settled:     in.Type == Inflow,
		}
		c := &s.Clients[i]
		c.ActiveAccount = append([]Transaction{tx}, c.ActiveAccount...)
		client = c.clone()
		return nil
	})
	if err != nil {
		l.log.Warn("transaction rejected",
			zap.String("client_id", string(clientID)),
			zap.String("type", string(in.Type)),
			zap.String("method", string(in.Method)),
			zap.String("amount", in.Amount.String()),
			zap.Error(err))
		return Transaction{}, err
	}

	l.log.Info("transaction recorded",
		zap.String("client_id", string(clientID)),
		zap.String("tx_id", string(tx.ID)),
		zap.String("type", string(tx.Type)),
		zap.String("method", string(tx.Method)),
		zap.String("amount", tx.Amount.String()))

	if tx.Type == Outflow && l.onOutflow != nil {
		l.onOutflow(ctx, client, tx)
	}
	return tx, nil
}

// DuplicateTransaction records a copy of an existing transaction dated now.
// The copy goes through RecordTransaction, so the float guard applies.
func (l *Ledger) DuplicateTransaction(ctx context.Context, clientID ClientID, txID TransactionID) (Transaction, error) {
	found, err := l.FindTransaction(clientID, txID)
	if err != nil {
		return Transaction{}, err
	}
	return l.RecordTransaction(ctx, clientID, NewTransaction{
		Type:        found.Transaction.Type,
		Amount:      found.Transaction.Amount,
		Method:      found.Transaction.Method,
		Description: found.Transaction.Description + " (copy)",
	})
}

// =============================================================================
// LOOKUP
// =============================================================================

// FoundTransaction is a transaction plus where it lives.
type FoundTransaction struct {
	Transaction   Transaction
	Archived      bool
	InvoiceNumber string // set when Archived
}

// FindTransaction locates a transaction in the client's active account or
// archive.
func (l *Ledger) FindTransaction(clientID ClientID, txID TransactionID) (FoundTransaction, error) {
	var (
		found FoundTransaction
		err   error
	)
	l.read(func(s *State) {
		i := s.clientIndex(clientID)
		if i < 0 {
			err = ErrClientNotFound
			return
		}
		ptr, invoice := locate(&s.Clients[i], txID)
		if ptr == nil {
			err = ErrTransactionNotFound
			return
		}
		found = FoundTransaction{Transaction: *ptr, Archived: invoice != "", InvoiceNumber: invoice}
	})
	return found, err
}

// locate returns a pointer to the transaction inside c and the invoice
// number of the archive entry holding it ("" when active).
func locate(c *Client, txID TransactionID) (*Transaction, string) {
	for i := range c.ActiveAccount {
		if c.ActiveAccount[i].ID == txID {
			return &c.ActiveAccount[i], ""
		}
	}
	for a := range c.Archive {
		txs := c.Archive[a].Transactions
		for i := range txs {
			if txs[i].ID == txID {
				return &txs[i], c.Archive[a].InvoiceNumber
			}
		}
	}
	return nil, ""
}

// =============================================================================
// EDIT
// =============================================================================

// UpdateTransaction edits a transaction in place, active or archived,
// preserving its id.
func (l *Ledger) UpdateTransaction(ctx context.Context, clientID ClientID, txID TransactionID, patch TransactionPatch) (Transaction, error) {
	if patch.Type != nil && !patch.Type.Valid() {
		return Transaction{}, fmt.Errorf("%w: %q", ErrInvalidType, *patch.Type)
	}
	if patch.Amount != nil {
		if err := l.validateEditAmount(*patch.Amount); err != nil {
			return Transaction{}, err
		}
	}

	var (
		updated Transaction
		invoice string
	)
	err := l.mutate(ctx, func(s *State) error {
		i := s.clientIndex(clientID)
		if i < 0 {
			return ErrClientNotFound
		}
		tx, inv := locate(&s.Clients[i], txID)
		if tx == nil {
			return ErrTransactionNotFound
		}
		if patch.Method != nil && *patch.Method != tx.Method {
			if err := requireActiveMethod(s, *patch.Method); err != nil {
				return err
			}
			tx.Method = *patch.Method
		}
		if patch.Type != nil {
			tx.Type = *patch.Type
			tx.Settled = tx.Type == Inflow
		}
		if patch.Amount != nil {
			tx.Amount = *patch.Amount
		}
		if patch.Date != nil && !patch.Date.IsZero() {
			tx.Date = *patch.Date
		}
		if patch.Description != nil {
			tx.Description = *patch.Description
			if tx.Description == "" {
				tx.Description = string(tx.Type)
			}
		}
		updated, invoice = *tx, inv
		return nil
	})
	if err != nil {
		return Transaction{}, err
	}

	l.log.Info("transaction updated",
		zap.String("client_id", string(clientID)),
		zap.String("tx_id", string(txID)),
		zap.String("invoice", invoice))
	return updated, nil
}

func requireActiveMethod(s *State, id MethodID) error {
	m, ok := s.method(id)
	if !ok {
		return fmt.Errorf("%w: %q", ErrMethodNotFound, id)
	}
	if !m.Active {
		return fmt.Errorf("%w: %s", ErrMethodInactive, m.Name)
	}
	return nil
}
