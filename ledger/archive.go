/*
archive.go - Archiving Service

PURPOSE:
  Closes a settled client account: freezes the active transactions into an
  invoiced ArchivedAccount and starts the client over with an empty
  active account.

PRECONDITION:
  Client debt must be exactly zero. Otherwise NonZeroBalanceError and no
  mutation at all.

INVOICE NUMBERING:
  invoice = "FAT-" + zero-padded(counter, 4); counter++
  The increment, the archive entry and the active-account reset are one
  mutation persisted as a unit: no number is skipped or reused, even when
  persistence fails or a client is later deleted. A loaded or imported
  state whose counter lags behind its archives is moved past the highest
  archived number.

FLOAT INVARIANT:
  Float aggregation already covers archived transactions, so closing an
  account never changes any agent float balance.

EXAMPLE:
  counter = 1
  CloseAccount(C) -> FAT-0001, counter = 2
  CloseAccount(D) -> FAT-0002, counter = 3
*/
package ledger

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

const invoicePrefix = "FAT-"

// FormatInvoiceNumber renders an invoice counter value.
func FormatInvoiceNumber(n int64) string {
	return fmt.Sprintf("%s%04d", invoicePrefix, n)
}

// parseInvoiceNumber returns the counter value of a "FAT-NNNN" number.
func parseInvoiceNumber(invoice string) (int64, bool) {
	digits, ok := strings.CutPrefix(invoice, invoicePrefix)
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

// nextFreeInvoice is the smallest counter above every archived invoice.
func nextFreeInvoice(s State) int64 {
	var highest int64
	for _, c := range s.Clients {
		for _, a := range c.Archive {
			if n, ok := parseInvoiceNumber(a.InvoiceNumber); ok && n > highest {
				highest = n
			}
		}
	}
	return highest + 1
}

// CloseAccount archives the client's active account under a new invoice
// number.
func (l *Ledger) CloseAccount(ctx context.Context, clientID ClientID) (ArchivedAccount, error) {
	var archived ArchivedAccount
	err := l.mutate(ctx, func(s *State) error {
		i := s.clientIndex(clientID)
		if i < 0 {
			return ErrClientNotFound
		}
		c := &s.Clients[i]
		if debt := ClientDebt(*c); !debt.IsZero() {
			return &NonZeroBalanceError{ClientID: clientID, Balance: debt}
		}

		archived = ArchivedAccount{
			InvoiceNumber: FormatInvoiceNumber(s.InvoiceCounter),
			DateClosed:    l.now(),
			Transactions:  append([]Transaction(nil), c.ActiveAccount...),
		}
		s.InvoiceCounter++
		c.Archive = append([]ArchivedAccount{archived}, c.Archive...)
		c.ActiveAccount = nil
		return nil
	})
	if err != nil {
		l.log.Warn("account close rejected",
			zap.String("client_id", string(clientID)),
			zap.Error(err))
		return ArchivedAccount{}, err
	}

	l.log.Info("account closed",
		zap.String("client_id", string(clientID)),
		zap.String("invoice", archived.InvoiceNumber),
		zap.Int("transactions", len(archived.Transactions)))

	archived.Transactions = append([]Transaction(nil), archived.Transactions...)
	return archived, nil
}

// ArchivedAccount returns the archive entry with the given invoice number.
func (l *Ledger) ArchivedAccount(clientID ClientID, invoice string) (ArchivedAccount, error) {
	c, err := l.Client(clientID)
	if err != nil {
		return ArchivedAccount{}, err
	}
	for _, a := range c.Archive {
		if a.InvoiceNumber == invoice {
			return a, nil
		}
	}
	return ArchivedAccount{}, fmt.Errorf("%w: %s", ErrAccountNotFound, invoice)
}

// NextInvoiceNumber reports the number the next close will receive.
func (l *Ledger) NextInvoiceNumber() string {
	var n int64
	l.read(func(s *State) { n = s.InvoiceCounter })
	return FormatInvoiceNumber(n)
}
