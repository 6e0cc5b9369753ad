/*
validation.go - Shared guards

PURPOSE:
  Input normalization and business-rule checks shared by the client,
  transaction and import flows. Normalization always happens BEFORE
  comparison and BEFORE persistence, so what is compared is what is stored.

RULES:
  Names:   trimmed, inner whitespace collapsed, 2..50 characters,
           unique case-insensitively
  Phones:  whitespace removed, [+][country code]#########, stored as
           +<country code><9 digits>, unique by exact match
  Amounts: strictly positive; edits are also capped (WithMaxAmount).
           New transactions are bounded only by the float guard

UNIQUENESS ON EDIT:
  The record being edited is excluded (by id) from the duplicate check,
  so saving a client with its own unchanged name/phone is accepted.
*/
package ledger

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

const (
	// DefaultCountryCode is the Mozambique dialing code.
	DefaultCountryCode = "258"

	minNameLen = 2
	maxNameLen = 50
)

// DefaultMaxAmount is the largest amount an edit may set.
var DefaultMaxAmount = decimal.NewFromInt(1_000_000)

var localPhone = regexp.MustCompile(`^[0-9]{9}$`)

// NormalizeName trims and collapses whitespace.
func NormalizeName(name string) (string, error) {
	n := strings.Join(strings.Fields(name), " ")
	switch l := utf8.RuneCountInString(n); {
	case l == 0:
		return "", fmt.Errorf("%w: name is required", ErrInvalidClient)
	case l < minNameLen:
		return "", fmt.Errorf("%w: name must have at least %d characters", ErrInvalidClient, minNameLen)
	case l > maxNameLen:
		return "", fmt.Errorf("%w: name must have at most %d characters", ErrInvalidClient, maxNameLen)
	}
	return n, nil
}

// NormalizePhone accepts "841234567", "258841234567" and "+258 84 123 4567"
// and returns "+258841234567".
func NormalizePhone(phone, countryCode string) (string, error) {
	p := strings.Join(strings.Fields(phone), "")
	if p == "" {
		return "", fmt.Errorf("%w: phone is required", ErrInvalidClient)
	}
	p = strings.TrimPrefix(p, "+")
	if countryCode != "" && len(p) > 9 {
		p = strings.TrimPrefix(p, countryCode)
	}
	if !localPhone.MatchString(p) {
		return "", fmt.Errorf("%w: invalid phone number %q", ErrInvalidClient, phone)
	}
	return "+" + countryCode + p, nil
}

func validateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: amount must be greater than zero, got %s", ErrInvalidAmount, amount)
	}
	return nil
}

// validateEditAmount also applies the edit cap.
func (l *Ledger) validateEditAmount(amount decimal.Decimal) error {
	if err := validateAmount(amount); err != nil {
		return err
	}
	if l.maxAmount.IsPositive() && amount.GreaterThan(l.maxAmount) {
		return fmt.Errorf("%w: amount %s exceeds maximum %s", ErrInvalidAmount, amount, l.maxAmount)
	}
	return nil
}

// checkUnique rejects name/phone collisions with any client other than self.
func checkUnique(s *State, self ClientID, name, phone string) error {
	for _, c := range s.Clients {
		if c.ID == self {
			continue
		}
		if strings.EqualFold(c.Name, name) {
			return &DuplicateClientError{Field: "name", Value: name, Existing: c.ID}
		}
		if c.Phone == phone {
			return &DuplicateClientError{Field: "phone", Value: phone, Existing: c.ID}
		}
	}
	return nil
}

// ValidateState checks an externally supplied state (backup import) before
// it replaces the ledger.
func ValidateState(s State) error {
	if s.InvoiceCounter < 1 {
		return fmt.Errorf("%w: invoice counter must be at least 1", ErrInvalidState)
	}
	methods := make(map[MethodID]bool, len(s.Methods))
	for _, m := range s.Methods {
		if m.ID == "" || methods[m.ID] {
			return fmt.Errorf("%w: duplicate or empty payment method id %q", ErrInvalidState, m.ID)
		}
		methods[m.ID] = true
	}
	clients := make(map[ClientID]bool, len(s.Clients))
	txs := make(map[TransactionID]bool)
	invoices := make(map[string]bool)
	checkTx := func(tx Transaction) error {
		if tx.ID == "" || txs[tx.ID] {
			return fmt.Errorf("%w: duplicate or empty transaction id %q", ErrInvalidState, tx.ID)
		}
		txs[tx.ID] = true
		if !tx.Type.Valid() {
			return fmt.Errorf("%w: transaction %s has type %q", ErrInvalidState, tx.ID, tx.Type)
		}
		if !tx.Amount.IsPositive() {
			return fmt.Errorf("%w: transaction %s has non-positive amount", ErrInvalidState, tx.ID)
		}
		return nil
	}
	for _, c := range s.Clients {
		if c.ID == "" || clients[c.ID] {
			return fmt.Errorf("%w: duplicate or empty client id %q", ErrInvalidState, c.ID)
		}
		clients[c.ID] = true
		if err := checkUnique(&s, c.ID, c.Name, c.Phone); err != nil {
			return fmt.Errorf("%w: client %s: %v", ErrInvalidState, c.ID, err)
		}
		for _, tx := range c.ActiveAccount {
			if err := checkTx(tx); err != nil {
				return err
			}
		}
		for _, a := range c.Archive {
			if invoices[a.InvoiceNumber] {
				return fmt.Errorf("%w: duplicate invoice number %q", ErrInvalidState, a.InvoiceNumber)
			}
			invoices[a.InvoiceNumber] = true
			for _, tx := range a.Transactions {
				if err := checkTx(tx); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
