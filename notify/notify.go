/*
Package notify renders and sends client SMS messages.

PURPOSE:
  The agent confirms every disbursement to the client and periodically
  reminds debtors of their balance. This package owns the message
  templates and the Sender abstraction; the ledger only emits a
  "confirmation needed" signal through its ConfirmationHook.

TEMPLATES:
  Placeholders are replaced literally:
    {amount}    transaction amount or outstanding debt
    {currency}  configured currency code (e.g. MZN)
    {desc}      transaction description, or its type when empty

  Confirmation:  "Confirmação: {amount} {currency} - {desc}"
  DebtReminder:  "Lembrete: Saldo de {amount} {currency}"

SENDERS:
  LogSender:  writes the message to the zap logger (default, dev)
  URISender:  builds the sms:<phone>?body=<text> link a handset opens

SEE ALSO:
  - ledger/store.go: ConfirmationHook
  - cmd/server/main.go: wiring
*/
package notify

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/warp/float-ledger/ledger"
)

// ErrNothingOwed is returned when reminding a client whose debt is not positive.
var ErrNothingOwed = errors.New("client has no outstanding debt")

// =============================================================================
// TEMPLATES
// =============================================================================

type Templates struct {
	Confirmation string `yaml:"confirmation" json:"confirmation"`
	DebtReminder string `yaml:"debt_reminder" json:"debt_reminder"`
}

func DefaultTemplates() Templates {
	return Templates{
		Confirmation: "Confirmação: {amount} {currency} - {desc}",
		DebtReminder: "Lembrete: Saldo de {amount} {currency}",
	}
}

// Values fills a template.
type Values struct {
	Amount      decimal.Decimal
	Currency    string
	Description string
}

// Render substitutes every placeholder in tmpl.
func Render(tmpl string, v Values) string {
	r := strings.NewReplacer(
		"{amount}", v.Amount.String(),
		"{currency}", v.Currency,
		"{desc}", v.Description,
	)
	return r.Replace(tmpl)
}

// =============================================================================
// SENDERS
// =============================================================================

type Message struct {
	To   string
	Body string
}

// Sender delivers a rendered message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// LogSender logs messages instead of delivering them.
type LogSender struct {
	Log *zap.Logger
}

func (s LogSender) Send(_ context.Context, msg Message) error {
	s.Log.Info("sms", zap.String("to", msg.To), zap.String("body", msg.Body))
	return nil
}

// SMSLink returns the sms: URI that opens the handset composer.
func SMSLink(msg Message) string {
	body := strings.ReplaceAll(url.QueryEscape(msg.Body), "+", "%20")
	return fmt.Sprintf("sms:%s?body=%s", msg.To, body)
}

// URISender collects sms: links for a front-end to open.
type URISender struct {
	mu    sync.Mutex
	links []string
}

func (s *URISender) Send(_ context.Context, msg Message) error {
	if msg.To == "" {
		return fmt.Errorf("notify: message has no recipient")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.links = append(s.links, SMSLink(msg))
	return nil
}

// Links returns and clears the collected links.
func (s *URISender) Links() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.links
	s.links = nil
	return out
}

// =============================================================================
// SERVICE
// =============================================================================

type Service struct {
	Templates Templates
	Currency  string
	Sender    Sender
	Log       *zap.Logger
}

func NewService(t Templates, currency string, sender Sender, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{Templates: t, Currency: currency, Sender: sender, Log: log}
}

// ConfirmationMessage renders the disbursement confirmation for tx.
func (s *Service) ConfirmationMessage(c ledger.Client, tx ledger.Transaction) Message {
	desc := tx.Description
	if desc == "" {
		desc = string(tx.Type)
	}
	return Message{
		To: c.Phone,
		Body: Render(s.Templates.Confirmation, Values{
			Amount:      tx.Amount,
			Currency:    s.Currency,
			Description: desc,
		}),
	}
}

// ReminderMessage renders the debt reminder for a client owing debt.
func (s *Service) ReminderMessage(c ledger.Client, debt decimal.Decimal) Message {
	return Message{
		To:   c.Phone,
		Body: Render(s.Templates.DebtReminder, Values{Amount: debt, Currency: s.Currency}),
	}
}

// Confirm sends the confirmation for tx.
func (s *Service) Confirm(ctx context.Context, c ledger.Client, tx ledger.Transaction) (Message, error) {
	msg := s.ConfirmationMessage(c, tx)
	if err := s.Sender.Send(ctx, msg); err != nil {
		return msg, fmt.Errorf("send confirmation to %s: %w", c.ID, err)
	}
	return msg, nil
}

// RemindDebt sends the debt reminder. A client that owes nothing gets none.
func (s *Service) RemindDebt(ctx context.Context, c ledger.Client, debt decimal.Decimal) (Message, error) {
	if !debt.IsPositive() {
		return Message{}, fmt.Errorf("%w: %s", ErrNothingOwed, c.ID)
	}
	msg := s.ReminderMessage(c, debt)
	if err := s.Sender.Send(ctx, msg); err != nil {
		return msg, fmt.Errorf("send reminder to %s: %w", c.ID, err)
	}
	return msg, nil
}

// Hook adapts Confirm to ledger.ConfirmationHook. Delivery failures are
// logged; the transaction is already persisted.
func (s *Service) Hook() ledger.ConfirmationHook {
	return func(ctx context.Context, c ledger.Client, tx ledger.Transaction) {
		if _, err := s.Confirm(ctx, c, tx); err != nil {
			s.Log.Warn("confirmation not sent",
				zap.String("client_id", string(c.ID)),
				zap.String("tx_id", string(tx.ID)),
				zap.Error(err))
		}
	}
}
