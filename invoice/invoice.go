/*
Package invoice renders closed client accounts as printable documents.

PURPOSE:
  Turns an ArchivedAccount into a settlement invoice: an HTML page the
  agent prints or shares, and a short plain-text summary for messaging
  apps. Rendering is read-only; the ledger is never touched.

LAYOUT:
  Header:    invoice number, close date
  Client:    name, phone
  Rows:      date, description (or type), method display name, IN/OUT,
             signed amount (+ inflow, - outflow)
  Totals:    outflow, inflow, final balance (outflow - inflow)
  Status:    SETTLED when the final balance is zero, otherwise PENDING

METHOD NAMES:
  Transactions carry MethodIDs. The caller passes the current display
  names; unknown ids are printed as-is.
*/
package invoice

import (
	_ "embed"
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/float-ledger/ledger"
)

const (
	StatusSettled = "SETTLED"
	StatusPending = "PENDING"
)

// Document is everything needed to render one invoice.
type Document struct {
	Client      ledger.Client
	Account     ledger.ArchivedAccount
	Currency    string
	MethodNames map[ledger.MethodID]string
	GeneratedAt time.Time
}

// NewDocument builds a Document using the ledger's current method names.
func NewDocument(c ledger.Client, a ledger.ArchivedAccount, methods []ledger.PaymentMethod, currency string, now time.Time) Document {
	names := make(map[ledger.MethodID]string, len(methods))
	for _, m := range methods {
		names[m.ID] = m.Name
	}
	return Document{Client: c, Account: a, Currency: currency, MethodNames: names, GeneratedAt: now}
}

// Status reports whether the account closed fully settled.
func (d Document) Status() string {
	if ledger.AccountTotals(d.Account.Transactions).Balance().IsZero() {
		return StatusSettled
	}
	return StatusPending
}

type row struct {
	Date        string
	Description string
	Method      string
	Direction   string
	Amount      string
	Inflow      bool
}

type view struct {
	Invoice     string
	DateClosed  string
	ClientName  string
	ClientPhone string
	Currency    string
	Rows        []row
	Outflow     string
	Inflow      string
	Balance     string
	Status      string
	Settled     bool
	GeneratedAt string
}

//go:embed invoice.html
var pageSource string

var page = template.Must(template.New("invoice").Parse(pageSource))

// Render writes the HTML invoice to w.
func Render(w io.Writer, d Document) error {
	if err := page.Execute(w, d.view()); err != nil {
		return fmt.Errorf("render invoice %s: %w", d.Account.InvoiceNumber, err)
	}
	return nil
}

// Summary is the plain-text version shared over messaging apps.
func Summary(d Document) string {
	totals := ledger.AccountTotals(d.Account.Transactions)
	var b strings.Builder
	fmt.Fprintf(&b, "Invoice %s - %s\n", d.Account.InvoiceNumber, d.Client.Name)
	fmt.Fprintf(&b, "Closed: %s\n", formatDate(d.Account.DateClosed))
	fmt.Fprintf(&b, "Total out: %s\n", money(totals.Outflow, d.Currency))
	fmt.Fprintf(&b, "Total in: %s\n", money(totals.Inflow, d.Currency))
	fmt.Fprintf(&b, "Balance: %s\n", money(totals.Balance(), d.Currency))
	fmt.Fprintf(&b, "Status: %s", d.Status())
	return b.String()
}

func (d Document) view() view {
	totals := ledger.AccountTotals(d.Account.Transactions)
	v := view{
		Invoice:     d.Account.InvoiceNumber,
		DateClosed:  formatDate(d.Account.DateClosed),
		ClientName:  d.Client.Name,
		ClientPhone: d.Client.Phone,
		Currency:    d.Currency,
		Outflow:     totals.Outflow.StringFixed(2),
		Inflow:      totals.Inflow.StringFixed(2),
		Balance:     signed(totals.Balance()),
		Status:      d.Status(),
		GeneratedAt: d.GeneratedAt.Format("2006-01-02 15:04"),
	}
	v.Settled = v.Status == StatusSettled

	for _, tx := range d.Account.Transactions {
		r := row{
			Date:        tx.Date.Format("2006-01-02 15:04"),
			Description: tx.Description,
			Method:      d.methodName(tx.Method),
			Inflow:      tx.Type == ledger.Inflow,
		}
		if r.Description == "" {
			r.Description = string(tx.Type)
		}
		if r.Inflow {
			r.Direction = "IN"
			r.Amount = "+" + tx.Amount.StringFixed(2)
		} else {
			r.Direction = "OUT"
			r.Amount = "-" + tx.Amount.StringFixed(2)
		}
		v.Rows = append(v.Rows, r)
	}
	return v
}

func (d Document) methodName(id ledger.MethodID) string {
	if name, ok := d.MethodNames[id]; ok && name != "" {
		return name
	}
	return string(id)
}

// Helpers

func formatDate(t time.Time) string {
	return t.Format("2006-01-02")
}

func money(d decimal.Decimal, currency string) string {
	return strings.TrimSpace(d.StringFixed(2) + " " + currency)
}

func signed(d decimal.Decimal) string {
	if d.IsNegative() {
		return d.StringFixed(2)
	}
	return "+" + d.StringFixed(2)
}
