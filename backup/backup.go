/*
Package backup exports and imports the whole ledger as a JSON document.

PURPOSE:
  A single-device agent app has no server-side history. The backup file
  is the disaster-recovery path: export on one device, import on another.

FORMAT:
  {
    "app": "float-ledger",
    "version": "1.0",
    "exported_at": "2025-04-02T16:00:00Z",
    "data": {
      "clients": [...],
      "methods": [...],
      "float_adjustments": {"cash": "150.25"},
      "invoice_counter": 8
    }
  }

  Amounts are decimal strings. Numeric JSON amounts are accepted on
  import as well.

IMPORT RULES:
  - data.clients must be present (an array, possibly empty)
  - a missing or zero invoice_counter becomes 1
  - the result must pass ledger.ValidateState (unique ids, positive
    amounts, known types)
  Installing the imported state is the ledger's job (Ledger.Replace),
  which also keeps the invoice counter from moving backwards and lifts
  it past every archived invoice number.
*/
package backup

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/float-ledger/ledger"
)

const (
	AppName = "float-ledger"
	Version = "1.0"
)

// ErrInvalidBackup is returned for unreadable or structurally invalid files.
var ErrInvalidBackup = errors.New("invalid backup file")

// =============================================================================
// DOCUMENT
// =============================================================================

type Envelope struct {
	App        string    `json:"app"`
	Version    string    `json:"version"`
	ExportedAt time.Time `json:"exported_at"`
	Data       *Data     `json:"data"`
}

type Data struct {
	Clients          []Client                   `json:"clients"`
	Methods          []Method                   `json:"methods"`
	FloatAdjustments map[string]decimal.Decimal `json:"float_adjustments"`
	InvoiceCounter   int64                      `json:"invoice_counter"`
}

type Client struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	Phone         string        `json:"phone"`
	CreatedAt     time.Time     `json:"created_at"`
	ActiveAccount []Transaction `json:"active_account"`
	Archive       []Archive     `json:"archive"`
}

type Archive struct {
	InvoiceNumber string        `json:"invoice_number"`
	DateClosed    time.Time     `json:"date_closed"`
	Transactions  []Transaction `json:"transactions"`
}

type Transaction struct {
	ID          string          `json:"id"`
	Type        string          `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	Method      string          `json:"method"`
	Date        time.Time       `json:"date"`
	Description string          `json:"description"`
	Settled     bool            `json:"settled"`
}

type Method struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Color  string `json:"color"`
	Active bool   `json:"active"`
}

// Stats summarizes an imported file.
type Stats struct {
	Clients      int       `json:"clients"`
	Transactions int       `json:"transactions"`
	ExportedAt   time.Time `json:"exported_at"`
}

// =============================================================================
// EXPORT / IMPORT
// =============================================================================

// Export writes s as an indented backup document.
func Export(w io.Writer, s ledger.State, now time.Time) error {
	env := Envelope{
		App:        AppName,
		Version:    Version,
		ExportedAt: now.UTC(),
		Data:       fromState(s),
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(env); err != nil {
		return fmt.Errorf("encode backup: %w", err)
	}
	return nil
}

// Import parses and validates a backup document.
func Import(r io.Reader) (ledger.State, Stats, error) {
	var env Envelope
	if err := json.NewDecoder(r).Decode(&env); err != nil {
		return ledger.State{}, Stats{}, fmt.Errorf("%w: %v", ErrInvalidBackup, err)
	}
	if env.Data == nil || env.Data.Clients == nil {
		return ledger.State{}, Stats{}, fmt.Errorf("%w: missing clients", ErrInvalidBackup)
	}

	s := env.Data.toState()
	if err := ledger.ValidateState(s); err != nil {
		return ledger.State{}, Stats{}, fmt.Errorf("%w: %v", ErrInvalidBackup, err)
	}

	stats := Stats{Clients: len(s.Clients), ExportedAt: env.ExportedAt}
	for _, c := range s.Clients {
		stats.Transactions += len(c.ActiveAccount)
		for _, a := range c.Archive {
			stats.Transactions += len(a.Transactions)
		}
	}
	return s, stats, nil
}

// =============================================================================
// CONVERSION
// =============================================================================

func fromState(s ledger.State) *Data {
	d := &Data{
		Clients:          make([]Client, 0, len(s.Clients)),
		Methods:          make([]Method, 0, len(s.Methods)),
		FloatAdjustments: make(map[string]decimal.Decimal, len(s.FloatAdjustments)),
		InvoiceCounter:   s.InvoiceCounter,
	}
	for _, m := range s.Methods {
		d.Methods = append(d.Methods, Method{ID: string(m.ID), Name: m.Name, Color: m.Color, Active: m.Active})
	}
	for id, v := range s.FloatAdjustments {
		d.FloatAdjustments[string(id)] = v
	}
	for _, c := range s.Clients {
		out := Client{
			ID:            string(c.ID),
			Name:          c.Name,
			Phone:         c.Phone,
			CreatedAt:     c.CreatedAt,
			ActiveAccount: fromTransactions(c.ActiveAccount),
			Archive:       make([]Archive, 0, len(c.Archive)),
		}
		for _, a := range c.Archive {
			out.Archive = append(out.Archive, Archive{
				InvoiceNumber: a.InvoiceNumber,
				DateClosed:    a.DateClosed,
				Transactions:  fromTransactions(a.Transactions),
			})
		}
		d.Clients = append(d.Clients, out)
	}
	return d
}

func fromTransactions(txs []ledger.Transaction) []Transaction {
	out := make([]Transaction, 0, len(txs))
	for _, tx := range txs {
		out = append(out, Transaction{
			ID:          string(tx.ID),
			Type:        string(tx.Type),
			Amount:      tx.Amount,
			Method:      string(tx.Method),
			Date:        tx.Date,
			Description: tx.Description,
			Settled:     tx.Settled,
		})
	}
	return out
}

func (d *Data) toState() ledger.State {
	s := ledger.NewState()
	if d.InvoiceCounter != 0 {
		s.InvoiceCounter = d.InvoiceCounter
	}
	for _, m := range d.Methods {
		s.Methods = append(s.Methods, ledger.PaymentMethod{
			ID: ledger.MethodID(m.ID), Name: m.Name, Color: m.Color, Active: m.Active,
		})
	}
	for id, v := range d.FloatAdjustments {
		s.FloatAdjustments[ledger.MethodID(id)] = v
	}
	for _, c := range d.Clients {
		out := ledger.Client{
			ID:            ledger.ClientID(c.ID),
			Name:          c.Name,
			Phone:         c.Phone,
			CreatedAt:     c.CreatedAt,
			ActiveAccount: toTransactions(c.ActiveAccount),
		}
		for _, a := range c.Archive {
			out.Archive = append(out.Archive, ledger.ArchivedAccount{
				InvoiceNumber: a.InvoiceNumber,
				DateClosed:    a.DateClosed,
				Transactions:  toTransactions(a.Transactions),
			})
		}
		s.Clients = append(s.Clients, out)
	}
	return s
}

func toTransactions(txs []Transaction) []ledger.Transaction {
	var out []ledger.Transaction
	for _, tx := range txs {
		out = append(out, ledger.Transaction{
			ID:          ledger.TransactionID(tx.ID),
			Type:        ledger.TxType(tx.Type),
			Amount:      tx.Amount,
			Method:      ledger.MethodID(tx.Method),
			Date:        tx.Date,
			Description: tx.Description,
			Settled:     tx.Settled,
		})
	}
	return out
}
