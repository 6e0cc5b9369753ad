/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the ledger's domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

AMOUNTS:
  Every amount is a decimal.Decimal, serialized as a JSON string ("150.5").
  Requests accept both strings and numbers.

TYPES:
  Clients:       ClientDTO, ClientSummaryDTO, CreateClientRequest
  Transactions:  TransactionDTO, RecordTransactionRequest, UpdateTransactionRequest
  Archive:       ArchiveDTO
  Float:         FloatDTO, MethodBalanceDTO, AdjustFloatRequest, ReconcileFloatRequest
  Methods:       MethodDTO, CreateMethodRequest, RenameMethodRequest, SetMethodActiveRequest
  Messages:      MessageDTO
  Scenarios:     ScenarioDTO

VALIDATION:
  Validation is done by the ledger, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/float-ledger/backup"
	"github.com/warp/float-ledger/ledger"
	"github.com/warp/float-ledger/notify"
)

// =============================================================================
// CLIENTS
// =============================================================================

// ClientSummaryDTO is a row of the client list.
type ClientSummaryDTO struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Phone        string          `json:"phone"`
	Debt         decimal.Decimal `json:"debt"`
	Transactions int             `json:"transactions"`
	Archived     int             `json:"archived_accounts"`
}

// ClientDTO is a client with its active account and archive headers.
type ClientDTO struct {
	ID            string           `json:"id"`
	Name          string           `json:"name"`
	Phone         string           `json:"phone"`
	CreatedAt     string           `json:"created_at,omitempty"`
	Debt          decimal.Decimal  `json:"debt"`
	ActiveAccount []TransactionDTO `json:"active_account"`
	Archive       []ArchiveDTO     `json:"archive"`
}

type CreateClientRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// BalanceDTO is the client's debt with its components.
type BalanceDTO struct {
	ClientID     string          `json:"client_id"`
	Debt         decimal.Decimal `json:"debt"`
	TotalOutflow decimal.Decimal `json:"total_outflow"`
	TotalInflow  decimal.Decimal `json:"total_inflow"`
	Transactions int             `json:"transactions"`
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

type TransactionDTO struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Amount        decimal.Decimal `json:"amount"`
	Method        string          `json:"method"`
	MethodName    string          `json:"method_name"`
	Date          string          `json:"date"`
	Description   string          `json:"description"`
	Settled       bool            `json:"settled"`
	InvoiceNumber string          `json:"invoice_number,omitempty"`
}

// RecordTransactionRequest records a transaction. Method accepts a method id
// or a display name.
type RecordTransactionRequest struct {
	Type        string          `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	Method      string          `json:"method"`
	Date        *time.Time      `json:"date,omitempty"`
	Description string          `json:"description"`
}

// UpdateTransactionRequest edits a transaction. Omitted fields are unchanged.
type UpdateTransactionRequest struct {
	Type        *string          `json:"type,omitempty"`
	Amount      *decimal.Decimal `json:"amount,omitempty"`
	Method      *string          `json:"method,omitempty"`
	Date        *time.Time       `json:"date,omitempty"`
	Description *string          `json:"description,omitempty"`
}

// =============================================================================
// ARCHIVE
// =============================================================================

type ArchiveDTO struct {
	InvoiceNumber string           `json:"invoice_number"`
	DateClosed    string           `json:"date_closed"`
	TotalOutflow  decimal.Decimal  `json:"total_outflow"`
	TotalInflow   decimal.Decimal  `json:"total_inflow"`
	Balance       decimal.Decimal  `json:"balance"`
	Transactions  []TransactionDTO `json:"transactions,omitempty"`
}

// =============================================================================
// FLOAT & METHODS
// =============================================================================

type MethodDTO struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Color  string `json:"color"`
	Active bool   `json:"active"`
}

type MethodBalanceDTO struct {
	MethodDTO
	Balance decimal.Decimal `json:"balance"`
}

type FloatDTO struct {
	Methods []MethodBalanceDTO `json:"methods"`
	Total   decimal.Decimal    `json:"total"`
}

type AdjustFloatRequest struct {
	Method string          `json:"method"`
	Delta  decimal.Decimal `json:"delta"`
}

type ReconcileFloatRequest struct {
	Method  string          `json:"method"`
	Counted decimal.Decimal `json:"counted"`
}

// FloatChangeDTO reports the effect of an adjustment or reconciliation.
type FloatChangeDTO struct {
	Method  string          `json:"method"`
	Delta   decimal.Decimal `json:"delta"`
	Balance decimal.Decimal `json:"balance"`
}

type CreateMethodRequest struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// RenameMethodRequest renames a method. Mode is "in_place" (default) or
// "replace".
type RenameMethodRequest struct {
	Name string `json:"name"`
	Mode string `json:"mode"`
}

type SetMethodActiveRequest struct {
	Active bool `json:"active"`
}

// =============================================================================
// MESSAGES, BACKUP, SCENARIOS
// =============================================================================

// MessageDTO is a rendered SMS and the link that opens it on a handset.
type MessageDTO struct {
	To   string `json:"to"`
	Body string `json:"body"`
	Link string `json:"link"`
}

type ImportResultDTO struct {
	Status string       `json:"status"`
	Stats  backup.Stats `json:"stats"`
}

// ScenarioDTO represents a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERTERS
// =============================================================================

func toTransactionDTO(tx ledger.Transaction, names map[ledger.MethodID]string, invoice string) TransactionDTO {
	name := names[tx.Method]
	if name == "" {
		name = string(tx.Method)
	}
	return TransactionDTO{
		ID:            string(tx.ID),
		Type:          string(tx.Type),
		Amount:        tx.Amount,
		Method:        string(tx.Method),
		MethodName:    name,
		Date:          tx.Date.Format(time.RFC3339),
		Description:   tx.Description,
		Settled:       tx.Settled,
		InvoiceNumber: invoice,
	}
}

func toTransactionDTOs(txs []ledger.Transaction, names map[ledger.MethodID]string, invoice string) []TransactionDTO {
	out := make([]TransactionDTO, 0, len(txs))
	for _, tx := range txs {
		out = append(out, toTransactionDTO(tx, names, invoice))
	}
	return out
}

func toArchiveDTO(a ledger.ArchivedAccount, names map[ledger.MethodID]string, withTransactions bool) ArchiveDTO {
	totals := ledger.AccountTotals(a.Transactions)
	dto := ArchiveDTO{
		InvoiceNumber: a.InvoiceNumber,
		DateClosed:    a.DateClosed.Format(time.RFC3339),
		TotalOutflow:  totals.Outflow,
		TotalInflow:   totals.Inflow,
		Balance:       totals.Balance(),
	}
	if withTransactions {
		dto.Transactions = toTransactionDTOs(a.Transactions, names, a.InvoiceNumber)
	}
	return dto
}

func toClientSummaryDTO(c ledger.Client) ClientSummaryDTO {
	return ClientSummaryDTO{
		ID:           string(c.ID),
		Name:         c.Name,
		Phone:        c.Phone,
		Debt:         ledger.ClientDebt(c),
		Transactions: len(c.ActiveAccount),
		Archived:     len(c.Archive),
	}
}

func toClientDTO(c ledger.Client, names map[ledger.MethodID]string) ClientDTO {
	dto := ClientDTO{
		ID:            string(c.ID),
		Name:          c.Name,
		Phone:         c.Phone,
		Debt:          ledger.ClientDebt(c),
		ActiveAccount: toTransactionDTOs(c.ActiveAccount, names, ""),
		Archive:       make([]ArchiveDTO, 0, len(c.Archive)),
	}
	if !c.CreatedAt.IsZero() {
		dto.CreatedAt = c.CreatedAt.Format(time.RFC3339)
	}
	for _, a := range c.Archive {
		dto.Archive = append(dto.Archive, toArchiveDTO(a, names, false))
	}
	return dto
}

func toMethodDTO(m ledger.PaymentMethod) MethodDTO {
	return MethodDTO{ID: string(m.ID), Name: m.Name, Color: m.Color, Active: m.Active}
}

func toMessageDTO(m notify.Message) MessageDTO {
	return MessageDTO{To: m.To, Body: m.Body, Link: notify.SMSLink(m)}
}

func methodNames(methods []ledger.PaymentMethod) map[ledger.MethodID]string {
	names := make(map[ledger.MethodID]string, len(methods))
	for _, m := range methods {
		names[m.ID] = m.Name
	}
	return names
}
