/*
handlers.go - HTTP API handlers for the agent float ledger

PURPOSE:
  Exposes the ledger via REST API. Handles HTTP request/response, JSON
  serialization, and delegates every business rule to the ledger package.

ENDPOINTS:
  Clients:
    GET    /api/clients                     List clients (?q= search)
    POST   /api/clients                     Create client
    GET    /api/clients/{id}                Client with active account
    PUT    /api/clients/{id}                Edit name/phone
    DELETE /api/clients/{id}                Delete client and history
    GET    /api/clients/{id}/balance        Debt summary

  Transactions:
    POST   /api/clients/{id}/transactions                 Record
    PUT    /api/clients/{id}/transactions/{txID}          Edit (active or archived)
    POST   /api/clients/{id}/transactions/{txID}/duplicate Copy, dated now
    POST   /api/clients/{id}/transactions/{txID}/notify   Resend confirmation SMS

  Archive:
    POST   /api/clients/{id}/close              Close settled account
    GET    /api/clients/{id}/archive            Archived accounts
    GET    /api/clients/{id}/archive/{invoice}  Invoice (HTML, ?format=text|json)
    POST   /api/clients/{id}/remind             Debt reminder SMS

  Float:
    GET    /api/float                 Float per method
    POST   /api/float/adjustments     Manual adjustment
    POST   /api/float/reconcile       Set float to a counted amount

  Methods:
    GET    /api/methods               List methods
    POST   /api/methods               Add method
    POST   /api/methods/{id}/rename   Rename (in_place | replace)
    PUT    /api/methods/{id}/active   Activate/deactivate

  Backup:
    GET    /api/backup                Download JSON backup
    POST   /api/backup                Restore from JSON backup

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Malformed input, validation errors
  - 404: Client, transaction, archive or method not found
  - 409: Duplicate client/method, closing an account that still owes
  - 422: Insufficient float, inactive method, nothing owed
  - 500: Internal errors (persistence)

SECURITY NOTE:
  No authentication. Intended for a single agent's device or LAN.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/warp/float-ledger/backup"
	"github.com/warp/float-ledger/invoice"
	"github.com/warp/float-ledger/ledger"
	"github.com/warp/float-ledger/notify"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Ledger   *ledger.Ledger
	Notifier *notify.Service
	Currency string

	now func() time.Time

	// Track currently loaded scenario
	mu              sync.Mutex
	currentScenario string
}

// NewHandler creates a new handler over the given ledger.
func NewHandler(l *ledger.Ledger, n *notify.Service, currency string) *Handler {
	return &Handler{
		Ledger:   l,
		Notifier: n,
		Currency: currency,
		now:      time.Now,
	}
}

func (h *Handler) names() map[ledger.MethodID]string {
	return methodNames(h.Ledger.Methods())
}

// =============================================================================
// CLIENT HANDLERS
// =============================================================================

// ListClients returns all clients, or those matching ?q=.
func (h *Handler) ListClients(w http.ResponseWriter, r *http.Request) {
	clients := h.Ledger.SearchClients(r.URL.Query().Get("q"))

	dtos := make([]ClientSummaryDTO, 0, len(clients))
	for _, c := range clients {
		dtos = append(dtos, toClientSummaryDTO(c))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetClient returns a client with its active account.
func (h *Handler) GetClient(w http.ResponseWriter, r *http.Request) {
	c, err := h.Ledger.Client(clientID(r))
	if err != nil {
		writeLedgerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toClientDTO(c, h.names()))
}

// CreateClient onboards a client.
func (h *Handler) CreateClient(w http.ResponseWriter, r *http.Request) {
	var req CreateClientRequest
	if !decode(w, r, &req) {
		return
	}

	c, err := h.Ledger.CreateClient(r.Context(), req.Name, req.Phone)
	if err != nil {
		writeLedgerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toClientDTO(c, h.names()))
}

// UpdateClient edits a client's name and phone.
func (h *Handler) UpdateClient(w http.ResponseWriter, r *http.Request) {
	var req CreateClientRequest
	if !decode(w, r, &req) {
		return
	}

	c, err := h.Ledger.UpdateClient(r.Context(), clientID(r), req.Name, req.Phone)
	if err != nil {
		writeLedgerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toClientDTO(c, h.names()))
}

// DeleteClient removes a client and all of its history.
func (h *Handler) DeleteClient(w http.ResponseWriter, r *http.Request) {
	if err := h.Ledger.DeleteClient(r.Context(), clientID(r)); err != nil {
		writeLedgerError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetBalance returns the client's debt.
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	c, err := h.Ledger.Client(clientID(r))
	if err != nil {
		writeLedgerError(w, r, err)
		return
	}
	totals := ledger.AccountTotals(c.ActiveAccount)
	writeJSON(w, http.StatusOK, BalanceDTO{
		ClientID:     string(c.ID),
		Debt:         ledger.ClientDebt(c),
		TotalOutflow: totals.Outflow,
		TotalInflow:  totals.Inflow,
		Transactions: len(c.ActiveAccount),
	})
}

// =============================================================================
// TRANSACTION HANDLERS
// =============================================================================

// RecordTransaction appends a transaction to the active account.
func (h *Handler) RecordTransaction(w http.ResponseWriter, r *http.Request) {
	var req RecordTransactionRequest
	if !decode(w, r, &req) {
		return
	}
	method, ok := h.resolveMethod(w, r, req.Method)
	if !ok {
		return
	}

	in := ledger.NewTransaction{
		Type:        ledger.TxType(req.Type),
		Amount:      req.Amount,
		Method:      method,
		Description: req.Description,
	}
	if req.Date != nil {
		in.Date = *req.Date
	}

	tx, err := h.Ledger.RecordTransaction(r.Context(), clientID(r), in)
	if err != nil {
		writeLedgerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTransactionDTO(tx, h.names(), ""))
}

// UpdateTransaction edits a transaction wherever it lives.
func (h *Handler) UpdateTransaction(w http.ResponseWriter, r *http.Request) {
	var req UpdateTransactionRequest
	if !decode(w, r, &req) {
		return
	}

	patch := ledger.TransactionPatch{
		Amount:      req.Amount,
		Date:        req.Date,
		Description: req.Description,
	}
	if req.Type != nil {
		t := ledger.TxType(*req.Type)
		patch.Type = &t
	}
	if req.Method != nil {
		method, ok := h.resolveMethod(w, r, *req.Method)
		if !ok {
			return
		}
		patch.Method = &method
	}

	cid, txID := clientID(r), ledger.TransactionID(chi.URLParam(r, "txID"))
	tx, err := h.Ledger.UpdateTransaction(r.Context(), cid, txID, patch)
	if err != nil {
		writeLedgerError(w, r, err)
		return
	}
	found, err := h.Ledger.FindTransaction(cid, txID)
	if err != nil {
		writeLedgerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTO(tx, h.names(), found.InvoiceNumber))
}

// DuplicateTransaction records a copy of a transaction.
func (h *Handler) DuplicateTransaction(w http.ResponseWriter, r *http.Request) {
	tx, err := h.Ledger.DuplicateTransaction(r.Context(), clientID(r), ledger.TransactionID(chi.URLParam(r, "txID")))
	if err != nil {
		writeLedgerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTransactionDTO(tx, h.names(), ""))
}

// NotifyTransaction resends the confirmation SMS for a transaction.
func (h *Handler) NotifyTransaction(w http.ResponseWriter, r *http.Request) {
	cid := clientID(r)
	found, err := h.Ledger.FindTransaction(cid, ledger.TransactionID(chi.URLParam(r, "txID")))
	if err != nil {
		writeLedgerError(w, r, err)
		return
	}
	c, err := h.Ledger.Client(cid)
	if err != nil {
		writeLedgerError(w, r, err)
		return
	}

	msg, err := h.Notifier.Confirm(r.Context(), c, found.Transaction)
	if err != nil {
		writeLedgerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toMessageDTO(msg))
}

// =============================================================================
// ARCHIVE HANDLERS
// =============================================================================

// CloseAccount archives the active account under a new invoice number.
func (h *Handler) CloseAccount(w http.ResponseWriter, r *http.Request) {
	archived, err := h.Ledger.CloseAccount(r.Context(), clientID(r))
	if err != nil {
		writeLedgerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toArchiveDTO(archived, h.names(), true))
}

// ListArchive returns the client's archived accounts, newest first.
func (h *Handler) ListArchive(w http.ResponseWriter, r *http.Request) {
	c, err := h.Ledger.Client(clientID(r))
	if err != nil {
		writeLedgerError(w, r, err)
		return
	}
	names := h.names()
	dtos := make([]ArchiveDTO, 0, len(c.Archive))
	for _, a := range c.Archive {
		dtos = append(dtos, toArchiveDTO(a, names, true))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetInvoice renders one archived account. HTML by default;
// ?format=text gives the share summary, ?format=json the raw entry.
func (h *Handler) GetInvoice(w http.ResponseWriter, r *http.Request) {
	cid := clientID(r)
	c, err := h.Ledger.Client(cid)
	if err != nil {
		writeLedgerError(w, r, err)
		return
	}
	archived, err := h.Ledger.ArchivedAccount(cid, chi.URLParam(r, "invoice"))
	if err != nil {
		writeLedgerError(w, r, err)
		return
	}

	doc := invoice.NewDocument(c, archived, h.Ledger.Methods(), h.Currency, h.now())
	switch r.URL.Query().Get("format") {
	case "json":
		writeJSON(w, http.StatusOK, toArchiveDTO(archived, doc.MethodNames, true))
	case "text":
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		if _, err := io.WriteString(w, invoice.Summary(doc)); err != nil {
			loggerFrom(r.Context()).Error("invoice summary write failed", zap.Error(err))
		}
	default:
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := invoice.Render(w, doc); err != nil {
			loggerFrom(r.Context()).Error("invoice render failed", zap.Error(err))
		}
	}
}

// RemindDebt sends the debt reminder SMS.
func (h *Handler) RemindDebt(w http.ResponseWriter, r *http.Request) {
	c, err := h.Ledger.Client(clientID(r))
	if err != nil {
		writeLedgerError(w, r, err)
		return
	}

	msg, err := h.Notifier.RemindDebt(r.Context(), c, ledger.ClientDebt(c))
	if err != nil {
		writeLedgerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toMessageDTO(msg))
}

// =============================================================================
// FLOAT HANDLERS
// =============================================================================

// GetFloat returns the float of every method plus unregistered ones still
// referenced by history.
func (h *Handler) GetFloat(w http.ResponseWriter, r *http.Request) {
	rows := h.Ledger.MethodBalances()
	dto := FloatDTO{Methods: make([]MethodBalanceDTO, 0, len(rows)), Total: decimal.Zero}
	for _, row := range rows {
		dto.Methods = append(dto.Methods, MethodBalanceDTO{MethodDTO: toMethodDTO(row.Method), Balance: row.Balance})
		dto.Total = dto.Total.Add(row.Balance)
	}
	writeJSON(w, http.StatusOK, dto)
}

// AdjustFloat applies a manual correction to a method's float.
func (h *Handler) AdjustFloat(w http.ResponseWriter, r *http.Request) {
	var req AdjustFloatRequest
	if !decode(w, r, &req) {
		return
	}
	method, ok := h.resolveMethod(w, r, req.Method)
	if !ok {
		return
	}

	balance, err := h.Ledger.AdjustFloat(r.Context(), method, req.Delta)
	if err != nil {
		writeLedgerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, FloatChangeDTO{Method: string(method), Delta: req.Delta, Balance: balance})
}

// ReconcileFloat sets a method's float to a counted amount.
func (h *Handler) ReconcileFloat(w http.ResponseWriter, r *http.Request) {
	var req ReconcileFloatRequest
	if !decode(w, r, &req) {
		return
	}
	method, ok := h.resolveMethod(w, r, req.Method)
	if !ok {
		return
	}

	delta, err := h.Ledger.ReconcileFloat(r.Context(), method, req.Counted)
	if err != nil {
		writeLedgerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, FloatChangeDTO{Method: string(method), Delta: delta, Balance: req.Counted})
}

// =============================================================================
// METHOD HANDLERS
// =============================================================================

func (h *Handler) ListMethods(w http.ResponseWriter, r *http.Request) {
	methods := h.Ledger.Methods()
	dtos := make([]MethodDTO, 0, len(methods))
	for _, m := range methods {
		dtos = append(dtos, toMethodDTO(m))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateMethod(w http.ResponseWriter, r *http.Request) {
	var req CreateMethodRequest
	if !decode(w, r, &req) {
		return
	}

	m, err := h.Ledger.AddMethod(r.Context(), req.Name, req.Color)
	if err != nil {
		writeLedgerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toMethodDTO(m))
}

// RenameMethod renames a method; see ledger.RenameMode for the two modes.
func (h *Handler) RenameMethod(w http.ResponseWriter, r *http.Request) {
	var req RenameMethodRequest
	if !decode(w, r, &req) {
		return
	}
	mode := ledger.RenameMode(req.Mode)
	if mode == "" {
		mode = ledger.RenameInPlace
	}

	m, err := h.Ledger.RenameMethod(r.Context(), ledger.MethodID(chi.URLParam(r, "id")), req.Name, mode)
	if err != nil {
		writeLedgerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toMethodDTO(m))
}

func (h *Handler) SetMethodActive(w http.ResponseWriter, r *http.Request) {
	var req SetMethodActiveRequest
	if !decode(w, r, &req) {
		return
	}

	m, err := h.Ledger.SetMethodActive(r.Context(), ledger.MethodID(chi.URLParam(r, "id")), req.Active)
	if err != nil {
		writeLedgerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toMethodDTO(m))
}

// =============================================================================
// BACKUP HANDLERS
// =============================================================================

// ExportBackup streams the whole ledger as a JSON attachment.
func (h *Handler) ExportBackup(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="float_ledger_backup_%s.json"`, now.Format("2006-01-02")))
	if err := backup.Export(w, h.Ledger.Snapshot(), now); err != nil {
		loggerFrom(r.Context()).Error("backup export failed", zap.Error(err))
	}
}

// ImportBackup replaces the ledger with the uploaded backup.
func (h *Handler) ImportBackup(w http.ResponseWriter, r *http.Request) {
	state, stats, err := backup.Import(r.Body)
	if err != nil {
		writeLedgerError(w, r, err)
		return
	}
	if err := h.Ledger.Replace(r.Context(), state); err != nil {
		writeLedgerError(w, r, err)
		return
	}

	loggerFrom(r.Context()).Info("backup imported",
		zap.Int("clients", stats.Clients),
		zap.Int("transactions", stats.Transactions))
	writeJSON(w, http.StatusOK, ImportResultDTO{Status: "imported", Stats: stats})
}

// =============================================================================
// HELPERS
// =============================================================================

func clientID(r *http.Request) ledger.ClientID {
	return ledger.ClientID(chi.URLParam(r, "id"))
}

// resolveMethod maps a method id or display name to its id.
func (h *Handler) resolveMethod(w http.ResponseWriter, r *http.Request, ref string) (ledger.MethodID, bool) {
	if ref == "" {
		writeError(w, http.StatusBadRequest, "Payment method is required", nil)
		return "", false
	}
	m, err := h.Ledger.ResolveMethod(ref)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Unknown payment method", err)
		return "", false
	}
	return m.ID, true
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeLedgerError maps domain errors to HTTP statuses.
func writeLedgerError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		floatErr *ledger.InsufficientFloatError
		closeErr *ledger.NonZeroBalanceError
		dupErr   *ledger.DuplicateClientError
	)
	switch {
	case errors.As(err, &floatErr):
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error: err.Error(),
			Code:  "insufficient_float",
			Details: map[string]string{
				"method":    string(floatErr.Method),
				"available": floatErr.Available.String(),
				"requested": floatErr.Requested.String(),
			},
		})
	case errors.As(err, &closeErr):
		writeJSON(w, http.StatusConflict, ErrorResponse{
			Error:   err.Error(),
			Code:    "non_zero_balance",
			Details: map[string]string{"balance": closeErr.Balance.String()},
		})
	case errors.As(err, &dupErr):
		writeJSON(w, http.StatusConflict, ErrorResponse{
			Error:   err.Error(),
			Code:    "duplicate_client",
			Details: map[string]string{"field": dupErr.Field, "existing": string(dupErr.Existing)},
		})
	case errors.Is(err, ledger.ErrDuplicateMethod):
		writeJSON(w, http.StatusConflict, ErrorResponse{Error: err.Error(), Code: "duplicate_method"})
	case errors.Is(err, ledger.ErrMethodInactive):
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error(), Code: "method_inactive"})
	case errors.Is(err, notify.ErrNothingOwed):
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error(), Code: "nothing_owed"})
	case ledger.IsNotFound(err):
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: err.Error(), Code: "not_found"})
	case ledger.IsClientError(err), errors.Is(err, backup.ErrInvalidBackup):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "invalid_request"})
	default:
		loggerFrom(r.Context()).Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal error", nil)
	}
}
