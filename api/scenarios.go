/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built agent books that populate the ledger with realistic
	data for demos. Every scenario goes through the regular ledger
	operations, so the same rules (float guard, close preconditions,
	invoice numbering) apply.

AVAILABLE SCENARIOS:

	opening-day:    Float loaded into every rail, no clients yet
	busy-week:      Several clients, loans, repayments, one closed account
	float-shortage: A rail that is almost empty and a client still owing

HOW SCENARIOS WORK:
 1. Reset the ledger (clients and adjustments removed, methods kept)
 2. Load opening float through adjustments
 3. Create clients
 4. Record transactions and close settled accounts

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "busy-week"}

NOTE:

	Scenarios wipe clients. Only use in development/demo environments.
	The invoice counter never moves backwards, so invoice numbers keep
	increasing across reloads.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: LEDGER_SEED_DEMO
*/
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/float-ledger/ledger"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "opening-day",
		Name:        "Opening Day",
		Description: "Float loaded into every active rail, no clients yet",
	},
	{
		ID:          "busy-week",
		Name:        "Busy Week",
		Description: "Loans and repayments across rails, one account closed with an invoice",
	},
	{
		ID:          "float-shortage",
		Name:        "Float Shortage",
		Description: "Mobile rail nearly empty, a client still owing",
	},
}

// ErrUnknownScenario is returned for a scenario id that does not exist.
var ErrUnknownScenario = errors.New("unknown scenario")

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, nil)
}

// LoadScenario loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ScenarioID string `json:"scenario_id"`
	}
	if !decode(w, r, &req) {
		return
	}

	if err := h.ApplyScenario(r.Context(), req.ScenarioID); err != nil {
		if errors.Is(err, ErrUnknownScenario) {
			writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
			return
		}
		writeLedgerError(w, r, fmt.Errorf("load scenario %s: %w", req.ScenarioID, err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// ApplyScenario resets the ledger and loads the given scenario.
func (h *Handler) ApplyScenario(ctx context.Context, id string) error {
	var load func(context.Context, demoRails) error
	switch id {
	case "opening-day":
		load = h.loadOpeningDayScenario
	case "busy-week":
		load = h.loadBusyWeekScenario
	case "float-shortage":
		load = h.loadFloatShortageScenario
	default:
		return fmt.Errorf("%w: %q", ErrUnknownScenario, id)
	}

	rails, err := h.demoRails()
	if err != nil {
		return err
	}
	if err := h.reset(ctx); err != nil {
		return err
	}

	h.mu.Lock()
	h.currentScenario = ""
	h.mu.Unlock()

	if err := load(ctx, rails); err != nil {
		return err
	}

	h.mu.Lock()
	h.currentScenario = id
	h.mu.Unlock()
	return nil
}

// reset removes clients and adjustments but keeps the configured methods.
func (h *Handler) reset(ctx context.Context) error {
	current := h.Ledger.Snapshot()
	fresh := ledger.NewState()
	fresh.Methods = current.Methods
	fresh.InvoiceCounter = current.InvoiceCounter
	return h.Ledger.Replace(ctx, fresh)
}

// demoRails picks a cash-like and a mobile rail among the active methods.
// With a single active method both point to it.
type demoRails struct {
	cash   ledger.MethodID
	mobile ledger.MethodID
	all    []ledger.MethodID
}

func (h *Handler) demoRails() (demoRails, error) {
	active := h.Ledger.ActiveMethods()
	if len(active) == 0 {
		return demoRails{}, fmt.Errorf("%w: scenarios need at least one active payment method", ledger.ErrInvalidMethod)
	}
	rails := demoRails{cash: active[0].ID, mobile: active[0].ID}
	if len(active) > 1 {
		rails.mobile = active[1].ID
	}
	for _, m := range active {
		rails.all = append(rails.all, m.ID)
	}
	return rails, nil
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func (h *Handler) loadOpeningDayScenario(ctx context.Context, rails demoRails) error {
	for _, m := range rails.all {
		if _, err := h.Ledger.AdjustFloat(ctx, m, amount("10000")); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) loadBusyWeekScenario(ctx context.Context, rails demoRails) error {
	if err := h.loadOpeningDayScenario(ctx, rails); err != nil {
		return err
	}

	monday := startOfWeek(h.now())
	at := func(day, hour int) time.Time {
		return monday.AddDate(0, 0, day).Add(time.Duration(hour) * time.Hour)
	}

	ana, err := h.Ledger.CreateClient(ctx, "Ana Machava", "841234567")
	if err != nil {
		return err
	}
	joao, err := h.Ledger.CreateClient(ctx, "João Sitoe", "861112223")
	if err != nil {
		return err
	}
	rosa, err := h.Ledger.CreateClient(ctx, "Rosa Cossa", "871239876")
	if err != nil {
		return err
	}

	steps := []struct {
		client ledger.ClientID
		tx     ledger.NewTransaction
	}{
		{ana.ID, ledger.NewTransaction{Type: ledger.Outflow, Amount: amount("2500"), Method: rails.cash, Date: at(0, 9), Description: "Stock for the stall"}},
		{joao.ID, ledger.NewTransaction{Type: ledger.Outflow, Amount: amount("1200"), Method: rails.mobile, Date: at(0, 11), Description: "School fees"}},
		{ana.ID, ledger.NewTransaction{Type: ledger.Inflow, Amount: amount("1000"), Method: rails.mobile, Date: at(2, 10), Description: "First repayment"}},
		{rosa.ID, ledger.NewTransaction{Type: ledger.Outflow, Amount: amount("800"), Method: rails.cash, Date: at(2, 15)}},
		{rosa.ID, ledger.NewTransaction{Type: ledger.Inflow, Amount: amount("800"), Method: rails.cash, Date: at(3, 16), Description: "Paid in full"}},
		{ana.ID, ledger.NewTransaction{Type: ledger.Inflow, Amount: amount("500"), Method: rails.cash, Date: at(4, 9)}},
	}
	for _, s := range steps {
		if _, err := h.Ledger.RecordTransaction(ctx, s.client, s.tx); err != nil {
			return err
		}
	}

	_, err = h.Ledger.CloseAccount(ctx, rosa.ID)
	return err
}

func (h *Handler) loadFloatShortageScenario(ctx context.Context, rails demoRails) error {
	if _, err := h.Ledger.AdjustFloat(ctx, rails.cash, amount("5000")); err != nil {
		return err
	}
	if rails.mobile != rails.cash {
		if _, err := h.Ledger.AdjustFloat(ctx, rails.mobile, amount("300")); err != nil {
			return err
		}
	}

	c, err := h.Ledger.CreateClient(ctx, "Carlos Mondlane", "845550001")
	if err != nil {
		return err
	}
	_, err = h.Ledger.RecordTransaction(ctx, c.ID, ledger.NewTransaction{
		Type:        ledger.Outflow,
		Amount:      amount("250"),
		Method:      rails.mobile,
		Date:        h.now().Add(-24 * time.Hour),
		Description: "Airtime resale",
	})
	return err
}

// Helpers

func amount(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func startOfWeek(t time.Time) time.Time {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}
