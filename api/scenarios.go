/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:
  Provides pre-built scenarios that populate the store with a small
  grocery catalog and some history. Everything goes through the Catalog
  and the Coordinator, so balances always match the ledger.

AVAILABLE SCENARIOS:
  grocery-store:  Countable goods, deliveries and a morning of sales
  deli-counter:   Weighable goods sold by weight
  sales-history:  A month of daily sales for weekly/monthly reports

HOW SCENARIOS WORK:
  1. Reset the store (clear products and ledger)
  2. Create products via the Catalog
  3. Stock in via the Coordinator
  4. Sell via the Coordinator

USAGE VIA API:
  POST /api/scenarios/load
  {"scenario_id": "grocery-store"}

NOTE:
  Scenarios reset the store. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Handler
  - stock/store.go: Resetter
*/
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/warp/stock-ledger/stock"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "grocery-store",
		Name:        "Grocery Store",
		Description: "Countable products with deliveries and a morning of sales",
	},
	{
		ID:          "deli-counter",
		Name:        "Deli Counter",
		Description: "Weighable products received and sold by the kilogram",
	},
	{
		ID:          "sales-history",
		Name:        "Sales History",
		Description: "Thirty days of daily sales for weekly and monthly reports",
	},
}

type scenarioLoader func(ctx context.Context, h *Handler) error

var scenarioLoaders = map[string]scenarioLoader{
	"grocery-store": loadGroceryStore,
	"deli-counter":  loadDeliCounter,
	"sales-history": loadSalesHistory,
}

const scenarioUser stock.UserID = "demo"

// =============================================================================
// HANDLERS
// =============================================================================

// ListScenarios returns the available demo scenarios.
// GET /api/scenarios
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the id of the last loaded scenario.
// GET /api/scenarios/current
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"scenario_id": current})
}

// LoadScenario resets the store and loads a scenario.
// POST /api/scenarios/load
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	loader, ok := scenarioLoaders[req.ScenarioID]
	if !ok {
		writeError(w, http.StatusNotFound, "scenario_not_found", "unknown scenario", req.ScenarioID)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.reset(r.Context(), w) {
		return
	}
	if err := loader(r.Context(), h); err != nil {
		h.Logger.Error("scenario load failed", zap.String("scenario", req.ScenarioID), zap.Error(err))
		writeDomainError(w, err)
		return
	}
	h.currentScenario = req.ScenarioID
	h.Logger.Info("scenario loaded", zap.String("scenario", req.ScenarioID))

	products, err := h.Catalog.List(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"scenario_id": req.ScenarioID,
		"products":    toProductDTOs(products),
	})
}

// ResetDatabase clears all products and ledger entries.
// POST /api/scenarios/reset
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.reset(r.Context(), w) {
		return
	}
	h.currentScenario = ""
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func (h *Handler) reset(ctx context.Context, w http.ResponseWriter) bool {
	resetter, ok := h.Store.(stock.Resetter)
	if !ok {
		writeError(w, http.StatusNotImplemented, "reset_unsupported", "store does not support reset", nil)
		return false
	}
	if err := resetter.Reset(ctx); err != nil {
		writeError(w, http.StatusServiceUnavailable, CodeStorage, "failed to reset store", err.Error())
		return false
	}
	return true
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

type demoProduct struct {
	name     string
	category string
	sku      string
	unit     stock.UnitType
	price    string
}

func createProducts(ctx context.Context, c *stock.Catalog, specs []demoProduct) (map[string]stock.Product, error) {
	created := make(map[string]stock.Product, len(specs))
	for _, s := range specs {
		sku := s.sku
		price := decimal.RequireFromString(s.price)
		p, err := c.Create(ctx, stock.ProductSpec{
			Name:         s.name,
			Category:     s.category,
			SKU:          &sku,
			UnitType:     s.unit,
			PricePerUnit: &price,
		})
		if err != nil {
			return nil, fmt.Errorf("create %s: %w", s.name, err)
		}
		created[s.sku] = p
	}
	return created, nil
}

func stockInQuantity(ctx context.Context, c *stock.Coordinator, p stock.Product, n int64, cost string) error {
	price := decimal.RequireFromString(cost)
	_, err := c.StockIn(ctx, stock.StockInRequest{
		ProductID: p.ID, Measure: stock.Quantity(n), UnitPrice: &price,
		Note: "supplier delivery", UserID: scenarioUser,
	})
	return err
}

func stockInWeight(ctx context.Context, c *stock.Coordinator, p stock.Product, kg, cost string) error {
	price := decimal.RequireFromString(cost)
	_, err := c.StockIn(ctx, stock.StockInRequest{
		ProductID: p.ID, Measure: stock.Weight(decimal.RequireFromString(kg)), UnitPrice: &price,
		Note: "supplier delivery", UserID: scenarioUser,
	})
	return err
}

func sell(ctx context.Context, c *stock.Coordinator, p stock.Product, m stock.Measure) error {
	price := p.PricePerUnit
	_, err := c.Sell(ctx, stock.SaleRequest{
		ProductID: p.ID, Measure: m, UnitPrice: &price, UserID: scenarioUser,
	})
	return err
}

func loadGroceryStore(ctx context.Context, h *Handler) error {
	products, err := createProducts(ctx, h.Catalog, []demoProduct{
		{"Apples", "produce", "PRD-APL", stock.UnitCountable, "0.45"},
		{"Bananas", "produce", "PRD-BAN", stock.UnitCountable, "0.25"},
		{"Whole Milk 1L", "dairy", "DRY-MLK", stock.UnitCountable, "1.19"},
		{"Sourdough Loaf", "bakery", "BKY-SDG", stock.UnitCountable, "3.80"},
	})
	if err != nil {
		return err
	}

	deliveries := []struct {
		sku  string
		n    int64
		cost string
	}{
		{"PRD-APL", 120, "0.20"},
		{"PRD-BAN", 90, "0.10"},
		{"DRY-MLK", 48, "0.70"},
		{"BKY-SDG", 12, "1.90"},
	}
	for _, d := range deliveries {
		if err := stockInQuantity(ctx, h.Coordinator, products[d.sku], d.n, d.cost); err != nil {
			return err
		}
	}

	sales := []struct {
		sku string
		n   int64
	}{
		{"PRD-APL", 6}, {"DRY-MLK", 2}, {"BKY-SDG", 1}, {"PRD-BAN", 12}, {"PRD-APL", 4}, {"BKY-SDG", 2},
	}
	for _, s := range sales {
		if err := sell(ctx, h.Coordinator, products[s.sku], stock.Quantity(s.n)); err != nil {
			return err
		}
	}

	// Two cartons of milk arrived damaged.
	_, err = h.Coordinator.StockOut(ctx, stock.StockOutRequest{
		ProductID: products["DRY-MLK"].ID, Measure: stock.Quantity(2),
		Note: "damaged in delivery", UserID: scenarioUser,
	})
	return err
}

func loadDeliCounter(ctx context.Context, h *Handler) error {
	products, err := createProducts(ctx, h.Catalog, []demoProduct{
		{"Aged Cheddar", "deli", "DLI-CHD", stock.UnitWeighable, "18.50"},
		{"Smoked Ham", "deli", "DLI-HAM", stock.UnitWeighable, "22.00"},
		{"Olives", "deli", "DLI-OLV", stock.UnitWeighable, "9.90"},
	})
	if err != nil {
		return err
	}

	for sku, kg := range map[string]string{"DLI-CHD": "4.2", "DLI-HAM": "3.5", "DLI-OLV": "2.0"} {
		if err := stockInWeight(ctx, h.Coordinator, products[sku], kg, "8.00"); err != nil {
			return err
		}
	}

	cuts := []struct {
		sku string
		kg  string
	}{
		{"DLI-CHD", "0.250"}, {"DLI-HAM", "0.180"}, {"DLI-OLV", "0.300"}, {"DLI-CHD", "0.420"}, {"DLI-HAM", "0.500"},
	}
	for _, c := range cuts {
		if err := sell(ctx, h.Coordinator, products[c.sku], stock.Weight(decimal.RequireFromString(c.kg))); err != nil {
			return err
		}
	}
	return nil
}

// loadSalesHistory backdates entries with a dedicated coordinator clock so
// the weekly and monthly reports have something to group.
func loadSalesHistory(ctx context.Context, h *Handler) error {
	products, err := createProducts(ctx, h.Catalog, []demoProduct{
		{"Coffee Beans 250g", "pantry", "PNT-COF", stock.UnitCountable, "6.50"},
		{"Parmesan", "deli", "DLI-PRM", stock.UnitWeighable, "24.00"},
	})
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	day := now.AddDate(0, 0, -29)
	backdated := stock.NewCoordinator(h.Store, h.Logger)
	backdated.Now = func() time.Time { return day }

	coffee, parmesan := products["PNT-COF"], products["DLI-PRM"]
	if err := stockInQuantity(ctx, backdated, coffee, 200, "3.10"); err != nil {
		return err
	}
	if err := stockInWeight(ctx, backdated, parmesan, "12.0", "14.00"); err != nil {
		return err
	}

	for i := 0; i < 30; i++ {
		day = now.AddDate(0, 0, i-29)
		if err := sell(ctx, backdated, coffee, stock.Quantity(int64(1+i%4))); err != nil {
			return err
		}
		if i%3 == 0 {
			if err := sell(ctx, backdated, parmesan, stock.Weight(decimal.RequireFromString("0.150"))); err != nil {
				return err
			}
		}
	}
	return nil
}
