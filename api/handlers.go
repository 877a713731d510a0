/*
handlers.go - HTTP API handlers for the stock ledger

PURPOSE:
  Exposes the stock core via REST API. Handles HTTP request/response and
  JSON serialization, and delegates to the Catalog, Coordinator, Ledger,
  Reporter and Auditor.

ENDPOINTS:
  Products:
    GET    /api/products               List products with balances
    POST   /api/products               Create product
    GET    /api/products/{id}          Get product
    PATCH  /api/products/{id}          Update catalog fields
    GET    /api/products/{id}/entries  Ledger history, newest first

  Stock:
    POST   /api/stock/in               Receive stock
    POST   /api/stock/out              Remove stock (damage, shrinkage, ...)
    POST   /api/sales                  Sell

  Reports:
    GET    /api/reports/stock          Current snapshot
    GET    /api/reports/sales          ?period=daily|weekly|monthly
    GET    /api/reports/revenue        ?period=daily|weekly|monthly

  Admin:
    POST   /api/admin/audit            Recompute balances from the ledger

ACTING USER:
  Stock operations record the X-User-ID header as the acting user. The
  identity provider in front of this service is expected to set it.

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate shape (struct tags)
  3. Call the stock core
  4. Serialize response
  5. Map errors (see errors.go)

SEE ALSO:
  - dto.go: Request/response data structures
  - errors.go: Error to status mapping
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/warp/stock-ledger/metrics"
	"github.com/warp/stock-ledger/stock"
)

// UserHeader carries the acting user's id.
const UserHeader = "X-User-ID"

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store       stock.Store
	Catalog     *stock.Catalog
	Coordinator *stock.Coordinator
	Ledger      *stock.Ledger
	Reporter    *stock.Reporter
	Auditor     *stock.Auditor
	Metrics     *metrics.Metrics // optional
	Logger      *zap.Logger

	validate *validator.Validate

	// Track currently loaded scenario
	mu              sync.Mutex
	currentScenario string
}

// NewHandler builds the stock core over store. Daily report windows and
// revenue dates use loc.
func NewHandler(store stock.Store, loc *time.Location, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		Store:       store,
		Catalog:     stock.NewCatalog(store, logger),
		Coordinator: stock.NewCoordinator(store, logger),
		Ledger:      stock.NewLedger(store),
		Reporter:    stock.NewReporter(store, loc),
		Auditor:     stock.NewAuditor(store),
		Logger:      logger.Named("api"),
		validate:    newValidator(),
	}
}

// WithMetrics reports stock operations and audit results to m.
func (h *Handler) WithMetrics(m *metrics.Metrics) *Handler {
	h.Metrics = m
	if m != nil {
		h.Coordinator.Observer = m
	}
	return h
}

// =============================================================================
// PRODUCT HANDLERS
// =============================================================================

// ListProducts returns all products with their balances.
// GET /api/products
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.Catalog.List(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductDTOs(products))
}

// CreateProduct adds a product with a zero balance.
// POST /api/products
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req CreateProductRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	p, err := h.Catalog.Create(r.Context(), stock.ProductSpec{
		Name:         req.Name,
		Category:     req.Category,
		SKU:          req.SKU,
		Barcode:      req.Barcode,
		UnitType:     stock.UnitType(req.UnitType),
		PricePerUnit: req.PricePerUnit,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toProductDTO(p))
}

// GetProduct returns one product.
// GET /api/products/{id}
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.Catalog.Get(r.Context(), productIDParam(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductDTO(p))
}

// UpdateProduct patches catalog fields. Balances cannot be patched.
// PATCH /api/products/{id}
func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	var req UpdateProductRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	p, err := h.Catalog.Update(r.Context(), productIDParam(r), stock.ProductPatch{
		Name:         req.Name,
		Category:     req.Category,
		SKU:          req.SKU,
		Barcode:      req.Barcode,
		PricePerUnit: req.PricePerUnit,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductDTO(p))
}

// GetEntries returns a product's ledger entries, newest first.
// GET /api/products/{id}/entries?limit=50
func (h *Handler) GetEntries(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, CodeValidation, "limit must be a non-negative integer", nil)
			return
		}
		limit = n
	}

	entries, err := h.Ledger.History(r.Context(), productIDParam(r), limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	dtos := make([]EntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = toEntryDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// STOCK OPERATION HANDLERS
// =============================================================================

// StockIn records received stock.
// POST /api/stock/in
func (h *Handler) StockIn(w http.ResponseWriter, r *http.Request) {
	var req StockMovementRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	res, err := h.Coordinator.StockIn(r.Context(), stock.StockInRequest{
		ProductID: stock.ProductID(req.ProductID),
		Measure:   req.measure(),
		UnitPrice: req.UnitPrice,
		Note:      req.Note,
		UserID:    actingUser(r),
	})
	h.writeOperation(w, res, err)
}

// StockOut records stock leaving without a sale.
// POST /api/stock/out
func (h *Handler) StockOut(w http.ResponseWriter, r *http.Request) {
	var req StockMovementRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	if req.UnitPrice != nil {
		writeError(w, http.StatusBadRequest, CodeValidation, "unit_price is not accepted for stock-out",
			map[string]string{"unit_price": "must be omitted"})
		return
	}

	res, err := h.Coordinator.StockOut(r.Context(), stock.StockOutRequest{
		ProductID: stock.ProductID(req.ProductID),
		Measure:   req.measure(),
		Note:      req.Note,
		UserID:    actingUser(r),
	})
	h.writeOperation(w, res, err)
}

// Sell records a sale and returns its total.
// POST /api/sales
func (h *Handler) Sell(w http.ResponseWriter, r *http.Request) {
	var req StockMovementRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	res, err := h.Coordinator.Sell(r.Context(), stock.SaleRequest{
		ProductID: stock.ProductID(req.ProductID),
		Measure:   req.measure(),
		UnitPrice: req.UnitPrice,
		Note:      req.Note,
		UserID:    actingUser(r),
	})
	h.writeOperation(w, res, err)
}

func (h *Handler) writeOperation(w http.ResponseWriter, res stock.Result, err error) {
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toOperationResponse(res))
}

func (req StockMovementRequest) measure() stock.Measure {
	return stock.Measure{Quantity: req.Quantity, Weight: req.Weight}
}

// =============================================================================
// REPORT HANDLERS
// =============================================================================

// StockSnapshot returns every product with its current balance.
// GET /api/reports/stock
func (h *Handler) StockSnapshot(w http.ResponseWriter, r *http.Request) {
	products, err := h.Reporter.StockSnapshot(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductDTOs(products))
}

// SalesReport lists the sales of a period.
// GET /api/reports/sales?period=daily
func (h *Handler) SalesReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.Reporter.SalesByPeriod(r.Context(), stock.Period(r.URL.Query().Get("period")))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSalesReportDTO(report))
}

// RevenueReport returns revenue grouped by date.
// GET /api/reports/revenue?period=weekly
func (h *Handler) RevenueReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.Reporter.RevenueByPeriod(r.Context(), stock.Period(r.URL.Query().Get("period")))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRevenueReportDTO(report))
}

// =============================================================================
// ADMIN HANDLERS
// =============================================================================

// TriggerAudit recomputes all balances from the ledger.
// POST /api/admin/audit
func (h *Handler) TriggerAudit(w http.ResponseWriter, r *http.Request) {
	report, err := h.runAudit(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAuditReportDTO(report))
}

// runAudit is shared by the endpoint and the scheduler.
func (h *Handler) runAudit(ctx context.Context) (stock.AuditReport, error) {
	report, err := h.Auditor.Verify(ctx)
	if err != nil {
		h.Logger.Error("ledger audit failed", zap.Error(err))
		return stock.AuditReport{}, err
	}
	if h.Metrics != nil {
		h.Metrics.AuditDiscrepancies.Set(float64(len(report.Discrepancies)))
	}

	if report.Consistent() {
		h.Logger.Info("ledger audit passed",
			zap.Int("products", report.ProductsChecked),
			zap.Int("entries", report.EntriesScanned))
		return report, nil
	}
	for _, d := range report.Discrepancies {
		h.Logger.Warn("balance differs from ledger",
			zap.String("product_id", string(d.ProductID)),
			zap.Int64("stored_quantity", d.StoredQuantity),
			zap.Int64("ledger_quantity", d.LedgerQuantity),
			zap.String("stored_weight", d.StoredWeight.String()),
			zap.String("ledger_weight", d.LedgerWeight.String()))
	}
	return report, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func productIDParam(r *http.Request) stock.ProductID {
	return stock.ProductID(chi.URLParam(r, "id"))
}

func actingUser(r *http.Request) stock.UserID {
	return stock.UserID(r.Header.Get(UserHeader))
}
