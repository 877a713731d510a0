/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the stock core from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

AMOUNTS:
  Prices, weights and totals are decimals and serialize as JSON strings
  ("12.5"). Requests accept either strings or numbers. Quantities are
  integers.

ABSENT VS ZERO:
  Quantity, weight and unit price are pointers. An omitted field is nil;
  an explicit 0 reaches the core and is rejected there.

VALIDATION:
  Shape checks (required, oneof, max length) are struct tags checked by
  go-playground/validator before the request reaches the core. Business
  rules (positive measure, price >= 0, unit type match) stay in the core.

SEE ALSO:
  - handlers.go: Uses these types
  - errors.go: ErrorResponse
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/stock-ledger/stock"
)

// =============================================================================
// PRODUCTS
// =============================================================================

// ProductDTO represents a product and its balance in API responses.
type ProductDTO struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Category     string          `json:"category"`
	SKU          *string         `json:"sku,omitempty"`
	Barcode      *string         `json:"barcode,omitempty"`
	UnitType     string          `json:"unit_type"`
	PricePerUnit decimal.Decimal `json:"price_per_unit"`
	Quantity     int64           `json:"quantity"`
	Weight       decimal.Decimal `json:"weight"`
	CreatedAt    string          `json:"created_at"`
	UpdatedAt    string          `json:"updated_at"`
}

// CreateProductRequest is the request to create a product.
type CreateProductRequest struct {
	Name         string           `json:"name" validate:"required,max=200"`
	Category     string           `json:"category" validate:"required,max=100"`
	SKU          *string          `json:"sku,omitempty" validate:"omitempty,max=64"`
	Barcode      *string          `json:"barcode,omitempty" validate:"omitempty,max=64"`
	UnitType     string           `json:"unit_type" validate:"required,oneof=countable weighable"`
	PricePerUnit *decimal.Decimal `json:"price_per_unit" validate:"required"`
}

// UpdateProductRequest patches catalog fields. Omitted fields are unchanged.
type UpdateProductRequest struct {
	Name         *string          `json:"name,omitempty" validate:"omitempty,max=200"`
	Category     *string          `json:"category,omitempty" validate:"omitempty,max=100"`
	SKU          *string          `json:"sku,omitempty" validate:"omitempty,max=64"`
	Barcode      *string          `json:"barcode,omitempty" validate:"omitempty,max=64"`
	PricePerUnit *decimal.Decimal `json:"price_per_unit,omitempty"`
}

// =============================================================================
// STOCK OPERATIONS
// =============================================================================

// StockMovementRequest is the body of stock-in, stock-out and sale calls.
// Exactly one of Quantity or Weight must be given.
type StockMovementRequest struct {
	ProductID string           `json:"product_id" validate:"required"`
	Quantity  *int64           `json:"quantity,omitempty"`
	Weight    *decimal.Decimal `json:"weight,omitempty"`
	UnitPrice *decimal.Decimal `json:"unit_price,omitempty"`
	Note      string           `json:"note,omitempty" validate:"max=500"`
}

// BalanceDTO is a product's balance after an operation.
type BalanceDTO struct {
	ProductID string          `json:"product_id"`
	Quantity  int64           `json:"quantity"`
	Weight    decimal.Decimal `json:"weight"`
}

// OperationResponse is returned by every committed stock operation.
type OperationResponse struct {
	Balance     BalanceDTO       `json:"balance"`
	EntryID     int64            `json:"entry_id"`
	TotalAmount *decimal.Decimal `json:"total_amount,omitempty"`
}

// EntryDTO represents a ledger entry.
type EntryDTO struct {
	ID            int64            `json:"id"`
	ProductID     string           `json:"product_id"`
	Kind          string           `json:"kind"`
	QuantityDelta int64            `json:"quantity_delta"`
	WeightDelta   decimal.Decimal  `json:"weight_delta"`
	UnitPrice     *decimal.Decimal `json:"unit_price,omitempty"`
	TotalAmount   *decimal.Decimal `json:"total_amount,omitempty"`
	Note          string           `json:"note,omitempty"`
	UserID        string           `json:"user_id"`
	CreatedAt     string           `json:"created_at"`
}

// =============================================================================
// REPORTS
// =============================================================================

// SaleLineDTO is one sale in a sales report.
type SaleLineDTO struct {
	EntryDTO
	ProductName string `json:"product_name"`
	UnitType    string `json:"unit_type"`
}

// SalesReportDTO lists the sales of a period, newest first.
type SalesReportDTO struct {
	Period       string          `json:"period"`
	From         string          `json:"from"`
	To           string          `json:"to"`
	Sales        []SaleLineDTO   `json:"sales"`
	TotalRevenue decimal.Decimal `json:"total_revenue"`
}

// DailyRevenueDTO is one calendar date of a revenue report.
type DailyRevenueDTO struct {
	Date    string          `json:"date"`
	Revenue decimal.Decimal `json:"revenue"`
	Sales   int             `json:"sales"`
}

// RevenueReportDTO groups a period's revenue by date, newest first.
type RevenueReportDTO struct {
	Period       string            `json:"period"`
	From         string            `json:"from"`
	To           string            `json:"to"`
	Days         []DailyRevenueDTO `json:"days"`
	TotalRevenue decimal.Decimal   `json:"total_revenue"`
	TotalSales   int               `json:"total_sales"`
}

// DiscrepancyDTO is a product whose balance differs from its ledger.
type DiscrepancyDTO struct {
	ProductID      string          `json:"product_id"`
	Name           string          `json:"name"`
	StoredQuantity int64           `json:"stored_quantity"`
	LedgerQuantity int64           `json:"ledger_quantity"`
	StoredWeight   decimal.Decimal `json:"stored_weight"`
	LedgerWeight   decimal.Decimal `json:"ledger_weight"`
}

// AuditReportDTO is the result of a ledger audit.
type AuditReportDTO struct {
	Consistent      bool             `json:"consistent"`
	ProductsChecked int              `json:"products_checked"`
	EntriesScanned  int              `json:"entries_scanned"`
	Discrepancies   []DiscrepancyDTO `json:"discrepancies"`
}

// =============================================================================
// SCENARIOS
// =============================================================================

// ScenarioDTO describes a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest is the request to load a demo scenario.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id" validate:"required"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func toProductDTO(p stock.Product) ProductDTO {
	return ProductDTO{
		ID:           string(p.ID),
		Name:         p.Name,
		Category:     p.Category,
		SKU:          p.SKU,
		Barcode:      p.Barcode,
		UnitType:     string(p.UnitType),
		PricePerUnit: p.PricePerUnit,
		Quantity:     p.Quantity,
		Weight:       p.Weight,
		CreatedAt:    formatTime(p.CreatedAt),
		UpdatedAt:    formatTime(p.UpdatedAt),
	}
}

func toProductDTOs(products []stock.Product) []ProductDTO {
	dtos := make([]ProductDTO, len(products))
	for i, p := range products {
		dtos[i] = toProductDTO(p)
	}
	return dtos
}

func toEntryDTO(e stock.Entry) EntryDTO {
	return EntryDTO{
		ID:            int64(e.ID),
		ProductID:     string(e.ProductID),
		Kind:          string(e.Kind),
		QuantityDelta: e.QuantityDelta,
		WeightDelta:   e.WeightDelta,
		UnitPrice:     e.UnitPrice,
		TotalAmount:   e.TotalAmount,
		Note:          e.Note,
		UserID:        string(e.UserID),
		CreatedAt:     formatTime(e.CreatedAt),
	}
}

func toOperationResponse(res stock.Result) OperationResponse {
	return OperationResponse{
		Balance: BalanceDTO{
			ProductID: string(res.Balance.ProductID),
			Quantity:  res.Balance.Quantity,
			Weight:    res.Balance.Weight,
		},
		EntryID:     int64(res.EntryID),
		TotalAmount: res.TotalAmount,
	}
}

func toSalesReportDTO(r stock.SalesReport) SalesReportDTO {
	dto := SalesReportDTO{
		Period:       string(r.Period),
		From:         formatTime(r.Window.From),
		To:           formatTime(r.Window.To),
		Sales:        make([]SaleLineDTO, len(r.Entries)),
		TotalRevenue: r.TotalRevenue,
	}
	for i, line := range r.Entries {
		dto.Sales[i] = SaleLineDTO{
			EntryDTO:    toEntryDTO(line.Entry),
			ProductName: line.ProductName,
			UnitType:    string(line.UnitType),
		}
	}
	return dto
}

func toRevenueReportDTO(r stock.RevenueReport) RevenueReportDTO {
	dto := RevenueReportDTO{
		Period:       string(r.Period),
		From:         formatTime(r.Window.From),
		To:           formatTime(r.Window.To),
		Days:         make([]DailyRevenueDTO, len(r.Days)),
		TotalRevenue: r.TotalRevenue,
		TotalSales:   r.TotalSales,
	}
	for i, d := range r.Days {
		dto.Days[i] = DailyRevenueDTO{Date: d.Date, Revenue: d.Revenue, Sales: d.Sales}
	}
	return dto
}

func toAuditReportDTO(r stock.AuditReport) AuditReportDTO {
	dto := AuditReportDTO{
		Consistent:      r.Consistent(),
		ProductsChecked: r.ProductsChecked,
		EntriesScanned:  r.EntriesScanned,
		Discrepancies:   make([]DiscrepancyDTO, len(r.Discrepancies)),
	}
	for i, d := range r.Discrepancies {
		dto.Discrepancies[i] = DiscrepancyDTO{
			ProductID:      string(d.ProductID),
			Name:           d.Name,
			StoredQuantity: d.StoredQuantity,
			LedgerQuantity: d.LedgerQuantity,
			StoredWeight:   d.StoredWeight,
			LedgerWeight:   d.LedgerWeight,
		}
	}
	return dto
}
