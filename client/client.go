// Package client is a Go client for the stock ledger HTTP API.
//
// Error responses are decoded into *APIError, which unwraps to the matching
// stock sentinel so callers can write errors.Is(err, stock.ErrInsufficientStock).
package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	"github.com/warp/stock-ledger/api"
	"github.com/warp/stock-ledger/stock"
)

// Client is a resty-backed stock ledger client acting as one user.
type Client struct {
	httpClient *resty.Client
}

// New builds a client for baseURL. userID is sent as the acting user on
// every request.
func New(baseURL, userID string) *Client {
	restyClient := resty.New()
	restyClient.
		SetBaseURL(strings.TrimSuffix(baseURL, "/")).
		SetHeader(api.UserHeader, userID).
		SetHeader("Content-Type", "application/json").
		SetTimeout(15 * time.Second)

	return &Client{httpClient: restyClient}
}

// APIError is a non-2xx response.
type APIError struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *APIError) Error() string {
	return fmt.Sprintf("stock api error: status=%d, code=%s, message=%s", e.Status, e.Code, e.Message)
}

// Unwrap maps the response code to the stock error it came from.
func (e *APIError) Unwrap() error {
	switch e.Code {
	case api.CodeValidation, api.CodeBadRequest:
		return stock.ErrValidation
	case api.CodeNotFound:
		return stock.ErrProductNotFound
	case api.CodeUnitMismatch:
		return stock.ErrUnitMismatch
	case api.CodeInsufficientStock:
		return stock.ErrInsufficientStock
	case api.CodeDuplicateSKU:
		return stock.ErrDuplicateSKU
	case api.CodeStorage:
		return stock.ErrStorage
	}
	return nil
}

// =============================================================================
// PRODUCTS
// =============================================================================

func (c *Client) CreateProduct(ctx context.Context, req api.CreateProductRequest) (*api.ProductDTO, error) {
	result := new(api.ProductDTO)
	if err := c.do(ctx, http.MethodPost, "/api/products", req, result); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	return result, nil
}

func (c *Client) UpdateProduct(ctx context.Context, id string, req api.UpdateProductRequest) (*api.ProductDTO, error) {
	result := new(api.ProductDTO)
	if err := c.do(ctx, http.MethodPatch, "/api/products/"+id, req, result); err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}
	return result, nil
}

func (c *Client) GetProduct(ctx context.Context, id string) (*api.ProductDTO, error) {
	result := new(api.ProductDTO)
	if err := c.do(ctx, http.MethodGet, "/api/products/"+id, nil, result); err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	return result, nil
}

func (c *Client) ListProducts(ctx context.Context) ([]api.ProductDTO, error) {
	var result []api.ProductDTO
	if err := c.do(ctx, http.MethodGet, "/api/products", nil, &result); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return result, nil
}

// Entries returns up to limit ledger entries for a product, newest first.
func (c *Client) Entries(ctx context.Context, id string, limit int) ([]api.EntryDTO, error) {
	var result []api.EntryDTO
	path := fmt.Sprintf("/api/products/%s/entries?limit=%d", id, limit)
	if err := c.do(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	return result, nil
}

// =============================================================================
// STOCK OPERATIONS
// =============================================================================

// Quantity and Weight build a movement for a countable or weighable product.
func Quantity(productID string, n int64) api.StockMovementRequest {
	return api.StockMovementRequest{ProductID: productID, Quantity: &n}
}

func Weight(productID string, w decimal.Decimal) api.StockMovementRequest {
	return api.StockMovementRequest{ProductID: productID, Weight: &w}
}

func (c *Client) StockIn(ctx context.Context, req api.StockMovementRequest) (*api.OperationResponse, error) {
	return c.operation(ctx, "/api/stock/in", req)
}

func (c *Client) StockOut(ctx context.Context, req api.StockMovementRequest) (*api.OperationResponse, error) {
	return c.operation(ctx, "/api/stock/out", req)
}

// Sell records a sale at unitPrice.
func (c *Client) Sell(ctx context.Context, req api.StockMovementRequest, unitPrice decimal.Decimal) (*api.OperationResponse, error) {
	req.UnitPrice = &unitPrice
	return c.operation(ctx, "/api/sales", req)
}

func (c *Client) operation(ctx context.Context, path string, req api.StockMovementRequest) (*api.OperationResponse, error) {
	result := new(api.OperationResponse)
	if err := c.do(ctx, http.MethodPost, path, req, result); err != nil {
		return nil, fmt.Errorf("post %s: %w", path, err)
	}
	return result, nil
}

// =============================================================================
// REPORTS
// =============================================================================

func (c *Client) Snapshot(ctx context.Context) ([]api.ProductDTO, error) {
	var result []api.ProductDTO
	if err := c.do(ctx, http.MethodGet, "/api/reports/stock", nil, &result); err != nil {
		return nil, fmt.Errorf("stock snapshot: %w", err)
	}
	return result, nil
}

func (c *Client) Sales(ctx context.Context, period stock.Period) (*api.SalesReportDTO, error) {
	result := new(api.SalesReportDTO)
	if err := c.do(ctx, http.MethodGet, "/api/reports/sales?period="+string(period), nil, result); err != nil {
		return nil, fmt.Errorf("sales report: %w", err)
	}
	return result, nil
}

func (c *Client) Revenue(ctx context.Context, period stock.Period) (*api.RevenueReportDTO, error) {
	result := new(api.RevenueReportDTO)
	if err := c.do(ctx, http.MethodGet, "/api/reports/revenue?period="+string(period), nil, result); err != nil {
		return nil, fmt.Errorf("revenue report: %w", err)
	}
	return result, nil
}

// Audit runs the ledger audit on the server.
func (c *Client) Audit(ctx context.Context) (*api.AuditReportDTO, error) {
	result := new(api.AuditReportDTO)
	if err := c.do(ctx, http.MethodPost, "/api/admin/audit", nil, result); err != nil {
		return nil, fmt.Errorf("audit: %w", err)
	}
	return result, nil
}

// =============================================================================
// TRANSPORT
// =============================================================================

func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	apiErr := new(api.ErrorResponse)
	req := c.httpClient.R().
		SetContext(ctx).
		SetResult(result).
		SetError(apiErr)
	if body != nil {
		req.SetBody(body)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return err
	}
	if resp.StatusCode() >= http.StatusBadRequest {
		e := &APIError{Status: resp.StatusCode(), Code: apiErr.Code, Message: apiErr.Error, Details: apiErr.Details}
		if e.Message == "" {
			e.Message = strings.TrimSpace(resp.String())
		}
		return e
	}
	return nil
}

// IsRetryable reports whether the server failed without applying anything.
func IsRetryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status == http.StatusServiceUnavailable
	}
	return false
}
