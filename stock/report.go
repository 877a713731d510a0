/*
report.go - Read-side aggregation over products and the ledger

PURPOSE:
  Answers "what is in stock" and "what did we sell" without ever writing.
  Reports run concurrently with mutations and with each other; they take
  no product lock and may be a few entries stale.

REPORTS:
  StockSnapshot:   every product with its balance, ordered by name
  SalesByPeriod:   sale entries in the window, newest first, plus their sum
  RevenueByPeriod: sales grouped by calendar date, newest date first

PERIODS:
  daily   = current calendar day (in Location)
  weekly  = trailing 7 days
  monthly = trailing 30 days

SEE ALSO:
  - period.go: Window computation
  - ledger.go: Scan
*/
package stock

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// REPORT TYPES
// =============================================================================

type SaleLine struct {
	Entry       Entry
	ProductName string
	UnitType    UnitType
}

type SalesReport struct {
	Period       Period
	Window       Window
	Entries      []SaleLine
	TotalRevenue decimal.Decimal
}

type DailyRevenue struct {
	Date    string // YYYY-MM-DD in the reporter's location
	Revenue decimal.Decimal
	Sales   int
}

type RevenueReport struct {
	Period       Period
	Window       Window
	Days         []DailyRevenue
	TotalRevenue decimal.Decimal
	TotalSales   int
}

// =============================================================================
// REPORTER
// =============================================================================

type Reporter struct {
	Store    Store
	Ledger   *Ledger
	Now      func() time.Time
	Location *time.Location
}

func NewReporter(store Store, loc *time.Location) *Reporter {
	if loc == nil {
		loc = time.UTC
	}
	return &Reporter{Store: store, Ledger: NewLedger(store), Now: time.Now, Location: loc}
}

// StockSnapshot returns the current products and balances ordered by name.
func (r *Reporter) StockSnapshot(ctx context.Context) ([]Product, error) {
	products, err := r.Store.ListProducts(ctx)
	if err != nil {
		return nil, asStorageError("stock snapshot", err)
	}
	return products, nil
}

// SalesByPeriod lists sale entries in the period window, newest first.
func (r *Reporter) SalesByPeriod(ctx context.Context, period Period) (SalesReport, error) {
	period, window, err := r.window(period)
	if err != nil {
		return SalesReport{}, err
	}
	products, err := r.productIndex(ctx)
	if err != nil {
		return SalesReport{}, err
	}

	report := SalesReport{Period: period, Window: window, Entries: []SaleLine{}, TotalRevenue: decimal.Zero}
	for e, err := range r.ledger().Scan(ctx, r.salesFilter(window)) {
		if err != nil {
			return SalesReport{}, err
		}
		p := products[e.ProductID]
		report.Entries = append(report.Entries, SaleLine{Entry: e, ProductName: p.Name, UnitType: p.UnitType})
		if e.TotalAmount != nil {
			report.TotalRevenue = report.TotalRevenue.Add(*e.TotalAmount)
		}
	}
	return report, nil
}

// RevenueByPeriod groups sale totals by calendar date, newest date first.
func (r *Reporter) RevenueByPeriod(ctx context.Context, period Period) (RevenueReport, error) {
	period, window, err := r.window(period)
	if err != nil {
		return RevenueReport{}, err
	}

	report := RevenueReport{Period: period, Window: window, Days: []DailyRevenue{}, TotalRevenue: decimal.Zero}
	byDate := make(map[string]*DailyRevenue)
	loc := r.location()
	for e, err := range r.ledger().Scan(ctx, r.salesFilter(window)) {
		if err != nil {
			return RevenueReport{}, err
		}
		amount := decimal.Zero
		if e.TotalAmount != nil {
			amount = *e.TotalAmount
		}
		key := dateKey(e.CreatedAt, loc)
		day, ok := byDate[key]
		if !ok {
			day = &DailyRevenue{Date: key, Revenue: decimal.Zero}
			byDate[key] = day
		}
		day.Revenue = day.Revenue.Add(amount)
		day.Sales++
		report.TotalRevenue = report.TotalRevenue.Add(amount)
		report.TotalSales++
	}

	// Entry ids do not order created_at across products, so sort by date.
	for _, day := range byDate {
		report.Days = append(report.Days, *day)
	}
	sort.Slice(report.Days, func(i, j int) bool {
		return report.Days[i].Date > report.Days[j].Date
	})
	return report, nil
}

func (r *Reporter) window(period Period) (Period, Window, error) {
	p, err := ParsePeriod(string(period))
	if err != nil {
		return "", Window{}, err
	}
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	return p, p.WindowAt(now(), r.location()), nil
}

func (r *Reporter) location() *time.Location {
	if r.Location == nil {
		return time.UTC
	}
	return r.Location
}

func (r *Reporter) ledger() *Ledger {
	if r.Ledger == nil {
		return NewLedger(r.Store)
	}
	return r.Ledger
}

func (r *Reporter) salesFilter(w Window) EntryFilter {
	return EntryFilter{Kinds: []Kind{KindSale}, From: w.From, To: w.To, Newest: true}
}

func (r *Reporter) productIndex(ctx context.Context) (map[ProductID]Product, error) {
	products, err := r.Store.ListProducts(ctx)
	if err != nil {
		return nil, asStorageError("list products", err)
	}
	index := make(map[ProductID]Product, len(products))
	for _, p := range products {
		index[p.ID] = p
	}
	return index, nil
}
