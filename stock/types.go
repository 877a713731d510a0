/*
Package stock provides the stock-ledger consistency core.

PURPOSE:
  Keeps every product's on-hand quantity/weight consistent with an
  append-only history of stock-affecting events (stock-in, stock-out, sale).
  The same engine serves any front end: HTTP handlers, CLIs, or direct calls.

KEY CONCEPTS IN THIS FILE (types.go):
  - Product: catalog identity, unit type, price, and denormalized balance
  - Entry: an immutable ledger record of one stock-affecting event
  - Balance: the current quantity/weight of a product
  - Measure: an input amount where "absent" and "zero" are distinct

DESIGN PRINCIPLES:
  1. Immutability: Entries are never modified, corrections are new entries
  2. Precision: Prices and weights use decimal.Decimal
  3. Conservation: Balance == signed sum of entry magnitudes, per product
  4. Non-negativity: No committed balance is ever below zero

SEE ALSO:
  - coordinator.go: The only writer of balances
  - ledger.go: Append/scan over the ledger store
  - report.go: Read-side aggregation
*/
package stock

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type ProductID string
type EntryID int64
type UserID string

// =============================================================================
// UNIT TYPE
// =============================================================================

// UnitType declares how a product is measured. Countable products move by
// quantity, weighable products by weight. Never both.
type UnitType string

const (
	UnitCountable UnitType = "countable"
	UnitWeighable UnitType = "weighable"
)

func (u UnitType) Valid() bool {
	return u == UnitCountable || u == UnitWeighable
}

// =============================================================================
// ENTRY KIND
// =============================================================================

type Kind string

const (
	KindStockIn  Kind = "stock_in"
	KindStockOut Kind = "stock_out"
	KindSale     Kind = "sale"
)

func (k Kind) Valid() bool {
	switch k {
	case KindStockIn, KindStockOut, KindSale:
		return true
	}
	return false
}

// Sign is +1 for kinds that add stock and -1 for kinds that remove it.
func (k Kind) Sign() int64 {
	if k == KindStockIn {
		return 1
	}
	return -1
}

// Decreases reports whether the kind is subject to the insufficiency check.
func (k Kind) Decreases() bool { return k.Sign() < 0 }

// =============================================================================
// PRODUCT
// =============================================================================

type Product struct {
	ID           ProductID
	Name         string
	Category     string
	SKU          *string
	Barcode      *string
	UnitType     UnitType
	PricePerUnit decimal.Decimal

	// Maintained by the coordinator only.
	Quantity int64
	Weight   decimal.Decimal

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Balance returns the product's current denormalized balance.
func (p Product) Balance() Balance {
	return Balance{ProductID: p.ID, Quantity: p.Quantity, Weight: p.Weight}
}

// ProductSpec is the input for creating a product.
type ProductSpec struct {
	Name         string
	Category     string
	SKU          *string
	Barcode      *string
	UnitType     UnitType
	PricePerUnit *decimal.Decimal
}

// ProductPatch is a partial update. Nil fields are left unchanged.
// Quantity and weight are not patchable; unit type is fixed at creation.
type ProductPatch struct {
	Name         *string
	Category     *string
	SKU          *string
	Barcode      *string
	PricePerUnit *decimal.Decimal
}

// =============================================================================
// BALANCE
// =============================================================================

type Balance struct {
	ProductID ProductID
	Quantity  int64
	Weight    decimal.Decimal
}

func (b Balance) IsNegative() bool {
	return b.Quantity < 0 || b.Weight.IsNegative()
}

// =============================================================================
// MEASURE - Amount moved by one operation
// =============================================================================

// Measure carries the amount of a stock operation. Exactly one field must be
// set. A nil field means "not provided"; a pointer to zero is a provided zero
// and is rejected by validation rather than silently ignored.
type Measure struct {
	Quantity *int64
	Weight   *decimal.Decimal
}

// MaxScale is the number of decimal places kept for prices, weights and
// sale totals. The MySQL columns are DECIMAL(20,6).
const MaxScale = 6

// exceedsScale reports whether d has significant digits past MaxScale.
func exceedsScale(d decimal.Decimal) bool {
	return !d.Equal(d.Truncate(MaxScale))
}

func Quantity(n int64) Measure { return Measure{Quantity: &n} }

func Weight(w decimal.Decimal) Measure { return Measure{Weight: &w} }

// magnitudes returns the quantity and weight magnitudes with absent fields as zero.
func (m Measure) magnitudes() (int64, decimal.Decimal) {
	var q int64
	w := decimal.Zero
	if m.Quantity != nil {
		q = *m.Quantity
	}
	if m.Weight != nil {
		w = *m.Weight
	}
	return q, w
}

// =============================================================================
// LEDGER ENTRY - Immutable record of one stock-affecting event
// =============================================================================

type Entry struct {
	ID        EntryID
	ProductID ProductID
	Kind      Kind

	// Magnitudes, never negative. The sign comes from Kind.
	QuantityDelta int64
	WeightDelta   decimal.Decimal

	UnitPrice   *decimal.Decimal // sale and stock-in only
	TotalAmount *decimal.Decimal // sale only
	Note        string
	UserID      UserID
	CreatedAt   time.Time
}

// SignedQuantity returns the entry's effect on the quantity balance.
func (e Entry) SignedQuantity() int64 { return e.Kind.Sign() * e.QuantityDelta }

// SignedWeight returns the entry's effect on the weight balance.
func (e Entry) SignedWeight() decimal.Decimal {
	return e.WeightDelta.Mul(decimal.NewFromInt(e.Kind.Sign()))
}

// EntryFilter selects entries for Scan. Zero values match everything.
type EntryFilter struct {
	ProductID ProductID
	Kinds     []Kind
	From      time.Time // inclusive
	To        time.Time // inclusive
	AfterID   EntryID   // exclusive cursor in iteration order
	UpTo      EntryID   // inclusive upper bound on id; zero means none
	Newest    bool      // iterate newest first
	Limit     int
}

// Matches reports whether e satisfies every non-zero criterion of the filter.
// Cursor, upper bound and limit are positional and not checked here.
func (f EntryFilter) Matches(e Entry) bool {
	if f.ProductID != "" && e.ProductID != f.ProductID {
		return false
	}
	if len(f.Kinds) > 0 {
		found := false
		for _, k := range f.Kinds {
			if e.Kind == k {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if !f.From.IsZero() && e.CreatedAt.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && e.CreatedAt.After(f.To) {
		return false
	}
	return true
}
