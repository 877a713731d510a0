/*
coordinator.go - Atomic stock-in, stock-out and sale

PURPOSE:
  The Coordinator is the only component that changes a balance. Each call
  is one atomic transition: one ledger entry and one balance update are
  written together, or neither is.

PROTOCOL (shared by all three operations):
  1. Validate input (product, exactly one positive measure, price rules)
  2. Look up product                          -> ErrProductNotFound
  3. Check unit type against the measure      -> ErrUnitMismatch
  4. Deductions: compare against the balance  -> ErrInsufficientStock
  5. Build the ledger entry (kind, magnitude, unit price, total)
  6. In ONE transaction: append entry AND commit balance
  7. Return the new balance (and entry id / total for sales)

CONCURRENCY:
  Steps 2-6 run inside a per-product exclusive section, so two deductions
  on the same product cannot both pass the check against the same balance.
  Different products never wait on each other. The store's transaction is
  the second line: on MySQL the product row is also locked FOR UPDATE.

FAILURE:
  Business rejections happen before any write. Anything else escaping the
  transaction is wrapped as StorageError, and the store has rolled back.
  A TxTimeout bounds the lock wait plus the transaction.

EXAMPLE:
  coord := stock.NewCoordinator(store, logger)
  res, err := coord.Sell(ctx, stock.SaleRequest{
      ProductID: id,
      Measure:   stock.Quantity(20),
      UnitPrice: &price,
      UserID:    "cashier-1",
  })
  if errors.Is(err, stock.ErrInsufficientStock) { ... }

SEE ALSO:
  - balance.go: Apply / Commit
  - ledger.go: Append
  - locks.go: Per-product exclusive sections
*/
package stock

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// =============================================================================
// REQUESTS AND RESULTS
// =============================================================================

type StockInRequest struct {
	ProductID ProductID
	Measure   Measure
	UnitPrice *decimal.Decimal // optional, informational
	Note      string
	UserID    UserID
}

type StockOutRequest struct {
	ProductID ProductID
	Measure   Measure
	Note      string
	UserID    UserID
}

type SaleRequest struct {
	ProductID ProductID
	Measure   Measure
	UnitPrice *decimal.Decimal // required
	Note      string
	UserID    UserID
}

// Result is the outcome of a committed operation.
type Result struct {
	Balance     Balance
	EntryID     EntryID
	TotalAmount *decimal.Decimal // sales only
	Entry       Entry
}

// Observer receives one call per finished operation. Outcome is one of
// "ok", "rejected" or "error".
type Observer interface {
	ObserveStockOperation(kind Kind, outcome string, elapsed time.Duration)
}

// =============================================================================
// COORDINATOR
// =============================================================================

type Coordinator struct {
	Store     Store
	Ledger    *Ledger
	Engine    BalanceEngine
	TxTimeout time.Duration
	Now       func() time.Time
	Observer  Observer
	Logger    *zap.Logger

	locks *productLocks
}

func NewCoordinator(store Store, logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{
		Store:     store,
		Ledger:    NewLedger(store),
		TxTimeout: 5 * time.Second,
		Now:       time.Now,
		Logger:    logger.Named("coordinator"),
		locks:     newProductLocks(),
	}
}

// StockIn increases a product's balance. No insufficiency check applies.
func (c *Coordinator) StockIn(ctx context.Context, req StockInRequest) (Result, error) {
	return c.execute(ctx, operation{
		kind:      KindStockIn,
		productID: req.ProductID,
		measure:   req.Measure,
		unitPrice: req.UnitPrice,
		note:      req.Note,
		userID:    req.UserID,
	})
}

// StockOut decreases a product's balance. Fails with ErrInsufficientStock
// if the balance would go negative.
func (c *Coordinator) StockOut(ctx context.Context, req StockOutRequest) (Result, error) {
	return c.execute(ctx, operation{
		kind:      KindStockOut,
		productID: req.ProductID,
		measure:   req.Measure,
		note:      req.Note,
		userID:    req.UserID,
	})
}

// Sell decreases a product's balance and records the sale total
// (magnitude * unit price) on the entry.
func (c *Coordinator) Sell(ctx context.Context, req SaleRequest) (Result, error) {
	return c.execute(ctx, operation{
		kind:      KindSale,
		productID: req.ProductID,
		measure:   req.Measure,
		unitPrice: req.UnitPrice,
		note:      req.Note,
		userID:    req.UserID,
	})
}

type operation struct {
	kind      Kind
	productID ProductID
	measure   Measure
	unitPrice *decimal.Decimal
	note      string
	userID    UserID
}

func (c *Coordinator) execute(ctx context.Context, op operation) (res Result, err error) {
	start := time.Now()
	defer func() { c.observe(op, err, time.Since(start)) }()

	// Step 1
	if err := validateOperation(op); err != nil {
		return Result{}, err
	}

	if c.TxTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.TxTimeout)
		defer cancel()
	}

	release, err := c.lockFor(ctx, op.productID)
	if err != nil {
		return Result{}, &StorageError{Op: "acquire product lock", Err: err}
	}
	defer release()

	err = c.Store.WithTx(ctx, func(tx Tx) error {
		// Step 2
		p, err := tx.GetProductForUpdate(ctx, op.productID)
		if err != nil {
			return err
		}

		// Step 3
		quantity, weight := op.measure.magnitudes()
		next, err := c.Engine.Apply(p, op.kind, quantity, weight)
		if err != nil {
			return err
		}

		// Step 4
		if op.kind.Decreases() && next.IsNegative() {
			return shortage(p, op.kind.Sign()*quantity, weight.Neg())
		}

		// Step 5
		entry := c.buildEntry(op, quantity, weight)

		// Step 6
		id, err := c.Ledger.Append(ctx, tx, entry)
		if err != nil {
			return err
		}
		entry.ID = id

		committed, err := c.Engine.Commit(ctx, tx, p.ID, entry.SignedQuantity(), entry.SignedWeight())
		if err != nil {
			return err
		}

		res = Result{Balance: committed, EntryID: id, TotalAmount: entry.TotalAmount, Entry: entry}
		return nil
	})
	if err != nil {
		err = asStorageError(string(op.kind), err)
		if IsRetryable(err) {
			c.Logger.Warn("stock operation failed",
				zap.String("kind", string(op.kind)),
				zap.String("product_id", string(op.productID)),
				zap.Error(err))
		}
		return Result{}, err
	}

	// Step 7
	c.Logger.Debug("stock entry committed",
		zap.Int64("entry_id", int64(res.EntryID)),
		zap.String("kind", string(op.kind)),
		zap.String("product_id", string(op.productID)),
		zap.Int64("quantity", res.Balance.Quantity),
		zap.String("weight", res.Balance.Weight.String()))
	return res, nil
}

func (c *Coordinator) lockFor(ctx context.Context, id ProductID) (func(), error) {
	if c.locks == nil {
		c.locks = newProductLocks()
	}
	return c.locks.acquire(ctx, id)
}

func (c *Coordinator) buildEntry(op operation, quantity int64, weight decimal.Decimal) Entry {
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	e := Entry{
		ProductID:     op.productID,
		Kind:          op.kind,
		QuantityDelta: quantity,
		WeightDelta:   weight,
		Note:          op.note,
		UserID:        op.userID,
		CreatedAt:     now().UTC(),
	}
	if op.kind != KindStockOut && op.unitPrice != nil {
		price := *op.unitPrice
		e.UnitPrice = &price
	}
	if op.kind == KindSale {
		magnitude := weight
		if op.measure.Quantity != nil {
			magnitude = decimal.NewFromInt(quantity)
		}
		total := magnitude.Mul(*op.unitPrice).Round(MaxScale)
		e.TotalAmount = &total
	}
	return e
}

func (c *Coordinator) observe(op operation, err error, elapsed time.Duration) {
	if c.Observer == nil {
		return
	}
	outcome := "ok"
	switch {
	case err == nil:
	case IsClientError(err) || IsNotFound(err):
		outcome = "rejected"
	default:
		outcome = "error"
	}
	c.Observer.ObserveStockOperation(op.kind, outcome, elapsed)
}

// =============================================================================
// VALIDATION
// =============================================================================

func validateOperation(op operation) error {
	if op.productID == "" {
		return invalid("product_id", "is required")
	}
	if op.userID == "" {
		return invalid("user_id", "is required")
	}

	m := op.measure
	switch {
	case m.Quantity == nil && m.Weight == nil:
		return invalid("measure", "one of quantity or weight is required")
	case m.Quantity != nil && m.Weight != nil:
		return invalid("measure", "only one of quantity or weight may be given")
	case m.Quantity != nil && *m.Quantity <= 0:
		return invalid("quantity", "must be positive")
	case m.Weight != nil && !m.Weight.IsPositive():
		return invalid("weight", "must be positive")
	case m.Weight != nil && exceedsScale(*m.Weight):
		return invalid("weight", "must have at most 6 decimal places")
	}

	if op.kind == KindSale && op.unitPrice == nil {
		return invalid("unit_price", "is required for a sale")
	}
	if op.unitPrice != nil && op.unitPrice.IsNegative() {
		return invalid("unit_price", "must not be negative")
	}
	if op.unitPrice != nil && exceedsScale(*op.unitPrice) {
		return invalid("unit_price", "must have at most 6 decimal places")
	}
	return nil
}
