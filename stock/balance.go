/*
balance.go - Balance derivation and commit

PURPOSE:
  Maintains each product's current quantity and weight. The stored balance
  is a materialized view of the ledger: for every product,

    quantity == Σ sign(kind) × entry.QuantityDelta
    weight   == Σ sign(kind) × entry.WeightDelta

  with stock-in positive and stock-out/sale negative.

TWO STEPS:
  Apply:  Compute the would-be balance without writing anything, so the
          Coordinator can reject a negative result before the ledger append.
  Commit: Write the new balance inside the same Tx as the ledger append.

UNIT POLICY:
  Exactly one of quantity/weight moves per call, matching the product's
  unit type. Anything else is UnitMismatch.

SEE ALSO:
  - coordinator.go: Calls Apply then Commit inside one transaction
  - audit.go: Recomputes balances from the ledger and compares
*/
package stock

import (
	"context"
	"math"

	"github.com/shopspring/decimal"
)

// =============================================================================
// BALANCE ENGINE
// =============================================================================

type BalanceEngine struct{}

// Apply returns the balance p would have after an entry of kind with the given
// magnitudes. Nothing is committed. The result may be negative; callers decide.
// An increase that does not fit in int64 is a ValidationError.
func (BalanceEngine) Apply(p Product, kind Kind, quantityDelta int64, weightDelta decimal.Decimal) (Balance, error) {
	if err := checkUnit(p, quantityDelta, weightDelta); err != nil {
		return Balance{}, err
	}
	sign := kind.Sign()
	if sign > 0 && overflows(p.Quantity, quantityDelta) {
		return Balance{}, errQuantityOverflow
	}
	return Balance{
		ProductID: p.ID,
		Quantity:  p.Quantity + sign*quantityDelta,
		Weight:    p.Weight.Add(weightDelta.Mul(decimal.NewFromInt(sign))),
	}, nil
}

// Commit adds the signed deltas to the stored balance of productID within tx.
// A result below zero is refused; Apply should already have caught it.
func (BalanceEngine) Commit(ctx context.Context, tx Tx, productID ProductID, signedQuantity int64, signedWeight decimal.Decimal) (Balance, error) {
	p, err := tx.GetProductForUpdate(ctx, productID)
	if err != nil {
		return Balance{}, err
	}
	if signedQuantity > 0 && overflows(p.Quantity, signedQuantity) {
		return Balance{}, errQuantityOverflow
	}
	next := Balance{
		ProductID: productID,
		Quantity:  p.Quantity + signedQuantity,
		Weight:    p.Weight.Add(signedWeight),
	}
	if next.IsNegative() {
		return Balance{}, shortage(p, signedQuantity, signedWeight)
	}
	if err := tx.SetBalance(ctx, next); err != nil {
		return Balance{}, err
	}
	return next, nil
}

var errQuantityOverflow = invalid("quantity", "would overflow the balance")

func overflows(balance, increase int64) bool {
	return increase > 0 && balance > math.MaxInt64-increase
}

func checkUnit(p Product, quantityDelta int64, weightDelta decimal.Decimal) error {
	switch p.UnitType {
	case UnitCountable:
		if !weightDelta.IsZero() {
			return &UnitMismatchError{ProductID: p.ID, UnitType: p.UnitType, Given: "weight"}
		}
	case UnitWeighable:
		if quantityDelta != 0 {
			return &UnitMismatchError{ProductID: p.ID, UnitType: p.UnitType, Given: "quantity"}
		}
	}
	return nil
}

func shortage(p Product, signedQuantity int64, signedWeight decimal.Decimal) *InsufficientStockError {
	if p.UnitType == UnitWeighable {
		return &InsufficientStockError{ProductID: p.ID, Available: p.Weight, Requested: signedWeight.Neg()}
	}
	return &InsufficientStockError{
		ProductID: p.ID,
		Available: decimal.NewFromInt(p.Quantity),
		Requested: decimal.NewFromInt(-signedQuantity),
	}
}
