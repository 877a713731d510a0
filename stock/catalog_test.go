package stock_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/stock-ledger/stock"
)

func TestCatalog_CreateStartsAtZero(t *testing.T) {
	forEachStore(t, func(t *testing.T, s stock.Store) {
		f := newFixture(s)
		ctx := context.Background()

		p, err := f.catalog.Create(ctx, stock.ProductSpec{
			Name:         "  Milk 1L ",
			Category:     "dairy",
			SKU:          strPtr("MILK-1"),
			Barcode:      strPtr("5901234123457"),
			UnitType:     stock.UnitCountable,
			PricePerUnit: decPtr("0.99"),
		})
		require.NoError(t, err)

		assert.NotEmpty(t, p.ID)
		assert.Equal(t, "Milk 1L", p.Name)
		assert.Equal(t, int64(0), p.Quantity)
		assert.True(t, p.Weight.IsZero())

		got, err := f.catalog.Get(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, p.ID, got.ID)
		require.NotNil(t, got.SKU)
		assert.Equal(t, "MILK-1", *got.SKU)
		requireDecimal(t, "0.99", got.PricePerUnit)
		assert.Equal(t, stock.UnitCountable, got.UnitType)
	})
}

func TestCatalog_CreateValidation(t *testing.T) {
	tests := []struct {
		name  string
		spec  stock.ProductSpec
		field string
	}{
		{"missing name", stock.ProductSpec{Category: "c", UnitType: stock.UnitCountable, PricePerUnit: decPtr("1")}, "name"},
		{"blank name", stock.ProductSpec{Name: "  ", Category: "c", UnitType: stock.UnitCountable, PricePerUnit: decPtr("1")}, "name"},
		{"missing category", stock.ProductSpec{Name: "n", UnitType: stock.UnitCountable, PricePerUnit: decPtr("1")}, "category"},
		{"missing unit type", stock.ProductSpec{Name: "n", Category: "c", PricePerUnit: decPtr("1")}, "unit_type"},
		{"unknown unit type", stock.ProductSpec{Name: "n", Category: "c", UnitType: "litres", PricePerUnit: decPtr("1")}, "unit_type"},
		{"missing price", stock.ProductSpec{Name: "n", Category: "c", UnitType: stock.UnitCountable}, "price_per_unit"},
		{"negative price", stock.ProductSpec{Name: "n", Category: "c", UnitType: stock.UnitCountable, PricePerUnit: decPtr("-0.01")}, "price_per_unit"},
		{"price past six places", stock.ProductSpec{Name: "n", Category: "c", UnitType: stock.UnitCountable, PricePerUnit: decPtr("0.0000001")}, "price_per_unit"},
	}

	catalog := stock.NewCatalog(newMemoryStore(), nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := catalog.Create(context.Background(), tt.spec)

			var verr *stock.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
			assert.True(t, stock.IsClientError(err))
		})
	}
}

func TestCatalog_DuplicateSKU(t *testing.T) {
	forEachStore(t, func(t *testing.T, s stock.Store) {
		f := newFixture(s)
		ctx := context.Background()
		spec := stock.ProductSpec{
			Name: "Milk", Category: "dairy", SKU: strPtr("MILK-1"),
			UnitType: stock.UnitCountable, PricePerUnit: decPtr("1"),
		}

		_, err := f.catalog.Create(ctx, spec)
		require.NoError(t, err)

		spec.Name = "Other milk"
		_, err = f.catalog.Create(ctx, spec)
		assert.ErrorIs(t, err, stock.ErrDuplicateSKU)

		products, err := f.catalog.List(ctx)
		require.NoError(t, err)
		assert.Len(t, products, 1)
	})
}

func TestCatalog_BlankSKUNeverCollides(t *testing.T) {
	forEachStore(t, func(t *testing.T, s stock.Store) {
		f := newFixture(s)
		ctx := context.Background()
		for _, name := range []string{"A", "B"} {
			p, err := f.catalog.Create(ctx, stock.ProductSpec{
				Name: name, Category: "c", SKU: strPtr("  "),
				UnitType: stock.UnitCountable, PricePerUnit: decPtr("1"),
			})
			require.NoError(t, err)
			assert.Nil(t, p.SKU)
		}
	})
}

func TestCatalog_UpdatePatchesOnlyGivenFields(t *testing.T) {
	forEachStore(t, func(t *testing.T, s stock.Store) {
		// GIVEN: A product with stock on hand
		f := newFixture(s)
		ctx := context.Background()
		apples := f.countable(t, "Apples", "1.00")
		f.stockIn(t, apples.ID, stock.Quantity(7))

		// WHEN: Only the price is patched
		updated, err := f.catalog.Update(ctx, apples.ID, stock.ProductPatch{PricePerUnit: decPtr("1.25")})

		// THEN: Price changes, name and balance don't
		require.NoError(t, err)
		requireDecimal(t, "1.25", updated.PricePerUnit)
		assert.Equal(t, "Apples", updated.Name)

		got, err := f.catalog.Get(ctx, apples.ID)
		require.NoError(t, err)
		requireDecimal(t, "1.25", got.PricePerUnit)
		assert.Equal(t, int64(7), got.Quantity)
	})
}

func TestCatalog_UpdateRejections(t *testing.T) {
	forEachStore(t, func(t *testing.T, s stock.Store) {
		f := newFixture(s)
		ctx := context.Background()
		a, err := f.catalog.Create(ctx, stock.ProductSpec{
			Name: "A", Category: "c", SKU: strPtr("SKU-A"), UnitType: stock.UnitCountable, PricePerUnit: decPtr("1"),
		})
		require.NoError(t, err)
		b := f.countable(t, "B", "1")

		_, err = f.catalog.Update(ctx, "missing", stock.ProductPatch{Name: strPtr("x")})
		assert.ErrorIs(t, err, stock.ErrProductNotFound)

		_, err = f.catalog.Update(ctx, b.ID, stock.ProductPatch{SKU: strPtr("SKU-A")})
		assert.ErrorIs(t, err, stock.ErrDuplicateSKU)

		_, err = f.catalog.Update(ctx, b.ID, stock.ProductPatch{Name: strPtr(" ")})
		assert.ErrorIs(t, err, stock.ErrValidation)

		_, err = f.catalog.Update(ctx, b.ID, stock.ProductPatch{PricePerUnit: decPtr("2.1234567")})
		assert.ErrorIs(t, err, stock.ErrValidation)

		// Trailing zeros past six places carry no value and are accepted.
		_, err = f.catalog.Update(ctx, b.ID, stock.ProductPatch{PricePerUnit: decPtr("2.50000000")})
		assert.NoError(t, err)

		// Re-saving a product's own SKU is not a collision.
		_, err = f.catalog.Update(ctx, a.ID, stock.ProductPatch{SKU: strPtr("SKU-A"), Name: strPtr("A2")})
		assert.NoError(t, err)
	})
}

func TestCatalog_GetUnknown(t *testing.T) {
	forEachStore(t, func(t *testing.T, s stock.Store) {
		_, err := stock.NewCatalog(s, nil).Get(context.Background(), "nope")
		assert.True(t, stock.IsNotFound(err))
	})
}

func TestCatalog_ListOrderedByName(t *testing.T) {
	forEachStore(t, func(t *testing.T, s stock.Store) {
		f := newFixture(s)
		for _, name := range []string{"Pears", "Apples", "Milk"} {
			f.countable(t, name, "1")
		}

		products, err := f.catalog.List(context.Background())
		require.NoError(t, err)
		require.Len(t, products, 3)
		assert.Equal(t, "Apples", products[0].Name)
		assert.Equal(t, "Milk", products[1].Name)
		assert.Equal(t, "Pears", products[2].Name)
	})
}
