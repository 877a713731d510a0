/*
catalog.go - Product identity and catalog attributes

PURPOSE:
  Creates, updates and reads products. The catalog never writes quantity
  or weight; a new product starts at zero and only the Coordinator moves it.

RULES:
  - name, category, unit_type and price_per_unit are required on create
  - unit_type is fixed at creation
  - SKU is unique when present; blank SKU and barcode are stored as absent
  - prices are non-negative with at most MaxScale decimal places
*/
package stock

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// =============================================================================
// CATALOG - Product identity, unit type and price
// =============================================================================

// Catalog owns product identity and catalog attributes. It never touches
// quantity or weight: new products start at zero and only the Coordinator
// moves them.
type Catalog struct {
	Store  Store
	Now    func() time.Time
	Logger *zap.Logger
}

func NewCatalog(store Store, logger *zap.Logger) *Catalog {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Catalog{Store: store, Now: time.Now, Logger: logger.Named("catalog")}
}

// Create validates spec and persists a new product with a zero balance.
func (c *Catalog) Create(ctx context.Context, spec ProductSpec) (Product, error) {
	if err := validateSpec(spec); err != nil {
		return Product{}, err
	}

	now := c.Now().UTC()
	p := Product{
		ID:           ProductID(uuid.NewString()),
		Name:         strings.TrimSpace(spec.Name),
		Category:     strings.TrimSpace(spec.Category),
		SKU:          normalizeOptional(spec.SKU),
		Barcode:      normalizeOptional(spec.Barcode),
		UnitType:     spec.UnitType,
		PricePerUnit: *spec.PricePerUnit,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err := c.Store.WithTx(ctx, func(tx Tx) error {
		return tx.InsertProduct(ctx, p)
	})
	if err != nil {
		return Product{}, asStorageError("create product", err)
	}

	c.Logger.Info("product created",
		zap.String("product_id", string(p.ID)),
		zap.String("name", p.Name),
		zap.String("unit_type", string(p.UnitType)))
	return p, nil
}

// Update applies a partial patch to catalog fields.
func (c *Catalog) Update(ctx context.Context, id ProductID, patch ProductPatch) (Product, error) {
	if id == "" {
		return Product{}, invalid("product_id", "is required")
	}
	if err := validatePatch(patch); err != nil {
		return Product{}, err
	}

	var updated Product
	err := c.Store.WithTx(ctx, func(tx Tx) error {
		p, err := tx.GetProductForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if patch.Name != nil {
			p.Name = strings.TrimSpace(*patch.Name)
		}
		if patch.Category != nil {
			p.Category = strings.TrimSpace(*patch.Category)
		}
		if patch.SKU != nil {
			p.SKU = normalizeOptional(patch.SKU)
		}
		if patch.Barcode != nil {
			p.Barcode = normalizeOptional(patch.Barcode)
		}
		if patch.PricePerUnit != nil {
			p.PricePerUnit = *patch.PricePerUnit
		}
		p.UpdatedAt = c.Now().UTC()
		if err := tx.UpdateProduct(ctx, p); err != nil {
			return err
		}
		updated = p
		return nil
	})
	if err != nil {
		return Product{}, asStorageError("update product", err)
	}
	return updated, nil
}

func (c *Catalog) Get(ctx context.Context, id ProductID) (Product, error) {
	p, err := c.Store.GetProduct(ctx, id)
	if err != nil {
		return Product{}, asStorageError("get product", err)
	}
	return p, nil
}

// List returns all products ordered by name.
func (c *Catalog) List(ctx context.Context) ([]Product, error) {
	products, err := c.Store.ListProducts(ctx)
	if err != nil {
		return nil, asStorageError("list products", err)
	}
	return products, nil
}

// =============================================================================
// VALIDATION
// =============================================================================

func validateSpec(spec ProductSpec) error {
	if strings.TrimSpace(spec.Name) == "" {
		return invalid("name", "is required")
	}
	if strings.TrimSpace(spec.Category) == "" {
		return invalid("category", "is required")
	}
	if spec.UnitType == "" {
		return invalid("unit_type", "is required")
	}
	if !spec.UnitType.Valid() {
		return invalid("unit_type", "must be countable or weighable")
	}
	if spec.PricePerUnit == nil {
		return invalid("price_per_unit", "is required")
	}
	if spec.PricePerUnit.IsNegative() {
		return invalid("price_per_unit", "must not be negative")
	}
	if exceedsScale(*spec.PricePerUnit) {
		return invalid("price_per_unit", "must have at most 6 decimal places")
	}
	return nil
}

func validatePatch(patch ProductPatch) error {
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return invalid("name", "must not be empty")
	}
	if patch.Category != nil && strings.TrimSpace(*patch.Category) == "" {
		return invalid("category", "must not be empty")
	}
	if patch.PricePerUnit != nil && patch.PricePerUnit.IsNegative() {
		return invalid("price_per_unit", "must not be negative")
	}
	if patch.PricePerUnit != nil && exceedsScale(*patch.PricePerUnit) {
		return invalid("price_per_unit", "must have at most 6 decimal places")
	}
	return nil
}

// normalizeOptional maps blank strings to nil so an empty SKU never collides.
func normalizeOptional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
