// Package store provides an in-memory stock.Store.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/stock-ledger/stock"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu       sync.RWMutex
	products map[stock.ProductID]stock.Product
	skus     map[string]stock.ProductID
	entries  []stock.Entry // ordered by ID
	nextID   stock.EntryID
}

func NewMemory() *Memory {
	return &Memory{
		products: make(map[stock.ProductID]stock.Product),
		skus:     make(map[string]stock.ProductID),
		nextID:   1,
	}
}

func (m *Memory) GetProduct(_ context.Context, id stock.ProductID) (stock.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.products[id]
	if !ok {
		return stock.Product{}, stock.ErrProductNotFound
	}
	return p, nil
}

func (m *Memory) ListProducts(_ context.Context) ([]stock.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sortedProductsLocked(), nil
}

func (m *Memory) sortedProductsLocked() []stock.Product {
	result := make([]stock.Product, 0, len(m.products))
	for _, p := range m.products {
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Name != result[j].Name {
			return result[i].Name < result[j].Name
		}
		return result[i].ID < result[j].ID
	})
	return result
}

// ScanEntries copies the matching entries under the read lock and calls fn
// after releasing it.
func (m *Memory) ScanEntries(ctx context.Context, filter stock.EntryFilter, fn func(stock.Entry) error) error {
	m.mu.RLock()
	matched := m.matchLocked(filter)
	m.mu.RUnlock()

	for _, e := range matched {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(e); err != nil {
			return err
		}
	}
	return nil
}

func (m *Memory) matchLocked(f stock.EntryFilter) []stock.Entry {
	var result []stock.Entry
	n := len(m.entries)
	for i := 0; i < n; i++ {
		e := m.entries[i]
		if f.Newest {
			e = m.entries[n-1-i]
		}
		if f.AfterID != 0 {
			if !f.Newest && e.ID <= f.AfterID {
				continue
			}
			if f.Newest && e.ID >= f.AfterID {
				continue
			}
		}
		if f.UpTo != 0 && e.ID > f.UpTo {
			continue
		}
		if !f.Matches(e) {
			continue
		}
		result = append(result, e)
		if f.Limit > 0 && len(result) == f.Limit {
			break
		}
	}
	return result
}

// Reset drops all products and entries.
func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products = make(map[stock.ProductID]stock.Product)
	m.skus = make(map[string]stock.ProductID)
	m.entries = nil
	m.nextID = 1
	return nil
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithTx executes fn holding the write lock.
// Every write made through the view records an undo step; on error the
// steps are replayed in reverse.
func (m *Memory) WithTx(ctx context.Context, fn func(stock.Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	view := &memoryTx{parent: m}
	if err := fn(view); err != nil {
		view.rollback()
		return err
	}
	return nil
}

type memoryTx struct {
	parent *Memory
	undo   []func()
}

func (tx *memoryTx) rollback() {
	for i := len(tx.undo) - 1; i >= 0; i-- {
		tx.undo[i]()
	}
	tx.undo = nil
}

func (tx *memoryTx) GetProductForUpdate(_ context.Context, id stock.ProductID) (stock.Product, error) {
	p, ok := tx.parent.products[id]
	if !ok {
		return stock.Product{}, stock.ErrProductNotFound
	}
	return p, nil
}

func (tx *memoryTx) InsertProduct(_ context.Context, p stock.Product) error {
	m := tx.parent
	if p.SKU != nil {
		if _, taken := m.skus[*p.SKU]; taken {
			return stock.ErrDuplicateSKU
		}
		m.skus[*p.SKU] = p.ID
		sku := *p.SKU
		tx.undo = append(tx.undo, func() { delete(m.skus, sku) })
	}
	m.products[p.ID] = p
	tx.undo = append(tx.undo, func() { delete(m.products, p.ID) })
	return nil
}

func (tx *memoryTx) UpdateProduct(_ context.Context, p stock.Product) error {
	m := tx.parent
	prev, ok := m.products[p.ID]
	if !ok {
		return stock.ErrProductNotFound
	}
	if p.SKU != nil {
		if owner, taken := m.skus[*p.SKU]; taken && owner != p.ID {
			return stock.ErrDuplicateSKU
		}
	}

	if prev.SKU != nil {
		delete(m.skus, *prev.SKU)
	}
	if p.SKU != nil {
		m.skus[*p.SKU] = p.ID
	}
	// Catalog fields only; the balance stays as stored.
	p.Quantity, p.Weight = prev.Quantity, prev.Weight
	m.products[p.ID] = p

	tx.undo = append(tx.undo, func() {
		if p.SKU != nil {
			delete(m.skus, *p.SKU)
		}
		if prev.SKU != nil {
			m.skus[*prev.SKU] = prev.ID
		}
		m.products[prev.ID] = prev
	})
	return nil
}

func (tx *memoryTx) AppendEntry(_ context.Context, e stock.Entry) (stock.EntryID, error) {
	m := tx.parent
	if _, ok := m.products[e.ProductID]; !ok {
		return 0, stock.ErrProductNotFound
	}
	e.ID = m.nextID
	m.nextID++
	m.entries = append(m.entries, e)

	tx.undo = append(tx.undo, func() {
		m.entries = m.entries[:len(m.entries)-1]
		m.nextID--
	})
	return e.ID, nil
}

func (tx *memoryTx) SetBalance(_ context.Context, b stock.Balance) error {
	m := tx.parent
	prev, ok := m.products[b.ProductID]
	if !ok {
		return stock.ErrProductNotFound
	}
	next := prev
	next.Quantity, next.Weight = b.Quantity, b.Weight
	m.products[b.ProductID] = next

	tx.undo = append(tx.undo, func() { m.products[prev.ID] = prev })
	return nil
}

// ListProducts sees the store as of this transaction; the write lock is held.
func (tx *memoryTx) ListProducts(_ context.Context) ([]stock.Product, error) {
	return tx.parent.sortedProductsLocked(), nil
}

func (tx *memoryTx) LastEntryID(_ context.Context) (stock.EntryID, error) {
	entries := tx.parent.entries
	if len(entries) == 0 {
		return 0, nil
	}
	return entries[len(entries)-1].ID, nil
}
