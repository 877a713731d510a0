/*
locks.go - Per-product exclusive sections

PURPOSE:
  Serializes check-then-write on one product so two deductions cannot both
  pass against the same balance. Products never wait on each other.

IMPLEMENTATION:
  One 1-buffered channel per product, reference counted and dropped when the
  last holder or waiter leaves. Acquire selects on ctx.Done(), so a lock wait
  is bounded by the caller's deadline.

SEE ALSO:
  - coordinator.go: Holds the section around steps 2-6
*/
package stock

import (
	"context"
	"sync"
)

// productLocks hands out one exclusive section per product. Operations on
// different products never contend; entries are dropped once unused.
type productLocks struct {
	mu    sync.Mutex
	locks map[ProductID]*productLock
}

type productLock struct {
	ch   chan struct{}
	refs int
}

func newProductLocks() *productLocks {
	return &productLocks{locks: make(map[ProductID]*productLock)}
}

// acquire blocks until the product's section is free or ctx is done.
// The returned func releases the section and must be called exactly once.
func (pl *productLocks) acquire(ctx context.Context, id ProductID) (func(), error) {
	pl.mu.Lock()
	l, ok := pl.locks[id]
	if !ok {
		l = &productLock{ch: make(chan struct{}, 1)}
		pl.locks[id] = l
	}
	l.refs++
	pl.mu.Unlock()

	select {
	case l.ch <- struct{}{}:
		return func() {
			<-l.ch
			pl.unref(id, l)
		}, nil
	case <-ctx.Done():
		pl.unref(id, l)
		return nil, ctx.Err()
	}
}

func (pl *productLocks) unref(id ProductID, l *productLock) {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(pl.locks, id)
	}
}

// size is the number of products with a waiter or holder.
func (pl *productLocks) size() int {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	return len(pl.locks)
}
