package stock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProductLocks_ExclusivePerProduct(t *testing.T) {
	locks := newProductLocks()
	ctx := context.Background()

	release, err := locks.acquire(ctx, "a")
	require.NoError(t, err)

	// A different product is never blocked.
	releaseB, err := locks.acquire(ctx, "b")
	require.NoError(t, err)
	releaseB()

	// The same product waits until ctx gives up.
	short, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	_, err = locks.acquire(short, "a")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	release()
	again, err := locks.acquire(ctx, "a")
	require.NoError(t, err)
	again()

	assert.Equal(t, 0, locks.size(), "unused entries are dropped")
}

func TestCoordinator_LockTimeoutIsStorageError(t *testing.T) {
	// GIVEN: Another operation holds the product's section
	coord := NewCoordinator(nil, nil)
	coord.TxTimeout = 20 * time.Millisecond
	release, err := coord.locks.acquire(context.Background(), "apples")
	require.NoError(t, err)
	defer release()

	// WHEN: A sale waits longer than the timeout
	price := decimal.NewFromInt(1)
	_, err = coord.Sell(context.Background(), SaleRequest{
		ProductID: "apples",
		Measure:   Quantity(1),
		UnitPrice: &price,
		UserID:    "cashier",
	})

	// THEN: It fails as a retryable storage error without touching the store
	require.Error(t, err)
	assert.True(t, IsRetryable(err))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}
