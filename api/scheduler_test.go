package api

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/stock-ledger/stock"
)

func TestAuditScheduler_InvalidSchedule(t *testing.T) {
	ts := newTestServer(t)

	_, err := NewAuditScheduler(ts.handler, "every now and then", nil)
	assert.Error(t, err)
}

func TestAuditScheduler_RunOnceRecordsDiscrepancies(t *testing.T) {
	// GIVEN: A balance forced away from its ledger
	ts := newTestServer(t)
	p := ts.createProduct("Apples", "countable", "1")
	ctx := context.Background()
	err := ts.handler.Store.WithTx(ctx, func(tx stock.Tx) error {
		current, err := tx.GetProductForUpdate(ctx, stock.ProductID(p.ID))
		if err != nil {
			return err
		}
		b := current.Balance()
		b.Quantity = 3
		return tx.SetBalance(ctx, b)
	})
	require.NoError(t, err)

	s, err := NewAuditScheduler(ts.handler, "@every 1h", nil)
	require.NoError(t, err)

	// WHEN: One audit runs
	s.RunOnce()

	// THEN: The discrepancy gauge reflects it
	assert.Equal(t, int64(1), s.Runs())
	assert.Equal(t, 1.0, testutil.ToFloat64(ts.handler.Metrics.AuditDiscrepancies))
}

func TestAuditScheduler_StartStop(t *testing.T) {
	ts := newTestServer(t)
	s, err := NewAuditScheduler(ts.handler, "@every 1h", nil)
	require.NoError(t, err)

	s.Start()
	s.Stop()
}
