package reconcile

import (
	"testing"
	"time"

	"github.com/bobmcallan/vire-ledger/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocateFIFO(t *testing.T) {
	jan := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	newer := &models.HoldingLot{ID: "feb", AcquisitionDate: &feb, CurrentQuantity: dec(5), CreatedSeq: 1}
	older := &models.HoldingLot{ID: "jan", AcquisitionDate: &jan, CurrentQuantity: dec(10), CreatedSeq: 2}

	allocations, unfilled := allocateFIFO([]*models.HoldingLot{newer, older}, dec(12))
	require.Len(t, allocations, 2)
	assert.True(t, unfilled.IsZero())

	assert.Equal(t, "jan", allocations[0].lot.ID)
	assert.True(t, allocations[0].quantity.Equal(dec(10)))
	assert.Equal(t, "feb", allocations[1].lot.ID)
	assert.True(t, allocations[1].quantity.Equal(dec(2)))

	assert.True(t, older.IsClosed)
	assert.True(t, older.CurrentQuantity.IsZero())
	assert.False(t, newer.IsClosed)
	assert.True(t, newer.CurrentQuantity.Equal(dec(3)))
}

func TestAllocateFIFO_UnknownDatesFirstThenCreationOrder(t *testing.T) {
	jan := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	dated := &models.HoldingLot{ID: "dated", AcquisitionDate: &jan, CurrentQuantity: dec(5), CreatedSeq: 1}
	undatedLate := &models.HoldingLot{ID: "undated-late", CurrentQuantity: dec(5), CreatedSeq: 3}
	undatedEarly := &models.HoldingLot{ID: "undated-early", CurrentQuantity: dec(5), CreatedSeq: 2}

	allocations, _ := allocateFIFO([]*models.HoldingLot{dated, undatedLate, undatedEarly}, dec(15))
	require.Len(t, allocations, 3)
	assert.Equal(t, "undated-early", allocations[0].lot.ID)
	assert.Equal(t, "undated-late", allocations[1].lot.ID)
	assert.Equal(t, "dated", allocations[2].lot.ID)
}

func TestAllocateFIFO_SkipsClosedAndReportsShortfall(t *testing.T) {
	closed := &models.HoldingLot{ID: "closed", CurrentQuantity: decimal.Zero, IsClosed: true, CreatedSeq: 1}
	open := &models.HoldingLot{ID: "open", CurrentQuantity: dec(4), CreatedSeq: 2}

	allocations, unfilled := allocateFIFO([]*models.HoldingLot{closed, open}, dec(6))
	require.Len(t, allocations, 1)
	assert.Equal(t, "open", allocations[0].lot.ID)
	assert.True(t, unfilled.Equal(dec(2)))
	assert.True(t, open.IsClosed)
}

func TestAllocateFIFO_FractionalUnits(t *testing.T) {
	lot := &models.HoldingLot{ID: "btc", CurrentQuantity: decimal.RequireFromString("0.3"), CreatedSeq: 1}

	allocations, unfilled := allocateFIFO([]*models.HoldingLot{lot}, decimal.RequireFromString("0.1"))
	require.Len(t, allocations, 1)
	assert.True(t, unfilled.IsZero())
	assert.True(t, lot.CurrentQuantity.Equal(decimal.RequireFromString("0.2")))

	_, unfilled = allocateFIFO([]*models.HoldingLot{lot}, decimal.RequireFromString("0.2"))
	assert.True(t, unfilled.IsZero())
	assert.True(t, lot.IsClosed, "decimal arithmetic reaches exactly zero")
}
