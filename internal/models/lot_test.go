package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func datePtr(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestSortFIFO_UnknownDatesFirstThenOldest(t *testing.T) {
	lots := []*HoldingLot{
		{ID: "march", AcquisitionDate: datePtr(2024, 3, 1), CreatedSeq: 1},
		{ID: "jan", AcquisitionDate: datePtr(2024, 1, 1), CreatedSeq: 2},
		{ID: "unknown-late", CreatedSeq: 5},
		{ID: "unknown-early", CreatedSeq: 3},
		{ID: "jan-later-created", AcquisitionDate: datePtr(2024, 1, 1), CreatedSeq: 4},
	}
	SortFIFO(lots)

	var ids []string
	for _, l := range lots {
		ids = append(ids, l.ID)
	}
	assert.Equal(t, []string{"unknown-early", "unknown-late", "jan", "jan-later-created", "march"}, ids)
}

func TestHoldingLot_SetCurrentQuantity(t *testing.T) {
	lot := &HoldingLot{OriginalQuantity: decimal.NewFromInt(10), CurrentQuantity: decimal.NewFromInt(10)}

	lot.SetCurrentQuantity(decimal.NewFromInt(4))
	assert.False(t, lot.IsClosed)
	assert.True(t, lot.DisposedQuantity().Equal(decimal.NewFromInt(6)))

	lot.SetCurrentQuantity(decimal.Zero)
	assert.True(t, lot.IsClosed)
	assert.True(t, lot.DisposedQuantity().Equal(decimal.NewFromInt(10)))
}

func TestLotSource_UserEditable(t *testing.T) {
	assert.True(t, LotSourceManual.UserEditable())
	assert.True(t, LotSourceInitial.UserEditable())
	assert.True(t, LotSourceInferred.UserEditable())
	assert.False(t, LotSourceActivity.UserEditable())
	assert.False(t, LotSource("").UserEditable())
}

func TestHoldingsBySecurity_MergesDuplicates(t *testing.T) {
	snap := &AccountSnapshot{Holdings: []Holding{
		{SecurityID: "s1", Quantity: decimal.NewFromInt(5), Price: decimal.NewFromInt(10), Value: decimal.NewFromInt(50)},
		{SecurityID: "s1", Quantity: decimal.NewFromInt(3), Price: decimal.NewFromInt(11), Value: decimal.NewFromInt(33)},
		{SecurityID: "s2", Quantity: decimal.NewFromInt(1)},
	}}
	got := snap.HoldingsBySecurity()
	assert.Len(t, got, 2)
	assert.True(t, got["s1"].Quantity.Equal(decimal.NewFromInt(8)))
	assert.True(t, got["s1"].Price.Equal(decimal.NewFromInt(11)))

	var nilSnap *AccountSnapshot
	assert.Empty(t, nilSnap.HoldingsBySecurity())
}

func TestParseActivityType(t *testing.T) {
	assert.Equal(t, ActivityBuy, ParseActivityType(" BUY "))
	assert.Equal(t, ActivityTransferIn, ParseActivityType("Transfer In"))
	assert.Equal(t, ActivityOther, ParseActivityType("stock split"))
}

func TestParsePeriodCode(t *testing.T) {
	p, err := ParsePeriodCode("ytd")
	assert.NoError(t, err)
	assert.Equal(t, PeriodYTD, p)

	_, err = ParsePeriodCode("5Y")
	assert.ErrorIs(t, err, ErrValidation)
}
