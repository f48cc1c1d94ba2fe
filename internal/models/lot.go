package models

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// LotSource records how a lot or disposal entered the ledger.
type LotSource string

const (
	LotSourceInitial  LotSource = "initial"  // seeded to cover an existing position
	LotSourceActivity LotSource = "activity" // matched to a buy or sell activity
	LotSourceInferred LotSource = "inferred" // quantity change with no matching activity
	LotSourceManual   LotSource = "manual"   // user entered
)

// UserEditable reports whether manual edit and delete paths may touch a lot from this source.
func (s LotSource) UserEditable() bool {
	switch s {
	case LotSourceInitial, LotSourceInferred, LotSourceManual:
		return true
	}
	return false
}

// HoldingLot is one acquisition of a security in an account.
// AcquisitionDate is nil when the acquisition date is unknown.
type HoldingLot struct {
	ID               string          `json:"id"`
	AccountID        string          `json:"account_id"`
	SecurityID       string          `json:"security_id"`
	Ticker           string          `json:"ticker"`
	AcquisitionDate  *time.Time      `json:"acquisition_date,omitempty"`
	CostBasisPerUnit decimal.Decimal `json:"cost_basis_per_unit"`
	OriginalQuantity decimal.Decimal `json:"original_quantity"`
	CurrentQuantity  decimal.Decimal `json:"current_quantity"`
	IsClosed         bool            `json:"is_closed"`
	Source           LotSource       `json:"source"`
	ActivityID       string          `json:"activity_id,omitempty"`
	CreatedSeq       int64           `json:"created_seq"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// DisposedQuantity is the quantity already consumed by disposals.
func (l *HoldingLot) DisposedQuantity() decimal.Decimal {
	return l.OriginalQuantity.Sub(l.CurrentQuantity)
}

// TotalCostBasis is the cost basis of the open quantity.
func (l *HoldingLot) TotalCostBasis() decimal.Decimal {
	return l.CostBasisPerUnit.Mul(l.CurrentQuantity)
}

// SetCurrentQuantity updates the open quantity and keeps IsClosed in step with it.
func (l *HoldingLot) SetCurrentQuantity(q decimal.Decimal) {
	l.CurrentQuantity = q
	l.IsClosed = q.IsZero()
}

// SortFIFO orders lots for disposal: unknown acquisition dates first, then
// oldest acquisition date, then creation order.
func SortFIFO(lots []*HoldingLot) {
	sort.SliceStable(lots, func(i, j int) bool {
		a, b := lots[i], lots[j]
		switch {
		case a.AcquisitionDate == nil && b.AcquisitionDate != nil:
			return true
		case a.AcquisitionDate != nil && b.AcquisitionDate == nil:
			return false
		case a.AcquisitionDate != nil && b.AcquisitionDate != nil && !a.AcquisitionDate.Equal(*b.AcquisitionDate):
			return a.AcquisitionDate.Before(*b.AcquisitionDate)
		}
		return a.CreatedSeq < b.CreatedSeq
	})
}

// LotDisposal reduces a lot's open quantity, representing all or part of a sale.
// Disposals created together share a GroupID.
type LotDisposal struct {
	ID              string          `json:"id"`
	LotID           string          `json:"lot_id"`
	AccountID       string          `json:"account_id"`
	SecurityID      string          `json:"security_id"`
	DisposalDate    time.Time       `json:"disposal_date"`
	Quantity        decimal.Decimal `json:"quantity"`
	ProceedsPerUnit decimal.Decimal `json:"proceeds_per_unit"`
	Source          LotSource       `json:"source"`
	ActivityID      string          `json:"activity_id,omitempty"`
	GroupID         string          `json:"disposal_group_id"`
	CreatedSeq      int64           `json:"created_seq"`
	CreatedAt       time.Time       `json:"created_at"`
}

// Proceeds is the total sale value of the disposal.
func (d *LotDisposal) Proceeds() decimal.Decimal {
	return d.ProceedsPerUnit.Mul(d.Quantity)
}
