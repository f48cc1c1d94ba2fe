package reconcile

import (
	"github.com/bobmcallan/vire-ledger/internal/models"
	"github.com/shopspring/decimal"
)

// allocation is the quantity taken from one lot by a FIFO disposal.
type allocation struct {
	lot      *models.HoldingLot
	quantity decimal.Decimal
}

// allocateFIFO consumes quantity from open lots in FIFO order, reducing each
// lot's current quantity in place. It returns the per-lot allocations and any
// quantity that could not be covered.
func allocateFIFO(lots []*models.HoldingLot, quantity decimal.Decimal) ([]allocation, decimal.Decimal) {
	ordered := make([]*models.HoldingLot, 0, len(lots))
	for _, l := range lots {
		if l.IsClosed || !l.CurrentQuantity.IsPositive() {
			continue
		}
		ordered = append(ordered, l)
	}
	models.SortFIFO(ordered)

	remaining := quantity
	var out []allocation
	for _, l := range ordered {
		if !remaining.IsPositive() {
			break
		}
		take := decimal.Min(l.CurrentQuantity, remaining)
		l.SetCurrentQuantity(l.CurrentQuantity.Sub(take))
		remaining = remaining.Sub(take)
		out = append(out, allocation{lot: l, quantity: take})
	}
	return out, remaining
}
