package models

import "github.com/shopspring/decimal"

// Shortfall records a FIFO disposal that found less open quantity than the position drop.
type Shortfall struct {
	SecurityID string          `json:"security_id"`
	Ticker     string          `json:"ticker"`
	Requested  decimal.Decimal `json:"requested"`
	Disposed   decimal.Decimal `json:"disposed"`
}

// ReconcileResult summarizes the ledger writes of one reconciliation run.
type ReconcileResult struct {
	AccountID        string      `json:"account_id"`
	SnapshotID       string      `json:"snapshot_id"`
	FirstSync        bool        `json:"first_sync"`
	LotsSeeded       int         `json:"lots_seeded"`
	LotsFromActivity int         `json:"lots_from_activity"`
	LotsInferred     int         `json:"lots_inferred"`
	Disposals        int         `json:"disposals"`
	DisposalGroups   []string    `json:"disposal_groups,omitempty"`
	Shortfalls       []Shortfall `json:"shortfalls,omitempty"`
	// ZeroProceeds lists tickers whose disposals fell through to a zero price.
	ZeroProceeds []string `json:"zero_proceeds,omitempty"`
}

// LotsCreated is the total number of lots written.
func (r *ReconcileResult) LotsCreated() int {
	return r.LotsSeeded + r.LotsFromActivity + r.LotsInferred
}
