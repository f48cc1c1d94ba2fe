package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SnapshotStatus records whether a sync produced a usable snapshot.
type SnapshotStatus string

const (
	SnapshotStatusSuccess SnapshotStatus = "success"
	SnapshotStatusFailed  SnapshotStatus = "failed"
)

// AccountSnapshot is a point-in-time positions snapshot produced by one sync event.
type AccountSnapshot struct {
	ID         string          `json:"id"`
	AccountID  string          `json:"account_id"`
	SyncedAt   time.Time       `json:"synced_at"`
	Status     SnapshotStatus  `json:"status"`
	TotalValue decimal.Decimal `json:"total_value"`
	Holdings   []Holding       `json:"holdings"`
}

// Holding is one security position within a snapshot.
type Holding struct {
	SecurityID string          `json:"security_id"`
	Ticker     string          `json:"ticker"`
	Quantity   decimal.Decimal `json:"quantity"`
	Price      decimal.Decimal `json:"price"`
	Value      decimal.Decimal `json:"value"`
}

// IsSuccessful reports whether the snapshot can be used as a reconciliation input.
func (s *AccountSnapshot) IsSuccessful() bool {
	return s != nil && s.Status == SnapshotStatusSuccess
}

// HoldingsBySecurity indexes holdings by security ID. Duplicate rows for one
// security are merged by summing quantity and value; the last non-zero price wins.
func (s *AccountSnapshot) HoldingsBySecurity() map[string]Holding {
	out := make(map[string]Holding)
	if s == nil {
		return out
	}
	for _, h := range s.Holdings {
		existing, ok := out[h.SecurityID]
		if !ok {
			out[h.SecurityID] = h
			continue
		}
		existing.Quantity = existing.Quantity.Add(h.Quantity)
		existing.Value = existing.Value.Add(h.Value)
		if h.Price.IsPositive() {
			existing.Price = h.Price
		}
		out[h.SecurityID] = existing
	}
	return out
}
