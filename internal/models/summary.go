package models

import "github.com/shopspring/decimal"

// LotSummary aggregates the open lots of one (account, security).
// Optional fields are nil when their input (market price, total held quantity) is unavailable.
type LotSummary struct {
	AccountID          string           `json:"account_id"`
	SecurityID         string           `json:"security_id"`
	Ticker             string           `json:"ticker"`
	LottedQuantity     decimal.Decimal  `json:"lotted_quantity"`
	LotCount           int              `json:"lot_count"`
	TotalCostBasis     decimal.Decimal  `json:"total_cost_basis"`
	MarketPrice        *decimal.Decimal `json:"market_price,omitempty"`
	TotalHeldQuantity  *decimal.Decimal `json:"total_held_quantity,omitempty"`
	UnrealizedGainLoss *decimal.Decimal `json:"unrealized_gain_loss,omitempty"`
	LotCoverage        *decimal.Decimal `json:"lot_coverage,omitempty"`
	RealizedGainLoss   decimal.Decimal  `json:"realized_gain_loss"`
}
