package models

import "time"

// DailyHoldingValue is one precomputed market value for (date, account, security).
// Date is a calendar day at midnight UTC.
type DailyHoldingValue struct {
	Date        time.Time `json:"date"`
	AccountID   string    `json:"account_id"`
	SecurityID  string    `json:"security_id"`
	MarketValue float64   `json:"market_value"`
}
