package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ActivityType classifies a transaction record.
type ActivityType string

const (
	ActivityBuy         ActivityType = "buy"
	ActivitySell        ActivityType = "sell"
	ActivityDividend    ActivityType = "dividend"
	ActivityDeposit     ActivityType = "deposit"
	ActivityWithdrawal  ActivityType = "withdrawal"
	ActivityTransfer    ActivityType = "transfer"
	ActivityTransferIn  ActivityType = "transfer_in"
	ActivityTransferOut ActivityType = "transfer_out"
	ActivityReceive     ActivityType = "receive"
	ActivityFee         ActivityType = "fee"
	ActivityInterest    ActivityType = "interest"
	ActivityOther       ActivityType = "other"
)

// ParseActivityType normalizes a provider's type label. Unknown labels map to ActivityOther.
func ParseActivityType(s string) ActivityType {
	t := ActivityType(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "_"))
	switch t {
	case ActivityBuy, ActivitySell, ActivityDividend, ActivityDeposit, ActivityWithdrawal,
		ActivityTransfer, ActivityTransferIn, ActivityTransferOut, ActivityReceive,
		ActivityFee, ActivityInterest:
		return t
	}
	return ActivityOther
}

// Activity is a normalized transaction record from a provider.
// Amount carries the provider's reported sign.
type Activity struct {
	ID           string          `json:"id"`
	AccountID    string          `json:"account_id"`
	Provider     string          `json:"provider"`
	ExternalID   string          `json:"external_id"`
	Type         ActivityType    `json:"type"`
	Ticker       string          `json:"ticker,omitempty"`
	Units        decimal.Decimal `json:"units"`
	Price        decimal.Decimal `json:"price"`
	Amount       decimal.Decimal `json:"amount"`
	ActivityDate time.Time       `json:"activity_date"`
}

// DedupKey identifies an activity across repeated provider syncs.
func (a *Activity) DedupKey() string {
	return a.Provider + "|" + a.AccountID + "|" + a.ExternalID
}
