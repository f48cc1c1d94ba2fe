package models

import "time"

// CashFlowDirection describes how an external cash flow's sign is derived.
type CashFlowDirection int

const (
	// CashFlowNone marks activities that are not external cash flows.
	CashFlowNone CashFlowDirection = iota
	// CashFlowIn is money added by the investor (always positive).
	CashFlowIn
	// CashFlowOut is money removed by the investor (always negative).
	CashFlowOut
	// CashFlowProviderSigned keeps the provider's reported sign.
	CashFlowProviderSigned
)

// ExternalCashFlowTypes lists the activity types the returns engine treats as
// deposits or withdrawals rather than investment performance.
var ExternalCashFlowTypes = []ActivityType{
	ActivityDeposit, ActivityTransferIn,
	ActivityWithdrawal, ActivityTransferOut,
	ActivityTransfer, ActivityReceive,
}

// CashFlowDirectionOf classifies an activity type.
// Deposits and transfers in are inflows, withdrawals and transfers out are outflows.
// Plain transfers and receives are ambiguous, so the provider's sign is kept.
func CashFlowDirectionOf(t ActivityType) CashFlowDirection {
	switch t {
	case ActivityDeposit, ActivityTransferIn:
		return CashFlowIn
	case ActivityWithdrawal, ActivityTransferOut:
		return CashFlowOut
	case ActivityTransfer, ActivityReceive:
		return CashFlowProviderSigned
	default:
		return CashFlowNone
	}
}

// ExternalCashFlow is a signed investor cash flow: positive is money in.
type ExternalCashFlow struct {
	AccountID  string    `json:"account_id"`
	ActivityID string    `json:"activity_id"`
	Date       time.Time `json:"date"`
	Amount     float64   `json:"amount"`
}

// SignedCashFlow converts an activity into an external cash flow.
// ok is false when the activity is not an external cash flow or its amount is zero.
func SignedCashFlow(a *Activity) (ExternalCashFlow, bool) {
	amount := a.Amount.InexactFloat64()
	switch CashFlowDirectionOf(a.Type) {
	case CashFlowIn:
		if amount < 0 {
			amount = -amount
		}
	case CashFlowOut:
		if amount > 0 {
			amount = -amount
		}
	case CashFlowProviderSigned:
	default:
		return ExternalCashFlow{}, false
	}
	if amount == 0 {
		return ExternalCashFlow{}, false
	}
	return ExternalCashFlow{
		AccountID:  a.AccountID,
		ActivityID: a.ID,
		Date:       a.ActivityDate,
		Amount:     amount,
	}, true
}
