package models

import (
	"fmt"
	"strings"
	"time"
)

// PeriodCode names a returns window.
type PeriodCode string

const (
	Period1D  PeriodCode = "1D"
	Period1M  PeriodCode = "1M"
	Period3M  PeriodCode = "3M"
	PeriodQTD PeriodCode = "QTD"
	PeriodYTD PeriodCode = "YTD"
	Period1Y  PeriodCode = "1Y"
	Period3Y  PeriodCode = "3Y"
	PeriodLQ  PeriodCode = "LQ"
	PeriodLY  PeriodCode = "LY"
)

// AllPeriods lists every supported period in display order.
var AllPeriods = []PeriodCode{Period1D, Period1M, Period3M, PeriodQTD, PeriodYTD, Period1Y, Period3Y, PeriodLQ, PeriodLY}

// ParsePeriodCode validates a period code case-insensitively.
func ParsePeriodCode(s string) (PeriodCode, error) {
	code := PeriodCode(strings.ToUpper(strings.TrimSpace(s)))
	for _, p := range AllPeriods {
		if p == code {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: unknown period %q", ErrValidation, s)
}

// ReturnsScope selects which aggregation the returns engine reports.
type ReturnsScope string

const (
	ScopePortfolio ReturnsScope = "portfolio"
	ScopeAccount   ReturnsScope = "account"
	ScopeAll       ReturnsScope = "all"
)

// ReturnsRequest asks for money-weighted returns.
// AccountIDs filters which accounts get individual results; ScopeAccount requires exactly one.
type ReturnsRequest struct {
	Scope           ReturnsScope `json:"scope"`
	Periods         []PeriodCode `json:"periods"`
	IncludeInactive bool         `json:"include_inactive"`
	AccountIDs      []string     `json:"account_ids,omitempty"`
}

// PeriodReturn is the money-weighted return for one scope over one window.
// IRR, StartValue and EndValue are nil when unavailable. IRRAtFloor marks an
// IRR pinned at the solver's -99% floor.
type PeriodReturn struct {
	Period            PeriodCode `json:"period"`
	StartDate         time.Time  `json:"start_date"`
	EndDate           time.Time  `json:"end_date"`
	StartValue        *float64   `json:"start_value"`
	EndValue          *float64   `json:"end_value"`
	EndValueInferred  bool       `json:"end_value_inferred,omitempty"`
	CashFlowCount     int        `json:"cash_flow_count"`
	IRR               *float64   `json:"irr"`
	IRRAtFloor        bool       `json:"irr_at_floor,omitempty"`
	HasSufficientData bool       `json:"has_sufficient_data"`
}

// ScopeReturns groups period results for the portfolio or one account.
type ScopeReturns struct {
	Scope       ReturnsScope   `json:"scope"`
	AccountID   string         `json:"account_id,omitempty"`
	AccountName string         `json:"account_name,omitempty"`
	Periods     []PeriodReturn `json:"periods"`
}

// ReturnsReport is the response to a ReturnsRequest.
type ReturnsReport struct {
	AsOf      time.Time      `json:"as_of"`
	Portfolio *ScopeReturns  `json:"portfolio,omitempty"`
	Accounts  []ScopeReturns `json:"accounts,omitempty"`
}
