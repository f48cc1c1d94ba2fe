package models

import (
	"strings"
	"time"
)

// Account is a brokerage or provider account whose positions are tracked.
type Account struct {
	ID                  string    `json:"id"`
	Name                string    `json:"name"`
	Provider            string    `json:"provider"`
	IsActive            bool      `json:"is_active"`
	IncludeInAllocation bool      `json:"include_in_allocation"`
	CreatedAt           time.Time `json:"created_at"`
}

// SecurityKind distinguishes listed instruments from synthetic tickers.
type SecurityKind string

const (
	SecurityKindEquity SecurityKind = "equity"
	SecurityKindCash   SecurityKind = "cash"
	SecurityKindCrypto SecurityKind = "crypto"
	SecurityKindManual SecurityKind = "manual"
)

// Security is a ticker identity. It is immutable once referenced by a lot.
type Security struct {
	ID     string       `json:"id"`
	Ticker string       `json:"ticker"`
	Name   string       `json:"name,omitempty"`
	Kind   SecurityKind `json:"kind"`
}

// NormalizeTicker upper-cases and trims a ticker for case-insensitive matching.
func NormalizeTicker(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}
