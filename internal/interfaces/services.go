package interfaces

import (
	"context"
	"time"

	"github.com/bobmcallan/vire-ledger/internal/models"
	"github.com/shopspring/decimal"
)

// ReconcileInput carries one account's sync event into the reconciliation engine.
// Previous is nil on the first ever sync. CostBasisHints are provider-reported
// per-unit cost bases keyed by security ID.
type ReconcileInput struct {
	Previous       *models.AccountSnapshot
	Current        *models.AccountSnapshot
	Activities     []*models.Activity
	CostBasisHints map[string]decimal.Decimal
}

// ReconcileService derives lots and disposals from snapshots and activities.
type ReconcileService interface {
	ReconcileAccount(ctx context.Context, in ReconcileInput) (*models.ReconcileResult, error)
}

// LotInput describes a manually created lot.
type LotInput struct {
	AcquisitionDate  *time.Time
	CostBasisPerUnit decimal.Decimal
	Quantity         decimal.Decimal
}

// LotUpdate changes fields of an existing lot. Nil fields are left unchanged;
// ClearAcquisitionDate sets the date back to unknown.
type LotUpdate struct {
	LotID                string
	CostBasisPerUnit     *decimal.Decimal
	Quantity             *decimal.Decimal
	AcquisitionDate      *time.Time
	ClearAcquisitionDate bool
}

// DisposalAssignment moves part of a disposal group onto a destination lot.
type DisposalAssignment struct {
	LotID    string
	Quantity decimal.Decimal
}

// LedgerService provides manual lot edits that preserve ledger invariants.
type LedgerService interface {
	CreateLot(ctx context.Context, accountID, securityID string, in LotInput) (*models.HoldingLot, error)
	UpdateLot(ctx context.Context, accountID string, update LotUpdate) (*models.HoldingLot, error)
	DeleteLot(ctx context.Context, accountID, lotID string) error
	SaveLots(ctx context.Context, accountID, securityID string, creates []LotInput, updates []LotUpdate) ([]*models.HoldingLot, error)
	ReassignDisposals(ctx context.Context, accountID, groupID string, assignments []DisposalAssignment) ([]*models.LotDisposal, error)

	ListLots(ctx context.Context, accountID, securityID string, includeClosed bool) ([]*models.HoldingLot, error)
	ListDisposals(ctx context.Context, accountID, securityID string) ([]*models.LotDisposal, error)
	LotSummary(ctx context.Context, accountID, securityID string, marketPrice, totalQuantity *decimal.Decimal) (*models.LotSummary, error)
	AccountSummary(ctx context.Context, accountID string) ([]*models.LotSummary, error)
}

// ReturnsService computes money-weighted returns. It never writes.
type ReturnsService interface {
	GetReturns(ctx context.Context, req models.ReturnsRequest) (*models.ReturnsReport, error)
	// ReturnsForRange computes one custom window. An empty accountID means the portfolio.
	ReturnsForRange(ctx context.Context, accountID string, start, end time.Time) (*models.PeriodReturn, error)
}
