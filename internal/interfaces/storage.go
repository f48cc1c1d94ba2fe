// Package interfaces defines service and storage contracts for the ledger
package interfaces

import (
	"context"
	"time"

	"github.com/bobmcallan/vire-ledger/internal/models"
)

// StorageManager coordinates all ledger stores
type StorageManager interface {
	AccountStore() AccountStore
	SecurityStore() SecurityStore
	SnapshotStore() SnapshotStore
	ActivityStore() ActivityStore
	LotStore() LotStore
	ValuationStore() ValuationStore

	// Lifecycle
	Close() error
}

// AccountStore persists accounts.
type AccountStore interface {
	SaveAccount(ctx context.Context, account *models.Account) error
	// GetAccount returns an error wrapping models.ErrNotFound when absent.
	GetAccount(ctx context.Context, id string) (*models.Account, error)
	ListAccounts(ctx context.Context) ([]*models.Account, error)
}

// SecurityStore persists security identities.
type SecurityStore interface {
	SaveSecurity(ctx context.Context, security *models.Security) error
	// GetSecurity returns an error wrapping models.ErrNotFound when absent.
	GetSecurity(ctx context.Context, id string) (*models.Security, error)
}

// SnapshotQuery selects the latest snapshot of an account.
// Before is exclusive; the zero value means no upper bound.
type SnapshotQuery struct {
	Status models.SnapshotStatus
	Before time.Time
}

// SnapshotStore persists account snapshots together with their holdings.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, snapshot *models.AccountSnapshot) error
	GetSnapshot(ctx context.Context, id string) (*models.AccountSnapshot, error)
	// LatestSnapshot returns (nil, nil) when no snapshot matches.
	LatestSnapshot(ctx context.Context, accountID string, q SnapshotQuery) (*models.AccountSnapshot, error)
}

// ActivityQuery filters activities. After is exclusive and Until inclusive;
// zero times are unbounded. Empty slices match everything.
type ActivityQuery struct {
	AccountIDs []string
	Types      []models.ActivityType
	After      time.Time
	Until      time.Time
}

// ActivityStore persists provider activities, deduplicated by (provider, account, external_id).
type ActivityStore interface {
	// SaveActivity returns false when an activity with the same dedup key already exists.
	SaveActivity(ctx context.Context, activity *models.Activity) (bool, error)
	// ListActivities returns matches ordered by activity date, then ID.
	ListActivities(ctx context.Context, q ActivityQuery) ([]*models.Activity, error)
}

// LotQuery filters lots. Empty fields match everything.
type LotQuery struct {
	AccountID  string
	SecurityID string
	OpenOnly   bool
}

// DisposalQuery filters disposals. Empty fields match everything.
type DisposalQuery struct {
	AccountID  string
	SecurityID string
	LotID      string
	GroupID    string
}

// LotStore persists holding lots and their disposals.
// Lots own disposals: deleting a lot deletes its disposals.
type LotStore interface {
	// CreateLot assigns ID (when empty), CreatedSeq and timestamps.
	CreateLot(ctx context.Context, lot *models.HoldingLot) error
	UpdateLot(ctx context.Context, lot *models.HoldingLot) error
	DeleteLot(ctx context.Context, id string) error
	// GetLot returns an error wrapping models.ErrNotFound when absent.
	GetLot(ctx context.Context, id string) (*models.HoldingLot, error)
	// ListLots returns matches in FIFO order.
	ListLots(ctx context.Context, q LotQuery) ([]*models.HoldingLot, error)

	// CreateDisposal assigns ID (when empty), CreatedSeq and CreatedAt.
	CreateDisposal(ctx context.Context, disposal *models.LotDisposal) error
	DeleteDisposal(ctx context.Context, id string) error
	// ListDisposals returns matches in creation order.
	ListDisposals(ctx context.Context, q DisposalQuery) ([]*models.LotDisposal, error)
}

// ValuationQuery selects daily values for calendar days From..To inclusive.
type ValuationQuery struct {
	From       time.Time
	To         time.Time
	AccountIDs []string
}

// ValuationStore exposes the precomputed daily valuations consumed by the returns engine.
type ValuationStore interface {
	// SaveDailyValues upserts by (date, account, security).
	SaveDailyValues(ctx context.Context, values []models.DailyHoldingValue) error
	ListDailyValues(ctx context.Context, q ValuationQuery) ([]models.DailyHoldingValue, error)
}
