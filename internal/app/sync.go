package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bobmcallan/vire-ledger/internal/interfaces"
	"github.com/bobmcallan/vire-ledger/internal/models"
	"github.com/shopspring/decimal"
)

// SyncBatch is one provider sync event for one account.
type SyncBatch struct {
	Account     models.Account             `json:"account"`
	Securities  []models.Security          `json:"securities,omitempty"`
	Snapshot    models.AccountSnapshot     `json:"snapshot"`
	Activities  []models.Activity          `json:"activities,omitempty"`
	DailyValues []models.DailyHoldingValue `json:"daily_values,omitempty"`
	// CostBasis holds provider-reported per-unit cost bases keyed by security ID.
	CostBasis map[string]decimal.Decimal `json:"cost_basis,omitempty"`
}

// SyncResult reports what one SyncAccount call persisted.
type SyncResult struct {
	AccountID         string                  `json:"account_id"`
	SnapshotID        string                  `json:"snapshot_id"`
	AlreadySynced     bool                    `json:"already_synced,omitempty"`
	ActivitiesSaved   int                     `json:"activities_saved"`
	ActivitiesSkipped int                     `json:"activities_skipped"`
	DailyValuesSaved  int                     `json:"daily_values_saved"`
	Reconciled        bool                    `json:"reconciled"`
	Reconcile         *models.ReconcileResult `json:"reconcile,omitempty"`
}

// SyncAccount persists a sync batch and then reconciles the account's lots.
// Failed snapshots are stored but never reconciled. A snapshot already
// recorded at the same synced_at is treated as a replay and skipped whole.
// Reconciliation failures are logged and counted, never returned.
func (a *App) SyncAccount(ctx context.Context, batch SyncBatch) (*SyncResult, error) {
	account := batch.Account
	if account.ID == "" {
		return nil, fmt.Errorf("account id is required: %w", models.ErrValidation)
	}
	snapshot := batch.Snapshot
	if snapshot.AccountID == "" {
		snapshot.AccountID = account.ID
	}
	if snapshot.AccountID != account.ID {
		return nil, fmt.Errorf("snapshot belongs to account %s, batch to %s: %w", snapshot.AccountID, account.ID, models.ErrValidation)
	}
	if snapshot.SyncedAt.IsZero() {
		return nil, fmt.Errorf("snapshot synced_at is required: %w", models.ErrValidation)
	}
	if snapshot.Status == "" {
		snapshot.Status = models.SnapshotStatusSuccess
	}

	result := &SyncResult{AccountID: account.ID}

	replay, err := a.Storage.SnapshotStore().LatestSnapshot(ctx, account.ID, interfaces.SnapshotQuery{
		Before: snapshot.SyncedAt.Add(time.Nanosecond),
	})
	if err != nil {
		return nil, fmt.Errorf("check existing snapshot: %w", err)
	}
	if replay != nil && replay.SyncedAt.Equal(snapshot.SyncedAt) {
		a.Logger.Info().Str("account", account.ID).Time("synced_at", snapshot.SyncedAt).Msg("Snapshot already synced, skipping")
		result.SnapshotID = replay.ID
		result.AlreadySynced = true
		return result, nil
	}

	if err := a.saveAccount(ctx, &account); err != nil {
		return nil, err
	}
	if err := a.saveSecurities(ctx, batch.Securities, snapshot.Holdings); err != nil {
		return nil, err
	}

	previous, err := a.Storage.SnapshotStore().LatestSnapshot(ctx, account.ID, interfaces.SnapshotQuery{
		Status: models.SnapshotStatusSuccess,
		Before: snapshot.SyncedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("find previous snapshot: %w", err)
	}

	if err := a.Storage.SnapshotStore().SaveSnapshot(ctx, &snapshot); err != nil {
		return nil, fmt.Errorf("save snapshot: %w", err)
	}
	result.SnapshotID = snapshot.ID

	for i := range batch.Activities {
		act := batch.Activities[i]
		if act.AccountID == "" {
			act.AccountID = account.ID
		}
		if act.Provider == "" {
			act.Provider = account.Provider
		}
		created, err := a.Storage.ActivityStore().SaveActivity(ctx, &act)
		if err != nil {
			return nil, fmt.Errorf("save activity %s: %w", act.ExternalID, err)
		}
		if created {
			result.ActivitiesSaved++
		} else {
			result.ActivitiesSkipped++
		}
	}

	if len(batch.DailyValues) > 0 {
		values := make([]models.DailyHoldingValue, len(batch.DailyValues))
		for i, v := range batch.DailyValues {
			if v.AccountID == "" {
				v.AccountID = account.ID
			}
			values[i] = v
		}
		if err := a.Storage.ValuationStore().SaveDailyValues(ctx, values); err != nil {
			return nil, fmt.Errorf("save daily values: %w", err)
		}
		result.DailyValuesSaved = len(values)
	}

	if !snapshot.IsSuccessful() {
		a.Logger.Warn().Str("account", account.ID).Str("snapshot", snapshot.ID).
			Str("status", string(snapshot.Status)).Msg("Snapshot not successful, reconciliation skipped")
		return result, nil
	}

	q := interfaces.ActivityQuery{
		AccountIDs: []string{account.ID},
		Types:      []models.ActivityType{models.ActivityBuy, models.ActivitySell},
		Until:      snapshot.SyncedAt,
	}
	if previous != nil {
		q.After = previous.SyncedAt
	}
	trades, err := a.Storage.ActivityStore().ListActivities(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list trades: %w", err)
	}

	result.Reconcile = a.SafeReconcile(ctx, interfaces.ReconcileInput{
		Previous:       previous,
		Current:        &snapshot,
		Activities:     trades,
		CostBasisHints: batch.CostBasis,
	})
	result.Reconciled = result.Reconcile != nil
	return result, nil
}

// SafeReconcile runs reconciliation and swallows any error or panic, so a
// sync is never failed by the lot ledger. Returns nil on failure.
func (a *App) SafeReconcile(ctx context.Context, in interfaces.ReconcileInput) (result *models.ReconcileResult) {
	accountID := ""
	if in.Current != nil {
		accountID = in.Current.AccountID
	}

	defer func() {
		if r := recover(); r != nil {
			a.Logger.Error().Str("account", accountID).Interface("panic", r).Msg("Reconciliation panicked")
			a.Metrics.ReconcileFailure()
			result = nil
		}
	}()

	res, err := a.ReconcileService.ReconcileAccount(ctx, in)
	if err != nil {
		a.Logger.Error().Str("account", accountID).Err(err).Msg("Reconciliation failed")
		a.Metrics.ReconcileFailure()
		return nil
	}
	return res
}

// saveAccount upserts the account, keeping the original creation time.
func (a *App) saveAccount(ctx context.Context, account *models.Account) error {
	existing, err := a.Storage.AccountStore().GetAccount(ctx, account.ID)
	switch {
	case err == nil:
		account.CreatedAt = existing.CreatedAt
	case errors.Is(err, models.ErrNotFound):
	default:
		return fmt.Errorf("load account: %w", err)
	}
	if err := a.Storage.AccountStore().SaveAccount(ctx, account); err != nil {
		return fmt.Errorf("save account: %w", err)
	}
	return nil
}

// saveSecurities stores the batch's securities and registers an equity
// identity for any held security not seen before.
func (a *App) saveSecurities(ctx context.Context, securities []models.Security, holdings []models.Holding) error {
	store := a.Storage.SecurityStore()
	known := make(map[string]bool, len(securities))
	for i := range securities {
		sec := securities[i]
		if sec.Kind == "" {
			sec.Kind = models.SecurityKindEquity
		}
		if err := store.SaveSecurity(ctx, &sec); err != nil {
			return fmt.Errorf("save security %s: %w", sec.ID, err)
		}
		known[sec.ID] = true
	}

	for _, h := range holdings {
		if h.SecurityID == "" || known[h.SecurityID] {
			continue
		}
		known[h.SecurityID] = true
		_, err := store.GetSecurity(ctx, h.SecurityID)
		if err == nil {
			continue
		}
		if !errors.Is(err, models.ErrNotFound) {
			return fmt.Errorf("load security %s: %w", h.SecurityID, err)
		}
		sec := &models.Security{ID: h.SecurityID, Ticker: h.Ticker, Kind: models.SecurityKindEquity}
		if err := store.SaveSecurity(ctx, sec); err != nil {
			return fmt.Errorf("save security %s: %w", sec.ID, err)
		}
	}
	return nil
}

// ReconcileLatest re-runs reconciliation of an account's latest successful
// snapshot against the one before it. It is the manual recovery path for a
// sync whose reconciliation failed, and returns errors instead of swallowing them.
func (a *App) ReconcileLatest(ctx context.Context, accountID string) (*models.ReconcileResult, error) {
	snapshots := a.Storage.SnapshotStore()
	current, err := snapshots.LatestSnapshot(ctx, accountID, interfaces.SnapshotQuery{Status: models.SnapshotStatusSuccess})
	if err != nil {
		return nil, fmt.Errorf("find latest snapshot: %w", err)
	}
	if current == nil {
		return nil, fmt.Errorf("no successful snapshot for account %s: %w", accountID, models.ErrNotFound)
	}
	previous, err := snapshots.LatestSnapshot(ctx, accountID, interfaces.SnapshotQuery{
		Status: models.SnapshotStatusSuccess,
		Before: current.SyncedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("find previous snapshot: %w", err)
	}

	q := interfaces.ActivityQuery{
		AccountIDs: []string{accountID},
		Types:      []models.ActivityType{models.ActivityBuy, models.ActivitySell},
		Until:      current.SyncedAt,
	}
	if previous != nil {
		q.After = previous.SyncedAt
	}
	trades, err := a.Storage.ActivityStore().ListActivities(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list trades: %w", err)
	}

	return a.ReconcileService.ReconcileAccount(ctx, interfaces.ReconcileInput{
		Previous:   previous,
		Current:    current,
		Activities: trades,
	})
}
