package app

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
)

type importBatchesFile struct {
	Batches []SyncBatch `json:"batches"`
}

// ImportBatchFile reads a JSON file of sync batches and feeds each to
// SyncAccount in file order. Batches are applied one at a time, so earlier
// batches stay persisted when a later one fails.
func (a *App) ImportBatchFile(ctx context.Context, filePath string) ([]*SyncResult, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read batch file %s: %w", filePath, err)
	}

	var file importBatchesFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse batch file %s: %w", filePath, err)
	}

	results := make([]*SyncResult, 0, len(file.Batches))
	for i, batch := range file.Batches {
		res, err := a.SyncAccount(ctx, batch)
		if err != nil {
			return results, fmt.Errorf("batch %d (account %s): %w", i+1, batch.Account.ID, err)
		}
		results = append(results, res)

		evt := a.Logger.Info().Int("batch", i+1).Str("account", res.AccountID).
			Int("activities", res.ActivitiesSaved).Bool("reconciled", res.Reconciled)
		if res.Reconcile != nil {
			evt = evt.Int("lots", res.Reconcile.LotsCreated()).Int("disposals", res.Reconcile.Disposals)
		}
		evt.Msg("Batch imported")
	}
	return results, nil
}
