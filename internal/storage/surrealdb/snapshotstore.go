package surrealdb

import (
	"context"
	"fmt"
	"time"

	"github.com/bobmcallan/vire-ledger/internal/common"
	"github.com/bobmcallan/vire-ledger/internal/interfaces"
	"github.com/bobmcallan/vire-ledger/internal/models"
	"github.com/google/uuid"
	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

type holdingRow struct {
	SecurityID string `json:"security_id"`
	Ticker     string `json:"ticker"`
	Quantity   string `json:"quantity"`
	Price      string `json:"price"`
	Value      string `json:"value"`
}

// snapshotRow embeds holdings in the snapshot record; they are only ever read together.
type snapshotRow struct {
	SnapshotID string       `json:"snapshot_id"`
	AccountID  string       `json:"account_id"`
	SyncedAt   int64        `json:"synced_at"`
	Status     string       `json:"status"`
	TotalValue string       `json:"total_value"`
	Holdings   []holdingRow `json:"holdings"`
}

func snapshotToRow(snap *models.AccountSnapshot) snapshotRow {
	row := snapshotRow{
		SnapshotID: snap.ID,
		AccountID:  snap.AccountID,
		SyncedAt:   snap.SyncedAt.UnixNano(),
		Status:     string(snap.Status),
		TotalValue: snap.TotalValue.String(),
		Holdings:   make([]holdingRow, 0, len(snap.Holdings)),
	}
	for _, h := range snap.Holdings {
		row.Holdings = append(row.Holdings, holdingRow{
			SecurityID: h.SecurityID,
			Ticker:     h.Ticker,
			Quantity:   h.Quantity.String(),
			Price:      h.Price.String(),
			Value:      h.Value.String(),
		})
	}
	return row
}

func (r *snapshotRow) toModel() (*models.AccountSnapshot, error) {
	total, err := parseDecimal("total_value", r.TotalValue)
	if err != nil {
		return nil, err
	}
	snap := &models.AccountSnapshot{
		ID:         r.SnapshotID,
		AccountID:  r.AccountID,
		SyncedAt:   time.Unix(0, r.SyncedAt).UTC(),
		Status:     models.SnapshotStatus(r.Status),
		TotalValue: total,
	}
	for _, h := range r.Holdings {
		qty, err := parseDecimal("quantity", h.Quantity)
		if err != nil {
			return nil, err
		}
		price, err := parseDecimal("price", h.Price)
		if err != nil {
			return nil, err
		}
		value, err := parseDecimal("value", h.Value)
		if err != nil {
			return nil, err
		}
		snap.Holdings = append(snap.Holdings, models.Holding{
			SecurityID: h.SecurityID,
			Ticker:     h.Ticker,
			Quantity:   qty,
			Price:      price,
			Value:      value,
		})
	}
	return snap, nil
}

// SnapshotStore persists account snapshots in the account_snapshot table.
type SnapshotStore struct {
	db     *surrealdb.DB
	logger *common.Logger
}

func NewSnapshotStore(db *surrealdb.DB, logger *common.Logger) *SnapshotStore {
	return &SnapshotStore{
		db:     db,
		logger: logger,
	}
}

func (s *SnapshotStore) SaveSnapshot(ctx context.Context, snapshot *models.AccountSnapshot) error {
	if snapshot.ID == "" {
		snapshot.ID = uuid.NewString()
	}
	sql := "UPSERT $rid CONTENT $row"
	vars := map[string]any{
		"rid": surrealmodels.NewRecordID(tableSnapshot, snapshot.ID),
		"row": snapshotToRow(snapshot),
	}
	if _, err := surrealdb.Query[[]snapshotRow](ctx, s.db, sql, vars); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

func (s *SnapshotStore) GetSnapshot(ctx context.Context, id string) (*models.AccountSnapshot, error) {
	row, err := surrealdb.Select[snapshotRow](ctx, s.db, surrealmodels.NewRecordID(tableSnapshot, id))
	if err != nil && !isNotFoundError(err) {
		return nil, fmt.Errorf("failed to select snapshot: %w", err)
	}
	if row == nil || row.SnapshotID == "" {
		return nil, fmt.Errorf("snapshot %s: %w", id, models.ErrNotFound)
	}
	return row.toModel()
}

func (s *SnapshotStore) LatestSnapshot(ctx context.Context, accountID string, q interfaces.SnapshotQuery) (*models.AccountSnapshot, error) {
	conds := []string{"account_id = $account_id"}
	vars := map[string]any{"account_id": accountID}
	if q.Status != "" {
		conds = append(conds, "status = $status")
		vars["status"] = string(q.Status)
	}
	if !q.Before.IsZero() {
		conds = append(conds, "synced_at < $before")
		vars["before"] = q.Before.UnixNano()
	}

	sql := "SELECT * FROM " + tableSnapshot + whereClause(conds) + " ORDER BY synced_at DESC LIMIT 1"
	results, err := surrealdb.Query[[]snapshotRow](ctx, s.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest snapshot: %w", err)
	}
	rows := firstResult(results)
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0].toModel()
}

var _ interfaces.SnapshotStore = (*SnapshotStore)(nil)
