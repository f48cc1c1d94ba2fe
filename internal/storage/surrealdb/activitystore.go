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

type activityRow struct {
	ActivityID string `json:"activity_id"`
	AccountID  string `json:"account_id"`
	Provider   string `json:"provider"`
	ExternalID string `json:"external_id"`
	DedupKey   string `json:"dedup_key"`
	Type       string `json:"type"`
	Ticker     string `json:"ticker"`
	Units      string `json:"units"`
	Price      string `json:"price"`
	Amount     string `json:"amount"`
	ActivityAt int64  `json:"activity_at"`
}

func (r *activityRow) toModel() (*models.Activity, error) {
	units, err := parseDecimal("units", r.Units)
	if err != nil {
		return nil, err
	}
	price, err := parseDecimal("price", r.Price)
	if err != nil {
		return nil, err
	}
	amount, err := parseDecimal("amount", r.Amount)
	if err != nil {
		return nil, err
	}
	return &models.Activity{
		ID:           r.ActivityID,
		AccountID:    r.AccountID,
		Provider:     r.Provider,
		ExternalID:   r.ExternalID,
		Type:         models.ActivityType(r.Type),
		Ticker:       r.Ticker,
		Units:        units,
		Price:        price,
		Amount:       amount,
		ActivityDate: time.Unix(0, r.ActivityAt).UTC(),
	}, nil
}

// ActivityStore persists provider activities in the activity table.
type ActivityStore struct {
	db     *surrealdb.DB
	logger *common.Logger
}

func NewActivityStore(db *surrealdb.DB, logger *common.Logger) *ActivityStore {
	return &ActivityStore{
		db:     db,
		logger: logger,
	}
}

func (s *ActivityStore) SaveActivity(ctx context.Context, activity *models.Activity) (bool, error) {
	key := activity.DedupKey()
	if activity.ExternalID != "" {
		sql := "SELECT * FROM " + tableActivity + " WHERE dedup_key = $dedup_key LIMIT 1"
		results, err := surrealdb.Query[[]activityRow](ctx, s.db, sql, map[string]any{"dedup_key": key})
		if err != nil {
			return false, fmt.Errorf("failed to check activity dedup key: %w", err)
		}
		if rows := firstResult(results); len(rows) > 0 {
			activity.ID = rows[0].ActivityID
			return false, nil
		}
	}

	if activity.ID == "" {
		activity.ID = uuid.NewString()
	}
	row := activityRow{
		ActivityID: activity.ID,
		AccountID:  activity.AccountID,
		Provider:   activity.Provider,
		ExternalID: activity.ExternalID,
		Type:       string(activity.Type),
		Ticker:     activity.Ticker,
		Units:      activity.Units.String(),
		Price:      activity.Price.String(),
		Amount:     activity.Amount.String(),
		ActivityAt: activity.ActivityDate.UnixNano(),
	}
	if activity.ExternalID != "" {
		row.DedupKey = key
	}

	sql := "UPSERT $rid CONTENT $row"
	vars := map[string]any{"rid": surrealmodels.NewRecordID(tableActivity, activity.ID), "row": row}
	if _, err := surrealdb.Query[[]activityRow](ctx, s.db, sql, vars); err != nil {
		return false, fmt.Errorf("failed to save activity: %w", err)
	}
	return true, nil
}

func (s *ActivityStore) ListActivities(ctx context.Context, q interfaces.ActivityQuery) ([]*models.Activity, error) {
	var conds []string
	vars := map[string]any{}
	if len(q.AccountIDs) > 0 {
		conds = append(conds, "account_id IN $account_ids")
		vars["account_ids"] = q.AccountIDs
	}
	if len(q.Types) > 0 {
		types := make([]string, len(q.Types))
		for i, t := range q.Types {
			types[i] = string(t)
		}
		conds = append(conds, "type IN $types")
		vars["types"] = types
	}
	if !q.After.IsZero() {
		conds = append(conds, "activity_at > $after")
		vars["after"] = q.After.UnixNano()
	}
	if !q.Until.IsZero() {
		conds = append(conds, "activity_at <= $until")
		vars["until"] = q.Until.UnixNano()
	}

	sql := "SELECT * FROM " + tableActivity + whereClause(conds) + " ORDER BY activity_at ASC, activity_id ASC"
	results, err := surrealdb.Query[[]activityRow](ctx, s.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to list activities: %w", err)
	}

	rows := firstResult(results)
	out := make([]*models.Activity, 0, len(rows))
	for i := range rows {
		a, err := rows[i].toModel()
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

var _ interfaces.ActivityStore = (*ActivityStore)(nil)
