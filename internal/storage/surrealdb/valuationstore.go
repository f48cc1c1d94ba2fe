package surrealdb

import (
	"context"
	"fmt"
	"time"

	"github.com/bobmcallan/vire-ledger/internal/common"
	"github.com/bobmcallan/vire-ledger/internal/interfaces"
	"github.com/bobmcallan/vire-ledger/internal/models"
	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

type dailyValueRow struct {
	Date        string  `json:"date"`
	AccountID   string  `json:"account_id"`
	SecurityID  string  `json:"security_id"`
	MarketValue float64 `json:"market_value"`
}

// ValuationStore persists daily holding values in the daily_holding_value table.
type ValuationStore struct {
	db     *surrealdb.DB
	logger *common.Logger
}

func NewValuationStore(db *surrealdb.DB, logger *common.Logger) *ValuationStore {
	return &ValuationStore{
		db:     db,
		logger: logger,
	}
}

func valuationRecordID(date, accountID, securityID string) string {
	return date + "_" + accountID + "_" + securityID
}

func (s *ValuationStore) SaveDailyValues(ctx context.Context, values []models.DailyHoldingValue) error {
	for _, v := range values {
		row := dailyValueRow{
			Date:        models.DateOf(v.Date).Format(dateLayout),
			AccountID:   v.AccountID,
			SecurityID:  v.SecurityID,
			MarketValue: v.MarketValue,
		}
		sql := "UPSERT $rid CONTENT $row"
		vars := map[string]any{
			"rid": surrealmodels.NewRecordID(tableDailyValue, valuationRecordID(row.Date, row.AccountID, row.SecurityID)),
			"row": row,
		}
		if _, err := surrealdb.Query[[]dailyValueRow](ctx, s.db, sql, vars); err != nil {
			return fmt.Errorf("failed to save daily value %s/%s on %s: %w", row.AccountID, row.SecurityID, row.Date, err)
		}
	}
	s.logger.Debug().Int("count", len(values)).Msg("Daily holding values saved")
	return nil
}

func (s *ValuationStore) ListDailyValues(ctx context.Context, q interfaces.ValuationQuery) ([]models.DailyHoldingValue, error) {
	var conds []string
	vars := map[string]any{}
	if !q.From.IsZero() {
		conds = append(conds, "date >= $from")
		vars["from"] = models.DateOf(q.From).Format(dateLayout)
	}
	if !q.To.IsZero() {
		conds = append(conds, "date <= $to")
		vars["to"] = models.DateOf(q.To).Format(dateLayout)
	}
	if len(q.AccountIDs) > 0 {
		conds = append(conds, "account_id IN $account_ids")
		vars["account_ids"] = q.AccountIDs
	}

	sql := "SELECT * FROM " + tableDailyValue + whereClause(conds) + " ORDER BY date ASC, account_id ASC, security_id ASC"
	results, err := surrealdb.Query[[]dailyValueRow](ctx, s.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to list daily values: %w", err)
	}

	rows := firstResult(results)
	out := make([]models.DailyHoldingValue, 0, len(rows))
	for _, r := range rows {
		d, err := time.Parse(dateLayout, r.Date)
		if err != nil {
			return nil, fmt.Errorf("parse date %q: %w", r.Date, err)
		}
		out = append(out, models.DailyHoldingValue{
			Date:        d,
			AccountID:   r.AccountID,
			SecurityID:  r.SecurityID,
			MarketValue: r.MarketValue,
		})
	}
	return out, nil
}

var _ interfaces.ValuationStore = (*ValuationStore)(nil)
