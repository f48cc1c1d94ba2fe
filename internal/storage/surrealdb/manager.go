package surrealdb

import (
	"context"
	"fmt"
	"strings"

	"github.com/bobmcallan/vire-ledger/internal/common"
	"github.com/bobmcallan/vire-ledger/internal/interfaces"
	"github.com/shopspring/decimal"
	"github.com/surrealdb/surrealdb.go"
)

// Table names
const (
	tableAccount    = "account"
	tableSecurity   = "security"
	tableSnapshot   = "account_snapshot"
	tableActivity   = "activity"
	tableLot        = "holding_lot"
	tableDisposal   = "lot_disposal"
	tableDailyValue = "daily_holding_value"
)

// dateLayout stores calendar days as sortable strings.
const dateLayout = "2006-01-02"

// Manager implements interfaces.StorageManager using SurrealDB.
type Manager struct {
	db     *surrealdb.DB
	logger *common.Logger

	accountStore   *AccountStore
	securityStore  *SecurityStore
	snapshotStore  *SnapshotStore
	activityStore  *ActivityStore
	lotStore       *LotStore
	valuationStore *ValuationStore
}

// NewManager creates a new StorageManager connected to SurrealDB.
func NewManager(logger *common.Logger, config *common.Config) (*Manager, error) {
	ctx := context.Background()

	// Connect to SurrealDB
	db, err := surrealdb.New(config.Storage.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SurrealDB: %w", err)
	}

	// Sign in
	if _, err := db.SignIn(ctx, map[string]interface{}{
		"user": config.Storage.Username,
		"pass": config.Storage.Password,
	}); err != nil {
		return nil, fmt.Errorf("failed to sign in to SurrealDB: %w", err)
	}

	// Select namespace and database
	if err := db.Use(ctx, config.Storage.Namespace, config.Storage.Database); err != nil {
		return nil, fmt.Errorf("failed to select namespace/database: %w", err)
	}

	// Define tables to ensure they exist (SurrealDB v3 errors on querying non-existent tables)
	tables := []string{tableAccount, tableSecurity, tableSnapshot, tableActivity, tableLot, tableDisposal, tableDailyValue}
	for _, table := range tables {
		sql := fmt.Sprintf("DEFINE TABLE IF NOT EXISTS %s SCHEMALESS", table)
		if _, err := surrealdb.Query[any](ctx, db, sql, nil); err != nil {
			return nil, fmt.Errorf("failed to define table %s: %w", table, err)
		}
	}

	m := &Manager{
		db:     db,
		logger: logger,
	}

	// Init stores
	m.accountStore = NewAccountStore(db, logger)
	m.securityStore = NewSecurityStore(db, logger)
	m.snapshotStore = NewSnapshotStore(db, logger)
	m.activityStore = NewActivityStore(db, logger)
	m.lotStore = NewLotStore(db, logger)
	m.valuationStore = NewValuationStore(db, logger)

	logger.Info().
		Str("address", config.Storage.Address).
		Str("namespace", config.Storage.Namespace).
		Str("database", config.Storage.Database).
		Msg("SurrealDB storage manager initialized")

	return m, nil
}

func (m *Manager) AccountStore() interfaces.AccountStore {
	return m.accountStore
}

func (m *Manager) SecurityStore() interfaces.SecurityStore {
	return m.securityStore
}

func (m *Manager) SnapshotStore() interfaces.SnapshotStore {
	return m.snapshotStore
}

func (m *Manager) ActivityStore() interfaces.ActivityStore {
	return m.activityStore
}

func (m *Manager) LotStore() interfaces.LotStore {
	return m.lotStore
}

func (m *Manager) ValuationStore() interfaces.ValuationStore {
	return m.valuationStore
}

func (m *Manager) Close() error {
	m.db.Close(context.Background())
	return nil
}

// isNotFoundError reports whether a SurrealDB error means the record is absent.
func isNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "not found") || strings.Contains(msg, "does not exist")
}

// firstResult returns the rows of the first statement in a query response.
func firstResult[T any](results *[]surrealdb.QueryResult[[]T]) []T {
	if results == nil || len(*results) == 0 {
		return nil
	}
	return (*results)[0].Result
}

// parseDecimal reads a decimal stored as a string; empty means zero.
func parseDecimal(field, s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse %s %q: %w", field, s, err)
	}
	return d, nil
}

// whereClause joins conditions with AND, or returns "" for none.
func whereClause(conds []string) string {
	if len(conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conds, " AND ")
}

// Compile-time check
var _ interfaces.StorageManager = (*Manager)(nil)
