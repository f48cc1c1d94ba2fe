package surrealdb

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/bobmcallan/vire-ledger/internal/common"
	"github.com/bobmcallan/vire-ledger/internal/interfaces"
	"github.com/bobmcallan/vire-ledger/internal/models"
	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

type accountRow struct {
	AccountID           string `json:"account_id"`
	Name                string `json:"name"`
	Provider            string `json:"provider"`
	IsActive            bool   `json:"is_active"`
	IncludeInAllocation bool   `json:"include_in_allocation"`
	CreatedAt           int64  `json:"created_at"`
}

func (r *accountRow) toModel() *models.Account {
	return &models.Account{
		ID:                  r.AccountID,
		Name:                r.Name,
		Provider:            r.Provider,
		IsActive:            r.IsActive,
		IncludeInAllocation: r.IncludeInAllocation,
		CreatedAt:           time.Unix(0, r.CreatedAt).UTC(),
	}
}

// AccountStore persists accounts in the account table.
type AccountStore struct {
	db     *surrealdb.DB
	logger *common.Logger
}

func NewAccountStore(db *surrealdb.DB, logger *common.Logger) *AccountStore {
	return &AccountStore{
		db:     db,
		logger: logger,
	}
}

func (s *AccountStore) SaveAccount(ctx context.Context, account *models.Account) error {
	if account.ID == "" {
		return fmt.Errorf("account id is required")
	}
	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now()
	}
	row := accountRow{
		AccountID:           account.ID,
		Name:                account.Name,
		Provider:            account.Provider,
		IsActive:            account.IsActive,
		IncludeInAllocation: account.IncludeInAllocation,
		CreatedAt:           account.CreatedAt.UnixNano(),
	}
	sql := "UPSERT $rid CONTENT $row"
	vars := map[string]any{"rid": surrealmodels.NewRecordID(tableAccount, account.ID), "row": row}
	if _, err := surrealdb.Query[[]accountRow](ctx, s.db, sql, vars); err != nil {
		return fmt.Errorf("failed to save account: %w", err)
	}
	return nil
}

func (s *AccountStore) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	row, err := surrealdb.Select[accountRow](ctx, s.db, surrealmodels.NewRecordID(tableAccount, id))
	if err != nil && !isNotFoundError(err) {
		return nil, fmt.Errorf("failed to select account: %w", err)
	}
	if row == nil || row.AccountID == "" {
		return nil, fmt.Errorf("account %s: %w", id, models.ErrNotFound)
	}
	return row.toModel(), nil
}

func (s *AccountStore) ListAccounts(ctx context.Context) ([]*models.Account, error) {
	sql := "SELECT * FROM " + tableAccount
	results, err := surrealdb.Query[[]accountRow](ctx, s.db, sql, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	rows := firstResult(results)
	out := make([]*models.Account, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toModel())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type securityRow struct {
	SecurityID string `json:"security_id"`
	Ticker     string `json:"ticker"`
	Name       string `json:"name"`
	Kind       string `json:"kind"`
}

// SecurityStore persists security identities in the security table.
type SecurityStore struct {
	db     *surrealdb.DB
	logger *common.Logger
}

func NewSecurityStore(db *surrealdb.DB, logger *common.Logger) *SecurityStore {
	return &SecurityStore{
		db:     db,
		logger: logger,
	}
}

func (s *SecurityStore) SaveSecurity(ctx context.Context, security *models.Security) error {
	if security.ID == "" {
		return fmt.Errorf("security id is required")
	}
	row := securityRow{
		SecurityID: security.ID,
		Ticker:     security.Ticker,
		Name:       security.Name,
		Kind:       string(security.Kind),
	}
	sql := "UPSERT $rid CONTENT $row"
	vars := map[string]any{"rid": surrealmodels.NewRecordID(tableSecurity, security.ID), "row": row}
	if _, err := surrealdb.Query[[]securityRow](ctx, s.db, sql, vars); err != nil {
		return fmt.Errorf("failed to save security: %w", err)
	}
	return nil
}

func (s *SecurityStore) GetSecurity(ctx context.Context, id string) (*models.Security, error) {
	row, err := surrealdb.Select[securityRow](ctx, s.db, surrealmodels.NewRecordID(tableSecurity, id))
	if err != nil && !isNotFoundError(err) {
		return nil, fmt.Errorf("failed to select security: %w", err)
	}
	if row == nil || row.SecurityID == "" {
		return nil, fmt.Errorf("security %s: %w", id, models.ErrNotFound)
	}
	return &models.Security{
		ID:     row.SecurityID,
		Ticker: row.Ticker,
		Name:   row.Name,
		Kind:   models.SecurityKind(row.Kind),
	}, nil
}

var (
	_ interfaces.AccountStore  = (*AccountStore)(nil)
	_ interfaces.SecurityStore = (*SecurityStore)(nil)
)
