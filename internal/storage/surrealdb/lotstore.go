package surrealdb

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bobmcallan/vire-ledger/internal/common"
	"github.com/bobmcallan/vire-ledger/internal/interfaces"
	"github.com/bobmcallan/vire-ledger/internal/models"
	"github.com/google/uuid"
	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

type lotRow struct {
	LotID            string `json:"lot_id"`
	AccountID        string `json:"account_id"`
	SecurityID       string `json:"security_id"`
	Ticker           string `json:"ticker"`
	AcquisitionDate  string `json:"acquisition_date"` // "" when unknown
	CostBasisPerUnit string `json:"cost_basis_per_unit"`
	OriginalQuantity string `json:"original_quantity"`
	CurrentQuantity  string `json:"current_quantity"`
	IsClosed         bool   `json:"is_closed"`
	Source           string `json:"source"`
	ActivityID       string `json:"activity_id"`
	CreatedSeq       int64  `json:"created_seq"`
	CreatedAt        int64  `json:"created_at"`
	UpdatedAt        int64  `json:"updated_at"`
}

func lotToRow(l *models.HoldingLot) lotRow {
	row := lotRow{
		LotID:            l.ID,
		AccountID:        l.AccountID,
		SecurityID:       l.SecurityID,
		Ticker:           l.Ticker,
		CostBasisPerUnit: l.CostBasisPerUnit.String(),
		OriginalQuantity: l.OriginalQuantity.String(),
		CurrentQuantity:  l.CurrentQuantity.String(),
		IsClosed:         l.IsClosed,
		Source:           string(l.Source),
		ActivityID:       l.ActivityID,
		CreatedSeq:       l.CreatedSeq,
		CreatedAt:        l.CreatedAt.UnixNano(),
		UpdatedAt:        l.UpdatedAt.UnixNano(),
	}
	if l.AcquisitionDate != nil {
		row.AcquisitionDate = l.AcquisitionDate.Format(dateLayout)
	}
	return row
}

func (r *lotRow) toModel() (*models.HoldingLot, error) {
	cost, err := parseDecimal("cost_basis_per_unit", r.CostBasisPerUnit)
	if err != nil {
		return nil, err
	}
	original, err := parseDecimal("original_quantity", r.OriginalQuantity)
	if err != nil {
		return nil, err
	}
	current, err := parseDecimal("current_quantity", r.CurrentQuantity)
	if err != nil {
		return nil, err
	}
	lot := &models.HoldingLot{
		ID:               r.LotID,
		AccountID:        r.AccountID,
		SecurityID:       r.SecurityID,
		Ticker:           r.Ticker,
		CostBasisPerUnit: cost,
		OriginalQuantity: original,
		CurrentQuantity:  current,
		IsClosed:         r.IsClosed,
		Source:           models.LotSource(r.Source),
		ActivityID:       r.ActivityID,
		CreatedSeq:       r.CreatedSeq,
		CreatedAt:        time.Unix(0, r.CreatedAt).UTC(),
		UpdatedAt:        time.Unix(0, r.UpdatedAt).UTC(),
	}
	if r.AcquisitionDate != "" {
		d, err := time.Parse(dateLayout, r.AcquisitionDate)
		if err != nil {
			return nil, fmt.Errorf("parse acquisition_date %q: %w", r.AcquisitionDate, err)
		}
		lot.AcquisitionDate = &d
	}
	return lot, nil
}

type disposalRow struct {
	DisposalID      string `json:"disposal_id"`
	LotID           string `json:"lot_id"`
	AccountID       string `json:"account_id"`
	SecurityID      string `json:"security_id"`
	DisposalDate    string `json:"disposal_date"`
	Quantity        string `json:"quantity"`
	ProceedsPerUnit string `json:"proceeds_per_unit"`
	Source          string `json:"source"`
	ActivityID      string `json:"activity_id"`
	GroupID         string `json:"disposal_group_id"`
	CreatedSeq      int64  `json:"created_seq"`
	CreatedAt       int64  `json:"created_at"`
}

func (r *disposalRow) toModel() (*models.LotDisposal, error) {
	qty, err := parseDecimal("quantity", r.Quantity)
	if err != nil {
		return nil, err
	}
	proceeds, err := parseDecimal("proceeds_per_unit", r.ProceedsPerUnit)
	if err != nil {
		return nil, err
	}
	date, err := time.Parse(dateLayout, r.DisposalDate)
	if err != nil {
		return nil, fmt.Errorf("parse disposal_date %q: %w", r.DisposalDate, err)
	}
	return &models.LotDisposal{
		ID:              r.DisposalID,
		LotID:           r.LotID,
		AccountID:       r.AccountID,
		SecurityID:      r.SecurityID,
		DisposalDate:    date,
		Quantity:        qty,
		ProceedsPerUnit: proceeds,
		Source:          models.LotSource(r.Source),
		ActivityID:      r.ActivityID,
		GroupID:         r.GroupID,
		CreatedSeq:      r.CreatedSeq,
		CreatedAt:       time.Unix(0, r.CreatedAt).UTC(),
	}, nil
}

// LotStore persists holding lots and lot disposals.
type LotStore struct {
	db     *surrealdb.DB
	logger *common.Logger

	mu      sync.Mutex
	lastSeq int64
}

func NewLotStore(db *surrealdb.DB, logger *common.Logger) *LotStore {
	return &LotStore{
		db:     db,
		logger: logger,
	}
}

// nextSeq returns a creation sequence that increases within this process and
// stays ahead of earlier processes by tracking wall-clock nanoseconds.
func (s *LotStore) nextSeq() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	seq := time.Now().UnixNano()
	if seq <= s.lastSeq {
		seq = s.lastSeq + 1
	}
	s.lastSeq = seq
	return seq
}

func (s *LotStore) CreateLot(ctx context.Context, lot *models.HoldingLot) error {
	if lot.ID == "" {
		lot.ID = uuid.NewString()
	}
	now := time.Now()
	lot.CreatedSeq = s.nextSeq()
	lot.CreatedAt = now
	lot.UpdatedAt = now

	sql := "CREATE $rid CONTENT $row"
	vars := map[string]any{"rid": surrealmodels.NewRecordID(tableLot, lot.ID), "row": lotToRow(lot)}
	if _, err := surrealdb.Query[[]lotRow](ctx, s.db, sql, vars); err != nil {
		return fmt.Errorf("failed to create lot %s: %w", lot.ID, err)
	}
	return nil
}

func (s *LotStore) UpdateLot(ctx context.Context, lot *models.HoldingLot) error {
	if _, err := s.GetLot(ctx, lot.ID); err != nil {
		return err
	}
	lot.UpdatedAt = time.Now()

	sql := "UPSERT $rid CONTENT $row"
	vars := map[string]any{"rid": surrealmodels.NewRecordID(tableLot, lot.ID), "row": lotToRow(lot)}
	if _, err := surrealdb.Query[[]lotRow](ctx, s.db, sql, vars); err != nil {
		return fmt.Errorf("failed to update lot %s: %w", lot.ID, err)
	}
	return nil
}

func (s *LotStore) DeleteLot(ctx context.Context, id string) error {
	if _, err := s.GetLot(ctx, id); err != nil {
		return err
	}

	sql := "DELETE " + tableDisposal + " WHERE lot_id = $lot_id"
	if _, err := surrealdb.Query[any](ctx, s.db, sql, map[string]any{"lot_id": id}); err != nil {
		return fmt.Errorf("failed to delete disposals of lot %s: %w", id, err)
	}
	if _, err := surrealdb.Delete[lotRow](ctx, s.db, surrealmodels.NewRecordID(tableLot, id)); err != nil && !isNotFoundError(err) {
		return fmt.Errorf("failed to delete lot %s: %w", id, err)
	}
	return nil
}

func (s *LotStore) GetLot(ctx context.Context, id string) (*models.HoldingLot, error) {
	row, err := surrealdb.Select[lotRow](ctx, s.db, surrealmodels.NewRecordID(tableLot, id))
	if err != nil && !isNotFoundError(err) {
		return nil, fmt.Errorf("failed to select lot: %w", err)
	}
	if row == nil || row.LotID == "" {
		return nil, fmt.Errorf("lot %s: %w", id, models.ErrNotFound)
	}
	return row.toModel()
}

func (s *LotStore) ListLots(ctx context.Context, q interfaces.LotQuery) ([]*models.HoldingLot, error) {
	var conds []string
	vars := map[string]any{}
	if q.AccountID != "" {
		conds = append(conds, "account_id = $account_id")
		vars["account_id"] = q.AccountID
	}
	if q.SecurityID != "" {
		conds = append(conds, "security_id = $security_id")
		vars["security_id"] = q.SecurityID
	}
	if q.OpenOnly {
		conds = append(conds, "is_closed = false")
	}

	sql := "SELECT * FROM " + tableLot + whereClause(conds)
	results, err := surrealdb.Query[[]lotRow](ctx, s.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to list lots: %w", err)
	}

	rows := firstResult(results)
	out := make([]*models.HoldingLot, 0, len(rows))
	for i := range rows {
		lot, err := rows[i].toModel()
		if err != nil {
			return nil, err
		}
		out = append(out, lot)
	}
	// Unknown dates sort first, which ORDER BY on the stored column cannot express.
	models.SortFIFO(out)
	return out, nil
}

func (s *LotStore) CreateDisposal(ctx context.Context, disposal *models.LotDisposal) error {
	if _, err := s.GetLot(ctx, disposal.LotID); err != nil {
		return fmt.Errorf("disposal references lot %s: %w", disposal.LotID, err)
	}
	if disposal.ID == "" {
		disposal.ID = uuid.NewString()
	}
	disposal.CreatedSeq = s.nextSeq()
	disposal.CreatedAt = time.Now()

	row := disposalRow{
		DisposalID:      disposal.ID,
		LotID:           disposal.LotID,
		AccountID:       disposal.AccountID,
		SecurityID:      disposal.SecurityID,
		DisposalDate:    disposal.DisposalDate.Format(dateLayout),
		Quantity:        disposal.Quantity.String(),
		ProceedsPerUnit: disposal.ProceedsPerUnit.String(),
		Source:          string(disposal.Source),
		ActivityID:      disposal.ActivityID,
		GroupID:         disposal.GroupID,
		CreatedSeq:      disposal.CreatedSeq,
		CreatedAt:       disposal.CreatedAt.UnixNano(),
	}
	sql := "CREATE $rid CONTENT $row"
	vars := map[string]any{"rid": surrealmodels.NewRecordID(tableDisposal, disposal.ID), "row": row}
	if _, err := surrealdb.Query[[]disposalRow](ctx, s.db, sql, vars); err != nil {
		return fmt.Errorf("failed to create disposal: %w", err)
	}
	return nil
}

func (s *LotStore) DeleteDisposal(ctx context.Context, id string) error {
	row, err := surrealdb.Select[disposalRow](ctx, s.db, surrealmodels.NewRecordID(tableDisposal, id))
	if err != nil && !isNotFoundError(err) {
		return fmt.Errorf("failed to select disposal: %w", err)
	}
	if row == nil || row.DisposalID == "" {
		return fmt.Errorf("disposal %s: %w", id, models.ErrNotFound)
	}
	if _, err := surrealdb.Delete[disposalRow](ctx, s.db, surrealmodels.NewRecordID(tableDisposal, id)); err != nil && !isNotFoundError(err) {
		return fmt.Errorf("failed to delete disposal %s: %w", id, err)
	}
	return nil
}

func (s *LotStore) ListDisposals(ctx context.Context, q interfaces.DisposalQuery) ([]*models.LotDisposal, error) {
	var conds []string
	vars := map[string]any{}
	if q.AccountID != "" {
		conds = append(conds, "account_id = $account_id")
		vars["account_id"] = q.AccountID
	}
	if q.SecurityID != "" {
		conds = append(conds, "security_id = $security_id")
		vars["security_id"] = q.SecurityID
	}
	if q.LotID != "" {
		conds = append(conds, "lot_id = $lot_id")
		vars["lot_id"] = q.LotID
	}
	if q.GroupID != "" {
		conds = append(conds, "disposal_group_id = $group_id")
		vars["group_id"] = q.GroupID
	}

	sql := "SELECT * FROM " + tableDisposal + whereClause(conds) + " ORDER BY created_seq ASC"
	results, err := surrealdb.Query[[]disposalRow](ctx, s.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to list disposals: %w", err)
	}

	rows := firstResult(results)
	out := make([]*models.LotDisposal, 0, len(rows))
	for i := range rows {
		d, err := rows[i].toModel()
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

var _ interfaces.LotStore = (*LotStore)(nil)
