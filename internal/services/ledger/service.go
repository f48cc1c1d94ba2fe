// Package ledger provides the manual lot operations: create, update, delete,
// batch save, disposal-group reassignment and lot summaries.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/bobmcallan/vire-ledger/internal/common"
	"github.com/bobmcallan/vire-ledger/internal/interfaces"
	"github.com/bobmcallan/vire-ledger/internal/metrics"
	"github.com/bobmcallan/vire-ledger/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Compile-time interface check
var _ interfaces.LedgerService = (*Service)(nil)

// Service implements LedgerService
type Service struct {
	storage interfaces.StorageManager
	logger  *common.Logger
	metrics *metrics.Metrics
}

// NewService creates a new ledger service
func NewService(storage interfaces.StorageManager, logger *common.Logger, m *metrics.Metrics) *Service {
	return &Service{
		storage: storage,
		logger:  logger,
		metrics: m,
	}
}

// reject counts a refused operation by error class and passes the error through.
func (s *Service) reject(err error) error {
	switch {
	case errors.Is(err, models.ErrEditNotAllowed):
		s.metrics.LedgerRejection("edit_not_allowed")
	case errors.Is(err, models.ErrValidation):
		s.metrics.LedgerRejection("validation")
	case errors.Is(err, models.ErrNotFound):
		s.metrics.LedgerRejection("not_found")
	}
	return err
}

func validateLotInput(in interfaces.LotInput) error {
	if !in.Quantity.IsPositive() {
		return fmt.Errorf("quantity must be positive, got %s: %w", in.Quantity, models.ErrValidation)
	}
	if in.CostBasisPerUnit.IsNegative() {
		return fmt.Errorf("cost basis must not be negative, got %s: %w", in.CostBasisPerUnit, models.ErrValidation)
	}
	return nil
}

// tickerFor returns the security's ticker, or "" when the security is not registered.
func (s *Service) tickerFor(ctx context.Context, securityID string) (string, error) {
	sec, err := s.storage.SecurityStore().GetSecurity(ctx, securityID)
	if errors.Is(err, models.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get security %s: %w", securityID, err)
	}
	return sec.Ticker, nil
}

func newManualLot(accountID, securityID, ticker string, in interfaces.LotInput) *models.HoldingLot {
	lot := &models.HoldingLot{
		AccountID:        accountID,
		SecurityID:       securityID,
		Ticker:           ticker,
		CostBasisPerUnit: in.CostBasisPerUnit,
		OriginalQuantity: in.Quantity,
		CurrentQuantity:  in.Quantity,
		Source:           models.LotSourceManual,
	}
	if in.AcquisitionDate != nil {
		d := models.DateOf(*in.AcquisitionDate)
		lot.AcquisitionDate = &d
	}
	return lot
}

// CreateLot adds a manual lot.
func (s *Service) CreateLot(ctx context.Context, accountID, securityID string, in interfaces.LotInput) (*models.HoldingLot, error) {
	if accountID == "" || securityID == "" {
		return nil, s.reject(fmt.Errorf("account and security are required: %w", models.ErrValidation))
	}
	if err := validateLotInput(in); err != nil {
		return nil, s.reject(err)
	}

	ticker, err := s.tickerFor(ctx, securityID)
	if err != nil {
		return nil, err
	}
	lot := newManualLot(accountID, securityID, ticker, in)
	if err := s.storage.LotStore().CreateLot(ctx, lot); err != nil {
		return nil, fmt.Errorf("create lot: %w", err)
	}
	s.metrics.LotCreated(string(models.LotSourceManual))
	s.logger.Info().Str("account", accountID).Str("security", securityID).
		Str("lot", lot.ID).Str("quantity", lot.OriginalQuantity.String()).Msg("Manual lot created")
	return lot, nil
}

// loadEditableLot fetches a lot owned by accountID whose source permits user edits.
func (s *Service) loadEditableLot(ctx context.Context, accountID, lotID string) (*models.HoldingLot, error) {
	lot, err := s.storage.LotStore().GetLot(ctx, lotID)
	if err != nil {
		return nil, err
	}
	if lot.AccountID != accountID {
		return nil, fmt.Errorf("lot %s in account %s: %w", lotID, accountID, models.ErrNotFound)
	}
	if !lot.Source.UserEditable() {
		return nil, fmt.Errorf("lot %s has source %q: %w", lotID, lot.Source, models.ErrEditNotAllowed)
	}
	return lot, nil
}

// applyUpdate mutates lot per update, keeping disposed quantity fixed.
func applyUpdate(lot *models.HoldingLot, update interfaces.LotUpdate) error {
	if update.CostBasisPerUnit != nil {
		if update.CostBasisPerUnit.IsNegative() {
			return fmt.Errorf("cost basis must not be negative, got %s: %w", update.CostBasisPerUnit, models.ErrValidation)
		}
		lot.CostBasisPerUnit = *update.CostBasisPerUnit
	}

	switch {
	case update.ClearAcquisitionDate:
		lot.AcquisitionDate = nil
	case update.AcquisitionDate != nil:
		d := models.DateOf(*update.AcquisitionDate)
		lot.AcquisitionDate = &d
	}

	if update.Quantity != nil {
		q := *update.Quantity
		disposed := lot.DisposedQuantity()
		if !q.IsPositive() {
			return fmt.Errorf("quantity must be positive, got %s: %w", q, models.ErrValidation)
		}
		if q.LessThan(disposed) {
			return fmt.Errorf("quantity %s is below disposed quantity %s: %w", q, disposed, models.ErrValidation)
		}
		lot.OriginalQuantity = q
		lot.SetCurrentQuantity(q.Sub(disposed))
	}
	return nil
}

// UpdateLot changes cost basis, quantity or acquisition date of an editable lot.
func (s *Service) UpdateLot(ctx context.Context, accountID string, update interfaces.LotUpdate) (*models.HoldingLot, error) {
	lot, err := s.loadEditableLot(ctx, accountID, update.LotID)
	if err != nil {
		return nil, s.reject(err)
	}
	if err := applyUpdate(lot, update); err != nil {
		return nil, s.reject(err)
	}
	if err := s.storage.LotStore().UpdateLot(ctx, lot); err != nil {
		return nil, fmt.Errorf("update lot %s: %w", lot.ID, err)
	}
	s.logger.Info().Str("account", accountID).Str("lot", lot.ID).
		Str("current", lot.CurrentQuantity.String()).Bool("closed", lot.IsClosed).Msg("Lot updated")
	return lot, nil
}

// DeleteLot removes an editable lot and its disposals.
func (s *Service) DeleteLot(ctx context.Context, accountID, lotID string) error {
	lot, err := s.loadEditableLot(ctx, accountID, lotID)
	if err != nil {
		return s.reject(err)
	}
	if err := s.storage.LotStore().DeleteLot(ctx, lot.ID); err != nil {
		return fmt.Errorf("delete lot %s: %w", lot.ID, err)
	}
	s.logger.Info().Str("account", accountID).Str("lot", lotID).Msg("Lot deleted")
	return nil
}

// SaveLots applies a batch of updates and creates for one (account, security).
// Every entry is validated before anything is written.
func (s *Service) SaveLots(ctx context.Context, accountID, securityID string, creates []interfaces.LotInput, updates []interfaces.LotUpdate) ([]*models.HoldingLot, error) {
	if accountID == "" || securityID == "" {
		return nil, s.reject(fmt.Errorf("account and security are required: %w", models.ErrValidation))
	}

	updated := make([]*models.HoldingLot, 0, len(updates))
	seen := make(map[string]bool, len(updates))
	for i, u := range updates {
		if seen[u.LotID] {
			return nil, s.reject(fmt.Errorf("update %d: lot %s listed twice: %w", i, u.LotID, models.ErrValidation))
		}
		seen[u.LotID] = true

		lot, err := s.loadEditableLot(ctx, accountID, u.LotID)
		if err != nil {
			return nil, s.reject(fmt.Errorf("update %d: %w", i, err))
		}
		if lot.SecurityID != securityID {
			return nil, s.reject(fmt.Errorf("update %d: lot %s belongs to security %s: %w", i, lot.ID, lot.SecurityID, models.ErrValidation))
		}
		if err := applyUpdate(lot, u); err != nil {
			return nil, s.reject(fmt.Errorf("update %d: %w", i, err))
		}
		updated = append(updated, lot)
	}
	for i, c := range creates {
		if err := validateLotInput(c); err != nil {
			return nil, s.reject(fmt.Errorf("create %d: %w", i, err))
		}
	}

	var ticker string
	if len(creates) > 0 {
		var err error
		if ticker, err = s.tickerFor(ctx, securityID); err != nil {
			return nil, err
		}
	}

	out := make([]*models.HoldingLot, 0, len(updates)+len(creates))
	for _, lot := range updated {
		if err := s.storage.LotStore().UpdateLot(ctx, lot); err != nil {
			return out, fmt.Errorf("update lot %s: %w", lot.ID, err)
		}
		out = append(out, lot)
	}
	for _, c := range creates {
		lot := newManualLot(accountID, securityID, ticker, c)
		if err := s.storage.LotStore().CreateLot(ctx, lot); err != nil {
			return out, fmt.Errorf("create lot: %w", err)
		}
		s.metrics.LotCreated(string(models.LotSourceManual))
		out = append(out, lot)
	}

	s.logger.Info().Str("account", accountID).Str("security", securityID).
		Int("updated", len(updated)).Int("created", len(creates)).Msg("Lots saved")
	return out, nil
}

// ReassignDisposals moves a disposal group onto new destination lots. The
// assignments must sum exactly to the group's total quantity and every
// destination must hold enough open quantity once the group's own disposals
// are reversed. The replacement disposals get a new group ID and keep the
// original date, proceeds, source and activity link.
func (s *Service) ReassignDisposals(ctx context.Context, accountID, groupID string, assignments []interfaces.DisposalAssignment) ([]*models.LotDisposal, error) {
	lotStore := s.storage.LotStore()

	originals, err := lotStore.ListDisposals(ctx, interfaces.DisposalQuery{AccountID: accountID, GroupID: groupID})
	if err != nil {
		return nil, fmt.Errorf("list disposal group %s: %w", groupID, err)
	}
	if len(originals) == 0 {
		return nil, s.reject(fmt.Errorf("disposal group %s: %w", groupID, models.ErrNotFound))
	}
	if len(assignments) == 0 {
		return nil, s.reject(fmt.Errorf("at least one assignment is required: %w", models.ErrValidation))
	}

	securityID := originals[0].SecurityID
	total := decimal.Zero
	for _, d := range originals {
		if d.SecurityID != securityID {
			return nil, s.reject(fmt.Errorf("disposal group %s spans securities %s and %s: %w", groupID, securityID, d.SecurityID, models.ErrValidation))
		}
		total = total.Add(d.Quantity)
	}

	// Merge repeated destinations, keeping first-seen order
	var order []string
	assigned := make(map[string]decimal.Decimal)
	assignedTotal := decimal.Zero
	for _, a := range assignments {
		if !a.Quantity.IsPositive() {
			return nil, s.reject(fmt.Errorf("assignment to lot %s must be positive, got %s: %w", a.LotID, a.Quantity, models.ErrValidation))
		}
		if _, ok := assigned[a.LotID]; !ok {
			order = append(order, a.LotID)
		}
		assigned[a.LotID] = assigned[a.LotID].Add(a.Quantity)
		assignedTotal = assignedTotal.Add(a.Quantity)
	}
	if !assignedTotal.Equal(total) {
		return nil, s.reject(fmt.Errorf("assignments total %s, group total %s: %w", assignedTotal, total, models.ErrValidation))
	}

	lots := make(map[string]*models.HoldingLot)
	load := func(id string) (*models.HoldingLot, error) {
		if l, ok := lots[id]; ok {
			return l, nil
		}
		l, err := lotStore.GetLot(ctx, id)
		if err != nil {
			return nil, err
		}
		lots[id] = l
		return l, nil
	}

	// Reverse the group's effect in memory
	var touched []string
	for _, d := range originals {
		l, err := load(d.LotID)
		if err != nil {
			return nil, fmt.Errorf("load disposed lot %s: %w", d.LotID, err)
		}
		l.SetCurrentQuantity(l.CurrentQuantity.Add(d.Quantity))
		touched = append(touched, l.ID)
	}

	for _, id := range order {
		l, err := load(id)
		if err != nil {
			if errors.Is(err, models.ErrNotFound) {
				return nil, s.reject(fmt.Errorf("destination lot %s: %w", id, models.ErrValidation))
			}
			return nil, err
		}
		if l.AccountID != accountID || l.SecurityID != securityID {
			return nil, s.reject(fmt.Errorf("destination lot %s is not in account %s security %s: %w", id, accountID, securityID, models.ErrValidation))
		}
		qty := assigned[id]
		if l.CurrentQuantity.LessThan(qty) {
			return nil, s.reject(fmt.Errorf("destination lot %s has %s available, %s assigned: %w", id, l.CurrentQuantity, qty, models.ErrValidation))
		}
		l.SetCurrentQuantity(l.CurrentQuantity.Sub(qty))
		touched = append(touched, l.ID)
	}

	written := make(map[string]bool, len(touched))
	for _, id := range touched {
		if written[id] {
			continue
		}
		written[id] = true
		if err := lotStore.UpdateLot(ctx, lots[id]); err != nil {
			return nil, fmt.Errorf("update lot %s: %w", id, err)
		}
	}
	for _, d := range originals {
		if err := lotStore.DeleteDisposal(ctx, d.ID); err != nil {
			return nil, fmt.Errorf("delete disposal %s: %w", d.ID, err)
		}
	}

	template := originals[0]
	newGroup := uuid.NewString()
	out := make([]*models.LotDisposal, 0, len(order))
	for _, id := range order {
		d := &models.LotDisposal{
			LotID:           id,
			AccountID:       accountID,
			SecurityID:      securityID,
			DisposalDate:    template.DisposalDate,
			Quantity:        assigned[id],
			ProceedsPerUnit: template.ProceedsPerUnit,
			Source:          template.Source,
			ActivityID:      template.ActivityID,
			GroupID:         newGroup,
		}
		if err := lotStore.CreateDisposal(ctx, d); err != nil {
			return out, fmt.Errorf("create disposal for lot %s: %w", id, err)
		}
		s.metrics.DisposalCreated(string(d.Source))
		out = append(out, d)
	}

	s.logger.Info().Str("account", accountID).Str("old_group", groupID).Str("new_group", newGroup).
		Str("quantity", total.String()).Int("lots", len(order)).Msg("Disposal group reassigned")
	return out, nil
}

// ListLots returns lots for an account, optionally narrowed to one security, in FIFO order.
func (s *Service) ListLots(ctx context.Context, accountID, securityID string, includeClosed bool) ([]*models.HoldingLot, error) {
	return s.storage.LotStore().ListLots(ctx, interfaces.LotQuery{
		AccountID:  accountID,
		SecurityID: securityID,
		OpenOnly:   !includeClosed,
	})
}

// ListDisposals returns disposals for an account, optionally narrowed to one security.
func (s *Service) ListDisposals(ctx context.Context, accountID, securityID string) ([]*models.LotDisposal, error) {
	return s.storage.LotStore().ListDisposals(ctx, interfaces.DisposalQuery{
		AccountID:  accountID,
		SecurityID: securityID,
	})
}

// LotSummary aggregates one (account, security). marketPrice and totalQuantity
// are optional and enable the unrealized gain and coverage figures.
func (s *Service) LotSummary(ctx context.Context, accountID, securityID string, marketPrice, totalQuantity *decimal.Decimal) (*models.LotSummary, error) {
	lots, err := s.ListLots(ctx, accountID, securityID, true)
	if err != nil {
		return nil, fmt.Errorf("list lots: %w", err)
	}
	disposals, err := s.ListDisposals(ctx, accountID, securityID)
	if err != nil {
		return nil, fmt.Errorf("list disposals: %w", err)
	}
	return summarize(accountID, securityID, lots, disposals, marketPrice, totalQuantity), nil
}

func summarize(accountID, securityID string, lots []*models.HoldingLot, disposals []*models.LotDisposal, marketPrice, totalQuantity *decimal.Decimal) *models.LotSummary {
	summary := &models.LotSummary{
		AccountID:        accountID,
		SecurityID:       securityID,
		LottedQuantity:   decimal.Zero,
		TotalCostBasis:   decimal.Zero,
		RealizedGainLoss: decimal.Zero,
	}

	costByLot := make(map[string]decimal.Decimal, len(lots))
	for _, l := range lots {
		costByLot[l.ID] = l.CostBasisPerUnit
		if summary.Ticker == "" {
			summary.Ticker = l.Ticker
		}
		if l.IsClosed {
			continue
		}
		summary.LotCount++
		summary.LottedQuantity = summary.LottedQuantity.Add(l.CurrentQuantity)
		summary.TotalCostBasis = summary.TotalCostBasis.Add(l.TotalCostBasis())
	}

	for _, d := range disposals {
		gain := d.ProceedsPerUnit.Sub(costByLot[d.LotID]).Mul(d.Quantity)
		summary.RealizedGainLoss = summary.RealizedGainLoss.Add(gain)
	}

	if marketPrice != nil {
		price := *marketPrice
		unrealized := price.Mul(summary.LottedQuantity).Sub(summary.TotalCostBasis)
		summary.MarketPrice = &price
		summary.UnrealizedGainLoss = &unrealized
	}
	if totalQuantity != nil {
		held := *totalQuantity
		summary.TotalHeldQuantity = &held
		if !held.IsZero() {
			coverage := summary.LottedQuantity.Div(held)
			summary.LotCoverage = &coverage
		}
	}
	return summary
}

// AccountSummary summarizes every security that has lots in the account or a
// holding in its latest successful snapshot. Prices and held quantities come
// from that snapshot.
func (s *Service) AccountSummary(ctx context.Context, accountID string) ([]*models.LotSummary, error) {
	lots, err := s.ListLots(ctx, accountID, "", true)
	if err != nil {
		return nil, fmt.Errorf("list lots: %w", err)
	}
	disposals, err := s.ListDisposals(ctx, accountID, "")
	if err != nil {
		return nil, fmt.Errorf("list disposals: %w", err)
	}
	snap, err := s.storage.SnapshotStore().LatestSnapshot(ctx, accountID, interfaces.SnapshotQuery{Status: models.SnapshotStatusSuccess})
	if err != nil {
		return nil, fmt.Errorf("latest snapshot: %w", err)
	}

	lotsBySecurity := make(map[string][]*models.HoldingLot)
	for _, l := range lots {
		lotsBySecurity[l.SecurityID] = append(lotsBySecurity[l.SecurityID], l)
	}
	disposalsBySecurity := make(map[string][]*models.LotDisposal)
	for _, d := range disposals {
		disposalsBySecurity[d.SecurityID] = append(disposalsBySecurity[d.SecurityID], d)
	}
	holdings := snap.HoldingsBySecurity()

	securities := make(map[string]bool)
	for id := range lotsBySecurity {
		securities[id] = true
	}
	for id, h := range holdings {
		if h.Quantity.IsPositive() {
			securities[id] = true
		}
	}

	out := make([]*models.LotSummary, 0, len(securities))
	for id := range securities {
		var price, held *decimal.Decimal
		if snap != nil {
			h := holdings[id]
			q := h.Quantity
			held = &q
			if h.Price.IsPositive() {
				p := h.Price
				price = &p
			}
		}
		summary := summarize(accountID, id, lotsBySecurity[id], disposalsBySecurity[id], price, held)
		if summary.Ticker == "" {
			summary.Ticker = holdings[id].Ticker
		}
		out = append(out, summary)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Ticker != out[j].Ticker {
			return out[i].Ticker < out[j].Ticker
		}
		return out[i].SecurityID < out[j].SecurityID
	})
	return out, nil
}
