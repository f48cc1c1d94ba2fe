// Package reconcile derives holding lots and disposals from consecutive
// account snapshots and the buy/sell activities between them.
package reconcile

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/bobmcallan/vire-ledger/internal/common"
	"github.com/bobmcallan/vire-ledger/internal/interfaces"
	"github.com/bobmcallan/vire-ledger/internal/metrics"
	"github.com/bobmcallan/vire-ledger/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Compile-time interface check
var _ interfaces.ReconcileService = (*Service)(nil)

// Service implements ReconcileService
type Service struct {
	storage       interfaces.StorageManager
	logger        *common.Logger
	metrics       *metrics.Metrics
	logShortfalls bool
	newGroupID    func() string
}

// NewService creates a new reconciliation service
func NewService(storage interfaces.StorageManager, logger *common.Logger, m *metrics.Metrics) *Service {
	return &Service{
		storage:       storage,
		logger:        logger,
		metrics:       m,
		logShortfalls: true,
		newGroupID:    uuid.NewString,
	}
}

// SetLogShortfalls toggles the warning emitted when FIFO runs out of open quantity.
func (s *Service) SetLogShortfalls(enabled bool) {
	s.logShortfalls = enabled
}

// ReconcileAccount runs both reconciliation phases for one account sync.
// Phase 1 seeds lots for positions with no lot coverage. Phase 2 turns the
// quantity delta of every security into activity, inferred or disposal records.
// It does not guard against being run twice on the same snapshot pair.
func (s *Service) ReconcileAccount(ctx context.Context, in interfaces.ReconcileInput) (*models.ReconcileResult, error) {
	if in.Current == nil {
		return nil, fmt.Errorf("current snapshot is required: %w", models.ErrValidation)
	}
	accountID := in.Current.AccountID
	if in.Previous != nil && in.Previous.AccountID != accountID {
		return nil, fmt.Errorf("previous snapshot belongs to account %s, current to %s: %w",
			in.Previous.AccountID, accountID, models.ErrValidation)
	}

	result := &models.ReconcileResult{
		AccountID:  accountID,
		SnapshotID: in.Current.ID,
		FirstSync:  in.Previous == nil,
	}

	current := in.Current.HoldingsBySecurity()
	previous := in.Previous.HoldingsBySecurity()

	if err := s.seedMissingLots(ctx, in, current, previous, result); err != nil {
		return result, fmt.Errorf("seed lots for account %s: %w", accountID, err)
	}

	if !result.FirstSync {
		if err := s.reconcileDeltas(ctx, in, current, previous, result); err != nil {
			return result, fmt.Errorf("reconcile deltas for account %s: %w", accountID, err)
		}
	}

	s.logger.Info().Str("account", accountID).Str("snapshot", in.Current.ID).
		Bool("first_sync", result.FirstSync).
		Int("lots_seeded", result.LotsSeeded).
		Int("lots_activity", result.LotsFromActivity).
		Int("lots_inferred", result.LotsInferred).
		Int("disposals", result.Disposals).
		Msg("Account reconciled")
	return result, nil
}

// seedMissingLots creates one initial lot per security whose open lots cover
// less than the reference quantity. The reference is the current quantity on
// the first sync and the previous quantity afterwards, so Phase 2 sees the
// ledger as it stood at the previous snapshot.
func (s *Service) seedMissingLots(ctx context.Context, in interfaces.ReconcileInput, current, previous map[string]models.Holding, result *models.ReconcileResult) error {
	accountID := in.Current.AccountID
	for _, securityID := range sortedKeys(current) {
		holding := current[securityID]
		if !holding.Quantity.IsPositive() {
			continue
		}

		reference := holding.Quantity
		if !result.FirstSync {
			prev, ok := previous[securityID]
			if !ok || !prev.Quantity.IsPositive() {
				continue
			}
			reference = prev.Quantity
		}

		lots, err := s.openLots(ctx, accountID, securityID)
		if err != nil {
			return err
		}
		covered := decimal.Zero
		for _, l := range lots {
			covered = covered.Add(l.CurrentQuantity)
		}
		gap := reference.Sub(covered)
		if !gap.IsPositive() {
			continue
		}

		lot := &models.HoldingLot{
			AccountID:        accountID,
			SecurityID:       securityID,
			Ticker:           holding.Ticker,
			CostBasisPerUnit: costBasis(in.CostBasisHints[securityID], holding.Price),
			OriginalQuantity: gap,
			CurrentQuantity:  gap,
			Source:           models.LotSourceInitial,
		}
		if err := s.createLot(ctx, lot); err != nil {
			return err
		}
		result.LotsSeeded++
		s.logger.Debug().Str("account", accountID).Str("ticker", holding.Ticker).
			Str("quantity", gap.String()).Msg("Seeded initial lot")
	}
	return nil
}

func (s *Service) reconcileDeltas(ctx context.Context, in interfaces.ReconcileInput, current, previous map[string]models.Holding, result *models.ReconcileResult) error {
	buys, sells := tradesByTicker(in.Activities, in.Previous.SyncedAt, in.Current.SyncedAt)

	securities := make(map[string]bool, len(current)+len(previous))
	for id := range current {
		securities[id] = true
	}
	for id := range previous {
		securities[id] = true
	}

	for _, securityID := range sortedKeys(securities) {
		cur, prev := current[securityID], previous[securityID]
		delta := cur.Quantity.Sub(prev.Quantity)
		ticker := cur.Ticker
		if ticker == "" {
			ticker = prev.Ticker
		}
		key := models.NormalizeTicker(ticker)

		switch {
		case delta.IsPositive():
			if err := s.recordAcquisitions(ctx, in, securityID, ticker, delta, cur, buys[key], result); err != nil {
				return err
			}
		case delta.IsNegative():
			if err := s.recordDisposals(ctx, in, securityID, ticker, delta.Neg(), cur, prev, sells[key], result); err != nil {
				return err
			}
		}
	}
	return nil
}

// recordAcquisitions matches a position increase against buy activities in
// chronological order. Any unmatched remainder becomes one inferred lot.
func (s *Service) recordAcquisitions(ctx context.Context, in interfaces.ReconcileInput, securityID, ticker string, delta decimal.Decimal, cur models.Holding, buys []*models.Activity, result *models.ReconcileResult) error {
	accountID := in.Current.AccountID
	remaining := delta

	for _, buy := range buys {
		if !remaining.IsPositive() {
			break
		}
		if !buy.Units.IsPositive() {
			continue
		}
		qty := decimal.Min(buy.Units, remaining)
		acquired := models.DateOf(buy.ActivityDate)
		lot := &models.HoldingLot{
			AccountID:        accountID,
			SecurityID:       securityID,
			Ticker:           ticker,
			AcquisitionDate:  &acquired,
			CostBasisPerUnit: buy.Price,
			OriginalQuantity: qty,
			CurrentQuantity:  qty,
			Source:           models.LotSourceActivity,
			ActivityID:       buy.ID,
		}
		if err := s.createLot(ctx, lot); err != nil {
			return err
		}
		remaining = remaining.Sub(qty)
		result.LotsFromActivity++
	}

	if !remaining.IsPositive() {
		return nil
	}
	acquired := models.DateOf(in.Current.SyncedAt)
	lot := &models.HoldingLot{
		AccountID:        accountID,
		SecurityID:       securityID,
		Ticker:           ticker,
		AcquisitionDate:  &acquired,
		CostBasisPerUnit: costBasis(in.CostBasisHints[securityID], cur.Price),
		OriginalQuantity: remaining,
		CurrentQuantity:  remaining,
		Source:           models.LotSourceInferred,
	}
	if err := s.createLot(ctx, lot); err != nil {
		return err
	}
	result.LotsInferred++
	s.logger.Debug().Str("account", accountID).Str("ticker", ticker).
		Str("quantity", remaining.String()).Msg("Inferred lot for unmatched increase")
	return nil
}

// recordDisposals consumes open lots FIFO for a position decrease. All
// disposals written for the security share one new group ID.
func (s *Service) recordDisposals(ctx context.Context, in interfaces.ReconcileInput, securityID, ticker string, quantity decimal.Decimal, cur, prev models.Holding, sells []*models.Activity, result *models.ReconcileResult) error {
	accountID := in.Current.AccountID

	template := models.LotDisposal{
		AccountID:    accountID,
		SecurityID:   securityID,
		DisposalDate: models.DateOf(in.Current.SyncedAt),
		Source:       models.LotSourceInferred,
		GroupID:      s.newGroupID(),
	}
	var sell *models.Activity
	if len(sells) > 0 {
		sell = sells[0]
		template.Source = models.LotSourceActivity
		template.ActivityID = sell.ID
		template.DisposalDate = models.DateOf(sell.ActivityDate)
	}
	template.ProceedsPerUnit = proceedsPrice(sell, cur, prev)
	if template.ProceedsPerUnit.IsZero() {
		result.ZeroProceeds = append(result.ZeroProceeds, ticker)
		s.logger.Warn().Str("account", accountID).Str("ticker", ticker).
			Msg("No sale price available, disposal recorded with zero proceeds")
	}

	lots, err := s.openLots(ctx, accountID, securityID)
	if err != nil {
		return err
	}
	allocations, unfilled := allocateFIFO(lots, quantity)

	for _, a := range allocations {
		if err := s.storage.LotStore().UpdateLot(ctx, a.lot); err != nil {
			return fmt.Errorf("update lot %s: %w", a.lot.ID, err)
		}
		d := template
		d.LotID = a.lot.ID
		d.Quantity = a.quantity
		if err := s.storage.LotStore().CreateDisposal(ctx, &d); err != nil {
			return fmt.Errorf("create disposal for lot %s: %w", a.lot.ID, err)
		}
		s.metrics.DisposalCreated(string(d.Source))
		result.Disposals++
	}
	if len(allocations) > 0 {
		result.DisposalGroups = append(result.DisposalGroups, template.GroupID)
	}

	if unfilled.IsPositive() {
		result.Shortfalls = append(result.Shortfalls, models.Shortfall{
			SecurityID: securityID,
			Ticker:     ticker,
			Requested:  quantity,
			Disposed:   quantity.Sub(unfilled),
		})
		s.metrics.ReconcileShortfall()
		if s.logShortfalls {
			s.logger.Warn().Str("account", accountID).Str("ticker", ticker).
				Str("requested", quantity.String()).Str("unfilled", unfilled.String()).
				Msg("Insufficient open lot quantity for disposal")
		}
	}
	return nil
}

func (s *Service) openLots(ctx context.Context, accountID, securityID string) ([]*models.HoldingLot, error) {
	lots, err := s.storage.LotStore().ListLots(ctx, interfaces.LotQuery{
		AccountID:  accountID,
		SecurityID: securityID,
		OpenOnly:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("list open lots for %s: %w", securityID, err)
	}
	return lots, nil
}

func (s *Service) createLot(ctx context.Context, lot *models.HoldingLot) error {
	if err := s.storage.LotStore().CreateLot(ctx, lot); err != nil {
		return fmt.Errorf("create %s lot for %s: %w", lot.Source, lot.SecurityID, err)
	}
	s.metrics.LotCreated(string(lot.Source))
	return nil
}

// costBasis picks the provider hint when positive, then the snapshot price, then zero.
func costBasis(hint, price decimal.Decimal) decimal.Decimal {
	if hint.IsPositive() {
		return hint
	}
	if price.IsPositive() {
		return price
	}
	return decimal.Zero
}

// proceedsPrice picks the sell activity price, then the current snapshot price,
// then the previous snapshot price, then zero.
func proceedsPrice(sell *models.Activity, cur, prev models.Holding) decimal.Decimal {
	if sell != nil && sell.Price.IsPositive() {
		return sell.Price
	}
	if cur.Price.IsPositive() {
		return cur.Price
	}
	if prev.Price.IsPositive() {
		return prev.Price
	}
	return decimal.Zero
}

// tradesByTicker groups buy and sell activities dated in (after, until] by
// normalized ticker, each group in chronological order.
func tradesByTicker(activities []*models.Activity, after, until time.Time) (buys, sells map[string][]*models.Activity) {
	buys = make(map[string][]*models.Activity)
	sells = make(map[string][]*models.Activity)
	for _, a := range activities {
		if a == nil || !a.ActivityDate.After(after) || a.ActivityDate.After(until) {
			continue
		}
		key := models.NormalizeTicker(a.Ticker)
		switch a.Type {
		case models.ActivityBuy:
			buys[key] = append(buys[key], a)
		case models.ActivitySell:
			sells[key] = append(sells[key], a)
		}
	}
	for _, group := range []map[string][]*models.Activity{buys, sells} {
		for _, list := range group {
			sort.SliceStable(list, func(i, j int) bool {
				return list[i].ActivityDate.Before(list[j].ActivityDate)
			})
		}
	}
	return buys, sells
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
