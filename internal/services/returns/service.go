// Package returns computes money-weighted returns (XIRR) for the portfolio
// and individual accounts over calendar periods.
package returns

import (
	"context"
	"fmt"
	"time"

	"github.com/bobmcallan/vire-ledger/internal/common"
	"github.com/bobmcallan/vire-ledger/internal/interfaces"
	"github.com/bobmcallan/vire-ledger/internal/metrics"
	"github.com/bobmcallan/vire-ledger/internal/models"
	"gonum.org/v1/gonum/floats"
)

// Compile-time interface check
var _ interfaces.ReturnsService = (*Service)(nil)

// Service implements ReturnsService. It only reads from storage.
type Service struct {
	storage        interfaces.StorageManager
	logger         *common.Logger
	metrics        *metrics.Metrics
	location       *time.Location
	defaultPeriods []string
	now            func() time.Time
}

// NewService creates a new returns service. cfg supplies the timezone that
// defines "today" and the periods used when a request names none.
func NewService(storage interfaces.StorageManager, logger *common.Logger, m *metrics.Metrics, cfg common.ReturnsConfig) *Service {
	return &Service{
		storage:        storage,
		logger:         logger,
		metrics:        m,
		location:       cfg.Location(),
		defaultPeriods: cfg.DefaultPeriods,
		now:            time.Now,
	}
}

// today is the current calendar day in the configured timezone, as midnight UTC.
func (s *Service) today() time.Time {
	y, m, d := s.now().In(s.location).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (s *Service) requestedPeriods(req models.ReturnsRequest) ([]models.PeriodCode, error) {
	raw := make([]string, 0, len(req.Periods))
	for _, p := range req.Periods {
		raw = append(raw, string(p))
	}
	if len(raw) == 0 {
		raw = s.defaultPeriods
	}
	if len(raw) == 0 {
		return models.AllPeriods, nil
	}
	out := make([]models.PeriodCode, 0, len(raw))
	for _, p := range raw {
		code, err := models.ParsePeriodCode(p)
		if err != nil {
			return nil, err
		}
		out = append(out, code)
	}
	return out, nil
}

// GetReturns computes returns for the requested scope and periods.
// The portfolio covers every account included in allocation, active or not.
// Per-account results skip inactive accounts unless IncludeInactive is set,
// except that an explicitly requested single account is always computed.
func (s *Service) GetReturns(ctx context.Context, req models.ReturnsRequest) (*models.ReturnsReport, error) {
	scope := req.Scope
	if scope == "" {
		scope = models.ScopePortfolio
	}
	switch scope {
	case models.ScopePortfolio, models.ScopeAll:
	case models.ScopeAccount:
		if len(req.AccountIDs) != 1 {
			return nil, fmt.Errorf("account scope needs exactly one account id, got %d: %w", len(req.AccountIDs), models.ErrValidation)
		}
	default:
		return nil, fmt.Errorf("unknown scope %q: %w", req.Scope, models.ErrValidation)
	}

	periods, err := s.requestedPeriods(req)
	if err != nil {
		return nil, err
	}

	accounts, err := s.storage.AccountStore().ListAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	byID := make(map[string]*models.Account, len(accounts))
	for _, a := range accounts {
		byID[a.ID] = a
	}
	for _, id := range req.AccountIDs {
		if _, ok := byID[id]; !ok {
			return nil, fmt.Errorf("account %s: %w", id, models.ErrNotFound)
		}
	}

	today := s.today()
	report := &models.ReturnsReport{AsOf: today.AddDate(0, 0, -1)}

	if scope == models.ScopePortfolio || scope == models.ScopeAll {
		var ids []string
		for _, a := range accounts {
			if a.IncludeInAllocation {
				ids = append(ids, a.ID)
			}
		}
		results, err := s.periodReturns(ctx, ids, periods, today)
		if err != nil {
			return nil, err
		}
		report.Portfolio = &models.ScopeReturns{Scope: models.ScopePortfolio, Periods: results}
	}

	if scope == models.ScopeAccount || scope == models.ScopeAll {
		for _, a := range s.scopeAccounts(accounts, byID, req, scope) {
			results, err := s.periodReturns(ctx, []string{a.ID}, periods, today)
			if err != nil {
				return nil, err
			}
			report.Accounts = append(report.Accounts, models.ScopeReturns{
				Scope:       models.ScopeAccount,
				AccountID:   a.ID,
				AccountName: a.Name,
				Periods:     results,
			})
		}
	}

	s.logger.Debug().Str("scope", string(scope)).Int("periods", len(periods)).
		Int("accounts", len(report.Accounts)).Msg("Returns computed")
	return report, nil
}

func (s *Service) scopeAccounts(accounts []*models.Account, byID map[string]*models.Account, req models.ReturnsRequest, scope models.ReturnsScope) []*models.Account {
	if scope == models.ScopeAccount {
		return []*models.Account{byID[req.AccountIDs[0]]}
	}
	filter := make(map[string]bool, len(req.AccountIDs))
	for _, id := range req.AccountIDs {
		filter[id] = true
	}
	var out []*models.Account
	for _, a := range accounts {
		if len(filter) > 0 && !filter[a.ID] {
			continue
		}
		if !a.IsActive && !req.IncludeInactive {
			continue
		}
		out = append(out, a)
	}
	return out
}

func (s *Service) periodReturns(ctx context.Context, accountIDs []string, periods []models.PeriodCode, today time.Time) ([]models.PeriodReturn, error) {
	out := make([]models.PeriodReturn, 0, len(periods))
	for _, code := range periods {
		start, end, err := PeriodRange(code, today)
		if err != nil {
			return nil, err
		}
		pr, err := s.compute(ctx, accountIDs, start, end)
		if err != nil {
			return nil, fmt.Errorf("period %s: %w", code, err)
		}
		pr.Period = code
		if !pr.HasSufficientData {
			s.metrics.ReturnsInsufficient(string(code))
		}
		out = append(out, *pr)
	}
	return out, nil
}

// ReturnsForRange computes one explicit window. An empty accountID means the
// portfolio (every account included in allocation).
func (s *Service) ReturnsForRange(ctx context.Context, accountID string, start, end time.Time) (*models.PeriodReturn, error) {
	start, end = models.DateOf(start), models.DateOf(end)
	if !start.Before(end) {
		return nil, fmt.Errorf("start %s must be before end %s: %w", start.Format("2006-01-02"), end.Format("2006-01-02"), models.ErrValidation)
	}

	var ids []string
	if accountID != "" {
		if _, err := s.storage.AccountStore().GetAccount(ctx, accountID); err != nil {
			return nil, err
		}
		ids = []string{accountID}
	} else {
		accounts, err := s.storage.AccountStore().ListAccounts(ctx)
		if err != nil {
			return nil, fmt.Errorf("list accounts: %w", err)
		}
		for _, a := range accounts {
			if a.IncludeInAllocation {
				ids = append(ids, a.ID)
			}
		}
	}

	pr, err := s.compute(ctx, ids, start, end)
	if err != nil {
		return nil, err
	}
	if !pr.HasSufficientData {
		s.metrics.ReturnsInsufficient("custom")
	}
	return pr, nil
}

// compute runs the valuation, cash flow, inference and solve steps for one
// account set over [start, end].
func (s *Service) compute(ctx context.Context, accountIDs []string, start, end time.Time) (*models.PeriodReturn, error) {
	pr := &models.PeriodReturn{StartDate: start, EndDate: end}
	if len(accountIDs) == 0 {
		return pr, nil
	}

	startValue, haveStart, err := s.valueOn(ctx, accountIDs, start)
	if err != nil {
		return nil, err
	}
	endValue, haveEnd, err := s.valueOn(ctx, accountIDs, end)
	if err != nil {
		return nil, err
	}
	flows, err := s.cashFlows(ctx, accountIDs, start, end)
	if err != nil {
		return nil, err
	}
	pr.CashFlowCount = len(flows)

	if haveStart && !haveEnd {
		inferred, err := s.inferZeroEnd(ctx, accountIDs, end)
		if err != nil {
			return nil, err
		}
		if inferred {
			endValue, haveEnd = 0, true
			pr.EndValueInferred = true
		}
	}

	if haveStart {
		v := startValue
		pr.StartValue = &v
	}
	if haveEnd {
		v := endValue
		pr.EndValue = &v
	}

	if !haveStart || !haveEnd {
		return pr, nil
	}
	if startValue == 0 && len(flows) == 0 {
		return pr, nil
	}

	rate, ok := solveXIRR(buildSchedule(start, end, startValue, endValue, flows))
	if !ok {
		s.metrics.XIRRNonConvergence()
		s.logger.Warn().Strs("accounts", accountIDs).
			Str("start", start.Format("2006-01-02")).Str("end", end.Format("2006-01-02")).
			Msg("XIRR did not converge")
		return pr, nil
	}
	if rate == rateFloor {
		pr.IRRAtFloor = true
		s.logger.Warn().Strs("accounts", accountIDs).
			Str("start", start.Format("2006-01-02")).Str("end", end.Format("2006-01-02")).
			Float64("irr", rate).Msg("XIRR settled on the rate floor; the true loss may be larger")
	}
	pr.IRR = &rate
	pr.HasSufficientData = true
	return pr, nil
}

// valueOn sums market values across accounts on one date. ok is false when no
// valuation row exists for that date.
func (s *Service) valueOn(ctx context.Context, accountIDs []string, date time.Time) (float64, bool, error) {
	rows, err := s.storage.ValuationStore().ListDailyValues(ctx, interfaces.ValuationQuery{
		From:       date,
		To:         date,
		AccountIDs: accountIDs,
	})
	if err != nil {
		return 0, false, fmt.Errorf("daily values for %s: %w", date.Format("2006-01-02"), err)
	}
	if len(rows) == 0 {
		return 0, false, nil
	}
	values := make([]float64, len(rows))
	for i, r := range rows {
		values[i] = r.MarketValue
	}
	return floats.Sum(values), true, nil
}

// cashFlows returns signed external cash flows dated after start and on or before end.
func (s *Service) cashFlows(ctx context.Context, accountIDs []string, start, end time.Time) ([]models.ExternalCashFlow, error) {
	activities, err := s.storage.ActivityStore().ListActivities(ctx, interfaces.ActivityQuery{
		AccountIDs: accountIDs,
		Types:      models.ExternalCashFlowTypes,
		After:      start.AddDate(0, 0, 1).Add(-time.Nanosecond),
		Until:      end.AddDate(0, 0, 1).Add(-time.Nanosecond),
	})
	if err != nil {
		return nil, fmt.Errorf("list cash flow activities: %w", err)
	}

	var out []models.ExternalCashFlow
	for _, a := range activities {
		day := models.DateOf(a.ActivityDate)
		if !day.After(start) || day.After(end) {
			continue
		}
		if f, ok := models.SignedCashFlow(a); ok {
			out = append(out, f)
		}
	}
	return out, nil
}

// inferZeroEnd reports whether every account's latest successful snapshot on or
// before end shows a zero total value.
func (s *Service) inferZeroEnd(ctx context.Context, accountIDs []string, end time.Time) (bool, error) {
	for _, id := range accountIDs {
		snap, err := s.storage.SnapshotStore().LatestSnapshot(ctx, id, interfaces.SnapshotQuery{
			Status: models.SnapshotStatusSuccess,
			Before: end.AddDate(0, 0, 1),
		})
		if err != nil {
			return false, fmt.Errorf("latest snapshot for %s: %w", id, err)
		}
		if snap == nil || !snap.TotalValue.IsZero() {
			return false, nil
		}
	}
	return true, nil
}
