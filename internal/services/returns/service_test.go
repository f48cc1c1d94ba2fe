package returns

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/bobmcallan/vire-ledger/internal/common"
	"github.com/bobmcallan/vire-ledger/internal/metrics"
	"github.com/bobmcallan/vire-ledger/internal/models"
	"github.com/bobmcallan/vire-ledger/internal/storage/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Fixture clock: today is 2024-05-16, so 1M runs from 2024-04-15 to 2024-05-15.
var fixedNow = time.Date(2024, 5, 16, 9, 0, 0, 0, time.UTC)

type fixture struct {
	svc   *Service
	store *memory.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore(common.NewSilentLogger())
	svc := NewService(store, common.NewSilentLogger(), metrics.New(), common.ReturnsConfig{DefaultPeriods: []string{"1M"}})
	svc.now = func() time.Time { return fixedNow }
	return &fixture{svc: svc, store: store}
}

func (f *fixture) account(t *testing.T, id string, active, included bool) {
	t.Helper()
	require.NoError(t, f.store.SaveAccount(context.Background(), &models.Account{
		ID: id, Name: "Account " + id, IsActive: active, IncludeInAllocation: included,
	}))
}

func (f *fixture) value(t *testing.T, accountID string, d time.Time, v float64) {
	t.Helper()
	require.NoError(t, f.store.SaveDailyValues(context.Background(), []models.DailyHoldingValue{
		{Date: d, AccountID: accountID, SecurityID: "sec", MarketValue: v},
	}))
}

func (f *fixture) flow(t *testing.T, accountID, externalID string, typ models.ActivityType, d time.Time, amount float64) {
	t.Helper()
	_, err := f.store.SaveActivity(context.Background(), &models.Activity{
		AccountID: accountID, Provider: "test", ExternalID: externalID,
		Type: typ, Amount: decimal.NewFromFloat(amount), ActivityDate: d,
	})
	require.NoError(t, err)
}

func (f *fixture) snapshot(t *testing.T, accountID string, syncedAt time.Time, total float64) {
	t.Helper()
	require.NoError(t, f.store.SaveSnapshot(context.Background(), &models.AccountSnapshot{
		AccountID: accountID, SyncedAt: syncedAt, Status: models.SnapshotStatusSuccess,
		TotalValue: decimal.NewFromFloat(total),
	}))
}

var (
	start1M = date(2024, 4, 15)
	end1M   = date(2024, 5, 15)
	mid1M   = date(2024, 5, 1)
)

func accountReturn(t *testing.T, f *fixture, accountID string) models.PeriodReturn {
	t.Helper()
	report, err := f.svc.GetReturns(context.Background(), models.ReturnsRequest{
		Scope:      models.ScopeAccount,
		Periods:    []models.PeriodCode{models.Period1M},
		AccountIDs: []string{accountID},
	})
	require.NoError(t, err)
	require.Len(t, report.Accounts, 1)
	require.Len(t, report.Accounts[0].Periods, 1)
	return report.Accounts[0].Periods[0]
}

func TestReturns_SimpleGrowth(t *testing.T) {
	f := newFixture(t)
	f.account(t, "a1", true, true)
	f.value(t, "a1", start1M, 1000)
	f.value(t, "a1", end1M, 1100)

	pr := accountReturn(t, f, "a1")
	assert.True(t, pr.HasSufficientData)
	assert.Equal(t, start1M, pr.StartDate)
	assert.Equal(t, end1M, pr.EndDate)
	require.NotNil(t, pr.IRR)
	if !approxEqual(*pr.IRR, 0.10, 1e-6) {
		t.Errorf("IRR = %.8f, want 0.10", *pr.IRR)
	}
}

func TestReturns_FlagsRateOnFloor(t *testing.T) {
	f := newFixture(t)
	f.account(t, "wipe", true, true)
	f.value(t, "wipe", start1M, 1000)
	f.value(t, "wipe", end1M, 1)

	pr := accountReturn(t, f, "wipe")
	assert.True(t, pr.HasSufficientData)
	assert.True(t, pr.IRRAtFloor)
	require.NotNil(t, pr.IRR)
	assert.Equal(t, -0.99, *pr.IRR)

	f.account(t, "fine", true, true)
	f.value(t, "fine", start1M, 1000)
	f.value(t, "fine", end1M, 900)
	assert.False(t, accountReturn(t, f, "fine").IRRAtFloor)
}

func TestReturns_DepositIsNotPerformance(t *testing.T) {
	f := newFixture(t)
	f.account(t, "a1", true, true)
	f.value(t, "a1", start1M, 1000)
	f.value(t, "a1", end1M, 1500)
	// Provider reports the deposit with a negative sign; deposits are always money in
	f.flow(t, "a1", "d1", models.ActivityDeposit, mid1M, -500)
	// Dated on the start day, so outside the window
	f.flow(t, "a1", "d0", models.ActivityDeposit, start1M.Add(12*time.Hour), 999)
	// Not a cash flow type
	f.flow(t, "a1", "div", models.ActivityDividend, mid1M, 40)

	pr := accountReturn(t, f, "a1")
	assert.Equal(t, 1, pr.CashFlowCount)
	require.NotNil(t, pr.IRR)
	if !approxEqual(*pr.IRR, 0, 1e-6) {
		t.Errorf("IRR = %.8f, want 0 when growth equals the deposit", *pr.IRR)
	}
}

func TestReturns_ZeroInferenceForClosedAccount(t *testing.T) {
	f := newFixture(t)
	f.account(t, "a2", false, true)
	f.value(t, "a2", start1M, 500)
	f.flow(t, "a2", "w1", models.ActivityTransferOut, mid1M, 550)
	f.snapshot(t, "a2", mid1M.Add(2*time.Hour), 0)

	pr := accountReturn(t, f, "a2")
	assert.True(t, pr.EndValueInferred)
	require.NotNil(t, pr.EndValue)
	assert.Equal(t, 0.0, *pr.EndValue)
	require.NotNil(t, pr.IRR)
	want := math.Pow(1.1, 30.0/16.0) - 1
	if !approxEqual(*pr.IRR, want, 1e-6) {
		t.Errorf("IRR = %.8f, want %.8f", *pr.IRR, want)
	}
}

func TestReturns_ZeroInferenceSnapshotBoundary(t *testing.T) {
	// A zero snapshot synced during end_date counts
	f := newFixture(t)
	f.account(t, "a3", false, true)
	f.value(t, "a3", start1M, 500)
	f.snapshot(t, "a3", end1M.Add(23*time.Hour), 0)

	pr := accountReturn(t, f, "a3")
	assert.True(t, pr.EndValueInferred)
	assert.True(t, pr.HasSufficientData)

	// One synced the day after end_date does not, and the earlier non-zero snapshot rules
	g := newFixture(t)
	g.account(t, "a4", false, true)
	g.value(t, "a4", start1M, 500)
	g.snapshot(t, "a4", mid1M, 480)
	g.snapshot(t, "a4", end1M.AddDate(0, 0, 1), 0)

	pr = accountReturn(t, g, "a4")
	assert.False(t, pr.EndValueInferred)
	assert.False(t, pr.HasSufficientData)
	assert.Nil(t, pr.IRR)
}

func TestReturns_NoInferenceWhenSnapshotHasValue(t *testing.T) {
	f := newFixture(t)
	f.account(t, "a2", true, true)
	f.value(t, "a2", start1M, 500)
	f.snapshot(t, "a2", mid1M, 480)

	pr := accountReturn(t, f, "a2")
	assert.False(t, pr.HasSufficientData)
	assert.False(t, pr.EndValueInferred)
	assert.Nil(t, pr.IRR)
	assert.Nil(t, pr.EndValue)
	require.NotNil(t, pr.StartValue)
	assert.Equal(t, 500.0, *pr.StartValue)
}

func TestReturns_InsufficientData(t *testing.T) {
	f := newFixture(t)
	f.account(t, "zero", true, true)
	f.value(t, "zero", start1M, 0)
	f.value(t, "zero", end1M, 0)

	f.account(t, "nostart", true, true)
	f.value(t, "nostart", end1M, 100)

	for _, id := range []string{"zero", "nostart"} {
		pr := accountReturn(t, f, id)
		assert.False(t, pr.HasSufficientData, id)
		assert.Nil(t, pr.IRR, id)
	}
}

func TestReturns_NewMoneyFromZeroStart(t *testing.T) {
	f := newFixture(t)
	f.account(t, "fresh", true, true)
	f.value(t, "fresh", start1M, 0)
	f.value(t, "fresh", end1M, 1000)
	f.flow(t, "fresh", "d1", models.ActivityDeposit, mid1M, 1000)

	pr := accountReturn(t, f, "fresh")
	assert.True(t, pr.HasSufficientData)
	require.NotNil(t, pr.IRR)
	if !approxEqual(*pr.IRR, 0, 1e-6) {
		t.Errorf("IRR = %.8f, want 0", *pr.IRR)
	}
}

func TestReturns_PortfolioIncludesInactiveAccounts(t *testing.T) {
	f := newFixture(t)
	f.account(t, "a1", true, true)
	f.account(t, "a2", false, true)
	f.account(t, "a3", true, false)

	f.value(t, "a1", start1M, 1000)
	f.value(t, "a1", end1M, 1100)
	f.value(t, "a2", start1M, 500)
	f.flow(t, "a2", "w1", models.ActivityWithdrawal, mid1M, 550)
	f.value(t, "a3", start1M, 10000)
	f.value(t, "a3", end1M, 10000)

	report, err := f.svc.GetReturns(context.Background(), models.ReturnsRequest{Scope: models.ScopePortfolio})
	require.NoError(t, err)
	require.NotNil(t, report.Portfolio)
	assert.Empty(t, report.Accounts)
	assert.Equal(t, date(2024, 5, 15), report.AsOf)

	require.Len(t, report.Portfolio.Periods, 1, "configured default periods apply")
	pr := report.Portfolio.Periods[0]
	assert.Equal(t, models.Period1M, pr.Period)
	require.NotNil(t, pr.StartValue)
	assert.Equal(t, 1500.0, *pr.StartValue)
	require.NotNil(t, pr.EndValue)
	assert.Equal(t, 1100.0, *pr.EndValue)
	assert.Equal(t, 1, pr.CashFlowCount)
	assert.True(t, pr.HasSufficientData)
}

func TestReturns_AllScopeFiltersInactive(t *testing.T) {
	f := newFixture(t)
	f.account(t, "a1", true, true)
	f.account(t, "a2", false, true)
	f.account(t, "a3", true, false)

	report, err := f.svc.GetReturns(context.Background(), models.ReturnsRequest{Scope: models.ScopeAll})
	require.NoError(t, err)
	require.NotNil(t, report.Portfolio)
	var ids []string
	for _, a := range report.Accounts {
		ids = append(ids, a.AccountID)
	}
	assert.Equal(t, []string{"a1", "a3"}, ids)

	report, err = f.svc.GetReturns(context.Background(), models.ReturnsRequest{Scope: models.ScopeAll, IncludeInactive: true, AccountIDs: []string{"a2"}})
	require.NoError(t, err)
	require.Len(t, report.Accounts, 1)
	assert.Equal(t, "a2", report.Accounts[0].AccountID)
	assert.Equal(t, "Account a2", report.Accounts[0].AccountName)
}

func TestReturns_RequestValidation(t *testing.T) {
	f := newFixture(t)
	f.account(t, "a1", true, true)
	ctx := context.Background()

	_, err := f.svc.GetReturns(ctx, models.ReturnsRequest{Scope: models.ScopeAccount})
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = f.svc.GetReturns(ctx, models.ReturnsRequest{Scope: models.ScopeAccount, AccountIDs: []string{"missing"}})
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = f.svc.GetReturns(ctx, models.ReturnsRequest{Scope: "galaxy"})
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = f.svc.GetReturns(ctx, models.ReturnsRequest{Periods: []models.PeriodCode{"10Y"}})
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestReturns_AllPeriodsReported(t *testing.T) {
	f := newFixture(t)
	f.account(t, "a1", true, true)

	report, err := f.svc.GetReturns(context.Background(), models.ReturnsRequest{Periods: models.AllPeriods})
	require.NoError(t, err)
	require.Len(t, report.Portfolio.Periods, len(models.AllPeriods))
	for i, pr := range report.Portfolio.Periods {
		assert.Equal(t, models.AllPeriods[i], pr.Period)
		assert.False(t, pr.HasSufficientData)
	}
}

func TestReturnsForRange(t *testing.T) {
	f := newFixture(t)
	f.account(t, "a1", true, true)
	f.value(t, "a1", date(2023, 1, 1), 2000)
	f.value(t, "a1", date(2024, 1, 1), 2200)

	pr, err := f.svc.ReturnsForRange(context.Background(), "", date(2023, 1, 1), date(2024, 1, 1))
	require.NoError(t, err)
	require.NotNil(t, pr.IRR)
	if !approxEqual(*pr.IRR, 0.10, 1e-6) {
		t.Errorf("IRR = %.8f, want 0.10", *pr.IRR)
	}

	_, err = f.svc.ReturnsForRange(context.Background(), "a1", date(2024, 1, 1), date(2024, 1, 1))
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = f.svc.ReturnsForRange(context.Background(), "ghost", date(2023, 1, 1), date(2024, 1, 1))
	assert.ErrorIs(t, err, models.ErrNotFound)
}
