// Package report renders ledger and returns data as markdown tables and charts.
package report

import (
	"context"
	"fmt"

	"github.com/bobmcallan/vire-ledger/internal/common"
	"github.com/bobmcallan/vire-ledger/internal/interfaces"
	"github.com/bobmcallan/vire-ledger/internal/models"
)

// Service builds reports from the ledger and returns services
type Service struct {
	ledger  interfaces.LedgerService
	returns interfaces.ReturnsService
	logger  *common.Logger
}

// NewService creates a new report service
func NewService(ledger interfaces.LedgerService, returns interfaces.ReturnsService, logger *common.Logger) *Service {
	return &Service{
		ledger:  ledger,
		returns: returns,
		logger:  logger,
	}
}

// LotsReport renders an account's lots, optionally for one security.
func (s *Service) LotsReport(ctx context.Context, accountID, securityID string, includeClosed bool) (string, error) {
	lots, err := s.ledger.ListLots(ctx, accountID, securityID, includeClosed)
	if err != nil {
		return "", fmt.Errorf("list lots: %w", err)
	}
	title := "Lots: " + accountID
	if securityID != "" {
		title += " / " + securityID
	}
	return formatLots(title, lots), nil
}

// SummaryReport renders the per-security lot summary of an account.
func (s *Service) SummaryReport(ctx context.Context, accountID string) (string, error) {
	summaries, err := s.ledger.AccountSummary(ctx, accountID)
	if err != nil {
		return "", fmt.Errorf("account summary: %w", err)
	}
	return formatSummaries(accountID, summaries), nil
}

// ReturnsReport computes and renders returns for a request.
func (s *Service) ReturnsReport(ctx context.Context, req models.ReturnsRequest) (string, error) {
	report, err := s.returns.GetReturns(ctx, req)
	if err != nil {
		return "", fmt.Errorf("get returns: %w", err)
	}
	return formatReturns(report), nil
}

// ReturnsChart renders the portfolio returns chart, or a single account's when
// accountID is set.
func (s *Service) ReturnsChart(ctx context.Context, accountID string, periods []models.PeriodCode) ([]byte, error) {
	req := models.ReturnsRequest{Scope: models.ScopePortfolio, Periods: periods}
	if accountID != "" {
		req.Scope = models.ScopeAccount
		req.AccountIDs = []string{accountID}
	}

	report, err := s.returns.GetReturns(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("get returns: %w", err)
	}

	scope, title := report.Portfolio, "Portfolio Returns"
	if accountID != "" {
		if len(report.Accounts) == 0 {
			return nil, fmt.Errorf("account %s: %w", accountID, models.ErrNotFound)
		}
		scope = &report.Accounts[0]
		title = "Returns: " + scope.AccountName
	}

	png, err := RenderReturnsChart(title, scope)
	if err != nil {
		return nil, err
	}
	s.logger.Debug().Str("account", accountID).Int("bytes", len(png)).Msg("Returns chart rendered")
	return png, nil
}
