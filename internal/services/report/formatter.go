package report

import (
	"fmt"
	"strings"

	"github.com/bobmcallan/vire-ledger/internal/models"
	"github.com/shopspring/decimal"
)

func formatMoney(d decimal.Decimal) string {
	if d.IsNegative() {
		return "-$" + d.Neg().StringFixed(2)
	}
	return "$" + d.StringFixed(2)
}

func formatOptionalMoney(d *decimal.Decimal) string {
	if d == nil {
		return "-"
	}
	return formatMoney(*d)
}

func formatValue(v *float64) string {
	if v == nil {
		return "-"
	}
	return formatMoney(decimal.NewFromFloat(*v))
}

func formatRate(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%+.2f%%", *v*100)
}

func formatDate(lot *models.HoldingLot) string {
	if lot.AcquisitionDate == nil {
		return "unknown"
	}
	return lot.AcquisitionDate.Format("2006-01-02")
}

// formatLots renders lots as a markdown table in the order given.
func formatLots(title string, lots []*models.HoldingLot) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("## %s\n\n", title))
	if len(lots) == 0 {
		sb.WriteString("No lots.\n")
		return sb.String()
	}

	sb.WriteString("| Ticker | Acquired | Source | Original | Open | Cost/Unit | Cost Basis | Status |\n")
	sb.WriteString("|--------|----------|--------|----------|------|-----------|------------|--------|\n")

	total := decimal.Zero
	for _, l := range lots {
		status := "open"
		if l.IsClosed {
			status = "closed"
		}
		total = total.Add(l.TotalCostBasis())
		sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s | %s | %s | %s |\n",
			l.Ticker, formatDate(l), l.Source,
			l.OriginalQuantity.String(), l.CurrentQuantity.String(),
			formatMoney(l.CostBasisPerUnit), formatMoney(l.TotalCostBasis()), status,
		))
	}
	sb.WriteString(fmt.Sprintf("| **Total** | | | | | | **%s** | |\n", formatMoney(total)))
	return sb.String()
}

// formatSummaries renders per-security lot summaries as a markdown table.
func formatSummaries(accountID string, summaries []*models.LotSummary) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("## Lot Summary: %s\n\n", accountID))
	if len(summaries) == 0 {
		sb.WriteString("No positions.\n")
		return sb.String()
	}

	sb.WriteString("| Ticker | Lots | Lotted | Held | Coverage | Cost Basis | Unrealized | Realized |\n")
	sb.WriteString("|--------|------|--------|------|----------|------------|------------|----------|\n")

	for _, s := range summaries {
		held, coverage := "-", "-"
		if s.TotalHeldQuantity != nil {
			held = s.TotalHeldQuantity.String()
		}
		if s.LotCoverage != nil {
			coverage = s.LotCoverage.Mul(decimal.NewFromInt(100)).StringFixed(1) + "%"
		}
		sb.WriteString(fmt.Sprintf("| %s | %d | %s | %s | %s | %s | %s | %s |\n",
			s.Ticker, s.LotCount, s.LottedQuantity.String(), held, coverage,
			formatMoney(s.TotalCostBasis), formatOptionalMoney(s.UnrealizedGainLoss),
			formatMoney(s.RealizedGainLoss),
		))
	}
	return sb.String()
}

// formatReturns renders every scope of a returns report, one table per scope.
func formatReturns(report *models.ReturnsReport) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("# Money-Weighted Returns (as of %s)\n\n", report.AsOf.Format("2006-01-02")))

	if report.Portfolio != nil {
		writeScope(&sb, "Portfolio", report.Portfolio)
	}
	for i := range report.Accounts {
		a := &report.Accounts[i]
		name := a.AccountName
		if name == "" {
			name = a.AccountID
		}
		writeScope(&sb, "Account: "+name, a)
	}
	return sb.String()
}

func writeScope(sb *strings.Builder, title string, scope *models.ScopeReturns) {
	sb.WriteString(fmt.Sprintf("## %s\n\n", title))
	sb.WriteString("| Period | Start | End | Start Value | End Value | Flows | IRR |\n")
	sb.WriteString("|--------|-------|-----|-------------|-----------|-------|-----|\n")
	for _, p := range scope.Periods {
		end := formatValue(p.EndValue)
		if p.EndValueInferred {
			end += " (inferred)"
		}
		irr := formatRate(p.IRR)
		if p.IRRAtFloor {
			irr = "≤ " + irr
		}
		sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s | %d | %s |\n",
			p.Period, p.StartDate.Format("2006-01-02"), p.EndDate.Format("2006-01-02"),
			formatValue(p.StartValue), end, p.CashFlowCount, irr,
		))
	}
	sb.WriteString("\n")
}
