package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/bobmcallan/vire-ledger/internal/models"
)

type returnsCmd struct {
	scope    string
	accounts string
	periods  string
	inactive bool
	from     string
	to       string
	asJSON   bool
}

func (*returnsCmd) Name() string     { return "returns" }
func (*returnsCmd) Synopsis() string { return "compute money-weighted returns (XIRR)" }
func (*returnsCmd) Usage() string {
	return `vire-ledger returns [-scope portfolio|account|all] [-accounts a,b] [-periods 1M,YTD] [-inactive] [-json]
vire-ledger returns -from <YYYY-MM-DD> -to <YYYY-MM-DD> [-accounts a]

  Reports the annualized money-weighted return per period, ending yesterday.
  With -from and -to, computes one custom window for the portfolio or the
  single account given.
`
}

func (c *returnsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.scope, "scope", "portfolio", "portfolio, account or all")
	f.StringVar(&c.accounts, "accounts", "", "comma separated account IDs")
	f.StringVar(&c.periods, "periods", "", "comma separated periods (default from config)")
	f.BoolVar(&c.inactive, "inactive", false, "include inactive accounts in per-account results")
	f.StringVar(&c.from, "from", "", "custom window start date")
	f.StringVar(&c.to, "to", "", "custom window end date")
	f.BoolVar(&c.asJSON, "json", false, "print JSON instead of markdown")
}

func (c *returnsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	accounts := splitList(c.accounts)

	if c.from != "" || c.to != "" {
		return c.executeRange(ctx, accounts)
	}

	periods, err := parsePeriods(c.periods)
	if err != nil {
		return fail(err)
	}
	req := models.ReturnsRequest{
		Scope:           models.ReturnsScope(c.scope),
		Periods:         periods,
		IncludeInactive: c.inactive,
		AccountIDs:      accounts,
	}

	a, err := openApp()
	if err != nil {
		return fail(err)
	}
	defer closeApp(a)

	if c.asJSON {
		report, err := a.ReturnsService.GetReturns(ctx, req)
		if err != nil {
			return fail(err)
		}
		if err := writeJSON(stdout, report); err != nil {
			return fail(err)
		}
		return subcommands.ExitSuccess
	}

	out, err := a.ReportService.ReturnsReport(ctx, req)
	if err != nil {
		return fail(err)
	}
	fmt.Fprint(stdout, out)
	return subcommands.ExitSuccess
}

func (c *returnsCmd) executeRange(ctx context.Context, accounts []string) subcommands.ExitStatus {
	if c.from == "" || c.to == "" || len(accounts) > 1 {
		fmt.Fprintln(os.Stderr, "a custom window needs both -from and -to and at most one account")
		return subcommands.ExitUsageError
	}
	start, err := parseDate(c.from)
	if err != nil {
		return fail(err)
	}
	end, err := parseDate(c.to)
	if err != nil {
		return fail(err)
	}
	accountID := ""
	if len(accounts) == 1 {
		accountID = accounts[0]
	}

	a, err := openApp()
	if err != nil {
		return fail(err)
	}
	defer closeApp(a)

	result, err := a.ReturnsService.ReturnsForRange(ctx, accountID, start, end)
	if err != nil {
		return fail(err)
	}
	if err := writeJSON(stdout, result); err != nil {
		return fail(err)
	}
	return subcommands.ExitSuccess
}

type chartCmd struct {
	account string
	periods string
	output  string
}

func (*chartCmd) Name() string     { return "chart" }
func (*chartCmd) Synopsis() string { return "render a PNG bar chart of returns per period" }
func (*chartCmd) Usage() string {
	return `vire-ledger chart [-account <id>] [-periods 1M,3M,YTD] [-o returns.png]

  Charts the portfolio, or one account, with one bar per period that has
  sufficient data.
`
}

func (c *chartCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.account, "account", "", "account ID (default: portfolio)")
	f.StringVar(&c.periods, "periods", "", "comma separated periods (default from config)")
	f.StringVar(&c.output, "o", "returns.png", "output file")
}

func (c *chartCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	periods, err := parsePeriods(c.periods)
	if err != nil {
		return fail(err)
	}

	a, err := openApp()
	if err != nil {
		return fail(err)
	}
	defer closeApp(a)

	png, err := a.ReportService.ReturnsChart(ctx, c.account, periods)
	if err != nil {
		return fail(err)
	}
	if err := os.WriteFile(c.output, png, 0o644); err != nil {
		return fail(fmt.Errorf("write chart: %w", err))
	}
	fmt.Fprintf(stdout, "Chart written to %s (%d bytes)\n", c.output, len(png))
	return subcommands.ExitSuccess
}
