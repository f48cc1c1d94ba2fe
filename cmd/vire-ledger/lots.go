package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
)

type lotsCmd struct {
	account   string
	security  string
	closed    bool
	disposals bool
	asJSON    bool
}

func (*lotsCmd) Name() string     { return "lots" }
func (*lotsCmd) Synopsis() string { return "list an account's holding lots in FIFO order" }
func (*lotsCmd) Usage() string {
	return `vire-ledger lots -account <id> [-security <id>] [-closed] [-disposals] [-json]
`
}

func (c *lotsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.account, "account", "", "account ID (required)")
	f.StringVar(&c.security, "security", "", "limit to one security ID")
	f.BoolVar(&c.closed, "closed", false, "include closed lots")
	f.BoolVar(&c.disposals, "disposals", false, "list disposals instead of lots (JSON)")
	f.BoolVar(&c.asJSON, "json", false, "print JSON instead of markdown")
}

func (c *lotsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.account == "" {
		f.Usage()
		return subcommands.ExitUsageError
	}

	a, err := openApp()
	if err != nil {
		return fail(err)
	}
	defer closeApp(a)

	switch {
	case c.disposals:
		disposals, err := a.LedgerService.ListDisposals(ctx, c.account, c.security)
		if err != nil {
			return fail(err)
		}
		if err := writeJSON(stdout, disposals); err != nil {
			return fail(err)
		}
	case c.asJSON:
		lots, err := a.LedgerService.ListLots(ctx, c.account, c.security, c.closed)
		if err != nil {
			return fail(err)
		}
		if err := writeJSON(stdout, lots); err != nil {
			return fail(err)
		}
	default:
		out, err := a.ReportService.LotsReport(ctx, c.account, c.security, c.closed)
		if err != nil {
			return fail(err)
		}
		fmt.Fprint(stdout, out)
	}
	return subcommands.ExitSuccess
}

type summaryCmd struct {
	account string
	asJSON  bool
}

func (*summaryCmd) Name() string { return "summary" }
func (*summaryCmd) Synopsis() string {
	return "per-security lot coverage, cost basis and gains"
}
func (*summaryCmd) Usage() string {
	return `vire-ledger summary -account <id> [-json]

  Uses the latest successful snapshot for market price and held quantity.
`
}

func (c *summaryCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.account, "account", "", "account ID (required)")
	f.BoolVar(&c.asJSON, "json", false, "print JSON instead of markdown")
}

func (c *summaryCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.account == "" {
		f.Usage()
		return subcommands.ExitUsageError
	}

	a, err := openApp()
	if err != nil {
		return fail(err)
	}
	defer closeApp(a)

	if c.asJSON {
		summaries, err := a.LedgerService.AccountSummary(ctx, c.account)
		if err != nil {
			return fail(err)
		}
		if err := writeJSON(stdout, summaries); err != nil {
			return fail(err)
		}
		return subcommands.ExitSuccess
	}

	out, err := a.ReportService.SummaryReport(ctx, c.account)
	if err != nil {
		return fail(err)
	}
	fmt.Fprint(stdout, out)
	return subcommands.ExitSuccess
}

type reassignCmd struct {
	account string
	group   string
}

func (*reassignCmd) Name() string     { return "reassign" }
func (*reassignCmd) Synopsis() string { return "move a disposal group onto different lots" }
func (*reassignCmd) Usage() string {
	return `vire-ledger reassign -account <id> -group <disposal_group_id> <lot_id>=<quantity>...

  Replaces every disposal in the group. Assigned quantities must sum to the
  group's total and fit each destination lot's open quantity.
`
}

func (c *reassignCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.account, "account", "", "account ID (required)")
	f.StringVar(&c.group, "group", "", "disposal group ID (required)")
}

func (c *reassignCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.account == "" || c.group == "" || f.NArg() == 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	assignments, err := parseAssignments(f.Args())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}

	a, err := openApp()
	if err != nil {
		return fail(err)
	}
	defer closeApp(a)

	disposals, err := a.LedgerService.ReassignDisposals(ctx, c.account, c.group, assignments)
	if err != nil {
		return fail(err)
	}
	if err := writeJSON(stdout, disposals); err != nil {
		return fail(err)
	}
	return subcommands.ExitSuccess
}
