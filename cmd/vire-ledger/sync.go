package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/bobmcallan/vire-ledger/internal/common"
)

type importCmd struct {
	banner bool
}

func (*importCmd) Name() string     { return "import" }
func (*importCmd) Synopsis() string { return "import JSON sync batches and reconcile lots" }
func (*importCmd) Usage() string {
	return `vire-ledger import [-banner] <batches.json>...

  Persists each batch's account, snapshot, activities and daily values in
  file order, then reconciles the account's lots against its previous
  successful snapshot. Reconciliation failures are logged, not fatal.
`
}

func (c *importCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.banner, "banner", true, "print the startup banner")
}

func (c *importCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}

	a, err := openApp()
	if err != nil {
		return fail(err)
	}
	defer closeApp(a)

	if c.banner {
		common.PrintBanner(os.Stderr, a.Config, a.Logger)
	}

	for _, file := range f.Args() {
		results, err := a.ImportBatchFile(ctx, file)
		for _, r := range results {
			status := "reconciled"
			switch {
			case r.AlreadySynced:
				status = "already synced"
			case !r.Reconciled:
				status = "not reconciled"
			}
			fmt.Fprintf(stdout, "%s  snapshot %s  activities +%d (dup %d)  %s\n",
				r.AccountID, r.SnapshotID, r.ActivitiesSaved, r.ActivitiesSkipped, status)
		}
		if err != nil {
			return fail(err)
		}
	}
	return subcommands.ExitSuccess
}

type reconcileCmd struct {
	account string
}

func (*reconcileCmd) Name() string { return "reconcile" }
func (*reconcileCmd) Synopsis() string {
	return "re-run reconciliation of an account's latest snapshot"
}
func (*reconcileCmd) Usage() string {
	return `vire-ledger reconcile -account <id>

  Reconciles the latest successful snapshot against the one before it.
  Use after a sync whose reconciliation failed; running it twice on the
  same snapshot pair records the delta twice.
`
}

func (c *reconcileCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.account, "account", "", "account ID (required)")
}

func (c *reconcileCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.account == "" {
		f.Usage()
		return subcommands.ExitUsageError
	}

	a, err := openApp()
	if err != nil {
		return fail(err)
	}
	defer closeApp(a)

	result, err := a.ReconcileLatest(ctx, c.account)
	if err != nil {
		return fail(err)
	}
	if err := writeJSON(stdout, result); err != nil {
		return fail(err)
	}
	return subcommands.ExitSuccess
}
