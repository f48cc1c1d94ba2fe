package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/subcommands"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/vire-ledger/internal/app"
	"github.com/bobmcallan/vire-ledger/internal/common"
	"github.com/bobmcallan/vire-ledger/internal/models"
	"github.com/bobmcallan/vire-ledger/internal/storage/memory"
)

const batchesJSON = `{
  "batches": [
    {
      "account": {"id": "acc1", "name": "Brokerage", "provider": "navexa", "is_active": true, "include_in_allocation": true},
      "snapshot": {
        "synced_at": "2024-03-01T10:00:00Z",
        "status": "success",
        "total_value": "4000",
        "holdings": [{"security_id": "sec-bhp", "ticker": "BHP", "quantity": "100", "price": "40", "value": "4000"}]
      }
    },
    {
      "account": {"id": "acc1", "name": "Brokerage", "provider": "navexa", "is_active": true, "include_in_allocation": true},
      "snapshot": {
        "synced_at": "2024-03-05T10:00:00Z",
        "status": "success",
        "total_value": "2940",
        "holdings": [{"security_id": "sec-bhp", "ticker": "BHP", "quantity": "70", "price": "42", "value": "2940"}]
      },
      "activities": [
        {"external_id": "s1", "type": "sell", "ticker": "BHP", "units": "30", "price": "43", "amount": "1290", "activity_date": "2024-03-04T00:00:00Z"}
      ]
    }
  ]
}`

// useMemoryApp points every command at one shared memory store.
func useMemoryApp(t *testing.T) {
	t.Helper()
	logger := common.NewSilentLogger()
	store := memory.NewStore(logger)
	config := common.NewDefaultConfig()

	prevOpen, prevOut, prevMetrics := openApp, stdout, metricsFile
	openApp = func() (*app.App, error) {
		return app.NewAppWithStorage(config, logger, store), nil
	}
	t.Cleanup(func() {
		openApp, stdout, metricsFile = prevOpen, prevOut, prevMetrics
	})
}

func execute(t *testing.T, cmd subcommands.Command, args ...string) (subcommands.ExitStatus, string) {
	t.Helper()
	var out bytes.Buffer
	stdout = &out

	f := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	f.SetOutput(&bytes.Buffer{})
	cmd.SetFlags(f)
	require.NoError(t, f.Parse(args))
	return cmd.Execute(context.Background(), f), out.String()
}

func writeBatches(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "batches.json")
	require.NoError(t, os.WriteFile(path, []byte(batchesJSON), 0o644))
	return path
}

func TestImportThenLots(t *testing.T) {
	useMemoryApp(t)
	metricsFile = filepath.Join(t.TempDir(), "ledger.prom")

	status, out := execute(t, &importCmd{}, "-banner=false", writeBatches(t))
	require.Equal(t, subcommands.ExitSuccess, status)
	assert.Contains(t, out, "acc1")
	assert.Contains(t, out, "reconciled")

	data, err := os.ReadFile(metricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `ledger_lots_created_total{source="initial"} 1`)
	assert.Contains(t, string(data), `ledger_disposals_created_total{source="activity"} 1`)

	status, out = execute(t, &lotsCmd{}, "-account", "acc1", "-json")
	require.Equal(t, subcommands.ExitSuccess, status)
	var lots []models.HoldingLot
	require.NoError(t, json.Unmarshal([]byte(out), &lots))
	require.Len(t, lots, 1)
	assert.Equal(t, models.LotSourceInitial, lots[0].Source)
	assert.True(t, lots[0].CurrentQuantity.Equal(decimal.NewFromInt(70)), "open quantity %s", lots[0].CurrentQuantity)

	status, out = execute(t, &lotsCmd{}, "-account", "acc1", "-disposals")
	require.Equal(t, subcommands.ExitSuccess, status)
	var disposals []models.LotDisposal
	require.NoError(t, json.Unmarshal([]byte(out), &disposals))
	require.Len(t, disposals, 1)
	assert.True(t, disposals[0].ProceedsPerUnit.Equal(decimal.NewFromInt(43)))

	status, out = execute(t, &lotsCmd{}, "-account", "acc1")
	require.Equal(t, subcommands.ExitSuccess, status)
	assert.Contains(t, out, "BHP")

	status, out = execute(t, &summaryCmd{}, "-account", "acc1")
	require.Equal(t, subcommands.ExitSuccess, status)
	assert.Contains(t, out, "BHP")
}

func TestReassignRejectsWrongTotal(t *testing.T) {
	useMemoryApp(t)
	status, _ := execute(t, &importCmd{}, "-banner=false", writeBatches(t))
	require.Equal(t, subcommands.ExitSuccess, status)

	_, out := execute(t, &lotsCmd{}, "-account", "acc1", "-disposals")
	var disposals []models.LotDisposal
	require.NoError(t, json.Unmarshal([]byte(out), &disposals))
	require.Len(t, disposals, 1)

	status, _ = execute(t, &reassignCmd{}, "-account", "acc1", "-group", disposals[0].GroupID, disposals[0].LotID+"=5")
	assert.Equal(t, subcommands.ExitUsageError, status)
}

func TestCommandsRequireAccount(t *testing.T) {
	useMemoryApp(t)
	for _, cmd := range []subcommands.Command{&lotsCmd{}, &summaryCmd{}, &reconcileCmd{}} {
		status, _ := execute(t, cmd)
		assert.Equal(t, subcommands.ExitUsageError, status, cmd.Name())
	}
	status, _ := execute(t, &importCmd{})
	assert.Equal(t, subcommands.ExitUsageError, status)
}
