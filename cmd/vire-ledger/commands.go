package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/subcommands"
	"github.com/shopspring/decimal"

	"github.com/bobmcallan/vire-ledger/internal/app"
	"github.com/bobmcallan/vire-ledger/internal/interfaces"
	"github.com/bobmcallan/vire-ledger/internal/models"
)

var commands = []subcommands.Command{
	&importCmd{},
	&reconcileCmd{},
	&returnsCmd{},
	&lotsCmd{},
	&summaryCmd{},
	&reassignCmd{},
	&chartCmd{},
}

const dateLayout = "2006-01-02"

// stdout receives command output.
var stdout io.Writer = os.Stdout

var openApp = func() (*app.App, error) {
	a, err := app.NewApp(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize app: %w", err)
	}
	return a, nil
}

// closeApp writes the -metrics-file counters, if requested, then closes a.
func closeApp(a *app.App) {
	if metricsFile != "" {
		if err := a.Metrics.WriteTextfile(metricsFile); err != nil {
			a.Logger.Warn().Err(err).Str("path", metricsFile).Msg("Failed to write metrics file")
		} else {
			a.Logger.Debug().Str("path", metricsFile).Msg("Metrics written")
		}
	}
	a.Close()
}

// fail prints err and maps validation errors to a usage exit code.
func fail(err error) subcommands.ExitStatus {
	fmt.Fprintln(os.Stderr, err)
	if errors.Is(err, models.ErrValidation) {
		return subcommands.ExitUsageError
	}
	return subcommands.ExitFailure
}

// splitList splits a comma separated flag value, dropping empty items.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parsePeriods(s string) ([]models.PeriodCode, error) {
	var periods []models.PeriodCode
	for _, p := range splitList(s) {
		code, err := models.ParsePeriodCode(p)
		if err != nil {
			return nil, err
		}
		periods = append(periods, code)
	}
	return periods, nil
}

func parseDate(s string) (time.Time, error) {
	d, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD): %w", s, err)
	}
	return d, nil
}

// parseAssignments reads "lot_id=quantity" arguments.
func parseAssignments(args []string) ([]interfaces.DisposalAssignment, error) {
	out := make([]interfaces.DisposalAssignment, 0, len(args))
	for _, arg := range args {
		lotID, qty, ok := strings.Cut(arg, "=")
		if !ok || lotID == "" {
			return nil, fmt.Errorf("invalid assignment %q (want lot_id=quantity)", arg)
		}
		q, err := decimal.NewFromString(qty)
		if err != nil {
			return nil, fmt.Errorf("invalid quantity in %q: %w", arg, err)
		}
		out = append(out, interfaces.DisposalAssignment{LotID: lotID, Quantity: q})
	}
	return out, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
