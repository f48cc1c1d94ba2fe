package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"
	"github.com/joho/godotenv"
)

// Global flags shared by every subcommand.
var (
	configPath  string
	metricsFile string
)

func main() {
	// A missing .env is fine; the environment and config file still apply.
	_ = godotenv.Load()

	flag.StringVar(&configPath, "config", "", "path to vire-ledger.toml (default: VIRE_LEDGER_CONFIG, then next to the binary)")
	flag.StringVar(&metricsFile, "metrics-file", "", "write Prometheus counters here after the command (textfile collector format)")

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")

	for _, c := range commands {
		commander.Register(c, "ledger")
	}

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}
