package app

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bobmcallan/vire-ledger/internal/common"
	"github.com/bobmcallan/vire-ledger/internal/interfaces"
	"github.com/bobmcallan/vire-ledger/internal/metrics"
	"github.com/bobmcallan/vire-ledger/internal/services/ledger"
	"github.com/bobmcallan/vire-ledger/internal/services/reconcile"
	"github.com/bobmcallan/vire-ledger/internal/services/report"
	"github.com/bobmcallan/vire-ledger/internal/services/returns"
	"github.com/bobmcallan/vire-ledger/internal/storage"
)

// App holds all initialized services and storage.
// It is the shared core used by every cmd/vire-ledger subcommand.
type App struct {
	Config           *common.Config
	Logger           *common.Logger
	Storage          interfaces.StorageManager
	Metrics          *metrics.Metrics
	ReconcileService interfaces.ReconcileService
	LedgerService    interfaces.LedgerService
	ReturnsService   interfaces.ReturnsService
	ReportService    *report.Service
	StartupTime      time.Time
}

// getBinaryDir returns the directory containing the executable.
func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// ResolveConfigPath picks the config file: the given path, then VIRE_LEDGER_CONFIG,
// then vire-ledger.toml next to the binary, then config/vire-ledger.toml.
func ResolveConfigPath(configPath string) string {
	if configPath == "" {
		configPath = os.Getenv("VIRE_LEDGER_CONFIG")
	}
	if configPath == "" {
		configPath = filepath.Join(getBinaryDir(), "vire-ledger.toml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = "config/vire-ledger.toml" // fallback for development
		}
	}
	return configPath
}

// NewApp loads configuration, opens storage and wires the services.
// configPath may be empty, in which case ResolveConfigPath decides.
func NewApp(configPath string) (*App, error) {
	startupStart := time.Now()

	// Load version from .version file (fallback if ldflags not set)
	common.LoadVersionFromFile()

	config, err := common.LoadConfig(ResolveConfigPath(configPath))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := common.NewLoggerFromConfig(config.Logging)

	storageManager, err := storage.NewStorageManager(logger, config)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	a := NewAppWithStorage(config, logger, storageManager)
	a.StartupTime = startupStart

	logger.Info().Dur("startup", time.Since(startupStart)).Str("backend", config.Storage.Backend).Msg("App initialized")
	return a, nil
}

// NewAppWithStorage wires the services over an already opened store.
func NewAppWithStorage(config *common.Config, logger *common.Logger, storageManager interfaces.StorageManager) *App {
	m := metrics.New()

	reconcileService := reconcile.NewService(storageManager, logger, m)
	reconcileService.SetLogShortfalls(config.Reconcile.LogShortfalls)
	ledgerService := ledger.NewService(storageManager, logger, m)
	returnsService := returns.NewService(storageManager, logger, m, config.Returns)
	reportService := report.NewService(ledgerService, returnsService, logger)

	return &App{
		Config:           config,
		Logger:           logger,
		Storage:          storageManager,
		Metrics:          m,
		ReconcileService: reconcileService,
		LedgerService:    ledgerService,
		ReturnsService:   returnsService,
		ReportService:    reportService,
		StartupTime:      time.Now(),
	}
}

// Close releases all resources held by the App.
func (a *App) Close() {
	if a.Storage != nil {
		if err := a.Storage.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close storage")
		}
		a.Storage = nil
	}
}
