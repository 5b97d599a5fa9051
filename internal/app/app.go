package app

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bobmcallan/momentum/internal/allocation"
	"github.com/bobmcallan/momentum/internal/clients/eodhd"
	"github.com/bobmcallan/momentum/internal/clients/snapshot"
	"github.com/bobmcallan/momentum/internal/common"
	"github.com/bobmcallan/momentum/internal/interfaces"
	"github.com/bobmcallan/momentum/internal/services/momentum"
	"github.com/bobmcallan/momentum/internal/services/portfolio"
	"github.com/bobmcallan/momentum/internal/services/watchlist"
)

// App holds the configured provider, allocation model and services.
// It is the shared core used by every cmd/momentum subcommand.
type App struct {
	Config           *common.Config
	Logger           *common.Logger
	Provider         interfaces.MarketDataProvider
	Model            *allocation.Model
	MomentumService  interfaces.MomentumService
	PortfolioService interfaces.PortfolioService
	WatchlistService interfaces.WatchlistService
	StartupTime      time.Time

	scheduler *Scheduler
	watchMu   sync.Mutex // one watch run at a time
}

// getBinaryDir returns the directory containing the executable.
func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// ResolveConfigPath picks the config file: the explicit path, MOMENTUM_CONFIG,
// then momentum.toml beside the binary, then config/momentum.toml.
func ResolveConfigPath(configPath string) string {
	if configPath == "" {
		configPath = os.Getenv("MOMENTUM_CONFIG")
	}
	if configPath == "" {
		configPath = filepath.Join(getBinaryDir(), "momentum.toml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = "config/momentum.toml" // fallback for development
		}
	}
	return configPath
}

// NewApp loads configuration and initializes all services.
// configPath may be empty, in which case the default resolution logic is used.
func NewApp(configPath string) (*App, error) {
	// Load version from .version file (fallback if ldflags not set)
	common.LoadVersionFromFile()

	configPath = ResolveConfigPath(configPath)
	config, err := common.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Resolve relative paths against the config file's directory
	baseDir := filepath.Dir(configPath)
	if config.Logging.FilePath != "" && !filepath.IsAbs(config.Logging.FilePath) {
		config.Logging.FilePath = filepath.Join(baseDir, config.Logging.FilePath)
	}
	if config.Clients.Snapshot.Path != "" && !filepath.IsAbs(config.Clients.Snapshot.Path) {
		config.Clients.Snapshot.Path = filepath.Join(baseDir, config.Clients.Snapshot.Path)
	}

	logger := common.NewLoggerFromConfig(config.Logging)
	logger.Debug().Str("config", configPath).Msg("Configuration loaded")

	return New(config, logger)
}

// New wires the services for an already loaded configuration.
func New(config *common.Config, logger *common.Logger) (*App, error) {
	startupStart := time.Now()
	if logger == nil {
		logger = common.NewSilentLogger()
	}

	provider, err := newProvider(config, logger)
	if err != nil {
		return nil, err
	}

	model, err := allocation.NewModel(config.Allocation.Categories,
		allocation.WithAllowPartialTargets(config.Allocation.AllowPartialTargets),
		allocation.WithDefaultBenchmark(config.Scoring.DefaultBenchmark),
		allocation.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("invalid allocation model: %w", err)
	}

	engine := momentum.NewEngine(provider, model, logger, momentum.WithConfig(config.Scoring))
	analyzer := portfolio.NewAnalyzer(provider, engine, model, logger, portfolio.WithConfig(config.Scoring))
	gaps := watchlist.NewGapAnalyzer(analyzer, engine, model, logger, watchlist.WithConfig(config.Watchlist))

	a := &App{
		Config:           config,
		Logger:           logger,
		Provider:         provider,
		Model:            model,
		MomentumService:  engine,
		PortfolioService: analyzer,
		WatchlistService: gaps,
		StartupTime:      startupStart,
	}

	logger.Info().
		Str("provider", config.Provider).
		Int("categories", model.Len()).
		Str("startup", time.Since(startupStart).String()).
		Msg("App initialized")

	return a, nil
}

// newProvider builds the configured market data provider.
func newProvider(config *common.Config, logger *common.Logger) (interfaces.MarketDataProvider, error) {
	switch config.Provider {
	case "snapshot":
		if config.Clients.Snapshot.Path == "" {
			return nil, &common.ValidationError{Field: "clients.snapshot.path", Reason: "is required for the snapshot provider"}
		}
		p, err := snapshot.Load(config.Clients.Snapshot.Path, logger)
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		cfg := config.Clients.EODHD
		if cfg.APIKey == "" {
			return nil, &common.ValidationError{Field: "clients.eodhd.api_key", Reason: "is required (set EODHD_API_KEY)"}
		}
		opts := []eodhd.ClientOption{
			eodhd.WithLogger(logger),
			eodhd.WithRateLimit(cfg.RateLimit),
			eodhd.WithTimeout(cfg.GetTimeout()),
			eodhd.WithDefaultExchange(cfg.DefaultExchange),
			eodhd.WithSectorPE(cfg.SectorPE),
		}
		if cfg.BaseURL != "" {
			opts = append(opts, eodhd.WithBaseURL(cfg.BaseURL))
		}
		return eodhd.NewClient(cfg.APIKey, opts...), nil
	}
}

// Close releases all resources held by the App.
func (a *App) Close() {
	if a.scheduler != nil {
		a.scheduler.Stop()
		a.scheduler = nil
	}
}

