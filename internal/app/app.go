package app

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/fiscus/internal/common"
	"github.com/ternarybob/fiscus/internal/extractor"
	"github.com/ternarybob/fiscus/internal/handlers"
	"github.com/ternarybob/fiscus/internal/interfaces"
	"github.com/ternarybob/fiscus/internal/models"
	"github.com/ternarybob/fiscus/internal/nse"
	"github.com/ternarybob/fiscus/internal/services/fiscal"
	"github.com/ternarybob/fiscus/internal/services/health"
	"github.com/ternarybob/fiscus/internal/services/quotes"
	"github.com/ternarybob/fiscus/internal/services/results"
	"github.com/ternarybob/fiscus/internal/services/scheduler"
	"github.com/ternarybob/fiscus/internal/services/sync"
	badgerstorage "github.com/ternarybob/fiscus/internal/storage/badger"
)

// App holds all application components and dependencies
type App struct {
	Config         *common.Config
	Logger         arbor.ILogger
	StorageManager interfaces.StorageManager

	// Market session calendar
	Calendar *common.MarketCalendar

	// Upstream collaborators
	MarketClient interfaces.MarketDataClient
	Extractor    interfaces.ResultsExtractor

	// Core services
	HealthRegistry   *health.Registry
	SchedulerService *scheduler.Service
	QuotePoller      *quotes.Poller
	SyncService      *sync.Service
	Comparator       *fiscal.Comparator
	ResultsMonitor   *results.Monitor
	ResultsProcessor *results.Processor

	// HTTP handlers
	APIHandler   *handlers.APIHandler
	JobHandler   *handlers.JobHandler
	QuoteHandler *handlers.QuoteHandler
}

// New initializes the application with all dependencies
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	if err := app.initDatabase(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := app.initServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.initHandlers()

	if err := app.seedInstruments(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to seed instruments: %w", err)
	}

	if err := app.registerJobs(); err != nil {
		return nil, fmt.Errorf("failed to register jobs: %w", err)
	}

	logger.Info().
		Int("instruments", len(cfg.Instruments)).
		Str("timezone", cfg.Market.Timezone).
		Msg("Application initialization complete")

	return app, nil
}

// initDatabase initializes the storage layer (Badger)
func (a *App) initDatabase() error {
	storageManager, err := badgerstorage.NewManager(a.Logger, &a.Config.Storage.Badger)
	if err != nil {
		return fmt.Errorf("failed to create storage manager: %w", err)
	}

	a.StorageManager = storageManager
	a.Logger.Debug().
		Str("storage", "badger").
		Str("path", a.Config.Storage.Badger.Path).
		Msg("Storage layer initialized")

	return nil
}

// initServices wires the calendar, upstream clients and domain services
func (a *App) initServices() error {
	calendar, err := common.NewMarketCalendar(a.Config.Market)
	if err != nil {
		return fmt.Errorf("failed to build market calendar: %w", err)
	}
	a.Calendar = calendar

	a.MarketClient = nse.NewClient(
		nse.WithBaseURL(a.Config.Upstream.BaseURL),
		nse.WithRateLimit(a.Config.Upstream.RateLimit),
		nse.WithUserAgent(a.Config.Upstream.UserAgent),
		nse.WithLogger(a.Logger),
	)

	a.Extractor = extractor.NewClient(
		a.Config.Extractor.BaseURL,
		extractor.WithLogger(a.Logger),
	)

	a.HealthRegistry = health.NewRegistry(
		a.StorageManager.MetricStorage(),
		a.Config.Metrics.AlertThreshold,
		a.Logger,
	)
	a.SchedulerService = scheduler.NewService(a.HealthRegistry, a.StorageManager.MetricStorage(), a.Logger)

	a.QuotePoller = quotes.NewPoller(
		a.StorageManager.InstrumentStorage(),
		a.MarketClient,
		calendar,
		a.Config.Quotes,
		a.Logger,
	)

	a.SyncService = sync.NewService(
		a.StorageManager.InstrumentStorage(),
		a.StorageManager.SeriesStorage(),
		a.MarketClient,
		calendar,
		a.Config.Sync,
		a.Logger,
	)

	a.Comparator = fiscal.NewComparator(a.StorageManager.QuarterlyStorage(), a.Logger)

	a.ResultsMonitor = results.NewMonitor(
		a.MarketClient,
		a.StorageManager.InstrumentStorage(),
		a.StorageManager.PublicationStorage(),
		a.Config.Fiscal,
		a.Config.Sync.AnnouncementDays,
		a.Logger,
	)
	a.ResultsProcessor = results.NewProcessor(
		a.StorageManager.PublicationStorage(),
		a.Extractor,
		a.Comparator,
		a.Config.Extractor.ConfidenceThreshold,
		a.Logger,
	)

	return nil
}

// initHandlers creates the HTTP handlers over the services
func (a *App) initHandlers() {
	a.APIHandler = handlers.NewAPIHandler()
	a.JobHandler = handlers.NewJobHandler(a.SchedulerService, a.Logger)
	a.QuoteHandler = handlers.NewQuoteHandler(a.QuotePoller, a.Logger)
}

// seedInstruments upserts the configured instrument universe. Symbols
// already present keep their sync state; symbols removed from config are
// deactivated rather than deleted.
func (a *App) seedInstruments(ctx context.Context) error {
	storage := a.StorageManager.InstrumentStorage()

	configured := make(map[string]bool, len(a.Config.Instruments))
	for _, symbol := range a.Config.Instruments {
		configured[symbol] = true

		existing, err := storage.Get(ctx, symbol)
		if err == nil {
			if !existing.Active {
				existing.Active = true
				if err := storage.Upsert(ctx, existing); err != nil {
					return err
				}
			}
			continue
		}

		if err := storage.Upsert(ctx, &models.Instrument{Symbol: symbol, Active: true}); err != nil {
			return err
		}
		a.Logger.Info().Str("symbol", symbol).Msg("Instrument added to universe")
	}

	all, err := storage.List(ctx, false)
	if err != nil {
		return err
	}
	for _, inst := range all {
		if inst.Active && !configured[inst.Symbol] {
			inst.Active = false
			if err := storage.Upsert(ctx, inst); err != nil {
				return err
			}
			a.Logger.Info().Str("symbol", inst.Symbol).Msg("Instrument deactivated, no longer configured")
		}
	}

	return nil
}

// registerJobs binds every recurring job to its schedule
func (a *App) registerJobs() error {
	jobs := []struct {
		name        string
		schedule    string
		description string
		body        scheduler.JobFunc
	}{
		{
			name:        "live price",
			schedule:    a.Config.Jobs.LivePrice,
			description: "Live quote polling during market hours",
			body: func(ctx context.Context) (int, error) {
				return a.QuotePoller.Tick(ctx, time.Now())
			},
		},
		{
			name:        "price refresh",
			schedule:    a.Config.Jobs.PriceRefresh,
			description: "Off-hours quote keepalive",
			body: func(ctx context.Context) (int, error) {
				return a.QuotePoller.KeepAlive(ctx, time.Now())
			},
		},
		{
			name:        "candlesticks",
			schedule:    a.Config.Jobs.Candlesticks,
			description: "Incremental daily candle sync",
			body:        a.SyncService.SyncCandles,
		},
		{
			name:        "delivery",
			schedule:    a.Config.Jobs.Delivery,
			description: "Incremental delivery volume sync",
			body:        a.SyncService.SyncDeliveries,
		},
		{
			name:        "quarterly financials",
			schedule:    a.Config.Jobs.Quarterly,
			description: "Process detected results publications",
			body:        a.ResultsProcessor.ProcessPending,
		},
		{
			name:        "results calendar",
			schedule:    a.Config.Jobs.ResultsCalendar,
			description: "Scan announcements for results publications",
			body:        a.ResultsMonitor.Scan,
		},
		{
			name:        "metrics retention",
			schedule:    a.Config.Jobs.MetricsPrune,
			description: "Prune job metrics past retention",
			body: func(ctx context.Context) (int, error) {
				cutoff := time.Now().AddDate(0, 0, -a.Config.Metrics.RetentionDays)
				pruned, err := a.StorageManager.MetricStorage().PruneOlderThan(ctx, cutoff)
				if err != nil {
					return pruned, err
				}
				return pruned, a.StorageManager.RunGC()
			},
		},
	}

	for _, job := range jobs {
		if err := a.SchedulerService.RegisterJob(job.name, job.schedule, job.description, job.body); err != nil {
			return fmt.Errorf("failed to register job %s: %w", job.name, err)
		}
	}

	return nil
}

// Start begins scheduled job execution
func (a *App) Start() error {
	return a.SchedulerService.Start()
}

// Close shuts down services and storage in dependency order
func (a *App) Close() error {
	if a.SchedulerService != nil && a.SchedulerService.IsRunning() {
		if err := a.SchedulerService.Stop(); err != nil {
			a.Logger.Warn().Err(err).Msg("Scheduler stop failed")
		}
	}

	if a.StorageManager != nil {
		if err := a.StorageManager.Close(); err != nil {
			return fmt.Errorf("failed to close storage: %w", err)
		}
	}

	a.Logger.Info().Msg("Application closed")
	return nil
}
