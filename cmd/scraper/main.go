package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	pkgconfig "github.com/sbconlon/mlb-scraper/internal/pkg/config"
	"github.com/sbconlon/mlb-scraper/internal/pkg/health"
	"github.com/sbconlon/mlb-scraper/internal/pkg/logging"
	"github.com/sbconlon/mlb-scraper/internal/pkg/metrics"
	"github.com/sbconlon/mlb-scraper/internal/pkg/notify"
	"github.com/sbconlon/mlb-scraper/internal/pkg/oddsapi"
	"github.com/sbconlon/mlb-scraper/internal/pkg/scoreboard"
	"github.com/sbconlon/mlb-scraper/internal/pkg/storage"
	"github.com/sbconlon/mlb-scraper/internal/pkg/stream"
	"github.com/sbconlon/mlb-scraper/internal/tracker"
)

const (
	defaultConfigPath = "configs/production.yaml"
	serviceName       = "mlb-scraper"
)

type config struct {
	configPath string
	runFor     time.Duration
}

func main() {
	if err := run(); err != nil {
		slog.Error("Scraper failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := parseFlags()
	slog.Info("Loading config", "path", cfg.configPath)

	appConfig, err := pkgconfig.Load(cfg.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if _, err := logging.SetupLogger(&appConfig.Logging, serviceName); err != nil {
		slog.Warn("Failed to setup file logging, continuing on stdout", "error", err)
	}

	runID := uuid.NewString()
	loc := appConfig.Location()
	slog.Info("Starting scraper", "run_id", runID, "timezone", loc.String())

	teams, err := tracker.LoadTeamTable(appConfig.TeamsFile)
	if err != nil {
		return fmt.Errorf("failed to load team table: %w", err)
	}

	ctx, cancel := createContext(cfg.runFor)
	defer cancel()
	setupSignalHandler(ctx, cancel)

	m := metrics.New()

	hub := stream.NewHub()
	go hub.Run(ctx)

	sinks, err := storage.Open(ctx, appConfig.Storage, runID, hub, m)
	if err != nil {
		return err
	}
	defer func() {
		if err := sinks.Close(); err != nil {
			slog.Warn("Failed to close storage", "error", err)
		}
	}()

	notifiers, stop, err := buildNotifiers(appConfig.Notify, m)
	if err != nil {
		return err
	}
	defer stop()

	var odds tracker.OddsSource
	if appConfig.Odds.APIKey != "" {
		odds = oddsapi.NewClient(appConfig.Odds, func(home string, commence time.Time) (string, error) {
			return teams.Prefix(home, commence.In(loc))
		})
	} else {
		slog.Warn("odds.api_key not set, running without betting lines")
	}

	store := health.NewStore()
	if port := appConfig.Health.Port; port > 0 {
		addr, err := health.AddrFor(port)
		if err != nil {
			return err
		}
		opts := health.Options{Store: store, Registry: m.Registry(), Stream: hub}
		if err := health.Run(ctx, addr, serviceName, opts, appConfig.Health.ReadHeaderTimeout); err != nil {
			return err
		}
	}

	polling := appConfig.Polling
	ids := tracker.NewIDGenerator()
	newDriver := func() *tracker.Driver {
		return tracker.NewDriver(scoreboard.NewBrowser(appConfig.Scoreboard), odds, sinks, notifiers, tracker.Options{
			Teams:    teams,
			IDs:      ids,
			Location: loc,
			Schedule: tracker.Schedule{
				PollInterval: polling.Interval,
				MinWait:      polling.MinWait,
				IdleWait:     polling.IdleWait,
				StartGrace:   polling.StartGrace,
			},
			Staleness: tracker.StalenessPolicy{
				WarnAfter:     polling.StaleWarnAfter,
				ConcludeAfter: polling.StaleConcludeAfter,
			},
			Metrics: m,
			Publish: store.Publish,
		})
	}

	return tracker.Supervise(ctx, newDriver, notifiers, polling.RestartDelay, m)
}

// buildNotifiers returns the configured alert channels and a function that
// flushes them on shutdown.
func buildNotifiers(cfg pkgconfig.NotifyConfig, m *metrics.Metrics) (*notify.Multi, func(), error) {
	var (
		list  []notify.Notifier
		stops []func()
	)
	if cfg.Telegram.BotToken != "" {
		tg, err := notify.NewTelegram(cfg.Telegram)
		if err != nil {
			return nil, nil, err
		}
		list = append(list, tg)
		stops = append(stops, tg.Stop)
	}
	if cfg.Email.SMTPHost != "" && cfg.Email.Recipient != "" {
		list = append(list, notify.NewEmail(cfg.Email))
	}
	if len(list) == 0 {
		slog.Info("No notifiers configured, alerts go to the log only")
	}
	stop := func() {
		for _, s := range stops {
			s()
		}
	}
	return notify.NewMulti(m, list...), stop, nil
}

func parseFlags() config {
	var cfg config

	defaultConfig := os.Getenv("CONFIG_PATH")
	if defaultConfig == "" {
		defaultConfig = defaultConfigPath
	}

	flag.StringVar(&cfg.configPath, "config", defaultConfig, "Path to config file (can be set via CONFIG_PATH env var)")
	flag.DurationVar(&cfg.runFor, "run-for", 0, "Auto-stop after duration (e.g. 10m, 3h). 0 = run until SIGINT/SIGTERM")
	flag.Parse()
	return cfg
}

func createContext(runFor time.Duration) (context.Context, context.CancelFunc) {
	if runFor > 0 {
		return context.WithTimeout(context.Background(), runFor)
	}
	return context.WithCancel(context.Background())
}

func setupSignalHandler(ctx context.Context, cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("Received shutdown signal, stopping scraper...", "signal", sig.String())
			cancel()
		case <-ctx.Done():
			signal.Stop(sigChan)
		}
	}()
}
