// Package app assembles the bridge from configuration for the command binaries.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/healthsync/internal/availability"
	"example.com/healthsync/internal/backend"
	"example.com/healthsync/internal/bridge"
	"example.com/healthsync/internal/config"
	"example.com/healthsync/internal/events"
	"example.com/healthsync/internal/native/companion"
	nativememory "example.com/healthsync/internal/native/memory"
	"example.com/healthsync/internal/observability"
	"example.com/healthsync/internal/persistence"
	kvmemory "example.com/healthsync/internal/persistence/memory"
	kvpostgres "example.com/healthsync/internal/persistence/postgres"
	kvredis "example.com/healthsync/internal/persistence/redis"
)

// CompanionInProcess selects the in-process native store instead of a companion URL.
const CompanionInProcess = "memory"

// App holds the wired bridge components.
type App struct {
	Prober   *availability.Prober
	Runner   *bridge.Runner
	Status   *bridge.StatusReporter
	Resetter *bridge.Resetter

	closers []func() error
}

// New wires the bridge. Callers must Close the returned App.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	a := &App{}

	kv, err := a.openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	cursor := persistence.NewCursorStore(kv)
	dedup := persistence.NewDedupCache(kv, cfg.ExportDedupCapacity)

	a.Prober = availability.NewProber(cfg.HealthPlatform, availability.Static(nativeModule(cfg)))
	client := backend.NewClient(cfg.BackendURL, cfg.BackendToken, cfg.HTTPTimeout)

	importer := bridge.NewImporter(a.Prober, cursor, client,
		bridge.WithThrottleWindow(cfg.ImportThrottleWindow),
		bridge.WithLookbackDays(cfg.ImportLookbackDays),
	)
	exporter := bridge.NewExporter(a.Prober, dedup)

	observers := []bridge.Observer{observability.NewMetricsObserver(), observability.SentryObserver{}}
	if len(cfg.KafkaBrokers) > 0 && cfg.OutcomeTopic != "" {
		producer := events.NewKafkaProducer(cfg.KafkaBrokers)
		a.closers = append(a.closers, producer.Close)
		observers = append(observers, events.NewOutcomePublisher(producer, cfg.OutcomeTopic, logger))
	}

	a.Runner = bridge.NewRunner(importer, exporter,
		bridge.WithInterval(cfg.ImportInterval),
		bridge.WithRoundTimeout(cfg.SyncRoundTimeout),
		bridge.WithPreferences(cfg.Preferences),
		bridge.WithObservers(observers...),
		bridge.WithLogger(logger),
	)
	a.Status = bridge.NewStatusReporter(a.Prober, cursor, dedup)
	a.Resetter = bridge.NewResetter(client, cursor, dedup)
	return a, nil
}

// nativeModule returns the configured native module, or an untyped nil when none is
// linked so the prober reports the integration as unavailable.
func nativeModule(cfg config.Config) any {
	switch cfg.HealthCompanionURL {
	case "":
		return nil
	case CompanionInProcess:
		return nativememory.NewStore()
	default:
		return companion.NewClient(cfg.HealthCompanionURL, cfg.HTTPTimeout)
	}
}

func (a *App) openStore(ctx context.Context, cfg config.Config) (persistence.KV, error) {
	switch cfg.StoreBackend {
	case config.StoreMemory, "":
		return kvmemory.NewStore(), nil
	case config.StoreRedis:
		store, err := kvredis.NewStore(cfg.RedisAddr, cfg.RedisKeyPrefix)
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		a.closers = append(a.closers, store.Close)
		return store, nil
	case config.StorePostgres:
		pool, err := pgxpool.New(ctx, cfg.PostgresURL)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		a.closers = append(a.closers, func() error { pool.Close(); return nil })
		return kvpostgres.NewStore(pool, cfg.StoreOwner), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

// Close releases stores and producers.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
