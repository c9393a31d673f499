package main

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	glog "github.com/goliatone/go-logger/glog"
	persistence "github.com/goliatone/go-persistence-bun"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/schema"

	"github.com/maskia-arch/esimconnect/command"
	"github.com/maskia-arch/esimconnect/core"
	"github.com/maskia-arch/esimconnect/dashboard"
	"github.com/maskia-arch/esimconnect/fulfillment"
	"github.com/maskia-arch/esimconnect/ledger"
	"github.com/maskia-arch/esimconnect/migrations"
	"github.com/maskia-arch/esimconnect/provisioning"
	"github.com/maskia-arch/esimconnect/query"
	"github.com/maskia-arch/esimconnect/server"
	"github.com/maskia-arch/esimconnect/stats"
	sqlstore "github.com/maskia-arch/esimconnect/store/sql"
	"github.com/maskia-arch/esimconnect/webhooks"
)

const snapshotCacheTTL = 30 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "esimconnect: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	if err := cfg.ValidateRequiredSecrets(); err != nil {
		return err
	}

	_, logger := glog.Resolve(cfg.ServiceName, nil, nil)
	logger.Info("starting service",
		"service", cfg.ServiceName,
		"log_level", cfg.LogLevel,
		"port", cfg.Server.Port,
		"stats_driver", cfg.Stats.Driver,
	)

	client, err := openPersistence(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := client.Close(); err != nil {
			logger.Error("closing database", "error", err)
		}
	}()

	eventStore, err := sqlstore.NewFulfillmentEventStoreFromPersistence(client)
	if err != nil {
		return err
	}
	cacheService, err := sqlstore.NewSnapshotCacheService(snapshotCacheTTL)
	if err != nil {
		return err
	}
	snapshots, err := sqlstore.NewCachedSnapshotStore(eventStore, cacheService)
	if err != nil {
		return err
	}

	statsService, err := stats.NewService(eventStore, snapshots)
	if err != nil {
		return err
	}
	statsService.Interval = cfg.Stats.FlushInterval()
	statsService.Logger = logger

	ldg := ledger.NewMemoryLedger(cfg.Ledger.Retention())
	sweeper := ledger.NewSweeper(ldg, cfg.Ledger.SweepInterval(), logger)

	provider, err := provisioning.NewClient(provisioning.Config{
		AccessCode:     cfg.Provider.AccessCode,
		BaseURL:        cfg.Provider.BaseURL,
		BurstPolls:     cfg.Provider.BurstPolls,
		BurstInterval:  cfg.Provider.BurstInterval(),
		PollInterval:   cfg.Provider.PollInterval(),
		MaxAttempts:    cfg.Provider.MaxPollAttempts,
		RequestTimeout: cfg.Provider.RequestTimeout(),
	})
	if err != nil {
		return err
	}

	composer := fulfillment.NewTemplateComposer(fulfillment.DeliveryTemplates...)
	orchestrator, err := fulfillment.NewOrchestrator(ldg, provider, composer)
	if err != nil {
		return err
	}
	orchestrator.Stats = statsService
	orchestrator.Logger = logger

	webhook, err := webhooks.NewHandler(webhooks.HMACVerifier{Secret: cfg.Sellauth.Secret}, orchestrator)
	if err != nil {
		return err
	}
	webhook.Logger = logger

	admin, err := dashboard.NewHandler(
		dashboard.BasicAuth{
			Username: cfg.Admin.Username,
			Password: cfg.Admin.Password,
		},
		query.NewStatsSnapshotQuery(statsService),
		command.NewResetFulfillmentCommand(ldg),
		command.NewFlushStatsCommand(statsService),
	)
	if err != nil {
		return err
	}
	admin.Logger = logger

	srv, err := server.New(fmt.Sprintf(":%d", cfg.Server.Port), webhook, admin)
	if err != nil {
		return err
	}
	srv.Logger = logger

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		sweeper.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		statsService.Run(ctx)
	}()

	err = srv.ListenAndServe(ctx)

	// Run loops exit on the same ctx; the stats loop flushes its queue on
	// the way out, so wait before closing the database.
	wg.Wait()

	if err != nil {
		return err
	}
	logger.Info("service stopped")
	return nil
}

func loadConfig(ctx context.Context) (core.Config, error) {
	defaults := core.DefaultConfig()
	provider := core.NewCfgxConfigProvider(core.NewEnvRawConfigLoader())
	loaded, err := provider.Load(ctx, defaults)
	if err != nil {
		return core.Config{}, err
	}
	return core.GoOptionsResolver{}.Resolve(defaults, loaded, core.Config{})
}

type persistenceConfig struct {
	cfg core.Config
}

func (p persistenceConfig) GetDebug() bool {
	return p.cfg.LogLevel == "debug"
}

func (p persistenceConfig) GetDriver() string {
	return p.cfg.Stats.Driver
}

func (p persistenceConfig) GetServer() string {
	return p.cfg.Stats.DSN
}

func (p persistenceConfig) GetPingTimeout() time.Duration {
	return 5 * time.Second
}

func (p persistenceConfig) GetOtelIdentifier() string {
	return p.cfg.ServiceName
}

func openPersistence(ctx context.Context, cfg core.Config, logger core.Logger) (*persistence.Client, error) {
	var dialect schema.Dialect
	switch cfg.Stats.Driver {
	case "sqlite3":
		dialect = sqlitedialect.New()
	case "postgres":
		dialect = pgdialect.New()
	default:
		return nil, fmt.Errorf("unsupported stats driver %q", cfg.Stats.Driver)
	}

	sqlDB, err := sql.Open(cfg.Stats.Driver, cfg.Stats.DSN)
	if err != nil {
		return nil, fmt.Errorf("open stats database: %w", err)
	}
	if cfg.Stats.Driver == "sqlite3" {
		sqlDB.SetMaxOpenConns(1)
	}

	client, err := persistence.New(persistenceConfig{cfg: cfg}, sqlDB, dialect)
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("persistence client: %w", err)
	}

	registerFn := func(_ context.Context, _ string, fsys fs.FS) error {
		client.RegisterSQLMigrations(fsys)
		return nil
	}
	dialectName, err := migrations.DialectForDriver(cfg.Stats.Driver)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	if err := migrations.Register(ctx, registerFn, dialectName); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("register migrations: %w", err)
	}
	if err := client.Migrate(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("stats database ready", "driver", cfg.Stats.Driver)
	return client, nil
}
