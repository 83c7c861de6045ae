package main

import (
	"context"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"BookStore/internal/catalog"
	"BookStore/pkg/kit"
)

const service = "catalog"

type config struct {
	kit.HTTPConfig
	DatabaseURL  string `envconfig:"DATABASE_URL"`
	SeedSample   bool   `envconfig:"SEED_SAMPLE" default:"true"`
	ServiceToken string `envconfig:"SERVICE_TOKEN"`
}

func main() {
	app := &cli.App{
		Name:   service,
		Usage:  "bookstore catalog service",
		Action: serve,
		Commands: []*cli.Command{
			{Name: "serve", Usage: "run the HTTP API", Action: serve},
			{Name: "migrate", Usage: "apply database migrations and seed sample books", Action: migrateDB},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (config, *zap.Logger, error) {
	var cfg config
	if err := kit.LoadConfig(service, &cfg); err != nil {
		return config{}, nil, err
	}
	return cfg, kit.NewLogger(service, cfg.LogLevel), nil
}

func serve(c *cli.Context) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	store, closeStore, err := openStore(c.Context, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	if cfg.ServiceToken == "" {
		log.Warn("SERVICE_TOKEN not set, stock deduct and restock are disabled")
	}

	h := catalog.NewHandler(&catalog.Server{Store: store, Log: log, ServiceToken: cfg.ServiceToken}, catalog.HTTPDeps{
		Log:            log,
		Service:        service,
		Registry:       prometheus.NewRegistry(),
		MetricsEnabled: cfg.MetricsToken != "",
		MetricsToken:   cfg.MetricsToken,
	})

	return kit.RunHTTPServer(c.Context, cfg.Addr("8082"), h, log)
}

func migrateDB(c *cli.Context) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if kit.UsesMemory(cfg.DatabaseURL) {
		return fmt.Errorf("DATABASE_URL is required for migrate")
	}
	_, closeStore, err := openStore(c.Context, cfg, log)
	if err != nil {
		return err
	}
	closeStore()
	return nil
}

func openStore(ctx context.Context, cfg config, log *zap.Logger) (catalog.Store, func(), error) {
	if kit.UsesMemory(cfg.DatabaseURL) {
		log.Info("using in-memory store")
		return catalog.NewStore(), func() {}, nil
	}

	db, err := kit.OpenDB(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	closeDB := func() { _ = db.Close() }

	if err := kit.Migrate(db, catalog.Migrations); err != nil {
		closeDB()
		return nil, nil, err
	}

	store := catalog.NewSQLStore(db)
	if cfg.SeedSample {
		n, err := store.Seed(ctx, catalog.SampleBooks())
		if err != nil {
			closeDB()
			return nil, nil, err
		}
		if n > 0 {
			log.Info("seeded sample books", zap.Int("books", n))
		}
	}

	log.Info("using sql store", zap.String("dialect", db.Dialect))
	return store, closeDB, nil
}
