package main

import (
	"context"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"BookStore/internal/order"
	"BookStore/pkg/kit"
)

const service = "order"

type config struct {
	kit.HTTPConfig
	DatabaseURL  string `envconfig:"DATABASE_URL"`
	CatalogURL   string `envconfig:"CATALOG_URL" default:"http://localhost:8082"`
	ServiceToken string `envconfig:"SERVICE_TOKEN"`
	RabbitMQURL  string `envconfig:"RABBITMQ_URL"`
	Exchange     string `envconfig:"EVENTS_EXCHANGE" default:"bookstore.events"`
}

func main() {
	app := &cli.App{
		Name:   service,
		Usage:  "bookstore order service",
		Action: serve,
		Commands: []*cli.Command{
			{Name: "serve", Usage: "run the HTTP API", Action: serve},
			{Name: "migrate", Usage: "apply database migrations", Action: migrateDB},
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

	events, err := kit.NewPublisher(cfg.RabbitMQURL, cfg.Exchange, service)
	if err != nil {
		return err
	}
	defer func() { _ = events.Close() }()
	if events == nil {
		log.Info("RABBITMQ_URL not set, order events disabled")
	}

	reg := prometheus.NewRegistry()
	svc := &order.Service{
		Store:    store,
		Catalog:  order.NewCatalogClient(cfg.CatalogURL, cfg.ServiceToken),
		Events:   events,
		Log:      log,
		Outcomes: order.NewOutcomes(reg),
	}

	h := order.NewHandler(&order.Server{Service: svc, Log: log}, order.HTTPDeps{
		Log:            log,
		Service:        service,
		Registry:       reg,
		MetricsEnabled: cfg.MetricsToken != "",
		MetricsToken:   cfg.MetricsToken,
	})

	return kit.RunHTTPServer(c.Context, cfg.Addr("8083"), h, log)
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

func openStore(ctx context.Context, cfg config, log *zap.Logger) (order.Store, func(), error) {
	if kit.UsesMemory(cfg.DatabaseURL) {
		log.Info("using in-memory store")
		return order.NewStore(), func() {}, nil
	}

	db, err := kit.OpenDB(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	if err := kit.Migrate(db, order.Migrations); err != nil {
		_ = db.Close()
		return nil, nil, err
	}

	log.Info("using sql store", zap.String("dialect", db.Dialect))
	return order.NewSQLStore(db), func() { _ = db.Close() }, nil
}
