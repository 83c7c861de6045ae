package main

import (
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"BookStore/internal/auth"
	"BookStore/pkg/kit"
)

const service = "auth"

type config struct {
	kit.HTTPConfig
	JWTSecret     string `envconfig:"JWT_SECRET" required:"true"`
	AdminEmail    string `envconfig:"ADMIN_EMAIL"`
	AdminPassword string `envconfig:"ADMIN_PASSWORD"`
}

func main() {
	app := &cli.App{
		Name:   service,
		Usage:  "bookstore staff login service",
		Action: serve,
		Commands: []*cli.Command{
			{Name: "serve", Usage: "run the HTTP API", Action: serve},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serve(c *cli.Context) error {
	var cfg config
	if err := kit.LoadConfig(service, &cfg); err != nil {
		return err
	}
	if len(cfg.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 chars")
	}

	log := kit.NewLogger(service, cfg.LogLevel)
	defer func() { _ = log.Sync() }()

	store := auth.NewMemStore()
	if cfg.AdminEmail != "" && cfg.AdminPassword != "" {
		if _, err := store.Create(c.Context, cfg.AdminEmail, cfg.AdminPassword, kit.RoleAdmin); err != nil {
			return err
		}
		log.Info("admin account provisioned", zap.String("email", cfg.AdminEmail))
	} else {
		log.Warn("ADMIN_EMAIL/ADMIN_PASSWORD not set, no one can log in")
	}

	h := auth.NewHandler(&auth.Server{
		Log:   log,
		Store: store,
		JWT:   auth.NewTokenMaker(cfg.JWTSecret),
	}, auth.HTTPDeps{
		Log:            log,
		Service:        service,
		Registry:       prometheus.NewRegistry(),
		MetricsEnabled: cfg.MetricsToken != "",
		MetricsToken:   cfg.MetricsToken,
	})

	return kit.RunHTTPServer(c.Context, cfg.Addr("8081"), h, log)
}
