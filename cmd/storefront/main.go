package main

import (
	"fmt"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"

	"BookStore/internal/storefront"
	"BookStore/pkg/kit"
)

const service = "storefront"

type config struct {
	kit.HTTPConfig
	JWTSecret      string        `envconfig:"JWT_SECRET" required:"true"`
	AuthURL        string        `envconfig:"AUTH_URL" default:"http://localhost:8081"`
	CatalogURL     string        `envconfig:"CATALOG_URL" default:"http://localhost:8082"`
	OrderURL       string        `envconfig:"ORDER_URL" default:"http://localhost:8083"`
	SessionTTL     time.Duration `envconfig:"SESSION_TTL" default:"24h"`
	MaxSessions    int           `envconfig:"MAX_SESSIONS" default:"10000"`
	SecureCookie   bool          `envconfig:"SECURE_COOKIE"`
	AllowedOrigins []string      `envconfig:"ALLOWED_ORIGINS"`
}

func main() {
	app := &cli.App{
		Name:   service,
		Usage:  "bookstore storefront: carts, checkout and the public API",
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

	h, err := storefront.NewHandler(
		storefront.Deps{
			JWTSecret:  cfg.JWTSecret,
			AuthURL:    cfg.AuthURL,
			CatalogURL: cfg.CatalogURL,
			OrderURL:   cfg.OrderURL,
			Session: storefront.SessionConfig{
				TTL:          cfg.SessionTTL,
				MaxSessions:  cfg.MaxSessions,
				SecureCookie: cfg.SecureCookie,
			},
			AllowedOrigins: cfg.AllowedOrigins,
		},
		storefront.HTTPDeps{
			Log:            log,
			Service:        service,
			Registry:       prometheus.NewRegistry(),
			MetricsEnabled: cfg.MetricsToken != "",
			MetricsToken:   cfg.MetricsToken,
		},
	)
	if err != nil {
		return err
	}

	return kit.RunHTTPServer(c.Context, cfg.Addr("8080"), h, log)
}
