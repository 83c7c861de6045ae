package storefront

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/cors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"BookStore/internal/auth"
	"BookStore/pkg/kit"
)

type HTTPDeps struct {
	Log      *zap.Logger
	Service  string
	Registry *prometheus.Registry

	MetricsEnabled bool
	MetricsToken   string
}

type Deps struct {
	AuthURL    string
	CatalogURL string
	OrderURL   string
	JWTSecret  string

	Session        SessionConfig
	AllowedOrigins []string
}

const (
	readyTimeout      = 2 * time.Second
	readyProbeTimeout = 700 * time.Millisecond

	checkoutLimitPerMin = 10
	limitWindow         = 60 * time.Second
)

var readyClient = &http.Client{
	Transport: &http.Transport{
		MaxIdleConns:        50,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     30 * time.Second,
	},
}

func NewHandler(deps Deps, httpDeps HTTPDeps) (http.Handler, error) {
	log := httpDeps.Log
	if log == nil {
		log = zap.NewNop()
	}

	authProxy, err := NewReverseProxy(deps.AuthURL, log)
	if err != nil {
		return nil, err
	}
	catalogProxy, err := NewReverseProxy(deps.CatalogURL, log)
	if err != nil {
		return nil, err
	}
	orderProxy, err := NewReverseProxy(deps.OrderURL, log)
	if err != nil {
		return nil, err
	}

	jwt := auth.NewTokenMaker(deps.JWTSecret)

	var outcomes *kit.OutcomeCounter
	if httpDeps.Registry != nil {
		outcomes = kit.NewOutcomeCounter(httpDeps.Registry, "cart_operations_total", "Cart operations by result")
	}

	carts := &CartServer{
		Sessions: NewSessions(jwt, deps.Session),
		Catalog:  NewCatalogSource(deps.CatalogURL, log),
		Orders:   NewOrderSubmitter(deps.OrderURL),
		Log:      log,
		Outcomes: outcomes,
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(kit.Recoverer)
	r.Use(kit.Logging(log))
	if len(deps.AllowedOrigins) > 0 {
		r.Use(cors.New(cors.Options{
			AllowedOrigins:   deps.AllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
			AllowedHeaders:   []string{"Authorization", "Content-Type"},
			AllowCredentials: true,
		}).Handler)
	}

	kit.SetupMetrics(r, kit.MetricsDeps{
		Service:  httpDeps.Service,
		Registry: httpDeps.Registry,
		Enabled:  httpDeps.MetricsEnabled,
		Token:    httpDeps.MetricsToken,
	})

	r.Get("/healthz", kit.Healthz)
	r.Get("/readyz", readyz(deps, log))

	checkoutLimiter := kit.NewIPRateLimiter(checkoutLimitPerMin, limitWindow)
	r.Mount("/api/cart", carts.Routes(checkoutLimiter.Middleware))

	r.Group(func(pr chi.Router) {
		pr.Use(InjectHeaders)

		pr.Handle("/auth/*", authProxy)
		pr.Get("/api/books", catalogProxy.ServeHTTP)
		pr.Get("/api/books/*", catalogProxy.ServeHTTP)
	})

	r.Group(func(ar chi.Router) {
		ar.Use(AuthJWT(jwt))
		ar.Use(RequireAdmin)
		ar.Use(InjectHeaders)

		ar.Put("/api/books/{id}/stock", catalogProxy.ServeHTTP)
		ar.Handle("/api/orders", orderProxy)
		ar.Handle("/api/orders/*", orderProxy)
	})

	return r, nil
}

func readyz(deps Deps, log *zap.Logger) http.HandlerFunc {
	upstreams := []struct{ name, url string }{
		{"auth", deps.AuthURL},
		{"catalog", deps.CatalogURL},
		{"order", deps.OrderURL},
	}

	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()

		g, gctx := errgroup.WithContext(ctx)
		for _, up := range upstreams {
			g.Go(func() error {
				if err := checkReady(gctx, up.url+"/readyz"); err != nil {
					return fmt.Errorf("%s: %w", up.name, err)
				}
				return nil
			})
		}

		if err := g.Wait(); err != nil {
			log.Warn("readyz failed", zap.Error(err))
			kit.WriteError(w, r, http.StatusServiceUnavailable, "not ready", map[string]any{"cause": err.Error()})
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

func checkReady(ctx context.Context, url string) error {
	cctx, cancel := context.WithTimeout(ctx, readyProbeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(cctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := readyClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status=%d", resp.StatusCode)
	}
	return nil
}
