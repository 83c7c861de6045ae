package auth

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"BookStore/pkg/kit"
)

type HTTPDeps struct {
	Log      *zap.Logger
	Service  string
	Registry *prometheus.Registry

	MetricsEnabled bool
	MetricsToken   string
}

const (
	loginLimitPerMin = 5
	limitWindow      = 60 * time.Second
)

func NewHandler(s *Server, deps HTTPDeps) http.Handler {
	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(kit.Recoverer)
	r.Use(kit.Logging(log))

	kit.SetupMetrics(r, kit.MetricsDeps{
		Service:  deps.Service,
		Registry: deps.Registry,
		Enabled:  deps.MetricsEnabled,
		Token:    deps.MetricsToken,
	})

	loginLimiter := kit.NewIPRateLimiter(loginLimitPerMin, limitWindow)

	r.Route("/auth", func(rr chi.Router) {
		rr.With(loginLimiter.Middleware).Post("/login", s.handleLogin)
		rr.Get("/whoami", s.handleWhoAmI)
	})

	r.Get("/healthz", kit.Healthz)
	r.Get("/readyz", s.handleReady)

	return r
}
