package kit

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIPRateLimiter_SlidingWindow(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	l := NewIPRateLimiter(2, time.Minute)
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("10.0.0.1"))
	assert.True(t, l.Allow("10.0.0.1"))
	assert.False(t, l.Allow("10.0.0.1"))
	assert.True(t, l.Allow("10.0.0.2"))

	now = now.Add(61 * time.Second)
	assert.True(t, l.Allow("10.0.0.1"))
}

func TestIPRateLimiter_Middleware(t *testing.T) {
	l := NewIPRateLimiter(1, time.Minute)
	h := l.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("X-Forwarded-For", "1.2.3.4, 10.0.0.1")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestParseDSN(t *testing.T) {
	tests := []struct {
		dsn     string
		driver  string
		dialect string
		source  string
	}{
		{"postgres://u:p@db:5432/books", "pgx", DialectPostgres, "postgres://u:p@db:5432/books"},
		{"postgresql://db/books", "pgx", DialectPostgres, "postgresql://db/books"},
		{"sqlite://data/bookstore.db", "sqlite", DialectSQLite, "data/bookstore.db"},
		{"sqlite:bookstore.db", "sqlite", DialectSQLite, "bookstore.db"},
	}

	for _, tt := range tests {
		t.Run(tt.dsn, func(t *testing.T) {
			driver, dialect, source, err := parseDSN(tt.dsn)
			require.NoError(t, err)
			assert.Equal(t, tt.driver, driver)
			assert.Equal(t, tt.dialect, dialect)
			assert.Equal(t, tt.source, source)
		})
	}

	_, _, _, err := parseDSN("mysql://db")
	require.ErrorIs(t, err, ErrUnsupportedDSN)
	assert.True(t, UsesMemory(""))
	assert.True(t, UsesMemory("memory"))
}

func TestRequireRole(t *testing.T) {
	h := RequireRole(RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	cases := []struct {
		name string
		id   string
		role string
		want int
	}{
		{"anonymous", "", "", http.StatusUnauthorized},
		{"customer", "u1", "user", http.StatusForbidden},
		{"admin", "u1", RoleAdmin, http.StatusOK},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if c.id != "" {
				req.Header.Set(HeaderUserID, c.id)
				req.Header.Set(HeaderUserRole, c.role)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, c.want, rec.Code)
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	var v struct {
		Name string `json:"name"`
	}

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"x"}`))
	require.NoError(t, DecodeJSON(httptest.NewRecorder(), req, &v))
	assert.Equal(t, "x", v.Name)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"x"}{}`))
	require.ErrorIs(t, DecodeJSON(httptest.NewRecorder(), req, &v), ErrTrailingData)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"nope":1}`))
	require.Error(t, DecodeJSON(httptest.NewRecorder(), req, &v))
}

func TestPublisher_NilDropsEvents(t *testing.T) {
	p, err := NewPublisher("", "bookstore", "test")
	require.NoError(t, err)
	require.Nil(t, p)

	require.NoError(t, p.PublishJSON(t.Context(), "order.created", map[string]any{"id": 1}))
	require.NoError(t, p.Close())
}

func TestLoadConfig_PrefixAndFallback(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PORT", "9000")
	t.Setenv("SVC_LOG_LEVEL", "debug")

	var cfg struct {
		HTTPConfig
		Name string `envconfig:"NAME" default:"shop"`
	}
	require.NoError(t, LoadConfig("svc", &cfg))

	assert.Equal(t, ":9000", cfg.Addr("8080"))
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "shop", cfg.Name)

	var empty struct{ HTTPConfig }
	t.Setenv("PORT", "")
	require.NoError(t, LoadConfig("svc", &empty))
	assert.Equal(t, ":8080", empty.Addr("8080"))
}
