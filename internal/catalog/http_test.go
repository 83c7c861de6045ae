package catalog_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"BookStore/internal/catalog"
	"BookStore/pkg/kit"
)

const serviceToken = "service-token"

var internalCaller = map[string]string{kit.HeaderServiceToken: serviceToken}

func newCatalogTS(t *testing.T) (*httptest.Server, *catalog.MemStore) {
	t.Helper()

	store := catalog.NewStore()
	h := catalog.NewHandler(&catalog.Server{Store: store, Log: zap.NewNop(), ServiceToken: serviceToken}, catalog.HTTPDeps{
		Log:            zap.NewNop(),
		Service:        "catalog",
		Registry:       prometheus.NewRegistry(),
		MetricsEnabled: true,
		MetricsToken:   "metrics-token",
	})

	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	return ts, store
}

func do(t *testing.T, method, url string, body any, headers map[string]string) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestCatalogAPI_ListAndGet(t *testing.T) {
	ts, _ := newCatalogTS(t)

	resp := do(t, http.MethodGet, ts.URL+"/api/books", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var books []catalog.Book
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&books))
	require.Len(t, books, 8)

	resp = do(t, http.MethodGet, ts.URL+"/api/books/5", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var b catalog.Book
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&b))
	assert.Equal(t, "The Hobbit", b.Title)
	assert.Equal(t, 16.99, b.Price)

	assert.Equal(t, http.StatusNotFound, do(t, http.MethodGet, ts.URL+"/api/books/99", nil, nil).StatusCode)
	assert.Equal(t, http.StatusBadRequest, do(t, http.MethodGet, ts.URL+"/api/books/abc", nil, nil).StatusCode)
}

func TestCatalogAPI_SetStockRequiresAdmin(t *testing.T) {
	ts, store := newCatalogTS(t)
	url := ts.URL + "/api/books/1/stock"

	resp := do(t, http.MethodPut, url, map[string]any{"stock": 3}, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	admin := map[string]string{kit.HeaderUserID: "admin@example.com", kit.HeaderUserRole: kit.RoleAdmin}

	resp = do(t, http.MethodPut, url, map[string]any{"stock": -1}, admin)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = do(t, http.MethodPut, url, map[string]any{"stock": 3}, admin)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	b, _, _ := store.Get(t.Context(), 1)
	assert.Equal(t, 3, b.Stock)
}

func TestCatalogAPI_DeductConflict(t *testing.T) {
	ts, store := newCatalogTS(t)

	resp := do(t, http.MethodPost, ts.URL+"/internal/stock/deduct", map[string]any{
		"items": []map[string]any{{"book_id": 1, "quantity": 2}, {"book_id": 5, "quantity": 11}},
	}, internalCaller)
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	var er kit.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&er))
	assert.Equal(t, "Insufficient stock for The Hobbit", er.Error)

	b, _, _ := store.Get(t.Context(), 1)
	assert.Equal(t, 15, b.Stock)

	resp = do(t, http.MethodPost, ts.URL+"/internal/stock/deduct", map[string]any{
		"items": []map[string]any{{"book_id": 1, "quantity": 2}},
	}, internalCaller)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	b, _, _ = store.Get(t.Context(), 1)
	assert.Equal(t, 13, b.Stock)
}

func TestCatalogAPI_MetricsGuarded(t *testing.T) {
	ts, _ := newCatalogTS(t)

	assert.Equal(t, http.StatusForbidden, do(t, http.MethodGet, ts.URL+"/metrics", nil, nil).StatusCode)

	resp := do(t, http.MethodGet, ts.URL+"/metrics", nil, map[string]string{"Authorization": "Bearer metrics-token"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCatalogAPI_StockChangesNeedServiceToken(t *testing.T) {
	ts, store := newCatalogTS(t)
	body := map[string]any{"items": []map[string]any{{"book_id": 1, "quantity": 1}}}

	for _, op := range []string{"deduct", "restock"} {
		url := ts.URL + "/internal/stock/" + op
		assert.Equal(t, http.StatusForbidden, do(t, http.MethodPost, url, body, nil).StatusCode)
		assert.Equal(t, http.StatusForbidden, do(t, http.MethodPost, url, body, map[string]string{
			kit.HeaderServiceToken: "wrong",
		}).StatusCode)
	}

	b, _, _ := store.Get(t.Context(), 1)
	assert.Equal(t, 15, b.Stock)

	closed := httptest.NewServer(catalog.NewHandler(&catalog.Server{Store: store}, catalog.HTTPDeps{}))
	t.Cleanup(closed.Close)
	assert.Equal(t, http.StatusForbidden, do(t, http.MethodPost, closed.URL+"/internal/stock/deduct", body, map[string]string{
		kit.HeaderServiceToken: "",
	}).StatusCode)
}
