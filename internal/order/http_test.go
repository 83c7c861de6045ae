package order_test

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
	"BookStore/internal/order"
	"BookStore/pkg/kit"
)

const serviceToken = "service-token"

type stack struct {
	orders *httptest.Server
	books  *catalog.MemStore
}

func newStack(t *testing.T) stack {
	t.Helper()

	books := catalog.NewStore()
	catTS := httptest.NewServer(catalog.NewHandler(&catalog.Server{Store: books, ServiceToken: serviceToken}, catalog.HTTPDeps{}))
	t.Cleanup(catTS.Close)

	reg := prometheus.NewRegistry()
	svc := &order.Service{
		Store:    order.NewStore(),
		Catalog:  order.NewCatalogClient(catTS.URL, serviceToken),
		Log:      zap.NewNop(),
		Outcomes: order.NewOutcomes(reg),
	}
	h := order.NewHandler(&order.Server{Service: svc, Log: zap.NewNop()}, order.HTTPDeps{
		Log:      zap.NewNop(),
		Service:  "order",
		Registry: reg,
	})

	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	return stack{orders: ts, books: books}
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

var admin = map[string]string{kit.HeaderUserID: "admin@example.com", kit.HeaderUserRole: kit.RoleAdmin}

func checkout(books ...order.RequestLine) order.CreateRequest {
	return order.CreateRequest{
		Customer: order.Customer{Name: "Bob", Email: "bob@example.com", Address: "2 Elm St"},
		Items:    books,
		Total:    0,
	}
}

func line(id int64, qty int) order.RequestLine {
	return order.RequestLine{Book: catalog.Book{ID: id, Title: "ignored", Price: 1}, Quantity: qty}
}

func TestOrderAPI_CreateDeductsStock(t *testing.T) {
	s := newStack(t)

	resp := do(t, http.MethodPost, s.orders.URL+"/api/orders", checkout(line(1, 2), line(8, 1)), nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var out order.CreateResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "Order created successfully", out.Message)
	assert.Equal(t, int64(1), out.OrderID)
	assert.Equal(t, 34.97, out.TotalAmount)

	b, _, err := s.books.Get(t.Context(), 1)
	require.NoError(t, err)
	assert.Equal(t, 13, b.Stock)
}

func TestOrderAPI_InsufficientStock(t *testing.T) {
	s := newStack(t)

	resp := do(t, http.MethodPost, s.orders.URL+"/api/orders", checkout(line(5, 11)), nil)
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	var body kit.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "Insufficient stock for The Hobbit", body.Error)
}

func TestOrderAPI_BadRequests(t *testing.T) {
	s := newStack(t)
	url := s.orders.URL + "/api/orders"

	assert.Equal(t, http.StatusBadRequest, do(t, http.MethodPost, url, map[string]any{"nope": 1}, nil).StatusCode)
	assert.Equal(t, http.StatusBadRequest, do(t, http.MethodPost, url, checkout(), nil).StatusCode)
	assert.Equal(t, http.StatusNotFound, do(t, http.MethodPost, url, checkout(line(42, 1)), nil).StatusCode)
}

func TestOrderAPI_AdminRoutes(t *testing.T) {
	s := newStack(t)
	require.Equal(t, http.StatusCreated,
		do(t, http.MethodPost, s.orders.URL+"/api/orders", checkout(line(2, 1)), nil).StatusCode)

	assert.Equal(t, http.StatusUnauthorized, do(t, http.MethodGet, s.orders.URL+"/api/orders", nil, nil).StatusCode)
	assert.Equal(t, http.StatusForbidden, do(t, http.MethodGet, s.orders.URL+"/api/orders", nil, map[string]string{
		kit.HeaderUserID: "u1", kit.HeaderUserRole: "customer",
	}).StatusCode)

	resp := do(t, http.MethodGet, s.orders.URL+"/api/orders", nil, admin)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list []order.Order
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	require.Len(t, list, 1)
	assert.Equal(t, "bob@example.com", list[0].Customer.Email)

	resp = do(t, http.MethodGet, s.orders.URL+"/api/orders/1", nil, admin)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var o order.Order
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&o))
	require.Len(t, o.Items, 1)
	assert.Equal(t, "To Kill a Mockingbird", o.Items[0].Title)

	assert.Equal(t, http.StatusNotFound, do(t, http.MethodGet, s.orders.URL+"/api/orders/9", nil, admin).StatusCode)

	resp = do(t, http.MethodPut, s.orders.URL+"/api/orders/1/status", map[string]string{"status": "shipped"}, admin)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, http.MethodPut, s.orders.URL+"/api/orders/1/status", map[string]string{"status": "lost"}, admin)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestOrderAPI_CatalogDown(t *testing.T) {
	catTS := httptest.NewServer(http.NotFoundHandler())
	catTS.Close()

	svc := &order.Service{Store: order.NewStore(), Catalog: order.NewCatalogClient(catTS.URL, serviceToken)}
	ts := httptest.NewServer(order.NewHandler(&order.Server{Service: svc}, order.HTTPDeps{}))
	t.Cleanup(ts.Close)

	resp := do(t, http.MethodPost, ts.URL+"/api/orders", checkout(line(1, 1)), nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
