package order

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"BookStore/internal/catalog"
	"BookStore/pkg/kit"
)

type Server struct {
	Service *Service
	Log     *zap.Logger
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", kit.Healthz)
	r.Get("/readyz", s.readyz)

	r.Route("/api/orders", func(rr chi.Router) {
		rr.Post("/", s.create)

		rr.Group(func(ar chi.Router) {
			ar.Use(kit.RequireRole(kit.RoleAdmin))
			ar.Get("/", s.list)
			ar.Get("/{id}", s.get)
			ar.Put("/{id}/status", s.updateStatus)
		})
	})

	return r
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 1*time.Second)
	defer cancel()

	if err := s.Service.Store.Ping(ctx); err != nil {
		s.logger().Warn("readyz failed", zap.Error(err))
		kit.WriteError(w, r, http.StatusServiceUnavailable, "not ready", nil)
		return
	}
	w.WriteHeader(http.StatusOK)
}

type CreateRequest struct {
	Customer Customer      `json:"customer"`
	Items    []RequestLine `json:"items"`
	Total    float64       `json:"total"`
}

type RequestLine struct {
	catalog.Book
	Quantity int `json:"quantity"`
}

type CreateResponse struct {
	Message     string  `json:"message"`
	OrderID     int64   `json:"order_id"`
	TotalAmount float64 `json:"total_amount"`
}

func (s *Server) create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := kit.DecodeJSON(w, r, &req); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", map[string]any{"cause": err.Error()})
		return
	}

	lines := make([]Line, 0, len(req.Items))
	for _, it := range req.Items {
		lines = append(lines, Line{BookID: it.ID, Quantity: it.Quantity})
	}

	o, err := s.Service.Place(r.Context(), PlaceRequest{
		Customer:    req.Customer,
		Lines:       lines,
		ClientTotal: req.Total,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	kit.WriteJSON(w, http.StatusCreated, CreateResponse{
		Message:     "Order created successfully",
		OrderID:     o.ID,
		TotalAmount: o.TotalAmount,
	})
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	orders, err := s.Service.Store.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	kit.WriteJSON(w, http.StatusOK, orders)
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(w, r)
	if !ok {
		return
	}

	o, found, err := s.Service.Store.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !found {
		kit.WriteError(w, r, http.StatusNotFound, "not found", map[string]any{"id": id})
		return
	}
	kit.WriteJSON(w, http.StatusOK, o)
}

type statusReq struct {
	Status string `json:"status"`
}

func (s *Server) updateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(w, r)
	if !ok {
		return
	}

	var req statusReq
	if err := kit.DecodeJSON(w, r, &req); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", map[string]any{"cause": err.Error()})
		return
	}

	o, err := s.Service.UpdateStatus(r.Context(), id, req.Status)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.logger().Info("order status updated",
		zap.Int64("order_id", o.ID),
		zap.String("status", o.Status),
		zap.String("by", r.Header.Get(kit.HeaderUserID)),
	)
	kit.WriteJSON(w, http.StatusOK, map[string]any{
		"message": "Order status updated successfully",
		"order":   o,
	})
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var ise *catalog.InsufficientStockError
	switch {
	case errors.As(err, &ise):
		kit.WriteError(w, r, http.StatusConflict, ise.Error(), map[string]any{
			"book_id":   ise.BookID,
			"title":     ise.Title,
			"available": ise.Available,
		})
	case errors.Is(err, catalog.ErrInsufficientStock):
		kit.WriteError(w, r, http.StatusConflict, "insufficient stock", nil)
	case errors.Is(err, ErrCustomerRequired),
		errors.Is(err, ErrInvalidEmail),
		errors.Is(err, ErrNoItems),
		errors.Is(err, ErrBadItem),
		errors.Is(err, ErrDuplicateItem),
		errors.Is(err, ErrTotalOverflow),
		errors.Is(err, ErrInvalidStatus):
		kit.WriteError(w, r, http.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, ErrUnknownBook):
		kit.WriteError(w, r, http.StatusNotFound, err.Error(), nil)
	case errors.Is(err, ErrOrderNotFound):
		kit.WriteError(w, r, http.StatusNotFound, "not found", nil)
	case errors.Is(err, ErrCatalogUnavailable):
		kit.WriteError(w, r, http.StatusServiceUnavailable, "catalog unavailable", nil)
	case errors.Is(err, ErrCatalogBadStatus):
		s.logger().Warn("catalog error", zap.Error(err))
		kit.WriteError(w, r, http.StatusBadGateway, "catalog error", nil)
	case errors.Is(err, context.DeadlineExceeded):
		kit.WriteError(w, r, http.StatusGatewayTimeout, "timeout", nil)
	default:
		s.logger().Error("order request failed", zap.Error(err))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
	}
}

func (s *Server) logger() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}

func orderID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		kit.WriteError(w, r, http.StatusBadRequest, "bad id", map[string]any{"id": raw})
		return 0, false
	}
	return id, true
}
