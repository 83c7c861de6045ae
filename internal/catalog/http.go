package catalog

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"BookStore/pkg/kit"
)

type Server struct {
	Store        Store
	Log          *zap.Logger
	ServiceToken string
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", kit.Healthz)
	r.Get("/readyz", s.readyz)

	r.Route("/api/books", func(rr chi.Router) {
		rr.Get("/", s.list)
		rr.Get("/{id}", s.get)
		rr.With(kit.RequireRole(kit.RoleAdmin)).Put("/{id}/stock", s.setStock)
	})

	r.Route("/internal/stock", func(rr chi.Router) {
		rr.Use(kit.ServiceAuth(s.ServiceToken))
		rr.Post("/deduct", s.deduct)
		rr.Post("/restock", s.restock)
	})

	return r
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 1*time.Second)
	defer cancel()

	if err := s.Store.Ping(ctx); err != nil {
		s.logger().Warn("readyz failed", zap.Error(err))
		kit.WriteError(w, r, http.StatusServiceUnavailable, "not ready", nil)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	books, err := s.Store.List(r.Context())
	if err != nil {
		s.logger().Error("list books failed", zap.Error(err))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}
	kit.WriteJSON(w, http.StatusOK, books)
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	id, ok := bookID(w, r)
	if !ok {
		return
	}

	b, found, err := s.Store.Get(r.Context(), id)
	if err != nil {
		s.logger().Error("get book failed", zap.Error(err), zap.Int64("id", id))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}
	if !found {
		kit.WriteError(w, r, http.StatusNotFound, "not found", map[string]any{"id": id})
		return
	}
	kit.WriteJSON(w, http.StatusOK, b)
}

type stockReq struct {
	Stock *int `json:"stock"`
}

func (s *Server) setStock(w http.ResponseWriter, r *http.Request) {
	id, ok := bookID(w, r)
	if !ok {
		return
	}

	var req stockReq
	if err := kit.DecodeJSON(w, r, &req); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", map[string]any{"cause": err.Error()})
		return
	}
	if req.Stock == nil {
		kit.WriteError(w, r, http.StatusBadRequest, "stock required", nil)
		return
	}

	b, err := s.Store.SetStock(r.Context(), id, *req.Stock)
	if err != nil {
		s.writeStockError(w, r, err)
		return
	}

	s.logger().Info("stock updated",
		zap.Int64("book_id", id),
		zap.Int("stock", b.Stock),
		zap.String("by", r.Header.Get(kit.HeaderUserID)),
	)
	kit.WriteJSON(w, http.StatusOK, map[string]any{
		"message": "Book stock updated successfully",
		"book":    b,
	})
}

type stockChangesReq struct {
	Items []StockChange `json:"items"`
}

func (s *Server) deduct(w http.ResponseWriter, r *http.Request) {
	s.applyChanges(w, r, "deduct", s.Store.Deduct)
}

func (s *Server) restock(w http.ResponseWriter, r *http.Request) {
	s.applyChanges(w, r, "restock", s.Store.Restock)
}

func (s *Server) applyChanges(
	w http.ResponseWriter,
	r *http.Request,
	op string,
	apply func(context.Context, []StockChange) error,
) {
	var req stockChangesReq
	if err := kit.DecodeJSON(w, r, &req); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", map[string]any{"cause": err.Error()})
		return
	}
	if len(req.Items) == 0 {
		kit.WriteError(w, r, http.StatusBadRequest, "items required", nil)
		return
	}

	if err := apply(r.Context(), req.Items); err != nil {
		s.writeStockError(w, r, err)
		return
	}

	s.logger().Info("stock "+op, zap.Int("lines", len(req.Items)))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) writeStockError(w http.ResponseWriter, r *http.Request, err error) {
	var ise *InsufficientStockError
	switch {
	case errors.As(err, &ise):
		kit.WriteError(w, r, http.StatusConflict, ise.Error(), map[string]any{
			"book_id":   ise.BookID,
			"title":     ise.Title,
			"available": ise.Available,
		})
	case errors.Is(err, ErrBookNotFound):
		kit.WriteError(w, r, http.StatusNotFound, "not found", nil)
	case errors.Is(err, ErrInvalidStock), errors.Is(err, ErrInvalidQuantity):
		kit.WriteError(w, r, http.StatusBadRequest, err.Error(), nil)
	default:
		s.logger().Error("stock change failed", zap.Error(err))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
	}
}

func (s *Server) logger() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}

func bookID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		kit.WriteError(w, r, http.StatusBadRequest, "bad id", map[string]any{"id": raw})
		return 0, false
	}
	return id, true
}
