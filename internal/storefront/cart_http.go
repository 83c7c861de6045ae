package storefront

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"BookStore/internal/cart"
	"BookStore/internal/catalog"
	"BookStore/internal/order"
	"BookStore/pkg/kit"
)

type CartServer struct {
	Sessions *Sessions
	Catalog  *CatalogSource
	Orders   *OrderSubmitter
	Log      *zap.Logger
	Outcomes *kit.OutcomeCounter
}

type cartView struct {
	Items        []cart.Line `json:"items"`
	Count        int         `json:"count"`
	Total        float64     `json:"total"`
	TotalDisplay string      `json:"total_display"`
	Empty        bool        `json:"empty"`
	Pruned       []int64     `json:"pruned,omitempty"`
}

func viewOf(c *cart.Cart) cartView {
	return cartView{
		Items:        c.Lines(),
		Count:        c.UniqueLineCount(),
		Total:        c.Total(),
		TotalDisplay: c.FormatTotal(),
		Empty:        c.IsEmpty(),
	}
}

func (s *CartServer) Routes(checkoutLimit func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()

	r.Get("/", s.get)
	r.Delete("/", s.clear)
	r.Post("/items", s.add)
	r.Patch("/items/{id}", s.update)
	r.Delete("/items/{id}", s.remove)
	r.With(checkoutLimit).Post("/checkout", s.checkout)

	return r
}

type cartOp func(c *cart.Cart, snap catalog.Snapshot) error

type catalogUse int

const (
	catalogSkip catalogUse = iota
	catalogIfAvailable
	catalogRequired
)

func (s *CartServer) run(w http.ResponseWriter, r *http.Request, op string, use catalogUse, fn cartOp) {
	sess, err := s.Sessions.Load(w, r)
	if err != nil {
		s.logger().Error("session load failed", zap.Error(err))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}

	var snap catalog.Snapshot
	fresh := false
	if use != catalogSkip {
		snap, fresh, err = s.Catalog.Snapshot(r.Context())
		if err != nil {
			if use == catalogRequired {
				s.Outcomes.Inc(op, "catalog_unavailable")
				kit.WriteError(w, r, http.StatusServiceUnavailable, "catalog unavailable", nil)
				return
			}
			s.logger().Warn("catalog unavailable, cart left unchecked", zap.String("op", op), zap.Error(err))
		}
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	var gone []int64
	if fresh {
		if gone = sess.cart.Prune(snap); len(gone) > 0 {
			s.logger().Info("pruned vanished books", zap.String("session", sess.ID), zap.Int64s("book_ids", gone))
		}
	}

	err = fn(sess.cart, snap)
	view := viewOf(sess.cart)
	view.Pruned = gone
	if err != nil {
		s.writeCartError(w, r, op, err, view)
		return
	}

	s.Outcomes.Inc(op, "ok")
	kit.WriteJSON(w, http.StatusOK, view)
}

func (s *CartServer) get(w http.ResponseWriter, r *http.Request) {
	s.run(w, r, "view", catalogIfAvailable, func(*cart.Cart, catalog.Snapshot) error { return nil })
}

type addReq struct {
	BookID int64 `json:"book_id"`
}

func (s *CartServer) add(w http.ResponseWriter, r *http.Request) {
	var req addReq
	if err := kit.DecodeJSON(w, r, &req); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", map[string]any{"cause": err.Error()})
		return
	}
	if req.BookID <= 0 {
		kit.WriteError(w, r, http.StatusBadRequest, "book_id required", nil)
		return
	}

	s.run(w, r, "add", catalogRequired, func(c *cart.Cart, snap catalog.Snapshot) error {
		return c.Add(snap, req.BookID)
	})
}

type updateReq struct {
	Delta int `json:"delta"`
}

func (s *CartServer) update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathBookID(w, r)
	if !ok {
		return
	}

	var req updateReq
	if err := kit.DecodeJSON(w, r, &req); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", map[string]any{"cause": err.Error()})
		return
	}

	s.run(w, r, "update", catalogRequired, func(c *cart.Cart, snap catalog.Snapshot) error {
		return c.UpdateQuantity(snap, id, req.Delta)
	})
}

func (s *CartServer) remove(w http.ResponseWriter, r *http.Request) {
	id, ok := pathBookID(w, r)
	if !ok {
		return
	}

	s.run(w, r, "remove", catalogSkip, func(c *cart.Cart, _ catalog.Snapshot) error {
		c.Remove(id)
		return nil
	})
}

func (s *CartServer) clear(w http.ResponseWriter, r *http.Request) {
	s.run(w, r, "clear", catalogSkip, func(c *cart.Cart, _ catalog.Snapshot) error {
		c.Clear()
		return nil
	})
}

type checkoutReq struct {
	Customer order.Customer `json:"customer"`
}

type checkoutResp struct {
	Order order.CreateResponse `json:"order"`
	Cart  cartView             `json:"cart"`
}

const emptyCartMsg = "Your cart is empty!"

func (s *CartServer) checkout(w http.ResponseWriter, r *http.Request) {
	var req checkoutReq
	if err := kit.DecodeJSON(w, r, &req); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", map[string]any{"cause": err.Error()})
		return
	}

	sess, err := s.Sessions.Load(w, r)
	if err != nil {
		s.logger().Error("session load failed", zap.Error(err))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.cart.IsEmpty() {
		s.Outcomes.Inc("checkout", "empty")
		kit.WriteError(w, r, http.StatusBadRequest, emptyCartMsg, nil)
		return
	}

	lines := sess.cart.Lines()
	items := make([]order.RequestLine, 0, len(lines))
	for _, l := range lines {
		items = append(items, order.RequestLine{Book: l.Book, Quantity: l.Quantity})
	}

	receipt, err := s.Orders.Submit(r.Context(), order.CreateRequest{
		Customer: req.Customer,
		Items:    items,
		Total:    sess.cart.Total(),
	})
	if err != nil {
		s.writeCheckoutError(w, r, err)
		return
	}

	sess.cart.Clear()
	s.Outcomes.Inc("checkout", "ok")
	s.logger().Info("checkout complete",
		zap.String("session", sess.ID),
		zap.Int64("order_id", receipt.OrderID),
		zap.Float64("total", receipt.TotalAmount),
	)
	kit.WriteJSON(w, http.StatusCreated, checkoutResp{Order: receipt, Cart: viewOf(sess.cart)})
}

func (s *CartServer) writeCartError(w http.ResponseWriter, r *http.Request, op string, err error, view cartView) {
	reason, ok := cart.ReasonOf(err)
	if !ok {
		s.Outcomes.Inc(op, "error")
		s.logger().Error("cart operation failed", zap.String("op", op), zap.Error(err))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}

	s.Outcomes.Inc(op, string(reason))

	var ce *cart.Error
	errors.As(err, &ce)
	details := map[string]any{"reason": reason, "book_id": ce.BookID, "cart": view}
	if reason == cart.ReasonStockExceeded {
		details["available"] = ce.Available
	}

	status := http.StatusBadRequest
	switch reason {
	case cart.ReasonOutOfStock, cart.ReasonStockExceeded:
		status = http.StatusConflict
	case cart.ReasonNotFound, cart.ReasonUnknownBook:
		status = http.StatusNotFound
	}
	kit.WriteError(w, r, status, err.Error(), details)
}

func (s *CartServer) writeCheckoutError(w http.ResponseWriter, r *http.Request, err error) {
	var rej *RejectedError
	switch {
	case errors.As(err, &rej):
		s.Outcomes.Inc("checkout", "rejected")
		kit.WriteError(w, r, rej.Status, rej.Message, rej.Details)
	case errors.Is(err, ErrOrdersUnavailable):
		s.Outcomes.Inc("checkout", "unavailable")
		s.logger().Warn("order service unavailable", zap.Error(err))
		kit.WriteError(w, r, http.StatusServiceUnavailable, "order service unavailable", nil)
	default:
		s.Outcomes.Inc("checkout", "error")
		s.logger().Error("checkout failed", zap.Error(err))
		kit.WriteError(w, r, http.StatusBadGateway, "order service error", nil)
	}
}

func (s *CartServer) logger() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}

func pathBookID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		kit.WriteError(w, r, http.StatusBadRequest, "bad id", map[string]any{"id": raw})
		return 0, false
	}
	return id, true
}
