package order

import (
	"context"
	"errors"
	"math"
	"net/mail"
	"strings"
	"time"

	"go.uber.org/zap"

	"BookStore/internal/catalog"
	"BookStore/pkg/kit"
)

var (
	ErrCustomerRequired = errors.New("customer name and email are required")
	ErrInvalidEmail     = errors.New("invalid customer email")
	ErrNoItems          = errors.New("items required")
	ErrBadItem          = errors.New("each item needs a book id and a positive quantity")
	ErrDuplicateItem    = errors.New("duplicate book id")
	ErrUnknownBook      = errors.New("book not found")
	ErrTotalOverflow    = errors.New("total overflow")
	ErrInvalidStatus    = errors.New("invalid status")
)

type Catalog interface {
	GetBook(ctx context.Context, id int64) (catalog.Book, error)
	Deduct(ctx context.Context, changes []catalog.StockChange) error
	Restock(ctx context.Context, changes []catalog.StockChange) error
}

type Events interface {
	PublishJSON(ctx context.Context, key string, v any) error
}

const (
	EventOrderCreated       = "order.created"
	EventOrderStatusChanged = "order.status_changed"
)

type Line struct {
	BookID   int64
	Quantity int
}

type PlaceRequest struct {
	Customer Customer
	Lines    []Line
	ClientTotal float64
}

type Service struct {
	Store    Store
	Catalog  Catalog
	Events   Events
	Log      *zap.Logger
	Outcomes *kit.OutcomeCounter

	now func() time.Time
}

func (s *Service) Place(ctx context.Context, req PlaceRequest) (Order, error) {
	cust, err := normalizeCustomer(req.Customer)
	if err != nil {
		s.Outcomes.Inc("place", "invalid")
		return Order{}, err
	}

	items, totalCents, err := s.price(ctx, req.Lines)
	if err != nil {
		s.Outcomes.Inc("place", outcome(err))
		return Order{}, err
	}

	if catalog.Cents(req.ClientTotal) != totalCents {
		s.logger().Warn("client total mismatch",
			zap.Float64("client_total", req.ClientTotal),
			zap.Float64("server_total", catalog.FromCents(totalCents)),
			zap.String("email", cust.Email),
		)
	}

	changes := make([]catalog.StockChange, 0, len(items))
	for _, it := range items {
		changes = append(changes, catalog.StockChange{BookID: it.BookID, Quantity: it.Quantity})
	}
	if err := s.Catalog.Deduct(ctx, changes); err != nil {
		s.Outcomes.Inc("place", outcome(err))
		return Order{}, err
	}

	o := &Order{
		Customer:    cust,
		Items:       items,
		TotalAmount: catalog.FromCents(totalCents),
		Status:      StatusPending,
		CreatedAt:   s.clock().UTC(),
	}
	if err := s.Store.Create(ctx, o); err != nil {
		s.Outcomes.Inc("place", "store_error")
		if rerr := s.Catalog.Restock(context.WithoutCancel(ctx), changes); rerr != nil {
			s.logger().Error("restock after failed save", zap.Error(rerr))
		}
		return Order{}, err
	}

	s.Outcomes.Inc("place", "ok")
	s.publish(ctx, EventOrderCreated, o)
	s.logger().Info("order placed",
		zap.Int64("order_id", o.ID),
		zap.Int64("customer_id", o.CustomerID),
		zap.Int("items", len(o.Items)),
		zap.Float64("total", o.TotalAmount),
	)
	return *o, nil
}

func (s *Service) UpdateStatus(ctx context.Context, id int64, status string) (Order, error) {
	status = strings.ToLower(strings.TrimSpace(status))
	if !ValidStatus(status) {
		return Order{}, ErrInvalidStatus
	}

	o, err := s.Store.UpdateStatus(ctx, id, status)
	if err != nil {
		return Order{}, err
	}

	s.publish(ctx, EventOrderStatusChanged, map[string]any{
		"order_id": o.ID,
		"status":   o.Status,
	})
	return o, nil
}

func (s *Service) price(ctx context.Context, lines []Line) ([]Item, int64, error) {
	if len(lines) == 0 {
		return nil, 0, ErrNoItems
	}

	seen := make(map[int64]struct{}, len(lines))
	items := make([]Item, 0, len(lines))
	var total int64

	for _, l := range lines {
		if l.BookID <= 0 || l.Quantity <= 0 {
			return nil, 0, ErrBadItem
		}
		if _, dup := seen[l.BookID]; dup {
			return nil, 0, ErrDuplicateItem
		}
		seen[l.BookID] = struct{}{}

		b, err := s.Catalog.GetBook(ctx, l.BookID)
		if errors.Is(err, ErrCatalogNotFound) {
			return nil, 0, ErrUnknownBook
		}
		if err != nil {
			return nil, 0, err
		}
		if b.Stock < l.Quantity {
			return nil, 0, &catalog.InsufficientStockError{BookID: b.ID, Title: b.Title, Available: b.Stock}
		}

		line := catalog.Cents(b.Price) * int64(l.Quantity)
		if line < 0 || total > math.MaxInt64-line {
			return nil, 0, ErrTotalOverflow
		}
		total += line

		items = append(items, Item{
			BookID:   b.ID,
			Title:    b.Title,
			Quantity: l.Quantity,
			Price:    b.Price,
		})
	}

	return items, total, nil
}

func (s *Service) publish(ctx context.Context, key string, v any) {
	if s.Events == nil {
		return
	}
	if err := s.Events.PublishJSON(ctx, key, v); err != nil {
		s.logger().Warn("publish event failed", zap.String("event", key), zap.Error(err))
	}
}

func (s *Service) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}

func (s *Service) logger() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}

func normalizeCustomer(c Customer) (Customer, error) {
	c.Name = strings.TrimSpace(c.Name)
	c.Email = strings.ToLower(strings.TrimSpace(c.Email))
	c.Address = strings.TrimSpace(c.Address)
	c.Phone = strings.TrimSpace(c.Phone)

	if c.Name == "" || c.Email == "" {
		return Customer{}, ErrCustomerRequired
	}
	if _, err := mail.ParseAddress(c.Email); err != nil {
		return Customer{}, ErrInvalidEmail
	}
	return c, nil
}

func outcome(err error) string {
	switch {
	case errors.Is(err, catalog.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, ErrCatalogUnavailable), errors.Is(err, ErrCatalogBadStatus):
		return "catalog_error"
	default:
		return "invalid"
	}
}
