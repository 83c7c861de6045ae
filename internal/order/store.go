package order

import (
	"context"
	"errors"
	"time"
)

const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusShipped   = "shipped"
	StatusDelivered = "delivered"
	StatusCancelled = "cancelled"
)

var validStatuses = map[string]struct{}{
	StatusPending:   {},
	StatusConfirmed: {},
	StatusShipped:   {},
	StatusDelivered: {},
	StatusCancelled: {},
}

func ValidStatus(s string) bool {
	_, ok := validStatuses[s]
	return ok
}

var ErrOrderNotFound = errors.New("order not found")

type Customer struct {
	Name    string `json:"name" db:"name"`
	Email   string `json:"email" db:"email"`
	Address string `json:"address" db:"address"`
	Phone   string `json:"phone" db:"phone"`
}

type Item struct {
	BookID   int64   `json:"book_id" db:"book_id"`
	Title    string  `json:"book_title" db:"book_title"`
	Quantity int     `json:"quantity" db:"quantity"`
	Price    float64 `json:"price" db:"price"`
}

type Order struct {
	ID          int64     `json:"id" db:"id"`
	CustomerID  int64     `json:"user_id" db:"customer_id"`
	Customer    Customer  `json:"customer"`
	Items       []Item    `json:"items,omitempty"`
	TotalAmount float64   `json:"total_amount" db:"total_amount"`
	Status      string    `json:"status" db:"status"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

type Store interface {
	Ping(ctx context.Context) error
	Create(ctx context.Context, o *Order) error
	Get(ctx context.Context, id int64) (Order, bool, error)
	List(ctx context.Context) ([]Order, error)
	UpdateStatus(ctx context.Context, id int64, status string) (Order, error)
}
