package catalog

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

type Book struct {
	ID          int64   `json:"id" db:"id"`
	Title       string  `json:"title" db:"title"`
	Author      string  `json:"author" db:"author"`
	Price       float64 `json:"price" db:"price"`
	Description string  `json:"description" db:"description"`
	Genre       string  `json:"genre" db:"genre"`
	Stock       int     `json:"stock" db:"stock"`
	ImageURL    string  `json:"image_url" db:"image_url"`
}

type Snapshot map[int64]Book

func NewSnapshot(books []Book) Snapshot {
	s := make(Snapshot, len(books))
	for _, b := range books {
		s[b.ID] = b
	}
	return s
}

func (s Snapshot) Lookup(id int64) (Book, bool) {
	b, ok := s[id]
	return b, ok
}

func (s Snapshot) Books() []Book {
	out := make([]Book, 0, len(s))
	for _, b := range s {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

type StockChange struct {
	BookID   int64 `json:"book_id"`
	Quantity int   `json:"quantity"`
}

var (
	ErrBookNotFound      = errors.New("book not found")
	ErrInvalidStock      = errors.New("stock must be non-negative")
	ErrInvalidQuantity   = errors.New("quantity must be positive")
	ErrInsufficientStock = errors.New("insufficient stock")
)

type InsufficientStockError struct {
	BookID    int64
	Title     string
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("Insufficient stock for %s", e.Title)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

func sumChanges(changes []StockChange) []StockChange {
	byID := make(map[int64]int, len(changes))
	for _, c := range changes {
		byID[c.BookID] += c.Quantity
	}

	out := make([]StockChange, 0, len(byID))
	for id, qty := range byID {
		out = append(out, StockChange{BookID: id, Quantity: qty})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BookID < out[j].BookID })
	return out
}

func validateChanges(changes []StockChange) error {
	for _, c := range changes {
		if c.Quantity <= 0 {
			return ErrInvalidQuantity
		}
	}
	return nil
}

func Cents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

func FromCents(cents int64) float64 {
	return float64(cents) / 100
}
