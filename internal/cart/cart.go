package cart

import (
	"github.com/dustin/go-humanize"

	"BookStore/internal/catalog"
)

type Line struct {
	catalog.Book
	Quantity int `json:"quantity"`
}

func (l Line) SubtotalCents() int64 {
	return catalog.Cents(l.Price) * int64(l.Quantity)
}

type Cart struct {
	lines []Line
}

func New() *Cart {
	return &Cart{}
}

func (c *Cart) Add(snap catalog.Snapshot, bookID int64) error {
	book, ok := snap.Lookup(bookID)
	if !ok {
		return newError(ReasonUnknownBook, bookID, 0)
	}
	if book.Stock <= 0 {
		return newError(ReasonOutOfStock, bookID, 0)
	}

	i := c.index(bookID)
	if i < 0 {
		c.lines = append(c.lines, Line{Book: book, Quantity: 1})
		return nil
	}

	if c.lines[i].Quantity+1 > book.Stock {
		return newError(ReasonStockExceeded, bookID, book.Stock)
	}
	c.lines[i].Quantity++
	return nil
}

func (c *Cart) Remove(bookID int64) {
	i := c.index(bookID)
	if i < 0 {
		return
	}
	c.lines = append(c.lines[:i], c.lines[i+1:]...)
}

func (c *Cart) UpdateQuantity(snap catalog.Snapshot, bookID int64, delta int) error {
	i := c.index(bookID)
	if i < 0 {
		return newError(ReasonNotFound, bookID, 0)
	}
	if delta == 0 {
		return newError(ReasonInvalidDelta, bookID, 0)
	}

	qty := c.lines[i].Quantity + delta
	if qty <= 0 {
		c.Remove(bookID)
		return nil
	}

	book, ok := snap.Lookup(bookID)
	if !ok {
		return newError(ReasonUnknownBook, bookID, 0)
	}
	if qty > book.Stock {
		return newError(ReasonStockExceeded, bookID, book.Stock)
	}

	c.lines[i].Quantity = qty
	return nil
}

func (c *Cart) Clear() {
	c.lines = nil
}

// Prune must only be given a snapshot that was fetched just now.
// Callers must only pass snapshots that were actually fetched.
func (c *Cart) Prune(snap catalog.Snapshot) []int64 {
	var removed []int64
	kept := c.lines[:0]
	for _, l := range c.lines {
		if _, ok := snap.Lookup(l.ID); ok {
			kept = append(kept, l)
			continue
		}
		removed = append(removed, l.ID)
	}
	c.lines = kept
	return removed
}

func (c *Cart) UniqueLineCount() int {
	return len(c.lines)
}

func (c *Cart) IsEmpty() bool {
	return len(c.lines) == 0
}

func (c *Cart) Quantity(bookID int64) int {
	if i := c.index(bookID); i >= 0 {
		return c.lines[i].Quantity
	}
	return 0
}

func (c *Cart) Lines() []Line {
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

func (c *Cart) TotalCents() int64 {
	var total int64
	for _, l := range c.lines {
		total += l.SubtotalCents()
	}
	return total
}

func (c *Cart) Total() float64 {
	return catalog.FromCents(c.TotalCents())
}

func (c *Cart) FormatTotal() string {
	return FormatMoney(c.Total())
}

func (c *Cart) index(bookID int64) int {
	for i := range c.lines {
		if c.lines[i].ID == bookID {
			return i
		}
	}
	return -1
}

func FormatMoney(amount float64) string {
	return "$" + humanize.FormatFloat("#,###.##", amount)
}
