package cart

import (
	"errors"
	"fmt"
)

type Reason string

const (
	ReasonOutOfStock    Reason = "out_of_stock"
	ReasonStockExceeded Reason = "stock_exceeded"
	ReasonNotFound      Reason = "not_found"
	ReasonUnknownBook   Reason = "unknown_book"
	ReasonInvalidDelta  Reason = "invalid_delta"
)

type Error struct {
	Reason    Reason
	BookID    int64
	Available int
}

var (
	ErrOutOfStock    = &Error{Reason: ReasonOutOfStock}
	ErrStockExceeded = &Error{Reason: ReasonStockExceeded}
	ErrNotFound      = &Error{Reason: ReasonNotFound}
	ErrUnknownBook   = &Error{Reason: ReasonUnknownBook}
	ErrInvalidDelta  = &Error{Reason: ReasonInvalidDelta}
)

func (e *Error) Error() string {
	switch e.Reason {
	case ReasonOutOfStock:
		return "This book is out of stock!"
	case ReasonStockExceeded:
		return fmt.Sprintf("Only %d copies available!", e.Available)
	case ReasonNotFound:
		return "Item not in cart"
	case ReasonUnknownBook:
		return "Book not found"
	case ReasonInvalidDelta:
		return "Quantity change must be non-zero"
	default:
		return string(e.Reason)
	}
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Reason == e.Reason
}

func ReasonOf(err error) (Reason, bool) {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Reason, true
	}
	return "", false
}

func newError(reason Reason, bookID int64, available int) *Error {
	return &Error{Reason: reason, BookID: bookID, Available: available}
}
