package order

import (
	"context"
	"database/sql"
	"embed"
	"strings"
	"time"

	"github.com/pkg/errors"

	"BookStore/pkg/kit"
)

//go:embed migrations
var Migrations embed.FS

const (
	pingTimeout  = 1 * time.Second
	queryTimeout = 3 * time.Second
	txTimeout    = 5 * time.Second
)

type SQLStore struct {
	db *kit.DB
}

func NewSQLStore(db *kit.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) Ping(ctx context.Context) error {
	return kit.WithTimeout(ctx, pingTimeout, func(ctx context.Context) error {
		return s.db.PingContext(ctx)
	})
}

func (s *SQLStore) Create(ctx context.Context, o *Order) error {
	return kit.WithTimeout(ctx, txTimeout, func(ctx context.Context) error {
		tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
		if err != nil {
			return errors.Wrap(err, "begin tx")
		}
		defer func() { _ = tx.Rollback() }()

		err = tx.GetContext(ctx, &o.CustomerID, tx.Rebind(`
			INSERT INTO customers (name, email, phone, address)
			VALUES (?, ?, ?, ?)
			ON CONFLICT (email) DO UPDATE SET email = excluded.email
			RETURNING id
		`), o.Customer.Name, strings.ToLower(o.Customer.Email), o.Customer.Phone, o.Customer.Address)
		if err != nil {
			return errors.Wrap(err, "upsert customer")
		}

		err = tx.GetContext(ctx, &o.ID, tx.Rebind(`
			INSERT INTO orders (customer_id, total_amount, status, created_at)
			VALUES (?, ?, ?, ?)
			RETURNING id
		`), o.CustomerID, o.TotalAmount, o.Status, o.CreatedAt)
		if err != nil {
			return errors.Wrap(err, "insert order")
		}

		stmt, err := tx.PreparexContext(ctx, tx.Rebind(`
			INSERT INTO order_items (order_id, book_id, book_title, quantity, price)
			VALUES (?, ?, ?, ?, ?)
		`))
		if err != nil {
			return errors.Wrap(err, "prepare items")
		}
		defer stmt.Close()

		for _, it := range o.Items {
			if _, err := stmt.ExecContext(ctx, o.ID, it.BookID, it.Title, it.Quantity, it.Price); err != nil {
				return errors.Wrapf(err, "insert item %d", it.BookID)
			}
		}

		return tx.Commit()
	})
}

type orderRow struct {
	ID              int64     `db:"id"`
	CustomerID      int64     `db:"customer_id"`
	TotalAmount     float64   `db:"total_amount"`
	Status          string    `db:"status"`
	CreatedAt       time.Time `db:"created_at"`
	CustomerName    string    `db:"customer_name"`
	CustomerEmail   string    `db:"customer_email"`
	CustomerPhone   string    `db:"customer_phone"`
	CustomerAddress string    `db:"customer_address"`
}

func (r orderRow) order() Order {
	return Order{
		ID:          r.ID,
		CustomerID:  r.CustomerID,
		TotalAmount: r.TotalAmount,
		Status:      r.Status,
		CreatedAt:   r.CreatedAt,
		Customer: Customer{
			Name:    r.CustomerName,
			Email:   r.CustomerEmail,
			Phone:   r.CustomerPhone,
			Address: r.CustomerAddress,
		},
	}
}

const selectOrders = `
	SELECT o.id, o.customer_id, o.total_amount, o.status, o.created_at,
	       c.name AS customer_name, c.email AS customer_email,
	       c.phone AS customer_phone, c.address AS customer_address
	FROM orders o
	JOIN customers c ON c.id = o.customer_id`

func (s *SQLStore) Get(ctx context.Context, id int64) (Order, bool, error) {
	var (
		row   orderRow
		items []Item
	)
	err := kit.WithTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		if err := s.db.GetContext(ctx, &row, s.db.Rebind(selectOrders+` WHERE o.id = ?`), id); err != nil {
			return err
		}
		return s.db.SelectContext(ctx, &items, s.db.Rebind(`
			SELECT book_id, book_title, quantity, price
			FROM order_items
			WHERE order_id = ?
			ORDER BY id ASC
		`), id)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return Order{}, false, nil
	}
	if err != nil {
		return Order{}, false, errors.Wrapf(err, "get order %d", id)
	}

	o := row.order()
	o.Items = items
	return o, true, nil
}

func (s *SQLStore) List(ctx context.Context) ([]Order, error) {
	var rows []orderRow
	err := kit.WithTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		return s.db.SelectContext(ctx, &rows, selectOrders+` ORDER BY o.id ASC`)
	})
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}

	out := make([]Order, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.order())
	}
	return out, nil
}

func (s *SQLStore) UpdateStatus(ctx context.Context, id int64, status string) (Order, error) {
	err := kit.WithTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		res, err := s.db.ExecContext(ctx, s.db.Rebind(`UPDATE orders SET status = ? WHERE id = ?`), status, id)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return ErrOrderNotFound
		}
		return nil
	})
	if errors.Is(err, ErrOrderNotFound) {
		return Order{}, ErrOrderNotFound
	}
	if err != nil {
		return Order{}, errors.Wrapf(err, "update status %d", id)
	}

	o, _, err := s.Get(ctx, id)
	return o, err
}
