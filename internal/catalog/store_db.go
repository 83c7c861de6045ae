package catalog

import (
	"context"
	"database/sql"
	"embed"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"BookStore/pkg/kit"
)

//go:embed migrations
var Migrations embed.FS

const (
	pingTimeout  = 1 * time.Second
	queryTimeout = 3 * time.Second
	txTimeout    = 5 * time.Second

	bookColumns = `id, title, author, price, description, genre, stock, image_url`
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

func (s *SQLStore) List(ctx context.Context) ([]Book, error) {
	out := make([]Book, 0, 16)
	err := kit.WithTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		return s.db.SelectContext(ctx, &out, `SELECT `+bookColumns+` FROM books ORDER BY id ASC`)
	})
	if err != nil {
		return nil, errors.Wrap(err, "list books")
	}
	return out, nil
}

func (s *SQLStore) Get(ctx context.Context, id int64) (Book, bool, error) {
	var b Book
	err := kit.WithTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		return s.db.GetContext(ctx, &b, s.db.Rebind(`SELECT `+bookColumns+` FROM books WHERE id = ?`), id)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return Book{}, false, nil
	}
	if err != nil {
		return Book{}, false, errors.Wrapf(err, "get book %d", id)
	}
	return b, true, nil
}

func (s *SQLStore) SetStock(ctx context.Context, id int64, stock int) (Book, error) {
	if stock < 0 {
		return Book{}, ErrInvalidStock
	}

	var b Book
	err := kit.WithTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		return s.db.GetContext(ctx, &b, s.db.Rebind(`
			UPDATE books SET stock = ?
			WHERE id = ?
			RETURNING `+bookColumns), stock, id)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return Book{}, ErrBookNotFound
	}
	if err != nil {
		return Book{}, errors.Wrapf(err, "set stock %d", id)
	}
	return b, nil
}

func (s *SQLStore) Deduct(ctx context.Context, changes []StockChange) error {
	if err := validateChanges(changes); err != nil {
		return err
	}

	return s.inTx(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		for _, c := range sumChanges(changes) {
			id, qty := c.BookID, c.Quantity
			res, err := tx.ExecContext(ctx, tx.Rebind(`
				UPDATE books SET stock = stock - ?
				WHERE id = ? AND stock >= ?
			`), qty, id, qty)
			if err != nil {
				return errors.Wrapf(err, "deduct book %d", id)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return errors.Wrap(err, "rows affected")
			}
			if n == 1 {
				continue
			}

			var b Book
			err = tx.GetContext(ctx, &b, tx.Rebind(`SELECT `+bookColumns+` FROM books WHERE id = ?`), id)
			if errors.Is(err, sql.ErrNoRows) {
				return ErrBookNotFound
			}
			if err != nil {
				return errors.Wrapf(err, "get book %d", id)
			}
			return &InsufficientStockError{BookID: b.ID, Title: b.Title, Available: b.Stock}
		}
		return nil
	})
}

func (s *SQLStore) Restock(ctx context.Context, changes []StockChange) error {
	if err := validateChanges(changes); err != nil {
		return err
	}

	return s.inTx(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		for _, c := range sumChanges(changes) {
			id, qty := c.BookID, c.Quantity
			res, err := tx.ExecContext(ctx, tx.Rebind(`UPDATE books SET stock = stock + ? WHERE id = ?`), qty, id)
			if err != nil {
				return errors.Wrapf(err, "restock book %d", id)
			}
			if n, _ := res.RowsAffected(); n == 0 {
				return ErrBookNotFound
			}
		}
		return nil
	})
}

func (s *SQLStore) Seed(ctx context.Context, books []Book) (int, error) {
	added := 0
	err := s.inTx(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		var n int
		if err := tx.GetContext(ctx, &n, `SELECT COUNT(*) FROM books`); err != nil {
			return errors.Wrap(err, "count books")
		}
		if n > 0 {
			return nil
		}

		for _, b := range books {
			_, err := tx.NamedExecContext(ctx, `
				INSERT INTO books (title, author, price, description, genre, stock, image_url)
				VALUES (:title, :author, :price, :description, :genre, :stock, :image_url)
			`, b)
			if err != nil {
				return errors.Wrapf(err, "seed %q", b.Title)
			}
			added++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return added, nil
}

func (s *SQLStore) inTx(ctx context.Context, fn func(ctx context.Context, tx *sqlx.Tx) error) error {
	return kit.WithTimeout(ctx, txTimeout, func(ctx context.Context) error {
		tx, err := s.db.BeginTxx(ctx, nil)
		if err != nil {
			return errors.Wrap(err, "begin tx")
		}
		defer func() { _ = tx.Rollback() }()

		if err := fn(ctx, tx); err != nil {
			return err
		}
		return tx.Commit()
	})
}
