package catalog_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"BookStore/internal/catalog"
	"BookStore/pkg/kit"
)

func newSQLiteStore(t *testing.T) *catalog.SQLStore {
	t.Helper()

	db, err := kit.OpenDB(t.Context(), "sqlite://"+filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, kit.Migrate(db, catalog.Migrations))
	// a second run must be a no-op
	require.NoError(t, kit.Migrate(db, catalog.Migrations))

	return catalog.NewSQLStore(db)
}

func TestSQLStore_SeedAndRead(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := t.Context()

	n, err := s.Seed(ctx, catalog.SampleBooks())
	require.NoError(t, err)
	assert.Equal(t, 8, n)

	n, err = s.Seed(ctx, catalog.SampleBooks())
	require.NoError(t, err)
	assert.Zero(t, n)

	books, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, books, 8)
	assert.Equal(t, "The Great Gatsby", books[0].Title)

	b, ok, err := s.Get(ctx, 5)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "The Hobbit", b.Title)
	assert.Equal(t, 16.99, b.Price)
	assert.Equal(t, 10, b.Stock)

	_, ok, err = s.Get(ctx, 99)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSQLStore_StockChanges(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := t.Context()
	_, err := s.Seed(ctx, catalog.SampleBooks())
	require.NoError(t, err)

	err = s.Deduct(ctx, []catalog.StockChange{{BookID: 1, Quantity: 2}, {BookID: 5, Quantity: 11}})
	var ise *catalog.InsufficientStockError
	require.ErrorAs(t, err, &ise)
	assert.Equal(t, "Insufficient stock for The Hobbit", ise.Error())
	assert.Equal(t, 10, ise.Available)

	b, _, err := s.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 15, b.Stock, "failed deduct must not touch other lines")

	require.NoError(t, s.Deduct(ctx, []catalog.StockChange{{BookID: 1, Quantity: 2}, {BookID: 1, Quantity: 3}}))
	b, _, err = s.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 10, b.Stock)

	require.NoError(t, s.Restock(ctx, []catalog.StockChange{{BookID: 1, Quantity: 5}}))
	b, err = s.SetStock(ctx, 1, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, b.Stock)

	require.ErrorIs(t, s.Deduct(ctx, []catalog.StockChange{{BookID: 42, Quantity: 1}}), catalog.ErrBookNotFound)
	require.ErrorIs(t, s.Deduct(ctx, []catalog.StockChange{{BookID: 1, Quantity: 0}}), catalog.ErrInvalidQuantity)

	_, err = s.SetStock(ctx, 42, 1)
	require.ErrorIs(t, err, catalog.ErrBookNotFound)
	_, err = s.SetStock(ctx, 1, -1)
	require.ErrorIs(t, err, catalog.ErrInvalidStock)
}

func TestSQLStore_DeductReportsLowestShortID(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := t.Context()
	_, err := s.Seed(ctx, catalog.SampleBooks())
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		err := s.Deduct(ctx, []catalog.StockChange{{BookID: 5, Quantity: 99}, {BookID: 3, Quantity: 99}, {BookID: 1, Quantity: 99}})
		require.EqualError(t, err, "Insufficient stock for The Great Gatsby")
	}

	b, _, err := s.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 15, b.Stock)
}
