package catalog

import (
	"context"
	"sort"
	"sync"
)

type MemStore struct {
	mu     sync.RWMutex
	m      map[int64]Book
	nextID int64
}

func NewMemStore() *MemStore {
	return &MemStore{m: map[int64]Book{}, nextID: 1}
}

func NewStore() *MemStore {
	s := NewMemStore()
	_, _ = s.Seed(context.Background(), SampleBooks())
	return s
}

func (s *MemStore) Ping(ctx context.Context) error { return nil }

func (s *MemStore) List(ctx context.Context) ([]Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Book, 0, len(s.m))
	for _, b := range s.m {
		out = append(out, b)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemStore) Get(ctx context.Context, id int64) (Book, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.m[id]
	return b, ok, nil
}

func (s *MemStore) SetStock(ctx context.Context, id int64, stock int) (Book, error) {
	if stock < 0 {
		return Book{}, ErrInvalidStock
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.m[id]
	if !ok {
		return Book{}, ErrBookNotFound
	}
	b.Stock = stock
	s.m[id] = b
	return b, nil
}

func (s *MemStore) Deduct(ctx context.Context, changes []StockChange) error {
	if err := validateChanges(changes); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	need := sumChanges(changes)
	for _, c := range need {
		b, ok := s.m[c.BookID]
		if !ok {
			return ErrBookNotFound
		}
		if b.Stock < c.Quantity {
			return &InsufficientStockError{BookID: b.ID, Title: b.Title, Available: b.Stock}
		}
	}

	for _, c := range need {
		b := s.m[c.BookID]
		b.Stock -= c.Quantity
		s.m[c.BookID] = b
	}
	return nil
}

func (s *MemStore) Restock(ctx context.Context, changes []StockChange) error {
	if err := validateChanges(changes); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range changes {
		if _, ok := s.m[c.BookID]; !ok {
			return ErrBookNotFound
		}
	}
	for _, c := range changes {
		b := s.m[c.BookID]
		b.Stock += c.Quantity
		s.m[c.BookID] = b
	}
	return nil
}

func (s *MemStore) Seed(ctx context.Context, books []Book) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.m) > 0 {
		return 0, nil
	}
	for _, b := range books {
		if b.ID == 0 {
			b.ID = s.nextID
		}
		if b.ID >= s.nextID {
			s.nextID = b.ID + 1
		}
		s.m[b.ID] = b
	}
	return len(books), nil
}
