package order

import (
	"context"
	"sort"
	"strings"
	"sync"
)

type MemStore struct {
	mu        sync.RWMutex
	orders    map[int64]Order
	customers map[string]int64
	nextOrder int64
	nextCust  int64
}

func NewMemStore() *MemStore {
	return &MemStore{
		orders:    map[int64]Order{},
		customers: map[string]int64{},
	}
}

func NewStore() Store {
	return NewMemStore()
}

func (s *MemStore) Ping(ctx context.Context) error { return nil }

func (s *MemStore) Create(ctx context.Context, o *Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(o.Customer.Email)
	cid, ok := s.customers[key]
	if !ok {
		s.nextCust++
		cid = s.nextCust
		s.customers[key] = cid
	}

	s.nextOrder++
	o.ID = s.nextOrder
	o.CustomerID = cid

	stored := *o
	stored.Items = append([]Item(nil), o.Items...)
	s.orders[o.ID] = stored
	return nil
}

func (s *MemStore) Get(ctx context.Context, id int64) (Order, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.orders[id]
	if ok {
		o.Items = append([]Item(nil), o.Items...)
	}
	return o, ok, nil
}

func (s *MemStore) List(ctx context.Context) ([]Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Order, 0, len(s.orders))
	for _, o := range s.orders {
		o.Items = nil
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemStore) UpdateStatus(ctx context.Context, id int64, status string) (Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[id]
	if !ok {
		return Order{}, ErrOrderNotFound
	}
	o.Status = status
	s.orders[id] = o

	o.Items = append([]Item(nil), o.Items...)
	return o, nil
}
