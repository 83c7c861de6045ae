package storefront

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"BookStore/internal/catalog"
)

var ErrCatalogUnavailable = errors.New("catalog unavailable")

type CatalogSource struct {
	BaseURL string
	Client  *http.Client
	Log     *zap.Logger

	mu   sync.RWMutex
	last catalog.Snapshot
}

func NewCatalogSource(baseURL string, log *zap.Logger) *CatalogSource {
	return &CatalogSource{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{Timeout: 3 * time.Second},
		Log:     log,
	}
}

// fresh is false when the cached copy was served.
func (c *CatalogSource) Snapshot(ctx context.Context) (snap catalog.Snapshot, fresh bool, err error) {
	books, err := c.fetch(ctx)
	if err == nil {
		snap = catalog.NewSnapshot(books)
		c.mu.Lock()
		c.last = snap
		c.mu.Unlock()
		return snap, true, nil
	}

	c.mu.RLock()
	last := c.last
	c.mu.RUnlock()

	if last == nil {
		return nil, false, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}
	if c.Log != nil {
		c.Log.Warn("catalog fetch failed, serving cached snapshot", zap.Error(err), zap.Int("books", len(last)))
	}
	return last, false, nil
}

func (c *CatalogSource) fetch(ctx context.Context) ([]catalog.Book, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/api/books", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("status=%d", resp.StatusCode)
	}

	var books []catalog.Book
	if err := json.NewDecoder(resp.Body).Decode(&books); err != nil {
		return nil, err
	}
	return books, nil
}
