package order

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"BookStore/internal/catalog"
	"BookStore/pkg/kit"
)

var (
	ErrCatalogNotFound    = errors.New("catalog book not found")
	ErrCatalogBadStatus   = errors.New("catalog bad status")
	ErrCatalogUnavailable = errors.New("catalog unavailable")
)

type CatalogClient struct {
	BaseURL      string
	ServiceToken string
	Client       *http.Client
}

func NewCatalogClient(baseURL, serviceToken string) *CatalogClient {
	if u, err := url.Parse(baseURL); err == nil && u.Scheme != "" && u.Host != "" {
		baseURL = strings.TrimRight(baseURL, "/")
	}
	return &CatalogClient{
		BaseURL:      baseURL,
		ServiceToken: serviceToken,
		Client:       &http.Client{Timeout: 3 * time.Second},
	}
}

func (c *CatalogClient) GetBook(ctx context.Context, id int64) (catalog.Book, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/api/books/%d", c.BaseURL, id), nil)
	if err != nil {
		return catalog.Book{}, err
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return catalog.Book{}, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return catalog.Book{}, ErrCatalogNotFound
	default:
		_, _ = io.Copy(io.Discard, resp.Body)
		return catalog.Book{}, fmt.Errorf("%w: status=%d", ErrCatalogBadStatus, resp.StatusCode)
	}

	var b catalog.Book
	if err := json.NewDecoder(resp.Body).Decode(&b); err != nil {
		return catalog.Book{}, fmt.Errorf("%w: %v", ErrCatalogBadStatus, err)
	}
	return b, nil
}

func (c *CatalogClient) Deduct(ctx context.Context, changes []catalog.StockChange) error {
	return c.postStock(ctx, "deduct", changes)
}

func (c *CatalogClient) Restock(ctx context.Context, changes []catalog.StockChange) error {
	return c.postStock(ctx, "restock", changes)
}

type stockConflict struct {
	Details struct {
		BookID    int64  `json:"book_id"`
		Title     string `json:"title"`
		Available int    `json:"available"`
	} `json:"details"`
}

func (c *CatalogClient) postStock(ctx context.Context, op string, changes []catalog.StockChange) error {
	body, err := json.Marshal(map[string]any{"items": changes})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/internal/stock/"+op, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(kit.HeaderServiceToken, c.ServiceToken)

	resp, err := c.Client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNoContent, http.StatusOK:
		return nil
	case http.StatusNotFound:
		return ErrUnknownBook
	case http.StatusConflict:
		var sc stockConflict
		if err := json.NewDecoder(io.LimitReader(resp.Body, kit.MaxBodyBytes)).Decode(&sc); err != nil {
			return catalog.ErrInsufficientStock
		}
		return &catalog.InsufficientStockError{
			BookID:    sc.Details.BookID,
			Title:     sc.Details.Title,
			Available: sc.Details.Available,
		}
	default:
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("%w: %s status=%d", ErrCatalogBadStatus, op, resp.StatusCode)
	}
}
