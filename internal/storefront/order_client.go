package storefront

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"BookStore/internal/order"
	"BookStore/pkg/kit"
)

var (
	ErrOrdersUnavailable = errors.New("order service unavailable")
	ErrOrdersBadStatus   = errors.New("order service error")
)

type RejectedError struct {
	Status  int
	Message string
	Details any
}

func (e *RejectedError) Error() string {
	return e.Message
}

type OrderSubmitter struct {
	BaseURL string
	Client  *http.Client
}

func NewOrderSubmitter(baseURL string) *OrderSubmitter {
	return &OrderSubmitter{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (o *OrderSubmitter) Submit(ctx context.Context, req order.CreateRequest) (order.CreateResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return order.CreateResponse{}, err
	}

	hreq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.BaseURL+"/api/orders", bytes.NewReader(body))
	if err != nil {
		return order.CreateResponse{}, err
	}
	hreq.Header.Set("Content-Type", "application/json")

	resp, err := o.Client.Do(hreq)
	if err != nil {
		return order.CreateResponse{}, fmt.Errorf("%w: %v", ErrOrdersUnavailable, err)
	}
	defer resp.Body.Close()

	limited := io.LimitReader(resp.Body, kit.MaxBodyBytes)

	switch {
	case resp.StatusCode == http.StatusCreated:
		var out order.CreateResponse
		if err := json.NewDecoder(limited).Decode(&out); err != nil {
			return order.CreateResponse{}, fmt.Errorf("%w: %v", ErrOrdersBadStatus, err)
		}
		return out, nil

	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		var er kit.ErrorResponse
		if err := json.NewDecoder(limited).Decode(&er); err != nil || er.Error == "" {
			er.Error = http.StatusText(resp.StatusCode)
		}
		return order.CreateResponse{}, &RejectedError{Status: resp.StatusCode, Message: er.Error, Details: er.Details}

	case resp.StatusCode == http.StatusServiceUnavailable:
		_, _ = io.Copy(io.Discard, limited)
		return order.CreateResponse{}, ErrOrdersUnavailable

	default:
		_, _ = io.Copy(io.Discard, limited)
		return order.CreateResponse{}, fmt.Errorf("%w: status=%d", ErrOrdersBadStatus, resp.StatusCode)
	}
}
