// Package commerce talks to the commerce platform's cart endpoint on behalf
// of widget controllers.
package commerce

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-resty/resty/v2"
	"github.com/oklog/ulid/v2"

	"finitefield.org/storefront-widgets/internal/cart"
)

// Default HTTP settings for platform calls.
const (
	DefaultTimeout    = 8 * time.Second
	idempotencyHeader = "Idempotency-Key"
	userAgent         = "storefront-widgets/1.0"
)

// ErrUnavailable is returned by a nil or unconfigured client. It matches
// cart.ErrUnavailable under errors.Is.
var ErrUnavailable = fmt.Errorf("commerce: cart endpoint not configured: %w", cart.ErrUnavailable)

// StatusError carries a non-2xx platform response.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("commerce: add item status %d: %s", e.Status, e.Body)
}

// Client posts cart items to {baseURL}/cart/items. It never retries: each
// submission maps to exactly one request.
type Client struct {
	baseURL string
	http    *resty.Client
}

// NewClient builds a client. An empty baseURL returns nil, which callers
// treat as "platform absent".
func NewClient(baseURL string, timeout time.Duration) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	rc := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", userAgent)
	return &Client{baseURL: baseURL, http: rc}
}

type addItemPayload struct {
	ID       string `json:"id"`
	Quantity int    `json:"quantity"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// AddItem implements cart.API.
func (c *Client) AddItem(ctx context.Context, item cart.Item) error {
	if c == nil || c.http == nil {
		return ErrUnavailable
	}
	var apiErr errorPayload
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader(idempotencyHeader, newIdempotencyKey()).
		SetBody(addItemPayload{ID: item.ID, Quantity: item.Quantity}).
		SetError(&apiErr).
		Post("/cart/items")
	if err != nil {
		return fmt.Errorf("commerce: add item: %w", err)
	}
	if resp.IsError() {
		body := strings.TrimSpace(apiErr.Message)
		if body == "" {
			body = truncate(strings.TrimSpace(resp.String()), 256)
		}
		return &StatusError{Status: resp.StatusCode(), Body: body}
	}
	return nil
}

func newIdempotencyKey() string {
	return "atc_" + strings.ToLower(ulid.Make().String())
}

// truncate caps s at n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
