// Package client is the HTTP SDK for the booking API.  Every call runs
// under its own timeout; a deadline surfaces as ErrTimeout, transport
// failures as ErrNetwork and API rejections as *APIError.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/table-reservation/internal/api"
	"github.com/iliyamo/table-reservation/internal/model"
)

// DefaultTimeout bounds each request.
const DefaultTimeout = 15 * time.Second

type Client struct {
	base    string
	hc      *http.Client
	timeout time.Duration
	log     *zap.Logger
}

type Option func(*Client)

// WithHTTPClient replaces the transport, e.g. with an httptest server's
// client.
func WithHTTPClient(hc *http.Client) Option { return func(c *Client) { c.hc = hc } }

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithLogger(log *zap.Logger) Option { return func(c *Client) { c.log = log } }

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		base:    strings.TrimRight(baseURL, "/"),
		hc:      &http.Client{},
		timeout: DefaultTimeout,
		log:     zap.NewNop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Tenant fetches the public tenant profile.
func (c *Client) Tenant(ctx context.Context, ref string) (api.Tenant, error) {
	var out api.Tenant
	err := c.do(ctx, http.MethodGet, "/v1/tenants/"+url.PathEscape(ref), nil, "", nil, &out)
	return out, err
}

// Availability lists the slots for party on date (YYYY-MM-DD).
func (c *Client) Availability(ctx context.Context, ref string, party int, date string) (model.Availability, error) {
	q := url.Values{}
	q.Set("party_size", strconv.Itoa(party))
	q.Set("date", date)
	var out model.Availability
	err := c.do(ctx, http.MethodGet, "/v1/tenants/"+url.PathEscape(ref)+"/availability", q, "", nil, &out)
	return out, err
}

// PlaceHold reserves capacity.  key identifies the booking attempt and
// must be reused on retries and on Confirm.
func (c *Client) PlaceHold(ctx context.Context, ref string, req api.HoldRequest, key string) (api.Hold, error) {
	var out api.Hold
	err := c.do(ctx, http.MethodPost, "/v1/tenants/"+url.PathEscape(ref)+"/holds", nil, key, req, &out)
	return out, err
}

func (c *Client) ReleaseHold(ctx context.Context, ref, holdID string) error {
	return c.do(ctx, http.MethodDelete, "/v1/tenants/"+url.PathEscape(ref)+"/holds/"+url.PathEscape(holdID), nil, "", nil, nil)
}

// CreatePaymentIntent opens a deposit intent and returns its client
// secret.
func (c *Client) CreatePaymentIntent(ctx context.Context, ref string, req api.IntentRequest, key string) (model.PaymentIntent, error) {
	var out model.PaymentIntent
	err := c.do(ctx, http.MethodPost, "/v1/tenants/"+url.PathEscape(ref)+"/payment-intents", nil, key, req, &out)
	return out, err
}

// Confirm turns the hold into a booking.  A replay with the same key
// returns the same booking.
func (c *Client) Confirm(ctx context.Context, ref string, req api.ConfirmRequest, key string) (api.Booking, error) {
	var out api.Booking
	err := c.do(ctx, http.MethodPost, "/v1/tenants/"+url.PathEscape(ref)+"/reservations", nil, key, req, &out)
	return out, err
}

// Reservation reads a booking back by id.
func (c *Client) Reservation(ctx context.Context, id string) (api.Booking, error) {
	var out api.Booking
	err := c.do(ctx, http.MethodGet, "/v1/reservations/"+url.PathEscape(id), nil, "", nil, &out)
	return out, err
}

func (c *Client) CancelReservation(ctx context.Context, id, email string) (api.Booking, error) {
	var out api.Booking
	err := c.do(ctx, http.MethodPost, "/v1/reservations/"+url.PathEscape(id)+"/cancel", nil, "", api.CancelRequest{Email: email}, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, key string, in, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	u := c.base + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if key != "" {
		req.Header.Set(api.HeaderIdempotencyKey, key)
	}

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		return c.transportErr(ctx, method, path, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return c.transportErr(ctx, method, path, err)
	}
	c.log.Debug("api call", zap.String("method", method), zap.String("path", path),
		zap.Int("status", resp.StatusCode), zap.Duration("latency", time.Since(start)))

	if resp.StatusCode >= 400 {
		apiErr := &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		var e api.Error
		if json.Unmarshal(raw, &e) == nil && e.Error != "" {
			apiErr.Code, apiErr.Message, apiErr.Fields = e.Code, e.Error, e.Fields
		}
		return apiErr
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: decode %s %s: %w", ErrUpstreamUnavailable, method, path, err)
	}
	return nil
}

func (c *Client) transportErr(ctx context.Context, method, path string, err error) error {
	var ne net.Error
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		c.log.Warn("api call timed out", zap.String("method", method), zap.String("path", path))
		return fmt.Errorf("%w: %s %s after %s", ErrTimeout, method, path, c.timeout)
	}
	return fmt.Errorf("%w: %s %s: %w", ErrNetwork, method, path, err)
}
