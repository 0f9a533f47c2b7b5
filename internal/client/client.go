// Package client is the HTTP client of the clinic booking API used by
// clinicctl.
package client

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
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-booking/internal/model"
	apperrors "github.com/jwalitptl/clinic-booking/pkg/errors"
)

// APIError is a non-2xx answer of the API.
type APIError struct {
	StatusCode int
	Message    string
	Fields     []apperrors.FieldError
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: %s", http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("api: %s (%d)", e.Message, e.StatusCode)
}

// IsStatus reports whether err is an APIError with the given status code.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == status
}

type envelope struct {
	Status  string                 `json:"status"`
	Message string                 `json:"message"`
	Data    json.RawMessage        `json:"data"`
	Errors  []apperrors.FieldError `json:"errors"`
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	// stream has no timeout; it carries the realtime feed
	stream *http.Client

	mu    sync.RWMutex
	token string
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		stream:     &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) authorization() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.token == "" {
		return ""
	}
	return "Bearer " + c.token
}

func (c *Client) ListServices(ctx context.Context) ([]*model.Service, error) {
	var services []*model.Service
	if err := c.do(ctx, http.MethodGet, "/api/v1/services", nil, &services); err != nil {
		return nil, fmt.Errorf("failed to list services: %w", err)
	}
	return services, nil
}

func (c *Client) CreateBooking(ctx context.Context, req *model.CreateBookingRequest) (*model.Booking, error) {
	var booking model.Booking
	if err := c.do(ctx, http.MethodPost, "/api/v1/bookings", req, &booking); err != nil {
		return nil, fmt.Errorf("failed to create booking: %w", err)
	}
	return &booking, nil
}

func (c *Client) Login(ctx context.Context, email, password string) (*model.LoginResponse, error) {
	req := model.LoginRequest{Email: email, Password: password}
	var resp model.LoginResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/auth/login", req, &resp); err != nil {
		return nil, fmt.Errorf("failed to login: %w", err)
	}
	c.SetToken(resp.AccessToken)
	return &resp, nil
}

func (c *Client) ListBookings(ctx context.Context, status model.BookingStatus, date *model.Date) ([]*model.BookingView, error) {
	q := url.Values{}
	if status != "" {
		q.Set("status", string(status))
	}
	if date != nil {
		q.Set("date", date.String())
	}
	path := "/api/v1/admin/bookings"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var bookings []*model.BookingView
	if err := c.do(ctx, http.MethodGet, path, nil, &bookings); err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	return bookings, nil
}

func (c *Client) UpdateBookingStatus(ctx context.Context, id uuid.UUID, status model.BookingStatus) (*model.BookingView, error) {
	req := model.UpdateBookingStatusRequest{Status: status}
	var booking model.BookingView
	if err := c.do(ctx, http.MethodPatch, "/api/v1/admin/bookings/"+id.String()+"/status", req, &booking); err != nil {
		return nil, fmt.Errorf("failed to update booking status: %w", err)
	}
	return &booking, nil
}

const pushSubscriptionPath = "/api/v1/admin/push-subscription"

func (c *Client) SavePushSubscription(ctx context.Context, sub *model.PushSubscription) error {
	if err := c.do(ctx, http.MethodPut, pushSubscriptionPath, sub, nil); err != nil {
		return fmt.Errorf("failed to save push subscription: %w", err)
	}
	return nil
}

func (c *Client) DeletePushSubscription(ctx context.Context) error {
	if err := c.do(ctx, http.MethodDelete, pushSubscriptionPath, nil, nil); err != nil {
		return fmt.Errorf("failed to delete push subscription: %w", err)
	}
	return nil
}

// GetPushSubscription returns nil when the operator has no subscription
// stored.
func (c *Client) GetPushSubscription(ctx context.Context) (*model.PushSubscription, error) {
	var sub model.PushSubscription
	err := c.do(ctx, http.MethodGet, pushSubscriptionPath, nil, &sub)
	if IsStatus(err, http.StatusNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get push subscription: %w", err)
	}
	return &sub, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		r = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if auth := c.authorization(); auth != "" {
		req.Header.Set("Authorization", auth)
	}
	return req, nil
}

// do sends a request and decodes the data field of the response into out.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNoContent {
		return nil
	}

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var env envelope
	if len(data) > 0 {
		if err := json.Unmarshal(data, &env); err != nil {
			if res.StatusCode >= 300 {
				return &APIError{StatusCode: res.StatusCode}
			}
			return fmt.Errorf("decode response: %w", err)
		}
	}

	if res.StatusCode >= 300 {
		return &APIError{StatusCode: res.StatusCode, Message: env.Message, Fields: env.Errors}
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode response data: %w", err)
	}
	return nil
}
