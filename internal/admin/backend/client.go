package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"finitefield.org/orders-admin/internal/admin/orders"
	"finitefield.org/orders-admin/internal/platform/requestctx"
)

const (
	defaultTimeout = 10 * time.Second

	headerTenantID      = "X-Tenant-ID"
	headerActorID       = "X-Actor-ID"
	headerCorrelationID = "X-Correlation-ID"

	maxErrorBody = 4096
)

// Config describes how to reach the order/return REST API.
type Config struct {
	BaseURL  string
	TenantID string
	ActorID  string
	Timeout  time.Duration
}

// Client implements orders.Service over the commerce REST API.
type Client struct {
	baseURL  string
	tenantID string
	actorID  string
	http     *http.Client
	logger   *zap.Logger
	metrics  *Metrics
	newID    func() string
}

var _ orders.Service = (*Client)(nil)

// Option customises the client.
type Option func(*Client)

// WithTransport sets the base round tripper wrapped by the tracing transport.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		if rt != nil {
			c.http.Transport = otelhttp.NewTransport(rt)
		}
	}
}

// WithLogger sets the fallback logger used when the request context carries none.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics records request latency per operation.
func WithMetrics(m *Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithCorrelationIDs overrides the generator for X-Correlation-ID values.
func WithCorrelationIDs(gen func() string) Option {
	return func(c *Client) {
		if gen != nil {
			c.newID = gen
		}
	}
}

// NewClient constructs an API client for cfg.BaseURL.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("backend: base url is required")
	}
	parsed, err := url.Parse(base)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("backend: invalid base url %q", cfg.BaseURL)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	c := &Client{
		baseURL:  base,
		tenantID: strings.TrimSpace(cfg.TenantID),
		actorID:  strings.TrimSpace(cfg.ActorID),
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: zap.NewNop(),
		newID:  func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

// ListOrders implements orders.Service.
func (c *Client) ListOrders(ctx context.Context, query orders.OrderQuery) (orders.OrderPage, error) {
	params := pagingParams(query.Page, query.PageSize)
	if customer := strings.TrimSpace(query.CustomerID); customer != "" {
		params.Set("customer_id", customer)
	}

	var page orders.OrderPage
	if err := c.do(ctx, "list_orders", http.MethodGet, params, nil, &page, "orders"); err != nil {
		return orders.OrderPage{}, err
	}
	if page.Items == nil {
		page.Items = []orders.Order{}
	}
	return page, nil
}

// GetOrder implements orders.Service.
func (c *Client) GetOrder(ctx context.Context, orderID string) (orders.Order, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return orders.Order{}, orders.ErrOrderNotFound
	}
	var order orders.Order
	if err := c.do(ctx, "get_order", http.MethodGet, nil, nil, &order, "orders", orderID); err != nil {
		return orders.Order{}, notFoundAs(err, orders.ErrOrderNotFound)
	}
	return order, nil
}

// UpdateOrder implements orders.Service.
func (c *Client) UpdateOrder(ctx context.Context, orderID string, update orders.OrderUpdate) (orders.Order, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return orders.Order{}, orders.ErrOrderNotFound
	}
	var updated orders.Order
	if err := c.do(ctx, "update_order", http.MethodPut, nil, update, &updated, "orders", orderID); err != nil {
		return orders.Order{}, notFoundAs(err, orders.ErrOrderNotFound)
	}
	return updated, nil
}

// CancelOrder implements orders.Service.
func (c *Client) CancelOrder(ctx context.Context, orderID string, payload orders.OrderCancel) (orders.Order, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return orders.Order{}, orders.ErrOrderNotFound
	}
	var cancelled orders.Order
	if err := c.do(ctx, "cancel_order", http.MethodPost, nil, payload, &cancelled, "orders", orderID, "cancel"); err != nil {
		return orders.Order{}, notFoundAs(err, orders.ErrOrderNotFound)
	}
	return cancelled, nil
}

// ListReturns implements orders.Service.
func (c *Client) ListReturns(ctx context.Context, query orders.ReturnQuery) (orders.ReturnPage, error) {
	params := pagingParams(query.Page, query.PageSize)
	if query.Status != "" {
		params.Set("status", string(query.Status))
	}

	var page orders.ReturnPage
	if err := c.do(ctx, "list_returns", http.MethodGet, params, nil, &page, "returns"); err != nil {
		return orders.ReturnPage{}, err
	}
	if page.Items == nil {
		page.Items = []orders.ReturnRequest{}
	}
	return page, nil
}

// GetReturn implements orders.Service. The API has no single-return endpoint, so the
// listing is scanned page by page.
func (c *Client) GetReturn(ctx context.Context, returnID string) (orders.ReturnRequest, error) {
	returnID = strings.TrimSpace(returnID)
	if returnID == "" {
		return orders.ReturnRequest{}, orders.ErrReturnNotFound
	}
	request, ok, err := orders.ScanReturns(ctx, c, func(request orders.ReturnRequest) bool {
		return request.ID == returnID
	})
	if err != nil {
		return orders.ReturnRequest{}, err
	}
	if ok {
		return request, nil
	}
	return orders.ReturnRequest{}, orders.ErrReturnNotFound
}

// CreateReturn implements orders.Service.
func (c *Client) CreateReturn(ctx context.Context, payload orders.ReturnCreate) (orders.ReturnRequest, error) {
	var created orders.ReturnRequest
	if err := c.do(ctx, "create_return", http.MethodPost, nil, payload, &created, "returns"); err != nil {
		return orders.ReturnRequest{}, notFoundAs(err, orders.ErrOrderNotFound)
	}
	return created, nil
}

// ApproveReturn implements orders.Service.
func (c *Client) ApproveReturn(ctx context.Context, returnID string, payload orders.ReturnDecision) (orders.ReturnRequest, error) {
	return c.returnAction(ctx, "approve_return", returnID, string(orders.ActionApprove), payload)
}

// RejectReturn implements orders.Service.
func (c *Client) RejectReturn(ctx context.Context, returnID string, payload orders.ReturnRejection) (orders.ReturnRequest, error) {
	return c.returnAction(ctx, "reject_return", returnID, string(orders.ActionReject), payload)
}

// RefundReturn implements orders.Service.
func (c *Client) RefundReturn(ctx context.Context, returnID string, payload orders.ReturnRefund) (orders.ReturnRequest, error) {
	return c.returnAction(ctx, "refund_return", returnID, string(orders.ActionRefund), payload)
}

func (c *Client) returnAction(ctx context.Context, op, returnID, action string, payload any) (orders.ReturnRequest, error) {
	returnID = strings.TrimSpace(returnID)
	if returnID == "" {
		return orders.ReturnRequest{}, orders.ErrReturnNotFound
	}
	var updated orders.ReturnRequest
	if err := c.do(ctx, op, http.MethodPost, nil, payload, &updated, "returns", returnID, action); err != nil {
		return orders.ReturnRequest{}, notFoundAs(err, orders.ErrReturnNotFound)
	}
	return updated, nil
}

func (c *Client) do(ctx context.Context, op, method string, params url.Values, body, out any, segments ...string) error {
	endpoint, err := url.JoinPath(c.baseURL, segments...)
	if err != nil {
		return fmt.Errorf("backend: build %s url: %w", op, err)
	}
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("backend: encode %s payload: %w", op, err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("backend: %s: %w", op, err)
	}
	correlationID := c.newID()
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(headerCorrelationID, correlationID)
	if c.tenantID != "" {
		req.Header.Set(headerTenantID, c.tenantID)
	}
	if c.actorID != "" {
		req.Header.Set(headerActorID, c.actorID)
	}

	logger := c.loggerFor(ctx).With(
		zap.String("backend_op", op),
		zap.String("correlation_id", correlationID),
	)

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.observe(op, "transport_error", started)
		logger.Warn("backend request failed", zap.Error(err))
		return fmt.Errorf("backend: %s: %w", op, err)
	}
	defer resp.Body.Close()
	c.metrics.observe(op, strconv.Itoa(resp.StatusCode), started)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := decodeAPIError(resp)
		logger.Info("backend rejected request",
			zap.Int("status", apiErr.Status),
			zap.String("detail", apiErr.Detail),
		)
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		logger.Warn("backend response decode failed", zap.Error(err))
		return fmt.Errorf("backend: decode %s response: %w", op, err)
	}
	logger.Debug("backend request completed", zap.Duration("latency", time.Since(started)))
	return nil
}

// loggerFor prefers the request-scoped logger; the context default is a no-op.
func (c *Client) loggerFor(ctx context.Context) *zap.Logger {
	logger := requestctx.Logger(ctx)
	if logger.Core().Enabled(zap.FatalLevel) {
		return logger
	}
	return c.logger
}

func pagingParams(page, pageSize int) url.Values {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = orders.DefaultPageSize
	}
	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	params.Set("pageSize", strconv.Itoa(pageSize))
	return params
}

func notFoundAs(err error, sentinel error) error {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
		return fmt.Errorf("%w: %s", sentinel, apiErr.Detail)
	}
	return err
}
