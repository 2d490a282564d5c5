package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"finitefield.org/orders-admin/internal/admin/orders"
)

const orderJSON = `{
	"id": "ord-1",
	"tenantId": "t1",
	"customerId": "cust-9",
	"status": "Confirmed",
	"items": [{"productId": "p-1", "quantity": 2, "unitPrice": {"amount": 17.5, "currency": "USD"}}],
	"total": {"amount": 35.0, "currency": "USD"},
	"audit": {"createdBy": "system", "createdDate": "2024-05-01T10:00:00", "modifiedBy": "system", "modifiedDate": "2024-05-01T10:00:00"}
}`

type recordedRequest struct {
	Method string
	Path   string
	Query  string
	Header http.Header
	Body   string
}

type fakeAPI struct {
	t        *testing.T
	mu       sync.Mutex
	requests []recordedRequest
	server   *httptest.Server
}

func newFakeAPI(t *testing.T, register func(r chi.Router)) *fakeAPI {
	t.Helper()
	api := &fakeAPI{t: t}
	router := chi.NewRouter()
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, _ := io.ReadAll(r.Body)
			api.mu.Lock()
			api.requests = append(api.requests, recordedRequest{
				Method: r.Method,
				Path:   r.URL.Path,
				Query:  r.URL.RawQuery,
				Header: r.Header.Clone(),
				Body:   string(body),
			})
			api.mu.Unlock()
			next.ServeHTTP(w, r)
		})
	})
	register(router)
	api.server = httptest.NewServer(router)
	t.Cleanup(api.server.Close)
	return api
}

func (a *fakeAPI) last() recordedRequest {
	a.mu.Lock()
	defer a.mu.Unlock()
	require.NotEmpty(a.t, a.requests)
	return a.requests[len(a.requests)-1]
}

func (a *fakeAPI) client(t *testing.T, opts ...Option) *Client {
	t.Helper()
	opts = append([]Option{WithCorrelationIDs(func() string { return "corr-1" })}, opts...)
	client, err := NewClient(Config{BaseURL: a.server.URL + "/", TenantID: "t1", ActorID: "ops"}, opts...)
	require.NoError(t, err)
	return client
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func TestListOrdersSendsPagingCustomerAndHeaders(t *testing.T) {
	t.Parallel()

	api := newFakeAPI(t, func(r chi.Router) {
		r.Get("/orders", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, `{"items": [`+orderJSON+`], "total": 41, "page": 3, "pageSize": 20}`)
		})
	})

	page, err := api.client(t).ListOrders(context.Background(), orders.OrderQuery{Page: 3, PageSize: 20, CustomerID: " cust-9 "})
	require.NoError(t, err)
	require.Equal(t, 41, page.Total)
	require.Len(t, page.Items, 1)
	order := page.Items[0]
	require.Equal(t, orders.StatusConfirmed, order.Status)
	require.True(t, order.Total.Amount.Equal(decimal.RequireFromString("35")))
	require.Equal(t, "USD", order.Total.Currency)
	require.Equal(t, 2, order.ItemCount())

	req := api.last()
	require.Equal(t, http.MethodGet, req.Method)
	require.Equal(t, "/orders", req.Path)
	require.Equal(t, "customer_id=cust-9&page=3&pageSize=20", req.Query)
	require.Equal(t, "t1", req.Header.Get("X-Tenant-ID"))
	require.Equal(t, "ops", req.Header.Get("X-Actor-ID"))
	require.Equal(t, "corr-1", req.Header.Get("X-Correlation-ID"))
}

func TestListOrdersRejectsUnknownStatus(t *testing.T) {
	t.Parallel()

	api := newFakeAPI(t, func(r chi.Router) {
		r.Get("/orders", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, `{"items": [{"id": "ord-2", "status": "Shipped", "items": [], "total": {"amount": 1, "currency": "USD"}}], "total": 1}`)
		})
	})

	_, err := api.client(t).ListOrders(context.Background(), orders.OrderQuery{})
	require.ErrorIs(t, err, orders.ErrUnknownStatus)
	var unknown *orders.UnknownStatusError
	require.True(t, errors.As(err, &unknown))
	require.Equal(t, "Shipped", unknown.Raw)
}

func TestGetOrderMapsNotFound(t *testing.T) {
	t.Parallel()

	api := newFakeAPI(t, func(r chi.Router) {
		r.Get("/orders/{id}", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusNotFound, `{"detail": "Order not found"}`)
		})
	})

	_, err := api.client(t).GetOrder(context.Background(), "ord-404")
	require.ErrorIs(t, err, orders.ErrOrderNotFound)
	require.Contains(t, err.Error(), "Order not found")
	require.Equal(t, "/orders/ord-404", api.last().Path)
}

func TestOrderLifecycleRequests(t *testing.T) {
	t.Parallel()

	api := newFakeAPI(t, func(r chi.Router) {
		r.Put("/orders/{id}", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, `{"id": "ord-1", "status": "Confirmed", "items": [], "total": {"amount": 35.0, "currency": "USD"}, "shippingAddress": "1 Main St", "audit": {}}`)
		})
		r.Post("/orders/{id}/cancel", func(w http.ResponseWriter, req *http.Request) {
			if chi.URLParam(req, "id") == "ord-2" {
				writeJSON(w, http.StatusConflict, `{"detail": "Order already cancelled"}`)
				return
			}
			writeJSON(w, http.StatusOK, `{"id": "ord-1", "status": "Cancelled", "items": [], "total": {"amount": 35.0, "currency": "USD"}, "audit": {}}`)
		})
	})
	client := api.client(t)
	ctx := context.Background()

	status := orders.StatusConfirmed
	address := "1 Main St"
	updated, err := client.UpdateOrder(ctx, "ord-1", orders.OrderUpdate{Status: &status, ShippingAddress: &address})
	require.NoError(t, err)
	require.Equal(t, "1 Main St", updated.ShippingAddress)
	req := api.last()
	require.Equal(t, http.MethodPut, req.Method)
	require.Equal(t, "/orders/ord-1", req.Path)
	require.JSONEq(t, `{"status": "Confirmed", "shippingAddress": "1 Main St"}`, req.Body)

	cancelled, err := client.CancelOrder(ctx, "ord-1", orders.OrderCancel{Reason: "Customer request"})
	require.NoError(t, err)
	require.Equal(t, orders.StatusCancelled, cancelled.Status)
	require.Equal(t, "/orders/ord-1/cancel", api.last().Path)
	require.JSONEq(t, `{"reason": "Customer request"}`, api.last().Body)

	_, err = client.CancelOrder(ctx, "ord-2", orders.OrderCancel{})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusConflict, apiErr.Status)

	_, err = client.UpdateOrder(ctx, " ", orders.OrderUpdate{})
	require.ErrorIs(t, err, orders.ErrOrderNotFound)
}

func TestReturnActionsPostPayloads(t *testing.T) {
	t.Parallel()

	returnJSON := `{"id": "ret-1", "orderId": "ord-1", "customerId": "cust-9", "reason": "Damaged on arrival", "status": "Approved", "audit": {}}`
	api := newFakeAPI(t, func(r chi.Router) {
		r.Post("/returns", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusCreated, `{"id": "ret-1", "orderId": "ord-1", "customerId": "cust-9", "reason": "Damaged on arrival", "status": "Pending", "audit": {}}`)
		})
		r.Post("/returns/{id}/approve", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, returnJSON)
		})
		r.Post("/returns/{id}/refund", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, `{"id": "ret-1", "orderId": "ord-1", "customerId": "cust-9", "reason": "Damaged on arrival", "status": "Refunded", "refundTransactionId": "txn-1", "audit": {}}`)
		})
	})
	client := api.client(t)
	ctx := context.Background()

	created, err := client.CreateReturn(ctx, orders.ReturnCreate{OrderID: "ord-1", Reason: "Damaged on arrival"})
	require.NoError(t, err)
	require.Equal(t, orders.ReturnPending, created.Status)
	var createBody map[string]any
	require.NoError(t, json.Unmarshal([]byte(api.last().Body), &createBody))
	require.Equal(t, "ord-1", createBody["orderId"])
	require.Equal(t, "application/json", api.last().Header.Get("Content-Type"))

	approved, err := client.ApproveReturn(ctx, "ret-1", orders.ReturnDecision{ResolutionNotes: "ok", AutoRefund: true})
	require.NoError(t, err)
	require.Equal(t, orders.ReturnApproved, approved.Status)
	require.Equal(t, "/returns/ret-1/approve", api.last().Path)
	var approveBody map[string]any
	require.NoError(t, json.Unmarshal([]byte(api.last().Body), &approveBody))
	require.Equal(t, true, approveBody["autoRefund"])

	refunded, err := client.RefundReturn(ctx, "ret-1", orders.ReturnRefund{Reason: "Customer goodwill"})
	require.NoError(t, err)
	require.Equal(t, orders.RefundProcessing, refunded.RefundState())
}

func TestReturnActionSurfacesDetail(t *testing.T) {
	t.Parallel()

	api := newFakeAPI(t, func(r chi.Router) {
		r.Post("/returns/{id}/refund", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusConflict, `{"detail": "Return already refunded"}`)
		})
		r.Post("/returns/{id}/reject", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusUnprocessableEntity, `{"detail": [{"loc": ["body", "resolutionNotes"], "msg": "field required"}]}`)
		})
		r.Post("/returns/{id}/approve", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusNotFound, `{"detail": "Return not found"}`)
		})
	})
	client := api.client(t)
	ctx := context.Background()

	_, err := client.RefundReturn(ctx, "ret-1", orders.ReturnRefund{})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusConflict, apiErr.Status)
	require.Equal(t, "Return already refunded", apiErr.Detail)
	require.False(t, apiErr.Temporary())

	_, err = client.RejectReturn(ctx, "ret-1", orders.ReturnRejection{})
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, "field required", apiErr.Detail)

	_, err = client.ApproveReturn(ctx, "ret-9", orders.ReturnDecision{})
	require.ErrorIs(t, err, orders.ErrReturnNotFound)
}

func TestGetReturnScansListing(t *testing.T) {
	t.Parallel()

	api := newFakeAPI(t, func(r chi.Router) {
		r.Get("/returns", func(w http.ResponseWriter, req *http.Request) {
			if req.URL.Query().Get("page") == "1" {
				writeJSON(w, http.StatusOK, `{"items": [{"id": "ret-1", "orderId": "ord-1", "status": "Pending", "audit": {}}], "total": 51}`)
				return
			}
			writeJSON(w, http.StatusOK, `{"items": [{"id": "ret-2", "orderId": "ord-2", "status": "Rejected", "audit": {}}], "total": 51}`)
		})
	})
	client := api.client(t)

	found, err := client.GetReturn(context.Background(), "ret-2")
	require.NoError(t, err)
	require.Equal(t, orders.ReturnRejected, found.Status)
	require.Equal(t, "page=2&pageSize=50", api.last().Query)

	_, err = client.GetReturn(context.Background(), "ret-3")
	require.ErrorIs(t, err, orders.ErrReturnNotFound)
}

func TestListReturnsSendsStatusAndRecordsMetrics(t *testing.T) {
	t.Parallel()

	api := newFakeAPI(t, func(r chi.Router) {
		r.Get("/returns", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, `{"items": null, "total": 0}`)
		})
	})
	metrics := NewMetrics(prometheus.NewRegistry())
	client := api.client(t, WithMetrics(metrics))

	page, err := client.ListReturns(context.Background(), orders.ReturnQuery{Status: orders.ReturnRefunded})
	require.NoError(t, err)
	require.NotNil(t, page.Items)
	require.Empty(t, page.Items)
	require.Equal(t, "page=1&pageSize=20&status=Refunded", api.last().Query)
	require.Equal(t, 1, testutil.CollectAndCount(metrics.requests))
}

func TestNewClientValidatesBaseURL(t *testing.T) {
	t.Parallel()

	_, err := NewClient(Config{})
	require.Error(t, err)
	_, err = NewClient(Config{BaseURL: "orders-api"})
	require.Error(t, err)
}
