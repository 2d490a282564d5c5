package ui

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	adminorders "finitefield.org/orders-admin/internal/admin/orders"
	"finitefield.org/orders-admin/internal/admin/views"
	"finitefield.org/orders-admin/internal/platform/httpx"
	"finitefield.org/orders-admin/internal/platform/requestctx"
)

type summaryResponse struct {
	Page     int               `json:"page"`
	PageSize int               `json:"pageSize"`
	Total    int               `json:"total"`
	Filters  map[string]string `json:"filters"`
	Summary  summaryPayload    `json:"summary"`
}

type summaryPayload struct {
	Count     int    `json:"count"`
	Pending   int    `json:"pending"`
	Confirmed int    `json:"confirmed"`
	Cancelled int    `json:"cancelled"`
	Revenue   string `json:"revenue"`
	Average   string `json:"average"`
	Currency  string `json:"currency,omitempty"`
}

// OrdersSummary returns the insights of the session's current orders view as JSON.
func (h *Handlers) OrdersSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	view, ok := h.ordersView(w, r)
	if !ok {
		return
	}
	page := h.loadOrders(r, view)
	if page.Err != nil {
		requestctx.Logger(ctx).Warn("api: orders summary unavailable", zap.Error(page.Err))
		httpx.WriteError(ctx, w, httpx.NewError("orders_unavailable", loadErrorMessage(page.Err, ordersLoadFailed), http.StatusBadGateway))
		return
	}
	if page.SummaryErr != nil {
		apiErr := httpx.NewError("summary_failed", page.SummaryErr.Error(), http.StatusUnprocessableEntity)
		var mixed *adminorders.MixedCurrencyError
		if errors.As(page.SummaryErr, &mixed) {
			apiErr = httpx.NewError("mixed_currency", page.SummaryErr.Error(), http.StatusUnprocessableEntity).
				WithDetails(map[string]any{"currencies": mixed.Currencies})
		}
		httpx.WriteError(ctx, w, apiErr)
		return
	}

	filters := map[string]string{}
	if page.Status != "" {
		filters[views.FilterStatus] = page.Status
	}
	if page.Customer != "" {
		filters[views.FilterCustomer] = page.Customer
	}
	summary := page.Summary
	httpx.WriteJSON(w, http.StatusOK, summaryResponse{
		Page:     page.Page,
		PageSize: page.PageSize,
		Total:    page.Total,
		Filters:  filters,
		Summary: summaryPayload{
			Count:     summary.Count,
			Pending:   summary.Pending,
			Confirmed: summary.Confirmed,
			Cancelled: summary.Cancelled,
			Revenue:   summary.Revenue.StringFixed(2),
			Average:   summary.Average.StringFixed(2),
			Currency:  summary.Currency,
		},
	})
}

// Health reports liveness.
func Health(w http.ResponseWriter, _ *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
