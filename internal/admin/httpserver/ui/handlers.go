package ui

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/a-h/templ"
	"go.uber.org/zap"

	custommw "finitefield.org/orders-admin/internal/admin/httpserver/middleware"
	"finitefield.org/orders-admin/internal/admin/listing"
	adminorders "finitefield.org/orders-admin/internal/admin/orders"
	"finitefield.org/orders-admin/internal/admin/views"
	"finitefield.org/orders-admin/internal/platform/requestctx"
)

// Dependencies collects external services required by the UI handlers.
type Dependencies struct {
	Orders adminorders.Service
	Views  *views.Registry
	// SearchDelay is the client side settle time rendered into the customer search input.
	SearchDelay time.Duration
}

// Handlers exposes HTTP handlers for admin UI pages and fragments.
type Handlers struct {
	orders      adminorders.Service
	views       *views.Registry
	searchDelay string
}

// NewHandlers wires the UI handler set.
func NewHandlers(deps Dependencies) *Handlers {
	delay := deps.SearchDelay
	if delay <= 0 {
		delay = listing.DefaultDebounce
	}
	return &Handlers{
		orders:      deps.Orders,
		views:       deps.Views,
		searchDelay: delay.String(),
	}
}

func (h *Handlers) ordersView(w http.ResponseWriter, r *http.Request) (*views.OrdersView, bool) {
	sessionID, _ := custommw.ViewSessionFromContext(r.Context())
	view, err := h.views.Orders(r.Context(), sessionID)
	if err != nil {
		h.sessionFailed(w, r, err)
		return nil, false
	}
	return view, true
}

func (h *Handlers) returnsView(w http.ResponseWriter, r *http.Request) (*views.ReturnsView, bool) {
	sessionID, _ := custommw.ViewSessionFromContext(r.Context())
	view, err := h.views.Returns(r.Context(), sessionID)
	if err != nil {
		h.sessionFailed(w, r, err)
		return nil, false
	}
	return view, true
}

func (h *Handlers) sessionFailed(w http.ResponseWriter, r *http.Request, err error) {
	requestctx.Logger(r.Context()).Warn("ui: view session unavailable", zap.Error(err))
	status := http.StatusServiceUnavailable
	if errors.Is(err, views.ErrInvalidSession) {
		status = http.StatusBadRequest
	}
	http.Error(w, http.StatusText(status), status)
}

func render(w http.ResponseWriter, r *http.Request, status int, component templ.Component) {
	if status == 0 || status == http.StatusOK {
		templ.Handler(component).ServeHTTP(w, r)
		return
	}
	templ.Handler(component, templ.WithStatus(status)).ServeHTTP(w, r)
}

// waitContext bounds how long a handler waits for a fetch before rendering what it has.
func waitContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, 15*time.Second)
}
