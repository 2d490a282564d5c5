package ui

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	custommw "finitefield.org/orders-admin/internal/admin/httpserver/middleware"
	"finitefield.org/orders-admin/internal/admin/listing"
	adminorders "finitefield.org/orders-admin/internal/admin/orders"
	"finitefield.org/orders-admin/internal/admin/templates/helpers"
	orderstpl "finitefield.org/orders-admin/internal/admin/templates/orders"
	"finitefield.org/orders-admin/internal/admin/views"
	"finitefield.org/orders-admin/internal/platform/requestctx"
)

const ordersViewID = "orders-view"

// OrdersPage renders the orders index page with SSR.
func (h *Handlers) OrdersPage(w http.ResponseWriter, r *http.Request) {
	view, ok := h.ordersView(w, r)
	if !ok {
		return
	}
	h.renderOrders(w, r, h.loadOrders(r, view), http.StatusOK, "")
}

// OrdersTable renders the insights and table fragment for htmx requests.
func (h *Handlers) OrdersTable(w http.ResponseWriter, r *http.Request) {
	view, ok := h.ordersView(w, r)
	if !ok {
		return
	}
	page := h.loadOrders(r, view)
	basePath := custommw.BasePathFromContext(r.Context())
	render(w, r, http.StatusOK, orderstpl.View(orderstpl.BuildViewData(basePath, page, loadErrorMessage(page.Err, ordersLoadFailed))))
}

// OrdersFilters applies the status filter, the customer search or a filter reset.
// Customer search goes through the debouncer so a burst of keystrokes costs one fetch.
func (h *Handlers) OrdersFilters(w http.ResponseWriter, r *http.Request) {
	view, ok := h.ordersView(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Could not parse the request.", http.StatusBadRequest)
		return
	}

	trigger := custommw.HTMXInfoFromContext(r.Context()).TriggerName
	status := r.PostForm.Get(views.FilterStatus)
	customer := strings.TrimSpace(r.PostForm.Get(views.FilterCustomer))

	switch {
	case r.PostForm.Get("reset") != "" || trigger == "reset":
		view.ResetFilters()
	case trigger == views.FilterCustomer:
		before := view.State().Epoch()
		view.SearchCustomer(customer)
		h.renderOrders(w, r, h.loadOrdersAfter(r, view, before), http.StatusOK, "")
		return
	case trigger == views.FilterStatus:
		if err := view.SetStatus(status); err != nil {
			h.renderOrdersError(w, r, view, err)
			return
		}
	default:
		// Plain form submission: apply both fields now.
		if err := view.SetStatus(status); err != nil {
			h.renderOrdersError(w, r, view, err)
			return
		}
		if customer != view.State().Query().Filter(views.FilterCustomer) {
			view.SearchCustomer(customer)
			view.ApplyPendingSearch()
		}
	}

	h.respondOrders(w, r, view)
}

// OrdersChangePage moves to the previous or next page, or jumps to an explicit page.
func (h *Handlers) OrdersChangePage(w http.ResponseWriter, r *http.Request) {
	view, ok := h.ordersView(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Could not parse the request.", http.StatusBadRequest)
		return
	}

	if raw := strings.TrimSpace(r.PostForm.Get("page")); raw != "" {
		target, err := strconv.Atoi(raw)
		if err != nil {
			target = 0
		}
		if err := view.SetPage(target); err != nil {
			h.renderOrdersError(w, r, view, err)
			return
		}
	} else {
		// Requests past either end leave the page unchanged.
		view.ChangePage(listing.Direction(r.PostForm.Get("direction")))
	}
	h.respondOrders(w, r, view)
}

// OrdersPageSize switches the page size.
func (h *Handlers) OrdersPageSize(w http.ResponseWriter, r *http.Request) {
	view, ok := h.ordersView(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Could not parse the request.", http.StatusBadRequest)
		return
	}
	size, err := strconv.Atoi(strings.TrimSpace(r.PostForm.Get("pageSize")))
	if err != nil {
		size = 0
	}
	if err := view.SetPageSize(size); err != nil {
		h.renderOrdersError(w, r, view, err)
		return
	}
	h.respondOrders(w, r, view)
}

// OrderDetail renders an order with its timeline and return eligibility.
func (h *Handlers) OrderDetail(w http.ResponseWriter, r *http.Request) {
	h.renderOrderDetail(w, r, chi.URLParam(r, "orderID"), orderstpl.DetailForms{}, http.StatusOK)
}

// OrderUpdate saves the status and shipping address from the detail page.
func (h *Handlers) OrderUpdate(w http.ResponseWriter, r *http.Request) {
	h.orderAction(w, r, func(view *views.OrdersView, orderID string) (orderstpl.OrderFormState, error) {
		form := orderstpl.OrderFormState{Status: strings.TrimSpace(r.PostForm.Get("status"))}
		var update adminorders.OrderUpdate
		if form.Status != "" {
			status := adminorders.OrderStatus(form.Status)
			update.Status = &status
		}
		if _, ok := r.PostForm["shippingAddress"]; ok {
			address := r.PostForm.Get("shippingAddress")
			update.ShippingAddress = &address
			form.ShippingAddress = &address
		}
		_, err := view.Update(r.Context(), orderID, update)
		return form, err
	})
}

// OrderCancel cancels the order shown on the detail page.
func (h *Handlers) OrderCancel(w http.ResponseWriter, r *http.Request) {
	h.orderAction(w, r, func(view *views.OrdersView, orderID string) (orderstpl.OrderFormState, error) {
		_, err := view.Cancel(r.Context(), orderID, r.PostForm.Get("reason"))
		return orderstpl.OrderFormState{}, err
	})
}

type orderActionFunc func(view *views.OrdersView, orderID string) (orderstpl.OrderFormState, error)

// orderAction runs an order change and returns to the detail page, re-rendering it
// with the error when the change was refused.
func (h *Handlers) orderAction(w http.ResponseWriter, r *http.Request, action orderActionFunc) {
	view, ok := h.ordersView(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Could not parse the request.", http.StatusBadRequest)
		return
	}
	orderID := chi.URLParam(r, "orderID")
	form, err := action(view, orderID)
	if err != nil {
		requestctx.Logger(r.Context()).Info("orders: change rejected", zap.String("order_id", orderID), zap.Error(err))
		if errors.Is(err, adminorders.ErrOrderNotFound) {
			http.Error(w, "Order not found.", http.StatusNotFound)
			return
		}
		form.Error = actionErrorMessage(err)
		form.FieldErrors = fieldErrors(err)
		h.renderOrderDetail(w, r, orderID, orderstpl.DetailForms{Order: form}, actionStatus(err))
		return
	}

	requestctx.Logger(r.Context()).Info("orders: changed", zap.String("order_id", orderID))
	custommw.Redirect(w, r, helpers.JoinBase(custommw.BasePathFromContext(r.Context()), "/orders/"+url.PathEscape(orderID)))
}

func (h *Handlers) renderOrderDetail(w http.ResponseWriter, r *http.Request, orderID string, forms orderstpl.DetailForms, status int) {
	ctx := r.Context()
	detail, err := views.LoadOrderDetail(ctx, h.orders, orderID)
	if err != nil {
		if errors.Is(err, adminorders.ErrOrderNotFound) {
			http.Error(w, "Order not found.", http.StatusNotFound)
			return
		}
		requestctx.Logger(ctx).Warn("orders: load detail failed", zap.String("order_id", orderID), zap.Error(err))
		http.Error(w, loadErrorMessage(err, "Failed to load the order."), http.StatusBadGateway)
		return
	}
	if detail.ReturnErr != nil {
		requestctx.Logger(ctx).Warn("orders: return lookup failed", zap.String("order_id", orderID), zap.Error(detail.ReturnErr))
	}

	basePath := custommw.BasePathFromContext(ctx)
	render(w, r, status, orderstpl.Detail(orderstpl.BuildDetailData(basePath, detail, forms)))
}

// loadOrders waits for the fetch of the latest transition and falls back to the
// last result when the request gives up first.
func (h *Handlers) loadOrders(r *http.Request, view *views.OrdersView) views.OrdersPage {
	ctx, cancel := waitContext(r.Context())
	defer cancel()
	page, err := view.Load(ctx)
	return h.ordersResult(r, view, page, err)
}

// loadOrdersAfter waits for the first fetch newer than epoch, i.e. the one a
// scheduled search emits once it fires.
func (h *Handlers) loadOrdersAfter(r *http.Request, view *views.OrdersView, epoch uint64) views.OrdersPage {
	ctx, cancel := waitContext(r.Context())
	defer cancel()
	page, err := view.LoadAfter(ctx, epoch)
	return h.ordersResult(r, view, page, err)
}

func (h *Handlers) ordersResult(r *http.Request, view *views.OrdersView, page views.OrdersPage, err error) views.OrdersPage {
	if err != nil {
		requestctx.Logger(r.Context()).Warn("orders: wait for listing failed", zap.Error(err))
		return view.Latest()
	}
	if page.Err != nil {
		requestctx.Logger(r.Context()).Warn("orders: list failed", zap.Error(page.Err))
	}
	return page
}

func (h *Handlers) respondOrders(w http.ResponseWriter, r *http.Request, view *views.OrdersView) {
	if !custommw.HTMXInfoFromContext(r.Context()).Fragment(ordersViewID) {
		custommw.Redirect(w, r, helpers.JoinBase(custommw.BasePathFromContext(r.Context()), "/orders"))
		return
	}
	h.renderOrders(w, r, h.loadOrders(r, view), http.StatusOK, "")
}

func (h *Handlers) renderOrdersError(w http.ResponseWriter, r *http.Request, view *views.OrdersView, err error) {
	requestctx.Logger(r.Context()).Info("orders: listing change rejected", zap.Error(err))
	h.renderOrders(w, r, view.Latest(), actionStatus(err), loadErrorMessage(err, ordersLoadFailed))
}

func (h *Handlers) renderOrders(w http.ResponseWriter, r *http.Request, page views.OrdersPage, status int, errMsg string) {
	if errMsg == "" {
		errMsg = loadErrorMessage(page.Err, ordersLoadFailed)
	}
	basePath := custommw.BasePathFromContext(r.Context())
	if custommw.HTMXInfoFromContext(r.Context()).Fragment(ordersViewID) {
		render(w, r, status, orderstpl.View(orderstpl.BuildViewData(basePath, page, errMsg)))
		return
	}
	render(w, r, status, orderstpl.Index(orderstpl.BuildPageData(basePath, page, errMsg, h.searchDelay)))
}
