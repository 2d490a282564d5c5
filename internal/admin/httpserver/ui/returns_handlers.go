package ui

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	custommw "finitefield.org/orders-admin/internal/admin/httpserver/middleware"
	adminorders "finitefield.org/orders-admin/internal/admin/orders"
	"finitefield.org/orders-admin/internal/admin/templates/helpers"
	orderstpl "finitefield.org/orders-admin/internal/admin/templates/orders"
	returnstpl "finitefield.org/orders-admin/internal/admin/templates/returns"
	"finitefield.org/orders-admin/internal/admin/views"
	"finitefield.org/orders-admin/internal/platform/requestctx"
)

const returnsViewID = "returns-view"

// ReturnsPage renders the returns list. Query parameters carry the status filter
// and paging so links work without JavaScript.
func (h *Handlers) ReturnsPage(w http.ResponseWriter, r *http.Request) {
	view, ok := h.returnsView(w, r)
	if !ok {
		return
	}
	if err := applyReturnsQuery(view, r); err != nil {
		requestctx.Logger(r.Context()).Info("returns: listing change rejected", zap.Error(err))
		h.renderReturns(w, r, view.Latest(), actionStatus(err), loadErrorMessage(err, returnsLoadFailed), returnstpl.Notice{}, returnstpl.RowError{})
		return
	}
	h.renderReturns(w, r, h.loadReturns(r, view), http.StatusOK, "", returnstpl.Notice{}, returnstpl.RowError{})
}

// ReturnsCreate opens a return request from the order detail form.
func (h *Handlers) ReturnsCreate(w http.ResponseWriter, r *http.Request) {
	view, ok := h.returnsView(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Could not parse the request.", http.StatusBadRequest)
		return
	}
	orderID := strings.TrimSpace(r.PostForm.Get("orderId"))
	reason := r.PostForm.Get("reason")

	created, err := view.Create(r.Context(), orderID, reason)
	if err != nil {
		requestctx.Logger(r.Context()).Info("returns: create rejected", zap.String("order_id", orderID), zap.Error(err))
		if orderID == "" {
			http.Error(w, actionErrorMessage(err), http.StatusUnprocessableEntity)
			return
		}
		h.renderOrderDetail(w, r, orderID, orderstpl.DetailForms{Return: orderstpl.ReturnFormState{
			Reason:      reason,
			Error:       actionErrorMessage(err),
			FieldErrors: fieldErrors(err),
		}}, actionStatus(err))
		return
	}

	requestctx.Logger(r.Context()).Info("returns: created", zap.String("return_id", created.ID), zap.String("order_id", created.OrderID))
	custommw.Redirect(w, r, helpers.JoinBase(custommw.BasePathFromContext(r.Context()), "/returns"))
}

// ReturnsApprove approves a return, refunding it straight away when asked to.
func (h *Handlers) ReturnsApprove(w http.ResponseWriter, r *http.Request) {
	h.returnAction(w, r, func(ctx context.Context, view *views.ReturnsView, returnID string) (adminorders.ReturnRequest, error) {
		amount, err := parseAmount(r.PostForm.Get("refundAmount"), "refundAmount")
		if err != nil {
			return adminorders.ReturnRequest{}, err
		}
		autoRefund, _ := strconv.ParseBool(strings.TrimSpace(r.PostForm.Get("autoRefund")))
		return view.Approve(ctx, returnID, views.ApproveInput{
			ResolutionNotes: r.PostForm.Get("resolutionNotes"),
			AutoRefund:      autoRefund,
			RefundAmount:    amount,
		})
	})
}

// ReturnsReject rejects a return with the operator's notes.
func (h *Handlers) ReturnsReject(w http.ResponseWriter, r *http.Request) {
	h.returnAction(w, r, func(ctx context.Context, view *views.ReturnsView, returnID string) (adminorders.ReturnRequest, error) {
		return view.Reject(ctx, returnID, r.PostForm.Get("resolutionNotes"))
	})
}

// ReturnsRefund issues a refund for a pending or approved return.
func (h *Handlers) ReturnsRefund(w http.ResponseWriter, r *http.Request) {
	h.returnAction(w, r, func(ctx context.Context, view *views.ReturnsView, returnID string) (adminorders.ReturnRequest, error) {
		amount, err := parseAmount(r.PostForm.Get("amount"), "amount")
		if err != nil {
			return adminorders.ReturnRequest{}, err
		}
		return view.Refund(ctx, returnID, amount, r.PostForm.Get("reason"))
	})
}

type returnActionFunc func(ctx context.Context, view *views.ReturnsView, returnID string) (adminorders.ReturnRequest, error)

func (h *Handlers) returnAction(w http.ResponseWriter, r *http.Request, action returnActionFunc) {
	view, ok := h.returnsView(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Could not parse the request.", http.StatusBadRequest)
		return
	}
	returnID := strings.TrimSpace(chi.URLParam(r, "returnID"))
	logger := requestctx.Logger(r.Context()).With(zap.String("return_id", returnID))

	updated, err := action(r.Context(), view, returnID)
	if err != nil {
		logger.Info("returns: action rejected", zap.Error(err))
		rowErr := returnstpl.RowError{
			ReturnID:    returnID,
			Message:     actionErrorMessage(err),
			FieldErrors: fieldErrors(err),
		}
		notice := returnstpl.Notice{Message: rowErr.Message, Tone: "danger"}
		// A failed auto refund still approved the return; show the fresh listing.
		page := view.Latest()
		if updated.ID != "" {
			page = h.loadReturns(r, view)
		}
		h.renderReturns(w, r, page, actionStatus(err), "", notice, rowErr)
		return
	}

	logger.Info("returns: action applied", zap.String("status", string(updated.Status)))
	notice := returnstpl.Notice{
		Message: "Return " + updated.ID + " is now " + strings.ToLower(updated.Status.Label()) + ".",
		Tone:    "success",
	}
	h.renderReturns(w, r, h.loadReturns(r, view), http.StatusOK, "", notice, returnstpl.RowError{})
}

// applyReturnsQuery moves the listing to what the query string describes. Only
// values that differ from the current state cause a transition.
func applyReturnsQuery(view *views.ReturnsView, r *http.Request) error {
	values := r.URL.Query()
	state := view.State()

	if values.Has("status") {
		status := strings.TrimSpace(values.Get("status"))
		if status != state.Query().Filter(views.FilterStatus) {
			if err := view.SetStatus(status); err != nil {
				return err
			}
		}
	}
	if raw := strings.TrimSpace(values.Get("pageSize")); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil {
			size = 0
		}
		if size != state.Query().PageSize {
			if err := view.SetPageSize(size); err != nil {
				return err
			}
		}
	}
	if raw := strings.TrimSpace(values.Get("page")); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil {
			page = 0
		}
		if page != state.Query().Page {
			if err := view.SetPage(page); err != nil {
				return err
			}
		}
	}
	return nil
}

func (h *Handlers) loadReturns(r *http.Request, view *views.ReturnsView) views.ReturnsPage {
	ctx, cancel := waitContext(r.Context())
	defer cancel()
	page, err := view.Load(ctx)
	if err != nil {
		requestctx.Logger(r.Context()).Warn("returns: wait for listing failed", zap.Error(err))
		return view.Latest()
	}
	if page.Err != nil {
		requestctx.Logger(r.Context()).Warn("returns: list failed", zap.Error(page.Err))
	}
	return page
}

func (h *Handlers) renderReturns(w http.ResponseWriter, r *http.Request, page views.ReturnsPage, status int, errMsg string, notice returnstpl.Notice, rowErr returnstpl.RowError) {
	if errMsg == "" {
		errMsg = loadErrorMessage(page.Err, returnsLoadFailed)
	}
	basePath := custommw.BasePathFromContext(r.Context())
	if custommw.HTMXInfoFromContext(r.Context()).Fragment(returnsViewID) {
		render(w, r, status, returnstpl.View(returnstpl.BuildViewData(basePath, page, errMsg, notice, rowErr)))
		return
	}
	render(w, r, status, returnstpl.Index(returnstpl.BuildPageData(basePath, page, errMsg, notice, rowErr)))
}

// parseAmount reads an optional decimal form field; blank means "use the order total".
func parseAmount(raw, field string) (*decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, &adminorders.ReturnValidationError{FieldErrors: map[string]string{
			field: "amount must be a number",
		}}
	}
	return &amount, nil
}
