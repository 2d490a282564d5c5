package views

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"finitefield.org/orders-admin/internal/admin/listing"
	"finitefield.org/orders-admin/internal/admin/orders"
)

// AutoRefundReason is recorded on refunds issued as part of an approval.
const AutoRefundReason = "Auto refund on approval"

// ReturnsPage is everything the returns screen shows for one fetch.
type ReturnsPage struct {
	Page       int
	PageSize   int
	Total      int
	TotalPages int
	PageSizes  []int
	Status     string
	Returns    []orders.ReturnRequest
	Summary    orders.ReturnSummary
	Err        error
	Loaded     bool
	FetchedAt  time.Time
	Token      string
}

// ApproveInput collects the approval form.
type ApproveInput struct {
	ResolutionNotes string
	AutoRefund      bool
	RefundAmount    *decimal.Decimal
}

// ReturnsView binds a listing state to the return workflow for one console session.
type ReturnsView struct {
	state  *listing.State
	loader *listing.Loader[orders.ReturnPage]
	svc    orders.Service
	logger *zap.Logger
}

func newReturnsView(state *listing.State, svc orders.Service, env viewEnv) *ReturnsView {
	v := &ReturnsView{
		state:  state,
		svc:    svc,
		logger: env.logger,
	}
	v.loader = listing.NewLoader(state, ListReturns, func(ctx context.Context, q listing.Query) (orders.ReturnPage, error) {
		page, err := svc.ListReturns(ctx, orders.ReturnQuery{
			Page:     q.Page,
			PageSize: q.PageSize,
			Status:   orders.ReturnStatus(q.Filter(FilterStatus)),
		})
		if err != nil {
			return orders.ReturnPage{}, err
		}
		return page, nil
	}, env.loaderOptions()...)
	v.loader.OnResult(func(result listing.Result[orders.ReturnPage]) {
		state.SetTotal(result.Value.Total)
		env.persist(context.Background(), ListReturns, state.Snapshot())
	})
	return v
}

// State exposes the underlying listing state.
func (v *ReturnsView) State() *listing.State {
	return v.state
}

// SetStatus narrows the listing to one return status. An empty status clears it.
func (v *ReturnsView) SetStatus(status string) error {
	status = strings.TrimSpace(status)
	if status != "" {
		if _, err := orders.ParseReturnStatus(status); err != nil {
			return err
		}
	}
	return v.state.SetFilter(FilterStatus, status)
}

// ChangePage moves one page back or forward.
func (v *ReturnsView) ChangePage(dir listing.Direction) bool {
	return v.state.ChangePage(dir)
}

// SetPage jumps to page.
func (v *ReturnsView) SetPage(page int) error {
	return v.state.SetPage(page)
}

// SetPageSize switches the page size and returns to page 1.
func (v *ReturnsView) SetPageSize(size int) error {
	return v.state.SetPageSize(size)
}

// Reload refetches the current page.
func (v *ReturnsView) Reload() {
	v.state.Reload()
}

// Load waits for the result of the latest transition and builds the page.
func (v *ReturnsView) Load(ctx context.Context) (ReturnsPage, error) {
	result, err := v.loader.Wait(ctx, v.state.Epoch())
	if err != nil {
		return ReturnsPage{}, err
	}
	return v.build(result), nil
}

// Latest builds the page from the last recorded result without waiting.
func (v *ReturnsView) Latest() ReturnsPage {
	result, ok := v.loader.Latest()
	if !ok {
		return v.build(listing.Result[orders.ReturnPage]{Signal: listing.FetchSignal{Query: v.state.Query()}})
	}
	return v.build(result)
}

// Create opens a return request for a confirmed order that has none yet.
func (v *ReturnsView) Create(ctx context.Context, orderID, reason string) (orders.ReturnRequest, error) {
	payload, err := orders.ValidateReturnCreate(orders.ReturnCreate{OrderID: orderID, Reason: reason})
	if err != nil {
		return orders.ReturnRequest{}, err
	}
	order, err := v.svc.GetOrder(ctx, payload.OrderID)
	if err != nil {
		return orders.ReturnRequest{}, err
	}
	if err := orders.CanRequestReturn(order); err != nil {
		return orders.ReturnRequest{}, err
	}
	if _, exists, err := orders.ReturnForOrder(ctx, v.svc, order.ID); err != nil {
		return orders.ReturnRequest{}, err
	} else if exists {
		return orders.ReturnRequest{}, orders.ErrReturnExists
	}

	created, err := v.svc.CreateReturn(ctx, payload)
	if err != nil {
		return orders.ReturnRequest{}, err
	}
	v.state.Reload()
	return created, nil
}

// Approve accepts a return. With AutoRefund the refund is issued straight after.
func (v *ReturnsView) Approve(ctx context.Context, returnID string, input ApproveInput) (orders.ReturnRequest, error) {
	current, err := v.svc.GetReturn(ctx, returnID)
	if err != nil {
		return orders.ReturnRequest{}, err
	}
	if err := orders.CheckReturnAction(current.Status, orders.ActionApprove); err != nil {
		return orders.ReturnRequest{}, err
	}

	approved, err := v.svc.ApproveReturn(ctx, returnID, orders.ReturnDecision{
		ResolutionNotes: orders.SanitizeText(input.ResolutionNotes),
		AutoRefund:      input.AutoRefund,
		RefundAmount:    input.RefundAmount,
	})
	if err != nil {
		return orders.ReturnRequest{}, err
	}
	defer v.state.Reload()

	if !input.AutoRefund || approved.Status == orders.ReturnRefunded || approved.RefundState() != orders.RefundNone {
		return approved, nil
	}
	refunded, err := v.svc.RefundReturn(ctx, returnID, orders.ReturnRefund{
		Amount: input.RefundAmount,
		Reason: AutoRefundReason,
	})
	if err != nil {
		v.logger.Warn("returns: auto refund failed", zap.String("return_id", returnID), zap.Error(err))
		return approved, err
	}
	return refunded, nil
}

// Reject declines a return that has not been refunded.
func (v *ReturnsView) Reject(ctx context.Context, returnID, notes string) (orders.ReturnRequest, error) {
	payload, err := orders.ValidateReturnRejection(orders.ReturnRejection{ResolutionNotes: notes})
	if err != nil {
		return orders.ReturnRequest{}, err
	}
	current, err := v.svc.GetReturn(ctx, returnID)
	if err != nil {
		return orders.ReturnRequest{}, err
	}
	if err := orders.CheckReturnAction(current.Status, orders.ActionReject); err != nil {
		return orders.ReturnRequest{}, err
	}
	rejected, err := v.svc.RejectReturn(ctx, returnID, payload)
	if err != nil {
		return orders.ReturnRequest{}, err
	}
	v.state.Reload()
	return rejected, nil
}

// Refund issues a refund for a pending or approved return.
func (v *ReturnsView) Refund(ctx context.Context, returnID string, amount *decimal.Decimal, reason string) (orders.ReturnRequest, error) {
	payload, err := orders.ValidateReturnRefund(orders.ReturnRefund{Amount: amount, Reason: reason})
	if err != nil {
		return orders.ReturnRequest{}, err
	}
	current, err := v.svc.GetReturn(ctx, returnID)
	if err != nil {
		return orders.ReturnRequest{}, err
	}
	if err := orders.CheckReturnAction(current.Status, orders.ActionRefund); err != nil {
		return orders.ReturnRequest{}, err
	}
	refunded, err := v.svc.RefundReturn(ctx, returnID, payload)
	if err != nil {
		return orders.ReturnRequest{}, err
	}
	v.state.Reload()
	return refunded, nil
}

func (v *ReturnsView) build(result listing.Result[orders.ReturnPage]) ReturnsPage {
	query := result.Signal.Query
	snap := v.state.Snapshot()
	page := ReturnsPage{
		Page:       query.Page,
		PageSize:   query.PageSize,
		Total:      snap.Total,
		TotalPages: listing.TotalPages(snap.Total, query.PageSize),
		PageSizes:  v.state.PageSizes(),
		Status:     query.Filter(FilterStatus),
		Returns:    []orders.ReturnRequest{},
		Err:        result.Err,
		Loaded:     !result.FetchedAt.IsZero(),
		FetchedAt:  result.FetchedAt,
		Token:      result.Signal.Token,
	}
	if result.Err != nil {
		return page
	}
	page.Total = result.Value.Total
	page.TotalPages = listing.TotalPages(result.Value.Total, query.PageSize)
	page.Returns = append(page.Returns, result.Value.Items...)
	page.Summary = orders.AggregateReturns(page.Returns)
	return page
}

func (v *ReturnsView) run(ctx context.Context) {
	if err := v.loader.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		v.logger.Warn("returns: loader stopped", zap.Error(err))
	}
}

func (v *ReturnsView) close() {
	v.state.Close()
}
