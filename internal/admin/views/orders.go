package views

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"finitefield.org/orders-admin/internal/admin/listing"
	"finitefield.org/orders-admin/internal/admin/orders"
)

// Listing names used in metrics, logs and store keys.
const (
	ListOrders  = "orders"
	ListReturns = "returns"
)

var knownLists = []string{ListOrders, ListReturns}

// Filter keys of the orders listing.
const (
	FilterStatus   = "status"
	FilterCustomer = "customer"
)

// OrdersPage is everything the orders screen shows for one fetch.
type OrdersPage struct {
	Page       int
	PageSize   int
	Total      int
	TotalPages int
	PageSizes  []int
	Status     string
	Customer   string
	// Orders is the fetched page narrowed by the status filter.
	Orders  []orders.Order
	Summary orders.Summary
	// SummaryErr is set when the visible orders cannot be aggregated.
	SummaryErr error
	Err        error
	Loaded     bool
	FetchedAt  time.Time
	Token      string
}

// HasFilters reports whether any filter narrows the listing.
func (p OrdersPage) HasFilters() bool {
	return p.Status != "" || p.Customer != ""
}

// OrdersView binds a listing state to the order service for one console session.
type OrdersView struct {
	state     *listing.State
	loader    *listing.Loader[orders.OrderPage]
	debouncer *listing.Debouncer
	aggregate []orders.AggregateOption
	svc       orders.Service
	logger    *zap.Logger
}

func newOrdersView(state *listing.State, svc orders.Service, env viewEnv) *OrdersView {
	v := &OrdersView{
		state:     state,
		debouncer: listing.NewDebouncer(env.debounce),
		aggregate: []orders.AggregateOption{orders.WithExcludeCancelledFromRevenue(env.excludeCancelled)},
		svc:       svc,
		logger:    env.logger,
	}
	v.loader = listing.NewLoader(state, ListOrders, func(ctx context.Context, q listing.Query) (orders.OrderPage, error) {
		page, err := svc.ListOrders(ctx, orders.OrderQuery{
			Page:       q.Page,
			PageSize:   q.PageSize,
			CustomerID: q.Filter(FilterCustomer),
		})
		if err != nil {
			return orders.OrderPage{}, err
		}
		return page, nil
	}, env.loaderOptions()...)
	v.loader.OnResult(func(result listing.Result[orders.OrderPage]) {
		state.SetTotal(result.Value.Total)
		env.persist(context.Background(), ListOrders, state.Snapshot())
	})
	return v
}

// State exposes the underlying listing state.
func (v *OrdersView) State() *listing.State {
	return v.state
}

// SetStatus applies the status filter immediately. An empty status clears it.
func (v *OrdersView) SetStatus(status string) error {
	status = strings.TrimSpace(status)
	if status != "" {
		if _, err := orders.ParseOrderStatus(status); err != nil {
			return err
		}
	}
	return v.state.SetFilter(FilterStatus, status)
}

// SearchCustomer schedules the customer filter once typing settles.
func (v *OrdersView) SearchCustomer(term string) {
	v.debouncer.Trigger(func() {
		if err := v.state.SetFilter(FilterCustomer, term); err != nil {
			v.logger.Warn("orders: apply customer filter failed", zap.Error(err))
		}
	})
}

// ApplyPendingSearch applies a scheduled customer search without waiting.
func (v *OrdersView) ApplyPendingSearch() bool {
	return v.debouncer.Flush()
}

// ResetFilters clears every filter and any scheduled search.
func (v *OrdersView) ResetFilters() bool {
	v.debouncer.Stop()
	return v.state.ResetFilters()
}

// ChangePage moves one page back or forward.
func (v *OrdersView) ChangePage(dir listing.Direction) bool {
	return v.state.ChangePage(dir)
}

// SetPage jumps to page.
func (v *OrdersView) SetPage(page int) error {
	return v.state.SetPage(page)
}

// SetPageSize switches the page size and returns to page 1.
func (v *OrdersView) SetPageSize(size int) error {
	return v.state.SetPageSize(size)
}

// Reload refetches the current page.
func (v *OrdersView) Reload() {
	v.state.Reload()
}

// Update edits the status or shipping address of an order and refreshes the listing.
func (v *OrdersView) Update(ctx context.Context, orderID string, update orders.OrderUpdate) (orders.Order, error) {
	update, err := orders.ValidateOrderUpdate(update)
	if err != nil {
		return orders.Order{}, err
	}
	current, err := v.svc.GetOrder(ctx, orderID)
	if err != nil {
		return orders.Order{}, err
	}
	if err := orders.CanUpdateOrder(current); err != nil {
		return orders.Order{}, err
	}
	updated, err := v.svc.UpdateOrder(ctx, current.ID, update)
	if err != nil {
		return orders.Order{}, err
	}
	v.state.Reload()
	return updated, nil
}

// Cancel cancels an order that is not cancelled yet and refreshes the listing.
func (v *OrdersView) Cancel(ctx context.Context, orderID, reason string) (orders.Order, error) {
	current, err := v.svc.GetOrder(ctx, orderID)
	if err != nil {
		return orders.Order{}, err
	}
	if err := orders.CanCancelOrder(current); err != nil {
		return orders.Order{}, err
	}
	cancelled, err := v.svc.CancelOrder(ctx, current.ID, orders.OrderCancel{Reason: orders.SanitizeText(reason)})
	if err != nil {
		return orders.Order{}, err
	}
	v.state.Reload()
	return cancelled, nil
}

// Load waits for the result of the latest transition and builds the page.
func (v *OrdersView) Load(ctx context.Context) (OrdersPage, error) {
	return v.wait(ctx, v.state.Epoch())
}

// LoadAfter waits for a result newer than epoch, e.g. once a scheduled search fires.
func (v *OrdersView) LoadAfter(ctx context.Context, epoch uint64) (OrdersPage, error) {
	return v.wait(ctx, epoch+1)
}

func (v *OrdersView) wait(ctx context.Context, epoch uint64) (OrdersPage, error) {
	result, err := v.loader.Wait(ctx, epoch)
	if err != nil {
		return OrdersPage{}, err
	}
	return v.build(result), nil
}

// Latest builds the page from the last recorded result without waiting.
func (v *OrdersView) Latest() OrdersPage {
	result, ok := v.loader.Latest()
	if !ok {
		return v.build(listing.Result[orders.OrderPage]{Signal: listing.FetchSignal{Query: v.state.Query()}})
	}
	return v.build(result)
}

func (v *OrdersView) build(result listing.Result[orders.OrderPage]) OrdersPage {
	query := result.Signal.Query
	snap := v.state.Snapshot()
	page := OrdersPage{
		Page:       query.Page,
		PageSize:   query.PageSize,
		Total:      snap.Total,
		TotalPages: listing.TotalPages(snap.Total, query.PageSize),
		PageSizes:  v.state.PageSizes(),
		Status:     query.Filter(FilterStatus),
		Customer:   query.Filter(FilterCustomer),
		Orders:     []orders.Order{},
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

	status := orders.OrderStatus(page.Status)
	for _, order := range result.Value.Items {
		if status != "" && order.Status != status {
			continue
		}
		page.Orders = append(page.Orders, order)
	}

	summary, err := orders.Aggregate(page.Orders, v.aggregate...)
	if err != nil {
		page.SummaryErr = err
		return page
	}
	page.Summary = summary
	return page
}

func (v *OrdersView) run(ctx context.Context) {
	if err := v.loader.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		v.logger.Warn("orders: loader stopped", zap.Error(err))
	}
}

func (v *OrdersView) close() {
	v.debouncer.Stop()
	v.state.Close()
}
