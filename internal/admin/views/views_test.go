package views

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"finitefield.org/orders-admin/internal/admin/listing"
	"finitefield.org/orders-admin/internal/admin/orders"
)

func newRegistry(t *testing.T, svc orders.Service, opts ...RegistryOption) *Registry {
	t.Helper()
	if svc == nil {
		svc = orders.NewStaticService()
	}
	reg, err := NewRegistry(svc, RegistryConfig{
		Listing:  listing.DefaultConfig(),
		Debounce: 10 * time.Millisecond,
	}, opts...)
	require.NoError(t, err)
	t.Cleanup(reg.Close)
	return reg
}

func waitCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func orderIDs(list []orders.Order) []string {
	ids := make([]string, 0, len(list))
	for _, order := range list {
		ids = append(ids, order.ID)
	}
	return ids
}

func TestOrdersViewInitialLoad(t *testing.T) {
	t.Parallel()

	reg := newRegistry(t, nil)
	view, err := reg.Orders(context.Background(), NewSessionID())
	require.NoError(t, err)

	page, err := view.Load(waitCtx(t))
	require.NoError(t, err)
	require.NoError(t, page.Err)
	require.True(t, page.Loaded)
	require.Equal(t, 1, page.Page)
	require.Equal(t, 20, page.PageSize)
	require.Equal(t, []int{10, 20, 50}, page.PageSizes)
	require.Equal(t, 7, page.Total)
	require.Equal(t, 1, page.TotalPages)
	require.Len(t, page.Orders, 7)
	require.False(t, page.HasFilters())

	require.Equal(t, 7, page.Summary.Count)
	require.Equal(t, 2, page.Summary.Pending)
	require.Equal(t, 4, page.Summary.Confirmed)
	require.Equal(t, 1, page.Summary.Cancelled)
	require.True(t, page.Summary.Revenue.Equal(decimal.NewFromInt(1400)))
	require.True(t, page.Summary.Average.Equal(decimal.NewFromInt(200)))
	require.Equal(t, "USD", page.Summary.Currency)
}

func TestOrdersViewStatusFilterIsAppliedToFetchedPage(t *testing.T) {
	t.Parallel()

	reg := newRegistry(t, nil)
	view, err := reg.Orders(context.Background(), NewSessionID())
	require.NoError(t, err)
	_, err = view.Load(waitCtx(t))
	require.NoError(t, err)

	require.NoError(t, view.SetStatus(string(orders.StatusConfirmed)))
	page, err := view.Load(waitCtx(t))
	require.NoError(t, err)
	require.Equal(t, "Confirmed", page.Status)
	require.Equal(t, []string{"ord-1005", "ord-1003", "ord-1002", "ord-1000"}, orderIDs(page.Orders))
	require.Equal(t, 7, page.Total, "total reflects the server page, not the narrowed rows")
	require.Equal(t, 4, page.Summary.Count)
	require.Equal(t, 0, page.Summary.Pending)

	err = view.SetStatus("Shipped")
	require.ErrorIs(t, err, orders.ErrUnknownStatus)
}

func TestOrdersViewCustomerSearchIsDebounced(t *testing.T) {
	t.Parallel()

	reg := newRegistry(t, nil)
	view, err := reg.Orders(context.Background(), NewSessionID())
	require.NoError(t, err)
	_, err = view.Load(waitCtx(t))
	require.NoError(t, err)

	before := view.State().Epoch()
	for _, term := range []string{"c", "cust", "cust-301"} {
		view.SearchCustomer(term)
	}

	page, err := view.LoadAfter(waitCtx(t), before)
	require.NoError(t, err)
	require.Equal(t, before+1, view.State().Epoch(), "a burst of keystrokes yields one fetch")
	require.Equal(t, "cust-301", page.Customer)
	require.Equal(t, []string{"ord-1006", "ord-1004"}, orderIDs(page.Orders))
	require.Equal(t, 2, page.Total)
	require.True(t, page.HasFilters())

	require.True(t, view.ResetFilters())
	page, err = view.Load(waitCtx(t))
	require.NoError(t, err)
	require.Len(t, page.Orders, 7)
	require.False(t, view.ResetFilters())
}

func TestOrdersViewApplyPendingSearch(t *testing.T) {
	t.Parallel()

	svc := orders.NewStaticService()
	reg, err := NewRegistry(svc, RegistryConfig{Listing: listing.DefaultConfig(), Debounce: time.Hour})
	require.NoError(t, err)
	t.Cleanup(reg.Close)

	view, err := reg.Orders(context.Background(), NewSessionID())
	require.NoError(t, err)
	view.SearchCustomer("cust-118")
	require.True(t, view.ApplyPendingSearch())

	page, err := view.Load(waitCtx(t))
	require.NoError(t, err)
	require.Equal(t, []string{"ord-1003", "ord-1000"}, orderIDs(page.Orders))
}

func TestOrdersViewPagination(t *testing.T) {
	t.Parallel()

	reg := newRegistry(t, nil)
	view, err := reg.Orders(context.Background(), NewSessionID())
	require.NoError(t, err)

	require.NoError(t, view.SetPageSize(10))
	_, err = view.Load(waitCtx(t))
	require.NoError(t, err)
	require.False(t, view.ChangePage(listing.Next), "seven orders fit on one page of ten")
	require.ErrorIs(t, view.SetPageSize(15), listing.ErrInvalidPageSize)

	var rangeErr *listing.OutOfRangeError
	require.True(t, errors.As(view.SetPage(2), &rangeErr))
	require.Equal(t, 1, rangeErr.TotalPages)
}

func TestOrdersViewSurfacesMixedCurrency(t *testing.T) {
	t.Parallel()

	svc := orders.NewStaticService(orders.WithOrders(
		orders.Order{ID: "a", Status: orders.StatusConfirmed, Total: orders.MustMoney("10", "USD")},
		orders.Order{ID: "b", Status: orders.StatusConfirmed, Total: orders.MustMoney("10", "JPY")},
	))
	reg := newRegistry(t, svc)
	view, err := reg.Orders(context.Background(), NewSessionID())
	require.NoError(t, err)

	page, err := view.Load(waitCtx(t))
	require.NoError(t, err)
	require.NoError(t, page.Err)
	require.Len(t, page.Orders, 2)
	require.ErrorIs(t, page.SummaryErr, orders.ErrMixedCurrency)
}

type failingService struct {
	orders.Service
	err error
}

func (f failingService) ListOrders(context.Context, orders.OrderQuery) (orders.OrderPage, error) {
	return orders.OrderPage{}, f.err
}

func TestOrdersViewUpdateAndCancel(t *testing.T) {
	t.Parallel()

	reg := newRegistry(t, nil)
	view, err := reg.Orders(context.Background(), NewSessionID())
	require.NoError(t, err)
	_, err = view.Load(waitCtx(t))
	require.NoError(t, err)

	confirmed := orders.StatusConfirmed
	updated, err := view.Update(context.Background(), "ord-1001", orders.OrderUpdate{Status: &confirmed})
	require.NoError(t, err)
	require.Equal(t, orders.StatusConfirmed, updated.Status)

	page, err := view.Load(waitCtx(t))
	require.NoError(t, err)
	require.Equal(t, 1, page.Summary.Pending)
	require.Equal(t, 5, page.Summary.Confirmed)

	cancelled, err := view.Cancel(context.Background(), "ord-1006", "Customer changed their mind")
	require.NoError(t, err)
	require.Equal(t, orders.StatusCancelled, cancelled.Status)

	page, err = view.Load(waitCtx(t))
	require.NoError(t, err)
	require.Zero(t, page.Summary.Pending)
	require.Equal(t, 2, page.Summary.Cancelled)

	_, err = view.Cancel(context.Background(), "ord-1006", "")
	require.ErrorIs(t, err, orders.ErrOrderCancelled)
	_, err = view.Update(context.Background(), "ord-1004", orders.OrderUpdate{Status: &confirmed})
	require.ErrorIs(t, err, orders.ErrOrderCancelled)
	_, err = view.Update(context.Background(), "ord-1000", orders.OrderUpdate{})
	require.ErrorIs(t, err, orders.ErrInvalidOrderUpdate)
	_, err = view.Cancel(context.Background(), "ord-missing", "")
	require.ErrorIs(t, err, orders.ErrOrderNotFound)
}

func TestOrdersViewRecordsFetchError(t *testing.T) {
	t.Parallel()

	boom := errors.New("backend unavailable")
	reg := newRegistry(t, failingService{Service: orders.NewStaticService(), err: boom})
	view, err := reg.Orders(context.Background(), NewSessionID())
	require.NoError(t, err)

	page, err := view.Load(waitCtx(t))
	require.NoError(t, err)
	require.ErrorIs(t, page.Err, boom)
	require.Empty(t, page.Orders)
}

// customerSearchService answers the "slow" customer only once release is closed,
// ignoring cancellation like a backend that has already started the query.
type customerSearchService struct {
	orders.Service
	started chan struct{}
	release chan struct{}
}

func (s customerSearchService) ListOrders(ctx context.Context, q orders.OrderQuery) (orders.OrderPage, error) {
	switch q.CustomerID {
	case "slow":
		close(s.started)
		<-s.release
		return orders.OrderPage{Page: q.Page, PageSize: q.PageSize, Total: 100}, nil
	case "fast":
		return orders.OrderPage{Page: q.Page, PageSize: q.PageSize, Total: 5}, nil
	}
	return s.Service.ListOrders(ctx, q)
}

func staleResponses(t *testing.T, reg *prometheus.Registry, list string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() != "orders_admin_listing_stale_responses_total" {
			continue
		}
		for _, metric := range family.GetMetric() {
			for _, label := range metric.GetLabel() {
				if label.GetName() == "list" && label.GetValue() == list {
					return metric.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func TestOrdersViewIgnoresTotalOfStaleResponse(t *testing.T) {
	t.Parallel()

	svc := customerSearchService{
		Service: orders.NewStaticService(),
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	store := NewMemoryStateStore(time.Hour)
	promReg := prometheus.NewRegistry()
	sessionID := NewSessionID()

	reg := newRegistry(t, svc, WithStore(store), WithMetrics(listing.NewMetrics(promReg)))
	view, err := reg.Orders(context.Background(), sessionID)
	require.NoError(t, err)
	_, err = view.Load(waitCtx(t))
	require.NoError(t, err)

	require.NoError(t, view.State().SetFilter(FilterCustomer, "slow"))
	select {
	case <-svc.started:
	case <-time.After(2 * time.Second):
		t.Fatal("slow search never started")
	}

	require.NoError(t, view.State().SetFilter(FilterCustomer, "fast"))
	page, err := view.Load(waitCtx(t))
	require.NoError(t, err)
	require.Equal(t, "fast", page.Customer)
	require.Equal(t, 5, page.Total)
	require.Equal(t, 1, page.TotalPages)

	close(svc.release)
	require.Eventually(t, func() bool {
		return staleResponses(t, promReg, ListOrders) == 1
	}, 2*time.Second, 5*time.Millisecond)

	require.Equal(t, 1, view.State().TotalPages())
	snap, ok, err := store.Load(context.Background(), sessionID, ListOrders)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 5, snap.Total)
	require.Equal(t, "fast", snap.Filters[FilterCustomer])

	require.False(t, view.ChangePage(listing.Next))
	require.Equal(t, 1, view.State().Query().Page)
	require.Equal(t, 5, view.Latest().Total)
}

func TestRegistryRestoresPersistedState(t *testing.T) {
	t.Parallel()

	store := NewMemoryStateStore(time.Hour)
	sessionID := NewSessionID()

	first := newRegistry(t, nil, WithStore(store))
	view, err := first.Orders(context.Background(), sessionID)
	require.NoError(t, err)
	require.NoError(t, view.SetPageSize(50))
	require.NoError(t, view.SetStatus("Cancelled"))
	_, err = view.Load(waitCtx(t))
	require.NoError(t, err)
	first.Close()

	second := newRegistry(t, nil, WithStore(store))
	restored, err := second.Orders(context.Background(), sessionID)
	require.NoError(t, err)
	page, err := restored.Load(waitCtx(t))
	require.NoError(t, err)
	require.Equal(t, 50, page.PageSize)
	require.Equal(t, "Cancelled", page.Status)
	require.Equal(t, []string{"ord-1004"}, orderIDs(page.Orders))

	require.NoError(t, second.Forget(context.Background(), sessionID))
	_, ok, err := store.Load(context.Background(), sessionID, ListOrders)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRegistryRejectsInvalidSessions(t *testing.T) {
	t.Parallel()

	reg := newRegistry(t, nil)
	_, err := reg.Orders(context.Background(), "not-a-ulid")
	require.ErrorIs(t, err, ErrInvalidSession)
	require.True(t, ValidSessionID(NewSessionID()))
}

func TestRegistrySweepEvictsIdleSessions(t *testing.T) {
	t.Parallel()

	reg := newRegistry(t, nil)
	now := time.Now()
	reg.now = func() time.Time { return now }

	_, err := reg.Orders(context.Background(), NewSessionID())
	require.NoError(t, err)
	require.Equal(t, 1, reg.Len())

	require.Zero(t, reg.Sweep())
	now = now.Add(defaultIdleTimeout + time.Minute)
	require.Equal(t, 1, reg.Sweep())
	require.Zero(t, reg.Len())
}

// loadHookStore runs onLoad before every snapshot lookup.
type loadHookStore struct {
	StateStore
	onLoad func()
}

func (s loadHookStore) Load(ctx context.Context, sessionID, list string) (listing.Snapshot, bool, error) {
	s.onLoad()
	return s.StateStore.Load(ctx, sessionID, list)
}

func TestRegistryDoesNotAttachViewsToEvictedSession(t *testing.T) {
	t.Parallel()

	var reg *Registry
	now := time.Now()
	var once sync.Once
	store := loadHookStore{
		StateStore: NewMemoryStateStore(time.Hour),
		onLoad: func() {
			// The janitor runs while the first view is being restored.
			once.Do(func() {
				now = now.Add(defaultIdleTimeout + time.Minute)
				require.Equal(t, 1, reg.Sweep())
			})
		},
	}
	reg = newRegistry(t, nil, WithStore(store))
	reg.now = func() time.Time { return now }
	sessionID := NewSessionID()

	view, err := reg.Orders(context.Background(), sessionID)
	require.NoError(t, err)
	require.Equal(t, 1, reg.Len())

	again, err := reg.Orders(context.Background(), sessionID)
	require.NoError(t, err)
	require.Same(t, view, again, "the view lives on the session that replaced the evicted one")

	page, err := view.Load(waitCtx(t))
	require.NoError(t, err)
	require.Len(t, page.Orders, 7)
}

func TestReturnsViewWorkflow(t *testing.T) {
	t.Parallel()

	reg := newRegistry(t, nil)
	view, err := reg.Returns(context.Background(), NewSessionID())
	require.NoError(t, err)
	ctx := waitCtx(t)

	page, err := view.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, page.Total)
	require.Equal(t, 1, page.Summary.Pending)
	require.Equal(t, 2, page.Summary.Refunded)
	require.Equal(t, 1, page.Summary.RefundProcessing)
	require.Equal(t, 1, page.Summary.RefundSettled)

	_, err = view.Create(ctx, "ord-1000", "too short")
	var validation *orders.ReturnValidationError
	require.True(t, errors.As(err, &validation))
	require.Contains(t, validation.FieldErrors, "reason")

	_, err = view.Create(ctx, "ord-1004", "Desk arrived with a cracked top")
	require.ErrorIs(t, err, orders.ErrOrderNotReturnable)

	_, err = view.Create(ctx, "ord-1005", "Chair legs are still wobbling")
	require.ErrorIs(t, err, orders.ErrReturnExists)

	created, err := view.Create(ctx, "ord-1000", "Vases arrived <b>cracked</b> in transit")
	require.NoError(t, err)
	require.Equal(t, orders.ReturnPending, created.Status)
	require.Equal(t, "Vases arrived cracked in transit", created.Reason)

	page, err = view.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, 4, page.Total)

	_, err = view.Reject(ctx, "ret-503", "Outside the return window")
	require.ErrorIs(t, err, orders.ErrInvalidTransition)

	_, err = view.Reject(ctx, created.ID, "no")
	require.True(t, errors.As(err, &validation))

	rejected, err := view.Reject(ctx, created.ID, "Damage not visible in photos")
	require.NoError(t, err)
	require.Equal(t, orders.ReturnRejected, rejected.Status)

	approved, err := view.Approve(ctx, created.ID, ApproveInput{ResolutionNotes: "Second review", AutoRefund: true})
	require.NoError(t, err)
	require.Equal(t, orders.ReturnRefunded, approved.Status)
	require.Equal(t, orders.RefundSettled, approved.RefundState())

	_, err = view.Refund(ctx, created.ID, nil, "")
	require.ErrorIs(t, err, orders.ErrInvalidTransition)
}

func TestReturnsViewStatusFilter(t *testing.T) {
	t.Parallel()

	reg := newRegistry(t, nil)
	view, err := reg.Returns(context.Background(), NewSessionID())
	require.NoError(t, err)

	require.NoError(t, view.SetStatus("Refunded"))
	page, err := view.Load(waitCtx(t))
	require.NoError(t, err)
	require.Equal(t, 2, page.Total)
	for _, request := range page.Returns {
		require.Equal(t, orders.ReturnRefunded, request.Status)
	}

	require.ErrorIs(t, view.SetStatus("Lost"), orders.ErrUnknownStatus)
}

func TestLoadOrderDetail(t *testing.T) {
	t.Parallel()

	svc := orders.NewStaticService()
	ctx := context.Background()

	withReturn, err := LoadOrderDetail(ctx, svc, "ord-1005")
	require.NoError(t, err)
	require.NotNil(t, withReturn.Return)
	require.Equal(t, "ret-504", withReturn.Return.ID)
	require.False(t, withReturn.CanRequestReturn)
	require.True(t, withReturn.Flags.IsTerminalSuccess)
	require.Len(t, withReturn.Timeline, 4)

	eligible, err := LoadOrderDetail(ctx, svc, "ord-1000")
	require.NoError(t, err)
	require.Nil(t, eligible.Return)
	require.True(t, eligible.CanRequestReturn)

	cancelled, err := LoadOrderDetail(ctx, svc, "ord-1004")
	require.NoError(t, err)
	require.False(t, cancelled.CanRequestReturn)
	require.Equal(t, "Only confirmed orders can be returned.", cancelled.ReturnBlocked)
	require.Len(t, cancelled.Timeline, 4)
	require.True(t, cancelled.Timeline[0].Active, "placed stays active for cancelled orders")
	for _, step := range cancelled.Timeline[1:] {
		require.False(t, step.Active)
	}

	_, err = LoadOrderDetail(ctx, svc, "ord-missing")
	require.ErrorIs(t, err, orders.ErrOrderNotFound)
}
