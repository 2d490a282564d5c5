package orders

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// StaticService provides deterministic order and return data suitable for local development and tests.
type StaticService struct {
	mu      sync.RWMutex
	orders  []Order
	returns []ReturnRequest
	now     func() time.Time
	idGen   func() string
}

// StaticOption customises a StaticService.
type StaticOption func(*StaticService)

// WithOrders replaces the seeded orders.
func WithOrders(orders ...Order) StaticOption {
	return func(s *StaticService) {
		s.orders = append([]Order(nil), orders...)
	}
}

// WithReturns replaces the seeded return requests.
func WithReturns(returns ...ReturnRequest) StaticOption {
	return func(s *StaticService) {
		s.returns = append([]ReturnRequest(nil), returns...)
	}
}

// WithIDGenerator overrides how new identifiers are minted.
func WithIDGenerator(gen func() string) StaticOption {
	return func(s *StaticService) {
		if gen != nil {
			s.idGen = gen
		}
	}
}

// NewStaticService returns a StaticService populated with representative orders and returns.
func NewStaticService(opts ...StaticOption) *StaticService {
	now := time.Now().UTC()
	s := &StaticService{
		orders:  seedOrders(now),
		returns: seedReturns(now),
		now:     func() time.Time { return time.Now().UTC() },
		idGen:   func() string { return strings.ToLower(ulid.Make().String()) },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// ListOrders implements Service.
func (s *StaticService) ListOrders(_ context.Context, query OrderQuery) (OrderPage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	filtered := make([]Order, 0, len(s.orders))
	customer := strings.TrimSpace(query.CustomerID)
	for _, order := range s.orders {
		if customer != "" && !strings.EqualFold(order.CustomerID, customer) {
			continue
		}
		filtered = append(filtered, order)
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].PlacedAt().After(filtered[j].PlacedAt())
	})

	page, pageSize := normalizePaging(query.Page, query.PageSize)
	start, end := pageBounds(len(filtered), page, pageSize)

	return OrderPage{
		Items:    append([]Order(nil), filtered[start:end]...),
		Total:    len(filtered),
		Page:     page,
		PageSize: pageSize,
	}, nil
}

// GetOrder implements Service.
func (s *StaticService) GetOrder(_ context.Context, orderID string) (Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	order, ok := s.findOrder(orderID)
	if !ok {
		return Order{}, ErrOrderNotFound
	}
	return order, nil
}

// UpdateOrder implements Service.
func (s *StaticService) UpdateOrder(_ context.Context, orderID string, update OrderUpdate) (Order, error) {
	update, err := ValidateOrderUpdate(update)
	if err != nil {
		return Order{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.orderIndex(orderID)
	if idx < 0 {
		return Order{}, ErrOrderNotFound
	}
	if err := CanUpdateOrder(s.orders[idx]); err != nil {
		return Order{}, err
	}
	s.orders[idx] = ApplyOrderUpdate(s.orders[idx], update)
	s.touchOrder(idx)
	return s.orders[idx], nil
}

// CancelOrder implements Service.
func (s *StaticService) CancelOrder(_ context.Context, orderID string, _ OrderCancel) (Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.orderIndex(orderID)
	if idx < 0 {
		return Order{}, ErrOrderNotFound
	}
	if err := CanCancelOrder(s.orders[idx]); err != nil {
		return Order{}, err
	}
	s.orders[idx].Status = StatusCancelled
	s.touchOrder(idx)
	return s.orders[idx], nil
}

// ListReturns implements Service.
func (s *StaticService) ListReturns(_ context.Context, query ReturnQuery) (ReturnPage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	filtered := make([]ReturnRequest, 0, len(s.returns))
	for _, request := range s.returns {
		if query.Status != "" && request.Status != query.Status {
			continue
		}
		filtered = append(filtered, request)
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].Audit.CreatedDate.After(filtered[j].Audit.CreatedDate.Time)
	})

	page, pageSize := normalizePaging(query.Page, query.PageSize)
	start, end := pageBounds(len(filtered), page, pageSize)

	return ReturnPage{
		Items:    append([]ReturnRequest(nil), filtered[start:end]...),
		Total:    len(filtered),
		Page:     page,
		PageSize: pageSize,
	}, nil
}

// GetReturn implements Service.
func (s *StaticService) GetReturn(_ context.Context, returnID string) (ReturnRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := s.returnIndex(returnID)
	if idx < 0 {
		return ReturnRequest{}, ErrReturnNotFound
	}
	return s.returns[idx], nil
}

// CreateReturn implements Service.
func (s *StaticService) CreateReturn(_ context.Context, payload ReturnCreate) (ReturnRequest, error) {
	payload, err := ValidateReturnCreate(payload)
	if err != nil {
		return ReturnRequest{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.findOrder(payload.OrderID)
	if !ok {
		return ReturnRequest{}, ErrOrderNotFound
	}
	if err := CanRequestReturn(order); err != nil {
		return ReturnRequest{}, err
	}
	if _, exists := FindReturnForOrder(s.returns, order.ID); exists {
		return ReturnRequest{}, ErrReturnExists
	}

	now := Timestamp{Time: s.now()}
	request := ReturnRequest{
		ID:         s.idGen(),
		OrderID:    order.ID,
		CustomerID: order.CustomerID,
		Reason:     payload.Reason,
		Status:     ReturnPending,
		Audit: AuditMetadata{
			CreatedBy:    order.CustomerID,
			CreatedDate:  now,
			ModifiedBy:   order.CustomerID,
			ModifiedDate: now,
		},
		Order: summarizeOrder(order),
	}
	s.returns = append(s.returns, request)
	return request, nil
}

// ApproveReturn implements Service.
func (s *StaticService) ApproveReturn(ctx context.Context, returnID string, payload ReturnDecision) (ReturnRequest, error) {
	s.mu.Lock()
	idx := s.returnIndex(returnID)
	if idx < 0 {
		s.mu.Unlock()
		return ReturnRequest{}, ErrReturnNotFound
	}
	if err := CheckReturnAction(s.returns[idx].Status, ActionApprove); err != nil {
		s.mu.Unlock()
		return ReturnRequest{}, err
	}
	s.returns[idx].Status = ReturnApproved
	s.returns[idx].ResolutionNotes = SanitizeText(payload.ResolutionNotes)
	s.touch(idx)
	approved := s.returns[idx]
	s.mu.Unlock()

	if payload.AutoRefund {
		return s.RefundReturn(ctx, returnID, ReturnRefund{Amount: payload.RefundAmount, Reason: "Auto refund on approval"})
	}
	return approved, nil
}

// RejectReturn implements Service.
func (s *StaticService) RejectReturn(_ context.Context, returnID string, payload ReturnRejection) (ReturnRequest, error) {
	payload, err := ValidateReturnRejection(payload)
	if err != nil {
		return ReturnRequest{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.returnIndex(returnID)
	if idx < 0 {
		return ReturnRequest{}, ErrReturnNotFound
	}
	if err := CheckReturnAction(s.returns[idx].Status, ActionReject); err != nil {
		return ReturnRequest{}, err
	}
	s.returns[idx].Status = ReturnRejected
	s.returns[idx].ResolutionNotes = payload.ResolutionNotes
	s.touch(idx)
	return s.returns[idx], nil
}

// RefundReturn implements Service.
func (s *StaticService) RefundReturn(_ context.Context, returnID string, payload ReturnRefund) (ReturnRequest, error) {
	payload, err := ValidateReturnRefund(payload)
	if err != nil {
		return ReturnRequest{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.returnIndex(returnID)
	if idx < 0 {
		return ReturnRequest{}, ErrReturnNotFound
	}
	request := s.returns[idx]
	if err := CheckReturnAction(request.Status, ActionRefund); err != nil {
		return ReturnRequest{}, err
	}
	order, ok := s.findOrder(request.OrderID)
	if !ok {
		return ReturnRequest{}, fmt.Errorf("refund return %s: %w", returnID, ErrOrderNotFound)
	}

	amount := order.Total.Amount
	if payload.Amount != nil {
		if payload.Amount.GreaterThan(order.Total.Amount) {
			return ReturnRequest{}, &ReturnValidationError{FieldErrors: map[string]string{
				"amount": "amount exceeds the order total",
			}}
		}
		amount = *payload.Amount
	}
	transactionID := "txn_" + s.idGen()
	code := order.Total.Currency

	s.returns[idx].Status = ReturnRefunded
	s.returns[idx].RefundTransactionID = &transactionID
	s.returns[idx].RefundAmount = &amount
	s.returns[idx].RefundCurrency = &code
	s.touch(idx)
	return s.returns[idx], nil
}

func (s *StaticService) findOrder(orderID string) (Order, bool) {
	idx := s.orderIndex(orderID)
	if idx < 0 {
		return Order{}, false
	}
	return s.orders[idx], true
}

func (s *StaticService) orderIndex(orderID string) int {
	orderID = strings.TrimSpace(orderID)
	for i, order := range s.orders {
		if order.ID == orderID {
			return i
		}
	}
	return -1
}

func (s *StaticService) returnIndex(returnID string) int {
	returnID = strings.TrimSpace(returnID)
	for i, request := range s.returns {
		if request.ID == returnID {
			return i
		}
	}
	return -1
}

func (s *StaticService) touch(idx int) {
	s.returns[idx].Audit.ModifiedBy = "console"
	s.returns[idx].Audit.ModifiedDate = Timestamp{Time: s.now()}
}

func (s *StaticService) touchOrder(idx int) {
	s.orders[idx].Audit.ModifiedBy = "console"
	s.orders[idx].Audit.ModifiedDate = Timestamp{Time: s.now()}
}

func pageBounds(total, page, pageSize int) (int, int) {
	start := (page - 1) * pageSize
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	return start, end
}

func summarizeOrder(order Order) *ReturnOrderSummary {
	items := make([]ReturnOrderItem, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, ReturnOrderItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			LineTotal: Money{
				Amount:   item.UnitPrice.Amount.Mul(decimalFromInt(item.Quantity)),
				Currency: item.UnitPrice.Currency,
			},
		})
	}
	return &ReturnOrderSummary{
		ID:              order.ID,
		Status:          string(order.Status),
		Total:           order.Total,
		PlacedAt:        Timestamp{Time: order.PlacedAt()},
		ShippingAddress: order.ShippingAddress,
		ItemCount:       order.ItemCount(),
		Items:           items,
	}
}

func seedOrders(now time.Time) []Order {
	makeOrder := func(id, customer string, status OrderStatus, age time.Duration, address string, items ...OrderItem) Order {
		total := Money{Amount: decimalFromInt(0), Currency: "USD"}
		for _, item := range items {
			total.Amount = total.Amount.Add(item.UnitPrice.Amount.Mul(decimalFromInt(item.Quantity)))
		}
		created := Timestamp{Time: now.Add(-age)}
		return Order{
			ID:              id,
			TenantID:        "tenant-demo",
			CustomerID:      customer,
			Status:          status,
			Items:           items,
			Total:           total,
			ShippingAddress: address,
			CreatedDate:     &created,
			Audit: AuditMetadata{
				CreatedBy:    customer,
				CreatedDate:  created,
				ModifiedBy:   customer,
				ModifiedDate: created,
			},
		}
	}

	return []Order{
		makeOrder("ord-1006", "cust-301", StatusPendingPayment, 30*time.Minute, "12 Harbor St, Portland, OR",
			OrderItem{ProductID: "prod-lamp", Quantity: 1, UnitPrice: MustMoney("89.00", "USD")},
		),
		makeOrder("ord-1005", "cust-204", StatusConfirmed, 5*time.Hour, "400 Pine Ave, Seattle, WA",
			OrderItem{ProductID: "prod-chair", Quantity: 2, UnitPrice: MustMoney("149.50", "USD")},
			OrderItem{ProductID: "prod-cushion", Quantity: 2, UnitPrice: MustMoney("24.00", "USD")},
		),
		makeOrder("ord-1004", "cust-301", StatusCancelled, 26*time.Hour, "12 Harbor St, Portland, OR",
			OrderItem{ProductID: "prod-desk", Quantity: 1, UnitPrice: MustMoney("420.00", "USD")},
		),
		makeOrder("ord-1003", "cust-118", StatusConfirmed, 50*time.Hour, "",
			OrderItem{ProductID: "prod-mug", Quantity: 4, UnitPrice: MustMoney("12.25", "USD")},
		),
		makeOrder("ord-1002", "cust-204", StatusConfirmed, 72*time.Hour, "400 Pine Ave, Seattle, WA",
			OrderItem{ProductID: "prod-shelf", Quantity: 1, UnitPrice: MustMoney("210.00", "USD")},
		),
		makeOrder("ord-1001", "cust-077", StatusPendingPayment, 96*time.Hour, "9 Elm Rd, Austin, TX",
			OrderItem{ProductID: "prod-rug", Quantity: 1, UnitPrice: MustMoney("180.00", "USD")},
		),
		makeOrder("ord-1000", "cust-118", StatusConfirmed, 120*time.Hour, "77 Lake Dr, Madison, WI",
			OrderItem{ProductID: "prod-vase", Quantity: 3, UnitPrice: MustMoney("35.00", "USD")},
		),
	}
}

func seedReturns(now time.Time) []ReturnRequest {
	processing := "txn_seed_processing"
	settled := "txn_seed_settled"
	settledAmount := MustMoney("210.00", "USD")
	settledCurrency := settledAmount.Currency

	audit := func(age time.Duration) AuditMetadata {
		ts := Timestamp{Time: now.Add(-age)}
		return AuditMetadata{CreatedBy: "seed", CreatedDate: ts, ModifiedBy: "seed", ModifiedDate: ts}
	}

	return []ReturnRequest{
		{
			ID:         "ret-504",
			OrderID:    "ord-1005",
			CustomerID: "cust-204",
			Reason:     "Chair legs wobble even after tightening.",
			Status:     ReturnPending,
			Audit:      audit(2 * time.Hour),
		},
		{
			ID:                  "ret-503",
			OrderID:             "ord-1003",
			CustomerID:          "cust-118",
			Reason:              "Two mugs arrived chipped along the rim.",
			Status:              ReturnRefunded,
			RefundTransactionID: &processing,
			Audit:               audit(20 * time.Hour),
		},
		{
			ID:                  "ret-502",
			OrderID:             "ord-1002",
			CustomerID:          "cust-204",
			Reason:              "Shelf colour does not match the listing photos.",
			Status:              ReturnRefunded,
			RefundTransactionID: &settled,
			RefundAmount:        &settledAmount.Amount,
			RefundCurrency:      &settledCurrency,
			Audit:               audit(40 * time.Hour),
		},
	}
}
