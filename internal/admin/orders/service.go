package orders

import "context"

// Service exposes the order and return operations of the commerce backend.
type Service interface {
	// ListOrders returns one page of orders, optionally narrowed to a customer.
	ListOrders(ctx context.Context, query OrderQuery) (OrderPage, error)
	// GetOrder returns a single order or ErrOrderNotFound.
	GetOrder(ctx context.Context, orderID string) (Order, error)
	// UpdateOrder changes the status or shipping address of an order that is not cancelled.
	UpdateOrder(ctx context.Context, orderID string, update OrderUpdate) (Order, error)
	// CancelOrder cancels an order that is not cancelled yet.
	CancelOrder(ctx context.Context, orderID string, payload OrderCancel) (Order, error)
	// ListReturns returns one page of return requests, optionally narrowed to a status.
	ListReturns(ctx context.Context, query ReturnQuery) (ReturnPage, error)
	// GetReturn returns a single return request or ErrReturnNotFound.
	GetReturn(ctx context.Context, returnID string) (ReturnRequest, error)
	// CreateReturn opens a return request for a confirmed order.
	CreateReturn(ctx context.Context, payload ReturnCreate) (ReturnRequest, error)
	// ApproveReturn accepts a pending or rejected return, optionally refunding it straight away.
	ApproveReturn(ctx context.Context, returnID string, payload ReturnDecision) (ReturnRequest, error)
	// RejectReturn declines a return that has not been refunded.
	RejectReturn(ctx context.Context, returnID string, payload ReturnRejection) (ReturnRequest, error)
	// RefundReturn issues a refund for a pending or approved return.
	RefundReturn(ctx context.Context, returnID string, payload ReturnRefund) (ReturnRequest, error)
}

const (
	// DefaultPageSize is used when a query omits the page size.
	DefaultPageSize = 20
	// ReturnLookupPageSize is the page size used when scanning the returns listing.
	ReturnLookupPageSize = 50
	// MaxReturnLookupPages bounds a scan of the returns listing.
	MaxReturnLookupPages = 20
)

// ReturnLister is the part of Service needed to scan return requests.
type ReturnLister interface {
	ListReturns(ctx context.Context, query ReturnQuery) (ReturnPage, error)
}

// ScanReturns walks the returns listing page by page and returns the first request
// match accepts. The scan stops at the end of the listing or after MaxReturnLookupPages.
func ScanReturns(ctx context.Context, svc ReturnLister, match func(ReturnRequest) bool) (ReturnRequest, bool, error) {
	for page := 1; page <= MaxReturnLookupPages; page++ {
		result, err := svc.ListReturns(ctx, ReturnQuery{Page: page, PageSize: ReturnLookupPageSize})
		if err != nil {
			return ReturnRequest{}, false, err
		}
		for _, request := range result.Items {
			if match(request) {
				return request, true, nil
			}
		}
		if len(result.Items) == 0 || page*ReturnLookupPageSize >= result.Total {
			break
		}
	}
	return ReturnRequest{}, false, nil
}

// ReturnForOrder looks up the return request opened for orderID.
func ReturnForOrder(ctx context.Context, svc ReturnLister, orderID string) (ReturnRequest, bool, error) {
	return ScanReturns(ctx, svc, func(request ReturnRequest) bool {
		return request.OrderID == orderID
	})
}

func normalizePaging(page, pageSize int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return page, pageSize
}
