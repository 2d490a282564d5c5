package views

import (
	"context"

	"finitefield.org/orders-admin/internal/admin/orders"
)

// OrderDetail is the order detail screen model.
type OrderDetail struct {
	Order      orders.Order
	Flags      orders.StageFlags
	Timeline   []orders.TimelineStep
	Milestones []orders.Milestone
	// Return is the return request opened for the order, when one exists.
	Return *orders.ReturnRequest
	// ReturnErr is set when the return lookup failed; the order itself still renders.
	ReturnErr error
	// CanRequestReturn reports whether the operator may open a return now.
	CanRequestReturn bool
	// ReturnBlocked explains why no return can be opened.
	ReturnBlocked string
}

// LoadOrderDetail fetches an order and the state of its return request.
func LoadOrderDetail(ctx context.Context, svc orders.Service, orderID string) (OrderDetail, error) {
	order, err := svc.GetOrder(ctx, orderID)
	if err != nil {
		return OrderDetail{}, err
	}

	detail := OrderDetail{
		Order:      order,
		Flags:      orders.ClassifyOrder(order.Status),
		Timeline:   orders.ProjectOrder(order.Status),
		Milestones: orders.DetailMilestones(order.Status),
	}

	request, found, err := orders.ReturnForOrder(ctx, svc, order.ID)
	switch {
	case err != nil:
		detail.ReturnErr = err
		detail.ReturnBlocked = "Return status is unavailable right now."
	case found:
		detail.Return = &request
		detail.ReturnBlocked = "A return request already exists for this order."
	case orders.CanRequestReturn(order) == nil:
		detail.CanRequestReturn = true
	default:
		detail.ReturnBlocked = "Only confirmed orders can be returned."
	}
	return detail, nil
}
