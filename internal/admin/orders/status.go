package orders

import (
	"encoding/json"
	"strings"
)

// Kind identifies which entity a raw status string belongs to.
type Kind string

const (
	// KindOrder classifies order statuses.
	KindOrder Kind = "order"
	// KindReturn classifies return request statuses.
	KindReturn Kind = "return"
)

// OrderStatus represents the lifecycle state of an order as reported by the backend.
type OrderStatus string

const (
	// StatusPendingPayment indicates the order is awaiting payment confirmation.
	StatusPendingPayment OrderStatus = "PendingPayment"
	// StatusConfirmed indicates the payment succeeded and the order is fulfilled by the warehouse.
	StatusConfirmed OrderStatus = "Confirmed"
	// StatusCancelled indicates the order was cancelled before fulfilment.
	StatusCancelled OrderStatus = "Cancelled"
)

// ReturnStatus represents the lifecycle state of a return request.
type ReturnStatus string

const (
	// ReturnPending indicates the return awaits a decision.
	ReturnPending ReturnStatus = "Pending"
	// ReturnApproved indicates the return was accepted.
	ReturnApproved ReturnStatus = "Approved"
	// ReturnRejected indicates the return was declined.
	ReturnRejected ReturnStatus = "Rejected"
	// ReturnRefunded indicates a refund transaction was issued for the return.
	ReturnRefunded ReturnStatus = "Refunded"
)

// OrderStatuses lists every known order status in display order.
func OrderStatuses() []OrderStatus {
	return []OrderStatus{StatusPendingPayment, StatusConfirmed, StatusCancelled}
}

// ReturnStatuses lists every known return status in display order.
func ReturnStatuses() []ReturnStatus {
	return []ReturnStatus{ReturnPending, ReturnApproved, ReturnRejected, ReturnRefunded}
}

// ParseOrderStatus converts the raw backend value into an OrderStatus.
func ParseOrderStatus(raw string) (OrderStatus, error) {
	switch OrderStatus(raw) {
	case StatusPendingPayment, StatusConfirmed, StatusCancelled:
		return OrderStatus(raw), nil
	default:
		return "", &UnknownStatusError{Kind: KindOrder, Raw: raw}
	}
}

// ParseReturnStatus converts the raw backend value into a ReturnStatus.
func ParseReturnStatus(raw string) (ReturnStatus, error) {
	switch ReturnStatus(raw) {
	case ReturnPending, ReturnApproved, ReturnRejected, ReturnRefunded:
		return ReturnStatus(raw), nil
	default:
		return "", &UnknownStatusError{Kind: KindReturn, Raw: raw}
	}
}

// UnmarshalJSON rejects statuses outside the closed set.
func (s *OrderStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseOrderStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// UnmarshalJSON rejects statuses outside the closed set.
func (s *ReturnStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseReturnStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Label returns the human readable status label.
func (s OrderStatus) Label() string {
	switch s {
	case StatusPendingPayment:
		return "Pending Payment"
	case StatusConfirmed:
		return "Confirmed"
	case StatusCancelled:
		return "Cancelled"
	default:
		return string(s)
	}
}

// Tone returns the badge tone used when rendering the status.
func (s OrderStatus) Tone() string {
	switch s {
	case StatusPendingPayment:
		return "warning"
	case StatusConfirmed:
		return "success"
	case StatusCancelled:
		return "danger"
	default:
		return "muted"
	}
}

// Label returns the human readable status label.
func (s ReturnStatus) Label() string {
	if strings.TrimSpace(string(s)) == "" {
		return "Unknown"
	}
	return string(s)
}

// Tone returns the badge tone used when rendering the status.
func (s ReturnStatus) Tone() string {
	switch s {
	case ReturnPending:
		return "warning"
	case ReturnApproved:
		return "info"
	case ReturnRejected:
		return "danger"
	case ReturnRefunded:
		return "success"
	default:
		return "muted"
	}
}
