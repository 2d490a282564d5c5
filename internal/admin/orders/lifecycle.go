package orders

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// MaxShippingAddressLength caps the shipping address an operator may enter.
const MaxShippingAddressLength = 500

// OrderUpdate edits an order. Nil fields are left unchanged; an empty shipping
// address clears it.
type OrderUpdate struct {
	Status          *OrderStatus `json:"status,omitempty"`
	ShippingAddress *string      `json:"shippingAddress,omitempty"`
}

// OrderCancel is the payload of an order cancellation.
type OrderCancel struct {
	Reason string `json:"reason,omitempty"`
}

// ValidateOrderUpdate sanitises the shipping address and checks the status belongs
// to the order vocabulary.
func ValidateOrderUpdate(update OrderUpdate) (OrderUpdate, error) {
	fieldErrors := make(map[string]string)
	if update.Status != nil {
		status, err := ParseOrderStatus(strings.TrimSpace(string(*update.Status)))
		if err != nil {
			fieldErrors["status"] = err.Error()
		} else {
			update.Status = &status
		}
	}
	if update.ShippingAddress != nil {
		address := SanitizeText(*update.ShippingAddress)
		if utf8.RuneCountInString(address) > MaxShippingAddressLength {
			fieldErrors["shippingAddress"] = "address must be at most " + strconv.Itoa(MaxShippingAddressLength) + " characters"
		}
		update.ShippingAddress = &address
	}
	if update.Status == nil && update.ShippingAddress == nil {
		fieldErrors["status"] = "nothing to update"
	}
	if len(fieldErrors) > 0 {
		return update, &OrderValidationError{FieldErrors: fieldErrors}
	}
	return update, nil
}

// CanUpdateOrder reports whether order may still be edited. Cancelled is terminal.
func CanUpdateOrder(order Order) error {
	if order.Status == StatusCancelled {
		return ErrOrderCancelled
	}
	return nil
}

// CanCancelOrder reports whether order may be cancelled.
func CanCancelOrder(order Order) error {
	return CanUpdateOrder(order)
}

// ApplyOrderUpdate returns order with update applied.
func ApplyOrderUpdate(order Order, update OrderUpdate) Order {
	if update.Status != nil {
		order.Status = *update.Status
	}
	if update.ShippingAddress != nil {
		order.ShippingAddress = *update.ShippingAddress
	}
	return order
}
