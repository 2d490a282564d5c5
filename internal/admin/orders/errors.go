package orders

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ErrUnknownStatus is the sentinel wrapped by UnknownStatusError.
	ErrUnknownStatus = errors.New("unknown status")
	// ErrMixedCurrency is the sentinel wrapped by MixedCurrencyError.
	ErrMixedCurrency = errors.New("mixed currencies")
	// ErrOrderNotFound indicates the requested order does not exist.
	ErrOrderNotFound = errors.New("order not found")
	// ErrReturnNotFound indicates the requested return request does not exist.
	ErrReturnNotFound = errors.New("return request not found")
	// ErrOrderNotReturnable indicates a return was requested for an order that is not confirmed.
	ErrOrderNotReturnable = errors.New("only confirmed orders can be returned")
	// ErrReturnExists indicates the order already has a return request.
	ErrReturnExists = errors.New("return request already exists for this order")
	// ErrInvalidTransition indicates the requested return action is not permitted.
	ErrInvalidTransition = errors.New("invalid return transition")
	// ErrInvalidReturn indicates the return payload failed validation.
	ErrInvalidReturn = errors.New("invalid return request")
	// ErrInvalidOrderUpdate indicates an order update failed validation.
	ErrInvalidOrderUpdate = errors.New("invalid order update")
	// ErrOrderCancelled indicates a change was requested for an order that is already cancelled.
	ErrOrderCancelled = errors.New("cancelled orders cannot be changed")
)

// UnknownStatusError reports a status string outside the closed vocabulary.
type UnknownStatusError struct {
	Kind Kind
	Raw  string
}

func (e *UnknownStatusError) Error() string {
	if e == nil {
		return ErrUnknownStatus.Error()
	}
	kind := string(e.Kind)
	if kind == "" {
		kind = "entity"
	}
	return "unrecognized " + kind + " status " + `"` + e.Raw + `"`
}

// Unwrap exposes ErrUnknownStatus for errors.Is checks.
func (e *UnknownStatusError) Unwrap() error {
	return ErrUnknownStatus
}

// MixedCurrencyError reports aggregation across more than one currency.
type MixedCurrencyError struct {
	Currencies []string
}

func (e *MixedCurrencyError) Error() string {
	if e == nil || len(e.Currencies) == 0 {
		return ErrMixedCurrency.Error()
	}
	currencies := append([]string(nil), e.Currencies...)
	sort.Strings(currencies)
	return "cannot aggregate mixed currencies: " + strings.Join(currencies, ", ")
}

// Unwrap exposes ErrMixedCurrency for errors.Is checks.
func (e *MixedCurrencyError) Unwrap() error {
	return ErrMixedCurrency
}

// ReturnTransitionError describes a rejected return action.
type ReturnTransitionError struct {
	From   ReturnStatus
	Action ReturnAction
	Reason string
}

func (e *ReturnTransitionError) Error() string {
	if e == nil {
		return ErrInvalidTransition.Error()
	}
	reason := e.Reason
	if strings.TrimSpace(reason) == "" {
		reason = "action not permitted"
	}
	return "cannot " + string(e.Action) + " a return in status " + string(e.From) + ": " + reason
}

// Unwrap exposes ErrInvalidTransition for errors.Is checks.
func (e *ReturnTransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// ReturnValidationError captures field level validation issues for return payloads.
type ReturnValidationError struct {
	Message     string
	FieldErrors map[string]string
}

func (e *ReturnValidationError) Error() string {
	if e == nil {
		return ErrInvalidReturn.Error()
	}
	if strings.TrimSpace(e.Message) != "" {
		return e.Message
	}
	if len(e.FieldErrors) == 0 {
		return ErrInvalidReturn.Error()
	}
	fields := make([]string, 0, len(e.FieldErrors))
	for field, msg := range e.FieldErrors {
		fields = append(fields, field+": "+msg)
	}
	sort.Strings(fields)
	return "invalid return request: " + strings.Join(fields, "; ")
}

// Unwrap exposes ErrInvalidReturn for errors.Is checks.
func (e *ReturnValidationError) Unwrap() error {
	return ErrInvalidReturn
}

// OrderValidationError captures field level validation issues for order updates.
type OrderValidationError struct {
	FieldErrors map[string]string
}

func (e *OrderValidationError) Error() string {
	if e == nil || len(e.FieldErrors) == 0 {
		return ErrInvalidOrderUpdate.Error()
	}
	fields := make([]string, 0, len(e.FieldErrors))
	for field, msg := range e.FieldErrors {
		fields = append(fields, field+": "+msg)
	}
	sort.Strings(fields)
	return "invalid order update: " + strings.Join(fields, "; ")
}

// Unwrap exposes ErrInvalidOrderUpdate for errors.Is checks.
func (e *OrderValidationError) Unwrap() error {
	return ErrInvalidOrderUpdate
}
