package orders

import (
	"html"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

const (
	// MinReturnReasonLength is the minimum number of characters in a return reason.
	MinReturnReasonLength = 10
	// MinRejectionNotesLength is the minimum number of characters when rejecting a return.
	MinRejectionNotesLength = 6
)

// ReturnAction is an operator action on a return request.
type ReturnAction string

const (
	ActionApprove ReturnAction = "approve"
	ActionReject  ReturnAction = "reject"
	ActionRefund  ReturnAction = "refund"
)

var plainTextPolicy = bluemonday.StrictPolicy()

// SanitizeText strips markup and surrounding whitespace from operator or customer input.
// The policy escapes entities, so the result is unescaped back to plain text.
func SanitizeText(value string) string {
	return strings.TrimSpace(html.UnescapeString(plainTextPolicy.Sanitize(value)))
}

// CanRequestReturn reports whether a return may be opened for the order.
func CanRequestReturn(order Order) error {
	if order.Status != StatusConfirmed {
		return ErrOrderNotReturnable
	}
	return nil
}

// ValidateReturnCreate sanitises and validates a return request payload.
func ValidateReturnCreate(payload ReturnCreate) (ReturnCreate, error) {
	payload.OrderID = strings.TrimSpace(payload.OrderID)
	payload.Reason = SanitizeText(payload.Reason)

	fieldErrors := make(map[string]string)
	if payload.OrderID == "" {
		fieldErrors["orderId"] = "order is required"
	}
	if utf8.RuneCountInString(payload.Reason) < MinReturnReasonLength {
		fieldErrors["reason"] = "reason must be at least " + strconv.Itoa(MinReturnReasonLength) + " characters"
	}
	if len(fieldErrors) > 0 {
		return payload, &ReturnValidationError{FieldErrors: fieldErrors}
	}
	return payload, nil
}

// ValidateReturnRejection sanitises and validates rejection notes.
func ValidateReturnRejection(payload ReturnRejection) (ReturnRejection, error) {
	payload.ResolutionNotes = SanitizeText(payload.ResolutionNotes)
	if utf8.RuneCountInString(payload.ResolutionNotes) < MinRejectionNotesLength {
		return payload, &ReturnValidationError{FieldErrors: map[string]string{
			"resolutionNotes": "notes must be at least " + strconv.Itoa(MinRejectionNotesLength) + " characters",
		}}
	}
	return payload, nil
}

// ValidateReturnRefund checks an optional refund amount is positive.
func ValidateReturnRefund(payload ReturnRefund) (ReturnRefund, error) {
	payload.Reason = SanitizeText(payload.Reason)
	if payload.Amount != nil && !payload.Amount.IsPositive() {
		return payload, &ReturnValidationError{FieldErrors: map[string]string{
			"amount": "amount must be positive",
		}}
	}
	return payload, nil
}

// CheckReturnAction reports whether action is permitted for a return in status from.
func CheckReturnAction(from ReturnStatus, action ReturnAction) error {
	switch action {
	case ActionApprove:
		if from == ReturnPending || from == ReturnRejected {
			return nil
		}
		return &ReturnTransitionError{From: from, Action: action, Reason: "only pending or rejected returns can be approved"}
	case ActionReject:
		if from != ReturnRefunded {
			return nil
		}
		return &ReturnTransitionError{From: from, Action: action, Reason: "refunded returns cannot be rejected"}
	case ActionRefund:
		if from == ReturnRefunded {
			return &ReturnTransitionError{From: from, Action: action, Reason: "return already refunded"}
		}
		if from == ReturnPending || from == ReturnApproved {
			return nil
		}
		return &ReturnTransitionError{From: from, Action: action, Reason: "only pending or approved returns can be refunded"}
	default:
		return &ReturnTransitionError{From: from, Action: action, Reason: "unknown action"}
	}
}

// AllowedReturnActions lists the actions permitted from status.
func AllowedReturnActions(status ReturnStatus) []ReturnAction {
	actions := make([]ReturnAction, 0, 3)
	for _, action := range []ReturnAction{ActionApprove, ActionReject, ActionRefund} {
		if CheckReturnAction(status, action) == nil {
			actions = append(actions, action)
		}
	}
	return actions
}

// FindReturnForOrder returns the return request opened for orderID, if any.
func FindReturnForOrder(returns []ReturnRequest, orderID string) (ReturnRequest, bool) {
	for _, request := range returns {
		if request.OrderID == orderID {
			return request, true
		}
	}
	return ReturnRequest{}, false
}
