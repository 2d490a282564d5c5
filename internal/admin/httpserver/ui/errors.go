package ui

import (
	"errors"
	"net/http"

	"finitefield.org/orders-admin/internal/admin/backend"
	"finitefield.org/orders-admin/internal/admin/listing"
	adminorders "finitefield.org/orders-admin/internal/admin/orders"
)

const (
	ordersLoadFailed  = "Failed to load orders"
	returnsLoadFailed = "Failed to load returns"
	actionFailed      = "The request could not be completed. Try again later."
)

// loadErrorMessage turns a fetch failure into the banner shown above a listing.
// Backend details are shown as sent; local validation errors keep their reason.
func loadErrorMessage(err error, fallback string) string {
	if err == nil {
		return ""
	}
	var apiErr *backend.APIError
	switch {
	case errors.As(err, &apiErr) && apiErr.Detail != "":
		return apiErr.Detail
	case errors.Is(err, adminorders.ErrUnknownStatus),
		errors.Is(err, adminorders.ErrMixedCurrency),
		errors.Is(err, listing.ErrPageOutOfRange),
		errors.Is(err, listing.ErrInvalidPageSize):
		return "Failed to load: " + err.Error()
	default:
		return fallback
	}
}

// actionErrorMessage explains why an order or return action was refused.
func actionErrorMessage(err error) string {
	var (
		apiErr        *backend.APIError
		validationErr *adminorders.ReturnValidationError
		transitionErr *adminorders.ReturnTransitionError
	)
	switch {
	case errors.As(err, &validationErr):
		if validationErr.Message != "" {
			return validationErr.Message
		}
		return "Please correct the highlighted fields."
	case errors.Is(err, adminorders.ErrInvalidOrderUpdate):
		return "Please correct the highlighted fields."
	case errors.As(err, &transitionErr):
		return transitionErr.Error()
	case errors.Is(err, adminorders.ErrOrderCancelled),
		errors.Is(err, adminorders.ErrReturnExists),
		errors.Is(err, adminorders.ErrOrderNotReturnable),
		errors.Is(err, adminorders.ErrReturnNotFound),
		errors.Is(err, adminorders.ErrOrderNotFound):
		return capitalise(unwrapSentinel(err).Error()) + "."
	case errors.As(err, &apiErr) && apiErr.Detail != "":
		return apiErr.Detail
	default:
		return actionFailed
	}
}

// actionStatus maps a workflow error to the HTTP status of the re-rendered page.
func actionStatus(err error) int {
	var (
		apiErr        *backend.APIError
		validationErr *adminorders.ReturnValidationError
	)
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &validationErr),
		errors.Is(err, adminorders.ErrInvalidOrderUpdate),
		errors.Is(err, adminorders.ErrUnknownStatus),
		errors.Is(err, listing.ErrInvalidPageSize),
		errors.Is(err, listing.ErrPageOutOfRange):
		return http.StatusUnprocessableEntity
	case errors.Is(err, adminorders.ErrInvalidTransition),
		errors.Is(err, adminorders.ErrOrderCancelled),
		errors.Is(err, adminorders.ErrReturnExists),
		errors.Is(err, adminorders.ErrOrderNotReturnable):
		return http.StatusConflict
	case errors.Is(err, adminorders.ErrOrderNotFound),
		errors.Is(err, adminorders.ErrReturnNotFound):
		return http.StatusNotFound
	case errors.As(err, &apiErr) && apiErr.Status >= 400 && apiErr.Status < 500:
		return apiErr.Status
	default:
		return http.StatusBadGateway
	}
}

func fieldErrors(err error) map[string]string {
	var (
		validationErr *adminorders.ReturnValidationError
		orderErr      *adminorders.OrderValidationError
	)
	switch {
	case errors.As(err, &validationErr):
		return validationErr.FieldErrors
	case errors.As(err, &orderErr):
		return orderErr.FieldErrors
	default:
		return nil
	}
}

func unwrapSentinel(err error) error {
	for _, sentinel := range []error{
		adminorders.ErrOrderCancelled,
		adminorders.ErrReturnExists,
		adminorders.ErrOrderNotReturnable,
		adminorders.ErrReturnNotFound,
		adminorders.ErrOrderNotFound,
	} {
		if errors.Is(err, sentinel) {
			return sentinel
		}
	}
	return err
}

func capitalise(s string) string {
	if s == "" {
		return s
	}
	if s[0] >= 'a' && s[0] <= 'z' {
		return string(s[0]-'a'+'A') + s[1:]
	}
	return s
}
