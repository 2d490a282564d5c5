package orders

import "strings"

// RefundState is the refund progress of a return request.
type RefundState string

const (
	// RefundNone means no refund transaction exists.
	RefundNone RefundState = "none"
	// RefundProcessing means a transaction exists but its amount is not yet known.
	RefundProcessing RefundState = "processing"
	// RefundSettled means both transaction and amount are known.
	RefundSettled RefundState = "settled"
)

// RefundState derives the refund progress. The amount is ignored until a transaction exists.
func (r ReturnRequest) RefundState() RefundState {
	if r.RefundTransactionID == nil || strings.TrimSpace(*r.RefundTransactionID) == "" {
		return RefundNone
	}
	if r.RefundAmount == nil {
		return RefundProcessing
	}
	return RefundSettled
}

// RefundDisplay renders the refund column text for a return request.
func RefundDisplay(r ReturnRequest) string {
	switch r.RefundState() {
	case RefundProcessing:
		return "Processing…"
	case RefundSettled:
		code := ""
		if r.RefundCurrency != nil {
			code = *r.RefundCurrency
		}
		return FormatAmount(*r.RefundAmount, code)
	default:
		return "—"
	}
}

// Tone returns the badge tone for the refund state.
func (s RefundState) Tone() string {
	switch s {
	case RefundProcessing:
		return "info"
	case RefundSettled:
		return "success"
	default:
		return "muted"
	}
}
