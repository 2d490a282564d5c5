package orders

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Summary holds the insights computed over a page of orders.
type Summary struct {
	Count     int
	Pending   int
	Confirmed int
	Cancelled int
	Revenue   decimal.Decimal
	Average   decimal.Decimal
	// Currency is the single currency of the aggregated records; empty for empty input.
	Currency string
}

// AggregateOption customises Aggregate.
type AggregateOption func(*aggregateOptions)

type aggregateOptions struct {
	excludeCancelledFromRevenue bool
}

// WithExcludeCancelledFromRevenue leaves cancelled orders out of the revenue total.
// The average is still taken over every record.
func WithExcludeCancelledFromRevenue(exclude bool) AggregateOption {
	return func(o *aggregateOptions) {
		o.excludeCancelledFromRevenue = exclude
	}
}

// Aggregate reduces a page of orders to counts per status, revenue and average order value.
// Statuses outside the known set are counted in none of the buckets.
func Aggregate(records []Order, opts ...AggregateOption) (Summary, error) {
	var options aggregateOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	summary := Summary{
		Count:   len(records),
		Revenue: decimal.Zero,
		Average: decimal.Zero,
	}
	currencies := make(map[string]struct{}, 1)

	for _, order := range records {
		switch order.Status {
		case StatusPendingPayment:
			summary.Pending++
		case StatusConfirmed:
			summary.Confirmed++
		case StatusCancelled:
			summary.Cancelled++
		}

		currencies[order.Total.Currency] = struct{}{}
		if summary.Currency == "" {
			summary.Currency = order.Total.Currency
		}

		if options.excludeCancelledFromRevenue && order.Status == StatusCancelled {
			continue
		}
		summary.Revenue = summary.Revenue.Add(order.Total.Amount)
	}

	if len(currencies) > 1 {
		list := make([]string, 0, len(currencies))
		for code := range currencies {
			list = append(list, code)
		}
		sort.Strings(list)
		return Summary{}, &MixedCurrencyError{Currencies: list}
	}

	if len(records) > 0 {
		summary.Average = summary.Revenue.Div(decimal.NewFromInt(int64(len(records))))
	}
	return summary, nil
}

// ReturnSummary holds the insights computed over a page of return requests.
type ReturnSummary struct {
	Count            int
	Pending          int
	Approved         int
	Rejected         int
	Refunded         int
	RefundProcessing int
	RefundSettled    int
}

// AggregateReturns counts return requests per status and refund state.
func AggregateReturns(records []ReturnRequest) ReturnSummary {
	summary := ReturnSummary{Count: len(records)}
	for _, request := range records {
		switch request.Status {
		case ReturnPending:
			summary.Pending++
		case ReturnApproved:
			summary.Approved++
		case ReturnRejected:
			summary.Rejected++
		case ReturnRefunded:
			summary.Refunded++
		}
		switch request.RefundState() {
		case RefundProcessing:
			summary.RefundProcessing++
		case RefundSettled:
			summary.RefundSettled++
		}
	}
	return summary
}
