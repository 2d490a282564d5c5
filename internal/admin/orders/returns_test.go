package orders

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestRefundStateIsThreeValued(t *testing.T) {
	t.Parallel()

	txn := "txn_42"
	blank := "  "
	amount := decimal.RequireFromString("19.99")
	code := "USD"

	require.Equal(t, RefundNone, ReturnRequest{}.RefundState())
	require.Equal(t, RefundNone, ReturnRequest{RefundAmount: &amount}.RefundState())
	require.Equal(t, RefundNone, ReturnRequest{RefundTransactionID: &blank}.RefundState())
	require.Equal(t, RefundProcessing, ReturnRequest{RefundTransactionID: &txn}.RefundState())

	settled := ReturnRequest{RefundTransactionID: &txn, RefundAmount: &amount, RefundCurrency: &code}
	require.Equal(t, RefundSettled, settled.RefundState())

	require.Equal(t, "—", RefundDisplay(ReturnRequest{}))
	require.Equal(t, "Processing…", RefundDisplay(ReturnRequest{RefundTransactionID: &txn}))
	display := RefundDisplay(settled)
	require.Contains(t, display, "USD")
	require.Contains(t, display, "19.99")
}

func TestCheckReturnAction(t *testing.T) {
	t.Parallel()

	allowed := map[ReturnStatus][]ReturnAction{
		ReturnPending:  {ActionApprove, ActionReject, ActionRefund},
		ReturnApproved: {ActionReject, ActionRefund},
		ReturnRejected: {ActionApprove, ActionReject},
		ReturnRefunded: {},
	}
	for status, want := range allowed {
		require.Equal(t, want, AllowedReturnActions(status), status)
	}

	err := CheckReturnAction(ReturnRefunded, ActionRefund)
	var transitionErr *ReturnTransitionError
	require.ErrorAs(t, err, &transitionErr)
	require.Equal(t, "return already refunded", transitionErr.Reason)
	require.ErrorIs(t, err, ErrInvalidTransition)

	err = CheckReturnAction(ReturnApproved, ActionApprove)
	require.ErrorAs(t, err, &transitionErr)
	require.Equal(t, ReturnApproved, transitionErr.From)
	require.Equal(t, ActionApprove, transitionErr.Action)
}

func TestValidateReturnCreate(t *testing.T) {
	t.Parallel()

	_, err := ValidateReturnCreate(ReturnCreate{OrderID: "ord-1", Reason: "too short"})
	var validation *ReturnValidationError
	require.ErrorAs(t, err, &validation)
	require.Contains(t, validation.FieldErrors, "reason")
	require.NotContains(t, validation.FieldErrors, "orderId")

	_, err = ValidateReturnCreate(ReturnCreate{Reason: "<b></b>   "})
	require.ErrorAs(t, err, &validation)
	require.Contains(t, validation.FieldErrors, "reason")
	require.Contains(t, validation.FieldErrors, "orderId")

	payload, err := ValidateReturnCreate(ReturnCreate{OrderID: " ord-1 ", Reason: "  <i>Arrived</i> broken & scratched "})
	require.NoError(t, err)
	require.Equal(t, "ord-1", payload.OrderID)
	require.Equal(t, "Arrived broken & scratched", payload.Reason)
}

func TestValidateReturnRejectionAndRefund(t *testing.T) {
	t.Parallel()

	_, err := ValidateReturnRejection(ReturnRejection{ResolutionNotes: "no"})
	require.ErrorIs(t, err, ErrInvalidReturn)

	payload, err := ValidateReturnRejection(ReturnRejection{ResolutionNotes: "Outside return window"})
	require.NoError(t, err)
	require.Equal(t, "Outside return window", payload.ResolutionNotes)

	negative := decimal.RequireFromString("-1")
	_, err = ValidateReturnRefund(ReturnRefund{Amount: &negative})
	require.ErrorIs(t, err, ErrInvalidReturn)

	_, err = ValidateReturnRefund(ReturnRefund{})
	require.NoError(t, err)
}

func TestCanRequestReturnOnlyForConfirmedOrders(t *testing.T) {
	t.Parallel()

	require.NoError(t, CanRequestReturn(Order{Status: StatusConfirmed}))
	require.ErrorIs(t, CanRequestReturn(Order{Status: StatusPendingPayment}), ErrOrderNotReturnable)
	require.ErrorIs(t, CanRequestReturn(Order{Status: StatusCancelled}), ErrOrderNotReturnable)
}

func TestFindReturnForOrder(t *testing.T) {
	t.Parallel()

	returns := []ReturnRequest{{ID: "ret-1", OrderID: "ord-1"}, {ID: "ret-2", OrderID: "ord-2"}}
	found, ok := FindReturnForOrder(returns, "ord-2")
	require.True(t, ok)
	require.Equal(t, "ret-2", found.ID)

	_, ok = FindReturnForOrder(returns, "ord-3")
	require.False(t, ok)
}

func TestMoneyParsing(t *testing.T) {
	t.Parallel()

	m, err := NewMoney("12.50", "usd")
	require.NoError(t, err)
	require.Equal(t, "USD", m.Currency)
	require.True(t, decimal.RequireFromString("12.5").Equal(m.Amount))

	_, err = NewMoney("abc", "USD")
	require.Error(t, err)

	_, err = NewMoney("1", "XXXX")
	require.Error(t, err)

	require.Contains(t, FormatAmount(decimal.RequireFromString("1234.5"), "USD"), "1,234.50")
	require.Contains(t, FormatAmount(decimal.RequireFromString("1200"), "JPY"), "1,200")
}
