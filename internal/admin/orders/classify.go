package orders

// StageFlags are the semantic flags derived from a status.
// Order flags and return flags are disjoint; the flags of the other kind stay false.
type StageFlags struct {
	IsPaid            bool
	IsTerminalSuccess bool
	IsTerminalFailure bool

	IsDecided  bool
	IsRefunded bool
}

// Classify maps a raw status string of the given kind to its stage flags.
// Statuses outside the closed vocabulary yield *UnknownStatusError.
func Classify(kind Kind, status string) (StageFlags, error) {
	switch kind {
	case KindOrder:
		parsed, err := ParseOrderStatus(status)
		if err != nil {
			return StageFlags{}, err
		}
		return ClassifyOrder(parsed), nil
	case KindReturn:
		parsed, err := ParseReturnStatus(status)
		if err != nil {
			return StageFlags{}, err
		}
		return ClassifyReturn(parsed), nil
	default:
		return StageFlags{}, &UnknownStatusError{Kind: kind, Raw: status}
	}
}

// ClassifyOrder derives flags from an already parsed order status.
func ClassifyOrder(status OrderStatus) StageFlags {
	return StageFlags{
		IsPaid:            status != StatusPendingPayment,
		IsTerminalSuccess: status == StatusConfirmed,
		IsTerminalFailure: status == StatusCancelled,
	}
}

// ClassifyReturn derives flags from an already parsed return status.
func ClassifyReturn(status ReturnStatus) StageFlags {
	return StageFlags{
		IsDecided:  status == ReturnApproved || status == ReturnRejected || status == ReturnRefunded,
		IsRefunded: status == ReturnRefunded,
	}
}
