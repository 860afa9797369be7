package enums

import "fmt"

// PaymentHoldStatus tracks the escrow state of an order's payment hold.
// It only moves forward: none -> authorized -> captured, or
// authorized -> refunded.
type PaymentHoldStatus string

const (
	PaymentHoldStatusNone       PaymentHoldStatus = "none"
	PaymentHoldStatusAuthorized PaymentHoldStatus = "authorized"
	PaymentHoldStatusCaptured   PaymentHoldStatus = "captured"
	PaymentHoldStatusRefunded   PaymentHoldStatus = "refunded"
)

var validPaymentHoldStatuses = []PaymentHoldStatus{
	PaymentHoldStatusNone,
	PaymentHoldStatusAuthorized,
	PaymentHoldStatusCaptured,
	PaymentHoldStatusRefunded,
}

// String implements fmt.Stringer.
func (p PaymentHoldStatus) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentHoldStatus.
func (p PaymentHoldStatus) IsValid() bool {
	for _, candidate := range validPaymentHoldStatuses {
		if candidate == p {
			return true
		}
	}
	return false
}

// IsSettled reports whether the hold reached a terminal settlement state.
func (p PaymentHoldStatus) IsSettled() bool {
	return p == PaymentHoldStatusCaptured || p == PaymentHoldStatusRefunded
}

// ParsePaymentHoldStatus converts raw input into a PaymentHoldStatus.
func ParsePaymentHoldStatus(value string) (PaymentHoldStatus, error) {
	for _, candidate := range validPaymentHoldStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment hold status %q", value)
}
