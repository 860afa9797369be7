package enums

import "fmt"

// ReleaseReason tags who (or what) is asking to settle a payment hold.
type ReleaseReason string

const (
	ReleaseReasonSellerConfirm ReleaseReason = "seller_confirm"
	ReleaseReasonBuyerConfirm  ReleaseReason = "buyer_confirm"
	ReleaseReasonAutoTimeout   ReleaseReason = "auto_timeout"
)

var validReleaseReasons = []ReleaseReason{
	ReleaseReasonSellerConfirm,
	ReleaseReasonBuyerConfirm,
	ReleaseReasonAutoTimeout,
}

// String implements fmt.Stringer.
func (r ReleaseReason) String() string {
	return string(r)
}

// IsValid reports whether the value is a known ReleaseReason.
func (r ReleaseReason) IsValid() bool {
	for _, candidate := range validReleaseReasons {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseReleaseReason converts raw input into a ReleaseReason.
func ParseReleaseReason(value string) (ReleaseReason, error) {
	for _, candidate := range validReleaseReasons {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid release reason %q", value)
}
