package orders

import (
	"github.com/nearbuyhq/nearbuy-backend/pkg/enums"
)

// statusTransitions is the closed edge set for order fulfillment states.
// completed is only reachable through a successful escrow capture and
// cancelled additionally requires the hold to be refunded or never placed;
// those preconditions are enforced by the services driving the writes.
var statusTransitions = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusPending: {
		enums.OrderStatusConfirmed,
		enums.OrderStatusCancelled,
	},
	enums.OrderStatusConfirmed: {
		enums.OrderStatusShipped,
		enums.OrderStatusReadyForPickup,
		enums.OrderStatusCompleted,
		enums.OrderStatusCancelled,
	},
	enums.OrderStatusShipped: {
		enums.OrderStatusDelivered,
		enums.OrderStatusCompleted,
		enums.OrderStatusCancelled,
	},
	enums.OrderStatusReadyForPickup: {
		enums.OrderStatusDelivered,
		enums.OrderStatusCompleted,
		enums.OrderStatusCancelled,
	},
	enums.OrderStatusDelivered: {
		enums.OrderStatusCompleted,
		enums.OrderStatusCancelled,
	},
	enums.OrderStatusCompleted: {},
	enums.OrderStatusCancelled: {},
}

// holdTransitions is the closed edge set for payment hold states. The hold
// only moves forward; captured and refunded are terminal.
var holdTransitions = map[enums.PaymentHoldStatus][]enums.PaymentHoldStatus{
	enums.PaymentHoldStatusNone:       {enums.PaymentHoldStatusAuthorized},
	enums.PaymentHoldStatusAuthorized: {enums.PaymentHoldStatusCaptured, enums.PaymentHoldStatusRefunded},
	enums.PaymentHoldStatusCaptured:   {},
	enums.PaymentHoldStatusRefunded:   {},
}

// CanTransitionStatus reports whether from -> to is a defined order status edge.
func CanTransitionStatus(from, to enums.OrderStatus) bool {
	for _, candidate := range statusTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// CanTransitionHold reports whether from -> to is a defined hold status edge.
func CanTransitionHold(from, to enums.PaymentHoldStatus) bool {
	for _, candidate := range holdTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}
