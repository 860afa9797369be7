package enums

// NotificationType labels the notifications the settlement core emits.
type NotificationType string

const (
	NotificationOrderCompleted NotificationType = "order_completed"
	NotificationOrderCancelled NotificationType = "order_cancelled"
	NotificationPickupReminder NotificationType = "pickup_reminder"
)

// String implements fmt.Stringer.
func (n NotificationType) String() string {
	return string(n)
}
