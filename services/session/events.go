package session

type EventKind string

const (
	EventCartChanged     EventKind = "cart_changed"
	EventCouponChanged   EventKind = "coupon_changed"
	EventPinCodeChanged  EventKind = "pin_code_changed"
	EventCustomerChanged EventKind = "customer_changed"
)

type Event struct {
	SessionID string
	Kind      EventKind
}
