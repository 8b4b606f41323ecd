package enums

import "fmt"

// EventType classifies the behavioral and commerce events accepted by intake.
type EventType string

const (
	EventTypePageView         EventType = "page_view"
	EventTypeProductView      EventType = "product_view"
	EventTypeAddToCart        EventType = "add_to_cart"
	EventTypeRemoveFromCart   EventType = "remove_from_cart"
	EventTypeCheckoutStart    EventType = "checkout_start"
	EventTypeCheckoutStep     EventType = "checkout_step"
	EventTypeCheckoutComplete EventType = "checkout_complete"
	EventTypePurchase         EventType = "purchase"
	EventTypeDiscountApplied  EventType = "discount_applied"
	EventTypeExitIntent       EventType = "exit_intent"
	EventTypeBounce           EventType = "bounce"
)

var validEventTypes = []EventType{
	EventTypePageView,
	EventTypeProductView,
	EventTypeAddToCart,
	EventTypeRemoveFromCart,
	EventTypeCheckoutStart,
	EventTypeCheckoutStep,
	EventTypeCheckoutComplete,
	EventTypePurchase,
	EventTypeDiscountApplied,
	EventTypeExitIntent,
	EventTypeBounce,
}

// String implements fmt.Stringer.
func (e EventType) String() string {
	return string(e)
}

// IsValid reports whether the value is a known EventType.
func (e EventType) IsValid() bool {
	for _, candidate := range validEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// IsCommerceCompletion reports whether the event should trigger attribution.
func (e EventType) IsCommerceCompletion() bool {
	return e == EventTypeCheckoutComplete || e == EventTypePurchase
}

// ParseEventType converts raw input into an EventType.
func ParseEventType(value string) (EventType, error) {
	for _, candidate := range validEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
