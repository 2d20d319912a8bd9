package kafka

import "time"

const (
	TopicItemAdded      = `cart-service.item-added`
	TopicOrderSubmitted = `cart-service.order-submitted`
)

// CartEvent is the payload published for cart lifecycle events. Consumers
// (analytics, abandoned-cart jobs) key on the session id.
type CartEvent struct {
	SessionID  string    `json:"session_id"`
	ProductID  string    `json:"product_id,omitempty"`
	OrderID    string    `json:"order_id,omitempty"`
	Quantity   int       `json:"quantity,omitempty"`
	TotalItems int       `json:"total_items"`
	TotalPrice int64     `json:"total_price"` // smallest currency unit
	OccurredAt time.Time `json:"occurred_at"`
}
