package orders

import "cart-service/internal/cart"

// DeliveryDetails is the contact and address block the shopper fills in at
// checkout. It travels with the order handoff untouched.
type DeliveryDetails struct {
	Name                  string `json:"name" validate:"required"`
	Email                 string `json:"email" validate:"required,email"`
	Phone                 string `json:"phone" validate:"required"`
	Address               string `json:"address" validate:"required"`
	City                  string `json:"city" validate:"required"`
	PostalCode            string `json:"postal_code" validate:"required"`
	DeliveryInstructions  string `json:"delivery_instructions,omitempty"`
	PreferredDeliveryTime string `json:"preferred_delivery_time,omitempty"`
}

// OrderRequest is the wholesale handoff posted to the order service when
// the shopper submits: the materialized cart lines plus the aggregate total
// in the smallest currency unit.
type OrderRequest struct {
	OrderID         string              `json:"order_id"`         // UUID minted by the cart service
	UserID          string              `json:"user_id"`          // Subject of the verified token
	Items           []cart.CheckoutLine `json:"items"`            // One tuple per cart line
	TotalPrice      int64               `json:"total_price"`      // Sum of price * quantity
	DeliveryDetails DeliveryDetails     `json:"delivery_details"` // As entered by the shopper
}

// OrderResponse is what the order service answers with on acceptance.
type OrderResponse struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
}
