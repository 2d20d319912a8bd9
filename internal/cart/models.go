package cart

// Product is the catalog record shape consumed from the product service.
// Price is in the smallest currency unit (paise) so money math stays integral.
type Product struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       int64  `json:"price"`
	Stock       int    `json:"stock"`
	ImageRef    string `json:"image_ref,omitempty"`
}

// LineItem is one product entry in a cart. Name, description, price and
// stock are snapshots taken at add-time; later catalog changes do not touch
// lines already in the cart.
type LineItem struct {
	ProductID      string `json:"product_id"`
	Name           string `json:"name"`
	Description    string `json:"description"`
	UnitPrice      int64  `json:"unit_price"`
	AvailableStock int    `json:"available_stock"`
	ImageRef       string `json:"image_ref,omitempty"`
	CartQuantity   int    `json:"cart_quantity"`
}

// CheckoutLine is the materialized tuple handed off to the order service
// when the shopper submits an order.
type CheckoutLine struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Quantity  int    `json:"quantity"`
}

// CartResponse is the JSON shape returned to the storefront.
type CartResponse struct {
	Items      []LineItem `json:"items"`
	TotalItems int        `json:"total_items"`
	TotalPrice int64      `json:"total_price"`
}
