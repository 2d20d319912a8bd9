package cart

import (
	"errors"
	"sync"
)

// ErrInvalidQuantity is returned when an add would create a line item with a
// quantity below 1, which includes adding an out-of-stock product.
var ErrInvalidQuantity = errors.New("quantity must be at least 1 and product must be in stock")

// Cart holds the line items one shopper has selected. All mutation goes
// through its methods; the mutex serializes writers so concurrent requests
// on the same session never observe a half-applied update.
type Cart struct {
	mu    sync.Mutex
	items map[string]*LineItem
	order []string // productIDs in insertion order, drives display order
}

func newCart() *Cart {
	return &Cart{
		items: make(map[string]*LineItem),
	}
}

// AddItem puts the product in the cart with the requested quantity, clamped
// to the product's stock. A repeated add for the same product accumulates
// into the existing line instead of duplicating it. Adding with quantity < 1
// or adding an out-of-stock product is rejected with ErrInvalidQuantity.
func (c *Cart) AddItem(p Product, quantity int) error {
	if quantity < 1 || p.Stock < 1 {
		return ErrInvalidQuantity
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.items[p.ID]; ok {
		existing.CartQuantity = clamp(existing.CartQuantity+quantity, p.Stock)
		return nil
	}

	c.items[p.ID] = &LineItem{
		ProductID:      p.ID,
		Name:           p.Name,
		Description:    p.Description,
		UnitPrice:      p.Price,
		AvailableStock: p.Stock,
		ImageRef:       p.ImageRef,
		CartQuantity:   clamp(quantity, p.Stock),
	}
	c.order = append(c.order, p.ID)
	return nil
}

// UpdateQuantity sets the quantity of an existing line. A quantity of zero
// or less removes the line entirely; anything above the stock snapshot is
// silently clamped to it. Updating an absent product is a benign no-op.
func (c *Cart) UpdateQuantity(productID string, quantity int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, ok := c.items[productID]
	if !ok {
		return
	}
	if quantity <= 0 {
		c.remove(productID)
		return
	}
	item.CartQuantity = clamp(quantity, item.AvailableStock)
}

// RemoveItem deletes the line for the given product. Idempotent.
func (c *Cart) RemoveItem(productID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.remove(productID)
}

// Clear empties the cart unconditionally. Called after a successful order
// submission. Idempotent.
func (c *Cart) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*LineItem)
	c.order = nil
}

// Items returns copies of the line items in display (insertion) order.
func (c *Cart) Items() []LineItem {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]LineItem, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, *c.items[id])
	}
	return out
}

// TotalItems is the sum of quantities across all lines, recomputed on every
// read so it can never drift from the items themselves.
func (c *Cart) TotalItems() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := 0
	for _, item := range c.items {
		total += item.CartQuantity
	}
	return total
}

// TotalPrice is the sum of unit price times quantity across all lines, in
// the smallest currency unit. Recomputed on every read.
func (c *Cart) TotalPrice() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totalPrice()
}

// CheckoutLines materializes the cart for the order-submission handoff:
// one {product, name, price, quantity} tuple per line plus the aggregate
// total. The cart itself is untouched; the order flow clears it on success.
func (c *Cart) CheckoutLines() ([]CheckoutLine, int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	lines := make([]CheckoutLine, 0, len(c.order))
	for _, id := range c.order {
		item := c.items[id]
		lines = append(lines, CheckoutLine{
			ProductID: item.ProductID,
			Name:      item.Name,
			Price:     item.UnitPrice,
			Quantity:  item.CartQuantity,
		})
	}
	return lines, c.totalPrice()
}

// Response assembles the storefront JSON shape in one lock acquisition.
func (c *Cart) Response() CartResponse {
	c.mu.Lock()
	defer c.mu.Unlock()

	items := make([]LineItem, 0, len(c.order))
	totalItems := 0
	for _, id := range c.order {
		item := c.items[id]
		items = append(items, *item)
		totalItems += item.CartQuantity
	}
	return CartResponse{
		Items:      items,
		TotalItems: totalItems,
		TotalPrice: c.totalPrice(),
	}
}

// remove expects the caller to hold c.mu.
func (c *Cart) remove(productID string) {
	if _, ok := c.items[productID]; !ok {
		return
	}
	delete(c.items, productID)
	for i, id := range c.order {
		if id == productID {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// totalPrice expects the caller to hold c.mu.
func (c *Cart) totalPrice() int64 {
	var total int64
	for _, item := range c.items {
		total += item.UnitPrice * int64(item.CartQuantity)
	}
	return total
}

func clamp(quantity, stock int) int {
	if quantity > stock {
		return stock
	}
	return quantity
}
