package cart

import "sync"

// Conf owns the per-session carts. Sessions are keyed by the user id from
// the verified token; each session gets exactly one cart, created empty on
// first touch and dropped after a successful order placement.
type Conf struct {
	mu    sync.RWMutex
	carts map[string]*Cart
}

func NewConf() *Conf {
	return &Conf{
		carts: make(map[string]*Cart),
	}
}

// GetOrCreate returns the cart for the session, creating an empty one on
// first access. Safe for concurrent use; every caller for the same session
// gets the same cart instance.
func (c *Conf) GetOrCreate(sessionID string) *Cart {
	c.mu.RLock()
	existing, ok := c.carts[sessionID]
	c.mu.RUnlock()
	if ok {
		return existing
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	// Re-check: another request may have created it between the locks.
	if existing, ok := c.carts[sessionID]; ok {
		return existing
	}
	created := newCart()
	c.carts[sessionID] = created
	return created
}

// Drop discards the session's cart entirely. Used when the session ends;
// a later GetOrCreate starts fresh. Idempotent.
func (c *Conf) Drop(sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.carts, sessionID)
}
