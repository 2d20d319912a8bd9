package cart

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

func TestConf_SessionIsolation(t *testing.T) {
	conf := NewConf()

	first := conf.GetOrCreate("session-a")
	second := conf.GetOrCreate("session-b")

	if err := first.AddItem(testProduct("p1", 100, 5), 2); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if second.TotalItems() != 0 {
		t.Fatalf("session-b cart sees session-a items")
	}
	if conf.GetOrCreate("session-a") != first {
		t.Fatalf("GetOrCreate returned a different cart for the same session")
	}
}

func TestConf_Drop(t *testing.T) {
	conf := NewConf()

	c := conf.GetOrCreate("session-a")
	if err := c.AddItem(testProduct("p1", 100, 5), 2); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	conf.Drop("session-a")
	conf.Drop("session-a") // idempotent

	fresh := conf.GetOrCreate("session-a")
	if fresh == c {
		t.Fatalf("expected a fresh cart after Drop")
	}
	if fresh.TotalItems() != 0 {
		t.Fatalf("expected empty cart after Drop, got %d items", fresh.TotalItems())
	}
}

func TestConf_ConcurrentGetOrCreate_SingleCart(t *testing.T) {
	conf := NewConf()
	sessionID := uuid.NewString()

	const N = 50
	carts := make(map[*Cart]struct{})
	var mu sync.Mutex

	var g errgroup.Group
	for i := 0; i < N; i++ {
		g.Go(func() error {
			c := conf.GetOrCreate(sessionID)
			mu.Lock()
			carts[c] = struct{}{}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("concurrent GetOrCreate failed: %v", err)
	}
	if len(carts) != 1 {
		t.Fatalf("expected exactly 1 cart instance, got %d", len(carts))
	}
}

func TestCart_ConcurrentAddItemMerge(t *testing.T) {
	conf := NewConf()
	sessionID := uuid.NewString()
	p := testProduct(uuid.NewString(), 100, 1000)

	const N = 100
	var g errgroup.Group
	for i := 0; i < N; i++ {
		g.Go(func() error {
			return conf.GetOrCreate(sessionID).AddItem(p, 1)
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("concurrent AddItem failed: %v", err)
	}

	c := conf.GetOrCreate(sessionID)
	items := c.Items()
	if len(items) != 1 {
		t.Fatalf("expected a single merged line, got %d", len(items))
	}
	if items[0].CartQuantity != N {
		t.Fatalf("expected quantity %d after %d concurrent adds, got %d", N, N, items[0].CartQuantity)
	}
	if c.TotalPrice() != int64(N)*100 {
		t.Fatalf("unexpected total price %d", c.TotalPrice())
	}
}
