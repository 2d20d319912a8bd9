package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"cart-service/internal/auth"
	"cart-service/internal/cart"
	"cart-service/internal/products"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

type fakeFetcher struct {
	products map[string]cart.Product
}

func (f fakeFetcher) ProductDetails(_ context.Context, productID string) (cart.Product, error) {
	p, ok := f.products[productID]
	if !ok {
		return cart.Product{}, products.ErrNotFound
	}
	return p, nil
}

// testClaims stands in for the authentication middleware so handlers see a
// verified user without real tokens.
func testClaims(userID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := auth.Claims{
			RegisteredClaims: jwt.RegisteredClaims{Subject: userID},
			Roles:            []string{auth.RoleUser},
		}
		c.Request = c.Request.WithContext(auth.SetClaims(c.Request.Context(), claims))
		c.Next()
	}
}

func testEngine(t *testing.T, fetcher products.Fetcher) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	h := NewHandler(cart.NewConf(), nil, fetcher, nil, nil)

	r := gin.New()
	r.Use(testClaims("user-1"))
	r.POST("/add-item", h.AddToCart)
	r.GET("/items", h.GetCartItems)
	r.PATCH("/items/:productID", h.UpdateItemQuantity)
	r.DELETE("/items/:productID", h.RemoveCartItem)
	r.DELETE("/items", h.ClearCart)
	r.POST("/checkout", h.Checkout)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshaling request body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeCart(t *testing.T, w *httptest.ResponseRecorder) cart.CartResponse {
	t.Helper()
	var resp cart.CartResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding cart response: %v", err)
	}
	return resp
}

func TestAddToCartHandler(t *testing.T) {
	fetcher := fakeFetcher{products: map[string]cart.Product{
		"p1": {ID: "p1", Name: "Basmati Rice 1kg", Price: 250, Stock: 5},
		"p2": {ID: "p2", Name: "Toor Dal 500g", Price: 100, Stock: 0},
	}}

	t.Run("adds and returns totals", func(t *testing.T) {
		r := testEngine(t, fetcher)
		w := doJSON(t, r, http.MethodPost, "/add-item", gin.H{"product_id": "p1", "quantity": 2})
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
		}
		resp := decodeCart(t, w)
		if resp.TotalItems != 2 || resp.TotalPrice != 500 {
			t.Fatalf("unexpected totals: %+v", resp)
		}
	})

	t.Run("repeated add merges and clamps to stock", func(t *testing.T) {
		r := testEngine(t, fetcher)
		doJSON(t, r, http.MethodPost, "/add-item", gin.H{"product_id": "p1", "quantity": 3})
		w := doJSON(t, r, http.MethodPost, "/add-item", gin.H{"product_id": "p1", "quantity": 4})
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		resp := decodeCart(t, w)
		if len(resp.Items) != 1 {
			t.Fatalf("expected one merged line, got %d", len(resp.Items))
		}
		if resp.Items[0].CartQuantity != 5 {
			t.Fatalf("expected quantity clamped to stock 5, got %d", resp.Items[0].CartQuantity)
		}
	})

	t.Run("unknown product -> 404", func(t *testing.T) {
		r := testEngine(t, fetcher)
		w := doJSON(t, r, http.MethodPost, "/add-item", gin.H{"product_id": "ghost", "quantity": 1})
		if w.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", w.Code)
		}
	})

	t.Run("out-of-stock product -> 409", func(t *testing.T) {
		r := testEngine(t, fetcher)
		w := doJSON(t, r, http.MethodPost, "/add-item", gin.H{"product_id": "p2", "quantity": 1})
		if w.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", w.Code)
		}
	})

	t.Run("quantity below 1 -> 400", func(t *testing.T) {
		r := testEngine(t, fetcher)
		w := doJSON(t, r, http.MethodPost, "/add-item", gin.H{"product_id": "p1", "quantity": 0})
		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", w.Code)
		}
	})
}

func TestUpdateItemQuantityHandler(t *testing.T) {
	fetcher := fakeFetcher{products: map[string]cart.Product{
		"p1": {ID: "p1", Name: "Basmati Rice 1kg", Price: 250, Stock: 4},
	}}

	t.Run("clamps above-stock quantity", func(t *testing.T) {
		r := testEngine(t, fetcher)
		doJSON(t, r, http.MethodPost, "/add-item", gin.H{"product_id": "p1", "quantity": 1})
		w := doJSON(t, r, http.MethodPatch, "/items/p1", gin.H{"quantity": 99})
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		resp := decodeCart(t, w)
		if resp.Items[0].CartQuantity != 4 {
			t.Fatalf("expected quantity clamped to 4, got %d", resp.Items[0].CartQuantity)
		}
	})

	t.Run("zero quantity removes the line", func(t *testing.T) {
		r := testEngine(t, fetcher)
		doJSON(t, r, http.MethodPost, "/add-item", gin.H{"product_id": "p1", "quantity": 1})
		w := doJSON(t, r, http.MethodPatch, "/items/p1", gin.H{"quantity": 0})
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		if resp := decodeCart(t, w); len(resp.Items) != 0 {
			t.Fatalf("expected empty cart, got %+v", resp.Items)
		}
	})

	t.Run("absent product is a benign no-op", func(t *testing.T) {
		r := testEngine(t, fetcher)
		w := doJSON(t, r, http.MethodPatch, "/items/nonexistent", gin.H{"quantity": 5})
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		if resp := decodeCart(t, w); len(resp.Items) != 0 {
			t.Fatalf("no-op update created items: %+v", resp.Items)
		}
	})

	t.Run("missing quantity field -> 400", func(t *testing.T) {
		r := testEngine(t, fetcher)
		w := doJSON(t, r, http.MethodPatch, "/items/p1", gin.H{})
		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", w.Code)
		}
	})
}

func TestRemoveAndClearHandlers(t *testing.T) {
	fetcher := fakeFetcher{products: map[string]cart.Product{
		"p1": {ID: "p1", Name: "Basmati Rice 1kg", Price: 250, Stock: 5},
		"p2": {ID: "p2", Name: "Aashirvaad Atta 5kg", Price: 450, Stock: 5},
	}}

	t.Run("remove then remove again", func(t *testing.T) {
		r := testEngine(t, fetcher)
		doJSON(t, r, http.MethodPost, "/add-item", gin.H{"product_id": "p1", "quantity": 2})
		w := doJSON(t, r, http.MethodDelete, "/items/p1", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		w = doJSON(t, r, http.MethodDelete, "/items/p1", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200 on repeated remove, got %d", w.Code)
		}
		if resp := decodeCart(t, w); len(resp.Items) != 0 {
			t.Fatalf("expected empty cart, got %+v", resp.Items)
		}
	})

	t.Run("clear empties everything", func(t *testing.T) {
		r := testEngine(t, fetcher)
		doJSON(t, r, http.MethodPost, "/add-item", gin.H{"product_id": "p1", "quantity": 2})
		doJSON(t, r, http.MethodPost, "/add-item", gin.H{"product_id": "p2", "quantity": 3})
		w := doJSON(t, r, http.MethodDelete, "/items", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		resp := decodeCart(t, w)
		if len(resp.Items) != 0 || resp.TotalItems != 0 || resp.TotalPrice != 0 {
			t.Fatalf("expected fully empty cart, got %+v", resp)
		}
	})
}

func TestCheckoutHandlerValidation(t *testing.T) {
	fetcher := fakeFetcher{products: map[string]cart.Product{
		"p1": {ID: "p1", Name: "Basmati Rice 1kg", Price: 250, Stock: 5},
	}}

	validDelivery := gin.H{
		"name":        "Asha Rao",
		"email":       "asha@example.com",
		"phone":       "9876543210",
		"address":     "12 MG Road",
		"city":        "Bengaluru",
		"postal_code": "560001",
	}

	t.Run("empty cart -> 400", func(t *testing.T) {
		r := testEngine(t, fetcher)
		w := doJSON(t, r, http.MethodPost, "/checkout", validDelivery)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for empty cart, got %d", w.Code)
		}
	})

	t.Run("missing delivery fields -> 400", func(t *testing.T) {
		r := testEngine(t, fetcher)
		doJSON(t, r, http.MethodPost, "/add-item", gin.H{"product_id": "p1", "quantity": 1})
		w := doJSON(t, r, http.MethodPost, "/checkout", gin.H{"name": "Asha Rao"})
		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for incomplete delivery details, got %d", w.Code)
		}
	})

	t.Run("cart untouched after failed checkout", func(t *testing.T) {
		r := testEngine(t, fetcher)
		doJSON(t, r, http.MethodPost, "/add-item", gin.H{"product_id": "p1", "quantity": 2})
		// No consul client wired, so the handoff itself fails.
		w := doJSON(t, r, http.MethodPost, "/checkout", validDelivery)
		if w.Code != http.StatusBadGateway {
			t.Fatalf("expected 502 when order service is unreachable, got %d", w.Code)
		}
		w = doJSON(t, r, http.MethodGet, "/items", nil)
		resp := decodeCart(t, w)
		if resp.TotalItems != 2 {
			t.Fatalf("cart changed by failed checkout: %+v", resp)
		}
	})
}
