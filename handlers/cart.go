package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"cart-service/internal/auth"
	"cart-service/internal/cart"
	"cart-service/internal/products"
	"cart-service/internal/stores/kafka"
	"cart-service/pkg/ctxmanage"
	"cart-service/pkg/logkey"

	"github.com/gin-gonic/gin"
)

func (h *Handler) AddToCart(c *gin.Context) {
	// Get the traceId for logging
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	claims, ok := auth.GetClaims(c.Request.Context())
	if !ok {
		slog.Error("claims not found", slog.String(logkey.TraceID, traceId))
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	userId := claims.Subject

	// Check if the size of the request body exceeds 5 KB
	if c.Request.ContentLength > 5*1024 {
		slog.Error("request body limit breached", slog.String(logkey.TraceID, traceId), slog.Int64("Size Received", c.Request.ContentLength))
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Request body too large."})
		return
	}

	// Parse the request body
	var request struct {
		ProductID string `json:"product_id"`
		Quantity  int    `json:"quantity"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		slog.Error("invalid request body", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}

	// Validate the request data
	if request.ProductID == "" || request.Quantity < 1 {
		slog.Error("invalid product ID or quantity", slog.String(logkey.TraceID, traceId))
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "Product ID and quantity must be valid"})
		return
	}

	// Fetch the product details to snapshot name, price and stock at add-time
	product, err := h.fetcher.ProductDetails(c.Request.Context(), request.ProductID)
	if err != nil {
		if errors.Is(err, products.ErrNotFound) {
			slog.Error("product not found", slog.String(logkey.TraceID, traceId), slog.String("ProductID", request.ProductID))
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"message": "Product not found"})
			return
		}
		slog.Error("error fetching product details", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"message": "Failed to fetch product details"})
		return
	}

	// Out-of-stock products are non-addable; the storefront should not
	// offer them, but a stale page may still try
	if product.Stock < 1 {
		slog.Error("product out of stock", slog.String(logkey.TraceID, traceId), slog.String("ProductID", request.ProductID))
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"message": "Product is out of stock"})
		return
	}

	// Add to the session's cart; repeated adds merge into one line
	userCart := h.cConf.GetOrCreate(userId)
	if err := userCart.AddItem(product, request.Quantity); err != nil {
		slog.Error("error adding product to cart", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.ERROR, err.Error()), slog.String("ProductID", request.ProductID), slog.Int("Quantity", request.Quantity))
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "Invalid quantity"})
		return
	}

	response := userCart.Response()

	h.k.PublishCartEvent(c.Request.Context(), kafka.TopicItemAdded, kafka.CartEvent{
		SessionID:  userId,
		ProductID:  request.ProductID,
		Quantity:   request.Quantity,
		TotalItems: response.TotalItems,
		TotalPrice: response.TotalPrice,
		OccurredAt: time.Now(),
	})
	h.snapshotCart(userId, response)

	// Log success
	slog.Info("product added to cart", slog.String(logkey.TraceID, traceId),
		slog.String("ProductID", request.ProductID), slog.Int("Quantity", request.Quantity), slog.String("UserID", userId))

	// Respond with the updated cart
	c.JSON(http.StatusOK, response)
}

func (h *Handler) GetCartItems(c *gin.Context) {
	// Get the traceId for logging
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	claims, ok := auth.GetClaims(c.Request.Context())
	if !ok {
		slog.Error("claims not found", slog.String(logkey.TraceID, traceId))
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	userId := claims.Subject

	userCart := h.cConf.GetOrCreate(userId)

	// Respond with the cart details; totals are derived fresh on every read
	c.JSON(http.StatusOK, userCart.Response())
}

func (h *Handler) UpdateItemQuantity(c *gin.Context) {
	// Get the traceId for logging
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	claims, ok := auth.GetClaims(c.Request.Context())
	if !ok {
		slog.Error("claims not found", slog.String(logkey.TraceID, traceId))
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	userId := claims.Subject

	productID := c.Param("productID")
	if productID == "" {
		slog.Error("missing product id", slog.String(logkey.TraceID, traceId))
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "Product ID is required"})
		return
	}

	// Quantity is a pointer so a request that omits it entirely is rejected
	// while an explicit zero (meaning remove the line) is accepted
	var request struct {
		Quantity *int `json:"quantity" binding:"required"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		slog.Error("invalid request body", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}

	// Zero or negative collapses to removal; above-stock values are clamped.
	// Updating a product that is not in the cart is a benign no-op.
	userCart := h.cConf.GetOrCreate(userId)
	userCart.UpdateQuantity(productID, *request.Quantity)

	response := userCart.Response()
	h.snapshotCart(userId, response)

	slog.Info("cart item quantity updated", slog.String(logkey.TraceID, traceId),
		slog.String("ProductID", productID), slog.Int("Quantity", *request.Quantity), slog.String("UserID", userId))

	c.JSON(http.StatusOK, response)
}

func (h *Handler) RemoveCartItem(c *gin.Context) {
	// Get the traceId for logging
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	claims, ok := auth.GetClaims(c.Request.Context())
	if !ok {
		slog.Error("claims not found", slog.String(logkey.TraceID, traceId))
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	userId := claims.Subject

	productID := c.Param("productID")
	if productID == "" {
		slog.Error("missing product id", slog.String(logkey.TraceID, traceId))
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "Product ID is required"})
		return
	}

	// Removal is idempotent; removing an absent product is a no-op
	userCart := h.cConf.GetOrCreate(userId)
	userCart.RemoveItem(productID)

	response := userCart.Response()
	h.snapshotCart(userId, response)

	slog.Info("cart item removed", slog.String(logkey.TraceID, traceId),
		slog.String("ProductID", productID), slog.String("UserID", userId))

	c.JSON(http.StatusOK, response)
}

func (h *Handler) ClearCart(c *gin.Context) {
	// Get the traceId for logging
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	claims, ok := auth.GetClaims(c.Request.Context())
	if !ok {
		slog.Error("claims not found", slog.String(logkey.TraceID, traceId))
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	userId := claims.Subject

	userCart := h.cConf.GetOrCreate(userId)
	userCart.Clear()
	h.deleteSnapshot(userId)

	slog.Info("cart cleared", slog.String(logkey.TraceID, traceId), slog.String("UserID", userId))

	c.JSON(http.StatusOK, userCart.Response())
}

// snapshotCart writes the cart state to the snapshot store in the
// background. Loss of a write is acceptable; the in-memory cart is the
// source of truth, so errors are logged and dropped.
func (h *Handler) snapshotCart(sessionID string, response cart.CartResponse) {
	if h.snap == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()

		payload, err := json.Marshal(response)
		if err != nil {
			slog.Warn("marshaling cart snapshot", slog.String(logkey.ERROR, err.Error()), slog.String("SessionID", sessionID))
			return
		}
		if err := h.snap.SaveSnapshot(ctx, sessionID, payload); err != nil {
			slog.Warn("saving cart snapshot", slog.String(logkey.ERROR, err.Error()), slog.String("SessionID", sessionID))
		}
	}()
}

func (h *Handler) deleteSnapshot(sessionID string) {
	if h.snap == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()

		if err := h.snap.DeleteSnapshot(ctx, sessionID); err != nil {
			slog.Warn("deleting cart snapshot", slog.String(logkey.ERROR, err.Error()), slog.String("SessionID", sessionID))
		}
	}()
}
