package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"cart-service/internal/auth"
	"cart-service/internal/consul"
	"cart-service/internal/orders"
	"cart-service/internal/stores/kafka"
	"cart-service/pkg/ctxmanage"
	"cart-service/pkg/logkey"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

func (h *Handler) Checkout(c *gin.Context) {
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

	// Parse the delivery details entered by the shopper
	var delivery orders.DeliveryDetails
	if err := c.ShouldBindJSON(&delivery); err != nil {
		slog.Error("invalid request body", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}

	// Use the validator package to validate the struct
	if err := h.validate.Struct(delivery); err != nil {
		var vErrs validator.ValidationErrors
		if errors.As(err, &vErrs) {
			for _, vErr := range vErrs {
				slog.Error("validation failed", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
				c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": vErr.Field() + " value is invalid"})
				return
			}
		}
		slog.Error("validation failed", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": http.StatusText(http.StatusBadRequest)})
		return
	}

	// Materialize the cart for the handoff
	userCart := h.cConf.GetOrCreate(userId)
	lines, totalPrice := userCart.CheckoutLines()
	if len(lines) == 0 {
		slog.Error("checkout attempted with empty cart", slog.String(logkey.TraceID, traceId), slog.String("UserID", userId))
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "Cart is empty"})
		return
	}

	orderRequest := orders.OrderRequest{
		OrderID:         uuid.NewString(),
		UserID:          userId,
		Items:           lines,
		TotalPrice:      totalPrice,
		DeliveryDetails: delivery,
	}

	// Hand the order off to the order service
	orderResponse, err := h.submitOrder(c.Request.Context(), orderRequest, c.Request.Header.Get("Authorization"))
	if err != nil {
		slog.Error("error submitting order", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.ERROR, err.Error()), slog.String("UserID", userId))
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"message": "Failed to submit order"})
		return
	}

	// Order accepted: empty the cart and drop the session's snapshot.
	// The cart was untouched on any failure above, so checkout is safe to retry.
	userCart.Clear()
	h.cConf.Drop(userId)
	h.deleteSnapshot(userId)

	h.k.PublishCartEvent(c.Request.Context(), kafka.TopicOrderSubmitted, kafka.CartEvent{
		SessionID:  userId,
		OrderID:    orderResponse.OrderID,
		TotalItems: 0,
		TotalPrice: totalPrice,
		OccurredAt: time.Now(),
	})

	// Log success
	slog.Info("order submitted", slog.String(logkey.TraceID, traceId),
		slog.String("OrderID", orderResponse.OrderID), slog.String("UserID", userId), slog.Int64("TotalPrice", totalPrice))

	c.JSON(http.StatusOK, gin.H{
		"message":     "Order submitted successfully",
		"order_id":    orderResponse.OrderID,
		"status":      orderResponse.Status,
		"total_price": totalPrice,
	})
}

// submitOrder posts the materialized cart to the order service, forwarding
// the caller's token so the order service can verify the same identity.
func (h *Handler) submitOrder(ctx context.Context, orderRequest orders.OrderRequest, authHeader string) (orders.OrderResponse, error) {
	if h.client == nil {
		return orders.OrderResponse{}, fmt.Errorf("consul client is not initialized")
	}

	address, port, err := consul.GetServiceAddress(h.client, "orders")
	if err != nil {
		return orders.OrderResponse{}, fmt.Errorf("discovering order service: %w", err)
	}

	body, err := json.Marshal(orderRequest)
	if err != nil {
		return orders.OrderResponse{}, fmt.Errorf("marshaling order request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	url := fmt.Sprintf("http://%s:%d/orders", address, port)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return orders.OrderResponse{}, fmt.Errorf("building order request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", authHeader)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return orders.OrderResponse{}, fmt.Errorf("posting order: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return orders.OrderResponse{}, fmt.Errorf("order service returned status %d", resp.StatusCode)
	}

	var orderResponse orders.OrderResponse
	if err := json.NewDecoder(resp.Body).Decode(&orderResponse); err != nil {
		return orders.OrderResponse{}, fmt.Errorf("decoding order response: %w", err)
	}
	if orderResponse.OrderID == "" {
		orderResponse.OrderID = orderRequest.OrderID
	}
	return orderResponse, nil
}
