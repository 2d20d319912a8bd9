package handlers

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"cart-service/internal/auth"
	"cart-service/internal/cart"
	"cart-service/internal/products"
	"cart-service/internal/stores/kafka"
	"cart-service/middleware"
	"cart-service/pkg/ctxmanage"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	consulapi "github.com/hashicorp/consul/api"
)

// Snapshots is the optional persistence shim. Writes are best effort; the
// in-memory cart is always the source of truth.
type Snapshots interface {
	SaveSnapshot(ctx context.Context, sessionID string, payload []byte) error
	DeleteSnapshot(ctx context.Context, sessionID string) error
}

type Handler struct {
	cConf    *cart.Conf
	client   *consulapi.Client
	fetcher  products.Fetcher
	k        *kafka.Conf
	snap     Snapshots
	validate *validator.Validate
}

func NewHandler(cConf *cart.Conf, client *consulapi.Client, fetcher products.Fetcher, k *kafka.Conf, snap Snapshots) *Handler {
	return &Handler{
		cConf:    cConf,
		client:   client,
		fetcher:  fetcher,
		k:        k,
		snap:     snap,
		validate: validator.New(),
	}
}

func API(endpointPrefix string, a *auth.Keys, client *consulapi.Client, cConf *cart.Conf,
	fetcher products.Fetcher, kafkaConf *kafka.Conf, snap Snapshots) *gin.Engine {

	r := gin.New()
	mode := os.Getenv("GIN_MODE")
	if mode == gin.ReleaseMode {
		gin.SetMode(mode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	m, err := middleware.NewMid(a)
	if err != nil {
		panic(err)
	}
	h := NewHandler(cConf, client, fetcher, kafkaConf, snap)

	//apply middleware to all the endpoints using r.Use
	r.Use(middleware.Logger(), gin.Recovery())
	r.GET("/ping", healthCheck)

	v1 := r.Group(endpointPrefix)
	{
		v1.Use(m.Authentication())
		v1.POST("/add-item", m.Authorize(h.AddToCart, auth.RoleUser))
		v1.GET("/items", m.Authorize(h.GetCartItems, auth.RoleUser))
		v1.PATCH("/items/:productID", m.Authorize(h.UpdateItemQuantity, auth.RoleUser))
		v1.DELETE("/items/:productID", m.Authorize(h.RemoveCartItem, auth.RoleUser))
		v1.DELETE("/items", m.Authorize(h.ClearCart, auth.RoleUser))
		v1.POST("/checkout", m.Authorize(h.Checkout, auth.RoleUser))
	}

	return r
}

func healthCheck(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)

	fmt.Println("healthCheck handler ", traceId)
	//JSON serializes the given struct as JSON into the response body. It also sets the Content-Type as "application/json".
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
