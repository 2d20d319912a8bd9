// Package products is the read-only client for the external product catalog.
// The cart snapshots whatever this client returns at add-time; catalog
// changes after that never reach lines already in a cart.
package products

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"cart-service/internal/cart"
	"cart-service/internal/consul"

	consulapi "github.com/hashicorp/consul/api"
)

// ErrNotFound indicates the catalog has no product with the given id.
var ErrNotFound = errors.New("product not found")

// Fetcher is what the handlers depend on, so tests can swap in a fake.
type Fetcher interface {
	ProductDetails(ctx context.Context, productID string) (cart.Product, error)
}

// Conf fetches product records from the product service, discovered
// through Consul on every call so instance churn is handled for free.
type Conf struct {
	client     *consulapi.Client
	httpClient *http.Client
}

func NewConf(client *consulapi.Client) (*Conf, error) {
	if client == nil {
		return nil, fmt.Errorf("consul client is nil")
	}
	return &Conf{
		client:     client,
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}, nil
}

type productResponse struct {
	ProductID   string `json:"product_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       int64  `json:"price"`
	Stock       int    `json:"stock"`
	ImageRef    string `json:"image_ref"`
}

// ProductDetails fetches the current catalog record for a product.
func (c *Conf) ProductDetails(ctx context.Context, productID string) (cart.Product, error) {
	address, port, err := consul.GetServiceAddress(c.client, "products")
	if err != nil {
		return cart.Product{}, fmt.Errorf("discovering product service: %w", err)
	}

	url := fmt.Sprintf("http://%s:%d/products/stock/%s", address, port, productID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return cart.Product{}, fmt.Errorf("building product request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return cart.Product{}, fmt.Errorf("fetching product %s: %w", productID, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return cart.Product{}, ErrNotFound
	default:
		return cart.Product{}, fmt.Errorf("product service returned status %d for %s", resp.StatusCode, productID)
	}

	var pr productResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return cart.Product{}, fmt.Errorf("decoding product response: %w", err)
	}

	return cart.Product{
		ID:          pr.ProductID,
		Name:        pr.Name,
		Description: pr.Description,
		Price:       pr.Price,
		Stock:       pr.Stock,
		ImageRef:    pr.ImageRef,
	}, nil
}
