// Package backend is a thin client for the commerce backend REST API.
// The backend owns all product data; the bot never caches catalog state
// between commands.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"shopbot/internal/models"
)

// Client talks to the backend API using Bearer token authentication.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *zap.Logger
}

// CreateProductRequest is the payload for creating a product.
type CreateProductRequest struct {
	Name          string  `json:"name"`
	Price         float64 `json:"price"`
	Currency      string  `json:"currency"`
	ShopID        int64   `json:"shopId"`
	StockQuantity int     `json:"stockQuantity"`
}

// ProductUpdate carries the fields to change on a product. Nil fields are
// left untouched by the backend.
type ProductUpdate struct {
	Name          *string  `json:"name,omitempty"`
	Price         *float64 `json:"price,omitempty"`
	StockQuantity *int     `json:"stockQuantity,omitempty"`
}

// apiResponse is the backend's envelope: payloads are wrapped in "data".
type apiResponse struct {
	Data json.RawMessage `json:"data"`
}

type bulkDeleteResponse struct {
	DeletedCount int `json:"deletedCount"`
}

// NewClient creates a backend API client
func NewClient(baseURL, token string, logger *zap.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     logger,
	}
}

// ListProducts returns all products of a shop
func (c *Client) ListProducts(ctx context.Context, shopID int64) ([]models.Product, error) {
	query := url.Values{"shopId": []string{fmt.Sprintf("%d", shopID)}}

	var products []models.Product
	if err := c.do(ctx, http.MethodGet, "/products?"+query.Encode(), nil, &products); err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

// CreateProduct creates a new product
func (c *Client) CreateProduct(ctx context.Context, req CreateProductRequest) (*models.Product, error) {
	var product models.Product
	if err := c.do(ctx, http.MethodPost, "/products", req, &product); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	return &product, nil
}

// UpdateProduct applies a partial update to a product
func (c *Client) UpdateProduct(ctx context.Context, productID int64, update ProductUpdate) (*models.Product, error) {
	var product models.Product
	path := fmt.Sprintf("/products/%d", productID)
	if err := c.do(ctx, http.MethodPut, path, update, &product); err != nil {
		return nil, fmt.Errorf("failed to update product %d: %w", productID, err)
	}
	return &product, nil
}

// DeleteProduct removes a single product
func (c *Client) DeleteProduct(ctx context.Context, productID int64) error {
	path := fmt.Sprintf("/products/%d", productID)
	if err := c.do(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return fmt.Errorf("failed to delete product %d: %w", productID, err)
	}
	return nil
}

// BulkDeleteAll removes every product of a shop and returns how many were
// deleted
func (c *Client) BulkDeleteAll(ctx context.Context, shopID int64) (int, error) {
	query := url.Values{"shopId": []string{fmt.Sprintf("%d", shopID)}}

	var resp bulkDeleteResponse
	if err := c.do(ctx, http.MethodDelete, "/products?"+query.Encode(), nil, &resp); err != nil {
		return 0, fmt.Errorf("failed to bulk delete products: %w", err)
	}
	return resp.DeletedCount, nil
}

// BulkDeleteByIDs removes the given products and returns how many were
// deleted
func (c *Client) BulkDeleteByIDs(ctx context.Context, shopID int64, productIDs []int64) (int, error) {
	payload := struct {
		ShopID     int64   `json:"shopId"`
		ProductIDs []int64 `json:"productIds"`
	}{ShopID: shopID, ProductIDs: productIDs}

	var resp bulkDeleteResponse
	if err := c.do(ctx, http.MethodPost, "/products/bulk-delete", payload, &resp); err != nil {
		return 0, fmt.Errorf("failed to bulk delete products: %w", err)
	}
	return resp.DeletedCount, nil
}

// do performs an authenticated JSON request and decodes the enveloped
// response body into out (when out is non-nil).
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+"/api"+path, reqBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("Backend API error",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
		)
		return fmt.Errorf("backend returned status %d", resp.StatusCode)
	}

	if out == nil || len(raw) == 0 {
		return nil
	}

	// Unwrap the {"data": ...} envelope; fall back to the raw body for
	// endpoints that return the payload directly.
	var envelope apiResponse
	if err := json.Unmarshal(raw, &envelope); err == nil && len(envelope.Data) > 0 {
		raw = envelope.Data
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
