package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"shopbot/internal/models"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(server.URL, "secret-token", zap.NewNop())
}

func TestClient_ListProducts(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/products", r.URL.Path)
		assert.Equal(t, "42", r.URL.Query().Get("shopId"))
		assert.Equal(t, "Bearer secret-token", r.Header.Get("Authorization"))

		json.NewEncoder(w).Encode(map[string]any{"data": []models.Product{
			{ID: 1, ShopID: 42, Name: "iPhone 15", Price: 999, StockQuantity: 5},
		}})
	})

	products, err := client.ListProducts(context.Background(), 42)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "iPhone 15", products[0].Name)
	assert.Equal(t, 999.0, products[0].Price)
}

func TestClient_ListProducts_UnwrappedBody(t *testing.T) {
	// Some endpoints return the payload without the data envelope
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]models.Product{{ID: 1, Name: "Mug", Price: 10}})
	})

	products, err := client.ListProducts(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "Mug", products[0].Name)
}

func TestClient_CreateProduct(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/products", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req CreateProductRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "iPhone 15", req.Name)
		assert.Equal(t, "USD", req.Currency)

		json.NewEncoder(w).Encode(map[string]any{"data": models.Product{
			ID: 7, ShopID: req.ShopID, Name: req.Name, Price: req.Price, StockQuantity: req.StockQuantity,
		}})
	})

	product, err := client.CreateProduct(context.Background(), CreateProductRequest{
		Name: "iPhone 15", Price: 999, Currency: "USD", ShopID: 1, StockQuantity: 5,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(7), product.ID)
}

func TestClient_UpdateProduct(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/products/7", r.URL.Path)

		var raw map[string]json.RawMessage
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		// Nil fields are omitted from the payload
		assert.Contains(t, raw, "price")
		assert.NotContains(t, raw, "name")
		assert.NotContains(t, raw, "stockQuantity")

		json.NewEncoder(w).Encode(map[string]any{"data": models.Product{ID: 7, Name: "Mug", Price: 12}})
	})

	price := 12.0
	product, err := client.UpdateProduct(context.Background(), 7, ProductUpdate{Price: &price})
	require.NoError(t, err)
	assert.Equal(t, 12.0, product.Price)
}

func TestClient_DeleteProduct(t *testing.T) {
	called := false
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/api/products/7", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, client.DeleteProduct(context.Background(), 7))
	assert.True(t, called)
}

func TestClient_BulkDeleteAll(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/api/products", r.URL.Path)
		assert.Equal(t, "1", r.URL.Query().Get("shopId"))

		json.NewEncoder(w).Encode(map[string]any{"data": map[string]int{"deletedCount": 12}})
	})

	deleted, err := client.BulkDeleteAll(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 12, deleted)
}

func TestClient_BulkDeleteByIDs(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/products/bulk-delete", r.URL.Path)

		var payload struct {
			ShopID     int64   `json:"shopId"`
			ProductIDs []int64 `json:"productIds"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, []int64{1, 2, 3}, payload.ProductIDs)

		json.NewEncoder(w).Encode(map[string]any{"data": map[string]int{"deletedCount": 3}})
	})

	deleted, err := client.BulkDeleteByIDs(context.Background(), 1, []int64{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, 3, deleted)
}

func TestClient_ErrorStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := client.ListProducts(context.Background(), 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}
