package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	orderapp "github.com/storefront/backend/internal/application/order"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/interfaces/http/dto"
)

func newCartEngine(customerID uuid.UUID, cartRepo order.CartRepository, productRepo catalog.ProductRepository) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewCartHandler(orderapp.NewCartService(cartRepo, productRepo))

	r := gin.New()
	r.Use(authAs(customerID, "customer"))
	r.GET("/cart", h.Get)
	r.POST("/cart/items", h.AddItem)
	r.PUT("/cart/items/:product_id", h.UpdateItem)
	r.DELETE("/cart/items/:product_id", h.RemoveItem)
	r.DELETE("/cart", h.Clear)
	return r
}

func TestCartHandler_Get(t *testing.T) {
	customerID := uuid.New()
	product := mustProduct(t, "MUG-1", "Coffee Mug", "450.00", 20)
	item := mustCartItem(t, customerID, product.ID, 2)

	cartRepo := new(MockCartRepository)
	productRepo := new(MockProductRepository)
	cartRepo.On("FindByCustomer", mock.Anything, customerID).Return([]order.CartItem{*item}, nil)
	productRepo.On("FindByIDs", mock.Anything, []uuid.UUID{product.ID}).Return([]catalog.Product{*product}, nil)

	r := newCartEngine(customerID, cartRepo, productRepo)
	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w.Body.Bytes())
	require.True(t, resp.Success)

	data, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	var cart orderapp.CartResponse
	require.NoError(t, json.Unmarshal(data, &cart))
	require.Len(t, cart.Items, 1)
	assert.Equal(t, "Coffee Mug", cart.Items[0].ProductName)
	assert.Equal(t, 2, cart.ItemCount)
	assert.Equal(t, "900", cart.Total.String())
}

func TestCartHandler_AddItem(t *testing.T) {
	customerID := uuid.New()

	t.Run("adds a new line", func(t *testing.T) {
		product := mustProduct(t, "MUG-1", "Coffee Mug", "450.00", 20)

		cartRepo := new(MockCartRepository)
		productRepo := new(MockProductRepository)
		productRepo.On("FindByID", mock.Anything, product.ID).Return(product, nil)
		cartRepo.On("FindItem", mock.Anything, customerID, product.ID).Return(nil, shared.ErrNotFound)
		cartRepo.On("Save", mock.Anything, mock.AnythingOfType("*order.CartItem")).Return(nil)
		cartRepo.On("FindByCustomer", mock.Anything, customerID).Return([]order.CartItem{}, nil)

		body, _ := json.Marshal(orderapp.AddCartItemRequest{ProductID: product.ID, Quantity: 2})
		r := newCartEngine(customerID, cartRepo, productRepo)
		req := httptest.NewRequest(http.MethodPost, "/cart/items", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		cartRepo.AssertCalled(t, "Save", mock.Anything, mock.AnythingOfType("*order.CartItem"))
	})

	t.Run("inactive product is unprocessable", func(t *testing.T) {
		product := mustProduct(t, "MUG-2", "Old Mug", "450.00", 20)
		require.NoError(t, product.Deactivate())
		product.ClearDomainEvents()

		cartRepo := new(MockCartRepository)
		productRepo := new(MockProductRepository)
		productRepo.On("FindByID", mock.Anything, product.ID).Return(product, nil)

		body, _ := json.Marshal(orderapp.AddCartItemRequest{ProductID: product.ID, Quantity: 1})
		r := newCartEngine(customerID, cartRepo, productRepo)
		req := httptest.NewRequest(http.MethodPost, "/cart/items", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		require.Equal(t, http.StatusUnprocessableEntity, w.Code)
		resp := decodeResponse(t, w.Body.Bytes())
		require.NotNil(t, resp.Error)
		assert.Equal(t, dto.ErrCodeProductUnavailable, resp.Error.Code)
	})

	t.Run("zero quantity fails validation", func(t *testing.T) {
		cartRepo := new(MockCartRepository)
		productRepo := new(MockProductRepository)

		body, _ := json.Marshal(orderapp.AddCartItemRequest{ProductID: uuid.New(), Quantity: 0})
		r := newCartEngine(customerID, cartRepo, productRepo)
		req := httptest.NewRequest(http.MethodPost, "/cart/items", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		productRepo.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
	})

	t.Run("unauthenticated request is rejected", func(t *testing.T) {
		gin.SetMode(gin.TestMode)
		h := NewCartHandler(orderapp.NewCartService(new(MockCartRepository), new(MockProductRepository)))
		r := gin.New()
		r.GET("/cart", h.Get)

		req := httptest.NewRequest(http.MethodGet, "/cart", nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestCartHandler_UpdateItem(t *testing.T) {
	customerID := uuid.New()
	product := mustProduct(t, "MUG-1", "Coffee Mug", "450.00", 20)
	item := mustCartItem(t, customerID, product.ID, 2)

	t.Run("sets quantity", func(t *testing.T) {
		cartRepo := new(MockCartRepository)
		productRepo := new(MockProductRepository)
		cartRepo.On("FindItem", mock.Anything, customerID, product.ID).Return(item, nil)
		productRepo.On("FindByID", mock.Anything, product.ID).Return(product, nil)
		cartRepo.On("Save", mock.Anything, mock.AnythingOfType("*order.CartItem")).Return(nil)
		cartRepo.On("FindByCustomer", mock.Anything, customerID).Return([]order.CartItem{}, nil)

		body, _ := json.Marshal(orderapp.UpdateCartItemRequest{Quantity: 5})
		r := newCartEngine(customerID, cartRepo, productRepo)
		req := httptest.NewRequest(http.MethodPut, "/cart/items/"+product.ID.String(), bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("invalid product id is a bad request", func(t *testing.T) {
		r := newCartEngine(customerID, new(MockCartRepository), new(MockProductRepository))
		body, _ := json.Marshal(orderapp.UpdateCartItemRequest{Quantity: 5})
		req := httptest.NewRequest(http.MethodPut, "/cart/items/not-a-uuid", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestCartHandler_Clear(t *testing.T) {
	customerID := uuid.New()
	cartRepo := new(MockCartRepository)
	cartRepo.On("DeleteByCustomer", mock.Anything, customerID).Return(nil)

	r := newCartEngine(customerID, cartRepo, new(MockProductRepository))
	req := httptest.NewRequest(http.MethodDelete, "/cart", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	cartRepo.AssertExpectations(t)
}
