package cart

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/spraylab/streetshop/internal/config"
	"github.com/spraylab/streetshop/internal/models"
	"github.com/spraylab/streetshop/internal/mykafka"
)

func newTestHandler(t *testing.T) (*CartHandler, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, config.Migrate(db))
	return &CartHandler{DB: db, Producer: &mykafka.Producer{}}, db
}

func doJSON(t *testing.T, method, target string, payload any, userID uint) (*httptest.ResponseRecorder, echo.Context) {
	t.Helper()
	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		require.NoError(t, err)
	}
	e := echo.New()
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("userID", userID)
	return rec, c
}

func TestGetCart(t *testing.T) {
	h, db := newTestHandler(t)
	require.NoError(t, db.Create(&models.CartItem{UserID: 1, ProductID: 2, Quantity: 3}).Error)
	require.NoError(t, db.Create(&models.CartItem{UserID: 9, ProductID: 2, Quantity: 1}).Error)

	rec, c := doJSON(t, http.MethodGet, "/api/v1/cart", nil, 1)
	require.NoError(t, h.GetCart(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var items []models.CartItem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
	require.Len(t, items, 1)
	require.Equal(t, uint(2), items[0].ProductID)
	require.Equal(t, 3, items[0].Quantity)
}

func TestAddToCartUpserts(t *testing.T) {
	h, db := newTestHandler(t)
	p := models.Product{Name: "marker", Description: "marker", Price: 2, Stock: 10}
	require.NoError(t, db.Create(&p).Error)

	load := map[string]any{"product_id": p.ID, "quantity": 2}
	rec, c := doJSON(t, http.MethodPost, "/api/v1/cart", load, 1)
	require.NoError(t, h.AddToCart(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var item models.CartItem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &item))
	require.Equal(t, 2, item.Quantity)

	// Same product again merges into the existing row.
	rec, c = doJSON(t, http.MethodPost, "/api/v1/cart", load, 1)
	require.NoError(t, h.AddToCart(c))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &item))
	require.Equal(t, 4, item.Quantity)

	var count int64
	require.NoError(t, db.Model(&models.CartItem{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestAddToCartVariantRules(t *testing.T) {
	h, db := newTestHandler(t)
	p := models.Product{
		Name: "spray can", Description: "spray can", Price: 6, VariantType: "Color",
		Variants: []models.Variant{{Name: "Silver", Stock: 4}, {Name: "Black", Stock: 2}},
	}
	require.NoError(t, db.Create(&p).Error)

	_, c := doJSON(t, http.MethodPost, "/api/v1/cart", map[string]any{"product_id": p.ID, "quantity": 1}, 1)
	err := h.AddToCart(c)
	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	require.Equal(t, http.StatusBadRequest, httpErr.Code)

	_, c = doJSON(t, http.MethodPost, "/api/v1/cart", map[string]any{"product_id": p.ID, "variant_id": 999, "quantity": 1}, 1)
	err = h.AddToCart(c)
	require.ErrorAs(t, err, &httpErr)
	require.Equal(t, http.StatusBadRequest, httpErr.Code)

	rec, c := doJSON(t, http.MethodPost, "/api/v1/cart", map[string]any{"product_id": p.ID, "variant_id": p.Variants[0].ID, "quantity": 1}, 1)
	require.NoError(t, h.AddToCart(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var item models.CartItem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &item))
	require.NotNil(t, item.VariantID)
	require.Equal(t, p.Variants[0].ID, *item.VariantID)

	// A different variant of the same product is its own cart row.
	rec, c = doJSON(t, http.MethodPost, "/api/v1/cart", map[string]any{"product_id": p.ID, "variant_id": p.Variants[1].ID, "quantity": 1}, 1)
	require.NoError(t, h.AddToCart(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var count int64
	require.NoError(t, db.Model(&models.CartItem{}).Count(&count).Error)
	require.EqualValues(t, 2, count)
}

func TestAddToCartUnknownProduct(t *testing.T) {
	h, _ := newTestHandler(t)

	_, c := doJSON(t, http.MethodPost, "/api/v1/cart", map[string]any{"product_id": 404, "quantity": 1}, 1)
	err := h.AddToCart(c)
	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	require.Equal(t, http.StatusNotFound, httpErr.Code)
}

func TestDeleteOneFromCart(t *testing.T) {
	h, db := newTestHandler(t)
	item := models.CartItem{UserID: 1, ProductID: 1, Quantity: 2}
	require.NoError(t, db.Create(&item).Error)
	target := "/api/v1/cart/" + strconv.Itoa(int(item.ID))

	rec, c := doJSON(t, http.MethodDelete, target, nil, 1)
	c.SetParamNames("id")
	c.SetParamValues(strconv.Itoa(int(item.ID)))
	require.NoError(t, h.DeleteOneFromCart(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var got models.CartItem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, 1, got.Quantity)

	// Second decrement removes the row.
	_, c = doJSON(t, http.MethodDelete, target, nil, 1)
	c.SetParamNames("id")
	c.SetParamValues(strconv.Itoa(int(item.ID)))
	require.NoError(t, h.DeleteOneFromCart(c))

	var count int64
	require.NoError(t, db.Model(&models.CartItem{}).Count(&count).Error)
	require.EqualValues(t, 0, count)
}

func TestDeleteFromCartIsScopedToOwner(t *testing.T) {
	h, db := newTestHandler(t)
	item := models.CartItem{UserID: 1, ProductID: 1, Quantity: 2}
	require.NoError(t, db.Create(&item).Error)

	_, c := doJSON(t, http.MethodDelete, "/api/v1/cart/1", nil, 2)
	c.SetParamNames("id")
	c.SetParamValues(strconv.Itoa(int(item.ID)))
	err := h.DeleteOneFromCart(c)
	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	require.Equal(t, http.StatusNotFound, httpErr.Code)
}

func TestDeleteAllFromCart(t *testing.T) {
	h, db := newTestHandler(t)
	item := models.CartItem{UserID: 1, ProductID: 1, Quantity: 5}
	require.NoError(t, db.Create(&item).Error)

	rec, c := doJSON(t, http.MethodDelete, "/api/v1/cart/1/all", nil, 1)
	c.SetParamNames("id")
	c.SetParamValues(strconv.Itoa(int(item.ID)))
	require.NoError(t, h.DeleteAllFromCart(c))
	require.Equal(t, http.StatusNoContent, rec.Code)

	var count int64
	require.NoError(t, db.Model(&models.CartItem{}).Count(&count).Error)
	require.EqualValues(t, 0, count)
}
