package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/spraylab/streetshop/internal/models"
	"github.com/spraylab/streetshop/internal/mykafka"
)

func newProductHandler(db *gorm.DB) *ProductHandler {
	return &ProductHandler{DB: db, Producer: &mykafka.Producer{}, Index: "product"}
}

func TestCreateAndGetProduct(t *testing.T) {
	db := webhookTestDB(t)
	h := newProductHandler(db)

	payload := map[string]any{
		"name":         "spray can",
		"description":  "400ml high pressure",
		"price":        30000,
		"variant_type": "Color",
		"variants": []map[string]any{
			{"name": "Silver", "stock": 10},
			{"name": "Black", "stock": 5},
		},
	}
	rec, c := authedJSON(t, http.MethodPost, "/api/v1/admin/products", payload, 1, "admin")
	require.NoError(t, h.CreateProduct(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var created models.Product
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.Len(t, created.Variants, 2)

	rec, c = authedJSON(t, http.MethodGet, "/api/v1/products/"+strconv.Itoa(int(created.ID)), nil, 0, "")
	c.SetParamNames("id")
	c.SetParamValues(strconv.Itoa(int(created.ID)))
	require.NoError(t, h.GetProduct(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var got models.Product
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, "spray can", got.Name)
	require.Len(t, got.Variants, 2)
}

func TestCreateProductRejectsBadPayload(t *testing.T) {
	db := webhookTestDB(t)
	h := newProductHandler(db)

	_, c := authedJSON(t, http.MethodPost, "/api/v1/admin/products", map[string]any{"name": "", "price": 1}, 1, "admin")
	err := h.CreateProduct(c)
	httpErr, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	require.Equal(t, http.StatusBadRequest, httpErr.Code)

	_, c = authedJSON(t, http.MethodPost, "/api/v1/admin/products",
		map[string]any{"name": "x", "price": 1, "variants": []map[string]any{{"name": "A", "stock": -1}}}, 1, "admin")
	err = h.CreateProduct(c)
	httpErr, ok = err.(*echo.HTTPError)
	require.True(t, ok)
	require.Equal(t, http.StatusBadRequest, httpErr.Code)
}

func TestGetProductsPaginationAndCategory(t *testing.T) {
	db := webhookTestDB(t)
	h := newProductHandler(db)

	cat := models.Category{Name: "markers"}
	require.NoError(t, db.Create(&cat).Error)
	for i := 0; i < 12; i++ {
		p := models.Product{Name: "marker " + strconv.Itoa(i), Description: "m", Price: 2, Stock: 1, CategoryID: cat.ID}
		require.NoError(t, db.Create(&p).Error)
	}
	require.NoError(t, db.Create(&models.Product{Name: "can", Description: "c", Price: 6, Stock: 1}).Error)

	rec, c := authedJSON(t, http.MethodGet, "/api/v1/products?page=2&size=10&category=markers", nil, 0, "")
	require.NoError(t, h.GetProducts(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data []models.Product `json:"data"`
		Meta struct {
			Page       int   `json:"page"`
			Total      int64 `json:"total"`
			TotalPages int64 `json:"total_pages"`
			HasPrev    bool  `json:"has_prev"`
			HasNext    bool  `json:"has_next"`
		} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 2)
	require.EqualValues(t, 12, resp.Meta.Total)
	require.EqualValues(t, 2, resp.Meta.TotalPages)
	require.True(t, resp.Meta.HasPrev)
	require.False(t, resp.Meta.HasNext)
}

func TestPatchProductReplacesVariants(t *testing.T) {
	db := webhookTestDB(t)
	h := newProductHandler(db)

	p := models.Product{
		Name: "spray can", Description: "c", Price: 6, VariantType: "Color",
		Variants: []models.Variant{{Name: "Silver", Stock: 4}},
	}
	require.NoError(t, db.Create(&p).Error)

	payload := map[string]any{
		"name":         "spray can pro",
		"description":  "c",
		"price":        7,
		"variant_type": "Color",
		"variants": []map[string]any{
			{"name": "Gold", "stock": 3},
			{"name": "Chrome", "stock": 8},
		},
	}
	rec, c := authedJSON(t, http.MethodPatch, "/api/v1/admin/products/"+strconv.Itoa(int(p.ID)), payload, 1, "admin")
	c.SetParamNames("id")
	c.SetParamValues(strconv.Itoa(int(p.ID)))
	require.NoError(t, h.PatchProduct(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var variants []models.Variant
	require.NoError(t, db.Where("product_id = ?", p.ID).Find(&variants).Error)
	require.Len(t, variants, 2)
	names := []string{variants[0].Name, variants[1].Name}
	require.ElementsMatch(t, []string{"Gold", "Chrome"}, names)
}

func TestDeleteProduct(t *testing.T) {
	db := webhookTestDB(t)
	h := newProductHandler(db)

	p := models.Product{Name: "can", Description: "c", Price: 6, Variants: []models.Variant{{Name: "A", Stock: 1}}}
	require.NoError(t, db.Create(&p).Error)

	rec, c := authedJSON(t, http.MethodDelete, "/api/v1/admin/products/"+strconv.Itoa(int(p.ID)), nil, 1, "admin")
	c.SetParamNames("id")
	c.SetParamValues(strconv.Itoa(int(p.ID)))
	require.NoError(t, h.DeleteProduct(c))
	require.Equal(t, http.StatusNoContent, rec.Code)

	var count int64
	require.NoError(t, db.Model(&models.Product{}).Count(&count).Error)
	require.EqualValues(t, 0, count)
	require.NoError(t, db.Model(&models.Variant{}).Count(&count).Error)
	require.EqualValues(t, 0, count)
}

func TestCategories(t *testing.T) {
	db := webhookTestDB(t)
	h := newProductHandler(db)

	rec, c := authedJSON(t, http.MethodPost, "/api/v1/admin/categories", map[string]string{"name": "caps"}, 1, "admin")
	require.NoError(t, h.CreateCategory(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, c = authedJSON(t, http.MethodGet, "/api/v1/categories", nil, 0, "")
	require.NoError(t, h.GetCategories(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var cats []models.Category
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cats))
	require.Len(t, cats, 1)
	require.Equal(t, "caps", cats[0].Name)
}
