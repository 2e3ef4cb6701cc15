package controllers

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/lumiere-bistro/tableside-api/config"
	"github.com/lumiere-bistro/tableside-api/models"
	"github.com/lumiere-bistro/tableside-api/services"
)

func setupMenuTest(t *testing.T) (*gin.Engine, *services.MockImageService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	if err := db.AutoMigrate(&models.Category{}, &models.MenuItem{}, &models.Order{}, &models.OrderItem{}); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	config.SetDB(db)

	mock := services.NewMockImageService()
	services.SetImageService(mock)
	t.Cleanup(func() { services.SetImageService(nil) })

	router := gin.New()
	v1 := router.Group("/api/v1")
	{
		v1.GET("/menu", GetMenu)
		v1.GET("/menu/:id", GetMenuItem)
		v1.POST("/menu/:id/image", UploadMenuItemImage)
		v1.GET("/categories", GetCategories)
	}
	return router, mock
}

func seedCategory(t *testing.T, name string, orderIndex int) models.Category {
	t.Helper()
	category := models.Category{Name: name, OrderIndex: orderIndex}
	require.NoError(t, config.GetDB().Create(&category).Error)
	return category
}

func seedMenuItemInCategory(t *testing.T, name, price, categoryID string) models.MenuItem {
	t.Helper()
	item := models.MenuItem{
		Name:       name,
		Price:      decimal.RequireFromString(price),
		CategoryID: categoryID,
	}
	require.NoError(t, config.GetDB().Create(&item).Error)
	return item
}

func performUpload(t *testing.T, router *gin.Engine, path, filename string, content []byte) *httptest.ResponseRecorder {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("image", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req, err := http.NewRequest("POST", path, &body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestGetMenuEndpoint(t *testing.T) {
	router, _ := setupMenuTest(t)

	mains := seedCategory(t, "Plats", 1)
	desserts := seedCategory(t, "Desserts", 2)
	seedMenuItemInCategory(t, "Boeuf bourguignon", "24.50", mains.ID)
	seedMenuItemInCategory(t, "Ratatouille", "18", mains.ID)
	seedMenuItemInCategory(t, "Crème brûlée", "9", desserts.ID)

	w := performJSON(t, router, "GET", "/api/v1/menu", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	response := decodeResponse(t, w)
	assert.True(t, response["success"].(bool))
	assert.Len(t, response["data"].([]interface{}), 3)

	w = performJSON(t, router, "GET", "/api/v1/menu?category="+mains.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	items := decodeResponse(t, w)["data"].([]interface{})
	assert.Len(t, items, 2)
	// Alphabetical within the filter
	first := items[0].(map[string]interface{})
	assert.Equal(t, "Boeuf bourguignon", first["name"])
}

func TestGetMenuItemEndpoint(t *testing.T) {
	router, _ := setupMenuTest(t)
	mains := seedCategory(t, "Plats", 1)
	item := seedMenuItemInCategory(t, "Ratatouille", "18", mains.ID)

	w := performJSON(t, router, "GET", "/api/v1/menu/"+item.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeResponse(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "Ratatouille", data["name"])
	assert.Equal(t, "18", data["price"])

	w = performJSON(t, router, "GET", "/api/v1/menu/no-such-item", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "MENU_ITEM_NOT_FOUND", errorCode(decodeResponse(t, w)))
}

func TestGetCategoriesEndpoint(t *testing.T) {
	router, _ := setupMenuTest(t)

	// Seeded out of display order
	seedCategory(t, "Desserts", 3)
	seedCategory(t, "Entrées", 1)
	seedCategory(t, "Plats", 2)

	w := performJSON(t, router, "GET", "/api/v1/categories", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	categories := decodeResponse(t, w)["data"].([]interface{})
	require.Len(t, categories, 3)
	assert.Equal(t, "Entrées", categories[0].(map[string]interface{})["name"])
	assert.Equal(t, "Plats", categories[1].(map[string]interface{})["name"])
	assert.Equal(t, "Desserts", categories[2].(map[string]interface{})["name"])
}

func TestUploadMenuItemImageEndpoint(t *testing.T) {
	router, mock := setupMenuTest(t)
	mains := seedCategory(t, "Plats", 1)
	item := seedMenuItemInCategory(t, "Ratatouille", "18", mains.ID)

	w := performUpload(t, router, "/api/v1/menu/"+item.ID+"/image", "photo.png", []byte("png bytes"))
	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeResponse(t, w)["data"].(map[string]interface{})
	firstKey := data["image_s3_key"].(string)
	assert.True(t, mock.Stored(firstKey))
	assert.Contains(t, data["image_url"], "https://mock-storage.local/")

	// A second upload replaces the photo and drops the old object
	w = performUpload(t, router, "/api/v1/menu/"+item.ID+"/image", "retake.png", []byte("new png bytes"))
	assert.Equal(t, http.StatusOK, w.Code)
	data = decodeResponse(t, w)["data"].(map[string]interface{})
	secondKey := data["image_s3_key"].(string)
	assert.NotEqual(t, firstKey, secondKey)
	assert.True(t, mock.Stored(secondKey))
	assert.False(t, mock.Stored(firstKey))
}

func TestUploadMenuItemImageErrors(t *testing.T) {
	router, _ := setupMenuTest(t)
	mains := seedCategory(t, "Plats", 1)
	item := seedMenuItemInCategory(t, "Ratatouille", "18", mains.ID)

	// Wrong format
	w := performUpload(t, router, "/api/v1/menu/"+item.ID+"/image", "photo.gif", []byte("gif bytes"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_FILE_FORMAT", errorCode(decodeResponse(t, w)))

	// Unknown item
	w = performUpload(t, router, "/api/v1/menu/no-such-item/image", "photo.png", []byte("png bytes"))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "MENU_ITEM_NOT_FOUND", errorCode(decodeResponse(t, w)))

	// No configured storage
	services.SetImageService(nil)
	w = performUpload(t, router, "/api/v1/menu/"+item.ID+"/image", "photo.png", []byte("png bytes"))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "IMAGE_STORAGE_UNAVAILABLE", errorCode(decodeResponse(t, w)))
}
