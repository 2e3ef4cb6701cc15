package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/lumiere-bistro/tableside-api/config"
	"github.com/lumiere-bistro/tableside-api/models"
	"github.com/lumiere-bistro/tableside-api/services"
)

func setupDashboardTest(t *testing.T) *gin.Engine {
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

	feed := services.NewInMemoryChangeFeed()
	services.SetChangeFeed(feed)
	store := services.InitOrderService()
	lifecycle := services.InitLifecycleManager(store)

	toneSource := services.NewBroadcastToneGenerator()
	player := services.NewNotificationPlayer(func() (services.ToneGenerator, error) {
		return toneSource, nil
	})

	session := services.NewDashboardSession(store, lifecycle, feed, player, time.Hour)
	services.SetDashboard(session)
	require.NoError(t, session.Mount(context.Background()))
	t.Cleanup(session.Unmount)

	router := gin.New()
	v1 := router.Group("/api/v1")
	{
		v1.POST("/orders", CreateOrder)
		v1.GET("/dashboard/orders", GetDashboardOrders)
		v1.GET("/dashboard/stats", GetDashboardStats)
		v1.PUT("/dashboard/sound", SetDashboardSound)
		v1.PATCH("/dashboard/orders/:id/status", DashboardUpdateStatus)
		v1.POST("/dashboard/orders/:id/read", DashboardMarkRead)
		v1.DELETE("/dashboard/orders/:id", DashboardDeleteOrder)
	}
	return router
}

func placeOrderViaAPI(t *testing.T, router *gin.Engine, table int, customer string) string {
	t.Helper()
	w := performJSON(t, router, "POST", "/api/v1/orders", map[string]interface{}{
		"table_number":  table,
		"customer_name": customer,
		"items": []map[string]interface{}{
			{"name": "Plat du jour", "price": "15", "quantity": 1},
		},
	})
	require.Equal(t, http.StatusCreated, w.Code)
	data := decodeResponse(t, w)["data"].(map[string]interface{})
	return data["id"].(string)
}

// fetchData decodes the data envelope without failing the test, so it is safe
// inside Eventually conditions
func fetchData(router *gin.Engine, path string) (map[string]interface{}, bool) {
	req, err := http.NewRequest("GET", path, nil)
	if err != nil {
		return nil, false
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		return nil, false
	}
	var response map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		return nil, false
	}
	data, ok := response["data"].(map[string]interface{})
	return data, ok
}

// waitForOrderCount polls the dashboard until the reconciled snapshot catches
// up with the change feed
func waitForOrderCount(t *testing.T, router *gin.Engine, path string, want int) map[string]interface{} {
	t.Helper()
	var data map[string]interface{}
	require.Eventually(t, func() bool {
		d, ok := fetchData(router, path)
		if !ok {
			return false
		}
		data = d
		orders, ok := d["orders"].([]interface{})
		return ok && len(orders) == want
	}, 2*time.Second, 10*time.Millisecond)
	return data
}

func TestGetDashboardOrdersEndpoint(t *testing.T) {
	router := setupDashboardTest(t)

	placeOrderViaAPI(t, router, 12, "Amélie")
	placeOrderViaAPI(t, router, 3, "Bernard")

	data := waitForOrderCount(t, router, "/api/v1/dashboard/orders", 2)
	assert.Equal(t, float64(2), data["unread_count"])
	counts := data["counts"].(map[string]interface{})
	assert.Equal(t, float64(2), counts["pending"])

	// Search matches table number and customer name
	data = waitForOrderCount(t, router, "/api/v1/dashboard/orders?search=12", 1)
	order := data["orders"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, float64(12), order["table_number"])

	data = waitForOrderCount(t, router, "/api/v1/dashboard/orders?search=bernard", 1)
	order = data["orders"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "Bernard", order["customer_name"])

	// Table sort puts table 3 first
	data = waitForOrderCount(t, router, "/api/v1/dashboard/orders?sort=table", 2)
	order = data["orders"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, float64(3), order["table_number"])

	// Status filter
	waitForOrderCount(t, router, "/api/v1/dashboard/orders?filter=pending", 2)
	waitForOrderCount(t, router, "/api/v1/dashboard/orders?filter=ready", 0)
}

func TestDashboardStatsEndpoint(t *testing.T) {
	router := setupDashboardTest(t)
	placeOrderViaAPI(t, router, 5, "")

	require.Eventually(t, func() bool {
		data, ok := fetchData(router, "/api/v1/dashboard/stats")
		return ok && data["unread_count"] == float64(1)
	}, 2*time.Second, 10*time.Millisecond)

	w := performJSON(t, router, "GET", "/api/v1/dashboard/stats", nil)
	data := decodeResponse(t, w)["data"].(map[string]interface{})
	assert.Equal(t, true, data["sound_enabled"])
}

func TestSetDashboardSoundEndpoint(t *testing.T) {
	router := setupDashboardTest(t)

	w := performJSON(t, router, "PUT", "/api/v1/dashboard/sound",
		map[string]interface{}{"enabled": false})
	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeResponse(t, w)["data"].(map[string]interface{})
	assert.Equal(t, false, data["sound_enabled"])

	// Missing body field is a validation error
	w = performJSON(t, router, "PUT", "/api/v1/dashboard/sound", map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", errorCode(decodeResponse(t, w)))
}

func TestDashboardUpdateStatusEndpoint(t *testing.T) {
	router := setupDashboardTest(t)
	id := placeOrderViaAPI(t, router, 4, "")
	waitForOrderCount(t, router, "/api/v1/dashboard/orders", 1)

	w := performJSON(t, router, "PATCH", "/api/v1/dashboard/orders/"+id+"/status",
		map[string]interface{}{"status": "preparing"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decodeResponse(t, w)["success"].(bool))

	// The selection also acknowledges the order
	require.Eventually(t, func() bool {
		data, ok := fetchData(router, "/api/v1/dashboard/stats")
		return ok && data["unread_count"] == float64(0)
	}, 2*time.Second, 10*time.Millisecond)

	// Illegal jump surfaces as a conflict
	w = performJSON(t, router, "PATCH", "/api/v1/dashboard/orders/"+id+"/status",
		map[string]interface{}{"status": "delivered"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "INVALID_TRANSITION", errorCode(decodeResponse(t, w)))
}

func TestDashboardMarkReadEndpoint(t *testing.T) {
	router := setupDashboardTest(t)
	id := placeOrderViaAPI(t, router, 4, "")
	waitForOrderCount(t, router, "/api/v1/dashboard/orders", 1)

	w := performJSON(t, router, "POST", "/api/v1/dashboard/orders/"+id+"/read", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = performJSON(t, router, "GET", "/api/v1/dashboard/stats", nil)
	data := decodeResponse(t, w)["data"].(map[string]interface{})
	assert.Equal(t, float64(0), data["unread_count"])
}

func TestDashboardDeleteOrderEndpoint(t *testing.T) {
	router := setupDashboardTest(t)
	id := placeOrderViaAPI(t, router, 4, "")
	waitForOrderCount(t, router, "/api/v1/dashboard/orders", 1)

	w := performJSON(t, router, "DELETE", "/api/v1/dashboard/orders/"+id, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	waitForOrderCount(t, router, "/api/v1/dashboard/orders", 0)

	w = performJSON(t, router, "DELETE", "/api/v1/dashboard/orders/"+id, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "ORDER_NOT_FOUND", errorCode(decodeResponse(t, w)))
}
