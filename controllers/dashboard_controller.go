package controllers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lumiere-bistro/tableside-api/services"
)

// SetSoundRequest represents the request body for toggling the audible alert
type SetSoundRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

// GetDashboardOrders handles GET /api/v1/dashboard/orders - the staff view
// over the last reconciled snapshot: ?filter= (a status or "all"),
// ?search= (table number or customer name), ?sort= (date, table, amount)
func GetDashboardOrders(c *gin.Context) {
	session := services.GetDashboard()

	orders := session.Orders(
		c.DefaultQuery("filter", services.FilterAll),
		c.Query("search"),
		c.DefaultQuery("sort", services.SortByDate),
	)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"orders":       orders,
			"counts":       session.StatusCounts(),
			"unread_count": session.UnreadCount(),
		},
	})
}

// GetDashboardStats handles GET /api/v1/dashboard/stats - counts per status,
// unread count and the notification state
func GetDashboardStats(c *gin.Context) {
	session := services.GetDashboard()

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"counts":        session.StatusCounts(),
			"unread_count":  session.UnreadCount(),
			"sound_enabled": session.SoundEnabled(),
		},
	})
}

// SetDashboardSound handles PUT /api/v1/dashboard/sound - toggles the audible
// alert; disabling silences it immediately
func SetDashboardSound(c *gin.Context) {
	var req SetSoundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Invalid request data",
				"details": err.Error(),
			},
		})
		return
	}

	session := services.GetDashboard()
	session.SetSoundEnabled(*req.Enabled)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"sound_enabled": session.SoundEnabled(),
		},
	})
}

// StreamDashboard handles GET /api/v1/dashboard/stream - a server-sent event
// stream carrying order-change wake-ups and tone bursts for connected staff
// clients. The client re-fetches on "orders" events and renders the audible
// alert on "tone" events.
func StreamDashboard(toneSource *services.BroadcastToneGenerator) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := services.GetDashboard()

		events, cancelEvents := session.Subscribe()
		defer cancelEvents()

		tones, cancelTones := toneSource.Subscribe()
		defer cancelTones()

		c.Writer.Header().Set("Cache-Control", "no-cache")
		c.Writer.Header().Set("Connection", "keep-alive")

		c.Stream(func(w io.Writer) bool {
			select {
			case <-c.Request.Context().Done():
				return false
			case event, ok := <-events:
				if !ok {
					return false
				}
				c.SSEvent("orders", event)
				return true
			case count, ok := <-tones:
				if !ok {
					return false
				}
				c.SSEvent("tone", gin.H{"count": count})
				return true
			}
		})
	}
}

// DashboardUpdateStatus handles PATCH /api/v1/dashboard/orders/:id/status -
// the staff status selection applied optimistically to the dashboard snapshot
func DashboardUpdateStatus(c *gin.Context) {
	var req UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Invalid request data",
				"details": err.Error(),
			},
		})
		return
	}

	err := services.GetDashboard().UpdateStatus(c.Request.Context(), c.Param("id"), req.Status)
	if errors.Is(err, services.ErrReadFlagStale) {
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "Order status updated",
			"warning": "order status updated but it still shows as unread",
		})
		return
	}
	if err != nil {
		respondOrderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Order status updated",
	})
}

// DashboardMarkRead handles POST /api/v1/dashboard/orders/:id/read
func DashboardMarkRead(c *gin.Context) {
	if err := services.GetDashboard().MarkRead(c.Request.Context(), c.Param("id")); err != nil {
		respondOrderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Order marked as read",
	})
}

// DashboardDeleteOrder handles DELETE /api/v1/dashboard/orders/:id
func DashboardDeleteOrder(c *gin.Context) {
	if err := services.GetDashboard().Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondOrderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Order deleted",
	})
}
