package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/lumiere-bistro/tableside-api/services"
)

// CreateOrderItemRequest is one line of an order creation request
type CreateOrderItemRequest struct {
	MenuItemID *string         `json:"menu_item_id"`
	Name       string          `json:"name" binding:"required"`
	Price      decimal.Decimal `json:"price"`
	Quantity   int             `json:"quantity" binding:"required,gt=0"`
}

// CreateOrderRequest represents the request body for creating an order
type CreateOrderRequest struct {
	TableNumber  int                      `json:"table_number" binding:"required,gt=0"`
	CustomerName string                   `json:"customer_name"`
	Notes        string                   `json:"notes"`
	Items        []CreateOrderItemRequest `json:"items" binding:"required,min=1,dive"`
}

// UpdateOrderStatusRequest represents the request body for a status change
type UpdateOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// CreateOrder handles POST /api/v1/orders - submits a new table-side order
func CreateOrder(c *gin.Context) {
	var req CreateOrderRequest
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

	items := make([]services.OrderItemInput, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, services.OrderItemInput{
			MenuItemID: item.MenuItemID,
			Name:       item.Name,
			Price:      item.Price,
			Quantity:   item.Quantity,
		})
	}

	order, err := services.GetOrderService().CreateOrder(c.Request.Context(), services.CreateOrderInput{
		TableNumber:  req.TableNumber,
		CustomerName: req.CustomerName,
		Notes:        req.Notes,
		Items:        items,
	})
	if err != nil {
		respondOrderError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    order,
	})
}

// GetOrders handles GET /api/v1/orders - lists all orders newest-first,
// optionally filtered with ?status=
func GetOrders(c *gin.Context) {
	ctx := c.Request.Context()
	status := c.Query("status")

	var err error
	var orders interface{}
	if status != "" {
		orders, err = services.GetOrderService().GetOrdersByStatus(ctx, status)
	} else {
		orders, err = services.GetOrderService().GetOrders(ctx)
	}
	if err != nil {
		respondOrderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    orders,
	})
}

// GetOrder handles GET /api/v1/orders/:id - fetches a single order with items
func GetOrder(c *gin.Context) {
	order, err := services.GetOrderService().GetOrderByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondOrderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    order,
	})
}

// UpdateOrderStatus handles PATCH /api/v1/orders/:id/status - an explicit
// status selection, routed through the lifecycle manager so illegal
// transitions are rejected before any write
func UpdateOrderStatus(c *gin.Context) {
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

	order, err := services.GetLifecycleManager().Transition(c.Request.Context(), c.Param("id"), req.Status)
	if errors.Is(err, services.ErrReadFlagStale) {
		// Status change stood; only the acknowledgment write failed
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"data":    order,
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
		"data":    order,
	})
}

// AdvanceOrder handles POST /api/v1/orders/:id/advance - the one-click staff
// action moving the order one step along the happy path
func AdvanceOrder(c *gin.Context) {
	order, err := services.GetLifecycleManager().Advance(c.Request.Context(), c.Param("id"))
	if errors.Is(err, services.ErrReadFlagStale) {
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"data":    order,
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
		"data":    order,
	})
}

// MarkOrderRead handles POST /api/v1/orders/:id/read - the explicit staff
// acknowledgment without a status change. Idempotent.
func MarkOrderRead(c *gin.Context) {
	if err := services.GetOrderService().MarkOrderAsRead(c.Request.Context(), c.Param("id")); err != nil {
		respondOrderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Order marked as read",
	})
}

// DeleteOrder handles DELETE /api/v1/orders/:id - removes the order and its items
func DeleteOrder(c *gin.Context) {
	if err := services.GetOrderService().DeleteOrder(c.Request.Context(), c.Param("id")); err != nil {
		respondOrderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Order deleted",
	})
}

// respondOrderError maps service errors to HTTP error envelopes
func respondOrderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrOrderNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "ORDER_NOT_FOUND",
				"message": "Order not found",
			},
		})
	case errors.Is(err, services.ErrInvalidStatus):
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_STATUS",
				"message": "Status must be one of: pending, preparing, ready, delivered, cancelled",
			},
		})
	case errors.Is(err, services.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_TRANSITION",
				"message": err.Error(),
			},
		})
	case errors.Is(err, services.ErrInvalidTableNumber),
		errors.Is(err, services.ErrEmptyOrder),
		errors.Is(err, services.ErrInvalidQuantity),
		errors.Is(err, services.ErrNegativePrice):
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": err.Error(),
			},
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to process order",
			},
		})
	}
}
