package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/lumiere-bistro/tableside-api/config"
	"github.com/lumiere-bistro/tableside-api/models"
	"github.com/lumiere-bistro/tableside-api/services"
)

// AddCartItemRequest represents the request body for adding a menu item to a cart
type AddCartItemRequest struct {
	MenuItemID string `json:"menu_item_id" binding:"required"`
	Quantity   int    `json:"quantity"`
}

// UpdateCartItemRequest represents the request body for changing a line's quantity
type UpdateCartItemRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

// CheckoutRequest represents the request body for submitting a cart as an order
type CheckoutRequest struct {
	TableNumber  int    `json:"table_number" binding:"required"`
	CustomerName string `json:"customer_name"`
	Notes        string `json:"notes"`
}

// CreateCart handles POST /api/v1/cart - opens a new empty cart session
func CreateCart(c *gin.Context) {
	cart := services.GetCartService().NewCart()
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    cartResponse(cart),
	})
}

// GetCart handles GET /api/v1/cart/:id - returns the cart with derived totals
func GetCart(c *gin.Context) {
	cart, err := services.GetCartService().GetCart(c.Param("id"))
	if err != nil {
		respondCartError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    cartResponse(cart),
	})
}

// AddCartItem handles POST /api/v1/cart/:id/items - puts a menu item in the
// cart; adding the same item again increments its quantity
func AddCartItem(c *gin.Context) {
	var req AddCartItemRequest
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
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	// Cart lines snapshot the catalog entry; resolve it now
	db := config.GetDB()
	var item models.MenuItem
	err := db.WithContext(c.Request.Context()).First(&item, "id = ?", req.MenuItemID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "MENU_ITEM_NOT_FOUND",
				"message": "Menu item not found",
			},
		})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to fetch menu item",
			},
		})
		return
	}

	cart, err := services.GetCartService().AddItem(c.Param("id"), item, req.Quantity)
	if err != nil {
		respondCartError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    cartResponse(cart),
	})
}

// UpdateCartItem handles PATCH /api/v1/cart/:id/items/:itemId - sets a line's
// quantity; zero or negative removes the line
func UpdateCartItem(c *gin.Context) {
	var req UpdateCartItemRequest
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

	cart, err := services.GetCartService().UpdateQuantity(c.Param("id"), c.Param("itemId"), *req.Quantity)
	if err != nil {
		respondCartError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    cartResponse(cart),
	})
}

// RemoveCartItem handles DELETE /api/v1/cart/:id/items/:itemId
func RemoveCartItem(c *gin.Context) {
	cart, err := services.GetCartService().RemoveItem(c.Param("id"), c.Param("itemId"))
	if err != nil {
		respondCartError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    cartResponse(cart),
	})
}

// Checkout handles POST /api/v1/cart/:id/checkout - submits the cart as a new
// order. On failure the cart is preserved so the guest can retry.
func Checkout(c *gin.Context) {
	var req CheckoutRequest
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

	order, err := services.GetCartService().Checkout(
		c.Request.Context(), c.Param("id"), req.TableNumber, req.CustomerName, req.Notes)
	if err != nil {
		respondCartError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    order,
	})
}

// cartResponse shapes a cart with its derived totals for JSON responses
func cartResponse(cart *services.Cart) gin.H {
	return gin.H{
		"id":         cart.ID,
		"lines":      cart.Lines,
		"total":      cart.Total(),
		"item_count": cart.ItemCount(),
		"created_at": cart.CreatedAt,
	}
}

// respondCartError maps cart service errors to HTTP error envelopes
func respondCartError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrCartNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "CART_NOT_FOUND",
				"message": "Cart not found",
			},
		})
	case errors.Is(err, services.ErrCartEmpty):
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "CART_EMPTY",
				"message": "Cannot check out an empty cart",
			},
		})
	case errors.Is(err, services.ErrInvalidTableNumber):
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_TABLE_NUMBER",
				"message": "Table number must be positive",
			},
		})
	case errors.Is(err, services.ErrInvalidQuantity):
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_QUANTITY",
				"message": "Quantity must be positive",
			},
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to process cart",
			},
		})
	}
}
