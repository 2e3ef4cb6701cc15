package controllers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/lumiere-bistro/tableside-api/config"
	"github.com/lumiere-bistro/tableside-api/models"
	"github.com/lumiere-bistro/tableside-api/services"
	"github.com/lumiere-bistro/tableside-api/utils"
)

// GetMenu handles GET /api/v1/menu - lists menu items for browsing,
// optionally filtered with ?category=
func GetMenu(c *gin.Context) {
	db := config.GetDB()

	query := db.WithContext(c.Request.Context()).Order("name ASC")
	if category := c.Query("category"); category != "" {
		query = query.Where("category_id = ?", category)
	}

	var items []models.MenuItem
	if err := query.Find(&items).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to fetch menu",
			},
		})
		return
	}

	for i := range items {
		attachImageURL(&items[i])
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    items,
	})
}

// GetMenuItem handles GET /api/v1/menu/:id - fetches a single menu item
func GetMenuItem(c *gin.Context) {
	db := config.GetDB()

	var item models.MenuItem
	err := db.WithContext(c.Request.Context()).First(&item, "id = ?", c.Param("id")).Error
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

	attachImageURL(&item)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    item,
	})
}

// GetCategories handles GET /api/v1/categories - lists categories in display order
func GetCategories(c *gin.Context) {
	db := config.GetDB()

	var categories []models.Category
	if err := db.WithContext(c.Request.Context()).Order("order_index ASC").Find(&categories).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to fetch categories",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    categories,
	})
}

// UploadMenuItemImage handles POST /api/v1/menu/:id/image - attaches a PNG
// photo to an existing menu item, replacing any previous one
func UploadMenuItemImage(c *gin.Context) {
	imageService := services.GetImageService()
	if imageService == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "IMAGE_STORAGE_UNAVAILABLE",
				"message": "Image storage is not configured",
			},
		})
		return
	}

	db := config.GetDB()

	var item models.MenuItem
	err := db.WithContext(c.Request.Context()).First(&item, "id = ?", c.Param("id")).Error
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

	fileHeader, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_REQUEST",
				"message": "An image file is required",
			},
		})
		return
	}

	key, err := imageService.UploadImage(fileHeader)
	if err != nil {
		var uploadErr *utils.FileUploadError
		if errors.As(err, &uploadErr) {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error": gin.H{
					"code":    uploadErr.Code,
					"message": uploadErr.Message,
				},
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "UPLOAD_ERROR",
				"message": "Failed to store image",
			},
		})
		return
	}

	previousKey := item.ImageS3Key
	item.ImageS3Key = &key
	if err := db.WithContext(c.Request.Context()).Model(&item).Update("image_s3_key", key).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to save image reference",
			},
		})
		return
	}

	// The replaced photo is no longer referenced; a failed delete only
	// leaves an unreachable object behind
	if previousKey != nil {
		if err := imageService.DeleteImage(*previousKey); err != nil {
			log.Printf("Failed to delete replaced image %s: %v", *previousKey, err)
		}
	}

	attachImageURL(&item)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    item,
	})
}

// attachImageURL fills the computed presigned URL for an item's photo. URL
// generation failures degrade to an item without an image rather than
// failing the request.
func attachImageURL(item *models.MenuItem) {
	imageService := services.GetImageService()
	if imageService == nil || item.ImageS3Key == nil {
		return
	}
	url, err := imageService.GetImageURL(*item.ImageS3Key)
	if err != nil {
		log.Printf("Failed to presign image URL for menu item %s: %v", item.ID, err)
		return
	}
	if url != "" {
		item.ImageURL = &url
	}
}
