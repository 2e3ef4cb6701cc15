package main

import (
	"context"
	"log"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/lumiere-bistro/tableside-api/config"
	"github.com/lumiere-bistro/tableside-api/controllers"
	"github.com/lumiere-bistro/tableside-api/models"
	"github.com/lumiere-bistro/tableside-api/services"
)

func main() {
	// Basic logging
	log.Println("Starting Tableside API server...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Connect to database
	if err := config.ConnectDatabase(); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Auto-migrate database models
	db := config.GetDB()
	if err := db.AutoMigrate(
		&models.Category{},
		&models.MenuItem{},
		&models.Order{},
		&models.OrderItem{},
	); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	log.Println("Database migration completed successfully")

	// Change feed: Redis pub/sub when configured, otherwise a process-local
	// feed (single-instance deployments still get realtime wake-ups)
	if cfg.HasRedis() {
		if err := config.ConnectRedis(cfg.RedisAddr); err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		services.InitChangeFeed(config.GetRedis())
	} else {
		log.Println("REDIS_ADDR not set, using in-process change feed")
		services.SetChangeFeed(services.NewInMemoryChangeFeed())
	}

	// Core services
	orderService := services.InitOrderService()
	lifecycle := services.InitLifecycleManager(orderService)
	services.InitCartService(orderService)

	// Menu item images are optional; without S3 the menu serves without photos
	if cfg.HasS3() {
		s3Service, err := services.InitS3Service()
		if err != nil {
			log.Fatalf("Failed to initialize S3 service: %v", err)
		}
		services.InitImageService(s3Service)
	} else {
		log.Println("AWS_S3_BUCKET not set, menu item images disabled")
	}

	// Staff dashboard: notification player over a broadcast tone generator,
	// mounted once for the lifetime of the process
	toneSource := services.NewBroadcastToneGenerator()
	player := services.NewNotificationPlayer(func() (services.ToneGenerator, error) {
		return toneSource, nil
	})
	dashboard := services.InitDashboard(orderService, lifecycle, services.GetChangeFeed(), player, cfg.PollInterval)
	if err := dashboard.Mount(context.Background()); err != nil {
		log.Fatalf("Failed to mount dashboard: %v", err)
	}
	defer dashboard.Unmount()

	router := setupRouter(toneSource)

	// Start server
	port := ":" + cfg.Port
	log.Printf("Server is running on http://localhost%s", port)
	if err := router.Run(port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// setupRouter builds the Gin engine with all API routes
func setupRouter(toneSource *services.BroadcastToneGenerator) *gin.Engine {
	router := gin.Default()
	router.Use(cors.Default())

	v1 := router.Group("/api/v1")
	{
		// Health check endpoint
		v1.GET("/health", healthCheck)

		// Database status endpoint
		v1.GET("/database/status", databaseStatus)

		// Menu browsing
		v1.GET("/menu", controllers.GetMenu)
		v1.GET("/menu/:id", controllers.GetMenuItem)
		v1.POST("/menu/:id/image", controllers.UploadMenuItemImage)
		v1.GET("/categories", controllers.GetCategories)

		// Cart sessions and checkout
		v1.POST("/cart", controllers.CreateCart)
		v1.GET("/cart/:id", controllers.GetCart)
		v1.POST("/cart/:id/items", controllers.AddCartItem)
		v1.PATCH("/cart/:id/items/:itemId", controllers.UpdateCartItem)
		v1.DELETE("/cart/:id/items/:itemId", controllers.RemoveCartItem)
		v1.POST("/cart/:id/checkout", controllers.Checkout)

		// Order store
		v1.POST("/orders", controllers.CreateOrder)
		v1.GET("/orders", controllers.GetOrders)
		v1.GET("/orders/:id", controllers.GetOrder)
		v1.PATCH("/orders/:id/status", controllers.UpdateOrderStatus)
		v1.POST("/orders/:id/advance", controllers.AdvanceOrder)
		v1.POST("/orders/:id/read", controllers.MarkOrderRead)
		v1.DELETE("/orders/:id", controllers.DeleteOrder)

		// Staff dashboard
		v1.GET("/dashboard/orders", controllers.GetDashboardOrders)
		v1.GET("/dashboard/stats", controllers.GetDashboardStats)
		v1.PUT("/dashboard/sound", controllers.SetDashboardSound)
		v1.GET("/dashboard/stream", controllers.StreamDashboard(toneSource))
		v1.PATCH("/dashboard/orders/:id/status", controllers.DashboardUpdateStatus)
		v1.POST("/dashboard/orders/:id/read", controllers.DashboardMarkRead)
		v1.DELETE("/dashboard/orders/:id", controllers.DashboardDeleteOrder)
	}

	return router
}

// healthCheck handles the health check endpoint
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Tableside API is running",
	})
}

// databaseStatus checks database connectivity and returns table information
func databaseStatus(c *gin.Context) {
	db := config.GetDB()

	// Get the underlying SQL database to check connection
	sqlDB, err := db.DB()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to get database instance",
			},
		})
		return
	}

	// Ping the database to verify connection
	if err := sqlDB.Ping(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_CONNECTION_ERROR",
				"message": "Database connection failed",
			},
		})
		return
	}

	// Get list of tables
	var tables []string
	if err := db.Raw("SELECT tablename FROM pg_tables WHERE schemaname = 'public'").Scan(&tables).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_QUERY_ERROR",
				"message": "Failed to query tables",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Database connected",
		"tables":  tables,
	})
}
