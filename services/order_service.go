package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/lumiere-bistro/tableside-api/config"
	"github.com/lumiere-bistro/tableside-api/models"
)

// OrderItemInput is one line of a new order. Name and price are the snapshot
// values the order was placed with, not a lookup into the live catalog.
type OrderItemInput struct {
	MenuItemID *string         `json:"menu_item_id"`
	Name       string          `json:"name"`
	Price      decimal.Decimal `json:"price"`
	Quantity   int             `json:"quantity"`
}

// CreateOrderInput carries everything needed to create an order with its items
type CreateOrderInput struct {
	TableNumber  int              `json:"table_number"`
	CustomerName string           `json:"customer_name"`
	Notes        string           `json:"notes"`
	Items        []OrderItemInput `json:"items"`
}

// OrderService is the order store: persistence for orders and their line items
type OrderService interface {
	// CreateOrder validates the input, computes the authoritative total
	// server-side and persists the order followed by its items
	CreateOrder(ctx context.Context, input CreateOrderInput) (*models.Order, error)

	// GetOrders returns all orders newest-first, items included
	GetOrders(ctx context.Context) ([]models.Order, error)

	// GetOrdersByStatus returns orders with the given status, newest-first
	GetOrdersByStatus(ctx context.Context, status string) ([]models.Order, error)

	// GetOrderByID returns a single order with its items
	GetOrderByID(ctx context.Context, id string) (*models.Order, error)

	// UpdateOrderStatus persists a new status value. It validates the value
	// against the five statuses but performs no transition-legality check
	// and does not touch is_read; that policy lives in the LifecycleManager.
	UpdateOrderStatus(ctx context.Context, id string, status string) error

	// MarkOrderAsRead sets is_read to true. Idempotent.
	MarkOrderAsRead(ctx context.Context, id string) error

	// DeleteOrder removes the order and all of its items
	DeleteOrder(ctx context.Context, id string) error
}

// GormOrderService implements OrderService on the GORM database connection
type GormOrderService struct{}

var orderServiceInstance OrderService

// InitOrderService initializes the order service backed by the database
func InitOrderService() OrderService {
	orderServiceInstance = &GormOrderService{}
	return orderServiceInstance
}

// GetOrderService returns the initialized order service instance
func GetOrderService() OrderService {
	return orderServiceInstance
}

// SetOrderService sets the order service instance (primarily for testing)
func SetOrderService(service OrderService) {
	orderServiceInstance = service
}

// publishChange notifies the change feed that the orders table changed.
// The feed is a wake-up signal, so a failed publish is logged and swallowed:
// consumers recover through their fallback poll.
func publishChange(ctx context.Context, eventType string) {
	feed := GetChangeFeed()
	if feed == nil {
		return
	}
	if err := feed.Publish(ctx, ChangeEvent{Table: OrdersTable, Type: eventType}); err != nil {
		log.Printf("Failed to publish %s change event: %v", eventType, err)
	}
}

// validateCreateOrder rejects invalid input before any persistence call
func validateCreateOrder(input CreateOrderInput) error {
	if input.TableNumber <= 0 {
		return ErrInvalidTableNumber
	}
	if len(input.Items) == 0 {
		return ErrEmptyOrder
	}
	for _, item := range input.Items {
		if item.Quantity <= 0 {
			return ErrInvalidQuantity
		}
		if item.Price.IsNegative() {
			return ErrNegativePrice
		}
	}
	return nil
}

// CreateOrder persists a new order with its items. The total is computed here
// from the submitted snapshots, never from current catalog prices.
//
// The order row and the item rows are two separate writes. If the item write
// fails after the order row exists there is no compensating delete; the error
// is surfaced and the orphaned order row is an accepted inconsistency window.
func (s *GormOrderService) CreateOrder(ctx context.Context, input CreateOrderInput) (*models.Order, error) {
	if err := validateCreateOrder(input); err != nil {
		return nil, err
	}

	total := decimal.Zero
	for _, item := range input.Items {
		total = total.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}

	db := config.GetDB()

	order := models.Order{
		TableNumber:  input.TableNumber,
		CustomerName: input.CustomerName,
		Status:       models.StatusPending,
		TotalAmount:  total,
		Notes:        input.Notes,
		IsRead:       false,
	}
	if err := db.WithContext(ctx).Create(&order).Error; err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	items := make([]models.OrderItem, 0, len(input.Items))
	for _, item := range input.Items {
		items = append(items, models.OrderItem{
			OrderID:      order.ID,
			MenuItemID:   item.MenuItemID,
			ItemName:     item.Name,
			PriceAtOrder: item.Price,
			Quantity:     item.Quantity,
		})
	}
	if err := db.WithContext(ctx).Create(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to create order items for order %s: %w", order.ID, err)
	}
	order.Items = items

	publishChange(ctx, EventInsert)
	return &order, nil
}

// GetOrders returns all orders newest-first with their items preloaded
func (s *GormOrderService) GetOrders(ctx context.Context) ([]models.Order, error) {
	db := config.GetDB()

	var orders []models.Order
	if err := db.WithContext(ctx).Preload("Items").Order("created_at DESC").Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch orders: %w", err)
	}
	return orders, nil
}

// GetOrdersByStatus returns orders filtered by status, newest-first
func (s *GormOrderService) GetOrdersByStatus(ctx context.Context, status string) ([]models.Order, error) {
	if !models.IsValidStatus(status) {
		return nil, ErrInvalidStatus
	}

	db := config.GetDB()

	var orders []models.Order
	if err := db.WithContext(ctx).Preload("Items").Where("status = ?", status).
		Order("created_at DESC").Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch orders by status: %w", err)
	}
	return orders, nil
}

// GetOrderByID returns the order with its items or ErrOrderNotFound
func (s *GormOrderService) GetOrderByID(ctx context.Context, id string) (*models.Order, error) {
	db := config.GetDB()

	var order models.Order
	err := db.WithContext(ctx).Preload("Items").First(&order, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch order: %w", err)
	}
	return &order, nil
}

// UpdateOrderStatus persists a new status value for the order
func (s *GormOrderService) UpdateOrderStatus(ctx context.Context, id string, status string) error {
	if !models.IsValidStatus(status) {
		return ErrInvalidStatus
	}

	db := config.GetDB()

	result := db.WithContext(ctx).Model(&models.Order{}).Where("id = ?", id).Update("status", status)
	if result.Error != nil {
		return fmt.Errorf("failed to update order status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrOrderNotFound
	}

	publishChange(ctx, EventUpdate)
	return nil
}

// MarkOrderAsRead acknowledges the order. is_read only ever moves false to
// true, so repeating the call is harmless.
func (s *GormOrderService) MarkOrderAsRead(ctx context.Context, id string) error {
	db := config.GetDB()

	result := db.WithContext(ctx).Model(&models.Order{}).Where("id = ?", id).Update("is_read", true)
	if result.Error != nil {
		return fmt.Errorf("failed to mark order as read: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrOrderNotFound
	}

	publishChange(ctx, EventUpdate)
	return nil
}

// DeleteOrder removes the order and its items. Hard delete: once staff
// removes an order it is gone.
func (s *GormOrderService) DeleteOrder(ctx context.Context, id string) error {
	db := config.GetDB()

	var order models.Order
	err := db.WithContext(ctx).First(&order, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrOrderNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to fetch order for deletion: %w", err)
	}

	// Delete the items explicitly rather than relying on database-level
	// cascade, which sqlite only honors with foreign keys enabled
	if err := db.WithContext(ctx).Where("order_id = ?", id).Delete(&models.OrderItem{}).Error; err != nil {
		return fmt.Errorf("failed to delete order items: %w", err)
	}
	if err := db.WithContext(ctx).Delete(&order).Error; err != nil {
		return fmt.Errorf("failed to delete order: %w", err)
	}

	publishChange(ctx, EventDelete)
	return nil
}
