package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lumiere-bistro/tableside-api/models"
)

// CartLine is one entry in a cart: a menu item reference with the name and
// price snapshot the guest saw, and a quantity
type CartLine struct {
	MenuItemID string          `json:"menu_item_id"`
	ItemName   string          `json:"item_name"`
	Price      decimal.Decimal `json:"price"`
	Quantity   int             `json:"quantity"`
}

// Cart is a guest's pending selection. Nothing is persisted until checkout.
type Cart struct {
	ID        string     `json:"id"`
	Lines     []CartLine `json:"lines"`
	CreatedAt time.Time  `json:"created_at"`
}

// Total returns the sum of price * quantity across all lines
func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, line := range c.Lines {
		total = total.Add(line.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	return total
}

// ItemCount returns the total quantity across all lines
func (c *Cart) ItemCount() int {
	count := 0
	for _, line := range c.Lines {
		count += line.Quantity
	}
	return count
}

// CartService holds the in-memory cart sessions and drives checkout
type CartService struct {
	mu    sync.Mutex
	carts map[string]*Cart
	store OrderService
}

var cartServiceInstance *CartService

// InitCartService initializes the cart service over the given order store
func InitCartService(store OrderService) *CartService {
	cartServiceInstance = NewCartService(store)
	return cartServiceInstance
}

// GetCartService returns the initialized cart service instance
func GetCartService() *CartService {
	return cartServiceInstance
}

// SetCartService sets the cart service instance (primarily for testing)
func SetCartService(service *CartService) {
	cartServiceInstance = service
}

// NewCartService creates a cart service with no sessions
func NewCartService(store OrderService) *CartService {
	return &CartService{
		carts: make(map[string]*Cart),
		store: store,
	}
}

// NewCart opens a new empty cart session
func (s *CartService) NewCart() *Cart {
	s.mu.Lock()
	defer s.mu.Unlock()

	cart := &Cart{
		ID:        uuid.NewString(),
		CreatedAt: time.Now(),
	}
	s.carts[cart.ID] = cart
	return snapshotCart(cart)
}

// GetCart returns a copy of the cart, or ErrCartNotFound
func (s *CartService) GetCart(cartID string) (*Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cart, ok := s.carts[cartID]
	if !ok {
		return nil, ErrCartNotFound
	}
	return snapshotCart(cart), nil
}

// AddItem puts a menu item in the cart. Adding an item already present merges
// by item identity, incrementing its quantity.
func (s *CartService) AddItem(cartID string, item models.MenuItem, quantity int) (*Cart, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cart, ok := s.carts[cartID]
	if !ok {
		return nil, ErrCartNotFound
	}

	for i := range cart.Lines {
		if cart.Lines[i].MenuItemID == item.ID {
			cart.Lines[i].Quantity += quantity
			return snapshotCart(cart), nil
		}
	}

	cart.Lines = append(cart.Lines, CartLine{
		MenuItemID: item.ID,
		ItemName:   item.Name,
		Price:      item.Price,
		Quantity:   quantity,
	})
	return snapshotCart(cart), nil
}

// UpdateQuantity sets the quantity for a cart line. A non-positive quantity
// removes the line entirely.
func (s *CartService) UpdateQuantity(cartID string, menuItemID string, quantity int) (*Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cart, ok := s.carts[cartID]
	if !ok {
		return nil, ErrCartNotFound
	}

	if quantity <= 0 {
		removeLine(cart, menuItemID)
		return snapshotCart(cart), nil
	}

	for i := range cart.Lines {
		if cart.Lines[i].MenuItemID == menuItemID {
			cart.Lines[i].Quantity = quantity
			break
		}
	}
	return snapshotCart(cart), nil
}

// RemoveItem drops a line from the cart
func (s *CartService) RemoveItem(cartID string, menuItemID string) (*Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cart, ok := s.carts[cartID]
	if !ok {
		return nil, ErrCartNotFound
	}

	removeLine(cart, menuItemID)
	return snapshotCart(cart), nil
}

// Clear empties the cart but keeps the session open
func (s *CartService) Clear(cartID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cart, ok := s.carts[cartID]
	if !ok {
		return ErrCartNotFound
	}
	cart.Lines = nil
	return nil
}

// Checkout submits the cart as a new order. The table number must be positive
// and the cart non-empty before the store is called. On success the cart is
// cleared; on failure it is preserved untouched so the guest can retry.
func (s *CartService) Checkout(ctx context.Context, cartID string, tableNumber int, customerName, notes string) (*models.Order, error) {
	s.mu.Lock()
	cart, ok := s.carts[cartID]
	if !ok {
		s.mu.Unlock()
		return nil, ErrCartNotFound
	}
	if tableNumber <= 0 {
		s.mu.Unlock()
		return nil, ErrInvalidTableNumber
	}
	if len(cart.Lines) == 0 {
		s.mu.Unlock()
		return nil, ErrCartEmpty
	}

	items := make([]OrderItemInput, 0, len(cart.Lines))
	for _, line := range cart.Lines {
		menuItemID := line.MenuItemID
		items = append(items, OrderItemInput{
			MenuItemID: &menuItemID,
			Name:       line.ItemName,
			Price:      line.Price,
			Quantity:   line.Quantity,
		})
	}
	s.mu.Unlock()

	order, err := s.store.CreateOrder(ctx, CreateOrderInput{
		TableNumber:  tableNumber,
		CustomerName: customerName,
		Notes:        notes,
		Items:        items,
	})
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if cart, ok := s.carts[cartID]; ok {
		cart.Lines = nil
	}
	s.mu.Unlock()

	return order, nil
}

func removeLine(cart *Cart, menuItemID string) {
	kept := cart.Lines[:0:0]
	for _, line := range cart.Lines {
		if line.MenuItemID != menuItemID {
			kept = append(kept, line)
		}
	}
	cart.Lines = kept
}

func snapshotCart(cart *Cart) *Cart {
	lines := make([]CartLine, len(cart.Lines))
	copy(lines, cart.Lines)
	return &Cart{
		ID:        cart.ID,
		Lines:     lines,
		CreatedAt: cart.CreatedAt,
	}
}
