package services

import "errors"

// Sentinel errors returned by the services layer. Controllers map these to
// HTTP error codes.
var (
	// ErrOrderNotFound is returned when no order exists for the given id
	ErrOrderNotFound = errors.New("order not found")

	// ErrInvalidStatus is returned when a status value is not one of the
	// five enumerated order statuses
	ErrInvalidStatus = errors.New("invalid order status")

	// ErrInvalidTableNumber is returned when a table number is not positive
	ErrInvalidTableNumber = errors.New("table number must be positive")

	// ErrEmptyOrder is returned when an order is created with no items
	ErrEmptyOrder = errors.New("order must contain at least one item")

	// ErrInvalidQuantity is returned when an item quantity is not positive
	ErrInvalidQuantity = errors.New("item quantity must be positive")

	// ErrNegativePrice is returned when an item price is negative
	ErrNegativePrice = errors.New("item price must not be negative")

	// ErrInvalidTransition is returned when a status change is not in the
	// legal transition set
	ErrInvalidTransition = errors.New("status transition not allowed")

	// ErrReadFlagStale is returned when a status change was persisted but
	// the follow-up mark-as-read write failed. The new status stands; the
	// order shows as unread until the next acknowledgment.
	ErrReadFlagStale = errors.New("order status updated but read flag is stale")

	// ErrCartNotFound is returned when no cart session exists for the given id
	ErrCartNotFound = errors.New("cart not found")

	// ErrCartEmpty is returned when checkout is attempted on an empty cart
	ErrCartEmpty = errors.New("cart is empty")

	// ErrMenuItemNotFound is returned when no menu item exists for the given id
	ErrMenuItemNotFound = errors.New("menu item not found")
)
