package services

import (
	"context"
	"fmt"
	"log"

	"github.com/lumiere-bistro/tableside-api/models"
)

// legalTransitions is the complete set of allowed status changes. The happy
// path moves forward one step at a time; cancellation is allowed from any
// non-terminal status that has not reached ready.
var legalTransitions = map[string][]string{
	models.StatusPending:   {models.StatusPreparing, models.StatusCancelled},
	models.StatusPreparing: {models.StatusReady, models.StatusCancelled},
	models.StatusReady:     {models.StatusDelivered},
}

// advanceOrder maps each status to its single forward step, the one-click
// staff action
var advanceOrder = map[string]string{
	models.StatusPending:   models.StatusPreparing,
	models.StatusPreparing: models.StatusReady,
	models.StatusReady:     models.StatusDelivered,
}

// LifecycleManager is the policy layer over the order store. It decides which
// status transitions are legal and couples every status change with staff
// acknowledgment; the store itself only validates status values.
type LifecycleManager struct {
	store OrderService
}

var lifecycleManagerInstance *LifecycleManager

// InitLifecycleManager initializes the lifecycle manager over the given store
func InitLifecycleManager(store OrderService) *LifecycleManager {
	lifecycleManagerInstance = &LifecycleManager{store: store}
	return lifecycleManagerInstance
}

// GetLifecycleManager returns the initialized lifecycle manager instance
func GetLifecycleManager() *LifecycleManager {
	return lifecycleManagerInstance
}

// SetLifecycleManager sets the lifecycle manager instance (primarily for testing)
func SetLifecycleManager(m *LifecycleManager) {
	lifecycleManagerInstance = m
}

// NewLifecycleManager creates a lifecycle manager over the given store
func NewLifecycleManager(store OrderService) *LifecycleManager {
	return &LifecycleManager{store: store}
}

// CanTransition reports whether moving from one status to the other is legal
func (m *LifecycleManager) CanTransition(from, to string) bool {
	for _, allowed := range legalTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// NextStatus returns the single forward transition from the current status.
// The second return value is false for terminal and cancelled orders.
func (m *LifecycleManager) NextStatus(current string) (string, bool) {
	next, ok := advanceOrder[current]
	return next, ok
}

// Transition moves the order to the target status if the transition is legal,
// then acknowledges the order (acting on an order implies having seen it).
//
// The status write and the read-flag write are two store calls. If the second
// fails after the first succeeded, the order keeps its new status with a stale
// unread flag; that is reported as ErrReadFlagStale, a recoverable and
// staff-visible inconsistency rather than a fatal error.
func (m *LifecycleManager) Transition(ctx context.Context, id string, target string) (*models.Order, error) {
	if !models.IsValidStatus(target) {
		return nil, ErrInvalidStatus
	}

	order, err := m.store.GetOrderByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !m.CanTransition(order.Status, target) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, order.Status, target)
	}

	if err := m.store.UpdateOrderStatus(ctx, id, target); err != nil {
		return nil, err
	}
	order.Status = target

	if err := m.store.MarkOrderAsRead(ctx, id); err != nil {
		log.Printf("Order %s moved to %s but mark-as-read failed: %v", id, target, err)
		return order, fmt.Errorf("%w: %v", ErrReadFlagStale, err)
	}
	order.IsRead = true

	return order, nil
}

// Advance performs the one-click forward transition for the order's current
// status. Terminal and cancelled orders cannot advance.
func (m *LifecycleManager) Advance(ctx context.Context, id string) (*models.Order, error) {
	order, err := m.store.GetOrderByID(ctx, id)
	if err != nil {
		return nil, err
	}

	next, ok := m.NextStatus(order.Status)
	if !ok {
		return nil, fmt.Errorf("%w: no forward transition from %s", ErrInvalidTransition, order.Status)
	}

	return m.Transition(ctx, id, next)
}
