package services

import (
	"context"
	"log"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/lumiere-bistro/tableside-api/models"
)

// FilterAll is the pseudo-filter selecting every order regardless of status
const FilterAll = "all"

// Sort keys accepted by the dashboard view
const (
	SortByDate   = "date"
	SortByTable  = "table"
	SortByAmount = "amount"
)

// DashboardEvent is pushed to stream subscribers whenever the dashboard's
// order snapshot changed
type DashboardEvent struct {
	Type        string `json:"type"`
	UnreadCount int    `json:"unread_count"`
	OrderCount  int    `json:"order_count"`
}

// DashboardSession owns the authoritative in-memory order list for one staff
// dashboard. It reconciles that list from the store, woken by the change feed
// and by a fixed-interval fallback poll, and drives the notification player:
// Playing exactly while unread orders exist and sound is enabled.
type DashboardSession struct {
	store        OrderService
	lifecycle    *LifecycleManager
	feed         ChangeFeed
	player       *NotificationPlayer
	pollInterval time.Duration

	mu           sync.Mutex
	mounted      bool
	orders       []models.Order
	soundEnabled bool
	sub          *FeedSubscription
	pollStop     chan struct{}
	subscribers  map[chan DashboardEvent]struct{}
}

var dashboardInstance *DashboardSession

// InitDashboard initializes the process-wide dashboard session
func InitDashboard(store OrderService, lifecycle *LifecycleManager, feed ChangeFeed, player *NotificationPlayer, pollInterval time.Duration) *DashboardSession {
	dashboardInstance = NewDashboardSession(store, lifecycle, feed, player, pollInterval)
	return dashboardInstance
}

// GetDashboard returns the initialized dashboard session instance
func GetDashboard() *DashboardSession {
	return dashboardInstance
}

// SetDashboard sets the dashboard session instance (primarily for testing)
func SetDashboard(session *DashboardSession) {
	dashboardInstance = session
}

// NewDashboardSession creates an unmounted dashboard session
func NewDashboardSession(store OrderService, lifecycle *LifecycleManager, feed ChangeFeed, player *NotificationPlayer, pollInterval time.Duration) *DashboardSession {
	return &DashboardSession{
		store:        store,
		lifecycle:    lifecycle,
		feed:         feed,
		player:       player,
		pollInterval: pollInterval,
		soundEnabled: true,
		subscribers:  make(map[chan DashboardEvent]struct{}),
	}
}

// Mount brings the session live: arm the audio resource, fetch the full order
// list, open the single change feed subscription and start the fallback poll.
// Mounting an already-mounted session is a no-op.
func (s *DashboardSession) Mount(ctx context.Context) error {
	s.mu.Lock()
	if s.mounted {
		s.mu.Unlock()
		return nil
	}
	s.mounted = true
	s.mu.Unlock()

	// Audio may be denied by platform policy; the unread badge still works
	if err := s.player.Arm(); err != nil {
		log.Printf("Dashboard audio unavailable: %v", err)
	}

	if err := s.Reconcile(ctx); err != nil {
		log.Printf("Initial dashboard fetch failed: %v", err)
	}

	if err := s.openSubscription(ctx); err != nil {
		// The fallback poll masks a dead bus, so a failed subscribe is
		// logged rather than fatal
		log.Printf("Change feed subscription failed, relying on poll: %v", err)
	}

	s.startPoll(ctx)
	return nil
}

// openSubscription establishes the session's change feed subscription. Any
// previously open subscription is torn down first: at most one is active at
// a time, preventing duplicate wake-ups.
func (s *DashboardSession) openSubscription(ctx context.Context) error {
	sub, err := s.feed.Subscribe(ctx, OrdersTable)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if !s.mounted {
		s.mu.Unlock()
		sub.Close()
		return nil
	}
	if s.sub != nil {
		s.sub.Close()
	}
	s.sub = sub
	s.mu.Unlock()

	go func() {
		for range sub.Events() {
			// The event is a wake-up signal only; re-fetch everything
			if err := s.Reconcile(ctx); err != nil {
				log.Printf("Dashboard reconcile after change event failed: %v", err)
			}
		}
	}()
	return nil
}

// startPoll runs the fixed-interval fallback refresh that keeps the dashboard
// eventually consistent even if the bus silently drops the connection
func (s *DashboardSession) startPoll(ctx context.Context) {
	stop := make(chan struct{})

	s.mu.Lock()
	if !s.mounted {
		s.mu.Unlock()
		return
	}
	s.pollStop = stop
	s.mu.Unlock()

	go func() {
		ticker := time.NewTicker(s.pollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if err := s.Reconcile(ctx); err != nil {
					log.Printf("Dashboard poll refresh failed: %v", err)
				}
			}
		}
	}()
}

// Unmount tears the session down: close the subscription, stop the poll and
// silence the player. Safe to call more than once.
func (s *DashboardSession) Unmount() {
	s.mu.Lock()
	if !s.mounted {
		s.mu.Unlock()
		return
	}
	s.mounted = false
	sub := s.sub
	s.sub = nil
	pollStop := s.pollStop
	s.pollStop = nil
	s.mu.Unlock()

	if sub != nil {
		sub.Close()
	}
	if pollStop != nil {
		close(pollStop)
	}
	s.player.Stop()
}

// Reconcile replaces the local order list with a fresh authoritative fetch.
// It is an idempotent full-state replacement, safe under concurrent and
// redundant invocation: when refreshes race, the last response wins. Results
// arriving after unmount are discarded.
func (s *DashboardSession) Reconcile(ctx context.Context) error {
	orders, err := s.store.GetOrders(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if !s.mounted {
		s.mu.Unlock()
		return nil
	}
	s.orders = orders
	s.syncPlayerLocked()
	s.broadcastLocked()
	s.mu.Unlock()
	return nil
}

// syncPlayerLocked keeps the player Playing exactly while at least one
// unread order exists and sound is enabled
func (s *DashboardSession) syncPlayerLocked() {
	if s.unreadCountLocked() > 0 && s.soundEnabled {
		s.player.Start()
	} else {
		s.player.Stop()
	}
}

func (s *DashboardSession) unreadCountLocked() int {
	count := 0
	for _, order := range s.orders {
		if !order.IsRead {
			count++
		}
	}
	return count
}

func (s *DashboardSession) broadcastLocked() {
	event := DashboardEvent{
		Type:        "orders_changed",
		UnreadCount: s.unreadCountLocked(),
		OrderCount:  len(s.orders),
	}
	for ch := range s.subscribers {
		select {
		case ch <- event:
		default:
			// Stream client is behind; it re-fetches on the next event
		}
	}
}

// Subscribe registers a stream listener for dashboard events and returns the
// event channel plus a cancel func
func (s *DashboardSession) Subscribe() (<-chan DashboardEvent, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan DashboardEvent, 4)
	s.subscribers[ch] = struct{}{}

	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
	}
}

// SetSoundEnabled toggles the audible alert. Disabling silences the player
// immediately regardless of unread count; enabling starts it if unread
// orders are waiting.
func (s *DashboardSession) SetSoundEnabled(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.soundEnabled = enabled
	s.syncPlayerLocked()
}

// SoundEnabled reports whether the audible alert is enabled
func (s *DashboardSession) SoundEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.soundEnabled
}

// UnreadCount returns the number of unread orders in the last reconciled list
func (s *DashboardSession) UnreadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unreadCountLocked()
}

// StatusCounts returns the number of orders per status in the last
// reconciled list
func (s *DashboardSession) StatusCounts() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()

	counts := make(map[string]int, len(models.OrderStatuses))
	for _, status := range models.OrderStatuses {
		counts[status] = 0
	}
	for _, order := range s.orders {
		counts[order.Status]++
	}
	return counts
}

// Orders returns the current snapshot filtered, searched and sorted.
//
// filter is one of the five statuses or "all"; search matches the table
// number and the customer name; sortBy is date (newest first), table
// (ascending) or amount (highest first). Unknown values fall back to
// all/date, matching the view's defaults.
func (s *DashboardSession) Orders(filter, search, sortBy string) []models.Order {
	s.mu.Lock()
	snapshot := make([]models.Order, len(s.orders))
	copy(snapshot, s.orders)
	s.mu.Unlock()

	filtered := snapshot[:0:0]
	for _, order := range snapshot {
		if filter != "" && filter != FilterAll && order.Status != filter {
			continue
		}
		if search != "" && !matchesSearch(order, search) {
			continue
		}
		filtered = append(filtered, order)
	}

	switch sortBy {
	case SortByTable:
		sort.SliceStable(filtered, func(i, j int) bool {
			return filtered[i].TableNumber < filtered[j].TableNumber
		})
	case SortByAmount:
		sort.SliceStable(filtered, func(i, j int) bool {
			return filtered[i].TotalAmount.GreaterThan(filtered[j].TotalAmount)
		})
	default: // SortByDate
		sort.SliceStable(filtered, func(i, j int) bool {
			return filtered[i].CreatedAt.After(filtered[j].CreatedAt)
		})
	}

	return filtered
}

// matchesSearch checks the free-text search against the order's table number
// and customer name
func matchesSearch(order models.Order, search string) bool {
	if strings.Contains(strconv.Itoa(order.TableNumber), search) {
		return true
	}
	return strings.Contains(strings.ToLower(order.CustomerName), strings.ToLower(search))
}

// UpdateStatus is the staff action for an explicit status selection. The
// change is applied optimistically to the local snapshot, then issued through
// the lifecycle manager; a failure is reconciled with a fresh fetch instead
// of inverting the patch.
func (s *DashboardSession) UpdateStatus(ctx context.Context, id string, status string) error {
	s.applyPatch(id, func(order *models.Order) {
		order.Status = status
		order.IsRead = true
	})

	_, err := s.lifecycle.Transition(ctx, id, status)
	return s.afterAction(ctx, err)
}

// Advance is the one-click staff action moving the order one step forward
func (s *DashboardSession) Advance(ctx context.Context, id string) (*models.Order, error) {
	order, err := s.lifecycle.Advance(ctx, id)
	if err2 := s.afterAction(ctx, err); err2 != nil {
		return order, err2
	}
	return order, nil
}

// MarkRead is the explicit staff acknowledgment without a status change
func (s *DashboardSession) MarkRead(ctx context.Context, id string) error {
	s.applyPatch(id, func(order *models.Order) {
		order.IsRead = true
	})

	err := s.store.MarkOrderAsRead(ctx, id)
	return s.afterAction(ctx, err)
}

// Delete removes an order on staff request
func (s *DashboardSession) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	kept := s.orders[:0:0]
	for _, order := range s.orders {
		if order.ID != id {
			kept = append(kept, order)
		}
	}
	s.orders = kept
	s.syncPlayerLocked()
	s.broadcastLocked()
	s.mu.Unlock()

	err := s.store.DeleteOrder(ctx, id)
	return s.afterAction(ctx, err)
}

// applyPatch applies an optimistic local update to one order in the snapshot
func (s *DashboardSession) applyPatch(id string, patch func(*models.Order)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.orders {
		if s.orders[i].ID == id {
			patch(&s.orders[i])
			break
		}
	}
	s.syncPlayerLocked()
	s.broadcastLocked()
}

// afterAction handles the outcome of a store call that followed an optimistic
// patch. Any failure triggers a fresh authoritative fetch rather than an
// attempt to invert the patch; the error is still returned to the caller.
func (s *DashboardSession) afterAction(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if rerr := s.Reconcile(ctx); rerr != nil {
		log.Printf("Dashboard reconcile after failed action also failed: %v", rerr)
	}
	return err
}
