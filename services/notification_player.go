package services

import (
	"log"
	"sync"
	"time"
)

// Player timing: a triple tone burst every repeat period while unread orders
// exist, mirroring the dashboard's audible alert.
const (
	// DefaultRepeatPeriod is the delay between tone bursts while playing
	DefaultRepeatPeriod = 3 * time.Second

	// BurstSize is the number of tones in one burst
	BurstSize = 3
)

// ToneGenerator is the underlying audio resource. Implementations emit one
// burst of the given number of tones.
type ToneGenerator interface {
	Burst(count int)
}

// NotificationPlayer is a two-state (Idle/Playing) audible alert machine.
//
// The tone generator is a scoped acquisition: it is created lazily on first
// use through the factory (platforms commonly gate audio behind a user
// gesture) and reused across start/stop cycles. A player that could not
// acquire its generator stays Idle and the caller falls back to visual-only
// notification.
type NotificationPlayer struct {
	mu      sync.Mutex
	factory func() (ToneGenerator, error)
	gen     ToneGenerator
	playing bool
	stop    chan struct{}
	period  time.Duration
}

// NewNotificationPlayer creates an Idle player. The factory is invoked at
// most once, on first Arm or Start.
func NewNotificationPlayer(factory func() (ToneGenerator, error)) *NotificationPlayer {
	return &NotificationPlayer{
		factory: factory,
		period:  DefaultRepeatPeriod,
	}
}

// SetRepeatPeriod overrides the burst repeat period (primarily for testing)
func (p *NotificationPlayer) SetRepeatPeriod(d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.period = d
}

// Arm acquires the tone generator if not already held. Call it from a user
// gesture before the first Start.
func (p *NotificationPlayer) Arm() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.armLocked()
}

func (p *NotificationPlayer) armLocked() error {
	if p.gen != nil {
		return nil
	}
	gen, err := p.factory()
	if err != nil {
		return err
	}
	p.gen = gen
	return nil
}

// Armed reports whether the tone generator has been acquired
func (p *NotificationPlayer) Armed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.gen != nil
}

// Playing reports whether the player is in the Playing state
func (p *NotificationPlayer) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

// Start moves the player to Playing and schedules a repeating tone burst.
// Calling Start while already Playing is a no-op: exactly one schedule runs
// at a time. If the generator cannot be acquired the failure is logged and
// the player stays Idle.
func (p *NotificationPlayer) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.playing {
		return
	}
	if err := p.armLocked(); err != nil {
		log.Printf("Audible notification unavailable, falling back to visual only: %v", err)
		return
	}

	p.playing = true
	stop := make(chan struct{})
	p.stop = stop

	go p.run(stop, p.period)
}

// run emits a burst immediately and then on every tick until stopped
func (p *NotificationPlayer) run(stop chan struct{}, period time.Duration) {
	p.burst(stop)

	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			p.burst(stop)
		}
	}
}

// burst emits one tone burst, unless the schedule it belongs to has been
// stopped. Holding the lock through the emit guarantees no new burst starts
// after Stop returns.
func (p *NotificationPlayer) burst(stop chan struct{}) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.playing || p.stop != stop {
		return
	}
	p.gen.Burst(BurstSize)
}

// Stop moves the player back to Idle and cancels the repeat schedule. Safe to
// call while Idle. No new burst starts after Stop returns.
func (p *NotificationPlayer) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.playing {
		return
	}
	p.playing = false
	close(p.stop)
	p.stop = nil
}

// BroadcastToneGenerator fans tone bursts out to subscribed listeners. The
// dashboard stream forwards these to connected clients, which render the
// actual sound.
type BroadcastToneGenerator struct {
	mu          sync.Mutex
	subscribers map[chan int]struct{}
}

// NewBroadcastToneGenerator creates a generator with no listeners
func NewBroadcastToneGenerator() *BroadcastToneGenerator {
	return &BroadcastToneGenerator{subscribers: make(map[chan int]struct{})}
}

// Burst delivers the tone count to every current listener without blocking
func (g *BroadcastToneGenerator) Burst(count int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for ch := range g.subscribers {
		select {
		case ch <- count:
		default:
			// Listener is behind; skipping a burst is harmless, the next
			// one arrives within the repeat period
		}
	}
}

// Subscribe registers a listener and returns its channel plus a cancel func
func (g *BroadcastToneGenerator) Subscribe() (<-chan int, func()) {
	g.mu.Lock()
	defer g.mu.Unlock()

	ch := make(chan int, 4)
	g.subscribers[ch] = struct{}{}

	return ch, func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		if _, ok := g.subscribers[ch]; ok {
			delete(g.subscribers, ch)
			close(ch)
		}
	}
}
