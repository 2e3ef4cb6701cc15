package services

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingToneGenerator counts bursts for assertions
type recordingToneGenerator struct {
	mu     sync.Mutex
	bursts []int
}

func (g *recordingToneGenerator) Burst(count int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.bursts = append(g.bursts, count)
}

func (g *recordingToneGenerator) burstCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.bursts)
}

func newTestPlayer() (*NotificationPlayer, *recordingToneGenerator) {
	gen := &recordingToneGenerator{}
	player := NewNotificationPlayer(func() (ToneGenerator, error) { return gen, nil })
	player.SetRepeatPeriod(10 * time.Millisecond)
	return player, gen
}

func TestPlayerStartStop(t *testing.T) {
	player, gen := newTestPlayer()
	assert.False(t, player.Playing())

	player.Start()
	assert.True(t, player.Playing())

	// The first burst fires immediately, the schedule repeats after that
	assert.Eventually(t, func() bool { return gen.burstCount() >= 2 },
		time.Second, 5*time.Millisecond)

	player.Stop()
	assert.False(t, player.Playing())
}

func TestPlayerStartWhilePlayingIsNoOp(t *testing.T) {
	player, gen := newTestPlayer()
	player.SetRepeatPeriod(time.Hour)

	player.Start()
	player.Start()
	player.Start()
	assert.True(t, player.Playing())

	// Only the one schedule's immediate burst, not one per Start call
	assert.Eventually(t, func() bool { return gen.burstCount() == 1 },
		time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, gen.burstCount(), "concurrent schedules must not stack")

	player.Stop()
}

func TestPlayerNoBurstAfterStopReturns(t *testing.T) {
	player, gen := newTestPlayer()

	player.Start()
	player.Stop()

	count := gen.burstCount()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, count, gen.burstCount(), "no new burst may start after Stop returns")
}

func TestPlayerStopWhileIdleIsSafe(t *testing.T) {
	player, _ := newTestPlayer()
	player.Stop()
	player.Stop()
	assert.False(t, player.Playing())
}

func TestPlayerBurstSize(t *testing.T) {
	player, gen := newTestPlayer()
	player.SetRepeatPeriod(time.Hour)

	player.Start()
	require.Eventually(t, func() bool { return gen.burstCount() == 1 },
		time.Second, 5*time.Millisecond)
	player.Stop()

	gen.mu.Lock()
	defer gen.mu.Unlock()
	assert.Equal(t, BurstSize, gen.bursts[0], "a burst is a short run of tones")
}

func TestPlayerStaysIdleWhenGeneratorUnavailable(t *testing.T) {
	player := NewNotificationPlayer(func() (ToneGenerator, error) {
		return nil, errors.New("autoplay blocked")
	})

	player.Start()
	assert.False(t, player.Playing(), "audio denial falls back to visual-only")
	assert.False(t, player.Armed())
}

func TestPlayerGeneratorAcquiredOnceAndReused(t *testing.T) {
	calls := 0
	gen := &recordingToneGenerator{}
	player := NewNotificationPlayer(func() (ToneGenerator, error) {
		calls++
		return gen, nil
	})
	player.SetRepeatPeriod(time.Hour)

	require.NoError(t, player.Arm())
	assert.True(t, player.Armed())

	// Several start/stop cycles reuse the same generator
	for i := 0; i < 3; i++ {
		player.Start()
		player.Stop()
	}
	assert.Equal(t, 1, calls, "the tone resource is acquired once and reused")
}

func TestBroadcastToneGenerator(t *testing.T) {
	gen := NewBroadcastToneGenerator()

	ch, cancel := gen.Subscribe()
	gen.Burst(3)

	select {
	case count := <-ch:
		assert.Equal(t, 3, count)
	case <-time.After(time.Second):
		t.Fatal("expected a tone burst on the subscriber channel")
	}

	cancel()
	_, open := <-ch
	assert.False(t, open, "cancel closes the subscriber channel")

	// Bursting with no listeners is harmless
	gen.Burst(3)
}
