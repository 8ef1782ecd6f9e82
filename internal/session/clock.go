package session

import (
	"sync"
	"time"

	"exam-session-service/internal/domain"
)

// Clock emits one tick per interval counting down from a fixed duration.
// Stop must be synchronous: once it returns no further tick is delivered.
type Clock interface {
	Start(durationSeconds int)
	Ticks() <-chan domain.Tick
	Stop()
}

// ClockFactory builds a fresh clock for each session.
type ClockFactory func() Clock

// NewTickerClockFactory returns a factory producing TickerClocks with the given interval.
func NewTickerClockFactory(interval time.Duration) ClockFactory {
	return func() Clock { return NewTickerClock(interval) }
}

// TickerClock is a Clock backed by time.Ticker.
type TickerClock struct {
	interval time.Duration
	ticks    chan domain.Tick

	mu      sync.Mutex
	started bool
	quit    chan struct{}
	done    chan struct{}
}

func NewTickerClock(interval time.Duration) *TickerClock {
	if interval <= 0 {
		interval = time.Second
	}
	return &TickerClock{
		interval: interval,
		// unbuffered so nothing is left in flight after Stop
		ticks: make(chan domain.Tick),
		quit:  make(chan struct{}),
		done:  make(chan struct{}),
	}
}

func (c *TickerClock) Ticks() <-chan domain.Tick {
	return c.ticks
}

// Start begins the countdown. Calling it twice is a no-op.
func (c *TickerClock) Start(durationSeconds int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return
	}
	select {
	case <-c.quit:
		return
	default:
	}
	c.started = true
	go c.run(durationSeconds)
}

func (c *TickerClock) run(durationSeconds int) {
	defer close(c.done)

	if durationSeconds <= 0 {
		c.emit(domain.Tick{Remaining: 0, Expired: true})
		return
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	remaining := durationSeconds
	for remaining > 0 {
		select {
		case <-ticker.C:
		case <-c.quit:
			return
		}
		remaining--
		if !c.emit(domain.Tick{Remaining: remaining, Expired: remaining == 0}) {
			return
		}
	}
}

func (c *TickerClock) emit(t domain.Tick) bool {
	select {
	case c.ticks <- t:
		return true
	case <-c.quit:
		return false
	}
}

// Stop cancels the countdown and waits for the producer to exit. Idempotent.
func (c *TickerClock) Stop() {
	c.mu.Lock()
	select {
	case <-c.quit:
	default:
		close(c.quit)
	}
	started := c.started
	c.mu.Unlock()

	if started {
		<-c.done
	}
}
