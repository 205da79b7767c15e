package timer

import (
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/apolopay/payment-button-go/app/factory"
)

// ZeroDisplay is the terminal countdown string.
const ZeroDisplay = "00:00"

// Countdown ticks at one-second resolution toward an absolute deadline,
// publishing a zero-padded mm:ss string on every tick and firing onExpired
// exactly once when the deadline passes. A new Start always supersedes any
// running countdown; Stop is idempotent.
type Countdown struct {
	mu       sync.Mutex
	stop     chan struct{}
	interval time.Duration
	now      func() time.Time
	logger   logrus.FieldLogger
}

func NewCountdown() *Countdown {
	return &Countdown{
		interval: time.Second,
		now:      time.Now,
		logger:   factory.NewModuleLogger("expiry-timer"),
	}
}

// NewCountdownWithInterval returns a countdown ticking at the given interval
// instead of the one-second default. Non-positive intervals keep the default.
func NewCountdownWithInterval(interval time.Duration) *Countdown {
	c := NewCountdown()
	if interval > 0 {
		c.interval = interval
	}
	return c
}

// Start begins counting down to expiresAtMs (millisecond epoch). An invalid
// or already-past deadline reports ZeroDisplay and expires on the first tick
// instead of ticking forever.
func (c *Countdown) Start(expiresAtMs int64, onTick func(remaining string), onExpired func()) {
	c.mu.Lock()
	c.stopLocked()
	stop := make(chan struct{})
	c.stop = stop
	interval := c.interval
	c.mu.Unlock()

	if expiresAtMs <= 0 {
		c.logger.WithField("expires_at_ms", expiresAtMs).Warn("Invalid expiry deadline")
	}
	deadline := time.UnixMilli(expiresAtMs)

	tick := func() bool {
		remaining := deadline.Sub(c.now())
		if expiresAtMs <= 0 || remaining <= 0 {
			if onTick != nil {
				onTick(ZeroDisplay)
			}
			if onExpired != nil {
				onExpired()
			}
			return false
		}
		if onTick != nil {
			onTick(formatRemaining(remaining))
		}
		return true
	}

	// All ticks, including the first, are delivered off the caller's
	// goroutine so Start can be invoked while holding locks that the tick
	// callbacks take.
	go func() {
		if c.superseded(stop) {
			return
		}
		if !tick() {
			c.clear(stop)
			return
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if c.superseded(stop) {
					return
				}
				if !tick() {
					c.clear(stop)
					return
				}
			}
		}
	}()
}

// Stop cancels any pending ticks. Safe to call when nothing is running.
func (c *Countdown) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
}

func (c *Countdown) stopLocked() {
	if c.stop != nil {
		close(c.stop)
		c.stop = nil
	}
}

// clear releases the countdown only if stop is still the active run, so a
// finished run never cancels a countdown started after it.
func (c *Countdown) clear(stop chan struct{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stop == stop {
		close(c.stop)
		c.stop = nil
	}
}

func (c *Countdown) superseded(stop chan struct{}) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stop != stop
}

// formatRemaining renders a locale-neutral zero-padded mm:ss string, clamped
// at 99:59 for deadlines more than an hour and a half away.
func formatRemaining(d time.Duration) string {
	seconds := int64(d / time.Second)
	if d%time.Second > 0 {
		seconds++
	}
	minutes := seconds / 60
	seconds %= 60
	if minutes > 99 {
		return "99:59"
	}
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}
