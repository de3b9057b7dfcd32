package checkout

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultHoldSeconds is the length of the reservation hold countdown.
const DefaultHoldSeconds = 900

// Hold is the reservation hold countdown. It only informs the customer; it
// never blocks or cancels the checkout when it reaches zero.
type Hold struct {
	remaining atomic.Int64
	tick      time.Duration
	log       *slog.Logger

	stopOnce sync.Once
	stop     chan struct{}
}

type HoldOption func(*Hold)

// WithTick changes the tick period (one second by default).
func WithTick(d time.Duration) HoldOption {
	return func(h *Hold) {
		if d > 0 {
			h.tick = d
		}
	}
}

func WithHoldLogger(l *slog.Logger) HoldOption {
	return func(h *Hold) { h.log = l }
}

func NewHold(seconds int, opts ...HoldOption) *Hold {
	if seconds < 0 {
		seconds = 0
	}
	h := &Hold{tick: time.Second, log: slog.Default(), stop: make(chan struct{})}
	h.remaining.Store(int64(seconds))
	for _, o := range opts {
		o(h)
	}
	return h
}

// Run decrements the countdown once per tick until it reaches zero, Stop is
// called or ctx is done.
func (h *Hold) Run(ctx context.Context) error {
	t := time.NewTicker(h.tick)
	defer t.Stop()

	for h.Remaining() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-h.stop:
			return nil
		case <-t.C:
			if h.decrement() == 0 {
				h.log.Info("reservation hold elapsed")
			}
		}
	}
	return nil
}

func (h *Hold) decrement() int64 {
	for {
		cur := h.remaining.Load()
		if cur <= 0 {
			return 0
		}
		if h.remaining.CompareAndSwap(cur, cur-1) {
			return cur - 1
		}
	}
}

// Remaining is the number of seconds left, never negative.
func (h *Hold) Remaining() int {
	return int(h.remaining.Load())
}

func (h *Hold) Expired() bool { return h.Remaining() == 0 }

// Stop freezes the countdown. It is safe to call more than once.
func (h *Hold) Stop() {
	h.stopOnce.Do(func() { close(h.stop) })
}
