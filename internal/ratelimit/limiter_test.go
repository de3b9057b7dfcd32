package ratelimit

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func TestAllow_WindowLimit(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	l := New(3, time.Second, WithClock(clock.Now))

	for i := 0; i < 3; i++ {
		require.True(t, l.Allow("x"), "call %d should pass", i+1)
		clock.Advance(100 * time.Millisecond)
	}
	assert.False(t, l.Allow("x"), "4th call inside the window must be rejected")

	// first call was at t0; 1001ms after it the oldest entry falls out
	clock.Advance(1001*time.Millisecond - 300*time.Millisecond)
	assert.True(t, l.Allow("x"))
}

func TestAllow_KeysAreIndependent(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	l := New(1, time.Minute, WithClock(clock.Now))

	assert.True(t, l.Allow("/experience"))
	assert.False(t, l.Allow("/experience"))
	assert.True(t, l.Allow("/holiday/get-holiday-package/"))
}

func TestReset(t *testing.T) {
	l := New(1, time.Minute)
	require.True(t, l.Allow("k"))
	require.False(t, l.Allow("k"))

	l.Reset("k")
	assert.True(t, l.Allow("k"))
}

func TestRemaining(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	l := New(3, time.Second, WithClock(clock.Now))

	assert.Equal(t, 3, l.Remaining("k"))
	l.Allow("k")
	l.Allow("k")
	assert.Equal(t, 1, l.Remaining("k"))

	clock.Advance(2 * time.Second)
	assert.Equal(t, 3, l.Remaining("k"))
}

func TestNew_Defaults(t *testing.T) {
	l := New(0, 0)
	assert.Equal(t, DefaultMaxRequests, l.maxRequests)
	assert.Equal(t, DefaultWindow, l.window)
}

func TestAllow_Concurrent(t *testing.T) {
	l := New(50, time.Hour)
	var wg sync.WaitGroup
	var mu sync.Mutex
	admitted := 0
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Allow("shared") {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, admitted)
}
