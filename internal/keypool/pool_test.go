package keypool

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestNewRequiresKeys(t *testing.T) {
	t.Parallel()

	_, err := New(nil)
	assert.Error(t, err)
}

func TestAcquireRotatesFairly(t *testing.T) {
	t.Parallel()

	pool, err := New([]string{"s1", "s2", "s3"})
	require.NoError(t, err)

	const rounds = 10
	counts := make(map[string]int)
	for i := 0; i < rounds*3; i++ {
		key, err := pool.Acquire()
		require.NoError(t, err)
		counts[key.ID]++
	}

	// K keys, M acquisitions: each key lands between floor(M/K) and ceil(M/K).
	for id, n := range counts {
		assert.Equal(t, rounds, n, "key %s", id)
	}
}

func TestAcquireSkipsCooldownKeys(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	pool, err := New([]string{"s1", "s2"}, WithClock(clock.Now), WithCooldown(10*time.Minute))
	require.NoError(t, err)

	first, err := pool.Acquire()
	require.NoError(t, err)
	pool.ReportExhaustion(first.ID, 0)

	for i := 0; i < 4; i++ {
		key, err := pool.Acquire()
		require.NoError(t, err)
		assert.NotEqual(t, first.ID, key.ID)
	}

	// Eligible again once the window passes.
	clock.Advance(10*time.Minute + time.Second)
	seen := make(map[string]bool)
	for i := 0; i < 2; i++ {
		key, err := pool.Acquire()
		require.NoError(t, err)
		seen[key.ID] = true
	}
	assert.True(t, seen[first.ID])
}

func TestAcquireReturnsUnavailableWhenAllCooling(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	pool, err := New([]string{"s1", "s2"}, WithClock(clock.Now))
	require.NoError(t, err)

	pool.ReportExhaustion("key-1", 0)
	pool.ReportExhaustion("key-2", 0)

	_, err = pool.Acquire()
	assert.ErrorIs(t, err, ErrUnavailable)

	_, cooling := pool.Stats()
	assert.Equal(t, 2, cooling)
}

func TestReportExhaustionHonorsRetryAfterHint(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	pool, err := New([]string{"s1"}, WithClock(clock.Now), WithCooldown(10*time.Minute))
	require.NoError(t, err)

	pool.ReportExhaustion("key-1", 30*time.Second)

	_, err = pool.Acquire()
	assert.ErrorIs(t, err, ErrUnavailable)

	clock.Advance(31 * time.Second)
	key, err := pool.Acquire()
	require.NoError(t, err)
	assert.Equal(t, "key-1", key.ID)
}

func TestReportSuccessKeepsCooldown(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	pool, err := New([]string{"s1"}, WithClock(clock.Now), WithCooldown(10*time.Minute))
	require.NoError(t, err)

	// Two holders of the same key: one hits the quota wall while the
	// other's in-flight call still lands.
	first, err := pool.Acquire()
	require.NoError(t, err)
	second, err := pool.Acquire()
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)

	pool.ReportExhaustion(first.ID, 0)
	pool.ReportSuccess(second.ID)

	// The success must not shortcut the cooldown window.
	clock.Advance(time.Second)
	_, err = pool.Acquire()
	assert.ErrorIs(t, err, ErrUnavailable)

	clock.Advance(10 * time.Minute)
	key, err := pool.Acquire()
	require.NoError(t, err)
	assert.Equal(t, first.ID, key.ID)
}

func TestUsageCountersResetAfterQuotaCycle(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	pool, err := New([]string{"s1"}, WithClock(clock.Now), WithQuotaCycle(24*time.Hour))
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, err := pool.Acquire()
		require.NoError(t, err)
	}
	calls, _ := pool.Stats()
	assert.Equal(t, 5, calls["key-1"])

	clock.Advance(25 * time.Hour)
	_, err = pool.Acquire()
	require.NoError(t, err)

	calls, _ = pool.Stats()
	assert.Equal(t, 1, calls["key-1"])
}

func TestCooldownAndCycleAreIndependent(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	pool, err := New([]string{"s1"},
		WithClock(clock.Now), WithCooldown(48*time.Hour), WithQuotaCycle(24*time.Hour))
	require.NoError(t, err)

	_, err = pool.Acquire()
	require.NoError(t, err)
	pool.ReportExhaustion("key-1", 0)

	// The cycle boundary passes while the key is still cooling.
	clock.Advance(25 * time.Hour)
	_, err = pool.Acquire()
	assert.ErrorIs(t, err, ErrUnavailable)

	calls, _ := pool.Stats()
	assert.Equal(t, 0, calls["key-1"])
}

func TestConcurrentAcquireIsSafe(t *testing.T) {
	t.Parallel()

	pool, err := New([]string{"s1", "s2", "s3", "s4"})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key, err := pool.Acquire()
				if err != nil {
					continue
				}
				if j%10 == 0 {
					pool.ReportExhaustion(key.ID, time.Millisecond)
				} else {
					pool.ReportSuccess(key.ID)
				}
			}
		}()
	}
	wg.Wait()

	calls, _ := pool.Stats()
	total := 0
	for _, n := range calls {
		total += n
	}
	assert.Greater(t, total, 0)
}
