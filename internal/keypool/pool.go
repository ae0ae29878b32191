package keypool

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrUnavailable is returned by Acquire when every key is in cooldown.
// Callers should back off briefly and retry within their own deadline.
var ErrUnavailable = errors.New("keypool: all keys cooling down")

// Key is one credential for the quota-metered source. The pool owns all
// mutable state; callers only see value copies.
type Key struct {
	ID            string
	Secret        string
	Calls         int
	CycleResetAt  time.Time
	CooldownUntil time.Time
}

// InCooldown reports whether the key is withheld from rotation at t.
func (k Key) InCooldown(t time.Time) bool {
	return t.Before(k.CooldownUntil)
}

// Pool rotates a fixed set of API keys, tracking per-key usage and pushing
// quota-exhausted keys into cooldown. All methods share one critical section
// so concurrent callers never see a torn cooldown state.
type Pool struct {
	mu       sync.Mutex
	keys     []*Key
	next     int
	cooldown time.Duration
	cycle    time.Duration
	now      func() time.Time
}

// Option configures a Pool.
type Option func(*Pool)

// WithCooldown overrides the default cooldown window.
func WithCooldown(d time.Duration) Option {
	return func(p *Pool) { p.cooldown = d }
}

// WithQuotaCycle overrides the usage-counter reset period.
func WithQuotaCycle(d time.Duration) Option {
	return func(p *Pool) { p.cycle = d }
}

// WithClock injects a clock for tests.
func WithClock(now func() time.Time) Option {
	return func(p *Pool) { p.now = now }
}

const (
	defaultCooldown = 10 * time.Minute
	defaultCycle    = 24 * time.Hour
)

// New builds a pool over the given ordered secrets. Key IDs are assigned by
// position so logs never carry the secret itself.
func New(secrets []string, opts ...Option) (*Pool, error) {
	if len(secrets) == 0 {
		return nil, errors.New("keypool: at least one key is required")
	}

	p := &Pool{
		cooldown: defaultCooldown,
		cycle:    defaultCycle,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}

	for i, s := range secrets {
		p.keys = append(p.keys, &Key{
			ID:           keyID(i),
			Secret:       s,
			CycleResetAt: p.now().Add(p.cycle),
		})
	}
	return p, nil
}

func keyID(i int) string {
	return fmt.Sprintf("key-%d", i+1)
}

// Acquire returns the first key not in cooldown, scanning from a rotating
// start index so load spreads evenly. The rotation pointer advances on every
// call regardless of outcome. Returns ErrUnavailable when all keys cool down.
func (p *Pool) Acquire() (Key, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	start := p.next
	p.next = (p.next + 1) % len(p.keys)

	for i := 0; i < len(p.keys); i++ {
		k := p.keys[(start+i)%len(p.keys)]
		p.maybeResetCycle(k, now)
		if k.InCooldown(now) {
			continue
		}
		k.Calls++
		return *k, nil
	}
	return Key{}, ErrUnavailable
}

// ReportSuccess records a successful call on the key. Usage was already
// counted at Acquire and a cooldown expires only by the clock, so there is
// nothing to mutate: a key reported exhausted stays out of rotation for its
// full window even when another holder's in-flight call lands fine.
func (p *Pool) ReportSuccess(id string) {}

// ReportExhaustion places the key in cooldown until now+cooldown, or for the
// source's hinted retry interval when one is provided.
func (p *Pool) ReportExhaustion(id string, retryAfter time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	k := p.lookup(id)
	if k == nil {
		return
	}
	d := p.cooldown
	if retryAfter > 0 {
		d = retryAfter
	}
	k.CooldownUntil = p.now().Add(d)
}

// Stats reports per-key call counts and how many keys are currently cooling.
func (p *Pool) Stats() (calls map[string]int, cooling int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	calls = make(map[string]int, len(p.keys))
	for _, k := range p.keys {
		calls[k.ID] = k.Calls
		if k.InCooldown(now) {
			cooling++
		}
	}
	return calls, cooling
}

// Size returns the number of keys in the pool.
func (p *Pool) Size() int {
	return len(p.keys)
}

// cooldown and the usage cycle run on independent clocks: a key can reset its
// counter while still cooling down.
func (p *Pool) maybeResetCycle(k *Key, now time.Time) {
	if !now.Before(k.CycleResetAt) {
		k.Calls = 0
		k.CycleResetAt = now.Add(p.cycle)
	}
}

func (p *Pool) lookup(id string) *Key {
	for _, k := range p.keys {
		if k.ID == id {
			return k
		}
	}
	return nil
}
