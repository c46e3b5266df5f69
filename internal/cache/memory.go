package cache

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jonathan/skill-roadmap/internal/types"
)

// Default lifetimes of the in-memory cache.
const (
	DefaultTTL           = 24 * time.Hour
	DefaultSweepInterval = time.Hour
)

type entry struct {
	plan       *types.Plan
	insertedAt time.Time
}

// MemoryCache is a process-local Cache with lazy expiry on read and a
// background sweep that drops dead entries.
type MemoryCache struct {
	entries map[string]entry
	mu      sync.RWMutex

	ttl           time.Duration
	sweepInterval time.Duration
	now           func() time.Time
	logger        *slog.Logger

	sweepTicker *time.Ticker
	sweepStop   chan struct{}
	sweepDone   chan struct{}
	lifecycleMu sync.Mutex
}

// Option configures a MemoryCache.
type Option func(*MemoryCache)

// WithTTL sets how long an entry stays live.
func WithTTL(ttl time.Duration) Option {
	return func(c *MemoryCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithSweepInterval sets how often the background sweep runs.
func WithSweepInterval(interval time.Duration) Option {
	return func(c *MemoryCache) {
		if interval > 0 {
			c.sweepInterval = interval
		}
	}
}

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) Option {
	return func(c *MemoryCache) {
		c.now = now
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *MemoryCache) {
		c.logger = logger
	}
}

// NewMemoryCache creates an empty cache. Call Start to enable the background sweep.
func NewMemoryCache(opts ...Option) *MemoryCache {
	c := &MemoryCache{
		entries:       make(map[string]entry),
		ttl:           DefaultTTL,
		sweepInterval: DefaultSweepInterval,
		now:           time.Now,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns a copy of the live plan stored under key.
func (c *MemoryCache) Get(_ context.Context, key string) (*types.Plan, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || c.expired(e) {
		return nil, false
	}
	return e.plan.Clone(), true
}

// Put stores a copy of plan under key.
func (c *MemoryCache) Put(_ context.Context, key string, plan *types.Plan) {
	if plan == nil {
		return
	}

	c.mu.Lock()
	c.entries[key] = entry{plan: plan.Clone(), insertedAt: c.now()}
	c.mu.Unlock()
}

// Len reports the number of stored entries, dead or alive.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Sweep removes every expired entry and returns how many were removed.
func (c *MemoryCache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, e := range c.entries {
		if c.expired(e) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Start launches the background sweep. Calling Start twice is a no-op.
func (c *MemoryCache) Start() {
	c.lifecycleMu.Lock()
	defer c.lifecycleMu.Unlock()

	if c.sweepStop != nil {
		return
	}
	c.sweepTicker = time.NewTicker(c.sweepInterval)
	c.sweepStop = make(chan struct{})
	c.sweepDone = make(chan struct{})
	go c.sweepLoop(c.sweepTicker, c.sweepStop, c.sweepDone)
}

// Stop ends the background sweep and waits for it to exit.
func (c *MemoryCache) Stop() {
	c.lifecycleMu.Lock()
	defer c.lifecycleMu.Unlock()

	if c.sweepStop == nil {
		return
	}
	c.sweepTicker.Stop()
	close(c.sweepStop)
	<-c.sweepDone
	c.sweepTicker, c.sweepStop, c.sweepDone = nil, nil, nil
}

// Run starts the sweep and blocks until ctx is done.
func (c *MemoryCache) Run(ctx context.Context) error {
	c.Start()
	<-ctx.Done()
	c.Stop()
	return nil
}

func (c *MemoryCache) sweepLoop(ticker *time.Ticker, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	for {
		select {
		case <-ticker.C:
			if removed := c.Sweep(); removed > 0 {
				c.logger.Debug("Swept expired roadmap cache entries", "removed", removed)
			}
		case <-stop:
			return
		}
	}
}

func (c *MemoryCache) expired(e entry) bool {
	return c.now().Sub(e.insertedAt) > c.ttl
}
