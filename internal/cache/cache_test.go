package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/skill-roadmap/internal/types"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func samplePlan() *types.Plan {
	return &types.Plan{
		Title:       "Learn Go",
		Description: "From zero to services",
		Steps: []types.Step{
			{Title: "Syntax", Resources: []string{"Tour of Go"}, ProgressIndicators: []string{"Quiz"}, Dependencies: []string{}},
		},
	}
}

func TestFingerprint(t *testing.T) {
	user := uuid.MustParse("11111111-1111-1111-1111-111111111111")
	skill := uuid.MustParse("22222222-2222-2222-2222-222222222222")

	key := Fingerprint(user, skill, []string{"web", "cli"}, 3, "")
	assert.Equal(t, "roadmap:11111111-1111-1111-1111-111111111111|22222222-2222-2222-2222-222222222222|web|cli|3|default", key)

	assert.Equal(t, key, Fingerprint(user, skill, []string{"web", "cli"}, 3, "default"))
	assert.NotEqual(t, key, Fingerprint(user, skill, []string{"cli", "web"}, 3, ""), "goal order matters")
	assert.NotEqual(t, key, Fingerprint(user, skill, []string{"web", "cli"}, 6, ""))
	assert.NotEqual(t, key, Fingerprint(user, skill, []string{"web", "cli"}, 3, "visual"))
	assert.NotEqual(t, key, Fingerprint(uuid.New(), skill, []string{"web", "cli"}, 3, ""))
}

func TestFingerprintRequest(t *testing.T) {
	user := uuid.New()
	req := &types.GenerateRequest{SkillID: uuid.New(), Goals: []string{"apis"}, Timeframe: 2}
	assert.Equal(t, Fingerprint(user, req.SkillID, req.Goals, 2, "default"), FingerprintRequest(user, req))
}

func TestMemoryCache_GetPutRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()

	_, ok := c.Get(ctx, "missing")
	assert.False(t, ok)

	plan := samplePlan()
	c.Put(ctx, "k", plan)

	got, ok := c.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, plan, got)

	// Mutating the returned copy never leaks into the cache
	got.Steps[0].Title = "changed"
	got.Steps[0].Resources[0] = "changed"
	again, _ := c.Get(ctx, "k")
	assert.Equal(t, "Syntax", again.Steps[0].Title)
	assert.Equal(t, "Tour of Go", again.Steps[0].Resources[0])

	// Nor does mutating the original after Put
	plan.Title = "mutated"
	again, _ = c.Get(ctx, "k")
	assert.Equal(t, "Learn Go", again.Title)
}

func TestMemoryCache_TTLExpiry(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewMemoryCache(WithClock(clock.Now))

	c.Put(ctx, "k", samplePlan())

	clock.Advance(DefaultTTL)
	_, ok := c.Get(ctx, "k")
	assert.True(t, ok, "entry is live at exactly the TTL")

	clock.Advance(time.Second)
	_, ok = c.Get(ctx, "k")
	assert.False(t, ok, "entry is dead before any sweep runs")
	assert.Equal(t, 1, c.Len())

	assert.Equal(t, 1, c.Sweep())
	assert.Equal(t, 0, c.Len())
}

func TestMemoryCache_PutResetsAge(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Now()}
	c := NewMemoryCache(WithClock(clock.Now), WithTTL(time.Hour))

	c.Put(ctx, "k", samplePlan())
	clock.Advance(50 * time.Minute)
	c.Put(ctx, "k", samplePlan())
	clock.Advance(50 * time.Minute)

	_, ok := c.Get(ctx, "k")
	assert.True(t, ok)
}

func TestMemoryCache_SweepKeepsLiveEntries(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Now()}
	c := NewMemoryCache(WithClock(clock.Now), WithTTL(time.Hour))

	c.Put(ctx, "old", samplePlan())
	clock.Advance(2 * time.Hour)
	c.Put(ctx, "new", samplePlan())

	assert.Equal(t, 1, c.Sweep())
	_, ok := c.Get(ctx, "new")
	assert.True(t, ok)
}

func TestMemoryCache_BackgroundSweep(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Now()}
	c := NewMemoryCache(WithClock(clock.Now), WithTTL(time.Minute), WithSweepInterval(5*time.Millisecond))

	c.Put(ctx, "k", samplePlan())
	clock.Advance(2 * time.Minute)

	c.Start()
	c.Start()
	defer c.Stop()

	assert.Eventually(t, func() bool { return c.Len() == 0 }, time.Second, 5*time.Millisecond)
}

func TestMemoryCache_StopIsIdempotent(t *testing.T) {
	c := NewMemoryCache()
	c.Stop()
	c.Start()
	c.Stop()
	c.Stop()
}

func TestMemoryCache_RunStopsWithContext(t *testing.T) {
	c := NewMemoryCache(WithSweepInterval(time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestMemoryCache_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Put(ctx, "k", samplePlan())
			_, _ = c.Get(ctx, "k")
			c.Sweep()
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, c.Len())
}
