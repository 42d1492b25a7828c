package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledger/internal/log"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func TestLRUCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRUCache[int](2, time.Hour)
	c.Set("a", 1)
	c.Set("b", 2)
	_, ok := c.Get("a")
	require.True(t, ok)

	c.Set("c", 3)
	assert.Equal(t, 2, c.Size())
	_, ok = c.Get("b")
	assert.False(t, ok, "b was least recently used")
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)
}

func TestLRUCache_TTL(t *testing.T) {
	clk := &clock{t: time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)}
	c := NewLRUCacheWithClock[string](10, time.Minute, clk.now)
	c.Set("a", "x")
	c.Set("b", "y")

	clk.t = clk.t.Add(30 * time.Second)
	c.Set("b", "z")

	clk.t = clk.t.Add(45 * time.Second)
	_, ok := c.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 1, c.Size(), "Get drops the expired entry")

	clk.t = clk.t.Add(time.Minute)
	assert.Equal(t, 1, c.CleanExpired())
	assert.Zero(t, c.Size())
}

func TestLRUCache_Delete(t *testing.T) {
	c := NewLRUCache[struct{}](4, time.Hour)
	c.Set("a", struct{}{})
	c.Delete("a")
	c.Delete("missing")
	assert.Zero(t, c.Size())
}

func TestManager_Sweep(t *testing.T) {
	clk := &clock{t: time.Unix(0, 0)}
	a := NewLRUCacheWithClock[int](10, time.Second, clk.now)
	b := NewLRUCacheWithClock[int](10, time.Hour, clk.now)
	a.Set("1", 1)
	a.Set("2", 2)
	b.Set("3", 3)

	m := NewManager(log.Discard())
	m.Register(a)
	m.Register(b)

	clk.t = clk.t.Add(time.Minute)
	assert.Equal(t, 2, m.Sweep())
	assert.Equal(t, 1, b.Size())
}

func TestManager_StopIsIdempotent(t *testing.T) {
	m := NewManager(log.Discard())
	m.Stop()
	m.Stop()

	started := NewManager(nil)
	started.StartCleanup(time.Millisecond)
	started.Stop()
	started.Stop()
}
