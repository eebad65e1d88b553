package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTTLCacheExpires(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c := newTTLCache[string, string](func() time.Time { return now })

	c.Set("id", "https://rdap.pandi.id/rdap/", time.Minute)
	got, ok := c.Get("id")
	assert.True(t, ok)
	assert.Equal(t, "https://rdap.pandi.id/rdap/", got)

	now = now.Add(time.Minute)
	_, ok = c.Get("id")
	assert.False(t, ok)
	assert.Empty(t, c.entries)
}

func TestTTLCacheIgnoresNonPositiveTTL(t *testing.T) {
	c := NewTTLCache[string, int]()
	c.Set("a", 1, 0)
	_, ok := c.Get("a")
	assert.False(t, ok)

	c.Set("b", 2, time.Hour)
	c.Delete("b")
	_, ok = c.Get("b")
	assert.False(t, ok)

	c.Set("c", 3, time.Hour)
	c.Purge()
	_, ok = c.Get("c")
	assert.False(t, ok)
}

func TestTTLCacheWithClock(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewTTLCacheWithClock[string, int](func() time.Time { return now })

	c.Set("a", 1, time.Hour)
	now = now.Add(59 * time.Minute)
	_, ok := c.Get("a")
	assert.True(t, ok)

	now = now.Add(time.Minute)
	_, ok = c.Get("a")
	assert.False(t, ok)
}

func TestKey(t *testing.T) {
	assert.Equal(t, "com|example", Key(" COM ", "", "Example"))
}
