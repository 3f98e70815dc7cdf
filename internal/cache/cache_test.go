package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheSetGet(t *testing.T) {
	c := New()
	c.Set("cov", "abc", []byte("payload"), time.Minute)

	data, ok := c.Get("cov", "abc")
	require.True(t, ok)
	assert.Equal(t, []byte("payload"), data)

	_, ok = c.Get("cov", "missing")
	assert.False(t, ok)
}

func TestCacheSectionsAreIndependent(t *testing.T) {
	c := New()
	c.Set("cov", "k", []byte("a"), time.Minute)
	c.Set("risk", "k", []byte("b"), time.Minute)

	data, ok := c.Get("risk", "k")
	require.True(t, ok)
	assert.Equal(t, []byte("b"), data)

	c.Invalidate("risk")
	_, ok = c.Get("risk", "k")
	assert.False(t, ok)
	_, ok = c.Get("cov", "k")
	assert.True(t, ok)
}

func TestCacheExpiry(t *testing.T) {
	c := New()
	now := time.Now()
	c.now = func() time.Time { return now }

	c.Set("cov", "k", []byte("v"), 60*time.Second)

	now = now.Add(59 * time.Second)
	_, ok := c.Get("cov", "k")
	assert.True(t, ok)

	now = now.Add(2 * time.Second)
	_, ok = c.Get("cov", "k")
	assert.False(t, ok)
}

func TestCacheEvictsOldestWhenFull(t *testing.T) {
	c := NewWithCapacity(3)
	now := time.Now()
	c.now = func() time.Time { return now }

	// "old" expires first, so it is the eviction candidate.
	c.Set("s", "old", []byte("0"), time.Minute)
	for i := 1; i < 3; i++ {
		c.Set("s", fmt.Sprintf("k%d", i), []byte("v"), time.Hour)
	}
	c.Set("s", "new", []byte("v"), time.Hour)

	assert.Equal(t, 3, c.Len())
	_, ok := c.Get("s", "old")
	assert.False(t, ok)
	_, ok = c.Get("s", "new")
	assert.True(t, ok)
}
