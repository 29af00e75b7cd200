package cache

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.t = f.t.Add(d)
	f.mu.Unlock()
}

func TestEntryLifecycle(t *testing.T) {
	clk := &fakeClock{t: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)}
	c := New(5 * time.Minute).WithClock(clk.Now)

	assert.Equal(t, Absent, c.State("values|alugueis"))

	c.Set("values|alugueis", 42)
	assert.Equal(t, Fresh, c.State("values|alugueis"))
	v, ok := c.Get("values|alugueis")
	require.True(t, ok)
	assert.Equal(t, 42, v)

	clk.Advance(5 * time.Minute)
	assert.Equal(t, Stale, c.State("values|alugueis"))

	_, ok = c.Get("values|alugueis")
	assert.False(t, ok)
	assert.Equal(t, Absent, c.State("values|alugueis"))
}

func TestInvalidateBySubstring(t *testing.T) {
	c := New(time.Minute)
	c.Set("values|alugueis", 1)
	c.Set("values|transacoes", 2)
	c.Set("fetch_month|alugueis,transacoes|2025-03", 3)
	c.Set("next_id|transacoes", 4)
	c.Set("summary|alugueis,transacoes|2025-03", 5)

	n := c.Invalidate("alugueis", "next_id", "summary")
	assert.Equal(t, 4, n)
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, Fresh, c.State("values|transacoes"))
	assert.Equal(t, Absent, c.State("next_id|transacoes"))
}

func TestInvalidateIgnoresEmptySubstring(t *testing.T) {
	c := New(time.Minute)
	c.Set("a", 1)
	assert.Zero(t, c.Invalidate(""))
	assert.Equal(t, 1, c.Len())
}

func TestSetIfGenDropsValuesReadBeforeInvalidate(t *testing.T) {
	c := New(time.Minute)

	gen := c.Gen()
	c.Invalidate("alugueis")
	assert.False(t, c.SetIfGen("values|alugueis", "old rows", gen))
	assert.Equal(t, Absent, c.State("values|alugueis"))

	gen = c.Gen()
	assert.True(t, c.SetIfGen("values|alugueis", "new rows", gen))
	v, ok := c.Get("values|alugueis")
	require.True(t, ok)
	assert.Equal(t, "new rows", v)

	gen = c.Gen()
	c.Clear()
	assert.False(t, c.SetIfGen("values|alugueis", "old rows", gen))
}

func TestZeroTTLDisablesCaching(t *testing.T) {
	c := New(0)
	c.Set("k", 1)
	_, ok := c.Get("k")
	assert.False(t, ok)
	assert.Zero(t, c.Len())
}

func TestConcurrentAccess(t *testing.T) {
	c := New(time.Minute)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c.Set("k", i)
			c.Get("k")
			c.Invalidate("k")
		}(i)
	}
	wg.Wait()
	assert.LessOrEqual(t, c.Len(), 1)
}
