package binder

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCallRoundTrip(t *testing.T) {
	svc := NewService[int, int](func(q int) int { return q * 2 }, 4)
	defer svc.Shutdown()

	b := svc.Bind()
	r, err := b.Call(21)
	require.NoError(t, err)
	require.Equal(t, 42, r)
}

func TestManyClientsFanIn(t *testing.T) {
	var mu sync.Mutex
	seen := make(map[int]bool)
	svc := NewService[int, int](func(q int) int {
		mu.Lock()
		seen[q] = true
		mu.Unlock()
		return q
	}, 8)
	defer svc.Shutdown()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			b := svc.Bind()
			r, err := b.Call(i)
			require.NoError(t, err)
			require.Equal(t, i, r)
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seen, 100)
}

func TestUnbindMakesCallFail(t *testing.T) {
	svc := NewService[int, int](func(q int) int { return q }, 1)
	defer svc.Shutdown()

	b := svc.Bind()
	require.True(t, b.IsAlive())
	b.Unbind()
	require.False(t, b.IsAlive())

	_, err := b.Call(1)
	require.ErrorIs(t, err, ErrNotAlive)
}

func TestShutdownOrphansAllClients(t *testing.T) {
	svc := NewService[int, int](func(q int) int { return q }, 1)
	b1 := svc.Bind()
	b2 := svc.Bind()

	svc.Shutdown()

	require.False(t, b1.IsAlive())
	require.False(t, b2.IsAlive())
	_, err := b1.Call(1)
	require.ErrorIs(t, err, ErrNotAlive)
}
