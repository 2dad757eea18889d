package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreIncr(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		got, err := s.Incr(ctx, "203.0.113.1", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	// Independent keys keep independent counts.
	got, err := s.Incr(ctx, "203.0.113.2", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got)
}

func TestMemoryStoreWindowReset(t *testing.T) {
	s := NewMemoryStore()
	now := time.Now()
	s.now = func() time.Time { return now }

	ctx := context.Background()
	_, err := s.Incr(ctx, "ip", time.Minute)
	require.NoError(t, err)
	_, err = s.Incr(ctx, "ip", time.Minute)
	require.NoError(t, err)

	// Advance past the window; the counter starts over.
	now = now.Add(2 * time.Minute)
	got, err := s.Incr(ctx, "ip", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got)
}

func TestMemoryStoreConcurrent(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	const workers = 8
	const perWorker = 50

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				_, err := s.Incr(ctx, "shared", time.Minute)
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	got, err := s.Incr(ctx, "shared", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(workers*perWorker+1), got)
}
