package ticclrun

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveThreads(t *testing.T) {
	n, err := ResolveThreads("")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = ResolveThreads("4")
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	n, err = ResolveThreads("max")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, 1)

	_, err = ResolveThreads("0")
	assert.Error(t, err)
	_, err = ResolveThreads("lots")
	assert.Error(t, err)
}

func TestPoolSliceCoversEveryIndexExactlyOnce(t *testing.T) {
	pool := New(3)
	var mu sync.Mutex
	hits := make([]int, 10)
	err := pool.Slice(context.Background(), 10, func(ctx context.Context, worker, lo, hi int) error {
		mu.Lock()
		defer mu.Unlock()
		for i := lo; i < hi; i++ {
			hits[i]++
		}
		return nil
	})
	require.NoError(t, err)
	for i, h := range hits {
		assert.Equal(t, 1, h, "index %d", i)
	}
}

func TestPoolSliceMoreWorkersThanItems(t *testing.T) {
	pool := New(8)
	var mu sync.Mutex
	hits := make([]int, 3)
	err := pool.Slice(context.Background(), 3, func(ctx context.Context, worker, lo, hi int) error {
		mu.Lock()
		defer mu.Unlock()
		for i := lo; i < hi; i++ {
			hits[i]++
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 1, 1}, hits)
}

func TestPoolSliceSurfacesWorkerError(t *testing.T) {
	pool := New(2)
	boom := errors.New("boom")
	err := pool.Slice(context.Background(), 4, func(ctx context.Context, worker, lo, hi int) error {
		if lo == 0 {
			return boom
		}
		return nil
	})
	assert.ErrorIs(t, err, boom)
}

func TestPoolSliceEmptyInput(t *testing.T) {
	pool := New(2)
	called := false
	err := pool.Slice(context.Background(), 0, func(ctx context.Context, worker, lo, hi int) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.False(t, called)
}
