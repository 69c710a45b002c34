package services_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"pos-payment-service/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLocker_MutualExclusion(t *testing.T) {
	l := services.NewMemoryLocker()

	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := l.Lock(context.Background(), "table-1")
			if !assert.NoError(t, err) {
				return
			}
			defer unlock()

			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInside)
}

func TestMemoryLocker_IndependentSessions(t *testing.T) {
	l := services.NewMemoryLocker()

	unlockA, err := l.Lock(context.Background(), "table-1")
	require.NoError(t, err)
	defer unlockA()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	unlockB, err := l.Lock(ctx, "table-2")
	require.NoError(t, err)
	unlockB()
}

func TestMemoryLocker_ContextCancelled(t *testing.T) {
	l := services.NewMemoryLocker()

	unlock, err := l.Lock(context.Background(), "table-1")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, "table-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// release is idempotent and the key can be taken again
	unlock()
	unlock()
	again, err := l.Lock(context.Background(), "table-1")
	require.NoError(t, err)
	again()
}
