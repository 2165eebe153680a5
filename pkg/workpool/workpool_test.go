package workpool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestDo_ReturnsResult(t *testing.T) {
	defer goleak.VerifyNone(t)
	p := New(2)

	v, err := Do(context.Background(), p, func() (int, error) { return 42, nil })
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	boom := errors.New("boom")
	_, err = Do(context.Background(), p, func() (string, error) { return "", boom })
	assert.ErrorIs(t, err, boom)
}

func TestDo_BoundsConcurrency(t *testing.T) {
	defer goleak.VerifyNone(t)
	p := New(3)

	var running, peak atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := Do(context.Background(), p, func() (struct{}, error) {
				n := running.Add(1)
				for {
					old := peak.Load()
					if n <= old || peak.CompareAndSwap(old, n) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				running.Add(-1)
				return struct{}{}, nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, peak.Load(), int32(3))
	assert.Equal(t, 3, p.Size())
}

func TestDo_CallerCancellation(t *testing.T) {
	defer goleak.VerifyNone(t)
	p := New(1)

	release := make(chan struct{})
	finished := make(chan struct{})
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	_, err := Do(ctx, p, func() (int, error) {
		<-release
		close(finished)
		return 1, nil
	})
	assert.ErrorIs(t, err, context.Canceled)

	// The abandoned job keeps its worker until it completes.
	_, err = Do(ctx, p, func() (int, error) { return 2, nil })
	assert.ErrorIs(t, err, context.Canceled)

	close(release)
	<-finished
	v, err := Do(context.Background(), p, func() (int, error) { return 3, nil })
	require.NoError(t, err)
	assert.Equal(t, 3, v)
}

func TestNew_DefaultSize(t *testing.T) {
	assert.Positive(t, New(0).Size())
}
