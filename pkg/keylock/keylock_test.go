package keylock

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestMap_SerialisesSameKey(t *testing.T) {
	m := New[uint]()
	counter := 0

	var g errgroup.Group
	for i := 0; i < 50; i++ {
		g.Go(func() error {
			unlock, err := m.Lock(context.Background(), 1)
			if err != nil {
				return err
			}
			defer unlock()
			v := counter
			time.Sleep(time.Microsecond)
			counter = v + 1
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, 50, counter)
	assert.Equal(t, 0, m.Len())
}

func TestMap_DifferentKeysDoNotBlock(t *testing.T) {
	m := New[uint]()

	unlockA, err := m.Lock(context.Background(), 1)
	require.NoError(t, err)
	defer unlockA()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	unlockB, err := m.Lock(ctx, 2)
	require.NoError(t, err)
	unlockB()
}

func TestMap_ContextCancelWhileWaiting(t *testing.T) {
	m := New[string]()

	unlock, err := m.Lock(context.Background(), "book")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = m.Lock(ctx, "book")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	unlock()
	unlock() // second call is a no-op
	assert.Equal(t, 0, m.Len())
}

func TestMap_UnlockWakesWaiter(t *testing.T) {
	m := New[int]()
	unlock, err := m.Lock(context.Background(), 7)
	require.NoError(t, err)

	var wg sync.WaitGroup
	acquired := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		u, err := m.Lock(context.Background(), 7)
		if err == nil {
			close(acquired)
			u()
		}
	}()

	select {
	case <-acquired:
		t.Fatal("waiter acquired a held key")
	case <-time.After(20 * time.Millisecond):
	}

	unlock()
	wg.Wait()
	<-acquired
}
