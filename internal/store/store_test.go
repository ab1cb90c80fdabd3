package store_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unclebandit/coldmail-backend/internal/store"
)

func TestMemoryGetSet(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()

	_, err := s.Get(ctx, "missing")
	require.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.Set(ctx, "k", []byte(`[1,2]`)))
	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, `[1,2]`, string(got))
}

func TestMemoryReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()

	in := []byte("abc")
	require.NoError(t, s.Set(ctx, "k", in))
	in[0] = 'x'

	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	got[1] = 'y'

	again, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(again))
}

func TestMemoryDeleteMany(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()

	for _, k := range []string{"a", "b", "c"} {
		require.NoError(t, s.Set(ctx, k, []byte(k)))
	}
	require.NoError(t, s.Delete(ctx, "a", "b", "never-set"))

	_, err := s.Get(ctx, "a")
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.Get(ctx, "b")
	assert.ErrorIs(t, err, store.ErrNotFound)

	c, err := s.Get(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, "c", string(c))
}

func TestMemoryLockExcludesSameName(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()

	unlock, err := s.Lock(ctx, "k")
	require.NoError(t, err)

	acquired := make(chan struct{})
	go func() {
		second, err := s.Lock(ctx, "k")
		if err == nil {
			close(acquired)
			second()
		}
	}()

	// other names stay free
	other, err := s.Lock(ctx, "other")
	require.NoError(t, err)
	other()

	select {
	case <-acquired:
		t.Fatal("second holder got the lock while it was held")
	case <-time.After(50 * time.Millisecond):
	}

	unlock()
	unlock()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("lock was not handed over after unlock")
	}
}

func TestLocalLockerHonoursContext(t *testing.T) {
	var l store.LocalLocker
	unlock, err := l.Lock(context.Background(), "k")
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, "k")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// a free lock is granted even on a finished context
	done, cancelDone := context.WithCancel(context.Background())
	cancelDone()
	free, err := l.Lock(done, "free")
	require.NoError(t, err)
	free()
}

func TestLocalLockerSerialisesReadModifyWrite(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	require.NoError(t, s.Set(ctx, "n", []byte{0}))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := s.Lock(ctx, "n")
			if err != nil {
				return
			}
			defer unlock()
			v, _ := s.Get(ctx, "n")
			_ = s.Set(ctx, "n", []byte{v[0] + 1})
		}()
	}
	wg.Wait()

	v, err := s.Get(ctx, "n")
	require.NoError(t, err)
	assert.Equal(t, byte(50), v[0])
}
