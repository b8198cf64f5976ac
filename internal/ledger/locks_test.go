package ledger

import (
	"testing"
	"time"

	"hastane-stok-backend/internal/models"

	"github.com/stretchr/testify/require"
)

func TestLockAcquireAndRelease(t *testing.T) {
	lt := newLockTable()

	require.NoError(t, lt.acquire(1, time.Millisecond))
	require.ErrorIs(t, lt.acquire(1, 10*time.Millisecond), models.ErrBusy)

	// Farklı malzeme beklemez.
	require.NoError(t, lt.acquire(2, time.Millisecond))
	lt.release(2)

	lt.release(1)
	require.NoError(t, lt.acquire(1, time.Millisecond))
	lt.release(1)
}

func TestLockAcquireWaitsForHolder(t *testing.T) {
	lt := newLockTable()
	require.NoError(t, lt.acquire(5, time.Millisecond))

	done := make(chan error, 1)
	go func() {
		done <- lt.acquire(5, time.Second)
	}()

	time.Sleep(20 * time.Millisecond)
	lt.release(5)

	select {
	case err := <-done:
		require.NoError(t, err)
		lt.release(5)
	case <-time.After(time.Second):
		t.Fatal("kilit devralınamadı")
	}
}

func TestAcquireAllRollsBackOnFailure(t *testing.T) {
	lt := newLockTable()

	// 2 numara tutulu; 1-2-3 topluca alınamaz ve 1 ile 3 serbest kalmalı.
	require.NoError(t, lt.acquire(2, time.Millisecond))
	require.ErrorIs(t, lt.acquireAll([]uint{3, 1, 2}, 10*time.Millisecond), models.ErrBusy)

	require.NoError(t, lt.acquire(1, time.Millisecond))
	require.NoError(t, lt.acquire(3, time.Millisecond))
	lt.releaseAll([]uint{1, 3})

	lt.release(2)
	require.NoError(t, lt.acquireAll([]uint{3, 1, 2}, time.Millisecond))
	lt.releaseAll([]uint{1, 2, 3})
}
