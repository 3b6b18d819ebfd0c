package flight

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTryAcquireRelease(t *testing.T) {
	k := NewKeyed()

	require.NoError(t, k.TryAcquire("default_cards"))
	assert.True(t, k.Held("default_cards"))

	// second claim on the same key is refused without blocking
	assert.ErrorIs(t, k.TryAcquire("default_cards"), ErrLocked)

	// other keys are independent
	require.NoError(t, k.TryAcquire("rulings"))

	k.Release("default_cards")
	assert.False(t, k.Held("default_cards"))
	require.NoError(t, k.TryAcquire("default_cards"))
}

func TestTryAcquireSingleWinnerUnderContention(t *testing.T) {
	k := NewKeyed()

	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if k.TryAcquire("default_cards") == nil {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, winners)
}

func TestNilPgLockerAlwaysGrants(t *testing.T) {
	var l *PgLocker
	release, ok, err := l.TryAcquire(context.Background(), "default_cards")
	require.NoError(t, err)
	require.True(t, ok)
	release()

	assert.Nil(t, NewPgLocker(""))
}

func TestLockKeyStablePerKind(t *testing.T) {
	assert.Equal(t, lockKey("default_cards"), lockKey("default_cards"))
	assert.NotEqual(t, lockKey("default_cards"), lockKey("rulings"))
}
