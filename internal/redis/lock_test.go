package redisclient

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLocker(t *testing.T) Locker {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisBookingLocker(client, 5*time.Second)
}

func TestWithBookingLockRunsCriticalSection(t *testing.T) {
	locker := newTestLocker(t)

	ran := false
	err := locker.WithBookingLock(context.Background(), uuid.New(), time.Now(), func(ctx context.Context) error {
		ran = true
		return nil
	})

	require.NoError(t, err)
	assert.True(t, ran)
}

func TestWithBookingLockRejectsHolder(t *testing.T) {
	locker := newTestLocker(t)
	providerID := uuid.New()
	startAt := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

	err := locker.WithBookingLock(context.Background(), providerID, startAt, func(ctx context.Context) error {
		// Second acquisition of the same key must fail while held.
		inner := locker.WithBookingLock(ctx, providerID, startAt, func(ctx context.Context) error {
			return nil
		})
		assert.ErrorIs(t, inner, ErrLockNotAcquired)
		return nil
	})

	require.NoError(t, err)
}

func TestWithBookingLockDifferentKeysIndependent(t *testing.T) {
	locker := newTestLocker(t)
	providerID := uuid.New()
	startAt := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

	err := locker.WithBookingLock(context.Background(), providerID, startAt, func(ctx context.Context) error {
		// Same provider, different start: no contention.
		return locker.WithBookingLock(ctx, providerID, startAt.Add(40*time.Minute), func(ctx context.Context) error {
			return nil
		})
	})

	require.NoError(t, err)
}

func TestWithBookingLockReleasedAfterUse(t *testing.T) {
	locker := newTestLocker(t)
	providerID := uuid.New()
	startAt := time.Now()

	require.NoError(t, locker.WithBookingLock(context.Background(), providerID, startAt, func(ctx context.Context) error {
		return nil
	}))

	// Lock must be reacquirable once the first holder returns.
	err := locker.WithBookingLock(context.Background(), providerID, startAt, func(ctx context.Context) error {
		return nil
	})
	assert.NoError(t, err)
}
