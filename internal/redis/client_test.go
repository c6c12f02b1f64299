package redisclient

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClientConnects(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewClient(Options{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	assert.NoError(t, client.Ping(context.Background()).Err())
}

func TestNewClientAppliesOptions(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewClient(Options{
		Addr:      mr.Addr(),
		PoolSize:  3,
		OpTimeout: 250 * time.Millisecond,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	opts := client.Options()
	assert.Equal(t, 3, opts.PoolSize)
	assert.Equal(t, 250*time.Millisecond, opts.ReadTimeout)
	assert.Equal(t, 250*time.Millisecond, opts.WriteTimeout)
}

func TestNewClientDefaults(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewClient(Options{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	opts := client.Options()
	assert.Equal(t, 10, opts.PoolSize)
	assert.Equal(t, 2*time.Second, opts.ReadTimeout)
}

func TestNewClientUnreachable(t *testing.T) {
	_, err := NewClient(Options{Addr: "127.0.0.1:1"})
	assert.Error(t, err)
}
