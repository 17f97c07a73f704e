package scan

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/stockroom/internal/service/session"
)

func TestManagerEnterExit(t *testing.T) {
	device := &VirtualDevice{}
	m := NewManager(device, nil)
	ctx := context.Background()

	assert.ErrorIs(t, m.Exit(), ErrNotScanning)

	require.NoError(t, m.Enter(ctx))
	require.NoError(t, m.Enter(ctx))
	assert.True(t, m.Active())
	assert.Equal(t, 1, device.Open())

	require.NoError(t, m.Exit())
	assert.False(t, m.Active())
	assert.Zero(t, device.Open())
}

func TestManagerEnterFailsWhenAcquireFails(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := NewManager(&VirtualDevice{}, nil)
	assert.ErrorIs(t, m.Enter(ctx), context.Canceled)
	assert.False(t, m.Active())
}

func TestManagerScanRequiresOpenView(t *testing.T) {
	device := &VirtualDevice{}
	m := NewManager(device, nil)

	called := false
	err := m.Scan(context.Background(), func(context.Context, Stream) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrNotScanning)
	assert.False(t, called)
	assert.Zero(t, device.Open())
}

func TestManagerScanUsesActiveStream(t *testing.T) {
	device := &VirtualDevice{}
	m := NewManager(device, nil)
	require.NoError(t, m.Enter(context.Background()))

	err := m.Scan(context.Background(), func(context.Context, Stream) error {
		assert.Equal(t, 1, device.Open())
		return errors.New("decode failed")
	})
	assert.ErrorContains(t, err, "decode failed")
	assert.Equal(t, 1, device.Open())
	assert.True(t, m.Active())

	require.NoError(t, m.Exit())
	assert.Zero(t, device.Open())
}

func TestManagerScanPanicKeepsManagerUsable(t *testing.T) {
	device := &VirtualDevice{}
	m := NewManager(device, nil)
	require.NoError(t, m.Enter(context.Background()))

	assert.Panics(t, func() {
		_ = m.Scan(context.Background(), func(context.Context, Stream) error { panic("boom") })
	})
	require.NoError(t, m.Exit())
	assert.Zero(t, device.Open())
}

func TestManagerExitReportsReleaseFailure(t *testing.T) {
	device := &VirtualDevice{}
	m := NewManager(device, nil)
	require.NoError(t, m.Enter(context.Background()))

	require.NoError(t, m.Scan(context.Background(), func(_ context.Context, s Stream) error {
		return s.Release()
	}))
	assert.ErrorIs(t, m.Exit(), ErrReleased)
	assert.False(t, m.Active())
}

func TestManagerReleasesOnSignOut(t *testing.T) {
	device := &VirtualDevice{}
	m := NewManager(device, nil)
	require.NoError(t, m.Enter(context.Background()))

	m.OnSessionChange(session.StateAuthenticated, nil)
	assert.Equal(t, 1, device.Open())

	m.OnSessionChange(session.StateUnauthenticated, nil)
	assert.Zero(t, device.Open())
	assert.False(t, m.Active())

	m.OnSessionChange(session.StateUnauthenticated, nil)
	assert.Zero(t, device.Open())
}
