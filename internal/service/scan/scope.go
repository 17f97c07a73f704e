// Package scan holds the capture device for scan-to-reconcile flows. The
// device is acquired when the scan view opens and released when it closes,
// including when the session ends underneath it.
package scan

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/mamadbah2/stockroom/internal/domain/models"
	"github.com/mamadbah2/stockroom/internal/service/session"
)

// ErrNotScanning is returned when the scan view is not open.
var ErrNotScanning = errors.New("no active scan")

// Stream is an acquired capture stream.
type Stream interface {
	Release() error
}

// Device hands out capture streams.
type Device interface {
	Acquire(ctx context.Context) (Stream, error)
}

// Manager tracks the one scan view that may be open at a time.
type Manager struct {
	device Device
	logger *zap.Logger

	mu     sync.Mutex
	active Stream
}

// NewManager wires a manager over device.
func NewManager(device Device, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{device: device, logger: logger}
}

// Enter acquires the device unless a scan is already active.
func (m *Manager) Enter(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active != nil {
		return nil
	}
	stream, err := m.device.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire capture device: %w", err)
	}
	m.active = stream
	m.logger.Debug("scan started")
	return nil
}

// Exit releases the device held by the active scan. The scan is over even
// when the release fails.
func (m *Manager) Exit() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return ErrNotScanning
	}
	stream := m.active
	m.active = nil
	m.logger.Debug("scan ended")
	if err := stream.Release(); err != nil {
		return fmt.Errorf("release capture device: %w", err)
	}
	return nil
}

// Active reports whether a scan holds the device.
func (m *Manager) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active != nil
}

// Scan runs fn with the stream held by the open scan view. The view stays
// open until Exit, and Exit waits for fn to return.
func (m *Manager) Scan(ctx context.Context, fn func(ctx context.Context, s Stream) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return ErrNotScanning
	}
	return fn(ctx, m.active)
}

// OnSessionChange closes the scan view once nobody is signed in.
func (m *Manager) OnSessionChange(state session.State, _ *models.Session) {
	if state == session.StateAuthenticated {
		return
	}
	if err := m.Exit(); err != nil && !errors.Is(err, ErrNotScanning) {
		m.logger.Warn("release capture device on sign out failed", zap.Error(err))
	}
}
