package scan

import (
	"context"
	"errors"
	"sync"
)

// ErrReleased is returned when a stream is released twice.
var ErrReleased = errors.New("stream already released")

// VirtualDevice stands in for a camera on hosts without one. It counts the
// streams currently held.
type VirtualDevice struct {
	mu   sync.Mutex
	open int
}

// Acquire returns a new stream.
func (d *VirtualDevice) Acquire(ctx context.Context) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.open++
	return &virtualStream{device: d}, nil
}

// Open returns the number of unreleased streams.
func (d *VirtualDevice) Open() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.open
}

type virtualStream struct {
	device   *VirtualDevice
	released bool
}

func (s *virtualStream) Release() error {
	s.device.mu.Lock()
	defer s.device.mu.Unlock()
	if s.released {
		return ErrReleased
	}
	s.released = true
	s.device.open--
	return nil
}
