package executor

import (
	"context"
	"sync"
)

// RootFD is the handle number of the root device in every instance.
const RootFD int32 = 3

// Handles maps guest handle numbers to devices for one instance.
type Handles struct {
	mu      sync.RWMutex
	next    int32
	devices map[int32]*Device
}

func NewHandles() *Handles {
	return &Handles{next: RootFD, devices: make(map[int32]*Device)}
}

// Add installs d under the next free handle number.
func (h *Handles) Add(d *Device) int32 {
	h.mu.Lock()
	defer h.mu.Unlock()
	fd := h.next
	h.next++
	h.devices[fd] = d
	return fd
}

func (h *Handles) Get(fd int32) (*Device, bool) {
	h.mu.RLock()
	d, ok := h.devices[fd]
	h.mu.RUnlock()
	return d, ok
}

type handlesKey struct{}

func withHandles(ctx context.Context, h *Handles) context.Context {
	return context.WithValue(ctx, handlesKey{}, h)
}

func handlesFrom(ctx context.Context) *Handles {
	h, _ := ctx.Value(handlesKey{}).(*Handles)
	return h
}
