package executor

import (
	"context"
	"errors"
	"sync"

	"github.com/caffeineduck/asi/hostfunc"
	"github.com/caffeineduck/asi/interop"
)

var (
	// ErrInProgress is returned when a request is written before the previous
	// response was drained.
	ErrInProgress = errors.New("sysreq: response pending")
	// ErrInvalid is returned for writes that are not exactly one buffer
	// holding at least an opcode, and for reads into more than one buffer.
	ErrInvalid = errors.New("sysreq: invalid buffers")
)

type DeviceState int

const (
	Idle DeviceState = iota
	ResponsePending
)

func (s DeviceState) String() string {
	if s == ResponsePending {
		return "response-pending"
	}
	return "idle"
}

// Device is the sysreq endpoint of one instance. A write dispatches one
// request and stores its reply; reads drain the reply.
type Device struct {
	mu       sync.Mutex
	registry *hostfunc.Registry
	state    *hostfunc.State
	pending  []byte
}

func NewDevice(registry *hostfunc.Registry, state *hostfunc.State) *Device {
	return &Device{registry: registry, state: state}
}

// WriteVectored handles one request. Unknown opcodes and undecodable bodies
// are answered with a BadRequest reply, not a device error.
func (d *Device) WriteVectored(ctx context.Context, bufs [][]byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.pending) > 0 {
		return 0, ErrInProgress
	}
	if len(bufs) != 1 {
		return 0, ErrInvalid
	}

	op, body, err := interop.DecodeRequest(bufs[0])
	if err != nil {
		return 0, ErrInvalid
	}

	d.pending = d.registry.Dispatch(hostfunc.WithState(ctx, d.state), op, body)
	return len(bufs[0]), nil
}

// ReadVectored copies as much of the pending reply as fits into bufs[0].
// It returns 0 once the reply is drained.
func (d *Device) ReadVectored(bufs [][]byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(bufs) != 1 {
		return 0, ErrInvalid
	}

	n := copy(bufs[0], d.pending)
	d.pending = d.pending[n:]
	if len(d.pending) == 0 {
		d.pending = nil
	}
	return n, nil
}

// Pending returns the number of reply bytes not yet read.
func (d *Device) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

func (d *Device) State() DeviceState {
	if d.Pending() > 0 {
		return ResponsePending
	}
	return Idle
}
