package guest

import (
	"io"
	"sync"

	"github.com/caffeineduck/asi/interop"
)

// Handle is a device endpoint. Read returns io.EOF once the pending reply is
// drained.
type Handle interface {
	io.Reader
	io.Writer
}

// Client issues requests over one device handle. Calls are serialized.
type Client struct {
	mu       sync.Mutex
	handle   Handle
	poisoned bool
}

func NewClient(h Handle) *Client {
	return &Client{handle: h}
}

// Poisoned reports whether a transport failure left the device unusable.
func (c *Client) Poisoned() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.poisoned
}

// Call sends req and decodes its reply. The response type is fixed by the
// request type:
//
//	n, err := guest.Call[uint64](c, interop.PokeRequest{})
func Call[R any](c *Client, req interop.Request[R]) (R, error) {
	var zero R

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.poisoned {
		return zero, interop.ErrBadDescriptor
	}

	frame, err := interop.EncodeRequest(req)
	if err != nil {
		return zero, interop.ErrBadRequest
	}

	// The device must take the whole request in one write.
	n, err := c.handle.Write(frame)
	if err != nil || n != len(frame) {
		c.poisoned = true
		return zero, interop.ErrBadDescriptor
	}

	data, err := io.ReadAll(c.handle)
	if err != nil {
		c.poisoned = true
		return zero, interop.ErrBadDescriptor
	}

	return interop.DecodeReply[R](data)
}
