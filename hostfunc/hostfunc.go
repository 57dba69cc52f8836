package hostfunc

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/caffeineduck/asi/interop"
)

// Handler answers one request body and returns the encoded reply envelope.
type Handler func(ctx context.Context, body []byte) []byte

type Registry struct {
	mu       sync.RWMutex
	handlers map[interop.Opcode]Handler
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[interop.Opcode]Handler)}
}

// Register installs h for op. Registering an opcode twice panics.
func (r *Registry) Register(op interop.Opcode, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.handlers[op]; dup {
		panic(fmt.Sprintf("hostfunc: duplicate handler for %s (%d)", op, op))
	}
	r.handlers[op] = h
}

func (r *Registry) Get(op interop.Opcode) (Handler, bool) {
	r.mu.RLock()
	h, ok := r.handlers[op]
	r.mu.RUnlock()
	return h, ok
}

// List returns the registered opcodes in ascending order.
func (r *Registry) List() []interop.Opcode {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ops := make([]interop.Opcode, 0, len(r.handlers))
	for op := range r.handlers {
		ops = append(ops, op)
	}
	slices.Sort(ops)
	return ops
}

// Dispatch runs the handler for op. Opcodes without a handler get a
// BadRequest reply.
func (r *Registry) Dispatch(ctx context.Context, op interop.Opcode, body []byte) []byte {
	h, ok := r.Get(op)
	if !ok {
		return interop.EncodeReply(nil, interop.ErrBadRequest)
	}
	return h(ctx, body)
}

// Handle registers fn under the opcode of its request type. Bodies that do
// not decode into Req are answered with BadRequest without calling fn.
func Handle[Req interop.Request[Resp], Resp any](r *Registry, fn func(ctx context.Context, req Req) (Resp, error)) {
	var zero Req
	r.Register(zero.Opcode(), func(ctx context.Context, body []byte) []byte {
		var req Req
		if err := interop.Unmarshal(body, &req); err != nil {
			return interop.EncodeReply(nil, interop.ErrBadRequest)
		}
		resp, err := fn(ctx, req)
		if err != nil {
			return interop.EncodeReply(nil, err)
		}
		return interop.EncodeReply(resp, nil)
	})
}
