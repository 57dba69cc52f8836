package hostfunc

import (
	"context"
	"sync/atomic"
)

// State is the per-instance data handlers act on.
type State struct {
	ID string
	KV *KV

	pokes atomic.Uint64
}

func NewState(id string, kv KVConfig) *State {
	return &State{ID: id, KV: NewKV(kv)}
}

// Poke increments the diagnostics counter and returns the new value.
func (s *State) Poke() uint64 {
	return s.pokes.Add(1)
}

type stateKey struct{}

// WithState returns a context carrying s for the handlers.
func WithState(ctx context.Context, s *State) context.Context {
	return context.WithValue(ctx, stateKey{}, s)
}

func StateFrom(ctx context.Context) (*State, bool) {
	s, ok := ctx.Value(stateKey{}).(*State)
	return s, ok && s != nil
}

func instanceID(ctx context.Context) string {
	if s, ok := StateFrom(ctx); ok {
		return s.ID
	}
	return ""
}
