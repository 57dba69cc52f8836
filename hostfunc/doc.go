// Package hostfunc implements the host side of sysreq requests.
//
// A [Registry] maps opcodes to handlers. [Handle] registers a typed function
// under the opcode of its request type and takes care of decoding the body
// and encoding the reply envelope:
//
//	registry := hostfunc.NewRegistry()
//	hostfunc.Handle(registry, func(ctx context.Context, req interop.HelloRequest) (interop.Unit, error) {
//	    return interop.Unit{}, nil
//	})
//
// [Defaults] returns a registry with the built-in handlers:
//
//   - diagnostics: hello, poke and log forwarding into the host slog logger
//   - net: name lookup through a [Resolver]; connect is always rejected
//   - storage: a per-instance in-memory key-value store bounded by [KVConfig]
//
// Handlers find the calling instance through the [State] carried in their
// context (see [WithState]).
package hostfunc
