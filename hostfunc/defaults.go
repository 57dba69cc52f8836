package hostfunc

import "log/slog"

// Defaults returns a registry with every built-in handler. Bind has no
// handler and is answered with BadRequest.
func Defaults(logger *slog.Logger, resolver Resolver) *Registry {
	r := NewRegistry()

	diag := NewDiagnostics(logger)
	Handle(r, diag.Hello)
	Handle(r, diag.Poke)
	Handle(r, diag.Log)

	n := NewNet(resolver, logger)
	Handle(r, n.Lookup)
	Handle(r, n.Connect)

	Handle(r, kvGet)
	Handle(r, kvSet)
	Handle(r, kvDelete)
	Handle(r, kvKeys)

	return r
}
