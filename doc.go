// Package asi is a host/guest fabric for running WebAssembly modules with a
// synchronous request channel back to the host.
//
// # Overview
//
// A host process (cmd/asi-host) runs WASI command modules. Each module gets
// one sysreq device, a file-like handle named by the ASI_RPCROOT_FD
// environment variable. The guest writes a request frame (a 4-byte
// little-endian opcode followed by a CBOR body) and reads the reply back.
// Requests never leave the host process: they are answered by handlers
// registered per opcode.
//
// Clients (cmd/asi) drive the host over a Unix socket: ask for the version,
// submit a module to run, or shut the host down.
//
// # Guest Usage
//
//	// GOOS=wasip1 GOARCH=wasm
//	guest.Hello("sysreq")
//	n := guest.Poke()
//	addrs, err := guest.Lookup("example.com:80")
//
//	log := slog.New(guest.NewLogHandler(guest.Root(), nil))
//	log.Info("forwarded to the host log")
//
// # Host Usage
//
//	exec, _ := executor.New(executor.WithLogger(logger))
//	defer exec.Close()
//
//	inst, err := exec.Spawn(ctx, wasmBytes)
//	err = inst.Wait()
//
// # Control Plane
//
//	srv, _ := control.Start("asi.sock")
//	req, _ := srv.Wait(ctx)
//	req.Respond([]byte("1.0"), nil)
//
//	version, err := control.NewClient("asi.sock").Version(ctx)
//
// See the [interop], [guest], [hostfunc], [executor] and [control] packages
// for detailed API documentation.
package asi
