// Package guest is the client side of the sysreq device, linked into
// sandboxed modules built with GOOS=wasip1 GOARCH=wasm.
//
// The host injects one root device into every instance and names it in the
// ASI_RPCROOT_FD environment variable. [Root] opens it once per process:
//
//	guest.Hello("sysreq")
//	addrs, err := guest.Lookup("example.com:80")
//
// A call writes the opcode-prefixed request in one write and then reads the
// reply until the device reports end of data. If either step fails the device
// is in an unknown state and the client refuses further calls with
// [interop.ErrBadDescriptor].
//
// Code that wants RPC failures as errors instead of panics uses a [Client]
// directly:
//
//	resp, err := guest.Call[uint64](guest.Root(), interop.PokeRequest{})
package guest
