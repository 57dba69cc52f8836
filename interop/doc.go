// Package interop defines the system-request (sysreq) protocol shared by
// sandboxed guests and the asi host.
//
// # Overview
//
// A guest talks to the host through a single virtual device. Every request
// is one write of a frame made of a 4-byte little-endian [Opcode] followed by
// the CBOR encoding of the request value. The host answers with exactly one
// reply envelope, which the guest drains with reads until the device reports
// no more bytes.
//
//	frame, _ := interop.EncodeRequest(interop.PokeRequest{})
//	// ... write frame, read reply ...
//	count, err := interop.DecodeReply[uint64](reply)
//
// # Opcodes
//
// Opcodes live in one shared space split into bands per subsystem so that new
// request kinds never collide:
//
//   - [NetBase] (4000): Bind, Connect, Lookup
//   - [StorageBase] (5000): KVGet, KVSet, KVDelete, KVKeys
//   - [DiagnosticsBase] (10000): Hello, Poke, Log
//
// Each request type is bound to its response type through [Request], so both
// the guest client and the host registry are checked at compile time.
//
// # Errors
//
// Transport and protocol failures are [RPCError] values. Domain failures of
// network requests are [NetError] values carried inside a successful reply.
package interop
