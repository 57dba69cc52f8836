// Package executor runs sandboxed WebAssembly modules with a sysreq device.
//
// # Overview
//
// The executor owns a wazero runtime with WASI and the "asi" host module.
// Each spawned module gets its own [Device], registered as handle
// [RootFD] in a per-instance handle table, and the ASI_RPCROOT_FD
// environment variable naming it.
//
// # Basic Usage
//
//	exec, err := executor.New(executor.WithLogger(logger))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer exec.Close()
//
//	inst, err := exec.Spawn(ctx, wasm)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	err = inst.Wait()
//
// # Device ABI
//
// Guests reach the device through two imports shaped like their WASI
// counterparts:
//
//	asi.fd_write(fd, iovs, iovs_len, nwritten) errno
//	asi.fd_read(fd, iovs, iovs_len, nread) errno
//
// A request is one fd_write of a single buffer: the little-endian opcode
// followed by the CBOR body. The reply is read with fd_read until it returns
// zero bytes. Writing again before that fails with EINPROGRESS (26); other
// buffer shapes fail with EINVAL (28); unknown handles with EBADF (8).
package executor
