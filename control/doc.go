// Package control implements the host control plane: a request/response
// protocol over a local Unix socket used by the asi CLI to query, stop and
// feed modules to a running host.
//
// A request frame is the magic "aSiCLI", an op byte, a payload count byte
// and that many payloads, each prefixed with its little-endian u64 length.
// A response is one status byte (0 ok, 1 error) followed by the payload or
// the error message up to the end of the connection. Each connection carries
// one request.
//
// The [Server] serves every connection on its own goroutine and funnels the
// requests into one queue, drained by a single consumer:
//
//	srv, err := control.Start("asi.sock", control.WithSignals(true))
//	if err != nil {
//	    return err
//	}
//	defer srv.Shutdown()
//
//	for {
//	    req, err := srv.Wait(ctx)
//	    if err != nil {
//	        return err
//	    }
//	    switch req.Request.Op {
//	    case control.OpVersion:
//	        req.Respond([]byte("1.0"), nil)
//	    ...
//	    }
//	}
package control
