package interop

import "net/netip"

// TargetKind names the transport of a connect or bind target.
type TargetKind string

const TargetTCP TargetKind = "tcp"

// ConnectTarget lists candidate addresses for an outbound connection.
type ConnectTarget struct {
	Kind  TargetKind       `cbor:"kind"`
	Addrs []netip.AddrPort `cbor:"addrs"`
}

// BindAddr is a local address to listen on.
type BindAddr struct {
	Kind TargetKind     `cbor:"kind"`
	Addr netip.AddrPort `cbor:"addr"`
}

// HandleResponse carries a new guest handle or the reason none was created.
type HandleResponse struct {
	Handle int32    `cbor:"handle,omitempty"`
	Err    NetError `cbor:"err,omitempty"`
}

// BindRequest asks the host for a listening socket.
type BindRequest struct {
	Addr BindAddr `cbor:"addr"`
}

func (BindRequest) Opcode() Opcode       { return OpBind }
func (BindRequest) reply(HandleResponse) {}

// ConnectRequest asks the host for an outbound connection.
type ConnectRequest struct {
	Target ConnectTarget `cbor:"target"`
}

func (ConnectRequest) Opcode() Opcode       { return OpConnect }
func (ConnectRequest) reply(HandleResponse) {}

// LookupRequest resolves a "host:port" query.
type LookupRequest struct {
	Query string `cbor:"query"`
}

// LookupResponse holds the resolved addresses or the resolution failure.
type LookupResponse struct {
	Addrs []netip.AddrPort `cbor:"addrs,omitempty"`
	Err   NetError         `cbor:"err,omitempty"`
}

func (LookupRequest) Opcode() Opcode       { return OpLookup }
func (LookupRequest) reply(LookupResponse) {}
