package interop

import (
	"slices"
	"strconv"
)

// Opcode selects a request kind on the sysreq device.
type Opcode uint32

// Opcode bands. Every band is bandWidth opcodes wide.
const (
	NetBase         Opcode = 4000
	StorageBase     Opcode = 5000
	DiagnosticsBase Opcode = 10000

	bandWidth = 1000
)

const (
	OpBind    = NetBase + 1
	OpConnect = NetBase + 2
	OpLookup  = NetBase + 3

	OpKVGet    = StorageBase + 1
	OpKVSet    = StorageBase + 2
	OpKVDelete = StorageBase + 3
	OpKVKeys   = StorageBase + 4

	OpHello = DiagnosticsBase + 10
	OpPoke  = DiagnosticsBase + 11
	OpLog   = DiagnosticsBase + 200
)

var opcodeNames = map[Opcode]string{
	OpBind:     "net.bind",
	OpConnect:  "net.connect",
	OpLookup:   "net.lookup",
	OpKVGet:    "kv.get",
	OpKVSet:    "kv.set",
	OpKVDelete: "kv.delete",
	OpKVKeys:   "kv.keys",
	OpHello:    "diag.hello",
	OpPoke:     "diag.poke",
	OpLog:      "diag.log",
}

var bandNames = map[Opcode]string{
	NetBase:         "net",
	StorageBase:     "storage",
	DiagnosticsBase: "diagnostics",
}

func (op Opcode) String() string {
	if name, ok := opcodeNames[op]; ok {
		return name
	}
	return "opcode(" + strconv.FormatUint(uint64(op), 10) + ")"
}

// Band returns the base opcode of the band op belongs to.
func (op Opcode) Band() Opcode {
	return op - op%bandWidth
}

// BandName returns the subsystem name of op's band, or "" if the band is not
// allocated.
func (op Opcode) BandName() string {
	return bandNames[op.Band()]
}

// Known reports whether op is a declared request kind.
func (op Opcode) Known() bool {
	_, ok := opcodeNames[op]
	return ok
}

// Catalog returns every declared opcode in ascending order.
func Catalog() []Opcode {
	ops := make([]Opcode, 0, len(opcodeNames))
	for op := range opcodeNames {
		ops = append(ops, op)
	}
	slices.Sort(ops)
	return ops
}

// Message is implemented by every request value.
type Message interface {
	Opcode() Opcode
}

// Request binds a request type to its response type R. It can only be
// implemented inside this package.
type Request[R any] interface {
	Message
	reply(R)
}
