package interop

// Unit is the response of requests that only report success.
type Unit struct{}

// HelloRequest announces the guest to the host.
type HelloRequest struct {
	Who string `cbor:"who"`
}

func (HelloRequest) Opcode() Opcode { return OpHello }
func (HelloRequest) reply(Unit)     {}

// PokeRequest increments the per-instance diagnostics counter.
type PokeRequest struct{}

func (PokeRequest) Opcode() Opcode { return OpPoke }
func (PokeRequest) reply(uint64)   {}

// Level is the severity of a guest log record. Smaller is more severe.
type Level uint32

const (
	LevelError Level = iota + 1
	LevelWarn
	LevelInfo
	LevelDebug
	LevelTrace
)

// LogRequest forwards one guest log record to the host log.
type LogRequest struct {
	Target     string `cbor:"target"`
	Level      Level  `cbor:"level"`
	Body       string `cbor:"body"`
	ModulePath string `cbor:"module_path,omitempty"`
	File       string `cbor:"file,omitempty"`
	Line       uint32 `cbor:"line,omitempty"`
}

func (LogRequest) Opcode() Opcode { return OpLog }
func (LogRequest) reply(Unit)     {}
