package guest

import (
	"bytes"
	"errors"
	"io"
	"net/netip"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/caffeineduck/asi/interop"
)

// fakeDevice answers every write with the reply produced by respond.
type fakeDevice struct {
	respond func(op interop.Opcode, body []byte) []byte

	writeErr error
	readErr  error
	short    bool

	writes  [][]byte
	pending *bytes.Reader
}

func (d *fakeDevice) Write(p []byte) (int, error) {
	if d.writeErr != nil {
		return 0, d.writeErr
	}
	d.writes = append(d.writes, append([]byte(nil), p...))
	if d.short {
		return len(p) - 1, nil
	}
	op, body, err := interop.DecodeRequest(p)
	if err != nil {
		return 0, err
	}
	d.pending = bytes.NewReader(d.respond(op, body))
	return len(p), nil
}

func (d *fakeDevice) Read(p []byte) (int, error) {
	if d.readErr != nil {
		return 0, d.readErr
	}
	if d.pending == nil {
		return 0, io.EOF
	}
	return d.pending.Read(p)
}

func replyWith(value any, err error) func(interop.Opcode, []byte) []byte {
	return func(interop.Opcode, []byte) []byte {
		return interop.EncodeReply(value, err)
	}
}

func TestCallDecodesReply(t *testing.T) {
	dev := &fakeDevice{respond: replyWith(uint64(5), nil)}
	c := NewClient(dev)

	n, err := c.Poke()
	if err != nil {
		t.Fatalf("Poke: %v", err)
	}
	if n != 5 {
		t.Errorf("Poke = %d, want 5", n)
	}

	if len(dev.writes) != 1 {
		t.Fatalf("got %d writes, want 1", len(dev.writes))
	}
	op, _, err := interop.DecodeRequest(dev.writes[0])
	if err != nil || op != interop.OpPoke {
		t.Errorf("request opcode = %s (%v), want %s", op, err, interop.OpPoke)
	}
}

func TestCallPoisonsOnTransportFailure(t *testing.T) {
	tests := []struct {
		name string
		dev  *fakeDevice
	}{
		{"write error", &fakeDevice{writeErr: errors.New("busy")}},
		{"short write", &fakeDevice{short: true}},
		{"read error", &fakeDevice{readErr: errors.New("gone")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.dev.respond = replyWith(interop.Unit{}, nil)
			c := NewClient(tt.dev)

			if err := c.Hello("a"); !errors.Is(err, interop.ErrBadDescriptor) {
				t.Fatalf("first call error = %v, want ErrBadDescriptor", err)
			}
			if !c.Poisoned() {
				t.Fatal("client not poisoned")
			}

			writes := len(tt.dev.writes)
			if err := c.Hello("b"); !errors.Is(err, interop.ErrBadDescriptor) {
				t.Errorf("second call error = %v, want ErrBadDescriptor", err)
			}
			if len(tt.dev.writes) != writes {
				t.Error("poisoned client touched the device")
			}
		})
	}
}

func TestCallBadResponseDoesNotPoison(t *testing.T) {
	dev := &fakeDevice{respond: func(interop.Opcode, []byte) []byte { return []byte{0xff} }}
	c := NewClient(dev)

	if _, err := c.Poke(); !errors.Is(err, interop.ErrBadResponse) {
		t.Fatalf("error = %v, want ErrBadResponse", err)
	}
	if c.Poisoned() {
		t.Fatal("undecodable reply poisoned the client")
	}

	dev.respond = replyWith(uint64(1), nil)
	if n, err := c.Poke(); err != nil || n != 1 {
		t.Errorf("Poke after bad response = %d, %v", n, err)
	}
}

func TestCallReturnsHostError(t *testing.T) {
	dev := &fakeDevice{respond: replyWith(nil, interop.ErrBadRequest)}
	c := NewClient(dev)

	_, err := c.ConnectTCP([]netip.AddrPort{netip.MustParseAddrPort("127.0.0.1:80")})
	if !errors.Is(err, interop.ErrBadRequest) {
		t.Fatalf("error = %v, want ErrBadRequest", err)
	}
	if c.Poisoned() {
		t.Error("host-reported error poisoned the client")
	}
}

func TestLookup(t *testing.T) {
	addr := netip.MustParseAddrPort("192.0.2.1:80")

	tests := []struct {
		name    string
		resp    interop.LookupResponse
		want    []netip.AddrPort
		wantErr error
	}{
		{"found", interop.LookupResponse{Addrs: []netip.AddrPort{addr}}, []netip.AddrPort{addr}, nil},
		{"failed", interop.LookupResponse{Err: interop.ErrFailed}, nil, interop.ErrFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var query string
			dev := &fakeDevice{respond: func(op interop.Opcode, body []byte) []byte {
				var req interop.LookupRequest
				if err := interop.Unmarshal(body, &req); err != nil {
					t.Errorf("decode request: %v", err)
				}
				query = req.Query
				return interop.EncodeReply(tt.resp, nil)
			}}

			got, err := NewClient(dev).Lookup("example.com:80")
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
			if query != "example.com:80" {
				t.Errorf("query = %q", query)
			}
			if len(got) != len(tt.want) || (len(got) > 0 && got[0] != tt.want[0]) {
				t.Errorf("addrs = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestKVHelpers(t *testing.T) {
	dev := &fakeDevice{respond: func(op interop.Opcode, body []byte) []byte {
		switch op {
		case interop.OpKVGet:
			return interop.EncodeReply(interop.KVGetResponse{Value: "v", Found: true}, nil)
		case interop.OpKVKeys:
			return interop.EncodeReply(interop.KVKeysResponse{Keys: []string{"k"}}, nil)
		}
		return interop.EncodeReply(interop.Unit{}, nil)
	}}
	c := NewClient(dev)

	if err := c.KVSet("k", "v"); err != nil {
		t.Fatalf("KVSet: %v", err)
	}
	value, found, err := c.KVGet("k")
	if err != nil || !found || value != "v" {
		t.Errorf("KVGet = %q, %v, %v", value, found, err)
	}
	keys, err := c.KVKeys()
	if err != nil || len(keys) != 1 || keys[0] != "k" {
		t.Errorf("KVKeys = %v, %v", keys, err)
	}
	if err := c.KVDelete("k"); err != nil {
		t.Errorf("KVDelete: %v", err)
	}
}

// exclusiveDevice fails the test if a write arrives while a reply is still
// being read.
type exclusiveDevice struct {
	t       *testing.T
	busy    atomic.Bool
	pending *bytes.Reader
}

func (d *exclusiveDevice) Write(p []byte) (int, error) {
	if !d.busy.CompareAndSwap(false, true) {
		d.t.Error("write while a response is pending")
		return 0, errors.New("in progress")
	}
	d.pending = bytes.NewReader(interop.EncodeReply(uint64(1), nil))
	return len(p), nil
}

func (d *exclusiveDevice) Read(p []byte) (int, error) {
	n, err := d.pending.Read(p)
	if err == io.EOF {
		d.busy.Store(false)
	}
	return n, err
}

func TestCallsAreMutuallyExclusive(t *testing.T) {
	c := NewClient(&exclusiveDevice{t: t})

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				if _, err := c.Poke(); err != nil {
					t.Errorf("Poke: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	if c.Poisoned() {
		t.Error("client poisoned under concurrent use")
	}
}

func TestRootFromEnv(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr error
		wantFD  int32
	}{
		{"missing", map[string]string{}, ErrNoEnvironment, 0},
		{"not a number", map[string]string{EnvRootFD: "root"}, ErrInvalidRoot, 0},
		{"negative", map[string]string{EnvRootFD: "-1"}, ErrInvalidRoot, 0},
		{"valid", map[string]string{EnvRootFD: "3"}, nil, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lookup := func(key string) (string, bool) {
				v, ok := tt.env[key]
				return v, ok
			}
			opened := int32(-1)
			open := func(fd int32) Handle {
				opened = fd
				return &fakeDevice{}
			}

			c, err := RootFromEnv(lookup, open)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr != nil {
				if c != nil {
					t.Error("client returned with error")
				}
				return
			}
			if opened != tt.wantFD {
				t.Errorf("opened fd %d, want %d", opened, tt.wantFD)
			}
		})
	}
}
