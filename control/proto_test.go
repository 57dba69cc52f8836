package control

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestRequestRoundTrip(t *testing.T) {
	tests := []struct {
		name     string
		op       Op
		payloads [][]byte
		want     Request
	}{
		{"version", OpVersion, nil, Request{Op: OpVersion}},
		{"shutdown", OpShutdown, nil, Request{Op: OpShutdown}},
		{"run", OpRun, [][]byte{[]byte("\x00asm")}, Request{Op: OpRun, Binary: []byte("\x00asm")}},
		{"run empty binary", OpRun, [][]byte{{}}, Request{Op: OpRun, Binary: nil}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := WriteRequest(&buf, tt.op, tt.payloads...); err != nil {
				t.Fatalf("WriteRequest: %v", err)
			}
			got, err := ReadRequest(&buf, MaxPayload)
			if err != nil {
				t.Fatalf("ReadRequest: %v", err)
			}
			if got.Op != tt.want.Op || !bytes.Equal(got.Binary, tt.want.Binary) {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestRequestFrameLayout(t *testing.T) {
	var buf bytes.Buffer
	WriteRequest(&buf, OpRun, []byte{0xaa, 0xbb})

	want := []byte("aSiCLI\x02\x01\x02\x00\x00\x00\x00\x00\x00\x00\xaa\xbb")
	if !bytes.Equal(buf.Bytes(), want) {
		t.Errorf("frame = % x\nwant    % x", buf.Bytes(), want)
	}
}

func frame(op, count byte, lengths ...uint64) []byte {
	b := append([]byte(Magic), op, count)
	for _, n := range lengths {
		b = binary.LittleEndian.AppendUint64(b, n)
	}
	return b
}

func TestReadRequestErrors(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		max     uint64
		wantErr error
	}{
		{"bad magic", []byte("aSiCLX\x00\x00"), MaxPayload, ErrBadMagic},
		{"bad op", frame(7, 0), MaxPayload, ErrBadOp},
		{"run without payload", frame(byte(OpRun), 0), MaxPayload, ErrBadArity},
		{"run with two payloads", frame(byte(OpRun), 2), MaxPayload, ErrBadArity},
		{"version with payload", frame(byte(OpVersion), 1), MaxPayload, ErrBadArity},
		{"declared length over ceiling", frame(byte(OpRun), 1, 1<<40), MaxPayload, ErrPayloadTooLarge},
		{"over custom ceiling", frame(byte(OpRun), 1, 11), 10, ErrPayloadTooLarge},
		{"truncated magic", []byte("aSi"), MaxPayload, io.ErrUnexpectedEOF},
		{"truncated payload", append(frame(byte(OpRun), 1, 10), 1, 2, 3), MaxPayload, io.ErrUnexpectedEOF},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadRequest(bytes.NewReader(tt.data), tt.max)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

// countingReader fails the test if more than limit bytes are read.
type countingReader struct {
	t     *testing.T
	r     io.Reader
	n     int
	limit int
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += n
	if c.n > c.limit {
		c.t.Errorf("read %d bytes past the header", c.n-c.limit)
	}
	return n, err
}

func TestCeilingCheckedBeforePayloadIsRead(t *testing.T) {
	header := frame(byte(OpRun), 1, MaxPayload+1)
	r := &countingReader{
		t:     t,
		r:     io.MultiReader(bytes.NewReader(header), strings.NewReader(strings.Repeat("x", 4096))),
		limit: len(header),
	}

	if _, err := ReadRequest(r, MaxPayload); !errors.Is(err, ErrPayloadTooLarge) {
		t.Errorf("error = %v, want ErrPayloadTooLarge", err)
	}
}

func TestResponseRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	WriteResponse(&buf, []byte("1.0"), nil)
	got, err := ReadResponse(&buf)
	if err != nil || string(got) != "1.0" {
		t.Errorf("ReadResponse = %q, %v", got, err)
	}

	buf.Reset()
	WriteResponse(&buf, []byte("ignored"), errors.New("failed to start process"))
	_, err = ReadResponse(&buf)
	var serr *ServerError
	if !errors.As(err, &serr) || serr.Message != "failed to start process" {
		t.Errorf("error = %v, want ServerError", err)
	}
}

func TestReadResponseBadStatus(t *testing.T) {
	if _, err := ReadResponse(bytes.NewReader([]byte{2, 'x'})); !errors.Is(err, ErrBadStatus) {
		t.Errorf("error = %v, want ErrBadStatus", err)
	}
	if _, err := ReadResponse(bytes.NewReader(nil)); err == nil {
		t.Error("expected error for empty response")
	}
}
