package control

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Magic opens every request frame.
const Magic = "aSiCLI"

// MaxPayload is the default ceiling on the cumulative payload size of one
// request.
const MaxPayload uint64 = 1024 * 2024 * 50

type Op uint8

const (
	OpVersion Op = iota
	OpShutdown
	OpRun
)

func (op Op) String() string {
	switch op {
	case OpVersion:
		return "version"
	case OpShutdown:
		return "shutdown"
	case OpRun:
		return "run"
	}
	return "op(" + strconv.Itoa(int(op)) + ")"
}

// arity is the number of payloads op carries.
func (op Op) arity() (int, bool) {
	switch op {
	case OpVersion, OpShutdown:
		return 0, true
	case OpRun:
		return 1, true
	}
	return 0, false
}

const (
	statusOK    byte = 0
	statusError byte = 1
)

var (
	ErrBadMagic        = errors.New("control: bad magic")
	ErrPayloadTooLarge = errors.New("control: payloads too big")
	ErrBadOp           = errors.New("control: bad op")
	ErrBadArity        = errors.New("control: wrong payload count")
	ErrBadStatus       = errors.New("control: bad response code")
)

// ServerError is a failure reported by the host in a response frame.
type ServerError struct {
	Message string
}

func (e *ServerError) Error() string {
	return "server error: " + e.Message
}

// Request is a decoded control request. Binary is set for OpRun.
type Request struct {
	Op     Op
	Binary []byte
}

// WriteRequest writes one request frame.
func WriteRequest(w io.Writer, op Op, payloads ...[]byte) error {
	if len(payloads) > 255 {
		return ErrBadArity
	}

	var buf bytes.Buffer
	buf.WriteString(Magic)
	buf.WriteByte(byte(op))
	buf.WriteByte(byte(len(payloads)))
	if _, err := w.Write(buf.Bytes()); err != nil {
		return err
	}

	var length [8]byte
	for _, p := range payloads {
		binary.LittleEndian.PutUint64(length[:], uint64(len(p)))
		if _, err := w.Write(length[:]); err != nil {
			return err
		}
		if _, err := w.Write(p); err != nil {
			return err
		}
	}
	return nil
}

// ReadRequest reads one request frame. The cumulative declared payload length
// is checked against maxPayload before the payload is read, and payload
// buffers only grow with the bytes actually received.
func ReadRequest(r io.Reader, maxPayload uint64) (Request, error) {
	var magic [len(Magic)]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return Request{}, fmt.Errorf("read magic: %w", err)
	}
	if string(magic[:]) != Magic {
		return Request{}, ErrBadMagic
	}

	var header [2]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return Request{}, fmt.Errorf("read header: %w", err)
	}
	op, count := Op(header[0]), int(header[1])

	want, ok := op.arity()
	if !ok {
		return Request{}, fmt.Errorf("%w: %d", ErrBadOp, header[0])
	}
	if count != want {
		return Request{}, fmt.Errorf("%w: %s takes %d, got %d", ErrBadArity, op, want, count)
	}

	payloads := make([][]byte, 0, count)
	var total uint64
	for range count {
		var length [8]byte
		if _, err := io.ReadFull(r, length[:]); err != nil {
			return Request{}, fmt.Errorf("read payload length: %w", err)
		}
		n := binary.LittleEndian.Uint64(length[:])

		total += n
		if n > maxPayload || total > maxPayload {
			return Request{}, ErrPayloadTooLarge
		}

		var payload bytes.Buffer
		if _, err := io.CopyN(&payload, r, int64(n)); err != nil {
			if errors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}
			return Request{}, fmt.Errorf("read payload: %w", err)
		}
		payloads = append(payloads, payload.Bytes())
	}

	req := Request{Op: op}
	if op == OpRun {
		req.Binary = payloads[0]
	}
	return req, nil
}

// WriteResponse writes a response frame: the payload on success, or the
// message of err.
func WriteResponse(w io.Writer, payload []byte, err error) error {
	status, body := statusOK, payload
	if err != nil {
		status, body = statusError, []byte(err.Error())
	}
	if _, werr := w.Write([]byte{status}); werr != nil {
		return werr
	}
	_, werr := w.Write(body)
	return werr
}

// ReadResponse reads a response frame to the end of r.
func ReadResponse(r io.Reader) ([]byte, error) {
	var status [1]byte
	if _, err := io.ReadFull(r, status[:]); err != nil {
		return nil, fmt.Errorf("read status: %w", err)
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	switch status[0] {
	case statusOK:
		return body, nil
	case statusError:
		return nil, &ServerError{Message: strings.ToValidUTF8(string(body), "\uFFFD")}
	}
	return nil, ErrBadStatus
}
