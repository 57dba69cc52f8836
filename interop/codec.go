package interop

import (
	"encoding/binary"
	"errors"
	"fmt"
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// OpcodeSize is the width of the opcode prefix of a request frame.
const OpcodeSize = 4

// ErrShortFrame is returned when a frame cannot hold an opcode.
var ErrShortFrame = errors.New("frame shorter than opcode")

// encMode uses Core Deterministic Encoding so equal requests encode to equal
// bytes. Types that only implement encoding.TextMarshaler encode as text
// strings.
var encMode cbor.EncMode

var decMode cbor.DecMode

func init() {
	var err error

	encOptions := cbor.CoreDetEncOptions()
	encOptions.TextMarshaler = cbor.TextMarshalerTextString
	encMode, err = encOptions.EncMode()
	if err != nil {
		panic("interop: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		DefaultMapType:  reflect.TypeOf(map[string]any(nil)),
		TextUnmarshaler: cbor.TextUnmarshalerTextString,
	}.DecMode()
	if err != nil {
		panic("interop: CBOR decoder initialization failed: " + err.Error())
	}
}

// Marshal encodes v to CBOR.
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes CBOR data into v. Trailing bytes are an error.
func Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}

// EncodeRequest returns the frame for req: the little-endian opcode followed
// by the request body.
func EncodeRequest(req Message) ([]byte, error) {
	body, err := Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", req.Opcode(), err)
	}

	frame := make([]byte, OpcodeSize, OpcodeSize+len(body))
	binary.LittleEndian.PutUint32(frame, uint32(req.Opcode()))
	return append(frame, body...), nil
}

// DecodeRequest splits a frame into its opcode and body. The body aliases
// frame.
func DecodeRequest(frame []byte) (Opcode, []byte, error) {
	if len(frame) < OpcodeSize {
		return 0, nil, ErrShortFrame
	}
	return Opcode(binary.LittleEndian.Uint32(frame)), frame[OpcodeSize:], nil
}

type envelope struct {
	Err RPCError        `cbor:"err,omitempty"`
	OK  cbor.RawMessage `cbor:"ok,omitempty"`
}

// EncodeReply encodes the outcome of a handler. A non-nil err is reported as
// its RPCError kind; errors of any other type are reported as ErrBadRequest.
func EncodeReply(value any, err error) []byte {
	var r envelope

	if err != nil {
		var rpcErr RPCError
		if !errors.As(err, &rpcErr) || !rpcErr.valid() {
			rpcErr = ErrBadRequest
		}
		r.Err = rpcErr
	} else {
		body, merr := Marshal(value)
		if merr != nil {
			r.Err = ErrBadResponse
		} else {
			r.OK = body
		}
	}

	data, merr := Marshal(r)
	if merr != nil {
		return nil
	}
	return data
}

// DecodeReply decodes a reply envelope. Undecodable envelopes and values
// yield ErrBadResponse; a host-reported failure is returned as its RPCError.
func DecodeReply[R any](data []byte) (R, error) {
	var zero R

	var r envelope
	if err := Unmarshal(data, &r); err != nil {
		return zero, ErrBadResponse
	}
	if r.Err != 0 {
		if !r.Err.valid() {
			return zero, ErrBadResponse
		}
		return zero, r.Err
	}
	if len(r.OK) == 0 {
		return zero, ErrBadResponse
	}

	var v R
	if err := Unmarshal(r.OK, &v); err != nil {
		return zero, ErrBadResponse
	}
	return v, nil
}
