package executor_test

import (
	"bytes"

	"github.com/caffeineduck/asi/interop"
)

// Small hand-assembled modules. Every module has a one-page memory exported
// as "memory" and, unless noStart is set, a "_start" function running body.

const (
	opCall        = 0x10
	opI32Const    = 0x41
	opI32Ne       = 0x47
	opIf          = 0x04
	opEnd         = 0x0b
	opUnreachable = 0x00
	blockEmpty    = 0x40
)

type testModule struct {
	imports []string // functions imported from "asi" as (i32 i32 i32 i32) -> i32
	body    []byte
	data    []byte
	noStart bool
}

func uleb(n int) []byte {
	var out []byte
	for {
		b := byte(n & 0x7f)
		n >>= 7
		if n != 0 {
			out = append(out, b|0x80)
			continue
		}
		return append(out, b)
	}
}

func vec(items ...[]byte) []byte {
	return append(uleb(len(items)), bytes.Join(items, nil)...)
}

func name(s string) []byte {
	return append(uleb(len(s)), s...)
}

func section(id byte, content []byte) []byte {
	return append(append([]byte{id}, uleb(len(content))...), content...)
}

func cat(parts ...[]byte) []byte {
	return bytes.Join(parts, nil)
}

func (m testModule) bytes() []byte {
	const (
		typeDevice = 0
		typeStart  = 1
	)

	out := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}

	out = append(out, section(1, vec(
		[]byte{0x60, 0x04, 0x7f, 0x7f, 0x7f, 0x7f, 0x01, 0x7f},
		[]byte{0x60, 0x00, 0x00},
	))...)

	if len(m.imports) > 0 {
		var imports [][]byte
		for _, fn := range m.imports {
			imports = append(imports, cat(name("asi"), name(fn), []byte{0x00, typeDevice}))
		}
		out = append(out, section(2, vec(imports...))...)
	}

	if !m.noStart {
		out = append(out, section(3, vec([]byte{typeStart}))...)
	}

	out = append(out, section(5, vec([]byte{0x00, 0x01}))...)

	exports := [][]byte{cat(name("memory"), []byte{0x02, 0x00})}
	if !m.noStart {
		exports = append(exports, cat(name("_start"), []byte{0x00}, uleb(len(m.imports))))
	}
	out = append(out, section(7, vec(exports...))...)

	if !m.noStart {
		code := cat([]byte{0x00}, m.body, []byte{opEnd})
		out = append(out, section(10, vec(cat(uleb(len(code)), code)))...)
	}

	if len(m.data) > 0 {
		segment := cat([]byte{0x00, opI32Const, 0x00, opEnd}, uleb(len(m.data)), m.data)
		out = append(out, section(11, vec(segment))...)
	}

	return out
}

func i32(v byte) []byte {
	// Only used with values below 64, which encode as one LEB byte.
	return []byte{opI32Const, v}
}

// Memory layout of the device modules.
const (
	iovAt     = 0
	resultAt  = 8
	requestAt = 16
)

// deviceData lays out one iovec at iovAt pointing at frame, stored at
// requestAt.
func deviceData(frame []byte) []byte {
	data := make([]byte, requestAt+len(frame))
	data[iovAt] = requestAt
	data[iovAt+4] = byte(len(frame))
	copy(data[requestAt:], frame)
	return data
}

// callWrite calls fd_write on the root handle with the iovec at iovAt.
func callWrite(fn byte) []byte {
	return cat(i32(3), i32(iovAt), i32(1), i32(resultAt), []byte{opCall, fn})
}

// trapUnless traps when the i32 on the stack differs from errno.
func trapUnless(errno byte) []byte {
	return cat(i32(errno), []byte{opI32Ne, opIf, blockEmpty, opUnreachable, opEnd})
}

func helloFrame(who string) []byte {
	frame, err := interop.EncodeRequest(interop.HelloRequest{Who: who})
	if err != nil {
		panic(err)
	}
	return frame
}
