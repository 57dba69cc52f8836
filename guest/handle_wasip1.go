//go:build wasip1

package guest

import (
	"io"
	"runtime"
	"syscall"
	"unsafe"
)

//go:wasmimport asi fd_write
//go:noescape
func fdWrite(fd int32, iovs unsafe.Pointer, iovsLen int32, nwritten unsafe.Pointer) int32

//go:wasmimport asi fd_read
//go:noescape
func fdRead(fd int32, iovs unsafe.Pointer, iovsLen int32, nread unsafe.Pointer) int32

type iovec struct {
	buf    uint32
	bufLen uint32
}

type deviceHandle struct {
	fd int32
}

func openHandle(fd int32) Handle {
	return &deviceHandle{fd: fd}
}

func (h *deviceHandle) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	iov := iovec{buf: uint32(uintptr(unsafe.Pointer(&p[0]))), bufLen: uint32(len(p))}
	var n uint32
	errno := fdWrite(h.fd, unsafe.Pointer(&iov), 1, unsafe.Pointer(&n))
	runtime.KeepAlive(p)
	if errno != 0 {
		return 0, syscall.Errno(errno)
	}
	return int(n), nil
}

func (h *deviceHandle) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	iov := iovec{buf: uint32(uintptr(unsafe.Pointer(&p[0]))), bufLen: uint32(len(p))}
	var n uint32
	errno := fdRead(h.fd, unsafe.Pointer(&iov), 1, unsafe.Pointer(&n))
	runtime.KeepAlive(p)
	if errno != 0 {
		return 0, syscall.Errno(errno)
	}
	if n == 0 {
		return 0, io.EOF
	}
	return int(n), nil
}
