package executor

import (
	"context"
	"encoding/binary"
	"errors"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
)

// HostModuleName is the import module of the device functions.
const HostModuleName = "asi"

// wasip1 errno values returned by the device functions.
const (
	errnoSuccess    uint32 = 0
	errnoBadf       uint32 = 8
	errnoFault      uint32 = 21
	errnoInProgress uint32 = 26
	errnoInval      uint32 = 28
)

const (
	iovecSize = 8
	maxIovecs = 1024
)

// memory is the part of api.Memory the device functions use.
type memory interface {
	Read(offset, byteCount uint32) ([]byte, bool)
	WriteUint32Le(offset, v uint32) bool
}

func instantiateHostModule(ctx context.Context, rt wazero.Runtime) error {
	_, err := rt.NewHostModuleBuilder(HostModuleName).
		NewFunctionBuilder().
		WithFunc(func(ctx context.Context, m api.Module, fd int32, iovs, iovsLen, resultPtr uint32) uint32 {
			return fdWrite(ctx, m.Memory(), fd, iovs, iovsLen, resultPtr)
		}).
		WithParameterNames("fd", "iovs", "iovs_len", "nwritten").
		Export("fd_write").
		NewFunctionBuilder().
		WithFunc(func(ctx context.Context, m api.Module, fd int32, iovs, iovsLen, resultPtr uint32) uint32 {
			return fdRead(ctx, m.Memory(), fd, iovs, iovsLen, resultPtr)
		}).
		WithParameterNames("fd", "iovs", "iovs_len", "nread").
		Export("fd_read").
		Instantiate(ctx)
	return err
}

func fdWrite(ctx context.Context, mem memory, fd int32, iovs, iovsLen, resultPtr uint32) uint32 {
	dev, errno := lookupDevice(ctx, mem, fd)
	if errno != errnoSuccess {
		return errno
	}
	bufs, errno := readIovecs(mem, iovs, iovsLen)
	if errno != errnoSuccess {
		return errno
	}

	n, err := dev.WriteVectored(ctx, bufs)
	if err != nil {
		return deviceErrno(err)
	}
	if !mem.WriteUint32Le(resultPtr, uint32(n)) {
		return errnoFault
	}
	return errnoSuccess
}

func fdRead(ctx context.Context, mem memory, fd int32, iovs, iovsLen, resultPtr uint32) uint32 {
	dev, errno := lookupDevice(ctx, mem, fd)
	if errno != errnoSuccess {
		return errno
	}
	bufs, errno := readIovecs(mem, iovs, iovsLen)
	if errno != errnoSuccess {
		return errno
	}

	// bufs are views of guest memory, so the reply is copied in place.
	n, err := dev.ReadVectored(bufs)
	if err != nil {
		return deviceErrno(err)
	}
	if !mem.WriteUint32Le(resultPtr, uint32(n)) {
		return errnoFault
	}
	return errnoSuccess
}

func lookupDevice(ctx context.Context, mem memory, fd int32) (*Device, uint32) {
	if mem == nil {
		return nil, errnoFault
	}
	handles := handlesFrom(ctx)
	if handles == nil {
		return nil, errnoBadf
	}
	dev, ok := handles.Get(fd)
	if !ok {
		return nil, errnoBadf
	}
	return dev, errnoSuccess
}

func readIovecs(mem memory, iovs, iovsLen uint32) ([][]byte, uint32) {
	if iovsLen > maxIovecs {
		return nil, errnoInval
	}
	bufs := make([][]byte, 0, iovsLen)
	for i := uint32(0); i < iovsLen; i++ {
		entry, ok := mem.Read(iovs+i*iovecSize, iovecSize)
		if !ok {
			return nil, errnoFault
		}
		offset := binary.LittleEndian.Uint32(entry)
		length := binary.LittleEndian.Uint32(entry[4:])
		buf, ok := mem.Read(offset, length)
		if !ok {
			return nil, errnoFault
		}
		bufs = append(bufs, buf)
	}
	return bufs, errnoSuccess
}

func deviceErrno(err error) uint32 {
	switch {
	case errors.Is(err, ErrInProgress):
		return errnoInProgress
	case errors.Is(err, ErrInvalid):
		return errnoInval
	}
	return errnoBadf
}
