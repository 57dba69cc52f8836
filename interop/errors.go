package interop

import "strconv"

// RPCError is a transport or protocol failure of a sysreq call.
type RPCError uint8

const (
	// ErrBadDescriptor means the device is unusable or in an unknown state.
	ErrBadDescriptor RPCError = iota + 1
	// ErrBadRequest means the host rejected the request.
	ErrBadRequest
	// ErrBadResponse means the host reply could not be decoded.
	ErrBadResponse
)

func (e RPCError) Error() string {
	switch e {
	case ErrBadDescriptor:
		return "bad descriptor"
	case ErrBadRequest:
		return "bad request"
	case ErrBadResponse:
		return "bad response"
	}
	return "rpc error " + strconv.Itoa(int(e))
}

func (e RPCError) valid() bool {
	return e >= ErrBadDescriptor && e <= ErrBadResponse
}

// NetError is the domain failure of a network request. The zero value means
// no error.
type NetError uint8

const (
	ErrAccessDenied NetError = iota + 1
	ErrNotFound
	ErrFailed
)

func (e NetError) Error() string {
	switch e {
	case 0:
		return "success"
	case ErrAccessDenied:
		return "access denied"
	case ErrNotFound:
		return "query returned no results"
	case ErrFailed:
		return "operation failed"
	}
	return "net error " + strconv.Itoa(int(e))
}

// Err returns e as an error, or nil for the zero value.
func (e NetError) Err() error {
	if e == 0 {
		return nil
	}
	return e
}
