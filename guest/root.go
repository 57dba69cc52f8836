package guest

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"

	"github.com/caffeineduck/asi/interop"
)

// EnvRootFD names the environment variable holding the root device handle.
const EnvRootFD = "ASI_RPCROOT_FD"

var (
	ErrNoEnvironment = errors.New("not running in an a-Si environment")
	ErrInvalidRoot   = errors.New("invalid a-Si RPC root device descriptor")
)

var root = sync.OnceValues(func() (*Client, error) {
	return RootFromEnv(os.LookupEnv, openHandle)
})

// Root returns the process-wide client for the root device. It panics when
// the process was not started by an a-Si host.
func Root() *Client {
	c, err := root()
	if err != nil {
		panic(err.Error())
	}
	return c
}

// RootFromEnv builds a client from the root handle named by EnvRootFD.
func RootFromEnv(lookup func(string) (string, bool), open func(fd int32) Handle) (*Client, error) {
	value, ok := lookup(EnvRootFD)
	if !ok {
		return nil, ErrNoEnvironment
	}

	fd, err := strconv.ParseInt(value, 10, 32)
	if err != nil || fd < 0 {
		return nil, ErrInvalidRoot
	}

	return NewClient(open(int32(fd))), nil
}

func mustCall[R any](req interop.Request[R]) R {
	resp, err := Call[R](Root(), req)
	if err != nil {
		panic(fmt.Sprintf("a-Si RPC call (%d) failed: %v", req.Opcode(), err))
	}
	return resp
}
