//go:build !wasip1

package guest

import "errors"

var errNoDevice = errors.New("sysreq device requires wasip1")

// openHandle outside wasip1 returns a handle that fails every call, so a
// client built from it is poisoned on first use.
func openHandle(int32) Handle {
	return noDevice{}
}

type noDevice struct{}

func (noDevice) Read([]byte) (int, error)  { return 0, errNoDevice }
func (noDevice) Write([]byte) (int, error) { return 0, errNoDevice }
