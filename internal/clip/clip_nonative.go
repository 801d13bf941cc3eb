//go:build !darwin && !linux && !windows

package clip

import (
	"fmt"
	"runtime"
)

func newNative() (Backend, error) {
	return nil, fmt.Errorf("%w: no native clipboard for %s", ErrUnsupported, runtime.GOOS)
}
