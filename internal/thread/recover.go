package thread

import (
	"fmt"
	"runtime"
)

// NoPanic wraps f so that a panic is returned as an error carrying the stack
// trace instead of unwinding further.
func NoPanic(f func() error) func() error {
	return func() (err error) {
		defer func() {
			err = PanicToError(recover(), err)
		}()
		return f()
	}
}

func PanicToError(thrown interface{}, defaultErr error) error {
	if thrown == nil {
		return defaultErr
	}
	const size = 64 << 10
	trace := make([]byte, size)
	trace = trace[:runtime.Stack(trace, false)]
	if err, ok := thrown.(error); ok {
		return fmt.Errorf("panic: %w\n%s", err, string(trace))
	}
	return fmt.Errorf("panic: %v\n%s", thrown, string(trace))
}
