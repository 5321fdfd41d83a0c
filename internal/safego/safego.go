package safego

import (
	"runtime/debug"

	"github.com/sirupsen/logrus"
)

// Go runs fn on a new goroutine. The terminal UI swallows anything written to
// stdout, so a panic is logged with its stack before crashing out again.
func Go(logger logrus.FieldLogger, fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Errorf("PANIC: %v\n%s", r, debug.Stack())
				panic(r)
			}
		}()
		fn()
	}()
}
