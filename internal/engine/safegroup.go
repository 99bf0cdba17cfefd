package engine

import (
	"fmt"
	"runtime/debug"

	"golang.org/x/sync/errgroup"

	"github.com/webvy/webvy/pkg/logger"
)

// SafeGroup wraps errgroup.Group with panic recovery so a panicking
// goroutine surfaces as an error instead of crashing the build.
//
// Unlike errgroup.WithContext, a failure does not cancel sibling
// goroutines: every function passed to Go runs to completion.
type SafeGroup struct {
	group  errgroup.Group
	logger logger.Logger
}

// NewSafeGroup creates a new SafeGroup with panic recovery
func NewSafeGroup(log logger.Logger) *SafeGroup {
	return &SafeGroup{logger: log}
}

// Go runs the given function in a new goroutine with panic recovery.
// Any panic is converted to an error and logged with stack trace.
func (sg *SafeGroup) Go(fn func() error) {
	sg.group.Go(func() error {
		return sg.protect(fn)
	})
}

func (sg *SafeGroup) protect(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			sg.logger.Error("Goroutine panic recovered",
				logger.WithField("panic", r),
				logger.WithField("stack_trace", string(debug.Stack())))
			err = fmt.Errorf("goroutine panic: %v", r)
		}
	}()
	return fn()
}

// Wait blocks until all goroutines have completed and returns the first
// error encountered.
func (sg *SafeGroup) Wait() error {
	return sg.group.Wait()
}
