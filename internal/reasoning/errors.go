package reasoning

import (
	"errors"
	"fmt"
)

var (
	// ErrTransientCapacity marks failures where the capability is overloaded
	// or rate limited. These are retried.
	ErrTransientCapacity = errors.New("reasoning capability overloaded or rate limited")
	// ErrFatalCapability marks failures that abort the run.
	ErrFatalCapability = errors.New("reasoning capability failed")
	// ErrRetriesExhausted marks transient failures that outlived the retry bound.
	ErrRetriesExhausted = errors.New("retries exhausted")
)

// MarkTransient wraps err so the client retries it.
func MarkTransient(err error) error {
	if err == nil || errors.Is(err, ErrTransientCapacity) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrTransientCapacity, err)
}

// IsTransient reports whether err is a transient-capacity failure.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransientCapacity)
}

// CapabilityError is returned by Client.Invoke for every failure that
// escalates out of the adapter. It always matches ErrFatalCapability and,
// when the retry bound was hit, ErrRetriesExhausted.
type CapabilityError struct {
	Stage     string
	Backend   string
	Attempts  int
	Exhausted bool
	Err       error
}

func (e *CapabilityError) Error() string {
	if e.Exhausted {
		return fmt.Sprintf("%s: %s stage via %s: %d attempts: %v",
			ErrRetriesExhausted, e.Stage, e.Backend, e.Attempts, e.Err)
	}
	return fmt.Sprintf("%s: %s stage via %s: %v", ErrFatalCapability, e.Stage, e.Backend, e.Err)
}

func (e *CapabilityError) Unwrap() []error {
	errs := []error{ErrFatalCapability, e.Err}
	if e.Exhausted {
		errs = append(errs, ErrRetriesExhausted)
	}
	return errs
}
