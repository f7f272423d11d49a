package core

import (
	"errors"
	"fmt"
)

var (
	// ErrCancelled is reported when a read observes cancellation of its context.
	ErrCancelled = errors.New("kafkaconsumer: consumer cancelled")

	// ErrSessionClosed is returned when reads are attempted on a closed or terminated session.
	ErrSessionClosed = errors.New("kafkaconsumer: session is closed")

	// ErrNotSubscribed is returned when a read is attempted before Subscribe.
	ErrNotSubscribed = errors.New("kafkaconsumer: session is not subscribed")

	// ErrAlreadyStarted is returned when Subscribe or Run is called twice.
	ErrAlreadyStarted = errors.New("kafkaconsumer: already started")

	// ErrNoConsumer is returned when a session or router has no consumer behind it.
	ErrNoConsumer = errors.New("kafkaconsumer: consumer is nil")

	// ErrNoHandler is returned when Run is called before Handle.
	ErrNoHandler = errors.New("kafkaconsumer: no message handler registered")
)

// Category names the kind of failure behind err: the Go type of the
// innermost error in the chain that is more specific than a plain wrapped
// string. It returns "error" when the whole chain is made of plain errors.
//
// Aggregates (errors.Join, multierr) are followed through their first
// error, which is the primary failure; later ones are secondary, such as
// an error from closing the session afterwards.
func Category(err error) string {
	if err == nil {
		return ""
	}
	category := "error"
	for err != nil {
		if name := fmt.Sprintf("%T", err); !genericError(name) {
			category = name
		}
		err = unwrapFirst(err)
	}
	return category
}

func unwrapFirst(err error) error {
	if multi, ok := err.(interface{ Unwrap() []error }); ok {
		if errs := multi.Unwrap(); len(errs) > 0 {
			return errs[0]
		}
		return nil
	}
	return errors.Unwrap(err)
}

func genericError(name string) bool {
	switch name {
	case "*errors.errorString", "*fmt.wrapError", "*fmt.wrapErrors", "*errors.joinError",
		"*multierr.multiError":
		return true
	}
	return false
}
