package body

import "fmt"

// ErrAlreadyRead is returned when [Accumulator.Read] or [Accumulator.Stream]
// is called after a reader (Read, Stream or Drain) was already installed
// for the same request. [Accumulator.Drain] never returns it: a repeated
// Drain reports the body's terminal outcome instead.
var ErrAlreadyRead = fmt.Errorf("request body already read")

// ErrConnectionClosed is returned when the transport closed before the
// terminal chunk arrived and no too-large condition was hit first.
var ErrConnectionClosed = fmt.Errorf("connection closed before body was fully received")

// TooLargeError reports that the body exceeded the configured ceiling.
// Observed is either the advertised Content-Length or the number of
// bytes actually received so far, whichever tripped the check.
type TooLargeError struct {
	Ceiling  int64
	Observed int64
}

func (e TooLargeError) Error() string {
	return fmt.Sprintf("request body too large: %d bytes exceeds ceiling of %d", e.Observed, e.Ceiling)
}

// TooLargeAction is invoked by [Accumulator.Read] when the caller wants
// to handle an oversize body itself (e.g. respond with 413) instead of
// the body failing outright with [TooLargeError]. Returning an error
// fails the read with that error; returning nil completes the read
// with no value. A nil TooLargeAction passed to Read requests the
// default behavior: fail with [TooLargeError].
type TooLargeAction func(ceiling, observed int64) error
