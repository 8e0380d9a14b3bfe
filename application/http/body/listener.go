package body

import "network-stack/buf"

// listener is the tagged variant the accumulator dispatches add/close
// events to once a reader has installed one. At most one implementation
// ([*oneShotListener], [*streamListener] or [*drainListener]) occupies
// accState.listener at a time, which enforces the single-reader
// invariant by construction: installing a second one is impossible
// without first clearing the field, and every reader method checks
// accState.state before doing so.
type listener interface {
	onContent(st *accState, chunk *buf.ChunkBuffer, isLast bool)
	onEarlyClose(st *accState)
}
