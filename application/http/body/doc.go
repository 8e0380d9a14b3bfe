// Package body owns the inbound body of a single HTTP/1.1 request: it
// accumulates chunks pushed in from the transport, enforces a
// configurable size ceiling, honors Expect: 100-continue, and hands the
// body to the application exactly once — buffered, streamed, or
// drained — while guaranteeing that every [buf.ChunkBuffer] is released
// on every path.
//
// Request parsing and framing, response writing, and routing all live
// outside this package; it only ever sees already-decoded chunks and a
// [Channel] through which it can ask the transport for more.
//
// Trailing headers (a final chunk may be followed by trailer fields on
// the wire) are not part of this package's contract: they are header
// data, not body bytes, and belong on the decoded request, never routed
// through [Accumulator.Add].
package body
