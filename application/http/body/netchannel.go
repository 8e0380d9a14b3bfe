package body

import (
	"context"
	"io"
	"network-stack/buf"
	"sync"
)

// ReaderChannel is the production [Channel]: it pumps chunks off an
// io.Reader that already knows where the body ends (a Content-Length
// limited reader or a chunked-transfer decoder), one Read per ReadChunk
// signal. This is the non-blocking-channel side the accumulator expects
// to sit behind, built the way actor/server's pipelineReceiver goroutine
// turns a blocking conn.Read into events the rest of the pipeline reacts
// to instead of waiting on.
type ReaderChannel struct {
	r         io.Reader
	chunkSize int

	expectsContinue bool
	writeContinueFn func(context.Context) error
	fireExpFailedFn func()

	acc *Accumulator

	readSignal chan struct{}
	closed     chan struct{}
	closeOnce  sync.Once
}

// NewReaderChannel builds a channel pumping r in chunkSize pieces.
// writeContinueFn writes the wire-level "100 Continue" preface;
// fireExpFailedFn notifies whatever owns the connection that a pending
// Expect was rejected. Either may be nil if expectsContinue is false.
func NewReaderChannel(
	r io.Reader, chunkSize int, expectsContinue bool,
	writeContinueFn func(context.Context) error, fireExpFailedFn func(),
) *ReaderChannel {
	return &ReaderChannel{
		r:               r,
		chunkSize:       chunkSize,
		expectsContinue: expectsContinue,
		writeContinueFn: writeContinueFn,
		fireExpFailedFn: fireExpFailedFn,
		readSignal:      make(chan struct{}, 1),
		closed:          make(chan struct{}),
	}
}

// Bind associates the channel with the accumulator it feeds and starts
// the goroutine that services ReadChunk. Must be called exactly once,
// before the accumulator issues its first ReadChunk.
func (rc *ReaderChannel) Bind(acc *Accumulator) {
	rc.acc = acc
	go rc.run()
}

// Close stops the pump goroutine if it is idle, waiting for a ReadChunk
// that will never come (e.g. the body was never read or drained).
// Calling it after the pump has already reached the terminal chunk is a
// no-op. Safe to call more than once.
func (rc *ReaderChannel) Close() {
	rc.closeOnce.Do(func() { close(rc.closed) })
}

func (rc *ReaderChannel) run() {
	raw := make([]byte, rc.chunkSize)

	for {
		select {
		case <-rc.readSignal:
		case <-rc.closed:
			return
		}

		n, err := rc.r.Read(raw)

		last := err == io.EOF
		if err != nil && !last {
			rc.acc.OnClose()
			return
		}

		var chunk *buf.ChunkBuffer
		if n > 0 {
			chunk = buf.NewPooled(n)
			copy(chunk.Bytes(), raw[:n])
		} else {
			chunk = buf.Empty()
		}

		rc.acc.Add(chunk, last)
		if last {
			return
		}
	}
}

// ReadChunk never blocks: only one ReadChunk is ever outstanding at a
// time (the accumulator waits for the resulting Add before issuing
// another), so a buffer of one is never at risk of dropping a signal.
func (rc *ReaderChannel) ReadChunk() {
	select {
	case rc.readSignal <- struct{}{}:
	default:
	}
}

func (rc *ReaderChannel) WriteContinue(ctx context.Context) error {
	if rc.writeContinueFn == nil {
		return nil
	}
	return rc.writeContinueFn(ctx)
}

func (rc *ReaderChannel) FireExpectationFailed() {
	if rc.fireExpFailedFn != nil {
		rc.fireExpFailedFn()
	}
}

func (rc *ReaderChannel) ExpectsContinue() bool {
	return rc.expectsContinue
}
