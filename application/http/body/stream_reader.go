package body

import "context"

// StreamReader adapts an [Accumulator] to the plain io.ReadCloser shape
// most handler code expects, while still going through Stream/Next
// underneath — so the size ceiling, the 100-continue preface and the
// reference-counted chunk release all happen exactly as they do for a
// caller that drives the accumulator directly.
type StreamReader struct {
	ctx context.Context
	acc *Accumulator

	stream  *BodyStream
	started bool

	cur *chunkCursor
	err error
}

type chunkCursor struct {
	data []byte
	off  int
	// release drops this reader's reference to the chunk (returning a
	// pooled buffer to its pool) once fully consumed.
	release func()
}

// NewStreamReader builds a reader over acc's body. ctx bounds every
// Read call's wait for the next chunk.
func NewStreamReader(ctx context.Context, acc *Accumulator) *StreamReader {
	return &StreamReader{ctx: ctx, acc: acc}
}

func (sr *StreamReader) Read(p []byte) (int, error) {
	if sr.err != nil {
		return 0, sr.err
	}

	if !sr.started {
		sr.started = true
		s, err := sr.acc.Stream(sr.ctx)
		if err != nil {
			sr.err = err
			return 0, err
		}
		sr.stream = s
	}

	for sr.cur == nil || sr.cur.off >= len(sr.cur.data) {
		if sr.cur != nil {
			sr.cur.release()
			sr.cur = nil
		}

		chunk, err := sr.stream.Next(sr.ctx)
		if err != nil {
			sr.err = err
			return 0, err
		}

		sr.cur = &chunkCursor{data: chunk.Bytes(), release: chunk.Release}
	}

	n := copy(p, sr.cur.data[sr.cur.off:])
	sr.cur.off += n
	return n, nil
}

// Close cancels the stream and releases any buffered, unconsumed
// chunk. Safe to call even if Read was never called, or already
// reached io.EOF.
func (sr *StreamReader) Close() error {
	if sr.cur != nil {
		sr.cur.release()
		sr.cur = nil
	}
	if sr.stream != nil {
		sr.stream.Cancel()
	}
	return nil
}
