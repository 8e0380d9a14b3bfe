package body

import (
	"context"
	"io"
	"network-stack/buf"
	"sync"
)

type streamItem struct {
	chunk *buf.ChunkBuffer
	err   error
	last  bool
}

// Stream is a cold, pull-based reader over the body: each call to Next
// returns one chunk, blocking until it is available. It never buffers
// more than one chunk ahead of the last Next call, which is how this
// package expresses the spec's explicit-demand backpressure — the
// Go translation of a Publisher with request(n) is a consumer that
// only gets handed its next item once it asks (see [BodyStream.Next]).
type BodyStream struct {
	acc   *Accumulator
	items chan streamItem

	cancelled  chan struct{}
	cancelOnce sync.Once

	eof bool // only ever touched by the goroutine calling Next.
}

func newBodyStream(acc *Accumulator) *BodyStream {
	return &BodyStream{
		acc:       acc,
		items:     make(chan streamItem, 1),
		cancelled: make(chan struct{}),
	}
}

// Stream installs a streaming reader over the body and returns it. Only
// one reader (Read, Stream or Drain) may ever be installed; a second
// call from any other state fails with [ErrAlreadyRead].
func (a *Accumulator) Stream(ctx context.Context) (*BodyStream, error) {
	type result struct {
		bs  *BodyStream
		err error
	}
	var res result

	ok := a.exec(func() {
		st := a.state

		if st.state != Unread {
			res.err = ErrAlreadyRead
			return
		}

		if st.exceeds(st.advertisedLength) || st.exceeds(st.receivedLength) {
			observed := st.receivedLength
			if st.exceeds(st.advertisedLength) {
				observed = st.advertisedLength
			}
			st.discard()
			st.state = TooLarge
			res.err = TooLargeError{Ceiling: st.maxContentLength, Observed: observed}
			return
		}

		st.state = Reading
		bs := newBodyStream(a)
		l := &streamListener{stream: bs}
		st.listener = l

		if len(st.received) > 0 {
			composed := buf.Compose(st.received)
			st.received = nil
			if composed.Len() > 0 {
				bs.items <- streamItem{chunk: composed}
			} else {
				composed.Release()
			}
		}

		switch {
		case st.receivedLast:
			st.state = Read
			st.listener = nil
			// A composed chunk may already occupy the single slot; mark it
			// as the last item rather than queueing a second one.
			select {
			case item := <-bs.items:
				item.last = true
				bs.items <- item
			default:
				bs.items <- streamItem{last: true}
			}
		case st.earlyClose:
			st.discard()
			st.state = Discarded
			st.listener = nil
			bs.items <- streamItem{err: ErrConnectionClosed}
		default:
			pump(ctx, st, func(err error) {
				st.discard()
				st.state = Discarded
				st.listener = nil
				bs.items <- streamItem{err: err}
			})
		}

		res.bs = bs
	})
	if !ok {
		return nil, ErrAlreadyRead
	}

	return res.bs, res.err
}

// Next blocks until the next chunk of the body arrives, the body
// completes (io.EOF), an error occurs, or ctx is done. The returned
// chunk, if any, must be released by the caller.
func (bs *BodyStream) Next(ctx context.Context) (*buf.ChunkBuffer, error) {
	if bs.eof {
		return nil, io.EOF
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case item, ok := <-bs.items:
		if !ok {
			bs.eof = true
			return nil, io.EOF
		}
		if item.err != nil {
			bs.eof = true
			return nil, item.err
		}
		if item.last {
			bs.eof = true
		}
		if item.chunk == nil {
			return nil, io.EOF
		}
		return item.chunk, nil
	}
}

// Cancel discards any remainder of the body and releases any buffered,
// undelivered chunk. Safe to call more than once, and safe to call
// after the stream has already completed.
func (bs *BodyStream) Cancel() {
	bs.cancelOnce.Do(func() { close(bs.cancelled) })

	bs.acc.exec(func() {
		st := bs.acc.state
		if l, ok := st.listener.(*streamListener); ok && l.stream == bs {
			st.discard()
			st.state = Discarded
			st.listener = nil
		}
	})

	select {
	case item, ok := <-bs.items:
		if ok && item.chunk != nil {
			item.chunk.Release()
		}
	default:
	}
}

type streamListener struct {
	stream *BodyStream
}

var _ listener = (*streamListener)(nil)

// deliver hands item to the stream's consumer, or releases its chunk
// (if any) if the stream was cancelled before delivery completed.
func (l *streamListener) deliver(item streamItem) {
	select {
	case l.stream.items <- item:
	case <-l.stream.cancelled:
		if item.chunk != nil {
			item.chunk.Release()
		}
	}
}

func (l *streamListener) onContent(st *accState, chunk *buf.ChunkBuffer, isLast bool) {
	if chunk.Len() > 0 {
		st.receivedLength += int64(chunk.Len())
	}

	if st.exceeds(st.receivedLength) {
		chunk.Release()
		st.discard()
		st.state = TooLarge
		st.listener = nil
		l.deliver(streamItem{err: TooLargeError{Ceiling: st.maxContentLength, Observed: st.receivedLength}})
		return
	}

	if isLast {
		st.state = Read
		st.listener = nil
		if chunk.Len() > 0 {
			l.deliver(streamItem{chunk: chunk, last: true})
		} else {
			chunk.Release()
			l.deliver(streamItem{last: true})
		}
		return
	}

	if chunk.Len() > 0 {
		l.deliver(streamItem{chunk: chunk})
	} else {
		chunk.Release()
	}

	st.channel.ReadChunk()
}

func (l *streamListener) onEarlyClose(st *accState) {
	st.discard()
	st.state = Discarded
	st.listener = nil
	l.deliver(streamItem{err: ErrConnectionClosed})
}
