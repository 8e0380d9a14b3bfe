package body

import (
	"context"
	"network-stack/buf"
)

type oneShotResult struct {
	buf *buf.ChunkBuffer
	err error
}

// Read produces the full body as a single composed [buf.ChunkBuffer].
//
// onTooLarge, if non-nil, is invoked instead of failing with
// [TooLargeError] when the body exceeds the configured ceiling; a nil
// onTooLarge (or the default behavior) fails the read with
// [TooLargeError]. If onTooLarge returns nil, Read returns (nil, nil):
// the caller handled the condition itself (e.g. answered 413) and there
// is no buffer to release.
//
// The returned buffer, if non-nil, must eventually be released by the
// caller. If the caller's context is done before Read completes, Read
// returns ctx.Err() and discards whatever was accumulated so far.
func (a *Accumulator) Read(ctx context.Context, onTooLarge TooLargeAction) (*buf.ChunkBuffer, error) {
	reply := make(chan oneShotResult, 1)

	var l *oneShotListener

	ok := a.exec(func() {
		st := a.state

		if st.state != Unread {
			reply <- oneShotResult{err: ErrAlreadyRead}
			return
		}
		st.state = Reading

		if st.exceeds(st.advertisedLength) {
			finishTooLarge(st, onTooLarge, st.advertisedLength, reply)
			return
		}
		if st.exceeds(st.receivedLength) {
			finishTooLarge(st, onTooLarge, st.receivedLength, reply)
			return
		}
		if st.receivedLast {
			composed := buf.Compose(st.received)
			st.received = nil
			st.state = Read
			reply <- oneShotResult{buf: composed}
			return
		}
		if st.earlyClose {
			st.discard()
			st.state = Discarded
			reply <- oneShotResult{err: ErrConnectionClosed}
			return
		}

		l = &oneShotListener{reply: reply, onTooLarge: onTooLarge}
		st.listener = l

		pump(ctx, st, func(err error) {
			st.discard()
			st.state = Discarded
			st.listener = nil
			reply <- oneShotResult{err: err}
		})
	})
	if !ok {
		return nil, ErrAlreadyRead
	}

	select {
	case r := <-reply:
		return r.buf, r.err
	case <-ctx.Done():
		a.exec(func() {
			if a.state.listener == l {
				a.state.discard()
				a.state.state = Discarded
				a.state.listener = nil
			}
		})
		select {
		case r := <-reply:
			if r.buf != nil {
				r.buf.Release()
			}
		default:
		}
		return nil, ctx.Err()
	}
}

// finishTooLarge runs the too-large path shared by the fast-path checks
// and the installed listener: discard held chunks, move to TooLarge,
// then either fail with [TooLargeError] (default) or run the caller's
// action.
func finishTooLarge(st *accState, action TooLargeAction, observed int64, reply chan<- oneShotResult) {
	st.discard()
	st.state = TooLarge
	st.listener = nil

	if action == nil {
		reply <- oneShotResult{err: TooLargeError{Ceiling: st.maxContentLength, Observed: observed}}
		return
	}

	if err := action(st.maxContentLength, observed); err != nil {
		reply <- oneShotResult{err: err}
		return
	}

	reply <- oneShotResult{}
}

type oneShotListener struct {
	reply      chan oneShotResult
	onTooLarge TooLargeAction
}

var _ listener = (*oneShotListener)(nil)

func (l *oneShotListener) onContent(st *accState, chunk *buf.ChunkBuffer, isLast bool) {
	if chunk.Len() > 0 {
		st.receivedLength += int64(chunk.Len())
	}

	if st.exceeds(st.receivedLength) {
		chunk.Release()
		finishTooLarge(st, l.onTooLarge, st.receivedLength, l.reply)
		return
	}

	if chunk.Len() > 0 {
		st.received = append(st.received, chunk)
	} else {
		chunk.Release()
	}

	if isLast {
		st.state = Read
		st.listener = nil
		composed := buf.Compose(st.received)
		st.received = nil
		l.reply <- oneShotResult{buf: composed}
		return
	}

	st.channel.ReadChunk()
}

func (l *oneShotListener) onEarlyClose(st *accState) {
	st.discard()
	st.state = Discarded
	st.listener = nil
	l.reply <- oneShotResult{err: ErrConnectionClosed}
}
