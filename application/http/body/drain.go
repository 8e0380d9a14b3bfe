package body

import (
	"context"
	"network-stack/buf"
)

type drainResult struct {
	outcome DrainOutcome
	err     error
}

// Drain discards the remainder of the body without exposing its bytes,
// so the connection underneath can be reused for the next request. It
// is the terminal step every request takes if its handler never reads
// the body at all, or reads only part of it.
//
// A pending Expect: 100-continue is answered with 417 rather than 100,
// since nothing downstream is going to read the body the client is
// offering.
func (a *Accumulator) Drain(ctx context.Context) (DrainOutcome, error) {
	reply := make(chan drainResult, 1)

	ok := a.exec(func() {
		st := a.state

		switch st.state {
		case TooLarge:
			reply <- drainResult{DrainedTooLarge, nil}
			return
		case Discarded:
			reply <- drainResult{DrainedDiscarded, nil}
			return
		case Read:
			st.discard()
			reply <- drainResult{Drained, nil}
			return
		}

		if st.receivedLast || st.channel.ExpectsContinue() {
			if st.channel.ExpectsContinue() {
				st.channel.FireExpectationFailed()
				st.expectationFailed = true
			}
			st.discard()
			st.state = Read
			reply <- drainResult{Drained, nil}
			return
		}

		if st.exceeds(st.advertisedLength) || st.exceeds(st.receivedLength) {
			st.discard()
			st.state = TooLarge
			st.listener = nil
			reply <- drainResult{DrainedTooLarge, nil}
			return
		}

		st.discard()

		if st.earlyClose {
			st.state = Read
			reply <- drainResult{Drained, nil}
			return
		}

		st.state = Reading

		l := &drainListener{reply: reply}
		st.listener = l
		st.channel.ReadChunk()
	})
	if !ok {
		return DrainedDiscarded, nil
	}

	select {
	case r := <-reply:
		return r.outcome, r.err
	case <-ctx.Done():
		a.exec(func() {
			if _, isDrain := a.state.listener.(*drainListener); isDrain {
				a.state.discard()
				a.state.state = Discarded
				a.state.listener = nil
			}
		})
		select {
		case <-reply:
		default:
		}
		return DrainedDiscarded, ctx.Err()
	}
}

type drainListener struct {
	reply chan drainResult
}

var _ listener = (*drainListener)(nil)

func (l *drainListener) onContent(st *accState, chunk *buf.ChunkBuffer, isLast bool) {
	// Read the chunk's length before releasing it — once released, the
	// backing array can be handed to another caller from the pool and
	// mutated, so nothing on chunk is safe to read afterward.
	n := chunk.Len()
	chunk.Release()

	if n > 0 {
		st.receivedLength += int64(n)
	}

	if st.exceeds(st.receivedLength) {
		st.state = TooLarge
		st.listener = nil
		l.reply <- drainResult{DrainedTooLarge, nil}
		return
	}

	if isLast {
		// Read, not Discarded: a later Drain call on an already-drained
		// body should keep reporting Drained rather than Discarded.
		st.state = Read
		st.listener = nil
		l.reply <- drainResult{Drained, nil}
		return
	}

	st.channel.ReadChunk()
}

func (l *drainListener) onEarlyClose(st *accState) {
	st.state = Read
	st.listener = nil
	l.reply <- drainResult{Drained, nil}
}
