package body

import (
	"context"
	"network-stack/buf"
	"sync"
)

// Accumulator owns the inbound body of one HTTP/1.1 request. All of its
// mutable state lives behind a single goroutine (run), so the three
// reader methods and the transport-facing Add/OnClose never need a
// lock — they hand a closure to that goroutine and wait for it to run,
// the same "funnel everything through one channel" style the actor/server
// package uses for per-connection state (see pipelineReceiver/Worker).
type Accumulator struct {
	ops  chan func()
	stop chan struct{}
	once sync.Once

	stopped chan struct{}

	state *accState
}

// accState is the data model described by the accumulator's invariants.
// Every field is touched exclusively by the goroutine started in New;
// nothing outside this package ever reaches in directly.
type accState struct {
	channel Channel

	advertisedLength int64 // -1 if unknown (absent Content-Length, or chunked)
	maxContentLength int64 // <= 0 means unlimited
	receivedLength   int64

	received     []*buf.ChunkBuffer
	receivedLast bool
	earlyClose   bool

	state             State
	listener          listener
	expectationFailed bool
}

// New creates an accumulator for a request whose advertised body length
// is advertisedLength (-1 if the request has no Content-Length, e.g. a
// chunked body) and whose size ceiling is maxContentLength (<=0 means
// unlimited). channel is the accumulator's only way of talking back to
// the transport.
func New(channel Channel, advertisedLength, maxContentLength int64) *Accumulator {
	a := &Accumulator{
		ops:     make(chan func()),
		stop:    make(chan struct{}),
		stopped: make(chan struct{}),
		state: &accState{
			channel:          channel,
			advertisedLength: advertisedLength,
			maxContentLength: maxContentLength,
			state:            Unread,
		},
	}
	go a.run()
	return a
}

func (a *Accumulator) run() {
	defer close(a.stopped)
	defer a.state.releaseAll()

	for {
		select {
		case op := <-a.ops:
			op()
		case <-a.stop:
			return
		}
	}
}

// exec runs fn on the owning goroutine and waits for it to finish. It
// returns false without running fn if the accumulator has already been
// shut down.
func (a *Accumulator) exec(fn func()) bool {
	done := make(chan struct{})
	select {
	case a.ops <- func() { fn(); close(done) }:
		<-done
		return true
	case <-a.stop:
		return false
	}
}

// Add is called by whatever feeds chunks from the transport (in order,
// with isLast set on the terminal chunk). It never blocks on the
// network; ownership of chunk transfers to the accumulator, which
// retains, forwards, or releases it depending on the current state.
func (a *Accumulator) Add(chunk *buf.ChunkBuffer, isLast bool) {
	if ok := a.exec(func() { a.state.handleAdd(chunk, isLast) }); !ok {
		chunk.Release()
	}
}

// OnClose reports that the channel closed, from either peer, before a
// terminal chunk was necessarily seen.
func (a *Accumulator) OnClose() {
	a.exec(func() { a.state.handleClose() })
}

// closableChannel is implemented by [Channel]s that run a background
// pump goroutine (e.g. [ReaderChannel]) needing an explicit signal to
// stop if it's left idle waiting for a ReadChunk that will never come
// — e.g. because WriteContinue failed before any chunk was requested.
type closableChannel interface {
	Close()
}

// Shutdown stops the accumulator's goroutine and releases any chunks it
// is still holding. Callers must call it exactly once, when the request
// exchange this accumulator belongs to is over — reusing the connection
// for a following request must wait until Shutdown returns.
func (a *Accumulator) Shutdown() {
	a.once.Do(func() {
		close(a.stop)
		if cc, ok := a.state.channel.(closableChannel); ok {
			cc.Close()
		}
	})
	<-a.stopped
}

// ContentLength returns the request's advertised Content-Length, or -1
// if absent (including chunked requests).
func (a *Accumulator) ContentLength() int64 {
	var n int64
	a.exec(func() { n = a.state.advertisedLength })
	return n
}

// ExpectationFailed reports whether Drain ever rejected a pending
// Expect: 100-continue instead of reading the body, so callers above
// this package can answer the client with 417 rather than whatever
// status the handler produced for a request it never meant to finish.
func (a *Accumulator) ExpectationFailed() bool {
	var failed bool
	a.exec(func() { failed = a.state.expectationFailed })
	return failed
}

// MaxContentLength returns the configured size ceiling. A value <= 0
// means unlimited.
func (a *Accumulator) MaxContentLength() int64 {
	var n int64
	a.exec(func() { n = a.state.maxContentLength })
	return n
}

// SetMaxContentLength changes the size ceiling. It only affects checks
// performed after the call returns.
func (a *Accumulator) SetMaxContentLength(n int64) {
	a.exec(func() { a.state.maxContentLength = n })
}

func (st *accState) exceeds(n int64) bool {
	return st.maxContentLength > 0 && n > 0 && n > st.maxContentLength
}

func (st *accState) releaseAll() {
	for _, c := range st.received {
		c.Release()
	}
	st.received = nil
}

// discard drops every chunk currently held. It does not change state;
// callers set state themselves right after (to TooLarge or Discarded).
func (st *accState) discard() {
	st.releaseAll()
}

func (st *accState) handleAdd(chunk *buf.ChunkBuffer, isLast bool) {
	if st.state == Read || st.state == TooLarge || st.state == Discarded {
		chunk.Release()
		return
	}

	if isLast {
		st.receivedLast = true
	}

	if st.listener != nil {
		st.listener.onContent(st, chunk, isLast)
		return
	}

	if chunk.Len() > 0 {
		st.received = append(st.received, chunk)
		st.receivedLength += int64(chunk.Len())
	} else {
		chunk.Release()
	}
}

func (st *accState) handleClose() {
	if st.receivedLast {
		return
	}

	if st.listener != nil {
		st.listener.onEarlyClose(st)
		return
	}

	st.earlyClose = true
}

// pump writes the continue preface if the request expects one, then
// issues the first read. onWriteErr is invoked in place of the read if
// the preface write fails.
func pump(ctx context.Context, st *accState, onWriteErr func(error)) {
	if st.channel.ExpectsContinue() {
		if err := st.channel.WriteContinue(ctx); err != nil {
			onWriteErr(err)
			return
		}
	}
	st.channel.ReadChunk()
}
