package body

import (
	"context"
	"sync"
)

// fakeChannel is a test double for [Channel] that records every call
// instead of driving a real connection. Tests feed chunks themselves
// via Accumulator.Add/OnClose.
type fakeChannel struct {
	mu sync.Mutex

	expectsContinue bool
	continueErr     error

	readChunkCalls int
	continueCalls  int
	expFailedCalls int
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{}
}

func (f *fakeChannel) ReadChunk() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.readChunkCalls++
}

func (f *fakeChannel) WriteContinue(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.continueCalls++
	return f.continueErr
}

func (f *fakeChannel) FireExpectationFailed() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.expFailedCalls++
}

func (f *fakeChannel) ExpectsContinue() bool {
	return f.expectsContinue
}

func (f *fakeChannel) readChunkCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.readChunkCalls
}

func (f *fakeChannel) continueCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.continueCalls
}

func (f *fakeChannel) expFailedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.expFailedCalls
}

var _ Channel = (*fakeChannel)(nil)
