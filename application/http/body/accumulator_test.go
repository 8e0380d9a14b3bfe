package body

import (
	"network-stack/buf"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/goleak"
)

type AccumulatorTestSuite struct {
	suite.Suite
}

func TestAccumulatorTestSuite(t *testing.T) {
	suite.Run(t, new(AccumulatorTestSuite))
}

func (s *AccumulatorTestSuite) TearDownTest() {
	goleak.VerifyNone(s.T())
}

func (s *AccumulatorTestSuite) TestContentLengthAccessors() {
	ch := newFakeChannel()
	acc := New(ch, 42, 1000)
	defer acc.Shutdown()

	s.Equal(int64(42), acc.ContentLength())
	s.Equal(int64(1000), acc.MaxContentLength())

	acc.SetMaxContentLength(10)
	s.Equal(int64(10), acc.MaxContentLength())
}

func (s *AccumulatorTestSuite) TestShutdownReleasesUnreadChunks() {
	ch := newFakeChannel()
	acc := New(ch, -1, 0)

	released := false
	acc.Add(buf.NewWithRelease([]byte("never read"), func([]byte) { released = true }), false)

	acc.Shutdown()

	s.True(released, "Shutdown must release every chunk it is still holding")
}

func (s *AccumulatorTestSuite) TestShutdownIsIdempotent() {
	ch := newFakeChannel()
	acc := New(ch, -1, 0)

	acc.Shutdown()
	s.NotPanics(func() { acc.Shutdown() })
}

func (s *AccumulatorTestSuite) TestAddAfterShutdownReleasesChunk() {
	ch := newFakeChannel()
	acc := New(ch, -1, 0)
	acc.Shutdown()

	released := false
	acc.Add(buf.NewWithRelease([]byte("late"), func([]byte) { released = true }), true)

	s.True(released)
}
