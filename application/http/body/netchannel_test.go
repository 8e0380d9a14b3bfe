package body

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/goleak"
)

type ReaderChannelTestSuite struct {
	suite.Suite
}

func TestReaderChannelTestSuite(t *testing.T) {
	suite.Run(t, new(ReaderChannelTestSuite))
}

func (s *ReaderChannelTestSuite) TearDownTest() {
	goleak.VerifyNone(s.T())
}

func (s *ReaderChannelTestSuite) TestPumpsReaderInChunksUntilEOF() {
	r := bytes.NewReader([]byte("hello world"))
	rc := NewReaderChannel(r, 5, false, nil, nil)

	acc := New(rc, 11, 0)
	rc.Bind(acc)
	defer acc.Shutdown()

	got, err := acc.Read(context.Background(), nil)
	s.Require().NoError(err)
	s.Equal("hello world", string(got.Bytes()))
	got.Release()
}

func (s *ReaderChannelTestSuite) TestWriteContinueFailureDiscardsBody() {
	sentinel := errors.New("write failed")
	rc := NewReaderChannel(bytes.NewReader(nil), 16, true,
		func(ctx context.Context) error { return sentinel }, nil,
	)

	acc := New(rc, -1, 0)
	rc.Bind(acc)
	defer acc.Shutdown()

	_, err := acc.Read(context.Background(), nil)
	s.ErrorIs(err, sentinel)
}

func (s *ReaderChannelTestSuite) TestExpectsContinueReported() {
	rc := NewReaderChannel(bytes.NewReader(nil), 16, true, nil, nil)
	s.True(rc.ExpectsContinue())

	rc2 := NewReaderChannel(bytes.NewReader(nil), 16, false, nil, nil)
	s.False(rc2.ExpectsContinue())
}

func (s *ReaderChannelTestSuite) TestWriteContinueCalledBeforeFirstRead() {
	called := false
	rc := NewReaderChannel(bytes.NewReader([]byte("x")), 16, true,
		func(ctx context.Context) error { called = true; return nil }, nil,
	)

	acc := New(rc, 1, 0)
	rc.Bind(acc)
	defer acc.Shutdown()

	got, err := acc.Read(context.Background(), nil)
	s.Require().NoError(err)
	s.True(called)
	got.Release()
}

func (s *ReaderChannelTestSuite) TestCloseStopsIdlePump() {
	rc := NewReaderChannel(bytes.NewReader([]byte("unread")), 16, false, nil, nil)

	acc := New(rc, -1, 0)
	rc.Bind(acc)

	// Nothing ever calls Read/Stream/Drain, so the pump goroutine sits
	// blocked on its signal channel; Shutdown must still reclaim it.
	acc.Shutdown()
}
