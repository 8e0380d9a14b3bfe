// Package nettcp adapts the real net.Conn/net.Listener/net.Dialer
// surface to the transport package's interfaces, the same role
// transport/pipe plays for an in-memory connection.
package nettcp

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"network-stack/transport"
)

// Addr identifies a TCP endpoint to dial or to report as a [Conn]'s
// local/remote address.
type Addr struct {
	Network string // "tcp", "tcp4", "tcp6"
	Address string // host:port
}

func (a Addr) String() string { return a.Address }

var _ transport.Addr = Addr{}

func fromNetAddr(a net.Addr) Addr {
	return Addr{Network: a.Network(), Address: a.String()}
}

// Conn adapts a net.Conn to transport.Conn.
type Conn struct {
	nc net.Conn
}

// NewConn wraps an already-established net.Conn.
func NewConn(nc net.Conn) *Conn {
	return &Conn{nc: nc}
}

var _ transport.Conn = (*Conn)(nil)

func (c *Conn) Read(p []byte) (int, error) {
	n, err := c.nc.Read(p)
	return n, translateErr(err)
}

func (c *Conn) Write(p []byte) (int, error) {
	n, err := c.nc.Write(p)
	return n, translateErr(err)
}

func (c *Conn) Close() error { return c.nc.Close() }

func (c *Conn) LocalAddr() transport.Addr  { return fromNetAddr(c.nc.LocalAddr()) }
func (c *Conn) RemoteAddr() transport.Addr { return fromNetAddr(c.nc.RemoteAddr()) }

func (c *Conn) SetReadDeadLine(t time.Time)  { c.nc.SetReadDeadline(t) }
func (c *Conn) SetWriteDeadLine(t time.Time) { c.nc.SetWriteDeadline(t) }

// translateErr maps net's sentinel/typed errors onto the transport
// package's own sentinels so callers above the transport boundary
// never need to know which concrete [transport.Conn] they're holding.
// io.EOF passes through unchanged: it's part of the io.Reader contract,
// not a transport-layer failure.
func translateErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, net.ErrClosed) {
		return transport.ErrConnClosed
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return transport.ErrDeadLineExceeded
	}
	return err
}

type acceptResult struct {
	conn net.Conn
	err  error
}

// Listener adapts a net.Listener to transport.ConnListener. Because
// net.Listener.Accept is a blocking syscall that only a Close can
// interrupt, a background goroutine owns the syscall and feeds results
// to Accept over a channel, mirroring transport/pipe's channel-select
// shape for Accept even though the underlying accept here can't itself
// be raced against ctx.
type Listener struct {
	nl    net.Listener
	conns chan acceptResult
	done  chan struct{}
	once  sync.Once
}

// NewListener wraps an already-listening net.Listener (e.g. the result
// of net.Listen("tcp", addr)).
func NewListener(nl net.Listener) *Listener {
	l := &Listener{
		nl:    nl,
		conns: make(chan acceptResult),
		done:  make(chan struct{}),
	}
	go l.acceptLoop()
	return l
}

func (l *Listener) acceptLoop() {
	for {
		c, err := l.nl.Accept()
		select {
		case l.conns <- acceptResult{conn: c, err: err}:
		case <-l.done:
			if c != nil {
				c.Close()
			}
			return
		}
		if err != nil {
			return
		}
	}
}

var _ transport.ConnListener = (*Listener)(nil)

func (l *Listener) Accept(ctx context.Context) (transport.Conn, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-l.done:
		return nil, transport.ErrConnListenerClosed
	case r := <-l.conns:
		if r.err != nil {
			return nil, translateErr(r.err)
		}
		return NewConn(r.conn), nil
	}
}

func (l *Listener) Close() error {
	l.once.Do(func() { close(l.done) })
	return l.nl.Close()
}

// Dialer adapts net.Dialer to transport.ConnDialer.
type Dialer struct {
	nd net.Dialer
}

func NewDialer() *Dialer { return &Dialer{} }

var _ transport.ConnDialer = (*Dialer)(nil)

func (d *Dialer) Dial(ctx context.Context, addr transport.Addr) (transport.Conn, error) {
	a, ok := addr.(Addr)
	if !ok {
		a = Addr{Network: "tcp", Address: addr.String()}
	}
	nc, err := d.nd.DialContext(ctx, a.Network, a.Address)
	if err != nil {
		return nil, translateErr(err)
	}
	return NewConn(nc), nil
}

// Listen starts listening on addr and returns a bound [Listener].
func Listen(addr Addr) (*Listener, error) {
	network := addr.Network
	if network == "" {
		network = "tcp"
	}
	nl, err := net.Listen(network, addr.Address)
	if err != nil {
		return nil, translateErr(err)
	}
	return NewListener(nl), nil
}
