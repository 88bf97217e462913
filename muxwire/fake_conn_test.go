package muxwire

import (
	"errors"
	"io"
	"net"
	"sync"
	"time"
)

// fakeConn is a net.Conn that lets tests inject read errors, simulating
// abnormal transport failures that net.Pipe cannot produce.
type fakeConn struct {
	mtx      sync.Mutex
	chRead   chan []byte
	chErr    chan error
	chClosed chan struct{}
	closed   bool
}

type fakeAddr struct{}

func (fakeAddr) Network() string { return "fake" }
func (fakeAddr) String() string  { return "fake" }

func newFakeConn() *fakeConn {
	var c fakeConn
	c.chRead = make(chan []byte, 16)
	c.chErr = make(chan error, 1)
	c.chClosed = make(chan struct{})
	return &c
}

func (c *fakeConn) injectReadError(err error) {
	c.chErr <- err
}

func (c *fakeConn) Read(bs []byte) (int, error) {
	select {
	case data := <-c.chRead:
		return copy(bs, data), nil
	case err := <-c.chErr:
		return 0, err
	case <-c.chClosed:
		return 0, io.EOF
	}
}

func (c *fakeConn) Write(bs []byte) (int, error) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	if c.closed {
		return 0, errors.New("write on closed fakeConn")
	}
	return len(bs), nil
}

func (c *fakeConn) Close() error {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	if !c.closed {
		c.closed = true
		close(c.chClosed)
	}
	return nil
}

func (c *fakeConn) LocalAddr() net.Addr                { return fakeAddr{} }
func (c *fakeConn) RemoteAddr() net.Addr               { return fakeAddr{} }
func (c *fakeConn) SetDeadline(t time.Time) error      { return nil }
func (c *fakeConn) SetReadDeadline(t time.Time) error  { return nil }
func (c *fakeConn) SetWriteDeadline(t time.Time) error { return nil }
