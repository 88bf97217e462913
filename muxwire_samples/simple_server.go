package muxwire_samples

import (
	"errors"

	"github.com/muxwire/muxwire/muxwire"
)

// SimpleServer listens for muxwire clients and serves two destinations:
// "version" and "echo".
type SimpleServer struct {
	listener *muxwire.Listener
	conf     muxwire.PolicyConfig
}

const SimpleServerVersion = "muxwire sample server 1.0"

func NewSimpleServer(port int) *SimpleServer {
	var conf muxwire.PolicyConfig
	conf.Init()
	var connConfig muxwire.ConnectionConfig
	connConfig.Init()
	return NewSimpleServerEx(port, conf, connConfig)
}

func NewSimpleServerEx(port int, conf muxwire.PolicyConfig, connConfig muxwire.ConnectionConfig) *SimpleServer {
	var c SimpleServer
	c.conf = conf
	c.listener = muxwire.NewListener(port, c.conf, connConfig, func(conn *muxwire.Connection, peerHeaders muxwire.Headers) (muxwire.ActiveSession, error) {
		return newServerDispatchSession(conn), nil
	})
	return &c
}

// Listener exposes the underlying listener for the status HTTP API.
func (c *SimpleServer) Listener() *muxwire.Listener {
	return c.listener
}

func (c *SimpleServer) Start() error {
	return c.listener.Start()
}

func (c *SimpleServer) Stop() error {
	return c.listener.Stop()
}

func (c *SimpleServer) Addr() string {
	return c.listener.Addr()
}

// serverDispatchSession answers Dispatch requests on the same tag; unknown
// destinations get an Rerr reply.
type serverDispatchSession struct {
	conn *muxwire.Connection
}

func newServerDispatchSession(conn *muxwire.Connection) *serverDispatchSession {
	var c serverDispatchSession
	c.conn = conn
	return &c
}

func (c *serverDispatchSession) ProcessMessage(msg *muxwire.Message) {
	if msg.Type != muxwire.MessageDispatch {
		return
	}

	result, err := c.processCall(msg.Destination, msg.Payload)
	if err != nil {
		_ = c.conn.SendMessage(muxwire.NewRerr(msg.Tag, err.Error()))
		return
	}
	_ = c.conn.SendMessage(muxwire.NewDispatch(msg.Tag, nil, msg.Destination, result))
}

func (c *serverDispatchSession) processCall(destination string, payload []byte) (result []byte, err error) {
	switch destination {
	case "version":
		result = []byte(SimpleServerVersion)
	case "echo":
		result = payload
	default:
		err = errors.New("unknown destination: " + destination)
	}
	return
}

func (c *serverDispatchSession) Disconnected(err error) {
}
