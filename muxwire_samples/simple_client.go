package muxwire_samples

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/muxwire/muxwire/muxwire"
)

// SimpleClient dials a muxwire server, negotiates and exposes tagged
// request/response calls over Dispatch messages.
type SimpleClient struct {
	mtx  sync.Mutex
	host string
	conf muxwire.PolicyConfig

	conn    *muxwire.Connection
	session *clientDispatchSession
}

func NewSimpleClient(host string) *SimpleClient {
	var c SimpleClient
	c.host = host
	c.conf.Init()
	return &c
}

func (c *SimpleClient) SetPolicy(conf muxwire.PolicyConfig) {
	c.conf = conf
}

func (c *SimpleClient) Start(ctx context.Context) (err error) {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	c.conn = muxwire.NewConnection()
	negotiating := muxwire.NewClientSession(c.conn, c.conf, func(conn *muxwire.Connection, peerHeaders muxwire.Headers) (muxwire.ActiveSession, error) {
		return newClientDispatchSession(), nil
	})
	c.conn.InitOutgoingConnection(c.host, negotiating)

	err = c.conn.Start()
	if err != nil {
		return
	}

	session, err := negotiating.Negotiate(ctx)
	if err != nil {
		_ = c.conn.Close()
		return
	}
	c.session = session.(*clientDispatchSession)
	return
}

func (c *SimpleClient) Stop() {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

// Call sends payload to destination and waits for the reply.
func (c *SimpleClient) Call(destination string, payload []byte, timeout time.Duration) (result []byte, err error) {
	c.mtx.Lock()
	conn := c.conn
	session := c.session
	c.mtx.Unlock()

	if session == nil {
		err = errors.New(muxwire.ERR_MUXWIRE_CONN_NO_CONNECTION)
		return
	}

	tag, chResult := session.registerCall()
	defer session.unregisterCall(tag)

	err = conn.SendMessage(muxwire.NewDispatch(tag, nil, destination, payload))
	if err != nil {
		return
	}

	select {
	case reply := <-chResult:
		if reply.err != nil {
			err = reply.err
			return
		}
		result = reply.payload
	case <-time.After(timeout):
		err = errors.New(muxwire.ERR_MUXWIRE_CALL_TIMEOUT)
	}
	return
}

func (c *SimpleClient) Version(timeout time.Duration) (version string, err error) {
	bs, err := c.Call("version", nil, timeout)
	if err != nil {
		return
	}
	version = string(bs)
	return
}

type callReply struct {
	payload []byte
	err     error
}

// clientDispatchSession is the client's post-handshake message handler:
// it routes replies to pending calls by tag.
type clientDispatchSession struct {
	mtx     sync.Mutex
	nextTag uint32
	pending map[uint32]chan callReply
}

func newClientDispatchSession() *clientDispatchSession {
	var c clientDispatchSession
	c.nextTag = muxwire.TagMinDispatch
	c.pending = make(map[uint32]chan callReply)
	return &c
}

func (c *clientDispatchSession) registerCall() (tag uint32, chResult chan callReply) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	tag = c.nextTag
	c.nextTag++
	if c.nextTag < muxwire.TagMinDispatch {
		c.nextTag = muxwire.TagMinDispatch
	}
	chResult = make(chan callReply, 1)
	c.pending[tag] = chResult
	return
}

func (c *clientDispatchSession) unregisterCall(tag uint32) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	delete(c.pending, tag)
}

func (c *clientDispatchSession) ProcessMessage(msg *muxwire.Message) {
	c.mtx.Lock()
	chResult, ok := c.pending[msg.Tag]
	c.mtx.Unlock()
	if !ok {
		return
	}

	var reply callReply
	switch msg.Type {
	case muxwire.MessageDispatch:
		reply.payload = msg.Payload
	case muxwire.MessageRerr:
		reply.err = errors.New(msg.Text)
	default:
		reply.err = errors.New(muxwire.ERR_MUXWIRE_UNEXPECTED_MESSAGE)
	}

	select {
	case chResult <- reply:
	default:
	}
}

func (c *clientDispatchSession) Disconnected(err error) {
	if err == nil {
		err = errors.New(muxwire.ERR_MUXWIRE_CHANNEL_CLOSED)
	}
	c.mtx.Lock()
	pending := c.pending
	c.pending = make(map[uint32]chan callReply)
	c.mtx.Unlock()

	for _, chResult := range pending {
		select {
		case chResult <- callReply{err: err}:
		default:
		}
	}
}
