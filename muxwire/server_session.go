package muxwire

import (
	"sync"

	"github.com/ipoluianov/gomisc/logger"
)

// ServerSession is the accepting side of the handshake. It answers a
// handshake-tag probe with the sentinel, answers Tinit with Rinit, and
// treats any other first message as a legacy client, replaying that
// message into the active session it installs.
type ServerSession struct {
	mtxSession sync.Mutex
	conn       *Connection
	conf       PolicyConfig
	negotiator Negotiator

	defrag *Defragmenter

	settled bool
}

func NewServerSession(conn *Connection, conf PolicyConfig, negotiator Negotiator) *ServerSession {
	var c ServerSession
	c.conn = conn
	c.conf = conf
	c.negotiator = negotiator
	c.defrag = NewDefragmenter(DefaultMaxMessageSize, DefaultMaxTags)
	return &c
}

func (c *ServerSession) Connected() {
	Gauges.Set(c.conn.Name(), GaugeNegotiating, 1)
}

func (c *ServerSession) ProcessFrame(frame *Frame) {
	msg, err := c.defrag.Feed(frame)
	if err != nil {
		logger.Println("[ERROR]", "ServerSession::ProcessFrame", "codec error:", err)
		_ = c.conn.Close()
		return
	}
	if msg == nil {
		return
	}

	if msg.Type == MessageRerr && msg.Tag == TagHandshake {
		// capability probe; acknowledge with the sentinel
		err = c.conn.SendMessage(NewRerr(TagHandshake, SentinelText))
		if err != nil {
			_ = c.conn.Close()
		}
		return
	}

	if msg.Type == MessageTinit && msg.Tag == TagHandshake {
		c.processTinit(msg)
		return
	}

	// no probe, no Tinit: a legacy client already talking the
	// application protocol
	logger.Println("[i]", "ServerSession::ProcessFrame", "legacy client", c.conn.Name())
	session := c.finishNegotiation(nil)
	if session != nil {
		session.ProcessMessage(msg)
	}
}

func (c *ServerSession) processTinit(msg *Message) {
	headers := msg.Headers
	if headers == nil {
		headers = make(Headers, 0)
	}

	err := c.conn.SendMessage(NewRinit(TagHandshake, ProtocolVersion, LocalHeaders(c.conf)))
	if err != nil {
		_ = c.conn.Close()
		return
	}
	c.finishNegotiation(headers)
}

func (c *ServerSession) finishNegotiation(peerHeaders Headers) ActiveSession {
	negotiated, err := ApplyPeerHeaders(c.conf, peerHeaders)
	if err != nil {
		logger.Println("[ERROR]", "ServerSession::finishNegotiation", "policy error:", err)
		c.settle()
		_ = c.conn.Close()
		return nil
	}

	session, err := c.negotiator(c.conn, peerHeaders)
	if err != nil {
		logger.Println("[ERROR]", "ServerSession::finishNegotiation", "negotiator error:", err)
		c.settle()
		_ = c.conn.Close()
		return nil
	}

	c.conn.SetNegotiated(negotiated)
	c.conn.SetProcessor(newActiveProcessor(c.defrag, session))
	c.settle()
	return session
}

func (c *ServerSession) settle() {
	c.mtxSession.Lock()
	if c.settled {
		c.mtxSession.Unlock()
		return
	}
	c.settled = true
	c.mtxSession.Unlock()
	Gauges.Remove(c.conn.Name(), GaugeNegotiating)
}

func (c *ServerSession) Disconnected(err error) {
	if err != nil {
		logger.Println("[i]", "ServerSession::Disconnected", c.conn.Name(), "error:", err)
	}
	c.settle()
}
