package muxwire

import (
	"context"
	"errors"
	"sync"

	"github.com/ipoluianov/gomisc/logger"
)

// ActiveSession is the post-handshake message handler, built by the
// negotiator collaborator. The core never looks inside it.
type ActiveSession interface {
	ProcessMessage(msg *Message)
	Disconnected(err error)
}

// Negotiator builds the active session once the handshake settles.
// peerHeaders is nil for a legacy peer that never answered with the
// sentinel; an empty non-nil Headers means the peer negotiated but
// advertised nothing. Called once, on the connection's processing
// goroutine; an error fails the handshake verbatim.
type Negotiator func(conn *Connection, peerHeaders Headers) (ActiveSession, error)

const (
	stateIdle = iota
	stateProbing
	stateAwaitingHeaders
	stateNegotiated
	stateFailed
)

type settlement struct {
	session ActiveSession
	err     error
}

// ClientSession drives exactly one handshake over a connection and then
// replaces itself with the negotiated active session. Install it as the
// connection's processor before calling Negotiate.
type ClientSession struct {
	mtxSession sync.Mutex
	conn       *Connection
	conf       PolicyConfig
	negotiator Negotiator

	// HonorCancel gates whether context cancellation aborts a pending
	// handshake. Initialized from PolicyConfig.HandshakeCancel.
	HonorCancel bool

	defrag *Defragmenter

	state           int
	negotiateCalled bool
	settled         bool
	cancelled       bool
	cancelCause     error

	chSettled chan settlement
}

func NewClientSession(conn *Connection, conf PolicyConfig, negotiator Negotiator) *ClientSession {
	var c ClientSession
	c.conn = conn
	c.conf = conf
	c.negotiator = negotiator
	c.HonorCancel = conf.HandshakeCancel
	c.defrag = NewDefragmenter(DefaultMaxMessageSize, DefaultMaxTags)
	c.state = stateIdle
	c.chSettled = make(chan settlement, 1)
	return &c
}

// Negotiate runs the handshake and blocks until it settles. Cancelling ctx
// closes the connection; the result still settles only when the close is
// observed, so cancellation and disconnection share one failure path.
// Calling Negotiate twice on one session is not supported.
func (c *ClientSession) Negotiate(ctx context.Context) (session ActiveSession, err error) {
	c.mtxSession.Lock()
	if c.negotiateCalled {
		c.mtxSession.Unlock()
		err = errors.New(ERR_MUXWIRE_NEGOTIATION_ALREADY_DONE)
		return
	}
	c.negotiateCalled = true
	settled := c.settled
	if !settled {
		// the gauge is set and removed under mtxSession, so a settlement
		// racing with this call can never leave it behind
		c.state = stateProbing
		Gauges.Set(c.conn.Name(), GaugeNegotiating, 1)
	}
	c.mtxSession.Unlock()

	if !settled {
		logger.Println("[i]", "ClientSession::Negotiate", "probing", c.conn.Name())
		err = c.conn.SendMessage(NewRerr(TagHandshake, ProbeText))
		if err != nil {
			// the probe never left; wait for the close notification like
			// any other transport failure
			_ = c.conn.Close()
		}
	}

	var result settlement
	if c.HonorCancel {
		select {
		case result = <-c.chSettled:
		case <-ctx.Done():
			c.requestCancel(context.Cause(ctx))
			result = <-c.chSettled
		}
	} else {
		result = <-c.chSettled
	}

	return result.session, result.err
}

func (c *ClientSession) requestCancel(cause error) {
	c.mtxSession.Lock()
	if c.cancelled || c.settled {
		c.mtxSession.Unlock()
		return
	}
	c.cancelled = true
	c.cancelCause = cause
	c.mtxSession.Unlock()

	logger.Println("[i]", "ClientSession::requestCancel", "closing", c.conn.Name())
	_ = c.conn.Close()
}

func (c *ClientSession) Connected() {
}

// ProcessFrame is called by the connection for every inbound frame while
// negotiation is pending.
func (c *ClientSession) ProcessFrame(frame *Frame) {
	msg, err := c.defrag.Feed(frame)
	if err != nil {
		c.settle(nil, NewFailure(ERR_MUXWIRE_WRONG_MESSAGE, "malformed handshake frame", false, err))
		return
	}
	if msg == nil {
		return
	}

	c.mtxSession.Lock()
	state := c.state
	c.mtxSession.Unlock()

	switch state {
	case stateProbing:
		c.processProbeReply(msg)
	case stateAwaitingHeaders:
		c.processHeadersReply(msg)
	default:
		logger.Println("[i]", "ClientSession::ProcessFrame", "ignoring", msg.TypeName(), "while no handshake is pending")
	}
}

func (c *ClientSession) processProbeReply(msg *Message) {
	if msg.Type == MessageRerr && msg.Tag == TagHandshake && msg.Text == SentinelText {
		// the peer speaks the protocol; propose headers
		c.mtxSession.Lock()
		c.state = stateAwaitingHeaders
		c.mtxSession.Unlock()
		err := c.conn.SendMessage(NewTinit(TagHandshake, ProtocolVersion, LocalHeaders(c.conf)))
		if err != nil {
			_ = c.conn.Close()
		}
		return
	}

	// any other reply is a legacy peer echoing an error for an unknown
	// tag: negotiation is impossible, proceed without headers
	logger.Println("[i]", "ClientSession::processProbeReply", "legacy peer", c.conn.Name())
	c.finishNegotiation(nil)
}

func (c *ClientSession) processHeadersReply(msg *Message) {
	if msg.Type != MessageRinit || msg.Tag != TagHandshake {
		text := "unexpected message " + msg.TypeName() + " while awaiting Rinit"
		c.settle(nil, NewFailure(ERR_MUXWIRE_UNEXPECTED_MESSAGE, text, false, nil))
		return
	}
	headers := msg.Headers
	if headers == nil {
		headers = make(Headers, 0)
	}
	c.finishNegotiation(headers)
}

// finishNegotiation applies the policy, invokes the negotiator and swaps
// the connection's processor to the active session.
func (c *ClientSession) finishNegotiation(peerHeaders Headers) {
	negotiated, err := ApplyPeerHeaders(c.conf, peerHeaders)
	if err != nil {
		c.settle(nil, NewFailure(ERR_MUXWIRE_ENCRYPT_LEVEL_CONFLICT, "", false, err))
		return
	}

	session, err := c.negotiator(c.conn, peerHeaders)
	if err != nil {
		// local computation failure, surfaced verbatim
		c.settle(nil, err)
		return
	}

	c.conn.SetNegotiated(negotiated)
	c.conn.SetProcessor(newActiveProcessor(c.defrag, session))

	c.mtxSession.Lock()
	c.state = stateNegotiated
	c.mtxSession.Unlock()
	c.settle(session, nil)
}

// Disconnected is the connection-close notification. Every pending
// handshake settles here exactly once when the transport goes away.
func (c *ClientSession) Disconnected(err error) {
	c.mtxSession.Lock()
	cancelled := c.cancelled
	cancelCause := c.cancelCause
	c.mtxSession.Unlock()

	if cancelled {
		// the close was asked for; what it reports does not matter
		c.settle(nil, NewFailure(ERR_MUXWIRE_HANDSHAKE_CANCELLED, "", true, cancelCause))
		return
	}
	if err != nil {
		c.settle(nil, err)
		return
	}
	c.settle(nil, NewFailure(ERR_MUXWIRE_CHANNEL_CLOSED, "", true, nil))
}

func (c *ClientSession) settle(session ActiveSession, err error) {
	c.mtxSession.Lock()
	if c.settled {
		c.mtxSession.Unlock()
		return
	}
	c.settled = true
	if err != nil {
		c.state = stateFailed
	}
	Gauges.Remove(c.conn.Name(), GaugeNegotiating)
	c.mtxSession.Unlock()

	c.chSettled <- settlement{session: session, err: err}
}

// activeProcessor adapts the negotiated ActiveSession to the connection's
// frame interface, reassembling fragments with the defragmenter carried
// over from the handshake.
type activeProcessor struct {
	defrag  *Defragmenter
	session ActiveSession
}

func newActiveProcessor(defrag *Defragmenter, session ActiveSession) *activeProcessor {
	var c activeProcessor
	c.defrag = defrag
	c.session = session
	return &c
}

func (c *activeProcessor) Connected() {
}

func (c *activeProcessor) ProcessFrame(frame *Frame) {
	msg, err := c.defrag.Feed(frame)
	if err != nil {
		// scoped to this tag; the connection and other tags go on
		logger.Println("[ERROR]", "activeProcessor::ProcessFrame", "tag", frame.Tag, "codec error:", err)
		return
	}
	if msg == nil {
		return
	}
	c.session.ProcessMessage(msg)
}

func (c *activeProcessor) Disconnected(err error) {
	c.session.Disconnected(err)
}
