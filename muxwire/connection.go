package muxwire

import (
	"encoding/binary"
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"github.com/ipoluianov/gomisc/logger"
)

// IFrameProcessor handles everything a connection delivers. Frames arrive
// one at a time in wire order; Disconnected fires exactly once, with nil
// for an ordinary close and the transport error for an abnormal one.
type IFrameProcessor interface {
	Connected()
	ProcessFrame(frame *Frame)
	Disconnected(err error)
}

type ConnectionConfig struct {
	MaxFrameSize   int `json:"max_frame_size"`
	WriteQueueSize int `json:"write_queue_size"`
}

func (c *ConnectionConfig) Init() {
	c.MaxFrameSize = 4 * 1024 * 1024
	c.WriteQueueSize = 1024
}

func (c *ConnectionConfig) Check() (err error) {
	if c.MaxFrameSize < FrameHeaderSize || c.MaxFrameSize > 64*1024*1024 {
		err = errors.New("wrong ConnectionConfig.MaxFrameSize")
	}
	if c.WriteQueueSize < 1 || c.WriteQueueSize > 1024*1024 {
		err = errors.New("wrong ConnectionConfig.WriteQueueSize")
	}
	return
}

// Connection is a frame pipe over a TCP socket. Inbound frames go to the
// installed processor in arrival order; outbound frames are queued and
// flushed by a sender worker in submission order.
type Connection struct {
	mtxConnection sync.Mutex
	conn          net.Conn
	host          string
	name          string

	config    ConnectionConfig
	processor IFrameProcessor

	sendLimit int

	chSend chan []byte
	chStop chan struct{}

	started      bool
	stopping     bool
	disconnected bool
}

func NewConnection() *Connection {
	var c Connection
	c.config.Init()
	return &c
}

// SetConfig replaces transport limits; call before Start.
func (c *Connection) SetConfig(config ConnectionConfig) {
	c.mtxConnection.Lock()
	defer c.mtxConnection.Unlock()
	c.config = config
}

// InitIncomingConnection attaches an accepted socket.
func (c *Connection) InitIncomingConnection(conn net.Conn, processor IFrameProcessor) {
	c.mtxConnection.Lock()
	defer c.mtxConnection.Unlock()
	if c.started {
		logger.Println("[ERROR]", "Connection::InitIncomingConnection", "already started")
		return
	}
	c.conn = conn
	c.processor = processor
	c.name = conn.RemoteAddr().String()
}

// InitOutgoingConnection prepares a dial to host on Start.
func (c *Connection) InitOutgoingConnection(host string, processor IFrameProcessor) {
	c.mtxConnection.Lock()
	defer c.mtxConnection.Unlock()
	if c.started {
		logger.Println("[ERROR]", "Connection::InitOutgoingConnection", "already started")
		return
	}
	c.host = host
	c.processor = processor
	c.name = host
}

// Name identifies the connection in logs and gauges.
func (c *Connection) Name() string {
	c.mtxConnection.Lock()
	defer c.mtxConnection.Unlock()
	return c.name
}

func (c *Connection) SetProcessor(processor IFrameProcessor) {
	c.mtxConnection.Lock()
	defer c.mtxConnection.Unlock()
	c.processor = processor
}

// SetNegotiated applies the policy result; SendMessage fragments with its
// send limit from now on.
func (c *Connection) SetNegotiated(negotiated Negotiated) {
	c.mtxConnection.Lock()
	defer c.mtxConnection.Unlock()
	c.sendLimit = negotiated.SendFrameLimit
}

func (c *Connection) SendLimit() int {
	c.mtxConnection.Lock()
	defer c.mtxConnection.Unlock()
	return c.sendLimit
}

func (c *Connection) Start() (err error) {
	c.mtxConnection.Lock()
	if c.started {
		c.mtxConnection.Unlock()
		err = errors.New(ERR_MUXWIRE_CONN_ALREADY_STARTED)
		return
	}

	if c.conn == nil {
		var conn net.Conn
		conn, err = net.Dial("tcp", c.host)
		if err != nil {
			c.mtxConnection.Unlock()
			return
		}
		c.conn = conn
	}

	c.started = true
	c.stopping = false
	c.chSend = make(chan []byte, c.config.WriteQueueSize)
	c.chStop = make(chan struct{})
	c.mtxConnection.Unlock()

	go c.thSend()
	go c.thReceive()
	return
}

// Close requests connection shutdown. The processor learns about it via
// Disconnected once the receive loop observes the closed socket.
func (c *Connection) Close() (err error) {
	c.mtxConnection.Lock()
	defer c.mtxConnection.Unlock()
	if c.stopping {
		return
	}
	c.stopping = true
	if c.conn != nil {
		err = c.conn.Close()
	}
	return
}

// SendFrame queues one frame for writing. Submission order is flush order.
// The queue itself is never closed; shutdown is signalled through chStop so
// a late sender gets an error instead of a panic.
func (c *Connection) SendFrame(frame *Frame) (err error) {
	c.mtxConnection.Lock()
	chSend := c.chSend
	chStop := c.chStop
	stopping := c.stopping
	c.mtxConnection.Unlock()

	if chSend == nil || stopping {
		err = errors.New(ERR_MUXWIRE_CONN_NO_CONNECTION)
		return
	}

	select {
	case chSend <- frame.Marshal():
	case <-chStop:
		err = errors.New(ERR_MUXWIRE_CONN_NO_CONNECTION)
	}
	return
}

// SendMessage fragments msg according to the negotiated send limit and
// queues the frames in order.
func (c *Connection) SendMessage(msg *Message) (err error) {
	frames := EncodeFragments(msg, c.SendLimit())
	for _, frame := range frames {
		err = c.SendFrame(frame)
		if err != nil {
			return
		}
	}
	return
}

func (c *Connection) thSend() {
	for {
		var frameBS []byte
		select {
		case frameBS = <-c.chSend:
		case <-c.chStop:
			return
		}

		c.mtxConnection.Lock()
		conn := c.conn
		c.mtxConnection.Unlock()
		if conn == nil {
			return
		}

		sentBytes := 0
		var err error
		var n int
		for sentBytes < len(frameBS) {
			n, err = conn.Write(frameBS[sentBytes:])
			if err != nil || n < 1 {
				break
			}
			sentBytes += n
		}
		if sentBytes != len(frameBS) {
			logger.Println("[ERROR]", "Connection::thSend", "sending error:", err)
			_ = c.Close()
			return
		}
	}
}

func (c *Connection) thReceive() {
	// Connected runs here, ahead of the first read, so the processor sees
	// it strictly before any frame or the disconnect notification.
	c.mtxConnection.Lock()
	processor := c.processor
	c.mtxConnection.Unlock()
	if processor != nil {
		processor.Connected()
	}

	var n int
	var err error
	incomingData := make([]byte, c.config.MaxFrameSize)
	incomingDataOffset := 0

	for {
		n, err = c.conn.Read(incomingData[incomingDataOffset:])
		if err != nil || n < 1 {
			break
		}
		incomingDataOffset += n
		processedLen := 0
		for {
			// find the signature
			for processedLen < incomingDataOffset && incomingData[processedLen] != FrameSignature {
				processedLen++
			}

			restBytes := incomingDataOffset - processedLen
			if restBytes < FrameHeaderSize {
				break
			}

			frameLen := int(binary.LittleEndian.Uint32(incomingData[processedLen+4:]))
			if frameLen < FrameHeaderSize || frameLen > c.config.MaxFrameSize {
				err = errors.New(ERR_MUXWIRE_WRONG_FRAME_SIZE)
				break
			}

			if restBytes < frameLen {
				break
			}

			var frame *Frame
			frame, err = ParseFrame(incomingData[processedLen : processedLen+frameLen])
			if err != nil {
				break
			}

			c.mtxConnection.Lock()
			processor := c.processor
			c.mtxConnection.Unlock()
			if processor != nil {
				processor.ProcessFrame(frame)
			}

			processedLen += frameLen
		}
		if err != nil {
			break
		}

		copy(incomingData, incomingData[processedLen:incomingDataOffset])
		incomingDataOffset -= processedLen
	}

	c.disconnect(err)
}

func (c *Connection) disconnect(err error) {
	c.mtxConnection.Lock()
	if c.disconnected {
		c.mtxConnection.Unlock()
		return
	}
	c.disconnected = true
	stopping := c.stopping
	c.stopping = true
	if c.conn != nil {
		c.conn.Close()
	}
	if c.chStop != nil {
		close(c.chStop)
	}
	processor := c.processor
	c.started = false
	c.mtxConnection.Unlock()

	// a locally requested close and a peer EOF are both ordinary closes
	if stopping || err == io.EOF {
		err = nil
	}

	if processor != nil {
		processor.Disconnected(err)
	}
}

// WaitForStop blocks until the receive loop has finished, at most timeout.
func (c *Connection) WaitForStop(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		c.mtxConnection.Lock()
		disconnected := c.disconnected
		c.mtxConnection.Unlock()
		if disconnected {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}
