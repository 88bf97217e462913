package muxwire

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/ipoluianov/gomisc/logger"
)

// Listener accepts TCP connections and starts a ServerSession on each of
// them. The supplied negotiator builds the application session once a
// client's handshake settles.
type Listener struct {
	mtxListener sync.Mutex
	listener    net.Listener
	port        int
	conf        PolicyConfig
	connConfig  ConnectionConfig
	negotiator  Negotiator
	connections []*Connection
	chWorking   chan interface{}
}

type ListenerState struct {
	Port        int      `json:"port"`
	Connections []string `json:"connections"`
}

func NewListener(port int, conf PolicyConfig, connConfig ConnectionConfig, negotiator Negotiator) *Listener {
	var c Listener
	c.port = port
	c.conf = conf
	c.connConfig = connConfig
	c.negotiator = negotiator
	c.connections = make([]*Connection, 0)
	return &c
}

func (c *Listener) Start() (err error) {
	logger.Println("[i]", "Listener::Start", "begin")
	c.mtxListener.Lock()
	defer c.mtxListener.Unlock()

	if c.chWorking != nil {
		err = errors.New(ERR_MUXWIRE_LISTENER_ALREADY_STARTED)
		logger.Println("[ERROR]", "Listener::Start", err.Error())
		return
	}

	address := ":" + fmt.Sprint(c.port)
	c.listener, err = net.Listen("tcp", address)
	if err != nil {
		logger.Error("[ERROR]", "Listener::Start", "net.Listen error:", err)
		return
	}

	c.chWorking = make(chan interface{})
	go c.thListen()
	logger.Println("[i]", "Listener::Start", "end")
	return
}

func (c *Listener) Stop() (err error) {
	logger.Println("[i]", "Listener::Stop", "begin")
	c.mtxListener.Lock()

	if c.chWorking == nil {
		c.mtxListener.Unlock()
		err = errors.New(ERR_MUXWIRE_LISTENER_IS_NOT_STARTED)
		logger.Println("[ERROR]", "Listener::Stop", err.Error())
		return
	}

	chWorking := c.chWorking
	c.listener.Close()
	connections := c.connections
	c.mtxListener.Unlock()

	for _, conn := range connections {
		_ = conn.Close()
	}

	stopped := false
	for i := 0; i < 100; i++ {
		select {
		case <-chWorking:
			stopped = true
		default:
		}
		if stopped {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if !stopped {
		logger.Println("[ERROR]", "Listener::Stop", "timeout")
	} else {
		logger.Println("[i]", "Listener::Stop", "waiting OK")
	}

	c.mtxListener.Lock()
	c.chWorking = nil
	c.connections = make([]*Connection, 0)
	c.mtxListener.Unlock()

	logger.Println("[i]", "Listener::Stop", "end")
	return
}

// Addr returns the bound address, useful when port 0 was requested.
func (c *Listener) Addr() string {
	c.mtxListener.Lock()
	defer c.mtxListener.Unlock()
	if c.listener == nil {
		return ""
	}
	return c.listener.Addr().String()
}

func (c *Listener) State() ListenerState {
	c.mtxListener.Lock()
	defer c.mtxListener.Unlock()
	var state ListenerState
	state.Port = c.port
	state.Connections = make([]string, 0, len(c.connections))
	for _, conn := range c.connections {
		state.Connections = append(state.Connections, conn.Name())
	}
	return state
}

func (c *Listener) thListen() {
	logger.Println("[i]", "Listener::thListen", "begin")
	for {
		conn, err := c.listener.Accept()
		if err != nil {
			break
		}

		connection := NewConnection()
		connection.SetConfig(c.connConfig)
		session := NewServerSession(connection, c.conf, c.negotiator)
		connection.InitIncomingConnection(conn, session)

		c.mtxListener.Lock()
		c.connections = append(c.connections, connection)
		c.mtxListener.Unlock()

		err = connection.Start()
		if err != nil {
			logger.Println("[ERROR]", "Listener::thListen", "connection.Start error:", err)
		}
	}

	c.mtxListener.Lock()
	chWorking := c.chWorking
	c.mtxListener.Unlock()
	if chWorking != nil {
		close(chWorking)
	}
	logger.Println("[i]", "Listener::thListen", "end")
}
