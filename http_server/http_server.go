package http_server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/ipoluianov/gomisc/logger"
	"github.com/sethvargo/go-limiter"
	"github.com/sethvargo/go-limiter/memorystore"

	"github.com/muxwire/muxwire/config"
	"github.com/muxwire/muxwire/muxwire"
)

// HttpServer exposes transport state over HTTP: the listener's connections
// and the gauge snapshot (including per-connection "negotiating").
type HttpServer struct {
	srv          *http.Server
	r            *mux.Router
	listener     *muxwire.Listener
	limiterStore limiter.Store
	config       config.Config
}

func NewHttpServer(conf config.Config, listener *muxwire.Listener) *HttpServer {
	var err error
	var c HttpServer

	c.config = conf
	c.listener = listener

	// Setup limiter
	c.limiterStore, err = memorystore.New(&memorystore.Config{
		Tokens:   c.config.Http.MaxRequestsPerIPInSecond,
		Interval: 1 * time.Second,
	})
	if err != nil {
		log.Fatal(err)
	}

	return &c
}

func (c *HttpServer) Start() {
	c.r = mux.NewRouter()
	c.r.HandleFunc("/api/state", c.processState)
	c.r.HandleFunc("/api/stat", c.processStat)
	c.srv = &http.Server{
		Addr: ":" + fmt.Sprint(c.config.Http.HttpPort),
	}
	c.srv.Handler = c.r
	go func() {
		err := c.srv.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			logger.Println("[ERROR]", "HttpServer::Start", "srv.ListenAndServe() error:", err)
		}
	}()
}

func (c *HttpServer) Stop() error {
	ctx := context.Background()
	_ = c.limiterStore.Close(ctx)
	return c.srv.Close()
}
