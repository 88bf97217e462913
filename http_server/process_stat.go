package http_server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/ipoluianov/gomisc/http_tools"

	"github.com/muxwire/muxwire/muxwire"
)

func (c *HttpServer) processStat(w http.ResponseWriter, r *http.Request) {
	ctx := context.Background()
	ipAddr := http_tools.GetRealAddr(r, c.config.Http.UsingProxy)
	_, _, _, limiterOK, _ := c.limiterStore.Take(ctx, ipAddr)
	if !limiterOK {
		w.WriteHeader(429)
		_, _ = w.Write([]byte("too frequent requests"))
		return
	}

	bs, err := json.MarshalIndent(muxwire.Gauges.State(), "", " ")
	if err != nil {
		w.WriteHeader(500)
		_, _ = w.Write([]byte(err.Error()))
		return
	}

	w.WriteHeader(200)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write(bs)
}
