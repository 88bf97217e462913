package muxwire_samples

import (
	"bytes"
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/muxwire/muxwire/muxwire"
)

func startTestServer(t *testing.T, conf muxwire.PolicyConfig) (*SimpleServer, string) {
	var connConfig muxwire.ConnectionConfig
	connConfig.Init()
	server := NewSimpleServerEx(0, conf, connConfig)
	if err := server.Start(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		_ = server.Stop()
	})

	_, port, err := net.SplitHostPort(server.Addr())
	if err != nil {
		t.Fatal(err)
	}
	return server, "127.0.0.1:" + port
}

func TestSimpleServerVersionCall(t *testing.T) {
	var conf muxwire.PolicyConfig
	conf.Init()
	_, address := startTestServer(t, conf)

	client := NewSimpleClient(address)
	if err := client.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer client.Stop()

	version, err := client.Version(5 * time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if version != SimpleServerVersion {
		t.Fatal("wrong version:", version)
	}
}

func TestSimpleServerFragmentedEcho(t *testing.T) {
	// tiny receive windows on both sides force fragmentation each way
	var serverConf muxwire.PolicyConfig
	serverConf.Init()
	serverConf.MaxRecvFrameSize = 256
	_, address := startTestServer(t, serverConf)

	var clientConf muxwire.PolicyConfig
	clientConf.Init()
	clientConf.MaxRecvFrameSize = 300

	client := NewSimpleClient(address)
	client.SetPolicy(clientConf)
	if err := client.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer client.Stop()

	payload := bytes.Repeat([]byte{0x42}, 64*1024)
	echoed, err := client.Call("echo", payload, 10*time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(payload, echoed) {
		t.Fatal("echo payload mismatch")
	}
}

func TestSimpleServerUnknownDestination(t *testing.T) {
	var conf muxwire.PolicyConfig
	conf.Init()
	_, address := startTestServer(t, conf)

	client := NewSimpleClient(address)
	if err := client.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer client.Stop()

	_, err := client.Call("no-such-destination", nil, 5*time.Second)
	if err == nil {
		t.Fatal("expected an error for an unknown destination")
	}
}

func TestSimpleServerConcurrentCalls(t *testing.T) {
	var conf muxwire.PolicyConfig
	conf.Init()
	_, address := startTestServer(t, conf)

	client := NewSimpleClient(address)
	if err := client.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer client.Stop()

	chErr := make(chan error, 10)
	for i := 0; i < 10; i++ {
		go func(index int) {
			payload := bytes.Repeat([]byte{byte(index)}, 1024)
			echoed, err := client.Call("echo", payload, 10*time.Second)
			if err == nil && !bytes.Equal(payload, echoed) {
				err = errors.New("echo payload mismatch")
			}
			chErr <- err
		}(i)
	}
	for i := 0; i < 10; i++ {
		if err := <-chErr; err != nil {
			t.Fatal(err)
		}
	}
}
