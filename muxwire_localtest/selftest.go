package muxwire_localtest

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/muxwire/muxwire/muxwire_samples"
)

func SelfTest() {
	server := muxwire_samples.NewSimpleServer(0)
	err := server.Start()
	if err != nil {
		fmt.Println("ERROR", err)
		return
	}
	fmt.Println("Server address:", server.Addr())

	go Client(server.Addr())

	fmt.Println("------------- Press Enter to stop PROCESS -------------")
	fmt.Scanln()

	_ = server.Stop()
	fmt.Println("PROCESS was finished")
}

func Client(address string) {
	time.Sleep(500 * time.Millisecond)

	client := muxwire_samples.NewSimpleClient(address)
	err := client.Start(context.Background())
	if err != nil {
		fmt.Println("ERROR", err)
		return
	}

	for i := 0; i < 1000; i++ {
		time.Sleep(1000 * time.Millisecond)
		version, err := client.Version(2 * time.Second)
		if err != nil {
			fmt.Println("ERROR", err)
			continue
		}
		fmt.Println("RESULT", version)

		// large payload goes out fragmented
		payload := bytes.Repeat([]byte{0x42}, 5*1024*1024)
		echoed, err := client.Call("echo", payload, 10*time.Second)
		if err != nil {
			fmt.Println("ERROR", err)
			continue
		}
		fmt.Println("RESULT echo", len(echoed), "bytes, equal:", bytes.Equal(payload, echoed))
	}
}

func SimpleServer(port int) {
	server := muxwire_samples.NewSimpleServer(port)
	err := server.Start()
	if err != nil {
		fmt.Println("ERROR", err)
		return
	}
	fmt.Println("Server address:", server.Addr())
	fmt.Println("------------- Press Enter to stop PROCESS -------------")
	fmt.Scanln()
	_ = server.Stop()
}

func SimpleClient(address string) {
	client := muxwire_samples.NewSimpleClient(address)
	err := client.Start(context.Background())
	if err != nil {
		fmt.Println("ERROR", err)
		return
	}

	for i := 0; i < 1000; i++ {
		fmt.Println("=============== CALLING ==============")
		version, err := client.Version(2 * time.Second)
		if err != nil {
			fmt.Println("ERROR", err)
		} else {
			fmt.Println("RESULT", version)
		}
		time.Sleep(1000 * time.Millisecond)
	}
}
