package main

import (
	"context"
	"fmt"
	"time"

	"github.com/muxwire/muxwire/muxwire_samples"
)

func main() {

	count := 0
	errs := 0

	server := muxwire_samples.NewSimpleServer(0)
	err := server.Start()
	if err != nil {
		fmt.Println("ERROR", err)
		return
	}

	fn := func() {
		client := muxwire_samples.NewSimpleClient(server.Addr())
		err := client.Start(context.Background())
		if err != nil {
			fmt.Println("ERROR", err)
			return
		}

		for {
			_, err := client.Version(2 * time.Second)
			if err != nil {
				errs++
			} else {
				count++
			}
			time.Sleep(1 * time.Millisecond)
		}
	}

	for i := 0; i < 10; i++ {
		time.Sleep(10 * time.Millisecond)
		go fn()
	}

	for {
		time.Sleep(1 * time.Second)
		fmt.Println("res:", count, errs)
		count = 0
		errs = 0
	}
}
