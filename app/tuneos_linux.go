package app

import (
	"syscall"

	"github.com/ipoluianov/gomisc/logger"
)

func TuneFDs() {
	logger.Println("[i]", "TuneFDs", "begin")
	var rLimit syscall.Rlimit
	err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rLimit)
	if err != nil {
		logger.Println("[ERROR]", "TuneFDs", "syscall.Getrlimit(1) error:", err)
	}
	logger.Println("[i]", "TuneFDs", "current limits:", rLimit)
	rLimit.Max = 999999
	rLimit.Cur = 999999
	err = syscall.Setrlimit(syscall.RLIMIT_NOFILE, &rLimit)
	if err != nil {
		logger.Println("[ERROR]", "TuneFDs", "syscall.Setrlimit error:", err)
	}
	err = syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rLimit)
	if err != nil {
		logger.Println("[ERROR]", "TuneFDs", "syscall.Getrlimit(2) error:", err)
	}
	logger.Println("[i]", "TuneFDs", "new limits:", rLimit)
	logger.Println("[i]", "TuneFDs", "end")
}
