package main

import (
	"github.com/ipoluianov/gomisc/logger"

	"github.com/muxwire/muxwire/app"
)

func main() {
	app.ServiceName = "muxwire"
	app.ServiceDisplayName = "Muxwire transport service"
	app.ServiceDescription = "Muxwire transport service"
	app.ServiceRunFunc = app.RunAsServiceF
	app.ServiceStopFunc = app.StopServiceF

	logger.Init(logger.CurrentExePath() + "/logs")

	if !app.TryService() {
		app.RunConsole()
	}
}
