package app

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/ipoluianov/gomisc/logger"
	"github.com/kardianos/osext"
	"github.com/kardianos/service"

	"github.com/muxwire/muxwire/config"
	"github.com/muxwire/muxwire/http_server"
	"github.com/muxwire/muxwire/muxwire"
	"github.com/muxwire/muxwire/muxwire_localtest"
	"github.com/muxwire/muxwire/muxwire_samples"
)

var ServiceName string
var ServiceDisplayName string
var ServiceDescription string
var ServiceRunFunc func() error
var ServiceStopFunc func()

func SetAppPath() {
	exePath, _ := osext.ExecutableFolder()
	err := os.Chdir(exePath)
	if err != nil {
		return
	}
}

func init() {
	SetAppPath()
}

func TryService() bool {
	serviceFlagPtr := flag.Bool("service", false, "Run as service")
	installFlagPtr := flag.Bool("install", false, "Install service")
	uninstallFlagPtr := flag.Bool("uninstall", false, "Uninstall service")
	startFlagPtr := flag.Bool("start", false, "Start service")
	stopFlagPtr := flag.Bool("stop", false, "Stop service")
	selftestFlagPtr := flag.Bool("selftest", false, "Self test")
	simpleServerFlagPtr := flag.Bool("simple-server", false, "Simple Server")
	simpleClientFlagPtr := flag.String("simple-client", "", "Simple Client (server address)")

	flag.Parse()

	if *serviceFlagPtr {
		runService()
		return true
	}

	if *installFlagPtr {
		InstallService()
		return true
	}

	if *uninstallFlagPtr {
		UninstallService()
		return true
	}

	if *startFlagPtr {
		StartService()
		return true
	}

	if *stopFlagPtr {
		StopService()
		return true
	}

	if *selftestFlagPtr {
		muxwire_localtest.SelfTest()
		return true
	}

	if *simpleServerFlagPtr {
		muxwire_localtest.SimpleServer(8584)
		return true
	}

	if len(*simpleClientFlagPtr) > 0 {
		muxwire_localtest.SimpleClient(*simpleClientFlagPtr)
		return true
	}

	return false
}

func NewSvcConfig() *service.Config {
	var SvcConfig = &service.Config{
		Name:        ServiceName,
		DisplayName: ServiceDisplayName,
		Description: ServiceDescription,
	}
	SvcConfig.Arguments = append(SvcConfig.Arguments, "-service")
	return SvcConfig
}

func InstallService() {
	fmt.Println("Service installing")
	prg := &program{}
	s, err := service.New(prg, NewSvcConfig())
	if err != nil {
		log.Fatal(err)
	}
	err = s.Install()
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println("Service installed")
}

func UninstallService() {
	fmt.Println("Service uninstalling")
	prg := &program{}
	s, err := service.New(prg, NewSvcConfig())
	if err != nil {
		log.Fatal(err)
	}
	err = s.Uninstall()
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println("Service uninstalled")
}

func StartService() {
	fmt.Println("Service starting")
	prg := &program{}
	s, err := service.New(prg, NewSvcConfig())
	if err != nil {
		log.Fatal(err)
	}
	err = s.Start()
	if err != nil {
		log.Fatal(err)
	} else {
		fmt.Println("Service started")
	}
}

func StopService() {
	fmt.Println("Service stopping")
	prg := &program{}
	s, err := service.New(prg, NewSvcConfig())
	if err != nil {
		log.Fatal(err)
	}
	err = s.Stop()
	if err != nil {
		log.Fatal(err)
		return
	} else {
		fmt.Println("Service stopped")
	}
}

func runService() {
	prg := &program{}
	s, err := service.New(prg, NewSvcConfig())
	if err != nil {
		log.Fatal(err)
	}
	err = s.Run()
	if err != nil {
		logger.Error(err)
	}
}

type program struct{}

func (p *program) Start(_ service.Service) error {
	return ServiceRunFunc()
}

func (p *program) Stop(_ service.Service) error {
	ServiceStopFunc()
	return nil
}

/////////////////////////////

var server *muxwire_samples.SimpleServer
var listener *muxwire.Listener
var httpServer *http_server.HttpServer

func Start() error {
	logger.Println("[i]", "App::Start", "begin")
	TuneFDs()

	conf, err := config.LoadFromFile(logger.CurrentExePath() + "/" + "config.json")
	if err != nil {
		logger.Println("[i]", "App::Start", "config.LoadFromFile error:", err)
		return err
	}

	var policy muxwire.PolicyConfig
	policy.Init()
	policy.MaxRecvFrameSize = conf.Transport.MaxRecvFrameSize
	policy.EncryptLevel = conf.Transport.EncryptLevel
	policy.HandshakeCancel = conf.Transport.HandshakeCancel

	var connConfig muxwire.ConnectionConfig
	connConfig.Init()
	connConfig.MaxFrameSize = conf.Transport.MaxFrameSize
	connConfig.WriteQueueSize = conf.Transport.WriteQueueSize

	server = muxwire_samples.NewSimpleServerEx(conf.Transport.Port, policy, connConfig)
	listener = server.Listener()
	err = server.Start()
	if err != nil {
		logger.Println("[ERROR]", "App::Start", "server.Start error:", err)
		return err
	}

	httpServer = http_server.NewHttpServer(conf, listener)
	httpServer.Start()

	logger.Println("[i]", "App::Start", "end")
	return nil
}

func Stop() {
	if httpServer != nil {
		_ = httpServer.Stop()
	}
	if server != nil {
		_ = server.Stop()
	}
}

func RunConsole() {
	logger.Println("[app]", "Running as console application")
	err := Start()
	if err != nil {
		return
	}
	_, _ = fmt.Scanln()
	Stop()
	logger.Println("[app]", "Console application exit")
}

func RunAsServiceF() error {
	return Start()
}

func StopServiceF() {
	Stop()
}
