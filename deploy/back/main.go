package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/soellman/pidfile"

	"music-box/adapter/broker"
	"music-box/adapter/engine"
	"music-box/adapter/image"
	"music-box/adapter/library"
	"music-box/adapter/shoutcast"
	"music-box/adapter/uds"
	"music-box/adapter/watcher"
	"music-box/business/usecase"
	"music-box/pkg/logger"
)

var (
	log *logger.Zerolog

	brokerClient   *broker.Client
	udsServer      *uds.Server
	audioEngine    *engine.Engine
	imageClient    *image.Client
	libraryScanner *library.Scanner
	libraryWatcher *watcher.Watcher

	stateUseCase   *usecase.StateUseCase
	libraryUseCase *usecase.LibraryUseCase
	commandUseCase *usecase.CommandUseCase
	guiUseCase     *usecase.GUIUseCase

	stop = make(chan struct{})
)

const (
	pidFile = "/tmp/music-box.pid"
)

func main() {
	defer shutdown()

	log = logger.NewZerolog(logger.ZeroConfig{
		Level:             cfg.Logger.Level,
		TimeFieldFormat:   cfg.Logger.TimeFieldFormat,
		PrettyPrint:       cfg.Logger.PrettyPrint,
		DisableSampling:   cfg.Logger.DisableSampling,
		RedirectStdLogger: cfg.Logger.RedirectStdLogger,
		ErrorStack:        cfg.Logger.ErrorStack,
		ShowCaller:        cfg.Logger.ShowCaller,
	})

	if err := pidfile.Write(pidFile); err != nil {
		log.Fatal().Msgf("failed to create pid file: %v", err)
	}

	initAdapters()
	initUseCases()

	if _, err := libraryUseCase.Scan(context.Background()); err != nil {
		log.Error().Msgf("initial scan: %v", err)
	}
	initWatcher()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
}

func initAdapters() {
	var err error

	if cfg.Broker != nil {
		brokerClient, err = broker.NewBrokerClient(&broker.Config{
			Host:       cfg.Broker.Host,
			Port:       cfg.Broker.Port,
			StateTopic: cfg.Broker.StateTopic,
			ClientID:   cfg.Broker.ClientID,
			UserName:   cfg.Broker.UserName,
			Password:   cfg.Broker.Password,
		}, log)
		if err != nil {
			log.Fatal().Msg(err.Error())
		}
	}

	udsServer, err = uds.NewUDSServer(&uds.ServerConfig{
		SocketPath:     cfg.UDS.ServerSocket,
		CommandTimeout: cfg.UDS.CommandTimeout,
	}, log)
	if err != nil {
		log.Fatal().Msg(err.Error())
	}

	imageClient, err = image.NewImageClient(&image.Config{
		OutputPath: cfg.Image.OutputPath,
	}, log)
	if err != nil {
		log.Fatal().Msg(err.Error())
	}

	audioEngine = engine.New(&engine.Config{
		SampleRate:      cfg.Engine.SampleRate,
		BufferSize:      cfg.Engine.BufferSize,
		ResampleQuality: cfg.Engine.ResampleQuality,
	}, shoutcast.NewOpener(log), engine.NewOtoSink, log)

	streams := make([]*library.StreamConfig, 0, len(cfg.Streams))
	for _, s := range cfg.Streams {
		streams = append(streams, &library.StreamConfig{
			Title:   s.Title,
			URL:     s.URL,
			Artwork: s.Artwork,
		})
	}

	libraryScanner = library.NewScanner(&library.Config{
		Root:       cfg.Library.Root,
		Extensions: cfg.Library.Extensions,
		Streams:    streams,
	}, imageClient, engine.Probe, log)
}

func initUseCases() {
	// a typed nil *broker.Client must not reach the use cases
	var b usecase.Broker
	if brokerClient != nil {
		b = brokerClient
		usecase.SetStateTopic(cfg.Broker.StateTopic)
		usecase.SetCommandTopic(cfg.Broker.CommandTopic)
	}

	stateUseCase = usecase.NewStateUseCase(&usecase.StateConfig{
		PollInterval: time.Duration(cfg.Engine.PollInterval) * time.Millisecond,
	}, b, audioEngine, log)

	libraryUseCase = usecase.NewLibraryUseCase(libraryScanner, stateUseCase, log)

	if b != nil && cfg.Broker.CommandTopic == "" {
		b = nil
	}
	commandUseCase = usecase.NewCommandUseCase(stateUseCase, libraryUseCase, b, log)
	uds.SetCommandUseCase(commandUseCase)

	if cfg.Notify.Enabled {
		guiUseCase = usecase.NewGUIUseCase(imageClient, log)
		stateUseCase.Subscribe(guiUseCase.OnState)
		go guiUseCase.Run(stop)
	}

	if brokerClient != nil {
		if err := brokerClient.Start(); err != nil {
			log.Error().Msgf("failed to connect to broker: %v", err)
		}
	}
}

func initWatcher() {
	if !cfg.Library.Watch {
		return
	}

	var err error
	libraryWatcher, err = watcher.New(&watcher.Config{
		Root:        cfg.Library.Root,
		QuietPeriod: time.Duration(cfg.Library.WatchQuietDelay) * time.Second,
	}, func() {
		if _, err := libraryUseCase.Scan(context.Background()); err != nil {
			log.Error().Msgf("rescan: %v", err)
		}
	}, log)
	if err != nil {
		log.Error().Msgf("failed to watch library: %v", err)
	}
}

func shutdown() {
	if r := recover(); r != nil {
		fmt.Println(r)
	}
	close(stop)
	_ = pidfile.Remove(pidFile)

	if libraryWatcher != nil {
		libraryWatcher.Close()
	}
	if udsServer != nil {
		udsServer.Close()
	}
	if stateUseCase != nil {
		stateUseCase.Close()
	}
	if audioEngine != nil {
		audioEngine.Close()
	}
	if brokerClient != nil {
		brokerClient.Close()
	}
}
