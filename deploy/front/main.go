package main

import (
	"os"
	"os/signal"
	"syscall"

	"music-box/adapter/broker"
	"music-box/adapter/image"
	"music-box/business/usecase"
	"music-box/pkg/logger"
)

var (
	log *logger.Zerolog

	brokerClient *broker.Client
	imageClient  *image.Client

	guiUseCase *usecase.GUIUseCase

	stop = make(chan struct{})
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

	initAdapters()
	initUseCases()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
}

func initAdapters() {
	var err error
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

	imageClient, err = image.NewImageClient(&image.Config{
		OutputPath: cfg.Image.OutputPath,
	}, log)
	if err != nil {
		log.Fatal().Msg(err.Error())
	}
}

func initUseCases() {
	usecase.SetStateTopic(cfg.Broker.StateTopic)

	guiUseCase = usecase.NewGUIUseCase(imageClient, log)
	go guiUseCase.Run(stop)

	if err := guiUseCase.Attach(brokerClient); err != nil {
		log.Fatal().Msg(err.Error())
	}
}

func shutdown() {
	close(stop)
	if brokerClient != nil {
		brokerClient.Close()
	}
}
