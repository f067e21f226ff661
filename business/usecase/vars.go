package usecase

import (
	"context"

	"music-box/adapter/broker"
	"music-box/business/entity"
)

type Broker interface {
	Start() error
	PublishState(data []byte)
	Subscribe(topic string, handler broker.MessageHandler)
	SetConnectHandler(h broker.ConnectHandler)
	SetDisconnectHandler(h broker.DisconnectHandler)
}

type Engine interface {
	Load(ctx context.Context, track *entity.Track) error
	Play(ctx context.Context) error
	Pause(ctx context.Context) error
	Stop(ctx context.Context) error
	SeekTo(ctx context.Context, position int64) error
	SetVolume(ctx context.Context, volume float64) error
	Status() entity.EngineStatus
	SetStatusCallback(cb entity.StatusCallback)
	SetStreamTitleCallback(cb entity.StreamTitleCallback)
}

type Scanner interface {
	Scan(ctx context.Context) ([]*entity.Track, error)
}

type Image interface {
	Get(locator string) (string, error)
}

var (
	stateTopic   string
	commandTopic string
)

func SetStateTopic(t string) {
	stateTopic = t
}

func SetCommandTopic(t string) {
	commandTopic = t
}
