package engine

import (
	"github.com/hajimehoshi/oto"
	"github.com/pkg/errors"
)

type Sink interface {
	Write(p []byte) (int, error)
	Close() error
}

type SinkFactory func(sampleRate, channelNum, bytesPerSample, bufferSize int) (Sink, error)

type otoSink struct {
	ctx    *oto.Context
	player *oto.Player
}

// NewOtoSink opens the platform audio device. Only one may be open at a time.
func NewOtoSink(sampleRate, channelNum, bytesPerSample, bufferSize int) (Sink, error) {
	ctx, err := oto.NewContext(sampleRate, channelNum, bytesPerSample, bufferSize)
	if err != nil {
		return nil, errors.Wrap(err, "open audio device")
	}

	return &otoSink{
		ctx:    ctx,
		player: ctx.NewPlayer(),
	}, nil
}

func (s *otoSink) Write(p []byte) (int, error) {
	return s.player.Write(p)
}

func (s *otoSink) Close() error {
	if err := s.player.Close(); err != nil {
		_ = s.ctx.Close()
		return errors.Wrap(err, "close player")
	}
	return errors.Wrap(s.ctx.Close(), "close player context")
}
