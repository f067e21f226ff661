package logger

import (
	stdlog "log"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/pkgerrors"
)

const (
	defaultLevel           = zerolog.InfoLevel
	defaultTimeFieldFormat = time.RFC3339
)

type Zerolog struct {
	zerolog.Logger
}

type ZeroConfig struct {
	Level             string
	TimeFieldFormat   string
	PrettyPrint       bool
	DisableSampling   bool
	RedirectStdLogger bool
	ErrorStack        bool
	ShowCaller        bool
}

func NewDefaultZerolog() *Zerolog {
	return NewZerolog(ZeroConfig{
		Level:           defaultLevel.String(),
		TimeFieldFormat: defaultTimeFieldFormat,
		PrettyPrint:     true,
	})
}

func NewZerolog(cfg ZeroConfig) *Zerolog {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = defaultLevel
	}
	zerolog.SetGlobalLevel(level)

	zerolog.TimeFieldFormat = defaultTimeFieldFormat
	if cfg.TimeFieldFormat != "" {
		zerolog.TimeFieldFormat = cfg.TimeFieldFormat
	}

	zerolog.DisableSampling(cfg.DisableSampling)

	if cfg.ErrorStack {
		zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
	}

	var l zerolog.Logger
	if cfg.PrettyPrint {
		l = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: zerolog.TimeFieldFormat})
	} else {
		l = zerolog.New(os.Stderr)
	}

	ctx := l.With().Timestamp()
	if cfg.ShowCaller {
		ctx = ctx.Caller()
	}
	l = ctx.Logger()

	if cfg.RedirectStdLogger {
		stdlog.SetFlags(0)
		stdlog.SetOutput(l)
	}

	return &Zerolog{Logger: l}
}

// NewNopZerolog returns a logger that discards everything, for tests.
func NewNopZerolog() *Zerolog {
	return &Zerolog{Logger: zerolog.Nop()}
}
