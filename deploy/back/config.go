package main

import (
	"encoding/json"
	"os"

	"music-box/pkg/logger"
)

const (
	defaultConfigPath = "music-box.json"
	defaultSocketPath = "/tmp/music-box.sock"
)

type Config struct {
	Library *LibraryConfig  `json:"library"`
	Engine  *EngineConfig   `json:"engine"`
	Broker  *BrokerConfig   `json:"broker"`
	UDS     *UDSConfig      `json:"uds"`
	Image   *ImageConfig    `json:"image"`
	Notify  *NotifyConfig   `json:"notify"`
	Streams []*StreamConfig `json:"streams"`
	Logger  *LoggerConfig   `json:"logger"`
}

type LoggerConfig struct {
	Level             string `json:"level"`
	TimeFieldFormat   string `json:"time_field_format"`
	PrettyPrint       bool   `json:"pretty_print"`
	DisableSampling   bool   `json:"disable_sampling"`
	RedirectStdLogger bool   `json:"redirect_std_logger"`
	ErrorStack        bool   `json:"error_stack"`
	ShowCaller        bool   `json:"show_caller"`
}

type LibraryConfig struct {
	Root            string   `json:"root"`
	Extensions      []string `json:"extensions"`
	Watch           bool     `json:"watch"`
	WatchQuietDelay int      `json:"watch_quiet_delay"` // seconds
}

type EngineConfig struct {
	SampleRate      int `json:"sample_rate"`
	BufferSize      int `json:"buffer_size"`
	ResampleQuality int `json:"resample_quality"`
	PollInterval    int `json:"poll_interval"` // milliseconds
}

// BrokerConfig is optional; without it nothing is published over MQTT.
type BrokerConfig struct {
	Host         string `json:"host"`
	Port         int    `json:"port"`
	StateTopic   string `json:"state_topic"`
	CommandTopic string `json:"command_topic"`
	ClientID     string `json:"client_id"`
	UserName     string `json:"user_name"`
	Password     string `json:"password"`
}

type UDSConfig struct {
	ServerSocket   string `json:"server_socket"`
	CommandTimeout int    `json:"command_timeout"` // seconds
}

type ImageConfig struct {
	OutputPath string `json:"output_path"`
}

type NotifyConfig struct {
	Enabled bool `json:"enabled"`
}

type StreamConfig struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Artwork string `json:"artwork"`
}

var (
	cfg = &Config{}
)

func init() {
	log := logger.NewDefaultZerolog()

	path, ok := os.LookupEnv("MUSIC_BOX_CONFIG")
	if !ok {
		path = defaultConfigPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatal().Msg(err.Error())
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		log.Fatal().Msg(err.Error())
	}

	if cfg.Library == nil || cfg.Library.Root == "" {
		log.Fatal().Msg("library root is not configured")
	}
	if cfg.Engine == nil {
		cfg.Engine = &EngineConfig{}
	}
	if cfg.UDS == nil {
		cfg.UDS = &UDSConfig{}
	}
	if cfg.UDS.ServerSocket == "" {
		cfg.UDS.ServerSocket = defaultSocketPath
	}
	if cfg.UDS.CommandTimeout == 0 {
		cfg.UDS.CommandTimeout = 10
	}
	if cfg.Image == nil {
		cfg.Image = &ImageConfig{}
	}
	if cfg.Notify == nil {
		cfg.Notify = &NotifyConfig{}
	}
	if cfg.Logger == nil {
		cfg.Logger = &LoggerConfig{PrettyPrint: true}
	}
}
