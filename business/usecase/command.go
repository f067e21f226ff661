package usecase

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"music-box/business/entity"
	"music-box/pkg/logger"
)

type CommandUseCase struct {
	state   *StateUseCase
	library *LibraryUseCase
	broker  Broker
	log     *logger.Zerolog
}

type StateResponse struct {
	entity.PlaybackState
	LastError string `json:"last_error,omitempty"`
}

type TracksResponse struct {
	Tracks    []*entity.Track `json:"tracks"`
	LastError string          `json:"last_error,omitempty"`
}

// NewCommandUseCase subscribes to the command topic on every broker connect when broker is not nil.
func NewCommandUseCase(state *StateUseCase, library *LibraryUseCase, broker Broker, log *logger.Zerolog) *CommandUseCase {
	uc := &CommandUseCase{
		state:   state,
		library: library,
		broker:  broker,
		log:     log,
	}

	if uc.broker != nil {
		uc.broker.SetConnectHandler(uc.OnConnect)
	}

	return uc
}

func (uc *CommandUseCase) OnConnect() {
	uc.broker.Subscribe(commandTopic, func(topic string, payload []byte) {
		uc.log.Debug().Msgf("%s - %s", topic, string(payload))

		if _, err := uc.Execute(context.Background(), string(payload)); err != nil {
			uc.log.Error().Msgf("failed to execute remote command: %v", err)
		}
	})
}

// Execute runs one command line and returns its JSON reply, nil for plain acknowledgements.
func (uc *CommandUseCase) Execute(ctx context.Context, line string) ([]byte, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, errors.Wrap(entity.ErrUnknownCommand, "empty command")
	}

	name, args := strings.ToLower(fields[0]), fields[1:]

	switch name {
	case "play":
		if len(args) == 0 {
			return nil, uc.state.Play(ctx)
		}
		t, err := uc.library.Track(args[0])
		if err != nil {
			return nil, err
		}
		return nil, uc.state.PlayTrack(ctx, t)
	case "load":
		if len(args) != 1 {
			return nil, errors.Wrap(entity.ErrInvalidArgument, "load needs a track id")
		}
		t, err := uc.library.Track(args[0])
		if err != nil {
			return nil, err
		}
		return nil, uc.state.Load(ctx, t)
	case "pause":
		return nil, uc.state.Pause(ctx)
	case "toggle":
		return nil, uc.state.TogglePlay(ctx)
	case "stop":
		return nil, uc.state.Stop(ctx)
	case "next":
		return nil, uc.state.Next(ctx)
	case "prev", "previous":
		return nil, uc.state.Previous(ctx)
	case "seek":
		if len(args) != 1 {
			return nil, errors.Wrap(entity.ErrInvalidArgument, "seek needs a position in milliseconds")
		}
		p, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return nil, errors.Wrapf(entity.ErrInvalidArgument, "position %q", args[0])
		}
		return nil, uc.state.SeekTo(ctx, p)
	case "volume":
		if len(args) != 1 {
			return nil, errors.Wrap(entity.ErrInvalidArgument, "volume needs a value between 0 and 1")
		}
		v, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return nil, errors.Wrapf(entity.ErrInvalidArgument, "volume %q", args[0])
		}
		return nil, uc.state.SetVolume(ctx, v)
	case "repeat":
		if len(args) == 0 {
			uc.state.CycleRepeatMode()
			return nil, nil
		}
		m, err := entity.ParseRepeatMode(strings.ToLower(args[0]))
		if err != nil {
			return nil, err
		}
		return nil, uc.state.SetRepeatMode(m)
	case "shuffle":
		return nil, uc.shuffle(args)
	case "scan":
		tracks, err := uc.library.Scan(ctx)
		return uc.tracksResponse(tracks), err
	case "tracks":
		return uc.tracksResponse(uc.library.Search(strings.Join(args, " "))), nil
	case "state":
		return json.Marshal(StateResponse{
			PlaybackState: uc.state.State(),
			LastError:     uc.state.LastError(),
		})
	}

	return nil, errors.Wrapf(entity.ErrUnknownCommand, "%q", name)
}

func (uc *CommandUseCase) shuffle(args []string) error {
	if len(args) == 0 {
		uc.state.ToggleShuffle()
		return nil
	}

	switch strings.ToLower(args[0]) {
	case "on", "true", "1":
		uc.state.SetShuffle(true)
	case "off", "false", "0":
		uc.state.SetShuffle(false)
	case "toggle":
		uc.state.ToggleShuffle()
	default:
		return errors.Wrapf(entity.ErrInvalidArgument, "shuffle %q", args[0])
	}
	return nil
}

func (uc *CommandUseCase) tracksResponse(tracks []*entity.Track) []byte {
	data, err := json.Marshal(TracksResponse{
		Tracks:    tracks,
		LastError: uc.library.LastError(),
	})
	if err != nil {
		uc.log.Error().Msg(err.Error())
		return nil
	}
	return data
}
