package usecase

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/gen2brain/beeep"

	"music-box/business/entity"
	"music-box/pkg/logger"
)

type GUIUseCase struct {
	image  Image
	log    *logger.Zerolog
	notify func(title, message, icon string) error
	events chan entity.PlaybackState

	lastTrackID     string
	lastStreamTitle string
}

var (
	trackRe = regexp.MustCompile("[[:cntrl:]]")
)

const guiQueueSize = 16

func NewGUIUseCase(image Image, log *logger.Zerolog) *GUIUseCase {
	return &GUIUseCase{
		image:  image,
		log:    log,
		notify: beeep.Notify,
		events: make(chan entity.PlaybackState, guiQueueSize),
	}
}

// Attach feeds states published on the broker state topic into the notifier.
func (uc *GUIUseCase) Attach(broker Broker) error {
	broker.SetConnectHandler(func() {
		broker.Subscribe(stateTopic, func(topic string, payload []byte) {
			uc.log.Debug().Msgf("%s - %s", topic, string(payload))

			state, err := uc.parseState(payload)
			if err != nil {
				uc.log.Error().Msgf("failed to parse state: %v", err)
				return
			}

			uc.OnState(*state)
		})
	})

	return broker.Start()
}

func (uc *GUIUseCase) parseState(payload []byte) (*entity.PlaybackState, error) {
	state := &entity.PlaybackState{}
	if err := json.Unmarshal(payload, state); err != nil {
		return nil, err
	}
	return state, nil
}

// OnState is a store listener. It never blocks: states that arrive while the
// queue is full are dropped.
func (uc *GUIUseCase) OnState(state entity.PlaybackState) {
	select {
	case uc.events <- state:
	default:
		uc.log.Debug().Msg("notification queue full, state dropped")
	}
}

// Run shows notifications until stop is closed.
func (uc *GUIUseCase) Run(stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case state := <-uc.events:
			uc.handle(state)
		}
	}
}

func (uc *GUIUseCase) handle(state entity.PlaybackState) {
	if !state.IsPlaying || state.CurrentTrack == nil {
		return
	}
	if state.CurrentTrack.ID == uc.lastTrackID && state.StreamTitle == uc.lastStreamTitle {
		return
	}
	uc.lastTrackID = state.CurrentTrack.ID
	uc.lastStreamTitle = state.StreamTitle

	title, message := uc.message(state)

	var img string
	if state.CurrentTrack.Artwork != "" && uc.image != nil {
		var err error
		if img, err = uc.image.Get(state.CurrentTrack.Artwork); err != nil {
			uc.log.Error().Msgf("failed to get track artwork: %v", err)
		}
	}

	if err := uc.notify(title, message, img); err != nil {
		uc.log.Error().Msgf("failed to show notification: %v", err)
	}
}

func (uc *GUIUseCase) message(state entity.PlaybackState) (string, string) {
	t := state.CurrentTrack
	title := prepareText(t.Title)

	parts := make([]string, 0, 3)
	if state.StreamTitle != "" {
		parts = append(parts, prepareText(state.StreamTitle))
	}
	if t.Artist != "" {
		parts = append(parts, prepareText(t.Artist))
	}
	if t.Album != "" {
		parts = append(parts, prepareText(t.Album))
	}

	if state.Shuffle {
		title += " [SHUFFLE]"
	}
	if state.RepeatMode != entity.RepeatNone {
		title += " [REPEAT " + strings.ToUpper(string(state.RepeatMode)) + "]"
	}

	return title, strings.Join(parts, " - ")
}

func prepareText(s string) string {
	return strings.TrimSpace(trackRe.ReplaceAllLiteralString(s, ""))
}
