package entity

import (
	"github.com/pkg/errors"
)

type PlaybackState struct {
	IsPlaying    bool       `json:"is_playing"`
	CurrentTrack *Track     `json:"current_track"`
	Position     int64      `json:"position"`
	Duration     int64      `json:"duration"`
	Volume       float64    `json:"volume"`
	RepeatMode   RepeatMode `json:"repeat_mode"`
	Shuffle      bool       `json:"shuffle"`
	StreamTitle  string     `json:"stream_title,omitempty"`
}

// Copy returns a snapshot that shares nothing mutable with s.
func (s *PlaybackState) Copy() PlaybackState {
	c := *s
	if s.CurrentTrack != nil {
		t := *s.CurrentTrack
		c.CurrentTrack = &t
	}
	return c
}

func NewPlaybackState() *PlaybackState {
	return &PlaybackState{
		Volume:     1.0,
		RepeatMode: RepeatNone,
	}
}

type RepeatMode string

const (
	RepeatNone RepeatMode = "none"
	RepeatOne  RepeatMode = "one"
	RepeatAll  RepeatMode = "all"
)

func ParseRepeatMode(s string) (RepeatMode, error) {
	switch m := RepeatMode(s); m {
	case RepeatNone, RepeatOne, RepeatAll:
		return m, nil
	}
	return "", errors.Wrapf(ErrInvalidArgument, "unknown repeat mode %q", s)
}

// Next follows the repeat button order: none, one, all.
func (m RepeatMode) Next() RepeatMode {
	switch m {
	case RepeatNone:
		return RepeatOne
	case RepeatOne:
		return RepeatAll
	default:
		return RepeatNone
	}
}

type EngineStatus struct {
	TrackID  string
	Loaded   bool
	Playing  bool
	Finished bool
	Position int64
	Duration int64
}

type StatusCallback func(status EngineStatus)
type StreamTitleCallback func(trackID, title string)
type StateListener func(state PlaybackState)
