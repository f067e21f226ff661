package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"music-box/business/entity"
	"music-box/business/usecase"
)

func TestParsePosition(t *testing.T) {
	cases := map[string]int64{
		"0":     0,
		"1500":  1500,
		"1:05":  65000,
		"10:00": 600000,
	}
	for in, want := range cases {
		got, err := parsePosition(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, in := range []string{"", "soon", "1:60", "a:10", "1:xx"} {
		_, err := parsePosition(in)
		assert.ErrorIs(t, err, entity.ErrInvalidArgument, in)
	}
}

func TestDescribe(t *testing.T) {
	st := usecase.StateResponse{PlaybackState: *entity.NewPlaybackState()}
	assert.Equal(t, "nothing loaded volume: 100% repeat: none shuffle: false", describe(st))

	st.CurrentTrack = &entity.Track{Title: "Alpha", Artist: "Band A"}
	st.IsPlaying = true
	st.Position = 65000
	st.Duration = 180000
	st.Volume = 0.5
	st.RepeatMode = entity.RepeatAll
	st.Shuffle = true
	assert.Equal(t, "playing Band A - Alpha [1:05/3:00] volume: 50% repeat: all shuffle: true", describe(st))

	st.IsPlaying = false
	st.LastError = "failed to load track"
	assert.Equal(t, "paused Band A - Alpha [1:05/3:00] volume: 50% repeat: all shuffle: true\nlast error: failed to load track", describe(st))
}
