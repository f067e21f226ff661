package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepeatMode_Next(t *testing.T) {
	m := RepeatNone
	seen := []RepeatMode{m}
	for i := 0; i < 3; i++ {
		m = m.Next()
		seen = append(seen, m)
	}
	assert.Equal(t, []RepeatMode{RepeatNone, RepeatOne, RepeatAll, RepeatNone}, seen)
}

func TestParseRepeatMode(t *testing.T) {
	for _, s := range []string{"none", "one", "all"} {
		m, err := ParseRepeatMode(s)
		require.NoError(t, err)
		assert.Equal(t, RepeatMode(s), m)
	}

	_, err := ParseRepeatMode("twice")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestPlaybackState_Copy(t *testing.T) {
	s := NewPlaybackState()
	s.CurrentTrack = &Track{ID: "a", Title: "A"}

	c := s.Copy()
	c.CurrentTrack.Title = "B"
	c.Volume = 0.1

	assert.Equal(t, "A", s.CurrentTrack.Title)
	assert.Equal(t, 1.0, s.Volume)

	empty := NewPlaybackState().Copy()
	assert.Nil(t, empty.CurrentTrack)
}

func TestTrack_IsStream(t *testing.T) {
	assert.True(t, (&Track{URI: "http://radio.example/live"}).IsStream())
	assert.True(t, (&Track{URI: "https://radio.example/live"}).IsStream())
	assert.False(t, (&Track{URI: "/music/a.mp3"}).IsStream())
}

func TestFormatDuration(t *testing.T) {
	cases := map[int64]string{
		0:       "0:00",
		-5:      "0:00",
		999:     "0:00",
		1000:    "0:01",
		65000:   "1:05",
		3599999: "59:59",
		3600000: "60:00",
	}
	for ms, want := range cases {
		assert.Equal(t, want, FormatDuration(ms), ms)
	}
}

func TestParseSortOption(t *testing.T) {
	o, err := ParseSortOption("artist")
	require.NoError(t, err)
	assert.Equal(t, SortByArtist, o)

	_, err = ParseSortOption("year")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}
