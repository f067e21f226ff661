package entity

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

const (
	UnknownArtist = "Unknown Artist"
	UnknownAlbum  = "Unknown Album"
)

type Track struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Artist   string `json:"artist"`
	Album    string `json:"album,omitempty"`
	Duration int64  `json:"duration"`
	URI      string `json:"uri"`
	Artwork  string `json:"artwork,omitempty"`
}

func (t *Track) IsStream() bool {
	return strings.HasPrefix(t.URI, "http://") || strings.HasPrefix(t.URI, "https://")
}

type SortOption string

const (
	SortByTitle    SortOption = "title"
	SortByArtist   SortOption = "artist"
	SortByAlbum    SortOption = "album"
	SortByDuration SortOption = "duration"
)

func ParseSortOption(s string) (SortOption, error) {
	switch o := SortOption(s); o {
	case SortByTitle, SortByArtist, SortByAlbum, SortByDuration:
		return o, nil
	}
	return "", errors.Wrapf(ErrInvalidArgument, "unknown sort option %q", s)
}

// FormatDuration renders milliseconds as m:ss.
func FormatDuration(ms int64) string {
	if ms <= 0 {
		return "0:00"
	}
	total := ms / 1000
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
