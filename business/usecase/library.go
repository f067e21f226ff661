package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"music-box/business/entity"
	"music-box/pkg/logger"
)

type LibraryUseCase struct {
	scanner Scanner
	queue   Queue
	log     *logger.Zerolog
	mu      sync.RWMutex
	tracks  []*entity.Track
	lastErr string
	scanMu  sync.Mutex
}

// Queue receives the track list after every scan.
type Queue interface {
	SetQueue(tracks []*entity.Track)
}

func NewLibraryUseCase(scanner Scanner, queue Queue, log *logger.Zerolog) *LibraryUseCase {
	return &LibraryUseCase{
		scanner: scanner,
		queue:   queue,
		log:     log,
	}
}

// Scan enumerates the library and replaces the previous track list.
// A failed scan leaves an empty list and records the error message.
func (uc *LibraryUseCase) Scan(ctx context.Context) ([]*entity.Track, error) {
	uc.scanMu.Lock()
	defer uc.scanMu.Unlock()

	tracks, err := uc.scanner.Scan(ctx)
	if err != nil {
		uc.log.Error().Msgf("failed to scan music files: %v", err)
		tracks = nil
	}
	if tracks == nil {
		tracks = []*entity.Track{}
	}

	uc.mu.Lock()
	uc.tracks = tracks
	uc.lastErr = ""
	if err != nil {
		uc.lastErr = fmt.Sprintf("failed to load music tracks: %v", err)
	}
	uc.mu.Unlock()

	if uc.queue != nil {
		uc.queue.SetQueue(tracks)
	}

	uc.log.Info().Msgf("library contains %d tracks", len(tracks))

	return append([]*entity.Track{}, tracks...), errors.Wrap(err, "scan")
}

func (uc *LibraryUseCase) Tracks() []*entity.Track {
	uc.mu.RLock()
	defer uc.mu.RUnlock()
	return append([]*entity.Track{}, uc.tracks...)
}

func (uc *LibraryUseCase) LastError() string {
	uc.mu.RLock()
	defer uc.mu.RUnlock()
	return uc.lastErr
}

func (uc *LibraryUseCase) Track(id string) (*entity.Track, error) {
	uc.mu.RLock()
	defer uc.mu.RUnlock()

	t, ok := lo.Find(uc.tracks, func(t *entity.Track) bool {
		return t.ID == id
	})
	if !ok {
		return nil, errors.Wrapf(entity.ErrTrackNotFound, "id %s", id)
	}
	return t, nil
}

// Search matches query case-insensitively against title, artist and album.
// An empty or blank query returns every track.
func (uc *LibraryUseCase) Search(query string) []*entity.Track {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return uc.Tracks()
	}

	uc.mu.RLock()
	defer uc.mu.RUnlock()

	return lo.Filter(uc.tracks, func(t *entity.Track, _ int) bool {
		return strings.Contains(strings.ToLower(t.Title), q) ||
			strings.Contains(strings.ToLower(t.Artist), q) ||
			strings.Contains(strings.ToLower(t.Album), q)
	})
}

func (uc *LibraryUseCase) Sort(tracks []*entity.Track, by entity.SortOption) []*entity.Track {
	return SortTracks(tracks, by)
}

func (uc *LibraryUseCase) GroupByAlbum() map[string][]*entity.Track {
	uc.mu.RLock()
	defer uc.mu.RUnlock()

	return lo.GroupBy(uc.tracks, func(t *entity.Track) string {
		if t.Album == "" {
			return entity.UnknownAlbum
		}
		return t.Album
	})
}

func (uc *LibraryUseCase) GroupByArtist() map[string][]*entity.Track {
	uc.mu.RLock()
	defer uc.mu.RUnlock()

	return lo.GroupBy(uc.tracks, func(t *entity.Track) string {
		if t.Artist == "" {
			return entity.UnknownArtist
		}
		return t.Artist
	})
}

// SortTracks returns a sorted copy; tracks is not modified.
func SortTracks(tracks []*entity.Track, by entity.SortOption) []*entity.Track {
	sorted := append([]*entity.Track{}, tracks...)

	var less func(a, b *entity.Track) bool
	switch by {
	case entity.SortByArtist:
		less = func(a, b *entity.Track) bool { return strings.ToLower(a.Artist) < strings.ToLower(b.Artist) }
	case entity.SortByAlbum:
		less = func(a, b *entity.Track) bool { return strings.ToLower(a.Album) < strings.ToLower(b.Album) }
	case entity.SortByDuration:
		less = func(a, b *entity.Track) bool { return a.Duration < b.Duration }
	case entity.SortByTitle:
		less = func(a, b *entity.Track) bool { return strings.ToLower(a.Title) < strings.ToLower(b.Title) }
	default:
		return sorted
	}

	sort.SliceStable(sorted, func(i, j int) bool {
		return less(sorted[i], sorted[j])
	})

	return sorted
}
