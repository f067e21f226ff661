package usecase

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"music-box/business/entity"
	"music-box/pkg/logger"
)

type queueRecorder struct {
	tracks []*entity.Track
	calls  int
}

func (q *queueRecorder) SetQueue(tracks []*entity.Track) {
	q.tracks = tracks
	q.calls++
}

func TestLibraryUseCase_Scan(t *testing.T) {
	s := &fakeScanner{tracks: testTracks()}
	q := &queueRecorder{}
	uc := NewLibraryUseCase(s, q, logger.NewNopZerolog())

	tracks, err := uc.Scan(context.Background())
	require.NoError(t, err)
	assert.Len(t, tracks, 3)
	assert.Len(t, uc.Tracks(), 3)
	assert.Len(t, q.tracks, 3)
	assert.Empty(t, uc.LastError())

	// a rescan replaces the previous list
	s.tracks = testTracks()[:1]
	tracks, err = uc.Scan(context.Background())
	require.NoError(t, err)
	assert.Len(t, tracks, 1)
	assert.Len(t, uc.Tracks(), 1)
	assert.Equal(t, 2, q.calls)
}

func TestLibraryUseCase_ScanEmpty(t *testing.T) {
	uc := NewLibraryUseCase(&fakeScanner{}, nil, logger.NewNopZerolog())

	tracks, err := uc.Scan(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, tracks)
	assert.Empty(t, tracks)
	assert.Empty(t, uc.LastError())
}

func TestLibraryUseCase_ScanFailure(t *testing.T) {
	s := &fakeScanner{tracks: testTracks()}
	uc := NewLibraryUseCase(s, nil, logger.NewNopZerolog())

	_, err := uc.Scan(context.Background())
	require.NoError(t, err)

	s.err = errors.Wrap(entity.ErrPermissionDenied, "/music")
	tracks, err := uc.Scan(context.Background())
	assert.ErrorIs(t, err, entity.ErrPermissionDenied)
	assert.Empty(t, tracks)
	assert.Empty(t, uc.Tracks())
	assert.Contains(t, uc.LastError(), "permission")
}

func TestLibraryUseCase_Search(t *testing.T) {
	uc := NewLibraryUseCase(&fakeScanner{tracks: testTracks()}, nil, logger.NewNopZerolog())
	_, err := uc.Scan(context.Background())
	require.NoError(t, err)

	assert.Len(t, uc.Search(""), 3)
	assert.Len(t, uc.Search("   "), 3)

	ids := func(tracks []*entity.Track) []string {
		out := make([]string, 0, len(tracks))
		for _, t := range tracks {
			out = append(out, t.ID)
		}
		return out
	}

	assert.Equal(t, []string{"t2"}, ids(uc.Search("bravo")))
	assert.Equal(t, []string{"t1", "t3"}, ids(uc.Search("BAND a")))
	assert.Equal(t, []string{"t2"}, ids(uc.Search("second")))
	assert.Empty(t, uc.Search("nothing like this"))
}

func TestLibraryUseCase_Track(t *testing.T) {
	uc := NewLibraryUseCase(&fakeScanner{tracks: testTracks()}, nil, logger.NewNopZerolog())
	_, err := uc.Scan(context.Background())
	require.NoError(t, err)

	tr, err := uc.Track("t2")
	require.NoError(t, err)
	assert.Equal(t, "Bravo", tr.Title)

	_, err = uc.Track("missing")
	assert.ErrorIs(t, err, entity.ErrTrackNotFound)
}

func TestLibraryUseCase_Group(t *testing.T) {
	uc := NewLibraryUseCase(&fakeScanner{tracks: testTracks()}, nil, logger.NewNopZerolog())
	_, err := uc.Scan(context.Background())
	require.NoError(t, err)

	byArtist := uc.GroupByArtist()
	assert.Len(t, byArtist["Band A"], 2)
	assert.Len(t, byArtist["Band B"], 1)

	byAlbum := uc.GroupByAlbum()
	assert.Len(t, byAlbum["First"], 1)
	assert.Len(t, byAlbum[entity.UnknownAlbum], 1)
}

func TestSortTracks(t *testing.T) {
	tracks := testTracks()
	tracks[0], tracks[2] = tracks[2], tracks[0]

	titles := func(tracks []*entity.Track) []string {
		out := make([]string, 0, len(tracks))
		for _, t := range tracks {
			out = append(out, t.Title)
		}
		return out
	}

	assert.Equal(t, []string{"Alpha", "Bravo", "Charlie"}, titles(SortTracks(tracks, entity.SortByTitle)))
	assert.Equal(t, []string{"Bravo", "Alpha", "Charlie"}, titles(SortTracks(tracks, entity.SortByDuration)))
	assert.Equal(t, []string{"Charlie", "Alpha", "Bravo"}, titles(SortTracks(tracks, entity.SortByArtist)))
	assert.Equal(t, []string{"Charlie", "Alpha", "Bravo"}, titles(SortTracks(tracks, entity.SortByAlbum)))

	// input order is untouched
	assert.Equal(t, []string{"Charlie", "Bravo", "Alpha"}, titles(tracks))
}
