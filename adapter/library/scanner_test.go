package library

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"music-box/adapter/engine"
	"music-box/business/entity"
	"music-box/pkg/logger"
)

type memArtwork struct {
	stored map[string][]byte
}

func (a *memArtwork) Put(key, ext string, data []byte) (string, error) {
	a.stored[key] = data
	return "/artwork/" + key + "." + ext, nil
}

func writeWav(t *testing.T, path string, d time.Duration) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	format := beep.Format{SampleRate: 44100, NumChannels: 2, Precision: 2}
	require.NoError(t, wav.Encode(f, beep.Silence(format.SampleRate.N(d)), format))
}

func TestScanner_Scan(t *testing.T) {
	root := t.TempDir()
	writeWav(t, filepath.Join(root, "Intro.wav"), 1500*time.Millisecond)
	writeWav(t, filepath.Join(root, "album", "Song Two.WAV"), time.Second)
	require.NoError(t, os.WriteFile(filepath.Join(root, "album", "cover.jpg"), []byte("jpeg"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("not audio"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "broken.m4a"), []byte("not audio"), 0o644))

	s := NewScanner(&Config{Root: root}, &memArtwork{stored: map[string][]byte{}}, engine.Probe, logger.NewNopZerolog())

	tracks, err := s.Scan(context.Background())
	require.NoError(t, err)
	require.Len(t, tracks, 3)

	byTitle := map[string]*entity.Track{}
	for _, tr := range tracks {
		byTitle[tr.Title] = tr
	}

	intro := byTitle["Intro"]
	require.NotNil(t, intro)
	assert.Equal(t, entity.UnknownArtist, intro.Artist)
	assert.Equal(t, entity.UnknownAlbum, intro.Album)
	assert.Equal(t, int64(1500), intro.Duration)
	assert.Equal(t, filepath.Join(root, "Intro.wav"), intro.URI)
	assert.Empty(t, intro.Artwork)

	two := byTitle["Song Two"]
	require.NotNil(t, two)
	assert.Equal(t, int64(1000), two.Duration)
	assert.Equal(t, filepath.Join(root, "album", "cover.jpg"), two.Artwork)

	broken := byTitle["broken"]
	require.NotNil(t, broken)
	assert.Equal(t, int64(0), broken.Duration)

	// ids are stable across scans
	again, err := s.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, tracks[0].ID, again[0].ID)
}

func TestScanner_EmptyLibrary(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "readme.md"), []byte("# music"), 0o644))

	s := NewScanner(&Config{Root: root}, nil, nil, logger.NewNopZerolog())

	tracks, err := s.Scan(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, tracks)
	assert.Empty(t, tracks)
}

func TestScanner_PermissionDenied(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root ignores directory permissions")
	}

	root := filepath.Join(t.TempDir(), "locked")
	require.NoError(t, os.Mkdir(root, 0o000))
	t.Cleanup(func() { _ = os.Chmod(root, 0o755) })

	s := NewScanner(&Config{Root: root}, nil, nil, logger.NewNopZerolog())

	_, err := s.Scan(context.Background())
	assert.ErrorIs(t, err, entity.ErrPermissionDenied)
}

func TestScanner_MissingRoot(t *testing.T) {
	s := NewScanner(&Config{Root: filepath.Join(t.TempDir(), "nope")}, nil, nil, logger.NewNopZerolog())

	_, err := s.Scan(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, entity.ErrPermissionDenied)
}

func TestScanner_Streams(t *testing.T) {
	s := NewScanner(&Config{
		Root: t.TempDir(),
		Streams: []*StreamConfig{
			{Title: "Radio One", URL: "http://radio.example/one"},
			{URL: "http://radio.example/two"},
			{Title: "no url"},
		},
	}, nil, nil, logger.NewNopZerolog())

	tracks, err := s.Scan(context.Background())
	require.NoError(t, err)
	require.Len(t, tracks, 2)

	assert.Equal(t, "Radio One", tracks[0].Title)
	assert.True(t, tracks[0].IsStream())
	assert.Equal(t, TrackID("http://radio.example/one"), tracks[0].ID)
	assert.Equal(t, "http://radio.example/two", tracks[1].Title)
}

func TestScanner_Extensions(t *testing.T) {
	s := NewScanner(&Config{Extensions: []string{"mp3", ".FLAC"}}, nil, nil, logger.NewNopZerolog())

	assert.True(t, s.IsAudioFile("a.MP3"))
	assert.True(t, s.IsAudioFile("b.flac"))
	assert.False(t, s.IsAudioFile("c.wav"))

	d := NewScanner(&Config{}, nil, nil, logger.NewNopZerolog())
	for _, name := range []string{"a.mp3", "a.m4a", "a.aac", "a.wav", "a.flac", "a.ogg", "a.mp4"} {
		assert.True(t, d.IsAudioFile(name), name)
	}
	assert.False(t, d.IsAudioFile("a.txt"))
}

func TestScanner_Cancelled(t *testing.T) {
	root := t.TempDir()
	writeWav(t, filepath.Join(root, "a.wav"), 100*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := NewScanner(&Config{Root: root}, nil, nil, logger.NewNopZerolog())
	_, err := s.Scan(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
