package library

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/dhowden/tag"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"music-box/business/entity"
	"music-box/pkg/logger"
)

var (
	DefaultExtensions = []string{".mp3", ".m4a", ".aac", ".wav", ".flac", ".ogg", ".mp4"}
	coverNames        = []string{"cover.jpg", "cover.jpeg", "cover.png", "folder.jpg", "folder.png", "front.jpg"}
)

type Config struct {
	Root       string
	Extensions []string
	Streams    []*StreamConfig
}

type StreamConfig struct {
	Title   string
	URL     string
	Artwork string
}

type Artwork interface {
	Put(key, ext string, data []byte) (string, error)
}

// Prober returns the duration of an audio file in milliseconds.
type Prober func(path string) (int64, error)

type Scanner struct {
	cfg     *Config
	artwork Artwork
	probe   Prober
	log     *logger.Zerolog
	exts    map[string]struct{}
}

// NewScanner builds a scanner. artwork and probe may be nil.
func NewScanner(cfg *Config, artwork Artwork, probe Prober, log *logger.Zerolog) *Scanner {
	extensions := cfg.Extensions
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}

	exts := make(map[string]struct{}, len(extensions))
	for _, e := range extensions {
		e = strings.ToLower(e)
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		exts[e] = struct{}{}
	}

	return &Scanner{
		cfg:     cfg,
		artwork: artwork,
		probe:   probe,
		log:     log,
		exts:    exts,
	}
}

func (s *Scanner) IsAudioFile(name string) bool {
	_, ok := s.exts[strings.ToLower(filepath.Ext(name))]
	return ok
}

// Scan walks the library root once. An unreadable root is ErrPermissionDenied;
// unreadable files and subdirectories are skipped.
func (s *Scanner) Scan(ctx context.Context) ([]*entity.Track, error) {
	root, err := filepath.Abs(s.cfg.Root)
	if err != nil {
		return nil, errors.Wrap(err, "library root")
	}

	if _, err := os.ReadDir(root); err != nil {
		if os.IsPermission(err) {
			return nil, errors.Wrap(entity.ErrPermissionDenied, root)
		}
		return nil, errors.Wrap(err, "read library root")
	}

	tracks := make([]*entity.Track, 0, 64)
	total := 0

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			s.log.Debug().Msgf("skip %s: %v", path, err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}

		total++
		if !s.IsAudioFile(path) {
			return nil
		}

		tracks = append(tracks, s.readTrack(path))
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "walk library")
	}

	s.log.Info().Msgf("found %d audio files out of %d total files", len(tracks), total)

	return append(tracks, s.streamTracks()...), nil
}

func (s *Scanner) readTrack(path string) *entity.Track {
	base := filepath.Base(path)
	t := &entity.Track{
		ID:     TrackID(path),
		Title:  strings.TrimSuffix(base, filepath.Ext(base)),
		Artist: entity.UnknownArtist,
		Album:  entity.UnknownAlbum,
		URI:    path,
	}

	var pic *tag.Picture
	if f, err := os.Open(path); err == nil {
		m, err := tag.ReadFrom(f)
		if err == nil {
			if v := strings.TrimSpace(m.Title()); v != "" {
				t.Title = v
			}
			if v := strings.TrimSpace(m.Artist()); v != "" {
				t.Artist = v
			}
			if v := strings.TrimSpace(m.Album()); v != "" {
				t.Album = v
			}
			pic = m.Picture()
		} else {
			s.log.Debug().Msgf("tag read error: %s: %v", base, err)
		}
		_ = f.Close()
	}

	if s.probe != nil {
		d, err := s.probe(path)
		if err != nil {
			s.log.Debug().Msgf("could not extract duration for %s: %v", base, err)
		}
		t.Duration = d
	}

	t.Artwork = s.findArtwork(t.ID, path, pic)

	return t
}

func (s *Scanner) findArtwork(id, path string, pic *tag.Picture) string {
	if pic != nil && len(pic.Data) > 0 && s.artwork != nil {
		loc, err := s.artwork.Put(id, pic.Ext, pic.Data)
		if err == nil {
			return loc
		}
		s.log.Error().Msgf("failed to store artwork for %s: %v", filepath.Base(path), err)
	}

	dir := filepath.Dir(path)
	for _, name := range coverNames {
		p := filepath.Join(dir, name)
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p
		}
	}
	return ""
}

func (s *Scanner) streamTracks() []*entity.Track {
	tracks := make([]*entity.Track, 0, len(s.cfg.Streams))
	for _, st := range s.cfg.Streams {
		if st == nil || st.URL == "" {
			continue
		}
		title := st.Title
		if title == "" {
			title = st.URL
		}
		tracks = append(tracks, &entity.Track{
			ID:      TrackID(st.URL),
			Title:   title,
			Artist:  entity.UnknownArtist,
			URI:     st.URL,
			Artwork: st.Artwork,
		})
	}
	return tracks
}

// TrackID is stable for a locator across scans.
func TrackID(locator string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(locator)).String()
}
