package engine

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/pkg/errors"

	"music-box/adapter/shoutcast"
	"music-box/business/entity"
	"music-box/pkg/logger"
)

const (
	defaultSampleRate      = 44100
	defaultBufferSize      = 8192
	defaultChunkSamples    = 512
	defaultResampleQuality = 4
	streamExt              = ".mp3"
	sniffBytes             = 4
)

var ErrNotSeekable = errors.New("source is not seekable")

type Config struct {
	SampleRate      int
	BufferSize      int // bytes handed to the output device
	ChunkSamples    int
	ResampleQuality int
}

type StreamOpener interface {
	Open(url string, onTitle shoutcast.TitleCallback) (io.ReadCloser, error)
}

// Engine plays one track at a time through a single output sink.
type Engine struct {
	cfg     *Config
	log     *logger.Zerolog
	streams StreamOpener
	newSink SinkFactory

	mu     sync.Mutex
	cond   *sync.Cond
	sink   Sink
	cur    *source
	gen    uint64
	volume float64

	cbMu    sync.Mutex
	onState entity.StatusCallback
	onTitle entity.StreamTitleCallback
}

// source is one loaded track. playing, finished and pumping are guarded by
// Engine.mu. The decoder chain is guarded by mu and is never read under
// Engine.mu, so a slow network read cannot block the control calls.
type source struct {
	track  entity.Track
	file   io.Closer
	format beep.Format
	length int
	stream bool
	pos    atomic.Int64

	mu       sync.Mutex
	streamer beep.StreamSeekCloser
	out      beep.Streamer
	vol      *effects.Volume
	closed   bool

	playing  bool
	finished bool
	pumping  bool
}

func New(cfg *Config, streams StreamOpener, newSink SinkFactory, log *logger.Zerolog) *Engine {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = defaultSampleRate
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = defaultBufferSize
	}
	if cfg.ChunkSamples <= 0 {
		cfg.ChunkSamples = defaultChunkSamples
	}
	if cfg.ResampleQuality <= 0 {
		cfg.ResampleQuality = defaultResampleQuality
	}
	if newSink == nil {
		newSink = NewOtoSink
	}

	e := &Engine{
		cfg:     cfg,
		log:     log,
		streams: streams,
		newSink: newSink,
		volume:  1,
	}
	e.cond = sync.NewCond(&e.mu)

	return e
}

func (e *Engine) SetStatusCallback(cb entity.StatusCallback) {
	e.cbMu.Lock()
	defer e.cbMu.Unlock()
	e.onState = cb
}

func (e *Engine) SetStreamTitleCallback(cb entity.StreamTitleCallback) {
	e.cbMu.Lock()
	defer e.cbMu.Unlock()
	e.onTitle = cb
}

// Load opens and decodes track, then replaces the current source with it.
// On failure the current source stays loaded. Playback does not start.
func (e *Engine) Load(ctx context.Context, track *entity.Track) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	src, err := e.open(track)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.sink == nil {
		if e.sink, err = e.newSink(e.cfg.SampleRate, channels, bytesPerSample, e.cfg.BufferSize); err != nil {
			src.close(e.log)
			return err
		}
	}

	e.unload()
	e.gen++
	e.cur = src
	e.buildChain(src)

	e.log.Debug().Msgf("loaded %s rate: %d channels: %d", track.URI, src.format.SampleRate, src.format.NumChannels)

	return nil
}

func (e *Engine) Play(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	src := e.cur
	if src == nil {
		return entity.ErrNoTrackLoaded
	}

	if src.finished {
		if err := e.seek(src, 0); err != nil {
			return err
		}
		src.finished = false
	}

	src.playing = true
	if !src.pumping {
		src.pumping = true
		go e.pump(e.gen, src)
	}
	e.cond.Broadcast()

	return nil
}

func (e *Engine) Pause(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.cur == nil {
		return entity.ErrNoTrackLoaded
	}
	e.cur.playing = false

	return nil
}

// Stop pauses and rewinds. Live streams cannot rewind and are only paused.
func (e *Engine) Stop(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	src := e.cur
	if src == nil {
		return entity.ErrNoTrackLoaded
	}
	src.playing = false

	if !src.seekable() {
		return nil
	}
	src.finished = false
	return e.seek(src, 0)
}

func (e *Engine) SeekTo(ctx context.Context, position int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	src := e.cur
	if src == nil {
		return entity.ErrNoTrackLoaded
	}
	if !src.seekable() {
		return errors.Wrap(ErrNotSeekable, src.track.URI)
	}

	n := src.format.SampleRate.N(time.Duration(position) * time.Millisecond)
	if n < 0 {
		n = 0
	}
	if n > src.length {
		n = src.length
	}
	if err := e.seek(src, n); err != nil {
		return err
	}
	src.finished = false

	return nil
}

// SetVolume keeps the volume for later loads even when nothing is loaded.
// The pump applies it to the playing source before its next chunk.
func (e *Engine) SetVolume(ctx context.Context, volume float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.volume = volume

	return nil
}

func (e *Engine) Status() entity.EngineStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status()
}

// Close releases the source and the output device.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.unload()
	if e.sink != nil {
		if err := e.sink.Close(); err != nil {
			e.log.Error().Msgf("failed to close audio output: %v", err)
		}
		e.sink = nil
	}
}

func (e *Engine) open(track *entity.Track) (*source, error) {
	var (
		rc   io.ReadCloser
		name = track.URI
		err  error
	)

	if track.IsStream() {
		if e.streams == nil {
			return nil, errors.Errorf("streams are not supported: %s", track.URI)
		}
		id := track.ID
		rc, err = e.streams.Open(track.URI, func(title string) {
			e.streamTitle(id, title)
		})
		if err == nil {
			rc, name = sniff(rc)
		}
	} else {
		rc, err = os.Open(track.URI)
	}
	if err != nil {
		return nil, errors.Wrap(err, "open source")
	}

	streamer, format, err := Decode(name, rc)
	if err != nil {
		_ = rc.Close()
		return nil, err
	}

	return &source{
		track:    *track,
		file:     rc,
		streamer: streamer,
		format:   format,
		length:   streamer.Len(),
		stream:   track.IsStream(),
	}, nil
}

type bufferedStream struct {
	*bufio.Reader
	io.Closer
}

// sniff peeks at the container magic of a stream. Anything unknown is mp3.
func sniff(rc io.ReadCloser) (io.ReadCloser, string) {
	br := bufio.NewReader(rc)
	out := &bufferedStream{Reader: br, Closer: rc}

	head, _ := br.Peek(sniffBytes)
	switch {
	case bytes.Equal(head, []byte("RIFF")):
		return out, ".wav"
	case bytes.Equal(head, []byte("OggS")):
		return out, ".ogg"
	case bytes.Equal(head, []byte("fLaC")):
		return out, ".flac"
	}
	return out, streamExt
}

// buildChain resamples to the device rate and applies the volume. It is rebuilt
// after every seek so the resampler does not replay buffered samples.
func (e *Engine) buildChain(src *source) {
	var s beep.Streamer = src.streamer

	target := beep.SampleRate(e.cfg.SampleRate)
	if src.format.SampleRate != target {
		s = beep.Resample(e.cfg.ResampleQuality, src.format.SampleRate, target, s)
	}

	exp, silent := Gain(e.volume)
	src.vol = &effects.Volume{
		Streamer: s,
		Base:     2,
		Volume:   exp,
		Silent:   silent,
	}
	src.out = src.vol
}

func (e *Engine) seek(src *source, n int) error {
	src.mu.Lock()
	defer src.mu.Unlock()

	if err := src.streamer.Seek(n); err != nil {
		return errors.Wrap(err, "seek")
	}
	src.pos.Store(int64(n))
	e.buildChain(src)
	return nil
}

func (e *Engine) unload() {
	if e.cur == nil {
		return
	}
	e.gen++
	e.cur.close(e.log)
	e.cur = nil
	e.cond.Broadcast()
}

func (e *Engine) pump(gen uint64, src *source) {
	buf := make([][2]float64, e.cfg.ChunkSamples)
	pcm := make([]byte, len(buf)*bytesPerFrame)

	for {
		e.mu.Lock()
		for e.gen == gen && !src.playing {
			e.cond.Wait()
		}
		if e.gen != gen {
			e.mu.Unlock()
			return
		}
		exp, silent := Gain(e.volume)
		sink := e.sink
		e.mu.Unlock()

		n, ok, err := src.read(buf, exp, silent)
		if err != nil {
			e.log.Error().Msgf("failed to decode %s: %v", src.track.URI, err)
		}

		if n > 0 {
			encodePCM(pcm, buf[:n])
			if _, err := sink.Write(pcm[:n*bytesPerFrame]); err != nil {
				e.log.Error().Msgf("failed to write decoded data: %v", err)
				ok = false
			}
		}

		if !ok {
			e.finish(gen, src)
			return
		}
	}
}

func (e *Engine) finish(gen uint64, src *source) {
	e.mu.Lock()
	if e.gen != gen {
		e.mu.Unlock()
		return
	}
	src.playing = false
	src.pumping = false
	src.finished = true
	st := e.status()
	e.mu.Unlock()

	e.log.Debug().Msgf("finished %s", src.track.URI)

	e.cbMu.Lock()
	cb := e.onState
	e.cbMu.Unlock()

	if cb != nil {
		go cb(st)
	}
}

// streamTitle runs inside a decoder read, so it takes no engine lock.
func (e *Engine) streamTitle(trackID, title string) {
	e.cbMu.Lock()
	cb := e.onTitle
	e.cbMu.Unlock()

	if cb != nil {
		go cb(trackID, title)
	}
}

func (e *Engine) status() entity.EngineStatus {
	src := e.cur
	if src == nil {
		return entity.EngineStatus{}
	}

	st := entity.EngineStatus{
		TrackID:  src.track.ID,
		Loaded:   true,
		Playing:  src.playing,
		Finished: src.finished,
		Position: src.format.SampleRate.D(int(src.pos.Load())).Milliseconds(),
	}
	if src.length > 0 {
		st.Duration = src.format.SampleRate.D(src.length).Milliseconds()
	}
	return st
}

func (s *source) seekable() bool {
	return !s.stream && s.length > 0
}

// read streams one chunk through the chain with the given gain.
func (s *source) read(buf [][2]float64, exp float64, silent bool) (int, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, false, nil
	}

	s.vol.Volume, s.vol.Silent = exp, silent
	n, ok := s.out.Stream(buf)
	s.pos.Store(int64(s.streamer.Position()))
	if !ok {
		return n, false, s.streamer.Err()
	}
	return n, true, nil
}

// close shuts the underlying reader first so a blocked read returns, then the decoder.
func (s *source) close(log *logger.Zerolog) {
	s.playing = false
	if err := s.file.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
		log.Debug().Msgf("failed to close source: %v", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	if err := s.streamer.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
		log.Debug().Msgf("failed to close decoder: %v", err)
	}
}
