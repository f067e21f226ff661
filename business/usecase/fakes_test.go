package usecase

import (
	"context"
	"encoding/json"
	"sync"

	"music-box/adapter/broker"
	"music-box/business/entity"
)

type fakeEngine struct {
	mu       sync.Mutex
	track    *entity.Track
	playing  bool
	finished bool
	position int64
	volume   float64
	fail     map[string]error
	calls    []string
	statusCb entity.StatusCallback
	titleCb  entity.StreamTitleCallback
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		volume: 1,
		fail:   map[string]error{},
	}
}

func (e *fakeEngine) call(op string) error {
	e.calls = append(e.calls, op)
	return e.fail[op]
}

// Load keeps the current track when it fails, like the real engine.
func (e *fakeEngine) Load(_ context.Context, track *entity.Track) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.call("load"); err != nil {
		return err
	}
	t := *track
	e.track = &t
	e.playing = false
	e.finished = false
	e.position = 0
	return nil
}

func (e *fakeEngine) Play(context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.call("play"); err != nil {
		return err
	}
	if e.track == nil {
		return entity.ErrNoTrackLoaded
	}
	if e.finished {
		e.position = 0
	}
	e.playing = true
	e.finished = false
	return nil
}

func (e *fakeEngine) Pause(context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.call("pause"); err != nil {
		return err
	}
	e.playing = false
	return nil
}

func (e *fakeEngine) Stop(context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.call("stop"); err != nil {
		return err
	}
	e.playing = false
	e.position = 0
	return nil
}

func (e *fakeEngine) SeekTo(_ context.Context, position int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.call("seek"); err != nil {
		return err
	}
	e.position = position
	return nil
}

func (e *fakeEngine) SetVolume(_ context.Context, volume float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.call("volume"); err != nil {
		return err
	}
	e.volume = volume
	return nil
}

func (e *fakeEngine) Status() entity.EngineStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status()
}

func (e *fakeEngine) status() entity.EngineStatus {
	if e.track == nil {
		return entity.EngineStatus{}
	}
	return entity.EngineStatus{
		TrackID:  e.track.ID,
		Loaded:   true,
		Playing:  e.playing,
		Finished: e.finished,
		Position: e.position,
		Duration: e.track.Duration,
	}
}

func (e *fakeEngine) SetStatusCallback(cb entity.StatusCallback) {
	e.statusCb = cb
}

func (e *fakeEngine) SetStreamTitleCallback(cb entity.StreamTitleCallback) {
	e.titleCb = cb
}

func (e *fakeEngine) setPosition(p int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.position = p
}

// finish simulates the end of the loaded track.
func (e *fakeEngine) finish() {
	e.mu.Lock()
	e.playing = false
	e.finished = true
	e.position = e.track.Duration
	st := e.status()
	e.mu.Unlock()

	e.statusCb(st)
}

func (e *fakeEngine) loadedID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.track == nil {
		return ""
	}
	return e.track.ID
}

func (e *fakeEngine) callCount(op string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, c := range e.calls {
		if c == op {
			n++
		}
	}
	return n
}

type fakeBroker struct {
	mu        sync.Mutex
	published [][]byte
	subs      map[string]broker.MessageHandler
	onConnect broker.ConnectHandler
	started   bool
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{subs: map[string]broker.MessageHandler{}}
}

func (b *fakeBroker) Start() error {
	b.mu.Lock()
	b.started = true
	h := b.onConnect
	b.mu.Unlock()
	if h != nil {
		h()
	}
	return nil
}

func (b *fakeBroker) PublishState(data []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, data)
}

func (b *fakeBroker) Subscribe(topic string, handler broker.MessageHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[topic] = handler
}

func (b *fakeBroker) SetConnectHandler(h broker.ConnectHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onConnect = h
}

func (b *fakeBroker) SetDisconnectHandler(broker.DisconnectHandler) {}

func (b *fakeBroker) deliver(topic string, payload []byte) {
	b.mu.Lock()
	h := b.subs[topic]
	b.mu.Unlock()
	h(topic, payload)
}

func (b *fakeBroker) lastState() entity.PlaybackState {
	b.mu.Lock()
	defer b.mu.Unlock()
	st := entity.PlaybackState{}
	if len(b.published) > 0 {
		_ = json.Unmarshal(b.published[len(b.published)-1], &st)
	}
	return st
}

type fakeScanner struct {
	tracks []*entity.Track
	err    error
	calls  int
}

func (s *fakeScanner) Scan(context.Context) ([]*entity.Track, error) {
	s.calls++
	return s.tracks, s.err
}

type recorder struct {
	mu     sync.Mutex
	states []entity.PlaybackState
}

func (r *recorder) listen(st entity.PlaybackState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, st)
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.states)
}

func (r *recorder) last() entity.PlaybackState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.states[len(r.states)-1]
}

func testTracks() []*entity.Track {
	return []*entity.Track{
		{ID: "t1", Title: "Alpha", Artist: "Band A", Album: "First", Duration: 180000, URI: "/music/alpha.mp3"},
		{ID: "t2", Title: "Bravo", Artist: "Band B", Album: "Second", Duration: 120000, URI: "/music/bravo.mp3"},
		{ID: "t3", Title: "Charlie", Artist: "Band A", Album: "", Duration: 240000, URI: "/music/charlie.flac"},
	}
}
