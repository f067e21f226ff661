package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"music-box/business/entity"
	"music-box/pkg/logger"
)

const (
	defaultPollInterval = time.Second
)

type StateUseCase struct {
	cfg    *StateConfig
	broker Broker
	engine Engine
	log    *logger.Zerolog
	state  *entity.PlaybackState
	mu     sync.Mutex

	listeners      []*listener
	nextListenerID uint64
	lastErr        string

	queue    []*entity.Track
	order    []int
	orderPos int
	rnd      *rand.Rand

	pollStop chan struct{}
	pollGen  uint64
}

type StateConfig struct {
	PollInterval time.Duration
}

type listener struct {
	id uint64
	fn entity.StateListener
}

// NewStateUseCase wires the store to the engine callbacks. broker may be nil.
func NewStateUseCase(cfg *StateConfig, broker Broker, engine Engine, log *logger.Zerolog) *StateUseCase {
	if cfg == nil {
		cfg = &StateConfig{}
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}

	uc := &StateUseCase{
		cfg:      cfg,
		broker:   broker,
		engine:   engine,
		log:      log,
		state:    entity.NewPlaybackState(),
		orderPos: -1,
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	uc.engine.SetStatusCallback(uc.statusCallback)
	uc.engine.SetStreamTitleCallback(uc.streamTitleCallback)

	return uc
}

// Subscribe registers l and returns a function that removes it.
// Listeners run under the store lock and must not call back into the store.
func (uc *StateUseCase) Subscribe(l entity.StateListener) func() {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	uc.nextListenerID++
	id := uc.nextListenerID
	uc.listeners = append(uc.listeners, &listener{id: id, fn: l})

	return func() {
		uc.mu.Lock()
		defer uc.mu.Unlock()
		uc.listeners = lo.Reject(uc.listeners, func(item *listener, _ int) bool {
			return item.id == id
		})
	}
}

func (uc *StateUseCase) State() entity.PlaybackState {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	return uc.state.Copy()
}

// LastError returns the message of the last failed action, empty after a success.
func (uc *StateUseCase) LastError() string {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	return uc.lastErr
}

func (uc *StateUseCase) Load(ctx context.Context, track *entity.Track) error {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	if err := uc.load(ctx, track); err != nil {
		return err
	}

	uc.publish()
	return nil
}

func (uc *StateUseCase) PlayTrack(ctx context.Context, track *entity.Track) error {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	if err := uc.load(ctx, track); err != nil {
		return err
	}
	// the load already changed the state, subscribers see it even if play fails
	defer uc.publish()

	return uc.play(ctx)
}

func (uc *StateUseCase) Play(ctx context.Context) error {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	if err := uc.play(ctx); err != nil {
		return err
	}

	uc.publish()
	return nil
}

func (uc *StateUseCase) Pause(ctx context.Context) error {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	if uc.state.CurrentTrack == nil {
		return uc.fail("failed to pause", entity.ErrNoTrackLoaded)
	}

	if err := uc.engine.Pause(ctx); err != nil {
		return uc.fail("failed to pause", err)
	}

	uc.stopPolling()
	uc.state.IsPlaying = false
	uc.applyPosition(uc.engine.Status())
	uc.lastErr = ""
	uc.publish()

	return nil
}

// TogglePlay pauses while playing and plays otherwise.
func (uc *StateUseCase) TogglePlay(ctx context.Context) error {
	uc.mu.Lock()
	playing := uc.state.IsPlaying
	uc.mu.Unlock()

	if playing {
		return uc.Pause(ctx)
	}
	return uc.Play(ctx)
}

func (uc *StateUseCase) Stop(ctx context.Context) error {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	if uc.state.CurrentTrack == nil {
		return uc.fail("failed to stop", entity.ErrNoTrackLoaded)
	}

	if err := uc.engine.Stop(ctx); err != nil {
		return uc.fail("failed to stop", err)
	}

	uc.stopPolling()
	uc.state.IsPlaying = false
	uc.state.Position = 0
	uc.lastErr = ""
	uc.publish()

	return nil
}

func (uc *StateUseCase) SeekTo(ctx context.Context, position int64) error {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	if uc.state.CurrentTrack == nil {
		return uc.fail("failed to seek", entity.ErrNoTrackLoaded)
	}

	if position < 0 {
		position = 0
	}
	if uc.state.Duration > 0 && position > uc.state.Duration {
		position = uc.state.Duration
	}

	if err := uc.engine.SeekTo(ctx, position); err != nil {
		return uc.fail("failed to seek", err)
	}

	uc.state.Position = position
	uc.lastErr = ""
	uc.publish()

	return nil
}

func (uc *StateUseCase) SetVolume(ctx context.Context, volume float64) error {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	if math.IsNaN(volume) {
		return uc.fail("failed to set volume", errors.Wrap(entity.ErrInvalidArgument, "volume is NaN"))
	}
	volume = math.Max(0, math.Min(1, volume))

	if err := uc.engine.SetVolume(ctx, volume); err != nil {
		return uc.fail("failed to set volume", err)
	}

	uc.state.Volume = volume
	uc.lastErr = ""
	uc.publish()

	return nil
}

// SetRepeatMode rejects modes other than none, one and all.
func (uc *StateUseCase) SetRepeatMode(mode entity.RepeatMode) error {
	if _, err := entity.ParseRepeatMode(string(mode)); err != nil {
		return err
	}

	uc.mu.Lock()
	defer uc.mu.Unlock()

	if uc.state.RepeatMode == mode {
		return nil
	}

	uc.state.RepeatMode = mode
	uc.publish()

	return nil
}

// CycleRepeatMode advances to the next repeat mode and returns it.
func (uc *StateUseCase) CycleRepeatMode() entity.RepeatMode {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	uc.state.RepeatMode = uc.state.RepeatMode.Next()
	uc.publish()

	return uc.state.RepeatMode
}

func (uc *StateUseCase) SetShuffle(enabled bool) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	if uc.state.Shuffle == enabled {
		return
	}

	uc.state.Shuffle = enabled
	uc.rebuildOrder()
	uc.publish()
}

func (uc *StateUseCase) ToggleShuffle() bool {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	uc.state.Shuffle = !uc.state.Shuffle
	uc.rebuildOrder()
	uc.publish()

	return uc.state.Shuffle
}

// SetQueue replaces the tracks Next, Previous and auto-advance walk through.
func (uc *StateUseCase) SetQueue(tracks []*entity.Track) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	uc.queue = append(uc.queue[:0:0], tracks...)
	uc.rebuildOrder()
}

func (uc *StateUseCase) Next(ctx context.Context) error {
	return uc.step(ctx, 1)
}

func (uc *StateUseCase) Previous(ctx context.Context) error {
	return uc.step(ctx, -1)
}

// Close cancels the polling timer.
func (uc *StateUseCase) Close() {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	uc.stopPolling()
}

func (uc *StateUseCase) step(ctx context.Context, delta int) error {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	if len(uc.order) == 0 {
		return uc.fail("failed to change track", entity.ErrQueueEmpty)
	}

	pos := uc.orderPos + delta
	if uc.orderPos < 0 && delta < 0 {
		pos = len(uc.order) - 1
	}
	pos = (pos + len(uc.order)) % len(uc.order)

	wasPlaying := uc.state.IsPlaying
	if err := uc.load(ctx, uc.queue[uc.order[pos]]); err != nil {
		return err
	}
	defer uc.publish()

	if wasPlaying {
		return uc.play(ctx)
	}
	return nil
}

func (uc *StateUseCase) load(ctx context.Context, track *entity.Track) error {
	if track == nil {
		return uc.fail("failed to load track", errors.Wrap(entity.ErrInvalidArgument, "nil track"))
	}

	// a failed load keeps the previous track loaded and polled
	if err := uc.engine.Load(ctx, track); err != nil {
		return uc.fail("failed to load track", err)
	}

	uc.stopPolling()

	t := *track
	uc.state.CurrentTrack = &t
	uc.state.Duration = t.Duration
	uc.state.Position = 0
	uc.state.IsPlaying = false
	uc.state.StreamTitle = ""
	uc.syncOrderPos()
	uc.lastErr = ""

	uc.log.Debug().Msgf("loaded track %s (%s)", t.ID, t.Title)

	return nil
}

func (uc *StateUseCase) play(ctx context.Context) error {
	if uc.state.CurrentTrack == nil {
		return uc.fail("failed to play", entity.ErrNoTrackLoaded)
	}

	if err := uc.engine.Play(ctx); err != nil {
		return uc.fail("failed to play", err)
	}

	uc.state.IsPlaying = true
	uc.applyPosition(uc.engine.Status())
	uc.startPolling()
	uc.lastErr = ""

	return nil
}

func (uc *StateUseCase) fail(msg string, err error) error {
	uc.log.Error().Msgf("%s: %v", msg, err)
	uc.lastErr = fmt.Sprintf("%s: %v", msg, err)
	return errors.Wrap(err, msg)
}

func (uc *StateUseCase) statusCallback(st entity.EngineStatus) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	if !uc.isCurrent(st.TrackID) {
		return
	}

	if st.Finished {
		uc.trackFinished()
		return
	}

	if uc.applyStatus(st) {
		uc.publish()
	}
}

func (uc *StateUseCase) streamTitleCallback(trackID, title string) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	if !uc.isCurrent(trackID) || uc.state.StreamTitle == title {
		return
	}

	uc.state.StreamTitle = title
	uc.publish()
}

func (uc *StateUseCase) trackFinished() {
	ctx := context.Background()
	uc.stopPolling()

	switch {
	case uc.state.RepeatMode == entity.RepeatOne:
		uc.restart(ctx)
		return
	case uc.orderPos >= 0 && uc.orderPos+1 < len(uc.order):
		uc.advance(ctx, uc.orderPos+1)
		return
	case uc.orderPos >= 0 && uc.state.RepeatMode == entity.RepeatAll:
		uc.advance(ctx, 0)
		return
	}

	uc.state.IsPlaying = false
	uc.state.Position = uc.state.Duration
	uc.publish()
}

func (uc *StateUseCase) restart(ctx context.Context) {
	defer uc.publish()

	if err := uc.engine.SeekTo(ctx, 0); err != nil {
		uc.state.IsPlaying = false
		_ = uc.fail("failed to repeat track", err)
		return
	}
	uc.state.Position = 0

	if err := uc.play(ctx); err != nil {
		uc.state.IsPlaying = false
	}
}

func (uc *StateUseCase) advance(ctx context.Context, pos int) {
	defer uc.publish()

	if err := uc.load(ctx, uc.queue[uc.order[pos]]); err != nil {
		uc.state.IsPlaying = false
		return
	}
	_ = uc.play(ctx)
}

// applyStatus copies engine position and flags into the state and reports a change.
func (uc *StateUseCase) applyStatus(st entity.EngineStatus) bool {
	prev := *uc.state

	if st.Duration > 0 {
		uc.state.Duration = st.Duration
	}
	uc.applyPosition(st)
	uc.state.IsPlaying = st.Playing

	return prev.Position != uc.state.Position ||
		prev.Duration != uc.state.Duration ||
		prev.IsPlaying != uc.state.IsPlaying
}

func (uc *StateUseCase) applyPosition(st entity.EngineStatus) {
	if !uc.isCurrent(st.TrackID) {
		return
	}
	p := st.Position
	if p < 0 {
		p = 0
	}
	if uc.state.Duration > 0 && p > uc.state.Duration {
		p = uc.state.Duration
	}
	uc.state.Position = p
}

func (uc *StateUseCase) isCurrent(trackID string) bool {
	return uc.state.CurrentTrack != nil && uc.state.CurrentTrack.ID == trackID
}

func (uc *StateUseCase) rebuildOrder() {
	uc.order = lo.Range(len(uc.queue))
	if uc.state.Shuffle {
		uc.rnd.Shuffle(len(uc.order), func(i, j int) {
			uc.order[i], uc.order[j] = uc.order[j], uc.order[i]
		})
	}
	uc.syncOrderPos()
}

func (uc *StateUseCase) syncOrderPos() {
	uc.orderPos = -1
	if uc.state.CurrentTrack == nil {
		return
	}

	id := uc.state.CurrentTrack.ID
	_, pos, ok := lo.FindIndexOf(uc.order, func(i int) bool {
		return uc.queue[i].ID == id
	})
	if ok {
		uc.orderPos = pos
	}
}

func (uc *StateUseCase) startPolling() {
	uc.stopPolling()

	uc.pollGen++
	gen := uc.pollGen
	stop := make(chan struct{})
	uc.pollStop = stop

	go func() {
		ticker := time.NewTicker(uc.cfg.PollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				uc.poll(gen)
			}
		}
	}()
}

func (uc *StateUseCase) stopPolling() {
	if uc.pollStop != nil {
		close(uc.pollStop)
		uc.pollStop = nil
	}
}

func (uc *StateUseCase) poll(gen uint64) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	if gen != uc.pollGen || uc.pollStop == nil {
		return
	}

	st := uc.engine.Status()
	if !uc.isCurrent(st.TrackID) || !st.Loaded || st.Finished {
		return
	}

	if uc.applyStatus(st) {
		uc.publish()
	}
}

func (uc *StateUseCase) publish() {
	snapshot := uc.state.Copy()

	for _, l := range uc.listeners {
		l.fn(snapshot)
	}

	if uc.broker == nil {
		return
	}

	data, err := json.Marshal(snapshot)
	if err != nil {
		uc.log.Error().Msg(err.Error())
		return
	}
	uc.broker.PublishState(data)
}
