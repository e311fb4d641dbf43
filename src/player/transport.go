package player

import (
	"context"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"yplayer/src/playlist"
	"yplayer/src/util"
)

// State enumerates the transport states.
type State int

const (
	StateInvalid State = iota
	// StateIdle: no source has been loaded yet.
	StateIdle
	// StateAwaitingReady: a source was assigned with autoplay requested and
	// the device has not reported readiness yet.
	StateAwaitingReady
	// StatePaused: a source is loaded, playback is suspended.
	StatePaused
	// StatePlaying: a source is loaded and audible.
	StatePlaying
)

func (state State) Name() string {
	switch state {
	case StateIdle:
		return "idle"
	case StateAwaitingReady:
		return "awaiting-ready"
	case StatePaused:
		return "paused"
	case StatePlaying:
		return "playing"
	default:
		return "invalid"
	}
}

// PlayStateEvent is emitted when the transport changes state.
type PlayStateEvent struct {
	State State
}

// LoopEvent is emitted when the loop mode changes.
type LoopEvent struct {
	Mode playlist.LoopMode
}

// VolumeEvent is emitted when the output volume changes.
type VolumeEvent struct {
	Volume float64
}

// ProgressEvent is emitted as playback time advances. Progress is the
// elapsed fraction in [0, 1].
type ProgressEvent struct {
	Progress float64
	Elapsed  time.Duration
	Duration time.Duration
}

// Status is a read-only snapshot of the transport for the rendering layer.
type Status struct {
	TrackIndex int
	State      State
	LoopMode   playlist.LoopMode
	Volume     float64
	Progress   float64
	Elapsed    time.Duration
	Duration   time.Duration
}

// Transport drives a single output device and owns the loop mode state
// machine. Track selection is delegated to the playlist store, the transport
// only decides when to move the cursor and whether playback continues.
//
// All mutations are serialized under one lock. Device notifications are
// consumed by a single goroutine (see Run), so a track change triggered by
// the end of a song cannot interleave with a concurrent user command.
type Transport struct {
	util.Emitter

	dev   Device
	store *playlist.Store

	lock            sync.Mutex
	state           State
	loop            playlist.LoopMode
	pendingAutoplay bool
	duration        time.Duration
	elapsed         time.Duration
}

func NewTransport(dev Device, store *playlist.Store) *Transport {
	return &Transport{
		dev:   dev,
		store: store,
		state: StateIdle,
		loop:  playlist.LoopNone,
	}
}

// Run consumes device notifications until the context is canceled. It must
// be running for autoplay and track advancement to function.
func (tp *Transport) Run(ctx context.Context) {
	events := tp.dev.Events().Listen(ctx)
	for event := range events {
		switch t := event.(type) {
		case ReadyEvent:
			tp.handleReady()
		case EndedEvent:
			tp.handleEnded()
		case TimeEvent:
			tp.handleTime(t.Position)
		case MetadataEvent:
			tp.handleMetadata(t.Duration)
		}
	}
}

// Load assigns the device's source to the specified track. Playback does not
// start here: when autoplay is requested, the play command is deferred until
// the device reports readiness so that environments which need buffering (or
// a user gesture) are respected.
func (tp *Transport) Load(track playlist.Track, autoplay bool) {
	tp.lock.Lock()
	tp.loadLocked(track, autoplay)
	tp.lock.Unlock()

	log.Debugf("Loaded %q, autoplay=%v", track.Title, autoplay)
}

// Play requests playback from the device. On rejection the transport remains
// in its current state and the error wraps ErrPlaybackRejected.
func (tp *Transport) Play() error {
	tp.lock.Lock()
	defer tp.lock.Unlock()
	return tp.playLocked()
}

func (tp *Transport) playLocked() error {
	if err := tp.dev.Play(); err != nil {
		log.Warnf("Play request rejected: %v", err)
		return fmt.Errorf("%w: %v", ErrPlaybackRejected, err)
	}
	tp.setStateLocked(StatePlaying)
	return nil
}

// Pause suspends playback. Pausing while already paused is a no-op.
func (tp *Transport) Pause() {
	tp.lock.Lock()
	defer tp.lock.Unlock()
	tp.pauseLocked()
}

func (tp *Transport) pauseLocked() {
	tp.dev.Pause()
	tp.pendingAutoplay = false
	if tp.state != StateIdle {
		tp.setStateLocked(StatePaused)
	}
}

// Next advances to the following track. At the end of the playlist with loop
// mode none, the cursor parks at the first track and playback halts instead
// of wrapping around.
func (tp *Transport) Next() error {
	tp.lock.Lock()
	defer tp.lock.Unlock()
	return tp.nextLocked()
}

func (tp *Transport) nextLocked() error {
	adv, err := tp.store.Next(tp.loop)
	if err != nil {
		return err
	}
	track, err := tp.store.TrackAt(adv.Index)
	if err != nil {
		return err
	}

	if adv.Stop {
		tp.loadLocked(track, false)
		tp.pauseLocked()
		return nil
	}
	tp.loadLocked(track, tp.state == StatePlaying || tp.state == StateAwaitingReady)
	return nil
}

// Prev moves to the preceding track, always wrapping from the first track to
// the final one regardless of loop mode.
func (tp *Transport) Prev() error {
	tp.lock.Lock()
	defer tp.lock.Unlock()

	index, err := tp.store.Prev()
	if err != nil {
		return err
	}
	track, err := tp.store.TrackAt(index)
	if err != nil {
		return err
	}
	tp.loadLocked(track, tp.state == StatePlaying || tp.state == StateAwaitingReady)
	return nil
}

func (tp *Transport) loadLocked(track playlist.Track, autoplay bool) {
	tp.dev.SetSource(track.URI)
	tp.pendingAutoplay = autoplay
	tp.duration = 0
	tp.elapsed = 0
	if autoplay {
		tp.setStateLocked(StateAwaitingReady)
	} else {
		tp.setStateLocked(StatePaused)
	}
}

// ToggleLoop cycles the loop mode: none, song, playlist and back to none.
// The device's native repeat flag is deliberately left unset in all three
// modes, repeating a song is handled by the transport when the device
// reports the end of the source.
func (tp *Transport) ToggleLoop() playlist.LoopMode {
	tp.lock.Lock()
	tp.loop = tp.loop.Cycle()
	tp.dev.SetLoop(false)
	mode := tp.loop
	tp.lock.Unlock()

	tp.Emit(LoopEvent{Mode: mode})
	return mode
}

// SetLoopMode sets the loop mode directly.
func (tp *Transport) SetLoopMode(mode playlist.LoopMode) error {
	if mode < playlist.LoopNone || mode > playlist.LoopPlaylist {
		return fmt.Errorf("invalid loop mode %d", mode)
	}
	tp.lock.Lock()
	tp.loop = mode
	tp.dev.SetLoop(false)
	tp.lock.Unlock()

	tp.Emit(LoopEvent{Mode: mode})
	return nil
}

// SeekTo seeks to the specified fraction of the current source. A seek while
// the duration is still unknown is silently ignored.
func (tp *Transport) SeekTo(fraction float64) {
	tp.lock.Lock()
	defer tp.lock.Unlock()

	if tp.duration <= 0 {
		return
	}
	if fraction < 0 {
		fraction = 0
	} else if fraction > 1 {
		fraction = 1
	}
	if err := tp.dev.Seek(time.Duration(fraction * float64(tp.duration))); err != nil {
		log.Warnf("Could not seek: %v", err)
	}
}

// SetVolume sets the output volume, clamped to [0, 1].
func (tp *Transport) SetVolume(vol float64) {
	if vol < 0 {
		vol = 0
	} else if vol > 1 {
		vol = 1
	}
	tp.dev.SetVolume(vol)
	tp.Emit(VolumeEvent{Volume: vol})
}

// Volume returns the device's output volume.
func (tp *Transport) Volume() float64 {
	return tp.dev.Volume()
}

// LoopMode returns the active loop mode.
func (tp *Transport) LoopMode() playlist.LoopMode {
	tp.lock.Lock()
	defer tp.lock.Unlock()
	return tp.loop
}

// Status returns a snapshot for the rendering layer.
func (tp *Transport) Status() Status {
	tp.lock.Lock()
	defer tp.lock.Unlock()

	status := Status{
		TrackIndex: tp.store.Current(),
		State:      tp.state,
		LoopMode:   tp.loop,
		Volume:     tp.dev.Volume(),
		Elapsed:    tp.elapsed,
		Duration:   tp.duration,
	}
	if tp.duration > 0 {
		status.Progress = float64(tp.elapsed) / float64(tp.duration)
	}
	return status
}

func (tp *Transport) handleReady() {
	tp.lock.Lock()
	defer tp.lock.Unlock()

	if !tp.pendingAutoplay {
		return
	}
	tp.pendingAutoplay = false
	if err := tp.playLocked(); err != nil {
		// Rejected, remain paused. The warning was already logged.
		tp.setStateLocked(StatePaused)
	}
}

func (tp *Transport) handleEnded() {
	tp.lock.Lock()
	defer tp.lock.Unlock()

	if tp.loop == playlist.LoopSong {
		if err := tp.dev.Seek(0); err != nil {
			log.Warnf("Could not restart track: %v", err)
		}
		if err := tp.playLocked(); err != nil {
			tp.setStateLocked(StatePaused)
		}
		return
	}

	if err := tp.nextLocked(); err != nil {
		log.Warnf("Could not advance after track end: %v", err)
	}
}

func (tp *Transport) handleTime(position time.Duration) {
	tp.lock.Lock()
	tp.elapsed = position
	duration := tp.duration
	tp.lock.Unlock()

	if duration > 0 {
		tp.Emit(ProgressEvent{
			Progress: float64(position) / float64(duration),
			Elapsed:  position,
			Duration: duration,
		})
	}
}

func (tp *Transport) handleMetadata(duration time.Duration) {
	tp.lock.Lock()
	tp.duration = duration
	elapsed := tp.elapsed
	tp.lock.Unlock()

	if duration > 0 {
		tp.Emit(ProgressEvent{
			Progress: float64(elapsed) / float64(duration),
			Elapsed:  elapsed,
			Duration: duration,
		})
	}
}

func (tp *Transport) setStateLocked(state State) {
	if tp.state == state {
		return
	}
	tp.state = state
	tp.Emit(PlayStateEvent{State: state})
}

// FormatDuration renders a duration as m:ss for display.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	minutes := int(d / time.Minute)
	seconds := int(d/time.Second) % 60
	return fmt.Sprintf("%d:%02d", minutes, seconds)
}
