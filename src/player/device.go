package player

import (
	"errors"
	"time"

	"yplayer/src/util"
)

// ErrPlaybackRejected is returned when the output device declines a play
// request. It is never fatal, callers remain paused and may retry.
var ErrPlaybackRejected = errors.New("playback rejected by output device")

// ReadyEvent is emitted by a device once the assigned source is buffered and
// a play request can be expected to succeed.
type ReadyEvent struct{}

// EndedEvent is emitted by a device when the current source has played to
// completion.
type EndedEvent struct{}

// TimeEvent is emitted by a device as playback time advances.
type TimeEvent struct {
	Position time.Duration
}

// MetadataEvent is emitted by a device once the duration of the assigned
// source is known.
type MetadataEvent struct {
	Duration time.Duration
}

// A Device is a single audio output capable of playing one source at a time.
//
// Implementations emit ReadyEvent, EndedEvent, TimeEvent and MetadataEvent
// through their emitter. All methods must be safe for concurrent use.
type Device interface {
	util.Eventer

	// SetSource assigns a new source locator. Loading happens in the
	// background, a ReadyEvent signals completion. Any current playback is
	// stopped.
	SetSource(uri string)

	// Play starts or resumes playback of the assigned source. An error
	// wrapping ErrPlaybackRejected is returned when the device cannot comply,
	// e.g. because no source is loaded yet.
	Play() error

	// Pause suspends playback. Pausing a paused or idle device is a no-op.
	Pause()

	// Seek sets the playback position of the current source.
	Seek(t time.Duration) error

	// Position returns the playback position within the current source.
	Position() time.Duration

	// Duration returns the length of the current source, or 0 when unknown.
	Duration() time.Duration

	// SetVolume sets the output volume as a uniform float in [0, 1].
	SetVolume(vol float64)

	// Volume returns the output volume as a uniform float in [0, 1].
	Volume() float64

	// SetLoop sets the device's native single-source repeat flag.
	SetLoop(loop bool)

	Close() error
}
