package player

import (
	"fmt"
	"sync"
	"time"

	"yplayer/src/util"
)

// DummyDevice is a scripted output device for use in tests. Readiness, time
// advancement and source completion are triggered manually.
type DummyDevice struct {
	util.Emitter

	// RejectPlay makes every play request fail, mimicking environments that
	// require a user gesture.
	RejectPlay bool
	// AutoReady makes the device report readiness immediately when a source
	// is assigned, with SourceDuration as its length.
	AutoReady      bool
	SourceDuration time.Duration

	lock     sync.Mutex
	uri      string
	playing  bool
	position time.Duration
	duration time.Duration
	volume   float64
	loop     bool
}

var _ Device = &DummyDevice{} // Enforce interface implementation.

func (dev *DummyDevice) SetSource(uri string) {
	dev.lock.Lock()
	dev.uri = uri
	dev.playing = false
	dev.position = 0
	dev.duration = 0
	if dev.AutoReady {
		dev.duration = dev.SourceDuration
	}
	dev.lock.Unlock()

	if dev.AutoReady {
		dev.Emit(MetadataEvent{Duration: dev.SourceDuration})
		dev.Emit(ReadyEvent{})
	}
}

func (dev *DummyDevice) Play() error {
	dev.lock.Lock()
	defer dev.lock.Unlock()
	if dev.uri == "" {
		return fmt.Errorf("%w: no source", ErrPlaybackRejected)
	}
	if dev.RejectPlay {
		return fmt.Errorf("%w: scripted rejection", ErrPlaybackRejected)
	}
	dev.playing = true
	return nil
}

func (dev *DummyDevice) Pause() {
	dev.lock.Lock()
	defer dev.lock.Unlock()
	dev.playing = false
}

func (dev *DummyDevice) Seek(t time.Duration) error {
	dev.lock.Lock()
	defer dev.lock.Unlock()
	dev.position = t
	return nil
}

func (dev *DummyDevice) Position() time.Duration {
	dev.lock.Lock()
	defer dev.lock.Unlock()
	return dev.position
}

func (dev *DummyDevice) Duration() time.Duration {
	dev.lock.Lock()
	defer dev.lock.Unlock()
	return dev.duration
}

func (dev *DummyDevice) SetVolume(vol float64) {
	dev.lock.Lock()
	defer dev.lock.Unlock()
	dev.volume = vol
}

func (dev *DummyDevice) Volume() float64 {
	dev.lock.Lock()
	defer dev.lock.Unlock()
	return dev.volume
}

func (dev *DummyDevice) SetLoop(loop bool) {
	dev.lock.Lock()
	defer dev.lock.Unlock()
	dev.loop = loop
}

func (dev *DummyDevice) Loop() bool {
	dev.lock.Lock()
	defer dev.lock.Unlock()
	return dev.loop
}

func (dev *DummyDevice) Close() error { return nil }

// Source returns the currently assigned source locator.
func (dev *DummyDevice) Source() string {
	dev.lock.Lock()
	defer dev.lock.Unlock()
	return dev.uri
}

// Playing reports whether the device was told to play.
func (dev *DummyDevice) Playing() bool {
	dev.lock.Lock()
	defer dev.lock.Unlock()
	return dev.playing
}

// EndSource simulates the current source playing to completion.
func (dev *DummyDevice) EndSource() {
	dev.lock.Lock()
	dev.playing = false
	dev.position = dev.duration
	dev.lock.Unlock()
	dev.Emit(EndedEvent{})
}

// AdvanceTime simulates playback time passing.
func (dev *DummyDevice) AdvanceTime(d time.Duration) {
	dev.lock.Lock()
	dev.position += d
	position := dev.position
	dev.lock.Unlock()
	dev.Emit(TimeEvent{Position: position})
}
