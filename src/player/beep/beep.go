// Package beep implements a local audio output device using the speaker of
// the machine yplayer runs on.
package beep

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"
	log "github.com/sirupsen/logrus"

	"yplayer/src/player"
	"yplayer/src/util"
)

const sampleRate = beep.SampleRate(44100)

// Device plays audio sources through the local speaker.
type Device struct {
	util.Emitter

	mu       sync.Mutex
	gen      int // Invalidates loads and callbacks of replaced sources.
	streamer beep.StreamSeekCloser
	format   beep.Format
	ctrl     *beep.Ctrl
	volume   *effects.Volume
	queued   bool
	loop     bool
	vol      float64

	done chan struct{}
}

var _ player.Device = &Device{} // Enforce interface implementation.

func NewDevice() (*Device, error) {
	if err := speaker.Init(sampleRate, sampleRate.N(time.Second/10)); err != nil {
		return nil, fmt.Errorf("could not initialize speaker: %v", err)
	}
	dev := &Device{
		vol:  1.0,
		done: make(chan struct{}),
	}
	go dev.timeLoop()
	return dev, nil
}

// SetSource loads the specified locator in the background. A ReadyEvent
// follows once the source is decoded and a play request can succeed.
func (dev *Device) SetSource(uri string) {
	dev.mu.Lock()
	dev.gen++
	gen := dev.gen
	dev.unloadLocked()
	dev.mu.Unlock()

	go func() {
		streamer, format, err := decodeSource(uri)
		if err != nil {
			log.Warnf("Could not load %q: %v", uri, err)
			return
		}

		dev.mu.Lock()
		if gen != dev.gen {
			dev.mu.Unlock()
			streamer.Close()
			return
		}
		dev.streamer = streamer
		dev.format = format
		resampled := beep.Resample(4, format.SampleRate, sampleRate, streamer)
		dev.ctrl = &beep.Ctrl{Streamer: resampled, Paused: true}
		dev.volume = &effects.Volume{Streamer: dev.ctrl, Base: 2}
		dev.applyVolumeLocked()
		dev.queued = false
		duration := format.SampleRate.D(streamer.Len())
		dev.mu.Unlock()

		dev.Emit(player.MetadataEvent{Duration: duration})
		dev.Emit(player.ReadyEvent{})
	}()
}

func (dev *Device) Play() error {
	dev.mu.Lock()
	defer dev.mu.Unlock()

	if dev.ctrl == nil {
		return fmt.Errorf("%w: no source loaded", player.ErrPlaybackRejected)
	}

	speaker.Lock()
	dev.ctrl.Paused = false
	speaker.Unlock()

	if !dev.queued {
		gen := dev.gen
		speaker.Play(beep.Seq(dev.volume, beep.Callback(func() {
			// The callback runs on the speaker's own goroutine, anything
			// that takes the speaker lock must be deferred.
			go dev.onSourceDone(gen)
		})))
		dev.queued = true
	}
	return nil
}

func (dev *Device) Pause() {
	dev.mu.Lock()
	defer dev.mu.Unlock()

	if dev.ctrl == nil {
		return
	}
	speaker.Lock()
	dev.ctrl.Paused = true
	speaker.Unlock()
}

func (dev *Device) Seek(t time.Duration) error {
	dev.mu.Lock()
	defer dev.mu.Unlock()

	if dev.streamer == nil {
		return nil
	}
	speaker.Lock()
	defer speaker.Unlock()
	return dev.streamer.Seek(dev.format.SampleRate.N(t))
}

func (dev *Device) Position() time.Duration {
	dev.mu.Lock()
	defer dev.mu.Unlock()

	if dev.streamer == nil {
		return 0
	}
	speaker.Lock()
	pos := dev.streamer.Position()
	speaker.Unlock()
	return dev.format.SampleRate.D(pos)
}

func (dev *Device) Duration() time.Duration {
	dev.mu.Lock()
	defer dev.mu.Unlock()

	if dev.streamer == nil {
		return 0
	}
	return dev.format.SampleRate.D(dev.streamer.Len())
}

func (dev *Device) SetVolume(vol float64) {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	if vol < 0 {
		vol = 0
	} else if vol > 1 {
		vol = 1
	}
	dev.vol = vol
	dev.applyVolumeLocked()
}

func (dev *Device) Volume() float64 {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	return dev.vol
}

func (dev *Device) SetLoop(loop bool) {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	dev.loop = loop
}

func (dev *Device) Close() error {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	dev.gen++
	dev.unloadLocked()
	close(dev.done)
	return nil
}

func (dev *Device) applyVolumeLocked() {
	if dev.volume == nil {
		return
	}
	speaker.Lock()
	if dev.vol <= 0 {
		dev.volume.Silent = true
	} else {
		dev.volume.Silent = false
		dev.volume.Volume = math.Log2(dev.vol)
	}
	speaker.Unlock()
}

func (dev *Device) unloadLocked() {
	if dev.streamer != nil {
		speaker.Clear()
		dev.streamer.Close()
	}
	dev.streamer = nil
	dev.ctrl = nil
	dev.volume = nil
	dev.queued = false
}

func (dev *Device) onSourceDone(gen int) {
	dev.mu.Lock()
	if gen != dev.gen {
		dev.mu.Unlock()
		return
	}
	dev.queued = false
	loop := dev.loop
	dev.mu.Unlock()

	if loop {
		if err := dev.Seek(0); err != nil {
			log.Warnf("Could not rewind looping source: %v", err)
		}
		if err := dev.Play(); err != nil {
			log.Warnf("Could not restart looping source: %v", err)
		}
		return
	}
	dev.Emit(player.EndedEvent{})
}

// timeLoop emits time advancement notifications while playback is audible.
func (dev *Device) timeLoop() {
	ticker := time.NewTicker(time.Second / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			dev.mu.Lock()
			playing := dev.ctrl != nil && dev.queued
			if playing {
				speaker.Lock()
				playing = !dev.ctrl.Paused
				speaker.Unlock()
			}
			var pos time.Duration
			if playing {
				speaker.Lock()
				pos = dev.format.SampleRate.D(dev.streamer.Position())
				speaker.Unlock()
			}
			dev.mu.Unlock()

			if playing {
				dev.Emit(player.TimeEvent{Position: pos})
			}
		case <-dev.done:
			return
		}
	}
}

// decodeSource opens and decodes a source locator. HTTP sources are buffered
// in memory so that the decoder can seek.
func decodeSource(uri string) (beep.StreamSeekCloser, beep.Format, error) {
	rc, name, err := openSource(uri)
	if err != nil {
		return nil, beep.Format{}, err
	}

	switch strings.ToLower(path.Ext(name)) {
	case ".wav":
		return wav.Decode(rc)
	case ".ogg", ".oga":
		return vorbis.Decode(rc)
	case ".flac":
		return flac.Decode(rc)
	default:
		return mp3.Decode(rc)
	}
}

func openSource(uri string) (io.ReadSeekCloser, string, error) {
	if strings.HasPrefix(uri, "http://") || strings.HasPrefix(uri, "https://") {
		res, err := http.Get(uri)
		if err != nil {
			return nil, "", err
		}
		defer res.Body.Close()
		if res.StatusCode != http.StatusOK {
			return nil, "", fmt.Errorf("fetching %q: %s", uri, res.Status)
		}
		data, err := io.ReadAll(res.Body)
		if err != nil {
			return nil, "", err
		}
		u, err := url.Parse(uri)
		if err != nil {
			return nil, "", err
		}
		return nopSeekCloser{bytes.NewReader(data)}, u.Path, nil
	}

	fd, err := os.Open(uri)
	if err != nil {
		return nil, "", err
	}
	return fd, uri, nil
}

type nopSeekCloser struct {
	*bytes.Reader
}

func (nopSeekCloser) Close() error { return nil }
