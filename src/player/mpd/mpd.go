// Package mpd implements an output device backed by a Music Player Daemon
// instance. The daemon's queue is used as a single slot holding whatever
// source the transport has assigned.
package mpd

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/fhs/gompd/v2/mpd"
	log "github.com/sirupsen/logrus"

	"yplayer/src/player"
	"yplayer/src/util"
)

type Device struct {
	util.Emitter

	network, address, passwd string

	lock sync.Mutex
	// Sometimes the volume reported by MPD is invalid, so we have to keep
	// track of it ourselves.
	lastVolume float64
	// Records whether MPD was playing the last time the watcher looked, to
	// tell a natural end of the source apart from a plain stop.
	wasPlaying bool

	cancel context.CancelFunc
}

var _ player.Device = &Device{} // Enforce interface implementation.

func NewDevice(network, address string, password *string) (*Device, error) {
	var passwd string
	if password != nil {
		passwd = *password
	}

	dev := &Device{
		network: network,
		address: address,
		passwd:  passwd,
	}
	// Verify that the daemon is reachable before wiring anything to it.
	if err := dev.withMpd(func(mpdc *mpd.Client) error { return nil }); err != nil {
		return nil, fmt.Errorf("could not connect to MPD at %s: %v", address, err)
	}

	watcher, err := mpd.NewWatcher(network, address, passwd, "player")
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	dev.cancel = cancel
	go dev.watchLoop(ctx, watcher)
	go dev.timeLoop(ctx)
	return dev, nil
}

// Running long lived commands over the watcher connection fouls it up, so
// every operation dials its own short lived connection.
func (dev *Device) withMpd(fn func(*mpd.Client) error) error {
	client, err := mpd.DialAuthenticated(dev.network, dev.address, dev.passwd)
	if err != nil {
		return err
	}
	defer client.Close()
	return fn(client)
}

func (dev *Device) SetSource(uri string) {
	go func() {
		var duration time.Duration
		err := dev.withMpd(func(mpdc *mpd.Client) error {
			if err := mpdc.Clear(); err != nil {
				return err
			}
			if err := mpdc.Add(uri); err != nil {
				return err
			}
			songs, err := mpdc.PlaylistInfo(-1, -1)
			if err != nil {
				return err
			}
			if len(songs) > 0 {
				duration = attrDuration(songs[0], "duration")
			}
			return nil
		})
		if err != nil {
			log.Warnf("Could not load %q: %v", uri, err)
			return
		}

		dev.lock.Lock()
		dev.wasPlaying = false
		dev.lock.Unlock()

		if duration > 0 {
			dev.Emit(player.MetadataEvent{Duration: duration})
		}
		dev.Emit(player.ReadyEvent{})
	}()
}

func (dev *Device) Play() error {
	err := dev.withMpd(func(mpdc *mpd.Client) error {
		status, err := mpdc.Status()
		if err != nil {
			return err
		}
		if status["playlistlength"] == "0" {
			return fmt.Errorf("no source loaded")
		}
		if status["state"] == "pause" {
			return mpdc.Pause(false)
		}
		return mpdc.Play(0)
	})
	if err != nil {
		return fmt.Errorf("%w: %v", player.ErrPlaybackRejected, err)
	}

	dev.lock.Lock()
	dev.wasPlaying = true
	dev.lock.Unlock()
	return nil
}

func (dev *Device) Pause() {
	dev.lock.Lock()
	dev.wasPlaying = false
	dev.lock.Unlock()

	if err := dev.withMpd(func(mpdc *mpd.Client) error {
		return mpdc.Pause(true)
	}); err != nil {
		log.Warnf("Could not pause: %v", err)
	}
}

func (dev *Device) Seek(t time.Duration) error {
	return dev.withMpd(func(mpdc *mpd.Client) error {
		return mpdc.Seek(0, int(t/time.Second))
	})
}

func (dev *Device) Position() time.Duration {
	var pos time.Duration
	err := dev.withMpd(func(mpdc *mpd.Client) error {
		status, err := mpdc.Status()
		if err != nil {
			return err
		}
		pos = attrDuration(status, "elapsed")
		return nil
	})
	if err != nil {
		log.Warnf("Could not read position: %v", err)
	}
	return pos
}

func (dev *Device) Duration() time.Duration {
	var duration time.Duration
	err := dev.withMpd(func(mpdc *mpd.Client) error {
		status, err := mpdc.Status()
		if err != nil {
			return err
		}
		duration = attrDuration(status, "duration")
		return nil
	})
	if err != nil {
		log.Warnf("Could not read duration: %v", err)
	}
	return duration
}

func (dev *Device) SetVolume(vol float64) {
	if vol < 0 {
		vol = 0
	} else if vol > 1 {
		vol = 1
	}

	dev.lock.Lock()
	dev.lastVolume = vol
	dev.lock.Unlock()

	if err := dev.withMpd(func(mpdc *mpd.Client) error {
		return mpdc.SetVolume(int(vol * 100))
	}); err != nil {
		log.Warnf("Could not set volume: %v", err)
	}
}

func (dev *Device) Volume() float64 {
	var vol float64
	found := false
	err := dev.withMpd(func(mpdc *mpd.Client) error {
		status, err := mpdc.Status()
		if err != nil {
			return err
		}
		raw, ok := status["volume"]
		if !ok {
			return nil
		}
		v, err := strconv.ParseInt(raw, 10, 32)
		if err != nil || v < 0 {
			// Happens sometimes when nothing is playing.
			return nil
		}
		vol = float64(v) / 100
		found = true
		return nil
	})
	if err != nil || !found {
		dev.lock.Lock()
		defer dev.lock.Unlock()
		return dev.lastVolume
	}
	return vol
}

func (dev *Device) SetLoop(loop bool) {
	if err := dev.withMpd(func(mpdc *mpd.Client) error {
		if err := mpdc.Repeat(loop); err != nil {
			return err
		}
		return mpdc.Single(loop)
	}); err != nil {
		log.Warnf("Could not set repeat flag: %v", err)
	}
}

func (dev *Device) Close() error {
	dev.cancel()
	return nil
}

func (dev *Device) watchLoop(ctx context.Context, watcher *mpd.Watcher) {
	defer watcher.Close()
	for {
		select {
		case <-watcher.Event:
			dev.checkEnded()
		case err := <-watcher.Error:
			log.Warnf("MPD watcher: %v", err)
		case <-ctx.Done():
			return
		}
	}
}

// checkEnded distinguishes a source that played to completion from an
// explicit stop: MPD reports state "stop" for both, but only yplayer issues
// stop commands and it never does, so a transition from playing to stopped
// means the source ran out.
func (dev *Device) checkEnded() {
	var state string
	err := dev.withMpd(func(mpdc *mpd.Client) error {
		status, err := mpdc.Status()
		if err != nil {
			return err
		}
		state = status["state"]
		return nil
	})
	if err != nil {
		log.Warnf("Could not read MPD status: %v", err)
		return
	}

	dev.lock.Lock()
	ended := state == "stop" && dev.wasPlaying
	if ended {
		dev.wasPlaying = false
	}
	dev.lock.Unlock()

	if ended {
		dev.Emit(player.EndedEvent{})
	}
}

func (dev *Device) timeLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Second / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			var pos time.Duration
			playing := false
			err := dev.withMpd(func(mpdc *mpd.Client) error {
				status, err := mpdc.Status()
				if err != nil {
					return err
				}
				if status["state"] == "play" {
					playing = true
					pos = attrDuration(status, "elapsed")
				}
				return nil
			})
			if err == nil && playing {
				dev.Emit(player.TimeEvent{Position: pos})
			}
		case <-ctx.Done():
			return
		}
	}
}

func attrDuration(attrs mpd.Attrs, key string) time.Duration {
	f, err := strconv.ParseFloat(attrs[key], 64)
	if err != nil {
		return 0
	}
	return time.Duration(f * float64(time.Second))
}
