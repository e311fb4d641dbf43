package player

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"yplayer/src/playlist"
)

func newTestTransport(t *testing.T, dev *DummyDevice, numTracks int) (*Transport, *playlist.Store) {
	t.Helper()
	store := playlist.NewStore()
	tracks := make([]playlist.Track, numTracks)
	for i := range tracks {
		tracks[i] = playlist.Track{
			URI:   fmt.Sprintf("blob://%d", i),
			Title: fmt.Sprintf("Track %d", i),
		}
	}
	store.LoadAll(tracks)

	tp := NewTransport(dev, store)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go tp.Run(ctx)
	return tp, store
}

func waitFor(t *testing.T, msg string, fn func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", msg)
}

func TestLoadWithAutoplay(t *testing.T) {
	dev := &DummyDevice{AutoReady: true, SourceDuration: time.Minute}
	tp, store := newTestTransport(t, dev, 3)

	track, _ := store.CurrentTrack()
	tp.Load(track, true)

	waitFor(t, "playback to start", dev.Playing)
	waitFor(t, "state playing", func() bool { return tp.Status().State == StatePlaying })
	if dev.Source() != "blob://0" {
		t.Fatalf("wrong source: %q", dev.Source())
	}
}

func TestLoadWithoutAutoplay(t *testing.T) {
	dev := &DummyDevice{AutoReady: true, SourceDuration: time.Minute}
	tp, store := newTestTransport(t, dev, 3)

	track, _ := store.CurrentTrack()
	tp.Load(track, false)

	waitFor(t, "state paused", func() bool { return tp.Status().State == StatePaused })
	// Readiness without a latched autoplay must not start playback.
	time.Sleep(50 * time.Millisecond)
	if dev.Playing() {
		t.Fatal("playback started without being requested")
	}
}

func TestPlayRejection(t *testing.T) {
	dev := &DummyDevice{AutoReady: true, SourceDuration: time.Minute, RejectPlay: true}
	tp, store := newTestTransport(t, dev, 3)

	track, _ := store.CurrentTrack()
	tp.Load(track, true)

	waitFor(t, "state paused after rejection", func() bool { return tp.Status().State == StatePaused })
	if dev.Playing() {
		t.Fatal("device should not be playing")
	}

	if err := tp.Play(); !errors.Is(err, ErrPlaybackRejected) {
		t.Fatalf("expected ErrPlaybackRejected, got %v", err)
	}
	if tp.Status().State != StatePaused {
		t.Fatalf("rejection changed the state to %q", tp.Status().State.Name())
	}
}

func TestPauseIsIdempotent(t *testing.T) {
	dev := &DummyDevice{AutoReady: true, SourceDuration: time.Minute}
	tp, store := newTestTransport(t, dev, 3)

	track, _ := store.CurrentTrack()
	tp.Load(track, true)
	waitFor(t, "playback to start", dev.Playing)

	tp.Pause()
	tp.Pause()
	if state := tp.Status().State; state != StatePaused {
		t.Fatalf("expected paused, got %q", state.Name())
	}
	if dev.Playing() {
		t.Fatal("device still playing")
	}
}

func TestToggleLoopCycles(t *testing.T) {
	dev := &DummyDevice{}
	tp, _ := newTestTransport(t, dev, 3)

	modes := []playlist.LoopMode{playlist.LoopSong, playlist.LoopPlaylist, playlist.LoopNone}
	for i, want := range modes {
		if got := tp.ToggleLoop(); got != want {
			t.Fatalf("toggle %d: expected %q, got %q", i+1, want.Name(), got.Name())
		}
		// The native repeat flag stays off, looping is handled here.
		if dev.Loop() {
			t.Fatal("native loop flag was raised")
		}
	}
}

func TestSetLoopMode(t *testing.T) {
	dev := &DummyDevice{}
	tp, _ := newTestTransport(t, dev, 3)

	if err := tp.SetLoopMode(playlist.LoopSong); err != nil {
		t.Fatal(err)
	}
	if tp.LoopMode() != playlist.LoopSong {
		t.Fatalf("expected song, got %q", tp.LoopMode().Name())
	}
	if err := tp.SetLoopMode(playlist.LoopMode(42)); err == nil {
		t.Fatal("expected an error for an invalid mode")
	}
}

func TestSeekRequiresKnownDuration(t *testing.T) {
	dev := &DummyDevice{} // No AutoReady, the duration stays unknown.
	tp, store := newTestTransport(t, dev, 3)

	track, _ := store.CurrentTrack()
	tp.Load(track, false)

	tp.SeekTo(0.5)
	if dev.Position() != 0 {
		t.Fatalf("seek moved the position to %v", dev.Position())
	}
}

func TestSeekToFraction(t *testing.T) {
	dev := &DummyDevice{AutoReady: true, SourceDuration: time.Minute}
	tp, store := newTestTransport(t, dev, 3)

	track, _ := store.CurrentTrack()
	tp.Load(track, true)
	waitFor(t, "duration to become known", func() bool { return tp.Status().Duration > 0 })

	tp.SeekTo(0.5)
	if dev.Position() != 30*time.Second {
		t.Fatalf("expected position 30s, got %v", dev.Position())
	}

	tp.SeekTo(7)
	if dev.Position() != time.Minute {
		t.Fatalf("expected the seek to clamp to 1m, got %v", dev.Position())
	}
}

func TestVolumeClamped(t *testing.T) {
	dev := &DummyDevice{}
	tp, _ := newTestTransport(t, dev, 3)

	tp.SetVolume(1.5)
	if tp.Volume() != 1 {
		t.Fatalf("expected 1, got %v", tp.Volume())
	}
	tp.SetVolume(-0.5)
	if tp.Volume() != 0 {
		t.Fatalf("expected 0, got %v", tp.Volume())
	}
}

func TestEndedAdvancesWhilePlaying(t *testing.T) {
	dev := &DummyDevice{AutoReady: true, SourceDuration: time.Minute}
	tp, store := newTestTransport(t, dev, 3)

	track, _ := store.CurrentTrack()
	tp.Load(track, true)
	waitFor(t, "playback to start", dev.Playing)

	dev.EndSource()
	waitFor(t, "the next track to load", func() bool { return dev.Source() == "blob://1" })
	waitFor(t, "playback to resume", dev.Playing)
	if store.Current() != 1 {
		t.Fatalf("cursor did not advance: %d", store.Current())
	}
}

func TestEndedAtPlaylistEndWithoutLoop(t *testing.T) {
	dev := &DummyDevice{AutoReady: true, SourceDuration: time.Minute}
	tp, store := newTestTransport(t, dev, 3)

	if err := store.SetCurrent(2); err != nil {
		t.Fatal(err)
	}
	track, _ := store.CurrentTrack()
	tp.Load(track, true)
	waitFor(t, "playback to start", dev.Playing)

	dev.EndSource()
	waitFor(t, "the cursor to park at track 0", func() bool { return store.Current() == 0 })
	waitFor(t, "state paused", func() bool { return tp.Status().State == StatePaused })
	if dev.Playing() {
		t.Fatal("playback should have halted")
	}
	if dev.Source() != "blob://0" {
		t.Fatalf("expected track 0 to be loaded, got %q", dev.Source())
	}
}

func TestEndedWrapsWithLoopPlaylist(t *testing.T) {
	dev := &DummyDevice{AutoReady: true, SourceDuration: time.Minute}
	tp, store := newTestTransport(t, dev, 3)

	if err := tp.SetLoopMode(playlist.LoopPlaylist); err != nil {
		t.Fatal(err)
	}
	if err := store.SetCurrent(2); err != nil {
		t.Fatal(err)
	}
	track, _ := store.CurrentTrack()
	tp.Load(track, true)
	waitFor(t, "playback to start", dev.Playing)

	dev.EndSource()
	waitFor(t, "the playlist to wrap", func() bool { return store.Current() == 0 })
	waitFor(t, "playback to resume", dev.Playing)
}

func TestEndedRepeatsWithLoopSong(t *testing.T) {
	dev := &DummyDevice{AutoReady: true, SourceDuration: time.Minute}
	tp, store := newTestTransport(t, dev, 3)

	if err := tp.SetLoopMode(playlist.LoopSong); err != nil {
		t.Fatal(err)
	}
	track, _ := store.CurrentTrack()
	tp.Load(track, true)
	waitFor(t, "playback to start", dev.Playing)

	dev.EndSource()
	waitFor(t, "playback to restart", dev.Playing)
	if dev.Position() != 0 {
		t.Fatalf("expected a rewind to 0, got %v", dev.Position())
	}
	if store.Current() != 0 {
		t.Fatalf("the cursor should not move: %d", store.Current())
	}
}

func TestNextPreservesPause(t *testing.T) {
	dev := &DummyDevice{AutoReady: true, SourceDuration: time.Minute}
	tp, store := newTestTransport(t, dev, 3)

	track, _ := store.CurrentTrack()
	tp.Load(track, false)
	waitFor(t, "state paused", func() bool { return tp.Status().State == StatePaused })

	if err := tp.Next(); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "the next track to load", func() bool { return dev.Source() == "blob://1" })
	time.Sleep(50 * time.Millisecond)
	if dev.Playing() {
		t.Fatal("a skip while paused must not start playback")
	}
}

func TestProgressEvents(t *testing.T) {
	dev := &DummyDevice{AutoReady: true, SourceDuration: time.Minute}
	tp, store := newTestTransport(t, dev, 3)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := tp.Events().Listen(ctx)

	track, _ := store.CurrentTrack()
	tp.Load(track, true)
	waitFor(t, "playback to start", dev.Playing)

	dev.AdvanceTime(15 * time.Second)

	// A zero progress event is emitted when the duration becomes known, skip
	// until the time advancement comes through.
	deadline := time.After(2 * time.Second)
	for {
		select {
		case event := <-events:
			if p, ok := event.(ProgressEvent); ok && p.Progress > 0 {
				if p.Progress != 0.25 {
					t.Fatalf("expected progress 0.25, got %v", p.Progress)
				}
				if p.Elapsed != 15*time.Second || p.Duration != time.Minute {
					t.Fatalf("unexpected progress event: %+v", p)
				}
				return
			}
		case <-deadline:
			t.Fatal("no progress event received")
		}
	}
}

func TestFormatDuration(t *testing.T) {
	for d, want := range map[time.Duration]string{
		0:                               "0:00",
		9 * time.Second:                 "0:09",
		61 * time.Second:                "1:01",
		10*time.Minute + 42*time.Second: "10:42",
		-time.Second:                    "0:00",
	} {
		if got := FormatDuration(d); got != want {
			t.Errorf("FormatDuration(%v) = %q, expected %q", d, got, want)
		}
	}
}
