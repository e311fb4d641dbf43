// Package jukebox ties the playlist, the transport, persistence and file
// ingestion together into the single facade the HTTP handlers talk to.
package jukebox

import (
	"context"

	log "github.com/sirupsen/logrus"

	"yplayer/src/ingest"
	"yplayer/src/persist"
	"yplayer/src/player"
	"yplayer/src/playlist"
	"yplayer/src/util"
)

type Jukebox struct {
	store     *playlist.Store
	transport *player.Transport
	db        *persist.Store
	pipeline  *ingest.Pipeline
}

func NewJukebox(store *playlist.Store, transport *player.Transport, db *persist.Store, pipeline *ingest.Pipeline) *Jukebox {
	return &Jukebox{
		store:     store,
		transport: transport,
		db:        db,
		pipeline:  pipeline,
	}
}

// Hydrate restores the playlist and selection from the last persisted
// snapshot. The selected track is loaded into the transport without starting
// playback. A stored index that no longer fits the entry list is discarded
// while the entries themselves are kept.
func (jb *Jukebox) Hydrate() {
	tracks, index, ok := jb.db.Load()
	if !ok {
		return
	}
	jb.store.LoadAll(tracks)
	if len(tracks) == 0 {
		return
	}

	if err := jb.store.SetCurrent(index); err != nil {
		log.Warnf("Discarding stored track index %d: %v", index, err)
		return
	}
	track, _ := jb.store.CurrentTrack()
	jb.transport.Load(track, false)
	log.Infof("Restored %d track(s), resuming at %q", len(tracks), track.Title)
}

// Run keeps the persisted snapshot in sync with the playlist until the
// context is canceled. Every structural mutation triggers a save.
func (jb *Jukebox) Run(ctx context.Context) {
	events := jb.store.Events().Listen(ctx)
	for event := range events {
		switch event.(type) {
		case playlist.ListEvent, playlist.CurrentEvent:
			// The snapshot is read at save time, so a backlog of stale
			// events at most causes redundant writes.
			if err := jb.db.Save(jb.store.Tracks(), jb.store.Current()); err != nil {
				log.Errorf("Could not persist playlist: %v", err)
			}
		}
	}
}

func (jb *Jukebox) Tracks(ctx context.Context) []playlist.Track {
	return jb.store.Tracks()
}

func (jb *Jukebox) TrackAt(ctx context.Context, index int) (playlist.Track, error) {
	return jb.store.TrackAt(index)
}

func (jb *Jukebox) Status(ctx context.Context) player.Status {
	return jb.transport.Status()
}

// SetCurrent selects the track at the specified position and starts playing
// it. Selection by the user counts as a gesture, so playback is requested
// rather than parked behind a readiness latch.
func (jb *Jukebox) SetCurrent(ctx context.Context, index int) error {
	if err := jb.store.SetCurrent(index); err != nil {
		return err
	}
	track, err := jb.store.CurrentTrack()
	if err != nil {
		return err
	}
	jb.transport.Load(track, true)
	return nil
}

func (jb *Jukebox) Next(ctx context.Context) error {
	return jb.transport.Next()
}

func (jb *Jukebox) Prev(ctx context.Context) error {
	return jb.transport.Prev()
}

func (jb *Jukebox) Play(ctx context.Context) error {
	return jb.transport.Play()
}

func (jb *Jukebox) Pause(ctx context.Context) {
	jb.transport.Pause()
}

func (jb *Jukebox) SeekTo(ctx context.Context, fraction float64) {
	jb.transport.SeekTo(fraction)
}

func (jb *Jukebox) SetVolume(ctx context.Context, vol float64) {
	jb.transport.SetVolume(vol)
}

func (jb *Jukebox) ToggleLoop(ctx context.Context) playlist.LoopMode {
	return jb.transport.ToggleLoop()
}

func (jb *Jukebox) SetLoopMode(ctx context.Context, mode playlist.LoopMode) error {
	return jb.transport.SetLoopMode(mode)
}

// Append adds a track to the end of the playlist and returns its position.
func (jb *Jukebox) Append(ctx context.Context, track playlist.Track) int {
	return jb.store.Append(track)
}

func (jb *Jukebox) Remove(ctx context.Context, positions ...int) {
	jb.store.Remove(positions...)
}

func (jb *Jukebox) Move(ctx context.Context, from, to int) error {
	return jb.store.Move(from, to)
}

func (jb *Jukebox) Ingest(ctx context.Context, files []ingest.File) []playlist.Track {
	return jb.pipeline.Ingest(files)
}

// PlaylistEvents exposes the playlist's event stream for state push.
func (jb *Jukebox) PlaylistEvents() *util.Emitter {
	return jb.store.Events()
}

// TransportEvents exposes the transport's event stream for state push.
func (jb *Jukebox) TransportEvents() *util.Emitter {
	return jb.transport.Events()
}
