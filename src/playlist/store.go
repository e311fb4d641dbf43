package playlist

import (
	"errors"
	"fmt"
	"sync"

	"yplayer/src/util"
)

var (
	// ErrOutOfRange is returned when an index does not point inside the
	// playlist. It should not occur under correct command sequencing and
	// exists as a defensive measure.
	ErrOutOfRange = errors.New("playlist index out of range")

	// ErrEmptyPlaylist is returned from navigation on a zero length playlist.
	ErrEmptyPlaylist = errors.New("the playlist is empty")
)

// A LoopMode governs what happens when the current track finishes playing.
type LoopMode int

const (
	LoopInvalid LoopMode = iota - 1

	// LoopNone halts playback once the final track has finished.
	LoopNone
	// LoopSong repeats the current track indefinitely.
	LoopSong
	// LoopPlaylist restarts from the first track after the final one.
	LoopPlaylist
)

// NamedLoopMode maps a mode name to its LoopMode, LoopInvalid if the name is
// not recognized.
func NamedLoopMode(str string) LoopMode {
	switch str {
	case "none":
		return LoopNone
	case "song":
		return LoopSong
	case "playlist":
		return LoopPlaylist
	default:
		return LoopInvalid
	}
}

func (mode LoopMode) Name() string {
	switch mode {
	case LoopNone:
		return "none"
	case LoopSong:
		return "song"
	case LoopPlaylist:
		return "playlist"
	default:
		return "invalid"
	}
}

// Cycle returns the mode that follows this one when the loop button is hit.
func (mode LoopMode) Cycle() LoopMode {
	switch mode {
	case LoopNone:
		return LoopSong
	case LoopSong:
		return LoopPlaylist
	default:
		return LoopNone
	}
}

// ListEvent is emitted after the set of tracks in the store was changed.
type ListEvent struct{}

// CurrentEvent is emitted after the current track cursor was reassigned.
type CurrentEvent struct {
	Index int
}

// An Advance is the outcome of moving the cursor to the next track.
type Advance struct {
	// Index of the newly selected track.
	Index int
	// Stop indicates that the end of the playlist was reached without a loop
	// mode to wrap playback around. The cursor is parked at track 0 and
	// playback should halt.
	Stop bool
}

// Store owns the ordered track collection and the current track cursor.
//
// The cursor is always valid while the collection is non-empty and -1
// otherwise. All operations are safe for concurrent use.
type Store struct {
	util.Emitter

	lock    sync.Mutex
	tracks  []Track
	current int
}

func NewStore() *Store {
	return &Store{current: -1}
}

// LoadAll replaces the entire collection. The cursor is reset to the first
// track, or cleared if the new collection is empty. Used for startup
// hydration.
func (store *Store) LoadAll(tracks []Track) {
	store.lock.Lock()
	store.tracks = append([]Track(nil), tracks...)
	if len(store.tracks) > 0 {
		store.current = 0
	} else {
		store.current = -1
	}
	index := store.current
	store.lock.Unlock()

	store.Emit(ListEvent{})
	store.Emit(CurrentEvent{Index: index})
}

// Append adds a track to the end of the playlist and returns its index. The
// cursor is left unchanged unless the playlist was empty, in which case the
// new track becomes current.
func (store *Store) Append(track Track) int {
	store.lock.Lock()
	store.tracks = append(store.tracks, track)
	if store.current == -1 {
		store.current = 0
	}
	index := len(store.tracks) - 1
	store.lock.Unlock()

	store.Emit(ListEvent{})
	return index
}

// SetCurrent reassigns the cursor.
func (store *Store) SetCurrent(index int) error {
	store.lock.Lock()
	if index < 0 || index >= len(store.tracks) {
		store.lock.Unlock()
		return fmt.Errorf("%w: %d, len=%d", ErrOutOfRange, index, len(store.tracks))
	}
	store.current = index
	store.lock.Unlock()

	store.Emit(CurrentEvent{Index: index})
	return nil
}

// Next moves the cursor to the track after the current one.
//
// With LoopPlaylist the cursor wraps around to the first track. With LoopNone
// a wrap instead selects track 0 and signals Stop. LoopSong behaves like
// LoopPlaylist here, repeating a single track is handled by the transport
// before the playlist is consulted.
func (store *Store) Next(mode LoopMode) (Advance, error) {
	store.lock.Lock()
	if len(store.tracks) == 0 {
		store.lock.Unlock()
		return Advance{}, ErrEmptyPlaylist
	}

	next := (store.current + 1) % len(store.tracks)
	stop := mode == LoopNone && next == 0
	store.current = next
	store.lock.Unlock()

	store.Emit(CurrentEvent{Index: next})
	return Advance{Index: next, Stop: stop}, nil
}

// Prev moves the cursor to the track before the current one, wrapping to the
// final track from the first one. Unlike Next, Prev always wraps regardless
// of loop mode.
func (store *Store) Prev() (int, error) {
	store.lock.Lock()
	if len(store.tracks) == 0 {
		store.lock.Unlock()
		return -1, ErrEmptyPlaylist
	}

	prev := (store.current - 1 + len(store.tracks)) % len(store.tracks)
	store.current = prev
	store.lock.Unlock()

	store.Emit(CurrentEvent{Index: prev})
	return prev, nil
}

// Remove deletes the tracks at the specified positions. Positions that are
// out of range are ignored. The cursor is moved along with the track it
// points at, or clamped when that track itself is removed.
func (store *Store) Remove(positions ...int) {
	store.lock.Lock()
	removed := map[int]bool{}
	for _, pos := range positions {
		if pos >= 0 && pos < len(store.tracks) {
			removed[pos] = true
		}
	}
	if len(removed) == 0 {
		store.lock.Unlock()
		return
	}

	tracks := make([]Track, 0, len(store.tracks)-len(removed))
	current := store.current
	for i, track := range store.tracks {
		if removed[i] {
			if i < store.current {
				current--
			}
			continue
		}
		tracks = append(tracks, track)
	}
	if len(tracks) == 0 {
		current = -1
	} else if current < 0 {
		current = 0
	} else if current >= len(tracks) {
		current = len(tracks) - 1
	}
	store.tracks = tracks
	store.current = current
	store.lock.Unlock()

	store.Emit(ListEvent{})
	store.Emit(CurrentEvent{Index: current})
}

// Move relocates the track at position from to position to.
func (store *Store) Move(from, to int) error {
	store.lock.Lock()
	if from < 0 || from >= len(store.tracks) || to < 0 || to >= len(store.tracks) {
		store.lock.Unlock()
		return fmt.Errorf("%w: move %d -> %d, len=%d", ErrOutOfRange, from, to, len(store.tracks))
	}

	track := store.tracks[from]
	store.tracks = append(store.tracks[:from], store.tracks[from+1:]...)
	rest := append([]Track{track}, store.tracks[to:]...)
	store.tracks = append(store.tracks[:to], rest...)

	switch {
	case store.current == from:
		store.current = to
	case from < store.current && to >= store.current:
		store.current--
	case from > store.current && to <= store.current:
		store.current++
	}
	current := store.current
	store.lock.Unlock()

	store.Emit(ListEvent{})
	store.Emit(CurrentEvent{Index: current})
	return nil
}

// Tracks returns a snapshot of the collection.
func (store *Store) Tracks() []Track {
	store.lock.Lock()
	defer store.lock.Unlock()
	return append([]Track(nil), store.tracks...)
}

// Current returns the cursor position, -1 when the playlist is empty.
func (store *Store) Current() int {
	store.lock.Lock()
	defer store.lock.Unlock()
	return store.current
}

// CurrentTrack returns the track under the cursor.
func (store *Store) CurrentTrack() (Track, error) {
	store.lock.Lock()
	defer store.lock.Unlock()
	if store.current == -1 {
		return Track{}, ErrEmptyPlaylist
	}
	return store.tracks[store.current], nil
}

// TrackAt returns the track at the specified position.
func (store *Store) TrackAt(index int) (Track, error) {
	store.lock.Lock()
	defer store.lock.Unlock()
	if index < 0 || index >= len(store.tracks) {
		return Track{}, fmt.Errorf("%w: %d, len=%d", ErrOutOfRange, index, len(store.tracks))
	}
	return store.tracks[index], nil
}

func (store *Store) Len() int {
	store.lock.Lock()
	defer store.lock.Unlock()
	return len(store.tracks)
}
