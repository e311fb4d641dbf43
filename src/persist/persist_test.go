package persist

import (
	"fmt"
	"path/filepath"
	"reflect"
	"testing"

	bolt "go.etcd.io/bbolt"

	"yplayer/src/playlist"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func syntheticTracks(n int) []playlist.Track {
	tracks := make([]playlist.Track, n)
	for i := range tracks {
		tracks[i] = playlist.Track{
			URI:    fmt.Sprintf("http://localhost/data/blob/%d.mp3", i),
			Title:  fmt.Sprintf("Track %d", i),
			Artist: "Local file",
			ArtURI: "http://localhost/art.png",
			Lyrics: playlist.NoLyrics,
		}
	}
	return tracks
}

func TestRoundTrip(t *testing.T) {
	for _, n := range []int{0, 1, 2, 100} {
		t.Run(fmt.Sprintf("%d entries", n), func(t *testing.T) {
			store := openTestStore(t)

			in := syntheticTracks(n)
			index := n / 2
			if err := store.Save(in, index); err != nil {
				t.Fatal(err)
			}

			out, outIndex, ok := store.Load()
			if !ok {
				t.Fatal("expected a snapshot to be present")
			}
			if outIndex != index {
				t.Fatalf("expected index %d, got %d", index, outIndex)
			}
			if len(out) != n {
				t.Fatalf("expected %d entries, got %d", n, len(out))
			}
			if n > 0 && !reflect.DeepEqual(in, out) {
				t.Fatalf("entries do not survive a round trip:\nin:  %v\nout: %v", in, out)
			}
		})
	}
}

func TestLastWriteWins(t *testing.T) {
	store := openTestStore(t)

	if err := store.Save(syntheticTracks(5), 3); err != nil {
		t.Fatal(err)
	}
	if err := store.Save(syntheticTracks(2), 1); err != nil {
		t.Fatal(err)
	}

	tracks, index, ok := store.Load()
	if !ok {
		t.Fatal("expected a snapshot to be present")
	}
	if len(tracks) != 2 || index != 1 {
		t.Fatalf("expected the second snapshot, got len=%d index=%d", len(tracks), index)
	}
}

func TestLoadAbsent(t *testing.T) {
	store := openTestStore(t)

	if _, _, ok := store.Load(); ok {
		t.Fatal("a fresh database should not hold a snapshot")
	}
}

func TestLoadMalformedFailsSoft(t *testing.T) {
	store := openTestStore(t)

	err := store.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketPlaylist))
		if err := b.Put(keyTracks, []byte("{not json")); err != nil {
			return err
		}
		return b.Put(keyIndex, []byte("2"))
	})
	if err != nil {
		t.Fatal(err)
	}

	if _, _, ok := store.Load(); ok {
		t.Fatal("a malformed snapshot must read as absent")
	}
}

func TestLoadMalformedIndex(t *testing.T) {
	store := openTestStore(t)

	if err := store.Save(syntheticTracks(3), 1); err != nil {
		t.Fatal(err)
	}
	err := store.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketPlaylist)).Put(keyIndex, []byte("over 9000"))
	})
	if err != nil {
		t.Fatal(err)
	}

	tracks, index, ok := store.Load()
	if !ok {
		t.Fatal("the entries themselves are fine and should load")
	}
	if len(tracks) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(tracks))
	}
	if index != -1 {
		t.Fatalf("a malformed index should read as -1, got %d", index)
	}
}
