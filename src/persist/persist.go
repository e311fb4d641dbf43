package persist

import (
	"encoding/json"
	"strconv"

	log "github.com/sirupsen/logrus"
	bolt "go.etcd.io/bbolt"

	"yplayer/src/playlist"
)

const bucketPlaylist = "playlist"

var (
	keyTracks = []byte("tracks")
	keyIndex  = []byte("index")
)

// Store persists playlist snapshots to an embedded key-value database.
//
// A snapshot consists of two keyed records: a JSON encoded track list and
// the current track index as a decimal string. Every save overwrites the
// previous snapshot, there is no versioning or migration.
type Store struct {
	db *bolt.DB
}

// Open opens the database file, creating it and its bucket when absent.
func Open(file string) (*Store, error) {
	db, err := bolt.Open(file, 0o600, nil)
	if err != nil {
		return nil, err
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketPlaylist))
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (store *Store) Close() error {
	return store.db.Close()
}

// Save overwrites the stored snapshot with the specified track list and
// cursor. Last write wins.
func (store *Store) Save(tracks []playlist.Track, index int) error {
	data, err := json.Marshal(tracks)
	if err != nil {
		return err
	}

	return store.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketPlaylist))
		if err := b.Put(keyTracks, data); err != nil {
			return err
		}
		return b.Put(keyIndex, []byte(strconv.Itoa(index)))
	})
}

// Load retrieves the stored snapshot. A missing or malformed snapshot is not
// an error, it yields ok=false and the caller starts from an empty playlist.
func (store *Store) Load() (tracks []playlist.Track, index int, ok bool) {
	err := store.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketPlaylist))

		data := b.Get(keyTracks)
		if data == nil {
			return nil
		}
		if err := json.Unmarshal(data, &tracks); err != nil {
			log.Warnf("Ignoring malformed playlist snapshot: %v", err)
			tracks = nil
			return nil
		}
		ok = true

		index = -1
		if raw := b.Get(keyIndex); raw != nil {
			i, err := strconv.Atoi(string(raw))
			if err != nil {
				log.Warnf("Ignoring malformed playlist index %q: %v", raw, err)
				return nil
			}
			index = i
		}
		return nil
	})
	if err != nil {
		log.Warnf("Could not read playlist snapshot: %v", err)
		return nil, -1, false
	}
	if !ok {
		return nil, -1, false
	}
	return tracks, index, true
}
