package playlist

import (
	"fmt"
	"path"
)

// NoLyrics is the value of Track.Lyrics for tracks that have no lyrics
// associated with them.
const NoLyrics = "No lyrics available for this song."

// Track holds all information associated with a single playable item.
//
// Tracks are value types, they are immutable once created and carry no
// identity beyond their position in a playlist. Duplicates are permitted.
type Track struct {
	URI    string `json:"uri"`
	Title  string `json:"title,omitempty"`
	Artist string `json:"artist,omitempty"`
	ArtURI string `json:"art,omitempty"`
	Lyrics string `json:"lyrics,omitempty"`
}

func (track Track) String() string {
	return fmt.Sprintf("%s - %s", track.Artist, track.Title)
}

// TitleFromFilename derives a display title from a filename by stripping the
// trailing extension.
func TitleFromFilename(name string) string {
	return name[:len(name)-len(path.Ext(name))]
}
