// Package ingest converts user supplied files into playlist tracks.
package ingest

import (
	"io"
	"strings"

	log "github.com/sirupsen/logrus"

	"yplayer/src/player"
	"yplayer/src/playlist"
)

// LocalArtist is the artist label assigned to ingested files, which carry no
// usable metadata of their own.
const LocalArtist = "Local file"

const placeholderArt = "https://placehold.co/150x150/E1468C/ffffff?text=Local"

// A File is a user supplied blob along with its declared media kind.
type File struct {
	Name string
	Kind string
	Data io.Reader
}

// Pipeline appends uploaded audio files to the playlist.
type Pipeline struct {
	blobs     *BlobServer
	store     *playlist.Store
	transport *player.Transport
}

func NewPipeline(blobs *BlobServer, store *playlist.Store, transport *player.Transport) *Pipeline {
	return &Pipeline{
		blobs:     blobs,
		store:     store,
		transport: transport,
	}
}

// Ingest filters the specified files to those whose declared media kind is
// audio, appends a track for each and returns the accepted tracks. Files of
// any other kind are dropped without raising an error.
//
// The first accepted file of a batch becomes the current track and starts
// playing.
func (p *Pipeline) Ingest(files []File) []playlist.Track {
	var accepted []playlist.Track
	for _, file := range files {
		if !strings.HasPrefix(file.Kind, "audio") {
			log.Debugf("Skipping %q: unsupported kind %q", file.Name, file.Kind)
			continue
		}

		uri, err := p.blobs.Add(file.Data, file.Name, file.Kind)
		if err != nil {
			log.Warnf("Could not ingest %q: %v", file.Name, err)
			continue
		}

		track := playlist.Track{
			URI:    uri,
			Title:  playlist.TitleFromFilename(file.Name),
			Artist: LocalArtist,
			ArtURI: placeholderArt,
			Lyrics: playlist.NoLyrics,
		}
		index := p.store.Append(track)

		if len(accepted) == 0 {
			if err := p.store.SetCurrent(index); err != nil {
				log.Warnf("Could not select ingested track: %v", err)
			} else {
				p.transport.Load(track, true)
			}
		}
		accepted = append(accepted, track)
	}
	return accepted
}
