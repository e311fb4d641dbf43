package ingest

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"yplayer/src/player"
	"yplayer/src/playlist"
)

func newTestPipeline() (*Pipeline, *BlobServer, *playlist.Store, *player.DummyDevice) {
	blobs := NewBlobServer("http://localhost/")
	store := playlist.NewStore()
	dev := &player.DummyDevice{}
	transport := player.NewTransport(dev, store)
	return NewPipeline(blobs, store, transport), blobs, store, dev
}

func TestIngestAudioFile(t *testing.T) {
	pipeline, blobs, store, dev := newTestPipeline()

	accepted := pipeline.Ingest([]File{
		{Name: "track.mp3", Kind: "audio/mpeg", Data: strings.NewReader("beep boop")},
	})

	if len(accepted) != 1 || store.Len() != 1 {
		t.Fatalf("expected 1 track, got accepted=%d stored=%d", len(accepted), store.Len())
	}
	track := accepted[0]
	if track.Title != "track" {
		t.Fatalf("expected title %q, got %q", "track", track.Title)
	}
	if track.Artist != LocalArtist {
		t.Fatalf("expected artist %q, got %q", LocalArtist, track.Artist)
	}
	if track.Lyrics != playlist.NoLyrics {
		t.Fatalf("expected the sentinel lyrics value, got %q", track.Lyrics)
	}
	if !strings.HasPrefix(track.URI, "http://localhost/data/blob/") || !strings.HasSuffix(track.URI, ".mp3") {
		t.Fatalf("unexpected locator: %q", track.URI)
	}
	if blobs.Len() != 1 {
		t.Fatalf("expected 1 stored blob, got %d", blobs.Len())
	}

	// The first accepted file becomes current with playback requested.
	if store.Current() != 0 {
		t.Fatalf("expected the track to become current, got %d", store.Current())
	}
	if dev.Source() != track.URI {
		t.Fatalf("expected the track to be loaded, device source is %q", dev.Source())
	}
}

func TestIngestDropsOtherKinds(t *testing.T) {
	pipeline, blobs, store, dev := newTestPipeline()

	accepted := pipeline.Ingest([]File{
		{Name: "photo.png", Kind: "image/png", Data: strings.NewReader("pixels")},
	})

	if len(accepted) != 0 || store.Len() != 0 || blobs.Len() != 0 {
		t.Fatalf("a non-audio file slipped through: accepted=%d stored=%d blobs=%d",
			len(accepted), store.Len(), blobs.Len())
	}
	if dev.Source() != "" {
		t.Fatalf("nothing should have been loaded, device source is %q", dev.Source())
	}
}

func TestIngestBatch(t *testing.T) {
	pipeline, _, store, dev := newTestPipeline()

	accepted := pipeline.Ingest([]File{
		{Name: "one.mp3", Kind: "audio/mpeg", Data: strings.NewReader("1")},
		{Name: "photo.png", Kind: "image/png", Data: strings.NewReader("2")},
		{Name: "two.ogg", Kind: "audio/ogg", Data: strings.NewReader("3")},
	})

	if len(accepted) != 2 || store.Len() != 2 {
		t.Fatalf("expected 2 tracks, got accepted=%d stored=%d", len(accepted), store.Len())
	}
	// Only the first accepted file of the batch starts playing.
	if store.Current() != 0 {
		t.Fatalf("expected track 0 to be current, got %d", store.Current())
	}
	if dev.Source() != accepted[0].URI {
		t.Fatalf("expected %q to be loaded, got %q", accepted[0].URI, dev.Source())
	}
}

func TestBlobServer(t *testing.T) {
	blobs := NewBlobServer("http://example.invalid/")
	locator, err := blobs.Add(strings.NewReader("beep boop"), "track.mp3", "audio/mpeg")
	if err != nil {
		t.Fatal(err)
	}
	id := strings.TrimPrefix(locator, "http://example.invalid/data/blob/")

	r := chi.NewRouter()
	r.Get("/data/blob/{id}", blobs.ServeHTTP)
	server := httptest.NewServer(r)
	defer server.Close()

	res, err := http.Get(server.URL + "/data/blob/" + id)
	if err != nil {
		t.Fatal(err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: %v", res.Status)
	}
	if ct := res.Header.Get("Content-Type"); ct != "audio/mpeg" {
		t.Fatalf("unexpected content type: %q", ct)
	}
	body, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatal(err)
	}
	if string(body) != "beep boop" {
		t.Fatalf("unexpected body: %q", body)
	}

	res2, err := http.Get(server.URL + "/data/blob/no-such-blob.mp3")
	if err != nil {
		t.Fatal(err)
	}
	res2.Body.Close()
	if res2.StatusCode != http.StatusNotFound {
		t.Fatalf("expected a 404, got %v", res2.Status)
	}
}
