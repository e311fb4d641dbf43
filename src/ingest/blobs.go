package ingest

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type blob struct {
	name string
	kind string
	data []byte
}

// BlobServer holds the bytes of ingested files in memory and serves them
// over HTTP so that output devices can fetch them by locator.
//
// Locators are only valid for the lifetime of the process. A locator that
// ends up in a persisted playlist snapshot dangles after a restart, this is
// a known limitation inherited from the system's original design.
type BlobServer struct {
	urlRoot string

	lock  sync.RWMutex
	blobs map[string]blob
}

// NewBlobServer creates a blob server whose locators are minted under the
// specified absolute URL root.
func NewBlobServer(urlRoot string) *BlobServer {
	return &BlobServer{
		urlRoot: urlRoot,
		blobs:   map[string]blob{},
	}
}

// Add stores the contents of the reader and returns a locator for it. The
// blob id keeps the original file extension so that consumers can select a
// decoder from the locator alone.
func (sv *BlobServer) Add(r io.Reader, name, kind string) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("could not buffer %q: %v", name, err)
	}

	id := uuid.New().String() + strings.ToLower(path.Ext(name))
	sv.lock.Lock()
	sv.blobs[id] = blob{name: name, kind: kind, data: data}
	sv.lock.Unlock()

	return fmt.Sprintf("%sdata/blob/%s", sv.urlRoot, id), nil
}

func (sv *BlobServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sv.lock.RLock()
	b, ok := sv.blobs[id]
	sv.lock.RUnlock()

	if !ok {
		http.NotFound(w, r)
		return
	}

	contentType := b.kind
	if contentType == "" {
		contentType = mime.TypeByExtension(path.Ext(b.name))
	}
	if contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}
	http.ServeContent(w, r, b.name, time.Time{}, bytes.NewReader(b.data))
}

// Len returns the number of stored blobs.
func (sv *BlobServer) Len() int {
	sv.lock.RLock()
	defer sv.lock.RUnlock()
	return len(sv.blobs)
}
