package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"

	"yplayer/src/ingest"
	"yplayer/src/insight"
	"yplayer/src/jukebox"
)

// InitRouter attaches all API routes to the specified router.
func InitRouter(r chi.Router, jukebox *jukebox.Jukebox, blobs *ingest.BlobServer, insight *insight.Client) {
	api := API{jukebox: jukebox, insight: insight}
	r.Group(func(r chi.Router) {
		r.Use(jsonCtx)
		r.Route("/playlist", func(r chi.Router) {
			r.Get("/", api.playlistContents)
			r.Put("/", api.playlistAppend)
			r.Patch("/", api.playlistMove)
			r.Delete("/", api.playlistRemove)
		})
		r.Post("/current", api.setCurrent)
		r.Post("/next", api.next)
		r.Post("/prev", api.prev)
		r.Get("/playstate", api.getPlaystate)
		r.Post("/playstate", api.setPlaystate)
		r.Get("/time", api.getTime)
		r.Post("/time", api.setTime)
		r.Get("/volume", api.getVolume)
		r.Post("/volume", api.setVolume)
		r.Get("/loop", api.getLoop)
		r.Post("/loop", api.setLoop)
		r.Post("/upload", api.upload)
		r.Post("/insight", api.generateInsight)
	})
	r.Get("/events", api.events)
	r.Get("/blob/{id}", blobs.ServeHTTP)
}

// WriteError writes an error to the client or an empty object if err is nil.
//
// An attempt is made to tune the response format to the requestor.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	log.Errorf("Error serving %s: %v", r.RemoteAddr, err)
	w.WriteHeader(http.StatusBadRequest)

	if r.Header.Get("X-Requested-With") == "" {
		w.Write([]byte(err.Error()))
		return
	}

	data, _ := json.Marshal(err)
	if data == nil {
		data = []byte("{}")
	}
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error": err.Error(),
		"data":  (*json.RawMessage)(&data),
	})
}

func jsonCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}
