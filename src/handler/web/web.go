// Package web serves the browser frontend and mounts the REST API.
package web

import (
	"bytes"
	"fmt"
	"io/fs"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"
	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/html"
	"github.com/tdewolff/minify/v2/js"

	"yplayer/src/handler/api"
	"yplayer/src/handler/webui"
	"yplayer/src/ingest"
	"yplayer/src/insight"
	"yplayer/src/jukebox"
	"yplayer/src/util"
)

var startTime = time.Now()

var assetTypes = map[string]string{
	"page.html": "text/html",
	"app.js":    "application/javascript",
	"style.css": "text/css",
}

type webUI struct {
	build  string
	assets fs.FS
	// Minified asset bytes, keyed by filename. Nil for debug builds, which
	// read assets from the working tree on every request.
	minified map[string][]byte
}

func New(build string, jukebox *jukebox.Jukebox, blobs *ingest.BlobServer, insight *insight.Client) chi.Router {
	web := webUI{
		build:  build,
		assets: webui.Files(build),
	}
	if build == "release" {
		web.minified = minifyAssets(web.assets)
	}

	service := chi.NewRouter()
	service.Use(util.LogHandler)
	service.Use(middleware.Compress(5))

	service.Get("/", web.assetHandler("page.html"))
	service.Get("/app.js", web.assetHandler("app.js"))
	service.Get("/style.css", web.assetHandler("style.css"))
	service.Route("/data", func(r chi.Router) {
		api.InitRouter(r, jukebox, blobs, insight)
	})

	return service
}

// minifyAssets shrinks the embedded frontend assets once at startup so that
// requests serve from memory.
func minifyAssets(assets fs.FS) map[string][]byte {
	m := minify.New()
	m.AddFunc("text/html", html.Minify)
	m.AddFunc("text/css", css.Minify)
	m.AddFunc("application/javascript", js.Minify)

	minified := map[string][]byte{}
	for name, contentType := range assetTypes {
		data, err := fs.ReadFile(assets, name)
		if err != nil {
			panic(fmt.Errorf("missing embedded asset %q: %v", name, err))
		}
		min, err := m.Bytes(contentType, data)
		if err != nil {
			log.Warnf("Could not minify %q: %v", name, err)
			min = data
		}
		minified[name] = min
	}
	return minified
}

func (web *webUI) assetHandler(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", assetTypes[name])

		if web.minified != nil {
			http.ServeContent(w, r, name, startTime, bytes.NewReader(web.minified[name]))
			return
		}

		data, err := fs.ReadFile(web.assets, name)
		if err != nil {
			log.Errorf("Could not serve %q: %v", name, err)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		http.ServeContent(w, r, name, time.Now(), bytes.NewReader(data))
	}
}
