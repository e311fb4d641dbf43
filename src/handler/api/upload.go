package api

import (
	"encoding/json"
	"net/http"

	"yplayer/src/ingest"
)

// Uploads larger than this are buffered through temporary files.
const uploadMemoryLimit = 32 << 20

// upload accepts a multipart form with one or more files and feeds them to
// the ingest pipeline. Files of a non-audio kind are silently dropped, the
// response tells the client how many tracks were actually added.
func (api *API) upload(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	if err := r.ParseMultipartForm(uploadMemoryLimit); err != nil {
		WriteError(w, r, err)
		return
	}
	defer r.MultipartForm.RemoveAll()

	var files []ingest.File
	var open []interface{ Close() error }
	defer func() {
		for _, fd := range open {
			fd.Close()
		}
	}()
	for _, headers := range r.MultipartForm.File {
		for _, header := range headers {
			fd, err := header.Open()
			if err != nil {
				WriteError(w, r, err)
				return
			}
			open = append(open, fd)
			files = append(files, ingest.File{
				Name: header.Filename,
				Kind: header.Header.Get("Content-Type"),
				Data: fd,
			})
		}
	}

	accepted := api.jukebox.Ingest(r.Context(), files)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"added":  len(accepted),
		"tracks": accepted,
	})
}
