package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"yplayer/src/insight"
	"yplayer/src/jukebox"
	"yplayer/src/player"
	"yplayer/src/playlist"
	"yplayer/src/util/eventsource"
)

// API contains the state that is accessible over the yplayer REST API.
type API struct {
	jukebox *jukebox.Jukebox
	insight *insight.Client
}

func jsonPlaylist(tracks []playlist.Track, current int) map[string]interface{} {
	return map[string]interface{}{
		"current": current,
		"tracks":  tracks,
	}
}

func (api *API) playlistContents(w http.ResponseWriter, r *http.Request) {
	status := api.jukebox.Status(r.Context())
	tracks := api.jukebox.Tracks(r.Context())
	json.NewEncoder(w).Encode(jsonPlaylist(tracks, status.TrackIndex))
}

func (api *API) playlistAppend(w http.ResponseWriter, r *http.Request) {
	var data struct {
		Tracks []playlist.Track `json:"tracks"`
	}
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		WriteError(w, r, err)
		return
	}

	for _, track := range data.Tracks {
		if track.URI == "" {
			WriteError(w, r, fmt.Errorf("track without a source locator"))
			return
		}
		api.jukebox.Append(r.Context(), track)
	}
	w.Write([]byte("{}"))
}

func (api *API) playlistMove(w http.ResponseWriter, r *http.Request) {
	var data struct {
		From int `json:"from"`
		To   int `json:"to"`
	}
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		WriteError(w, r, err)
		return
	}

	if err := api.jukebox.Move(r.Context(), data.From, data.To); err != nil {
		WriteError(w, r, err)
		return
	}
	w.Write([]byte("{}"))
}

func (api *API) playlistRemove(w http.ResponseWriter, r *http.Request) {
	var data struct {
		Positions []int `json:"positions"`
	}
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		WriteError(w, r, err)
		return
	}

	api.jukebox.Remove(r.Context(), data.Positions...)
	w.Write([]byte("{}"))
}

func (api *API) setCurrent(w http.ResponseWriter, r *http.Request) {
	var data struct {
		Current int `json:"current"`
	}
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		WriteError(w, r, err)
		return
	}

	if err := api.jukebox.SetCurrent(r.Context(), data.Current); err != nil {
		WriteError(w, r, err)
		return
	}
	w.Write([]byte("{}"))
}

func (api *API) next(w http.ResponseWriter, r *http.Request) {
	if err := api.jukebox.Next(r.Context()); err != nil {
		WriteError(w, r, err)
		return
	}
	w.Write([]byte("{}"))
}

func (api *API) prev(w http.ResponseWriter, r *http.Request) {
	if err := api.jukebox.Prev(r.Context()); err != nil {
		WriteError(w, r, err)
		return
	}
	w.Write([]byte("{}"))
}

func (api *API) getPlaystate(w http.ResponseWriter, r *http.Request) {
	status := api.jukebox.Status(r.Context())
	json.NewEncoder(w).Encode(map[string]interface{}{
		"playstate": status.State.Name(),
	})
}

func (api *API) setPlaystate(w http.ResponseWriter, r *http.Request) {
	var data struct {
		State string `json:"playstate"`
	}
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		WriteError(w, r, err)
		return
	}

	switch data.State {
	case "playing":
		if err := api.jukebox.Play(r.Context()); err != nil {
			WriteError(w, r, err)
			return
		}
	case "paused":
		api.jukebox.Pause(r.Context())
	default:
		WriteError(w, r, fmt.Errorf("unknown playstate %q", data.State))
		return
	}
	w.Write([]byte("{}"))
}

func (api *API) getTime(w http.ResponseWriter, r *http.Request) {
	status := api.jukebox.Status(r.Context())
	json.NewEncoder(w).Encode(map[string]interface{}{
		"time":     int(status.Elapsed / time.Second),
		"duration": int(status.Duration / time.Second),
	})
}

func (api *API) setTime(w http.ResponseWriter, r *http.Request) {
	var data struct {
		Time int `json:"time"`
	}
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		WriteError(w, r, err)
		return
	}

	status := api.jukebox.Status(r.Context())
	if status.Duration <= 0 {
		WriteError(w, r, fmt.Errorf("the duration of the current track is not known"))
		return
	}
	api.jukebox.SeekTo(r.Context(), float64(data.Time)/status.Duration.Seconds())
	w.Write([]byte("{}"))
}

func (api *API) getVolume(w http.ResponseWriter, r *http.Request) {
	status := api.jukebox.Status(r.Context())
	json.NewEncoder(w).Encode(map[string]interface{}{
		"volume": status.Volume,
	})
}

func (api *API) setVolume(w http.ResponseWriter, r *http.Request) {
	var data struct {
		Volume float64 `json:"volume"`
	}
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		WriteError(w, r, err)
		return
	}

	api.jukebox.SetVolume(r.Context(), data.Volume)
	w.Write([]byte("{}"))
}

func (api *API) getLoop(w http.ResponseWriter, r *http.Request) {
	status := api.jukebox.Status(r.Context())
	json.NewEncoder(w).Encode(map[string]interface{}{
		"mode": status.LoopMode.Name(),
	})
}

// setLoop assigns a loop mode by name. A request without a mode cycles to
// the next one, mirroring the behavior of a loop button.
func (api *API) setLoop(w http.ResponseWriter, r *http.Request) {
	var data struct {
		Mode *string `json:"mode"`
	}
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		WriteError(w, r, err)
		return
	}

	var mode playlist.LoopMode
	if data.Mode == nil {
		mode = api.jukebox.ToggleLoop(r.Context())
	} else {
		mode = playlist.NamedLoopMode(*data.Mode)
		if err := api.jukebox.SetLoopMode(r.Context(), mode); err != nil {
			WriteError(w, r, err)
			return
		}
	}
	json.NewEncoder(w).Encode(map[string]interface{}{
		"mode": mode.Name(),
	})
}

func (api *API) generateInsight(w http.ResponseWriter, r *http.Request) {
	var data struct {
		Prompt string `json:"prompt"`
	}
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		WriteError(w, r, err)
		return
	}

	text, err := api.insight.Generate(r.Context(), data.Prompt)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	json.NewEncoder(w).Encode(map[string]interface{}{
		"text": text,
	})
}

func (api *API) events(w http.ResponseWriter, r *http.Request) {
	es, err := eventsource.Begin(w, r)
	if err != nil {
		log.Errorf("%v", err)
		return
	}

	playlistEvents := api.jukebox.PlaylistEvents().Listen(r.Context())
	transportEvents := api.jukebox.TransportEvents().Listen(r.Context())

	sendPlaylist := func() {
		status := api.jukebox.Status(r.Context())
		tracks := api.jukebox.Tracks(r.Context())
		es.EventJSON("playlist", jsonPlaylist(tracks, status.TrackIndex))
	}

	// New listeners get the full state pushed up front so that they do not
	// have to wait for something to change.
	status := api.jukebox.Status(r.Context())
	sendPlaylist()
	es.EventJSON("state", map[string]interface{}{"state": status.State.Name()})
	es.EventJSON("loop", map[string]interface{}{"mode": status.LoopMode.Name()})
	es.EventJSON("volume", map[string]interface{}{"volume": status.Volume})

	keepalive := time.NewTicker(30 * time.Second)
	defer keepalive.Stop()

	for {
		var event interface{}
		select {
		case event = <-playlistEvents:
		case event = <-transportEvents:
		case <-keepalive.C:
			es.Ping()
			continue
		case <-r.Context().Done():
			return
		}

		switch t := event.(type) {
		case playlist.ListEvent, playlist.CurrentEvent:
			sendPlaylist()
		case player.PlayStateEvent:
			es.EventJSON("state", map[string]interface{}{"state": t.State.Name()})
		case player.ProgressEvent:
			es.EventJSON("time", map[string]interface{}{
				"progress": t.Progress,
				"elapsed":  player.FormatDuration(t.Elapsed),
				"duration": player.FormatDuration(t.Duration),
			})
		case player.VolumeEvent:
			es.EventJSON("volume", map[string]interface{}{"volume": t.Volume})
		case player.LoopEvent:
			es.EventJSON("loop", map[string]interface{}{"mode": t.Mode.Name()})
		default:
			log.Debugf("Unmapped event %#v", event)
		}
	}
}
