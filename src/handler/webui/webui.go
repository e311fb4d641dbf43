// Package webui carries the static assets of the browser frontend.
package webui

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
)

//go:embed page.html app.js style.css
var files embed.FS

// Files returns the frontend assets. Debug builds read them from the working
// tree so that edits show up without recompiling.
func Files(build string) fs.FS {
	if build == "release" {
		return files
	}
	if build == "debug" {
		return os.DirFS("src/handler/webui")
	}
	panic(fmt.Errorf("invalid build: %q", build))
}
