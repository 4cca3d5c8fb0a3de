package handlers

import (
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path"
	"path/filepath"
)

// Static serves the frontend bundle. Unknown paths get index.html so the
// frontend can route on its own.
func (h *Handlers) Static(dir string) http.HandlerFunc {
	fileServer := http.FileServer(http.Dir(dir))
	index := filepath.Join(dir, "index.html")

	return func(w http.ResponseWriter, r *http.Request) {
		name := filepath.Join(dir, filepath.FromSlash(path.Clean("/"+r.URL.Path)))
		if _, err := os.Stat(name); errors.Is(err, fs.ErrNotExist) {
			http.ServeFile(w, r, index)
			return
		}

		fileServer.ServeHTTP(w, r)
	}
}
