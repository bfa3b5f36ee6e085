// Package web serves the single-page frontend next to the API.
package web

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path"
	"strings"

	webembed "github.com/erazemk/turtlealbum/web"
)

const indexFile = "index.html"

// SPA serves files from a frontend build and falls back to index.html for
// every other path, so client-side routes survive a reload.
type SPA struct {
	fsys fs.FS
}

// NewSPA serves dir, or the built-in landing page when dir is empty.
func NewSPA(dir string) (*SPA, error) {
	if dir == "" {
		return &SPA{fsys: webembed.StaticFS()}, nil
	}

	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("frontend dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("frontend dir %s is not a directory", dir)
	}
	fsys := os.DirFS(dir)
	if _, err := fs.Stat(fsys, indexFile); err != nil {
		return nil, fmt.Errorf("frontend dir %s has no %s: %w", dir, indexFile, err)
	}
	return &SPA{fsys: fsys}, nil
}

func (s *SPA) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	name := strings.TrimPrefix(path.Clean("/"+r.URL.Path), "/")
	if name != "" && name != indexFile {
		info, err := fs.Stat(s.fsys, name)
		if err == nil && !info.IsDir() {
			// Hashed build assets never change under the same name.
			if strings.HasPrefix(name, "assets/") {
				w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
			}
			http.ServeFileFS(w, r, s.fsys, name)
			return
		}
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
	}

	w.Header().Set("Cache-Control", "no-cache")
	s.serveIndex(w, r)
}

// serveIndex writes index.html directly; http.ServeFileFS would redirect
// requests for index.html to the directory.
func (s *SPA) serveIndex(w http.ResponseWriter, r *http.Request) {
	data, err := fs.ReadFile(s.fsys, indexFile)
	if err != nil {
		http.Error(w, "frontend not available", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	_, _ = w.Write(data)
}
