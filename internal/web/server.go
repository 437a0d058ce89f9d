// Package web serves the recruiter dashboard's static build.
package web

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

type Server struct {
	Dir string
}

// Handler serves files from Dir. Unknown paths fall back to index.html so
// client-side routes survive a page reload.
func (s *Server) Handler() http.Handler {
	fs := http.FileServer(http.Dir(s.Dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")

		path := filepath.Join(s.Dir, filepath.Clean(strings.TrimPrefix(r.URL.Path, "/")))
		if _, err := os.Stat(path); os.IsNotExist(err) {
			http.ServeFile(w, r, filepath.Join(s.Dir, "index.html"))
			return
		}
		fs.ServeHTTP(w, r)
	})
}
