package server

import (
	"io/fs"
	"net/http"
	"strings"
)

type spaFileServer struct {
	fileServer http.Handler
	fileSystem fs.FS
}

func newSPAFileServer(fsys fs.FS) *spaFileServer {
	return &spaFileServer{
		fileServer: http.FileServer(http.FS(fsys)),
		fileSystem: fsys,
	}
}

func (s *spaFileServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/")
	if path == "" {
		path = "index.html"
	}

	if _, err := fs.Stat(s.fileSystem, path); err != nil {
		// Client-side routes fall back to the app shell.
		r.URL.Path = "/"
	} else if strings.HasPrefix(path, "assets/") {
		// Build output under assets/ is content-hashed.
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	}

	s.fileServer.ServeHTTP(w, r)
}
