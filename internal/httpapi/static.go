package httpapi

import (
	"net/http"
	"path/filepath"
)

// registerStatic serves index.html at / and any other file below dir by
// direct lookup. More specific routes registered on mux take precedence.
func registerStatic(mux *http.ServeMux, dir string) {
	files := http.FileServer(http.Dir(dir))
	index := filepath.Join(dir, "index.html")

	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, index)
	})
	mux.Handle("GET /", files)
}
