// Package web embeds the static chat client and serves it for any path
// the API does not claim.
package web

import (
	"embed"
	"io/fs"
	"net/http"
	"strings"
)

//go:embed all:public
var publicFS embed.FS

// Handler returns an http.Handler serving the embedded client. Unknown
// paths fall back to index.html.
func Handler() http.Handler {
	subFS, err := fs.Sub(publicFS, "public")
	if err != nil {
		panic("web: failed to create sub filesystem: " + err.Error())
	}

	fileServer := http.FileServer(http.FS(subFS))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/")
		if path == "" {
			path = "index.html"
		}

		if f, err := subFS.Open(path); err == nil {
			_ = f.Close()
			fileServer.ServeHTTP(w, r)
			return
		}

		r.URL.Path = "/"
		fileServer.ServeHTTP(w, r)
	})
}
