package handler

import (
	"net/http"
	"os"
	"strings"
)

// UploadsHandler serves stored images from dir under prefix. Directory
// listings are never served.
func UploadsHandler(dir, prefix string) http.Handler {
	prefix = strings.TrimSuffix(prefix, "/") + "/"
	fs := http.FileServer(noListingFS{http.Dir(dir)})
	return http.StripPrefix(prefix, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Cache-Control", "public, max-age=86400")
		fs.ServeHTTP(w, r)
	}))
}

// noListingFS hides directories so the file server answers 404 instead of
// listing them
type noListingFS struct {
	fs http.FileSystem
}

func (n noListingFS) Open(name string) (http.File, error) {
	f, err := n.fs.Open(name)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	if info.IsDir() {
		_ = f.Close()
		return nil, os.ErrNotExist
	}
	return f, nil
}
