package handlers

import (
	"io/fs"
	"net/http"
)

// mediaFS exposes the files of an upload directory. Directories are
// reported as missing, so no listing is ever rendered.
type mediaFS struct {
	root http.FileSystem
}

func (m mediaFS) Open(name string) (http.File, error) {
	f, err := m.root.Open(name)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if info.IsDir() {
		f.Close()
		return nil, fs.ErrNotExist
	}
	return f, nil
}

// staticMedia serves the uploads stored under dir at prefix
func staticMedia(prefix, dir string) http.Handler {
	files := http.StripPrefix(prefix, http.FileServer(mediaFS{root: http.Dir(dir)}))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Content-Security-Policy", "default-src 'none'; sandbox")
		files.ServeHTTP(w, r)
	})
}
