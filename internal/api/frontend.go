package api

import (
	"net/http"
	"os"
	"path/filepath"
)

// frontendNotBuilt is served while the frontend directory lacks index.html.
const frontendNotBuilt = "Frontend not built. Run 'npm run build' in the frontend directory."

// frontend serves the static build in dir. The directory is checked on
// every request so a build produced after startup is picked up.
func frontend(dir string) http.Handler {
	files := http.FileServerFS(os.DirFS(dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if dir == "" || !isFile(filepath.Join(dir, "index.html")) {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(frontendNotBuilt))
			return
		}
		files.ServeHTTP(w, r)
	})
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
