package http

import (
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/quizforge/quizforge/internal/quiz"
	"github.com/quizforge/quizforge/internal/storage"
)

var allowedImageExt = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
}

// MountAssets wires image upload and delivery. Keys are bare filenames;
// whatever path the client sends is reduced to one.
func MountAssets(r chi.Router, bs storage.BlobStore, uploads func(http.Handler) http.Handler) {
	// POST /assets  (multipart, field "file") — admin only
	r.With(uploads).Post("/", func(w http.ResponseWriter, r *http.Request) {
		f, hdr, err := r.FormFile("file")
		if err != nil {
			http.Error(w, "file required", http.StatusBadRequest)
			return
		}
		defer f.Close()

		name := quiz.NormalizeImageRef(hdr.Filename)
		if name == "" || !allowedImageExt[strings.ToLower(path.Ext(name))] {
			http.Error(w, "unsupported file type", http.StatusBadRequest)
			return
		}
		key, err := bs.Put(name, f)
		if err != nil {
			http.Error(w, "store error: "+err.Error(), http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"key": key})
	})

	// GET /assets/{filename}
	r.Get("/{filename}", func(w http.ResponseWriter, r *http.Request) {
		name := quiz.NormalizeImageRef(chi.URLParam(r, "filename"))
		rc, err := bs.Get(name)
		if err != nil {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		defer rc.Close()
		if ct := mime.TypeByExtension(strings.ToLower(path.Ext(name))); ct != "" {
			w.Header().Set("Content-Type", ct)
		}
		_, _ = io.Copy(w, rc)
	})
}
