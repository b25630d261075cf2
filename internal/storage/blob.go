package storage

import "io"

// BlobStore holds question images. Keys are bare filenames; the quiz codec
// normalizes any path-prefixed references down to that form.
type BlobStore interface {
	Put(key string, r io.Reader) (string, error) // returns canonical key
	Get(key string) (io.ReadCloser, error)
	Delete(key string) error
}
