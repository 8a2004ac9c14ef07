package storage

import (
	"context"
	"io"
)

// File is an uploaded file stream with its metadata.
type File struct {
	Name        string
	ContentType string
	Size        int64
	Content     io.Reader
}

// UploadResult identifies a stored file and where it can be fetched from.
type UploadResult struct {
	Key string
	URL string
}

// Storage abstracts the media host that keeps avatar and cover images.
type Storage interface {
	// Upload stores the file and returns its key and public URL.
	Upload(ctx context.Context, f File) (*UploadResult, error)

	// Delete removes a previously uploaded file. Deleting a missing key
	// is not an error.
	Delete(ctx context.Context, key string) error

	// URL returns the public URL for a stored key.
	URL(key string) string
}
