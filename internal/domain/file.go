package domain

import (
	"context"
)

// Photo upload limits.
const (
	MaxPhotoBytes = 2 << 20
)

// AllowedPhotoTypes maps accepted content types to file extensions.
var AllowedPhotoTypes = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
}

// BlobStore is the external object storage used for profile photos.
type BlobStore interface {
	// Upload saves an object under key and returns its public URL.
	Upload(ctx context.Context, data []byte, key string, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}
