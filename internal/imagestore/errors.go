package imagestore

import "errors"

var (
	// ErrNotImage indicates the uploaded bytes are not a recognized image.
	ErrNotImage = errors.New("file is not an image")
	// ErrImageTooLarge indicates the payload exceeds the configured limit.
	ErrImageTooLarge = errors.New("image too large")
	// ErrInvalidFilename indicates a filename that escapes the store's
	// directories or was not produced by the store.
	ErrInvalidFilename = errors.New("invalid image filename")
	// ErrNotFound indicates a referenced image exists in neither the
	// working nor the saved directory.
	ErrNotFound = errors.New("image file not found")
)
