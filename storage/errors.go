package storage

import "errors"

var (
	// ErrKeyNotFound is returned when a key does not exist
	ErrKeyNotFound = errors.New("key not found")
	// ErrClosed is returned when a closed storage is used
	ErrClosed = errors.New("storage is closed")
)
