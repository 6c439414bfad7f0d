package db

import "errors"

var (
	// ErrNotFound is returned when a document does not exist.
	ErrNotFound = errors.New("document not found")
	// ErrAlreadyExists is returned by Create operations keyed by a natural id.
	ErrAlreadyExists = errors.New("document already exists")
	// ErrSkipWrite may be returned by a mutate func to end an update without
	// writing. The update then reports the current document and a nil error.
	ErrSkipWrite = errors.New("skip write")
)
