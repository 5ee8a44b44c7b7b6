package domain

import "errors"

var (
	// ErrMissingFile is returned when an upload carries no file
	ErrMissingFile = errors.New("no file provided")

	// ErrMissingTerm is returned when a search is requested without a term
	ErrMissingTerm = errors.New("search term is required")

	// ErrEmptyBatch is returned by stores asked to bulk insert zero documents
	ErrEmptyBatch = errors.New("batch cannot be empty")

	// ErrNotConnected is returned when a store is used before Connect or after Close
	ErrNotConnected = errors.New("store is not connected")
)
