package domain

import "context"

// Archiver keeps a copy of an uploaded file and returns the key it was stored under
type Archiver interface {
	Archive(ctx context.Context, filename, contentType string, data []byte) (string, error)
}
