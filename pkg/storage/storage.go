package storage

import "context"

// ArtifactStore persists binary artifacts (payment receipts, cycle
// reports) and returns an opaque locator for later retrieval.
type ArtifactStore interface {
	Store(ctx context.Context, data []byte, name, folder, contentType string) (string, error)
}
