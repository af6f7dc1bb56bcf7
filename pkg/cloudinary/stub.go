package cloudinary

import "context"

// StubStore is a pass-through store for deployments without Cloudinary
// credentials; generated videos are served from the provider URL directly.
type StubStore struct{}

func (StubStore) StoreFromURL(ctx context.Context, sourceURL, publicID string) (string, error) {
	return sourceURL, nil
}
