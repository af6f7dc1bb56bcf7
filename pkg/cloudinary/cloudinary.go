package cloudinary

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/cloudinary/cloudinary-go/v2/config"
)

// VideoStore copies a generated video from a transient provider URL into
// durable storage and returns the permanent URL.
type VideoStore interface {
	StoreFromURL(ctx context.Context, sourceURL, publicID string) (string, error)
}

const videoFolder = "calevid/videos"

// Video optimization applied eagerly on upload.
const videoEager = "q_auto:low,f_auto"

var eagerAsyncFalse = false

type clientImpl struct {
	uploader *uploader.API
	client   *http.Client
}

// StoreFromURL downloads the source video and re-uploads it to Cloudinary.
func (c *clientImpl) StoreFromURL(ctx context.Context, sourceURL, publicID string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch video returned %d", resp.StatusCode)
	}

	result, err := c.uploader.Upload(ctx, resp.Body, uploader.UploadParams{
		Folder:       videoFolder,
		PublicID:     publicID,
		ResourceType: "video",
		Eager:        videoEager,
		EagerAsync:   &eagerAsyncFalse,
	})
	if err != nil {
		return "", err
	}
	if result.SecureURL == "" {
		return "", fmt.Errorf("cloudinary upload returned no url for %s", publicID)
	}
	return result.SecureURL, nil
}

// NewClientFromParams builds a VideoStore from Cloudinary cloud name, API key, and secret.
func NewClientFromParams(cloudName, apiKey, apiSecret string) (VideoStore, error) {
	cfg, err := config.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, err
	}
	up, err := uploader.NewWithConfiguration(cfg)
	if err != nil {
		return nil, err
	}
	return &clientImpl{
		uploader: up,
		client:   &http.Client{Timeout: 2 * time.Minute},
	}, nil
}
