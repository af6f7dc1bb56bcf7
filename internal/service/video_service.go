package service

import (
	"context"
	"errors"
	"log"
	"strings"

	"calevid/internal/repository"
	"calevid/pkg/cloudinary"
	"calevid/pkg/fal"
)

var (
	ErrNoCredits   = errors.New("no credits remaining")
	ErrEmptyPrompt = errors.New("prompt required")
)

// VideoService turns one credit into one generated video. The credit is
// consumed up front with a conditional decrement and refunded if generation
// fails, so a crash between the two never gives out free videos.
type VideoService struct {
	userRepo *repository.UserRepository
	fal      *fal.Client
	store    cloudinary.VideoStore
}

func NewVideoService(userRepo *repository.UserRepository, falClient *fal.Client, store cloudinary.VideoStore) *VideoService {
	return &VideoService{userRepo: userRepo, fal: falClient, store: store}
}

type GenerateResult struct {
	RequestID string `json:"request_id"`
	VideoURL  string `json:"video_url"`
}

func (s *VideoService) Generate(ctx context.Context, userID uint, prompt string) (*GenerateResult, error) {
	return s.GenerateWithUpdates(ctx, userID, prompt, nil)
}

// GenerateWithUpdates generates a video, forwarding queue status snapshots
// to onStatus when provided (used by the websocket progress stream).
func (s *VideoService) GenerateWithUpdates(ctx context.Context, userID uint, prompt string, onStatus func(fal.QueueStatus)) (*GenerateResult, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, ErrEmptyPrompt
	}
	ok, err := s.userRepo.ConsumeCredit(userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNoCredits
	}
	if err := s.userRepo.IncrementPlanUsed(userID); err != nil {
		log.Printf("[video] plan usage update failed for user %d: %v", userID, err)
	}

	res, err := s.fal.Generate(ctx, prompt, onStatus)
	if err != nil {
		if refundErr := s.userRepo.AddCredits(userID, 1); refundErr != nil {
			log.Printf("[video] refund failed for user %d: %v", userID, refundErr)
		}
		return nil, err
	}

	url := res.VideoURL
	if stored, err := s.store.StoreFromURL(ctx, res.VideoURL, res.RequestID); err != nil {
		log.Printf("[video] durable store failed for %s, serving provider url: %v", res.RequestID, err)
	} else {
		url = stored
	}
	log.Printf("[video] generated %s for user %d", res.RequestID, userID)
	return &GenerateResult{RequestID: res.RequestID, VideoURL: url}, nil
}
