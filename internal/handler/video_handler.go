package handler

import (
	"errors"
	"log"
	"net/http"

	"calevid/internal/middleware"
	"calevid/internal/service"

	"github.com/gin-gonic/gin"
)

type VideoHandler struct {
	svc *service.VideoService
}

func NewVideoHandler(svc *service.VideoService) *VideoHandler {
	return &VideoHandler{svc: svc}
}

type generateRequest struct {
	Prompt string `json:"prompt" binding:"required"`
}

// Generate consumes one credit and blocks until the video is ready.
func (h *VideoHandler) Generate(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "prompt required"})
		return
	}
	userID := middleware.GetUserID(c)

	res, err := h.svc.Generate(c.Request.Context(), userID, req.Prompt)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmptyPrompt):
			c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "prompt required"})
		case errors.Is(err, service.ErrNoCredits):
			c.JSON(http.StatusPaymentRequired, gin.H{"status": "error", "message": "no credits remaining"})
		default:
			log.Printf("[video] generation failed for user %d: %v", userID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "generation failed"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":     "success",
		"videoUrl":   res.VideoURL,
		"request_id": res.RequestID,
	})
}
