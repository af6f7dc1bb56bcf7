package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"calevid/config"
	"calevid/internal/auth"
	"calevid/internal/service"
	"calevid/pkg/fal"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const generateDeadline = 10 * time.Minute

// UpgradeGenerateWS streams generation progress over a websocket: queue
// position and status snapshots while the job runs, then the final URL.
func UpgradeGenerateWS(cfg *config.JWTConfig, videoSvc *service.VideoService) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := wsUpgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		send := func(v interface{}) {
			data, _ := json.Marshal(v)
			_ = conn.WriteMessage(websocket.TextMessage, data)
		}

		token := c.Query("token")
		if token == "" {
			send(gin.H{"type": "error", "error": "token required"})
			return
		}
		claims, err := auth.ParseAccessToken(cfg, token)
		if err != nil {
			send(gin.H{"type": "error", "error": "invalid token"})
			return
		}
		prompt := c.Query("prompt")
		if prompt == "" {
			send(gin.H{"type": "error", "error": "prompt required"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), generateDeadline)
		defer cancel()
		res, err := videoSvc.GenerateWithUpdates(ctx, claims.UserID, prompt, func(st fal.QueueStatus) {
			send(gin.H{"type": "status", "status": st.Status, "queue_position": st.QueuePosition})
		})
		if err != nil {
			if errors.Is(err, service.ErrNoCredits) {
				send(gin.H{"type": "error", "error": "no credits remaining"})
				return
			}
			send(gin.H{"type": "error", "error": "generation failed"})
			return
		}
		send(gin.H{"type": "result", "video_url": res.VideoURL, "request_id": res.RequestID})
	}
}
