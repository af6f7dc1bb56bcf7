package handler

import (
	"crypto/subtle"
	"errors"
	"log"
	"net/http"

	"calevid/pkg/credit"

	"github.com/gin-gonic/gin"
)

// CreditApplyHandler is the privileged apply-credits surface: an internal
// RPC for the webhook receiver (or a sibling deployment of it), guarded by
// a pre-provisioned shared secret. Not a public endpoint.
type CreditApplyHandler struct {
	applier credit.Applier
	secret  string
}

func NewCreditApplyHandler(applier credit.Applier, secret string) *CreditApplyHandler {
	return &CreditApplyHandler{applier: applier, secret: secret}
}

type applyRequest struct {
	Secret    string `form:"secret" json:"secret"`
	Email     string `form:"email" json:"email"`
	Credits   int64  `form:"credits" json:"credits"`
	Reference string `form:"reference" json:"reference"`
}

// Apply accepts GET with query parameters or POST with a JSON/form body.
// The secret is checked before anything can mutate.
func (h *CreditApplyHandler) Apply(c *gin.Context) {
	var req applyRequest
	var err error
	if c.Request.Method == http.MethodGet {
		err = c.ShouldBindQuery(&req)
	} else {
		err = c.ShouldBind(&req)
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if subtle.ConstantTimeCompare([]byte(req.Secret), []byte(h.secret)) != 1 {
		log.Printf("[credits] apply rejected: bad secret from %s", c.ClientIP())
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid secret"})
		return
	}

	res, err := h.applier.Apply(c.Request.Context(), req.Reference, req.Email, req.Credits)
	if err != nil {
		switch {
		case errors.Is(err, credit.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		case errors.Is(err, credit.ErrInvalidReference), errors.Is(err, credit.ErrInvalidAmount):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			log.Printf("[credits] apply failed for %s: %v", req.Reference, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "credit application failed"})
		}
		return
	}

	msg := "credits applied"
	if res.AlreadyProcessed {
		msg = "already processed"
	}
	c.JSON(http.StatusOK, gin.H{
		"status":            "success",
		"message":           msg,
		"credits_applied":   res.CreditsApplied,
		"new_balance":       res.NewBalance,
		"already_processed": res.AlreadyProcessed,
	})
}
