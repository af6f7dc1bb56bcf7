package handler

import (
	"errors"
	"log"
	"net/http"

	"calevid/internal/middleware"
	"calevid/pkg/credit"
	"calevid/pkg/paystack"

	"github.com/gin-gonic/gin"
)

// PaymentHandler covers the client-initiated verification path: after the
// inline checkout closes, the frontend posts the reference here and we ask
// Paystack for the authoritative charge state instead of trusting the
// browser. Credits land through the same idempotent applier as the webhook,
// so whichever path runs first wins and the other becomes a no-op.
type PaymentHandler struct {
	paystack       *paystack.Client
	applier        credit.Applier
	pricePerCredit int64
}

func NewPaymentHandler(paystackClient *paystack.Client, applier credit.Applier, pricePerCredit int64) *PaymentHandler {
	return &PaymentHandler{paystack: paystackClient, applier: applier, pricePerCredit: pricePerCredit}
}

type verifyRequest struct {
	Reference string `json:"reference" binding:"required"`
}

func (h *PaymentHandler) Verify(c *gin.Context) {
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "reference required"})
		return
	}
	email := middleware.GetEmail(c)

	tx, err := h.paystack.VerifyTransaction(c.Request.Context(), req.Reference)
	if err != nil {
		if errors.Is(err, paystack.ErrVerificationFailed) {
			c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "payment verification failed"})
			return
		}
		log.Printf("[payments] verify unreachable for %s: %v", req.Reference, err)
		c.JSON(http.StatusBadGateway, gin.H{"status": "error", "message": "payment gateway unreachable"})
		return
	}
	if !tx.Succeeded() {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "payment verification failed"})
		return
	}

	credits := tx.AmountMinorUnits / 100 / h.pricePerCredit
	if credits <= 0 {
		log.Printf("[payments] amount too low for %s: %d minor units", req.Reference, tx.AmountMinorUnits)
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "payment amount insufficient for credits"})
		return
	}

	res, err := h.applier.Apply(c.Request.Context(), tx.Reference, email, credits)
	if err != nil {
		if errors.Is(err, credit.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"status": "error", "message": "user not found"})
			return
		}
		log.Printf("[payments] apply failed for %s: %v", tx.Reference, err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "credit application failed"})
		return
	}
	if res.AlreadyProcessed {
		c.JSON(http.StatusOK, gin.H{"status": "success", "message": "payment already processed", "new_balance": res.NewBalance})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":        "success",
		"message":       "payment verified and credits applied",
		"credits_added": res.CreditsApplied,
		"new_balance":   res.NewBalance,
	})
}
