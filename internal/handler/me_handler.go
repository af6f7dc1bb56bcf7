package handler

import (
	"net/http"

	"calevid/internal/domain"
	"calevid/internal/middleware"
	"calevid/internal/models"
	"calevid/internal/repository"

	"github.com/gin-gonic/gin"
)

type MeHandler struct {
	userRepo   *repository.UserRepository
	ledgerRepo *repository.LedgerRepository
	intentRepo *repository.IntentRepository
}

func NewMeHandler(userRepo *repository.UserRepository, ledgerRepo *repository.LedgerRepository, intentRepo *repository.IntentRepository) *MeHandler {
	return &MeHandler{userRepo: userRepo, ledgerRepo: ledgerRepo, intentRepo: intentRepo}
}

// GetCredits returns the current balance and plan state for the dashboard.
func (h *MeHandler) GetCredits(c *gin.Context) {
	u, err := h.userRepo.GetByID(middleware.GetUserID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "user lookup failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"credits":    u.Credits,
		"plan":       u.Plan,
		"plan_limit": u.PlanLimit,
		"plan_used":  u.PlanUsed,
		"plan_start": u.PlanStart,
	})
}

// GetPurchases returns the user's applied credit purchases, newest first.
func (h *MeHandler) GetPurchases(c *gin.Context) {
	entries, err := h.ledgerRepo.ListByUserID(middleware.GetUserID(c), 50)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "purchase lookup failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"purchases": entries})
}

type intentRequest struct {
	Credits int    `json:"credits"`
	Plan    string `json:"plan"`
}

// SaveIntent records what the user is about to buy, before the checkout
// widget opens. Consumed by the applier when the payment is verified.
func (h *MeHandler) SaveIntent(c *gin.Context) {
	var req intentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid intent"})
		return
	}
	if req.Plan != "" {
		if _, ok := domain.PlanLimits[req.Plan]; !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown plan"})
			return
		}
	}
	if req.Plan == "" && req.Credits <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid intent"})
		return
	}
	intent := &models.PurchaseIntent{
		UserID:  middleware.GetUserID(c),
		Credits: req.Credits,
		Plan:    req.Plan,
	}
	if err := h.intentRepo.Save(intent); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not save intent"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"saved": true})
}
