package router

import (
	"log"
	"net/http"
	"time"

	"calevid/config"
	"calevid/internal/handler"
	"calevid/internal/middleware"
	"calevid/internal/repository"
	"calevid/internal/service"
	"calevid/pkg/cloudinary"
	"calevid/pkg/credit"
	"calevid/pkg/fal"
	"calevid/pkg/paystack"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func Setup(cfg *config.Config, db *gorm.DB) *gin.Engine {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RateLimit(middleware.NewInMemoryRateLimiter(100, 60*time.Second)))

	// Repositories
	userRepo := repository.NewUserRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)
	intentRepo := repository.NewIntentRepository(db)

	// Services
	authSvc := service.NewAuthService(cfg, userRepo)
	creditSvc := service.NewCreditService(db, userRepo, ledgerRepo, intentRepo)

	// The webhook receiver normally applies credits in-process; with
	// CREDIT_APPLY_URL set it delegates to a remote ledger deployment.
	var applier credit.Applier = creditSvc
	if cfg.Credits.ApplyURL != "" {
		log.Printf("[router] delegating credit application to %s", cfg.Credits.ApplyURL)
		applier = credit.NewHTTPClient(cfg.Credits.ApplyURL, cfg.Credits.ApplySecret)
	}

	paystackClient := paystack.NewClient(cfg.Paystack.BaseURL, cfg.Paystack.SecretKey)
	falClient := fal.NewClient(cfg.Fal.BaseURL, cfg.Fal.APIKey, cfg.Fal.Model)

	var store cloudinary.VideoStore = cloudinary.StubStore{}
	if cfg.Cloudinary.CloudName != "" {
		s, err := cloudinary.NewClientFromParams(cfg.Cloudinary.CloudName, cfg.Cloudinary.APIKey, cfg.Cloudinary.APISecret)
		if err != nil {
			log.Printf("[router] cloudinary disabled: %v", err)
		} else {
			store = s
		}
	}
	videoSvc := service.NewVideoService(userRepo, falClient, store)

	// Handlers
	authHandler := handler.NewAuthHandler(authSvc)
	meHandler := handler.NewMeHandler(userRepo, ledgerRepo, intentRepo)
	webhookHandler := handler.NewPaystackWebhookHandler(applier, cfg.Paystack.SecretKey, cfg.Credits.PricePerCredit, cfg.Credits.ApplyTimeout)
	creditApplyHandler := handler.NewCreditApplyHandler(creditSvc, cfg.Credits.ApplySecret)
	paymentHandler := handler.NewPaymentHandler(paystackClient, applier, cfg.Credits.PricePerCredit)
	videoHandler := handler.NewVideoHandler(videoSvc)

	authMw := middleware.AuthRequired(&cfg.JWT)

	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "Calevid backend is running")
	})
	r.GET("/status/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api/v1")
	{
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
			authGroup.POST("/refresh", authHandler.Refresh)
		}

		me := api.Group("/me")
		me.Use(authMw)
		{
			me.GET("/credits", meHandler.GetCredits)
			me.GET("/purchases", meHandler.GetPurchases)
			me.POST("/purchase-intent", meHandler.SaveIntent)
		}

		api.POST("/payments/verify", authMw, paymentHandler.Verify)
		api.POST("/videos/generate", authMw, videoHandler.Generate)

		api.POST("/webhooks/paystack", webhookHandler.Handle)

		// Internal RPC; always backed by the local ledger regardless of
		// the delegate configuration above.
		api.GET("/credits/apply", creditApplyHandler.Apply)
		api.POST("/credits/apply", creditApplyHandler.Apply)
	}

	r.GET("/ws/generate", handler.UpgradeGenerateWS(&cfg.JWT, videoSvc))

	return r
}
