package app

import (
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"

	"github.com/zapcooking/backend/internal/metrics"
	"github.com/zapcooking/backend/internal/middleware/auth"
	"github.com/zapcooking/backend/internal/middleware/compress"
	ginLogger "github.com/zapcooking/backend/internal/middleware/logger"
)

func (a *App) SetupRouter() (*gin.Engine, error) {
	r := gin.New()
	if a.config.ProfileMode {
		pprof.Register(r)
	}

	r.Use(ginLogger.Logger(a.logger.Named("middleware")))
	r.Use(auth.AuthMiddleware(a.config.Secret, a.logger.Named("auth_middleware")))
	r.Use(compress.Compress())

	r.GET("/ping", a.Ping)
	r.GET("/metrics", metrics.Handler())
	r.GET("/s/:code", a.RedirectShortLink)

	wellKnown := r.Group("/.well-known")
	{
		wellKnown.GET("/nostr.json", a.NostrJSON)
		wellKnown.Any("/lnurlp/:username", a.lnurlProxy.Handler())
	}
	r.Any("/lnurl/callback/*rest", a.lnurlProxy.Handler())

	api := r.Group("/api")
	{
		api.POST("/shorten", a.ShortenLink)
		api.GET("/stats/:code", a.LinkStats)

		internalAPI := api.Group("/internal")
		internalAPI.Use(auth.NewSubnetChecker(a.config.TrustedSubnet, a.logger.Named("subnet_checker")))
		{
			internalAPI.GET("/stats", a.InternalStats)
		}

		api.POST("/create-lightning-invoice", a.CreateLightningInvoice)
		api.POST("/verify-lightning-payment", a.VerifyLightningPayment)
		api.POST("/strike-webhook", a.StrikeWebhook)
		api.POST("/create-checkout-session", a.CreateCheckoutSession)
		api.POST("/complete-payment", a.CompletePayment)
		api.GET("/membership/:pubkey", a.GetMembership)

		api.POST("/claim-nip05", a.ClaimNIP05)
		api.POST("/generate-recipe", a.GenerateRecipe)
	}

	return r, nil
}
