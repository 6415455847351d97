package app

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/zapcooking/backend/internal/membership"
	"github.com/zapcooking/backend/internal/metrics"
	"github.com/zapcooking/backend/internal/middleware/auth"
	"github.com/zapcooking/backend/internal/models"
	"github.com/zapcooking/backend/internal/nip05"
	"github.com/zapcooking/backend/internal/recipegen"
	"github.com/zapcooking/backend/internal/shortlink"
)

func errorJSON(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}

func (a *App) visitorID(c *gin.Context) string {
	id, _ := c.Get(auth.VisitorIDKey)
	visitorID, _ := id.(string)
	return visitorID
}

func (a *App) Ping(c *gin.Context) {
	if err := a.store.Ping(c.Request.Context()); err != nil {
		a.logger.Errorw("kv store unavailable", "err", err)
		errorJSON(c, http.StatusServiceUnavailable, "storage unavailable")
		return
	}
	c.Status(http.StatusOK)
}

func (a *App) ShortenLink(c *gin.Context) {
	var req models.ShortenReq
	if err := c.ShouldBindJSON(&req); err != nil {
		errorJSON(c, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := a.shortlinks.Shorten(c.Request.Context(), a.visitorID(c), req)
	if err != nil {
		switch {
		case errors.Is(err, shortlink.ErrInvalidInput),
			errors.Is(err, shortlink.ErrInvalidSlug),
			errors.Is(err, shortlink.ErrSlugReserved):
			errorJSON(c, http.StatusBadRequest, err.Error())
		case errors.Is(err, shortlink.ErrSlugTaken):
			errorJSON(c, http.StatusConflict, err.Error())
		case errors.Is(err, shortlink.ErrExhausted):
			errorJSON(c, http.StatusServiceUnavailable, err.Error())
		default:
			errorJSON(c, http.StatusServiceUnavailable, "storage unavailable")
		}
		return
	}

	linkType := req.Type
	if linkType == "" {
		linkType = string(models.LinkTypeRecipe)
	}
	metrics.LinksCreated.WithLabelValues(linkType).Inc()

	c.JSON(http.StatusCreated, res)
}

func (a *App) RedirectShortLink(c *gin.Context) {
	target, err := a.shortlinks.Resolve(c.Request.Context(), c.Param("code"))
	if err != nil {
		if errors.Is(err, shortlink.ErrNotFound) {
			errorJSON(c, http.StatusNotFound, "short link not found")
			return
		}
		errorJSON(c, http.StatusServiceUnavailable, "storage unavailable")
		return
	}

	metrics.RedirectsServed.Inc()
	c.Redirect(http.StatusFound, target)
}

func (a *App) LinkStats(c *gin.Context) {
	record, err := a.shortlinks.Stats(c.Request.Context(), c.Param("code"))
	if err != nil {
		if errors.Is(err, shortlink.ErrNotFound) {
			errorJSON(c, http.StatusNotFound, "short link not found")
			return
		}
		errorJSON(c, http.StatusServiceUnavailable, "storage unavailable")
		return
	}

	c.JSON(http.StatusOK, record)
}

func (a *App) InternalStats(c *gin.Context) {
	stats, err := a.shortlinks.ServiceStats(c.Request.Context())
	if err != nil {
		errorJSON(c, http.StatusInternalServerError, "error aggregating stats")
		return
	}

	c.JSON(http.StatusOK, stats)
}

func paymentError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, membership.ErrDisabled):
		errorJSON(c, http.StatusForbidden, err.Error())
	case errors.Is(err, membership.ErrInvalidInput):
		errorJSON(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, membership.ErrNotFound):
		errorJSON(c, http.StatusNotFound, err.Error())
	case errors.Is(err, membership.ErrNotPaid):
		errorJSON(c, http.StatusBadRequest, err.Error())
	default:
		errorJSON(c, http.StatusInternalServerError, "payment processing failed")
	}
}

func (a *App) CreateLightningInvoice(c *gin.Context) {
	var req models.CreateInvoiceReq
	if err := c.ShouldBindJSON(&req); err != nil {
		errorJSON(c, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := a.members.CreateLightningInvoice(c.Request.Context(), req)
	if err != nil {
		paymentError(c, err)
		return
	}

	c.JSON(http.StatusCreated, res)
}

func (a *App) VerifyLightningPayment(c *gin.Context) {
	var req models.VerifyPaymentReq
	if err := c.ShouldBindJSON(&req); err != nil {
		errorJSON(c, http.StatusBadRequest, "invalid request body")
		return
	}

	state, err := a.members.VerifyLightningPayment(c.Request.Context(), req.ReceiveRequestID)
	if err != nil {
		paymentError(c, err)
		return
	}

	metrics.PaymentsCompleted.WithLabelValues("lightning").Inc()
	c.JSON(http.StatusOK, state)
}

type strikeWebhookReq struct {
	EventType string `json:"eventType"`
	Data      struct {
		PaymentHash string `json:"paymentHash"`
	} `json:"data"`
}

func (a *App) StrikeWebhook(c *gin.Context) {
	var req strikeWebhookReq
	if err := c.ShouldBindJSON(&req); err != nil || req.Data.PaymentHash == "" {
		errorJSON(c, http.StatusBadRequest, "invalid webhook payload")
		return
	}

	if err := a.members.HandleLightningWebhook(c.Request.Context(), req.Data.PaymentHash); err != nil {
		paymentError(c, err)
		return
	}

	metrics.PaymentsCompleted.WithLabelValues("lightning").Inc()
	c.Status(http.StatusOK)
}

func (a *App) CreateCheckoutSession(c *gin.Context) {
	var req models.CheckoutSessionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		errorJSON(c, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := a.members.CreateCheckoutSession(c.Request.Context(), req)
	if err != nil {
		paymentError(c, err)
		return
	}

	c.JSON(http.StatusCreated, res)
}

func (a *App) CompletePayment(c *gin.Context) {
	var req models.CompletePaymentReq
	if err := c.ShouldBindJSON(&req); err != nil {
		errorJSON(c, http.StatusBadRequest, "invalid request body")
		return
	}

	state, err := a.members.CompletePayment(c.Request.Context(), req.SessionID)
	if err != nil {
		paymentError(c, err)
		return
	}

	metrics.PaymentsCompleted.WithLabelValues("stripe").Inc()
	c.JSON(http.StatusOK, state)
}

func (a *App) GetMembership(c *gin.Context) {
	state, err := a.members.Membership(c.Request.Context(), c.Param("pubkey"))
	if err != nil {
		errorJSON(c, http.StatusInternalServerError, "error reading membership")
		return
	}

	c.JSON(http.StatusOK, state)
}

func (a *App) hasActiveMembership(ctx context.Context, pubkey string) bool {
	state, err := a.members.Membership(ctx, pubkey)
	if err != nil {
		a.logger.Warnw("membership lookup failed", "pubkey", pubkey, "err", err)
		return false
	}
	return state.Active
}

func (a *App) ClaimNIP05(c *gin.Context) {
	var req models.ClaimNIP05Req
	if err := c.ShouldBindJSON(&req); err != nil {
		errorJSON(c, http.StatusBadRequest, "invalid request body")
		return
	}

	if !a.hasActiveMembership(c.Request.Context(), req.Pubkey) {
		errorJSON(c, http.StatusForbidden, "active membership required")
		return
	}

	if err := a.identities.Claim(c.Request.Context(), req.Name, req.Pubkey); err != nil {
		switch {
		case errors.Is(err, nip05.ErrInvalidName),
			errors.Is(err, nip05.ErrInvalidPubkey),
			errors.Is(err, nip05.ErrNameReserved):
			errorJSON(c, http.StatusBadRequest, err.Error())
		case errors.Is(err, nip05.ErrNameTaken):
			errorJSON(c, http.StatusConflict, err.Error())
		default:
			errorJSON(c, http.StatusInternalServerError, "error storing claim")
		}
		return
	}

	c.Status(http.StatusCreated)
}

func (a *App) NostrJSON(c *gin.Context) {
	doc, err := a.identities.NostrJSON(c.Request.Context(), c.Query("name"))
	if err != nil {
		if errors.Is(err, nip05.ErrNotFound) {
			errorJSON(c, http.StatusNotFound, "name not found")
			return
		}
		errorJSON(c, http.StatusInternalServerError, "error reading claims")
		return
	}

	c.Header("Access-Control-Allow-Origin", "*")
	c.JSON(http.StatusOK, doc)
}

func (a *App) GenerateRecipe(c *gin.Context) {
	var req models.GenerateRecipeReq
	if err := c.ShouldBindJSON(&req); err != nil {
		errorJSON(c, http.StatusBadRequest, "invalid request body")
		return
	}

	recipe, err := a.recipes.Generate(c.Request.Context(), req.Prompt)
	if err != nil {
		switch {
		case errors.Is(err, recipegen.ErrDisabled):
			errorJSON(c, http.StatusForbidden, err.Error())
		case errors.Is(err, recipegen.ErrEmptyPrompt):
			errorJSON(c, http.StatusBadRequest, err.Error())
		default:
			errorJSON(c, http.StatusInternalServerError, "recipe generation failed")
		}
		return
	}

	c.JSON(http.StatusOK, recipe)
}
