package handlers

import (
	"errors"
	"net/http"

	"github.com/fatflowers/subsync/internal/app/service/ingest"
	"github.com/fatflowers/subsync/pkg/logctx"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// @Summary      Stripe Webhook
// @Description  Handles Stripe webhook events. The raw body is verified against the Stripe-Signature header before any field is trusted.
// @Tags         Webhook
// @Accept       json
// @Produce      json
// @Param        payload body string true "Stripe event envelope"
// @Success      200  {object}  map[string]bool
// @Failure      400  {object}  map[string]string
// @Router       /api/v1/webhook/stripe [post]
// ApiStripeWebhook handles Stripe webhook deliveries.
func ApiStripeWebhook(svc *ingest.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := c.GetRawData()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read body"})
			return
		}

		traceID := ""
		if v, ok := c.Get("traceID"); ok {
			traceID, _ = v.(string)
		}

		err = svc.HandleEvent(c.Request.Context(), body, c.GetHeader("Stripe-Signature"), traceID)
		if err != nil {
			switch {
			case errors.Is(err, ingest.ErrSignatureVerification), errors.Is(err, ingest.ErrMalformedPayload):
				logctx.FromGin(c, log).Warnw("webhook_rejected", "error", err.Error())
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			default:
				// Retryable: answer 5xx so the provider redelivers.
				logctx.FromGin(c, log).Errorw("webhook_handle_error", "error", err.Error())
				c.JSON(http.StatusInternalServerError, gin.H{"error": "processing failed"})
			}
			return
		}

		c.JSON(http.StatusOK, gin.H{"received": true})
	}
}

func RegisterWebhookRoutes(r gin.IRouter, svc *ingest.Service, log *zap.SugaredLogger) {
	r.POST("/stripe", ApiStripeWebhook(svc, log))
}
