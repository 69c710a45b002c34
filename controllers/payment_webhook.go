package controllers

import (
	"io"
	"net/http"

	"pos-payment-service/providers"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// maxWebhookBytes matches the provider's documented event size ceiling.
const maxWebhookBytes = 65536

// HandleWebhook handles POST /api/payments/webhook. The body is read raw
// because the signature covers the exact bytes.
func (pc *PaymentController) HandleWebhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBytes+1))
	if err != nil || len(payload) > maxWebhookBytes {
		pc.logger.Warn("Webhook body unreadable", zap.Int("bytes", len(payload)), zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid webhook"})
		return
	}

	if svcErr := pc.paymentService.HandleWebhook(c.Request.Context(), payload, c.GetHeader(providers.SignatureHeader)); svcErr != nil {
		pc.respondError(c, svcErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "received": true})
}
