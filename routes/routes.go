package routes

import (
	"pos-payment-service/controllers"

	"github.com/gin-gonic/gin"
)

// RegisterPaymentRoutes mounts the checkout API. staffAuth guards refunds.
func RegisterPaymentRoutes(r *gin.Engine, pc *controllers.PaymentController, staffAuth gin.HandlerFunc) {
	payments := r.Group("/api/payments")

	payments.POST("/create-payment-intent", pc.CreatePaymentIntent)
	payments.POST("/create-customer", pc.CreateCustomer)
	payments.POST("/calculate-total", pc.CalculateTotal)
	payments.POST("/add-tip", pc.AddTip)
	payments.POST("/refund", staffAuth, pc.Refund)
	payments.GET("/payment/:paymentIntentId", pc.GetPayment)

	payments.GET("/sessions/:sessionId", pc.GetSession)
	payments.POST("/sessions/:sessionId/sync", pc.SyncSession)

	// provider callback, authenticated by signature rather than a token
	payments.POST("/webhook", pc.HandleWebhook)
}
