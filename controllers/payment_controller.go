package controllers

import (
	"net/http"

	"pos-payment-service/middleware"
	"pos-payment-service/models"
	"pos-payment-service/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// PaymentController serves the checkout endpoints.
type PaymentController struct {
	paymentService services.PaymentService
	logger         *zap.Logger
}

func NewPaymentController(svc services.PaymentService, logger *zap.Logger) *PaymentController {
	return &PaymentController{paymentService: svc, logger: logger}
}

// CreatePaymentIntent handles POST /api/payments/create-payment-intent
func (pc *PaymentController) CreatePaymentIntent(c *gin.Context) {
	var req models.CreatePaymentIntentRequest
	if !pc.bind(c, &req) {
		return
	}

	result, svcErr := pc.paymentService.CreateIntent(c.Request.Context(), &req)
	if svcErr != nil {
		pc.respondError(c, svcErr)
		return
	}

	respondOK(c, http.StatusOK, gin.H{
		"paymentIntent": result.Intent,
		"sessionId":     result.Session.SessionID,
		"totals":        result.Totals.View(),
	})
}

// CreateCustomer handles POST /api/payments/create-customer
func (pc *PaymentController) CreateCustomer(c *gin.Context) {
	var req models.CreateCustomerRequest
	if !pc.bind(c, &req) {
		return
	}

	customer, svcErr := pc.paymentService.CreateCustomer(c.Request.Context(), &req)
	if svcErr != nil {
		pc.respondError(c, svcErr)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"customer": customer})
}

// CalculateTotal handles POST /api/payments/calculate-total
func (pc *PaymentController) CalculateTotal(c *gin.Context) {
	var req models.CalculateTotalRequest
	if !pc.bind(c, &req) {
		return
	}

	totals, svcErr := pc.paymentService.CalculateTotals(&req)
	if svcErr != nil {
		pc.respondError(c, svcErr)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"totals": totals.View()})
}

// AddTip handles POST /api/payments/add-tip
func (pc *PaymentController) AddTip(c *gin.Context) {
	var req models.AddTipRequest
	if !pc.bind(c, &req) {
		return
	}

	result, svcErr := pc.paymentService.AddTip(c.Request.Context(), &req)
	if svcErr != nil {
		pc.respondError(c, svcErr)
		return
	}
	respondOK(c, http.StatusOK, gin.H{
		"tipPayment": result.Intent,
		"totals":     result.Totals.View(),
	})
}

// Refund handles POST /api/payments/refund
func (pc *PaymentController) Refund(c *gin.Context) {
	var req models.RefundRequest
	if !pc.bind(c, &req) {
		return
	}

	refund, svcErr := pc.paymentService.Refund(c.Request.Context(), &req)
	if svcErr != nil {
		pc.respondError(c, svcErr)
		return
	}
	if staff := c.GetString(middleware.StaffIDKey); staff != "" {
		pc.logger.Info("Refund issued by staff", zap.String("staff_id", staff), zap.String("refund_id", refund.RefundID))
	}
	respondOK(c, http.StatusOK, gin.H{"refund": refund})
}

// GetPayment handles GET /api/payments/payment/:paymentIntentId
func (pc *PaymentController) GetPayment(c *gin.Context) {
	intent, svcErr := pc.paymentService.GetPayment(c.Request.Context(), c.Param("paymentIntentId"))
	if svcErr != nil {
		pc.respondError(c, svcErr)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"payment": models.NewPaymentView(intent)})
}

// GetSession handles GET /api/payments/sessions/:sessionId
func (pc *PaymentController) GetSession(c *gin.Context) {
	session, svcErr := pc.paymentService.GetSession(c.Request.Context(), c.Param("sessionId"))
	if svcErr != nil {
		pc.respondError(c, svcErr)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"session": models.NewSessionView(session)})
}

// SyncSession handles POST /api/payments/sessions/:sessionId/sync
func (pc *PaymentController) SyncSession(c *gin.Context) {
	session, svcErr := pc.paymentService.SyncSession(c.Request.Context(), c.Param("sessionId"))
	if svcErr != nil {
		pc.respondError(c, svcErr)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"session": models.NewSessionView(session)})
}
