package controllers

import (
	"net/http"

	"pos-payment-service/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// respondOK writes the success envelope with payload merged in.
func respondOK(c *gin.Context, status int, payload gin.H) {
	body := gin.H{"success": true}
	for k, v := range payload {
		body[k] = v
	}
	c.JSON(status, body)
}

// respondError writes the failure envelope. Only the generic message reaches
// the client; the wrapped cause goes to the log.
func (pc *PaymentController) respondError(c *gin.Context, svcErr *services.ServiceError) {
	fields := []zap.Field{
		zap.String("kind", string(svcErr.Kind)),
		zap.String("path", c.FullPath()),
		zap.Error(svcErr),
	}
	if rid := c.GetString("request_id"); rid != "" {
		fields = append(fields, zap.String("request_id", rid))
	}
	if svcErr.StatusCode >= http.StatusInternalServerError {
		pc.logger.Error(svcErr.Message, fields...)
	} else {
		pc.logger.Warn(svcErr.Message, fields...)
	}

	status := svcErr.StatusCode
	if status == 0 {
		status = http.StatusInternalServerError
	}
	c.JSON(status, gin.H{"success": false, "message": svcErr.Message})
}

func (pc *PaymentController) bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		pc.logger.Debug("Invalid request body", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid request"})
		return false
	}
	return true
}
