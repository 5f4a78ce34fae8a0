package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	campaigndomain "github.com/smallbiznis/blastwave/internal/campaign/domain"
	templatedomain "github.com/smallbiznis/blastwave/internal/template/domain"
	tenantdomain "github.com/smallbiznis/blastwave/internal/tenant/domain"
	"gorm.io/gorm"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

var (
	ErrValidation  = errors.New("validation_error")
	ErrRateLimited = errors.New("rate_limit_exceeded")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.AbortWithStatusJSON(status, payload)
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func mapError(err error) (int, errorResponse) {
	switch {
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest, errorResponse{Code: "VALIDATION_ERROR", Message: "invalid request"}
	case errors.Is(err, campaigndomain.ErrCampaignNotFound),
		errors.Is(err, tenantdomain.ErrNotFound),
		errors.Is(err, templatedomain.ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound, errorResponse{Code: "NOT_FOUND", Message: "resource not found"}
	case errors.Is(err, campaigndomain.ErrInvalidStatus):
		return http.StatusBadRequest, errorResponse{Code: "INVALID_STATUS", Message: "campaign cannot be processed in its current status"}
	case errors.Is(err, campaigndomain.ErrTemplateNotApproved):
		return http.StatusBadRequest, errorResponse{Code: "TEMPLATE_NOT_APPROVED", Message: "campaign template is not approved"}
	case errors.Is(err, campaigndomain.ErrWhatsAppNotConnected),
		errors.Is(err, tenantdomain.ErrChannelNotFound):
		return http.StatusBadRequest, errorResponse{Code: "WHATSAPP_NOT_CONNECTED", Message: "whatsapp channel is not connected"}
	case errors.Is(err, campaigndomain.ErrSendingDisabled):
		return http.StatusForbidden, errorResponse{Code: "SENDING_DISABLED", Message: "sending is disabled"}
	case errors.Is(err, campaigndomain.ErrDispatchInProgress):
		return http.StatusConflict, errorResponse{Code: "DISPATCH_IN_PROGRESS", Message: "another dispatch is already running for this campaign"}
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, errorResponse{Code: "RATE_LIMIT_EXCEEDED", Message: "too many requests"}
	default:
		return http.StatusInternalServerError, errorResponse{Code: "INTERNAL_ERROR", Message: "internal server error"}
	}
}

func classifyErrorForLog(err error) (string, string) {
	status, payload := mapError(err)
	switch {
	case status >= http.StatusInternalServerError:
		return "internal", payload.Code
	case status == http.StatusTooManyRequests:
		return "rate_limit", payload.Code
	default:
		return "client", payload.Code
	}
}
