package server

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	webhookdomain "github.com/smallbiznis/blastwave/internal/webhook/domain"
	"github.com/smallbiznis/blastwave/internal/whatsapp"
	"go.uber.org/zap"
)

const maxWebhookBody = 1 << 20

// verifyWebhook answers the provider's GET subscription handshake.
func (s *Server) verifyWebhook(c *gin.Context) {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	if mode == "subscribe" && token != "" && token == s.cfg.WhatsApp.VerifyToken {
		c.String(http.StatusOK, challenge)
		return
	}
	c.String(http.StatusForbidden, "verification failed")
}

// receiveWebhook ingests provider status callbacks. A well-signed payload is
// always answered 200; internal reconcile errors never surface to the
// provider, otherwise it retries aggressively.
func (s *Server) receiveWebhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse{Code: "INTERNAL_ERROR", Message: "failed to read request body"})
		return
	}

	secret := s.cfg.WhatsApp.AppSecret
	if secret == "" {
		if s.cfg.IsProduction() {
			s.log.Error("webhook app secret not configured in production")
			c.JSON(http.StatusInternalServerError, errorResponse{Code: "INTERNAL_ERROR", Message: "webhook secret not configured"})
			return
		}
		s.log.Warn("webhook signature verification skipped, no app secret configured")
	} else if !webhookdomain.VerifySignature(secret, body, c.GetHeader("X-Hub-Signature-256")) {
		c.JSON(http.StatusUnauthorized, errorResponse{Code: "INVALID_SIGNATURE", Message: "signature verification failed"})
		return
	}

	var payload whatsapp.WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		s.log.Warn("malformed webhook payload", zap.Error(err))
	} else {
		s.webhookSvc.Reconcile(c.Request.Context(), &payload)
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}
