package handlers

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/PratikDhanave/line-webhook-service/internal/auth"
	"github.com/PratikDhanave/line-webhook-service/internal/logging"
	"github.com/PratikDhanave/line-webhook-service/internal/metrics"
	"github.com/PratikDhanave/line-webhook-service/internal/webhook"
)

// maxBodyBytes caps a single webhook batch.
const maxBodyBytes = 1 << 20

// Dispatcher is the part of webhook.Dispatcher the callback needs.
type Dispatcher interface {
	Dispatch(ctx context.Context, body []byte, signature string) (webhook.Result, error)
}

// RegisterCallbackRoutes registers the webhook endpoint.
//
// POST /callback
// - Requires X-Line-Signature
// - 400 on a bad signature or an unparseable body, nothing is dispatched
// - 200 "OK" otherwise, including when individual handlers fail
func RegisterCallbackRoutes(r gin.IRoutes, d Dispatcher, m *metrics.Registry, logger *zap.Logger) {
	r.POST("/callback", auth.RequireSignature(), func(c *gin.Context) {
		log := logging.FromContext(c.Request.Context(), logger)

		body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes))
		if err != nil {
			m.RecordWebhook("malformed")
			c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
			return
		}
		log.Info("request body", zap.ByteString("body", body))

		if _, err := d.Dispatch(c.Request.Context(), body, auth.Signature(c)); err != nil {
			switch {
			case webhook.IsInvalidSignature(err):
				m.RecordWebhook("invalid_signature")
				log.Warn("invalid signature, check the channel secret")
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid signature"})
			case webhook.IsMalformedPayload(err):
				m.RecordWebhook("malformed")
				log.Warn("malformed webhook payload", zap.ByteString("body", body), zap.Error(err))
				c.JSON(http.StatusBadRequest, gin.H{"error": "malformed payload"})
			default:
				m.RecordWebhook("error")
				log.Error("webhook dispatch failed", zap.Error(err))
				c.JSON(webhook.StatusCode(err), gin.H{"error": "internal error"})
			}
			return
		}

		m.RecordWebhook("ok")
		c.String(http.StatusOK, "OK")
	})
}
