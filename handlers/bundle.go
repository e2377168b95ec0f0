package handlers

import (
	"github.com/gin-gonic/gin"
)

// HandlerBundle groups all endpoint handlers into one struct.
type HandlerBundle struct {
	// Webhook endpoints
	VerifyWebhookHandler gin.HandlerFunc
	WebhookEventHandler  gin.HandlerFunc

	// Chat endpoints
	ChatHandler         gin.HandlerFunc
	ClearSessionHandler gin.HandlerFunc

	// Ops endpoints
	HealthHandler gin.HandlerFunc
}
