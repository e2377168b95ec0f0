package handlers

import (
	"context"
	"net/http"
	"time"

	"beatbook/services/chatbot"
	"beatbook/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Sender delivers outbound replies back over the messaging channel.
type Sender interface {
	SendText(ctx context.Context, recipientID, text string) error
}

// webhookEvent mirrors the Meta messaging webhook payload, trimmed to
// the fields the bot consumes.
type webhookEvent struct {
	Object string `json:"object"`
	Entry  []struct {
		Messaging []struct {
			Sender struct {
				ID string `json:"id"`
			} `json:"sender"`
			Message struct {
				Text string `json:"text"`
			} `json:"message"`
			Postback struct {
				Payload string `json:"payload"`
				Title   string `json:"title"`
			} `json:"postback"`
		} `json:"messaging"`
	} `json:"entry"`
}

// VerifyWebhookHandler answers the platform's GET verification
// handshake: echo hub.challenge when the verify token matches.
func VerifyWebhookHandler(verifyToken string) gin.HandlerFunc {
	return func(c *gin.Context) {
		mode := c.Query("hub.mode")
		token := c.Query("hub.verify_token")
		challenge := c.Query("hub.challenge")

		if mode == "subscribe" && token == verifyToken {
			c.String(http.StatusOK, challenge)
			return
		}
		getLogger(c).Warn("Webhook verification failed", zap.String("mode", mode))
		c.String(http.StatusForbidden, "Forbidden")
	}
}

// WebhookEventHandler receives message events, runs each through the
// chatbot, and delivers replies via the sender. It always acknowledges
// with 200 so the platform does not retry-storm on processing errors.
func WebhookEventHandler(svc chatbot.ChatbotService, sender Sender) gin.HandlerFunc {
	return func(c *gin.Context) {
		var event webhookEvent
		if err := c.ShouldBindJSON(&event); err != nil {
			getLogger(c).Warn("Undecodable webhook payload", zap.Error(err))
			c.String(http.StatusOK, "EVENT_RECEIVED")
			return
		}
		if event.Object != "instagram" {
			c.String(http.StatusNotFound, "Not Found")
			return
		}

		for _, entry := range event.Entry {
			for _, m := range entry.Messaging {
				text := m.Message.Text
				if text == "" {
					// Postbacks (button taps) are treated as text.
					text = m.Postback.Title
					if text == "" {
						text = m.Postback.Payload
					}
				}
				if text == "" || m.Sender.ID == "" {
					continue
				}
				go processWebhookMessage(svc, sender, m.Sender.ID, text)
			}
		}
		c.String(http.StatusOK, "EVENT_RECEIVED")
	}
}

func processWebhookMessage(svc chatbot.ChatbotService, sender Sender, senderID, text string) {
	logger := utils.GetLogger()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	reply, err := svc.ProcessMessage(ctx, chatbot.InboundMessage{
		SessionID: senderID,
		Name:      "there",
		Handle:    senderID,
		Text:      text,
	})
	if err != nil {
		logger.Error("Failed to process webhook message", zap.Error(err), zap.String("senderID", senderID))
		return
	}
	if err := sender.SendText(ctx, senderID, reply); err != nil {
		logger.Error("Failed to send reply", zap.Error(err), zap.String("senderID", senderID))
	}
}
