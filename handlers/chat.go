package handlers

import (
	"net/http"

	"beatbook/services/chatbot"
	"beatbook/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ChatRequest is the direct (non-webhook) chat API input.
type ChatRequest struct {
	SessionID string `json:"session_id" binding:"required"`
	Name      string `json:"name"`
	Handle    string `json:"handle"`
	Message   string `json:"message" binding:"required"`
}

// ChatResponse carries the bot's reply.
type ChatResponse struct {
	Reply string `json:"reply"`
}

// ChatHandler processes one conversation turn over plain HTTP. Used by
// the test harness and any channel without a webhook integration.
func ChatHandler(svc chatbot.ChatbotService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ChatRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.JSONError(c, http.StatusBadRequest, "Invalid request payload", err.Error())
			return
		}

		reply, err := svc.ProcessMessage(c.Request.Context(), chatbot.InboundMessage{
			SessionID: req.SessionID,
			Name:      req.Name,
			Handle:    req.Handle,
			Text:      req.Message,
		})
		if err != nil {
			getLogger(c).Error("Failed to process chat message",
				zap.Error(err), zap.String("sessionID", req.SessionID))
			utils.JSONError(c, http.StatusInternalServerError, "Failed to process message", "")
			return
		}
		c.JSON(http.StatusOK, ChatResponse{Reply: reply})
	}
}

// ClearSessionHandler destroys all conversation state for a session.
func ClearSessionHandler(svc chatbot.ChatbotService) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := c.Param("id")
		if sessionID == "" {
			utils.JSONError(c, http.StatusBadRequest, "Missing session id", "")
			return
		}
		if err := svc.ClearSession(c.Request.Context(), sessionID); err != nil {
			getLogger(c).Error("Failed to clear session",
				zap.Error(err), zap.String("sessionID", sessionID))
			utils.JSONError(c, http.StatusInternalServerError, "Failed to clear session", "")
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "cleared"})
	}
}

// HealthHandler reports liveness.
func HealthHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
