package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"beatbook/utils"

	"go.uber.org/zap"
)

const graphAPIVersion = "v21.0"

// InstagramSender delivers replies through the Meta Graph messages API.
type InstagramSender struct {
	messagesURL string
	accessToken string
	client      *http.Client
}

func NewInstagramSender(pageID, accessToken string) *InstagramSender {
	return &InstagramSender{
		messagesURL: fmt.Sprintf("https://graph.facebook.com/%s/%s/messages", graphAPIVersion, pageID),
		accessToken: accessToken,
		client:      &http.Client{Timeout: 10 * time.Second},
	}
}

// SendText sends a plain text message to the recipient.
func (s *InstagramSender) SendText(ctx context.Context, recipientID, text string) error {
	payload := map[string]interface{}{
		"recipient":    map[string]string{"id": recipientID},
		"message":      map[string]string{"text": text},
		"access_token": s.accessToken,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode send payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.messagesURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build send request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		utils.GetLogger().Warn("Send API rejected message",
			zap.Int("status", resp.StatusCode), zap.String("recipientID", recipientID))
		return fmt.Errorf("send API returned status %d", resp.StatusCode)
	}
	return nil
}

// LogSender is a stand-in sender for local runs without channel
// credentials; replies are only logged.
type LogSender struct{}

func (LogSender) SendText(_ context.Context, recipientID, text string) error {
	utils.GetLogger().Info("Reply (not delivered, no channel configured)",
		zap.String("recipientID", recipientID), zap.String("text", text))
	return nil
}
