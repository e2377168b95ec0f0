package models

// EscalationPayload carries a conversation that needs a human moderator.
// It is enqueued as an async task and delivered to the moderator webhook.
type EscalationPayload struct {
	SessionID string            `json:"sessionId"`
	Category  string            `json:"category"`
	Message   string            `json:"message"`
	Collected map[string]string `json:"collected,omitempty"`
	History   []string          `json:"history,omitempty"`
}
