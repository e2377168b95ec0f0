package notification

import (
	"context"

	"beatbook/models"
)

// Notifier delivers human-escalation requests out of the conversation loop.
type Notifier interface {
	Escalate(ctx context.Context, payload models.EscalationPayload) error
}
