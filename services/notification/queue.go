package notification

import (
	"context"
	"fmt"

	"beatbook/models"
	"beatbook/services/tasks"
	"beatbook/utils"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// QueueNotifier enqueues escalations onto the async worker queue. Delivery to
// the moderator webhook happens in the background worker, so a slow or down
// webhook never stalls a conversation turn.
type QueueNotifier struct {
	client *asynq.Client
}

func NewQueueNotifier(client *asynq.Client) *QueueNotifier {
	return &QueueNotifier{client: client}
}

func (n *QueueNotifier) Escalate(ctx context.Context, payload models.EscalationPayload) error {
	logger := utils.GetLogger()

	task, opts, err := tasks.NewEscalationTask(payload)
	if err != nil {
		return fmt.Errorf("failed to build escalation task: %w", err)
	}

	info, err := n.client.EnqueueContext(ctx, task, opts...)
	if err != nil {
		logger.Error("Failed to enqueue escalation",
			zap.Error(err), zap.String("sessionID", payload.SessionID))
		return fmt.Errorf("failed to enqueue escalation: %w", err)
	}

	logger.Info("Escalation enqueued",
		zap.String("taskID", info.ID),
		zap.String("sessionID", payload.SessionID),
		zap.String("category", payload.Category))
	return nil
}
