package tasks

import (
	"encoding/json"

	"beatbook/models"

	"github.com/hibiken/asynq"
)

const TypeEscalationNotify = "escalation:notify"

func NewEscalationTask(payload models.EscalationPayload) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, err
	}
	task := asynq.NewTask(TypeEscalationNotify, b)
	opts := []asynq.Option{asynq.MaxRetry(5)}

	return task, opts, nil
}
