package cron

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"beatbook/config"
	"beatbook/models"
	"beatbook/services/tasks"

	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
)

// InitEscalationWorker runs the async worker in background.
func InitEscalationWorker() {
	redisOpts := asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	}

	srv := asynq.NewServer(
		redisOpts,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeEscalationNotify, handleEscalationTask(&http.Client{Timeout: 15 * time.Second}))

	// Start Redis health monitor
	go monitorRedisConnection()

	// Start async worker with retry logic
	go func() {
		log.Println("[EscalationWorker] 🚀 Starting async worker...")
		const maxAttempts = 5

		for attempts := 1; attempts <= maxAttempts; attempts++ {
			if err := srv.Run(mux); err != nil {
				log.Printf("[EscalationWorker] ❌ Attempt %d/%d failed to start worker: %v", attempts, maxAttempts, err)

				if attempts == maxAttempts {
					log.Fatal("[EscalationWorker] ❗ Max retry attempts reached. Exiting.")
				}
				time.Sleep(time.Duration(attempts*2) * time.Second) // Exponential backoff
			} else {
				break
			}
		}
	}()
}

func handleEscalationTask(httpClient *http.Client) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var p models.EscalationPayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			log.Printf("[EscalationHandler] 🔴 Invalid payload: %v", err)
			return err
		}

		webhookURL := config.AppConfig.ModeratorWebhookURL
		if webhookURL == "" {
			log.Printf("[EscalationHandler] ⚠️ No moderator webhook configured, dropping escalation for session %s", p.SessionID)
			return nil
		}

		log.Printf("[EscalationHandler] 📣 Delivering %s escalation for session %s", p.Category, p.SessionID)

		body, err := json.Marshal(p)
		if err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := httpClient.Do(req)
		if err != nil {
			log.Printf("[EscalationHandler] ❌ Failed to deliver escalation: %v", err)
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 300 {
			log.Printf("[EscalationHandler] ❌ Moderator webhook returned %d", resp.StatusCode)
			return fmt.Errorf("moderator webhook returned status %d", resp.StatusCode)
		}
		return nil
	}
}

// monitorRedisConnection pings Redis periodically to detect failures at runtime.
func monitorRedisConnection() {
	client := redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	})

	ctx := context.Background()

	for {
		if err := client.Ping(ctx).Err(); err != nil {
			log.Printf("[EscalationWorker] ⚠️ Redis connection lost: %v", err)
		}
		time.Sleep(10 * time.Second)
	}
}
