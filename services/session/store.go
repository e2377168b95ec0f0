// Package session owns per-conversation state: history, collected
// booking fields, stage, and rate-limit counters.
package session

import (
	"context"
	"time"

	"beatbook/models"
)

// Store persists sessions. Load returns (nil, nil) for an unknown key;
// callers treat that as "create on first message".
type Store interface {
	Load(ctx context.Context, sessionID string) (*models.Session, error)
	Save(ctx context.Context, s *models.Session) error
	Delete(ctx context.Context, sessionID string) error
}

// RatePolicy configures the per-session sliding-window rate limit.
type RatePolicy struct {
	Enabled  bool
	Max      int           // messages in window that trigger a block
	WarnAt   int           // messages in window that trigger a single warning
	Window   time.Duration // sliding window length
	Cooldown time.Duration // block duration once Max is reached
}

const (
	warnMessage    = "You're sending messages quite quickly! 😅 Give me a moment to keep up."
	blockedMessage = "You've sent too many messages in a short time. Please wait a few minutes before trying again. 🙏"
)
