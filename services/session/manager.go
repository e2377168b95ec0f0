package session

import (
	"context"
	"fmt"
	"time"

	"beatbook/models"
)

// Manager wraps a Store with the conversation-state operations the
// turn loop needs. All mutation is last-writer-wins per session; the
// per-session lock (Lock) is how callers serialize whole turns.
type Manager struct {
	store  Store
	window int // history window, in exchange pairs
	policy RatePolicy
	locks  *lockRegistry
	now    func() time.Time
}

// NewManager builds a Manager keeping the most recent window exchange
// pairs of history per session.
func NewManager(store Store, window int, policy RatePolicy) *Manager {
	return &Manager{
		store:  store,
		window: window,
		policy: policy,
		locks:  newLockRegistry(),
		now:    time.Now,
	}
}

// Lock acquires the session's mutual-exclusion boundary and returns
// the release function. Turns for one session must run under it.
func (m *Manager) Lock(sessionID string) func() {
	return m.locks.acquire(sessionID)
}

// GetSession loads the session, creating an empty one on first use.
// The created session is not persisted until something mutates it.
func (m *Manager) GetSession(ctx context.Context, sessionID string) (*models.Session, error) {
	s, err := m.store.Load(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", sessionID, err)
	}
	if s == nil {
		s = models.NewSession(sessionID)
	}
	return s, nil
}

func (m *Manager) save(ctx context.Context, s *models.Session) error {
	s.LastUpdatedAt = m.now()
	if err := m.store.Save(ctx, s); err != nil {
		return fmt.Errorf("save session %s: %w", s.ID, err)
	}
	return nil
}

// GetHistory returns the session's (already trimmed) history window.
func (m *Manager) GetHistory(ctx context.Context, sessionID string) ([]models.ChatMessage, error) {
	s, err := m.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return s.History, nil
}

// AppendTurn records one user/bot exchange and trims the window.
func (m *Manager) AppendTurn(ctx context.Context, sessionID, userText, botText string) error {
	s, err := m.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	now := m.now()
	s.History = append(s.History,
		models.ChatMessage{Role: models.RoleUser, Text: userText, At: now},
		models.ChatMessage{Role: models.RoleBot, Text: botText, At: now},
	)
	m.trim(s)
	return m.save(ctx, s)
}

// trim keeps only the last window exchange pairs, oldest evicted first.
func (m *Manager) trim(s *models.Session) {
	if m.window <= 0 {
		return
	}
	max := m.window * 2
	if len(s.History) > max {
		s.History = append(s.History[:0:0], s.History[len(s.History)-max:]...)
	}
}

// GetBookingState returns the stage sub-state.
func (m *Manager) GetBookingState(ctx context.Context, sessionID string) (models.BookingState, error) {
	s, err := m.GetSession(ctx, sessionID)
	if err != nil {
		return models.BookingState{}, err
	}
	return s.Booking, nil
}

// UpdateBookingState applies patch to the stage sub-state under a
// load-modify-save cycle.
func (m *Manager) UpdateBookingState(ctx context.Context, sessionID string, patch func(*models.BookingState)) (models.BookingState, error) {
	s, err := m.GetSession(ctx, sessionID)
	if err != nil {
		return models.BookingState{}, err
	}
	patch(&s.Booking)
	if err := m.save(ctx, s); err != nil {
		return models.BookingState{}, err
	}
	return s.Booking, nil
}

// GetCollectedFields returns a copy of the collected-field accumulator.
func (m *Manager) GetCollectedFields(ctx context.Context, sessionID string) (models.BookingRecord, error) {
	s, err := m.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return models.BookingRecord(s.Collected).Clone(), nil
}

// MergeCollectedFields merges fields into the accumulator. An empty
// incoming value never replaces a present non-empty value; empty
// incoming values are ignored outright.
func (m *Manager) MergeCollectedFields(ctx context.Context, sessionID string, fields models.BookingRecord) (models.BookingRecord, error) {
	if len(fields) == 0 {
		return m.GetCollectedFields(ctx, sessionID)
	}
	s, err := m.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if s.Collected == nil {
		s.Collected = map[string]string{}
	}
	for k, v := range fields {
		if v == "" {
			continue
		}
		s.Collected[k] = v
	}
	if err := m.save(ctx, s); err != nil {
		return nil, err
	}
	return models.BookingRecord(s.Collected).Clone(), nil
}

// SetPending captures a finalized-looking booking snapshot.
func (m *Manager) SetPending(ctx context.Context, sessionID string, rec models.BookingRecord) error {
	s, err := m.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	s.Pending = rec.Clone()
	return m.save(ctx, s)
}

// GetPending returns the pending snapshot, or nil.
func (m *Manager) GetPending(ctx context.Context, sessionID string) (models.BookingRecord, error) {
	s, err := m.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return s.Pending.Clone(), nil
}

// ClearPending drops the pending snapshot. Called exactly once,
// atomically with the commit that consumed it.
func (m *Manager) ClearPending(ctx context.Context, sessionID string) error {
	s, err := m.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	s.Pending = nil
	return m.save(ctx, s)
}

// IncrementMessageCount bumps the human-message counter and returns
// the new value.
func (m *Manager) IncrementMessageCount(ctx context.Context, sessionID string) (int, error) {
	s, err := m.GetSession(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	s.MessageCount++
	if err := m.save(ctx, s); err != nil {
		return 0, err
	}
	return s.MessageCount, nil
}

// TrackSuspicious records a suspicious-activity marker (e.g. a blocked
// prompt-injection attempt).
func (m *Manager) TrackSuspicious(ctx context.Context, sessionID, category string) error {
	s, err := m.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	s.Suspicious = append(s.Suspicious, fmt.Sprintf("%s@%s", category, m.now().Format(time.RFC3339)))
	return m.save(ctx, s)
}

// CheckRateLimit applies the sliding-window policy for one inbound
// message. A non-empty return is the reply to send instead of
// processing the message. The violation counter persists across
// cooldowns; the warn/block flags reset once the cooldown elapses.
func (m *Manager) CheckRateLimit(ctx context.Context, sessionID string) (string, error) {
	if !m.policy.Enabled {
		return "", nil
	}
	s, err := m.GetSession(ctx, sessionID)
	if err != nil {
		return "", err
	}
	now := m.now()
	rl := &s.RateLimit

	if !rl.BlockedUntil.IsZero() {
		if now.Before(rl.BlockedUntil) {
			return blockedMessage, nil
		}
		// Cooldown elapsed: flags reset, violations persist.
		rl.BlockedUntil = time.Time{}
		rl.Warned = false
		rl.Timestamps = nil
	}

	rl.Timestamps = append(rl.Timestamps, now)
	cutoff := now.Add(-m.policy.Window)
	kept := rl.Timestamps[:0]
	for _, ts := range rl.Timestamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	// Bound the window slice regardless of policy values.
	if len(kept) > m.policy.Max+1 {
		kept = kept[len(kept)-m.policy.Max-1:]
	}
	rl.Timestamps = kept

	var msg string
	switch {
	case len(rl.Timestamps) >= m.policy.Max:
		rl.Violations++
		rl.BlockedUntil = now.Add(m.policy.Cooldown)
		msg = blockedMessage
	case len(rl.Timestamps) >= m.policy.WarnAt && !rl.Warned:
		rl.Warned = true
		msg = warnMessage
	}

	if err := m.save(ctx, s); err != nil {
		return "", err
	}
	return msg, nil
}

// Clear destroys all session data for the key.
func (m *Manager) Clear(ctx context.Context, sessionID string) error {
	if err := m.store.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("clear session %s: %w", sessionID, err)
	}
	return nil
}
