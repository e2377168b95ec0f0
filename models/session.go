package models

import "time"

// Chat roles stored in session history.
const (
	RoleUser = "user"
	RoleBot  = "bot"
)

// ChatMessage is one entry in a session's conversation history.
type ChatMessage struct {
	Role string    `json:"role"`
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

// BookingStage labels conversational progress toward a committed booking.
type BookingStage string

const (
	StageBrowsing          BookingStage = "browsing"
	StageSelectingTimeslot BookingStage = "selecting_timeslot"
	StageSchedulingDate    BookingStage = "scheduling_date"
	StageCollectingInfo    BookingStage = "collecting_info"
	StageConfirming        BookingStage = "confirming"
	StageCommitted         BookingStage = "committed"
)

// ValidStage reports whether s is one of the known booking stages.
func ValidStage(s BookingStage) bool {
	switch s {
	case StageBrowsing, StageSelectingTimeslot, StageSchedulingDate,
		StageCollectingInfo, StageConfirming, StageCommitted:
		return true
	}
	return false
}

// BookingState is the stage sub-state updated by update_booking_state actions.
type BookingState struct {
	Timeslot      string       `json:"timeslot,omitempty"`
	Date          string       `json:"date,omitempty"`
	DateConfirmed bool         `json:"dateConfirmed"`
	TrialAccepted bool         `json:"trialAccepted"`
	Stage         BookingStage `json:"stage,omitempty"`
}

// RateLimitState tracks the sliding message window for one session.
type RateLimitState struct {
	Timestamps   []time.Time `json:"timestamps,omitempty"`
	Warned       bool        `json:"warned"`
	BlockedUntil time.Time   `json:"blockedUntil,omitempty"`
	Violations   int         `json:"violations"`
}

// Session holds everything the assistant knows about one conversation.
type Session struct {
	ID            string            `json:"id"`
	History       []ChatMessage     `json:"history,omitempty"`
	Booking       BookingState      `json:"booking"`
	Collected     map[string]string `json:"collected,omitempty"`
	Pending       BookingRecord     `json:"pending,omitempty"`
	MessageCount  int               `json:"messageCount"`
	RateLimit     RateLimitState    `json:"rateLimit"`
	Suspicious    []string          `json:"suspicious,omitempty"`
	CreatedAt     time.Time         `json:"createdAt"`
	LastUpdatedAt time.Time         `json:"lastUpdatedAt"`
}

// NewSession returns an empty session for the given key.
func NewSession(id string) *Session {
	now := time.Now()
	return &Session{
		ID:            id,
		Booking:       BookingState{Stage: StageBrowsing},
		Collected:     map[string]string{},
		CreatedAt:     now,
		LastUpdatedAt: now,
	}
}
