package models

import (
	"encoding/json"
	"strings"
)

// The model-driven turn protocol. A turn response carries the reply
// text plus turn-scoped validation and action requests. Requests are a
// closed tagged union: anything that does not decode into one of the
// known kinds with its required parameter shape is dropped at the
// boundary instead of being trusted.

// ValidationKind enumerates supported validation request types.
type ValidationKind string

const ValidationDate ValidationKind = "validate_date"

// ActionKind enumerates supported action request types.
type ActionKind string

const (
	ActionExtractBookingData ActionKind = "extract_booking_data"
	ActionCommitBooking      ActionKind = "book_to_sheets"
	ActionUpdateBookingState ActionKind = "update_booking_state"
)

// ValidationRequest names a check the turn wants performed before any
// action executes.
type ValidationRequest struct {
	Type   ValidationKind  `json:"type"`
	Params json.RawMessage `json:"params,omitempty"`
}

// DateCheckParams are the parameters for a validate_date request.
type DateCheckParams struct {
	Date     string `json:"date"`
	Timeslot string `json:"timeslot"`
}

// DateParams decodes the request parameters as a date check.
func (v ValidationRequest) DateParams() (DateCheckParams, error) {
	var p DateCheckParams
	if len(v.Params) == 0 {
		return p, nil
	}
	err := json.Unmarshal(v.Params, &p)
	return p, err
}

// ActionRequest names an effect the turn wants executed after all
// validations pass.
type ActionRequest struct {
	Type   ActionKind      `json:"type"`
	Params json.RawMessage `json:"params,omitempty"`
}

// CommitParams are the parameters for a book_to_sheets request. The
// booking data is optional; absent, the session's pending snapshot is
// used.
type CommitParams struct {
	BookingData BookingRecord `json:"booking_data,omitempty"`
}

// CommitParams decodes the request parameters as a commit.
func (a ActionRequest) CommitParams() (CommitParams, error) {
	var p CommitParams
	if len(a.Params) == 0 {
		return p, nil
	}
	err := json.Unmarshal(a.Params, &p)
	return p, err
}

// StagePatch is a partial update to the booking stage sub-state. Only
// keys present in the request are applied.
type StagePatch struct {
	Timeslot      *string `json:"timeslot,omitempty"`
	Date          *string `json:"date,omitempty"`
	DateConfirmed *bool   `json:"date_confirmed,omitempty"`
	TrialAccepted *bool   `json:"trial_accepted,omitempty"`
	Stage         *string `json:"stage,omitempty"`
}

// StageParams decodes the request parameters as a stage patch.
func (a ActionRequest) StageParams() (StagePatch, error) {
	var p StagePatch
	if len(a.Params) == 0 {
		return p, nil
	}
	err := json.Unmarshal(a.Params, &p)
	return p, err
}

// TurnResponse is the structured response for one inbound message.
type TurnResponse struct {
	UserMessage    string              `json:"user_message"`
	Validations    []ValidationRequest `json:"validations,omitempty"`
	Actions        []ActionRequest     `json:"actions,omitempty"`
	BookingSummary string              `json:"booking_summary,omitempty"`
}

// DecodeTurnResponse parses raw model output into a TurnResponse.
// The model may wrap its JSON in code fences or prose; the first
// top-level JSON object found is used. Output with no decodable JSON
// object degrades to a plain-text reply with no requests, which keeps
// an unreliable collaborator from ever raising a decode error to the
// turn loop.
func DecodeTurnResponse(raw string) *TurnResponse {
	text := strings.TrimSpace(raw)

	if obj := extractJSONObject(text); obj != "" {
		var resp TurnResponse
		if err := json.Unmarshal([]byte(obj), &resp); err == nil && resp.UserMessage != "" {
			return &resp
		}
	}
	return &TurnResponse{UserMessage: text}
}

// extractJSONObject returns the first balanced top-level {...} block
// in s, respecting string literals, or "" if none exists.
func extractJSONObject(s string) string {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}
