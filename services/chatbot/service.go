package chatbot

import (
	"context"
	"fmt"
	"strings"

	"beatbook/models"
	"beatbook/utils"

	"go.uber.org/zap"
)

const apologyReply = "Sorry, something went wrong on my end! 😅 Could you send that again?"

const leakFallbackReply = "Sorry, I got a bit muddled there! 😅 Could you say that again?"

// Phrases from the prompt scaffolding that must never reach the user.
// A reply containing any of them is replaced wholesale.
var leakDenylist = []string{
	"[INTERNAL NOTE",
	"[COLLECTED INFO",
	"[IMPORTANT:",
	"FLOW RULES",
	"RESPONSE FORMAT",
	"AVAILABLE TIME SLOTS",
	"\"user_message\"",
	"validate_date",
	"book_to_sheets",
	"update_booking_state",
}

// ProcessMessage runs one conversation turn: escalation short-circuit,
// input screening, rate limiting, scheduled extraction, model call,
// validations, actions, summary capture, commit trigger, leak scan,
// history append. Turns for one session serialize on the session lock.
func (s *DefaultChatbotService) ProcessMessage(ctx context.Context, msg InboundMessage) (string, error) {
	logger := utils.GetLogger()

	unlock := s.sessions.Lock(msg.SessionID)
	defer unlock()

	// Special cases route straight to a human without touching booking state.
	if category, reply, ok := detectEscalation(msg.Text); ok {
		s.escalate(ctx, msg, category)
		if err := s.sessions.AppendTurn(ctx, msg.SessionID, msg.Text, reply); err != nil {
			logger.Warn("Failed to record escalation turn", zap.Error(err), zap.String("sessionID", msg.SessionID))
		}
		return reply, nil
	}

	if !s.sanitizer.IsSafe(msg.Text) {
		logger.Warn("Blocked suspicious input",
			zap.String("sessionID", msg.SessionID), zap.String("handle", msg.Handle))
		if err := s.sessions.TrackSuspicious(ctx, msg.SessionID, "prompt_injection"); err != nil {
			logger.Warn("Failed to track suspicious input", zap.Error(err))
		}
		return BlockedInputMessage, nil
	}
	text := s.sanitizer.Sanitize(msg.Text)
	if text == "" {
		return fmt.Sprintf("Hey %s! How can I help you today? 😊", msg.Name), nil
	}

	if limited, err := s.sessions.CheckRateLimit(ctx, msg.SessionID); err != nil {
		return "", fmt.Errorf("rate limit check: %w", err)
	} else if limited != "" {
		return limited, nil
	}

	count, err := s.sessions.IncrementMessageCount(ctx, msg.SessionID)
	if err != nil {
		return "", fmt.Errorf("increment message count: %w", err)
	}

	// Scheduled extraction runs before reply generation so freshly
	// extracted facts are visible to the model through [COLLECTED INFO].
	if s.opts.ExtractionCadence > 0 && count%s.opts.ExtractionCadence == 0 {
		if ok, _ := s.actions.execute(ctx, models.ActionRequest{Type: models.ActionExtractBookingData}, msg.SessionID); !ok {
			logger.Warn("Scheduled extraction failed", zap.String("sessionID", msg.SessionID))
		}
	}

	history, err := s.sessions.GetHistory(ctx, msg.SessionID)
	if err != nil {
		return "", fmt.Errorf("load history: %w", err)
	}
	collected, err := s.sessions.GetCollectedFields(ctx, msg.SessionID)
	if err != nil {
		return "", fmt.Errorf("load collected fields: %w", err)
	}

	suggest := s.opts.SuggestionFrequency > 0 && count%s.opts.SuggestionFrequency == 0
	prompt := buildTurnPrompt(buildSystemPrompt(s.opts.Profile, s.parser), history, text, contextHints(collected, suggest))

	raw, err := s.completer.Complete(ctx, prompt)
	if err != nil {
		logger.Error("Model completion failed", zap.Error(err), zap.String("sessionID", msg.SessionID))
		return apologyReply, nil
	}

	resp := models.DecodeTurnResponse(raw)
	reply := resp.UserMessage

	// All validations run before any action. The first failure turns
	// the reply into a corrective re-prompt and skips every action.
	validationFailed := false
	for _, v := range resp.Validations {
		if ok, errMsg := s.validator.execute(v); !ok {
			reply = reply + "\n\n⚠️ " + errMsg
			validationFailed = true
			break
		}
	}

	if !validationFailed {
		committed := false
		for _, a := range resp.Actions {
			ok, errMsg := s.actions.execute(ctx, a, msg.SessionID)
			if a.Type == models.ActionCommitBooking {
				committed = true
				if !ok {
					// A failed commit must be surfaced, not papered over.
					reply = errMsg
				}
			}
		}

		// A recognizable summary freezes the pending snapshot. The
		// dedicated booking_summary field wins when present; otherwise
		// the reply text is scanned. Summary values win over
		// progressively collected ones.
		rec := s.extractor.ExtractFromSummary(resp.BookingSummary)
		if rec == nil {
			rec = s.extractor.ExtractFromSummary(reply)
		}
		if rec != nil {
			pending := collected.Clone()
			if pending == nil {
				pending = models.BookingRecord{}
			}
			for k, v := range rec {
				if v != "" {
					pending[k] = v
				}
			}
			if err := s.sessions.SetPending(ctx, msg.SessionID, pending); err != nil {
				logger.Error("Failed to store pending booking", zap.Error(err), zap.String("sessionID", msg.SessionID))
			}
		}

		// The trigger phrase only drives a commit when no book_to_sheets
		// action ran this turn, so a turn requesting both commits once.
		if s.extractor.IsCommitTrigger(reply) {
			ok, errMsg := true, ""
			if !committed {
				ok, errMsg = s.actions.execute(ctx, models.ActionRequest{Type: models.ActionCommitBooking}, msg.SessionID)
			}
			reply = stripCommitTriggers(reply, s.extractor.Triggers())
			if !ok {
				reply = reply + "\n\n⚠️ " + errMsg
			}
		}
	}

	if leaked(reply) {
		logger.Warn("Reply leaked internal scaffolding, replaced with fallback",
			zap.String("sessionID", msg.SessionID))
		reply = leakFallbackReply
	}

	if err := s.sessions.AppendTurn(ctx, msg.SessionID, text, reply); err != nil {
		return "", fmt.Errorf("append turn: %w", err)
	}
	return reply, nil
}

// ClearSession destroys all conversation state for the session key.
// It takes the session lock so a clear cannot interleave with an
// in-flight turn and be undone by that turn's later saves.
func (s *DefaultChatbotService) ClearSession(ctx context.Context, sessionID string) error {
	unlock := s.sessions.Lock(sessionID)
	defer unlock()
	return s.sessions.Clear(ctx, sessionID)
}

// escalate hands the conversation to a human moderator. Delivery is
// best effort; a down notifier never blocks the canned reply.
func (s *DefaultChatbotService) escalate(ctx context.Context, msg InboundMessage, category string) {
	if s.notifier == nil {
		return
	}
	logger := utils.GetLogger()

	history, err := s.sessions.GetHistory(ctx, msg.SessionID)
	if err != nil {
		logger.Warn("Escalation could not load history", zap.Error(err), zap.String("sessionID", msg.SessionID))
	}
	collected, err := s.sessions.GetCollectedFields(ctx, msg.SessionID)
	if err != nil {
		logger.Warn("Escalation could not load collected fields", zap.Error(err), zap.String("sessionID", msg.SessionID))
	}

	if collected == nil {
		collected = models.BookingRecord{}
	}
	collected["Name"] = firstNonEmpty(msg.Name, collected["Name"])
	collected["Handle"] = firstNonEmpty(msg.Handle, collected["Handle"])

	payload := models.EscalationPayload{
		SessionID: msg.SessionID,
		Category:  category,
		Message:   msg.Text,
		Collected: collected,
		History:   historyDigest(history, 6),
	}

	if err := s.notifier.Escalate(ctx, payload); err != nil {
		logger.Error("Failed to enqueue escalation", zap.Error(err), zap.String("sessionID", msg.SessionID))
	}
}

func historyDigest(history []models.ChatMessage, n int) []string {
	if len(history) > n {
		history = history[len(history)-n:]
	}
	digest := make([]string, 0, len(history))
	for _, m := range history {
		digest = append(digest, m.Role+": "+m.Text)
	}
	return digest
}

func stripCommitTriggers(reply string, triggers []string) string {
	for _, t := range triggers {
		reply = strings.ReplaceAll(reply, t, "")
	}
	return strings.TrimSpace(reply)
}

func leaked(reply string) bool {
	for _, phrase := range leakDenylist {
		if strings.Contains(reply, phrase) {
			return true
		}
	}
	return false
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
