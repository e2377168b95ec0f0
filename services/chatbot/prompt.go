package chatbot

import (
	"fmt"
	"sort"
	"strings"

	"beatbook/models"
	"beatbook/services/dateparse"
)

// BusinessProfile is the static conversational context injected into
// every model call.
type BusinessProfile struct {
	BusinessName string
	BotName      string
	Location     string
	TimeSlots    []string
}

const responseFormatRules = `RESPONSE FORMAT:
Reply with a single JSON object, nothing else:
{
  "user_message": "<the reply to show the parent>",
  "validations": [{"type": "validate_date", "params": {"date": "<their date text>", "timeslot": "<chosen slot>"}}],
  "actions": [{"type": "extract_booking_data" | "book_to_sheets" | "update_booking_state", "params": {...}}],
  "booking_summary": "<optional summary of collected info>"
}
- Request "validate_date" whenever the parent gives a date for their chosen slot. If it fails, the error comes back to you; apologize and re-ask.
- Request "update_booking_state" when the parent picks a slot, confirms a date, or accepts a trial. Params: timeslot, date, date_confirmed, trial_accepted, stage (browsing, selecting_timeslot, scheduling_date, collecting_info, confirming, committed).
- When the parent confirms the final summary, say the booking is locked in, include the phrase BOOKING_CONFIRMED nowhere, and request "book_to_sheets".
- Leave validations and actions empty for ordinary chat.`

// buildSystemPrompt assembles the flow rules and business context for
// one turn.
func buildSystemPrompt(profile BusinessProfile, parser *dateparse.Parser) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are %s, the friendly booking assistant for %s.\n\n", profile.BotName, profile.BusinessName)
	b.WriteString("FLOW RULES:\n")
	b.WriteString("1. Help parents find a class for their child, then guide them to book a trial.\n")
	b.WriteString("2. Ask ONE question at a time. Keep replies SHORT (1-2 sentences unless listing options).\n")
	b.WriteString("3. Be warm and cheerful, use emojis 😊✨🎤\n")
	b.WriteString("4. Collect, in order: time slot, date, parent name, child name, child age, contact number, email.\n")
	b.WriteString("5. Always check [COLLECTED INFO] notes. NEVER ask for information already collected.\n")
	b.WriteString("6. Before finalizing, show a summary starting with 'Booking Details:' listing every field as 'Label: value' lines, and ask the parent to confirm.\n\n")

	if len(profile.TimeSlots) > 0 {
		b.WriteString("AVAILABLE TIME SLOTS:\n")
		for _, slot := range profile.TimeSlots {
			fmt.Fprintf(&b, "- %s\n", slot)
		}
		b.WriteString("\n")
	}
	if profile.Location != "" {
		fmt.Fprintf(&b, "LOCATION: %s\n\n", profile.Location)
	}

	today := parser.Today()
	fmt.Fprintf(&b, "Today is %s. Dates the parent gives are interpreted in %s time.\n\n",
		dateparse.ToReadable(today), parser.Location())

	b.WriteString(responseFormatRules)
	return b.String()
}

// buildTurnPrompt renders history plus the current message and context
// hints into the completion prompt.
func buildTurnPrompt(system string, history []models.ChatMessage, message, contextHint string) string {
	var b strings.Builder
	b.WriteString(system)
	b.WriteString("\n\nCONVERSATION SO FAR:\n")
	for _, m := range history {
		switch m.Role {
		case models.RoleUser:
			fmt.Fprintf(&b, "Parent: %s\n", m.Text)
		case models.RoleBot:
			fmt.Fprintf(&b, "You: %s\n", m.Text)
		}
	}
	fmt.Fprintf(&b, "\nParent: %s%s\n", message, contextHint)
	b.WriteString("\nRespond with the JSON object now.")
	return b.String()
}

// contextHints builds the turn-scoped [INTERNAL NOTE]/[COLLECTED INFO]
// suffix appended to the inbound message.
func contextHints(collected models.BookingRecord, suggestBooking bool) string {
	var b strings.Builder
	if suggestBooking {
		b.WriteString("\n[INTERNAL NOTE: Consider casually suggesting booking a trial if appropriate]")
	}
	if len(collected) > 0 {
		keys := make([]string, 0, len(collected))
		for k, v := range collected {
			if v != "" {
				keys = append(keys, k)
			}
		}
		if len(keys) > 0 {
			sort.Strings(keys)
			items := make([]string, 0, len(keys))
			for _, k := range keys {
				items = append(items, fmt.Sprintf("%s: %s", k, collected[k]))
			}
			b.WriteString("\n[COLLECTED INFO: " + strings.Join(items, ", ") + "]")
			b.WriteString("\n[IMPORTANT: Don't ask for information already collected above. Use it when needed.]")
		}
	}
	return b.String()
}
