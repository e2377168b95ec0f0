package chatbot

import "strings"

// Escalation categories routed to a human moderator.
const (
	EscalationPerformance  = "performance"
	EscalationPrivateClass = "private_class"
	EscalationHumanRequest = "human_request"
)

var performanceKeywords = []string{
	"performance", "perform at", "corporate", "wedding", "gig",
	"hire you", "hire the", "event booking", "birthday party",
}

var privateClassKeywords = []string{
	"private class", "private lesson", "1-on-1", "one-on-one",
	"one on one", "one to one", "individual class", "individual lesson",
}

var humanRequestKeywords = []string{
	"speak to a human", "talk to a human", "real person",
	"speak to someone", "talk to staff", "speak to staff",
}

// detectEscalation checks for enquiries the bot is not allowed to
// handle. It returns the escalation category and the canned handoff
// reply, or ok=false for normal conversation.
func detectEscalation(message string) (category, reply string, ok bool) {
	lower := strings.ToLower(message)

	for _, kw := range performanceKeywords {
		if strings.Contains(lower, kw) {
			return EscalationPerformance,
				"Let me connect you with our artist manager Ryan who handles performances! 🎤 He'll be in touch with you shortly via WhatsApp. 😊",
				true
		}
	}
	for _, kw := range privateClassKeywords {
		if strings.Contains(lower, kw) {
			return EscalationPrivateClass,
				"Great! For private 1-on-1 classes, we'll need to discuss your specific needs and schedule. 😊 A team member will contact you via WhatsApp to arrange the details!",
				true
		}
	}
	for _, kw := range humanRequestKeywords {
		if strings.Contains(lower, kw) {
			return EscalationHumanRequest,
				"I'll connect you with our team who can help you with this! They'll be in touch via WhatsApp shortly. 😊",
				true
		}
	}
	return "", "", false
}
