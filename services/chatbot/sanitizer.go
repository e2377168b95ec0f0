package chatbot

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// BlockedInputMessage is the reply sent when input trips the injection filter.
const BlockedInputMessage = "I'm sorry, I can't process that message. Please rephrase your question. 😊"

// Substring-matched phrases that suggest a prompt-injection attempt.
// This is a best-effort heuristic filter, not a security boundary.
var suspiciousPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)ignore\s+(all\s+)?previous\s+instructions`),
	regexp.MustCompile(`(?i)ignore\s+(all\s+)?prior\s+instructions`),
	regexp.MustCompile(`(?i)disregard\s+(all\s+)?previous`),
	regexp.MustCompile(`(?i)forget\s+(all\s+)?previous`),
	regexp.MustCompile(`(?i)system\s*(message|prompt|instructions?)`),
	regexp.MustCompile(`(?i)you\s+are\s+now`),
	regexp.MustCompile(`(?i)pretend\s+to\s+be`),
	regexp.MustCompile(`(?i)forget\s+everything`),
	regexp.MustCompile(`(?i)\[INTERNAL\s*NOTE`),
	regexp.MustCompile(`(?i)\[COLLECTED\s*INFO`),
	regexp.MustCompile(`(?i)\[SYSTEM\]`),
	regexp.MustCompile(`(?i)---\s*SYSTEM`),
	regexp.MustCompile(`(?i)===\s*SYSTEM`),
	regexp.MustCompile(`BOOKING_CONFIRMED`),
	regexp.MustCompile(`(?i)repeat\s+your\s+(instructions?|prompt|rules)`),
	regexp.MustCompile(`(?i)what\s+(are|were)\s+your\s+instructions`),
	regexp.MustCompile(`(?i)show\s+me\s+your\s+(prompt|instructions|rules)`),
	regexp.MustCompile(`(?i)reveal\s+your\s+(prompt|instructions|system)`),
	regexp.MustCompile(`(?i)tell\s+me\s+your\s+(prompt|instructions|rules)`),
	regexp.MustCompile(`(?i)admin\s+mode`),
	regexp.MustCompile(`(?i)developer\s+(mode|access)`),
	regexp.MustCompile(`(?i)debug\s+mode`),
	regexp.MustCompile(`(?i)===\s*USER\s+MESSAGE`),
	regexp.MustCompile(`(?i)USER\s+MESSAGE\s+(START|END)`),
}

var (
	boldRe      = regexp.MustCompile(`\*\*+`)
	underlineRe = regexp.MustCompile(`__+`)
	newlinesRe  = regexp.MustCompile(`\n{3,}`)
)

// Sanitizer screens inbound user text before it reaches the model.
type Sanitizer struct {
	maxLength int
}

func NewSanitizer(maxLength int) *Sanitizer {
	if maxLength <= 0 {
		maxLength = 500
	}
	return &Sanitizer{maxLength: maxLength}
}

// IsSafe reports whether text is free of known injection patterns.
func (s *Sanitizer) IsSafe(text string) bool {
	if text == "" {
		return true
	}
	for _, re := range suspiciousPatterns {
		if re.MatchString(text) {
			return false
		}
	}
	return true
}

// Sanitize strips markup that could smuggle delimiters into the prompt
// and caps the length. Call only after IsSafe; unsafe input is blocked
// outright, not cleaned.
func (s *Sanitizer) Sanitize(text string) string {
	if text == "" {
		return text
	}
	text = strings.ReplaceAll(text, "```", "")
	text = boldRe.ReplaceAllString(text, "")
	text = underlineRe.ReplaceAllString(text, "")

	if len(text) > s.maxLength {
		cut := s.maxLength
		// Back off to a rune boundary so truncation never emits
		// invalid UTF-8.
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut]
	}
	text = newlinesRe.ReplaceAllString(text, "\n\n")

	var b strings.Builder
	for _, r := range text {
		if r >= 32 || r == '\n' || r == '\r' || r == '\t' {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}
