package extractor

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"beatbook/models"
	"beatbook/services/intelligence"

	"go.uber.org/zap"
)

// Deterministic phase-1 patterns for low-ambiguity fields.
var (
	phoneRe = regexp.MustCompile(`\b(?:\+?65[ -]?)?[689]\d{3}[ -]?\d{4}\b`)
	emailRe = regexp.MustCompile(`\b[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}\b`)
)

// Extractor implements summary-triggered and progressive field
// extraction over conversation text.
type Extractor struct {
	cfg       Config
	completer intelligence.Completer
	logger    *zap.Logger
	now       func() time.Time
}

func New(cfg Config, completer intelligence.Completer, logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{cfg: cfg, completer: completer, logger: logger, now: time.Now}
}

// Triggers returns the configured commit trigger phrases.
func (e *Extractor) Triggers() []string {
	return e.cfg.CommitTriggers
}

// IsCommitTrigger reports whether text contains a configured commit
// trigger phrase.
func (e *Extractor) IsCommitTrigger(text string) bool {
	for _, trigger := range e.cfg.CommitTriggers {
		if strings.Contains(text, trigger) {
			return true
		}
	}
	return false
}

// ExtractFromSummary scans reply text for a booking summary and pulls
// out the configured fields. Returns nil when the text carries no
// summary indicator or when an essential field is missing, so a
// partial summary never becomes a pending snapshot.
func (e *Extractor) ExtractFromSummary(text string) models.BookingRecord {
	indicated := false
	for _, ind := range e.cfg.SummaryIndicators {
		if strings.Contains(text, ind) {
			indicated = true
			break
		}
	}
	if !indicated {
		return nil
	}

	rec := models.BookingRecord{}
	for _, field := range e.cfg.Fields {
		if field.Auto {
			continue
		}
		for _, pat := range field.Patterns {
			if m := pat.FindStringSubmatch(text); m != nil {
				rec[field.Label] = strings.TrimSpace(m[1])
				break
			}
		}
		if _, ok := rec[field.Label]; !ok && field.Required {
			rec[field.Label] = ""
		}
	}
	rec.Fill(e.now())

	if !rec.HasEssentials() {
		return nil
	}
	return rec
}

// ExtractProgressive runs the two-phase mid-conversation pass over the
// history window. Phase 1 applies deterministic rules; phase 2 asks
// the model only for fields still missing afterward. Existing
// non-empty values are never touched: only missing fields are filled.
// Any model failure degrades to returning what phase 1 found.
func (e *Extractor) ExtractProgressive(ctx context.Context, history []models.ChatMessage, existing models.BookingRecord) models.BookingRecord {
	userText := collectUserText(history)
	found := models.BookingRecord{}

	if missing(existing, found, models.FieldContact) {
		if m := phoneRe.FindString(userText); m != "" {
			found[models.FieldContact] = normalizePhone(m)
		}
	}
	if missing(existing, found, models.FieldEmail) {
		if m := emailRe.FindString(userText); m != "" {
			found[models.FieldEmail] = m
		}
	}

	wanted := e.missingModelFields(existing, found)
	if len(wanted) == 0 || e.completer == nil {
		return found
	}

	answer, err := e.completer.Complete(ctx, e.progressivePrompt(history, wanted))
	if err != nil {
		e.logger.Warn("Progressive extraction model pass failed", zap.Error(err))
		return found
	}
	for label, value := range parseKeyValues(answer, wanted) {
		found[label] = value
	}
	return found
}

// missingModelFields lists non-auto fields still absent after phase 1.
func (e *Extractor) missingModelFields(existing, found models.BookingRecord) []string {
	var wanted []string
	for _, field := range e.cfg.Fields {
		if field.Auto {
			continue
		}
		if missing(existing, found, field.Label) {
			wanted = append(wanted, field.Label)
		}
	}
	return wanted
}

func (e *Extractor) progressivePrompt(history []models.ChatMessage, wanted []string) string {
	var sb strings.Builder
	sb.WriteString("Extract booking information from this conversation.\n")
	sb.WriteString("Only extract the following fields: ")
	sb.WriteString(strings.Join(wanted, ", "))
	sb.WriteString("\n\nConversation:\n")
	for _, msg := range history {
		fmt.Fprintf(&sb, "%s: %s\n", msg.Role, msg.Text)
	}
	sb.WriteString("\nReturn one line per field you found, in the exact format:\n")
	sb.WriteString("Field Name: value\n")
	sb.WriteString("Skip any field the user has not provided. No explanation.")
	return sb.String()
}

// parseKeyValues parses a strict "Label: value" answer, accepting only
// labels that were explicitly requested and dropping empty or
// non-answer values.
func parseKeyValues(answer string, wanted []string) map[string]string {
	out := map[string]string{}
	for _, line := range strings.Split(answer, "\n") {
		idx := strings.Index(line, ":")
		if idx < 0 {
			continue
		}
		label := strings.TrimSpace(strings.Trim(strings.TrimSpace(line[:idx]), "-*•"))
		value := strings.TrimSpace(line[idx+1:])
		if value == "" || isNonAnswer(value) {
			continue
		}
		for _, w := range wanted {
			if strings.EqualFold(label, w) {
				out[w] = value
				break
			}
		}
	}
	return out
}

func isNonAnswer(v string) bool {
	switch strings.ToLower(strings.Trim(v, ".!")) {
	case "unknown", "n/a", "na", "none", "not provided", "not mentioned", "-":
		return true
	}
	return false
}

func missing(existing, found models.BookingRecord, label string) bool {
	return strings.TrimSpace(existing[label]) == "" && strings.TrimSpace(found[label]) == ""
}

func collectUserText(history []models.ChatMessage) string {
	var sb strings.Builder
	for _, msg := range history {
		if msg.Role == models.RoleUser {
			sb.WriteString(msg.Text)
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

func normalizePhone(s string) string {
	s = strings.NewReplacer(" ", "", "-", "").Replace(strings.TrimSpace(s))
	s = strings.TrimPrefix(s, "+")
	if len(s) > 8 {
		s = strings.TrimPrefix(s, "65")
	}
	return s
}
