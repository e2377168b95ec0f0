package chatbot

import (
	"fmt"
	"strings"

	"beatbook/models"
	"beatbook/services/dateparse"

	"go.uber.org/zap"
)

// validationExecutor evaluates turn-scoped validation requests before
// any action runs. Unknown request types pass with a logged warning so
// a newer model prompt cannot stall older deployments.
type validationExecutor struct {
	parser *dateparse.Parser
	logger *zap.Logger
}

// execute returns (true, "") on pass, or (false, errorMessage) with a
// user-facing corrective message on failure.
func (v *validationExecutor) execute(req models.ValidationRequest) (bool, string) {
	switch req.Type {
	case models.ValidationDate:
		return v.validateDate(req)
	default:
		v.logger.Warn("Unknown validation type, treating as pass",
			zap.String("type", string(req.Type)))
		return true, ""
	}
}

func (v *validationExecutor) validateDate(req models.ValidationRequest) (bool, string) {
	p, err := req.DateParams()
	if err != nil {
		v.logger.Warn("Undecodable validate_date params, treating as pass", zap.Error(err))
		return true, ""
	}
	if p.Date == "" || p.Timeslot == "" {
		// Missing parameters: nothing to check.
		return true, ""
	}

	date, ambiguous := v.parser.Parse(p.Date, v.parser.Today())
	if ambiguous {
		if looksLikeDate(p.Date) {
			return false, fmt.Sprintf(
				"I couldn't understand the date '%s'. Please provide a valid date format.", p.Date)
		}
		return false, fmt.Sprintf(
			"I couldn't parse '%s'. Please provide an explicit date (e.g., '21 Nov 2025' or '21/11/2025').", p.Date)
	}

	ok, reason := v.parser.ValidateAgainstSlot(date, p.Timeslot)
	if !ok {
		return false, reason
	}
	return true, ""
}

// looksLikeDate distinguishes malformed date attempts from outright
// vague expressions, so the corrective prompt can differ.
func looksLikeDate(text string) bool {
	if strings.ContainsAny(text, "0123456789") {
		return true
	}
	lower := strings.ToLower(text)
	for _, m := range []string{"jan", "feb", "mar", "apr", "may", "jun",
		"jul", "aug", "sep", "oct", "nov", "dec"} {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}
