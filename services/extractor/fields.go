// Package extractor pulls booking fields out of conversation text,
// using fast pattern rules first and a constrained model pass for
// whatever the patterns cannot resolve.
package extractor

import (
	"regexp"

	"beatbook/models"
)

// FieldSpec declares how one booking field is recognized.
type FieldSpec struct {
	Label     string           // canonical field label (also the log column)
	Patterns  []*regexp.Regexp // summary-line patterns, first match wins
	Required  bool             // filled with an empty placeholder when missing
	Auto      bool             // generated at extraction time, never matched
	Essential bool             // summary result rejected unless non-empty
}

// Config is the field table plus the trigger phrases.
type Config struct {
	Fields            []FieldSpec
	SummaryIndicators []string
	CommitTriggers    []string
}

func summaryLine(labels string) *regexp.Regexp {
	// Captures up to the next line break or bullet marker.
	return regexp.MustCompile(`(?i)(?:` + labels + `):[ \t]*([^\n•]+)`)
}

// DefaultConfig matches the booking summary format the conversation
// rules ask the model to produce.
func DefaultConfig(commitTriggers []string) Config {
	if len(commitTriggers) == 0 {
		commitTriggers = []string{"BOOKING_CONFIRMED"}
	}
	return Config{
		SummaryIndicators: []string{"Booking Details:", "📝"},
		CommitTriggers:    commitTriggers,
		Fields: []FieldSpec{
			{Label: models.FieldParentName, Patterns: []*regexp.Regexp{summaryLine(`Parent Name`)}, Required: true, Essential: true},
			{Label: models.FieldChildName, Patterns: []*regexp.Regexp{summaryLine(`Child Name|Student Name`)}, Required: true},
			{Label: models.FieldChildAge, Patterns: []*regexp.Regexp{summaryLine(`Child Age|Age`)}, Required: true},
			{Label: models.FieldContact, Patterns: []*regexp.Regexp{summaryLine(`Contact`)}, Required: true, Essential: true},
			{Label: models.FieldEmail, Patterns: []*regexp.Regexp{summaryLine(`Email`)}, Required: true},
			{Label: models.FieldTimeslot, Patterns: []*regexp.Regexp{summaryLine(`Timeslot`)}, Required: true},
			{Label: models.FieldDate, Patterns: []*regexp.Regexp{summaryLine(`Date`)}, Required: true},
			{Label: models.FieldLocation, Patterns: []*regexp.Regexp{summaryLine(`Location`)}, Required: true},
			{Label: models.FieldTimestamp, Auto: true, Required: true},
		},
	}
}
