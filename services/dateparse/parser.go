// Package dateparse turns free-text date expressions into calendar
// dates and validates them against weekly time slots.
package dateparse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var daysOfWeek = map[string]time.Weekday{
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
	"sunday":    time.Sunday,
}

var monthNames = map[string]time.Month{
	"january": time.January, "jan": time.January,
	"february": time.February, "feb": time.February,
	"march": time.March, "mar": time.March,
	"april": time.April, "apr": time.April,
	"may":  time.May,
	"june": time.June, "jun": time.June,
	"july": time.July, "jul": time.July,
	"august": time.August, "aug": time.August,
	"september": time.September, "sept": time.September, "sep": time.September,
	"october": time.October, "oct": time.October,
	"november": time.November, "nov": time.November,
	"december": time.December, "dec": time.December,
}

const monthPattern = `january|february|march|april|may|june|july|august|september|october|november|december|jan|feb|mar|apr|jun|jul|aug|sept|sep|oct|nov|dec`

var (
	compactRe  = regexp.MustCompile(`^\d{8}$`)
	dayFirstRe = regexp.MustCompile(`(?i)\b(\d{1,2})(?:st|nd|rd|th)?\s+(?:of\s+)?(` + monthPattern + `)(?:\s+(\d{4}))?\b`)
	monthDayRe = regexp.MustCompile(`(?i)\b(` + monthPattern + `)\s+(\d{1,2})(?:st|nd|rd|th)?(?:\s+(\d{4}))?\b`)
	numericRe  = regexp.MustCompile(`\b(\d{1,2})[/\-.](\d{1,2})[/\-.](\d{4})\b`)
	shortNumRe = regexp.MustCompile(`\b(\d{1,2})[/\-.](\d{1,2})(?:\b|$)`)
	dayOnlyRe  = regexp.MustCompile(`(?i)\b(?:on\s+)?the\s+(\d{1,2})(?:st|nd|rd|th)\b`)
)

// Parser resolves free-text date expressions relative to a fixed
// business time zone, so "today" and "tomorrow" are deterministic
// regardless of caller machine locale.
type Parser struct {
	loc *time.Location
}

// NewParser builds a parser pinned to the given IANA time zone name.
func NewParser(tz string) (*Parser, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("load business timezone %q: %w", tz, err)
	}
	return &Parser{loc: loc}, nil
}

// Location returns the business time zone.
func (p *Parser) Location() *time.Location {
	return p.loc
}

// Today returns midnight of the current business-local day.
func (p *Parser) Today() time.Time {
	return midnight(time.Now().In(p.loc))
}

// Parse resolves text to a calendar date. A zero date with
// ambiguous=true means the expression was vague or unrecognized and
// the caller should re-prompt rather than guess.
//
// Parsing order: compact 8-digit DDMMYYYY, then deterministic relative
// expressions (today/tomorrow/this/next/bare weekday), then explicit
// month-name and numeric patterns.
func (p *Parser) Parse(text string, ref time.Time) (time.Time, bool) {
	norm := strings.ToLower(strings.TrimSpace(text))
	if norm == "" {
		return time.Time{}, true
	}
	ref = ref.In(p.loc)

	if compactRe.MatchString(norm) {
		if d, ok := parseCompact(norm, p.loc); ok {
			return d, false
		}
		return time.Time{}, true
	}

	if d, ok := p.parseRelative(norm, ref); ok {
		return d, false
	}

	if d, ok := p.parseExplicit(norm, ref); ok {
		return d, false
	}

	return time.Time{}, true
}

// parseCompact handles the canonical DDMMYYYY form.
func parseCompact(s string, loc *time.Location) (time.Time, bool) {
	day, _ := strconv.Atoi(s[0:2])
	month, _ := strconv.Atoi(s[2:4])
	year, _ := strconv.Atoi(s[4:8])
	return makeDate(year, time.Month(month), day, loc)
}

// parseRelative handles today/tomorrow and weekday expressions.
// "this <day>", "coming <day>" and a bare "<day>" resolve to the
// nearest future occurrence; "next <day>" is one full week after that.
func (p *Parser) parseRelative(text string, ref time.Time) (time.Time, bool) {
	if strings.Contains(text, "tomorrow") {
		return midnight(ref.AddDate(0, 0, 1)), true
	}
	if text == "today" || text == "tdy" {
		return midnight(ref), true
	}

	var target time.Weekday
	found := false
	for name, wd := range daysOfWeek {
		if strings.Contains(text, name) {
			target = wd
			found = true
			break
		}
	}
	if !found {
		return time.Time{}, false
	}

	daysAhead := int(target) - int(ref.Weekday())
	if strings.Contains(text, "next") && !strings.Contains(text, "next week") {
		if daysAhead <= 0 {
			daysAhead += 7
		}
		daysAhead += 7
	} else if daysAhead <= 0 {
		daysAhead += 7
	}
	return midnight(ref.AddDate(0, 0, daysAhead)), true
}

// parseExplicit handles month-name and numeric date patterns.
// Year-less dates default to the current year, promoted to next year
// if that would place them in the past. A bare "the 15th" promotes to
// next month instead.
func (p *Parser) parseExplicit(text string, ref time.Time) (time.Time, bool) {
	today := midnight(ref)

	if m := dayFirstRe.FindStringSubmatch(text); m != nil {
		day, _ := strconv.Atoi(m[1])
		month := monthNames[strings.ToLower(m[2])]
		return p.resolveYear(day, month, m[3], today)
	}

	if m := monthDayRe.FindStringSubmatch(text); m != nil {
		day, _ := strconv.Atoi(m[2])
		month := monthNames[strings.ToLower(m[1])]
		return p.resolveYear(day, month, m[3], today)
	}

	if m := numericRe.FindStringSubmatch(text); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		return makeDate(year, time.Month(month), day, p.loc)
	}

	if m := shortNumRe.FindStringSubmatch(text); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		return p.resolveYear(day, time.Month(month), "", today)
	}

	if m := dayOnlyRe.FindStringSubmatch(text); m != nil {
		day, _ := strconv.Atoi(m[1])
		year, month := today.Year(), today.Month()
		d, ok := makeDate(year, month, day, p.loc)
		if !ok || d.Before(today) {
			// Day has passed this month (or does not exist in it);
			// roll to the next month.
			month++
			if month > time.December {
				month = time.January
				year++
			}
			d, ok = makeDate(year, month, day, p.loc)
			if !ok {
				return time.Time{}, false
			}
		}
		return d, true
	}

	return time.Time{}, false
}

// resolveYear applies the current-year-else-next-year rule for
// year-less dates.
func (p *Parser) resolveYear(day int, month time.Month, yearStr string, today time.Time) (time.Time, bool) {
	if yearStr != "" {
		year, _ := strconv.Atoi(yearStr)
		return makeDate(year, month, day, p.loc)
	}
	d, ok := makeDate(today.Year(), month, day, p.loc)
	if !ok {
		return time.Time{}, false
	}
	if d.Before(today) {
		return makeDate(today.Year()+1, month, day, p.loc)
	}
	return d, true
}

// makeDate builds a midnight date, rejecting out-of-range components
// (time.Date would silently normalize them).
func makeDate(year int, month time.Month, day int, loc *time.Location) (time.Time, bool) {
	if month < time.January || month > time.December || day < 1 || day > 31 || year < 1 {
		return time.Time{}, false
	}
	d := time.Date(year, month, day, 0, 0, 0, 0, loc)
	if d.Day() != day || d.Month() != month {
		return time.Time{}, false
	}
	return d, true
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
