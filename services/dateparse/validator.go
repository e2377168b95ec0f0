package dateparse

import (
	"fmt"
	"strings"
	"time"
)

// ValidateAgainstSlot checks that date is not before the current
// business day and that its weekday matches the weekday encoded in the
// time-slot label (e.g. "Friday 3-4pm"). On failure the reason names
// the constraint so the caller can form a corrective prompt.
func (p *Parser) ValidateAgainstSlot(date time.Time, slotLabel string) (bool, string) {
	return p.validateAgainstSlotAt(date, slotLabel, p.Today())
}

func (p *Parser) validateAgainstSlotAt(date time.Time, slotLabel string, today time.Time) (bool, string) {
	date = midnight(date.In(p.loc))
	if date.Before(today) {
		return false, "Date is in the past. Please choose a future date."
	}

	expected, ok := SlotWeekday(slotLabel)
	if !ok {
		// No weekday in the slot label means there is nothing to check.
		return true, ""
	}

	if date.Weekday() != expected {
		return false, fmt.Sprintf("Date is %s but timeslot is %s. Please choose a %s.",
			date.Weekday(), expected, expected)
	}
	return true, ""
}

// SlotWeekday extracts the weekday encoded in a time-slot label.
func SlotWeekday(slotLabel string) (time.Weekday, bool) {
	lower := strings.ToLower(slotLabel)
	for name, wd := range daysOfWeek {
		if strings.Contains(lower, name) {
			return wd, true
		}
	}
	return 0, false
}

// ToCanonical renders a date in the compact DDMMYYYY form.
func ToCanonical(date time.Time) string {
	return date.Format("02012006")
}

// ToReadable renders a date as e.g. "Friday, 15th November 2025".
func ToReadable(date time.Time) string {
	return fmt.Sprintf("%s, %d%s %s %d",
		date.Weekday(), date.Day(), ordinalSuffix(date.Day()), date.Month(), date.Year())
}

func ordinalSuffix(day int) string {
	if day%100 >= 10 && day%100 <= 20 {
		return "th"
	}
	switch day % 10 {
	case 1:
		return "st"
	case 2:
		return "nd"
	case 3:
		return "rd"
	default:
		return "th"
	}
}
