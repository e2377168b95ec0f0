package extractor

import (
	"context"
	"errors"
	"testing"
	"time"

	"beatbook/models"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeCompleter struct {
	answer string
	err    error
	prompt string
}

func (f *fakeCompleter) Complete(_ context.Context, prompt string) (string, error) {
	f.prompt = prompt
	return f.answer, f.err
}

func newTestExtractor(completer *fakeCompleter) *Extractor {
	e := New(DefaultConfig(nil), nil, zap.NewNop())
	if completer != nil {
		e.completer = completer
	}
	e.now = func() time.Time { return time.Date(2025, time.November, 3, 14, 30, 0, 0, time.UTC) }
	return e
}

func TestNilLoggerSurvivesModelFailure(t *testing.T) {
	e := New(DefaultConfig(nil), &fakeCompleter{err: errors.New("model down")}, nil)

	history := []models.ChatMessage{
		{Role: models.RoleUser, Text: "my number is 91234567"},
	}
	found := e.ExtractProgressive(context.Background(), history, nil)
	require.Equal(t, "91234567", found[models.FieldContact])
}

const summaryReply = `Great! Here's what I have 😊

Booking Details:
Parent Name: Sarah Tan
Child Name: Leo
Child Age: 7
Contact: 91234567
Email: sarah@example.com
Timeslot: Friday 3-4pm
Date: 14/11/2025
Location: Bukit Timah Studio

Shall I confirm this?`

func TestExtractFromSummary(t *testing.T) {
	e := newTestExtractor(nil)

	rec := e.ExtractFromSummary(summaryReply)
	require.NotNil(t, rec)
	require.Equal(t, "Sarah Tan", rec[models.FieldParentName])
	require.Equal(t, "Leo", rec[models.FieldChildName])
	require.Equal(t, "7", rec[models.FieldChildAge])
	require.Equal(t, "91234567", rec[models.FieldContact])
	require.Equal(t, "sarah@example.com", rec[models.FieldEmail])
	require.Equal(t, "Friday 3-4pm", rec[models.FieldTimeslot])
	require.Equal(t, "14/11/2025", rec[models.FieldDate])
	require.Equal(t, "Bukit Timah Studio", rec[models.FieldLocation])
	require.Equal(t, "2025-11-03 14:30:00", rec[models.FieldTimestamp])
}

func TestExtractFromSummaryNoIndicator(t *testing.T) {
	e := newTestExtractor(nil)
	require.Nil(t, e.ExtractFromSummary("Parent Name: Sarah Tan\nContact: 91234567"))
}

func TestExtractFromSummaryMissingEssentials(t *testing.T) {
	e := newTestExtractor(nil)
	// No contact: summary must be rejected, not stored half-filled.
	rec := e.ExtractFromSummary("Booking Details:\nParent Name: Sarah Tan\nChild Name: Leo")
	require.Nil(t, rec)
}

func TestExtractFromSummaryAlternateLabels(t *testing.T) {
	e := newTestExtractor(nil)
	rec := e.ExtractFromSummary("Booking Details:\nParent Name: Maya\nStudent Name: Ana\nAge: 9\nContact: 81112222")
	require.NotNil(t, rec)
	require.Equal(t, "Ana", rec[models.FieldChildName])
	require.Equal(t, "9", rec[models.FieldChildAge])
}

func TestIsCommitTrigger(t *testing.T) {
	e := newTestExtractor(nil)
	require.True(t, e.IsCommitTrigger("All set! BOOKING_CONFIRMED"))
	require.False(t, e.IsCommitTrigger("your booking is confirmed"))
}

func history(texts ...string) []models.ChatMessage {
	var h []models.ChatMessage
	for i, txt := range texts {
		role := models.RoleUser
		if i%2 == 1 {
			role = models.RoleBot
		}
		h = append(h, models.ChatMessage{Role: role, Text: txt})
	}
	return h
}

func TestExtractProgressivePhaseOne(t *testing.T) {
	e := newTestExtractor(&fakeCompleter{answer: ""})

	h := history(
		"hi, I'd like to book a trial",
		"Sure! What's your contact number?",
		"it's 9123 4567 and my email is sarah@example.com",
	)
	found := e.ExtractProgressive(context.Background(), h, models.BookingRecord{})
	require.Equal(t, "91234567", found[models.FieldContact])
	require.Equal(t, "sarah@example.com", found[models.FieldEmail])
}

func TestExtractProgressiveNeverOverwrites(t *testing.T) {
	e := newTestExtractor(&fakeCompleter{answer: ""})

	existing := models.BookingRecord{models.FieldContact: "91234567"}
	h := history("actually call me at 98887777 instead")
	found := e.ExtractProgressive(context.Background(), h, existing)
	_, ok := found[models.FieldContact]
	require.False(t, ok)
	require.Equal(t, "91234567", existing[models.FieldContact])
}

func TestExtractProgressiveNormalizesCountryCode(t *testing.T) {
	e := newTestExtractor(&fakeCompleter{answer: ""})
	h := history("reach me at +65 9123 4567")
	found := e.ExtractProgressive(context.Background(), h, models.BookingRecord{})
	require.Equal(t, "91234567", found[models.FieldContact])
}

func TestExtractProgressivePhaseTwo(t *testing.T) {
	fake := &fakeCompleter{answer: "Parent Name: Sarah Tan\nChild Age: 7\nEmail: unknown\nFavourite Colour: blue"}
	e := newTestExtractor(fake)

	h := history("I'm Sarah Tan, booking for my 7 year old")
	found := e.ExtractProgressive(context.Background(), h, models.BookingRecord{})

	require.Equal(t, "Sarah Tan", found[models.FieldParentName])
	require.Equal(t, "7", found[models.FieldChildAge])
	// Non-answers and unrequested labels are dropped.
	_, ok := found[models.FieldEmail]
	require.False(t, ok)
	_, ok = found["Favourite Colour"]
	require.False(t, ok)

	// The model is only asked for fields still missing after phase 1.
	require.Contains(t, fake.prompt, models.FieldParentName)
	require.NotContains(t, fake.prompt, "Timestamp")
}

func TestExtractProgressiveModelFailureDegrades(t *testing.T) {
	fake := &fakeCompleter{err: errors.New("model down")}
	e := newTestExtractor(fake)

	h := history("my number is 91234567")
	found := e.ExtractProgressive(context.Background(), h, models.BookingRecord{})
	// Phase 1 results survive a phase 2 failure.
	require.Equal(t, "91234567", found[models.FieldContact])
	require.Len(t, found, 1)
}

func TestParseKeyValues(t *testing.T) {
	wanted := []string{"Parent Name", "Contact"}
	out := parseKeyValues("- parent name: Sarah\nContact: \nNotes: something", wanted)
	require.Equal(t, map[string]string{"Parent Name": "Sarah"}, out)
}
