package models

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"time"
)

// Booking field labels. These double as the column headers in the
// external booking log, so they are spelled the way the sheet expects.
const (
	FieldParentName = "Parent Name"
	FieldChildName  = "Child Name"
	FieldChildAge   = "Child Age"
	FieldContact    = "Contact"
	FieldEmail      = "Email"
	FieldTimeslot   = "Timeslot"
	FieldDate       = "Date"
	FieldLocation   = "Location"
	FieldTimestamp  = "Timestamp"
)

// BookingColumns is the fixed column order for the booking log.
var BookingColumns = []string{
	FieldParentName,
	FieldChildName,
	FieldChildAge,
	FieldContact,
	FieldEmail,
	FieldTimeslot,
	FieldDate,
	FieldLocation,
	FieldTimestamp,
}

// EssentialFields must be present and non-empty before a record is
// commit-eligible.
var EssentialFields = []string{FieldParentName, FieldContact}

// BookingRecord is a (possibly partial) set of booking fields keyed by label.
type BookingRecord map[string]string

// Clone returns a deep copy, or nil for a nil record.
func (r BookingRecord) Clone() BookingRecord {
	if r == nil {
		return nil
	}
	out := make(BookingRecord, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// HasEssentials reports whether every essential field is non-empty.
func (r BookingRecord) HasEssentials() bool {
	for _, f := range EssentialFields {
		if strings.TrimSpace(r[f]) == "" {
			return false
		}
	}
	return true
}

// Fill ensures every known column exists, using empty strings for
// missing values, and stamps the timestamp if absent.
func (r BookingRecord) Fill(now time.Time) {
	for _, col := range BookingColumns {
		if _, ok := r[col]; !ok {
			r[col] = ""
		}
	}
	if r[FieldTimestamp] == "" {
		r[FieldTimestamp] = now.Format("2006-01-02 15:04:05")
	}
}

// Row renders the record in fixed column order for the log sink.
// Missing fields become empty strings, never a placeholder token.
func (r BookingRecord) Row() []interface{} {
	row := make([]interface{}, len(BookingColumns))
	for i, col := range BookingColumns {
		row[i] = r[col]
	}
	return row
}

// IdempotencyKey derives a stable commit key from the session and the
// snapshot contents, excluding the auto-generated timestamp so a
// retried commit of the same snapshot hashes identically.
func (r BookingRecord) IdempotencyKey(sessionID string) string {
	keys := make([]string, 0, len(r))
	for k := range r {
		if k == FieldTimestamp {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	h := sha256.New()
	h.Write([]byte(sessionID))
	for _, k := range keys {
		h.Write([]byte{0})
		h.Write([]byte(k))
		h.Write([]byte{1})
		h.Write([]byte(r[k]))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// BookingLogEntry is the archived form of a committed booking.
type BookingLogEntry struct {
	ID             string        `bson:"_id" json:"id"`
	IdempotencyKey string        `bson:"idempotencyKey" json:"idempotencyKey"`
	SessionID      string        `bson:"sessionId" json:"sessionId"`
	Record         BookingRecord `bson:"record" json:"record"`
	CommittedAt    time.Time     `bson:"committedAt" json:"committedAt"`
}
