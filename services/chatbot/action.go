package chatbot

import (
	"context"
	"fmt"
	"time"

	bookinglogRepo "beatbook/database/repository/bookinglog"
	"beatbook/models"
	"beatbook/services/extractor"
	"beatbook/services/session"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RowAppender is the external log sink: one append-only row per
// committed booking.
type RowAppender interface {
	AppendRow(ctx context.Context, rec models.BookingRecord) error
}

// actionExecutor performs the state-mutating effects a turn requests,
// after all validations pass.
type actionExecutor struct {
	sessions  *session.Manager
	extractor *extractor.Extractor
	archive   bookinglogRepo.BookingLogRepository
	sink      RowAppender
	logger    *zap.Logger
	now       func() time.Time
}

// execute runs one action request. A false return carries a user-facing
// failure message; failures never leave partial side effects behind.
func (a *actionExecutor) execute(ctx context.Context, req models.ActionRequest, sessionID string) (bool, string) {
	switch req.Type {
	case models.ActionExtractBookingData:
		return a.extractBookingData(ctx, sessionID)
	case models.ActionCommitBooking:
		return a.commitBooking(ctx, req, sessionID)
	case models.ActionUpdateBookingState:
		return a.updateBookingState(ctx, req, sessionID)
	default:
		a.logger.Warn("Unknown action type",
			zap.String("type", string(req.Type)), zap.String("sessionID", sessionID))
		return false, fmt.Sprintf("Unknown action type: %s", req.Type)
	}
}

func (a *actionExecutor) extractBookingData(ctx context.Context, sessionID string) (bool, string) {
	history, err := a.sessions.GetHistory(ctx, sessionID)
	if err != nil {
		a.logger.Error("Extract action failed to load history", zap.Error(err), zap.String("sessionID", sessionID))
		return false, "Failed to extract booking data"
	}
	collected, err := a.sessions.GetCollectedFields(ctx, sessionID)
	if err != nil {
		a.logger.Error("Extract action failed to load collected fields", zap.Error(err), zap.String("sessionID", sessionID))
		return false, "Failed to extract booking data"
	}

	found := a.extractor.ExtractProgressive(ctx, history, collected)
	if len(found) == 0 {
		return true, ""
	}
	if _, err := a.sessions.MergeCollectedFields(ctx, sessionID, found); err != nil {
		a.logger.Error("Extract action failed to merge fields", zap.Error(err), zap.String("sessionID", sessionID))
		return false, "Failed to extract booking data"
	}
	a.logger.Info("Progressive extraction merged fields",
		zap.String("sessionID", sessionID), zap.Int("newFields", len(found)))
	return true, ""
}

// commitBooking writes the booking to the archive and the log sink.
// The pending snapshot is re-fetched at execution time rather than
// captured earlier in the turn, so a concurrent session reset cannot
// resurrect stale data. The archive insert carries a unique idempotency
// key; a duplicate key means this exact booking was already committed,
// and the call succeeds without a second sink append.
func (a *actionExecutor) commitBooking(ctx context.Context, req models.ActionRequest, sessionID string) (bool, string) {
	params, err := req.CommitParams()
	if err != nil {
		a.logger.Warn("Undecodable book_to_sheets params", zap.Error(err), zap.String("sessionID", sessionID))
		return false, "No booking data available to write to sheets"
	}

	rec := params.BookingData
	if len(rec) == 0 {
		rec, err = a.sessions.GetPending(ctx, sessionID)
		if err != nil {
			a.logger.Error("Commit failed to load pending snapshot", zap.Error(err), zap.String("sessionID", sessionID))
			return false, "Failed to save your booking. Please try again."
		}
	}
	if len(rec) == 0 {
		return false, "No booking data available to write to sheets"
	}

	rec = rec.Clone()
	rec.Fill(a.now())

	key := rec.IdempotencyKey(sessionID)
	entry := models.BookingLogEntry{
		ID:             uuid.New().String(),
		IdempotencyKey: key,
		SessionID:      sessionID,
		Record:         rec,
		CommittedAt:    a.now(),
	}

	already, err := a.archive.InsertUnique(ctx, entry)
	if err != nil {
		a.logger.Error("Commit failed to archive booking", zap.Error(err), zap.String("sessionID", sessionID))
		return false, "Failed to save your booking. Please try again."
	}

	if already {
		a.logger.Info("Duplicate commit detected, skipping sink append",
			zap.String("sessionID", sessionID), zap.String("idempotencyKey", key))
	} else {
		if err := a.sink.AppendRow(ctx, rec); err != nil {
			// The archive row stays; a retried commit dedupes on it
			// instead of risking a duplicate sink row.
			a.logger.Error("Commit failed to append to log sink", zap.Error(err), zap.String("sessionID", sessionID))
			return false, "Failed to save your booking. Please try again."
		}
	}

	if err := a.sessions.ClearPending(ctx, sessionID); err != nil {
		a.logger.Error("Commit failed to clear pending snapshot", zap.Error(err), zap.String("sessionID", sessionID))
	}
	a.logger.Info("Booking committed",
		zap.String("sessionID", sessionID),
		zap.String("parentName", rec[models.FieldParentName]))
	return true, ""
}

func (a *actionExecutor) updateBookingState(ctx context.Context, req models.ActionRequest, sessionID string) (bool, string) {
	patch, err := req.StageParams()
	if err != nil {
		a.logger.Warn("Undecodable update_booking_state params", zap.Error(err), zap.String("sessionID", sessionID))
		return false, "Failed to update booking state"
	}

	_, err = a.sessions.UpdateBookingState(ctx, sessionID, func(bs *models.BookingState) {
		if patch.Timeslot != nil {
			bs.Timeslot = *patch.Timeslot
		}
		if patch.Date != nil {
			bs.Date = *patch.Date
		}
		if patch.DateConfirmed != nil {
			bs.DateConfirmed = *patch.DateConfirmed
		}
		if patch.TrialAccepted != nil {
			bs.TrialAccepted = *patch.TrialAccepted
		}
		if patch.Stage != nil {
			stage := models.BookingStage(*patch.Stage)
			if models.ValidStage(stage) {
				bs.Stage = stage
			} else {
				a.logger.Warn("Ignoring unknown booking stage",
					zap.String("stage", *patch.Stage), zap.String("sessionID", sessionID))
			}
		}
	})
	if err != nil {
		a.logger.Error("Failed to update booking state", zap.Error(err), zap.String("sessionID", sessionID))
		return false, "Failed to update booking state"
	}
	return true, ""
}
