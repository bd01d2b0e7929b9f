// Package consumer reacts to directory events that invalidate
// existing bookings.
package consumer

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/medhelp-app/medhelp/libs/db"
	"github.com/medhelp-app/medhelp/libs/kafkax"
	"github.com/medhelp-app/medhelp/libs/outbox"
	"github.com/medhelp-app/medhelp/services/booking-service/internal/handlers"
	"github.com/medhelp-app/medhelp/services/booking-service/internal/slotgrid"
	"github.com/medhelp-app/medhelp/services/booking-service/internal/storage"
)

const rejectionReason = "doctor verification withdrawn"

// DoctorRejected releases every upcoming confirmed appointment for a
// doctor whose verification was rejected, and emits a cancellation
// event per released appointment so patients get notified.
func DoctorRejected(pool *db.Pool, repo *storage.BookingRepository, outboxRepo *outbox.Repository, logger *slog.Logger) kafkax.Handler {
	return func(ctx context.Context, msg kafka.Message) error {
		var payload struct {
			DoctorID string `json:"doctor_id"`
		}
		if err := json.Unmarshal(msg.Value, &payload); err != nil {
			logger.Error("invalid event payload", "err", err, "topic", msg.Topic)
			return nil
		}
		payload.DoctorID = strings.TrimSpace(payload.DoctorID)
		if payload.DoctorID == "" {
			logger.Error("missing doctor_id in event", "topic", msg.Topic)
			return nil
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback(ctx) }()

		today := time.Now().UTC().Truncate(24 * time.Hour)
		ids, err := repo.RejectFutureForDoctor(ctx, tx, payload.DoctorID, today, rejectionReason)
		if err != nil {
			return err
		}
		for _, id := range ids {
			appt, err := repo.GetForUpdate(ctx, tx, id)
			if err != nil {
				return err
			}
			evtPayload, err := json.Marshal(map[string]any{
				"appointment_id": appt.ID,
				"doctor_id":      appt.DoctorID,
				"patient_id":     appt.PatientID,
				"date":           appt.Date.UTC().Format("2006-01-02"),
				"slot":           slotgrid.Clock(appt.SlotMinute).String(),
				"cancelled_at":   time.Now().UTC().Format(time.RFC3339),
				"reason":         rejectionReason,
			})
			if err != nil {
				return err
			}
			if err := outboxRepo.Insert(ctx, tx, outbox.Event{
				AggregateType: "appointment",
				AggregateID:   appt.ID,
				EventType:     handlers.EventAppointmentCancelled,
				Payload:       evtPayload,
			}); err != nil {
				return err
			}
		}
		if len(ids) > 0 {
			logger.Info("released appointments for rejected doctor", "doctor_id", payload.DoctorID, "count", len(ids))
		}
		return tx.Commit(ctx)
	}
}
