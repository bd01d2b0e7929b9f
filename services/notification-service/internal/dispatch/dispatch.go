// Package dispatch turns bus events into in-app notifications and,
// where the event carries an address, outbound email.
package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/medhelp-app/medhelp/libs/db"
	"github.com/medhelp-app/medhelp/libs/kafkax"
	"github.com/medhelp-app/medhelp/libs/outbox"
	"github.com/medhelp-app/medhelp/services/notification-service/internal/email"
	"github.com/medhelp-app/medhelp/services/notification-service/internal/storage"
	"github.com/medhelp-app/medhelp/services/notification-service/internal/stream"
)

const (
	EventNotificationSent   = "notification.sent.v1"
	EventNotificationFailed = "notification.failed.v1"
)

type Dispatcher struct {
	pool   *db.Pool
	repo   *storage.Repository
	outbox *outbox.Repository
	email  email.Sender
	hub    *stream.Hub
	logger *slog.Logger
}

func New(pool *db.Pool, repo *storage.Repository, outboxRepo *outbox.Repository, emailSender email.Sender, hub *stream.Hub, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		pool:   pool,
		repo:   repo,
		outbox: outboxRepo,
		email:  emailSender,
		hub:    hub,
		logger: logger,
	}
}

// Message is one rendered notification for one user.
type Message struct {
	UserID string
	Title  string
	Body   string
}

// Handle routes by event type. Unknown types and malformed payloads
// are logged and acknowledged; redelivery cannot fix them.
func (d *Dispatcher) Handle() kafkax.Handler {
	return func(ctx context.Context, msg kafka.Message) error {
		var payload map[string]any
		if err := json.Unmarshal(msg.Value, &payload); err != nil {
			d.logger.Error("invalid event payload", "err", err, "topic", msg.Topic)
			return nil
		}

		msgs := Render(msg.Topic, payload)
		if len(msgs) == 0 {
			d.logger.Warn("event produced no notifications", "topic", msg.Topic)
			return nil
		}
		for _, m := range msgs {
			stored, err := d.repo.Insert(ctx, storage.Notification{
				UserID:    m.UserID,
				EventType: msg.Topic,
				Title:     m.Title,
				Body:      m.Body,
				Payload:   payload,
			})
			if err != nil {
				return err
			}
			if d.hub != nil {
				d.hub.Publish(stored)
			}
		}

		// Welcome mail is the one event that carries an address.
		if msg.Topic == "identity.user.registered.v1" {
			d.sendWelcomeEmail(ctx, payload)
		}
		return nil
	}
}

// Render maps one event to the notifications it produces. Kept pure so
// templates are testable without a broker or database.
func Render(eventType string, payload map[string]any) []Message {
	switch eventType {
	case "booking.appointment.booked.v1":
		date, slot := str(payload, "date"), str(payload, "slot")
		doctorName := str(payload, "doctor_name")
		if doctorName == "" {
			doctorName = "your doctor"
		}
		var out []Message
		if patientID := str(payload, "patient_id"); patientID != "" {
			body := fmt.Sprintf("Your appointment with %s on %s at %s is confirmed.", doctorName, date, slot)
			if link := str(payload, "meeting_link"); link != "" {
				body += " Join online: " + link
			}
			out = append(out, Message{UserID: patientID, Title: "Appointment confirmed", Body: body})
		}
		if doctorID := str(payload, "doctor_id"); doctorID != "" {
			out = append(out, Message{
				UserID: doctorID,
				Title:  "New appointment",
				Body:   fmt.Sprintf("A patient booked %s at %s.", date, slot),
			})
		}
		return out

	case "booking.appointment.cancelled.v1":
		date, slot := str(payload, "date"), str(payload, "slot")
		reason := str(payload, "reason")
		body := fmt.Sprintf("The appointment on %s at %s was cancelled.", date, slot)
		if reason != "" {
			body += " Reason: " + reason + "."
		}
		var out []Message
		if patientID := str(payload, "patient_id"); patientID != "" {
			out = append(out, Message{UserID: patientID, Title: "Appointment cancelled", Body: body})
		}
		if doctorID := str(payload, "doctor_id"); doctorID != "" {
			out = append(out, Message{UserID: doctorID, Title: "Appointment cancelled", Body: body})
		}
		return out

	case "booking.payment.succeeded.v1":
		patientID := str(payload, "patient_id")
		if patientID == "" {
			return nil
		}
		return []Message{{
			UserID: patientID,
			Title:  "Payment received",
			Body:   "Your consultation fee payment was received. Thank you.",
		}}

	case "directory.doctor.verified.v1":
		userID := str(payload, "user_id")
		if userID == "" {
			return nil
		}
		return []Message{{
			UserID: userID,
			Title:  "Profile verified",
			Body:   "Your doctor profile has been verified. Patients can now book appointments with you.",
		}}

	case "directory.doctor.rejected.v1":
		userID := str(payload, "user_id")
		if userID == "" {
			return nil
		}
		return []Message{{
			UserID: userID,
			Title:  "Application rejected",
			Body:   "Your doctor application was not approved. Contact support for details.",
		}}

	case "identity.user.registered.v1":
		userID := str(payload, "user_id")
		if userID == "" {
			return nil
		}
		name := str(payload, "name")
		if name == "" {
			name = "there"
		}
		return []Message{{
			UserID: userID,
			Title:  "Welcome to MedHelp",
			Body:   fmt.Sprintf("Hi %s, your account is ready.", name),
		}}
	}
	return nil
}

func (d *Dispatcher) sendWelcomeEmail(ctx context.Context, payload map[string]any) {
	to := strings.TrimSpace(str(payload, "email"))
	if to == "" || d.email == nil {
		return
	}
	name := str(payload, "name")
	body := fmt.Sprintf("Hi %s,\n\nYour MedHelp account is ready. You can now search for doctors and book appointments.\n", name)

	status := EventNotificationSent
	reason := ""
	if err := d.email.Send(to, "Welcome to MedHelp", body); err != nil {
		status = EventNotificationFailed
		reason = err.Error()
		d.logger.Error("welcome email send failed", "err", err, "recipient", to)
	}
	if err := d.writeDeliveryEvent(ctx, status, str(payload, "user_id"), reason); err != nil {
		d.logger.Error("failed to record delivery event", "err", err)
	}
}

func (d *Dispatcher) writeDeliveryEvent(ctx context.Context, eventType, userID, reason string) error {
	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	body := map[string]any{
		"user_id":  userID,
		"channel":  "email",
		"provider": "smtp",
		"at":       time.Now().UTC().Format(time.RFC3339),
	}
	if reason != "" {
		body["error_reason"] = reason
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	if err := d.outbox.Insert(ctx, tx, outbox.Event{
		AggregateType: "notification",
		AggregateID:   userID,
		EventType:     eventType,
		Payload:       payload,
	}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func str(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}
