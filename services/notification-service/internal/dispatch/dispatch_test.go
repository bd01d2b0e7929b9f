package dispatch

import (
	"strings"
	"testing"
)

func TestRenderBooked(t *testing.T) {
	msgs := Render("booking.appointment.booked.v1", map[string]any{
		"patient_id":   "pat-1",
		"doctor_id":    "doc-1",
		"doctor_name":  "Dr. Ayesha Karim",
		"date":         "2026-03-02",
		"slot":         "09:30",
		"meeting_link": "https://meet.jit.si/MedHelpConsultationabc",
	})
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].UserID != "pat-1" || msgs[1].UserID != "doc-1" {
		t.Fatalf("unexpected recipients: %s, %s", msgs[0].UserID, msgs[1].UserID)
	}
	if !strings.Contains(msgs[0].Body, "Dr. Ayesha Karim") || !strings.Contains(msgs[0].Body, "09:30") {
		t.Fatalf("patient body missing details: %s", msgs[0].Body)
	}
	if !strings.Contains(msgs[0].Body, "meet.jit.si") {
		t.Fatalf("virtual booking should include meeting link: %s", msgs[0].Body)
	}
}

func TestRenderBookedInPersonOmitsLink(t *testing.T) {
	msgs := Render("booking.appointment.booked.v1", map[string]any{
		"patient_id": "pat-1",
		"doctor_id":  "doc-1",
		"date":       "2026-03-02",
		"slot":       "10:00",
	})
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if strings.Contains(msgs[0].Body, "Join online") {
		t.Fatalf("in-person booking must not carry a meeting link: %s", msgs[0].Body)
	}
}

func TestRenderCancelledWithReason(t *testing.T) {
	msgs := Render("booking.appointment.cancelled.v1", map[string]any{
		"patient_id": "pat-1",
		"doctor_id":  "doc-1",
		"date":       "2026-03-02",
		"slot":       "09:00",
		"reason":     "doctor verification withdrawn",
	})
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	for _, m := range msgs {
		if !strings.Contains(m.Body, "doctor verification withdrawn") {
			t.Fatalf("body missing reason: %s", m.Body)
		}
	}
}

func TestRenderDoctorReview(t *testing.T) {
	verified := Render("directory.doctor.verified.v1", map[string]any{"user_id": "usr-9"})
	if len(verified) != 1 || verified[0].UserID != "usr-9" {
		t.Fatalf("unexpected verified messages: %+v", verified)
	}
	rejected := Render("directory.doctor.rejected.v1", map[string]any{"user_id": "usr-9"})
	if len(rejected) != 1 || rejected[0].Title != "Application rejected" {
		t.Fatalf("unexpected rejected messages: %+v", rejected)
	}
}

func TestRenderUnknownOrIncomplete(t *testing.T) {
	if msgs := Render("some.other.event.v1", map[string]any{"user_id": "u"}); msgs != nil {
		t.Fatalf("unknown event should render nothing, got %+v", msgs)
	}
	if msgs := Render("booking.payment.succeeded.v1", map[string]any{}); msgs != nil {
		t.Fatalf("payment event without patient_id should render nothing, got %+v", msgs)
	}
}
