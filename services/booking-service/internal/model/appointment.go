package model

import "time"

// Appointment kinds. Virtual appointments get a meeting link at
// booking time.
const (
	KindInPerson = "in_person"
	KindVirtual  = "virtual"
)

// Appointment statuses. Cancelled and rejected appointments release
// their slot (the uniqueness index ignores them).
const (
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
	StatusRejected  = "rejected"
)

// Payment states for the consultation fee.
const (
	PaymentUnpaid = "unpaid"
	PaymentPaid   = "paid"
)

type Appointment struct {
	ID            string
	DoctorID      string
	PatientID     string
	Date          time.Time // calendar date, midnight UTC
	SlotMinute    int       // slot start, minutes since midnight
	Kind          string
	Status        string
	MeetingLink   string
	FeeAmount     string // decimal string, e.g. "150.00"
	PaymentStatus string
	CancelledAt   *time.Time
	CancelReason  string
	CreatedAt     time.Time
}
