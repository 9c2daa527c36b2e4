package scheduling

import (
	"errors"
	"fmt"
	"time"
)

// Status is the closed appointment status enumeration.
type Status string

const (
	StatusPending     Status = "PENDING"
	StatusConfirmed   Status = "CONFIRMED"
	StatusRejected    Status = "REJECTED"
	StatusCancelled   Status = "CANCELLED"
	StatusCompleted   Status = "COMPLETED"
	StatusRescheduled Status = "RESCHEDULED"
)

// Valid reports whether s is one of the closed enumeration values.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusRejected,
		StatusCancelled, StatusCompleted, StatusRescheduled:
		return true
	}
	return false
}

// Active reports whether an appointment in this status still occupies its
// slot. Terminal statuses and rejections free the slot; everything else
// holds it. "SCHEDULED" is accepted for rows mirrored by earlier releases.
func (s Status) Active() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusRescheduled, Status("SCHEDULED"):
		return true
	}
	return false
}

// Terminal reports whether no further lifecycle transition is expected.
func (s Status) Terminal() bool {
	return s == StatusRejected || s == StatusCancelled || s == StatusCompleted
}

// DateLayout is the wire format for appointment dates.
const DateLayout = "2006-01-02"

var ErrNotConfirmed = errors.New("appointment is not confirmed")

// Appointment is a booking of one of a doctor's declared slots. Notes is an
// append-only log of reason annotations; records are never deleted, only
// moved to a terminal status.
type Appointment struct {
	ID        string    `db:"appointment_id" json:"id"`
	DoctorID  string    `db:"doctor_id" json:"doctor_id"`
	PatientID string    `db:"patient_id" json:"patient_id"`
	Date      string    `db:"appointment_date" json:"date"`
	TimeSlot  string    `db:"time_slot" json:"time_slot"`
	Reason    string    `db:"reason" json:"reason"`
	Status    Status    `db:"status" json:"status"`
	Notes     []string  `json:"notes,omitempty"`
	CreatedAt time.Time `db:"created_date" json:"created_at"`
}

// Approve moves the appointment to CONFIRMED. No prior-status guard is
// applied; approval overwrites whatever status the appointment is in.
func (a *Appointment) Approve() {
	a.Status = StatusConfirmed
}

// Reject moves the appointment to the terminal REJECTED status. A non-empty
// reason is appended to the notes log.
func (a *Appointment) Reject(reason string) {
	a.Status = StatusRejected
	if reason != "" {
		a.Notes = append(a.Notes, "Rejection reason: "+reason)
	}
}

// Cancel moves the appointment to the terminal CANCELLED status. A non-empty
// reason is appended to the notes log.
func (a *Appointment) Cancel(reason string) {
	a.Status = StatusCancelled
	if reason != "" {
		a.Notes = append(a.Notes, "Cancellation reason: "+reason)
	}
}

// Complete is the appointment's own terminal-transition guard: only a
// confirmed appointment can complete.
func (a *Appointment) Complete() error {
	if a.Status != StatusConfirmed {
		return fmt.Errorf("%w: %s is %s", ErrNotConfirmed, a.ID, a.Status)
	}
	a.Status = StatusCompleted
	return nil
}

// Reschedule mutates date and slot in place, keeping the current status.
// Slot-availability checks happen in the service before this is called.
func (a *Appointment) Reschedule(newDate, newSlot string) {
	a.Date = newDate
	a.TimeSlot = newSlot
}
