package scheduling

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/caresched/caresched/internal/domain/identity"
)

var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrDoctorNotFound      = errors.New("doctor not found")
	ErrPatientNotFound     = errors.New("patient not found")
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrSlotUnavailable     = errors.New("time slot is not available")
)

const (
	minReasonLen = 10
	maxReasonLen = 500
)

// Service is the availability engine plus the appointment lifecycle
// controller. It never touches the backing store directly; every mutation
// goes through the coordinating store's mirrored write path.
type Service struct {
	store Store
	now   func() time.Time
}

func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

// AvailableSlots computes the free slots for a doctor on a date by filtering
// the declared template through slot occupancy, preserving declared order.
// An empty result is valid; an unknown doctor is an error.
func (s *Service) AvailableSlots(doctorID, date string) ([]string, error) {
	template, ok := s.store.DoctorSlots(doctorID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDoctorNotFound, doctorID)
	}
	if _, err := time.Parse(DateLayout, date); err != nil {
		return nil, fmt.Errorf("%w: bad date %q", ErrInvalidInput, date)
	}
	var free []string
	for _, slot := range template {
		if s.store.IsTimeSlotAvailable(doctorID, date, slot) {
			free = append(free, slot)
		}
	}
	return free, nil
}

// Book validates inputs and slot availability, then creates a PENDING
// appointment. Denials are returned as typed errors; no state changes on
// denial.
func (s *Service) Book(doctorID, patientID, date, slot, reason string) (Appointment, error) {
	doctorID = strings.TrimSpace(doctorID)
	patientID = strings.TrimSpace(patientID)
	reason = strings.TrimSpace(reason)

	if doctorID == "" || patientID == "" {
		return Appointment{}, fmt.Errorf("%w: doctor and patient ids are required", ErrInvalidInput)
	}
	day, err := time.Parse(DateLayout, date)
	if err != nil {
		return Appointment{}, fmt.Errorf("%w: bad date %q", ErrInvalidInput, date)
	}
	if day.Before(s.today()) {
		return Appointment{}, fmt.Errorf("%w: date %s is in the past", ErrInvalidInput, date)
	}
	if !identity.ValidSlotLabel(slot) {
		return Appointment{}, fmt.Errorf("%w: bad time slot %q", ErrInvalidInput, slot)
	}
	if n := utf8.RuneCountInString(reason); n < minReasonLen || n > maxReasonLen {
		return Appointment{}, fmt.Errorf("%w: reason must be %d-%d characters", ErrInvalidInput, minReasonLen, maxReasonLen)
	}
	if !s.store.HasDoctor(doctorID) {
		return Appointment{}, fmt.Errorf("%w: %s", ErrDoctorNotFound, doctorID)
	}
	if !s.store.HasPatient(patientID) {
		return Appointment{}, fmt.Errorf("%w: %s", ErrPatientNotFound, patientID)
	}
	if !s.store.IsTimeSlotAvailable(doctorID, date, slot) {
		return Appointment{}, fmt.Errorf("%w: %s %s %s", ErrSlotUnavailable, doctorID, date, slot)
	}

	appt := Appointment{
		ID:        s.store.NextAppointmentID(),
		DoctorID:  doctorID,
		PatientID: patientID,
		Date:      date,
		TimeSlot:  slot,
		Reason:    reason,
		Status:    StatusPending,
		CreatedAt: s.now().UTC(),
	}
	// AddAppointment re-checks occupancy under the store lock; a concurrent
	// booking of the same tuple loses here instead of double-booking.
	if !s.store.AddAppointment(appt) {
		return Appointment{}, fmt.Errorf("%w: %s %s %s", ErrSlotUnavailable, doctorID, date, slot)
	}
	return appt, nil
}

// Approve confirms an appointment.
func (s *Service) Approve(id string) error {
	return s.transition(id, func(a *Appointment) error {
		a.Approve()
		return nil
	})
}

// Reject denies an appointment, recording the structured reason.
func (s *Service) Reject(id, reason string) error {
	return s.transition(id, func(a *Appointment) error {
		a.Reject(reason)
		return nil
	})
}

// Cancel cancels an appointment, recording the structured reason.
func (s *Service) Cancel(id, reason string) error {
	return s.transition(id, func(a *Appointment) error {
		a.Cancel(reason)
		return nil
	})
}

// Complete marks a confirmed appointment as completed.
func (s *Service) Complete(id string) error {
	return s.transition(id, func(a *Appointment) error {
		return a.Complete()
	})
}

// Reschedule moves an appointment to a new date and slot. The target slot is
// re-validated with the appointment itself excluded; the operation fails
// closed when the slot is held by anyone else.
func (s *Service) Reschedule(id, newDate, newSlot string) error {
	day, err := time.Parse(DateLayout, newDate)
	if err != nil {
		return fmt.Errorf("%w: bad date %q", ErrInvalidInput, newDate)
	}
	if day.Before(s.today()) {
		return fmt.Errorf("%w: date %s is in the past", ErrInvalidInput, newDate)
	}
	if !identity.ValidSlotLabel(newSlot) {
		return fmt.Errorf("%w: bad time slot %q", ErrInvalidInput, newSlot)
	}
	return s.transition(id, func(a *Appointment) error {
		if !s.store.IsTimeSlotAvailableExcluding(a.DoctorID, newDate, newSlot, a.ID) {
			return fmt.Errorf("%w: %s %s %s", ErrSlotUnavailable, a.DoctorID, newDate, newSlot)
		}
		a.Reschedule(newDate, newSlot)
		return nil
	})
}

// Get returns one appointment.
func (s *Service) Get(id string) (Appointment, error) {
	a, ok := s.store.Appointment(id)
	if !ok {
		return Appointment{}, fmt.Errorf("%w: %s", ErrAppointmentNotFound, id)
	}
	return a, nil
}

// List returns every appointment in creation order.
func (s *Service) List() []Appointment { return s.store.AllAppointments() }

// ListByDoctor returns a doctor's appointments in creation order.
func (s *Service) ListByDoctor(doctorID string) []Appointment {
	return s.store.AppointmentsByDoctor(doctorID)
}

// ListByPatient returns a patient's appointments in creation order.
func (s *Service) ListByPatient(patientID string) []Appointment {
	return s.store.AppointmentsByPatient(patientID)
}

// transition loads a copy of the appointment, applies fn, and writes the
// updated record back through the mirrored update path. Working on a copy
// keeps callers from aliasing store-owned state.
func (s *Service) transition(id string, fn func(*Appointment) error) error {
	a, ok := s.store.Appointment(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrAppointmentNotFound, id)
	}
	if err := fn(&a); err != nil {
		return err
	}
	if !s.store.UpdateAppointment(a) {
		return fmt.Errorf("%w: %s", ErrAppointmentNotFound, id)
	}
	return nil
}

func (s *Service) today() time.Time {
	y, m, d := s.now().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
