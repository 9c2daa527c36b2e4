package records

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidInput         = errors.New("invalid input")
	ErrDoctorNotFound       = errors.New("doctor not found")
	ErrPatientNotFound      = errors.New("patient not found")
	ErrRecordNotFound       = errors.New("medical record not found")
	ErrPrescriptionNotFound = errors.New("prescription not found")
	ErrNoRefillsLeft        = errors.New("no refills remaining")
)

type Service struct {
	store Store
	now   func() time.Time
}

func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

// CreateRecord validates and stores a new ACTIVE medical record.
func (s *Service) CreateRecord(r MedicalRecord) (MedicalRecord, error) {
	if strings.TrimSpace(r.Diagnosis) == "" {
		return MedicalRecord{}, fmt.Errorf("%w: diagnosis is required", ErrInvalidInput)
	}
	if !s.store.HasDoctor(r.DoctorID) {
		return MedicalRecord{}, fmt.Errorf("%w: %s", ErrDoctorNotFound, r.DoctorID)
	}
	if !s.store.HasPatient(r.PatientID) {
		return MedicalRecord{}, fmt.Errorf("%w: %s", ErrPatientNotFound, r.PatientID)
	}
	r.ID = s.store.NextRecordID()
	r.Status = RecordActive
	r.CreatedAt = s.now().UTC()
	if !s.store.AddMedicalRecord(r) {
		return MedicalRecord{}, fmt.Errorf("%w: duplicate id %s", ErrInvalidInput, r.ID)
	}
	return r, nil
}

func (s *Service) GetRecord(id string) (MedicalRecord, error) {
	r, ok := s.store.MedicalRecord(id)
	if !ok {
		return MedicalRecord{}, fmt.Errorf("%w: %s", ErrRecordNotFound, id)
	}
	return r, nil
}

// ArchiveRecord moves a record to ARCHIVED. Archiving is idempotent.
func (s *Service) ArchiveRecord(id string) error {
	r, ok := s.store.MedicalRecord(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrRecordNotFound, id)
	}
	r.Status = RecordArchived
	if !s.store.UpdateMedicalRecord(r) {
		return fmt.Errorf("%w: %s", ErrRecordNotFound, id)
	}
	return nil
}

func (s *Service) RecordsByPatient(patientID string) []MedicalRecord {
	return s.store.MedicalRecordsByPatient(patientID)
}

func (s *Service) RecordsByDoctor(doctorID string) []MedicalRecord {
	return s.store.MedicalRecordsByDoctor(doctorID)
}

// CreatePrescription validates and stores a new ACTIVE prescription with at
// least one medication line item.
func (s *Service) CreatePrescription(p Prescription) (Prescription, error) {
	if len(p.Medications) == 0 {
		return Prescription{}, fmt.Errorf("%w: at least one medication is required", ErrInvalidInput)
	}
	for i, m := range p.Medications {
		if strings.TrimSpace(m.Name) == "" || strings.TrimSpace(m.Dosage) == "" {
			return Prescription{}, fmt.Errorf("%w: medication %d needs a name and dosage", ErrInvalidInput, i+1)
		}
	}
	if p.RefillsRemaining < 0 {
		return Prescription{}, fmt.Errorf("%w: refills cannot be negative", ErrInvalidInput)
	}
	if !s.store.HasDoctor(p.DoctorID) {
		return Prescription{}, fmt.Errorf("%w: %s", ErrDoctorNotFound, p.DoctorID)
	}
	if !s.store.HasPatient(p.PatientID) {
		return Prescription{}, fmt.Errorf("%w: %s", ErrPatientNotFound, p.PatientID)
	}
	if p.ValidUntil.IsZero() {
		p.ValidUntil = s.now().UTC().AddDate(0, 6, 0)
	}
	p.ID = s.store.NextPrescriptionID()
	p.Status = PrescriptionActive
	p.CreatedAt = s.now().UTC()
	if !s.store.AddPrescription(p) {
		return Prescription{}, fmt.Errorf("%w: duplicate id %s", ErrInvalidInput, p.ID)
	}
	return p, nil
}

func (s *Service) GetPrescription(id string) (Prescription, error) {
	p, ok := s.store.Prescription(id)
	if !ok {
		return Prescription{}, fmt.Errorf("%w: %s", ErrPrescriptionNotFound, id)
	}
	return p, nil
}

// Refill consumes one remaining refill. At zero the prescription stays as it
// is and the call fails.
func (s *Service) Refill(id string) (Prescription, error) {
	p, ok := s.store.Prescription(id)
	if !ok {
		return Prescription{}, fmt.Errorf("%w: %s", ErrPrescriptionNotFound, id)
	}
	if p.Status != PrescriptionActive {
		return Prescription{}, fmt.Errorf("%w: prescription %s is %s", ErrInvalidInput, id, p.Status)
	}
	if p.RefillsRemaining <= 0 {
		return Prescription{}, fmt.Errorf("%w: %s", ErrNoRefillsLeft, id)
	}
	p.RefillsRemaining--
	if !s.store.UpdatePrescription(p) {
		return Prescription{}, fmt.Errorf("%w: %s", ErrPrescriptionNotFound, id)
	}
	return p, nil
}

// CancelPrescription moves a prescription to CANCELLED.
func (s *Service) CancelPrescription(id string) error {
	p, ok := s.store.Prescription(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrPrescriptionNotFound, id)
	}
	p.Status = PrescriptionCancelled
	if !s.store.UpdatePrescription(p) {
		return fmt.Errorf("%w: %s", ErrPrescriptionNotFound, id)
	}
	return nil
}

func (s *Service) PrescriptionsByPatient(patientID string) []Prescription {
	return s.store.PrescriptionsByPatient(patientID)
}

func (s *Service) PrescriptionsByDoctor(doctorID string) []Prescription {
	return s.store.PrescriptionsByDoctor(doctorID)
}
