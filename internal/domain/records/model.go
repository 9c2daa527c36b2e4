package records

import "time"

// RecordStatus is the lifecycle of a medical record.
type RecordStatus string

const (
	RecordActive   RecordStatus = "ACTIVE"
	RecordArchived RecordStatus = "ARCHIVED"
)

// MedicalRecord is a practitioner-authored clinical entry owned by the
// patient it references.
type MedicalRecord struct {
	ID           string       `db:"record_id" json:"id"`
	PatientID    string       `db:"patient_id" json:"patient_id"`
	DoctorID     string       `db:"doctor_id" json:"doctor_id"`
	Diagnosis    string       `db:"diagnosis" json:"diagnosis"`
	Prescription string       `db:"prescription" json:"prescription,omitempty"`
	Treatment    string       `db:"treatment" json:"treatment,omitempty"`
	Notes        string       `db:"notes" json:"notes,omitempty"`
	Status       RecordStatus `db:"status" json:"status"`
	Symptoms     []string     `json:"symptoms,omitempty"`
	Medications  []string     `json:"medications,omitempty"`
	CreatedAt    time.Time    `db:"created_date" json:"created_at"`
}

// PrescriptionStatus is the lifecycle of a prescription.
type PrescriptionStatus string

const (
	PrescriptionActive    PrescriptionStatus = "ACTIVE"
	PrescriptionExpired   PrescriptionStatus = "EXPIRED"
	PrescriptionCancelled PrescriptionStatus = "CANCELLED"
)

// Medication is one line item of a prescription.
type Medication struct {
	Name      string `db:"medication_name" json:"name"`
	Dosage    string `db:"dosage" json:"dosage"`
	Frequency string `db:"frequency" json:"frequency"`
	Duration  string `db:"duration" json:"duration"`
}

// Prescription is owned jointly by patient and practitioner. Medications is
// an ordered list of line items.
type Prescription struct {
	ID               string             `db:"prescription_id" json:"id"`
	PatientID        string             `db:"patient_id" json:"patient_id"`
	DoctorID         string             `db:"doctor_id" json:"doctor_id"`
	Instructions     string             `db:"instructions" json:"instructions,omitempty"`
	Status           PrescriptionStatus `db:"status" json:"status"`
	ValidUntil       time.Time          `db:"valid_until" json:"valid_until"`
	RefillsRemaining int                `db:"refills_remaining" json:"refills_remaining"`
	Medications      []Medication       `json:"medications"`
	CreatedAt        time.Time          `db:"created_date" json:"created_at"`
}
