package identity

import (
	"regexp"
	"time"
)

// Role discriminates the user variants.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleDoctor  Role = "doctor"
	RolePatient Role = "patient"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleDoctor || r == RolePatient
}

// User is a tagged variant over the three account kinds. The shared fields
// are always set; exactly one of the role payloads is non-nil, matching Role.
type User struct {
	Username      string    `db:"username" json:"username"`
	Password      string    `db:"password" json:"-"`
	FullName      string    `db:"full_name" json:"full_name"`
	Email         string    `db:"email" json:"email"`
	ContactNumber string    `db:"contact_number" json:"contact_number"`
	Address       string    `db:"address" json:"address,omitempty"`
	Active        bool      `db:"is_active" json:"active"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`

	Role    Role            `json:"role"`
	Admin   *AdminProfile   `json:"admin,omitempty"`
	Doctor  *DoctorProfile  `json:"doctor,omitempty"`
	Patient *PatientProfile `json:"patient,omitempty"`
}

// AdminProfile is the admin-specific payload.
type AdminProfile struct {
	ID          string   `db:"admin_id" json:"id"`
	Permissions []string `db:"permissions" json:"permissions,omitempty"`
}

// DoctorProfile is the practitioner-specific payload. TimeSlots is the
// declared booking template in the order the doctor registered it.
type DoctorProfile struct {
	ID              string   `db:"doctor_id" json:"id"`
	Specialization  string   `db:"specialization" json:"specialization"`
	LicenseNumber   string   `db:"license_number" json:"license_number"`
	ExperienceYears int      `db:"experience_years" json:"experience_years"`
	Qualifications  string   `db:"qualifications" json:"qualifications,omitempty"`
	TimeSlots       []string `json:"time_slots"`
}

// PatientProfile is the patient-specific payload.
type PatientProfile struct {
	ID                 string   `db:"patient_id" json:"id"`
	Age                int      `db:"age" json:"age"`
	Gender             string   `db:"gender" json:"gender"`
	BloodType          string   `db:"blood_type" json:"blood_type,omitempty"`
	EmergencyContact   string   `db:"emergency_contact" json:"emergency_contact,omitempty"`
	MedicalHistory     string   `db:"medical_history" json:"medical_history,omitempty"`
	Allergies          []string `json:"allergies,omitempty"`
	CurrentMedications []string `json:"current_medications,omitempty"`
}

// ProfileID returns the role-scoped identifier (ADM001 / DOC001 / PAT001).
func (u *User) ProfileID() string {
	switch u.Role {
	case RoleAdmin:
		if u.Admin != nil {
			return u.Admin.ID
		}
	case RoleDoctor:
		if u.Doctor != nil {
			return u.Doctor.ID
		}
	case RolePatient:
		if u.Patient != nil {
			return u.Patient.ID
		}
	}
	return ""
}

var slotPattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]-([01][0-9]|2[0-3]):[0-5][0-9]$`)

// ValidSlotLabel reports whether label has the declared "HH:MM-HH:MM" shape.
func ValidSlotLabel(label string) bool {
	return slotPattern.MatchString(label)
}
