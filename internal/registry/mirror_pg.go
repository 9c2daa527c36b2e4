package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/caresched/caresched/internal/domain/identity"
	"github.com/caresched/caresched/internal/domain/imaging"
	"github.com/caresched/caresched/internal/domain/records"
	"github.com/caresched/caresched/internal/domain/scheduling"
)

// uniqueViolation is the SQLSTATE for a unique-constraint violation.
const uniqueViolation = "23505"

// PGMirror mirrors registry writes to PostgreSQL. A nil pool is legal and
// makes every call report ErrMirrorUnavailable, which the registry logs and
// ignores. That is the memory-only degraded mode.
type PGMirror struct {
	pool *pgxpool.Pool
}

func NewPGMirror(pool *pgxpool.Pool) *PGMirror {
	return &PGMirror{pool: pool}
}

// insertErr classifies an insert failure: duplicate keys are swallowed so a
// reseed of rows that already landed reports success.
func insertErr(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return nil
	}
	return err
}

func (m *PGMirror) InsertUser(ctx context.Context, u identity.User) error {
	if m.pool == nil {
		return ErrMirrorUnavailable
	}
	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMirrorUnavailable, err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO users (username, password, full_name, email, contact_number, address, is_active, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		u.Username, u.Password, u.FullName, u.Email, u.ContactNumber, u.Address, u.Active, u.CreatedAt)
	if err := insertErr(err); err != nil {
		return err
	}

	switch u.Role {
	case identity.RoleDoctor:
		_, err = tx.Exec(ctx, `
			INSERT INTO doctors (doctor_id, username, specialization, license_number, experience_years, qualifications, time_slots)
			VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			u.Doctor.ID, u.Username, u.Doctor.Specialization, u.Doctor.LicenseNumber,
			u.Doctor.ExperienceYears, u.Doctor.Qualifications, strings.Join(u.Doctor.TimeSlots, ","))
	case identity.RolePatient:
		_, err = tx.Exec(ctx, `
			INSERT INTO patients (patient_id, username, age, gender, blood_type, emergency_contact, medical_history, allergies, current_medications)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
			u.Patient.ID, u.Username, u.Patient.Age, u.Patient.Gender, u.Patient.BloodType,
			u.Patient.EmergencyContact, u.Patient.MedicalHistory,
			strings.Join(u.Patient.Allergies, ","), strings.Join(u.Patient.CurrentMedications, ","))
	}
	if err := insertErr(err); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (m *PGMirror) UpdateUser(ctx context.Context, u identity.User) error {
	if m.pool == nil {
		return ErrMirrorUnavailable
	}
	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMirrorUnavailable, err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		UPDATE users SET password=$2, full_name=$3, email=$4, contact_number=$5, address=$6, is_active=$7
		WHERE username=$1`,
		u.Username, u.Password, u.FullName, u.Email, u.ContactNumber, u.Address, u.Active)
	if err != nil {
		return err
	}

	switch u.Role {
	case identity.RoleDoctor:
		_, err = tx.Exec(ctx, `
			UPDATE doctors SET specialization=$2, license_number=$3, experience_years=$4,
				qualifications=$5, time_slots=$6
			WHERE doctor_id=$1`,
			u.Doctor.ID, u.Doctor.Specialization, u.Doctor.LicenseNumber,
			u.Doctor.ExperienceYears, u.Doctor.Qualifications, strings.Join(u.Doctor.TimeSlots, ","))
	case identity.RolePatient:
		_, err = tx.Exec(ctx, `
			UPDATE patients SET age=$2, gender=$3, blood_type=$4, emergency_contact=$5,
				medical_history=$6, allergies=$7, current_medications=$8
			WHERE patient_id=$1`,
			u.Patient.ID, u.Patient.Age, u.Patient.Gender, u.Patient.BloodType,
			u.Patient.EmergencyContact, u.Patient.MedicalHistory,
			strings.Join(u.Patient.Allergies, ","), strings.Join(u.Patient.CurrentMedications, ","))
	}
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (m *PGMirror) InsertAppointment(ctx context.Context, a scheduling.Appointment) error {
	if m.pool == nil {
		return ErrMirrorUnavailable
	}
	_, err := m.pool.Exec(ctx, `
		INSERT INTO appointments (appointment_id, doctor_id, patient_id, appointment_date, appointment_time,
			time_slot, reason, status, notes, cancellation_reason, denial_reason, created_date)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		a.ID, a.DoctorID, a.PatientID, a.Date, slotStart(a.TimeSlot), a.TimeSlot, a.Reason,
		string(a.Status), strings.Join(a.Notes, "\n"),
		noteReason(a.Notes, "Cancellation reason: "), noteReason(a.Notes, "Rejection reason: "), a.CreatedAt)
	return insertErr(err)
}

func (m *PGMirror) UpdateAppointment(ctx context.Context, a scheduling.Appointment) error {
	if m.pool == nil {
		return ErrMirrorUnavailable
	}
	_, err := m.pool.Exec(ctx, `
		UPDATE appointments SET appointment_date=$2, appointment_time=$3, time_slot=$4, status=$5,
			notes=$6, cancellation_reason=$7, denial_reason=$8
		WHERE appointment_id=$1`,
		a.ID, a.Date, slotStart(a.TimeSlot), a.TimeSlot, string(a.Status),
		strings.Join(a.Notes, "\n"),
		noteReason(a.Notes, "Cancellation reason: "), noteReason(a.Notes, "Rejection reason: "))
	return err
}

func (m *PGMirror) InsertMedicalRecord(ctx context.Context, r records.MedicalRecord) error {
	if m.pool == nil {
		return ErrMirrorUnavailable
	}
	_, err := m.pool.Exec(ctx, `
		INSERT INTO medical_records (record_id, patient_id, doctor_id, diagnosis, prescription, treatment,
			notes, status, symptoms, medications, created_date)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		r.ID, r.PatientID, r.DoctorID, r.Diagnosis, r.Prescription, r.Treatment,
		r.Notes, string(r.Status), strings.Join(r.Symptoms, ","), strings.Join(r.Medications, ","), r.CreatedAt)
	return insertErr(err)
}

func (m *PGMirror) UpdateMedicalRecord(ctx context.Context, r records.MedicalRecord) error {
	if m.pool == nil {
		return ErrMirrorUnavailable
	}
	_, err := m.pool.Exec(ctx, `
		UPDATE medical_records SET diagnosis=$2, prescription=$3, treatment=$4, notes=$5, status=$6,
			symptoms=$7, medications=$8
		WHERE record_id=$1`,
		r.ID, r.Diagnosis, r.Prescription, r.Treatment, r.Notes, string(r.Status),
		strings.Join(r.Symptoms, ","), strings.Join(r.Medications, ","))
	return err
}

func (m *PGMirror) InsertPrescription(ctx context.Context, p records.Prescription) error {
	if m.pool == nil {
		return ErrMirrorUnavailable
	}
	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMirrorUnavailable, err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO prescriptions (prescription_id, patient_id, doctor_id, instructions, status,
			valid_until, refills_remaining, created_date)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		p.ID, p.PatientID, p.DoctorID, p.Instructions, string(p.Status),
		p.ValidUntil, p.RefillsRemaining, p.CreatedAt)
	if err := insertErr(err); err != nil {
		return err
	}
	for _, med := range p.Medications {
		_, err = tx.Exec(ctx, `
			INSERT INTO prescription_medications (prescription_id, medication_name, dosage, frequency, duration)
			VALUES ($1,$2,$3,$4,$5)`,
			p.ID, med.Name, med.Dosage, med.Frequency, med.Duration)
		if err := insertErr(err); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (m *PGMirror) UpdatePrescription(ctx context.Context, p records.Prescription) error {
	if m.pool == nil {
		return ErrMirrorUnavailable
	}
	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMirrorUnavailable, err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		UPDATE prescriptions SET instructions=$2, status=$3, valid_until=$4, refills_remaining=$5
		WHERE prescription_id=$1`,
		p.ID, p.Instructions, string(p.Status), p.ValidUntil, p.RefillsRemaining)
	if err != nil {
		return err
	}
	// Replace line items wholesale; order matters and rows are few.
	if _, err := tx.Exec(ctx, `DELETE FROM prescription_medications WHERE prescription_id=$1`, p.ID); err != nil {
		return err
	}
	for _, med := range p.Medications {
		if _, err := tx.Exec(ctx, `
			INSERT INTO prescription_medications (prescription_id, medication_name, dosage, frequency, duration)
			VALUES ($1,$2,$3,$4,$5)`,
			p.ID, med.Name, med.Dosage, med.Frequency, med.Duration); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (m *PGMirror) InsertScan(ctx context.Context, sc imaging.Scan) error {
	if m.pool == nil {
		return ErrMirrorUnavailable
	}
	var apptID *string
	if sc.AppointmentID != "" {
		apptID = &sc.AppointmentID
	}
	_, err := m.pool.Exec(ctx, `
		INSERT INTO scans (scan_id, patient_id, appointment_id, file_path, file_type, file_size, checksum, uploaded_at, description)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		sc.ID, sc.PatientID, apptID, sc.FilePath, sc.FileType, sc.FileSize, sc.Checksum, sc.UploadedAt, sc.Description)
	return insertErr(err)
}

// slotStart extracts the start time from a "HH:MM-HH:MM" slot label.
func slotStart(slot string) string {
	if i := strings.IndexByte(slot, '-'); i > 0 {
		return slot[:i]
	}
	return slot
}

// noteReason returns the payload of the last notes entry with the given
// prefix, or "".
func noteReason(notes []string, prefix string) string {
	for i := len(notes) - 1; i >= 0; i-- {
		if strings.HasPrefix(notes[i], prefix) {
			return strings.TrimPrefix(notes[i], prefix)
		}
	}
	return ""
}

var _ Mirror = (*PGMirror)(nil)
