// Package registry is the coordinating store: the authoritative in-memory
// collections every service reads and writes, with best-effort mirroring to
// an optional relational backing store. Mirror failures are logged and
// swallowed; a backing-store outage never blocks in-memory operation.
package registry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/caresched/caresched/internal/domain/identity"
	"github.com/caresched/caresched/internal/domain/imaging"
	"github.com/caresched/caresched/internal/domain/records"
	"github.com/caresched/caresched/internal/domain/scheduling"
)

// Id prefixes, fixed per entity kind.
const (
	prefixAdmin        = "ADM"
	prefixDoctor       = "DOC"
	prefixPatient      = "PAT"
	prefixAppointment  = "APT"
	prefixRecord       = "REC"
	prefixPrescription = "PRE"
	prefixScan         = "SCN"
)

const mirrorTimeout = 5 * time.Second

// Registry owns the in-memory collections. All collections preserve
// insertion order; entities are stored and returned by value so callers
// never alias registry-owned state.
type Registry struct {
	mu     sync.RWMutex
	log    zerolog.Logger
	mirror Mirror

	users    []identity.User
	userIdx  map[string]int // username -> users index
	doctors  map[string]int // doctor id -> users index
	patients map[string]int // patient id -> users index

	appointments []scheduling.Appointment
	apptIdx      map[string]int

	medRecords []records.MedicalRecord
	recIdx     map[string]int

	prescriptions []records.Prescription
	presIdx       map[string]int

	scans   []imaging.Scan
	scanIdx map[string]int

	seq map[string]int // id counter per prefix
}

// New builds an empty registry mirroring to the given Mirror.
func New(mirror Mirror, log zerolog.Logger) *Registry {
	return &Registry{
		log:      log,
		mirror:   mirror,
		userIdx:  make(map[string]int),
		doctors:  make(map[string]int),
		patients: make(map[string]int),
		apptIdx:  make(map[string]int),
		recIdx:   make(map[string]int),
		presIdx:  make(map[string]int),
		scanIdx:  make(map[string]int),
		seq:      make(map[string]int),
	}
}

// nextID hands out "<PREFIX><seq>" with seq zero-padded to three digits.
// Counters only ever grow, so ids are monotonic and never reused even
// though entities are never deleted.
func (r *Registry) nextID(prefix string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq[prefix]++
	return fmt.Sprintf("%s%03d", prefix, r.seq[prefix])
}

func (r *Registry) NextAdminID() string        { return r.nextID(prefixAdmin) }
func (r *Registry) NextDoctorID() string       { return r.nextID(prefixDoctor) }
func (r *Registry) NextPatientID() string      { return r.nextID(prefixPatient) }
func (r *Registry) NextAppointmentID() string  { return r.nextID(prefixAppointment) }
func (r *Registry) NextRecordID() string       { return r.nextID(prefixRecord) }
func (r *Registry) NextPrescriptionID() string { return r.nextID(prefixPrescription) }
func (r *Registry) NextScanID() string         { return r.nextID(prefixScan) }

// mirrorWrite runs one mirror call with a bounded context and downgrades any
// failure to a warning. The in-memory write has already committed by the
// time this runs; it is never rolled back. A nil mirror means memory-only
// mode and skips the call entirely.
func (r *Registry) mirrorWrite(op string, fn func(ctx context.Context) error) {
	if r.mirror == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), mirrorTimeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		r.log.Warn().Err(err).Str("op", op).Msg("backing store mirror failed, serving from memory")
	}
}

// -- Users --

// AddUser inserts a user keyed by username. Returns false only when the
// username (or role-scoped profile id) is already present.
func (r *Registry) AddUser(u identity.User) bool {
	r.mu.Lock()
	if _, exists := r.userIdx[u.Username]; exists {
		r.mu.Unlock()
		return false
	}
	idx := len(r.users)
	r.users = append(r.users, u)
	r.userIdx[u.Username] = idx
	switch u.Role {
	case identity.RoleDoctor:
		r.doctors[u.Doctor.ID] = idx
	case identity.RolePatient:
		r.patients[u.Patient.ID] = idx
	}
	r.mu.Unlock()

	r.mirrorWrite("insert user", func(ctx context.Context) error {
		return r.mirror.InsertUser(ctx, u)
	})
	return true
}

// UpdateUser replaces a stored user by username.
func (r *Registry) UpdateUser(u identity.User) bool {
	r.mu.Lock()
	idx, ok := r.userIdx[u.Username]
	if !ok {
		r.mu.Unlock()
		return false
	}
	r.users[idx] = u
	r.mu.Unlock()

	r.mirrorWrite("update user", func(ctx context.Context) error {
		return r.mirror.UpdateUser(ctx, u)
	})
	return true
}

func (r *Registry) User(username string) (identity.User, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	idx, ok := r.userIdx[username]
	if !ok {
		return identity.User{}, false
	}
	return r.users[idx], true
}

func (r *Registry) AllUsers() []identity.User {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]identity.User, len(r.users))
	copy(out, r.users)
	return out
}

func (r *Registry) UserExists(username string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.userIdx[username]
	return ok
}

// ValidateCredentials is an exact string match against the stored
// credential.
func (r *Registry) ValidateCredentials(username, password string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	idx, ok := r.userIdx[username]
	if !ok {
		return false
	}
	return r.users[idx].Password == password
}

func (r *Registry) Doctor(doctorID string) (identity.User, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	idx, ok := r.doctors[doctorID]
	if !ok {
		return identity.User{}, false
	}
	return r.users[idx], true
}

func (r *Registry) Patient(patientID string) (identity.User, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	idx, ok := r.patients[patientID]
	if !ok {
		return identity.User{}, false
	}
	return r.users[idx], true
}

func (r *Registry) HasDoctor(doctorID string) bool {
	_, ok := r.Doctor(doctorID)
	return ok
}

func (r *Registry) HasPatient(patientID string) bool {
	_, ok := r.Patient(patientID)
	return ok
}

// DoctorSlots returns the doctor's declared slot template in declared order.
func (r *Registry) DoctorSlots(doctorID string) ([]string, bool) {
	u, ok := r.Doctor(doctorID)
	if !ok {
		return nil, false
	}
	out := make([]string, len(u.Doctor.TimeSlots))
	copy(out, u.Doctor.TimeSlots)
	return out, true
}

// -- Appointments --

// AddAppointment inserts an appointment. The slot-occupancy re-check and the
// insert run under the same lock, so two concurrent bookings of one
// (doctor, date, slot) tuple cannot both succeed.
func (r *Registry) AddAppointment(a scheduling.Appointment) bool {
	r.mu.Lock()
	if _, exists := r.apptIdx[a.ID]; exists {
		r.mu.Unlock()
		return false
	}
	if a.Status.Active() && r.slotHeldLocked(a.DoctorID, a.Date, a.TimeSlot, "") {
		r.mu.Unlock()
		return false
	}
	r.apptIdx[a.ID] = len(r.appointments)
	r.appointments = append(r.appointments, a)
	r.mu.Unlock()

	r.mirrorWrite("insert appointment", func(ctx context.Context) error {
		return r.mirror.InsertAppointment(ctx, a)
	})
	return true
}

// UpdateAppointment replaces a stored appointment by id.
func (r *Registry) UpdateAppointment(a scheduling.Appointment) bool {
	r.mu.Lock()
	idx, ok := r.apptIdx[a.ID]
	if !ok {
		r.mu.Unlock()
		return false
	}
	r.appointments[idx] = a
	r.mu.Unlock()

	r.mirrorWrite("update appointment", func(ctx context.Context) error {
		return r.mirror.UpdateAppointment(ctx, a)
	})
	return true
}

func (r *Registry) Appointment(id string) (scheduling.Appointment, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	idx, ok := r.apptIdx[id]
	if !ok {
		return scheduling.Appointment{}, false
	}
	return r.appointments[idx], true
}

func (r *Registry) HasAppointment(id string) bool {
	_, ok := r.Appointment(id)
	return ok
}

func (r *Registry) AllAppointments() []scheduling.Appointment {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]scheduling.Appointment, len(r.appointments))
	copy(out, r.appointments)
	return out
}

func (r *Registry) AppointmentsByDoctor(doctorID string) []scheduling.Appointment {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []scheduling.Appointment
	for _, a := range r.appointments {
		if a.DoctorID == doctorID {
			out = append(out, a)
		}
	}
	return out
}

func (r *Registry) AppointmentsByPatient(patientID string) []scheduling.Appointment {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []scheduling.Appointment
	for _, a := range r.appointments {
		if a.PatientID == patientID {
			out = append(out, a)
		}
	}
	return out
}

// IsTimeSlotAvailable reports whether no active appointment holds the
// (doctor, date, slot) tuple.
func (r *Registry) IsTimeSlotAvailable(doctorID, date, slot string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return !r.slotHeldLocked(doctorID, date, slot, "")
}

// IsTimeSlotAvailableExcluding is IsTimeSlotAvailable ignoring one
// appointment, for reschedule checks.
func (r *Registry) IsTimeSlotAvailableExcluding(doctorID, date, slot, excludeID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return !r.slotHeldLocked(doctorID, date, slot, excludeID)
}

func (r *Registry) slotHeldLocked(doctorID, date, slot, excludeID string) bool {
	for _, a := range r.appointments {
		if a.ID == excludeID {
			continue
		}
		if a.DoctorID == doctorID && a.Date == date && a.TimeSlot == slot && a.Status.Active() {
			return true
		}
	}
	return false
}

// -- Medical records --

func (r *Registry) AddMedicalRecord(rec records.MedicalRecord) bool {
	r.mu.Lock()
	if _, exists := r.recIdx[rec.ID]; exists {
		r.mu.Unlock()
		return false
	}
	r.recIdx[rec.ID] = len(r.medRecords)
	r.medRecords = append(r.medRecords, rec)
	r.mu.Unlock()

	r.mirrorWrite("insert medical record", func(ctx context.Context) error {
		return r.mirror.InsertMedicalRecord(ctx, rec)
	})
	return true
}

func (r *Registry) UpdateMedicalRecord(rec records.MedicalRecord) bool {
	r.mu.Lock()
	idx, ok := r.recIdx[rec.ID]
	if !ok {
		r.mu.Unlock()
		return false
	}
	r.medRecords[idx] = rec
	r.mu.Unlock()

	r.mirrorWrite("update medical record", func(ctx context.Context) error {
		return r.mirror.UpdateMedicalRecord(ctx, rec)
	})
	return true
}

func (r *Registry) MedicalRecord(id string) (records.MedicalRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	idx, ok := r.recIdx[id]
	if !ok {
		return records.MedicalRecord{}, false
	}
	return r.medRecords[idx], true
}

func (r *Registry) AllMedicalRecords() []records.MedicalRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]records.MedicalRecord, len(r.medRecords))
	copy(out, r.medRecords)
	return out
}

func (r *Registry) MedicalRecordsByPatient(patientID string) []records.MedicalRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []records.MedicalRecord
	for _, rec := range r.medRecords {
		if rec.PatientID == patientID {
			out = append(out, rec)
		}
	}
	return out
}

func (r *Registry) MedicalRecordsByDoctor(doctorID string) []records.MedicalRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []records.MedicalRecord
	for _, rec := range r.medRecords {
		if rec.DoctorID == doctorID {
			out = append(out, rec)
		}
	}
	return out
}

// -- Prescriptions --

func (r *Registry) AddPrescription(p records.Prescription) bool {
	r.mu.Lock()
	if _, exists := r.presIdx[p.ID]; exists {
		r.mu.Unlock()
		return false
	}
	r.presIdx[p.ID] = len(r.prescriptions)
	r.prescriptions = append(r.prescriptions, p)
	r.mu.Unlock()

	r.mirrorWrite("insert prescription", func(ctx context.Context) error {
		return r.mirror.InsertPrescription(ctx, p)
	})
	return true
}

func (r *Registry) UpdatePrescription(p records.Prescription) bool {
	r.mu.Lock()
	idx, ok := r.presIdx[p.ID]
	if !ok {
		r.mu.Unlock()
		return false
	}
	r.prescriptions[idx] = p
	r.mu.Unlock()

	r.mirrorWrite("update prescription", func(ctx context.Context) error {
		return r.mirror.UpdatePrescription(ctx, p)
	})
	return true
}

func (r *Registry) Prescription(id string) (records.Prescription, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	idx, ok := r.presIdx[id]
	if !ok {
		return records.Prescription{}, false
	}
	return r.prescriptions[idx], true
}

func (r *Registry) AllPrescriptions() []records.Prescription {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]records.Prescription, len(r.prescriptions))
	copy(out, r.prescriptions)
	return out
}

func (r *Registry) PrescriptionsByPatient(patientID string) []records.Prescription {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []records.Prescription
	for _, p := range r.prescriptions {
		if p.PatientID == patientID {
			out = append(out, p)
		}
	}
	return out
}

func (r *Registry) PrescriptionsByDoctor(doctorID string) []records.Prescription {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []records.Prescription
	for _, p := range r.prescriptions {
		if p.DoctorID == doctorID {
			out = append(out, p)
		}
	}
	return out
}

// -- Scans --

func (r *Registry) AddScan(sc imaging.Scan) bool {
	r.mu.Lock()
	if _, exists := r.scanIdx[sc.ID]; exists {
		r.mu.Unlock()
		return false
	}
	r.scanIdx[sc.ID] = len(r.scans)
	r.scans = append(r.scans, sc)
	r.mu.Unlock()

	r.mirrorWrite("insert scan", func(ctx context.Context) error {
		return r.mirror.InsertScan(ctx, sc)
	})
	return true
}

func (r *Registry) Scan(id string) (imaging.Scan, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	idx, ok := r.scanIdx[id]
	if !ok {
		return imaging.Scan{}, false
	}
	return r.scans[idx], true
}

func (r *Registry) AllScans() []imaging.Scan {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]imaging.Scan, len(r.scans))
	copy(out, r.scans)
	return out
}

func (r *Registry) ScansByPatient(patientID string) []imaging.Scan {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []imaging.Scan
	for _, sc := range r.scans {
		if sc.PatientID == patientID {
			out = append(out, sc)
		}
	}
	return out
}

// -- Read-side counts --
// These aggregate memory only; they never consult the mirror.

func (r *Registry) CountUsersByRole(role identity.Role) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, u := range r.users {
		if u.Role == role {
			n++
		}
	}
	return n
}

func (r *Registry) CountAppointmentsByStatus(st scheduling.Status) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, a := range r.appointments {
		if a.Status == st {
			n++
		}
	}
	return n
}

func (r *Registry) CountAppointmentsByDoctor(doctorID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, a := range r.appointments {
		if a.DoctorID == doctorID {
			n++
		}
	}
	return n
}

// CountUpcomingAppointmentsByPatient counts the patient's active
// appointments dated today or later.
func (r *Registry) CountUpcomingAppointmentsByPatient(patientID string) int {
	today := time.Now().UTC().Format(scheduling.DateLayout)
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, a := range r.appointments {
		if a.PatientID == patientID && a.Status.Active() && a.Date >= today {
			n++
		}
	}
	return n
}

func (r *Registry) CountMedicalRecords() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.medRecords)
}

func (r *Registry) CountPrescriptions() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.prescriptions)
}

func (r *Registry) CountScans() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.scans)
}
