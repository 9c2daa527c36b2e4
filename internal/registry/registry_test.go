package registry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/caresched/caresched/internal/domain/identity"
	"github.com/caresched/caresched/internal/domain/imaging"
	"github.com/caresched/caresched/internal/domain/records"
	"github.com/caresched/caresched/internal/domain/scheduling"
)

// recordingMirror counts every mirror call and optionally fails all of them.
type recordingMirror struct {
	mu    sync.Mutex
	calls map[string]int
	fail  bool
}

func newRecordingMirror() *recordingMirror {
	return &recordingMirror{calls: make(map[string]int)}
}

func (m *recordingMirror) record(op string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[op]++
	if m.fail {
		return errors.New("mirror down")
	}
	return nil
}

func (m *recordingMirror) count(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

func (m *recordingMirror) InsertUser(_ context.Context, _ identity.User) error {
	return m.record("insert user")
}
func (m *recordingMirror) UpdateUser(_ context.Context, _ identity.User) error {
	return m.record("update user")
}
func (m *recordingMirror) InsertAppointment(_ context.Context, _ scheduling.Appointment) error {
	return m.record("insert appointment")
}
func (m *recordingMirror) UpdateAppointment(_ context.Context, _ scheduling.Appointment) error {
	return m.record("update appointment")
}
func (m *recordingMirror) InsertMedicalRecord(_ context.Context, _ records.MedicalRecord) error {
	return m.record("insert record")
}
func (m *recordingMirror) UpdateMedicalRecord(_ context.Context, _ records.MedicalRecord) error {
	return m.record("update record")
}
func (m *recordingMirror) InsertPrescription(_ context.Context, _ records.Prescription) error {
	return m.record("insert prescription")
}
func (m *recordingMirror) UpdatePrescription(_ context.Context, _ records.Prescription) error {
	return m.record("update prescription")
}
func (m *recordingMirror) InsertScan(_ context.Context, _ imaging.Scan) error {
	return m.record("insert scan")
}

func newTestRegistry(m Mirror) *Registry {
	return New(m, zerolog.Nop())
}

func doctorUser(username, doctorID string, slots ...string) identity.User {
	return identity.User{
		Username: username,
		Password: "secret123",
		FullName: "Dr " + username,
		Role:     identity.RoleDoctor,
		Active:   true,
		Doctor: &identity.DoctorProfile{
			ID:             doctorID,
			Specialization: "Cardiology",
			LicenseNumber:  "LIC-1",
			TimeSlots:      slots,
		},
	}
}

func patientUser(username, patientID string) identity.User {
	return identity.User{
		Username: username,
		Password: "secret123",
		FullName: "Pat " + username,
		Role:     identity.RolePatient,
		Active:   true,
		Patient:  &identity.PatientProfile{ID: patientID, Age: 40},
	}
}

func TestNextID_MonotonicPerPrefix(t *testing.T) {
	r := newTestRegistry(nil)

	if got := r.NextDoctorID(); got != "DOC001" {
		t.Errorf("expected DOC001, got %s", got)
	}
	if got := r.NextDoctorID(); got != "DOC002" {
		t.Errorf("expected DOC002, got %s", got)
	}
	// Other prefixes advance independently.
	if got := r.NextPatientID(); got != "PAT001" {
		t.Errorf("expected PAT001, got %s", got)
	}
	if got := r.NextAppointmentID(); got != "APT001" {
		t.Errorf("expected APT001, got %s", got)
	}
	if got := r.NextDoctorID(); got != "DOC003" {
		t.Errorf("expected DOC003, got %s", got)
	}
}

func TestAddUser_DuplicateUsername(t *testing.T) {
	r := newTestRegistry(nil)

	if !r.AddUser(doctorUser("gregory", "DOC001")) {
		t.Fatal("first add should succeed")
	}
	if r.AddUser(doctorUser("gregory", "DOC002")) {
		t.Error("duplicate username should be rejected")
	}
	if n := len(r.AllUsers()); n != 1 {
		t.Errorf("expected 1 user, got %d", n)
	}
}

func TestValidateCredentials(t *testing.T) {
	r := newTestRegistry(nil)
	r.AddUser(patientUser("alice", "PAT001"))

	if !r.ValidateCredentials("alice", "secret123") {
		t.Error("expected matching credentials to validate")
	}
	if r.ValidateCredentials("alice", "wrong") {
		t.Error("wrong password should not validate")
	}
	if r.ValidateCredentials("nobody", "secret123") {
		t.Error("unknown user should not validate")
	}
}

func TestDoctorAndPatientLookup(t *testing.T) {
	r := newTestRegistry(nil)
	r.AddUser(doctorUser("gregory", "DOC001", "09:00-10:00", "10:00-11:00"))
	r.AddUser(patientUser("alice", "PAT001"))

	doc, ok := r.Doctor("DOC001")
	if !ok || doc.Username != "gregory" {
		t.Fatalf("expected doctor gregory, got %+v ok=%v", doc, ok)
	}
	slots, ok := r.DoctorSlots("DOC001")
	if !ok || len(slots) != 2 || slots[0] != "09:00-10:00" {
		t.Errorf("unexpected slot template: %v ok=%v", slots, ok)
	}
	if _, ok := r.Doctor("DOC999"); ok {
		t.Error("unknown doctor id should not resolve")
	}
	if !r.HasPatient("PAT001") || r.HasPatient("PAT999") {
		t.Error("patient lookup mismatch")
	}
}

func TestAddAppointment_SlotConflict(t *testing.T) {
	r := newTestRegistry(nil)

	first := scheduling.Appointment{
		ID: "APT001", DoctorID: "DOC001", PatientID: "PAT001",
		Date: "2030-01-15", TimeSlot: "09:00-10:00", Status: scheduling.StatusPending,
	}
	if !r.AddAppointment(first) {
		t.Fatal("first booking should succeed")
	}

	conflict := first
	conflict.ID = "APT002"
	conflict.PatientID = "PAT002"
	if r.AddAppointment(conflict) {
		t.Error("second active booking of the same tuple should be rejected")
	}

	// A terminal appointment does not hold the slot.
	cancelled := first
	cancelled.ID = "APT003"
	cancelled.Status = scheduling.StatusCancelled
	cancelled.TimeSlot = "10:00-11:00"
	if !r.AddAppointment(cancelled) {
		t.Fatal("booking a different slot should succeed")
	}
	if !r.IsTimeSlotAvailable("DOC001", "2030-01-15", "10:00-11:00") {
		t.Error("slot held only by a cancelled appointment should be available")
	}
	if r.IsTimeSlotAvailable("DOC001", "2030-01-15", "09:00-10:00") {
		t.Error("slot held by a pending appointment should be unavailable")
	}
}

func TestIsTimeSlotAvailableExcluding(t *testing.T) {
	r := newTestRegistry(nil)
	r.AddAppointment(scheduling.Appointment{
		ID: "APT001", DoctorID: "DOC001", PatientID: "PAT001",
		Date: "2030-01-15", TimeSlot: "09:00-10:00", Status: scheduling.StatusConfirmed,
	})

	if r.IsTimeSlotAvailableExcluding("DOC001", "2030-01-15", "09:00-10:00", "APT999") {
		t.Error("slot should be unavailable when held by a different appointment")
	}
	if !r.IsTimeSlotAvailableExcluding("DOC001", "2030-01-15", "09:00-10:00", "APT001") {
		t.Error("an appointment does not block its own slot")
	}
}

func TestConcurrentBooking_OneWinner(t *testing.T) {
	r := newTestRegistry(nil)

	const n = 50
	var wg sync.WaitGroup
	wins := make(chan string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a := scheduling.Appointment{
				ID: r.NextAppointmentID(), DoctorID: "DOC001", PatientID: "PAT001",
				Date: "2030-01-15", TimeSlot: "09:00-10:00", Status: scheduling.StatusPending,
			}
			if r.AddAppointment(a) {
				wins <- a.ID
			}
		}()
	}
	wg.Wait()
	close(wins)

	var winners []string
	for id := range wins {
		winners = append(winners, id)
	}
	if len(winners) != 1 {
		t.Fatalf("expected exactly one winning booking, got %d (%v)", len(winners), winners)
	}
}

func TestMirrorFailure_DoesNotBlockMemory(t *testing.T) {
	m := newRecordingMirror()
	m.fail = true
	r := newTestRegistry(m)

	if !r.AddUser(doctorUser("gregory", "DOC001", "09:00-10:00")) {
		t.Fatal("add should succeed despite mirror failure")
	}
	if !r.AddAppointment(scheduling.Appointment{
		ID: "APT001", DoctorID: "DOC001", PatientID: "PAT001",
		Date: "2030-01-15", TimeSlot: "09:00-10:00", Status: scheduling.StatusPending,
	}) {
		t.Fatal("booking should succeed despite mirror failure")
	}

	// Reads come from memory and see everything.
	if _, ok := r.Doctor("DOC001"); !ok {
		t.Error("doctor should be readable from memory")
	}
	if _, ok := r.Appointment("APT001"); !ok {
		t.Error("appointment should be readable from memory")
	}
	if m.count("insert user") != 1 || m.count("insert appointment") != 1 {
		t.Error("mirror should have been attempted for each write")
	}
}

func TestMirrorReceivesWrites(t *testing.T) {
	m := newRecordingMirror()
	r := newTestRegistry(m)

	r.AddUser(patientUser("alice", "PAT001"))
	a := scheduling.Appointment{
		ID: "APT001", DoctorID: "DOC001", PatientID: "PAT001",
		Date: "2030-01-15", TimeSlot: "09:00-10:00", Status: scheduling.StatusPending,
	}
	r.AddAppointment(a)
	a.Status = scheduling.StatusConfirmed
	r.UpdateAppointment(a)
	r.AddMedicalRecord(records.MedicalRecord{ID: "REC001", PatientID: "PAT001", DoctorID: "DOC001", Diagnosis: "flu"})
	r.AddPrescription(records.Prescription{ID: "PRE001", PatientID: "PAT001", DoctorID: "DOC001"})
	r.AddScan(imaging.Scan{ID: "SCN001", PatientID: "PAT001", FilePath: "x", FileType: "image/png"})

	for op, want := range map[string]int{
		"insert user":         1,
		"insert appointment":  1,
		"update appointment":  1,
		"insert record":       1,
		"insert prescription": 1,
		"insert scan":         1,
	} {
		if got := m.count(op); got != want {
			t.Errorf("%s: expected %d mirror calls, got %d", op, want, got)
		}
	}
}

func TestInsertionOrderPreserved(t *testing.T) {
	r := newTestRegistry(nil)
	dates := []string{"2030-01-15", "2030-01-16", "2030-01-17"}
	for _, d := range dates {
		r.AddAppointment(scheduling.Appointment{
			ID: r.NextAppointmentID(), DoctorID: "DOC001", PatientID: "PAT001",
			Date: d, TimeSlot: "09:00-10:00", Status: scheduling.StatusPending,
		})
	}

	all := r.AllAppointments()
	if len(all) != 3 {
		t.Fatalf("expected 3 appointments, got %d", len(all))
	}
	for i, d := range dates {
		if all[i].Date != d {
			t.Errorf("appointment %d: expected date %s, got %s", i, d, all[i].Date)
		}
	}
	if all[0].ID != "APT001" || all[2].ID != "APT003" {
		t.Errorf("ids out of order: %s .. %s", all[0].ID, all[2].ID)
	}
}

func TestCounts(t *testing.T) {
	r := newTestRegistry(nil)
	r.AddUser(doctorUser("gregory", "DOC001"))
	r.AddUser(patientUser("alice", "PAT001"))
	r.AddUser(patientUser("bob", "PAT002"))

	future := time.Now().UTC().AddDate(0, 0, 7).Format(scheduling.DateLayout)
	past := time.Now().UTC().AddDate(0, 0, -7).Format(scheduling.DateLayout)

	r.AddAppointment(scheduling.Appointment{
		ID: "APT001", DoctorID: "DOC001", PatientID: "PAT001",
		Date: future, TimeSlot: "09:00-10:00", Status: scheduling.StatusPending,
	})
	r.AddAppointment(scheduling.Appointment{
		ID: "APT002", DoctorID: "DOC001", PatientID: "PAT001",
		Date: past, TimeSlot: "09:00-10:00", Status: scheduling.StatusCompleted,
	})

	if got := r.CountUsersByRole(identity.RolePatient); got != 2 {
		t.Errorf("expected 2 patients, got %d", got)
	}
	if got := r.CountUsersByRole(identity.RoleDoctor); got != 1 {
		t.Errorf("expected 1 doctor, got %d", got)
	}
	if got := r.CountAppointmentsByStatus(scheduling.StatusPending); got != 1 {
		t.Errorf("expected 1 pending appointment, got %d", got)
	}
	if got := r.CountAppointmentsByDoctor("DOC001"); got != 2 {
		t.Errorf("expected 2 appointments for DOC001, got %d", got)
	}
	if got := r.CountUpcomingAppointmentsByPatient("PAT001"); got != 1 {
		t.Errorf("expected 1 upcoming appointment, got %d", got)
	}
}

func TestUpdateUser(t *testing.T) {
	m := newRecordingMirror()
	r := newTestRegistry(m)
	r.AddUser(patientUser("jsmith", "PAT001"))

	u, _ := r.User("jsmith")
	u.Active = false
	if !r.UpdateUser(u) {
		t.Fatal("update of existing user should succeed")
	}
	got, _ := r.User("jsmith")
	if got.Active {
		t.Error("updated user should be inactive")
	}
	if n := m.count("update user"); n != 1 {
		t.Errorf("expected 1 mirrored user update, got %d", n)
	}

	if r.UpdateUser(identity.User{Username: "nobody"}) {
		t.Error("updating an unknown user should fail")
	}
}

func TestUpdateAppointment_Unknown(t *testing.T) {
	r := newTestRegistry(nil)
	if r.UpdateAppointment(scheduling.Appointment{ID: "APT999"}) {
		t.Error("updating an unknown appointment should fail")
	}
}

func TestStoredByValue(t *testing.T) {
	r := newTestRegistry(nil)
	a := scheduling.Appointment{
		ID: "APT001", DoctorID: "DOC001", PatientID: "PAT001",
		Date: "2030-01-15", TimeSlot: "09:00-10:00", Status: scheduling.StatusPending,
	}
	r.AddAppointment(a)

	got, _ := r.Appointment("APT001")
	got.Status = scheduling.StatusCancelled

	again, _ := r.Appointment("APT001")
	if again.Status != scheduling.StatusPending {
		t.Error("mutating a returned appointment must not touch registry state")
	}
}
