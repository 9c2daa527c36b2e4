package scheduling

// Store is the slice of the coordinating store the scheduling service
// depends on. All writes are best-effort mirrored to the backing store by
// the implementation; mirror failure is logged there and never surfaces
// through this interface.
type Store interface {
	HasDoctor(doctorID string) bool
	HasPatient(patientID string) bool
	// DoctorSlots returns the doctor's declared slot template in declared
	// order, and whether the doctor exists at all.
	DoctorSlots(doctorID string) ([]string, bool)

	NextAppointmentID() string
	// AddAppointment inserts if, and only if, the (doctor, date, slot) tuple
	// is not held by another active appointment. The occupancy re-check and
	// the insert happen under one lock.
	AddAppointment(a Appointment) bool
	Appointment(id string) (Appointment, bool)
	UpdateAppointment(a Appointment) bool
	AllAppointments() []Appointment
	AppointmentsByDoctor(doctorID string) []Appointment
	AppointmentsByPatient(patientID string) []Appointment

	IsTimeSlotAvailable(doctorID, date, slot string) bool
	// IsTimeSlotAvailableExcluding ignores the named appointment, so a
	// reschedule does not collide with itself.
	IsTimeSlotAvailableExcluding(doctorID, date, slot, excludeID string) bool
}
