// Package reporting is the read-only statistics consumer of the
// coordinating store. It aggregates memory-resident collections only and
// never reaches the backing store.
package reporting

import (
	"time"

	"github.com/caresched/caresched/internal/domain/identity"
	"github.com/caresched/caresched/internal/domain/scheduling"
)

// Source is the read-side slice of the coordinating store.
type Source interface {
	CountUsersByRole(role identity.Role) int
	CountAppointmentsByStatus(st scheduling.Status) int
	CountAppointmentsByDoctor(doctorID string) int
	CountUpcomingAppointmentsByPatient(patientID string) int
	CountMedicalRecords() int
	CountPrescriptions() int
	CountScans() int
	AllAppointments() []scheduling.Appointment
}

// Overview is the top-level statistics document.
type Overview struct {
	GeneratedAt          time.Time      `json:"generated_at"`
	Admins               int            `json:"admins"`
	Doctors              int            `json:"doctors"`
	Patients             int            `json:"patients"`
	Appointments         int            `json:"appointments"`
	AppointmentsByStatus map[string]int `json:"appointments_by_status"`
	MedicalRecords       int            `json:"medical_records"`
	Prescriptions        int            `json:"prescriptions"`
	Scans                int            `json:"scans"`
}

// DoctorLoad is one row of the per-practitioner appointment breakdown.
type DoctorLoad struct {
	DoctorID  string `json:"doctor_id"`
	Total     int    `json:"total"`
	Pending   int    `json:"pending"`
	Confirmed int    `json:"confirmed"`
	Completed int    `json:"completed"`
}

type Service struct {
	src Source
	now func() time.Time
}

func NewService(src Source) *Service {
	return &Service{src: src, now: time.Now}
}

// Overview aggregates system-wide counts.
func (s *Service) Overview() Overview {
	byStatus := make(map[string]int)
	total := 0
	for _, st := range []scheduling.Status{
		scheduling.StatusPending, scheduling.StatusConfirmed, scheduling.StatusRejected,
		scheduling.StatusCancelled, scheduling.StatusCompleted, scheduling.StatusRescheduled,
	} {
		n := s.src.CountAppointmentsByStatus(st)
		byStatus[string(st)] = n
		total += n
	}
	return Overview{
		GeneratedAt:          s.now().UTC(),
		Admins:               s.src.CountUsersByRole(identity.RoleAdmin),
		Doctors:              s.src.CountUsersByRole(identity.RoleDoctor),
		Patients:             s.src.CountUsersByRole(identity.RolePatient),
		Appointments:         total,
		AppointmentsByStatus: byStatus,
		MedicalRecords:       s.src.CountMedicalRecords(),
		Prescriptions:        s.src.CountPrescriptions(),
		Scans:                s.src.CountScans(),
	}
}

// DoctorLoads breaks appointments down per practitioner, ordered by first
// appearance in the appointment log.
func (s *Service) DoctorLoads() []DoctorLoad {
	idx := make(map[string]int)
	var loads []DoctorLoad
	for _, a := range s.src.AllAppointments() {
		i, ok := idx[a.DoctorID]
		if !ok {
			i = len(loads)
			idx[a.DoctorID] = i
			loads = append(loads, DoctorLoad{DoctorID: a.DoctorID})
		}
		loads[i].Total++
		switch a.Status {
		case scheduling.StatusPending:
			loads[i].Pending++
		case scheduling.StatusConfirmed:
			loads[i].Confirmed++
		case scheduling.StatusCompleted:
			loads[i].Completed++
		}
	}
	return loads
}

// UpcomingForPatient counts a patient's still-active future appointments.
func (s *Service) UpcomingForPatient(patientID string) int {
	return s.src.CountUpcomingAppointmentsByPatient(patientID)
}
