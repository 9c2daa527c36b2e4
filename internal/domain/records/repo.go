package records

// Store is the slice of the coordinating store the records service depends
// on. Writes are mirrored best-effort by the implementation.
type Store interface {
	HasDoctor(doctorID string) bool
	HasPatient(patientID string) bool

	NextRecordID() string
	AddMedicalRecord(r MedicalRecord) bool
	MedicalRecord(id string) (MedicalRecord, bool)
	UpdateMedicalRecord(r MedicalRecord) bool
	MedicalRecordsByPatient(patientID string) []MedicalRecord
	MedicalRecordsByDoctor(doctorID string) []MedicalRecord

	NextPrescriptionID() string
	AddPrescription(p Prescription) bool
	Prescription(id string) (Prescription, bool)
	UpdatePrescription(p Prescription) bool
	PrescriptionsByPatient(patientID string) []Prescription
	PrescriptionsByDoctor(doctorID string) []Prescription
}
