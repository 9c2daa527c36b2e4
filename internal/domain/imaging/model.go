package imaging

import "time"

// Scan is the registry-side record of an uploaded diagnostic file. The
// content itself lives in a FileStore; FilePath is the store-relative
// location and Checksum is the hex SHA-256 of the content.
type Scan struct {
	ID            string    `db:"scan_id" json:"id"`
	PatientID     string    `db:"patient_id" json:"patient_id"`
	AppointmentID string    `db:"appointment_id" json:"appointment_id,omitempty"`
	FilePath      string    `db:"file_path" json:"file_path"`
	FileType      string    `db:"file_type" json:"file_type"`
	FileSize      int64     `db:"file_size" json:"file_size"`
	Checksum      string    `db:"checksum" json:"checksum"`
	Description   string    `db:"description" json:"description,omitempty"`
	UploadedAt    time.Time `db:"uploaded_at" json:"uploaded_at"`
}
