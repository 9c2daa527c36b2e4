package imaging

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

var (
	ErrScanNotFound        = errors.New("scan not found")
	ErrPatientNotFound     = errors.New("patient not found")
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrInvalidInput        = errors.New("invalid input")
)

// Store is the slice of the coordinating store the imaging service depends
// on.
type Store interface {
	HasPatient(patientID string) bool
	HasAppointment(appointmentID string) bool
	NextScanID() string
	AddScan(sc Scan) bool
	Scan(id string) (Scan, bool)
	ScansByPatient(patientID string) []Scan
	AllScans() []Scan
}

type Service struct {
	store Store
	files FileStore
	now   func() time.Time
}

func NewService(store Store, files FileStore) *Service {
	return &Service{store: store, files: files, now: time.Now}
}

// Upload validates and stores a scan file, then registers the Scan record.
// The optional appointmentID links the scan to a booking.
func (s *Service) Upload(ctx context.Context, patientID, appointmentID, fileName, contentType, description string, content io.Reader) (Scan, error) {
	if strings.TrimSpace(fileName) == "" {
		return Scan{}, fmt.Errorf("%w: file name is required", ErrInvalidInput)
	}
	if !AllowedContentTypes[contentType] {
		return Scan{}, fmt.Errorf("%w: %s", ErrBadContentType, contentType)
	}
	if !s.store.HasPatient(patientID) {
		return Scan{}, fmt.Errorf("%w: %s", ErrPatientNotFound, patientID)
	}
	if appointmentID != "" && !s.store.HasAppointment(appointmentID) {
		return Scan{}, fmt.Errorf("%w: %s", ErrAppointmentNotFound, appointmentID)
	}

	sum := sha256.New()
	path, size, err := s.files.Save(ctx, fileName, io.TeeReader(content, sum))
	if err != nil {
		return Scan{}, err
	}

	sc := Scan{
		ID:            s.store.NextScanID(),
		PatientID:     patientID,
		AppointmentID: appointmentID,
		FilePath:      path,
		FileType:      contentType,
		FileSize:      size,
		Checksum:      hex.EncodeToString(sum.Sum(nil)),
		Description:   description,
		UploadedAt:    s.now().UTC(),
	}
	if !s.store.AddScan(sc) {
		// The file is orphaned if registration fails; remove it so the store
		// and the disk stay in step.
		_ = s.files.Remove(ctx, path)
		return Scan{}, fmt.Errorf("%w: duplicate id %s", ErrInvalidInput, sc.ID)
	}
	return sc, nil
}

// Download returns the scan record and an open reader over its content.
func (s *Service) Download(ctx context.Context, id string) (Scan, io.ReadCloser, error) {
	sc, ok := s.store.Scan(id)
	if !ok {
		return Scan{}, nil, fmt.Errorf("%w: %s", ErrScanNotFound, id)
	}
	rc, err := s.files.Open(ctx, sc.FilePath)
	if err != nil {
		return Scan{}, nil, err
	}
	return sc, rc, nil
}

func (s *Service) Get(id string) (Scan, error) {
	sc, ok := s.store.Scan(id)
	if !ok {
		return Scan{}, fmt.Errorf("%w: %s", ErrScanNotFound, id)
	}
	return sc, nil
}

func (s *Service) ListByPatient(patientID string) []Scan {
	return s.store.ScansByPatient(patientID)
}
