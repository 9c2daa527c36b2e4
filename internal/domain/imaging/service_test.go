package imaging

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"
)

type mockStore struct {
	patients     map[string]bool
	appointments map[string]bool
	scans        []Scan
	scanN        int
	addFails     bool
}

func newMockStore() *mockStore {
	return &mockStore{
		patients:     map[string]bool{"PAT001": true},
		appointments: map[string]bool{"APT001": true},
	}
}

func (m *mockStore) HasPatient(id string) bool     { return m.patients[id] }
func (m *mockStore) HasAppointment(id string) bool { return m.appointments[id] }

func (m *mockStore) NextScanID() string {
	m.scanN++
	return fmt.Sprintf("SCN%03d", m.scanN)
}

func (m *mockStore) AddScan(sc Scan) bool {
	if m.addFails {
		return false
	}
	m.scans = append(m.scans, sc)
	return true
}

func (m *mockStore) Scan(id string) (Scan, bool) {
	for _, sc := range m.scans {
		if sc.ID == id {
			return sc, true
		}
	}
	return Scan{}, false
}

func (m *mockStore) ScansByPatient(patientID string) []Scan {
	var out []Scan
	for _, sc := range m.scans {
		if sc.PatientID == patientID {
			out = append(out, sc)
		}
	}
	return out
}

func (m *mockStore) AllScans() []Scan { return m.scans }

func newTestService(store *mockStore, files FileStore) *Service {
	svc := NewService(store, files)
	svc.now = func() time.Time {
		return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	}
	return svc
}

func TestUpload(t *testing.T) {
	store := newMockStore()
	svc := newTestService(store, NewMemoryStore())

	sc, err := svc.Upload(context.Background(), "PAT001", "APT001", "chest.png", "image/png", "Chest x-ray", strings.NewReader("png-bytes"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if sc.ID != "SCN001" {
		t.Errorf("expected SCN001, got %s", sc.ID)
	}
	if sc.FileSize != int64(len("png-bytes")) {
		t.Errorf("unexpected size %d", sc.FileSize)
	}
	if sc.FileType != "image/png" {
		t.Errorf("unexpected type %s", sc.FileType)
	}
	sum := sha256.Sum256([]byte("png-bytes"))
	if sc.Checksum != hex.EncodeToString(sum[:]) {
		t.Errorf("unexpected checksum %s", sc.Checksum)
	}
	if sc.AppointmentID != "APT001" {
		t.Errorf("unexpected appointment %s", sc.AppointmentID)
	}
}

func TestUpload_NoAppointmentLink(t *testing.T) {
	svc := newTestService(newMockStore(), NewMemoryStore())
	sc, err := svc.Upload(context.Background(), "PAT001", "", "chest.png", "image/png", "", strings.NewReader("x"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if sc.AppointmentID != "" {
		t.Errorf("expected empty appointment id, got %s", sc.AppointmentID)
	}
}

func TestUpload_Validation(t *testing.T) {
	cases := []struct {
		name        string
		patientID   string
		apptID      string
		fileName    string
		contentType string
		wantErr     error
	}{
		{"missing file name", "PAT001", "", " ", "image/png", ErrInvalidInput},
		{"bad content type", "PAT001", "", "scan.exe", "application/octet-stream", ErrBadContentType},
		{"unknown patient", "PAT999", "", "scan.png", "image/png", ErrPatientNotFound},
		{"unknown appointment", "PAT001", "APT999", "scan.png", "image/png", ErrAppointmentNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := newTestService(newMockStore(), NewMemoryStore())
			_, err := svc.Upload(context.Background(), tc.patientID, tc.apptID, tc.fileName, tc.contentType, "", strings.NewReader("x"))
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestUpload_RemovesOrphanOnRegistrationFailure(t *testing.T) {
	store := newMockStore()
	store.addFails = true
	files := NewMemoryStore()
	svc := newTestService(store, files)

	_, err := svc.Upload(context.Background(), "PAT001", "", "chest.png", "image/png", "", strings.NewReader("x"))
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if len(files.files) != 0 {
		t.Errorf("expected orphan file to be removed, %d left", len(files.files))
	}
}

func TestDownload(t *testing.T) {
	store := newMockStore()
	svc := newTestService(store, NewMemoryStore())
	up, _ := svc.Upload(context.Background(), "PAT001", "", "chest.png", "image/png", "", strings.NewReader("png-bytes"))

	sc, rc, err := svc.Download(context.Background(), up.ID)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	defer rc.Close()
	if sc.ID != up.ID {
		t.Errorf("unexpected scan %s", sc.ID)
	}
	data, _ := io.ReadAll(rc)
	if string(data) != "png-bytes" {
		t.Errorf("unexpected content %q", data)
	}
}

func TestDownload_Unknown(t *testing.T) {
	svc := newTestService(newMockStore(), NewMemoryStore())
	if _, _, err := svc.Download(context.Background(), "SCN999"); !errors.Is(err, ErrScanNotFound) {
		t.Fatalf("expected ErrScanNotFound, got %v", err)
	}
}

func TestListByPatient(t *testing.T) {
	store := newMockStore()
	store.patients["PAT002"] = true
	svc := newTestService(store, NewMemoryStore())
	svc.Upload(context.Background(), "PAT001", "", "a.png", "image/png", "", strings.NewReader("a"))
	svc.Upload(context.Background(), "PAT002", "", "b.png", "image/png", "", strings.NewReader("b"))
	svc.Upload(context.Background(), "PAT001", "", "c.png", "image/png", "", strings.NewReader("c"))

	got := svc.ListByPatient("PAT001")
	if len(got) != 2 {
		t.Fatalf("expected 2 scans, got %d", len(got))
	}
	if got[0].ID != "SCN001" || got[1].ID != "SCN003" {
		t.Errorf("upload order not preserved: %s %s", got[0].ID, got[1].ID)
	}
}
