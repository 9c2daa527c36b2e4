package records

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func newTestHandler() (*Handler, *echo.Echo, *Service) {
	svc := newTestService()
	return NewHandler(svc), echo.New(), svc
}

func TestHandler_CreateRecord(t *testing.T) {
	h, e, _ := newTestHandler()
	body := `{"patient_id":"PAT001","doctor_id":"DOC001","diagnosis":"Seasonal allergic rhinitis","symptoms":["sneezing"]}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.CreateRecord(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	var out MedicalRecord
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if out.ID != "REC001" || out.Status != RecordActive {
		t.Errorf("unexpected record: %+v", out)
	}
}

func TestHandler_CreateRecord_UnknownPatient(t *testing.T) {
	h, e, _ := newTestHandler()
	body := `{"patient_id":"PAT999","doctor_id":"DOC001","diagnosis":"Seasonal allergic rhinitis"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.CreateRecord(c)
	var httpErr *echo.HTTPError
	if !errors.As(err, &httpErr) || httpErr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %v", err)
	}
}

func TestHandler_ArchiveRecord(t *testing.T) {
	h, e, svc := newTestHandler()
	r, _ := svc.CreateRecord(recordInput())

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(r.ID)

	if err := h.ArchiveRecord(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), string(RecordArchived)) {
		t.Errorf("expected ARCHIVED in body: %s", rec.Body.String())
	}
}

func TestHandler_ListRecords_RequiresFilter(t *testing.T) {
	h, e, _ := newTestHandler()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.ListRecords(c)
	var httpErr *echo.HTTPError
	if !errors.As(err, &httpErr) || httpErr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without filters or principal, got %v", err)
	}
}

func TestHandler_ListRecords_ByPatient(t *testing.T) {
	h, e, svc := newTestHandler()
	svc.CreateRecord(recordInput())

	req := httptest.NewRequest(http.MethodGet, "/?patient_id=PAT001", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.ListRecords(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var page struct {
		Data  []MedicalRecord `json:"data"`
		Total int             `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &page); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if page.Total != 1 || len(page.Data) != 1 {
		t.Errorf("expected 1 record, got total=%d len=%d", page.Total, len(page.Data))
	}
}

func TestHandler_Refill_Conflict(t *testing.T) {
	h, e, svc := newTestHandler()
	in := prescriptionInput()
	in.RefillsRemaining = 0
	p, _ := svc.CreatePrescription(in)

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(p.ID)

	err := h.Refill(c)
	var httpErr *echo.HTTPError
	if !errors.As(err, &httpErr) || httpErr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %v", err)
	}
}

func TestHandler_CancelPrescription(t *testing.T) {
	h, e, svc := newTestHandler()
	p, _ := svc.CreatePrescription(prescriptionInput())

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(p.ID)

	if err := h.CancelPrescription(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, _ := svc.GetPrescription(p.ID)
	if got.Status != PrescriptionCancelled {
		t.Errorf("expected CANCELLED, got %s", got.Status)
	}
}

func TestHandler_GetPrescription_NotFound(t *testing.T) {
	h, e, _ := newTestHandler()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("PRE999")

	err := h.GetPrescription(c)
	var httpErr *echo.HTTPError
	if !errors.As(err, &httpErr) || httpErr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %v", err)
	}
}
