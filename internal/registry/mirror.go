package registry

import (
	"context"
	"errors"

	"github.com/caresched/caresched/internal/domain/identity"
	"github.com/caresched/caresched/internal/domain/imaging"
	"github.com/caresched/caresched/internal/domain/records"
	"github.com/caresched/caresched/internal/domain/scheduling"
)

// ErrMirrorUnavailable reports that the backing store cannot be reached at
// all (no pool, connection refused, pool closed). Callers treat it the same
// as any other mirror failure: log and continue.
var ErrMirrorUnavailable = errors.New("backing store unavailable")

// Mirror receives best-effort copies of every registry write. A nil return
// means the write is durable in the backing store (a swallowed duplicate-key
// insert also reports nil, so reseeding after a restart is idempotent).
// The registry never reads through the mirror; memory is the single source
// of truth.
type Mirror interface {
	InsertUser(ctx context.Context, u identity.User) error
	UpdateUser(ctx context.Context, u identity.User) error
	InsertAppointment(ctx context.Context, a scheduling.Appointment) error
	UpdateAppointment(ctx context.Context, a scheduling.Appointment) error
	InsertMedicalRecord(ctx context.Context, r records.MedicalRecord) error
	UpdateMedicalRecord(ctx context.Context, r records.MedicalRecord) error
	InsertPrescription(ctx context.Context, p records.Prescription) error
	UpdatePrescription(ctx context.Context, p records.Prescription) error
	InsertScan(ctx context.Context, sc imaging.Scan) error
}
