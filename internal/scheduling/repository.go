package scheduling

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/psiagenda/scheduling-engine/internal/matching"
)

var (
	ErrPatientNotFound      = errors.New("patient not found")
	ErrPsychologistNotFound = errors.New("psychologist not found")
	ErrAppointmentNotFound  = errors.New("appointment not found")

	// ErrSlotVersionConflict is returned when a conditional slot write
	// loses to a concurrent writer.
	ErrSlotVersionConflict = errors.New("slot was modified concurrently")
)

// AppointmentFilters narrows List results. Zero-valued fields are
// ignored.
type AppointmentFilters struct {
	From           *time.Time
	To             *time.Time
	PsychologistID *uuid.UUID
	PatientID      *uuid.UUID
	Status         *AppointmentStatus
	AvailabilityID *uuid.UUID
}

// AppointmentRepo persists appointments together with their owned PIX
// payment record.
type AppointmentRepo interface {
	Create(ctx context.Context, a *Appointment) error
	Update(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	List(ctx context.Context, f AppointmentFilters, pageable matching.Pageable) (matching.Page[*Appointment], error)

	// FindExpiredWaiting returns waiting_for_payment appointments whose
	// PIX record lapsed before now. Used by the expiry worker.
	FindExpiredWaiting(ctx context.Context, now time.Time) ([]*Appointment, error)

	InsertEvent(ctx context.Context, ev EventLog) error
}

// PsychologistRepo loads and stores the psychologist aggregate including
// its slot collection. Update must write slot mutations conditionally on
// each slot's version and report ErrSlotVersionConflict on a lost race.
type PsychologistRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Psychologist, error)
	Update(ctx context.Context, p *Psychologist) error
	Search(ctx context.Context, name string) ([]*Psychologist, error)
}

type PatientRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
}

// PaymentProvider creates a PIX charge for the given amount. Failures
// propagate unmodified; the service makes a single attempt.
type PaymentProvider interface {
	CreatePayment(ctx context.Context, amount float64) (*PixPayment, error)
}
