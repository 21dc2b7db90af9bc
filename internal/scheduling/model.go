package scheduling

import (
	"time"

	"github.com/google/uuid"

	"github.com/psiagenda/scheduling-engine/internal/timeutil"
)

type AppointmentStatus string

const (
	StatusWaitingForPayment AppointmentStatus = "waiting_for_payment"
	StatusScheduled         AppointmentStatus = "scheduled"
	StatusConfirmed         AppointmentStatus = "confirmed"
	StatusCanceled          AppointmentStatus = "canceled"
	StatusCompleted         AppointmentStatus = "completed"
)

// IsTerminal reports whether no further transition is allowed from s.
func (s AppointmentStatus) IsTerminal() bool {
	return s == StatusCanceled || s == StatusCompleted
}

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentFailed  PaymentStatus = "failed"
)

type Gender string

const (
	GenderFemale Gender = "female"
	GenderMale   Gender = "male"
	GenderOther  Gender = "other"
)

// DefaultDurationMin is the session length assigned when the caller does
// not specify one.
const DefaultDurationMin = 50

// Slot is a single bookable time unit owned by one psychologist. Date is
// always stored normalized (UTC, whole seconds). Version backs the
// conditional write used by the repository so that two concurrent
// bookings of the same slot cannot both succeed.
type Slot struct {
	ID        uuid.UUID
	Date      time.Time
	Available bool
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PixPayment is the payment record attached one-to-one to an appointment.
// Its internal lifecycle (provider callbacks) is driven externally; only
// the resulting record is consumed here.
type PixPayment struct {
	ID                uuid.UUID
	Amount            float64
	ProviderPaymentID string
	Payload           string
	ExpiresAt         time.Time
	Status            PaymentStatus
	SentAt            *time.Time
	CreatedAt         time.Time
}

type Appointment struct {
	ID             uuid.UUID
	Date           time.Time
	PatientID      uuid.UUID
	PsychologistID uuid.UUID
	AvailabilityID *uuid.UUID
	Value          float64
	DurationMin    int
	Status         AppointmentStatus
	Payment        *PixPayment
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type Patient struct {
	ID        uuid.UUID
	Name      string
	Email     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Psychologist owns its slots exclusively; slots are never shared across
// psychologists. The searchable attributes feed the match ranker.
type Psychologist struct {
	ID                  uuid.UUID
	Name                string
	Gender              Gender
	SpecialtyIDs        []uuid.UUID
	ApproachIDs         []uuid.UUID
	Audiences           []string
	ValuePerAppointment float64
	Slots               []*Slot
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// NewSlot builds a slot at the normalized instant, open for booking.
func NewSlot(date time.Time) *Slot {
	return &Slot{
		ID:        uuid.New(),
		Date:      timeutil.Normalize(date),
		Available: true,
	}
}

type EventLog struct {
	ID            int64
	EventType     string
	AppointmentID *uuid.UUID
	Payload       []byte
	CreatedAt     time.Time
}
