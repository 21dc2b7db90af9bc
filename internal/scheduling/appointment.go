package scheduling

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/psiagenda/scheduling-engine/internal/timeutil"
)

var (
	ErrInvalidTransition = errors.New("invalid appointment status transition")
	ErrNotAuthorized     = errors.New("user is not a party to this appointment")
	ErrInvalidDuration   = errors.New("appointment duration must be positive")
	ErrInvalidValue      = errors.New("appointment value must be positive")
	ErrMissingPayment    = errors.New("appointment requires a payment record")
	ErrPastDate          = errors.New("appointment date cannot be in the past")
)

// NewAppointment is the single creation path for appointments. With
// requirePayment the appointment starts gated in waiting_for_payment and
// must carry a PIX record; without it the appointment starts directly in
// scheduled.
func NewAppointment(date time.Time, patientID, psychologistID uuid.UUID, availabilityID *uuid.UUID, value float64, durationMin int, payment *PixPayment, requirePayment bool) (*Appointment, error) {
	if durationMin == 0 {
		durationMin = DefaultDurationMin
	}
	if durationMin < 0 {
		return nil, ErrInvalidDuration
	}
	if value <= 0 {
		return nil, ErrInvalidValue
	}

	status := StatusScheduled
	if requirePayment {
		if payment == nil {
			return nil, ErrMissingPayment
		}
		status = StatusWaitingForPayment
	}

	return &Appointment{
		ID:             uuid.New(),
		Date:           timeutil.Normalize(date),
		PatientID:      patientID,
		PsychologistID: psychologistID,
		AvailabilityID: availabilityID,
		Value:          value,
		DurationMin:    durationMin,
		Status:         status,
		Payment:        payment,
	}, nil
}

// IsParty reports whether userID is the patient or psychologist on the
// appointment.
func (a *Appointment) IsParty(userID uuid.UUID) bool {
	return userID == a.PatientID || userID == a.PsychologistID
}

// Confirm moves a pending appointment to confirmed. Only the owning
// psychologist may confirm.
func (a *Appointment) Confirm(requesterID uuid.UUID) error {
	if requesterID != a.PsychologistID {
		return ErrNotAuthorized
	}
	if a.Status != StatusScheduled && a.Status != StatusWaitingForPayment {
		return ErrInvalidTransition
	}
	a.Status = StatusConfirmed
	return nil
}

// Cancel ends the appointment from any non-terminal state. Either party
// may cancel. Freeing the reserved slot is the caller's compensating
// action; the entity only tracks its own status.
func (a *Appointment) Cancel(requesterID uuid.UUID) error {
	if !a.IsParty(requesterID) {
		return ErrNotAuthorized
	}
	if a.Status.IsTerminal() {
		return ErrInvalidTransition
	}
	a.Status = StatusCanceled
	return nil
}

// Complete closes out a confirmed appointment. Only the owning
// psychologist may complete.
func (a *Appointment) Complete(requesterID uuid.UUID) error {
	if requesterID != a.PsychologistID {
		return ErrNotAuthorized
	}
	if a.Status != StatusConfirmed {
		return ErrInvalidTransition
	}
	a.Status = StatusCompleted
	return nil
}

// MarkPaymentSent records that the patient reports having sent the PIX
// transfer. It does not advance the status; confirmation stays with the
// psychologist.
func (a *Appointment) MarkPaymentSent(requesterID uuid.UUID, now time.Time) error {
	if requesterID != a.PatientID {
		return ErrNotAuthorized
	}
	if a.Status != StatusWaitingForPayment {
		return ErrInvalidTransition
	}
	if a.Payment != nil && a.Payment.SentAt == nil {
		sent := timeutil.Normalize(now)
		a.Payment.SentAt = &sent
	}
	return nil
}

// Reschedule moves the appointment to a new date and slot reference,
// keeping its current status. Only pre-confirmation appointments may
// move.
func (a *Appointment) Reschedule(requesterID uuid.UUID, newDate time.Time, newAvailabilityID *uuid.UUID) error {
	if !a.IsParty(requesterID) {
		return ErrNotAuthorized
	}
	if a.Status != StatusScheduled && a.Status != StatusWaitingForPayment {
		return ErrInvalidTransition
	}
	a.Date = timeutil.Normalize(newDate)
	a.AvailabilityID = newAvailabilityID
	return nil
}

// Expire cancels an appointment whose PIX payment lapsed without being
// paid. System-initiated, so no requester is checked.
func (a *Appointment) Expire() error {
	if a.Status != StatusWaitingForPayment {
		return ErrInvalidTransition
	}
	a.Status = StatusCanceled
	if a.Payment != nil && a.Payment.Status == PaymentPending {
		a.Payment.Status = PaymentFailed
	}
	return nil
}

// PaymentExpired reports whether the attached PIX record lapsed unpaid
// before now. Used by the expiry sweeper.
func (a *Appointment) PaymentExpired(now time.Time) bool {
	return a.Status == StatusWaitingForPayment &&
		a.Payment != nil &&
		a.Payment.Status == PaymentPending &&
		a.Payment.ExpiresAt.Before(now)
}
