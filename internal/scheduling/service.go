package scheduling

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/psiagenda/scheduling-engine/internal/config"
	"github.com/psiagenda/scheduling-engine/internal/matching"
	redisclient "github.com/psiagenda/scheduling-engine/internal/redis"
	"github.com/psiagenda/scheduling-engine/internal/timeutil"
)

const (
	EventAppointmentSolicited   = "APPOINTMENT_SOLICITED"
	EventAppointmentConfirmed   = "APPOINTMENT_CONFIRMED"
	EventAppointmentCanceled    = "APPOINTMENT_CANCELED"
	EventAppointmentRescheduled = "APPOINTMENT_RESCHEDULED"
	EventAppointmentCompleted   = "APPOINTMENT_COMPLETED"
	EventAppointmentExpired     = "APPOINTMENT_EXPIRED"
	EventPaymentSent            = "PAYMENT_SENT"
)

// ErrSlotBeingBooked is returned when another request holds the booking
// lock for the same psychologist and instant.
var ErrSlotBeingBooked = errors.New("slot is currently being booked, please retry")

// Service coordinates the scheduling use cases: solicit, cancel,
// reschedule, confirm, complete, availability management and the ranked
// psychologist search.
type Service struct {
	appointments  AppointmentRepo
	psychologists PsychologistRepo
	patients      PatientRepo
	payments      PaymentProvider
	locker        redisclient.Locker
	ranker        *matching.Ranker
	cfg           config.Config
	log           *zap.Logger
}

func NewService(
	appointments AppointmentRepo,
	psychologists PsychologistRepo,
	patients PatientRepo,
	payments PaymentProvider,
	locker redisclient.Locker,
	cfg config.Config,
	log *zap.Logger,
) *Service {
	return &Service{
		appointments:  appointments,
		psychologists: psychologists,
		patients:      patients,
		payments:      payments,
		locker:        locker,
		ranker:        matching.NewRanker(cfg.RankWeights),
		cfg:           cfg,
		log:           log,
	}
}

// SolicitAppointment reserves the psychologist's slot at the given
// instant, attaches a fresh PIX charge at the psychologist's rate and
// creates the appointment gated in waiting_for_payment. The whole
// critical section runs under the per-slot distributed lock; the
// conditional slot write in the repository backstops it.
func (s *Service) SolicitAppointment(ctx context.Context, patientID, psychologistID uuid.UUID, date time.Time) (*Appointment, error) {
	patient, err := s.patients.GetByID(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("load patient: %w", err)
	}

	var created *Appointment

	err = s.locker.WithSlotLock(ctx, psychologistID, date, func(lockCtx context.Context) error {
		// Load inside the critical section so the slot state is fresh.
		psy, err := s.psychologists.GetByID(lockCtx, psychologistID)
		if err != nil {
			return fmt.Errorf("load psychologist: %w", err)
		}

		slot, err := psy.FindSlot(date)
		if err != nil {
			return err
		}
		if err := slot.Schedule(time.Now()); err != nil {
			return err
		}

		payment, err := s.payments.CreatePayment(lockCtx, psy.ValuePerAppointment)
		if err != nil {
			return fmt.Errorf("create pix payment: %w", err)
		}

		appt, err := NewAppointment(date, patient.ID, psy.ID, &slot.ID, psy.ValuePerAppointment, 0, payment, true)
		if err != nil {
			return err
		}

		if err := s.psychologists.Update(lockCtx, psy); err != nil {
			return fmt.Errorf("persist psychologist: %w", err)
		}
		if err := s.appointments.Create(lockCtx, appt); err != nil {
			return fmt.Errorf("persist appointment: %w", err)
		}

		created = appt

		s.logEvent(lockCtx, appt.ID, EventAppointmentSolicited, map[string]any{
			"patient_id":      patient.ID.String(),
			"psychologist_id": psy.ID.String(),
			"date":            timeutil.Normalize(date),
			"value":           appt.Value,
		})
		return nil
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrSlotBeingBooked
		}
		return nil, err
	}

	return created, nil
}

// CancelAppointment ends the appointment at the request of either party
// and frees the reserved slot as the compensating action.
func (s *Service) CancelAppointment(ctx context.Context, appointmentID, requesterID uuid.UUID) (*Appointment, error) {
	appt, err := s.appointments.GetByID(ctx, appointmentID)
	if err != nil {
		return nil, fmt.Errorf("load appointment: %w", err)
	}

	if err := appt.Cancel(requesterID); err != nil {
		return nil, err
	}

	if err := s.releaseSlot(ctx, appt); err != nil {
		return nil, err
	}

	if err := s.appointments.Update(ctx, appt); err != nil {
		return nil, fmt.Errorf("persist appointment: %w", err)
	}

	s.logEvent(ctx, appt.ID, EventAppointmentCanceled, map[string]any{
		"requested_by": requesterID.String(),
	})
	return appt, nil
}

// RescheduleAppointment moves the appointment to an open slot at newDate.
// On any failure before the saves, nothing is persisted: the original
// appointment and slots remain as they were.
func (s *Service) RescheduleAppointment(ctx context.Context, appointmentID uuid.UUID, newDate time.Time, requesterID uuid.UUID) (*Appointment, error) {
	appt, err := s.appointments.GetByID(ctx, appointmentID)
	if err != nil {
		return nil, fmt.Errorf("load appointment: %w", err)
	}
	if !appt.IsParty(requesterID) {
		return nil, ErrNotAuthorized
	}
	if timeutil.Normalize(newDate).Before(timeutil.Normalize(time.Now())) {
		return nil, ErrPastDate
	}

	psy, err := s.psychologists.GetByID(ctx, appt.PsychologistID)
	if err != nil {
		return nil, fmt.Errorf("load psychologist: %w", err)
	}

	newSlot, err := psy.FindSlot(newDate)
	if err != nil {
		return nil, err
	}
	if err := newSlot.Schedule(time.Now()); err != nil {
		return nil, err
	}

	if appt.AvailabilityID != nil {
		if old := psy.SlotByID(*appt.AvailabilityID); old != nil && !old.Available {
			if err := old.Unschedule(); err != nil {
				return nil, err
			}
		}
	}

	if err := appt.Reschedule(requesterID, newDate, &newSlot.ID); err != nil {
		return nil, err
	}

	if err := s.psychologists.Update(ctx, psy); err != nil {
		return nil, fmt.Errorf("persist psychologist: %w", err)
	}
	if err := s.appointments.Update(ctx, appt); err != nil {
		return nil, fmt.Errorf("persist appointment: %w", err)
	}

	s.logEvent(ctx, appt.ID, EventAppointmentRescheduled, map[string]any{
		"requested_by": requesterID.String(),
		"new_date":     timeutil.Normalize(newDate),
	})
	return appt, nil
}

// ConfirmAppointment is the psychologist acknowledging the booking (and,
// for gated appointments, the received payment).
func (s *Service) ConfirmAppointment(ctx context.Context, appointmentID, requesterID uuid.UUID) (*Appointment, error) {
	appt, err := s.appointments.GetByID(ctx, appointmentID)
	if err != nil {
		return nil, fmt.Errorf("load appointment: %w", err)
	}
	if err := appt.Confirm(requesterID); err != nil {
		return nil, err
	}
	if appt.Payment != nil && appt.Payment.Status == PaymentPending {
		appt.Payment.Status = PaymentPaid
	}
	if err := s.appointments.Update(ctx, appt); err != nil {
		return nil, fmt.Errorf("persist appointment: %w", err)
	}

	s.logEvent(ctx, appt.ID, EventAppointmentConfirmed, map[string]any{})
	return appt, nil
}

// CompleteAppointment marks a confirmed appointment as held.
func (s *Service) CompleteAppointment(ctx context.Context, appointmentID, requesterID uuid.UUID) (*Appointment, error) {
	appt, err := s.appointments.GetByID(ctx, appointmentID)
	if err != nil {
		return nil, fmt.Errorf("load appointment: %w", err)
	}
	if err := appt.Complete(requesterID); err != nil {
		return nil, err
	}
	if err := s.appointments.Update(ctx, appt); err != nil {
		return nil, fmt.Errorf("persist appointment: %w", err)
	}

	s.logEvent(ctx, appt.ID, EventAppointmentCompleted, map[string]any{})
	return appt, nil
}

// MarkPaymentSent records the patient's claim of having transferred the
// PIX amount. The status stays waiting_for_payment until the
// psychologist confirms.
func (s *Service) MarkPaymentSent(ctx context.Context, appointmentID, requesterID uuid.UUID) (*Appointment, error) {
	appt, err := s.appointments.GetByID(ctx, appointmentID)
	if err != nil {
		return nil, fmt.Errorf("load appointment: %w", err)
	}
	if err := appt.MarkPaymentSent(requesterID, time.Now()); err != nil {
		return nil, err
	}
	if err := s.appointments.Update(ctx, appt); err != nil {
		return nil, fmt.Errorf("persist appointment: %w", err)
	}

	s.logEvent(ctx, appt.ID, EventPaymentSent, map[string]any{})
	return appt, nil
}

// GetAppointment loads one appointment by id.
func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	appt, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get appointment: %w", err)
	}
	return appt, nil
}

// ListAppointments returns one page of appointments matching the
// filters.
func (s *Service) ListAppointments(ctx context.Context, f AppointmentFilters, pageable matching.Pageable) (matching.Page[*Appointment], error) {
	page, err := s.appointments.List(ctx, f, pageable)
	if err != nil {
		return matching.Page[*Appointment]{}, fmt.Errorf("list appointments: %w", err)
	}
	return page, nil
}

// AddAvailabilities creates open slots on the psychologist's book.
func (s *Service) AddAvailabilities(ctx context.Context, psychologistID uuid.UUID, dates []time.Time) (*Psychologist, error) {
	psy, err := s.psychologists.GetByID(ctx, psychologistID)
	if err != nil {
		return nil, fmt.Errorf("load psychologist: %w", err)
	}
	if err := psy.AddAvailabilities(dates, time.Now()); err != nil {
		return nil, err
	}
	if err := s.psychologists.Update(ctx, psy); err != nil {
		return nil, fmt.Errorf("persist psychologist: %w", err)
	}
	return psy, nil
}

// RemoveAvailabilities drops the open slots at the given instants.
func (s *Service) RemoveAvailabilities(ctx context.Context, psychologistID uuid.UUID, dates []time.Time) (*Psychologist, error) {
	psy, err := s.psychologists.GetByID(ctx, psychologistID)
	if err != nil {
		return nil, fmt.Errorf("load psychologist: %w", err)
	}
	if err := psy.RemoveAvailabilities(dates); err != nil {
		return nil, err
	}
	if err := s.psychologists.Update(ctx, psy); err != nil {
		return nil, fmt.Errorf("persist psychologist: %w", err)
	}
	return psy, nil
}

// ListAvailabilities loads the psychologist's current slot book.
func (s *Service) ListAvailabilities(ctx context.Context, psychologistID uuid.UUID) ([]*Slot, error) {
	psy, err := s.psychologists.GetByID(ctx, psychologistID)
	if err != nil {
		return nil, fmt.Errorf("load psychologist: %w", err)
	}
	return psy.Slots, nil
}

// SearchPsychologists ranks the candidate pool against the patient's
// filters and returns the requested page, most relevant first.
func (s *Service) SearchPsychologists(ctx context.Context, name string, f matching.Filters, pageable matching.Pageable) (matching.Page[matching.Candidate], error) {
	pool, err := s.psychologists.Search(ctx, name)
	if err != nil {
		return matching.Page[matching.Candidate]{}, fmt.Errorf("search psychologists: %w", err)
	}

	candidates := make([]matching.Candidate, 0, len(pool))
	for _, p := range pool {
		candidates = append(candidates, matching.Candidate{
			ID:                  p.ID,
			Name:                p.Name,
			Gender:              string(p.Gender),
			SpecialtyIDs:        p.SpecialtyIDs,
			ApproachIDs:         p.ApproachIDs,
			Audiences:           p.Audiences,
			ValuePerAppointment: p.ValuePerAppointment,
		})
	}

	return s.ranker.Rank(candidates, f, pageable), nil
}

// ExpireUnpaidAppointments cancels waiting_for_payment appointments whose
// PIX charge lapsed, freeing their slots. Called periodically by the
// expiry worker.
func (s *Service) ExpireUnpaidAppointments(ctx context.Context) error {
	now := time.Now()
	candidates, err := s.appointments.FindExpiredWaiting(ctx, now)
	if err != nil {
		return fmt.Errorf("find expired appointments: %w", err)
	}

	for _, appt := range candidates {
		if !appt.PaymentExpired(now) {
			continue
		}
		if err := appt.Expire(); err != nil {
			continue
		}
		if err := s.releaseSlot(ctx, appt); err != nil {
			s.log.Warn("release slot for expired appointment",
				zap.String("appointment_id", appt.ID.String()), zap.Error(err))
			continue
		}
		if err := s.appointments.Update(ctx, appt); err != nil {
			s.log.Warn("persist expired appointment",
				zap.String("appointment_id", appt.ID.String()), zap.Error(err))
			continue
		}
		s.logEvent(ctx, appt.ID, EventAppointmentExpired, map[string]any{
			"reason": "pix_payment_expired",
		})
	}

	return nil
}

// releaseSlot frees the slot referenced by the appointment, if any, and
// persists the psychologist aggregate.
func (s *Service) releaseSlot(ctx context.Context, appt *Appointment) error {
	if appt.AvailabilityID == nil {
		return nil
	}

	psy, err := s.psychologists.GetByID(ctx, appt.PsychologistID)
	if err != nil {
		return fmt.Errorf("load psychologist: %w", err)
	}

	slot := psy.SlotByID(*appt.AvailabilityID)
	if slot == nil || slot.Available {
		return nil
	}
	if err := slot.Unschedule(); err != nil {
		return err
	}
	if err := s.psychologists.Update(ctx, psy); err != nil {
		return fmt.Errorf("persist psychologist: %w", err)
	}
	return nil
}

func (s *Service) logEvent(ctx context.Context, appointmentID uuid.UUID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.log.Warn("marshal event payload", zap.String("event", eventType), zap.Error(err))
		data = nil
	}

	apptID := appointmentID

	ev := EventLog{
		EventType:     eventType,
		AppointmentID: &apptID,
		Payload:       data,
		CreatedAt:     time.Now(),
	}

	if err := s.appointments.InsertEvent(ctx, ev); err != nil {
		s.log.Warn("insert event log",
			zap.String("event", eventType),
			zap.String("appointment_id", appointmentID.String()),
			zap.Error(err))
	}
}
