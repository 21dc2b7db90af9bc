package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/psiagenda/scheduling-engine/internal/scheduling"
)

type SolicitAppointmentRequest struct {
	PatientID      string    `json:"patient_id"`
	PsychologistID string    `json:"psychologist_id"`
	Date           time.Time `json:"date"`
}

// PartyActionRequest carries the acting user for appointment transitions.
// Auth token issuance lives outside this service; the caller is trusted
// to pass the authenticated user id.
type PartyActionRequest struct {
	UserID string `json:"user_id"`
}

type RescheduleAppointmentRequest struct {
	UserID  string    `json:"user_id"`
	NewDate time.Time `json:"new_date"`
}

type AvailabilitiesRequest struct {
	Dates []time.Time `json:"dates"`
}

type PixPaymentResponse struct {
	ID                uuid.UUID  `json:"id"`
	Amount            float64    `json:"amount"`
	ProviderPaymentID string     `json:"provider_payment_id"`
	Payload           string     `json:"payload"`
	ExpiresAt         time.Time  `json:"expires_at"`
	Status            string     `json:"status"`
	SentAt            *time.Time `json:"sent_at,omitempty"`
}

type AppointmentResponse struct {
	ID             uuid.UUID           `json:"id"`
	Date           time.Time           `json:"date"`
	PatientID      uuid.UUID           `json:"patient_id"`
	PsychologistID uuid.UUID           `json:"psychologist_id"`
	AvailabilityID *uuid.UUID          `json:"availability_id,omitempty"`
	Value          float64             `json:"value"`
	DurationMin    int                 `json:"duration_min"`
	Status         string              `json:"status"`
	Payment        *PixPaymentResponse `json:"pix_payment,omitempty"`
}

func toAppointmentResponse(a *scheduling.Appointment) AppointmentResponse {
	resp := AppointmentResponse{
		ID:             a.ID,
		Date:           a.Date,
		PatientID:      a.PatientID,
		PsychologistID: a.PsychologistID,
		AvailabilityID: a.AvailabilityID,
		Value:          a.Value,
		DurationMin:    a.DurationMin,
		Status:         string(a.Status),
	}
	if a.Payment != nil {
		resp.Payment = &PixPaymentResponse{
			ID:                a.Payment.ID,
			Amount:            a.Payment.Amount,
			ProviderPaymentID: a.Payment.ProviderPaymentID,
			Payload:           a.Payment.Payload,
			ExpiresAt:         a.Payment.ExpiresAt,
			Status:            string(a.Payment.Status),
			SentAt:            a.Payment.SentAt,
		}
	}
	return resp
}

type SlotResponse struct {
	ID        uuid.UUID `json:"id"`
	Date      time.Time `json:"date"`
	Available bool      `json:"available"`
}

type CandidateResponse struct {
	ID                  uuid.UUID   `json:"id"`
	Name                string      `json:"name"`
	Gender              string      `json:"gender"`
	SpecialtyIDs        []uuid.UUID `json:"specialty_ids"`
	ApproachIDs         []uuid.UUID `json:"approach_ids"`
	Audiences           []string    `json:"audiences"`
	ValuePerAppointment float64     `json:"value_per_appointment"`
}

type PageResponse[T any] struct {
	Items      []T `json:"items"`
	Total      int `json:"total"`
	Page       int `json:"page"`
	Size       int `json:"size"`
	TotalPages int `json:"total_pages"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
