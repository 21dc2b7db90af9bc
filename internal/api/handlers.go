package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/psiagenda/scheduling-engine/internal/matching"
	"github.com/psiagenda/scheduling-engine/internal/scheduling"
)

func solicitAppointmentHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SolicitAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		patientID, err := uuid.Parse(req.PatientID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
			return
		}
		psychologistID, err := uuid.Parse(req.PsychologistID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_psychologist_id", "psychologist_id must be a valid UUID")
			return
		}
		if req.Date.IsZero() {
			writeError(w, http.StatusBadRequest, "invalid_date", "date is required")
			return
		}

		appt, err := svc.SolicitAppointment(r.Context(), patientID, psychologistID, req.Date)
		if err != nil {
			handleSchedulingError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
	}
}

// appointmentTransitionHandler handles the party-scoped transitions that
// only need the acting user: cancel, confirm, complete, payment-sent.
func appointmentTransitionHandler(do func(r *http.Request, appointmentID, userID uuid.UUID) (*scheduling.Appointment, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		var req PartyActionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		userID, err := uuid.Parse(req.UserID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_user_id", "user_id must be a valid UUID")
			return
		}

		appt, err := do(r, id, userID)
		if err != nil {
			handleSchedulingError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func rescheduleAppointmentHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		var req RescheduleAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		userID, err := uuid.Parse(req.UserID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_user_id", "user_id must be a valid UUID")
			return
		}
		if req.NewDate.IsZero() {
			writeError(w, http.StatusBadRequest, "invalid_date", "new_date is required")
			return
		}

		appt, err := svc.RescheduleAppointment(r.Context(), id, req.NewDate, userID)
		if err != nil {
			handleSchedulingError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func getAppointmentHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		appt, err := svc.GetAppointment(r.Context(), id)
		if err != nil {
			handleSchedulingError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func listAppointmentsHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		var f scheduling.AppointmentFilters
		if v := q.Get("from"); v != "" {
			t, err := time.Parse(time.RFC3339, v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_from", "from must be RFC3339")
				return
			}
			f.From = &t
		}
		if v := q.Get("to"); v != "" {
			t, err := time.Parse(time.RFC3339, v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_to", "to must be RFC3339")
				return
			}
			f.To = &t
		}
		if v := q.Get("psychologist_id"); v != "" {
			id, err := uuid.Parse(v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_psychologist_id", "psychologist_id must be a valid UUID")
				return
			}
			f.PsychologistID = &id
		}
		if v := q.Get("patient_id"); v != "" {
			id, err := uuid.Parse(v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
				return
			}
			f.PatientID = &id
		}
		if v := q.Get("status"); v != "" {
			st := scheduling.AppointmentStatus(v)
			f.Status = &st
		}
		if v := q.Get("availability_id"); v != "" {
			id, err := uuid.Parse(v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_availability_id", "availability_id must be a valid UUID")
				return
			}
			f.AvailabilityID = &id
		}

		page, err := svc.ListAppointments(r.Context(), f, parsePageable(q.Get("page"), q.Get("size")))
		if err != nil {
			handleSchedulingError(w, err)
			return
		}

		items := make([]AppointmentResponse, 0, len(page.Items))
		for _, a := range page.Items {
			items = append(items, toAppointmentResponse(a))
		}
		writeJSON(w, http.StatusOK, PageResponse[AppointmentResponse]{
			Items:      items,
			Total:      page.Total,
			Page:       page.Pageable.Page,
			Size:       page.Pageable.Size,
			TotalPages: page.TotalPages(),
		})
	}
}

func searchPsychologistsHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		var f matching.Filters
		f.Gender = q.Get("gender")
		if v := q.Get("max_price"); v != "" {
			p, err := strconv.ParseFloat(v, 64)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_max_price", "max_price must be a number")
				return
			}
			f.MaxPrice = &p
		}
		ids, ok := parseUUIDList(q.Get("specialty_ids"))
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_specialty_ids", "specialty_ids must be comma-separated UUIDs")
			return
		}
		f.SpecialtyIDs = ids
		ids, ok = parseUUIDList(q.Get("approach_ids"))
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_approach_ids", "approach_ids must be comma-separated UUIDs")
			return
		}
		f.ApproachIDs = ids
		if v := q.Get("audiences"); v != "" {
			f.Audiences = strings.Split(v, ",")
		}

		page, err := svc.SearchPsychologists(r.Context(), q.Get("name"), f, parsePageable(q.Get("page"), q.Get("size")))
		if err != nil {
			handleSchedulingError(w, err)
			return
		}

		items := make([]CandidateResponse, 0, len(page.Items))
		for _, c := range page.Items {
			items = append(items, CandidateResponse{
				ID:                  c.ID,
				Name:                c.Name,
				Gender:              c.Gender,
				SpecialtyIDs:        c.SpecialtyIDs,
				ApproachIDs:         c.ApproachIDs,
				Audiences:           c.Audiences,
				ValuePerAppointment: c.ValuePerAppointment,
			})
		}
		writeJSON(w, http.StatusOK, PageResponse[CandidateResponse]{
			Items:      items,
			Total:      page.Total,
			Page:       page.Pageable.Page,
			Size:       page.Pageable.Size,
			TotalPages: page.TotalPages(),
		})
	}
}

func availabilitiesHandler(svc *scheduling.Service, remove bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_psychologist_id", "id must be a valid UUID")
			return
		}

		var req AvailabilitiesRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		if len(req.Dates) == 0 {
			writeError(w, http.StatusBadRequest, "no_dates", "at least one date is required")
			return
		}

		var psy *scheduling.Psychologist
		if remove {
			psy, err = svc.RemoveAvailabilities(r.Context(), id, req.Dates)
		} else {
			psy, err = svc.AddAvailabilities(r.Context(), id, req.Dates)
		}
		if err != nil {
			handleSchedulingError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, slotResponses(psy.Slots))
	}
}

func listAvailabilitiesHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_psychologist_id", "id must be a valid UUID")
			return
		}

		slots, err := svc.ListAvailabilities(r.Context(), id)
		if err != nil {
			handleSchedulingError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, slotResponses(slots))
	}
}

func slotResponses(slots []*scheduling.Slot) []SlotResponse {
	out := make([]SlotResponse, 0, len(slots))
	for _, s := range slots {
		out = append(out, SlotResponse{ID: s.ID, Date: s.Date, Available: s.Available})
	}
	return out
}

func parsePageable(pageStr, sizeStr string) matching.Pageable {
	page, _ := strconv.Atoi(pageStr)
	size, _ := strconv.Atoi(sizeStr)
	return matching.NewPageable(page, size)
}

func parseUUIDList(raw string) ([]uuid.UUID, bool) {
	if raw == "" {
		return nil, true
	}
	parts := strings.Split(raw, ",")
	ids := make([]uuid.UUID, 0, len(parts))
	for _, p := range parts {
		id, err := uuid.Parse(strings.TrimSpace(p))
		if err != nil {
			return nil, false
		}
		ids = append(ids, id)
	}
	return ids, true
}

func handleSchedulingError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, scheduling.ErrPatientNotFound):
		writeError(w, http.StatusNotFound, "patient_not_found", err.Error())
	case errors.Is(err, scheduling.ErrPsychologistNotFound):
		writeError(w, http.StatusNotFound, "psychologist_not_found", err.Error())
	case errors.Is(err, scheduling.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, scheduling.ErrSlotNotFound):
		writeError(w, http.StatusNotFound, "slot_not_found", err.Error())
	case errors.Is(err, scheduling.ErrNotAuthorized):
		writeError(w, http.StatusForbidden, "not_authorized", err.Error())
	case errors.Is(err, scheduling.ErrSlotAlreadyScheduled):
		writeError(w, http.StatusConflict, "slot_already_scheduled", err.Error())
	case errors.Is(err, scheduling.ErrSlotBeingBooked),
		errors.Is(err, scheduling.ErrSlotVersionConflict):
		writeError(w, http.StatusConflict, "slot_being_booked", "slot is currently being booked, please retry shortly")
	case errors.Is(err, scheduling.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "invalid_status_transition", err.Error())
	case errors.Is(err, scheduling.ErrSlotExpired),
		errors.Is(err, scheduling.ErrPastDate),
		errors.Is(err, scheduling.ErrInvalidSlotTime),
		errors.Is(err, scheduling.ErrNoRemovableSlot),
		errors.Is(err, scheduling.ErrSlotNotScheduled):
		writeError(w, http.StatusUnprocessableEntity, "invalid_slot_operation", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
