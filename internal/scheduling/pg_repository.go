package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/psiagenda/scheduling-engine/internal/matching"
)

// Postgres implementations of the repository contracts. The three repos
// share one pool; each covers exactly one aggregate.

type PgPatientRepo struct {
	pool *pgxpool.Pool
}

func NewPgPatientRepo(pool *pgxpool.Pool) *PgPatientRepo {
	return &PgPatientRepo{pool: pool}
}

type PgPsychologistRepo struct {
	pool *pgxpool.Pool
}

func NewPgPsychologistRepo(pool *pgxpool.Pool) *PgPsychologistRepo {
	return &PgPsychologistRepo{pool: pool}
}

type PgAppointmentRepo struct {
	pool *pgxpool.Pool
}

func NewPgAppointmentRepo(pool *pgxpool.Pool) *PgAppointmentRepo {
	return &PgAppointmentRepo{pool: pool}
}

// Helpers

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	var email *string

	err := row.Scan(
		&p.ID,
		&p.Name,
		&email,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}

	p.Email = email
	return &p, nil
}

func scanSlot(row pgx.Row) (*Slot, error) {
	var s Slot

	err := row.Scan(
		&s.ID,
		&s.Date,
		&s.Available,
		&s.Version,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	s.Date = s.Date.UTC()
	return &s, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var pay PixPayment
	var payID *uuid.UUID
	var payAmount *float64
	var payProviderID, payPayload *string
	var payExpiresAt, paySentAt, payCreatedAt *time.Time
	var payStatus *string

	err := row.Scan(
		&a.ID,
		&a.Date,
		&a.PatientID,
		&a.PsychologistID,
		&a.AvailabilityID,
		&a.Value,
		&a.DurationMin,
		&a.Status,
		&a.CreatedAt,
		&a.UpdatedAt,
		&payID,
		&payAmount,
		&payProviderID,
		&payPayload,
		&payExpiresAt,
		&payStatus,
		&paySentAt,
		&payCreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	a.Date = a.Date.UTC()
	if payID != nil {
		pay.ID = *payID
		pay.Amount = *payAmount
		pay.ProviderPaymentID = *payProviderID
		pay.Payload = *payPayload
		pay.ExpiresAt = payExpiresAt.UTC()
		pay.Status = PaymentStatus(*payStatus)
		pay.SentAt = paySentAt
		pay.CreatedAt = *payCreatedAt
		a.Payment = &pay
	}

	return &a, nil
}

const appointmentColumns = `
	a.id, a.date, a.patient_id, a.psychologist_id, a.availability_id,
	a.value, a.duration_min, a.status, a.created_at, a.updated_at,
	pp.id, pp.amount, pp.provider_payment_id, pp.payload,
	pp.expires_at, pp.status, pp.sent_at, pp.created_at`

// PatientRepo

func (r *PgPatientRepo) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, email, created_at, updated_at
		FROM patients
		WHERE id = $1
	`, id)
	return scanPatient(row)
}

// PsychologistRepo

func (r *PgPsychologistRepo) GetByID(ctx context.Context, id uuid.UUID) (*Psychologist, error) {
	var p Psychologist

	err := r.pool.QueryRow(ctx, `
		SELECT id, name, gender, specialty_ids, approach_ids, audiences,
		       value_per_appointment, created_at, updated_at
		FROM psychologists
		WHERE id = $1
	`, id).Scan(
		&p.ID,
		&p.Name,
		&p.Gender,
		&p.SpecialtyIDs,
		&p.ApproachIDs,
		&p.Audiences,
		&p.ValuePerAppointment,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPsychologistNotFound
		}
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, date, available, version, created_at, updated_at
		FROM availability_slots
		WHERE psychologist_id = $1
		ORDER BY date
	`, id)
	if err != nil {
		return nil, fmt.Errorf("load slots: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		p.Slots = append(p.Slots, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &p, nil
}

// Update persists the aggregate's slot mutations. Slot writes
// are conditional on the version loaded with the aggregate; a lost race
// surfaces as ErrSlotVersionConflict and nothing is committed.
func (r *PgPsychologistRepo) Update(ctx context.Context, p *Psychologist) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		UPDATE psychologists
		SET name = $2,
		    gender = $3,
		    specialty_ids = $4,
		    approach_ids = $5,
		    audiences = $6,
		    value_per_appointment = $7,
		    updated_at = now()
		WHERE id = $1
	`, p.ID, p.Name, p.Gender, p.SpecialtyIDs, p.ApproachIDs, p.Audiences, p.ValuePerAppointment)
	if err != nil {
		return fmt.Errorf("update psychologist: %w", err)
	}

	keep := make([]uuid.UUID, 0, len(p.Slots))
	for _, s := range p.Slots {
		keep = append(keep, s.ID)

		tag, err := tx.Exec(ctx, `
			UPDATE availability_slots
			SET date = $3,
			    available = $4,
			    version = version + 1,
			    updated_at = now()
			WHERE id = $1
			  AND version = $2
		`, s.ID, s.Version, s.Date, s.Available)
		if err != nil {
			return fmt.Errorf("update slot: %w", err)
		}
		if tag.RowsAffected() == 1 {
			s.Version++
			continue
		}

		var exists bool
		if err := tx.QueryRow(ctx, `
			SELECT EXISTS (SELECT 1 FROM availability_slots WHERE id = $1)
		`, s.ID).Scan(&exists); err != nil {
			return fmt.Errorf("check slot: %w", err)
		}
		if exists {
			return ErrSlotVersionConflict
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO availability_slots (id, psychologist_id, date, available, version, created_at, updated_at)
			VALUES ($1, $2, $3, $4, 0, now(), now())
		`, s.ID, p.ID, s.Date, s.Available)
		if err != nil {
			return fmt.Errorf("insert slot: %w", err)
		}
		s.Version = 0
	}

	// Slots dropped from the aggregate. Only open slots are removable,
	// which the domain already enforces; the guard here keeps a
	// concurrently booked slot alive.
	_, err = tx.Exec(ctx, `
		DELETE FROM availability_slots
		WHERE psychologist_id = $1
		  AND available = true
		  AND NOT (id = ANY($2))
	`, p.ID, keep)
	if err != nil {
		return fmt.Errorf("delete removed slots: %w", err)
	}

	return tx.Commit(ctx)
}

// Search returns the candidate pool for ranking, optionally
// narrowed by a case-insensitive name match. Slots are not loaded; the
// ranker does not need them.
func (r *PgPsychologistRepo) Search(ctx context.Context, name string) ([]*Psychologist, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, gender, specialty_ids, approach_ids, audiences,
		       value_per_appointment, created_at, updated_at
		FROM psychologists
		WHERE ($1 = '' OR name ILIKE '%' || $1 || '%')
		ORDER BY name
	`, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*Psychologist
	for rows.Next() {
		var p Psychologist
		err := rows.Scan(
			&p.ID,
			&p.Name,
			&p.Gender,
			&p.SpecialtyIDs,
			&p.ApproachIDs,
			&p.Audiences,
			&p.ValuePerAppointment,
			&p.CreatedAt,
			&p.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		result = append(result, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

// AppointmentRepo

func (r *PgAppointmentRepo) Create(ctx context.Context, a *Appointment) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO appointments (id, date, patient_id, psychologist_id, availability_id,
		                          value, duration_min, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())
	`, a.ID, a.Date, a.PatientID, a.PsychologistID, a.AvailabilityID, a.Value, a.DurationMin, a.Status)
	if err != nil {
		return fmt.Errorf("insert appointment: %w", err)
	}

	if a.Payment != nil {
		_, err = tx.Exec(ctx, `
			INSERT INTO pix_payments (id, appointment_id, amount, provider_payment_id,
			                          payload, expires_at, status, sent_at, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
		`, a.Payment.ID, a.ID, a.Payment.Amount, a.Payment.ProviderPaymentID,
			a.Payment.Payload, a.Payment.ExpiresAt, a.Payment.Status, a.Payment.SentAt)
		if err != nil {
			return fmt.Errorf("insert pix payment: %w", err)
		}
	}

	return tx.Commit(ctx)
}

func (r *PgAppointmentRepo) Update(ctx context.Context, a *Appointment) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE appointments
		SET date = $2,
		    availability_id = $3,
		    status = $4,
		    updated_at = now()
		WHERE id = $1
	`, a.ID, a.Date, a.AvailabilityID, a.Status)
	if err != nil {
		return fmt.Errorf("update appointment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAppointmentNotFound
	}

	if a.Payment != nil {
		_, err = tx.Exec(ctx, `
			UPDATE pix_payments
			SET status = $2,
			    sent_at = $3
			WHERE id = $1
		`, a.Payment.ID, a.Payment.Status, a.Payment.SentAt)
		if err != nil {
			return fmt.Errorf("update pix payment: %w", err)
		}
	}

	return tx.Commit(ctx)
}

func (r *PgAppointmentRepo) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments a
		LEFT JOIN pix_payments pp ON pp.appointment_id = a.id
		WHERE a.id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgAppointmentRepo) List(ctx context.Context, f AppointmentFilters, pageable matching.Pageable) (matching.Page[*Appointment], error) {
	where := "WHERE true"
	args := []any{}

	addArg := func(clause string, v any) {
		args = append(args, v)
		where += fmt.Sprintf(" AND %s $%d", clause, len(args))
	}

	if f.From != nil {
		addArg("a.date >=", *f.From)
	}
	if f.To != nil {
		addArg("a.date <=", *f.To)
	}
	if f.PsychologistID != nil {
		addArg("a.psychologist_id =", *f.PsychologistID)
	}
	if f.PatientID != nil {
		addArg("a.patient_id =", *f.PatientID)
	}
	if f.Status != nil {
		addArg("a.status =", *f.Status)
	}
	if f.AvailabilityID != nil {
		addArg("a.availability_id =", *f.AvailabilityID)
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT count(*) FROM appointments a "+where, args...).Scan(&total); err != nil {
		return matching.Page[*Appointment]{}, fmt.Errorf("count appointments: %w", err)
	}

	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments a
		LEFT JOIN pix_payments pp ON pp.appointment_id = a.id
		` + where + `
		ORDER BY a.date
	`
	args = append(args, pageable.Limit())
	query += fmt.Sprintf(" LIMIT $%d", len(args))
	args = append(args, pageable.Offset())
	query += fmt.Sprintf(" OFFSET $%d", len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return matching.Page[*Appointment]{}, err
	}
	defer rows.Close()

	var items []*Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return matching.Page[*Appointment]{}, err
		}
		items = append(items, a)
	}
	if err := rows.Err(); err != nil {
		return matching.Page[*Appointment]{}, err
	}

	return matching.Page[*Appointment]{Items: items, Total: total, Pageable: pageable}, nil
}

func (r *PgAppointmentRepo) FindExpiredWaiting(ctx context.Context, now time.Time) ([]*Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments a
		JOIN pix_payments pp ON pp.appointment_id = a.id
		WHERE a.status = 'waiting_for_payment'
		  AND pp.status = 'pending'
		  AND pp.expires_at < $1
	`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgAppointmentRepo) InsertEvent(ctx context.Context, ev EventLog) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO event_logs (event_type, appointment_id, payload, created_at)
		VALUES ($1, $2, $3, COALESCE($4, now()))
	`, ev.EventType, ev.AppointmentID, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert event log: %w", err)
	}

	return nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
