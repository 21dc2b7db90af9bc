package scheduling

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPayment(amount float64) *PixPayment {
	return &PixPayment{
		ID:                uuid.New(),
		Amount:            amount,
		ProviderPaymentID: "prov-123",
		Payload:           "pix-payload",
		ExpiresAt:         now.Add(30 * time.Minute),
		Status:            PaymentPending,
	}
}

func testAppointment(t *testing.T, gated bool) *Appointment {
	t.Helper()
	slotID := uuid.New()
	var pay *PixPayment
	if gated {
		pay = testPayment(150)
	}
	appt, err := NewAppointment(now.Add(48*time.Hour), uuid.New(), uuid.New(), &slotID, 150, 0, pay, gated)
	require.NoError(t, err)
	return appt
}

func TestNewAppointment(t *testing.T) {
	t.Run("gated appointment starts waiting for payment", func(t *testing.T) {
		appt := testAppointment(t, true)
		assert.Equal(t, StatusWaitingForPayment, appt.Status)
		assert.Equal(t, DefaultDurationMin, appt.DurationMin)
	})

	t.Run("ungated appointment starts scheduled", func(t *testing.T) {
		appt := testAppointment(t, false)
		assert.Equal(t, StatusScheduled, appt.Status)
	})

	t.Run("gating requires a payment record", func(t *testing.T) {
		_, err := NewAppointment(now, uuid.New(), uuid.New(), nil, 150, 0, nil, true)
		assert.ErrorIs(t, err, ErrMissingPayment)
	})

	t.Run("value must be positive", func(t *testing.T) {
		_, err := NewAppointment(now, uuid.New(), uuid.New(), nil, 0, 0, nil, false)
		assert.ErrorIs(t, err, ErrInvalidValue)
	})

	t.Run("duration must be positive", func(t *testing.T) {
		_, err := NewAppointment(now, uuid.New(), uuid.New(), nil, 150, -10, nil, false)
		assert.ErrorIs(t, err, ErrInvalidDuration)
	})
}

func TestAppointmentConfirm(t *testing.T) {
	t.Run("psychologist confirms pending appointment", func(t *testing.T) {
		appt := testAppointment(t, true)
		require.NoError(t, appt.Confirm(appt.PsychologistID))
		assert.Equal(t, StatusConfirmed, appt.Status)
	})

	t.Run("patient cannot confirm", func(t *testing.T) {
		appt := testAppointment(t, true)
		assert.ErrorIs(t, appt.Confirm(appt.PatientID), ErrNotAuthorized)
	})

	t.Run("confirmed appointment cannot confirm again", func(t *testing.T) {
		appt := testAppointment(t, true)
		require.NoError(t, appt.Confirm(appt.PsychologistID))
		assert.ErrorIs(t, appt.Confirm(appt.PsychologistID), ErrInvalidTransition)
	})
}

func TestAppointmentCancel(t *testing.T) {
	t.Run("either party may cancel any non-terminal state", func(t *testing.T) {
		appt := testAppointment(t, true)
		require.NoError(t, appt.Cancel(appt.PatientID))
		assert.Equal(t, StatusCanceled, appt.Status)

		appt = testAppointment(t, true)
		require.NoError(t, appt.Confirm(appt.PsychologistID))
		require.NoError(t, appt.Cancel(appt.PsychologistID))
		assert.Equal(t, StatusCanceled, appt.Status)
	})

	t.Run("stranger cannot cancel", func(t *testing.T) {
		appt := testAppointment(t, true)
		assert.ErrorIs(t, appt.Cancel(uuid.New()), ErrNotAuthorized)
	})

	t.Run("terminal states stay terminal", func(t *testing.T) {
		appt := testAppointment(t, true)
		require.NoError(t, appt.Cancel(appt.PatientID))
		assert.ErrorIs(t, appt.Cancel(appt.PatientID), ErrInvalidTransition)
	})
}

func TestAppointmentComplete(t *testing.T) {
	t.Run("only confirmed appointments complete", func(t *testing.T) {
		appt := testAppointment(t, true)
		assert.ErrorIs(t, appt.Complete(appt.PsychologistID), ErrInvalidTransition)

		require.NoError(t, appt.Confirm(appt.PsychologistID))
		require.NoError(t, appt.Complete(appt.PsychologistID))
		assert.Equal(t, StatusCompleted, appt.Status)
	})

	t.Run("canceled appointment cannot complete", func(t *testing.T) {
		appt := testAppointment(t, true)
		require.NoError(t, appt.Cancel(appt.PatientID))
		err := appt.Complete(appt.PsychologistID)
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("patient cannot complete", func(t *testing.T) {
		appt := testAppointment(t, true)
		require.NoError(t, appt.Confirm(appt.PsychologistID))
		assert.ErrorIs(t, appt.Complete(appt.PatientID), ErrNotAuthorized)
	})
}

func TestAppointmentReschedule(t *testing.T) {
	newDate := time.Date(2025, 12, 1, 10, 0, 0, 0, time.UTC)

	t.Run("moves date and slot reference, keeps status", func(t *testing.T) {
		appt := testAppointment(t, true)
		newSlot := uuid.New()
		require.NoError(t, appt.Reschedule(appt.PatientID, newDate, &newSlot))
		assert.Equal(t, StatusWaitingForPayment, appt.Status)
		assert.True(t, appt.Date.Equal(newDate))
		assert.Equal(t, newSlot, *appt.AvailabilityID)
	})

	t.Run("confirmed appointment does not move", func(t *testing.T) {
		appt := testAppointment(t, true)
		require.NoError(t, appt.Confirm(appt.PsychologistID))
		assert.ErrorIs(t, appt.Reschedule(appt.PatientID, newDate, nil), ErrInvalidTransition)
	})

	t.Run("stranger cannot reschedule", func(t *testing.T) {
		appt := testAppointment(t, true)
		assert.ErrorIs(t, appt.Reschedule(uuid.New(), newDate, nil), ErrNotAuthorized)
	})
}

func TestMarkPaymentSent(t *testing.T) {
	t.Run("patient records sent payment without status change", func(t *testing.T) {
		appt := testAppointment(t, true)
		require.NoError(t, appt.MarkPaymentSent(appt.PatientID, now))
		assert.Equal(t, StatusWaitingForPayment, appt.Status)
		require.NotNil(t, appt.Payment.SentAt)
	})

	t.Run("psychologist cannot mark payment sent", func(t *testing.T) {
		appt := testAppointment(t, true)
		assert.ErrorIs(t, appt.MarkPaymentSent(appt.PsychologistID, now), ErrNotAuthorized)
	})
}

func TestAppointmentExpire(t *testing.T) {
	t.Run("expires unpaid waiting appointment", func(t *testing.T) {
		appt := testAppointment(t, true)
		appt.Payment.ExpiresAt = now.Add(-time.Minute)

		assert.True(t, appt.PaymentExpired(now))
		require.NoError(t, appt.Expire())
		assert.Equal(t, StatusCanceled, appt.Status)
		assert.Equal(t, PaymentFailed, appt.Payment.Status)
	})

	t.Run("paid appointment is not expired", func(t *testing.T) {
		appt := testAppointment(t, true)
		appt.Payment.ExpiresAt = now.Add(-time.Minute)
		appt.Payment.Status = PaymentPaid
		assert.False(t, appt.PaymentExpired(now))
	})

	t.Run("confirmed appointment cannot expire", func(t *testing.T) {
		appt := testAppointment(t, true)
		require.NoError(t, appt.Confirm(appt.PsychologistID))
		assert.ErrorIs(t, appt.Expire(), ErrInvalidTransition)
	})
}
