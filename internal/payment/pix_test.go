package payment

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/psiagenda/scheduling-engine/internal/scheduling"
)

func TestCreatePayment(t *testing.T) {
	provider := NewPixProvider(30 * time.Minute)

	t.Run("issues a pending charge with expiry", func(t *testing.T) {
		before := time.Now().UTC()
		pay, err := provider.CreatePayment(context.Background(), 150)
		require.NoError(t, err)

		assert.Equal(t, scheduling.PaymentPending, pay.Status)
		assert.Equal(t, 150.0, pay.Amount)
		assert.NotEmpty(t, pay.ProviderPaymentID)
		assert.NotContains(t, pay.ProviderPaymentID, "-")
		assert.Contains(t, pay.Payload, pay.ProviderPaymentID)
		assert.True(t, pay.ExpiresAt.After(before.Add(29*time.Minute)))
	})

	t.Run("rejects non-positive amounts", func(t *testing.T) {
		_, err := provider.CreatePayment(context.Background(), 0)
		assert.ErrorIs(t, err, ErrInvalidAmount)

		_, err = provider.CreatePayment(context.Background(), -10)
		assert.ErrorIs(t, err, ErrInvalidAmount)
	})
}
