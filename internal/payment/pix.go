// Package payment issues PIX charges. The real provider integration is
// out of process; this package produces the payment record the
// scheduling engine consumes.
package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/psiagenda/scheduling-engine/internal/scheduling"
)

var ErrInvalidAmount = errors.New("payment amount must be positive")

// PixProvider creates pending PIX charges with a copy-and-paste payload
// and a fixed expiry window.
type PixProvider struct {
	ttl time.Duration
}

func NewPixProvider(ttl time.Duration) *PixProvider {
	return &PixProvider{ttl: ttl}
}

func (p *PixProvider) CreatePayment(ctx context.Context, amount float64) (*scheduling.PixPayment, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	id := uuid.New()
	providerID := strings.ReplaceAll(id.String(), "-", "")

	return &scheduling.PixPayment{
		ID:                id,
		Amount:            amount,
		ProviderPaymentID: providerID,
		Payload:           fmt.Sprintf("00020126PIX%s5204000053039865802BR62%07.2f6304", providerID, amount),
		ExpiresAt:         time.Now().UTC().Add(p.ttl).Truncate(time.Second),
		Status:            scheduling.PaymentPending,
	}, nil
}
