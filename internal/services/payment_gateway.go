package services

import "context"

type GatewayStatus string

const (
	GatewaySuccess GatewayStatus = "success"
	GatewayPending GatewayStatus = "pending"
	GatewayFailed  GatewayStatus = "failed"
)

// PaymentGateway is the external settlement authority. It is slow and
// untrusted: we poll it, we never assume a synchronous answer.
type PaymentGateway interface {
	CheckStatus(ctx context.Context, reference string) (GatewayStatus, error)
}

// StubPaymentGateway answers every poll with a fixed status. The real
// gateway integration is out of scope; this stands in for it in local
// environments and tests.
type StubPaymentGateway struct {
	Status GatewayStatus
}

func NewStubPaymentGateway(mode string) *StubPaymentGateway {
	switch GatewayStatus(mode) {
	case GatewayPending, GatewayFailed:
		return &StubPaymentGateway{Status: GatewayStatus(mode)}
	default:
		return &StubPaymentGateway{Status: GatewaySuccess}
	}
}

func (g *StubPaymentGateway) CheckStatus(ctx context.Context, reference string) (GatewayStatus, error) {
	return g.Status, nil
}
