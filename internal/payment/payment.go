package payment

import (
	"context"

	paymentmodel "github.com/ijbmsm/charzing-payments/internal/core/datamodel/payment"
	gatewaytypes "github.com/ijbmsm/charzing-payments/internal/core/datamodel/paymentgateway"
	reservationmodel "github.com/ijbmsm/charzing-payments/internal/core/datamodel/reservation"
)

// StoreAPI is the persistence boundary for the canonical payment record.
// Multi-record operations are atomic: a payment and its linked reservation
// are written in one transaction or not at all.
type StoreAPI interface {
	GetByID(ctx context.Context, id int64) (*paymentmodel.Payment, error)
	GetByOrderID(ctx context.Context, orderID string) (*paymentmodel.Payment, error)
	GetByPaymentKey(ctx context.Context, paymentKey string) (*paymentmodel.Payment, error)

	// Create persists a payment on its own, cancel history included, without
	// touching any booking. It is the rebuild path for a confirm whose local
	// write was lost.
	Create(ctx context.Context, p *paymentmodel.Payment) error

	// CreateWithNewReservation persists the payment and creates the booking,
	// linking them both ways, in a single transaction.
	CreateWithNewReservation(ctx context.Context, p *paymentmodel.Payment, res *reservationmodel.Reservation) error

	// CreateForReservation persists the payment and updates the existing
	// booking's payment fields in a single transaction.
	CreateForReservation(ctx context.Context, p *paymentmodel.Payment, reservationID int64) error

	// AcquireCancelLock flips cancel_in_progress false→true and records the
	// idempotency key as one conditional write. A lost race yields
	// ErrCancelInProgress.
	AcquireCancelLock(ctx context.Context, paymentID int64, idempotencyKey string) error
	ReleaseCancelLock(ctx context.Context, paymentID int64) error

	// ApplyCancelResult appends the new cancel rows, updates balance/status,
	// releases the lock, and propagates the reservation's payment status, all
	// in one transaction.
	ApplyCancelResult(ctx context.Context, p *paymentmodel.Payment, newCancels []paymentmodel.Cancel, balance int64, status paymentmodel.Status) error
}

// GatewayAPI is the confirm-by-reference / cancel-by-reference contract of
// the external processor.
type GatewayAPI interface {
	Confirm(ctx context.Context, paymentKey, orderID string, amount int64) (*gatewaytypes.Payment, error)
	Cancel(ctx context.Context, paymentKey, reason string, amount *int64, idempotencyKey string) (*gatewaytypes.Payment, error)
	Fetch(ctx context.Context, paymentKey string) (*gatewaytypes.Payment, error)
	FetchByOrderID(ctx context.Context, orderID string) (*gatewaytypes.Payment, error)
}

// ReservationReader is the read side of the booking subsystem this package
// consumes to resolve the server-trusted expected amount.
type ReservationReader interface {
	GetByID(ctx context.Context, id int64) (*reservationmodel.Reservation, error)
}

// PriceResolver sources the trusted price for a diagnostic service type. The
// client-supplied amount is only ever compared against it, never trusted.
type PriceResolver interface {
	ExpectedAmount(serviceType string) (int64, error)
}

// ServiceAPI is the inbound contract consumed by the transport layer.
type ServiceAPI interface {
	ConfirmPayment(ctx context.Context, req *ConfirmPaymentRequest) (*ConfirmPaymentResult, error)
	CancelPayment(ctx context.Context, paymentID int64, req *CancelPaymentRequest) (*CancelPaymentResult, error)
	GetPayment(ctx context.Context, paymentID int64) (*View, error)
}
