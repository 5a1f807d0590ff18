package payment

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	apperrors "github.com/ijbmsm/charzing-payments/internal"
	paymentmodel "github.com/ijbmsm/charzing-payments/internal/core/datamodel/payment"
	gatewaytypes "github.com/ijbmsm/charzing-payments/internal/core/datamodel/paymentgateway"
	"github.com/ijbmsm/charzing-payments/internal/core/events"
	"github.com/ijbmsm/charzing-payments/internal/gateway"
)

// CancelService orchestrates full and partial cancellation. Per payment the
// flow is mutually exclusive: idle → locked → gateway call → reconciled →
// idle, with the lock taken by compare-and-set before the gateway is called.
type CancelService struct {
	store    StoreAPI
	gateway  GatewayAPI
	eventBus *events.EventBus
	logger   *slog.Logger
}

func NewCancelService(store StoreAPI, gw GatewayAPI, eventBus *events.EventBus, logger *slog.Logger) *CancelService {
	return &CancelService{
		store:    store,
		gateway:  gw,
		eventBus: eventBus,
		logger:   logger,
	}
}

func (s *CancelService) CancelPayment(ctx context.Context, paymentID int64, req *CancelPaymentRequest) (*CancelPaymentResult, error) {
	if err := req.Validate(); err != nil {
		s.logger.Error("cancel validation failed", "error", err, "payment_id", paymentID)
		return nil, err
	}

	p, err := s.store.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	if err := s.checkCancelable(p, req.CancelAmount); err != nil {
		return nil, err
	}

	// Lock first, then call: if the process dies between the gateway call and
	// the local write, the held lock plus the stored idempotency key let a
	// retry ask the gateway "did this exact cancel already happen?" instead
	// of cancelling again blind.
	idempotencyKey := uuid.NewString()
	if err := s.store.AcquireCancelLock(ctx, p.ID, idempotencyKey); err != nil {
		s.logger.Warn("cancel lock not acquired", "error", err, "payment_id", p.ID)
		return nil, err
	}

	// Re-read under the lock: a cancel that settled between the first read
	// and the lock write would otherwise leave this snapshot's history and
	// balance stale, and a stale history re-appends transactions the unique
	// key index then rejects.
	p, err = s.store.GetByID(ctx, p.ID)
	if err != nil {
		s.releaseLock(ctx, paymentID)
		return nil, err
	}
	if err := s.checkBalanceAndStatus(p, req.CancelAmount); err != nil {
		s.releaseLock(ctx, p.ID)
		return nil, err
	}

	gwPayment, err := s.gateway.Cancel(ctx, p.PaymentKey, req.CancelReason, req.CancelAmount, idempotencyKey)
	if err != nil {
		if gateway.IsUnknownOutcome(err) {
			// The cancel may or may not have been applied at the gateway.
			// The lock stays held so the next attempt goes through
			// reconciliation rather than a second blind cancel.
			s.logger.Error("gateway cancel outcome unknown, lock retained for reconciliation",
				"payment_id", p.ID,
				"idempotency_key", idempotencyKey)
			return nil, err
		}

		// A definite failure must never look cancelled: release the lock and
		// leave balance and status untouched.
		s.releaseLock(ctx, p.ID)
		s.logger.Error("gateway cancel failed", "error", err, "payment_id", p.ID)
		return nil, err
	}

	newCancels := s.newCancelRecords(p, gwPayment.Cancels)
	balance := gwPayment.BalanceAmount
	status := paymentmodel.StatusForBalance(balance)

	if err := s.store.ApplyCancelResult(ctx, p, newCancels, balance, status); err != nil {
		// The gateway has applied the cancel but the local record has not
		// caught up. The lock is deliberately left held so retries route
		// through the reconciler, which replays the gateway's state.
		s.logger.Error("failed to record cancel result, reconciliation required",
			"error", err,
			"payment_id", p.ID,
			"order_id", p.OrderID)
		return nil, apperrors.NewPersistenceError("cancel applied at gateway but not recorded; reconciliation required", err)
	}

	canceledNow := p.BalanceAmount - balance

	s.logger.Info("payment canceled",
		"payment_id", p.ID,
		"cancel_amount", canceledNow,
		"balance_amount", balance,
		"status", status)

	s.eventBus.Publish(ctx, events.NewPaymentCanceledEvent(p.ID, p.OrderID, p.UserID, canceledNow, balance, string(status)))

	return &CancelPaymentResult{
		Status:        string(status),
		BalanceAmount: balance,
		CancelAmount:  canceledNow,
	}, nil
}

// GetPayment returns the read model for receipt display.
func (s *CancelService) GetPayment(ctx context.Context, paymentID int64) (*View, error) {
	p, err := s.store.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	return ToView(p), nil
}

func (s *CancelService) checkCancelable(p *paymentmodel.Payment, amount *int64) error {
	// Fast-path rejection; the conditional lock write is the real guard
	// against the race.
	if p.CancelInProgress {
		return apperrors.ErrCancelInProgress
	}
	return s.checkBalanceAndStatus(p, amount)
}

// checkBalanceAndStatus validates the request against the current record
// without the in-progress check, so it can re-run on the post-lock re-read
// where our own lock is already set.
func (s *CancelService) checkBalanceAndStatus(p *paymentmodel.Payment, amount *int64) error {
	if !p.IsCancelable() {
		return apperrors.ErrNotCancelable
	}
	if amount != nil {
		if *amount > p.BalanceAmount {
			return apperrors.ErrCancelExceedsBalance
		}
		if *amount < p.BalanceAmount && !p.IsPartialCancelable {
			return apperrors.ErrPartialNotAllowed
		}
	}
	return nil
}

func (s *CancelService) releaseLock(ctx context.Context, paymentID int64) {
	if err := s.store.ReleaseCancelLock(ctx, paymentID); err != nil {
		s.logger.Error("failed to release cancel lock", "error", err, "payment_id", paymentID)
	}
}

// newCancelRecords filters the gateway's full cancel history down to the
// entries not yet recorded locally. History is append-only; past entries are
// never touched.
func (s *CancelService) newCancelRecords(p *paymentmodel.Payment, gwCancels []gatewaytypes.Cancel) []paymentmodel.Cancel {
	mapped := MapCancels(gwCancels)
	var fresh []paymentmodel.Cancel
	for _, c := range mapped {
		if !p.HasCancelTransaction(c.TransactionKey) {
			c.PaymentID = p.ID
			fresh = append(fresh, c)
		}
	}
	return fresh
}
