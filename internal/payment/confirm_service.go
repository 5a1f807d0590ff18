package payment

import (
	"context"
	"errors"
	"log/slog"
	"time"

	apperrors "github.com/ijbmsm/charzing-payments/internal"
	"github.com/ijbmsm/charzing-payments/internal/core/events"
	paymentmodel "github.com/ijbmsm/charzing-payments/internal/core/datamodel/payment"
	reservationmodel "github.com/ijbmsm/charzing-payments/internal/core/datamodel/reservation"
)

// ConfirmService orchestrates the confirm path end to end: amount check,
// duplicate detection, gateway confirm, mapping, and the atomic
// payment+reservation write.
type ConfirmService struct {
	store        StoreAPI
	gateway      GatewayAPI
	reservations ReservationReader
	prices       PriceResolver
	eventBus     *events.EventBus
	logger       *slog.Logger
}

func NewConfirmService(store StoreAPI, gw GatewayAPI, reservations ReservationReader, prices PriceResolver, eventBus *events.EventBus, logger *slog.Logger) *ConfirmService {
	return &ConfirmService{
		store:        store,
		gateway:      gw,
		reservations: reservations,
		prices:       prices,
		eventBus:     eventBus,
		logger:       logger,
	}
}

func (s *ConfirmService) ConfirmPayment(ctx context.Context, req *ConfirmPaymentRequest) (*ConfirmPaymentResult, error) {
	if err := req.Validate(); err != nil {
		s.logger.Error("confirm validation failed", "error", err, "order_id", req.OrderID)
		return nil, err
	}

	// The expected amount comes from a trusted source: the stored reservation
	// or the price catalog. A mismatch means the client-declared amount was
	// tampered with relative to what the booking actually costs.
	expected, err := s.expectedAmount(ctx, req)
	if err != nil {
		return nil, err
	}
	if req.Amount != expected {
		s.logger.Warn("confirm amount mismatch",
			"order_id", req.OrderID,
			"declared", req.Amount,
			"expected", expected)
		return nil, apperrors.ErrAmountMismatch
	}

	// Duplicate confirm (e.g. a network retry after a successful but
	// unacknowledged first call) returns the existing record without a
	// second gateway call: confirm is idempotent per order id.
	existing, err := s.store.GetByOrderID(ctx, req.OrderID)
	if err != nil && !errors.Is(err, apperrors.ErrPaymentNotFound) {
		s.logger.Error("failed to look up existing payment", "error", err, "order_id", req.OrderID)
		return nil, apperrors.NewPersistenceError("failed to look up existing payment", err)
	}
	if existing != nil && confirmedOrLater(existing.Status) {
		s.logger.Info("duplicate confirm, returning existing payment",
			"order_id", req.OrderID,
			"payment_id", existing.ID)
		return ToConfirmResult(existing), nil
	}

	gwPayment, err := s.gateway.Confirm(ctx, req.PaymentKey, req.OrderID, req.Amount)
	if err != nil {
		// No partial record: a failed confirm must not leave a dangling
		// payment. The caller may retry with the same order id.
		s.logger.Error("gateway confirm failed", "error", err, "order_id", req.OrderID)
		return nil, err
	}

	p := ToPayment(gwPayment, MapContext{UserID: req.UserID, ReservationID: req.ReservationID})

	if err := s.persistWithReservation(ctx, p, req); err != nil {
		// The gateway already holds the charge; the record can be rebuilt from
		// the gateway's canonical state via the reconciler, keyed by order id.
		s.logger.Error("failed to persist confirmed payment, reconciliation required",
			"error", err,
			"order_id", req.OrderID,
			"payment_key", req.PaymentKey)
		return nil, apperrors.NewPersistenceError("payment confirmed but not recorded; reconciliation required", err)
	}

	s.logger.Info("payment confirmed",
		"payment_id", p.ID,
		"order_id", p.OrderID,
		"amount", p.TotalAmount,
		"reservation_id", p.ReservationID)

	// Fire-and-forget: notification failure must not affect the payment.
	s.eventBus.Publish(ctx, events.NewPaymentConfirmedEvent(p.ID, p.OrderID, p.UserID, p.TotalAmount, p.ReservationID))

	return ToConfirmResult(p), nil
}

func (s *ConfirmService) expectedAmount(ctx context.Context, req *ConfirmPaymentRequest) (int64, error) {
	if req.ReservationID != nil {
		res, err := s.reservations.GetByID(ctx, *req.ReservationID)
		if err != nil {
			s.logger.Error("reservation not found for confirm", "error", err, "reservation_id", *req.ReservationID)
			return 0, apperrors.ErrReservationNotFound
		}
		return res.Amount, nil
	}
	return s.prices.ExpectedAmount(req.ReservationInfo.ServiceType)
}

func (s *ConfirmService) persistWithReservation(ctx context.Context, p *paymentmodel.Payment, req *ConfirmPaymentRequest) error {
	if req.ReservationID != nil {
		return s.store.CreateForReservation(ctx, p, *req.ReservationID)
	}

	info := req.ReservationInfo
	now := time.Now()
	method := p.Method
	res := &reservationmodel.Reservation{
		UserID:             req.UserID,
		ServiceType:        info.ServiceType,
		VehicleName:        info.VehicleName,
		PlateNumber:        info.PlateNumber,
		ScheduledAt:        info.ScheduledAt,
		Address:            info.Address,
		UserName:           info.UserName,
		PhoneNumber:        info.PhoneNumber,
		Amount:             p.TotalAmount,
		Status:             reservationmodel.StatusConfirmed,
		PaymentStatus:      reservationmodel.PaymentStatusPaid,
		PaymentMethod:      &method,
		PaymentCompletedAt: &now,
	}
	return s.store.CreateWithNewReservation(ctx, p, res)
}

func confirmedOrLater(status paymentmodel.Status) bool {
	switch status {
	case paymentmodel.StatusDone, paymentmodel.StatusPartialCanceled, paymentmodel.StatusCanceled:
		return true
	}
	return false
}
