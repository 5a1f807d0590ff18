package notification

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ijbmsm/charzing-payments/internal/core/events"
)

// Sender is the boundary to the message delivery pipeline (SMS/push), which
// lives outside this service.
type Sender interface {
	Send(ctx context.Context, userID, title, body string) error
}

// LogSender satisfies Sender without an external pipeline; deployments plug a
// real sender in via the same interface.
type LogSender struct {
	Logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{Logger: logger}
}

func (s *LogSender) Send(ctx context.Context, userID, title, body string) error {
	s.Logger.Info("notification dispatched", "user_id", userID, "title", title, "body", body)
	return nil
}

// EventHandler turns payment events into user notifications. It is wired
// behind the event bus so a delivery failure can never roll back a payment.
type EventHandler struct {
	sender Sender
	logger *slog.Logger
}

func NewEventHandler(sender Sender, logger *slog.Logger) *EventHandler {
	return &EventHandler{
		sender: sender,
		logger: logger,
	}
}

func (h *EventHandler) HandlePaymentConfirmed(ctx context.Context, event events.Event) error {
	e, ok := event.(*events.PaymentConfirmedEvent)
	if !ok {
		return fmt.Errorf("expected PaymentConfirmedEvent, got %T", event)
	}

	body := fmt.Sprintf("결제가 완료되었습니다. 결제 금액: %d원", e.Amount)
	if err := h.sender.Send(ctx, e.UserID, "결제 완료", body); err != nil {
		h.logger.Error("failed to send confirm notification",
			"error", err,
			"payment_id", e.PaymentID,
			"user_id", e.UserID)
		return err
	}
	return nil
}

func (h *EventHandler) HandlePaymentCanceled(ctx context.Context, event events.Event) error {
	e, ok := event.(*events.PaymentCanceledEvent)
	if !ok {
		return fmt.Errorf("expected PaymentCanceledEvent, got %T", event)
	}

	body := fmt.Sprintf("결제가 취소되었습니다. 취소 금액: %d원", e.CancelAmount)
	if err := h.sender.Send(ctx, e.UserID, "결제 취소", body); err != nil {
		h.logger.Error("failed to send cancel notification",
			"error", err,
			"payment_id", e.PaymentID,
			"user_id", e.UserID)
		return err
	}
	return nil
}

func (h *EventHandler) RegisterEventHandlers(eventBus *events.EventBus) {
	eventBus.Subscribe(events.EventTypePaymentConfirmed, h.HandlePaymentConfirmed)
	eventBus.Subscribe(events.EventTypePaymentCanceled, h.HandlePaymentCanceled)

	h.logger.Info("notification event handlers registered",
		"handlers", []string{events.EventTypePaymentConfirmed, events.EventTypePaymentCanceled})
}
