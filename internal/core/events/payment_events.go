package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypePaymentConfirmed = "payment.confirmed"
	EventTypePaymentCanceled  = "payment.canceled"
)

type PaymentConfirmedEvent struct {
	BaseEvent
	PaymentID     int64  `json:"payment_id"`
	OrderID       string `json:"order_id"`
	UserID        string `json:"user_id"`
	Amount        int64  `json:"amount"`
	ReservationID *int64 `json:"reservation_id,omitempty"`
}

func NewPaymentConfirmedEvent(paymentID int64, orderID, userID string, amount int64, reservationID *int64) *PaymentConfirmedEvent {
	return &PaymentConfirmedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypePaymentConfirmed,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"payment_id":     paymentID,
				"order_id":       orderID,
				"user_id":        userID,
				"amount":         amount,
				"reservation_id": reservationID,
			},
		},
		PaymentID:     paymentID,
		OrderID:       orderID,
		UserID:        userID,
		Amount:        amount,
		ReservationID: reservationID,
	}
}

type PaymentCanceledEvent struct {
	BaseEvent
	PaymentID     int64  `json:"payment_id"`
	OrderID       string `json:"order_id"`
	UserID        string `json:"user_id"`
	CancelAmount  int64  `json:"cancel_amount"`
	BalanceAmount int64  `json:"balance_amount"`
	Status        string `json:"status"`
}

func NewPaymentCanceledEvent(paymentID int64, orderID, userID string, cancelAmount, balanceAmount int64, status string) *PaymentCanceledEvent {
	return &PaymentCanceledEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypePaymentCanceled,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"payment_id":     paymentID,
				"order_id":       orderID,
				"user_id":        userID,
				"cancel_amount":  cancelAmount,
				"balance_amount": balanceAmount,
				"status":         status,
			},
		},
		PaymentID:     paymentID,
		OrderID:       orderID,
		UserID:        userID,
		CancelAmount:  cancelAmount,
		BalanceAmount: balanceAmount,
		Status:        status,
	}
}
