package reservation

import (
	"context"

	"gorm.io/gorm"

	reservationmodel "github.com/ijbmsm/charzing-payments/internal/core/datamodel/reservation"
)

// Linker writes the payment-owned slice of a booking. Both methods run inside
// the caller's transaction so a payment and its booking commit or roll back
// together; nothing here ever touches the scheduling fields of an existing
// booking.
type Linker interface {
	CreateTx(tx *gorm.DB, res *reservationmodel.Reservation) error
	UpdatePaymentFieldsTx(tx *gorm.DB, reservationID int64, fields reservationmodel.PaymentFields) error
}

// Reader is the read side used to resolve a booking's trusted price.
type Reader interface {
	GetByID(ctx context.Context, id int64) (*reservationmodel.Reservation, error)
}
