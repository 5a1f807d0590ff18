package reservation

import (
	"time"
)

// Payment-status values owned by the payment subsystem.
const (
	PaymentStatusUnpaid          = "unpaid"
	PaymentStatusPaid            = "paid"
	PaymentStatusPartialRefunded = "partial_refunded"
	PaymentStatusRefunded        = "refunded"
	PaymentStatusFailed          = "failed"
)

const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
)

// Reservation is a battery diagnosis booking. The scheduling fields are owned
// by the booking subsystem and written once at creation; only the payment
// fields are ever updated here.
type Reservation struct {
	ID          int64     `gorm:"primaryKey"`
	UserID      string    `gorm:"column:user_id;index;not null"`
	ServiceType string    `gorm:"column:service_type;not null"`
	VehicleName string    `gorm:"column:vehicle_name"`
	PlateNumber string    `gorm:"column:plate_number"`
	ScheduledAt time.Time `gorm:"column:scheduled_at"`
	Address     string    `gorm:"column:address"`
	UserName    string    `gorm:"column:user_name"`
	PhoneNumber string    `gorm:"column:phone_number"`
	Amount      int64     `gorm:"column:amount;not null"` // server-trusted booked price
	Status      string    `gorm:"column:status;default:pending"`

	PaymentID          *int64     `gorm:"column:payment_id"`
	PaymentStatus      string     `gorm:"column:payment_status;default:unpaid"`
	PaymentMethod      *string    `gorm:"column:payment_method"`
	PaymentCompletedAt *time.Time `gorm:"column:payment_completed_at"`

	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (Reservation) TableName() string {
	return "reservations"
}

// PaymentFields is the slice of a reservation the payment subsystem owns.
type PaymentFields struct {
	PaymentID          int64
	PaymentStatus      string
	PaymentMethod      *string
	PaymentCompletedAt *time.Time
}

// PaymentStatusForBalance maps a post-cancel balance to the reservation-side
// payment status.
func PaymentStatusForBalance(balance int64) string {
	if balance > 0 {
		return PaymentStatusPartialRefunded
	}
	return PaymentStatusRefunded
}
