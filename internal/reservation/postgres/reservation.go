package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"

	apperrors "github.com/ijbmsm/charzing-payments/internal"
	reservationmodel "github.com/ijbmsm/charzing-payments/internal/core/datamodel/reservation"
)

type ReservationRepository struct {
	db *gorm.DB
}

func NewReservationRepository(db *gorm.DB) *ReservationRepository {
	return &ReservationRepository{
		db: db,
	}
}

func (r *ReservationRepository) GetByID(ctx context.Context, id int64) (*reservationmodel.Reservation, error) {
	var res reservationmodel.Reservation
	err := r.db.WithContext(ctx).First(&res, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrReservationNotFound
		}
		return nil, apperrors.NewPersistenceError("failed to read reservation", err)
	}
	return &res, nil
}

func (r *ReservationRepository) CreateTx(tx *gorm.DB, res *reservationmodel.Reservation) error {
	return tx.Create(res).Error
}

// UpdatePaymentFieldsTx writes only the payment-owned columns; the booking's
// scheduling fields belong to another subsystem.
func (r *ReservationRepository) UpdatePaymentFieldsTx(tx *gorm.DB, reservationID int64, fields reservationmodel.PaymentFields) error {
	updates := map[string]interface{}{
		"payment_id":     fields.PaymentID,
		"payment_status": fields.PaymentStatus,
	}
	if fields.PaymentMethod != nil {
		updates["payment_method"] = *fields.PaymentMethod
	}
	if fields.PaymentCompletedAt != nil {
		updates["payment_completed_at"] = *fields.PaymentCompletedAt
	}

	result := tx.Model(&reservationmodel.Reservation{}).
		Where("id = ?", reservationID).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrReservationNotFound
	}
	return nil
}
