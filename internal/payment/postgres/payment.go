package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	apperrors "github.com/ijbmsm/charzing-payments/internal"
	paymentmodel "github.com/ijbmsm/charzing-payments/internal/core/datamodel/payment"
	reservationmodel "github.com/ijbmsm/charzing-payments/internal/core/datamodel/reservation"
	paymentpkg "github.com/ijbmsm/charzing-payments/internal/payment"
	"github.com/ijbmsm/charzing-payments/internal/reservation"
)

type PaymentRepository struct {
	db     *gorm.DB
	linker reservation.Linker
}

func NewPaymentRepository(db *gorm.DB, linker reservation.Linker) paymentpkg.StoreAPI {
	return &PaymentRepository{
		db:     db,
		linker: linker,
	}
}

func (r *PaymentRepository) GetByID(ctx context.Context, id int64) (*paymentmodel.Payment, error) {
	return r.getOne(ctx, "id = ?", id)
}

func (r *PaymentRepository) GetByOrderID(ctx context.Context, orderID string) (*paymentmodel.Payment, error) {
	return r.getOne(ctx, "order_id = ?", orderID)
}

func (r *PaymentRepository) GetByPaymentKey(ctx context.Context, paymentKey string) (*paymentmodel.Payment, error) {
	return r.getOne(ctx, "payment_key = ?", paymentKey)
}

func (r *PaymentRepository) getOne(ctx context.Context, query string, arg interface{}) (*paymentmodel.Payment, error) {
	var p paymentmodel.Payment
	err := r.db.WithContext(ctx).
		Preload("Cancels", func(db *gorm.DB) *gorm.DB {
			return db.Order("canceled_at ASC")
		}).
		Where(query, arg).
		First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrPaymentNotFound
		}
		return nil, apperrors.NewPersistenceError("failed to read payment", err)
	}
	return &p, nil
}

// Create inserts the payment and its cancel rows without any booking write.
// Reconciliation uses it to rebuild a record from the gateway's canonical
// state after a lost local write.
func (r *PaymentRepository) Create(ctx context.Context, p *paymentmodel.Payment) error {
	if err := r.db.WithContext(ctx).Create(p).Error; err != nil {
		return apperrors.NewPersistenceError("failed to create payment", err)
	}
	return nil
}

// CreateWithNewReservation inserts the payment, creates the booking and links
// the two in one transaction: both succeed or neither exists.
func (r *PaymentRepository) CreateWithNewReservation(ctx context.Context, p *paymentmodel.Payment, res *reservationmodel.Reservation) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(p).Error; err != nil {
			return err
		}

		res.PaymentID = &p.ID
		if err := r.linker.CreateTx(tx, res); err != nil {
			return err
		}

		p.ReservationID = &res.ID
		return tx.Model(&paymentmodel.Payment{}).
			Where("id = ?", p.ID).
			Update("reservation_id", res.ID).Error
	})
}

// CreateForReservation inserts the payment and marks the existing booking
// paid in one transaction.
func (r *PaymentRepository) CreateForReservation(ctx context.Context, p *paymentmodel.Payment, reservationID int64) error {
	p.ReservationID = &reservationID
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(p).Error; err != nil {
			return err
		}

		completedAt := p.ApprovedAt
		if completedAt == nil {
			now := time.Now()
			completedAt = &now
		}
		method := p.Method
		return r.linker.UpdatePaymentFieldsTx(tx, reservationID, reservationmodel.PaymentFields{
			PaymentID:          p.ID,
			PaymentStatus:      reservationmodel.PaymentStatusPaid,
			PaymentMethod:      &method,
			PaymentCompletedAt: completedAt,
		})
	})
}

// AcquireCancelLock is a compare-and-set: the flag flip is conditioned on its
// prior value in the same statement, so two concurrent cancels cannot both
// pass. Zero rows affected means someone else holds the lock.
func (r *PaymentRepository) AcquireCancelLock(ctx context.Context, paymentID int64, idempotencyKey string) error {
	result := r.db.WithContext(ctx).
		Model(&paymentmodel.Payment{}).
		Where("id = ? AND cancel_in_progress = ?", paymentID, false).
		Updates(map[string]interface{}{
			"cancel_in_progress":          true,
			"last_cancel_idempotency_key": idempotencyKey,
		})
	if result.Error != nil {
		return apperrors.NewPersistenceError("failed to acquire cancel lock", result.Error)
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).
			Model(&paymentmodel.Payment{}).
			Where("id = ?", paymentID).
			Count(&count).Error; err == nil && count == 0 {
			return apperrors.ErrPaymentNotFound
		}
		return apperrors.ErrCancelInProgress
	}
	return nil
}

func (r *PaymentRepository) ReleaseCancelLock(ctx context.Context, paymentID int64) error {
	err := r.db.WithContext(ctx).
		Model(&paymentmodel.Payment{}).
		Where("id = ?", paymentID).
		Update("cancel_in_progress", false).Error
	if err != nil {
		return apperrors.NewPersistenceError("failed to release cancel lock", err)
	}
	return nil
}

// ApplyCancelResult records a settled cancel outcome: append-only history
// rows, the recomputed balance and status, the lock release, and the
// reservation's payment status, all in one transaction.
func (r *PaymentRepository) ApplyCancelResult(ctx context.Context, p *paymentmodel.Payment, newCancels []paymentmodel.Cancel, balance int64, status paymentmodel.Status) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range newCancels {
			newCancels[i].PaymentID = p.ID
			if err := tx.Create(&newCancels[i]).Error; err != nil {
				return err
			}
		}

		if err := tx.Model(&paymentmodel.Payment{}).
			Where("id = ?", p.ID).
			Updates(map[string]interface{}{
				"balance_amount":     balance,
				"status":             status,
				"cancel_in_progress": false,
			}).Error; err != nil {
			return err
		}

		if p.ReservationID != nil && statusAffectsReservation(status) {
			return r.linker.UpdatePaymentFieldsTx(tx, *p.ReservationID, reservationmodel.PaymentFields{
				PaymentID:     p.ID,
				PaymentStatus: reservationmodel.PaymentStatusForBalance(balance),
			})
		}
		return nil
	})
}

func statusAffectsReservation(status paymentmodel.Status) bool {
	return status == paymentmodel.StatusCanceled || status == paymentmodel.StatusPartialCanceled
}
