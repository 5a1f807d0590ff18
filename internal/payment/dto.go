package payment

import (
	"time"

	errors "github.com/ijbmsm/charzing-payments/internal"
	"github.com/ijbmsm/charzing-payments/internal/core/common/validation"
	paymentmodel "github.com/ijbmsm/charzing-payments/internal/core/datamodel/payment"
)

// ReservationInfo carries the booking details for the new-booking confirm
// flow. The price is resolved server-side from ServiceType; the amount on the
// confirm request is only validated against it.
type ReservationInfo struct {
	ServiceType string    `json:"service_type"`
	VehicleName string    `json:"vehicle_name"`
	PlateNumber string    `json:"plate_number"`
	ScheduledAt time.Time `json:"scheduled_at"`
	Address     string    `json:"address"`
	UserName    string    `json:"user_name"`
	PhoneNumber string    `json:"phone_number"`
}

type ConfirmPaymentRequest struct {
	PaymentKey      string           `json:"payment_key"`
	OrderID         string           `json:"order_id"`
	Amount          int64            `json:"amount"`
	UserID          string           `json:"user_id"`
	ReservationID   *int64           `json:"reservation_id,omitempty"`
	ReservationInfo *ReservationInfo `json:"reservation_info,omitempty"`
}

func (r *ConfirmPaymentRequest) Validate() error {
	validator := validation.NewValidator()

	validator.Field("payment_key", r.PaymentKey).Required()
	validator.Field("order_id", r.OrderID).Required().MaxLength(64)
	validator.Field("amount", r.Amount).Required().PositiveAmount()
	validator.Field("user_id", r.UserID).Required()

	if appErr := validator.Validate(); appErr != nil {
		return appErr
	}

	// Exactly one price reference: a confirm with neither cannot be checked
	// against a trusted amount and is rejected before any I/O.
	if r.ReservationID == nil && r.ReservationInfo == nil {
		return errors.NewValidationError(
			"either reservation_id or reservation_info is required",
			errors.ErrCodeMissingPriceReference,
		)
	}
	if r.ReservationID != nil && r.ReservationInfo != nil {
		return errors.NewValidationError(
			"reservation_id and reservation_info are mutually exclusive",
			errors.ErrCodeValidationFailed,
		)
	}
	if r.ReservationInfo != nil {
		infoValidator := validation.NewValidator()
		infoValidator.Field("service_type", r.ReservationInfo.ServiceType).Required()
		infoValidator.Field("scheduled_at", r.ReservationInfo.ScheduledAt).Required()
		infoValidator.Field("address", r.ReservationInfo.Address).Required()
		if appErr := infoValidator.Validate(); appErr != nil {
			return appErr
		}
	}

	return nil
}

type CancelPaymentRequest struct {
	CancelReason string `json:"cancel_reason"`
	CancelAmount *int64 `json:"cancel_amount,omitempty"`
}

func (r *CancelPaymentRequest) Validate() error {
	validator := validation.NewValidator()
	validator.Field("cancel_reason", r.CancelReason).Required().MaxLength(200)
	if appErr := validator.Validate(); appErr != nil {
		return appErr
	}

	if r.CancelAmount != nil && *r.CancelAmount <= 0 {
		return errors.NewValidationError("cancel_amount must be a positive amount", errors.ErrCodeInvalidAmount)
	}
	return nil
}

// Receipt holds the display fields the client shows after a confirm.
type Receipt struct {
	ApprovedAt        *time.Time `json:"approved_at,omitempty"`
	Method            string     `json:"method"`
	CardCompany       string     `json:"card_company,omitempty"`
	CardNumber        string     `json:"card_number,omitempty"`
	InstallmentMonths int        `json:"installment_months,omitempty"`
	ReceiptURL        string     `json:"receipt_url,omitempty"`
}

type ConfirmPaymentResult struct {
	PaymentID     int64   `json:"payment_id"`
	ReservationID *int64  `json:"reservation_id,omitempty"`
	Status        string  `json:"status"`
	Receipt       Receipt `json:"receipt"`
}

type CancelPaymentResult struct {
	Status        string `json:"status"`
	BalanceAmount int64  `json:"balance_amount"`
	CancelAmount  int64  `json:"cancel_amount"`
}

type CancelView struct {
	Amount     int64     `json:"amount"`
	Reason     string    `json:"reason"`
	Status     string    `json:"status"`
	CanceledAt time.Time `json:"canceled_at"`
}

// View is the read model returned by the get-payment endpoint.
type View struct {
	PaymentID     int64        `json:"payment_id"`
	OrderID       string       `json:"order_id"`
	Status        string       `json:"status"`
	TotalAmount   int64        `json:"total_amount"`
	BalanceAmount int64        `json:"balance_amount"`
	Currency      string       `json:"currency"`
	ReservationID *int64       `json:"reservation_id,omitempty"`
	Receipt       Receipt      `json:"receipt"`
	Cancels       []CancelView `json:"cancels,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
}

func receiptOf(p *paymentmodel.Payment) Receipt {
	r := Receipt{
		ApprovedAt: p.ApprovedAt,
		Method:     p.Method,
		ReceiptURL: p.ReceiptURL,
	}
	if p.Card != nil {
		r.CardCompany = p.Card.Company
		r.CardNumber = p.Card.Number
		r.InstallmentMonths = p.Card.InstallmentMonths
	}
	return r
}

func ToConfirmResult(p *paymentmodel.Payment) *ConfirmPaymentResult {
	return &ConfirmPaymentResult{
		PaymentID:     p.ID,
		ReservationID: p.ReservationID,
		Status:        string(p.Status),
		Receipt:       receiptOf(p),
	}
}

func ToView(p *paymentmodel.Payment) *View {
	view := &View{
		PaymentID:     p.ID,
		OrderID:       p.OrderID,
		Status:        string(p.Status),
		TotalAmount:   p.TotalAmount,
		BalanceAmount: p.BalanceAmount,
		Currency:      p.Currency,
		ReservationID: p.ReservationID,
		Receipt:       receiptOf(p),
		CreatedAt:     p.CreatedAt,
	}
	for _, c := range p.Cancels {
		view.Cancels = append(view.Cancels, CancelView{
			Amount:     c.Amount,
			Reason:     c.Reason,
			Status:     c.Status,
			CanceledAt: c.CanceledAt,
		})
	}
	return view
}
