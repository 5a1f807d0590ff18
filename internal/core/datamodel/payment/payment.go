package payment

import (
	"time"
)

type Status string

const (
	StatusReady             Status = "READY"
	StatusInProgress        Status = "IN_PROGRESS"
	StatusWaitingForDeposit Status = "WAITING_FOR_DEPOSIT"
	StatusDone              Status = "DONE"
	StatusPartialCanceled   Status = "PARTIAL_CANCELED"
	StatusCanceled          Status = "CANCELED"
	StatusAborted           Status = "ABORTED"
	StatusExpired           Status = "EXPIRED"
)

const (
	MethodCard           = "CARD"
	MethodVirtualAccount = "VIRTUAL_ACCOUNT"
	MethodEasyPay        = "EASY_PAY"
)

// Payment is the authoritative record of one confirmed charge. It is created
// exactly once when a gateway confirm succeeds, mutated only to attach its
// reservation and to append cancellations, and never deleted.
type Payment struct {
	ID            int64   `gorm:"primaryKey"`
	PaymentKey    string  `gorm:"column:payment_key;not null;uniqueIndex"`
	OrderID       string  `gorm:"column:order_id;not null;uniqueIndex"`
	UserID        string  `gorm:"column:user_id;index"`
	ReservationID *int64  `gorm:"column:reservation_id"`

	Status         Status `gorm:"column:status;not null"`
	TotalAmount    int64  `gorm:"column:total_amount;not null"`
	BalanceAmount  int64  `gorm:"column:balance_amount;not null"`
	SuppliedAmount int64  `gorm:"column:supplied_amount"`
	VAT            int64  `gorm:"column:vat"`
	TaxFreeAmount  int64  `gorm:"column:tax_free_amount"`
	Currency       string `gorm:"column:currency;default:KRW"`

	Method         string                `gorm:"column:method"`
	Card           *CardDetail           `gorm:"embedded;embeddedPrefix:card_"`
	VirtualAccount *VirtualAccountDetail `gorm:"embedded;embeddedPrefix:vacct_"`
	EasyPay        *EasyPayDetail        `gorm:"embedded;embeddedPrefix:easypay_"`

	ReceiptURL          string `gorm:"column:receipt_url"`
	IsPartialCancelable bool   `gorm:"column:is_partial_cancelable;default:true"`

	RequestedAt time.Time  `gorm:"column:requested_at"`
	ApprovedAt  *time.Time `gorm:"column:approved_at"`

	// Local half of the two-sided cancel idempotency contract. The flag is
	// flipped with a compare-and-set so concurrent cancels cannot both pass.
	CancelInProgress         bool    `gorm:"column:cancel_in_progress;default:false"`
	LastCancelIdempotencyKey *string `gorm:"column:last_cancel_idempotency_key"`

	Cancels []Cancel `gorm:"foreignKey:PaymentID"`

	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (Payment) TableName() string {
	return "payments"
}

// CardDetail carries receipt-display fields only; the full card number never
// reaches this system.
type CardDetail struct {
	Company           string `gorm:"column:company"`
	Number            string `gorm:"column:number"` // masked by the gateway
	InstallmentMonths int    `gorm:"column:installment_months"`
	ApproveNo         string `gorm:"column:approve_no"`
}

type VirtualAccountDetail struct {
	BankCode      string     `gorm:"column:bank_code"`
	AccountNumber string     `gorm:"column:account_number"`
	HolderName    string     `gorm:"column:holder_name"`
	DueDate       *time.Time `gorm:"column:due_date"`
}

type EasyPayDetail struct {
	Provider string `gorm:"column:provider"`
	Amount   int64  `gorm:"column:amount"`
}

// Cancel is one append-only entry of a payment's cancellation history.
type Cancel struct {
	ID             int64     `gorm:"primaryKey"`
	PaymentID      int64     `gorm:"column:payment_id;index;not null"`
	TransactionKey string    `gorm:"column:transaction_key;not null;uniqueIndex"`
	Reason         string    `gorm:"column:reason"`
	Amount         int64     `gorm:"column:amount;not null"`
	TaxFreeAmount  int64     `gorm:"column:tax_free_amount"`
	Status         string    `gorm:"column:status"`
	CanceledAt     time.Time `gorm:"column:canceled_at"`
	CreatedAt      time.Time `gorm:"column:created_at"`
}

func (Cancel) TableName() string {
	return "payment_cancels"
}

// IsCancelable reports whether further cancellation is admitted. Terminal
// statuses (CANCELED, ABORTED, EXPIRED) and pre-confirm statuses are not.
func (p *Payment) IsCancelable() bool {
	return p.Status == StatusDone || p.Status == StatusPartialCanceled
}

// CanceledTotal sums the loaded cancellation history.
func (p *Payment) CanceledTotal() int64 {
	var total int64
	for _, c := range p.Cancels {
		total += c.Amount
	}
	return total
}

// HasCancelTransaction reports whether a gateway cancel transaction is already
// recorded locally, which is how replayed gateway state is deduplicated.
func (p *Payment) HasCancelTransaction(transactionKey string) bool {
	for _, c := range p.Cancels {
		if c.TransactionKey == transactionKey {
			return true
		}
	}
	return false
}

// StatusForBalance derives the post-cancel status: zero remaining balance is a
// full cancel no matter how many partial cancels preceded it.
func StatusForBalance(balance int64) Status {
	if balance > 0 {
		return StatusPartialCanceled
	}
	return StatusCanceled
}
