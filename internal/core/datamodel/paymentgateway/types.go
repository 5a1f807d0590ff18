package paymentgateway

import (
	"errors"
)

// Payment is the gateway's wire representation of a payment, as returned by
// confirm, cancel and fetch.
type Payment struct {
	PaymentKey          string  `json:"paymentKey"`
	OrderID             string  `json:"orderId"`
	Status              string  `json:"status"`
	TotalAmount         int64   `json:"totalAmount"`
	BalanceAmount       int64   `json:"balanceAmount"`
	SuppliedAmount      int64   `json:"suppliedAmount"`
	VAT                 int64   `json:"vat"`
	TaxFreeAmount       int64   `json:"taxFreeAmount"`
	Currency            string  `json:"currency"`
	Method              string  `json:"method"`
	RequestedAt         string  `json:"requestedAt"`
	ApprovedAt          string  `json:"approvedAt"`
	IsPartialCancelable bool    `json:"isPartialCancelable"`

	Card           *Card           `json:"card,omitempty"`
	VirtualAccount *VirtualAccount `json:"virtualAccount,omitempty"`
	EasyPay        *EasyPay        `json:"easyPay,omitempty"`

	Cancels []Cancel `json:"cancels,omitempty"`
	Receipt *Receipt `json:"receipt,omitempty"`
}

type Card struct {
	IssuerCode            string `json:"issuerCode"`
	Number                string `json:"number"`
	InstallmentPlanMonths int    `json:"installmentPlanMonths"`
	ApproveNo             string `json:"approveNo"`
}

type VirtualAccount struct {
	BankCode      string `json:"bankCode"`
	AccountNumber string `json:"accountNumber"`
	CustomerName  string `json:"customerName"`
	DueDate       string `json:"dueDate"`
}

type EasyPay struct {
	Provider string `json:"provider"`
	Amount   int64  `json:"amount"`
}

type Cancel struct {
	TransactionKey string `json:"transactionKey"`
	CancelReason   string `json:"cancelReason"`
	CancelAmount   int64  `json:"cancelAmount"`
	TaxFreeAmount  int64  `json:"taxFreeAmount"`
	CancelStatus   string `json:"cancelStatus"`
	CanceledAt     string `json:"canceledAt"`
}

type Receipt struct {
	URL string `json:"url"`
}

// ErrorBody is the gateway's error envelope.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ConfirmRequest struct {
	PaymentKey string `json:"paymentKey"`
	OrderID    string `json:"orderId"`
	Amount     int64  `json:"amount"`
}

func (r *ConfirmRequest) Validate() error {
	if r.PaymentKey == "" {
		return errors.New("paymentKey is required")
	}
	if r.OrderID == "" {
		return errors.New("orderId is required")
	}
	if r.Amount <= 0 {
		return errors.New("amount must be greater than 0")
	}
	return nil
}

type CancelRequest struct {
	CancelReason string `json:"cancelReason"`
	CancelAmount *int64 `json:"cancelAmount,omitempty"`
}

func (r *CancelRequest) Validate() error {
	if r.CancelReason == "" {
		return errors.New("cancelReason is required")
	}
	if r.CancelAmount != nil && *r.CancelAmount <= 0 {
		return errors.New("cancelAmount must be greater than 0")
	}
	return nil
}
