package payment

import (
	"time"

	paymentmodel "github.com/ijbmsm/charzing-payments/internal/core/datamodel/payment"
	gatewaytypes "github.com/ijbmsm/charzing-payments/internal/core/datamodel/paymentgateway"
)

// cardIssuerNames maps the gateway's issuer codes to display names. Unknown
// codes fall back to a sentinel label; mapping must never fail.
var cardIssuerNames = map[string]string{
	"3K": "기업BC",
	"46": "광주은행",
	"71": "롯데카드",
	"30": "KDB산업은행",
	"31": "BC카드",
	"51": "삼성카드",
	"38": "새마을금고",
	"41": "신한카드",
	"62": "신협",
	"36": "씨티카드",
	"33": "우리BC카드",
	"W1": "우리카드",
	"37": "우체국예금보험",
	"39": "저축은행중앙회",
	"35": "전북은행",
	"42": "제주은행",
	"15": "카카오뱅크",
	"3A": "케이뱅크",
	"24": "토스뱅크",
	"21": "하나카드",
	"61": "현대카드",
	"11": "KB국민카드",
	"91": "NH농협카드",
	"34": "Sh수협은행",
}

const cardIssuerOther = "기타"

func CardIssuerName(code string) string {
	if name, ok := cardIssuerNames[code]; ok {
		return name
	}
	return cardIssuerOther
}

// MapContext carries the local identifiers a gateway payload knows nothing
// about.
type MapContext struct {
	UserID        string
	ReservationID *int64
}

// ToPayment converts a gateway payload into the canonical payment record.
// It is pure and deterministic: the same payload always maps to the same
// record, which is what makes replaying it during reconciliation safe.
func ToPayment(gw *gatewaytypes.Payment, mc MapContext) *paymentmodel.Payment {
	p := &paymentmodel.Payment{
		PaymentKey:          gw.PaymentKey,
		OrderID:             gw.OrderID,
		UserID:              mc.UserID,
		ReservationID:       mc.ReservationID,
		Status:              MapStatus(gw.Status),
		TotalAmount:         gw.TotalAmount,
		BalanceAmount:       gw.BalanceAmount,
		SuppliedAmount:      gw.SuppliedAmount,
		VAT:                 gw.VAT,
		TaxFreeAmount:       gw.TaxFreeAmount,
		Currency:            gw.Currency,
		Method:              gw.Method,
		IsPartialCancelable: gw.IsPartialCancelable,
		RequestedAt:         parseTime(gw.RequestedAt),
		Cancels:             MapCancels(gw.Cancels),
	}

	if t := parseTime(gw.ApprovedAt); !t.IsZero() {
		p.ApprovedAt = &t
	}

	if gw.Receipt != nil {
		p.ReceiptURL = gw.Receipt.URL
	}

	// Exactly one method-detail variant, chosen by the discriminator; the
	// others stay absent even when the gateway echoes stale blocks.
	switch gw.Method {
	case paymentmodel.MethodCard:
		if gw.Card != nil {
			p.Card = &paymentmodel.CardDetail{
				Company:           CardIssuerName(gw.Card.IssuerCode),
				Number:            gw.Card.Number,
				InstallmentMonths: gw.Card.InstallmentPlanMonths,
				ApproveNo:         gw.Card.ApproveNo,
			}
		}
	case paymentmodel.MethodVirtualAccount:
		if gw.VirtualAccount != nil {
			detail := &paymentmodel.VirtualAccountDetail{
				BankCode:      gw.VirtualAccount.BankCode,
				AccountNumber: gw.VirtualAccount.AccountNumber,
				HolderName:    gw.VirtualAccount.CustomerName,
			}
			if t := parseTime(gw.VirtualAccount.DueDate); !t.IsZero() {
				detail.DueDate = &t
			}
			p.VirtualAccount = detail
		}
	case paymentmodel.MethodEasyPay:
		if gw.EasyPay != nil {
			p.EasyPay = &paymentmodel.EasyPayDetail{
				Provider: gw.EasyPay.Provider,
				Amount:   gw.EasyPay.Amount,
			}
		}
	}

	return p
}

// MapCancels converts the gateway's cancel history into local cancel records,
// preserving order.
func MapCancels(gwCancels []gatewaytypes.Cancel) []paymentmodel.Cancel {
	if len(gwCancels) == 0 {
		return nil
	}

	cancels := make([]paymentmodel.Cancel, 0, len(gwCancels))
	for _, c := range gwCancels {
		cancels = append(cancels, paymentmodel.Cancel{
			TransactionKey: c.TransactionKey,
			Reason:         c.CancelReason,
			Amount:         c.CancelAmount,
			TaxFreeAmount:  c.TaxFreeAmount,
			Status:         c.CancelStatus,
			CanceledAt:     parseTime(c.CanceledAt),
		})
	}
	return cancels
}

func MapStatus(s string) paymentmodel.Status {
	switch paymentmodel.Status(s) {
	case paymentmodel.StatusReady,
		paymentmodel.StatusInProgress,
		paymentmodel.StatusWaitingForDeposit,
		paymentmodel.StatusDone,
		paymentmodel.StatusPartialCanceled,
		paymentmodel.StatusCanceled,
		paymentmodel.StatusAborted,
		paymentmodel.StatusExpired:
		return paymentmodel.Status(s)
	}
	return paymentmodel.StatusAborted
}

// parseTime accepts the gateway's ISO-8601 timestamps, with or without a
// zone offset. Unparseable values map to the zero time rather than an error
// to keep the mapping total.
func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
