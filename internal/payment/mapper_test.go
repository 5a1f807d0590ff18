package payment_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	paymentmodel "github.com/ijbmsm/charzing-payments/internal/core/datamodel/payment"
	gatewaytypes "github.com/ijbmsm/charzing-payments/internal/core/datamodel/paymentgateway"
	paymentPkg "github.com/ijbmsm/charzing-payments/internal/payment"
)

var _ = Describe("Mapper", func() {
	Describe("ToPayment", func() {
		cardPayload := func() *gatewaytypes.Payment {
			return &gatewaytypes.Payment{
				PaymentKey:          "pk-1",
				OrderID:             "order-1",
				Status:              "DONE",
				TotalAmount:         50000,
				BalanceAmount:       50000,
				SuppliedAmount:      45455,
				VAT:                 4545,
				Currency:            "KRW",
				Method:              "CARD",
				RequestedAt:         "2026-03-02T10:00:00+09:00",
				ApprovedAt:          "2026-03-02T10:00:05+09:00",
				IsPartialCancelable: true,
				Card: &gatewaytypes.Card{
					IssuerCode:            "61",
					Number:                "4330**********13",
					InstallmentPlanMonths: 3,
					ApproveNo:             "00000001",
				},
				Receipt: &gatewaytypes.Receipt{URL: "https://dashboard.example.com/receipt/pk-1"},
			}
		}

		It("should map a card payment with its issuer display name", func() {
			p := paymentPkg.ToPayment(cardPayload(), paymentPkg.MapContext{UserID: "user-1"})

			Expect(p.PaymentKey).To(Equal("pk-1"))
			Expect(p.Status).To(Equal(paymentmodel.StatusDone))
			Expect(p.Card).ToNot(BeNil())
			Expect(p.Card.Company).To(Equal("현대카드"))
			Expect(p.Card.Number).To(Equal("4330**********13"))
			Expect(p.Card.InstallmentMonths).To(Equal(3))
			Expect(p.VirtualAccount).To(BeNil())
			Expect(p.EasyPay).To(BeNil())
			Expect(p.ReceiptURL).To(Equal("https://dashboard.example.com/receipt/pk-1"))
			Expect(p.ApprovedAt).ToNot(BeNil())
		})

		It("should fall back to the generic issuer label for unknown codes", func() {
			payload := cardPayload()
			payload.Card.IssuerCode = "ZZ"

			p := paymentPkg.ToPayment(payload, paymentPkg.MapContext{})

			Expect(p.Card.Company).To(Equal("기타"))
		})

		It("should keep only the detail block matching the method discriminator", func() {
			// The gateway sometimes echoes stale blocks from earlier attempts
			payload := cardPayload()
			payload.Method = "EASY_PAY"
			payload.EasyPay = &gatewaytypes.EasyPay{Provider: "토스페이", Amount: 50000}

			p := paymentPkg.ToPayment(payload, paymentPkg.MapContext{})

			Expect(p.EasyPay).ToNot(BeNil())
			Expect(p.EasyPay.Provider).To(Equal("토스페이"))
			Expect(p.Card).To(BeNil())
		})

		It("should map a virtual account payment with its due date", func() {
			payload := cardPayload()
			payload.Method = "VIRTUAL_ACCOUNT"
			payload.Card = nil
			payload.Status = "WAITING_FOR_DEPOSIT"
			payload.VirtualAccount = &gatewaytypes.VirtualAccount{
				BankCode:      "20",
				AccountNumber: "X1234567890",
				CustomerName:  "홍길동",
				DueDate:       "2026-03-05T23:59:59+09:00",
			}

			p := paymentPkg.ToPayment(payload, paymentPkg.MapContext{})

			Expect(p.Status).To(Equal(paymentmodel.StatusWaitingForDeposit))
			Expect(p.VirtualAccount).ToNot(BeNil())
			Expect(p.VirtualAccount.HolderName).To(Equal("홍길동"))
			Expect(p.VirtualAccount.DueDate).ToNot(BeNil())
		})

		It("should be deterministic for the same payload", func() {
			a := paymentPkg.ToPayment(cardPayload(), paymentPkg.MapContext{UserID: "user-1"})
			b := paymentPkg.ToPayment(cardPayload(), paymentPkg.MapContext{UserID: "user-1"})

			Expect(a).To(Equal(b))
		})

		It("should map an unrecognized status to ABORTED", func() {
			payload := cardPayload()
			payload.Status = "NOT_A_STATUS"

			p := paymentPkg.ToPayment(payload, paymentPkg.MapContext{})

			Expect(p.Status).To(Equal(paymentmodel.StatusAborted))
		})

		It("should tolerate timestamps without a zone offset", func() {
			payload := cardPayload()
			payload.RequestedAt = "2026-03-02T10:00:00"
			payload.ApprovedAt = "not-a-time"

			p := paymentPkg.ToPayment(payload, paymentPkg.MapContext{})

			Expect(p.RequestedAt).To(Equal(time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)))
			Expect(p.ApprovedAt).To(BeNil())
		})
	})

	Describe("MapCancels", func() {
		It("should preserve the gateway's cancel order", func() {
			cancels := paymentPkg.MapCancels([]gatewaytypes.Cancel{
				{TransactionKey: "txn-1", CancelAmount: 20000, CancelStatus: "DONE", CanceledAt: "2026-03-03T11:00:00+09:00"},
				{TransactionKey: "txn-2", CancelAmount: 30000, CancelStatus: "DONE", CanceledAt: "2026-03-04T09:00:00+09:00"},
			})

			Expect(cancels).To(HaveLen(2))
			Expect(cancels[0].TransactionKey).To(Equal("txn-1"))
			Expect(cancels[1].TransactionKey).To(Equal("txn-2"))
			Expect(cancels[0].Amount).To(Equal(int64(20000)))
		})

		It("should map an empty history to nil", func() {
			Expect(paymentPkg.MapCancels(nil)).To(BeNil())
		})
	})

	Describe("CardIssuerName", func() {
		It("should resolve known issuer codes", func() {
			Expect(paymentPkg.CardIssuerName("51")).To(Equal("삼성카드"))
			Expect(paymentPkg.CardIssuerName("11")).To(Equal("KB국민카드"))
		})

		It("should never fail on unknown codes", func() {
			Expect(paymentPkg.CardIssuerName("")).To(Equal("기타"))
			Expect(paymentPkg.CardIssuerName("99")).To(Equal("기타"))
		})
	})
})
