package payment_test

import (
	"context"
	"errors"
	"log/slog"
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	apperrors "github.com/ijbmsm/charzing-payments/internal"
	paymentmodel "github.com/ijbmsm/charzing-payments/internal/core/datamodel/payment"
	gatewaytypes "github.com/ijbmsm/charzing-payments/internal/core/datamodel/paymentgateway"
	paymentPkg "github.com/ijbmsm/charzing-payments/internal/payment"
)

var _ = Describe("Reconciler", func() {
	var (
		reconciler *paymentPkg.Reconciler
		store      *mockStore
		gw         *mockGateway
		ctx        context.Context
	)

	lockedPayment := func() *paymentmodel.Payment {
		key := "idem-1"
		return store.add(&paymentmodel.Payment{
			PaymentKey:               "pk-rec-1",
			OrderID:                  "order-rec-1",
			UserID:                   "user-1",
			Status:                   paymentmodel.StatusDone,
			TotalAmount:              50000,
			BalanceAmount:            50000,
			IsPartialCancelable:      true,
			CancelInProgress:         true,
			LastCancelIdempotencyKey: &key,
		})
	}

	BeforeEach(func() {
		ctx = context.Background()
		store = newMockStore()
		gw = &mockGateway{}
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

		reconciler = paymentPkg.NewReconciler(store, gw, logger)
	})

	Describe("ReconcilePayment", func() {
		Context("when an in-doubt cancel turns out to have applied", func() {
			It("should append the missing cancel and release the lock", func() {
				// Given: lock held, gateway shows the cancel went through
				lockedPayment()
				gw.fetchResponse = &gatewaytypes.Payment{
					PaymentKey:    "pk-rec-1",
					OrderID:       "order-rec-1",
					Status:        "PARTIAL_CANCELED",
					TotalAmount:   50000,
					BalanceAmount: 30000,
					Cancels: []gatewaytypes.Cancel{{
						TransactionKey: "txn-1",
						CancelAmount:   20000,
						CancelStatus:   "DONE",
						CanceledAt:     "2026-03-03T11:00:00+09:00",
					}},
				}

				// When
				err := reconciler.ReconcilePayment(ctx, "order-rec-1")

				// Then
				Expect(err).ToNot(HaveOccurred())
				stored, _ := store.GetByOrderID(ctx, "order-rec-1")
				Expect(stored.Cancels).To(HaveLen(1))
				Expect(stored.BalanceAmount).To(Equal(int64(30000)))
				Expect(stored.Status).To(Equal(paymentmodel.StatusPartialCanceled))
				Expect(stored.CancelInProgress).To(BeFalse())
			})
		})

		Context("when an in-doubt cancel never reached the gateway", func() {
			It("should only release the stale lock", func() {
				// Given: gateway state matches local state except the lock
				lockedPayment()
				gw.fetchResponse = &gatewaytypes.Payment{
					PaymentKey:    "pk-rec-1",
					OrderID:       "order-rec-1",
					Status:        "DONE",
					TotalAmount:   50000,
					BalanceAmount: 50000,
				}

				// When
				err := reconciler.ReconcilePayment(ctx, "order-rec-1")

				// Then
				Expect(err).ToNot(HaveOccurred())
				stored, _ := store.GetByOrderID(ctx, "order-rec-1")
				Expect(stored.Cancels).To(BeEmpty())
				Expect(stored.BalanceAmount).To(Equal(int64(50000)))
				Expect(stored.CancelInProgress).To(BeFalse())
			})
		})

		Context("when local state already matches the gateway", func() {
			It("should change nothing", func() {
				// Given
				p := lockedPayment()
				p.CancelInProgress = false
				p.LastCancelIdempotencyKey = nil
				gw.fetchResponse = &gatewaytypes.Payment{
					PaymentKey:    "pk-rec-1",
					OrderID:       "order-rec-1",
					Status:        "DONE",
					TotalAmount:   50000,
					BalanceAmount: 50000,
				}

				// When
				err := reconciler.ReconcilePayment(ctx, "order-rec-1")

				// Then
				Expect(err).ToNot(HaveOccurred())
				Expect(store.applyResultCalls).To(Equal(0))
			})
		})

		Context("when the local record was never written", func() {
			It("should rebuild the payment from the gateway's canonical state", func() {
				// Given: the confirm went through at the gateway but the local
				// write was rolled back, so nothing exists under the order id
				gw.fetchByOrderResponse = &gatewaytypes.Payment{
					PaymentKey:    "pk-lost-1",
					OrderID:       "order-lost",
					Status:        "DONE",
					TotalAmount:   50000,
					BalanceAmount: 50000,
					Method:        "CARD",
				}

				// When
				err := reconciler.ReconcilePayment(ctx, "order-lost")

				// Then: the charge is accounted for again
				Expect(err).ToNot(HaveOccurred())
				Expect(gw.fetchByOrderCalls).To(Equal(1))

				stored, getErr := store.GetByOrderID(ctx, "order-lost")
				Expect(getErr).ToNot(HaveOccurred())
				Expect(stored.PaymentKey).To(Equal("pk-lost-1"))
				Expect(stored.Status).To(Equal(paymentmodel.StatusDone))
				Expect(stored.BalanceAmount).To(Equal(int64(50000)))
			})

			It("should rebuild the cancel history along with the record", func() {
				// Given: the payment was also partly canceled at the gateway
				gw.fetchByOrderResponse = &gatewaytypes.Payment{
					PaymentKey:    "pk-lost-2",
					OrderID:       "order-lost",
					Status:        "PARTIAL_CANCELED",
					TotalAmount:   50000,
					BalanceAmount: 30000,
					Cancels: []gatewaytypes.Cancel{{
						TransactionKey: "txn-1",
						CancelAmount:   20000,
						CancelStatus:   "DONE",
						CanceledAt:     "2026-03-03T11:00:00+09:00",
					}},
				}

				// When
				err := reconciler.ReconcilePayment(ctx, "order-lost")

				// Then
				Expect(err).ToNot(HaveOccurred())
				stored, _ := store.GetByOrderID(ctx, "order-lost")
				Expect(stored.Status).To(Equal(paymentmodel.StatusPartialCanceled))
				Expect(stored.Cancels).To(HaveLen(1))
				Expect(stored.BalanceAmount).To(Equal(int64(30000)))
			})

			It("should not rebuild when the gateway never settled the charge", func() {
				// Given: the gateway still shows the checkout as authorized only
				gw.fetchByOrderResponse = &gatewaytypes.Payment{
					PaymentKey:  "pk-lost-3",
					OrderID:     "order-lost",
					Status:      "READY",
					TotalAmount: 50000,
				}

				// When
				err := reconciler.ReconcilePayment(ctx, "order-lost")

				// Then: nothing to account for, nothing written
				Expect(err).To(HaveOccurred())
				Expect(errors.Is(err, apperrors.ErrPaymentNotFound)).To(BeTrue())
				_, getErr := store.GetByOrderID(ctx, "order-lost")
				Expect(errors.Is(getErr, apperrors.ErrPaymentNotFound)).To(BeTrue())
			})

			It("should propagate a gateway miss without writing anything", func() {
				// Given
				gw.fetchByOrderError = apperrors.NewGatewayError("NOT_FOUND_PAYMENT", "존재하지 않는 결제 입니다.")

				// When
				err := reconciler.ReconcilePayment(ctx, "order-unknown")

				// Then
				Expect(err).To(HaveOccurred())
				_, getErr := store.GetByOrderID(ctx, "order-unknown")
				Expect(errors.Is(getErr, apperrors.ErrPaymentNotFound)).To(BeTrue())
			})
		})

		Context("when the gateway fetch fails", func() {
			It("should leave local state untouched", func() {
				// Given
				lockedPayment()
				gw.fetchError = errors.New("connection refused")

				// When
				err := reconciler.ReconcilePayment(ctx, "order-rec-1")

				// Then
				Expect(err).To(HaveOccurred())
				stored, _ := store.GetByOrderID(ctx, "order-rec-1")
				Expect(stored.CancelInProgress).To(BeTrue())
				Expect(store.applyResultCalls).To(Equal(0))
			})
		})
	})
})
