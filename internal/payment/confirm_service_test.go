package payment_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	apperrors "github.com/ijbmsm/charzing-payments/internal"
	paymentmodel "github.com/ijbmsm/charzing-payments/internal/core/datamodel/payment"
	gatewaytypes "github.com/ijbmsm/charzing-payments/internal/core/datamodel/paymentgateway"
	reservationmodel "github.com/ijbmsm/charzing-payments/internal/core/datamodel/reservation"
	"github.com/ijbmsm/charzing-payments/internal/core/events"
	paymentPkg "github.com/ijbmsm/charzing-payments/internal/payment"
)

var _ = Describe("ConfirmService", func() {
	var (
		service      *paymentPkg.ConfirmService
		store        *mockStore
		gw           *mockGateway
		reservations *mockReservationReader
		logger       *slog.Logger
		ctx          context.Context
	)

	confirmedPayload := func(orderID string, amount int64) *gatewaytypes.Payment {
		return &gatewaytypes.Payment{
			PaymentKey:          "pk-" + orderID,
			OrderID:             orderID,
			Status:              "DONE",
			TotalAmount:         amount,
			BalanceAmount:       amount,
			SuppliedAmount:      amount - amount/11,
			VAT:                 amount / 11,
			Currency:            "KRW",
			Method:              "CARD",
			RequestedAt:         "2026-03-02T10:00:00+09:00",
			ApprovedAt:          "2026-03-02T10:00:05+09:00",
			IsPartialCancelable: true,
			Card: &gatewaytypes.Card{
				IssuerCode: "51",
				Number:     "5107**********29",
				ApproveNo:  "00000000",
			},
			Receipt: &gatewaytypes.Receipt{URL: "https://dashboard.example.com/receipt/pk-" + orderID},
		}
	}

	newBookingRequest := func(orderID string, amount int64) *paymentPkg.ConfirmPaymentRequest {
		return &paymentPkg.ConfirmPaymentRequest{
			PaymentKey: "pk-" + orderID,
			OrderID:    orderID,
			Amount:     amount,
			UserID:     "user-1",
			ReservationInfo: &paymentPkg.ReservationInfo{
				ServiceType: paymentPkg.ServiceBatteryDiagnosisBasic,
				VehicleName: "아이오닉 5",
				PlateNumber: "12가3456",
				ScheduledAt: time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC),
				Address:     "서울특별시 강남구",
				UserName:    "홍길동",
				PhoneNumber: "010-1234-5678",
			},
		}
	}

	BeforeEach(func() {
		ctx = context.Background()
		store = newMockStore()
		gw = &mockGateway{}
		reservations = newMockReservationReader()
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

		service = paymentPkg.NewConfirmService(
			store, gw, reservations, paymentPkg.NewStaticPriceCatalog(),
			events.NewEventBus(logger), logger,
		)
	})

	Describe("ConfirmPayment", func() {
		Context("when paying for a new booking", func() {
			It("should confirm and create the booking atomically", func() {
				// Given
				req := newBookingRequest("order-1", 50000)
				gw.confirmResponse = confirmedPayload("order-1", 50000)

				// When
				result, err := service.ConfirmPayment(ctx, req)

				// Then
				Expect(err).ToNot(HaveOccurred())
				Expect(result).ToNot(BeNil())
				Expect(result.Status).To(Equal("DONE"))
				Expect(result.PaymentID).To(BeNumerically(">", 0))
				Expect(result.ReservationID).ToNot(BeNil())
				Expect(result.Receipt.CardCompany).To(Equal("삼성카드"))
				Expect(result.Receipt.CardNumber).To(Equal("5107**********29"))
				Expect(gw.confirmCalls).To(Equal(1))
			})
		})

		Context("when paying for an existing booking", func() {
			It("should take the expected amount from the stored reservation", func() {
				// Given
				reservationID := int64(42)
				reservations.reservations[reservationID] = &reservationmodel.Reservation{
					ID:          reservationID,
					UserID:      "user-1",
					ServiceType: paymentPkg.ServiceBatteryDiagnosisPremium,
					Amount:      90000,
					Status:      reservationmodel.StatusPending,
				}
				req := &paymentPkg.ConfirmPaymentRequest{
					PaymentKey:    "pk-order-2",
					OrderID:       "order-2",
					Amount:        90000,
					UserID:        "user-1",
					ReservationID: &reservationID,
				}
				gw.confirmResponse = confirmedPayload("order-2", 90000)

				// When
				result, err := service.ConfirmPayment(ctx, req)

				// Then
				Expect(err).ToNot(HaveOccurred())
				Expect(result.ReservationID).ToNot(BeNil())
				Expect(*result.ReservationID).To(Equal(reservationID))
				Expect(gw.confirmCalls).To(Equal(1))
			})
		})

		Context("when the declared amount does not match the booked price", func() {
			It("should reject before calling the gateway", func() {
				// Given: basic diagnosis costs 50000, client declares 10000
				req := newBookingRequest("order-3", 10000)

				// When
				result, err := service.ConfirmPayment(ctx, req)

				// Then
				Expect(err).To(HaveOccurred())
				Expect(errors.Is(err, apperrors.ErrAmountMismatch)).To(BeTrue())
				Expect(result).To(BeNil())
				Expect(gw.confirmCalls).To(Equal(0))
			})
		})

		Context("when the confirm is retried for an already confirmed order", func() {
			It("should return the recorded payment without a second gateway call", func() {
				// Given
				req := newBookingRequest("order-4", 50000)
				gw.confirmResponse = confirmedPayload("order-4", 50000)

				first, err := service.ConfirmPayment(ctx, req)
				Expect(err).ToNot(HaveOccurred())

				// When: same order id again
				second, err := service.ConfirmPayment(ctx, req)

				// Then
				Expect(err).ToNot(HaveOccurred())
				Expect(second.PaymentID).To(Equal(first.PaymentID))
				Expect(gw.confirmCalls).To(Equal(1))
			})
		})

		Context("when the gateway rejects the confirm", func() {
			It("should not persist any payment record", func() {
				// Given
				req := newBookingRequest("order-5", 50000)
				gw.confirmError = apperrors.NewGatewayError("NOT_FOUND_PAYMENT_SESSION", "결제 시간이 만료되어 결제 진행 데이터가 존재하지 않습니다.")

				// When
				result, err := service.ConfirmPayment(ctx, req)

				// Then
				Expect(err).To(HaveOccurred())
				Expect(result).To(BeNil())

				var appErr *apperrors.AppError
				Expect(errors.As(err, &appErr)).To(BeTrue())
				Expect(string(appErr.Code)).To(Equal("NOT_FOUND_PAYMENT_SESSION"))

				_, getErr := store.GetByOrderID(ctx, "order-5")
				Expect(errors.Is(getErr, apperrors.ErrPaymentNotFound)).To(BeTrue())
			})
		})

		Context("when persistence fails after a successful gateway confirm", func() {
			It("should return a persistence error pointing at reconciliation", func() {
				// Given
				req := newBookingRequest("order-6", 50000)
				gw.confirmResponse = confirmedPayload("order-6", 50000)
				store.createError = errors.New("connection reset")

				// When
				result, err := service.ConfirmPayment(ctx, req)

				// Then
				Expect(err).To(HaveOccurred())
				Expect(result).To(BeNil())

				var appErr *apperrors.AppError
				Expect(errors.As(err, &appErr)).To(BeTrue())
				Expect(appErr.Type).To(Equal(apperrors.ErrorTypePersistence))
				Expect(appErr.Message).To(ContainSubstring("reconciliation required"))
			})
		})

		Context("when neither reservation_id nor reservation_info is present", func() {
			It("should reject with a missing price reference error", func() {
				// Given
				req := &paymentPkg.ConfirmPaymentRequest{
					PaymentKey: "pk-order-7",
					OrderID:    "order-7",
					Amount:     50000,
					UserID:     "user-1",
				}

				// When
				result, err := service.ConfirmPayment(ctx, req)

				// Then
				Expect(err).To(HaveOccurred())
				Expect(result).To(BeNil())

				var appErr *apperrors.AppError
				Expect(errors.As(err, &appErr)).To(BeTrue())
				Expect(appErr.Code).To(Equal(apperrors.ErrCodeMissingPriceReference))
				Expect(gw.confirmCalls).To(Equal(0))
			})
		})

		Context("when the referenced reservation does not exist", func() {
			It("should reject before calling the gateway", func() {
				// Given
				missingID := int64(999)
				req := &paymentPkg.ConfirmPaymentRequest{
					PaymentKey:    "pk-order-8",
					OrderID:       "order-8",
					Amount:        50000,
					UserID:        "user-1",
					ReservationID: &missingID,
				}

				// When
				result, err := service.ConfirmPayment(ctx, req)

				// Then
				Expect(err).To(HaveOccurred())
				Expect(errors.Is(err, apperrors.ErrReservationNotFound)).To(BeTrue())
				Expect(result).To(BeNil())
				Expect(gw.confirmCalls).To(Equal(0))
			})
		})

		Context("when the payload carries an unexpected status", func() {
			It("should record the payment as aborted", func() {
				// Given
				req := newBookingRequest("order-9", 50000)
				payload := confirmedPayload("order-9", 50000)
				payload.Status = "SOMETHING_NEW"
				gw.confirmResponse = payload

				// When
				result, err := service.ConfirmPayment(ctx, req)

				// Then
				Expect(err).ToNot(HaveOccurred())
				Expect(result.Status).To(Equal(string(paymentmodel.StatusAborted)))
			})
		})
	})
})
