package payment_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"

	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	apperrors "github.com/ijbmsm/charzing-payments/internal"
	paymentPkg "github.com/ijbmsm/charzing-payments/internal/payment"
)

type mockPaymentService struct {
	confirmResult *paymentPkg.ConfirmPaymentResult
	confirmError  error
	cancelResult  *paymentPkg.CancelPaymentResult
	cancelError   error
	view          *paymentPkg.View
	getError      error

	lastCancelPaymentID int64
}

func (m *mockPaymentService) ConfirmPayment(ctx context.Context, req *paymentPkg.ConfirmPaymentRequest) (*paymentPkg.ConfirmPaymentResult, error) {
	if m.confirmError != nil {
		return nil, m.confirmError
	}
	return m.confirmResult, nil
}

func (m *mockPaymentService) CancelPayment(ctx context.Context, paymentID int64, req *paymentPkg.CancelPaymentRequest) (*paymentPkg.CancelPaymentResult, error) {
	m.lastCancelPaymentID = paymentID
	if m.cancelError != nil {
		return nil, m.cancelError
	}
	return m.cancelResult, nil
}

func (m *mockPaymentService) GetPayment(ctx context.Context, paymentID int64) (*paymentPkg.View, error) {
	if m.getError != nil {
		return nil, m.getError
	}
	return m.view, nil
}

var _ = Describe("Handler", func() {
	var (
		handler *paymentPkg.Handler
		service *mockPaymentService
		router  *chi.Mux
	)

	BeforeEach(func() {
		service = &mockPaymentService{}
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		handler = paymentPkg.NewHandler(service, logger)

		router = chi.NewRouter()
		router.Post("/api/v1/payments/confirm", handler.ConfirmPayment)
		router.Post("/api/v1/payments/{paymentID}/cancel", handler.CancelPayment)
		router.Get("/api/v1/payments/{paymentID}", handler.GetPayment)
	})

	Describe("ConfirmPayment", func() {
		Context("when the confirm succeeds", func() {
			It("should return 200 with the confirm result", func() {
				// Given
				resID := int64(42)
				service.confirmResult = &paymentPkg.ConfirmPaymentResult{
					PaymentID:     1,
					ReservationID: &resID,
					Status:        "DONE",
				}
				body, _ := json.Marshal(map[string]interface{}{
					"payment_key":    "pk-1",
					"order_id":       "order-1",
					"amount":         50000,
					"user_id":        "user-1",
					"reservation_id": 42,
				})

				// When
				req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/confirm", bytes.NewReader(body))
				rec := httptest.NewRecorder()
				router.ServeHTTP(rec, req)

				// Then
				Expect(rec.Code).To(Equal(http.StatusOK))

				var result paymentPkg.ConfirmPaymentResult
				Expect(json.Unmarshal(rec.Body.Bytes(), &result)).To(Succeed())
				Expect(result.PaymentID).To(Equal(int64(1)))
				Expect(result.Status).To(Equal("DONE"))
			})
		})

		Context("when the body is not valid JSON", func() {
			It("should return 400 with the error envelope", func() {
				// When
				req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/confirm", bytes.NewReader([]byte("{not json")))
				rec := httptest.NewRecorder()
				router.ServeHTTP(rec, req)

				// Then
				Expect(rec.Code).To(Equal(http.StatusBadRequest))

				var envelope map[string]map[string]interface{}
				Expect(json.Unmarshal(rec.Body.Bytes(), &envelope)).To(Succeed())
				Expect(envelope["error"]["type"]).To(Equal("VALIDATION_ERROR"))
			})
		})

		Context("when the amount does not match", func() {
			It("should map the service error to 400", func() {
				// Given
				service.confirmError = apperrors.ErrAmountMismatch
				body, _ := json.Marshal(map[string]interface{}{
					"payment_key": "pk-1",
					"order_id":    "order-1",
					"amount":      99999,
					"user_id":     "user-1",
				})

				// When
				req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/confirm", bytes.NewReader(body))
				rec := httptest.NewRecorder()
				router.ServeHTTP(rec, req)

				// Then
				Expect(rec.Code).To(Equal(http.StatusBadRequest))

				var envelope map[string]map[string]interface{}
				Expect(json.Unmarshal(rec.Body.Bytes(), &envelope)).To(Succeed())
				Expect(envelope["error"]["code"]).To(Equal("AMOUNT_MISMATCH"))
			})
		})
	})

	Describe("CancelPayment", func() {
		Context("when the cancel succeeds", func() {
			It("should pass the path payment id to the service", func() {
				// Given
				service.cancelResult = &paymentPkg.CancelPaymentResult{
					Status:        "PARTIAL_CANCELED",
					BalanceAmount: 30000,
					CancelAmount:  20000,
				}
				body, _ := json.Marshal(map[string]interface{}{
					"cancel_reason": "일정 변경",
					"cancel_amount": 20000,
				})

				// When
				req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/7/cancel", bytes.NewReader(body))
				rec := httptest.NewRecorder()
				router.ServeHTTP(rec, req)

				// Then
				Expect(rec.Code).To(Equal(http.StatusOK))
				Expect(service.lastCancelPaymentID).To(Equal(int64(7)))

				var result paymentPkg.CancelPaymentResult
				Expect(json.Unmarshal(rec.Body.Bytes(), &result)).To(Succeed())
				Expect(result.BalanceAmount).To(Equal(int64(30000)))
			})
		})

		Context("when a cancel is already in progress", func() {
			It("should return 409", func() {
				// Given
				service.cancelError = apperrors.ErrCancelInProgress
				body, _ := json.Marshal(map[string]interface{}{"cancel_reason": "이중 요청"})

				// When
				req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/7/cancel", bytes.NewReader(body))
				rec := httptest.NewRecorder()
				router.ServeHTTP(rec, req)

				// Then
				Expect(rec.Code).To(Equal(http.StatusConflict))
			})
		})

		Context("when the path id is not a number", func() {
			It("should return 400 without reaching the service", func() {
				// When
				body, _ := json.Marshal(map[string]interface{}{"cancel_reason": "환불"})
				req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/abc/cancel", bytes.NewReader(body))
				rec := httptest.NewRecorder()
				router.ServeHTTP(rec, req)

				// Then
				Expect(rec.Code).To(Equal(http.StatusBadRequest))
				Expect(service.lastCancelPaymentID).To(Equal(int64(0)))
			})
		})
	})

	Describe("GetPayment", func() {
		Context("when the payment exists", func() {
			It("should return the read model", func() {
				// Given
				service.view = &paymentPkg.View{
					PaymentID: 7,
					OrderID:   "order-1",
					Status:    "DONE",
				}

				// When
				req := httptest.NewRequest(http.MethodGet, "/api/v1/payments/7", nil)
				rec := httptest.NewRecorder()
				router.ServeHTTP(rec, req)

				// Then
				Expect(rec.Code).To(Equal(http.StatusOK))

				var view paymentPkg.View
				Expect(json.Unmarshal(rec.Body.Bytes(), &view)).To(Succeed())
				Expect(view.OrderID).To(Equal("order-1"))
			})
		})

		Context("when the payment does not exist", func() {
			It("should return 404", func() {
				// Given
				service.getError = apperrors.ErrPaymentNotFound

				// When
				req := httptest.NewRequest(http.MethodGet, "/api/v1/payments/999", nil)
				rec := httptest.NewRecorder()
				router.ServeHTTP(rec, req)

				// Then
				Expect(rec.Code).To(Equal(http.StatusNotFound))
			})
		})
	})
})
