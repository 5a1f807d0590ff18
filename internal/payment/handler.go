package payment

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"

	errors "github.com/ijbmsm/charzing-payments/internal"
	"github.com/ijbmsm/charzing-payments/internal/transport"
)

type Handler struct {
	transport.BaseHandler
	PaymentService ServiceAPI
	Logger         *slog.Logger
}

func NewHandler(paymentService ServiceAPI, logger *slog.Logger) *Handler {
	return &Handler{
		BaseHandler:    transport.BaseHandler{Logger: logger},
		PaymentService: paymentService,
		Logger:         logger,
	}
}

// ConfirmPayment handles POST /api/v1/payments/confirm
func (h *Handler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	var req ConfirmPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Error("ConfirmPayment: failed to parse request body", "error", err)
		h.HandleError(w, errors.NewValidationError("invalid request body", errors.ErrCodeValidationFailed))
		return
	}

	result, err := h.PaymentService.ConfirmPayment(r.Context(), &req)
	if err != nil {
		h.Logger.Error("ConfirmPayment: service error",
			"error", err,
			"order_id", req.OrderID,
			"payment_key", req.PaymentKey)
		h.HandleServiceError(w, err)
		return
	}

	h.Logger.Info("ConfirmPayment: payment confirmed",
		"payment_id", result.PaymentID,
		"order_id", req.OrderID)

	h.WriteJSON(w, http.StatusOK, result)
}

// CancelPayment handles POST /api/v1/payments/{paymentID}/cancel
func (h *Handler) CancelPayment(w http.ResponseWriter, r *http.Request) {
	paymentID, ok := h.paymentIDParam(w, r)
	if !ok {
		return
	}

	var req CancelPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Error("CancelPayment: failed to parse request body", "error", err, "payment_id", paymentID)
		h.HandleError(w, errors.NewValidationError("invalid request body", errors.ErrCodeValidationFailed))
		return
	}

	result, err := h.PaymentService.CancelPayment(r.Context(), paymentID, &req)
	if err != nil {
		h.Logger.Error("CancelPayment: service error", "error", err, "payment_id", paymentID)
		h.HandleServiceError(w, err)
		return
	}

	h.Logger.Info("CancelPayment: payment canceled",
		"payment_id", paymentID,
		"status", result.Status,
		"balance_amount", result.BalanceAmount)

	h.WriteJSON(w, http.StatusOK, result)
}

// GetPayment handles GET /api/v1/payments/{paymentID}
func (h *Handler) GetPayment(w http.ResponseWriter, r *http.Request) {
	paymentID, ok := h.paymentIDParam(w, r)
	if !ok {
		return
	}

	view, err := h.PaymentService.GetPayment(r.Context(), paymentID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, view)
}

func (h *Handler) paymentIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "paymentID")
	paymentID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || paymentID <= 0 {
		h.Logger.Error("invalid payment ID", "payment_id", raw)
		h.HandleError(w, errors.NewValidationError("invalid payment ID", errors.ErrCodeValidationFailed))
		return 0, false
	}
	return paymentID, true
}
