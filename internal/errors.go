package internal

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

type ErrorType string

const (
	ErrorTypeValidation     ErrorType = "VALIDATION_ERROR"
	ErrorTypeNotFound       ErrorType = "NOT_FOUND"
	ErrorTypeConflict       ErrorType = "CONFLICT"
	ErrorTypeGateway        ErrorType = "GATEWAY_ERROR"
	ErrorTypePersistence    ErrorType = "PERSISTENCE_ERROR"
	ErrorTypeUnknownOutcome ErrorType = "UNKNOWN_OUTCOME"
	ErrorTypeInternal       ErrorType = "INTERNAL_ERROR"
)

type ErrorCode string

const (
	ErrCodeValidationFailed      ErrorCode = "VALIDATION_FAILED"
	ErrCodeInvalidAmount         ErrorCode = "INVALID_AMOUNT"
	ErrCodeAmountMismatch        ErrorCode = "AMOUNT_MISMATCH"
	ErrCodeMissingPriceReference ErrorCode = "MISSING_PRICE_REFERENCE"

	ErrCodePaymentNotFound     ErrorCode = "PAYMENT_NOT_FOUND"
	ErrCodeReservationNotFound ErrorCode = "RESERVATION_NOT_FOUND"

	ErrCodeNotCancelable        ErrorCode = "NOT_CANCELABLE"
	ErrCodeCancelInProgress     ErrorCode = "CANCEL_ALREADY_IN_PROGRESS"
	ErrCodeCancelExceedsBalance ErrorCode = "CANCEL_AMOUNT_EXCEEDS_BALANCE"
	ErrCodePartialNotAllowed    ErrorCode = "PARTIAL_CANCEL_NOT_ALLOWED"

	ErrCodeGatewayRejected ErrorCode = "GATEWAY_REJECTED"
	ErrCodeGatewayTimeout  ErrorCode = "GATEWAY_TIMEOUT"

	ErrCodePersistenceFailed ErrorCode = "PERSISTENCE_FAILED"
)

type AppError struct {
	Type       ErrorType   `json:"type"`
	Code       ErrorCode   `json:"code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
	StatusCode int         `json:"-"`
	Cause      error       `json:"-"`
}

func (e *AppError) Error() string {
	if e.Details != nil {
		if validationErrors, ok := e.Details.(ValidationErrors); ok && len(validationErrors.Errors) > 0 {
			return validationErrors.Errors[0].Message
		}
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) GetDetailedMessage() string {
	if e.Details != nil {
		if validationErrors, ok := e.Details.(ValidationErrors); ok {
			if len(validationErrors.Errors) == 1 {
				return validationErrors.Errors[0].Message
			} else if len(validationErrors.Errors) > 1 {
				messages := make([]string, len(validationErrors.Errors))
				for i, err := range validationErrors.Errors {
					messages[i] = err.Message
				}
				return strings.Join(messages, "; ")
			}
		}
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

func (e *AppError) WithDetails(details interface{}) *AppError {
	e.Details = details
	return e
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func NewValidationError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func NewValidationFieldError(field, message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       ErrCodeValidationFailed,
		Message:    "Validation failed",
		StatusCode: http.StatusBadRequest,
		Details: ValidationErrors{
			Errors: []ValidationError{
				{Field: field, Message: message, Code: string(code)},
			},
		},
	}
}

func NewNotFoundError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusNotFound,
	}
}

func NewConflictError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeConflict,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

// NewGatewayError preserves the gateway's machine-readable code and message
// verbatim so the caller can decide whether a retry is safe.
func NewGatewayError(code, message string) *AppError {
	if code == "" {
		code = string(ErrCodeGatewayRejected)
	}
	return &AppError{
		Type:       ErrorTypeGateway,
		Code:       ErrorCode(code),
		Message:    message,
		StatusCode: http.StatusBadGateway,
	}
}

// NewUnknownOutcomeError marks a gateway call whose effect could not be
// determined (timeout, dropped connection). It must never be collapsed into
// either success or plain failure; reconciliation resolves it.
func NewUnknownOutcomeError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeUnknownOutcome,
		Code:       ErrCodeGatewayTimeout,
		Message:    message,
		StatusCode: http.StatusGatewayTimeout,
		Cause:      cause,
	}
}

func NewPersistenceError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypePersistence,
		Code:       ErrCodePersistenceFailed,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

func NewInternalError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

var (
	ErrPaymentNotFound     = NewNotFoundError("Payment not found", ErrCodePaymentNotFound)
	ErrReservationNotFound = NewNotFoundError("Reservation not found", ErrCodeReservationNotFound)

	ErrNotCancelable        = NewConflictError("payment is not in a cancelable status", ErrCodeNotCancelable)
	ErrCancelInProgress     = NewConflictError("a cancellation for this payment is already in progress", ErrCodeCancelInProgress)
	ErrCancelExceedsBalance = NewConflictError("cancel amount exceeds remaining balance", ErrCodeCancelExceedsBalance)
	ErrPartialNotAllowed    = NewConflictError("partial cancellation is not allowed for this payment", ErrCodePartialNotAllowed)

	ErrAmountMismatch = NewValidationError("amount does not match the expected order amount", ErrCodeAmountMismatch)
)

func IsAppError(err error) (*AppError, bool) {
	if appErr, ok := err.(*AppError); ok {
		return appErr, true
	}
	return nil, false
}

type Response struct {
	Error *AppError `json:"error"`
}

func (e *AppError) ToHTTPResponse() (int, interface{}) {
	return e.StatusCode, Response{Error: e}
}

func (e *AppError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type    ErrorType   `json:"type"`
		Code    ErrorCode   `json:"code"`
		Message string      `json:"message"`
		Details interface{} `json:"details,omitempty"`
	}{
		Type:    e.Type,
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	})
}
