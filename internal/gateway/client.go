package gateway

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	apperrors "github.com/ijbmsm/charzing-payments/internal"
	gatewaytypes "github.com/ijbmsm/charzing-payments/internal/core/datamodel/paymentgateway"
)

// Client is a stateless HTTP adapter for the external payment processor.
// It performs no local retry: only the coordinators know whether a retry is
// idempotency-safe.
type Client struct {
	baseURL    string
	secretKey  string
	httpClient *http.Client
	logger     *slog.Logger
}

type Config struct {
	BaseURL   string
	SecretKey string
	Timeout   time.Duration
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		baseURL:   cfg.BaseURL,
		secretKey: cfg.SecretKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// Confirm finalizes an authorized charge with the gateway.
func (c *Client) Confirm(ctx context.Context, paymentKey, orderID string, amount int64) (*gatewaytypes.Payment, error) {
	req := &gatewaytypes.ConfirmRequest{
		PaymentKey: paymentKey,
		OrderID:    orderID,
		Amount:     amount,
	}
	if err := req.Validate(); err != nil {
		c.logger.Error("confirm request validation failed", "error", err)
		return nil, apperrors.NewValidationError(err.Error(), apperrors.ErrCodeValidationFailed)
	}

	c.logger.Info("sending gateway confirm",
		"payment_key", paymentKey,
		"order_id", orderID,
		"amount", amount)

	return c.do(ctx, http.MethodPost, "/payments/confirm", req, nil, true)
}

// Cancel reverses all or part of a confirmed payment. The idempotency key is
// forwarded verbatim so the gateway can deduplicate retried attempts.
func (c *Client) Cancel(ctx context.Context, paymentKey, reason string, amount *int64, idempotencyKey string) (*gatewaytypes.Payment, error) {
	req := &gatewaytypes.CancelRequest{
		CancelReason: reason,
		CancelAmount: amount,
	}
	if err := req.Validate(); err != nil {
		c.logger.Error("cancel request validation failed", "error", err)
		return nil, apperrors.NewValidationError(err.Error(), apperrors.ErrCodeValidationFailed)
	}

	c.logger.Info("sending gateway cancel",
		"payment_key", paymentKey,
		"idempotency_key", idempotencyKey)

	headers := map[string]string{"Idempotency-Key": idempotencyKey}
	path := fmt.Sprintf("/payments/%s/cancel", url.PathEscape(paymentKey))
	return c.do(ctx, http.MethodPost, path, req, headers, true)
}

// Fetch reads the authoritative payment state from the gateway. It is the
// basis of the reconciliation path.
func (c *Client) Fetch(ctx context.Context, paymentKey string) (*gatewaytypes.Payment, error) {
	path := fmt.Sprintf("/payments/%s", url.PathEscape(paymentKey))
	return c.do(ctx, http.MethodGet, path, nil, nil, false)
}

// FetchByOrderID reads the authoritative payment state by the merchant's
// order id. It is the only lookup that works when the local record was never
// written and no payment key survives.
func (c *Client) FetchByOrderID(ctx context.Context, orderID string) (*gatewaytypes.Payment, error) {
	path := fmt.Sprintf("/payments/orders/%s", url.PathEscape(orderID))
	return c.do(ctx, http.MethodGet, path, nil, nil, false)
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}, headers map[string]string, mutating bool) (*gatewaytypes.Payment, error) {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to marshal gateway request", err)
		}
		reqBody = bytes.NewBuffer(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to create gateway request", err)
	}

	httpReq.Header.Set("Authorization", c.authorization())
	httpReq.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		// A transport failure on a mutating call has an unknown effect on the
		// gateway side; the caller must reconcile, not assume failure.
		if mutating {
			c.logger.Error("gateway call outcome unknown", "method", method, "path", path, "error", err)
			return nil, apperrors.NewUnknownOutcomeError("gateway call did not complete", err)
		}
		c.logger.Error("gateway request failed", "method", method, "path", path, "error", err)
		return nil, apperrors.NewInternalError("gateway request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		if mutating {
			return nil, apperrors.NewUnknownOutcomeError("gateway response could not be read", err)
		}
		return nil, apperrors.NewInternalError("failed to read gateway response", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errBody gatewaytypes.ErrorBody
		if err := json.Unmarshal(respBody, &errBody); err != nil || errBody.Code == "" {
			errBody = gatewaytypes.ErrorBody{
				Code:    string(apperrors.ErrCodeGatewayRejected),
				Message: fmt.Sprintf("gateway returned status %d", resp.StatusCode),
			}
		}
		c.logger.Error("gateway returned error",
			"status", resp.StatusCode,
			"code", errBody.Code,
			"message", errBody.Message)
		return nil, apperrors.NewGatewayError(errBody.Code, errBody.Message)
	}

	var payment gatewaytypes.Payment
	if err := json.Unmarshal(respBody, &payment); err != nil {
		return nil, apperrors.NewInternalError("failed to decode gateway response", err)
	}

	return &payment, nil
}

func (c *Client) authorization() string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(c.secretKey+":"))
}

// IsUnknownOutcome reports whether an error represents a gateway call whose
// effect could not be determined.
func IsUnknownOutcome(err error) bool {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.Type == apperrors.ErrorTypeUnknownOutcome
	}
	return false
}
