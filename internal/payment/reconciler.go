package payment

import (
	"context"
	"errors"
	"log/slog"

	apperrors "github.com/ijbmsm/charzing-payments/internal"
	paymentmodel "github.com/ijbmsm/charzing-payments/internal/core/datamodel/payment"
)

// Reconciler repairs local state from the gateway's canonical view. It is the
// recovery path for the two dangerous windows: a persistence failure after a
// successful gateway call, and a gateway call with an unknown outcome.
type Reconciler struct {
	store   StoreAPI
	gateway GatewayAPI
	logger  *slog.Logger
}

func NewReconciler(store StoreAPI, gw GatewayAPI, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		store:   store,
		gateway: gw,
		logger:  logger,
	}
}

// ReconcilePayment re-fetches the payment by reference and replays the
// mapping and persistence steps. Missing cancel rows are appended, balance
// and status are brought in line with the gateway, and a stale cancel lock is
// released whether or not the in-doubt cancel turned out to have applied.
// When no local record exists at all, the record itself is rebuilt from the
// gateway's canonical state.
func (r *Reconciler) ReconcilePayment(ctx context.Context, orderID string) error {
	p, err := r.store.GetByOrderID(ctx, orderID)
	if err != nil {
		if errors.Is(err, apperrors.ErrPaymentNotFound) {
			return r.rebuildFromGateway(ctx, orderID)
		}
		r.logger.Error("failed to load payment for reconcile", "error", err, "order_id", orderID)
		return err
	}

	gwPayment, err := r.gateway.Fetch(ctx, p.PaymentKey)
	if err != nil {
		r.logger.Error("failed to fetch gateway state", "error", err, "payment_key", p.PaymentKey)
		return err
	}

	mapped := MapCancels(gwPayment.Cancels)
	var missing []paymentmodel.Cancel
	for _, c := range mapped {
		if !p.HasCancelTransaction(c.TransactionKey) {
			c.PaymentID = p.ID
			missing = append(missing, c)
		}
	}

	balance := gwPayment.BalanceAmount
	status := MapStatus(gwPayment.Status)

	if len(missing) == 0 && p.BalanceAmount == balance && p.Status == status && !p.CancelInProgress {
		r.logger.Info("payment already consistent with gateway", "order_id", orderID, "payment_id", p.ID)
		return nil
	}

	// ApplyCancelResult also clears the lock, settling any in-doubt cancel.
	if err := r.store.ApplyCancelResult(ctx, p, missing, balance, status); err != nil {
		r.logger.Error("failed to apply reconciled state", "error", err, "payment_id", p.ID)
		return apperrors.NewPersistenceError("failed to apply reconciled state", err)
	}

	r.logger.Info("payment reconciled with gateway",
		"order_id", orderID,
		"payment_id", p.ID,
		"appended_cancels", len(missing),
		"balance_amount", balance,
		"status", status)

	return nil
}

// rebuildFromGateway covers a confirm that succeeded at the gateway but whose
// local write was rolled back: no record exists, so the payment is looked up
// by order id, mapped, and persisted with its full cancel history. Once the
// record exists, a retried confirm short-circuits on it as a duplicate.
func (r *Reconciler) rebuildFromGateway(ctx context.Context, orderID string) error {
	gwPayment, err := r.gateway.FetchByOrderID(ctx, orderID)
	if err != nil {
		r.logger.Error("failed to fetch gateway state by order id", "error", err, "order_id", orderID)
		return err
	}

	status := MapStatus(gwPayment.Status)
	if !settledOrLater(status) {
		// The confirm never went through on the gateway side either; there is
		// no charge to account for locally.
		r.logger.Info("gateway holds no settled charge for order, nothing to rebuild",
			"order_id", orderID,
			"gateway_status", gwPayment.Status)
		return apperrors.ErrPaymentNotFound
	}

	p := ToPayment(gwPayment, MapContext{})
	if err := r.store.Create(ctx, p); err != nil {
		r.logger.Error("failed to rebuild payment record", "error", err, "order_id", orderID)
		return apperrors.NewPersistenceError("failed to rebuild payment record", err)
	}

	// The gateway payload carries no local identifiers, so the booking link
	// and user must be restored once the booking side is identified.
	r.logger.Warn("payment record rebuilt from gateway state without a booking link",
		"order_id", orderID,
		"payment_key", p.PaymentKey,
		"status", p.Status,
		"balance_amount", p.BalanceAmount,
		"cancel_count", len(p.Cancels))
	return nil
}

// settledOrLater reports whether a gateway status represents money the
// confirm flow would have recorded: a settled charge or a virtual-account
// deposit still pending.
func settledOrLater(status paymentmodel.Status) bool {
	return confirmedOrLater(status) || status == paymentmodel.StatusWaitingForDeposit
}
