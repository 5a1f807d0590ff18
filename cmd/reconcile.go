package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/ijbmsm/charzing-payments/internal"
	"github.com/ijbmsm/charzing-payments/internal/gateway"
	"github.com/ijbmsm/charzing-payments/internal/payment"
	paymentstore "github.com/ijbmsm/charzing-payments/internal/payment/postgres"
	reservationstore "github.com/ijbmsm/charzing-payments/internal/reservation/postgres"
	"github.com/ijbmsm/charzing-payments/pkg/logger"

	"github.com/spf13/cobra"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile [order-id]",
	Short: "Reconcile a payment with the gateway",
	Long: `Re-fetch a payment from the gateway by its order id and repair local
state: append missing cancel records, correct balance and status, and release
a stale cancel lock. When no local record exists at all, rebuild it from the
gateway's canonical state. Run this for payments flagged with an unknown
outcome or a persistence failure after a successful gateway call.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runReconcile(args[0])
	},
}

func runReconcile(orderID string) error {
	cfg, err := loadConfig(".")
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.L()

	db, err := initDB(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	gormDB, err := gorm.Open(gormpostgres.New(gormpostgres.Config{Conn: db.DB}), &gorm.Config{})
	if err != nil {
		return fmt.Errorf("failed to initialize orm: %w", err)
	}

	gatewayClient := gateway.NewClient(gateway.Config{
		BaseURL:   cfg.Gateway.BaseURL,
		SecretKey: cfg.Gateway.SecretKey,
		Timeout:   cfg.Gateway.Timeout,
	}, log)

	reservationRepo := reservationstore.NewReservationRepository(gormDB)
	paymentRepo := paymentstore.NewPaymentRepository(gormDB, reservationRepo)

	reconciler := payment.NewReconciler(paymentRepo, gatewayClient, log)

	ctx, cancel := internal.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := reconciler.ReconcilePayment(ctx, orderID); err != nil {
		return fmt.Errorf("reconcile order %s: %w", orderID, err)
	}

	log.Info("reconcile finished", "order_id", orderID)
	return nil
}
