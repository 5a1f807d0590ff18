package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ijbmsm/charzing-payments/internal"
	"github.com/ijbmsm/charzing-payments/internal/core/events"
	"github.com/ijbmsm/charzing-payments/internal/gateway"
	"github.com/ijbmsm/charzing-payments/internal/notification"
	"github.com/ijbmsm/charzing-payments/internal/payment"
	paymentstore "github.com/ijbmsm/charzing-payments/internal/payment/postgres"
	reservationstore "github.com/ijbmsm/charzing-payments/internal/reservation/postgres"
	"github.com/ijbmsm/charzing-payments/internal/transport/rest"
	"github.com/ijbmsm/charzing-payments/internal/transport/swagger"
	"github.com/ijbmsm/charzing-payments/pkg/logger"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle payment API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config         *internal.Config
	DB             *sqlx.DB
	GormDB         *gorm.DB
	Router         *chi.Mux
	PaymentHandler *payment.Handler
	Logger         *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	if err := swagger.ValidateSpec(context.Background(), "./api/openapi.yml"); err != nil {
		deps.Logger.Error("openapi spec invalid", "error", err)
		os.Exit(1)
	}

	rest.RegisterAllRoutes(deps.Router, deps.DB.DB, deps.PaymentHandler, deps.Logger)

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	deps.Logger.Info("starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:         addr,
		Handler:      deps.Router,
		ReadTimeout:  deps.Config.Server.ReadTimeout,
		WriteTimeout: deps.Config.Server.WriteTimeout,
		IdleTimeout:  deps.Config.Server.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		deps.Logger.Info("received signal, shutting down", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			deps.Logger.Error("server shutdown error", "error", err)
		}
		if err := deps.DB.Close(); err != nil {
			deps.Logger.Error("database close error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			deps.Logger.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}

	deps.Logger.Info("server stopped")
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.Init(os.Getenv("APP_ENV"))
	log := logger.L()

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gormDB, err := gorm.Open(gormpostgres.New(gormpostgres.Config{Conn: db.DB}), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize orm: %w", err)
	}

	gatewayClient := gateway.NewClient(gateway.Config{
		BaseURL:   config.Gateway.BaseURL,
		SecretKey: config.Gateway.SecretKey,
		Timeout:   config.Gateway.Timeout,
	}, log)

	reservationRepo := reservationstore.NewReservationRepository(gormDB)
	paymentRepo := paymentstore.NewPaymentRepository(gormDB, reservationRepo)

	eventBus := events.NewEventBus(log)
	notifier := notification.NewEventHandler(notification.NewLogSender(log), log)
	notifier.RegisterEventHandlers(eventBus)

	prices := payment.NewStaticPriceCatalog()
	confirmService := payment.NewConfirmService(paymentRepo, gatewayClient, reservationRepo, prices, eventBus, log)
	cancelService := payment.NewCancelService(paymentRepo, gatewayClient, eventBus, log)
	paymentService := payment.NewService(confirmService, cancelService)
	paymentHandler := payment.NewHandler(paymentService, log)

	return &Dependencies{
		Config:         config,
		Logger:         log,
		DB:             db,
		GormDB:         gormDB,
		Router:         chi.NewRouter(),
		PaymentHandler: paymentHandler,
	}, nil
}

// initDB opens the pgx-backed pool shared by sqlx health checks and gorm.
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}
