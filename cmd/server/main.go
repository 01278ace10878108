package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	grpclib "google.golang.org/grpc"

	grpcadapter "github.com/simaogato/disburse-backend/internal/adapter/grpc"
	"github.com/simaogato/disburse-backend/internal/adapter/httpapi"
	"github.com/simaogato/disburse-backend/internal/adapter/metrics"
	"github.com/simaogato/disburse-backend/internal/adapter/repository/memory"
	"github.com/simaogato/disburse-backend/internal/adapter/repository/postgres"
	"github.com/simaogato/disburse-backend/internal/adapter/wallet"
	"github.com/simaogato/disburse-backend/internal/config"
	"github.com/simaogato/disburse-backend/internal/domain"
	"github.com/simaogato/disburse-backend/internal/ledger"
	"github.com/simaogato/disburse-backend/internal/logging"
	"github.com/simaogato/disburse-backend/internal/usecase/disbursement"
	"github.com/simaogato/disburse-backend/internal/usecase/journal"
	"github.com/simaogato/disburse-backend/internal/usecase/maturity"
	"github.com/simaogato/disburse-backend/internal/usecase/registry"
	"github.com/simaogato/disburse-backend/internal/usecase/report"
	"github.com/simaogato/disburse-backend/internal/usecase/seeder"
	"github.com/simaogato/disburse-backend/internal/usecase/trust"
)

const (
	ledgerAccount   = domain.Address("ledger")
	dbConnectWait   = 10 * time.Second
	shutdownTimeout = 10 * time.Second
)

func main() {
	cfg, err := config.LoadConfig(".env")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, _, err := logging.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	for _, warning := range cfg.Warnings {
		logger.Warn("config fallback", zap.String("detail", warning))
	}

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx := context.Background()
	m := metrics.New()

	// 1. Setup the journal (Postgres when configured, memory otherwise)
	journalRepo, closeJournal, err := openJournal(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return err
	}
	defer closeJournal()

	// 2. Initialize the ledger and the external funds it settles against
	store := ledger.NewStore()
	funds := wallet.New(ledgerAccount)
	recorder := journal.NewRecorder(journalRepo, logger.Named("journal"))

	// 3. Initialize Services (Use Cases)
	trustService := trust.NewTrustService(store, funds, recorder, logger.Named("trust"))
	disbursementService := disbursement.NewDisbursementService(store, funds, recorder, logger.Named("disbursement"))
	reportService := report.NewReportService(store, journalRepo)
	registryService, err := registry.NewRegistryService(cfg.ContractName, domain.Address(cfg.AdminAddress), logger.Named("registry"))
	if err != nil {
		return err
	}
	if cfg.AdminAddress == "" {
		logger.Warn("ADMIN_ADDRESS not set, contract name is fixed")
	}

	// Initialize Account Seeder and run it
	accounts, err := seeder.ParseDevAccounts(cfg.DevAccounts)
	if err != nil {
		return fmt.Errorf("invalid DEV_ACCOUNTS: %w", err)
	}
	if err := seeder.NewAccountSeeder(funds, accounts, logger.Named("seeder")).Seed(ctx); err != nil {
		return err
	}

	// 4. Start the maturity monitor
	monitor, err := maturity.NewMonitor(store, cfg.MaturityScanSchedule, maturity.Gauges{
		Pending: m.MaturedGrants,
		Amount:  m.MaturedAmount,
	}, logger.Named("maturity"))
	if err != nil {
		return err
	}
	if err := monitor.Start(); err != nil {
		return err
	}

	// 5. Start gRPC Server
	grpcServer := grpclib.NewServer(
		grpclib.ChainUnaryInterceptor(
			grpcadapter.MetricsInterceptor(m),
			grpcadapter.AuthInterceptor(cfg.APIToken),
			grpcadapter.CallerInterceptor(),
			grpcadapter.RateLimitInterceptor(grpcadapter.NewCallerLimiter(cfg.RateLimitPerSecond, cfg.RateLimitBurst, 0), m),
			grpcadapter.LoggingInterceptor(logger.Named("grpc")),
		),
	)

	grpcAdapter := grpcadapter.NewServer(trustService, disbursementService, registryService, reportService, funds)
	grpcadapter.RegisterDisburseServiceServer(grpcServer, grpcAdapter)

	lis, err := net.Listen("tcp", cfg.GRPCPort)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.GRPCPort, err)
	}

	go func() {
		logger.Info("gRPC server listening", zap.String("addr", cfg.GRPCPort))
		if err := grpcServer.Serve(lis); err != nil {
			logger.Fatal("failed to serve gRPC server", zap.Error(err))
		}
	}()

	// 6. Start the ops HTTP server
	httpServer := &http.Server{
		Addr: cfg.HTTPPort,
		Handler: httpapi.NewRouter(httpapi.Dependencies{
			Health: func(ctx context.Context) error {
				return store.Do(ctx, func(context.Context) error { return store.Audit() })
			},
			Reports:  reportService,
			Pending:  monitor.Pending,
			Gatherer: m.Registry,
			Logger:   logger.Named("http"),
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("HTTP server listening", zap.String("addr", cfg.HTTPPort))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("failed to serve HTTP server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	waitForShutdown(logger, grpcServer, httpServer, monitor)
	return nil
}

// openJournal connects to Postgres when url is set, retrying until dbConnectWait elapses
func openJournal(ctx context.Context, url string, logger *zap.Logger) (domain.JournalRepository, func(), error) {
	if url == "" {
		logger.Info("DATABASE_URL not set, journal kept in memory")
		return memory.NewJournalRepository(), func() {}, nil
	}

	deadline := time.Now().Add(dbConnectWait)
	for {
		db, err := postgres.NewDB(ctx, url)
		if err == nil {
			if err := db.EnsureSchema(ctx); err != nil {
				_ = db.Close()
				return nil, nil, err
			}
			logger.Info("journal persisted to Postgres")
			return postgres.NewJournalRepository(db), func() { _ = db.Close() }, nil
		}
		if time.Now().After(deadline) {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}

		logger.Warn("database not ready, retrying", zap.Error(err))
		time.Sleep(time.Second)
	}
}

// waitForShutdown waits for SIGTERM or SIGINT and gracefully shuts down the servers
func waitForShutdown(logger *zap.Logger, grpcServer *grpclib.Server, httpServer *http.Server, monitor *maturity.Monitor) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	sig := <-sigChan
	logger.Info("shutting down gracefully", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("HTTP server shutdown failed", zap.Error(err))
	}

	grpcServer.GracefulStop()
	logger.Info("gRPC server stopped")

	select {
	case <-monitor.Stop().Done():
	case <-ctx.Done():
		logger.Warn("maturity scan still running at shutdown")
	}
}
