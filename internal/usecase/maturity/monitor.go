package maturity

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/simaogato/disburse-backend/internal/domain"
	"github.com/simaogato/disburse-backend/internal/ledger"
)

// Gauges exported by the monitor after each scan
type Gauges struct {
	Pending prometheus.Gauge // matured grants waiting for disburse
	Amount  prometheus.Gauge // value reserved by those grants
}

// Monitor runs ScanMatured on a cron schedule and keeps the latest result
type Monitor struct {
	Store *ledger.Store
	Now   func() time.Time

	gauges   Gauges
	schedule string
	cron     *cron.Cron
	logger   *zap.Logger

	mu      sync.RWMutex
	pending []domain.DisbursementTask
}

// NewMonitor creates a monitor for the given cron schedule ("@every 30s", "*/5 * * * *").
// Nil gauges are skipped.
func NewMonitor(store *ledger.Store, schedule string, gauges Gauges, logger *zap.Logger) (*Monitor, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("invalid maturity scan schedule %q: %w", schedule, err)
	}

	cronLogger := cron.PrintfLogger(zap.NewStdLog(logger.Named("cron")))
	return &Monitor{
		Store:    store,
		Now:      time.Now,
		gauges:   gauges,
		schedule: schedule,
		cron:     cron.New(cron.WithChain(cron.Recover(cronLogger))),
		logger:   logger,
	}, nil
}

// Scan runs one maturity scan, publishes the gauges and stores the result
func (m *Monitor) Scan(ctx context.Context) ([]domain.DisbursementTask, error) {
	tasks, err := ScanMatured(ctx, m.Store, m.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to scan matured grants: %w", err)
	}

	total := decimal.Zero
	for _, task := range tasks {
		total = total.Add(task.Amount)
		m.logger.Debug("grant ready to disburse",
			zap.String("owner", task.TrustOwner.String()),
			zap.Uint64("beneficiary_id", task.BeneficiaryID),
			zap.String("disbursement_id", task.DisbursementID.String()),
			zap.String("amount", task.Amount.String()),
			zap.Duration("matured_for", task.MaturedFor),
		)
	}

	if m.gauges.Pending != nil {
		m.gauges.Pending.Set(float64(len(tasks)))
	}
	if m.gauges.Amount != nil {
		m.gauges.Amount.Set(total.InexactFloat64())
	}

	m.mu.Lock()
	m.pending = tasks
	m.mu.Unlock()

	if len(tasks) > 0 {
		m.logger.Info("matured grants awaiting disbursement",
			zap.Int("count", len(tasks)),
			zap.String("amount", total.String()),
		)
	}
	return tasks, nil
}

// Pending returns the result of the latest scan
func (m *Monitor) Pending() []domain.DisbursementTask {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]domain.DisbursementTask(nil), m.pending...)
}

// Start registers the scan job and starts the scheduler
func (m *Monitor) Start() error {
	_, err := m.cron.AddFunc(m.schedule, func() {
		if _, err := m.Scan(context.Background()); err != nil {
			m.logger.Error("maturity scan failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule maturity scan: %w", err)
	}

	m.logger.Info("scheduled maturity scan", zap.String("schedule", m.schedule))
	m.cron.Start()
	return nil
}

// Stop stops the scheduler; the returned context is done once a running scan finishes
func (m *Monitor) Stop() context.Context {
	return m.cron.Stop()
}
