// Package httpapi serves the operational HTTP endpoints: health, metrics and
// read-only ledger reports.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/simaogato/disburse-backend/internal/domain"
	"github.com/simaogato/disburse-backend/internal/usecase/report"
)

// Dependencies wires the router to the ledger
type Dependencies struct {
	Health   func(ctx context.Context) error // nil error means healthy
	Reports  *report.ReportService
	Pending  func() []domain.DisbursementTask
	Gatherer prometheus.Gatherer
	Logger   *zap.Logger
}

type handlers struct {
	deps Dependencies
}

// NewRouter creates the ops router
func NewRouter(deps Dependencies) http.Handler {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	h := &handlers{deps: deps}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(deps.Logger))
	r.Use(middleware.Timeout(15 * time.Second))

	r.Get("/healthz", h.health)
	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/v1", func(r chi.Router) {
		r.Get("/totals", h.totals)
		r.Get("/trusts/{owner}", h.trustSummary)
		r.Get("/journal", h.journal)
		r.Get("/maturity", h.maturity)
	})

	return r
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	if h.deps.Health != nil {
		if err := h.deps.Health(r.Context()); err != nil {
			h.deps.Logger.Error("health check failed", zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handlers) totals(w http.ResponseWriter, r *http.Request) {
	totals, err := h.deps.Reports.GetLedgerTotals(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, totalsResponse{
		Trusts:    totals.Trusts,
		Balance:   totals.Balance.String(),
		Reserved:  totals.Reserved.String(),
		Held:      totals.Held.String(),
		Disbursed: totals.Disbursed.String(),
	})
}

func (h *handlers) trustSummary(w http.ResponseWriter, r *http.Request) {
	owner, err := domain.NewAddress(chi.URLParam(r, "owner"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	summary, err := h.deps.Reports.GetTrustSummary(r.Context(), owner)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, summaryResponse{
		Owner:         summary.Owner.String(),
		Balance:       summary.Balance.String(),
		Reserved:      summary.Reserved.String(),
		ActiveGrants:  summary.ActiveGrants,
		MaturedGrants: summary.MaturedGrants,
		Contributed:   summary.Contributed.String(),
		Withdrawn:     summary.Withdrawn.String(),
		Disbursed:     summary.Disbursed.String(),
	})
}

func (h *handlers) journal(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	limit, err := intParam(query.Get("limit"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	offset, err := intParam(query.Get("offset"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	var owner *domain.Address
	if raw := query.Get("owner"); raw != "" {
		parsed, err := domain.NewAddress(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		owner = &parsed
	}

	page, err := h.deps.Reports.ListJournal(r.Context(), limit, offset, owner)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	resp := journalResponse{Total: page.Total, Transactions: make([]transactionResponse, 0, len(page.Transactions))}
	for _, tx := range page.Transactions {
		resp.Transactions = append(resp.Transactions, toTransactionResponse(tx))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handlers) maturity(w http.ResponseWriter, _ *http.Request) {
	tasks := []domain.DisbursementTask{}
	if h.deps.Pending != nil {
		tasks = h.deps.Pending()
	}

	resp := make([]taskResponse, 0, len(tasks))
	for _, task := range tasks {
		resp = append(resp, taskResponse{
			BeneficiaryID:  task.BeneficiaryID,
			DisbursementID: task.DisbursementID.String(),
			TrustOwner:     task.TrustOwner.String(),
			Address:        task.Address.String(),
			Amount:         task.Amount.String(),
			MaturedFor:     task.MaturedFor.String(),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func intParam(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// requestLogger logs each request through zap
func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			logger.Debug("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}
