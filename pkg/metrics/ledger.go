package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// LedgerMetrics tracks reconciliation activity for /metrics.
type LedgerMetrics struct {
	payments    *prometheus.CounterVec
	returns     prometheus.Counter
	settlements prometheus.Counter
	commissions *prometheus.CounterVec
	importRows  *prometheus.CounterVec
	txDuration  *prometheus.HistogramVec
}

// NewLedgerMetrics registers the ledger metrics on the provided registerer.
// A nil registerer yields a no-op collector, which tests use freely.
func NewLedgerMetrics(reg prometheus.Registerer) *LedgerMetrics {
	if reg == nil {
		return &LedgerMetrics{}
	}
	payments := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_payments_recorded_total",
		Help: "Money-bearing payment events accepted into the ledger, by kind.",
	}, []string{"kind"})
	returns := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ledger_returns_total",
		Help: "Zero-amount return events that released a ticket book.",
	})
	settlements := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ledger_settlements_total",
		Help: "Assignments that reached full settlement.",
	})
	commissions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_commissions_earned_total",
		Help: "Commission rows created at settlement, by rule type.",
	}, []string{"rule"})
	importRows := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dues_import_rows_total",
		Help: "Bulk dues import rows, by outcome.",
	}, []string{"outcome"})
	txDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ledger_write_duration_seconds",
		Help:    "Duration of ledger write transactions.",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})
	reg.MustRegister(payments, returns, settlements, commissions, importRows, txDuration)
	return &LedgerMetrics{
		payments:    payments,
		returns:     returns,
		settlements: settlements,
		commissions: commissions,
		importRows:  importRows,
		txDuration:  txDuration,
	}
}

// IncPayment counts one accepted payment event.
func (m *LedgerMetrics) IncPayment(kind string) {
	if m == nil || m.payments == nil {
		return
	}
	m.payments.WithLabelValues(normalizeLabel(kind)).Inc()
}

// IncReturn counts one book return.
func (m *LedgerMetrics) IncReturn() {
	if m == nil || m.returns == nil {
		return
	}
	m.returns.Inc()
}

// IncSettlement counts one full settlement.
func (m *LedgerMetrics) IncSettlement() {
	if m == nil || m.settlements == nil {
		return
	}
	m.settlements.Inc()
}

// IncCommission counts one commission row for the given rule type.
func (m *LedgerMetrics) IncCommission(rule string) {
	if m == nil || m.commissions == nil {
		return
	}
	m.commissions.WithLabelValues(normalizeLabel(rule)).Inc()
}

// IncImportRow counts one bulk import row outcome (inserted/skipped/failed).
func (m *LedgerMetrics) IncImportRow(outcome string) {
	if m == nil || m.importRows == nil {
		return
	}
	m.importRows.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// ObserveWrite records the duration of the named write transaction.
func (m *LedgerMetrics) ObserveWrite(op string, d time.Duration) {
	if m == nil || m.txDuration == nil {
		return
	}
	m.txDuration.WithLabelValues(normalizeLabel(op)).Observe(d.Seconds())
}

func normalizeLabel(v string) string {
	v = strings.TrimSpace(strings.ToLower(v))
	if v == "" {
		return "unknown"
	}
	return v
}
