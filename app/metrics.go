package app

import (
	"strconv"

	abcitypes "github.com/cometbft/cometbft/abci/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsSubsystem = "hac"

type appMetrics struct {
	height    prometheus.Gauge
	txResults *prometheus.CounterVec
	events    *prometheus.CounterVec
	rejected  prometheus.Counter
}

// init registers the collectors with promRegistry. A nil registry keeps them
// unregistered so tests and tools can run several apps in one process.
func (m *appMetrics) init(namespace string, promRegistry prometheus.Registerer) {
	promautoFactory := promauto.With(promRegistry)
	m.height = promautoFactory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: metricsSubsystem,
		Name:      "block_height",
		Help:      "height of the last finalized block",
	})
	m.txResults = promautoFactory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: metricsSubsystem,
		Name:      "tx_results_total",
		Help:      "finalized txs by result code",
	}, []string{"code"})
	m.events = promautoFactory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: metricsSubsystem,
		Name:      "events_total",
		Help:      "events emitted by finalized txs",
	}, []string{"type"})
	m.rejected = promautoFactory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: metricsSubsystem,
		Name:      "proposals_rejected_total",
		Help:      "block proposals rejected in ProcessProposal",
	})
}

func (m *appMetrics) observeBlock(height int64, res []*abcitypes.ExecTxResult) {
	m.height.Set(float64(height))
	for _, r := range res {
		m.txResults.WithLabelValues(strconv.FormatUint(uint64(r.Code), 10)).Inc()
		for _, e := range r.Events {
			m.events.WithLabelValues(e.Type).Inc()
		}
	}
}

// EnableMetrics exports the app collectors through promRegistry, which the
// CometBFT prometheus listener serves when instrumentation is on.
func (app *HACApp) EnableMetrics(namespace string, promRegistry prometheus.Registerer) {
	app.metrics.init(namespace, promRegistry)
}
