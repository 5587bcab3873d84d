package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	TicksTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ctrader_ticks_total",
		Help: "Market events consumed from the feed",
	})

	ScansTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ctrader_scans_total",
		Help: "Full arbitrage scans over the triangle set",
	})

	OpportunitiesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ctrader_opportunities_total",
		Help: "Paths whose post-fee profit cleared the threshold",
	})

	SignalsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ctrader_signals_total",
		Help: "Signals emitted toward execution",
	})

	RiskRejectionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ctrader_risk_rejections_total",
		Help: "Legs denied by the risk gate",
	})

	OrderErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ctrader_order_errors_total",
		Help: "Failed exchange submissions",
	})

	ActiveOrders = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ctrader_active_orders",
		Help: "Orders currently tracked in the active index",
	})

	LastProfitPct = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ctrader_last_profit_pct",
		Help: "Profit fraction of the most recent opportunity",
	})

	ScanLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "ctrader_scan_latency_seconds",
		Help:    "Time to evaluate the full triangle set for one tick",
		Buckets: prometheus.DefBuckets,
	})
)

func init() {
	prometheus.MustRegister(
		TicksTotal,
		ScansTotal,
		OpportunitiesTotal,
		SignalsTotal,
		RiskRejectionsTotal,
		OrderErrorsTotal,
		ActiveOrders,
		LastProfitPct,
		ScanLatency,
	)
}
