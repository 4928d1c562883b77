package telemetry

import "github.com/prometheus/client_golang/prometheus"

var (
	// nftbuy_orders_resolved_total
	//
	// counter of orderbook resolutions
	//
	// Has the following labels:
	// * result - "ok" or the sentinel error that rejected the order
	OrdersResolvedMetricName = "nftbuy_orders_resolved_total"

	// nftbuy_relay_attempts_total
	//
	// counter of bundle submissions, one per relay per target block
	//
	// Has the following labels:
	// * relay - relay name
	// * result - "accepted", "rejected" or "permanent"
	RelayAttemptsMetricName = "nftbuy_relay_attempts_total"

	// nftbuy_submissions_total
	//
	// counter of finished submissions
	//
	// Has the following labels:
	// * path - "relay" or "public"
	// * outcome - bundle-level outcome
	SubmissionsMetricName = "nftbuy_submissions_total"

	// nftbuy_transactions_total
	//
	// counter of per-transaction outcomes after a submission finished
	//
	// Has the following labels:
	// * status - per-transaction status
	TransactionsMetricName = "nftbuy_transactions_total"

	OrdersResolvedCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: OrdersResolvedMetricName,
			Help: "counter of orderbook order resolutions by result",
		},
		[]string{"result"},
	)

	RelayAttemptsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: RelayAttemptsMetricName,
			Help: "counter of bundle submissions per relay and target block",
		},
		[]string{"relay", "result"},
	)

	SubmissionsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: SubmissionsMetricName,
			Help: "counter of finished submissions by path and outcome",
		},
		[]string{"path", "outcome"},
	)

	TransactionsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: TransactionsMetricName,
			Help: "counter of submitted transactions by final status",
		},
		[]string{"status"},
	)
)

func init() {
	prometheus.MustRegister(OrdersResolvedCounter)
	prometheus.MustRegister(RelayAttemptsCounter)
	prometheus.MustRegister(SubmissionsCounter)
	prometheus.MustRegister(TransactionsCounter)
}

// WriteTextfile dumps the default registry in the node-exporter textfile format.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
