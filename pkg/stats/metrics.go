package stats

import "github.com/prometheus/client_golang/prometheus"

const (
	OutcomeDispatched = "dispatched"
	OutcomeSkipped    = "skipped"
	OutcomeFailed     = "failed"
	OutcomeTimeout    = "timeout"
	OutcomeAborted    = "aborted"
	OutcomeExecuted   = "executed"
)

var (
	// SwapActions counts the swap actions handled by the execution engine by
	// action name and outcome.
	SwapActions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "swapd",
			Name:      "swap_actions_total",
			Help:      "Swap actions handled, by action and outcome.",
		},
		[]string{"action", "outcome"},
	)
	// SwapsFinished counts the swaps reported in a terminal status.
	SwapsFinished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "swapd",
			Name:      "swaps_finished_total",
			Help:      "Swaps reported in a terminal status.",
		},
		[]string{"status"},
	)
	// OrderRequests counts the requests served by the negotiation server.
	OrderRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "swapd",
			Name:      "order_requests_total",
			Help:      "Negotiation requests served, by endpoint and result.",
		},
		[]string{"endpoint", "result"},
	)
)

func init() {
	prometheus.MustRegister(SwapActions, SwapsFinished, OrderRequests)
}
