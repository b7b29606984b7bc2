package circuitbreaker

import (
	log "github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
)

var (
	// MaxNumOfFailingRequests ...
	MaxNumOfFailingRequests = 10
	// FailingRatio ...
	FailingRatio = 0.6
)

// NewCircuitBreaker is a factory function returning a *gobreaker.CircuitBreaker
// that trips once more than MaxNumOfFailingRequests requests have been made
// and the failing ratio has reached FailingRatio. State changes are logged.
func NewCircuitBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:          name,
		ReadyToTrip:   readyToTrip,
		OnStateChange: logStateChange,
	})
}

func readyToTrip(counts gobreaker.Counts) bool {
	if counts.Requests == 0 {
		return false
	}
	ratio := float64(counts.TotalFailures) / float64(counts.Requests)
	return int(counts.Requests) > MaxNumOfFailingRequests && ratio >= FailingRatio
}

func logStateChange(name string, from, to gobreaker.State) {
	log.WithField("breaker", name).Debugf("state changed from %s to %s", from, to)
}
