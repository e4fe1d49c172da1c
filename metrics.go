package burnindex

import (
	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// Failure reasons reported on burnindex_burn_failures_total.
const (
	failureZeroAmount     = "zero_amount"
	failureNotInitialized = "not_initialized"
	failureConsistency    = "consistency"
	failureSink           = "sink"
	failureStore          = "store"
)

// Metrics holds the burn counters. A nil *Metrics records nothing.
type Metrics struct {
	burns       prometheus.Counter
	burnedUnits prometheus.Counter
	failures    *prometheus.CounterVec
	rekeys      prometheus.Counter
}

// NewMetrics creates the burn metrics and registers them on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		burns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "burnindex_burns_total",
			Help: "Number of committed burns",
		}),
		burnedUnits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "burnindex_burned_units_total",
			Help: "Smallest token units destroyed by committed burns",
		}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "burnindex_burn_failures_total",
			Help: "Burns rejected or rolled back, by reason",
		}, []string{"reason"}),
		rekeys: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "burnindex_leaderboard_rekeys_total",
			Help: "Leaderboard entries moved because a burner's total changed",
		}),
	}
	for _, c := range []prometheus.Collector{m.burns, m.burnedUnits, m.failures, m.rekeys} {
		if err := reg.Register(c); err != nil {
			return nil, errors.Wrap(err, "failed to register burn metrics")
		}
	}
	return m, nil
}

func (m *Metrics) observeBurn(amount uint64, rekeyed bool) {
	if m == nil {
		return
	}
	m.burns.Inc()
	m.burnedUnits.Add(float64(amount))
	if rekeyed {
		m.rekeys.Inc()
	}
}

func (m *Metrics) observeFailure(err error) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(failureReason(err)).Inc()
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, ErrZeroAmount):
		return failureZeroAmount
	case errors.Is(err, ErrNotInitialized):
		return failureNotInitialized
	case errors.Is(err, ErrConsistency), errors.Is(err, ErrMalformedKey):
		return failureConsistency
	case errors.Is(err, errSinkTransfer):
		return failureSink
	default:
		return failureStore
	}
}
