package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Removal reasons.
const (
	ReasonRemove     = "remove"
	ReasonShutdown   = "shutdown"
	ReasonDisconnect = "disconnect"
)

// Registration paths.
const (
	PathDirect = "direct"
	PathDrain  = "drain"
)

var (
	SessionsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sgrfleet_sessions_created_total",
		Help: "Total number of sessions that authenticated and entered the registry",
	})

	AuthFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sgrfleet_authentication_failures_total",
		Help: "Total number of session constructions that failed",
	})

	SessionsRemovedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sgrfleet_sessions_removed_total",
		Help: "Total number of sessions evicted from the registry",
	}, []string{"reason"})

	SessionsRegisteredTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sgrfleet_sessions_registered_total",
		Help: "Total number of sessions registered with the message processor",
	}, []string{"path"})
)

// FleetStats is the read side of a session registry.
type FleetStats interface {
	Len() int
	Parked() int
	IsActive() bool
}

// RegisterFleetGauges exposes live/parked/activated gauges backed by stats.
func RegisterFleetGauges(reg prometheus.Registerer, stats FleetStats) error {
	collectors := []prometheus.Collector{
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "sgrfleet_sessions_live",
			Help: "Number of sessions currently in the registry",
		}, func() float64 { return float64(stats.Len()) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "sgrfleet_sessions_parked",
			Help: "Number of sessions waiting for listener activation",
		}, func() float64 { return float64(stats.Parked()) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "sgrfleet_activated",
			Help: "1 once the message processor is installed",
		}, func() float64 {
			if stats.IsActive() {
				return 1
			}
			return 0
		}),
	}

	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Handler serves the default gatherer in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
