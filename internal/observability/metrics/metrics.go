package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
)

// Metrics are the service counters, exposed on /metrics.
type Metrics struct {
	ChargesTotal       *prometheus.CounterVec
	PostbacksTotal     *prometheus.CounterVec
	SweepCyclesTotal   prometheus.Counter
	ExpiredGrantsTotal prometheus.Counter
	NotifyFailures     prometheus.Counter
}

const (
	ChargeResultOK             = "ok"
	ChargeResultExtractionMiss = "extraction_miss"
	ChargeResultProviderError  = "provider_error"

	PostbackResultApproved   = "approved"
	PostbackResultIgnored    = "ignored"
	PostbackResultUnresolved = "unresolved"
	PostbackResultInvalid    = "invalid"
)

// New registers the counters on reg. Tests pass their own registry so
// repeated construction does not collide.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ChargesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pixgate_charges_total",
			Help: "Charge initiations by result.",
		}, []string{"result"}),
		PostbacksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pixgate_postbacks_total",
			Help: "Provider postbacks by reconciliation result.",
		}, []string{"result"}),
		SweepCyclesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pixgate_sweep_cycles_total",
			Help: "Completed expiration sweep cycles.",
		}),
		ExpiredGrantsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pixgate_expired_grants_total",
			Help: "Entitlements demoted to inactive by the sweeper.",
		}),
		NotifyFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pixgate_notify_failures_total",
			Help: "Best-effort notification deliveries that failed.",
		}),
	}
	reg.MustRegister(
		m.ChargesTotal,
		m.PostbacksTotal,
		m.SweepCyclesTotal,
		m.ExpiredGrantsTotal,
		m.NotifyFailures,
	)
	return m
}

var Module = fx.Module("metrics",
	fx.Provide(func() *Metrics {
		return New(prometheus.DefaultRegisterer)
	}),
)
