package telemetry

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// RevocationMetricsOptions configures the token lifecycle collectors.
type RevocationMetricsOptions struct {
	Registerer prometheus.Registerer
	Namespace  string
}

// RevocationMetrics exposes Prometheus collectors for verification outcomes
// and revocation activity.
type RevocationMetrics struct {
	Verifications *prometheus.CounterVec
	Revocations   *prometheus.CounterVec
	DegradedMode  prometheus.Gauge
}

// NewRevocationMetrics constructs the collectors and registers them with the
// provided registerer.
func NewRevocationMetrics(opts RevocationMetricsOptions) (*RevocationMetrics, error) {
	namespace := opts.Namespace
	if namespace == "" {
		namespace = "lumina"
	}

	reg := opts.Registerer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	verifications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "auth",
		Name:      "token_verifications_total",
		Help:      "Total number of token verifications partitioned by outcome.",
	}, []string{"outcome"})

	if err := reg.Register(verifications); err != nil {
		if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := already.ExistingCollector.(*prometheus.CounterVec); ok {
				verifications = existing
			} else {
				return nil, fmt.Errorf("existing verifications collector has unexpected type %T", already.ExistingCollector)
			}
		} else {
			return nil, fmt.Errorf("register verifications collector: %w", err)
		}
	}

	revocations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "auth",
		Name:      "token_revocations_total",
		Help:      "Total number of revocation writes partitioned by scope (token or subject).",
	}, []string{"scope"})

	if err := reg.Register(revocations); err != nil {
		if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := already.ExistingCollector.(*prometheus.CounterVec); ok {
				revocations = existing
			} else {
				return nil, fmt.Errorf("existing revocations collector has unexpected type %T", already.ExistingCollector)
			}
		} else {
			return nil, fmt.Errorf("register revocations collector: %w", err)
		}
	}

	degraded := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "auth",
		Name:      "revocation_store_degraded",
		Help:      "1 while the revocation store is unreachable and verification runs on expiry alone.",
	})

	if err := reg.Register(degraded); err != nil {
		if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := already.ExistingCollector.(prometheus.Gauge); ok {
				degraded = existing
			} else {
				return nil, fmt.Errorf("existing degraded collector has unexpected type %T", already.ExistingCollector)
			}
		} else {
			return nil, fmt.Errorf("register degraded collector: %w", err)
		}
	}

	return &RevocationMetrics{
		Verifications: verifications,
		Revocations:   revocations,
		DegradedMode:  degraded,
	}, nil
}

// ObserveVerification records one verification outcome.
func (m *RevocationMetrics) ObserveVerification(outcome string) {
	if m == nil || m.Verifications == nil {
		return
	}
	m.Verifications.WithLabelValues(outcome).Inc()
}

// ObserveRevocation records one revocation write.
func (m *RevocationMetrics) ObserveRevocation(scope string) {
	if m == nil || m.Revocations == nil {
		return
	}
	m.Revocations.WithLabelValues(scope).Inc()
}

// SetDegraded flips the degraded-mode gauge.
func (m *RevocationMetrics) SetDegraded(degraded bool) {
	if m == nil || m.DegradedMode == nil {
		return
	}
	if degraded {
		m.DegradedMode.Set(1)
		return
	}
	m.DegradedMode.Set(0)
}
