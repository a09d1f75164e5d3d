package usecase

import (
	"sync"

	"go.uber.org/zap"

	"github.com/786262170/lumina-api/internal/infra/telemetry"
)

// DegradationController tracks revocation store availability transitions and
// exposes the current mode to the policy engine. Pure status tracker; the
// accept/reject decision stays with the verifier.
type DegradationController struct {
	mu        sync.Mutex
	degraded  bool
	permanent bool
	logger    *zap.Logger
	metrics   *telemetry.RevocationMetrics
}

// NewDegradationController constructs the controller in normal mode.
func NewDegradationController(logger *zap.Logger) *DegradationController {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DegradationController{logger: logger}
}

// WithMetrics wires the degraded-mode gauge.
func (c *DegradationController) WithMetrics(metrics *telemetry.RevocationMetrics) *DegradationController {
	c.metrics = metrics
	return c
}

// ForcePermanentDegraded pins the controller into degraded mode for the
// process lifetime, used when the store is disabled by configuration.
func (c *DegradationController) ForcePermanentDegraded(reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.permanent = true
	if !c.degraded {
		c.degraded = true
		c.logger.Warn("revocation checks permanently disabled, verification runs on expiry alone",
			zap.String("reason", reason),
		)
		c.metrics.SetDegraded(true)
	}
}

// Observe records the outcome of a store interaction and logs exactly once
// per mode transition.
func (c *DegradationController) Observe(available bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.permanent {
		return
	}

	if available && c.degraded {
		c.degraded = false
		c.logger.Info("revocation store recovered, resuming full verification")
		c.metrics.SetDegraded(false)
		return
	}

	if !available && !c.degraded {
		c.degraded = true
		c.logger.Warn("revocation store unavailable, entering degraded verification (expiry only)")
		c.metrics.SetDegraded(true)
	}
}

// Degraded reports the current mode.
func (c *DegradationController) Degraded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.degraded
}
