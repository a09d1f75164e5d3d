package usecase

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestDegradationController_Transitions(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	c := NewDegradationController(zap.New(core))

	if c.Degraded() {
		t.Fatalf("controller must start in normal mode")
	}

	c.Observe(true)
	if c.Degraded() || logs.Len() != 0 {
		t.Fatalf("healthy observations in normal mode must be silent")
	}

	c.Observe(false)
	if !c.Degraded() {
		t.Fatalf("expected degraded mode after a failed observation")
	}
	c.Observe(false)
	c.Observe(false)
	if got := logs.FilterLevelExact(zap.WarnLevel).Len(); got != 1 {
		t.Fatalf("expected exactly 1 warn for the transition, got %d", got)
	}

	c.Observe(true)
	if c.Degraded() {
		t.Fatalf("expected recovery after a healthy observation")
	}
	c.Observe(true)
	if got := logs.FilterLevelExact(zap.InfoLevel).Len(); got != 1 {
		t.Fatalf("expected exactly 1 info for the recovery, got %d", got)
	}
}

func TestDegradationController_Permanent(t *testing.T) {
	c := NewDegradationController(zap.NewNop())

	c.ForcePermanentDegraded("store disabled")
	if !c.Degraded() {
		t.Fatalf("expected degraded mode")
	}

	// Healthy observations cannot lift a permanent degradation.
	c.Observe(true)
	if !c.Degraded() {
		t.Fatalf("permanent degradation must not recover")
	}
}
