package inference

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestCallSuccessReturnsValue(t *testing.T) {
	s := NewSupervisor()
	res := s.Call(context.Background(), "model-a", func(ctx context.Context) (any, error) {
		return 0.8, nil
	}, Options{})
	if res.InferenceError != nil {
		t.Fatalf("expected no inference error, got %+v", res.InferenceError)
	}
	if res.Value.(float64) != 0.8 {
		t.Fatalf("expected passthrough value 0.8, got %v", res.Value)
	}
}

func TestCallTimeoutClassification(t *testing.T) {
	s := NewSupervisor()
	res := s.Call(context.Background(), "model-timeout", func(ctx context.Context) (any, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}, Options{Timeout: 10 * time.Millisecond})

	if res.InferenceError == nil || res.InferenceError.Type != FailureTimeout {
		t.Fatalf("expected TIMEOUT classification, got %+v", res.InferenceError)
	}
	if !res.UsedFallback {
		t.Fatalf("expected fallback to be used on timeout")
	}
}

func TestCallRejectsExplicitNaN(t *testing.T) {
	s := NewSupervisor()
	nan := nanValue()
	res := s.Call(context.Background(), "model-nan-2", func(ctx context.Context) (any, error) {
		return nan, nil
	}, Options{})
	if res.InferenceError == nil || res.InferenceError.Type != FailureNaNOutput {
		t.Fatalf("expected NAN_OUTPUT classification, got %+v", res.InferenceError)
	}
}

func TestCircuitBreaksAfterConsecutiveFailures(t *testing.T) {
	s := NewSupervisor()
	failing := func(ctx context.Context) (any, error) { return nil, errors.New("boom") }

	var lastState ModelState
	for i := 0; i < CircuitBreakAfter+2; i++ {
		s.Call(context.Background(), "model-breaker", failing, Options{})
		lastState = s.State("model-breaker")
	}
	if lastState != StateCircuitBroken {
		t.Fatalf("expected CIRCUIT_BROKEN after %d consecutive failures, got %s", CircuitBreakAfter, lastState)
	}
}

func TestResetClearsFailureWindow(t *testing.T) {
	s := NewSupervisor()
	failing := func(ctx context.Context) (any, error) { return nil, errors.New("boom") }
	s.Call(context.Background(), "model-reset", failing, Options{})
	s.Reset("model-reset")
	if got := s.State("model-reset"); got != StateHealthy {
		t.Fatalf("expected HEALTHY after manual reset, got %s", got)
	}
}

func nanValue() float64 {
	var zero float64
	return zero / zero
}
