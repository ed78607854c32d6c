// Package inference implements the inference supervisor of spec §4.7: a
// wrapper around arbitrary inference functions that adds a per-call
// timeout, output validation, failure classification, an escalation
// ladder, and a circuit breaker with fixed-duration trip.
package inference

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
)

// FailureKind is the closed classification set for a handled inference
// failure (spec §4.7).
type FailureKind string

const (
	FailureTimeout            FailureKind = "TIMEOUT"
	FailureException          FailureKind = "EXCEPTION"
	FailureNaNOutput          FailureKind = "NAN_OUTPUT"
	FailureNullOutput         FailureKind = "NULL_OUTPUT"
	FailureUndefinedOutput    FailureKind = "UNDEFINED_OUTPUT"
	FailureInvalidShape       FailureKind = "INVALID_SHAPE"
	FailureOutOfRange         FailureKind = "OUT_OF_RANGE"
	FailureConfidenceCollapse FailureKind = "CONFIDENCE_COLLAPSE"
	FailureModelUnavailable   FailureKind = "MODEL_UNAVAILABLE"
	FailureInvalidInput       FailureKind = "INVALID_INPUT"
	FailureUnknown            FailureKind = "UNKNOWN"
)

// Escalation is the closed escalation ladder (spec §4.7).
type Escalation string

const (
	EscalationNone         Escalation = "NONE"
	EscalationLog          Escalation = "LOG"
	EscalationFallback     Escalation = "FALLBACK"
	EscalationAlert        Escalation = "ALERT"
	EscalationCircuitBreak Escalation = "CIRCUIT_BREAK"
	EscalationCritical     Escalation = "CRITICAL"
)

// FallbackStrategy is the closed fallback-selection enum (spec §4.7).
type FallbackStrategy string

const (
	FallbackUseDefault     FallbackStrategy = "USE_DEFAULT"
	FallbackUseCached      FallbackStrategy = "USE_CACHED"
	FallbackUseConservative FallbackStrategy = "USE_CONSERVATIVE"
	FallbackSkipML         FallbackStrategy = "SKIP_ML"
	FallbackReject         FallbackStrategy = "REJECT"
)

// ModelState is the closed per-model state-machine set (spec §4.7).
type ModelState string

const (
	StateHealthy      ModelState = "HEALTHY"
	StateRecovering   ModelState = "RECOVERING"
	StateDegraded     ModelState = "DEGRADED"
	StateCircuitBroken ModelState = "CIRCUIT_BROKEN"
)

// Escalation thresholds (spec §4.7 state-machine description).
const (
	AlertAfter        = 3
	CircuitBreakAfter = 5
	CircuitBreakDuration = 60 * time.Second
	FailureWindow        = 5 * time.Minute
)

// InferenceError is carried in a fallback result on every handled failure
// path (spec §4.7: "returns a fallback with { _inferenceError: {type, escalation} }").
type InferenceError struct {
	Type       FailureKind
	Escalation Escalation
}

// Result wraps a successful or a handled-failure outcome.
type Result struct {
	Value           any
	InferenceError  *InferenceError
	UsedFallback     bool
	FallbackStrategy FallbackStrategy
}

// Validator inspects a raw inference output before it is accepted.
// Implementations return a FailureKind describing why the output was
// rejected, or "" if the output is acceptable.
type Validator func(output any) FailureKind

// Options configures one Call invocation.
type Options struct {
	Timeout          time.Duration
	Validator        Validator
	FallbackValue    any
	FallbackStrategy FallbackStrategy
}

type failureEvent struct {
	at   time.Time
	kind FailureKind
}

type modelEntry struct {
	mu       sync.Mutex
	failures []failureEvent
	lastGood any
	breaker  *gobreaker.CircuitBreaker
}

// Supervisor is the process-global, lock-protected registry of per-model
// state the wrapper consults and mutates (spec §4.7: "concurrent
// invocations share the in-memory registry and must use a lock when
// mutating it").
type Supervisor struct {
	mu     sync.Mutex
	models map[string]*modelEntry
}

// NewSupervisor constructs an empty registry.
func NewSupervisor() *Supervisor {
	return &Supervisor{models: make(map[string]*modelEntry)}
}

func (s *Supervisor) entry(modelID string) *modelEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.models[modelID]
	if ok {
		return e
	}
	e = &modelEntry{}
	e.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        modelID,
		MaxRequests: 1,
		Interval:    0,
		Timeout:     CircuitBreakDuration,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= CircuitBreakAfter
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Warn().Str("model", name).Str("from", from.String()).Str("to", to.String()).
				Msg("inference circuit breaker state change")
		},
	})
	s.models[modelID] = e
	return e
}

// Call wraps F with a timeout race, output validation and failure
// classification, recording results into the shared registry (spec §4.7).
func (s *Supervisor) Call(ctx context.Context, modelID string, f func(context.Context) (any, error), opts Options) Result {
	e := s.entry(modelID)

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	out, err := e.breaker.Execute(func() (interface{}, error) {
		return callWithTimeout(ctx, f, timeout)
	})

	if err != nil {
		kind := classifyFailure(err)
		e.recordFailure(kind)
		return s.fallback(e, kind, opts)
	}

	if kind := validate(out, opts.Validator); kind != "" {
		e.recordFailure(kind)
		return s.fallback(e, kind, opts)
	}

	e.recordSuccess(out)
	return Result{Value: out}
}

func callWithTimeout(ctx context.Context, f func(context.Context) (any, error), timeout time.Duration) (any, error) {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		val any
		err error
	}
	ch := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- outcome{err: errExceptionRecovered}
			}
		}()
		v, err := f(callCtx)
		ch <- outcome{val: v, err: err}
	}()

	select {
	case <-callCtx.Done():
		return nil, errTimeout
	case o := <-ch:
		return o.val, o.err
	}
}

var (
	errTimeout            = errors.New("inference: timeout")
	errExceptionRecovered = errors.New("inference: recovered panic")
)

func classifyFailure(err error) FailureKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, errTimeout):
		return FailureTimeout
	case errors.Is(err, errExceptionRecovered):
		return FailureException
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return FailureModelUnavailable
	default:
		return FailureUnknown
	}
}

func validate(out any, custom Validator) FailureKind {
	if out == nil {
		return FailureNullOutput
	}
	switch v := out.(type) {
	case float64:
		if math.IsNaN(v) {
			return FailureNaNOutput
		}
	case []float64:
		for _, f := range v {
			if math.IsNaN(f) {
				return FailureNaNOutput
			}
		}
	}
	if custom != nil {
		if kind := custom(out); kind != "" {
			return kind
		}
	}
	return ""
}

func (e *modelEntry) recordFailure(kind FailureKind) {
	e.mu.Lock()
	defer e.mu.Unlock()
	now := time.Now()
	e.failures = append(e.failures, failureEvent{at: now, kind: kind})
	e.pruneLocked(now)
}

func (e *modelEntry) recordSuccess(v any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastGood = v
}

func (e *modelEntry) pruneLocked(now time.Time) {
	cutoff := now.Add(-FailureWindow)
	kept := e.failures[:0]
	for _, f := range e.failures {
		if f.at.After(cutoff) {
			kept = append(kept, f)
		}
	}
	e.failures = kept
}

func (e *modelEntry) windowCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pruneLocked(time.Now())
	return len(e.failures)
}

// State reports the modelId's current position on the spec §4.7 state
// machine, derived from the breaker's own state plus the failure window.
func (s *Supervisor) State(modelID string) ModelState {
	e := s.entry(modelID)
	if e.breaker.State() == gobreaker.StateOpen {
		return StateCircuitBroken
	}
	switch n := e.windowCount(); {
	case n >= AlertAfter:
		return StateDegraded
	case n >= 1:
		return StateRecovering
	default:
		return StateHealthy
	}
}

// Reset manually clears a model's failure window and breaker (spec §4.7:
// "Manual reset is permitted").
func (s *Supervisor) Reset(modelID string) {
	s.mu.Lock()
	old, ok := s.models[modelID]
	delete(s.models, modelID)
	s.mu.Unlock()

	e := s.entry(modelID)
	if ok {
		old.mu.Lock()
		lastGood := old.lastGood
		old.mu.Unlock()
		e.mu.Lock()
		e.lastGood = lastGood
		e.mu.Unlock()
	}
}

func escalationFor(n int, kind FailureKind) Escalation {
	switch {
	case n >= CircuitBreakAfter:
		return EscalationCircuitBreak
	case n >= AlertAfter:
		return EscalationAlert
	case kind == FailureModelUnavailable:
		return EscalationFallback
	case n >= 1:
		return EscalationLog
	default:
		return EscalationNone
	}
}

func (s *Supervisor) fallback(e *modelEntry, kind FailureKind, opts Options) Result {
	n := e.windowCount()
	esc := escalationFor(n, kind)

	strategy := opts.FallbackStrategy
	if strategy == "" {
		strategy = FallbackUseDefault
	}

	var value any
	switch strategy {
	case FallbackUseCached:
		e.mu.Lock()
		value = e.lastGood
		e.mu.Unlock()
		if value == nil {
			strategy = FallbackUseDefault
			value = opts.FallbackValue
		}
	case FallbackUseConservative, FallbackUseDefault:
		value = opts.FallbackValue
	case FallbackSkipML, FallbackReject:
		value = nil
	}

	return Result{
		Value:            value,
		UsedFallback:     true,
		FallbackStrategy: strategy,
		InferenceError:   &InferenceError{Type: kind, Escalation: esc},
	}
}
