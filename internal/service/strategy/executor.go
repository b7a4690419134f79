package strategy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/phrazzld/boxpack-api/internal/domain/placement"
	"github.com/phrazzld/boxpack-api/internal/platform/metrics"
)

// ExecutorConfig bounds placement calls.
type ExecutorConfig struct {
	Timeout       time.Duration
	MaxConcurrent int
}

// Executor runs the active strategy for one task and verifies its output.
type Executor struct {
	registry *Registry
	slots    *semaphore.Weighted
	timeout  time.Duration
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// NewExecutor returns an executor reading strategies from registry.
func NewExecutor(registry *Registry, cfg ExecutorConfig, logger *slog.Logger, m *metrics.Metrics) (*Executor, error) {
	if registry == nil {
		return nil, errors.New("registry cannot be nil")
	}
	if cfg.Timeout <= 0 {
		return nil, errors.New("placement timeout must be positive")
	}
	if cfg.MaxConcurrent <= 0 {
		return nil, errors.New("max concurrent placements must be positive")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Executor{
		registry: registry,
		slots:    semaphore.NewWeighted(int64(cfg.MaxConcurrent)),
		timeout:  cfg.Timeout,
		logger:   logger.With(slog.String("component", "placement_executor")),
		metrics:  m,
	}, nil
}

// Place validates the input, runs the active strategy on it and checks the
// output against every placement invariant. The whole call uses a single
// registry snapshot, and the result names the version that produced it.
//
// Failures are ErrAlgorithm, ErrAlgorithmTimeout or ErrGeometryViolation;
// invalid input returns placement.ErrInvalidSpace or ErrInvalidItem before
// any strategy runs.
func (e *Executor) Place(ctx context.Context, items []placement.Item, space placement.Space) (*placement.Result, error) {
	if err := placement.ValidateInput(items, space); err != nil {
		return nil, err
	}

	if err := e.slots.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("waiting for a placement slot: %w", err)
	}
	done := e.metrics.TrackInFlight()

	snap := e.registry.Current()
	name := snap.Strategy.Name()

	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := time.Now()
	call := placement.Start(callCtx, snap.Strategy, items, space)
	defer e.releaseAfter(call.Exited(), done)

	placed, err := call.Wait(callCtx)
	// Verification is quadratic in the item count; CreateTaskRequest caps
	// items so it stays well below the placement timeout.
	if err == nil {
		if verr := placement.Verify(items, space, placed); verr != nil {
			err = &placement.PlacementError{
				Kind:    placement.ErrGeometryViolation,
				Stage:   "verify",
				Message: fmt.Sprintf("strategy %q version %d", name, snap.Version),
				Err:     verr,
			}
		}
	}
	elapsed := time.Since(start)
	e.metrics.RecordPlacement(name, outcomeFor(err), elapsed)

	if err != nil {
		e.logger.WarnContext(ctx, "placement failed",
			slog.String("strategy", name),
			slog.Uint64("version", snap.Version),
			slog.Int("items", len(items)),
			slog.Duration("elapsed", elapsed),
			slog.String("error", err.Error()))
		return nil, err
	}

	return &placement.Result{
		Items:           placed,
		StrategyName:    name,
		StrategyVersion: snap.Version,
	}, nil
}

// releaseAfter frees the slot once the strategy goroutine has exited, so a
// timed-out call keeps its slot until it has actually stopped.
func (e *Executor) releaseAfter(exited <-chan struct{}, done func()) {
	release := func() {
		done()
		e.slots.Release(1)
	}
	select {
	case <-exited:
		release()
	default:
		go func() {
			<-exited
			release()
		}()
	}
}

// Registry returns the registry the executor reads from.
func (e *Executor) Registry() *Registry {
	return e.registry
}

func outcomeFor(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	// A rejected candidate may wrap any of the other kinds.
	case errors.Is(err, placement.ErrInvalidCandidate):
		return metrics.OutcomeInvalidCandidate
	case errors.Is(err, placement.ErrAlgorithmTimeout):
		return metrics.OutcomeTimeout
	case errors.Is(err, placement.ErrGeometryViolation):
		return metrics.OutcomeGeometryViolation
	case errors.Is(err, placement.ErrAlgorithm):
		return metrics.OutcomeAlgorithmError
	default:
		return metrics.OutcomeError
	}
}
