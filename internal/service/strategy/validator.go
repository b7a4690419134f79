package strategy

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/phrazzld/boxpack-api/internal/domain/placement"
	"github.com/phrazzld/boxpack-api/internal/platform/metrics"
	"github.com/phrazzld/boxpack-api/internal/platform/sandbox"
	"github.com/phrazzld/boxpack-api/internal/store"
)

// Validation stages after the sandbox's structural and load stages.
const (
	StageSmoke  = "smoke"
	StageCommit = "commit"
)

// CandidateLoader interprets inspected candidate source in isolation.
// *sandbox.Loader implements it.
type CandidateLoader interface {
	Load(ctx context.Context, name string, m *sandbox.Manifest, source []byte) (placement.Strategy, error)
}

// ValidatorConfig bounds candidate validation.
type ValidatorConfig struct {
	SmokeTimeout   time.Duration
	MaxSourceBytes int64
}

// Candidate is a strategy that passed inspection, load and smoke test but is
// not active yet.
type Candidate struct {
	Strategy   placement.Strategy
	SourceHash string
	Package    string
}

// smokeCase is a canned input every strategy must handle.
type smokeCase struct {
	name  string
	items []placement.Item
	space placement.Space
}

var smokeCases = []smokeCase{
	{name: "empty", space: placement.Space{X: 1, Y: 1, Z: 1}},
	{
		name:  "single unit item",
		items: []placement.Item{{Name: "smoke", Dimensions: placement.Dimensions{X: 1, Y: 1, Z: 1}}},
		space: placement.Space{X: 1, Y: 1, Z: 1},
	},
	{
		name: "pair",
		items: []placement.Item{
			{Name: "smoke-a", Dimensions: placement.Dimensions{X: 1, Y: 1, Z: 1}},
			{Name: "smoke-b", Dimensions: placement.Dimensions{X: 2, Y: 1, Z: 1}, Fragile: true},
		},
		space: placement.Space{X: 4, Y: 4, Z: 4},
	},
}

// Validator vets candidate strategies and installs the ones that pass.
//
// Inspection, loading and smoke testing run without any lock. Only the
// commit step, which persists the source and swaps the registry, is
// serialized, so the stored source always matches the last committed swap.
type Validator struct {
	registry       *Registry
	loader         CandidateLoader
	sources        store.StrategySourceStore
	smokeTimeout   time.Duration
	maxSourceBytes int64
	commitMu       sync.Mutex
	logger         *slog.Logger
	metrics        *metrics.Metrics
}

// NewValidator wires a validator to the registry it commits into.
func NewValidator(
	registry *Registry,
	loader CandidateLoader,
	sources store.StrategySourceStore,
	cfg ValidatorConfig,
	logger *slog.Logger,
	m *metrics.Metrics,
) (*Validator, error) {
	if registry == nil {
		return nil, errors.New("registry cannot be nil")
	}
	if loader == nil {
		return nil, errors.New("candidate loader cannot be nil")
	}
	if sources == nil {
		return nil, errors.New("strategy source store cannot be nil")
	}
	if cfg.SmokeTimeout <= 0 {
		return nil, errors.New("smoke test timeout must be positive")
	}
	if cfg.MaxSourceBytes <= 0 {
		return nil, errors.New("max source size must be positive")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Validator{
		registry:       registry,
		loader:         loader,
		sources:        sources,
		smokeTimeout:   cfg.SmokeTimeout,
		maxSourceBytes: cfg.MaxSourceBytes,
		logger:         logger.With(slog.String("component", "candidate_validator")),
		metrics:        m,
	}, nil
}

// Check runs inspection, isolated load and smoke test on source. It touches
// neither the registry nor the stored source.
func (v *Validator) Check(ctx context.Context, source []byte) (*Candidate, error) {
	if len(source) == 0 {
		return nil, v.reject(ctx, sandbox.StageStructural,
			placement.NewInvalidCandidateError(sandbox.StageStructural, "source is empty", nil))
	}
	if int64(len(source)) > v.maxSourceBytes {
		return nil, v.reject(ctx, sandbox.StageStructural,
			placement.NewInvalidCandidateError(sandbox.StageStructural,
				fmt.Sprintf("source is %d bytes, limit is %d", len(source), v.maxSourceBytes), nil))
	}

	hash := SourceHash(source)

	manifest, err := sandbox.Inspect(source)
	if err != nil {
		return nil, v.reject(ctx, sandbox.StageStructural, err)
	}

	loaded, err := v.loader.Load(ctx, "uploaded-"+hash[:12], manifest, source)
	if err != nil {
		return nil, v.reject(ctx, sandbox.StageLoad, err)
	}

	if err := v.SmokeTest(ctx, loaded); err != nil {
		return nil, v.reject(ctx, StageSmoke, err)
	}

	v.metrics.RecordValidation(StageSmoke, metrics.OutcomeSuccess)
	return &Candidate{Strategy: loaded, SourceHash: hash, Package: manifest.Package}, nil
}

// Submit validates source and, if it passes, stores it and makes it the
// active strategy. On any error the registry and stored source are left as
// they were.
func (v *Validator) Submit(ctx context.Context, source []byte) (*ActiveStrategy, error) {
	cand, err := v.Check(ctx, source)
	if err != nil {
		return nil, err
	}

	v.commitMu.Lock()
	defer v.commitMu.Unlock()

	if err := v.sources.Save(ctx, source); err != nil {
		v.metrics.RecordValidation(StageCommit, metrics.OutcomeError)
		return nil, fmt.Errorf("failed to store strategy source: %w", err)
	}

	active, err := v.registry.Swap(cand.Strategy, cand.SourceHash, OriginUpload)
	if err != nil {
		v.metrics.RecordValidation(StageCommit, metrics.OutcomeError)
		return nil, err
	}

	v.metrics.RecordValidation(StageCommit, metrics.OutcomeSuccess)
	v.logger.InfoContext(ctx, "candidate strategy committed",
		slog.String("strategy", cand.Strategy.Name()),
		slog.String("source_hash", cand.SourceHash),
		slog.Uint64("version", active.Version))
	return active, nil
}

// Restore re-validates the stored source, if any, and activates it without
// storing it again. It returns nil, nil when nothing is stored. A rejected
// source is returned as an error and the registry is left unchanged.
func (v *Validator) Restore(ctx context.Context) (*ActiveStrategy, error) {
	source, err := v.sources.Load(ctx)
	if store.IsNotFoundError(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read stored strategy: %w", err)
	}

	cand, err := v.Check(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("stored strategy rejected: %w", err)
	}

	v.commitMu.Lock()
	defer v.commitMu.Unlock()
	return v.registry.Swap(cand.Strategy, cand.SourceHash, OriginRestored)
}

// SmokeTest runs s twice on each canned input. It fails if a call errors,
// times out, breaks an invariant or returns different output the second time.
func (v *Validator) SmokeTest(ctx context.Context, s placement.Strategy) error {
	for _, tc := range smokeCases {
		var first []placement.PlacedItem
		for run := 0; run < 2; run++ {
			placed, err := v.smokeCall(ctx, s, tc)
			if err != nil {
				return err
			}
			if run == 0 {
				first = placed
				continue
			}
			if !samePlacement(first, placed) {
				return placement.NewInvalidCandidateError(StageSmoke,
					fmt.Sprintf("%s input: strategy is not deterministic", tc.name), nil)
			}
		}
	}
	return nil
}

func (v *Validator) smokeCall(ctx context.Context, s placement.Strategy, tc smokeCase) ([]placement.PlacedItem, error) {
	callCtx, cancel := context.WithTimeout(ctx, v.smokeTimeout)
	defer cancel()

	placed, err := placement.Invoke(callCtx, s, tc.items, tc.space)
	switch {
	case errors.Is(err, placement.ErrAlgorithmTimeout):
		return nil, &placement.PlacementError{
			Kind:    placement.ErrAlgorithmTimeout,
			Stage:   StageSmoke,
			Message: fmt.Sprintf("%s input: no result within %s", tc.name, v.smokeTimeout),
			Err:     err,
		}
	case err != nil:
		return nil, placement.NewInvalidCandidateError(StageSmoke, tc.name+" input: call failed", err)
	}

	if err := placement.Verify(tc.items, tc.space, placed); err != nil {
		return nil, placement.NewInvalidCandidateError(StageSmoke, tc.name+" input: result rejected", err)
	}
	return placed, nil
}

func samePlacement(a, b []placement.PlacedItem) bool {
	if len(a) == 0 && len(b) == 0 {
		return true
	}
	return reflect.DeepEqual(a, b)
}

func (v *Validator) reject(ctx context.Context, stage string, err error) error {
	v.metrics.RecordValidation(stage, outcomeFor(err))
	v.logger.WarnContext(ctx, "candidate strategy rejected",
		slog.String("stage", stage),
		slog.String("error", err.Error()))
	return err
}

// SourceHash returns the hex SHA-256 of source.
func SourceHash(source []byte) string {
	sum := sha256.Sum256(source)
	return hex.EncodeToString(sum[:])
}
