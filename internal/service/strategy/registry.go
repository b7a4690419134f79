package strategy

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/phrazzld/boxpack-api/internal/domain/placement"
	"github.com/phrazzld/boxpack-api/internal/platform/metrics"
)

// Origins recorded on an ActiveStrategy.
const (
	OriginBuiltin  = "builtin"
	OriginUpload   = "upload"
	OriginRestored = "restored"
)

// ActiveStrategy is an immutable snapshot of the registry slot. A placement
// call takes one snapshot and uses it for the whole call.
type ActiveStrategy struct {
	Strategy    placement.Strategy
	Version     uint64
	SourceHash  string
	Origin      string
	ActivatedAt time.Time
}

// Registry holds the active strategy. It is never empty.
type Registry struct {
	mu      sync.RWMutex
	active  *ActiveStrategy
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewRegistry returns a registry whose first version is fallback. A nil
// fallback is an error; callers treat it as fatal.
func NewRegistry(fallback placement.Strategy, logger *slog.Logger, m *metrics.Metrics) (*Registry, error) {
	if fallback == nil {
		return nil, errors.New("fallback strategy cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	r := &Registry{
		active: &ActiveStrategy{
			Strategy:    fallback,
			Version:     1,
			Origin:      OriginBuiltin,
			ActivatedAt: time.Now().UTC(),
		},
		logger:  logger.With(slog.String("component", "strategy_registry")),
		metrics: m,
	}
	m.SetActiveVersion(1, false)
	return r, nil
}

// Current returns the active snapshot.
func (r *Registry) Current() *ActiveStrategy {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.active
}

// Swap installs s as the active strategy and returns the new snapshot.
// Calls already holding a snapshot finish with the old strategy; any
// Current after Swap returns sees the new one.
func (r *Registry) Swap(s placement.Strategy, sourceHash, origin string) (*ActiveStrategy, error) {
	if s == nil {
		return nil, errors.New("cannot swap in a nil strategy")
	}

	r.mu.Lock()
	prev := r.active
	next := &ActiveStrategy{
		Strategy:    s,
		Version:     prev.Version + 1,
		SourceHash:  sourceHash,
		Origin:      origin,
		ActivatedAt: time.Now().UTC(),
	}
	r.active = next
	r.mu.Unlock()

	r.metrics.SetActiveVersion(next.Version, true)
	r.logger.Info("active strategy replaced",
		slog.String("previous", prev.Strategy.Name()),
		slog.Uint64("previous_version", prev.Version),
		slog.String("strategy", s.Name()),
		slog.Uint64("version", next.Version),
		slog.String("origin", origin))

	return next, nil
}
