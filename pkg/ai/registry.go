package ai

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// Registry maps module identifiers to evaluation strategies. It performs no
// scoring itself; callers resolve and invoke. Module identifiers are
// normalized to their string form before every lookup so numeric and textual
// identifiers for the same module always collide.
type Registry struct {
	mu         sync.RWMutex
	strategies map[string]Strategy
	logger     zerolog.Logger
}

// NewRegistry builds an empty strategy registry.
func NewRegistry(logger zerolog.Logger) *Registry {
	return &Registry{
		strategies: make(map[string]Strategy),
		logger:     logger.With().Str("component", "evaluator_registry").Logger(),
	}
}

func normalizeModuleID(id interface{}) string {
	return fmt.Sprint(id)
}

// Register binds a strategy to a module identifier. Re-registering replaces
// the previous strategy, last write wins.
func (r *Registry) Register(moduleID interface{}, strategy Strategy) {
	key := normalizeModuleID(moduleID)

	r.mu.Lock()
	r.strategies[key] = strategy
	r.mu.Unlock()

	r.logger.Info().Str("module_id", key).Msg("evaluation strategy registered")
}

// HasEvaluator reports whether a strategy is registered for the module.
func (r *Registry) HasEvaluator(moduleID interface{}) bool {
	key := normalizeModuleID(moduleID)

	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.strategies[key]
	return ok
}

// Evaluate dispatches to the registered strategy. A missing strategy is not
// an error: the call returns (nil, nil) and the caller treats it as nothing
// to do.
func (r *Registry) Evaluate(ctx context.Context, moduleID interface{}, criteria Criteria, problemAttachments, answerAttachments []Attachment) ([]ItemResult, error) {
	key := normalizeModuleID(moduleID)

	r.mu.RLock()
	strategy, ok := r.strategies[key]
	r.mu.RUnlock()

	if !ok {
		r.logger.Debug().Str("module_id", key).Msg("no evaluation strategy registered")
		return nil, nil
	}

	results, err := strategy(ctx, criteria, problemAttachments, answerAttachments)
	if err != nil {
		return nil, fmt.Errorf("evaluate module %s: %w", key, err)
	}

	return results, nil
}
