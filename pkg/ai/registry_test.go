package ai

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func staticStrategy(results []ItemResult, err error) Strategy {
	return func(context.Context, Criteria, []Attachment, []Attachment) ([]ItemResult, error) {
		return results, err
	}
}

func TestRegistryNormalizesModuleIDs(t *testing.T) {
	registry := NewRegistry(zerolog.Nop())
	score := 3.0
	registry.Register(uint(5), staticStrategy([]ItemResult{{ScoringItemID: 1, Score: &score}}, nil))

	// Numeric and string forms of the same identifier resolve identically.
	require.True(t, registry.HasEvaluator(5))
	require.True(t, registry.HasEvaluator("5"))
	require.True(t, registry.HasEvaluator(uint(5)))
	require.False(t, registry.HasEvaluator(6))

	results, err := registry.Evaluate(context.Background(), "5", Criteria{}, nil, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
}

func TestRegistryEvaluateUnregistered(t *testing.T) {
	registry := NewRegistry(zerolog.Nop())

	results, err := registry.Evaluate(context.Background(), 42, Criteria{}, nil, nil)
	require.NoError(t, err)
	require.Nil(t, results)
}

func TestRegistryLastRegistrationWins(t *testing.T) {
	registry := NewRegistry(zerolog.Nop())
	first := 1.0
	second := 2.0
	registry.Register(7, staticStrategy([]ItemResult{{ScoringItemID: 1, Score: &first}}, nil))
	registry.Register(7, staticStrategy([]ItemResult{{ScoringItemID: 1, Score: &second}}, nil))

	results, err := registry.Evaluate(context.Background(), 7, Criteria{}, nil, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.InDelta(t, 2.0, *results[0].Score, 0.001)
}

func TestRegistryWrapsStrategyErrors(t *testing.T) {
	registry := NewRegistry(zerolog.Nop())
	cause := errors.New("model unavailable")
	registry.Register(9, staticStrategy(nil, cause))

	_, err := registry.Evaluate(context.Background(), 9, Criteria{}, nil, nil)
	require.ErrorIs(t, err, cause)
}
