package service

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTrackerModuleRunBlocksEverything(t *testing.T) {
	tracker := NewEvaluationTracker()

	require.True(t, tracker.TryStart(1, 0))

	require.False(t, tracker.TryStart(1, 0), "second module run must be rejected")
	require.True(t, tracker.IsEvaluating(1, 0))

	// Other modules are unaffected.
	require.True(t, tracker.TryStart(2, 0))
}

func TestTrackerContestantRuns(t *testing.T) {
	tracker := NewEvaluationTracker()

	require.True(t, tracker.TryStart(1, 10))
	require.True(t, tracker.TryStart(1, 11), "different contestants may run concurrently")
	require.False(t, tracker.TryStart(1, 10), "same contestant must be rejected")

	// A module-level run is blocked while any contestant run is active.
	require.False(t, tracker.TryStart(1, 0))
	require.True(t, tracker.IsEvaluating(1, 0))
	require.True(t, tracker.IsEvaluating(1, 10))
	require.False(t, tracker.IsEvaluating(1, 12))
}

func TestTrackerEndReleasesToken(t *testing.T) {
	tracker := NewEvaluationTracker()

	require.True(t, tracker.TryStart(1, 10))
	tracker.End(1, 10)

	require.False(t, tracker.IsEvaluating(1, 10))
	require.True(t, tracker.TryStart(1, 10))
	tracker.End(1, 10)

	require.True(t, tracker.TryStart(1, 0), "module run admitted once contestants finished")
}

func TestTrackerCleansUpEmptySets(t *testing.T) {
	tracker := NewEvaluationTracker()

	for moduleID := uint(1); moduleID <= 100; moduleID++ {
		require.True(t, tracker.TryStart(moduleID, 5))
		tracker.End(moduleID, 5)
	}

	require.Equal(t, 0, tracker.ActiveModules(), "finished modules must not linger")
}

func TestTrackerEndUnknownTokenIsHarmless(t *testing.T) {
	tracker := NewEvaluationTracker()

	tracker.End(1, 10)
	tracker.End(99, 0)

	require.True(t, tracker.TryStart(1, 10))
}
