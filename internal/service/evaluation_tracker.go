package service

import "sync"

// wholeModuleToken marks a module-level run in a tracker set. Contestant IDs
// are database serials and never zero, so the sentinel cannot collide.
const wholeModuleToken uint = 0

// EvaluationTracker prevents overlapping automated-evaluation runs. It holds
// one token set per module: either specific contestant IDs or the
// whole-module token. State is process-local only; a restart clears it.
//
// The tracker is created once and handed to the services that need it, never
// reached through package-level state.
type EvaluationTracker struct {
	mu         sync.Mutex
	inProgress map[uint]map[uint]struct{}
}

// NewEvaluationTracker builds an empty tracker.
func NewEvaluationTracker() *EvaluationTracker {
	return &EvaluationTracker{inProgress: make(map[uint]map[uint]struct{})}
}

// IsEvaluating reports whether a run holds the given token. With
// contestantID zero it asks whether any run at all is active for the module.
func (t *EvaluationTracker) IsEvaluating(moduleID, contestantID uint) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	tokens, ok := t.inProgress[moduleID]
	if !ok {
		return false
	}
	if contestantID == wholeModuleToken {
		return len(tokens) > 0
	}

	_, active := tokens[contestantID]
	return active
}

// TryStart atomically claims the token. It returns false when the same token
// is already held; the check and the insert share one critical section so
// two concurrent triggers can never both be admitted.
func (t *EvaluationTracker) TryStart(moduleID, contestantID uint) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	tokens, ok := t.inProgress[moduleID]
	if !ok {
		tokens = make(map[uint]struct{})
		t.inProgress[moduleID] = tokens
	}

	if contestantID == wholeModuleToken {
		if len(tokens) > 0 {
			return false
		}
	} else if _, active := tokens[contestantID]; active {
		return false
	}

	tokens[contestantID] = struct{}{}
	return true
}

// End releases the token. Empty sets are removed so memory does not grow
// with the number of modules ever evaluated.
func (t *EvaluationTracker) End(moduleID, contestantID uint) {
	t.mu.Lock()
	defer t.mu.Unlock()

	tokens, ok := t.inProgress[moduleID]
	if !ok {
		return
	}

	delete(tokens, contestantID)
	if len(tokens) == 0 {
		delete(t.inProgress, moduleID)
	}
}

// ActiveModules returns the number of modules with at least one run in
// flight. Intended for tests and introspection.
func (t *EvaluationTracker) ActiveModules() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.inProgress)
}
