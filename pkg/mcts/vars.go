package mcts

import "time"

// Exploration parameter used in the UCB1 formula, higher values favor
// exploration, lower ones exploitation. sqrt(2) is the theoretical
// baseline for rewards in [0, 1], reward scales of real problems
// usually need tuning.
const DefaultExploration float64 = 1.0

// How many times a widened admission re-draws the action generator
// after it proposed an already tried action, before giving up for the
// iteration.
const DefaultRetryBudget int = 8

const (
	// Pick the root edge with the highest mean value Q, the default for
	// value-driven planning
	BestActionMaxQ BestActionPolicy = iota

	// Pick the most visited root edge, the classic robust MCTS choice
	BestActionMostVisits
)

var SeedGeneratorFn SeedGeneratorFnType = func() uint64 {
	return uint64(time.Now().UnixNano())
}

// Set a custom seed source for the planners' random number generators,
// by default the current time in nanoseconds. Tests pin this to get
// reproducible searches.
func SetSeedGeneratorFn(f SeedGeneratorFnType) {
	if f != nil {
		SeedGeneratorFn = f
	}
}
