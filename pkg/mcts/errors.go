package mcts

import "errors"

var (
	// ErrInvalidState should be returned (possibly wrapped) by Model
	// implementations asked to step from a state they cannot handle.
	// The planner treats every Step error as fatal for the whole search.
	ErrInvalidState = errors.New("mcts: invalid state")

	// ErrNoActionAvailable is returned by Plan and BestAction when the
	// root has no edges to pick from: terminal root, an empty legal
	// action set, or a budget that never allowed a single iteration on
	// a fresh tree.
	ErrNoActionAvailable = errors.New("mcts: no action available")

	// ErrHookContract flags a user hook breaking its contract, for
	// example a negative initial visit count or a NaN value estimate.
	ErrHookContract = errors.New("mcts: hook contract violation")

	// ErrNoActionSpace is returned when the planner needs legal actions
	// but the model does not implement ActionSpace and no replacement
	// hook was configured.
	ErrNoActionSpace = errors.New("mcts: model does not provide an action space")
)
