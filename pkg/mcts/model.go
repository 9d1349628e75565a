package mcts

import "golang.org/x/exp/rand"

// Model is the generative interface the planner works against. The
// planner never asks for transition probabilities, it only draws
// sampled transitions through Step, so any simulator that can roll a
// state forward is a valid model.
type Model[S StateLike, A ActionLike] interface {
	// Step samples one transition: the successor state and the
	// immediate reward for taking action a in state s. Return
	// ErrInvalidState (plain or wrapped) for states outside the
	// reachable set. Any error aborts the running search.
	Step(s S, a A, rng *rand.Rand) (next S, reward float64, err error)

	// IsTerminal reports whether s ends the decision process. Terminal
	// states are never expanded and contribute zero future value.
	IsTerminal(s S) bool

	// Discount is the per-step discount factor gamma, in [0, 1].
	Discount() float64
}

// ActionSpace is an optional capability of a Model. Non-widened search
// needs it to expand the full action set of a node, and the default
// rollout estimator and action generator are built on it. Keep the
// returned order stable for a given state: selection tie-breaks and
// therefore seeded-run reproducibility follow it.
type ActionSpace[S StateLike, A ActionLike] interface {
	LegalActions(s S) []A
}
