package mcts

import (
	"fmt"

	"golang.org/x/exp/rand"
)

// The three hook points of the planner. Each one ships with small
// adapters, so most callers never implement the interfaces directly.

// NodeInitializer seeds the (N, Q) statistics of a freshly admitted
// edge. An optimistic prior (q0 above the reachable values, a few
// phantom visits) steers early selection toward actions a heuristic
// likes, without fixing the choice forever.
type NodeInitializer[S StateLike, A ActionLike] interface {
	// InitEdge returns the starting visit count and mean value for the
	// (s, a) edge. n0 must be >= 0 and q0 must not be NaN.
	InitEdge(s S, a A) (n0 int, q0 float64, err error)
}

// ValueEstimator scores a leaf state when the descent cannot continue:
// remaining depth ran out, or a brand-new node was just created. The
// estimate is backed up directly, it is not a tie-breaker.
type ValueEstimator[S StateLike, A ActionLike] interface {
	EstimateValue(m Model[S, A], s S, remaining int, rng *rand.Rand) (float64, error)
}

// ActionGenerator proposes the next action to admit when action
// widening opens a slot. tried holds the actions already attached to
// the node, in admission order. Returning an already tried action is
// fine, the planner re-draws up to its retry budget.
type ActionGenerator[S StateLike, A ActionLike] interface {
	NextAction(s S, tried []A, rng *rand.Rand) (A, error)
}

// InitConst returns a NodeInitializer seeding every edge with the same
// statistics. InitConst(0, 0) is the default.
func InitConst[S StateLike, A ActionLike](n0 int, q0 float64) NodeInitializer[S, A] {
	return initConst[S, A]{n0: n0, q0: q0}
}

type initConst[S StateLike, A ActionLike] struct {
	n0 int
	q0 float64
}

func (c initConst[S, A]) InitEdge(s S, a A) (int, float64, error) {
	return c.n0, c.q0, nil
}

// InitFunc adapts a plain function into a NodeInitializer.
type InitFunc[S StateLike, A ActionLike] func(s S, a A) (n0 int, q0 float64)

func (f InitFunc[S, A]) InitEdge(s S, a A) (int, float64, error) {
	n0, q0 := f(s, a)
	return n0, q0, nil
}

// ValueConst estimates every leaf with the same fixed value, useful as
// a neutral baseline or in tests.
func ValueConst[S StateLike, A ActionLike](v float64) ValueEstimator[S, A] {
	return valueConst[S, A]{v: v}
}

type valueConst[S StateLike, A ActionLike] struct {
	v float64
}

func (c valueConst[S, A]) EstimateValue(m Model[S, A], s S, remaining int, rng *rand.Rand) (float64, error) {
	return c.v, nil
}

// ValueFunc adapts a plain heuristic function into a ValueEstimator.
type ValueFunc[S StateLike, A ActionLike] func(s S, remaining int) float64

func (f ValueFunc[S, A]) EstimateValue(m Model[S, A], s S, remaining int, rng *rand.Rand) (float64, error) {
	return f(s, remaining), nil
}

// RolloutPolicy picks the next action during a rollout. legal is nil
// when the model does not implement ActionSpace.
type RolloutPolicy[S StateLike, A ActionLike] func(s S, legal []A, rng *rand.Rand) A

// RolloutEstimator scores a leaf by playing a policy against the model
// and summing discounted rewards. The zero value plays uniformly
// random legal actions for the whole remaining depth, which is the
// planner's default estimator.
type RolloutEstimator[S StateLike, A ActionLike] struct {
	// Policy picks the rollout actions, nil means uniform over
	// LegalActions
	Policy RolloutPolicy[S, A]

	// MaxDepth caps the rollout length, 0 means the remaining search
	// depth
	MaxDepth int
}

func (r RolloutEstimator[S, A]) EstimateValue(m Model[S, A], s S, remaining int, rng *rand.Rand) (float64, error) {
	space, hasSpace := m.(ActionSpace[S, A])
	if r.Policy == nil && !hasSpace {
		return 0, fmt.Errorf("rollout without a policy: %w", ErrNoActionSpace)
	}

	horizon := remaining
	if r.MaxDepth > 0 && r.MaxDepth < horizon {
		horizon = r.MaxDepth
	}

	var (
		total float64
		df    = 1.0
		gamma = m.Discount()
	)

	for step := 0; step < horizon && !m.IsTerminal(s); step++ {
		var legal []A
		if hasSpace {
			legal = space.LegalActions(s)
		}

		var a A
		if r.Policy != nil {
			a = r.Policy(s, legal, rng)
		} else {
			if len(legal) == 0 {
				// Dead end, nothing more to score
				break
			}
			a = legal[rng.Intn(len(legal))]
		}

		next, reward, err := m.Step(s, a, rng)
		if err != nil {
			return 0, fmt.Errorf("rollout step %d: %w", step, err)
		}

		total += df * reward
		df *= gamma
		s = next
	}

	return total, nil
}

// RandomActions draws uniformly from the model's legal action set,
// ignoring what was already tried. This is the default generator of a
// widened search whenever the model has an ActionSpace.
type RandomActions[S StateLike, A ActionLike] struct {
	Space ActionSpace[S, A]
}

func (g RandomActions[S, A]) NextAction(s S, tried []A, rng *rand.Rand) (A, error) {
	legal := g.Space.LegalActions(s)
	if len(legal) == 0 {
		var zero A
		return zero, fmt.Errorf("no legal action in state %v: %w", s, ErrNoActionAvailable)
	}
	return legal[rng.Intn(len(legal))], nil
}

// ActionFunc adapts a plain function into an ActionGenerator. Good for
// large or continuous action sets where sampling beats enumeration.
type ActionFunc[S StateLike, A ActionLike] func(s S, tried []A, rng *rand.Rand) A

func (f ActionFunc[S, A]) NextAction(s S, tried []A, rng *rand.Rand) (A, error) {
	return f(s, tried, rng), nil
}
