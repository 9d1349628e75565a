package mcts

import (
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/sampleuv"
)

// Running statistics of a state-action edge. q is the mean of all
// values backed up through the edge, folded in incrementally so no
// return history is kept.
type edgeStats struct {
	n int
	q float64
}

func (st *edgeStats) addVisit(value float64) {
	st.n++
	st.q += (value - st.q) / float64(st.n)
}

// One realized successor of an edge. count tracks how many model
// samples landed on exactly this state, reward is the running mean of
// the immediate rewards observed with those samples.
type successor[S StateLike, A ActionLike] struct {
	node   *stateNode[S, A]
	count  int
	reward float64
}

func (sc *successor[S, A]) observe(reward float64) {
	sc.count++
	sc.reward += (reward - sc.reward) / float64(sc.count)
}

// Edge for one admitted action. Successors are held both in a map, to
// merge repeated samples of the same state, and in a slice keeping the
// realization order, so iteration never depends on map ordering.
type edge[S StateLike, A ActionLike] struct {
	edgeStats
	action  A
	order   []*successor[S, A]
	byState map[S]*successor[S, A]
}

func newEdge[S StateLike, A ActionLike](a A, n0 int, q0 float64) *edge[S, A] {
	return &edge[S, A]{
		edgeStats: edgeStats{n: n0, q: q0},
		action:    a,
		byState:   make(map[S]*successor[S, A]),
	}
}

func (e *edge[S, A]) successorFor(s S) (*successor[S, A], bool) {
	sc, ok := e.byState[s]
	return sc, ok
}

func (e *edge[S, A]) addSuccessor(node *stateNode[S, A], reward float64) *successor[S, A] {
	sc := &successor[S, A]{node: node, count: 1, reward: reward}
	e.order = append(e.order, sc)
	e.byState[node.state] = sc
	return sc
}

// Weighted draw over the realized successors, proportional to how often
// the model produced each one. Approximates the transition distribution
// without keeping every sample around.
func (e *edge[S, A]) sampleSuccessor(rng *rand.Rand) *successor[S, A] {
	if len(e.order) == 1 {
		return e.order[0]
	}

	weights := make([]float64, len(e.order))
	for i, sc := range e.order {
		weights[i] = float64(sc.count)
	}

	idx, ok := sampleuv.NewWeighted(weights, rng).Take()
	if !ok {
		idx = 0
	}
	return e.order[idx]
}

// UCB1 priority of the edge: Q + c*sqrt(ln(totalN)/N). Untried edges
// always win, so every admitted action is sampled at least once before
// the bound starts to matter.
func (e *edge[S, A]) priority(c, lnTotal float64) float64 {
	if e.n == 0 {
		return math.Inf(1)
	}
	if c == 0 {
		return e.q
	}
	return e.q + c*math.Sqrt(lnTotal/float64(e.n))
}

type stateNode[S StateLike, A ActionLike] struct {
	state  S
	totalN int

	// full action set admitted, only meaningful without widening
	expanded bool

	order    []*edge[S, A]
	byAction map[A]*edge[S, A]
}

func newStateNode[S StateLike, A ActionLike](s S) *stateNode[S, A] {
	return &stateNode[S, A]{
		state:    s,
		byAction: make(map[A]*edge[S, A]),
	}
}

func (nd *stateNode[S, A]) edge(a A) (*edge[S, A], bool) {
	e, ok := nd.byAction[a]
	return e, ok
}

// addEdge attaches a new action edge seeded with (n0, q0). The phantom
// visits count toward the node total, keeping totalN equal to the sum
// of all edge visit counts at every point in time.
func (nd *stateNode[S, A]) addEdge(a A, n0 int, q0 float64) *edge[S, A] {
	e := newEdge[S, A](a, n0, q0)
	nd.order = append(nd.order, e)
	nd.byAction[a] = e
	nd.totalN += n0
	return e
}

// recordVisit folds one backed up value into the edge and bumps the
// owning node's total.
func (nd *stateNode[S, A]) recordVisit(e *edge[S, A], value float64) {
	e.addVisit(value)
	nd.totalN++
}

func (nd *stateNode[S, A]) tried() []A {
	actions := make([]A, len(nd.order))
	for i, e := range nd.order {
		actions[i] = e.action
	}
	return actions
}

// selectEdge is the UCB1 argmax over the node's edges, ties go to the
// earliest admitted action.
func (nd *stateNode[S, A]) selectEdge(c float64) *edge[S, A] {
	if len(nd.order) == 0 {
		return nil
	}

	var lnTotal float64
	if nd.totalN > 0 {
		lnTotal = math.Log(float64(nd.totalN))
	}

	best := nd.order[0]
	bestPriority := best.priority(c, lnTotal)
	for _, e := range nd.order[1:] {
		if p := e.priority(c, lnTotal); p > bestPriority {
			best = e
			bestPriority = p
		}
	}
	return best
}
