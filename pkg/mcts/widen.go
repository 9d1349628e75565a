package mcts

import "math"

// Widening holds the double progressive widening knobs. The action pair
// caps how many actions a node may try as a function of the node's
// visit count, the state pair caps how many distinct successors an
// edge may realize as a function of the edge's visit count. Both caps
// grow as k*n^alpha, so alpha sets the growth curve and k its scale.
type Widening struct {
	KAction     float64
	AlphaAction float64
	KState      float64
	AlphaState  float64
}

// DefaultWidening is the usual starting point: a generous k with a
// square root growth curve on both sides.
func DefaultWidening() Widening {
	return Widening{
		KAction:     10,
		AlphaAction: 0.5,
		KState:      10,
		AlphaState:  0.5,
	}
}

// permitsAction reports whether a node with the given visit count and
// tried actions may admit one more. The first action is always allowed,
// afterwards the tried count must stay strictly under the k*n^alpha
// cap, so an integer cap of 10 admits at most 10 actions.
func (w Widening) permitsAction(tried, visits int) bool {
	if tried == 0 {
		return true
	}
	return float64(tried) < w.KAction*math.Pow(float64(visits), w.AlphaAction)
}

// permitsSuccessor is the analogous test on the state side: whether an
// edge with the given visit count and realized distinct successors may
// realize a fresh sample. The first visit of an edge always realizes.
func (w Widening) permitsSuccessor(realized, visits int) bool {
	if realized == 0 {
		return true
	}
	return float64(realized) < w.KState*math.Pow(float64(visits), w.AlphaState)
}
