package mcts

import (
	"encoding/json"
	"math"
	"strings"
)

type Limits struct {
	// Maximum descent depth of a single iteration, this one never stops
	// the search, it only caps how far each simulation walks
	Depth int

	// Maximum number of state nodes in the tree
	Nodes int

	// Maximum number of simulate/backup iterations
	Iterations int

	// Thinking time in milliseconds, negative means no time limit
	Movetime int

	// When true only Stop or context cancellation end the search
	Infinite bool
}

func (l Limits) String() string {
	builder := strings.Builder{}
	_ = json.NewEncoder(&builder).Encode(l)
	return strings.TrimSuffix(builder.String(), "\n")
}

const (
	DefaultDepthLimit      int = 10
	DefaultNodeLimit       int = math.MaxInt
	DefaultIterationsLimit int = 100
	DefaultMovetimeLimit   int = -1
)

// DefaultLimits is the conventional online planning budget: a shallow
// per-iteration depth, a small iteration count, no wall clock bound.
func DefaultLimits() *Limits {
	return &Limits{
		Depth:      DefaultDepthLimit,
		Nodes:      DefaultNodeLimit,
		Iterations: DefaultIterationsLimit,
		Movetime:   DefaultMovetimeLimit,
		Infinite:   false,
	}
}

// Set the maximum descent depth of a single iteration
func (l *Limits) SetDepth(depth int) *Limits {
	l.Depth = depth
	return l
}

// Set the maximum number of state nodes the tree may grow to
func (l *Limits) SetNodes(nodes int) *Limits {
	l.Nodes = nodes
	l.Infinite = false
	return l
}

// Set the number of search iterations
func (l *Limits) SetIterations(iterations int) *Limits {
	l.Iterations = iterations
	l.Infinite = false
	return l
}

// Set the maximum time for the planner to think, in milliseconds
func (l *Limits) SetMovetime(movetime int) *Limits {
	l.Movetime = movetime
	l.Infinite = false
	return l
}

// Keep searching until stopped explicitly, Depth still applies to each
// iteration
func (l *Limits) SetInfinite(infinite bool) *Limits {
	l.Infinite = infinite
	return l
}
