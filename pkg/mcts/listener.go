package mcts

// Snapshot of the planner state handed to listener callbacks.
type ListenerStats[S StateLike, A ActionLike] struct {
	MaxDepth   int
	Iterations int
	TimeMs     int
	Ips        int // iterations per second
	Size       int
	RootVisits int

	// Best root edge under the configured extraction policy, zero value
	// while the root has no edges
	Best ActionValue[A]

	// Greedy action line from the root
	Line []A

	StopReason StopReason
}

// Convert the planner's counters and tree into a ListenerStats struct
func toListenerStats[S StateLike, A ActionLike](p *Planner[S, A]) ListenerStats[S, A] {
	stats := ListenerStats[S, A]{
		MaxDepth:   p.MaxDepth(),
		Iterations: p.Iterations(),
		TimeMs:     p.limiter.Elapsed(),
		Ips:        p.Ips(),
		Size:       p.Size(),
		StopReason: p.limiter.StopReason(),
	}

	if p.tree != nil {
		stats.RootVisits = p.tree.root.totalN
		if top := p.TopActions(1); len(top) > 0 {
			stats.Best = top[0]
		}
		stats.Line = p.PreferredLine(p.MaxDepth() + 1)
	}

	return stats
}

// Listener callback, receives the current planner statistics
type ListenerFunc[S StateLike, A ActionLike] func(ListenerStats[S, A])

// StatsListener fans search progress out to optional callbacks. All of
// them run on the goroutine that called Plan.
type StatsListener[S StateLike, A ActionLike] struct {
	// called when the deepest descent so far gets deeper
	onDepth ListenerFunc[S, A]

	// called every nIterations full iterations
	onIteration ListenerFunc[S, A]
	nIterations int

	// called when the search stops, StopReason is set by then
	onStop ListenerFunc[S, A]
}

func NewStatsListener[S StateLike, A ActionLike]() StatsListener[S, A] {
	return StatsListener[S, A]{nIterations: 1}
}

// Attach a new max-depth-increase callback
func (listener *StatsListener[S, A]) OnDepth(onDepth ListenerFunc[S, A]) *StatsListener[S, A] {
	listener.onDepth = onDepth
	return listener
}

// Attach an every-N-iterations callback. Building the snapshot walks
// the tree for the preferred line, so a small interval slows the search
// down noticeably, use it for debugging.
func (listener *StatsListener[S, A]) OnIteration(onIteration ListenerFunc[S, A]) *StatsListener[S, A] {
	listener.onIteration = onIteration
	return listener
}

func (listener *StatsListener[S, A]) SetIterationInterval(n int) *StatsListener[S, A] {
	if n < 1 {
		n = 1
	}
	listener.nIterations = n
	return listener
}

// Attach an 'on search end' callback, called once per Plan
func (listener *StatsListener[S, A]) OnStop(onStop ListenerFunc[S, A]) *StatsListener[S, A] {
	listener.onStop = onStop
	return listener
}
