package mcts

// Read-only deep copy of the search tree, for inspection, debugging and
// tests. With transpositions the same *NodeView shows up under every
// edge that reaches the shared state.
type TreeView[S StateLike, A ActionLike] struct {
	Root *NodeView[S, A]
	Size int
}

type NodeView[S StateLike, A ActionLike] struct {
	State  S
	TotalN int

	// Expanded reports whether the full legal action set was admitted,
	// always false under widening
	Expanded bool

	Edges []EdgeView[S, A]
}

type EdgeView[S StateLike, A ActionLike] struct {
	Action     A
	N          int
	Q          float64
	Successors []SuccessorView[S, A]
}

type SuccessorView[S StateLike, A ActionLike] struct {
	Node   *NodeView[S, A]
	Count  int
	Reward float64
}

// InspectTree snapshots the current tree, nil before the first Plan or
// after Reset. The copy is detached, later searches won't touch it.
func (p *Planner[S, A]) InspectTree() *TreeView[S, A] {
	if p.tree == nil {
		return nil
	}

	memo := make(map[*stateNode[S, A]]*NodeView[S, A])
	return &TreeView[S, A]{
		Root: snapshotNode(p.tree.root, memo),
		Size: p.tree.size,
	}
}

func snapshotNode[S StateLike, A ActionLike](nd *stateNode[S, A], memo map[*stateNode[S, A]]*NodeView[S, A]) *NodeView[S, A] {
	if view, ok := memo[nd]; ok {
		return view
	}

	view := &NodeView[S, A]{State: nd.state, TotalN: nd.totalN, Expanded: nd.expanded}
	// Register before walking the edges, transposition cycles end here
	memo[nd] = view

	view.Edges = make([]EdgeView[S, A], len(nd.order))
	for i, e := range nd.order {
		ev := EdgeView[S, A]{
			Action:     e.action,
			N:          e.n,
			Q:          e.q,
			Successors: make([]SuccessorView[S, A], len(e.order)),
		}
		for j, sc := range e.order {
			ev.Successors[j] = SuccessorView[S, A]{
				Node:   snapshotNode(sc.node, memo),
				Count:  sc.count,
				Reward: sc.reward,
			}
		}
		view.Edges[i] = ev
	}

	return view
}
