package mcts

import "slices"

// ActionValue is one root action together with its edge statistics.
type ActionValue[A ActionLike] struct {
	Action A
	N      int
	Q      float64
}

// BestAction reads the current tree without searching, so it is cheap
// and repeatable: calling it twice in a row returns the same action and
// changes nothing.
func (p *Planner[S, A]) BestAction() (A, error) {
	var zero A
	if p.tree == nil || len(p.tree.root.order) == 0 {
		return zero, ErrNoActionAvailable
	}
	return p.bestEdge(p.tree.root).action, nil
}

// Extraction argmax under the configured policy, ties go to the
// earliest admitted action
func (p *Planner[S, A]) bestEdge(node *stateNode[S, A]) *edge[S, A] {
	best := node.order[0]
	for _, e := range node.order[1:] {
		switch p.bestPolicy {
		case BestActionMostVisits:
			if e.n > best.n {
				best = e
			}
		default:
			if e.q > best.q {
				best = e
			}
		}
	}
	return best
}

// TopActions returns up to k root actions, best first under the
// configured policy. Handy for debug output and for weighted arena
// opponents.
func (p *Planner[S, A]) TopActions(k int) []ActionValue[A] {
	if p.tree == nil || k <= 0 {
		return nil
	}

	root := p.tree.root
	vals := make([]ActionValue[A], 0, len(root.order))
	for _, e := range root.order {
		vals = append(vals, ActionValue[A]{Action: e.action, N: e.n, Q: e.q})
	}

	slices.SortStableFunc(vals, func(a, b ActionValue[A]) int {
		if p.bestPolicy == BestActionMostVisits {
			return b.N - a.N
		}
		switch {
		case b.Q > a.Q:
			return 1
		case b.Q < a.Q:
			return -1
		}
		return 0
	})

	if k < len(vals) {
		vals = vals[:k:k]
	}
	return vals
}

// PreferredLine is the greedy action line from the root: best edge,
// then its most sampled successor, repeated up to maxLen actions.
// Cycles introduced by transpositions cut the line short.
func (p *Planner[S, A]) PreferredLine(maxLen int) []A {
	if p.tree == nil || maxLen <= 0 {
		return nil
	}

	line := make([]A, 0, maxLen)
	seen := make(map[*stateNode[S, A]]bool)

	node := p.tree.root
	for len(line) < maxLen && !seen[node] && len(node.order) > 0 {
		seen[node] = true

		e := p.bestEdge(node)
		line = append(line, e.action)

		var next *successor[S, A]
		for _, sc := range e.order {
			if next == nil || sc.count > next.count {
				next = sc
			}
		}
		if next == nil {
			break
		}
		node = next.node
	}

	return line
}
