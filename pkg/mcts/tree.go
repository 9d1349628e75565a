package mcts

// Search tree store. Nodes are owned by the tree, edges by their node.
// With transpositions enabled equal states share a single node, which
// turns the tree into a graph, so the walks below guard against
// revisits.
type tree[S StateLike, A ActionLike] struct {
	root    *stateNode[S, A]
	byState map[S]*stateNode[S, A]
	size    int
}

func newTree[S StateLike, A ActionLike](root S, transpositions bool) *tree[S, A] {
	t := &tree[S, A]{
		root: newStateNode[S, A](root),
		size: 1,
	}
	if transpositions {
		t.byState = map[S]*stateNode[S, A]{root: t.root}
	}
	return t
}

// node returns the state's node, creating one when absent. The second
// result reports whether a brand-new node was created. Without
// transpositions every call creates, per-edge merging of repeated
// samples happens before the tree is asked.
func (t *tree[S, A]) node(s S) (*stateNode[S, A], bool) {
	if t.byState != nil {
		if nd, ok := t.byState[s]; ok {
			return nd, false
		}
	}

	nd := newStateNode[S, A](s)
	if t.byState != nil {
		t.byState[s] = nd
	}
	t.size++
	return nd, true
}

// rebase makes nd the new root and drops everything unreachable from
// it. Size and the transposition index are rebuilt by walking the kept
// subtree.
func (t *tree[S, A]) rebase(nd *stateNode[S, A]) {
	t.root = nd
	t.size = 0
	if t.byState != nil {
		t.byState = make(map[S]*stateNode[S, A])
	}

	seen := make(map[*stateNode[S, A]]bool)
	stack := []*stateNode[S, A]{nd}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[cur] {
			continue
		}
		seen[cur] = true

		t.size++
		if t.byState != nil {
			t.byState[cur.state] = cur
		}

		for _, e := range cur.order {
			for _, sc := range e.order {
				if !seen[sc.node] {
					stack = append(stack, sc.node)
				}
			}
		}
	}
}
