package mcts

import (
	"errors"
	"fmt"
	"math"
)

// One level of a descent, kept so the backup can unwind without
// recursion.
type frame[S StateLike, A ActionLike] struct {
	node   *stateNode[S, A]
	via    *edge[S, A]
	reward float64
}

// Plan searches from root under the configured budget and returns the
// best root action. The previous tree is discarded unless tree reuse is
// on and its root matches.
//
// Fatal errors (model step failures, broken hook contracts) abort the
// search immediately, the iteration that hit them backs up nothing.
func (p *Planner[S, A]) Plan(root S) (A, error) {
	var zero A

	if p.widening == nil && p.space == nil {
		return zero, fmt.Errorf("full expansion needs LegalActions: %w", ErrNoActionSpace)
	}
	if p.widening != nil && p.generate == nil {
		return zero, fmt.Errorf("widened search needs an ActionGenerator: %w", ErrNoActionSpace)
	}

	if p.tree == nil || !p.reuseTree || p.tree.root.state != root {
		p.tree = newTree[S, A](root, p.transpositions)
	}

	p.setupSearch()
	p.logger.Debug().
		Stringer("limits", p.limiter.Limits()).
		Bool("widened", p.widening != nil).
		Int("cached_size", p.tree.size).
		Msg("plan start")

	for p.limiter.Ok(p.tree.size, p.iterations) {
		if err := p.simulate(); err != nil {
			p.limiter.SetStop(true)
			return zero, err
		}

		p.iterations++
		p.ips = p.iterations * 1000 / p.limiter.Elapsed()

		if p.listener.onIteration != nil && p.iterations%p.listener.nIterations == 0 {
			p.listener.onIteration(toListenerStats(p))
		}
	}

	p.limiter.EvaluateStopReason(p.tree.size, p.iterations)
	p.limiter.SetStop(true)
	p.invokeListener(p.listener.onStop)

	best, err := p.BestAction()
	if err != nil {
		return zero, err
	}

	p.logger.Debug().
		Int("iterations", p.iterations).
		Int("size", p.tree.size).
		Int("max_depth", p.maxDepth).
		Stringer("stop", p.limiter.StopReason()).
		Msg("plan done")

	return best, nil
}

// Resets the counters and arms the limiter, doesn't run anything
func (p *Planner[S, A]) setupSearch() {
	p.limiter.Reset()
	p.iterations = 0
	p.maxDepth = 0
	p.ips = 0
}

// simulate runs one selection/expansion/backup pass:
//
// 1. descend by UCB1, widening action sets and successor sets on the way
//
// 2. stop at a terminal state, at depth 0, or at a brand-new node and
// score the leaf
//
// 3. unwind the visited path, folding reward + gamma*value into every
// edge
//
// Edge and node statistics are only written during the unwind, an error
// mid-descent leaves every (N, Q) pair untouched.
func (p *Planner[S, A]) simulate() error {
	var (
		node  = p.tree.root
		state = p.tree.root.state
		depth = p.limiter.Limits().Depth
		stack = make([]frame[S, A], 0, min(max(depth, 0), 64))
		leaf  float64
	)

	for {
		if p.model.IsTerminal(state) {
			leaf = 0
			break
		}
		if depth <= 0 {
			v, err := p.estimateLeaf(state, 0)
			if err != nil {
				return err
			}
			leaf = v
			break
		}

		if err := p.admitActions(node); err != nil {
			return err
		}
		if len(node.order) == 0 {
			// Dead end, no action applies here
			v, err := p.estimateLeaf(state, depth)
			if err != nil {
				return err
			}
			leaf = v
			break
		}

		e := node.selectEdge(p.exploration)
		sc, created, reward, err := p.advance(node, e, state)
		if err != nil {
			return err
		}

		stack = append(stack, frame[S, A]{node: node, via: e, reward: reward})

		if created {
			// First contact with this state, score it instead of
			// descending further
			if p.model.IsTerminal(sc.node.state) {
				leaf = 0
			} else {
				v, err := p.estimateLeaf(sc.node.state, depth-1)
				if err != nil {
					return err
				}
				leaf = v
			}
			break
		}

		node = sc.node
		state = sc.node.state
		depth--
	}

	gamma := p.model.Discount()
	for i := len(stack) - 1; i >= 0; i-- {
		f := stack[i]
		value := f.reward + gamma*leaf
		f.node.recordVisit(f.via, value)
		leaf = value
	}

	if d := len(stack); d > p.maxDepth {
		p.maxDepth = d
		p.invokeListener(p.listener.onDepth)
	}

	return nil
}

// admitActions grows a node's action set. Plain search expands every
// legal action the first time through, widened search admits at most
// one new action per visit while the tried count stays under the cap.
func (p *Planner[S, A]) admitActions(node *stateNode[S, A]) error {
	if p.widening == nil {
		if node.expanded {
			return nil
		}
		node.expanded = true
		for _, a := range p.space.LegalActions(node.state) {
			if _, dup := node.edge(a); dup {
				continue
			}
			if err := p.attachEdge(node, a); err != nil {
				return err
			}
		}
		return nil
	}

	if !p.widening.permitsAction(len(node.order), node.totalN) {
		return nil
	}

	tried := node.tried()
	for attempt := 0; ; attempt++ {
		a, err := p.generate.NextAction(node.state, tried, p.rng)
		if err != nil {
			if errors.Is(err, ErrNoActionAvailable) {
				// Generator has nothing for this state, select among
				// whatever the node already has
				return nil
			}
			return fmt.Errorf("next action: %w", err)
		}

		if _, dup := node.edge(a); !dup {
			return p.attachEdge(node, a)
		}
		if attempt >= p.retryBudget {
			p.logger.Warn().
				Int("tried", len(tried)).
				Msg("action retry budget spent, keeping current edges")
			return nil
		}
	}
}

func (p *Planner[S, A]) attachEdge(node *stateNode[S, A], a A) error {
	n0, q0, err := p.init.InitEdge(node.state, a)
	if err != nil {
		return fmt.Errorf("init edge: %w", err)
	}
	if n0 < 0 || math.IsNaN(q0) {
		return fmt.Errorf("init edge (%v): n0=%d q0=%v: %w", a, n0, q0, ErrHookContract)
	}

	node.addEdge(a, n0, q0)
	return nil
}

// advance resolves the node below the chosen edge. Either a fresh model
// sample, merged into an existing successor when this edge saw the
// state before, or, when state widening caps the edge, a reuse draw
// over the realized successors with their stored mean reward.
func (p *Planner[S, A]) advance(node *stateNode[S, A], e *edge[S, A], state S) (sc *successor[S, A], created bool, reward float64, err error) {
	if p.widening != nil && !p.widening.permitsSuccessor(len(e.order), e.n) {
		sc = e.sampleSuccessor(p.rng)
		return sc, false, sc.reward, nil
	}

	next, reward, err := p.model.Step(state, e.action, p.rng)
	if err != nil {
		return nil, false, 0, fmt.Errorf("step (%v): %w", e.action, err)
	}

	if sc, ok := e.successorFor(next); ok {
		sc.observe(reward)
		return sc, false, reward, nil
	}

	child, created := p.tree.node(next)
	sc = e.addSuccessor(child, reward)
	return sc, created, reward, nil
}

func (p *Planner[S, A]) estimateLeaf(state S, remaining int) (float64, error) {
	v, err := p.estimate.EstimateValue(p.model, state, remaining, p.rng)
	if err != nil {
		return 0, fmt.Errorf("estimate value: %w", err)
	}
	if math.IsNaN(v) {
		return 0, fmt.Errorf("estimate value is NaN: %w", ErrHookContract)
	}
	return v, nil
}
