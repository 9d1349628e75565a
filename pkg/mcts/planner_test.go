package mcts

import (
	"context"
	"fmt"
	"math"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
)

func TestMain(m *testing.M) {
	SetSeedGeneratorFn(func() uint64 {
		return 42
	})
	fmt.Printf("Using seed %d\n", SeedGeneratorFn())

	os.Exit(m.Run())
}

// Deterministic 4x4 grid, every reward is zero and no state is
// terminal, so all value comes from the leaf estimator.

type gridState struct{ x, y int }

type gridAction int

const (
	gridUp gridAction = iota
	gridDown
	gridLeft
	gridRight
)

type gridModel struct {
	size int
}

func (g gridModel) Step(s gridState, a gridAction, rng *rand.Rand) (gridState, float64, error) {
	switch a {
	case gridUp:
		s.y--
	case gridDown:
		s.y++
	case gridLeft:
		s.x--
	case gridRight:
		s.x++
	}
	s.x = min(max(s.x, 0), g.size-1)
	s.y = min(max(s.y, 0), g.size-1)
	return s, 0, nil
}

func (g gridModel) IsTerminal(gridState) bool { return false }
func (g gridModel) Discount() float64         { return 1.0 }

func (g gridModel) LegalActions(gridState) []gridAction {
	return []gridAction{gridUp, gridDown, gridLeft, gridRight}
}

// Line walk toward a rewarding goal state, the only nonzero reward is
// the step that reaches the goal.

const (
	walkLeft  = -1
	walkRight = 1
)

type walkModel struct {
	goal int
}

func (w walkModel) Step(s int, a int, rng *rand.Rand) (int, float64, error) {
	next := min(max(s+a, 0), w.goal)
	if next == w.goal {
		return next, 1, nil
	}
	return next, 0, nil
}

func (w walkModel) IsTerminal(s int) bool { return s == w.goal }
func (w walkModel) Discount() float64     { return 0.95 }

func (w walkModel) LegalActions(int) []int {
	return []int{walkLeft, walkRight}
}

// Both actions collapse into the same terminal successor, for
// transposition sharing tests.

type mergeModel struct{}

func (mergeModel) Step(s int, a int, rng *rand.Rand) (int, float64, error) {
	return 1, 0, nil
}

func (mergeModel) IsTerminal(s int) bool  { return s == 1 }
func (mergeModel) Discount() float64      { return 1.0 }
func (mergeModel) LegalActions(int) []int { return []int{0, 1} }

// Stochastic successors and a large action range, exercised through
// widening. No ActionSpace on purpose.

type noisyModel struct{}

func (noisyModel) Step(s int, a int, rng *rand.Rand) (int, float64, error) {
	next := s + 1 + rng.Intn(4)
	return next, float64(a%7) / 10, nil
}

func (noisyModel) IsTerminal(s int) bool { return s >= 40 }
func (noisyModel) Discount() float64     { return 0.9 }

// Model whose Step always fails.

type brokenModel struct{}

func (brokenModel) Step(s int, a int, rng *rand.Rand) (int, float64, error) {
	return 0, 0, fmt.Errorf("state %d out of range: %w", s, ErrInvalidState)
}

func (brokenModel) IsTerminal(int) bool    { return false }
func (brokenModel) Discount() float64      { return 1.0 }
func (brokenModel) LegalActions(int) []int { return []int{0, 1} }

// checkVisitSums walks a snapshot and verifies that every node's total
// equals the sum of its edge visit counts.
func checkVisitSums[S StateLike, A ActionLike](t *testing.T, view *NodeView[S, A], seen map[*NodeView[S, A]]bool) {
	t.Helper()
	if seen[view] {
		return
	}
	seen[view] = true

	sum := 0
	for _, e := range view.Edges {
		sum += e.N
	}
	if len(view.Edges) > 0 {
		require.Equal(t, view.TotalN, sum, "node %v total out of sync", view.State)
	}
	for _, e := range view.Edges {
		for _, sc := range e.Successors {
			checkVisitSums(t, sc.Node, seen)
		}
	}
}

func TestPlanFindsRewardingAction(t *testing.T) {
	planner := NewPlanner[int, int](walkModel{goal: 3},
		WithLimits[int, int](DefaultLimits().SetIterations(300)),
	)

	best, err := planner.Plan(2)
	require.NoError(t, err)
	require.Equal(t, walkRight, best, "one step from the goal the planner must walk right")

	// The rewarding edge converges to the exact terminal reward
	top := planner.TopActions(2)
	require.Len(t, top, 2)
	require.Equal(t, walkRight, top[0].Action)
	require.InDelta(t, 1.0, top[0].Q, 1e-9)
	require.Less(t, top[1].Q, 1.0)
}

func TestPlanGridScenario(t *testing.T) {
	planner := NewPlanner[gridState, gridAction](gridModel{size: 4},
		WithLimits[gridState, gridAction](DefaultLimits().SetIterations(3).SetDepth(15)),
		WithExploration[gridState, gridAction](0),
		WithNodeInitializer[gridState, gridAction](InitConst[gridState, gridAction](3, 11.73)),
		WithValueEstimator[gridState, gridAction](ValueConst[gridState, gridAction](11.73)),
	)

	best, err := planner.Plan(gridState{1, 1})
	require.NoError(t, err)
	require.Equal(t, gridUp, best)

	require.Equal(t, 3, planner.Iterations())
	require.Equal(t, 4, planner.Size())
	require.Equal(t, 3, planner.MaxDepth())
	require.NotZero(t, planner.StopReason()&StopIterations)

	view := planner.InspectTree()
	require.NotNil(t, view)
	require.Len(t, view.Root.Edges, 4)

	// All three visits went down the same first edge, phantom visits
	// and estimates kept every Q at the constant estimate
	require.Equal(t, 15, view.Root.TotalN)
	require.Equal(t, 6, view.Root.Edges[0].N)
	require.InDelta(t, 11.73, view.Root.Edges[0].Q, 1e-9)
	for _, e := range view.Root.Edges[1:] {
		require.Equal(t, 3, e.N)
		require.InDelta(t, 11.73, e.Q, 1e-9)
	}

	checkVisitSums(t, view.Root, map[*NodeView[gridState, gridAction]]bool{})
}

func TestPlanIdempotentExtraction(t *testing.T) {
	planner := NewPlanner[int, int](walkModel{goal: 4},
		WithLimits[int, int](DefaultLimits().SetIterations(100)),
	)

	best, err := planner.Plan(3)
	require.NoError(t, err)

	again, err := planner.BestAction()
	require.NoError(t, err)
	require.Equal(t, best, again)

	first := planner.TopActions(4)
	second := planner.TopActions(4)
	require.Equal(t, first, second)
}

func TestPlanZeroBudget(t *testing.T) {
	planner := NewPlanner[int, int](walkModel{goal: 3},
		WithLimits[int, int](DefaultLimits().SetMovetime(0)),
	)

	_, err := planner.Plan(1)
	require.ErrorIs(t, err, ErrNoActionAvailable)
	require.NotZero(t, planner.StopReason()&StopMovetime)
	require.Zero(t, planner.Iterations())
}

func TestPlanTerminalRoot(t *testing.T) {
	planner := NewPlanner[int, int](walkModel{goal: 3})

	_, err := planner.Plan(3)
	require.ErrorIs(t, err, ErrNoActionAvailable)
}

func TestPlanNoActionSpace(t *testing.T) {
	// noisyModel has no LegalActions and no generator was configured
	planner := NewPlanner[int, int](noisyModel{})

	_, err := planner.Plan(0)
	require.ErrorIs(t, err, ErrNoActionSpace)
}

func TestPlanStepErrorAbortsCleanly(t *testing.T) {
	planner := NewPlanner[int, int](brokenModel{},
		WithValueEstimator[int, int](ValueConst[int, int](0)),
	)

	_, err := planner.Plan(0)
	require.ErrorIs(t, err, ErrInvalidState)

	// The aborted iteration must not have backed anything up
	view := planner.InspectTree()
	require.NotNil(t, view)
	for _, e := range view.Root.Edges {
		require.Zero(t, e.N)
		require.Zero(t, e.Q)
		require.Empty(t, e.Successors)
	}
}

func TestPlanHookContract(t *testing.T) {
	t.Run("negative init visits", func(t *testing.T) {
		planner := NewPlanner[int, int](walkModel{goal: 3},
			WithNodeInitializer[int, int](InitFunc[int, int](func(int, int) (int, float64) {
				return -1, 0
			})),
		)
		_, err := planner.Plan(1)
		require.ErrorIs(t, err, ErrHookContract)
	})

	t.Run("nan estimate", func(t *testing.T) {
		planner := NewPlanner[int, int](walkModel{goal: 3},
			WithValueEstimator[int, int](ValueFunc[int, int](func(int, int) float64 {
				return math.NaN()
			})),
		)
		_, err := planner.Plan(1)
		require.ErrorIs(t, err, ErrHookContract)
	})
}

func TestPlanTreeReuseAfterCommit(t *testing.T) {
	model := walkModel{goal: 5}
	planner := NewPlanner[int, int](model,
		WithLimits[int, int](DefaultLimits().SetIterations(400)),
		WithTreeReuse[int, int](true),
		WithSeed[int, int](7),
	)

	best, err := planner.Plan(1)
	require.NoError(t, err)
	sizeBefore := planner.Size()

	// Take the planned action in the real environment and advance the
	// tree to the observed outcome
	next, _, err := model.Step(1, best, planner.rng)
	require.NoError(t, err)
	require.True(t, planner.Commit(best, next))
	require.Less(t, planner.Size(), sizeBefore)

	// A fully spent budget still answers from the cached subtree
	planner.SetLimits(DefaultLimits().SetIterations(0))
	again, err := planner.Plan(next)
	require.NoError(t, err)
	require.Contains(t, []int{walkLeft, walkRight}, again)
	require.Zero(t, planner.Iterations())
}

func TestPlanCommitUnknownPair(t *testing.T) {
	planner := NewPlanner[int, int](walkModel{goal: 3},
		WithLimits[int, int](DefaultLimits().SetIterations(50)),
		WithTreeReuse[int, int](true),
	)

	_, err := planner.Plan(1)
	require.NoError(t, err)

	require.False(t, planner.Commit(99, 2), "unknown action cannot be committed")
	require.False(t, planner.Commit(walkRight, 77), "unrealized successor cannot be committed")
}

func TestPlanDeterministicWithSeed(t *testing.T) {
	run := func() (int, int, *TreeView[int, int]) {
		planner := NewPlanner[int, int](noisyModel{},
			WithLimits[int, int](DefaultLimits().SetIterations(150).SetDepth(6)),
			WithWidening[int, int](Widening{KAction: 2, AlphaAction: 0.5, KState: 1, AlphaState: 0.5}),
			WithActionGenerator[int, int](ActionFunc[int, int](func(s int, tried []int, rng *rand.Rand) int {
				return rng.Intn(50)
			})),
			WithValueEstimator[int, int](ValueConst[int, int](0)),
			WithSeed[int, int](1234),
		)
		best, err := planner.Plan(0)
		require.NoError(t, err)
		return best, planner.Size(), planner.InspectTree()
	}

	best1, size1, view1 := run()
	best2, size2, view2 := run()

	require.Equal(t, best1, best2)
	require.Equal(t, size1, size2)
	require.Equal(t, view1.Root.TotalN, view2.Root.TotalN)
	require.Equal(t, len(view1.Root.Edges), len(view2.Root.Edges))
}

func TestPlanWideningCapsGrowth(t *testing.T) {
	w := Widening{KAction: 1, AlphaAction: 0.5, KState: 1, AlphaState: 0.5}
	planner := NewPlanner[int, int](noisyModel{},
		WithLimits[int, int](DefaultLimits().SetIterations(200).SetDepth(5)),
		WithWidening[int, int](w),
		WithActionGenerator[int, int](ActionFunc[int, int](func(s int, tried []int, rng *rand.Rand) int {
			return rng.Intn(50)
		})),
		WithValueEstimator[int, int](ValueConst[int, int](0)),
	)

	_, err := planner.Plan(0)
	require.NoError(t, err)

	var walk func(view *NodeView[int, int], seen map[*NodeView[int, int]]bool)
	walk = func(view *NodeView[int, int], seen map[*NodeView[int, int]]bool) {
		if seen[view] {
			return
		}
		seen[view] = true

		if view.TotalN > 0 {
			limit := int(w.KAction*math.Pow(float64(view.TotalN), w.AlphaAction)) + 1
			require.LessOrEqual(t, len(view.Edges), limit,
				"node %v with %d visits grew too many actions", view.State, view.TotalN)
		}
		for _, e := range view.Edges {
			if e.N > 0 {
				limit := int(w.KState*math.Pow(float64(e.N), w.AlphaState)) + 1
				require.LessOrEqual(t, len(e.Successors), limit,
					"edge %v with %d visits realized too many successors", e.Action, e.N)
			}
			for _, sc := range e.Successors {
				walk(sc.Node, seen)
			}
		}
	}
	walk(planner.InspectTree().Root, map[*NodeView[int, int]]bool{})
}

func TestPlanRetryBudgetFallback(t *testing.T) {
	// The generator proposes the same action forever, so after the
	// first admission every widening attempt burns its retries and the
	// search keeps going with the single edge
	planner := NewPlanner[int, int](noisyModel{},
		WithLimits[int, int](DefaultLimits().SetIterations(30).SetDepth(3)),
		WithWidening[int, int](DefaultWidening()),
		WithActionGenerator[int, int](ActionFunc[int, int](func(int, []int, *rand.Rand) int {
			return 5
		})),
		WithValueEstimator[int, int](ValueConst[int, int](0)),
		WithRetryBudget[int, int](2),
	)

	best, err := planner.Plan(0)
	require.NoError(t, err)
	require.Equal(t, 5, best)
	require.Equal(t, 30, planner.Iterations())
	require.Len(t, planner.InspectTree().Root.Edges, 1)
}

func TestPlanStopFromAnotherGoroutine(t *testing.T) {
	planner := NewPlanner[int, int](walkModel{goal: 30},
		WithLimits[int, int](DefaultLimits().SetInfinite(true)),
	)

	done := make(chan error, 1)
	go func() {
		_, err := planner.Plan(15)
		done <- err
	}()

	require.Eventually(t, planner.IsSearching, time.Second, time.Millisecond)
	planner.Stop()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not end the search")
	}
	require.NotZero(t, planner.StopReason()&StopInterrupt)
	require.False(t, planner.IsSearching())
}

func TestPlanTranspositionsShareNodes(t *testing.T) {
	run := func(enabled bool) (*Planner[int, int], *TreeView[int, int]) {
		planner := NewPlanner[int, int](mergeModel{},
			WithLimits[int, int](DefaultLimits().SetIterations(2)),
			WithTranspositions[int, int](enabled),
		)
		_, err := planner.Plan(0)
		require.NoError(t, err)
		return planner, planner.InspectTree()
	}

	shared, sharedView := run(true)
	require.Equal(t, 2, shared.Size())
	require.Same(t,
		sharedView.Root.Edges[0].Successors[0].Node,
		sharedView.Root.Edges[1].Successors[0].Node)

	split, splitView := run(false)
	require.Equal(t, 3, split.Size())
	require.NotSame(t,
		splitView.Root.Edges[0].Successors[0].Node,
		splitView.Root.Edges[1].Successors[0].Node)
}

func TestPlanStopViaContext(t *testing.T) {
	planner := NewPlanner[int, int](walkModel{goal: 30},
		WithLimits[int, int](DefaultLimits().SetInfinite(true)),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	planner.SetContext(ctx)

	start := time.Now()
	_, err := planner.Plan(15)
	require.NoError(t, err)
	require.Less(t, time.Since(start), 5*time.Second)
	require.NotZero(t, planner.StopReason()&StopInterrupt)
	require.Positive(t, planner.Iterations())
}

func TestPlanListenerCallbacks(t *testing.T) {
	planner := NewPlanner[int, int](walkModel{goal: 4},
		WithLimits[int, int](DefaultLimits().SetIterations(10)),
	)

	var iterationCalls, depthCalls, stopCalls int
	planner.StatsListener().
		OnIteration(func(stats ListenerStats[int, int]) {
			iterationCalls++
			require.Positive(t, stats.Iterations)
		}).
		SetIterationInterval(2).
		OnDepth(func(stats ListenerStats[int, int]) {
			depthCalls++
		}).
		OnStop(func(stats ListenerStats[int, int]) {
			stopCalls++
			require.NotZero(t, stats.StopReason&StopIterations)
			require.Positive(t, stats.Best.N)
			require.NotEmpty(t, stats.Line)
		})

	_, err := planner.Plan(2)
	require.NoError(t, err)

	require.Equal(t, 5, iterationCalls)
	require.Equal(t, 1, stopCalls)
	require.Positive(t, depthCalls)

	planner.ResetListener()
	_, err = planner.Plan(2)
	require.NoError(t, err)
	require.Equal(t, 5, iterationCalls, "cleared listener must stay silent")
}
