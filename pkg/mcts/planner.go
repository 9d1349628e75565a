package mcts

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/exp/rand"
)

// Planner runs Monte Carlo tree search over a generative MDP model,
// optionally with double progressive widening for large or stochastic
// problems. A Planner drives one search at a time and its methods are
// not safe for concurrent use, except Stop and SetContext which may be
// called from other goroutines to end a running Plan.
type Planner[S StateLike, A ActionLike] struct {
	model Model[S, A]
	space ActionSpace[S, A]

	init     NodeInitializer[S, A]
	estimate ValueEstimator[S, A]
	generate ActionGenerator[S, A]

	widening       *Widening
	exploration    float64
	bestPolicy     BestActionPolicy
	reuseTree      bool
	transpositions bool
	retryBudget    int

	limiter  LimiterLike
	listener *StatsListener[S, A]
	logger   zerolog.Logger
	rng      *rand.Rand

	tree       *tree[S, A]
	iterations int
	maxDepth   int
	ips        int
}

// Option configures a Planner at construction time.
type Option[S StateLike, A ActionLike] func(*Planner[S, A])

// WithLimits sets the search budget.
func WithLimits[S StateLike, A ActionLike](limits *Limits) Option[S, A] {
	return func(p *Planner[S, A]) {
		p.limiter.SetLimits(limits)
	}
}

// WithExploration sets the exploration constant c of the UCB1 formula.
// Negative values are clamped to 0, which makes selection purely greedy
// on Q.
func WithExploration[S StateLike, A ActionLike](c float64) Option[S, A] {
	return func(p *Planner[S, A]) {
		p.exploration = max(0, c)
	}
}

// WithWidening turns on double progressive widening with the given
// knobs. Without this option the planner expands full action sets and
// never caps successors, the classic MCTS behavior for small discrete
// problems.
func WithWidening[S StateLike, A ActionLike](w Widening) Option[S, A] {
	return func(p *Planner[S, A]) {
		p.widening = &w
	}
}

// WithNodeInitializer replaces the default InitConst(0, 0) edge seed.
func WithNodeInitializer[S StateLike, A ActionLike](init NodeInitializer[S, A]) Option[S, A] {
	return func(p *Planner[S, A]) {
		p.init = init
	}
}

// WithValueEstimator replaces the default random rollout estimator.
func WithValueEstimator[S StateLike, A ActionLike](estimate ValueEstimator[S, A]) Option[S, A] {
	return func(p *Planner[S, A]) {
		p.estimate = estimate
	}
}

// WithActionGenerator replaces the widened admission source, by default
// uniform draws from the model's LegalActions.
func WithActionGenerator[S StateLike, A ActionLike](generate ActionGenerator[S, A]) Option[S, A] {
	return func(p *Planner[S, A]) {
		p.generate = generate
	}
}

// WithBestActionPolicy selects how Plan and BestAction pick the final
// action, BestActionMaxQ by default.
func WithBestActionPolicy[S StateLike, A ActionLike](policy BestActionPolicy) Option[S, A] {
	return func(p *Planner[S, A]) {
		p.bestPolicy = policy
	}
}

// WithTreeReuse keeps the tree between Plan calls on a matching root
// state. Combine with Commit to carry the relevant subtree across real
// environment steps. Kept nodes keep the visit counts they collected
// under earlier roots, Reset drops them when that bias is unwanted.
func WithTreeReuse[S StateLike, A ActionLike](reuse bool) Option[S, A] {
	return func(p *Planner[S, A]) {
		p.reuseTree = reuse
	}
}

// WithTranspositions shares one node per distinct state, so paths that
// meet again also share statistics. Only worth it when the problem
// actually revisits states.
func WithTranspositions[S StateLike, A ActionLike](enabled bool) Option[S, A] {
	return func(p *Planner[S, A]) {
		p.transpositions = enabled
	}
}

// WithRetryBudget caps how often a widened admission re-draws the
// action generator after duplicate proposals.
func WithRetryBudget[S StateLike, A ActionLike](budget int) Option[S, A] {
	return func(p *Planner[S, A]) {
		p.retryBudget = max(0, budget)
	}
}

// WithSeed derives the planner rng from a fixed seed, making the whole
// search reproducible for a deterministic model.
func WithSeed[S StateLike, A ActionLike](seed uint64) Option[S, A] {
	return func(p *Planner[S, A]) {
		p.rng = rand.New(rand.NewSource(seed))
	}
}

// WithRand hands the planner an external rng, sharing a source with the
// caller's own sampling.
func WithRand[S StateLike, A ActionLike](rng *rand.Rand) Option[S, A] {
	return func(p *Planner[S, A]) {
		p.rng = rng
	}
}

// WithLogger attaches a zerolog logger, the default one discards
// everything.
func WithLogger[S StateLike, A ActionLike](logger zerolog.Logger) Option[S, A] {
	return func(p *Planner[S, A]) {
		p.logger = logger
	}
}

// Create a new planner for the given model. Panics on a nil model,
// every other misconfiguration surfaces as an error from Plan.
func NewPlanner[S StateLike, A ActionLike](model Model[S, A], opts ...Option[S, A]) *Planner[S, A] {
	if model == nil {
		panic("mcts: NewPlanner called with a nil model")
	}

	p := &Planner[S, A]{
		model:       model,
		exploration: DefaultExploration,
		bestPolicy:  BestActionMaxQ,
		retryBudget: DefaultRetryBudget,
		limiter:     LimiterLike(NewLimiter()),
		listener:    &StatsListener[S, A]{nIterations: 1},
		logger:      zerolog.Nop(),
	}

	// Not searching yet
	p.limiter.SetStop(true)

	// Pick up the optional capability of the model
	if space, ok := model.(ActionSpace[S, A]); ok {
		p.space = space
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.rng == nil {
		p.rng = rand.New(rand.NewSource(SeedGeneratorFn()))
	}
	if p.init == nil {
		p.init = InitConst[S, A](0, 0)
	}
	if p.estimate == nil {
		p.estimate = RolloutEstimator[S, A]{}
	}
	if p.generate == nil && p.space != nil {
		p.generate = RandomActions[S, A]{Space: p.space}
	}

	return p
}

func (p *Planner[S, A]) invokeListener(f ListenerFunc[S, A]) {
	if f != nil {
		f(toListenerStats(p))
	}
}

func (p *Planner[S, A]) ResetListener() {
	p.listener.OnIteration(nil).OnDepth(nil).OnStop(nil)
}

func (p *Planner[S, A]) StatsListener() *StatsListener[S, A] {
	return p.listener
}

func (p *Planner[S, A]) SetListener(listener StatsListener[S, A]) {
	*p.listener = listener
}

// Adds a custom context to the limiter, enabling cancellation through it
//
// Example:
//
//	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
//	defer cancel()
//
//	planner.SetContext(ctx)
//	action, err := planner.Plan(state)
func (p *Planner[S, A]) SetContext(ctx context.Context) {
	p.limiter.SetContext(ctx)
}

func (p *Planner[S, A]) IsSearching() bool {
	return !p.limiter.Stop()
}

// Stop the running search, safe to call from another goroutine
func (p *Planner[S, A]) Stop() {
	p.limiter.SetStop(true)
}

// Maximum descent depth reached during the last search, in edges
func (p *Planner[S, A]) MaxDepth() int {
	return p.maxDepth
}

// Number of simulate/backup iterations of the last search
func (p *Planner[S, A]) Iterations() int {
	return p.iterations
}

// Iterations per second of the last search
func (p *Planner[S, A]) Ips() int {
	return p.ips
}

// Get the reason why the search was stopped, valid after Plan returns
func (p *Planner[S, A]) StopReason() StopReason {
	return p.limiter.StopReason()
}

func (p *Planner[S, A]) SetLimits(limits *Limits) {
	p.limiter.SetLimits(limits)
}

func (p *Planner[S, A]) Limits() *Limits {
	return p.limiter.Limits()
}

// Number of state nodes in the tree
func (p *Planner[S, A]) Size() int {
	if p.tree == nil {
		return 0
	}
	return p.tree.size
}

func (p *Planner[S, A]) String() string {
	return fmt.Sprintf("Planner={Size=%d, Iterations=%d, MaxDepth=%d, Ips=%d, Stop=%v}",
		p.Size(), p.Iterations(), p.MaxDepth(), p.Ips(), !p.IsSearching())
}

// Commit advances the root along an already explored edge, after the
// environment really took action a and landed in next. Everything
// outside the chosen subtree is dropped. Returns false when the pair
// was never realized in the tree, callers usually Reset then.
func (p *Planner[S, A]) Commit(a A, next S) bool {
	if p.tree == nil {
		return false
	}

	e, ok := p.tree.root.edge(a)
	if !ok {
		return false
	}
	sc, ok := e.successorFor(next)
	if !ok {
		return false
	}

	p.tree.rebase(sc.node)
	p.maxDepth = max(0, p.maxDepth-1)
	return true
}

// Reset drops the tree and the run statistics.
func (p *Planner[S, A]) Reset() {
	p.tree = nil
	p.iterations = 0
	p.maxDepth = 0
	p.ips = 0
}
