package bench

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/exp/rand"
	"gopkg.in/yaml.v3"

	"github.com/IlikeChooros/go-mdp/pkg/mcts"
)

// Scenario is an arena setup loaded from YAML, so benchmark sweeps can
// live next to the code as data. Only the serializable knobs are here,
// hooks like value estimators stay in code and are passed to
// NewScenarioArena as extra options.
//
//	name: gridworld-dpw
//	episodes: 200
//	workers: 8
//	max_steps: 150
//	search:
//	  iterations: 500
//	  depth: 20
//	  exploration: 1.4
//	  tree_reuse: true
//	  widening:
//	    k_action: 4
//	    alpha_action: 0.5
type Scenario struct {
	Name     string       `yaml:"name"`
	Episodes int          `yaml:"episodes"`
	Workers  int          `yaml:"workers"`
	MaxSteps int          `yaml:"max_steps"`
	Search   SearchConfig `yaml:"search"`
}

// SearchConfig mirrors the planner options that make sense in a config
// file. Zero values mean "leave the planner default alone".
type SearchConfig struct {
	Depth      int  `yaml:"depth"`
	Iterations int  `yaml:"iterations"`
	MovetimeMs int  `yaml:"movetime_ms"`
	Nodes      int  `yaml:"nodes"`
	Infinite   bool `yaml:"infinite"`

	// Exploration is a pointer because 0 is a meaningful value, greedy
	// selection
	Exploration *float64 `yaml:"exploration"`

	// Policy is "max_q" or "most_visits"
	Policy string `yaml:"policy"`

	TreeReuse      bool   `yaml:"tree_reuse"`
	Transpositions bool   `yaml:"transpositions"`
	RetryBudget    int    `yaml:"retry_budget"`
	Seed           uint64 `yaml:"seed"`

	Widening *WideningConfig `yaml:"widening"`
}

// WideningConfig holds the progressive widening knobs, omitted fields
// fall back to DefaultWidening.
type WideningConfig struct {
	KAction     float64 `yaml:"k_action"`
	AlphaAction float64 `yaml:"alpha_action"`
	KState      float64 `yaml:"k_state"`
	AlphaState  float64 `yaml:"alpha_state"`
}

func (wc WideningConfig) toWidening() mcts.Widening {
	w := mcts.DefaultWidening()
	if wc.KAction > 0 {
		w.KAction = wc.KAction
	}
	if wc.AlphaAction > 0 {
		w.AlphaAction = wc.AlphaAction
	}
	if wc.KState > 0 {
		w.KState = wc.KState
	}
	if wc.AlphaState > 0 {
		w.AlphaState = wc.AlphaState
	}
	return w
}

// LoadScenario reads and parses one scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load scenario: %w", err)
	}
	sc, err := ParseScenario(data)
	if err != nil {
		return nil, fmt.Errorf("load scenario %s: %w", path, err)
	}
	return sc, nil
}

// ParseScenario decodes YAML strictly, unknown keys are errors.
func ParseScenario(data []byte) (*Scenario, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	sc := &Scenario{}
	if err := dec.Decode(sc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty scenario")
		}
		return nil, err
	}
	if err := sc.validate(); err != nil {
		return nil, err
	}
	return sc, nil
}

func (sc *Scenario) validate() error {
	if sc.Episodes < 0 || sc.Workers < 0 || sc.MaxSteps < 0 {
		return errors.New("episodes, workers and max_steps must not be negative")
	}
	return sc.Search.validate()
}

func (c *SearchConfig) validate() error {
	if c.Depth < 0 || c.Iterations < 0 || c.Nodes < 0 || c.RetryBudget < 0 {
		return errors.New("search counters must not be negative")
	}
	if c.Exploration != nil && *c.Exploration < 0 {
		return errors.New("exploration must not be negative")
	}
	switch c.Policy {
	case "", "max_q", "most_visits":
	default:
		return fmt.Errorf("unknown extraction policy %q", c.Policy)
	}
	if w := c.Widening; w != nil {
		if w.KAction < 0 || w.AlphaAction < 0 || w.KState < 0 || w.AlphaState < 0 {
			return errors.New("widening knobs must not be negative")
		}
	}
	return nil
}

// Limits converts the budget fields into search limits.
func (c SearchConfig) Limits() *mcts.Limits {
	l := mcts.DefaultLimits()
	if c.Depth > 0 {
		l.SetDepth(c.Depth)
	}
	if c.Iterations > 0 {
		l.SetIterations(c.Iterations)
	}
	if c.MovetimeMs > 0 {
		l.SetMovetime(c.MovetimeMs)
	}
	if c.Nodes > 0 {
		l.SetNodes(c.Nodes)
	}
	if c.Infinite {
		l.SetInfinite(true)
	}
	return l
}

// PlannerOptions turns the search section into planner options. A free
// function because methods cannot add type parameters.
func PlannerOptions[S mcts.StateLike, A mcts.ActionLike](c SearchConfig) []mcts.Option[S, A] {
	opts := []mcts.Option[S, A]{
		mcts.WithLimits[S, A](c.Limits()),
	}

	if c.Exploration != nil {
		opts = append(opts, mcts.WithExploration[S, A](*c.Exploration))
	}
	if c.Policy == "most_visits" {
		opts = append(opts, mcts.WithBestActionPolicy[S, A](mcts.BestActionMostVisits))
	}
	if c.TreeReuse {
		opts = append(opts, mcts.WithTreeReuse[S, A](true))
	}
	if c.Transpositions {
		opts = append(opts, mcts.WithTranspositions[S, A](true))
	}
	if c.RetryBudget > 0 {
		opts = append(opts, mcts.WithRetryBudget[S, A](c.RetryBudget))
	}
	if c.Seed != 0 {
		opts = append(opts, mcts.WithSeed[S, A](c.Seed))
	}
	if c.Widening != nil {
		opts = append(opts, mcts.WithWidening[S, A](c.Widening.toWidening()))
	}

	return opts
}

// NewScenarioArena builds a ready arena from a scenario. extra options
// are appended after the scenario's own, so code-only hooks (value
// estimators, action generators) can be attached there.
func NewScenarioArena[S mcts.StateLike, A mcts.ActionLike](
	sc *Scenario,
	model mcts.Model[S, A],
	start func(rng *rand.Rand) S,
	extra ...mcts.Option[S, A],
) *Arena[S, A] {
	arena := NewArena(model, start, func() *mcts.Planner[S, A] {
		opts := append(PlannerOptions[S, A](sc.Search), extra...)
		return mcts.NewPlanner(model, opts...)
	})

	if sc.Episodes > 0 {
		arena.Episodes = sc.Episodes
	}
	if sc.Workers > 0 {
		arena.Workers = sc.Workers
	}
	if sc.MaxSteps > 0 {
		arena.MaxSteps = sc.MaxSteps
	}
	return arena
}
