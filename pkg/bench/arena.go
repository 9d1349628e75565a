package bench

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/exp/rand"

	"github.com/IlikeChooros/go-mdp/pkg/mcts"
)

/*
Arena benchmark subpackage, runs a batch of planning episodes against
one model and aggregates the returns. Episodes are spread over worker
goroutines, each worker drives its own planner instance, so planner
configurations can be compared by running one arena per configuration
on the same model.
*/

const (
	DefaultEpisodes = 100
	DefaultWorkers  = 4
	DefaultMaxSteps = 200
)

// Progress counters, safe to read from other goroutines while Run is
// going.
type ArenaStats struct {
	completed atomic.Uint32
	failed    atomic.Uint32
}

func (as *ArenaStats) Completed() int {
	return int(as.completed.Load())
}

func (as *ArenaStats) Failed() int {
	return int(as.failed.Load())
}

type Arena[S mcts.StateLike, A mcts.ActionLike] struct {
	ArenaStats

	// Model is the environment the episodes run in, it also backs the
	// planners built by NewPlanner
	Model mcts.Model[S, A]

	// Start draws the initial state of an episode
	Start func(rng *rand.Rand) S

	// NewPlanner builds one planner per worker. The factory usually
	// closes over the scenario options, see PlannerOptions
	NewPlanner func() *mcts.Planner[S, A]

	Episodes int
	Workers  int

	// MaxSteps cuts episodes that never reach a terminal state
	MaxSteps int

	Logger zerolog.Logger

	ctx context.Context
}

// NewArena wires the three required pieces and the default batch
// shape: DefaultEpisodes episodes over DefaultWorkers workers, cut at
// DefaultMaxSteps steps.
func NewArena[S mcts.StateLike, A mcts.ActionLike](
	model mcts.Model[S, A],
	start func(rng *rand.Rand) S,
	newPlanner func() *mcts.Planner[S, A],
) *Arena[S, A] {
	return &Arena[S, A]{
		Model:      model,
		Start:      start,
		NewPlanner: newPlanner,
		Episodes:   DefaultEpisodes,
		Workers:    DefaultWorkers,
		MaxSteps:   DefaultMaxSteps,
		Logger:     zerolog.Nop(),
		ctx:        context.Background(),
	}
}

func (a *Arena[S, A]) WithContext(ctx context.Context) *Arena[S, A] {
	if ctx == nil {
		ctx = context.Background()
	}
	a.ctx = ctx
	return a
}

// Run blocks until every episode finished, the context got cancelled,
// or an episode failed. Failed episodes keep their partial counters in
// the report and the first failure becomes Run's error. A nil listener
// is fine.
func (a *Arena[S, A]) Run(listener Listener[A]) (*RunReport[A], error) {
	if a.Model == nil || a.Start == nil || a.NewPlanner == nil {
		return nil, errors.New("bench: arena needs Model, Start and NewPlanner")
	}
	if a.ctx == nil {
		a.ctx = context.Background()
	}

	episodes := a.Episodes
	if episodes <= 0 {
		episodes = DefaultEpisodes
	}
	workers := a.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if workers > episodes {
		workers = episodes
	}
	maxSteps := a.MaxSteps
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}

	if listener == nil {
		listener = NopListener[A]{}
	}

	a.completed.Store(0)
	a.failed.Store(0)
	listener.OnStart(RunInfo{Episodes: episodes, Workers: workers, MaxSteps: maxSteps})
	a.Logger.Info().
		Int("episodes", episodes).
		Int("workers", workers).
		Int("max_steps", maxSteps).
		Msg("arena run start")

	ctx, cancel := context.WithCancel(a.ctx)
	defer cancel()

	start := time.Now()
	results := make(chan EpisodeResult[A], episodes)

	var wg sync.WaitGroup
	per := episodes / workers
	rest := episodes % workers
	for id := 0; id < workers; id++ {
		n := per
		if id < rest {
			n++
		}
		if n == 0 {
			continue
		}

		wg.Add(1)
		go func(id, n int) {
			defer wg.Done()
			a.worker(ctx, id, n, maxSteps, results)
		}(id, n)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	var (
		collected []EpisodeResult[A]
		firstErr  error
	)
	for result := range results {
		collected = append(collected, result)
		listener.OnEpisode(result)

		if result.Err != nil {
			a.failed.Add(1)
			if firstErr == nil {
				firstErr = result.Err
				cancel()
			}
			a.Logger.Warn().
				Int("worker", result.Worker).
				Int("episode", result.Episode).
				Err(result.Err).
				Msg("episode failed")
			continue
		}

		a.completed.Add(1)
		a.Logger.Debug().
			Int("worker", result.Worker).
			Int("episode", result.Episode).
			Int("steps", result.Steps).
			Float64("return", result.Return).
			Bool("terminal", result.Terminal).
			Msg("episode done")
	}

	// Workers that saw the caller's cancellation first return without
	// sending, surface that as the run error
	if firstErr == nil && len(collected) < episodes {
		firstErr = a.ctx.Err()
	}

	summary := summarize(collected, workers, int(time.Since(start).Milliseconds()))
	listener.OnSummary(summary)
	a.Logger.Info().
		Int("episodes", summary.Episodes).
		Int("failed", summary.Failed).
		Float64("mean_return", summary.MeanReturn).
		Float64("terminal_rate", summary.TerminalRate).
		Msg("arena run done")

	return &RunReport[A]{Results: collected, Summary: summary}, firstErr
}

// worker runs its share of episodes on a single planner. The worker rng
// drives episode starts and the real environment steps, the planner
// keeps its own.
func (a *Arena[S, A]) worker(ctx context.Context, id, episodes, maxSteps int, results chan<- EpisodeResult[A]) {
	rng := rand.New(rand.NewSource(mcts.SeedGeneratorFn() + uint64(id)))
	planner := a.NewPlanner()
	planner.SetContext(ctx)

	for i := 0; i < episodes; i++ {
		select {
		case <-ctx.Done():
			return
		default:
		}

		result := a.episode(ctx, planner, rng, id, i, maxSteps)
		results <- result
		if result.Err != nil {
			return
		}

		// Fresh tree for the next episode
		planner.Reset()
	}
}

func (a *Arena[S, A]) episode(ctx context.Context, planner *mcts.Planner[S, A], rng *rand.Rand, worker, index, maxSteps int) EpisodeResult[A] {
	result := EpisodeResult[A]{
		Episode: index,
		Worker:  worker,
		Actions: make([]A, 0, 16),
	}

	var (
		state = a.Start(rng)
		gamma = a.Model.Discount()
		df    = 1.0
	)

	for result.Steps < maxSteps {
		if a.Model.IsTerminal(state) {
			result.Terminal = true
			break
		}
		if ctx.Err() != nil {
			result.Err = ctx.Err()
			break
		}

		planStart := time.Now()
		action, err := planner.Plan(state)
		result.PlanMs += int(time.Since(planStart).Milliseconds())
		if err != nil {
			// A cancelled context starves Plan of iterations, report
			// the cancellation rather than the starvation
			if ctx.Err() != nil {
				result.Err = ctx.Err()
			} else {
				result.Err = fmt.Errorf("plan: %w", err)
			}
			break
		}

		next, reward, err := a.Model.Step(state, action, rng)
		if err != nil {
			result.Err = fmt.Errorf("environment step: %w", err)
			break
		}

		result.Actions = append(result.Actions, action)
		result.Return += reward
		result.Discounted += df * reward
		df *= gamma
		result.Steps++

		// Carry the subtree under the taken action into the next Plan,
		// pointless without tree reuse but always harmless
		if !planner.Commit(action, next) {
			planner.Reset()
		}
		state = next
	}

	if !result.Terminal && result.Err == nil && a.Model.IsTerminal(state) {
		result.Terminal = true
	}

	return result
}
