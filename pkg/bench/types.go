package bench

import (
	"encoding/json"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// EpisodeResult is what one finished episode reports back.
type EpisodeResult[A comparable] struct {
	// Episode index within its worker, and the worker that ran it
	Episode int
	Worker  int

	// Steps actually taken before termination or the step cap
	Steps int

	// Sum of the collected rewards, raw and discounted by the model's
	// gamma per step
	Return     float64
	Discounted float64

	// Whether the episode reached a terminal state, false means the
	// step cap cut it
	Terminal bool

	// Actions taken, in order
	Actions []A

	// Total planning time across all steps, in milliseconds
	PlanMs int

	// First error hit by the episode, the other fields cover the steps
	// up to it
	Err error
}

// RunInfo describes a run about to start.
type RunInfo struct {
	Episodes int
	Workers  int
	MaxSteps int
}

// RunSummary aggregates a finished run.
type RunSummary struct {
	Episodes int `json:"episodes"`
	Workers  int `json:"workers"`
	Failed   int `json:"failed"`

	TotalSteps int `json:"total_steps"`

	MeanReturn     float64 `json:"mean_return"`
	StdReturn      float64 `json:"std_return"`
	MinReturn      float64 `json:"min_return"`
	MaxReturn      float64 `json:"max_return"`
	MeanDiscounted float64 `json:"mean_discounted"`
	MeanSteps      float64 `json:"mean_steps"`
	MeanPlanMs     float64 `json:"mean_plan_ms"`

	// Fraction of episodes that reached a terminal state
	TerminalRate float64 `json:"terminal_rate"`

	ElapsedMs int `json:"elapsed_ms"`
}

func (s RunSummary) String() string {
	builder := strings.Builder{}
	_ = json.NewEncoder(&builder).Encode(s)
	return strings.TrimSuffix(builder.String(), "\n")
}

// RunReport is the full outcome of a Run: every episode plus the
// aggregate.
type RunReport[A comparable] struct {
	Results []EpisodeResult[A]
	Summary RunSummary
}

func summarize[A comparable](results []EpisodeResult[A], workers, elapsedMs int) RunSummary {
	summary := RunSummary{
		Episodes:  len(results),
		Workers:   workers,
		ElapsedMs: elapsedMs,
	}
	if len(results) == 0 {
		return summary
	}

	var (
		returns    = make([]float64, 0, len(results))
		discounted = make([]float64, 0, len(results))
		steps      = make([]float64, 0, len(results))
		planMs     = make([]float64, 0, len(results))
		terminal   int
	)
	for _, r := range results {
		if r.Err != nil {
			summary.Failed++
			continue
		}
		returns = append(returns, r.Return)
		discounted = append(discounted, r.Discounted)
		steps = append(steps, float64(r.Steps))
		planMs = append(planMs, float64(r.PlanMs))
		summary.TotalSteps += r.Steps
		if r.Terminal {
			terminal++
		}
	}
	if len(returns) == 0 {
		return summary
	}

	summary.MeanReturn = stat.Mean(returns, nil)
	summary.MinReturn = floats.Min(returns)
	summary.MaxReturn = floats.Max(returns)
	summary.MeanDiscounted = stat.Mean(discounted, nil)
	summary.MeanSteps = stat.Mean(steps, nil)
	summary.MeanPlanMs = stat.Mean(planMs, nil)
	summary.TerminalRate = float64(terminal) / float64(len(returns))
	if len(returns) > 1 {
		summary.StdReturn = stat.StdDev(returns, nil)
	}

	return summary
}
