package display

import (
	"fmt"
	"io"

	"github.com/IlikeChooros/go-mdp/pkg/bench"
	"github.com/muesli/termenv"
)

// Progress is a bench.Listener printing one line per finished episode
// and a three-line summary at the end of the run.
type Progress[A comparable] struct {
	out *termenv.Output
}

func NewProgress[A comparable](w io.Writer, opts ...termenv.OutputOption) *Progress[A] {
	return &Progress[A]{out: termenv.NewOutput(w, opts...)}
}

func (p *Progress[A]) OnStart(info bench.RunInfo) {
	p.out.WriteString(fmt.Sprintf("run %d episodes on %d workers, step cap %d\n",
		info.Episodes, info.Workers, info.MaxSteps))
}

func (p *Progress[A]) OnEpisode(r bench.EpisodeResult[A]) {
	if r.Err != nil {
		tag := p.out.String("err").Foreground(p.out.Color("1"))
		p.out.WriteString(fmt.Sprintf("%s worker %d ep %d: %v\n",
			tag, r.Worker, r.Episode, r.Err))
		return
	}

	tag := p.out.String("ok").Foreground(p.out.Color("2"))
	p.out.WriteString(fmt.Sprintf("%s worker %d ep %d return %.3f steps %d plan %dms\n",
		tag, r.Worker, r.Episode, r.Return, r.Steps, r.PlanMs))
}

func (p *Progress[A]) OnSummary(s bench.RunSummary) {
	p.out.WriteString(fmt.Sprintf("summary episodes %d failed %d elapsed %dms\n",
		s.Episodes, s.Failed, s.ElapsedMs))
	p.out.WriteString(fmt.Sprintf("summary return mean %.3f std %.3f min %.3f max %.3f\n",
		s.MeanReturn, s.StdReturn, s.MinReturn, s.MaxReturn))
	p.out.WriteString(fmt.Sprintf("summary steps %.1f plan %.1fms terminal %.0f%%\n",
		s.MeanSteps, s.MeanPlanMs, s.TerminalRate*100))
}
