// Package display renders planner and arena progress on a terminal.
// Styling degrades to plain text when the output profile is Ascii, so
// piping to a file keeps the lines readable.
package display

import (
	"fmt"
	"io"

	"github.com/IlikeChooros/go-mdp/pkg/mcts"
	"github.com/muesli/termenv"
)

// Printer turns ListenerStats snapshots into search lines, one per
// callback. On a color-capable terminal the line is rewritten in place,
// otherwise every snapshot appends a new line.
type Printer[S mcts.StateLike, A mcts.ActionLike] struct {
	out  *termenv.Output
	live bool

	// an unfinished in-place line is on screen
	inline bool
}

func NewPrinter[S mcts.StateLike, A mcts.ActionLike](w io.Writer, opts ...termenv.OutputOption) *Printer[S, A] {
	out := termenv.NewOutput(w, opts...)
	return &Printer[S, A]{out: out, live: out.Profile != termenv.Ascii}
}

// Attach wires the printer into the planner's listener: a search line
// every 'every' iterations and a final summary on stop.
func (p *Printer[S, A]) Attach(planner *mcts.Planner[S, A], every int) {
	planner.StatsListener().
		OnIteration(p.SearchLine).
		SetIterationInterval(every).
		OnStop(p.StopLine)
}

// SearchLine prints one progress line for the given snapshot.
func (p *Printer[S, A]) SearchLine(stats mcts.ListenerStats[S, A]) {
	line := p.searchInfo(stats)
	if !p.live {
		p.out.WriteString(line + "\n")
		return
	}

	if !p.inline {
		p.out.HideCursor()
		p.inline = true
	}
	p.out.WriteString("\r")
	p.out.ClearLine()
	p.out.WriteString(line)
}

// StopLine finishes any in-place line, prints the final snapshot and
// the extracted best action.
func (p *Printer[S, A]) StopLine(stats mcts.ListenerStats[S, A]) {
	if p.inline {
		p.out.WriteString("\n")
		p.out.ShowCursor()
		p.inline = false
	}

	p.out.WriteString(p.searchInfo(stats) + "\n")

	best := p.out.String(fmt.Sprint(stats.Best.Action)).Bold()
	p.out.WriteString(fmt.Sprintf("best %s q %.3f n %d in %dms stop %s\n",
		best, stats.Best.Q, stats.Best.N, stats.TimeMs, stats.StopReason))
}

func (p *Printer[S, A]) searchInfo(stats mcts.ListenerStats[S, A]) string {
	q := p.out.String(fmt.Sprintf("%.3f", stats.Best.Q))
	if stats.Best.Q >= 0 {
		q = q.Foreground(p.out.Color("2"))
	} else {
		q = q.Foreground(p.out.Color("1"))
	}

	line := fmt.Sprintf("info q %s depth %d ips %s iter %s size %s",
		q, stats.MaxDepth, humanCount(stats.Ips),
		humanCount(stats.Iterations), humanCount(stats.Size))
	if len(stats.Line) > 0 {
		line += " pv " + actionLine(stats.Line)
	}
	return line
}
