package bench

// Listener receives run progress. The arena serializes all calls onto
// the goroutine that called Run, so implementations need no locking.
type Listener[A comparable] interface {
	OnStart(info RunInfo)
	OnEpisode(result EpisodeResult[A])
	OnSummary(summary RunSummary)
}

// NopListener ignores everything, the default when Run gets nil.
type NopListener[A comparable] struct{}

func (NopListener[A]) OnStart(RunInfo)            {}
func (NopListener[A]) OnEpisode(EpisodeResult[A]) {}
func (NopListener[A]) OnSummary(RunSummary)       {}

// FuncListener adapts plain callbacks, nil fields are skipped.
type FuncListener[A comparable] struct {
	Start   func(RunInfo)
	Episode func(EpisodeResult[A])
	Summary func(RunSummary)
}

func (f FuncListener[A]) OnStart(info RunInfo) {
	if f.Start != nil {
		f.Start(info)
	}
}

func (f FuncListener[A]) OnEpisode(result EpisodeResult[A]) {
	if f.Episode != nil {
		f.Episode(result)
	}
}

func (f FuncListener[A]) OnSummary(summary RunSummary) {
	if f.Summary != nil {
		f.Summary(summary)
	}
}
