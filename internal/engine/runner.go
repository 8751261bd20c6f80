package engine

import (
	"context"
	"time"
)

// DefaultFrameInterval approximates a 60 Hz display refresh.
const DefaultFrameInterval = time.Second / 60

// Scheduler decides when the next frame runs. Wait blocks until then and
// returns an error only when ctx is done.
type Scheduler interface {
	Wait(ctx context.Context) error
}

// IntervalScheduler fires one frame every Interval.
type IntervalScheduler struct {
	Interval time.Duration
}

func (s IntervalScheduler) Wait(ctx context.Context) error {
	if s.Interval <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(s.Interval)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Runner drives an engine from a scheduler until the wheel settles.
type Runner struct {
	Engine    *Engine
	Scheduler Scheduler
	// OnFrame is called after every moving tick.
	OnFrame func(Outcome)
	// OnSettle is called exactly once with the settling outcome.
	OnSettle func(Outcome)
}

// Run ticks the engine until it settles or stops spinning. It only returns
// early when ctx is cancelled, which happens at process shutdown.
func (r *Runner) Run(ctx context.Context) error {
	for {
		if err := r.Scheduler.Wait(ctx); err != nil {
			return err
		}

		out := r.Engine.Tick()
		switch out.Result {
		case Continue:
			if r.OnFrame != nil {
				r.OnFrame(out)
			}
		case Done:
			if r.OnSettle != nil {
				r.OnSettle(out)
			}
			return nil
		default:
			return nil
		}
	}
}
