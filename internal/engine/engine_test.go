package engine

import (
	"context"
	"math"
	"math/rand/v2"
	"testing"
)

type fixedRand float64

func (f fixedRand) Float64() float64 { return float64(f) }

type immediate struct{}

func (immediate) Wait(ctx context.Context) error { return ctx.Err() }

func TestWinningIndex_Range(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	for n := 1; n <= 12; n++ {
		for i := 0; i < 2000; i++ {
			rot := (r.Float64() - 0.2) * 1000
			idx := WinningIndex(rot, n)
			if idx < 0 || idx >= n {
				t.Fatalf("WinningIndex(%v, %d) = %d, out of range", rot, n, idx)
			}
			if again := WinningIndex(rot, n); again != idx {
				t.Fatalf("WinningIndex not stable for %v: %d then %d", rot, idx, again)
			}
		}
	}
}

func TestWinningIndex_Scenarios(t *testing.T) {
	tests := []struct {
		name     string
		rotation float64
		n        int
		want     int
	}{
		{"four prizes at rest", 0, 4, 3},
		{"quarter turn", math.Pi / 2, 4, 2},
		{"half turn", math.Pi, 4, 1},
		{"full turns are ignored", 2*math.Pi + math.Pi/4, 4, 2},
		{"single prize", 123.4, 1, 0},
		{"negative rotation", -math.Pi / 4, 4, 3},
		{"pointer exactly on boundary", 3 * math.Pi / 2, 4, 0},
		{"no prizes", 1, 0, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := WinningIndex(tt.rotation, tt.n); got != tt.want {
				t.Errorf("Expected index %d, got %d", tt.want, got)
			}
		})
	}
}

func TestStepsToSettle(t *testing.T) {
	a := StepsToSettle(40)
	b := StepsToSettle(40)
	if a != b {
		t.Fatalf("Expected deterministic step count, got %d and %d", a, b)
	}
	if a <= 0 {
		t.Fatalf("Expected positive step count, got %d", a)
	}
	if StepsToSettle(50) < StepsToSettle(30) {
		t.Error("Expected a faster spin to need at least as many steps")
	}

	// 40 * 0.985^k < 0.05  =>  k > ln(0.05/40)/ln(0.985)
	want := int(math.Floor(math.Log(StopThreshold/40)/math.Log(Decay))) + 1
	if a != want {
		t.Errorf("Expected %d steps, got %d", want, a)
	}
}

func TestEngine_Lifecycle(t *testing.T) {
	e := New(fixedRand(0.5))

	t.Run("ticking while idle does nothing", func(t *testing.T) {
		if out := e.Tick(); out.Result != NotSpinning {
			t.Fatalf("Expected NotSpinning, got %v", out.Result)
		}
	})

	t.Run("empty prize set is rejected", func(t *testing.T) {
		if err := e.Start(0); err != ErrNoPrizes {
			t.Fatalf("Expected ErrNoPrizes, got %v", err)
		}
		if e.Phase() != Idle {
			t.Fatalf("Expected engine to stay idle, got %v", e.Phase())
		}
	})

	t.Run("start sets velocity inside range", func(t *testing.T) {
		if err := e.Start(4); err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		st := e.State()
		if !st.Spinning || st.Velocity != 40 {
			t.Errorf("Expected spinning at 40, got %+v", st)
		}
		if err := e.Start(4); err != ErrSpinning {
			t.Errorf("Expected ErrSpinning on re-entry, got %v", err)
		}
	})

	t.Run("spin settles once on the pointer segment", func(t *testing.T) {
		ticks, done := 0, 0
		var last Outcome
		for e.Phase() == Spinning {
			out := e.Tick()
			ticks++
			if out.Result == Done {
				done++
				last = out
			}
		}
		if done != 1 {
			t.Fatalf("Expected exactly one settle, got %d", done)
		}
		if ticks != StepsToSettle(40) {
			t.Errorf("Expected %d ticks, got %d", StepsToSettle(40), ticks)
		}
		if want := WinningIndex(e.Rotation(), 4); last.Index != want {
			t.Errorf("Expected index %d, got %d", want, last.Index)
		}
		if err := e.Start(4); err != ErrSpinning {
			t.Errorf("Expected settled engine to refuse a new spin, got %v", err)
		}

		idx, err := e.Acknowledge()
		if err != nil || idx != last.Index {
			t.Fatalf("Acknowledge returned %d, %v", idx, err)
		}
		if e.Phase() != Idle {
			t.Errorf("Expected idle after acknowledge, got %v", e.Phase())
		}
		if _, err := e.Acknowledge(); err != ErrNotSettled {
			t.Errorf("Expected ErrNotSettled, got %v", err)
		}
	})

	t.Run("rotation keeps growing across spins", func(t *testing.T) {
		before := e.Rotation()
		if err := e.Start(4); err != nil {
			t.Fatalf("Expected second spin to start, got %v", err)
		}
		e.Tick()
		if e.Rotation() <= before {
			t.Errorf("Expected rotation to grow past %v, got %v", before, e.Rotation())
		}
	})
}

func TestEngine_Clicks(t *testing.T) {
	e := New(fixedRand(0))
	e.Start(4)

	clicks := 0
	for e.Phase() == Spinning {
		if e.Tick().Click {
			clicks++
		}
	}
	// a fast tick can cross several boundaries but clicks once
	limit := int(math.Floor(e.Rotation() / ClickArc))
	if clicks == 0 || clicks > limit {
		t.Errorf("Expected between 1 and %d clicks, got %d", limit, clicks)
	}
}

func TestRunner_Run(t *testing.T) {
	e := New(fixedRand(1))
	if err := e.Start(6); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	frames, settles := 0, 0
	r := &Runner{
		Engine:    e,
		Scheduler: immediate{},
		OnFrame:   func(Outcome) { frames++ },
		OnSettle:  func(Outcome) { settles++ },
	}
	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if settles != 1 {
		t.Errorf("Expected one settle callback, got %d", settles)
	}
	if frames != StepsToSettle(50)-1 {
		t.Errorf("Expected %d frames, got %d", StepsToSettle(50)-1, frames)
	}
	if e.Phase() != Settled {
		t.Errorf("Expected settled engine, got %v", e.Phase())
	}
}

func TestRunner_Cancelled(t *testing.T) {
	e := New(nil)
	e.Start(4)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := &Runner{Engine: e, Scheduler: IntervalScheduler{Interval: DefaultFrameInterval}}
	if err := r.Run(ctx); err != context.Canceled {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
}
