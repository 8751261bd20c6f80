package engine

import (
	"errors"
	"math"
	"math/rand/v2"
	"sync"

	"spinwheel/internal/models"
)

const (
	// Initial velocity range in degrees per tick.
	MinVelocity = 30.0
	MaxVelocity = 50.0

	// Decay is the per-tick friction factor.
	Decay = 0.985
	// StopThreshold is the velocity below which the wheel settles.
	StopThreshold = 0.05

	// ClickArc is the rotation, in radians, between two pointer clicks (about 15 degrees).
	ClickArc = 0.26

	// PointerAngle is where the fixed pointer sits: the top of the wheel.
	PointerAngle = 3 * math.Pi / 2

	fullTurn = 2 * math.Pi
)

var (
	ErrSpinning   = errors.New("wheel is already spinning")
	ErrNoPrizes   = errors.New("wheel has no prizes")
	ErrNotSettled = errors.New("wheel has not settled")
)

// Phase is the position of the engine in its Idle -> Spinning -> Settled cycle.
type Phase int

const (
	Idle Phase = iota
	Spinning
	Settled
)

func (p Phase) String() string {
	switch p {
	case Spinning:
		return "spinning"
	case Settled:
		return "settled"
	default:
		return "idle"
	}
}

// Result tells the caller what a tick did.
type Result int

const (
	// NotSpinning means the tick was ignored.
	NotSpinning Result = iota
	// Continue means the wheel moved and needs another tick.
	Continue
	// Done means the wheel settled on this tick.
	Done
)

// Outcome is returned from every Tick.
type Outcome struct {
	Result   Result
	Rotation float64
	Velocity float64
	// Click is set when the rotation crossed a ClickArc boundary during the tick.
	Click bool
	// Index is the winning segment, valid only when Result is Done.
	Index int
}

// Rand is the source for the initial velocity.
type Rand interface {
	Float64() float64
}

type globalRand struct{}

func (globalRand) Float64() float64 { return rand.Float64() }

// Engine owns the rotation state of one wheel.
type Engine struct {
	mu       sync.Mutex
	rotation float64
	velocity float64
	phase    Phase
	pending  int
	segments int
	rng      Rand
}

// New creates an idle engine. A nil rng uses math/rand/v2.
func New(rng Rand) *Engine {
	if rng == nil {
		rng = globalRand{}
	}
	return &Engine{rng: rng, pending: -1}
}

// Start kicks off a spin over the given number of segments.
// It is a no-op returning ErrSpinning unless the engine is idle.
func (e *Engine) Start(segments int) error {
	if segments <= 0 {
		return ErrNoPrizes
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.phase != Idle {
		return ErrSpinning
	}
	e.segments = segments
	e.velocity = MinVelocity + e.rng.Float64()*(MaxVelocity-MinVelocity)
	e.pending = -1
	e.phase = Spinning
	return nil
}

// Tick advances the spin by one frame.
func (e *Engine) Tick() Outcome {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.phase != Spinning {
		return Outcome{Result: NotSpinning, Rotation: e.rotation, Index: -1}
	}

	e.velocity *= Decay
	if e.velocity < StopThreshold {
		e.velocity = 0
		e.phase = Settled
		e.pending = WinningIndex(e.rotation, e.segments)
		return Outcome{Result: Done, Rotation: e.rotation, Index: e.pending}
	}

	old := e.rotation
	e.rotation += e.velocity * math.Pi / 180
	return Outcome{
		Result:   Continue,
		Rotation: e.rotation,
		Velocity: e.velocity,
		Click:    math.Floor(e.rotation/ClickArc) > math.Floor(old/ClickArc),
		Index:    -1,
	}
}

// Acknowledge returns a settled engine to idle and hands back the winning index.
func (e *Engine) Acknowledge() (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.phase != Settled {
		return -1, ErrNotSettled
	}
	idx := e.pending
	e.phase = Idle
	e.pending = -1
	return idx, nil
}

// Phase reports the current phase.
func (e *Engine) Phase() Phase {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.phase
}

// Rotation returns the current wheel angle in radians.
func (e *Engine) Rotation() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rotation
}

// State returns a copy of the engine state.
func (e *Engine) State() models.SpinState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return models.SpinState{
		Rotation: e.rotation,
		Velocity: e.velocity,
		Spinning: e.phase == Spinning,
		Pending:  e.pending,
	}
}

// WinningIndex maps a wheel rotation to the segment under the pointer.
// Segments start at angle 0 and run clockwise, each 2π/n wide.
// It returns -1 when n < 1.
func WinningIndex(rotation float64, n int) int {
	if n < 1 {
		return -1
	}
	arc := fullTurn / float64(n)

	net := math.Mod(rotation, fullTurn)
	if net < 0 {
		net += fullTurn
	}
	onWheel := math.Mod(PointerAngle-net, fullTurn)
	if onWheel < 0 {
		onWheel += fullTurn
	}

	idx := int(math.Floor(onWheel / arc))
	// float rounding can land exactly on 2π
	if idx >= n {
		idx = n - 1
	}
	if idx < 0 {
		idx = 0
	}
	return idx
}

// StepsToSettle returns how many ticks a spin started at v0 runs, the
// settling tick included.
func StepsToSettle(v0 float64) int {
	steps := 0
	for v := v0; ; {
		v *= Decay
		steps++
		if v < StopThreshold {
			return steps
		}
	}
}
