package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"spinwheel/internal/engine"
	"spinwheel/internal/ledger"
	"spinwheel/internal/models"
	"spinwheel/internal/registry"

	"github.com/google/logger"
	"github.com/google/uuid"
)

var (
	ErrInvalidEntry   = errors.New("name and membership id are required")
	ErrSpinInProgress = errors.New("a spin is already in progress")
)

// EntryStatus is the verdict of the eligibility gate.
type EntryStatus string

const (
	Accepted EntryStatus = "accepted"
	Rejected EntryStatus = "rejected"
)

// EntryResult is returned for every well-formed entry.
type EntryResult struct {
	Status  EntryStatus `json:"status"`
	SpinID  string      `json:"spinId,omitempty"`
	Message string      `json:"message,omitempty"`
}

// SpinResult describes a settled spin.
type SpinResult struct {
	SpinID string              `json:"spinId"`
	Index  int                 `json:"index"`
	Prize  models.Prize        `json:"prize"`
	Record models.WinnerRecord `json:"record"`
}

// WheelStatus is a point-in-time view of the wheel.
type WheelStatus struct {
	Phase  string           `json:"phase"`
	State  models.SpinState `json:"state"`
	SpinID string           `json:"spinId,omitempty"`
	Last   *SpinResult      `json:"last,omitempty"`
}

// fallbackUser is recorded when a spin settles without an entry behind it.
var fallbackUser = models.SessionUser{Name: "Lucky Winner", ID: "000"}

// WheelService ties the entry form, the spin engine, the prize registry and
// the winner ledger together for a single wheel.
type WheelService struct {
	mu      sync.Mutex
	ctx     context.Context
	engine  *engine.Engine
	prizes  *registry.Registry
	winners *ledger.Ledger
	sched   engine.Scheduler

	user   *models.SessionUser
	spinID string
	done   chan struct{}
	last   *SpinResult

	hub *Hub
}

// NewWheelService creates a WheelService. ctx bounds the lifetime of spin
// loops and should be cancelled only at shutdown.
func NewWheelService(ctx context.Context, eng *engine.Engine, prizes *registry.Registry, winners *ledger.Ledger, sched engine.Scheduler) *WheelService {
	s := &WheelService{
		ctx:     ctx,
		engine:  eng,
		prizes:  prizes,
		winners: winners,
		sched:   sched,
		hub:     NewHub(),
	}
	prizes.OnChange(func(_ context.Context, p []models.Prize) {
		s.hub.Publish(Event{Type: EventPrizes, Prizes: p})
	})
	return s
}

// Hub returns the event hub that spin frames are published on.
func (s *WheelService) Hub() *Hub { return s.hub }

// Prizes returns the current prize list.
func (s *WheelService) Prizes() []models.Prize { return s.prizes.Prizes() }

// Winners returns the retained winner records, newest first.
func (s *WheelService) Winners() []models.WinnerRecord { return s.winners.Records() }

// Rotation returns the current wheel angle.
func (s *WheelService) Rotation() float64 { return s.engine.Rotation() }

// SubmitEntry runs the eligibility gate and starts a spin for new members.
// A membership id that is already in the ledger is rejected with a message
// for the user, not an error.
func (s *WheelService) SubmitEntry(name, membershipID string) (EntryResult, error) {
	name = strings.TrimSpace(name)
	membershipID = strings.TrimSpace(membershipID)
	if name == "" || membershipID == "" {
		return EntryResult{}, ErrInvalidEntry
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.winners.HasMember(membershipID) {
		logger.Infof("Rejected repeat entry for membership id %s", membershipID)
		return EntryResult{Status: Rejected, Message: duplicateMessage(name, membershipID)}, nil
	}

	if err := s.engine.Start(s.prizes.Len()); err != nil {
		if errors.Is(err, engine.ErrSpinning) {
			return EntryResult{}, ErrSpinInProgress
		}
		return EntryResult{}, err
	}

	spinID := uuid.NewString()
	s.user = &models.SessionUser{Name: name, ID: membershipID}
	s.spinID = spinID
	s.done = make(chan struct{})

	runner := &engine.Runner{
		Engine:    s.engine,
		Scheduler: s.sched,
		OnFrame:   s.frame(spinID),
		OnSettle:  s.settle(spinID, s.done),
	}
	go func() {
		if err := runner.Run(s.ctx); err != nil {
			logger.Warningf("Spin %s stopped: %v", spinID, err)
		}
	}()

	logger.Infof("Spin %s started for %s (%s)", spinID, name, membershipID)
	return EntryResult{Status: Accepted, SpinID: spinID}, nil
}

func (s *WheelService) frame(spinID string) func(engine.Outcome) {
	return func(out engine.Outcome) {
		s.hub.Publish(Event{Type: EventFrame, SpinID: spinID, Rotation: out.Rotation, Click: out.Click})
	}
}

func (s *WheelService) settle(spinID string, done chan struct{}) func(engine.Outcome) {
	return func(out engine.Outcome) {
		defer close(done)

		// Held until the win is recorded so a new entry cannot slip past the
		// eligibility gate or replace the session user in between.
		s.mu.Lock()
		result, ok := s.recordLocked(spinID)
		s.mu.Unlock()
		if !ok {
			return
		}

		s.hub.Publish(Event{Type: EventSettled, SpinID: spinID, Rotation: out.Rotation, Result: result})
	}
}

func (s *WheelService) recordLocked(spinID string) (*SpinResult, bool) {
	idx, err := s.engine.Acknowledge()
	if err != nil {
		logger.Errorf("Spin %s: %v", spinID, err)
		return nil, false
	}
	prize, ok := s.prizes.Prize(idx)
	if !ok {
		logger.Errorf("Spin %s settled on unknown slot %d", spinID, idx)
		return nil, false
	}

	user := fallbackUser
	if s.user != nil {
		user = *s.user
	}
	s.user = nil

	rec, err := s.winners.RecordWin(s.ctx, user, prize)
	if err != nil {
		logger.Errorf("Spin %s: %v", spinID, err)
	}

	s.last = &SpinResult{SpinID: spinID, Index: idx, Prize: prize, Record: rec}
	return s.last, true
}

// Status returns the current wheel state and the last result.
func (s *WheelService) Status() WheelStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return WheelStatus{
		Phase:  s.engine.Phase().String(),
		State:  s.engine.State(),
		SpinID: s.spinID,
		Last:   s.last,
	}
}

// Await blocks until the spin with the given id has settled and returns its result.
func (s *WheelService) Await(ctx context.Context, spinID string) (*SpinResult, error) {
	s.mu.Lock()
	if spinID != s.spinID {
		s.mu.Unlock()
		return nil, fmt.Errorf("spin %s is not the current spin", spinID)
	}
	done := s.done
	s.mu.Unlock()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-done:
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil || s.last.SpinID != spinID {
		return nil, fmt.Errorf("spin %s did not produce a result", spinID)
	}
	return s.last, nil
}

// ApplyEdits forwards admin prize edits to the registry.
func (s *WheelService) ApplyEdits(ctx context.Context, edits []models.PrizeEdit) error {
	return s.prizes.ApplyEdits(ctx, edits)
}

// ExportWinners writes the winner report to w.
func (s *WheelService) ExportWinners(w io.Writer) error {
	return s.winners.ExportCSV(w)
}

// Reset clears winners and prizes back to defaults. It refuses to run while
// the wheel is moving.
func (s *WheelService) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.engine.Phase() != engine.Idle {
		return ErrSpinInProgress
	}
	if err := s.winners.Reset(ctx); err != nil {
		return err
	}
	if err := s.prizes.Reset(ctx); err != nil {
		return err
	}
	s.last = nil
	logger.Infof("Cleared all wheel data")
	return nil
}

// ResetWinners clears only the winner ledger. Used by the scheduled daily reset.
func (s *WheelService) ResetWinners() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.winners.Reset(s.ctx); err != nil {
		logger.Errorf("Scheduled winner reset failed: %v", err)
		return
	}
	s.last = nil
	logger.Infof("Cleared winner ledger")
}

func duplicateMessage(name, membershipID string) string {
	return fmt.Sprintf("Dear %s, thank you for staying with us! "+
		"You have already spun once with membership ID (%s). "+
		"We look forward to seeing you at the next event!", name, membershipID)
}
