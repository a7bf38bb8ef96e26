package tiltrig

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	calibrationTarget = 0.0
	pitchTolerance    = 0.1

	holdDuration        = 10 * time.Second
	completeRecordCount = 100

	// canSilenceWarnAfter is how long the fuel sender may stay quiet
	// before the operator is warned, checked after each adjustment.
	canSilenceWarnAfter = 60 * time.Second

	resetCommand = "reset"
)

// Record phase vocabulary outside the numbered cycle steps.
const (
	PhaseReturnToZero = "ReturnToZero"
	PhaseComplete     = "Complete"
)

// cycleStep pairs a target angle with the labels recorded while
// adjusting to it and holding at it.
type cycleStep struct {
	target      float64
	adjustPhase string
	holdPhase   string
}

var cycleSteps = []cycleStep{
	{5, "AdjustingToPos5", "Stationary1"},
	{-5, "AdjustingToNeg5", "Stationary2"},
	{10, "AdjustingToPos10", "Stationary3"},
	{-10, "AdjustingToNeg10", "Stationary4"},
}

// SequencerState identifies where the sequencer is in its cycle.
type SequencerState int

const (
	StateIdle SequencerState = iota
	StateCalibrating
	StateCycling
	StateReturning
	StateComplete
)

func (s SequencerState) String() string {
	switch s {
	case StateCalibrating:
		return "calibrating"
	case StateCycling:
		return "cycling"
	case StateReturning:
		return "returning"
	case StateComplete:
		return "complete"
	}
	return "idle"
}

// TestSequencer steps the rig through the fixed pitch cycle: level the
// platform, visit each cycle target with a hold, return to level, then
// latch complete until an operator reset.
type TestSequencer struct {
	rig   *Rig
	state SequencerState
}

func NewTestSequencer(rig *Rig) *TestSequencer {
	return &TestSequencer{
		rig: rig,
	}
}

func (s *TestSequencer) State() SequencerState {
	return s.state
}

// Run executes test cycles until the context is cancelled. After each
// completed cycle it blocks until a reset command arrives, then starts
// over with a fresh record stream.
func (s *TestSequencer) Run(ctx context.Context, commands <-chan string) error {
	for {
		if err := s.runCycle(ctx); err != nil {
			return err
		}
		if err := s.awaitReset(ctx, commands); err != nil {
			return err
		}
	}
}

func (s *TestSequencer) runCycle(ctx context.Context) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	s.state = StateCalibrating
	log.Info("calibrating platform to level")
	if outcome := s.rig.Controller.DriveTo(calibrationTarget, pitchTolerance, nil); outcome != Reached {
		log.WithField("outcome", outcome).Warn("calibration incomplete")
	}

	s.rig.Emitter.BeginRun(s.rig.Clock.Now())
	s.rig.Emitter.WriteHeader()

	s.state = StateCycling
	for _, step := range cycleSteps {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.adjustTo(step.target, step.adjustPhase)
		s.checkCanLiveness()
		log.WithField("target", step.target).Info("holding")
		s.logFor(ctx, holdDuration, step.holdPhase, DirectionNone)
	}

	if ctx.Err() != nil {
		return ctx.Err()
	}

	s.state = StateReturning
	s.adjustTo(calibrationTarget, PhaseReturnToZero)
	s.checkCanLiveness()
	s.logRecords(ctx, completeRecordCount, PhaseComplete, DirectionZero)

	if ctx.Err() != nil {
		return ctx.Err()
	}

	s.state = StateComplete
	log.Info("test cycle complete, waiting for reset")
	return nil
}

// adjustTo drives to the target while emitting records under the given
// phase label. A failed adjustment is reported and the cycle carries on
// from wherever the platform ended up.
func (s *TestSequencer) adjustTo(target float64, phase string) {
	log.WithField("target", target).
		WithField("phase", phase).
		Info("adjusting pitch")

	outcome := s.rig.Controller.DriveTo(target, pitchTolerance, func(direction string) {
		s.rig.Emitter.EmitIfDue(phase, direction)
	})
	if outcome != Reached {
		log.WithField("target", target).
			WithField("outcome", outcome).
			Warn("adjustment failed, continuing cycle")
	}
}

// logFor emits records under a fixed phase label for the given duration.
// The window is closed at both ends so a hold carries its full complement
// of data ticks.
func (s *TestSequencer) logFor(ctx context.Context, d time.Duration, phase, direction string) {
	end := s.rig.Clock.Now().Add(d)
	for !s.rig.Clock.Now().After(end) {
		if ctx.Err() != nil {
			return
		}
		s.rig.Emitter.EmitIfDue(phase, direction)
		s.rig.Clock.Sleep(tickQuantum)
	}
}

// logRecords emits a fixed number of records under one phase label. If
// pitch stays unusable past the sensor retry budget the remainder is
// abandoned.
func (s *TestSequencer) logRecords(ctx context.Context, n int, phase, direction string) {
	giveUp := s.rig.Clock.Now().Add(pitchRetryAttempts * pitchRetryDelay)
	emitted := 0
	for emitted < n {
		if ctx.Err() != nil {
			return
		}
		if s.rig.Emitter.EmitIfDue(phase, direction) {
			emitted++
			giveUp = s.rig.Clock.Now().Add(pitchRetryAttempts * pitchRetryDelay)
		} else if s.rig.Clock.Now().After(giveUp) {
			log.WithField("phase", phase).
				WithField("emitted", emitted).
				Warn("pitch unavailable, abandoning remaining records")
			return
		}
		s.rig.Clock.Sleep(tickQuantum)
	}
}

func (s *TestSequencer) checkCanLiveness() {
	now := s.rig.Clock.Now()
	silent := s.rig.CanReader.SilentFor(now)
	if silent <= canSilenceWarnAfter {
		return
	}
	log.WithField("silent", silent.Truncate(time.Second)).
		Warn("no CAN frames from fuel sender")
	s.rig.CanReader.ResetSilence(now)
}

// awaitReset blocks until the reset command arrives. Other commands are
// ignored.
func (s *TestSequencer) awaitReset(ctx context.Context, commands <-chan string) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case cmd := <-commands:
			if cmd == resetCommand {
				log.Info("reset received, restarting test cycle")
				return nil
			}
			log.WithField("command", cmd).Debug("ignoring command")
		}
	}
}
